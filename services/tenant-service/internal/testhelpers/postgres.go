// Package testhelpers поднимает PostgreSQL в контейнере для интеграционных тестов.
package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"TenancyPlatform/pkg/database"
)

const postgresImage = "postgres:16-alpine"

// Postgres запущенный контейнер и пул подключений к нему
type Postgres struct {
	ConnString string
	DB         *database.Postgres
}

// StartPostgres запускает контейнер PostgreSQL.
// Тест пропускается в режиме -short и при недоступном Docker.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-based test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("tenancy"),
		tcpostgres.WithUsername("tenancy"),
		tcpostgres.WithPassword("tenancy"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connString, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := database.NewConfig()
	cfg.URL = connString
	db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return &Postgres{ConnString: connString, DB: db}
}
