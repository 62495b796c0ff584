package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/pkg/mocks"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/repository"
	"TenancyPlatform/services/tenant-service/internal/session"
)

type sharedOnly struct {
	calls int
}

func (s *sharedOnly) Tenant(ctx context.Context, fn session.Func) error {
	return errors.New("tenant session not expected")
}

func (s *sharedOnly) Shared(ctx context.Context, fn session.Func) error {
	s.calls++
	return fn(ctx, nil)
}

type fakeTenants struct {
	repository.TenantRepository
	all []*domain.Tenant
	err error
}

func (f *fakeTenants) ListAll(ctx context.Context) ([]*domain.Tenant, error) {
	return f.all, f.err
}

type fakeSchemas struct {
	repository.SchemaRepository
	names []string
}

func (f *fakeSchemas) ListSchemas(ctx context.Context) ([]string, error) {
	return f.names, nil
}

type fakeStore struct {
	repository.Store
	tenants *fakeTenants
	schemas *fakeSchemas
}

func (s *fakeStore) Tenants() repository.TenantRepository { return s.tenants }
func (s *fakeStore) Schemas() repository.SchemaRepository { return s.schemas }

func newSweeper(t *testing.T, tenants *fakeTenants, schemas []string) (*Sweeper, *metrics.Metrics, *mocks.MockLogger, *sharedOnly) {
	t.Helper()
	store := &fakeStore{tenants: tenants, schemas: &fakeSchemas{names: schemas}}
	m := metrics.NewMetrics("tenant_service_test", prometheus.NewRegistry())
	log := mocks.NewMockLogger()
	sessions := &sharedOnly{}
	factory := func(db database.DBTX) repository.Store { return store }
	return NewSweeper(sessions, factory, m, log), m, log, sessions
}

func TestSweeper_ReportsMissingSchemas(t *testing.T) {
	tenants := &fakeTenants{all: []*domain.Tenant{
		{ID: 1, Name: "Acme", SchemaName: "acme", IsActive: true},
		{ID: 2, Name: "Globex", SchemaName: "globex", IsActive: true},
		{ID: 3, Name: "Initech", SchemaName: "initech", IsActive: false},
	}}
	sweeper, m, log, sessions := newSweeper(t, tenants, []string{"public", "acme"})

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sessions.calls)
	assert.Equal(t, 3, report.Tenants)
	assert.False(t, report.Consistent())
	require.Len(t, report.Missing, 2)
	assert.Equal(t, "globex", report.Missing[0].SchemaName)
	assert.Equal(t, "initech", report.Missing[1].SchemaName)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MissingSchemas))

	alerts := 0
	for _, msg := range log.Messages("Error") {
		if msg == "ALERT: tenant schema missing" {
			alerts++
		}
	}
	assert.Equal(t, 2, alerts)
}

func TestSweeper_Consistent(t *testing.T) {
	tenants := &fakeTenants{all: []*domain.Tenant{{ID: 1, SchemaName: "acme", IsActive: true}}}
	sweeper, m, log, _ := newSweeper(t, tenants, []string{"public", "acme", "unrelated"})

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Consistent())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MissingSchemas))
	assert.Empty(t, log.Messages("Error"))
}

func TestSweeper_DirectoryError(t *testing.T) {
	tenants := &fakeTenants{err: errors.New("connection reset")}
	sweeper, _, log, _ := newSweeper(t, tenants, nil)

	_, err := sweeper.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, log.Messages("Error"), "Reconciliation sweep failed")
}

func TestSweeper_StartStop(t *testing.T) {
	sweeper, _, _, _ := newSweeper(t, &fakeTenants{}, nil)

	require.Error(t, sweeper.Start(context.Background(), "not a schedule"))
	assert.False(t, sweeper.IsRunning())

	require.NoError(t, sweeper.Start(context.Background(), "@every 1h"))
	assert.True(t, sweeper.IsRunning())
	require.NoError(t, sweeper.Start(context.Background(), "@every 1h"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sweeper.Stop(ctx)
	assert.False(t, sweeper.IsRunning())
}
