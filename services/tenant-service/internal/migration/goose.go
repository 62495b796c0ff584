package migration

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/validation"
)

// GooseRunner применяет встроенные SQL-миграции через goose.
// Для каждой схемы открывается отдельный *sql.DB с search_path этой схемы,
// поэтому таблица версий goose живет внутри мигрируемой схемы.
type GooseRunner struct {
	connConfig   *pgx.ConnConfig
	sharedSchema string
	fsys         fs.FS
	validator    *validation.Validator
	logger       logger.Logger
}

// NewGooseRunner создает GooseRunner. fsys должен содержать каталоги shared и tenant.
func NewGooseRunner(connString, sharedSchema string, fsys fs.FS, log logger.Logger) (*GooseRunner, error) {
	connConfig, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	return &GooseRunner{
		connConfig:   connConfig,
		sharedSchema: sharedSchema,
		fsys:         fsys,
		validator:    validation.NewValidator(),
		logger:       log,
	}, nil
}

// ModelSetFor возвращает shared для общей схемы и tenant для остальных
func (r *GooseRunner) ModelSetFor(schemaName string) ModelSet {
	if schemaName == r.sharedSchema {
		return ModelSetShared
	}
	return ModelSetTenant
}

// ApplyShared мигрирует общую схему
func (r *GooseRunner) ApplyShared(ctx context.Context) error {
	return r.apply(ctx, r.sharedSchema)
}

// ApplyTenant мигрирует схему арендатора
func (r *GooseRunner) ApplyTenant(ctx context.Context, schemaName string) error {
	if schemaName == r.sharedSchema {
		return fmt.Errorf("schema %s is the shared schema", schemaName)
	}
	return r.apply(ctx, schemaName)
}

func (r *GooseRunner) apply(ctx context.Context, schemaName string) error {
	if err := r.validator.ValidateIdentifier(schemaName, "schema_name"); err != nil {
		return err
	}

	set := r.ModelSetFor(schemaName)
	migrations, err := fs.Sub(r.fsys, string(set))
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", set, err)
	}

	connConfig := r.connConfig.Copy()
	connConfig.RuntimeParams["search_path"] = database.QuoteIdentifier(schemaName)

	db := stdlib.OpenDB(*connConfig)
	defer db.Close()

	// Схемы арендаторов создает провижининг, общую схему создаем сами
	if set == ModelSetShared {
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+database.QuoteIdentifier(schemaName)); err != nil {
			return fmt.Errorf("failed to create shared schema %s: %w", schemaName, err)
		}
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider for %s: %w", schemaName, err)
	}

	start := time.Now()
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate schema %s: %w", schemaName, err)
	}

	r.logger.Info("Schema migrated",
		logger.String("schema", schemaName),
		logger.String("model_set", string(set)),
		logger.Int("applied", len(results)),
		logger.Duration("duration", time.Since(start)),
	)
	return nil
}
