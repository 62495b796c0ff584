package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/pkg/validation"
	"TenancyPlatform/services/tenant-service/internal/repository"
)

// SchemaRepository выполняет DDL схем и читает каталог information_schema
type SchemaRepository struct {
	db        database.DBTX
	validator *validation.Validator
}

// NewSchemaRepository создает новый экземпляр SchemaRepository
func NewSchemaRepository(db database.DBTX) repository.SchemaRepository {
	return &SchemaRepository{db: db, validator: validation.NewValidator()}
}

// EnsureSchema создает схему. Имя подставляется в DDL только после проверки
// грамматики. "Уже существует" не считается ошибкой.
func (r *SchemaRepository) EnsureSchema(ctx context.Context, schemaName string) (bool, error) {
	if err := r.validator.ValidateIdentifier(schemaName, "schema_name"); err != nil {
		return false, fmt.Errorf("refusing to create schema: %w", err)
	}

	_, err := r.db.Exec(ctx, "CREATE SCHEMA "+database.QuoteIdentifier(schemaName))
	if err != nil {
		switch database.PgErrorCode(err) {
		// 23505 возникает при гонке двух CREATE SCHEMA на pg_namespace
		case database.CodeDuplicateSchema, database.CodeUniqueViolation:
			return false, nil
		}
		return false, fmt.Errorf("failed to create schema %s: %w", schemaName, err)
	}
	return true, nil
}

// SchemaExists проверяет наличие схемы
func (r *SchemaRepository) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schemaName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check schema %s: %w", schemaName, err)
	}
	return exists, nil
}

// ListSchemas возвращает все пользовательские схемы базы
func (r *SchemaRepository) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT LIKE 'pg\_%' AND schema_name <> 'information_schema'
		ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	schemas, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect schemas: %w", err)
	}
	return schemas, nil
}
