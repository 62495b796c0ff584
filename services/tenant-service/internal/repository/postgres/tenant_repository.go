package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"TenancyPlatform/pkg/database"
	pkg_errors "TenancyPlatform/pkg/errors"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/repository"
)

const tenantColumns = `id, name, schema_name, subdomain, is_active, created_at`

// Имена ограничений уникальности таблицы tenants
const (
	constraintTenantName       = "tenants_name_key"
	constraintTenantSchemaName = "tenants_schema_name_key"
	constraintTenantSubdomain  = "tenants_subdomain_key"
)

// TenantRepository реализация каталога арендаторов для PostgreSQL.
// Таблица всегда квалифицирована общей схемой, поэтому запросы не зависят
// от search_path соединения.
type TenantRepository struct {
	db    database.DBTX
	table string
}

// NewTenantRepository создает новый экземпляр TenantRepository
func NewTenantRepository(db database.DBTX, sharedSchema string) repository.TenantRepository {
	return &TenantRepository{db: db, table: database.QualifiedTable(sharedSchema, "tenants")}
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.SchemaName, &t.Subdomain, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) findOne(ctx context.Context, where string, arg any) (*domain.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, tenantColumns, r.table, where)

	tenant, err := scanTenant(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query tenant: %w", err)
	}
	return tenant, nil
}

// FindByID возвращает арендатора по ID
func (r *TenantRepository) FindByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindActiveByID возвращает только активного арендатора
func (r *TenantRepository) FindActiveByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	return r.findOne(ctx, "id = $1 AND is_active = true", id)
}

// FindByIDForUpdate возвращает арендатора с блокировкой строки (SELECT ... FOR UPDATE).
// Вне транзакции блокировка снимается сразу.
func (r *TenantRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Tenant, error) {
	return r.findOne(ctx, "id = $1 FOR UPDATE", id)
}

// FindBySchemaName возвращает арендатора по имени схемы
func (r *TenantRepository) FindBySchemaName(ctx context.Context, schemaName string) (*domain.Tenant, error) {
	return r.findOne(ctx, "schema_name = $1", schemaName)
}

// FindBySubdomain возвращает арендатора по поддомену
func (r *TenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	return r.findOne(ctx, "subdomain = $1", subdomain)
}

func (r *TenantRepository) queryTenants(ctx context.Context, query string, args ...any) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*domain.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}
	return tenants, nil
}

// List возвращает страницу арендаторов в порядке первичного ключа
func (r *TenantRepository) List(ctx context.Context, page domain.Page) ([]*domain.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id OFFSET $1 LIMIT $2`, tenantColumns, r.table)
	return r.queryTenants(ctx, query, page.Skip, page.Limit)
}

// ListAll возвращает весь каталог, включая неактивных арендаторов
func (r *TenantRepository) ListAll(ctx context.Context) ([]*domain.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, tenantColumns, r.table)
	return r.queryTenants(ctx, query)
}

// ListActiveSchemas возвращает схемы активных арендаторов
func (r *TenantRepository) ListActiveSchemas(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT schema_name FROM %s WHERE is_active = true ORDER BY id`, r.table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schemas: %w", err)
	}
	schemas, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect active schemas: %w", err)
	}
	return schemas, nil
}

// Create сохраняет арендатора; ID, is_active и created_at назначает база
func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := fmt.Sprintf(`INSERT INTO %s (name, schema_name, subdomain)
		VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at`, r.table)

	err := r.db.QueryRow(ctx, query, tenant.Name, tenant.SchemaName, tenant.Subdomain).
		Scan(&tenant.ID, &tenant.IsActive, &tenant.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return duplicateTenantError(err, tenant)
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// Update сохраняет изменяемые поля: name и is_active.
// Вызывающий держит блокировку строки из FindByIDForUpdate.
func (r *TenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $2, is_active = $3 WHERE id = $1`, r.table)

	tag, err := r.db.Exec(ctx, query, tenant.ID, tenant.Name, tenant.IsActive)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return duplicateTenantError(err, tenant)
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pkg_errors.Newf(pkg_errors.ErrNotFound, "Tenant with id %d not found", tenant.ID)
	}
	return nil
}

// duplicateTenantError переводит нарушение уникальности в ту же ошибку,
// что и явная предварительная проверка
func duplicateTenantError(err error, tenant *domain.Tenant) error {
	var e *pkg_errors.Error
	switch database.ConstraintName(err) {
	case constraintTenantSubdomain:
		sub := ""
		if tenant.Subdomain != nil {
			sub = *tenant.Subdomain
		}
		e = pkg_errors.Newf(pkg_errors.ErrDuplicate, "Subdomain '%s' already registered.", sub)
	case constraintTenantName:
		e = pkg_errors.Newf(pkg_errors.ErrDuplicate, "Tenant name '%s' already registered.", tenant.Name)
	default:
		e = pkg_errors.Newf(pkg_errors.ErrDuplicate, "Schema name '%s' already exists or is planned.", tenant.SchemaName)
	}
	e.Cause = err
	return e
}
