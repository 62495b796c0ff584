package repository

import (
	"context"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/services/tenant-service/internal/domain"
)

// TenantRepository каталог арендаторов в общей схеме.
// Методы поиска возвращают (nil, nil), если запись не найдена.
type TenantRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Tenant, error)
	FindActiveByID(ctx context.Context, id int64) (*domain.Tenant, error)
	// FindByIDForUpdate блокирует строку до конца текущей транзакции
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Tenant, error)
	FindBySchemaName(ctx context.Context, schemaName string) (*domain.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)
	List(ctx context.Context, page domain.Page) ([]*domain.Tenant, error)
	ListActiveSchemas(ctx context.Context) ([]string, error)
	ListAll(ctx context.Context) ([]*domain.Tenant, error)
	Create(ctx context.Context, tenant *domain.Tenant) error
	Update(ctx context.Context, tenant *domain.Tenant) error
}

// SchemaRepository DDL и каталог схем PostgreSQL
type SchemaRepository interface {
	// EnsureSchema создает схему; created=false, если схема уже существовала
	EnsureSchema(ctx context.Context, schemaName string) (created bool, err error)
	SchemaExists(ctx context.Context, schemaName string) (bool, error)
	ListSchemas(ctx context.Context) ([]string, error)
}

// UserRepository пользователи в схеме арендатора (без квалификации схемы)
type UserRepository interface {
	Create(ctx context.Context, in domain.UserCreate) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, page domain.Page) ([]*domain.User, error)
}

// ProductRepository товары в схеме арендатора
type ProductRepository interface {
	Create(ctx context.Context, in domain.ProductCreate) (*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, page domain.Page) ([]*domain.Product, error)
}

// Store набор репозиториев поверх одного соединения или транзакции
type Store interface {
	Tenants() TenantRepository
	Schemas() SchemaRepository
	Users() UserRepository
	Products() ProductRepository
}

// StoreFactory строит Store поверх транзакции сессии
type StoreFactory func(db database.DBTX) Store
