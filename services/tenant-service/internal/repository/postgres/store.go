package postgres

import (
	"TenancyPlatform/pkg/database"
	"TenancyPlatform/services/tenant-service/internal/repository"
)

// Store набор репозиториев поверх одного DBTX (пул или транзакция сессии)
type Store struct {
	db           database.DBTX
	sharedSchema string
}

// NewStore создает Store. Таблица каталога адресуется через sharedSchema,
// таблицы арендатора разрешаются через search_path сессии.
func NewStore(db database.DBTX, sharedSchema string) *Store {
	return &Store{db: db, sharedSchema: sharedSchema}
}

// NewStoreFactory возвращает фабрику Store для сессий
func NewStoreFactory(sharedSchema string) repository.StoreFactory {
	return func(db database.DBTX) repository.Store {
		return NewStore(db, sharedSchema)
	}
}

func (s *Store) Tenants() repository.TenantRepository {
	return NewTenantRepository(s.db, s.sharedSchema)
}

func (s *Store) Schemas() repository.SchemaRepository {
	return NewSchemaRepository(s.db)
}

func (s *Store) Users() repository.UserRepository {
	return NewUserRepository(s.db)
}

func (s *Store) Products() repository.ProductRepository {
	return NewProductRepository(s.db)
}
