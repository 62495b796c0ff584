package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/lock"
	"TenancyPlatform/services/tenant-service/internal/repository"
	"TenancyPlatform/services/tenant-service/internal/session"
)

// fakeSessions выполняет fn без базы и запоминает вид сессии
type fakeSessions struct {
	kinds []string
	err   error
}

func (f *fakeSessions) Tenant(ctx context.Context, fn session.Func) error {
	f.kinds = append(f.kinds, session.KindTenant)
	if f.err != nil {
		return f.err
	}
	return fn(ctx, nil)
}

func (f *fakeSessions) Shared(ctx context.Context, fn session.Func) error {
	f.kinds = append(f.kinds, session.KindShared)
	if f.err != nil {
		return f.err
	}
	return fn(ctx, nil)
}

type mockStore struct {
	tenants  *MockTenantRepository
	schemas  *MockSchemaRepository
	users    *MockUserRepository
	products *MockProductRepository
}

func newMockStore() *mockStore {
	return &mockStore{
		tenants:  new(MockTenantRepository),
		schemas:  new(MockSchemaRepository),
		users:    new(MockUserRepository),
		products: new(MockProductRepository),
	}
}

func (s *mockStore) factory() repository.StoreFactory {
	return func(db database.DBTX) repository.Store { return s }
}

func (s *mockStore) Tenants() repository.TenantRepository { return s.tenants }
func (s *mockStore) Schemas() repository.SchemaRepository { return s.schemas }
func (s *mockStore) Users() repository.UserRepository { return s.users }
func (s *mockStore) Products() repository.ProductRepository { return s.products }

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) tenant(args mock.Arguments) (*domain.Tenant, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	return m.tenant(m.Called(ctx, id))
}

func (m *MockTenantRepository) FindActiveByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	return m.tenant(m.Called(ctx, id))
}

func (m *MockTenantRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Tenant, error) {
	return m.tenant(m.Called(ctx, id))
}

func (m *MockTenantRepository) FindBySchemaName(ctx context.Context, schemaName string) (*domain.Tenant, error) {
	return m.tenant(m.Called(ctx, schemaName))
}

func (m *MockTenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	return m.tenant(m.Called(ctx, subdomain))
}

func (m *MockTenantRepository) List(ctx context.Context, page domain.Page) ([]*domain.Tenant, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListAll(ctx context.Context) ([]*domain.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListActiveSchemas(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

type MockSchemaRepository struct {
	mock.Mock
}

func (m *MockSchemaRepository) EnsureSchema(ctx context.Context, schemaName string) (bool, error) {
	args := m.Called(ctx, schemaName)
	return args.Bool(0), args.Error(1)
}

func (m *MockSchemaRepository) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	args := m.Called(ctx, schemaName)
	return args.Bool(0), args.Error(1)
}

func (m *MockSchemaRepository) ListSchemas(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, in domain.UserCreate) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, page domain.Page) ([]*domain.User, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]*domain.User), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, in domain.ProductCreate) (*domain.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, page domain.Page) ([]*domain.Product, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]*domain.Product), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(lock.Lock), args.Error(1)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMigrationRequest(ctx context.Context, req domain.MigrationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
