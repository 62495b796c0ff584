package service

import (
	"context"
	"strings"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/pkg/errors"
	"TenancyPlatform/pkg/validation"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/repository"
	"TenancyPlatform/services/tenant-service/internal/session"
)

// ErrItemNotFound элемент отсутствует в схеме арендатора
func ErrItemNotFound() *errors.Error {
	return errors.New(errors.ErrNotFound, "Item not found")
}

// ItemService доменные сущности арендатора. Все запросы идут через сессию
// арендатора, таблицы не квалифицируются схемой.
type ItemService struct {
	sessions  session.Runner
	stores    repository.StoreFactory
	validator *validation.Validator
}

// NewItemService создает ItemService
func NewItemService(sessions session.Runner, stores repository.StoreFactory) *ItemService {
	return &ItemService{
		sessions:  sessions,
		stores:    stores,
		validator: validation.NewValidator(),
	}
}

// CreateUser создает пользователя
func (s *ItemService) CreateUser(ctx context.Context, in domain.UserCreate) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.ValidateStringLength(in.Name, "name", 1, 100); err != nil {
		return nil, errors.New(errors.ErrValidation, err.Error())
	}
	if err := s.validator.ValidateEmail(in.Email); err != nil {
		return nil, errors.New(errors.ErrValidation, err.Error())
	}

	var user *domain.User
	err := s.sessions.Tenant(ctx, func(ctx context.Context, db database.DBTX) error {
		var err error
		user, err = s.stores(db).Users().Create(ctx, in)
		return err
	})
	return user, err
}

// GetUser возвращает пользователя по ID
func (s *ItemService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var user *domain.User
	err := s.sessions.Tenant(ctx, func(ctx context.Context, db database.DBTX) error {
		u, err := s.stores(db).Users().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrItemNotFound()
		}
		user = u
		return nil
	})
	return user, err
}

// ListUsers возвращает страницу пользователей
func (s *ItemService) ListUsers(ctx context.Context, page domain.Page) ([]*domain.User, error) {
	var users []*domain.User
	err := s.sessions.Tenant(ctx, func(ctx context.Context, db database.DBTX) error {
		var err error
		users, err = s.stores(db).Users().List(ctx, page)
		return err
	})
	return users, err
}

// CreateProduct создает товар
func (s *ItemService) CreateProduct(ctx context.Context, in domain.ProductCreate) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.ValidateStringLength(in.Name, "name", 1, 100); err != nil {
		return nil, errors.New(errors.ErrValidation, err.Error())
	}
	if in.Price <= 0 {
		return nil, errors.New(errors.ErrValidation, "price must be greater than 0")
	}

	var product *domain.Product
	err := s.sessions.Tenant(ctx, func(ctx context.Context, db database.DBTX) error {
		var err error
		product, err = s.stores(db).Products().Create(ctx, in)
		return err
	})
	return product, err
}

// GetProduct возвращает товар по ID
func (s *ItemService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product *domain.Product
	err := s.sessions.Tenant(ctx, func(ctx context.Context, db database.DBTX) error {
		p, err := s.stores(db).Products().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrItemNotFound()
		}
		product = p
		return nil
	})
	return product, err
}

// ListProducts возвращает страницу товаров
func (s *ItemService) ListProducts(ctx context.Context, page domain.Page) ([]*domain.Product, error) {
	var products []*domain.Product
	err := s.sessions.Tenant(ctx, func(ctx context.Context, db database.DBTX) error {
		var err error
		products, err = s.stores(db).Products().List(ctx, page)
		return err
	})
	return products, err
}
