package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/pkg/errors"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/pkg/validation"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/lock"
	"TenancyPlatform/services/tenant-service/internal/migration"
	"TenancyPlatform/services/tenant-service/internal/repository"
	"TenancyPlatform/services/tenant-service/internal/session"
)

// Исходы создания арендатора для метрик
const (
	outcomeSuccess     = "success"
	outcomeValidation  = "validation"
	outcomeDuplicate   = "duplicate"
	outcomeDDLError    = "ddl_error"
	outcomeInsertError = "insert_error"
)

// TenantService каталог арендаторов и их создание
type TenantService struct {
	sessions  session.Runner
	stores    repository.StoreFactory
	ddl       database.DBTX
	shared    string
	locker    lock.Locker
	lockTTL   time.Duration
	publisher migration.Publisher
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewTenantService создает TenantService.
// ddl выполняет CREATE SCHEMA вне транзакции сессии; sharedSchema недоступна
// арендаторам; publisher может быть nil.
func NewTenantService(
	sessions session.Runner,
	stores repository.StoreFactory,
	ddl database.DBTX,
	sharedSchema string,
	locker lock.Locker,
	lockTTL time.Duration,
	publisher migration.Publisher,
	m *metrics.Metrics,
	log logger.Logger,
) *TenantService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &TenantService{
		sessions:  sessions,
		stores:    stores,
		ddl:       ddl,
		shared:    sharedSchema,
		locker:    locker,
		lockTTL:   lockTTL,
		publisher: publisher,
		validator: validation.NewValidator(),
		metrics:   m,
		logger:    log,
	}
}

func duplicateSubdomain(subdomain string) *errors.Error {
	return errors.Newf(errors.ErrDuplicate, "Subdomain '%s' already registered.", subdomain)
}

func duplicateSchema(schemaName string) *errors.Error {
	return errors.Newf(errors.ErrDuplicate, "Schema name '%s' already exists or is planned.", schemaName)
}

func tenantNotFound(id int64) *errors.Error {
	return errors.Newf(errors.ErrNotFound, "Tenant with id %d not found", id)
}

// prepare проверяет и нормализует входные данные до любых обращений к базе
func (s *TenantService) prepare(in domain.TenantCreate) (*domain.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.validator.ValidateStringLength(name, "name", 3, 100); err != nil {
		return nil, errors.New(errors.ErrValidation, err.Error())
	}

	var subdomain *string
	if in.Subdomain != nil && strings.TrimSpace(*in.Subdomain) != "" {
		sub := strings.TrimSpace(*in.Subdomain)
		if err := s.validator.ValidateSubdomain(sub); err != nil {
			return nil, errors.New(errors.ErrValidation, err.Error())
		}
		subdomain = &sub
	}

	schemaName := in.SchemaName
	if strings.TrimSpace(schemaName) == "" {
		sub := ""
		if subdomain != nil {
			sub = *subdomain
		}
		schemaName = s.validator.DeriveSchemaName(name, sub)
	}
	schemaName = s.validator.NormalizeIdentifier(schemaName)
	if err := s.validator.ValidateTenantSchema(schemaName, s.shared); err != nil {
		return nil, errors.New(errors.ErrValidation, err.Error())
	}

	return &domain.Tenant{Name: name, SchemaName: schemaName, Subdomain: subdomain}, nil
}

// Create создает схему арендатора и запись каталога.
// Шаги выполняются в разных транзакциях: при сбое вставки после создания
// схемы остается схема без записи, что логируется как ALERT.
func (s *TenantService) Create(ctx context.Context, in domain.TenantCreate) (tenant *domain.Tenant, err error) {
	outcome := outcomeSuccess
	defer func() { s.metrics.ObserveProvisioning(outcome) }()

	tenant, err = s.prepare(in)
	if err != nil {
		outcome = outcomeValidation
		return nil, err
	}

	log := s.logger.With(logger.CtxField(ctx), logger.String("schema", tenant.SchemaName))

	err = s.sessions.Shared(ctx, func(ctx context.Context, db database.DBTX) error {
		tenants := s.stores(db).Tenants()
		if tenant.Subdomain != nil {
			existing, err := tenants.FindBySubdomain(ctx, *tenant.Subdomain)
			if err != nil {
				return err
			}
			if existing != nil {
				return duplicateSubdomain(*tenant.Subdomain)
			}
		}
		existing, err := tenants.FindBySchemaName(ctx, tenant.SchemaName)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateSchema(tenant.SchemaName)
		}
		return nil
	})
	if err != nil {
		if errors.CodeOf(err) == errors.ErrDuplicate {
			outcome = outcomeDuplicate
		}
		return nil, err
	}

	held, err := s.locker.Acquire(ctx, tenant.SchemaName, s.lockTTL)
	switch {
	case errors.CodeOf(err) == errors.ErrConflict:
		outcome = outcomeDuplicate
		return nil, duplicateSchema(tenant.SchemaName)
	case err != nil:
		log.Warn("Provisioning lock unavailable, relying on unique constraint", logger.Error(err))
	default:
		defer func() {
			if relErr := held.Release(context.WithoutCancel(ctx)); relErr != nil {
				log.Warn("Failed to release provisioning lock", logger.Error(relErr))
			}
		}()
	}

	created, err := s.stores(s.ddl).Schemas().EnsureSchema(ctx, tenant.SchemaName)
	if err != nil {
		outcome = outcomeDDLError
		log.Error("Failed to create tenant schema", logger.Error(err))
		return nil, errors.Wrap(err, errors.ErrInternal, "Failed to create schema '"+tenant.SchemaName+"'")
	}
	if created {
		log.Info("Tenant schema created")
	} else {
		log.Info("Tenant schema already exists, continuing")
	}

	err = s.sessions.Shared(ctx, func(ctx context.Context, db database.DBTX) error {
		return s.stores(db).Tenants().Create(ctx, tenant)
	})
	if err != nil {
		outcome = outcomeInsertError
		if errors.CodeOf(err) == errors.ErrDuplicate {
			outcome = outcomeDuplicate
		}
		if created {
			log.Error("ALERT: orphan schema", logger.String("name", tenant.Name), logger.Error(err))
		}
		return nil, err
	}

	log = log.With(logger.Int64("tenant_id", tenant.ID))
	log.Info("Tenant created", logger.String("name", tenant.Name))
	log.Warn("ACTION REQUIRED: run migrations for new schema")

	s.requestMigration(ctx, tenant, log)

	return tenant, nil
}

// requestMigration ставит миграцию схемы в очередь; сбой не влияет на результат создания
func (s *TenantService) requestMigration(ctx context.Context, tenant *domain.Tenant, log logger.Logger) {
	if s.publisher == nil {
		return
	}

	req := domain.MigrationRequest{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		SchemaName:  tenant.SchemaName,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishMigrationRequest(ctx, req); err != nil {
		log.Error("Failed to publish migration request", logger.String("request_id", req.ID), logger.Error(err))
		return
	}
	log.Info("Migration request published", logger.String("request_id", req.ID))
}

// Get возвращает арендатора по ID
func (s *TenantService) Get(ctx context.Context, id int64) (*domain.Tenant, error) {
	var tenant *domain.Tenant
	err := s.sessions.Shared(ctx, func(ctx context.Context, db database.DBTX) error {
		t, err := s.stores(db).Tenants().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return tenantNotFound(id)
		}
		tenant = t
		return nil
	})
	return tenant, err
}

// List возвращает страницу каталога
func (s *TenantService) List(ctx context.Context, page domain.Page) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	err := s.sessions.Shared(ctx, func(ctx context.Context, db database.DBTX) error {
		var err error
		tenants, err = s.stores(db).Tenants().List(ctx, page)
		return err
	})
	return tenants, err
}

// Update применяет частичное обновление. Имя схемы не меняется никогда.
// Строка каталога блокируется на время транзакции, поэтому параллельные
// обновления разных полей не затирают друг друга.
func (s *TenantService) Update(ctx context.Context, id int64, patch domain.TenantUpdate) (*domain.Tenant, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := s.validator.ValidateStringLength(name, "name", 3, 100); err != nil {
			return nil, errors.New(errors.ErrValidation, err.Error())
		}
		patch.Name = &name
	}

	var updated domain.Tenant
	err := s.sessions.Shared(ctx, func(ctx context.Context, db database.DBTX) error {
		tenants := s.stores(db).Tenants()

		existing, err := tenants.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return tenantNotFound(id)
		}

		updated = patch.Apply(*existing)
		if patch.Empty() {
			return nil
		}
		return tenants.Update(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tenant updated",
		logger.CtxField(ctx),
		logger.Int64("tenant_id", updated.ID),
		logger.Bool("is_active", updated.IsActive),
	)
	return &updated, nil
}

// ActiveSchemas реализует migration.SchemaSource
func (s *TenantService) ActiveSchemas(ctx context.Context) ([]string, error) {
	var schemas []string
	err := s.sessions.Shared(ctx, func(ctx context.Context, db database.DBTX) error {
		var err error
		schemas, err = s.stores(db).Tenants().ListActiveSchemas(ctx)
		return err
	})
	return schemas, err
}
