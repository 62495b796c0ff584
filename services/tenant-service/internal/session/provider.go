// Package session выдает запросу одну транзакцию, привязанную к схеме арендатора.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"TenancyPlatform/pkg/database"
	pkg_errors "TenancyPlatform/pkg/errors"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/pkg/validation"
	"TenancyPlatform/services/tenant-service/internal/tenantctx"
)

// Виды сессий
const (
	KindTenant = "tenant"
	KindShared = "shared"
)

// setSearchPath задает search_path только до конца транзакции (аналог SET LOCAL),
// поэтому соединение, вернувшееся в пул, не сохраняет схему предыдущего запроса.
const setSearchPath = `SELECT set_config('search_path', $1, true)`

// Beginner источник транзакций; *pgxpool.Pool удовлетворяет интерфейсу
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Func работа, выполняемая внутри сессии
type Func func(ctx context.Context, db database.DBTX) error

// Runner интерфейс для сервисов
type Runner interface {
	// Tenant выполняет fn в сессии схемы арендатора из контекста запроса
	Tenant(ctx context.Context, fn Func) error
	// Shared выполняет fn в сессии, видящей только общую схему
	Shared(ctx context.Context, fn Func) error
}

// Provider реализация Runner поверх пула pgx
type Provider struct {
	db           Beginner
	sharedSchema string
	validator    *validation.Validator
	metrics      *metrics.Metrics
	logger       logger.Logger
}

// NewProvider создает Provider
func NewProvider(db Beginner, sharedSchema string, m *metrics.Metrics, log logger.Logger) *Provider {
	return &Provider{
		db:           db,
		sharedSchema: sharedSchema,
		validator:    validation.NewValidator(),
		metrics:      m,
		logger:       log,
	}
}

// ErrNoTenantContext запрос дошел до сессии арендатора без разрешенного арендатора
func ErrNoTenantContext() *pkg_errors.Error {
	return pkg_errors.New(pkg_errors.ErrBadRequest, "Tenant context not available.")
}

// Tenant выполняет fn в транзакции с search_path = [схема арендатора, общая схема]
func (p *Provider) Tenant(ctx context.Context, fn Func) error {
	tc, ok := tenantctx.From(ctx)
	if !ok || tc.SchemaName == "" || !tc.HasTenant() {
		return ErrNoTenantContext()
	}
	return p.run(ctx, KindTenant, []string{tc.SchemaName, p.sharedSchema}, fn)
}

// Shared выполняет fn в транзакции с search_path = [общая схема]
func (p *Provider) Shared(ctx context.Context, fn Func) error {
	return p.run(ctx, KindShared, []string{p.sharedSchema}, fn)
}

func (p *Provider) run(ctx context.Context, kind string, schemas []string, fn Func) (err error) {
	for _, s := range schemas {
		if !p.validator.IsIdentifier(s) {
			return pkg_errors.Newf(pkg_errors.ErrInternal, "refusing to bind session to invalid schema %q", s)
		}
	}

	ctx, span := p.metrics.StartSpan(ctx, "session."+kind, attribute.StringSlice("db.search_path", schemas))
	start := time.Now()
	outcome := "commit"
	defer func() {
		p.metrics.ObserveSession(kind, outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		outcome = "begin_error"
		return pkg_errors.Wrap(err, pkg_errors.ErrInternal, "failed to acquire database session")
	}

	// Откат после отмены запроса должен дойти до сервера
	rollback := func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Warn("Failed to roll back session",
				logger.CtxField(ctx),
				logger.String("kind", kind),
				logger.Error(rbErr),
			)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			rollback()
			panic(r)
		}
	}()

	if _, err = tx.Exec(ctx, setSearchPath, database.SearchPath(schemas...)); err != nil {
		outcome = "bind_error"
		rollback()
		return pkg_errors.Wrap(err, pkg_errors.ErrInternal, "failed to bind session search_path")
	}

	if err = fn(ctx, tx); err != nil {
		outcome = "rollback"
		rollback()
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		outcome = "commit_error"
		rollback()
		return pkg_errors.Wrap(err, pkg_errors.ErrInternal, "failed to commit database session")
	}

	return nil
}
