package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"TenancyPlatform/pkg/config"
	"TenancyPlatform/pkg/errors"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/metrics"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/tenantctx"
)

// Исходы разрешения арендатора
const (
	ResolutionExempt    = "exempt"
	ResolutionResolved  = "resolved"
	ResolutionMissing   = "missing_header"
	ResolutionMalformed = "malformed_header"
	ResolutionNotFound  = "not_found"
	ResolutionError     = "lookup_error"
)

// TenantFinder ищет активного арендатора в общей схеме.
// Реализация не должна зависеть от search_path соединения.
type TenantFinder interface {
	FindActiveByID(ctx context.Context, id int64) (*domain.Tenant, error)
}

// TenantResolver определяет арендатора запроса по заголовку
type TenantResolver struct {
	finder         TenantFinder
	header         string
	sharedSchema   string
	exemptPaths    map[string]struct{}
	exemptPrefixes []string
	metrics        *metrics.Metrics
	logger         logger.Logger
}

// NewTenantResolver создает TenantResolver
func NewTenantResolver(finder TenantFinder, cfg config.TenancyConfig, m *metrics.Metrics, log logger.Logger) *TenantResolver {
	paths := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		paths[p] = struct{}{}
	}
	return &TenantResolver{
		finder:         finder,
		header:         cfg.TenantHeader,
		sharedSchema:   cfg.SharedSchema,
		exemptPaths:    paths,
		exemptPrefixes: cfg.ExemptPrefixes,
		metrics:        m,
		logger:         log,
	}
}

// IsExempt сообщает, обслуживается ли путь без арендатора
func (tr *TenantResolver) IsExempt(path string) bool {
	if _, ok := tr.exemptPaths[path]; ok {
		return true
	}
	for _, prefix := range tr.exemptPrefixes {
		base := strings.TrimSuffix(prefix, "/")
		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}
	return false
}

// Middleware прикрепляет tenantctx.Context или отклоняет запрос до обработчика
func (tr *TenantResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if tr.IsExempt(r.URL.Path) {
			tr.metrics.ObserveResolution(ResolutionExempt)
			ctx = tenantctx.With(ctx, tenantctx.Context{SchemaName: tr.sharedSchema})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		raw := strings.TrimSpace(r.Header.Get(tr.header))
		if raw == "" {
			tr.metrics.ObserveResolution(ResolutionMissing)
			errors.WriteHTTP(w, errors.Newf(errors.ErrForbidden, "Forbidden: Missing %s header", tr.header))
			return
		}

		// Заголовок без числа не может указывать на арендатора: запрос к базе не нужен
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			tr.metrics.ObserveResolution(ResolutionMalformed)
			tr.logger.Warn("Malformed tenant header", logger.CtxField(ctx), logger.String("value", raw))
			errors.WriteHTTP(w, errors.Newf(errors.ErrNotFound, "Tenant<id:%s> not found", raw))
			return
		}

		spanCtx, span := tr.metrics.StartSpan(ctx, "tenant.resolve", attribute.Int64("tenant.id", id))
		tenant, err := tr.finder.FindActiveByID(spanCtx, id)
		span.End()

		if err != nil {
			tr.metrics.ObserveResolution(ResolutionError)
			tr.logger.Error("Error querying tenant",
				logger.CtxField(ctx),
				logger.Int64("tenant_id", id),
				logger.Error(err),
			)
			errors.WriteHTTP(w, errors.Newf(errors.ErrInternal, "Internal Server Error: Could not query tenant<id:%d>", id))
			return
		}
		if tenant == nil {
			tr.metrics.ObserveResolution(ResolutionNotFound)
			tr.logger.Warn("Tenant not found", logger.CtxField(ctx), logger.Int64("tenant_id", id))
			errors.WriteHTTP(w, errors.Newf(errors.ErrNotFound, "Tenant<id:%d> not found", id))
			return
		}

		tr.metrics.ObserveResolution(ResolutionResolved)
		ctx = tenantctx.With(ctx, tenantctx.Context{SchemaName: tenant.SchemaName, Tenant: tenant})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantKey ключ арендатора для лимитов; для маршрутов без арендатора используется IP
func TenantKey(r *http.Request) string {
	if tc, ok := tenantctx.From(r.Context()); ok && tc.HasTenant() {
		return fmt.Sprintf("tenant:%d", tc.Tenant.ID)
	}
	return "ip:" + clientIP(r)
}
