// Package tenantctx хранит контекст арендатора, разрешенный для одного запроса.
package tenantctx

import (
	"context"

	"TenancyPlatform/services/tenant-service/internal/domain"
)

// Context результат разрешения арендатора.
// Для маршрутов без арендатора Tenant равен nil, а SchemaName указывает на общую схему.
type Context struct {
	SchemaName string
	Tenant     *domain.Tenant
}

// HasTenant сообщает, что запрос привязан к конкретному арендатору
func (c Context) HasTenant() bool {
	return c.Tenant != nil
}

type contextKey struct{}

// With возвращает дочерний контекст с прикрепленным арендатором
func With(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// From извлекает контекст арендатора
func From(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}
