package tenantctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"TenancyPlatform/services/tenant-service/internal/domain"
)

func TestWithAndFrom(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)

	shared := With(context.Background(), Context{SchemaName: "public"})
	tc, ok := From(shared)
	assert.True(t, ok)
	assert.Equal(t, "public", tc.SchemaName)
	assert.False(t, tc.HasTenant())

	tenant := &domain.Tenant{ID: 7, SchemaName: "acme"}
	scoped := With(shared, Context{SchemaName: "acme", Tenant: tenant})
	tc, _ = From(scoped)
	assert.True(t, tc.HasTenant())
	assert.Equal(t, int64(7), tc.Tenant.ID)

	// родительский контекст не меняется
	tc, _ = From(shared)
	assert.Equal(t, "public", tc.SchemaName)
}
