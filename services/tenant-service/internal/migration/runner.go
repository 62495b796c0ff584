// Package migration применяет миграции к общей схеме и схемам арендаторов.
package migration

import (
	"context"
)

// ModelSet набор моделей, к которому относится миграция
type ModelSet string

const (
	// ModelSetShared таблицы общей схемы (каталог арендаторов)
	ModelSetShared ModelSet = "shared"
	// ModelSetTenant доменные таблицы схемы арендатора
	ModelSetTenant ModelSet = "tenant"
)

// Runner применяет ожидающие миграции к одной схеме
type Runner interface {
	ApplyShared(ctx context.Context) error
	ApplyTenant(ctx context.Context, schemaName string) error
	// ModelSetFor определяет набор моделей для целевой схемы
	ModelSetFor(schemaName string) ModelSet
}

// SchemaSource перечисляет схемы активных арендаторов
type SchemaSource interface {
	ActiveSchemas(ctx context.Context) ([]string, error)
}
