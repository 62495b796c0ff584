// Package migrations содержит SQL-миграции двух наборов моделей:
// shared для общей схемы и tenant для схем арендаторов.
package migrations

import "embed"

// FS встроенные файлы миграций
//
//go:embed shared/*.sql tenant/*.sql
var FS embed.FS

const (
	// SharedDir каталог миграций общей схемы
	SharedDir = "shared"
	// TenantDir каталог миграций схем арендаторов
	TenantDir = "tenant"
)
