package database

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// QuoteIdentifier экранирует идентификатор для подстановки в DDL.
// Вызывать только для значений, уже прошедших проверку грамматики.
func QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QualifiedTable возвращает имя таблицы, квалифицированное схемой
func QualifiedTable(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// SearchPath собирает значение search_path из схем без повторов
func SearchPath(schemas ...string) string {
	seen := make(map[string]struct{}, len(schemas))
	parts := make([]string, 0, len(schemas))
	for _, s := range schemas {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		parts = append(parts, QuoteIdentifier(s))
	}
	return strings.Join(parts, ", ")
}
