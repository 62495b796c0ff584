package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Коды SQLSTATE, на которые опирается разбор ошибок
const (
	CodeUniqueViolation = "23505"
	CodeDuplicateSchema = "42P06"
	CodeUndefinedTable  = "42P01"
	CodeInvalidSchema   = "3F000"
)

// PgErrorCode возвращает SQLSTATE ошибки PostgreSQL или пустую строку
func PgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation сообщает о нарушении ограничения уникальности
func IsUniqueViolation(err error) bool {
	return PgErrorCode(err) == CodeUniqueViolation
}

// ConstraintName возвращает имя нарушенного ограничения
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
