package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinIdentifierLength минимальная длина имени схемы
	MinIdentifierLength = 3
	// MaxIdentifierLength максимальная длина идентификатора в PostgreSQL
	MaxIdentifierLength = 63
)

// reservedSchemas системные схемы PostgreSQL, недоступные арендаторам
var reservedSchemas = []string{"public", "information_schema"}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	subdomainPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonIdentChars     = regexp.MustCompile(`[^a-z0-9_]+`)
)

// Validator предоставляет общие функции валидации
type Validator struct{}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEnum проверяет значение на соответствие enum
func (v *Validator) ValidateEnum(value string, allowedValues []string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	for _, allowed := range allowedValues {
		if value == allowed {
			return nil
		}
	}

	return fmt.Errorf("invalid %s: %s, allowed values: %v", fieldName, value, allowedValues)
}

// ValidateStringLength проверяет длину строки в символах
func (v *Validator) ValidateStringLength(value, fieldName string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters, got: %d", fieldName, min, length)
	}
	if length > max {
		return fmt.Errorf("%s must not exceed %d characters, got: %d", fieldName, max, length)
	}
	return nil
}

// NormalizeIdentifier приводит идентификатор к нижнему регистру без пробелов по краям
func (v *Validator) NormalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ValidateIdentifier проверяет имя схемы по грамматике идентификатора SQL.
// Только значения, прошедшие эту проверку, попадают в DDL.
func (v *Validator) ValidateIdentifier(value, fieldName string) error {
	if err := v.ValidateStringLength(value, fieldName, MinIdentifierLength, MaxIdentifierLength); err != nil {
		return err
	}
	if !identifierPattern.MatchString(value) {
		return fmt.Errorf("%s must start with a letter or underscore and contain only letters, digits and underscores", fieldName)
	}
	if strings.HasPrefix(strings.ToLower(value), "pg_") {
		return fmt.Errorf("%s must not use the reserved pg_ prefix", fieldName)
	}
	return nil
}

// ValidateTenantSchema проверяет имя схемы арендатора: грамматика идентификатора,
// запрет системных схем и общей схемы shared
func (v *Validator) ValidateTenantSchema(value, shared string) error {
	if err := v.ValidateIdentifier(value, "schema_name"); err != nil {
		return err
	}
	name := strings.ToLower(value)
	if shared != "" && name == strings.ToLower(shared) {
		return fmt.Errorf("schema_name must not be the shared schema %q", shared)
	}
	for _, reserved := range reservedSchemas {
		if name == reserved {
			return fmt.Errorf("schema_name %q is reserved", value)
		}
	}
	return nil
}

// IsIdentifier сообщает, подходит ли значение под грамматику идентификатора
func (v *Validator) IsIdentifier(value string) bool {
	return v.ValidateIdentifier(value, "identifier") == nil
}

// ValidateSubdomain проверяет поддомен: строчные буквы и цифры, группы через одиночный дефис
func (v *Validator) ValidateSubdomain(value string) error {
	if err := v.ValidateStringLength(value, "subdomain", 3, 100); err != nil {
		return err
	}
	if !subdomainPattern.MatchString(value) {
		return fmt.Errorf("subdomain must contain lowercase letters and digits, optionally separated by single hyphens")
	}
	return nil
}

// ValidateEmail проверяет адрес электронной почты
func (v *Validator) ValidateEmail(value string) error {
	if value == "" {
		return fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return fmt.Errorf("invalid email: %s", value)
	}
	return nil
}

// DeriveSchemaName строит имя схемы из поддомена, а если его нет, из имени арендатора.
// Результат все равно должен пройти ValidateIdentifier.
func (v *Validator) DeriveSchemaName(name, subdomain string) string {
	source := subdomain
	if source == "" {
		source = name
	}

	derived := nonIdentChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(source)), "_")
	derived = strings.Trim(derived, "_")
	if derived != "" && derived[0] >= '0' && derived[0] <= '9' {
		derived = "t_" + derived
	}
	if len(derived) > MaxIdentifierLength {
		derived = strings.TrimRight(derived[:MaxIdentifierLength], "_")
	}
	return derived
}
