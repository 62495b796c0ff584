package domain

import (
	"time"
)

// Tenant запись каталога арендаторов в общей схеме.
// SchemaName всегда хранится в нижнем регистре и проходит проверку грамматики
// до любой DDL-операции.
type Tenant struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	SchemaName string    `json:"schema_name"`
	Subdomain  *string   `json:"subdomain"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// TenantCreate входные данные для создания арендатора
type TenantCreate struct {
	Name       string  `json:"name"`
	SchemaName string  `json:"schema_name,omitempty"`
	Subdomain  *string `json:"subdomain,omitempty"`
}

// TenantUpdate частичное обновление: nil означает "не менять"
type TenantUpdate struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Empty сообщает, что в патче нет ни одного поля
func (u TenantUpdate) Empty() bool {
	return u.Name == nil && u.IsActive == nil
}

// Apply применяет к копии арендатора только заданные поля
func (u TenantUpdate) Apply(t Tenant) Tenant {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.IsActive != nil {
		t.IsActive = *u.IsActive
	}
	return t
}

// User пользователь внутри схемы арендатора
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserCreate входные данные для создания пользователя
type UserCreate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product товар внутри схемы арендатора
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
}

// ProductCreate входные данные для создания товара
type ProductCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// Page параметры постраничной выборки
type Page struct {
	Skip  int
	Limit int
}

const (
	// DefaultPageLimit размер страницы по умолчанию
	DefaultPageLimit = 100
	// MaxPageLimit максимальный размер страницы
	MaxPageLimit = 1000
)

// MigrationRequest сообщение о том, что новой схеме нужны миграции
type MigrationRequest struct {
	ID          string    `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	SchemaName  string    `json:"schema_name"`
	RequestedAt time.Time `json:"requested_at"`
}
