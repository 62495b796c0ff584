package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"TenancyPlatform/pkg/database"
	pkg_errors "TenancyPlatform/pkg/errors"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/repository"
)

// UserRepository пользователи арендатора. Таблица не квалифицируется схемой:
// ее находит search_path сессии.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db database.DBTX) repository.UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет пользователя
func (r *UserRepository) Create(ctx context.Context, in domain.UserCreate) (*domain.User, error) {
	user := &domain.User{Name: in.Name, Email: in.Email}

	err := r.db.QueryRow(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`,
		in.Name, in.Email,
	).Scan(&user.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, pkg_errors.Wrap(err, pkg_errors.ErrDuplicate, fmt.Sprintf("Email '%s' already registered.", in.Email))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// FindByID возвращает пользователя или (nil, nil)
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

// List возвращает страницу пользователей
func (r *UserRepository) List(ctx context.Context, page domain.Page) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, email FROM users ORDER BY id OFFSET $1 LIMIT $2`,
		page.Skip, page.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[domain.User])
	if err != nil {
		return nil, fmt.Errorf("failed to collect users: %w", err)
	}
	return users, nil
}
