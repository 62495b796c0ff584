package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"TenancyPlatform/pkg/database"
	"TenancyPlatform/services/tenant-service/internal/domain"
	"TenancyPlatform/services/tenant-service/internal/repository"
)

// ProductRepository товары арендатора
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository создает новый экземпляр ProductRepository
func NewProductRepository(db database.DBTX) repository.ProductRepository {
	return &ProductRepository{db: db}
}

// Create сохраняет товар
func (r *ProductRepository) Create(ctx context.Context, in domain.ProductCreate) (*domain.Product, error) {
	p := &domain.Product{Name: in.Name, Description: in.Description, Price: in.Price}

	err := r.db.QueryRow(ctx,
		`INSERT INTO products (name, description, price) VALUES ($1, $2, $3) RETURNING id, price::float8`,
		in.Name, in.Description, in.Price,
	).Scan(&p.ID, &p.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

// FindByID возвращает товар или (nil, nil)
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, price::float8 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}
	return &p, nil
}

// List возвращает страницу товаров
func (r *ProductRepository) List(ctx context.Context, page domain.Page) ([]*domain.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, price::float8 FROM products ORDER BY id OFFSET $1 LIMIT $2`,
		page.Skip, page.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[domain.Product])
	if err != nil {
		return nil, fmt.Errorf("failed to collect products: %w", err)
	}
	return products, nil
}
