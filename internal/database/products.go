package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/price-monitor/internal/models"
	"github.com/maltedev/price-monitor/internal/registry"
	"github.com/maltedev/price-monitor/internal/stores"
)

// ProductRepository stores tracked products in the products table.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, url, name, store, active, created_at`

// Add inserts the product, or reactivates and returns the existing row for
// the same URL.
func (r *ProductRepository) Add(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (url) DO UPDATE SET active = TRUE
		RETURNING ` + productColumns

	row := r.db.pool.QueryRow(ctx, query, p.ID, p.URL, p.Name, string(p.Store), p.CreatedAt)
	stored, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert product: %w", err)
	}
	return stored, nil
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE active ORDER BY created_at ASC`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// Remove deactivates the product. History is kept.
func (r *ProductRepository) Remove(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.pool.Exec(ctx,
		`UPDATE products SET active = FALSE WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("failed to remove product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	result, err := r.db.pool.Exec(ctx, `UPDATE products SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// Count returns the number of active products.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE active`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var (
		p     models.Product
		store string
	)
	if err := row.Scan(&p.ID, &p.URL, &p.Name, &store, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Store = stores.ID(store)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
