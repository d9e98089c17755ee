package history

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/maltedev/price-monitor/internal/database"
	"github.com/maltedev/price-monitor/internal/models"
)

const uniqueViolation = "23505"

// Postgres stores history in the price_history table.
type Postgres struct {
	db *database.DB
}

func NewPostgres(db *database.DB) *Postgres {
	return &Postgres{db: db}
}

// Append inserts only when no record at or after rec.ObservedAt exists, so
// concurrent writers cannot break the ordering.
func (p *Postgres) Append(ctx context.Context, rec models.PriceRecord) error {
	query := `
		INSERT INTO price_history (product_id, observed_at, price, currency, in_stock)
		SELECT $1::uuid, $2::timestamptz, $3::numeric, $4::text, $5::boolean
		WHERE NOT EXISTS (
			SELECT 1 FROM price_history
			WHERE product_id = $1 AND observed_at >= $2
		)`

	tag, err := p.db.Exec(ctx, query,
		rec.ProductID, rec.ObservedAt, rec.Price, rec.Currency, rec.InStock)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateRecord
	}
	if err != nil {
		return storeError("insert price record", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateRecord
	}
	return nil
}

func (p *Postgres) Latest(ctx context.Context, productID uuid.UUID) (*models.PriceRecord, error) {
	query := `
		SELECT product_id, observed_at, price, currency, in_stock
		FROM price_history
		WHERE product_id = $1
		ORDER BY observed_at DESC
		LIMIT 1`

	var rec models.PriceRecord
	err := p.db.QueryRow(ctx, query, productID).Scan(
		&rec.ProductID, &rec.ObservedAt, &rec.Price, &rec.Currency, &rec.InStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get latest price", err)
	}
	rec.ObservedAt = rec.ObservedAt.UTC()
	return &rec, nil
}

func (p *Postgres) Recent(ctx context.Context, productID uuid.UUID, n int) ([]models.PriceRecord, error) {
	if n <= 0 {
		n = DefaultLimit
	}

	query := `
		SELECT product_id, observed_at, price, currency, in_stock
		FROM (
			SELECT product_id, observed_at, price, currency, in_stock
			FROM price_history
			WHERE product_id = $1
			ORDER BY observed_at DESC
			LIMIT $2
		) recent
		ORDER BY observed_at ASC`

	rows, err := p.db.Query(ctx, query, productID, n)
	if err != nil {
		return nil, storeError("query price history", err)
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var rec models.PriceRecord
		if err := rows.Scan(&rec.ProductID, &rec.ObservedAt, &rec.Price, &rec.Currency, &rec.InStock); err != nil {
			return nil, storeError("scan price record", err)
		}
		rec.ObservedAt = rec.ObservedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate price history", err)
	}

	return records, nil
}
