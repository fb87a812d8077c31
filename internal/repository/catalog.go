package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attarco/checkout/internal/domain/catalog"
)

// The selling price is the catalog price net of the item's own discount,
// computed in one place so every caller captures the same value.
const getActiveItemsSQL = `SELECT id, name,
		round(price - price * discount_pct / 100.0, 2) AS unit_price
	FROM catalog_items
	WHERE id = ANY($1) AND is_active = TRUE`

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetActiveItems returns the active items among ids, keyed by id. Inactive
// and unknown ids are absent from the result.
func (r *CatalogRepository) GetActiveItems(ctx context.Context, ids []string) (map[string]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getActiveItemsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query catalog items")
	}
	defer rows.Close()

	items := make(map[string]catalog.Item, len(ids))
	for rows.Next() {
		var it catalog.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.UnitPrice); err != nil {
			return nil, errors.Wrap(err, "scan catalog item")
		}
		it.Active = true
		items[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate catalog items")
	}
	return items, nil
}
