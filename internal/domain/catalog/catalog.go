// Package catalog defines the read-only view of the product catalog the
// checkout pipeline consults at order-creation time.
package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when an item does not exist or is inactive.
var ErrItemNotFound = errors.New("catalog item not found")

// ItemNotFoundError carries the offending item ID for caller-facing messages.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found or inactive", e.ItemID)
}

// Unwrap lets errors.Is match the package sentinel.
func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

// Item is a purchasable catalog entry. UnitPrice is the discounted selling
// price, already net of the item's own catalog discount; it is the price
// captured onto order lines.
type Item struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Active    bool
}

// Repository provides read access to active catalog items.
type Repository interface {
	// GetActiveItems returns the active items for the given IDs. Missing or
	// inactive IDs are simply absent from the result; callers decide whether
	// that aborts the operation.
	GetActiveItems(ctx context.Context, ids []string) (map[string]Item, error)
}
