package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a cart line does not exist for the given
// user/product pair.
var ErrNotFound = errors.New("cart item not found")

// Line is a single product entry in a user's cart. Prices are not stored on
// the line; they are resolved from the catalog when the cart is displayed or
// checked out, so a stale cart never freezes an old price.
type Line struct {
	UserID    string
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// Repository defines persistence operations for user carts.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Line, error)
	// Put inserts the line or, when the product is already in the cart,
	// replaces its quantity.
	Put(ctx context.Context, line Line) error
	Remove(ctx context.Context, userID, productID string) error
	// Clear deletes every line in the user's cart.
	Clear(ctx context.Context, userID string) error
}
