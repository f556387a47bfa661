package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the lifecycle state of an order. Cancellation is permitted only
// while an order is still Processing.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Order represents a placed order. TotalAmount is immutable once the order
// is created; cancellation reads it back to reverse the earned points.
type Order struct {
	ID          string
	UserID      string
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	Status      Status
	Location    string
	FirstName   string
	LastName    string
}

// Line is a single product entry within an order, priced at purchase time.
type Line struct {
	OrderID   string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	// CreateWithLines persists the order and all of its lines in a single
	// transaction, in the given line order. Either everything is written or
	// nothing is.
	CreateWithLines(ctx context.Context, o *Order, lines []Line) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	ListLines(ctx context.Context, orderID string) ([]Line, error)
	ListAllLines(ctx context.Context) ([]Line, error)
	// Delete removes the order; its lines are removed with it.
	Delete(ctx context.Context, id string) error
}
