package profile

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Profile holds the shop-facing state of a user account: loyalty points and
// the subscription flag that gates subscriber-only rewards.
type Profile struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	Point      int64
	Subscribed bool
}

// Repository defines persistence operations for user profiles.
//
// IncrementPoints and DecrementPoints must be atomic updates on the stored
// balance (single UPDATE statement), never a client-side read-modify-write,
// so concurrent checkouts cannot lose accruals.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Update(ctx context.Context, p *Profile) error
	SetSubscribed(ctx context.Context, id string, subscribed bool) error
	IncrementPoints(ctx context.Context, id string, delta int64) error
	// DecrementPoints subtracts delta from the balance, flooring at zero.
	DecrementPoints(ctx context.Context, id string, delta int64) error
}
