package reward

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for reward operations.
var (
	// ErrNotFound is returned when a requested reward definition does not exist.
	ErrNotFound = errors.New("reward not found")
	// ErrAlreadyClaimed is returned when a (user, reward) pair is claimed twice.
	ErrAlreadyClaimed = errors.New("reward already claimed")
)

// Definition describes a reward users can unlock with loyalty points.
// Extra rewards are available to subscribers only.
type Definition struct {
	ID             string
	Name           string
	Description    string
	PointsRequired int64
	Extra          bool
}

// Claim records that a user has unlocked a reward. A given (UserID, RewardID)
// pair exists at most once.
type Claim struct {
	UserID    string
	RewardID  string
	ClaimedAt time.Time
}

// Repository defines persistence operations for reward definitions and claims.
type Repository interface {
	ListDefinitions(ctx context.Context) ([]Definition, error)
	GetDefinition(ctx context.Context, id string) (*Definition, error)
	GetDefinitions(ctx context.Context, ids []string) ([]Definition, error)
	CreateDefinition(ctx context.Context, d *Definition) error
	UpdateDefinition(ctx context.Context, d *Definition) error
	DeleteDefinition(ctx context.Context, id string) error

	ListClaims(ctx context.Context, userID string) ([]Claim, error)
	GetClaim(ctx context.Context, userID, rewardID string) (*Claim, error)
	Claim(ctx context.Context, userID, rewardID string) error
	Unclaim(ctx context.Context, userID, rewardID string) error
}
