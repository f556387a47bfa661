package tournament

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for tournament operations.
var (
	// ErrNotFound is returned when a requested tournament does not exist.
	ErrNotFound = errors.New("tournament not found")
	// ErrAlreadyRegistered is returned when a user registers for the same
	// tournament twice.
	ErrAlreadyRegistered = errors.New("already registered")
)

// Tournament is an in-store or online event players can register for.
type Tournament struct {
	ID          string
	Name        string
	Description string
	Location    string
	Date        time.Time
}

// Ranking links a registered user to a tournament. Rank is zero until
// results are entered by an admin.
type Ranking struct {
	TournamentID string
	UserID       string
	Rank         int
}

// Repository defines persistence operations for tournaments and rankings.
type Repository interface {
	List(ctx context.Context) ([]Tournament, error)
	GetByID(ctx context.Context, id string) (*Tournament, error)
	Create(ctx context.Context, t *Tournament) error
	Update(ctx context.Context, t *Tournament) error
	Delete(ctx context.Context, id string) error

	ListRankings(ctx context.Context, tournamentID string) ([]Ranking, error)
	Register(ctx context.Context, tournamentID, userID string) error
	Unregister(ctx context.Context, tournamentID, userID string) error
	SetRank(ctx context.Context, tournamentID, userID string, rank int) error
}
