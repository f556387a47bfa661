package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sawamura722/cardcapital/internal/domain/tournament"
)

var _ tournament.Repository = (*TournamentRepository)(nil)

// TournamentRepository implements tournament.Repository backed by PostgreSQL.
type TournamentRepository struct {
	pool *pgxpool.Pool
}

// NewTournamentRepository returns a TournamentRepository that uses the given pool.
func NewTournamentRepository(pool *pgxpool.Pool) *TournamentRepository {
	return &TournamentRepository{pool: pool}
}

// List returns all tournaments, soonest first.
func (r *TournamentRepository) List(ctx context.Context) ([]tournament.Tournament, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, location, date FROM tournaments ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("listing tournaments: %w", err)
	}
	defer rows.Close()

	var out []tournament.Tournament
	for rows.Next() {
		var t tournament.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Location, &t.Date); err != nil {
			return nil, fmt.Errorf("scanning tournament: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID returns a single tournament, or tournament.ErrNotFound.
func (r *TournamentRepository) GetByID(ctx context.Context, id string) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, location, date FROM tournaments WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.Location, &t.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tournament.ErrNotFound
		}
		return nil, fmt.Errorf("getting tournament %q: %w", id, err)
	}
	return &t, nil
}

// Create inserts a new tournament.
func (r *TournamentRepository) Create(ctx context.Context, t *tournament.Tournament) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tournaments (id, name, description, location, date)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, t.Description, t.Location, t.Date)
	if err != nil {
		return fmt.Errorf("creating tournament %q: %w", t.ID, err)
	}
	return nil
}

// Update rewrites all mutable fields of a tournament.
func (r *TournamentRepository) Update(ctx context.Context, t *tournament.Tournament) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tournaments
		 SET name = $2, description = $3, location = $4, date = $5
		 WHERE id = $1`,
		t.ID, t.Name, t.Description, t.Location, t.Date)
	if err != nil {
		return fmt.Errorf("updating tournament %q: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return tournament.ErrNotFound
	}
	return nil
}

// Delete removes a tournament and, via cascade, its rankings.
func (r *TournamentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting tournament %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return tournament.ErrNotFound
	}
	return nil
}

// ListRankings returns the tournament's rankings, ranked entries first.
func (r *TournamentRepository) ListRankings(ctx context.Context, tournamentID string) ([]tournament.Ranking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tournament_id, user_id, rank
		 FROM tournament_rankings WHERE tournament_id = $1
		 ORDER BY CASE WHEN rank = 0 THEN 1 ELSE 0 END, rank, user_id`,
		tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing rankings for %q: %w", tournamentID, err)
	}
	defer rows.Close()

	var out []tournament.Ranking
	for rows.Next() {
		var rk tournament.Ranking
		if err := rows.Scan(&rk.TournamentID, &rk.UserID, &rk.Rank); err != nil {
			return nil, fmt.Errorf("scanning ranking: %w", err)
		}
		out = append(out, rk)
	}
	return out, rows.Err()
}

// Register adds a user to the tournament. A duplicate registration returns
// tournament.ErrAlreadyRegistered.
func (r *TournamentRepository) Register(ctx context.Context, tournamentID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tournament_rankings (tournament_id, user_id) VALUES ($1, $2)`,
		tournamentID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return tournament.ErrAlreadyRegistered
		}
		return fmt.Errorf("registering %q for tournament %q: %w", userID, tournamentID, err)
	}
	return nil
}

// Unregister removes a user's registration.
func (r *TournamentRepository) Unregister(ctx context.Context, tournamentID, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM tournament_rankings WHERE tournament_id = $1 AND user_id = $2`,
		tournamentID, userID)
	if err != nil {
		return fmt.Errorf("unregistering %q from tournament %q: %w", userID, tournamentID, err)
	}
	if tag.RowsAffected() == 0 {
		return tournament.ErrNotFound
	}
	return nil
}

// SetRank records a user's final placement.
func (r *TournamentRepository) SetRank(ctx context.Context, tournamentID, userID string, rank int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tournament_rankings SET rank = $3
		 WHERE tournament_id = $1 AND user_id = $2`,
		tournamentID, userID, rank)
	if err != nil {
		return fmt.Errorf("setting rank for %q in tournament %q: %w", userID, tournamentID, err)
	}
	if tag.RowsAffected() == 0 {
		return tournament.ErrNotFound
	}
	return nil
}
