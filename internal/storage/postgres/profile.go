package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sawamura722/cardcapital/internal/domain/profile"
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository backed by PostgreSQL.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a ProfileRepository that uses the given pool.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// GetByID returns a single profile. It returns profile.ErrNotFound when no
// matching profile exists.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	var p profile.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, point, subscribed
		 FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Point, &p.Subscribed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("getting profile %q: %w", id, err)
	}
	return &p, nil
}

// List returns all profiles.
func (r *ProfileRepository) List(ctx context.Context) ([]profile.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, first_name, last_name, email, point, subscribed FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		var p profile.Profile
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Point, &p.Subscribed); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert inserts a profile or refreshes its name and email, leaving points
// and the subscription flag untouched for existing rows. Used by seeding.
func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, first_name, last_name, email, point, subscribed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		     email = EXCLUDED.email`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Point, p.Subscribed)
	if err != nil {
		return fmt.Errorf("upserting profile %q: %w", p.ID, err)
	}
	return nil
}

// Update rewrites the profile's name and email fields. Points and the
// subscription flag have dedicated operations.
func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET first_name = $2, last_name = $3, email = $4 WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Email)
	if err != nil {
		return fmt.Errorf("updating profile %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}

// SetSubscribed flips the subscription flag.
func (r *ProfileRepository) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET subscribed = $2 WHERE id = $1`, id, subscribed)
	if err != nil {
		return fmt.Errorf("setting subscription for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}

// IncrementPoints atomically adds delta to the stored balance.
func (r *ProfileRepository) IncrementPoints(ctx context.Context, id string, delta int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET point = point + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("incrementing points for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}

// DecrementPoints atomically subtracts delta from the stored balance,
// flooring at zero.
func (r *ProfileRepository) DecrementPoints(ctx context.Context, id string, delta int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET point = GREATEST(point - $2, 0) WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("decrementing points for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}
