package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sawamura722/cardcapital/internal/domain/reward"
)

var _ reward.Repository = (*RewardRepository)(nil)

// RewardRepository implements reward.Repository backed by PostgreSQL.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository returns a RewardRepository that uses the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// ListDefinitions returns all reward definitions ordered by point threshold.
func (r *RewardRepository) ListDefinitions(ctx context.Context) ([]reward.Definition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, points_required, extra
		 FROM rewards ORDER BY points_required, id`)
	if err != nil {
		return nil, fmt.Errorf("listing rewards: %w", err)
	}
	return collectDefinitions(rows)
}

// GetDefinition returns one reward definition. It returns reward.ErrNotFound
// when no matching reward exists.
func (r *RewardRepository) GetDefinition(ctx context.Context, id string) (*reward.Definition, error) {
	var d reward.Definition
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, points_required, extra FROM rewards WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Description, &d.PointsRequired, &d.Extra)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrNotFound
		}
		return nil, fmt.Errorf("getting reward %q: %w", id, err)
	}
	return &d, nil
}

// GetDefinitions returns the definitions matching the given ids in a single
// query. Missing ids are simply absent from the result.
func (r *RewardRepository) GetDefinitions(ctx context.Context, ids []string) ([]reward.Definition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, points_required, extra FROM rewards WHERE id = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("getting rewards by ids: %w", err)
	}
	return collectDefinitions(rows)
}

// CreateDefinition inserts a new reward definition.
func (r *RewardRepository) CreateDefinition(ctx context.Context, d *reward.Definition) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rewards (id, name, description, points_required, extra)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.Name, d.Description, d.PointsRequired, d.Extra)
	if err != nil {
		return fmt.Errorf("creating reward %q: %w", d.ID, err)
	}
	return nil
}

// UpsertDefinition inserts or refreshes a reward definition by id. Used by
// seeding.
func (r *RewardRepository) UpsertDefinition(ctx context.Context, d *reward.Definition) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rewards (id, name, description, points_required, extra)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, description = EXCLUDED.description,
		     points_required = EXCLUDED.points_required, extra = EXCLUDED.extra`,
		d.ID, d.Name, d.Description, d.PointsRequired, d.Extra)
	if err != nil {
		return fmt.Errorf("upserting reward %q: %w", d.ID, err)
	}
	return nil
}

// UpdateDefinition rewrites all mutable fields of a reward definition.
func (r *RewardRepository) UpdateDefinition(ctx context.Context, d *reward.Definition) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rewards
		 SET name = $2, description = $3, points_required = $4, extra = $5
		 WHERE id = $1`,
		d.ID, d.Name, d.Description, d.PointsRequired, d.Extra)
	if err != nil {
		return fmt.Errorf("updating reward %q: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return reward.ErrNotFound
	}
	return nil
}

// DeleteDefinition removes a reward definition and, via cascade, its claims.
func (r *RewardRepository) DeleteDefinition(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting reward %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return reward.ErrNotFound
	}
	return nil
}

// ListClaims returns the user's claims in claim order.
func (r *RewardRepository) ListClaims(ctx context.Context, userID string) ([]reward.Claim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, reward_id, claimed_at
		 FROM claimed_rewards WHERE user_id = $1 ORDER BY claimed_at, reward_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing claims for %q: %w", userID, err)
	}
	defer rows.Close()

	var out []reward.Claim
	for rows.Next() {
		var c reward.Claim
		if err := rows.Scan(&c.UserID, &c.RewardID, &c.ClaimedAt); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetClaim returns one claim, or reward.ErrNotFound.
func (r *RewardRepository) GetClaim(ctx context.Context, userID, rewardID string) (*reward.Claim, error) {
	var c reward.Claim
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, reward_id, claimed_at
		 FROM claimed_rewards WHERE user_id = $1 AND reward_id = $2`,
		userID, rewardID).
		Scan(&c.UserID, &c.RewardID, &c.ClaimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrNotFound
		}
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return &c, nil
}

// Claim records that the user unlocked the reward. The primary key enforces
// the at-most-once invariant; a duplicate returns reward.ErrAlreadyClaimed.
func (r *RewardRepository) Claim(ctx context.Context, userID, rewardID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO claimed_rewards (user_id, reward_id) VALUES ($1, $2)`,
		userID, rewardID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return reward.ErrAlreadyClaimed
		}
		return fmt.Errorf("claiming reward %q for %q: %w", rewardID, userID, err)
	}
	return nil
}

// Unclaim revokes a claim.
func (r *RewardRepository) Unclaim(ctx context.Context, userID, rewardID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM claimed_rewards WHERE user_id = $1 AND reward_id = $2`,
		userID, rewardID)
	if err != nil {
		return fmt.Errorf("unclaiming reward %q for %q: %w", rewardID, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return reward.ErrNotFound
	}
	return nil
}

func collectDefinitions(rows pgx.Rows) ([]reward.Definition, error) {
	defer rows.Close()

	var out []reward.Definition
	for rows.Next() {
		var d reward.Definition
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.PointsRequired, &d.Extra); err != nil {
			return nil, fmt.Errorf("scanning reward: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
