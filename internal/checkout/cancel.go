package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/sawamura722/cardcapital/internal/domain/order"
	"github.com/sawamura722/cardcapital/internal/domain/reward"
	"github.com/sawamura722/cardcapital/internal/notify"
)

// CancelRequest holds the input for cancelling an order. Confirmed models the
// user-facing confirmation gate; the workflow refuses to run without it.
type CancelRequest struct {
	UserID    string
	OrderID   string
	Confirmed bool
}

// CancelResult holds the outcome of a successful cancellation. LostRewards
// names the claimed rewards revoked because the reduced balance no longer
// covers them, in claim order.
type CancelResult struct {
	OrderID        string
	PointsDeducted int64
	Balance        int64
	LostRewards    []string
}

// Cancel cancels a Processing order, claws back the points it earned, and
// revokes any claimed rewards the user no longer qualifies for.
//
// The deduction mirrors the accrual exactly: floor(TotalAmount/100), computed
// from the order's immutable total. As with checkout there is no rollback;
// an error part-way through returns a single failure and leaves already
// committed steps in place.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	if !req.Confirmed {
		return nil, ErrNotConfirmed
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if o.UserID != req.UserID {
		return nil, ErrNotOwned
	}
	if o.Status != order.StatusProcessing {
		return nil, ErrNotCancellable
	}

	// Lines are removed with the order by the storage layer.
	if err := s.orders.Delete(ctx, req.OrderID); err != nil {
		return nil, errors.Wrap(err, "delete order")
	}

	deducted := PointsFor(o.TotalAmount)
	if err := s.profiles.DecrementPoints(ctx, req.UserID, deducted); err != nil {
		return nil, errors.Wrap(err, "deduct points")
	}

	claims, err := s.rewards.ListClaims(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list claimed rewards")
	}
	prof, err := s.profiles.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "read profile")
	}

	lost, err := s.reconcileClaims(ctx, claims, prof.Point)
	if err != nil {
		return nil, errors.Wrap(err, "reconcile rewards")
	}

	// Cancellation notice first, then one notice per lost reward.
	s.publish(ctx, notify.Notice{
		Kind:    notify.KindOrderCancelled,
		UserID:  req.UserID,
		OrderID: req.OrderID,
		Message: "Order has been cancelled and points deducted.",
	})
	for _, name := range lost {
		s.publish(ctx, notify.Notice{
			Kind:    notify.KindRewardLost,
			UserID:  req.UserID,
			Reward:  name,
			Message: fmt.Sprintf("You lost the reward: %s.", name),
		})
	}

	return &CancelResult{
		OrderID:        req.OrderID,
		PointsDeducted: deducted,
		Balance:        prof.Point,
		LostRewards:    lost,
	}, nil
}

// reconcileClaims revokes every claim whose point requirement exceeds the
// balance and returns the display names of the lost rewards, in claim order.
// Definitions are fetched in one batch rather than one lookup per claim.
func (s *Service) reconcileClaims(ctx context.Context, claims []reward.Claim, balance int64) ([]string, error) {
	if len(claims) == 0 {
		return nil, nil
	}

	ids := make([]string, len(claims))
	for i, c := range claims {
		ids[i] = c.RewardID
	}
	defs, err := s.rewards.GetDefinitions(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get reward definitions")
	}
	byID := make(map[string]reward.Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	var lost []string
	for _, c := range claims {
		d, ok := byID[c.RewardID]
		if !ok {
			// Definition deleted by an admin; the claim is orphaned but costs
			// the user nothing, leave it alone.
			continue
		}
		if balance >= d.PointsRequired {
			continue
		}
		if err := s.rewards.Unclaim(ctx, c.UserID, c.RewardID); err != nil {
			return lost, errors.Wrapf(err, "unclaim reward %s", c.RewardID)
		}
		lost = append(lost, d.Name)
	}
	return lost, nil
}
