// Package checkout implements the purchase settlement workflow and its
// mirror, order cancellation with reward reconciliation.
//
// Both workflows are strictly sequential: no step starts before the previous
// one has succeeded, and there is no compensating rollback once a step has
// committed. A failure part-way through surfaces as a single generic error to
// the caller; reward claiming and notices are best-effort and never fail the
// primary operation.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sawamura722/cardcapital/internal/domain/cart"
	"github.com/sawamura722/cardcapital/internal/domain/order"
	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/domain/profile"
	"github.com/sawamura722/cardcapital/internal/domain/reward"
	"github.com/sawamura722/cardcapital/internal/notify"
)

// pointsPer is the spend required to earn one loyalty point.
var pointsPer = decimal.NewFromInt(100)

// Sentinel errors for the settlement workflows.
var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrNotConfirmed   = errors.New("cancellation not confirmed")
	ErrNotCancellable = errors.New("order is not cancellable")
	ErrNotOwned       = errors.New("order belongs to another user")
)

// Service orchestrates checkout settlement and order cancellation across the
// catalog, cart, profile, reward and order collaborators.
type Service struct {
	products product.Repository
	carts    cart.Repository
	profiles profile.Repository
	rewards  reward.Repository
	orders   order.Repository
	notices  notify.Queue

	now   func() time.Time
	newID func() string
}

// NewService creates a checkout Service with the required collaborators.
func NewService(
	products product.Repository,
	carts cart.Repository,
	profiles profile.Repository,
	rewards reward.Repository,
	orders order.Repository,
	notices notify.Queue,
) *Service {
	return &Service{
		products: products,
		carts:    carts,
		profiles: profiles,
		rewards:  rewards,
		orders:   orders,
		notices:  notices,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Line is a cart line with its product resolved from the live catalog.
type Line struct {
	ProductID   string
	ProductName string
	ImageURL    string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// ResolveCart reads the user's live cart and resolves every line against the
// catalog in one batch, recomputing prices and line totals. The cart page and
// the checkout flow both go through this, so a stale client snapshot never
// drives pricing.
func (s *Service) ResolveCart(ctx context.Context, userID string) ([]Line, decimal.Decimal, error) {
	raw, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "list cart")
	}

	ids := make([]string, len(raw))
	for i, l := range raw {
		ids[i] = l.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "resolve products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]Line, 0, len(raw))
	total := decimal.Zero
	for _, l := range raw {
		p, ok := byID[l.ProductID]
		if !ok {
			// Product removed from the catalog since it was carted; skip it
			// rather than blocking the whole cart.
			continue
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lines = append(lines, Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			ImageURL:    p.ImageURL,
			UnitPrice:   p.Price,
			Quantity:    l.Quantity,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}

	return lines, total, nil
}

// CheckoutRequest holds the input for settling a purchase.
type CheckoutRequest struct {
	UserID    string
	FirstName string
	LastName  string
	Address   string
	City      string
	ZipCode   string
}

// CheckoutResult holds the outcome of a successful checkout. Awarded lists
// the rewards that were auto-claimed; claims are best-effort, so a reward the
// user qualified for may be missing here if its claim call failed.
type CheckoutResult struct {
	Order        *order.Order
	Lines        []Line
	PointsEarned int64
	Balance      int64
	Awarded      []reward.Definition
}

// Checkout settles the user's cart: it creates the order with one line per
// cart line, clears the cart, accrues loyalty points, and auto-claims any
// rewards the new balance unlocks.
//
// The order, its lines, the cart clear and the point accrual are the primary
// steps; an error in any of them aborts the workflow and is returned as a
// single failure with no partial-success indication. Steps already committed
// stay committed. Reward claims run after the primary steps and never fail
// the checkout.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	// Resolve the live cart against the catalog immediately before settling.
	lines, total, err := s.ResolveCart(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := &order.Order{
		ID:          s.newID(),
		UserID:      req.UserID,
		OrderDate:   s.now(),
		TotalAmount: total,
		Status:      order.StatusProcessing,
		Location:    fmt.Sprintf("%s, %s, %s", req.Address, req.City, req.ZipCode),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	}

	// One order line per cart line, in cart insertion order.
	orderLines := make([]order.Line, len(lines))
	for i, l := range lines {
		orderLines[i] = order.Line{
			OrderID:   o.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		}
	}
	if err := s.orders.CreateWithLines(ctx, o, orderLines); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Clear the live cart, not the snapshot the user saw.
	if err := s.carts.Clear(ctx, req.UserID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	earned := PointsFor(total)
	if err := s.profiles.IncrementPoints(ctx, req.UserID, earned); err != nil {
		return nil, errors.Wrap(err, "accrue points")
	}

	// Re-read for the authoritative balance; the increment above is atomic
	// server-side, so this reflects concurrent accruals too.
	prof, err := s.profiles.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "read profile")
	}

	// Primary operation has succeeded. Everything below is best-effort.
	s.publish(ctx, notify.Notice{
		Kind:    notify.KindOrderPlaced,
		UserID:  req.UserID,
		OrderID: o.ID,
		Message: "Purchased successfully. Thank you!",
	})

	awarded := s.claimEligible(ctx, prof)
	for _, d := range awarded {
		s.publish(ctx, notify.Notice{
			Kind:    notify.KindRewardGained,
			UserID:  req.UserID,
			Reward:  d.Name,
			Message: fmt.Sprintf("Congratulations! You got %s as reward!", d.Name),
		})
	}

	return &CheckoutResult{
		Order:        o,
		Lines:        lines,
		PointsEarned: earned,
		Balance:      prof.Point,
		Awarded:      awarded,
	}, nil
}

// claimEligible computes the rewards the profile now qualifies for and claims
// each one. Claims are independent network calls dispatched concurrently; a
// failing claim is logged and skipped, never aggregated into an error. The
// returned definitions preserve the reward service's listing order.
func (s *Service) claimEligible(ctx context.Context, prof *profile.Profile) []reward.Definition {
	lg := zctx.From(ctx)

	defs, err := s.rewards.ListDefinitions(ctx)
	if err != nil {
		lg.Warn("list reward definitions", zap.Error(err))
		return nil
	}
	claims, err := s.rewards.ListClaims(ctx, prof.ID)
	if err != nil {
		lg.Warn("list claimed rewards", zap.Error(err))
		return nil
	}

	eligible := reward.Eligible(defs, reward.NewClaimedSet(claims), prof.Point, prof.Subscribed)
	if len(eligible) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		claimed = make(map[string]struct{}, len(eligible))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range eligible {
		g.Go(func() error {
			if err := s.rewards.Claim(gctx, prof.ID, d.ID); err != nil {
				lg.Warn("claim reward",
					zap.String("reward_id", d.ID),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			claimed[d.ID] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; they log instead

	// Rebuild in listing order from the successful claims.
	awarded := make([]reward.Definition, 0, len(claimed))
	for _, d := range eligible {
		if _, ok := claimed[d.ID]; ok {
			awarded = append(awarded, d)
		}
	}
	return awarded
}

// publish enqueues a notice, logging on failure. Notices never fail the
// workflow that produced them.
func (s *Service) publish(ctx context.Context, n notify.Notice) {
	if err := s.notices.Publish(ctx, n); err != nil {
		zctx.From(ctx).Warn("publish notice",
			zap.String("kind", string(n.Kind)),
			zap.Error(err),
		)
	}
}

// PointsFor converts an order total to loyalty points: one point per full
// 100 currency units spent, remainder discarded.
func PointsFor(total decimal.Decimal) int64 {
	return total.Div(pointsPer).Floor().IntPart()
}
