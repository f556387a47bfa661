package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawamura722/cardcapital/internal/domain/cart"
	"github.com/sawamura722/cardcapital/internal/domain/order"
	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/domain/profile"
	"github.com/sawamura722/cardcapital/internal/domain/reward"
	"github.com/sawamura722/cardcapital/internal/notify"
)

// --- Mock implementations ---

type mockProducts struct {
	byID map[string]product.Product
	err  error
}

func (m *mockProducts) List(context.Context) ([]product.Product, error) { return nil, nil }
func (m *mockProducts) ListByCategory(context.Context, string) ([]product.Product, error) {
	return nil, nil
}
func (m *mockProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
func (m *mockProducts) Create(context.Context, *product.Product) error { return nil }
func (m *mockProducts) Update(context.Context, *product.Product) error { return nil }
func (m *mockProducts) Delete(context.Context, string) error { return nil }

type mockCarts struct {
	lines    []cart.Line
	cleared  bool
	clearErr error
}

func (m *mockCarts) ListByUser(_ context.Context, userID string) ([]cart.Line, error) {
	var out []cart.Line
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}
func (m *mockCarts) Put(context.Context, cart.Line) error { return nil }
func (m *mockCarts) Remove(context.Context, string, string) error { return nil }

func (m *mockCarts) Clear(context.Context, string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	m.lines = nil
	return nil
}

type mockProfiles struct {
	prof profile.Profile
}

func (m *mockProfiles) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	if id != m.prof.ID {
		return nil, profile.ErrNotFound
	}
	p := m.prof
	return &p, nil
}
func (m *mockProfiles) List(context.Context) ([]profile.Profile, error) { return nil, nil }
func (m *mockProfiles) Update(context.Context, *profile.Profile) error { return nil }
func (m *mockProfiles) SetSubscribed(context.Context, string, bool) error {
	return nil
}

func (m *mockProfiles) IncrementPoints(_ context.Context, _ string, delta int64) error {
	m.prof.Point += delta
	return nil
}

func (m *mockProfiles) DecrementPoints(_ context.Context, _ string, delta int64) error {
	m.prof.Point -= delta
	if m.prof.Point < 0 {
		m.prof.Point = 0
	}
	return nil
}

type mockRewards struct {
	mu       sync.Mutex
	defs     []reward.Definition
	claims   []reward.Claim
	claimErr map[string]error // per reward id
}

func (m *mockRewards) ListDefinitions(context.Context) ([]reward.Definition, error) {
	return m.defs, nil
}

func (m *mockRewards) GetDefinition(_ context.Context, id string) (*reward.Definition, error) {
	for _, d := range m.defs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, reward.ErrNotFound
}

func (m *mockRewards) GetDefinitions(_ context.Context, ids []string) ([]reward.Definition, error) {
	var out []reward.Definition
	for _, id := range ids {
		for _, d := range m.defs {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}
func (m *mockRewards) CreateDefinition(context.Context, *reward.Definition) error { return nil }
func (m *mockRewards) UpdateDefinition(context.Context, *reward.Definition) error { return nil }
func (m *mockRewards) DeleteDefinition(context.Context, string) error { return nil }

func (m *mockRewards) ListClaims(_ context.Context, userID string) ([]reward.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reward.Claim
	for _, c := range m.claims {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRewards) GetClaim(context.Context, string, string) (*reward.Claim, error) {
	return nil, reward.ErrNotFound
}

func (m *mockRewards) Claim(_ context.Context, userID, rewardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimErr[rewardID]; err != nil {
		return err
	}
	for _, c := range m.claims {
		if c.UserID == userID && c.RewardID == rewardID {
			return reward.ErrAlreadyClaimed
		}
	}
	m.claims = append(m.claims, reward.Claim{UserID: userID, RewardID: rewardID, ClaimedAt: time.Now()})
	return nil
}

func (m *mockRewards) Unclaim(_ context.Context, userID, rewardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.claims {
		if c.UserID == userID && c.RewardID == rewardID {
			m.claims = append(m.claims[:i], m.claims[i+1:]...)
			return nil
		}
	}
	return reward.ErrNotFound
}

type mockOrders struct {
	byID      map[string]*order.Order
	lines     map[string][]order.Line
	createErr error
	deleted   []string
}

func (m *mockOrders) CreateWithLines(_ context.Context, o *order.Order, lines []order.Line) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.byID == nil {
		m.byID = make(map[string]*order.Order)
		m.lines = make(map[string][]order.Line)
	}
	m.byID[o.ID] = o
	m.lines[o.ID] = lines
	return nil
}

func (m *mockOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}
func (m *mockOrders) ListByUser(context.Context, string) ([]order.Order, error) { return nil, nil }
func (m *mockOrders) List(context.Context) ([]order.Order, error) { return nil, nil }
func (m *mockOrders) ListLines(_ context.Context, id string) ([]order.Line, error) {
	return m.lines[id], nil
}
func (m *mockOrders) ListAllLines(context.Context) ([]order.Line, error) { return nil, nil }

func (m *mockOrders) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	delete(m.lines, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockQueue struct {
	notices []notify.Notice
}

func (m *mockQueue) Publish(_ context.Context, n notify.Notice) error {
	m.notices = append(m.notices, n)
	return nil
}

// --- Helpers ---

type fixture struct {
	products *mockProducts
	carts    *mockCarts
	profiles *mockProfiles
	rewards  *mockRewards
	orders   *mockOrders
	queue    *mockQueue
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		products: &mockProducts{byID: map[string]product.Product{}},
		carts:    &mockCarts{},
		profiles: &mockProfiles{prof: profile.Profile{ID: "u1"}},
		rewards:  &mockRewards{},
		orders:   &mockOrders{byID: map[string]*order.Order{}, lines: map[string][]order.Line{}},
		queue:    &mockQueue{},
	}
	f.svc = NewService(f.products, f.carts, f.profiles, f.rewards, f.orders, f.queue)
	return f
}

func (f *fixture) addProduct(id, name, price string) {
	f.products.byID[id] = product.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
}

func (f *fixture) addCartLine(productID string, qty int) {
	f.carts.lines = append(f.carts.lines, cart.Line{
		UserID:    "u1",
		ProductID: productID,
		Quantity:  qty,
	})
}

func checkoutReq() CheckoutRequest {
	return CheckoutRequest{
		UserID:    "u1",
		FirstName: "Saku",
		LastName:  "Tan",
		Address:   "12 Card St",
		City:      "Bangkok",
		ZipCode:   "10110",
	}
}

// --- Checkout tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_CreatesOrderLinesAndClearsCart(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "100.00")
	f.addProduct("p2", "Sleeves", "50.00")
	f.addCartLine("p1", 2)
	f.addCartLine("p2", 1)

	result, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	// cart=[{100 x2},{50 x1}] => total 250, 2 points, one order with two lines.
	assert.True(t, decimal.RequireFromString("250.00").Equal(result.Order.TotalAmount))
	assert.EqualValues(t, 2, result.PointsEarned)
	assert.Equal(t, order.StatusProcessing, result.Order.Status)
	assert.Equal(t, "12 Card St, Bangkok, 10110", result.Order.Location)

	require.Len(t, f.orders.byID, 1)
	lines := f.orders.lines[result.Order.ID]
	require.Len(t, lines, 2)
	// Lines in cart insertion order.
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("100.00").Equal(lines[0].Price))
	assert.Equal(t, "p2", lines[1].ProductID)

	assert.True(t, f.carts.cleared)
	remaining, err := f.carts.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCheckout_NoPointsBelowHundred(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Single Card", "99.00")
	f.addCartLine("p1", 1)

	result, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	assert.EqualValues(t, 0, result.PointsEarned)
	assert.EqualValues(t, 0, result.Balance)
}

func TestCheckout_ClaimsEligibleRewards(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "500.00")
	f.addCartLine("p1", 1)
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Playmat", PointsRequired: 3},
		{ID: "r2", Name: "Foil Promo", PointsRequired: 100},
	}

	result, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	assert.EqualValues(t, 5, result.PointsEarned)
	require.Len(t, result.Awarded, 1)
	assert.Equal(t, "Playmat", result.Awarded[0].Name)

	claims, err := f.rewards.ListClaims(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "r1", claims[0].RewardID)
}

func TestCheckout_ExtraRewardRequiresSubscription(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "1000.00")
	f.addCartLine("p1", 1)
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Subscriber Foil", PointsRequired: 1, Extra: true},
	}

	result, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)
	assert.Empty(t, result.Awarded, "extra reward must not be claimed without a subscription")

	// Same purchase with a subscription claims it.
	f = newFixture()
	f.profiles.prof.Subscribed = true
	f.addProduct("p1", "Booster Box", "1000.00")
	f.addCartLine("p1", 1)
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Subscriber Foil", PointsRequired: 1, Extra: true},
	}

	result, err = f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)
	require.Len(t, result.Awarded, 1)
	assert.Equal(t, "Subscriber Foil", result.Awarded[0].Name)
}

func TestCheckout_AlreadyClaimedRewardSkipped(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "500.00")
	f.addCartLine("p1", 1)
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Playmat", PointsRequired: 1},
	}
	f.rewards.claims = []reward.Claim{{UserID: "u1", RewardID: "r1"}}

	result, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	assert.Empty(t, result.Awarded)
	claims, err := f.rewards.ListClaims(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, claims, 1, "claim must stay unique per (user, reward)")
}

func TestCheckout_InsufficientPointsRewardSkipped(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Single Card", "50.00")
	f.addCartLine("p1", 1)
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Playmat", PointsRequired: 10},
	}

	result, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	assert.Empty(t, result.Awarded)
	claims, err := f.rewards.ListClaims(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestCheckout_OrderCreateError(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "100.00")
	f.addCartLine("p1", 1)
	f.orders.createErr = errors.New("db write failed")

	_, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")

	// No later step ran.
	assert.False(t, f.carts.cleared)
	assert.EqualValues(t, 0, f.profiles.prof.Point)
}

func TestCheckout_CartClearErrorAbortsAccrual(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "300.00")
	f.addCartLine("p1", 1)
	f.carts.clearErr = errors.New("cart service down")

	_, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.Error(t, err)

	// The order stays committed, the points do not: there is no rollback.
	assert.Len(t, f.orders.byID, 1)
	assert.EqualValues(t, 0, f.profiles.prof.Point)
}

func TestCheckout_ClaimFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "500.00")
	f.addCartLine("p1", 1)
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Playmat", PointsRequired: 1},
		{ID: "r2", Name: "Deck Box", PointsRequired: 1},
	}
	f.rewards.claimErr = map[string]error{"r1": errors.New("rewards service down")}

	result, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	require.Len(t, result.Awarded, 1)
	assert.Equal(t, "Deck Box", result.Awarded[0].Name)
}

func TestCheckout_PrimaryNoticePrecedesRewardNotices(t *testing.T) {
	f := newFixture()
	f.addProduct("p1", "Booster Box", "500.00")
	f.addCartLine("p1", 1)
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Playmat", PointsRequired: 1},
		{ID: "r2", Name: "Deck Box", PointsRequired: 2},
	}

	_, err := f.svc.Checkout(context.Background(), checkoutReq())
	require.NoError(t, err)

	require.Len(t, f.queue.notices, 3)
	assert.Equal(t, notify.KindOrderPlaced, f.queue.notices[0].Kind)
	// Reward notices follow in the reward service's listing order.
	assert.Equal(t, notify.KindRewardGained, f.queue.notices[1].Kind)
	assert.Equal(t, "Playmat", f.queue.notices[1].Reward)
	assert.Equal(t, "Deck Box", f.queue.notices[2].Reward)
}

// --- Cancellation tests ---

func placedOrder(f *fixture, id, total string) *order.Order {
	o := &order.Order{
		ID:          id,
		UserID:      "u1",
		TotalAmount: decimal.RequireFromString(total),
		Status:      order.StatusProcessing,
		OrderDate:   time.Now(),
	}
	f.orders.byID[id] = o
	return o
}

func TestCancel_RequiresConfirmation(t *testing.T) {
	f := newFixture()
	placedOrder(f, "o1", "300.00")

	_, err := f.svc.Cancel(context.Background(), CancelRequest{UserID: "u1", OrderID: "o1"})
	require.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, f.orders.deleted)
}

func TestCancel_OnlyProcessingOrders(t *testing.T) {
	f := newFixture()
	o := placedOrder(f, "o1", "300.00")
	o.Status = order.StatusShipped

	_, err := f.svc.Cancel(context.Background(), CancelRequest{UserID: "u1", OrderID: "o1", Confirmed: true})
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancel_WrongUser(t *testing.T) {
	f := newFixture()
	placedOrder(f, "o1", "300.00")

	_, err := f.svc.Cancel(context.Background(), CancelRequest{UserID: "u2", OrderID: "o1", Confirmed: true})
	require.ErrorIs(t, err, ErrNotOwned)
}

func TestCancel_DeductsSymmetricPoints(t *testing.T) {
	f := newFixture()
	placedOrder(f, "o1", "250.00")
	f.profiles.prof.Point = 2 // earned at checkout for the same total

	result, err := f.svc.Cancel(context.Background(), CancelRequest{UserID: "u1", OrderID: "o1", Confirmed: true})
	require.NoError(t, err)

	assert.EqualValues(t, 2, result.PointsDeducted)
	assert.EqualValues(t, 0, result.Balance)
	assert.Equal(t, []string{"o1"}, f.orders.deleted)
}

func TestCancel_RevokesUnderfundedRewards(t *testing.T) {
	f := newFixture()
	placedOrder(f, "o1", "300.00")
	f.profiles.prof.Point = 6
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Playmat", PointsRequired: 5},
		{ID: "r2", Name: "Deck Box", PointsRequired: 2},
	}
	f.rewards.claims = []reward.Claim{
		{UserID: "u1", RewardID: "r1"},
		{UserID: "u1", RewardID: "r2"},
	}

	// Cancelling a 300 order deducts 3 points: 6 -> 3, below the playmat's 5.
	result, err := f.svc.Cancel(context.Background(), CancelRequest{UserID: "u1", OrderID: "o1", Confirmed: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Playmat"}, result.LostRewards)

	claims, err := f.rewards.ListClaims(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "r2", claims[0].RewardID)

	// Every remaining claim is still covered by the new balance.
	for _, c := range claims {
		d, err := f.rewards.GetDefinition(context.Background(), c.RewardID)
		require.NoError(t, err)
		assert.LessOrEqual(t, d.PointsRequired, f.profiles.prof.Point)
	}
}

func TestCancel_NoticesCancellationFirst(t *testing.T) {
	f := newFixture()
	placedOrder(f, "o1", "300.00")
	f.profiles.prof.Point = 3
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Playmat", PointsRequired: 2},
	}
	f.rewards.claims = []reward.Claim{{UserID: "u1", RewardID: "r1"}}

	_, err := f.svc.Cancel(context.Background(), CancelRequest{UserID: "u1", OrderID: "o1", Confirmed: true})
	require.NoError(t, err)

	require.Len(t, f.queue.notices, 2)
	assert.Equal(t, notify.KindOrderCancelled, f.queue.notices[0].Kind)
	assert.Equal(t, notify.KindRewardLost, f.queue.notices[1].Kind)
	assert.Equal(t, "Playmat", f.queue.notices[1].Reward)
}

// --- Points ---

func TestPointsFor(t *testing.T) {
	cases := []struct {
		total string
		want  int64
	}{
		{"0", 0},
		{"99.99", 0},
		{"100.00", 1},
		{"199.99", 1},
		{"250.00", 2},
		{"300", 3},
		{"1050.75", 10},
	}
	for _, tc := range cases {
		got := PointsFor(decimal.RequireFromString(tc.total))
		assert.Equal(t, tc.want, got, "total %s", tc.total)
	}
}
