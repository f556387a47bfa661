package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawamura722/cardcapital/internal/checkout"
	"github.com/sawamura722/cardcapital/internal/domain/cart"
	"github.com/sawamura722/cardcapital/internal/domain/order"
	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/domain/profile"
	"github.com/sawamura722/cardcapital/internal/domain/reward"
	"github.com/sawamura722/cardcapital/internal/domain/tournament"
	"github.com/sawamura722/cardcapital/internal/notify"
	"github.com/sawamura722/cardcapital/internal/stats"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	listErr  error
	created  []*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) ListByCategory(_ context.Context, categoryID string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		for _, p := range m.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *product.Product) error {
	m.created = append(m.created, p)
	m.products = append(m.products, *p)
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *product.Product) error {
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = *p
			return nil
		}
	}
	return product.ErrNotFound
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return product.ErrNotFound
}

type mockCategoryRepo struct {
	categories []product.Category
}

func (m *mockCategoryRepo) ListCategories(_ context.Context) ([]product.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryRepo) GetCategory(_ context.Context, id string) (*product.Category, error) {
	for i := range m.categories {
		if m.categories[i].ID == id {
			return &m.categories[i], nil
		}
	}
	return nil, product.ErrCategoryNotFound
}

func (m *mockCategoryRepo) CreateCategory(_ context.Context, c *product.Category) error {
	m.categories = append(m.categories, *c)
	return nil
}

func (m *mockCategoryRepo) UpdateCategory(_ context.Context, c *product.Category) error { return nil }
func (m *mockCategoryRepo) DeleteCategory(_ context.Context, id string) error           { return nil }

type mockCartRepo struct {
	lines []cart.Line
}

func (m *mockCartRepo) ListByUser(_ context.Context, userID string) ([]cart.Line, error) {
	var out []cart.Line
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockCartRepo) Put(_ context.Context, line cart.Line) error {
	for i := range m.lines {
		if m.lines[i].UserID == line.UserID && m.lines[i].ProductID == line.ProductID {
			m.lines[i].Quantity = line.Quantity
			return nil
		}
	}
	m.lines = append(m.lines, line)
	return nil
}

func (m *mockCartRepo) Remove(_ context.Context, userID, productID string) error {
	for i := range m.lines {
		if m.lines[i].UserID == userID && m.lines[i].ProductID == productID {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrNotFound
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	var kept []cart.Line
	for _, l := range m.lines {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	m.lines = kept
	return nil
}

type mockProfileRepo struct {
	profiles map[string]*profile.Profile
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) List(_ context.Context) ([]profile.Profile, error) {
	var out []profile.Profile
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProfileRepo) Update(_ context.Context, p *profile.Profile) error {
	stored, ok := m.profiles[p.ID]
	if !ok {
		return profile.ErrNotFound
	}
	*stored = *p
	return nil
}

func (m *mockProfileRepo) SetSubscribed(_ context.Context, id string, subscribed bool) error {
	p, ok := m.profiles[id]
	if !ok {
		return profile.ErrNotFound
	}
	p.Subscribed = subscribed
	return nil
}

func (m *mockProfileRepo) IncrementPoints(_ context.Context, id string, delta int64) error {
	p, ok := m.profiles[id]
	if !ok {
		return profile.ErrNotFound
	}
	p.Point += delta
	return nil
}

func (m *mockProfileRepo) DecrementPoints(_ context.Context, id string, delta int64) error {
	p, ok := m.profiles[id]
	if !ok {
		return profile.ErrNotFound
	}
	p.Point -= delta
	if p.Point < 0 {
		p.Point = 0
	}
	return nil
}

type mockRewardRepo struct {
	defs   []reward.Definition
	claims []reward.Claim
}

func (m *mockRewardRepo) ListDefinitions(_ context.Context) ([]reward.Definition, error) {
	return m.defs, nil
}

func (m *mockRewardRepo) GetDefinition(_ context.Context, id string) (*reward.Definition, error) {
	for i := range m.defs {
		if m.defs[i].ID == id {
			return &m.defs[i], nil
		}
	}
	return nil, reward.ErrNotFound
}

func (m *mockRewardRepo) GetDefinitions(_ context.Context, ids []string) ([]reward.Definition, error) {
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

func (m *mockRewardRepo) CreateDefinition(_ context.Context, d *reward.Definition) error {
	m.defs = append(m.defs, *d)
	return nil
}

func (m *mockRewardRepo) UpdateDefinition(_ context.Context, d *reward.Definition) error { return nil }
func (m *mockRewardRepo) DeleteDefinition(_ context.Context, id string) error            { return nil }

func (m *mockRewardRepo) ListClaims(_ context.Context, userID string) ([]reward.Claim, error) {
	var out []reward.Claim
	for _, c := range m.claims {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRewardRepo) GetClaim(_ context.Context, userID, rewardID string) (*reward.Claim, error) {
	for i := range m.claims {
		if m.claims[i].UserID == userID && m.claims[i].RewardID == rewardID {
			return &m.claims[i], nil
		}
	}
	return nil, reward.ErrNotFound
}

func (m *mockRewardRepo) Claim(_ context.Context, userID, rewardID string) error {
	for _, c := range m.claims {
		if c.UserID == userID && c.RewardID == rewardID {
			return reward.ErrAlreadyClaimed
		}
	}
	m.claims = append(m.claims, reward.Claim{UserID: userID, RewardID: rewardID, ClaimedAt: time.Now()})
	return nil
}

func (m *mockRewardRepo) Unclaim(_ context.Context, userID, rewardID string) error {
	for i := range m.claims {
		if m.claims[i].UserID == userID && m.claims[i].RewardID == rewardID {
			m.claims = append(m.claims[:i], m.claims[i+1:]...)
			return nil
		}
	}
	return reward.ErrNotFound
}

type mockOrderRepo struct {
	orders []order.Order
	lines  map[string][]order.Line
}

func (m *mockOrderRepo) CreateWithLines(_ context.Context, o *order.Order, lines []order.Line) error {
	m.orders = append(m.orders, *o)
	if m.lines == nil {
		m.lines = make(map[string][]order.Line)
	}
	m.lines[o.ID] = lines
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	for i := range m.orders {
		if m.orders[i].ID == id {
			return &m.orders[i], nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]order.Order, error) {
	return m.orders, nil
}

func (m *mockOrderRepo) ListLines(_ context.Context, orderID string) ([]order.Line, error) {
	return m.lines[orderID], nil
}

func (m *mockOrderRepo) ListAllLines(_ context.Context) ([]order.Line, error) {
	var out []order.Line
	for _, ls := range m.lines {
		out = append(out, ls...)
	}
	return out, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			delete(m.lines, id)
			return nil
		}
	}
	return order.ErrNotFound
}

type mockTournamentRepo struct {
	tournaments []tournament.Tournament
	rankings    []tournament.Ranking
}

func (m *mockTournamentRepo) List(_ context.Context) ([]tournament.Tournament, error) {
	return m.tournaments, nil
}

func (m *mockTournamentRepo) GetByID(_ context.Context, id string) (*tournament.Tournament, error) {
	for i := range m.tournaments {
		if m.tournaments[i].ID == id {
			return &m.tournaments[i], nil
		}
	}
	return nil, tournament.ErrNotFound
}

func (m *mockTournamentRepo) Create(_ context.Context, t *tournament.Tournament) error {
	m.tournaments = append(m.tournaments, *t)
	return nil
}

func (m *mockTournamentRepo) Update(_ context.Context, t *tournament.Tournament) error { return nil }
func (m *mockTournamentRepo) Delete(_ context.Context, id string) error                { return nil }

func (m *mockTournamentRepo) ListRankings(_ context.Context, tournamentID string) ([]tournament.Ranking, error) {
	var out []tournament.Ranking
	for _, r := range m.rankings {
		if r.TournamentID == tournamentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockTournamentRepo) Register(_ context.Context, tournamentID, userID string) error {
	for _, r := range m.rankings {
		if r.TournamentID == tournamentID && r.UserID == userID {
			return tournament.ErrAlreadyRegistered
		}
	}
	m.rankings = append(m.rankings, tournament.Ranking{TournamentID: tournamentID, UserID: userID})
	return nil
}

func (m *mockTournamentRepo) Unregister(_ context.Context, tournamentID, userID string) error {
	return nil
}

func (m *mockTournamentRepo) SetRank(_ context.Context, tournamentID, userID string, rank int) error {
	for i := range m.rankings {
		if m.rankings[i].TournamentID == tournamentID && m.rankings[i].UserID == userID {
			m.rankings[i].Rank = rank
			return nil
		}
	}
	return tournament.ErrNotFound
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
	products    *mockProductRepo
	categories  *mockCategoryRepo
	carts       *mockCartRepo
	profiles    *mockProfileRepo
	rewards     *mockRewardRepo
	orders      *mockOrderRepo
	tournaments *mockTournamentRepo
	mux         *http.ServeMux
}

func newFixture() *fixture {
	f := &fixture{
		products:    &mockProductRepo{},
		categories:  &mockCategoryRepo{},
		carts:       &mockCartRepo{},
		profiles:    &mockProfileRepo{profiles: make(map[string]*profile.Profile)},
		rewards:     &mockRewardRepo{},
		orders:      &mockOrderRepo{lines: make(map[string][]order.Line)},
		tournaments: &mockTournamentRepo{},
	}

	checkoutSvc := checkout.NewService(f.products, f.carts, f.profiles, f.rewards, f.orders, &mockQueue{})
	statsSvc := stats.NewService(f.orders, f.products, f.categories, f.profiles, f.tournaments)

	h := NewHandler(Config{}, f.products, f.categories, f.carts, f.profiles,
		f.rewards, f.orders, f.tournaments, checkoutSvc, statsSvc)

	f.mux = http.NewServeMux()
	h.Register(f.mux, nil)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeResp[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	f := newFixture()
	f.products.products = []product.Product{
		{ID: "p1", Name: "Charizard", Price: decimal.NewFromInt(120), CategoryID: "singles"},
		{ID: "p2", Name: "Booster Box", Price: decimal.NewFromInt(90), CategoryID: "sealed"},
	}

	rec := f.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResp[[]productResponse](t, rec)
	require.Len(t, out, 2)
	assert.Equal(t, "Charizard", out[0].Name)
	assert.Equal(t, 120.0, out[0].Price)
}

func TestListProducts_FilterByCategory(t *testing.T) {
	f := newFixture()
	f.products.products = []product.Product{
		{ID: "p1", Name: "Charizard", Price: decimal.NewFromInt(120), CategoryID: "singles"},
		{ID: "p2", Name: "Booster Box", Price: decimal.NewFromInt(90), CategoryID: "sealed"},
	}

	rec := f.do(t, http.MethodGet, "/api/products?category=sealed", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResp[[]productResponse](t, rec)
	require.Len(t, out, 1)
	assert.Equal(t, "p2", out[0].ID)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/products/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeResp[errorBody](t, rec)
	assert.Equal(t, http.StatusNotFound, body.Code)
}

func TestCreateProduct_Validation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/products", `{"price": 10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/products", `{"name":"Playmat","price":19.99,"stock":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decodeResp[productResponse](t, rec)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "Playmat", out.Name)
	require.Len(t, f.products.created, 1)
}

func TestPutCartItem_And_GetCart(t *testing.T) {
	f := newFixture()
	f.products.products = []product.Product{
		{ID: "p1", Name: "Sleeves", Price: decimal.NewFromFloat(4.50)},
	}

	rec := f.do(t, http.MethodPut, "/api/carts/u1/items/p1", `{"quantity":3}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/carts/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResp[cartResponse](t, rec)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 3, out.Items[0].Quantity)
	assert.InDelta(t, 13.5, out.Total, 1e-9)
}

func TestPutCartItem_RejectsZeroQuantity(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPut, "/api/carts/u1/items/p1", `{"quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()
	f.profiles.profiles["u1"] = &profile.Profile{ID: "u1"}

	rec := f.do(t, http.MethodPost, "/api/checkout/u1", `{"firstName":"Saw","lastName":"A","address":"1 Main","city":"BKK","zipCode":"10100"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture()
	f.products.products = []product.Product{
		{ID: "p1", Name: "Elite Trainer Box", Price: decimal.NewFromInt(50)},
	}
	f.profiles.profiles["u1"] = &profile.Profile{ID: "u1"}
	f.carts.lines = []cart.Line{{UserID: "u1", ProductID: "p1", Quantity: 5}}

	rec := f.do(t, http.MethodPost, "/api/checkout/u1", `{"firstName":"Saw","lastName":"A","address":"1 Main","city":"BKK","zipCode":"10100"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decodeResp[checkoutResponse](t, rec)
	assert.NotEmpty(t, out.OrderID)
	assert.Equal(t, 250.0, out.Total)
	assert.Equal(t, int64(2), out.PointsEarned)
	require.Len(t, f.orders.orders, 1)
	assert.Empty(t, f.carts.lines)
}

func TestCancelOrder_RequiresConfirmation(t *testing.T) {
	f := newFixture()
	f.profiles.profiles["u1"] = &profile.Profile{ID: "u1", Point: 5}
	f.orders.orders = []order.Order{{
		ID: "o1", UserID: "u1", Status: order.StatusProcessing,
		TotalAmount: decimal.NewFromInt(200),
	}}

	rec := f.do(t, http.MethodPost, "/api/orders/o1/cancel", `{"userId":"u1","confirmed":false}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, f.orders.orders, 1)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture()
	f.profiles.profiles["u1"] = &profile.Profile{ID: "u1", Point: 5}
	f.orders.orders = []order.Order{{
		ID: "o1", UserID: "u1", Status: order.StatusProcessing,
		TotalAmount: decimal.NewFromInt(200),
	}}

	rec := f.do(t, http.MethodPost, "/api/orders/o1/cancel", `{"userId":"u1","confirmed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResp[cancelResponse](t, rec)
	assert.Equal(t, int64(2), out.PointsDeducted)
	assert.Equal(t, int64(3), out.Balance)
	assert.Empty(t, f.orders.orders)
}

func TestCancelOrder_ShippedConflict(t *testing.T) {
	f := newFixture()
	f.profiles.profiles["u1"] = &profile.Profile{ID: "u1"}
	f.orders.orders = []order.Order{{
		ID: "o1", UserID: "u1", Status: order.StatusShipped,
		TotalAmount: decimal.NewFromInt(200),
	}}

	rec := f.do(t, http.MethodPost, "/api/orders/o1/cancel", `{"userId":"u1","confirmed":true}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubscribe(t *testing.T) {
	f := newFixture()
	f.profiles.profiles["u1"] = &profile.Profile{ID: "u1", Email: "u1@example.com"}

	rec := f.do(t, http.MethodPost, "/api/users/u1/subscription", `{"subscribed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResp[profileResponse](t, rec)
	assert.True(t, out.Subscribed)
}

func TestListClaimedRewards(t *testing.T) {
	f := newFixture()
	f.rewards.defs = []reward.Definition{
		{ID: "r1", Name: "Free Sleeves", PointsRequired: 2},
	}
	f.rewards.claims = []reward.Claim{
		{UserID: "u1", RewardID: "r1", ClaimedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
	}

	rec := f.do(t, http.MethodGet, "/api/users/u1/rewards", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResp[[]claimedRewardResponse](t, rec)
	require.Len(t, out, 1)
	assert.Equal(t, "Free Sleeves", out[0].Name)
}

func TestRegisterTournament_Duplicate(t *testing.T) {
	f := newFixture()
	f.tournaments.tournaments = []tournament.Tournament{{ID: "t1", Name: "Weekly"}}

	rec := f.do(t, http.MethodPost, "/api/tournaments/t1/register", `{"userId":"u1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/tournaments/t1/register", `{"userId":"u1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetStats(t *testing.T) {
	f := newFixture()
	f.orders.orders = []order.Order{{
		ID: "o1", UserID: "u1", Status: order.StatusProcessing,
		TotalAmount: decimal.NewFromInt(300), OrderDate: time.Now(),
	}}
	f.profiles.profiles["u1"] = &profile.Profile{ID: "u1", Subscribed: true}

	rec := f.do(t, http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decodeResp[statsResponse](t, rec)
	assert.Equal(t, 1, out.TotalOrders)
	assert.Equal(t, 300.0, out.TotalRevenue)
	assert.Equal(t, 1, out.SubscribedUsers)
	require.Len(t, out.DailyRevenue, 7)
}

func TestDecodeBody_UnknownField(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/products", `{"name":"x","bogus":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownDomainError_Opaque(t *testing.T) {
	f := newFixture()
	f.products.listErr = errors.New("db down")

	rec := f.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeResp[errorBody](t, rec)
	assert.Equal(t, "internal error", body.Message)
}
