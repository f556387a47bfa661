// Package handler exposes the shop over HTTP. Handlers decode JSON, delegate
// to the domain services and repositories, and map domain errors to status
// codes; no business logic lives here.
package handler

import (
	"net/http"

	"github.com/sawamura722/cardcapital/internal/checkout"
	"github.com/sawamura722/cardcapital/internal/domain/cart"
	"github.com/sawamura722/cardcapital/internal/domain/order"
	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/domain/profile"
	"github.com/sawamura722/cardcapital/internal/domain/reward"
	"github.com/sawamura722/cardcapital/internal/domain/tournament"
	"github.com/sawamura722/cardcapital/internal/stats"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler implements the shop's HTTP API.
type Handler struct {
	products     product.Repository
	categories   product.CategoryRepository
	carts        cart.Repository
	profiles     profile.Repository
	rewards      reward.Repository
	orders       order.Repository
	tournaments  tournament.Repository
	checkout     *checkout.Service
	stats        *stats.Service
	imageBaseURL string
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	categories product.CategoryRepository,
	carts cart.Repository,
	profiles profile.Repository,
	rewards reward.Repository,
	orders order.Repository,
	tournaments tournament.Repository,
	checkoutSvc *checkout.Service,
	statsSvc *stats.Service,
) *Handler {
	return &Handler{
		products:     products,
		categories:   categories,
		carts:        carts,
		profiles:     profiles,
		rewards:      rewards,
		orders:       orders,
		tournaments:  tournaments,
		checkout:     checkoutSvc,
		stats:        statsSvc,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts every route on mux. Admin routes are wrapped with the
// security handler; sec may be nil in tests to leave them open.
func (h *Handler) Register(mux *http.ServeMux, sec *SecurityHandler) {
	admin := func(next http.HandlerFunc) http.Handler {
		if sec == nil {
			return next
		}
		return sec.Require(next)
	}

	// Catalog.
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/categories/{id}", h.getCategory)
	mux.Handle("POST /api/products", admin(h.createProduct))
	mux.Handle("PUT /api/products/{id}", admin(h.updateProduct))
	mux.Handle("DELETE /api/products/{id}", admin(h.deleteProduct))
	mux.Handle("POST /api/categories", admin(h.createCategory))
	mux.Handle("PUT /api/categories/{id}", admin(h.updateCategory))
	mux.Handle("DELETE /api/categories/{id}", admin(h.deleteCategory))

	// Cart.
	mux.HandleFunc("GET /api/carts/{userID}", h.getCart)
	mux.HandleFunc("PUT /api/carts/{userID}/items/{productID}", h.putCartItem)
	mux.HandleFunc("DELETE /api/carts/{userID}/items/{productID}", h.removeCartItem)
	mux.HandleFunc("DELETE /api/carts/{userID}", h.clearCart)

	// Checkout and orders.
	mux.HandleFunc("POST /api/checkout/{userID}", h.placeOrder)
	mux.HandleFunc("GET /api/users/{userID}/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}/lines", h.listOrderLines)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)

	// Profiles.
	mux.HandleFunc("GET /api/users/{userID}", h.getProfile)
	mux.HandleFunc("PUT /api/users/{userID}", h.updateProfile)
	mux.HandleFunc("POST /api/users/{userID}/subscription", h.subscribe)

	// Rewards.
	mux.HandleFunc("GET /api/rewards", h.listRewards)
	mux.HandleFunc("GET /api/rewards/{id}", h.getReward)
	mux.HandleFunc("GET /api/users/{userID}/rewards", h.listClaimedRewards)
	mux.Handle("POST /api/rewards", admin(h.createReward))
	mux.Handle("PUT /api/rewards/{id}", admin(h.updateReward))
	mux.Handle("DELETE /api/rewards/{id}", admin(h.deleteReward))

	// Tournaments.
	mux.HandleFunc("GET /api/tournaments", h.listTournaments)
	mux.HandleFunc("GET /api/tournaments/{id}", h.getTournament)
	mux.HandleFunc("GET /api/tournaments/{id}/rankings", h.listRankings)
	mux.HandleFunc("POST /api/tournaments/{id}/register", h.registerTournament)
	mux.HandleFunc("DELETE /api/tournaments/{id}/register/{userID}", h.unregisterTournament)
	mux.Handle("POST /api/tournaments", admin(h.createTournament))
	mux.Handle("PUT /api/tournaments/{id}", admin(h.updateTournament))
	mux.Handle("DELETE /api/tournaments/{id}", admin(h.deleteTournament))
	mux.Handle("PUT /api/tournaments/{id}/rankings/{userID}", admin(h.setRank))

	// Back-office.
	mux.Handle("GET /api/admin/stats", admin(h.getStats))
}
