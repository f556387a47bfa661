package handler

import (
	"net/http"
	"time"

	"github.com/sawamura722/cardcapital/internal/domain/cart"
)

type cartLineResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

type cartResponse struct {
	UserID string             `json:"userId"`
	Items  []cartLineResponse `json:"items"`
	Total  float64            `json:"total"`
}

type putCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	lines, total, err := h.checkout.ResolveCart(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := cartResponse{
		UserID: userID,
		Items:  make([]cartLineResponse, len(lines)),
		Total:  total.InexactFloat64(),
	}
	for i, l := range lines {
		resp.Items[i] = cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			ImageURL:  l.ImageURL,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
			LineTotal: l.LineTotal.InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) putCartItem(w http.ResponseWriter, r *http.Request) {
	var req putCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Quantity < 1 {
		badRequest(w, "quantity must be at least 1")
		return
	}

	line := cart.Line{
		UserID:    r.PathValue("userID"),
		ProductID: r.PathValue("productID"),
		Quantity:  req.Quantity,
		AddedAt:   time.Now(),
	}
	if err := h.carts.Put(r.Context(), line); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Remove(r.Context(), r.PathValue("userID"), r.PathValue("productID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), r.PathValue("userID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
