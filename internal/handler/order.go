package handler

import (
	"net/http"
	"time"

	"github.com/sawamura722/cardcapital/internal/domain/order"
)

type orderResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	OrderDate   string  `json:"orderDate"`
	TotalAmount float64 `json:"totalAmount"`
	Status      string  `json:"status"`
	Location    string  `json:"location"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
}

type orderLineResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

func toOrderResponse(o order.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		OrderDate:   o.OrderDate.Format(time.RFC3339),
		TotalAmount: o.TotalAmount.InexactFloat64(),
		Status:      string(o.Status),
		Location:    o.Location,
		FirstName:   o.FirstName,
		LastName:    o.LastName,
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.ListByUser(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]orderResponse, len(items))
	for i, o := range items {
		out[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listOrderLines(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.orders.GetByID(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := h.orders.ListLines(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]orderLineResponse, len(lines))
	for i, l := range lines {
		out[i] = orderLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price.InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
