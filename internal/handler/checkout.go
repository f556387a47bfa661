package handler

import (
	"net/http"

	"github.com/sawamura722/cardcapital/internal/checkout"
)

type checkoutRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zipCode"`
}

type checkoutResponse struct {
	OrderID      string             `json:"orderId"`
	Items        []cartLineResponse `json:"items"`
	Total        float64            `json:"total"`
	PointsEarned int64              `json:"pointsEarned"`
	Balance      int64              `json:"balance"`
	Awarded      []rewardResponse   `json:"awarded"`
}

type cancelRequest struct {
	UserID    string `json:"userId"`
	Confirmed bool   `json:"confirmed"`
}

type cancelResponse struct {
	OrderID        string   `json:"orderId"`
	PointsDeducted int64    `json:"pointsDeducted"`
	Balance        int64    `json:"balance"`
	LostRewards    []string `json:"lostRewards"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.checkout.Checkout(r.Context(), checkout.CheckoutRequest{
		UserID:    r.PathValue("userID"),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		City:      req.City,
		ZipCode:   req.ZipCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := checkoutResponse{
		OrderID:      res.Order.ID,
		Items:        make([]cartLineResponse, len(res.Lines)),
		Total:        res.Order.TotalAmount.InexactFloat64(),
		PointsEarned: res.PointsEarned,
		Balance:      res.Balance,
		Awarded:      make([]rewardResponse, len(res.Awarded)),
	}
	for i, l := range res.Lines {
		resp.Items[i] = cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			ImageURL:  l.ImageURL,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
			LineTotal: l.LineTotal.InexactFloat64(),
		}
	}
	for i, d := range res.Awarded {
		resp.Awarded[i] = toRewardResponse(d)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	res, err := h.checkout.Cancel(r.Context(), checkout.CancelRequest{
		UserID:    req.UserID,
		OrderID:   r.PathValue("id"),
		Confirmed: req.Confirmed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{
		OrderID:        res.OrderID,
		PointsDeducted: res.PointsDeducted,
		Balance:        res.Balance,
		LostRewards:    res.LostRewards,
	})
}
