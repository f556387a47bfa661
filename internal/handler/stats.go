package handler

import (
	"net/http"
	"time"

	"github.com/sawamura722/cardcapital/internal/stats"
)

type productSalesResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type categorySalesResponse struct {
	CategoryID string  `json:"categoryId"`
	Name       string  `json:"name"`
	Revenue    float64 `json:"revenue"`
}

type statsResponse struct {
	TotalOrders      int                     `json:"totalOrders"`
	ProductsSold     int                     `json:"productsSold"`
	TotalRevenue     float64                 `json:"totalRevenue"`
	TodayRevenue     float64                 `json:"todayRevenue"`
	Last7DaysRevenue float64                 `json:"last7DaysRevenue"`
	DailyRevenue     []float64               `json:"dailyRevenue"`
	TotalProducts    int                     `json:"totalProducts"`
	TotalUsers       int                     `json:"totalUsers"`
	SubscribedUsers  int                     `json:"subscribedUsers"`
	TotalTournaments int                     `json:"totalTournaments"`
	LatestOrders     []orderResponse         `json:"latestOrders"`
	Bestsellers      []productSalesResponse  `json:"bestsellers"`
	SalesByCategory  []categorySalesResponse `json:"salesByCategory"`
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.stats.Summary(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(sum))
}

func toStatsResponse(sum *stats.Summary) statsResponse {
	resp := statsResponse{
		TotalOrders:      sum.TotalOrders,
		ProductsSold:     sum.ProductsSold,
		TotalRevenue:     sum.TotalRevenue.InexactFloat64(),
		TodayRevenue:     sum.TodayRevenue.InexactFloat64(),
		Last7DaysRevenue: sum.Last7DaysRevenue.InexactFloat64(),
		DailyRevenue:     make([]float64, len(sum.DailyRevenue)),
		TotalProducts:    sum.TotalProducts,
		TotalUsers:       sum.TotalUsers,
		SubscribedUsers:  sum.SubscribedUsers,
		TotalTournaments: sum.TotalTournaments,
		LatestOrders:     make([]orderResponse, len(sum.LatestOrders)),
		Bestsellers:      make([]productSalesResponse, len(sum.Bestsellers)),
		SalesByCategory:  make([]categorySalesResponse, len(sum.SalesByCategory)),
	}
	for i, d := range sum.DailyRevenue {
		resp.DailyRevenue[i] = d.InexactFloat64()
	}
	for i, o := range sum.LatestOrders {
		resp.LatestOrders[i] = toOrderResponse(o)
	}
	for i, p := range sum.Bestsellers {
		resp.Bestsellers[i] = productSalesResponse{ProductID: p.ProductID, Name: p.Name, Quantity: p.Quantity}
	}
	for i, c := range sum.SalesByCategory {
		resp.SalesByCategory[i] = categorySalesResponse{CategoryID: c.CategoryID, Name: c.Name, Revenue: c.Revenue.InexactFloat64()}
	}
	return resp
}
