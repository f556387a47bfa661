// Package stats aggregates orders, products, users and tournaments into the
// back-office dashboard summary. All aggregation is synchronous transformation
// over already-fetched rows; the database does the fetching, this package does
// the arithmetic.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sawamura722/cardcapital/internal/domain/order"
	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/domain/profile"
	"github.com/sawamura722/cardcapital/internal/domain/tournament"
)

// revenueDays is the length of the daily revenue series.
const revenueDays = 7

// latestOrderCount caps the recent-orders list on the dashboard.
const latestOrderCount = 5

// bestsellerCount caps the bestseller list on the dashboard.
const bestsellerCount = 5

// ProductSales is a product with its total quantity sold.
type ProductSales struct {
	ProductID string
	Name      string
	Quantity  int
}

// CategorySales is a category with the revenue attributed to its products.
type CategorySales struct {
	CategoryID string
	Name       string
	Revenue    decimal.Decimal
}

// Summary is the full dashboard aggregate.
type Summary struct {
	TotalOrders      int
	ProductsSold     int
	TotalRevenue     decimal.Decimal
	TodayRevenue     decimal.Decimal
	Last7DaysRevenue decimal.Decimal
	// DailyRevenue holds one bucket per day for the last seven days,
	// oldest first, today last.
	DailyRevenue     []decimal.Decimal
	TotalProducts    int
	TotalUsers       int
	SubscribedUsers  int
	TotalTournaments int
	LatestOrders     []order.Order
	Bestsellers      []ProductSales
	SalesByCategory  []CategorySales
}

// Service computes dashboard summaries from the shop's repositories.
type Service struct {
	orders      order.Repository
	products    product.Repository
	categories  product.CategoryRepository
	profiles    profile.Repository
	tournaments tournament.Repository
}

// NewService creates a stats Service with the required repositories.
func NewService(
	orders order.Repository,
	products product.Repository,
	categories product.CategoryRepository,
	profiles profile.Repository,
	tournaments tournament.Repository,
) *Service {
	return &Service{
		orders:      orders,
		products:    products,
		categories:  categories,
		profiles:    profiles,
		tournaments: tournaments,
	}
}

// Summary fetches all rows and aggregates them relative to now.
func (s *Service) Summary(ctx context.Context, now time.Time) (*Summary, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	lines, err := s.orders.ListAllLines(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list order lines")
	}
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list profiles")
	}
	tournaments, err := s.tournaments.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list tournaments")
	}

	subscribed := 0
	for _, p := range profiles {
		if p.Subscribed {
			subscribed++
		}
	}

	sold := 0
	for _, l := range lines {
		sold += l.Quantity
	}

	daily := DailyRevenue(orders, now)
	last7 := decimal.Zero
	for _, d := range daily {
		last7 = last7.Add(d)
	}

	return &Summary{
		TotalOrders:      len(orders),
		ProductsSold:     sold,
		TotalRevenue:     TotalRevenue(orders),
		TodayRevenue:     daily[len(daily)-1],
		Last7DaysRevenue: last7,
		DailyRevenue:     daily,
		TotalProducts:    len(products),
		TotalUsers:       len(profiles),
		SubscribedUsers:  subscribed,
		TotalTournaments: len(tournaments),
		LatestOrders:     LatestOrders(orders, latestOrderCount),
		Bestsellers:      Bestsellers(lines, products, bestsellerCount),
		SalesByCategory:  SalesByCategory(lines, products, categories),
	}, nil
}

// TotalRevenue sums the total amount of every order.
func TotalRevenue(orders []order.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
	}
	return total
}

// DailyRevenue buckets order totals into the last seven calendar days
// relative to now, oldest bucket first. Orders outside the window are ignored.
func DailyRevenue(orders []order.Order, now time.Time) []decimal.Decimal {
	buckets := make([]decimal.Decimal, revenueDays)
	for i := range buckets {
		buckets[i] = decimal.Zero
	}

	today := now.Truncate(24 * time.Hour)
	for _, o := range orders {
		day := o.OrderDate.Truncate(24 * time.Hour)
		age := int(today.Sub(day).Hours() / 24)
		if age < 0 || age >= revenueDays {
			continue
		}
		idx := revenueDays - 1 - age
		buckets[idx] = buckets[idx].Add(o.TotalAmount)
	}
	return buckets
}

// LatestOrders returns up to n orders, newest first.
func LatestOrders(orders []order.Order, n int) []order.Order {
	sorted := make([]order.Order, len(orders))
	copy(sorted, orders)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OrderDate.After(sorted[j].OrderDate)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Bestsellers returns the top n products by quantity sold. Products with no
// sales are excluded. Ties break by product id for a stable result.
func Bestsellers(lines []order.Line, products []product.Product, n int) []ProductSales {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	sold := make(map[string]int)
	for _, l := range lines {
		sold[l.ProductID] += l.Quantity
	}

	out := make([]ProductSales, 0, len(sold))
	for id, qty := range sold {
		out = append(out, ProductSales{ProductID: id, Name: names[id], Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// SalesByCategory attributes line revenue (price × quantity) to each
// category, in the categories' listing order. Categories with no sales are
// included with zero revenue.
func SalesByCategory(lines []order.Line, products []product.Product, categories []product.Category) []CategorySales {
	categoryOf := make(map[string]string, len(products))
	for _, p := range products {
		categoryOf[p.ID] = p.CategoryID
	}

	revenue := make(map[string]decimal.Decimal, len(categories))
	for _, l := range lines {
		catID, ok := categoryOf[l.ProductID]
		if !ok {
			continue
		}
		amount := l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		revenue[catID] = revenue[catID].Add(amount)
	}

	out := make([]CategorySales, len(categories))
	for i, c := range categories {
		r := revenue[c.ID]
		if r.IsZero() {
			r = decimal.Zero
		}
		out[i] = CategorySales{CategoryID: c.ID, Name: c.Name, Revenue: r}
	}
	return out
}
