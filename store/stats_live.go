package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
)

// LiveStatsSource computes dashboard numbers from the raw collections on
// every call. Nothing is cached; that keeps the numbers honest at the cost
// of a handful of queries per request.
type LiveStatsSource struct {
	events   *EventStore
	products *ProductStore
	orders   *OrderStore
}

func NewLiveStatsSource(events *EventStore, products *ProductStore, orders *OrderStore) *LiveStatsSource {
	return &LiveStatsSource{events: events, products: products, orders: orders}
}

// windowDays converts a day count into a concrete [start, end] window
// ending now.
func windowDays(days int) (time.Time, time.Time) {
	if days < 1 {
		days = 30
	}
	end := time.Now().UTC()
	return end.AddDate(0, 0, -days), end
}

// fillDays expands a sparse daily series to one point per calendar day in
// the window, zero-filling days without data.
func fillDays(points []models.TrendPoint, start, end time.Time) []models.TrendPoint {
	byDate := make(map[string]float64, len(points))
	for _, p := range points {
		byDate[p.Date] = p.Value
	}

	out := make([]models.TrendPoint, 0)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(last) {
		key := day.Format("2006-01-02")
		out = append(out, models.TrendPoint{Date: key, Value: byDate[key]})
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func (s *LiveStatsSource) Dashboard(ctx context.Context, days int) (*models.DashboardData, error) {
	start, end := windowDays(days)

	visits, err := s.events.CountType(ctx, models.EventPageView, start, end)
	if err != nil {
		return nil, err
	}
	sessions, err := s.events.CountDistinctSessions(ctx, start, end)
	if err != nil {
		return nil, err
	}
	productViews, err := s.events.CountType(ctx, models.EventProductView, start, end)
	if err != nil {
		return nil, err
	}
	purchases, err := s.events.CountType(ctx, models.EventCheckoutComplete, start, end)
	if err != nil {
		return nil, err
	}
	orderCount, err := s.orders.Count(ctx, start, end)
	if err != nil {
		return nil, err
	}
	revenue, err := s.orders.Revenue(ctx, start, end)
	if err != nil {
		return nil, err
	}

	avgOrderValue := 0.0
	if orderCount > 0 {
		avgOrderValue = math.Round(revenue/float64(orderCount)*100) / 100
	}

	salesTrend, err := s.orders.SalesByDay(ctx, start, end)
	if err != nil {
		return nil, err
	}
	visitsTrend, err := s.events.CountsByDay(ctx, models.EventPageView, start, end)
	if err != nil {
		return nil, err
	}

	mobile, tablet, total, err := s.events.DeviceCounts(ctx, start, end)
	if err != nil {
		return nil, err
	}
	desktop := total - mobile - tablet
	deviceUsage := models.NormalizePercentages(map[string]float64{
		"desktop": float64(desktop),
		"mobile":  float64(mobile),
		"tablet":  float64(tablet),
	})

	topProducts, err := s.events.MostViewedProducts(ctx, start, end, 5)
	if err != nil {
		return nil, err
	}

	return &models.DashboardData{
		Source: "live",
		Summary: models.DashboardSummary{
			TotalVisits:    visits,
			UniqueSessions: sessions,
			TotalOrders:    orderCount,
			TotalRevenue:   revenue,
			ConversionRate: models.Percent(purchases, productViews),
			AvgOrderValue:  avgOrderValue,
		},
		SalesTrend:  fillDays(salesTrend, start, end),
		VisitsTrend: fillDays(visitsTrend, start, end),
		DeviceUsage: deviceUsage,
		TopProducts: topProducts,
	}, nil
}

func (s *LiveStatsSource) Trend(ctx context.Context, metric string, days int) (*models.TrendSeries, error) {
	start, end := windowDays(days)

	var points []models.TrendPoint
	var err error
	switch metric {
	case "visits":
		points, err = s.events.CountsByDay(ctx, models.EventPageView, start, end)
	case "sales":
		points, err = s.orders.SalesByDay(ctx, start, end)
	case "revenue":
		points, err = s.orders.RevenueByDay(ctx, start, end)
	case "users":
		points, err = s.events.SessionsByDay(ctx, start, end)
	case "conversion":
		points, err = s.conversionByDay(ctx, start, end)
	default:
		return nil, fmt.Errorf("unknown trend metric %q", metric)
	}
	if err != nil {
		return nil, err
	}

	if days < 1 {
		days = 30
	}
	return &models.TrendSeries{Metric: metric, Days: days, Points: fillDays(points, start, end)}, nil
}

// conversionByDay divides daily checkout completions by daily product
// views. Days without views read as 0.
func (s *LiveStatsSource) conversionByDay(ctx context.Context, start, end time.Time) ([]models.TrendPoint, error) {
	views, err := s.events.CountsByDay(ctx, models.EventProductView, start, end)
	if err != nil {
		return nil, err
	}
	purchases, err := s.events.CountsByDay(ctx, models.EventCheckoutComplete, start, end)
	if err != nil {
		return nil, err
	}

	purchasesBy := make(map[string]float64, len(purchases))
	for _, p := range purchases {
		purchasesBy[p.Date] = p.Value
	}

	points := make([]models.TrendPoint, 0, len(views))
	for _, v := range views {
		points = append(points, models.TrendPoint{
			Date:  v.Date,
			Value: models.Percent(int64(purchasesBy[v.Date]), int64(v.Value)),
		})
	}
	return points, nil
}

func (s *LiveStatsSource) Public(ctx context.Context) (*models.PublicStats, error) {
	activeProducts, err := s.products.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	delivered, err := s.orders.CountByStatus(ctx, models.OrderStatusDelivered)
	if err != nil {
		return nil, err
	}
	avgRating, err := s.products.AverageRatingAcross(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := s.events.CountDistinctSessions(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	return &models.PublicStats{
		ActiveProducts:  activeProducts,
		DeliveredOrders: delivered,
		AverageRating:   avgRating,
		TrackedSessions: sessions,
	}, nil
}
