package models

import (
	"math"
	"time"
)

// OverviewStats is the response of the overview endpoint: raw counts over
// the requested window plus the two derived rates.
type OverviewStats struct {
	StartDate           time.Time `json:"startDate"`
	EndDate             time.Time `json:"endDate"`
	TotalEvents         int64     `json:"totalEvents"`
	PageViews           int64     `json:"pageViews"`
	ProductViews        int64     `json:"productViews"`
	CartAdds            int64     `json:"cartAdds"`
	CheckoutStarts      int64     `json:"checkoutStarts"`
	Purchases           int64     `json:"purchases"`
	ConversionRate      float64   `json:"conversionRate"`
	CartAbandonmentRate float64   `json:"cartAbandonmentRate"`
}

// FunnelStage is one step of the purchase funnel with its event count.
type FunnelStage struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}

// StageConversion is the percentage of events that survived from one
// funnel stage to the next.
type StageConversion struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// FunnelStats is the response of the funnel endpoint.
type FunnelStats struct {
	StartDate         time.Time         `json:"startDate"`
	EndDate           time.Time         `json:"endDate"`
	Stages            []FunnelStage     `json:"stages"`
	Conversions       []StageConversion `json:"conversions"`
	OverallConversion float64           `json:"overallConversion"`
}

// TrendPoint is one day of a trend series. Date is formatted YYYY-MM-DD.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrendSeries is a named daily series covering the requested number of
// days, oldest first.
type TrendSeries struct {
	Metric string       `json:"metric"`
	Days   int          `json:"days"`
	Points []TrendPoint `json:"points"`
}

// DashboardSummary holds the headline numbers of the admin dashboard.
type DashboardSummary struct {
	TotalVisits    int64   `json:"totalVisits"`
	UniqueSessions int64   `json:"uniqueSessions"`
	TotalOrders    int64   `json:"totalOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
	ConversionRate float64 `json:"conversionRate"`
	AvgOrderValue  float64 `json:"avgOrderValue"`
}

// DashboardData is the full dashboard payload. Source says where the
// numbers came from: "live" for aggregated events, "fixture" for data read
// from the fixture file, "generated" for synthetic fallback data.
type DashboardData struct {
	Source      string             `json:"source"`
	Summary     DashboardSummary   `json:"summary"`
	SalesTrend  []TrendPoint       `json:"salesTrend"`
	VisitsTrend []TrendPoint       `json:"visitsTrend"`
	DeviceUsage map[string]float64 `json:"deviceUsage"`
	TopProducts []ProductViewCount `json:"topProducts"`
}

// PublicStats is the unauthenticated storefront counter set.
type PublicStats struct {
	ActiveProducts  int64   `json:"activeProducts"`
	DeliveredOrders int64   `json:"deliveredOrders"`
	AverageRating   float64 `json:"averageRating"`
	TrackedSessions int64   `json:"trackedSessions"`
}

// Percent returns part/total as a percentage rounded to two decimals. A
// zero total yields 0 rather than NaN.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// NormalizePercentages rescales the values so they sum to exactly 100.0
// with one decimal per entry, distributing the rounding remainder onto the
// largest bucket. All-zero input is returned unchanged.
func NormalizePercentages(values map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		return values
	}

	out := make(map[string]float64, len(values))
	var rounded float64
	largestKey := ""
	largestVal := math.Inf(-1)
	for k, v := range values {
		p := math.Round(v/sum*1000) / 10
		out[k] = p
		rounded += p
		if v > largestVal {
			largestVal = v
			largestKey = k
		}
	}

	// Push the residue onto the largest bucket so the total stays 100.0.
	if diff := math.Round((100-rounded)*10) / 10; diff != 0 && largestKey != "" {
		out[largestKey] = math.Round((out[largestKey]+diff)*10) / 10
	}
	return out
}
