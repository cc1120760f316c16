package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
)

// trendBases are the daily baseline magnitudes of the synthetic series.
var trendBases = map[string]float64{
	"visits":     1200,
	"sales":      45,
	"revenue":    5200,
	"conversion": 2.8,
	"users":      320,
}

// FixtureStatsSource serves dashboard numbers from a JSON fixture file,
// generating plausible synthetic data for anything the file does not
// provide. It backs demo deployments and acts as the fallback when the
// live source fails.
type FixtureStatsSource struct {
	path string
	seed int64
}

// NewFixtureStatsSource reads from the fixture at path. A zero seed means
// fresh randomness per call; tests pass a fixed seed.
func NewFixtureStatsSource(path string, seed int64) *FixtureStatsSource {
	return &FixtureStatsSource{path: path, seed: seed}
}

// fixtureFile is the on-disk fixture shape. Every section is optional.
type fixtureFile struct {
	Dashboard *models.DashboardData          `json:"dashboard"`
	Trends    map[string][]models.TrendPoint `json:"trends"`
	Public    *models.PublicStats            `json:"public"`
}

func (s *FixtureStatsSource) load() (*fixtureFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	f := &fixtureFile{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", s.path, err)
	}
	return f, nil
}

func (s *FixtureStatsSource) rng() *rand.Rand {
	seed := s.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// logLoadError keeps quiet about a missing file, which is a supported
// setup, but reports unreadable or malformed fixtures.
func logLoadError(err error) {
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Fixture unusable, generating synthetic data instead: %v", err)
	}
}

func (s *FixtureStatsSource) Dashboard(_ context.Context, days int) (*models.DashboardData, error) {
	f, err := s.load()
	if err == nil && f.Dashboard != nil {
		d := *f.Dashboard
		if d.Source == "" {
			d.Source = "fixture"
		}
		return &d, nil
	}
	logLoadError(err)
	return GenerateDashboard(s.rng(), days), nil
}

func (s *FixtureStatsSource) Trend(_ context.Context, metric string, days int) (*models.TrendSeries, error) {
	f, err := s.load()
	if err == nil {
		if points, ok := f.Trends[metric]; ok && len(points) > 0 {
			return &models.TrendSeries{Metric: metric, Days: len(points), Points: points}, nil
		}
	}
	logLoadError(err)
	return GenerateTrend(s.rng(), metric, days), nil
}

func (s *FixtureStatsSource) Public(_ context.Context) (*models.PublicStats, error) {
	f, err := s.load()
	if err == nil && f.Public != nil {
		return f.Public, nil
	}
	logLoadError(err)

	// Stable placeholder numbers for the storefront counters.
	return &models.PublicStats{
		ActiveProducts:  24,
		DeliveredOrders: 183,
		AverageRating:   4.6,
		TrackedSessions: 12480,
	}, nil
}

// weekdayFactor shapes the weekly rhythm: weekends run hotter, Mondays
// slower.
func weekdayFactor(d time.Weekday) float64 {
	switch d {
	case time.Saturday, time.Sunday:
		return 1.3
	case time.Monday:
		return 0.7
	default:
		return 1.0
	}
}

// noise returns a uniform factor in [0.85, 1.15].
func noise(rng *rand.Rand) float64 {
	return 1 + (rng.Float64()*2-1)*0.15
}

// GenerateTrend builds a synthetic daily series for the metric, ending
// today. Count-like metrics are rounded to whole numbers, money and rates
// to two decimals.
func GenerateTrend(rng *rand.Rand, metric string, days int) *models.TrendSeries {
	if days < 1 {
		days = 30
	}
	base, ok := trendBases[metric]
	if !ok {
		base = 100
	}

	today := time.Now().UTC()
	points := make([]models.TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		value := base * weekdayFactor(day.Weekday()) * noise(rng)
		if metric == "revenue" || metric == "conversion" {
			value = math.Round(value*100) / 100
		} else {
			value = math.Round(value)
		}
		points = append(points, models.TrendPoint{Date: day.Format("2006-01-02"), Value: value})
	}

	return &models.TrendSeries{Metric: metric, Days: days, Points: points}
}

// GenerateDeviceUsage builds a jittered device split that always sums to
// 100 percent.
func GenerateDeviceUsage(rng *rand.Rand) map[string]float64 {
	return models.NormalizePercentages(map[string]float64{
		"desktop": 55 * noise(rng),
		"mobile":  35 * noise(rng),
		"tablet":  10 * noise(rng),
	})
}

// GenerateDashboard builds a full synthetic dashboard whose summary is
// consistent with its own trend series.
func GenerateDashboard(rng *rand.Rand, days int) *models.DashboardData {
	if days < 1 {
		days = 30
	}

	visits := GenerateTrend(rng, "visits", days)
	sales := GenerateTrend(rng, "sales", days)

	var totalVisits, totalOrders float64
	for _, p := range visits.Points {
		totalVisits += p.Value
	}
	for _, p := range sales.Points {
		totalOrders += p.Value
	}

	revenue := math.Round(totalOrders*115*noise(rng)*100) / 100
	conversionRate := 0.0
	if totalVisits > 0 {
		conversionRate = math.Round(totalOrders/totalVisits*10000) / 100
	}
	avgOrderValue := 0.0
	if totalOrders > 0 {
		avgOrderValue = math.Round(revenue/totalOrders*100) / 100
	}

	sampleProducts := []models.ProductViewCount{
		{ProductID: "fixture-sofa-modular", ProductName: "Sofá Modular"},
		{ProductID: "fixture-poltrona", ProductName: "Poltrona Reclinável"},
		{ProductID: "fixture-mesa-centro", ProductName: "Mesa de Centro"},
		{ProductID: "fixture-luminaria", ProductName: "Luminária Pendente"},
		{ProductID: "fixture-estante", ProductName: "Estante Industrial"},
	}
	viewBase := 320.0
	for i := range sampleProducts {
		sampleProducts[i].Count = int64(math.Round(viewBase * noise(rng)))
		viewBase *= 0.78
	}

	return &models.DashboardData{
		Source: "generated",
		Summary: models.DashboardSummary{
			TotalVisits:    int64(totalVisits),
			UniqueSessions: int64(math.Round(totalVisits * 0.42)),
			TotalOrders:    int64(totalOrders),
			TotalRevenue:   revenue,
			ConversionRate: conversionRate,
			AvgOrderValue:  avgOrderValue,
		},
		SalesTrend:  sales.Points,
		VisitsTrend: visits.Points,
		DeviceUsage: GenerateDeviceUsage(rng),
		TopProducts: sampleProducts,
	}
}
