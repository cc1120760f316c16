package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
	"github.com/Klienn77/pos-vendas-ecommerce/utils"

	"github.com/gin-gonic/gin"
)

// StatsSource produces dashboard-grade numbers. The live implementation
// aggregates the raw collections; the fixture implementation serves file
// or synthetic data and doubles as the fallback when live queries fail.
type StatsSource interface {
	Dashboard(ctx context.Context, days int) (*models.DashboardData, error)
	Trend(ctx context.Context, metric string, days int) (*models.TrendSeries, error)
	Public(ctx context.Context) (*models.PublicStats, error)
}

type StatsHandlers struct {
	Events   EventStore
	Primary  StatsSource
	Fallback StatsSource
}

func NewStatsHandlers(events EventStore, primary, fallback StatsSource) *StatsHandlers {
	return &StatsHandlers{Events: events, Primary: primary, Fallback: fallback}
}

// Overview handles GET /api/stats/overview: the funnel-adjacent totals
// plus conversion and cart abandonment rates. This endpoint reads the raw
// events directly and fails hard rather than degrading, so admins never
// mistake placeholder numbers for real ones here.
func (h *StatsHandlers) Overview(c *gin.Context) {
	start, end, ok := parseWindow(c, 30)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	counts := map[string]int64{}
	for _, eventType := range []string{
		models.EventPageView,
		models.EventProductView,
		models.EventAddToCart,
		models.EventCheckoutStart,
		models.EventCheckoutComplete,
	} {
		count, err := h.Events.CountType(ctx, eventType, start, end)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to compute overview statistics", err)
			return
		}
		counts[eventType] = count
	}
	total, err := h.Events.CountAll(ctx, start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to compute overview statistics", err)
		return
	}

	purchases := counts[models.EventCheckoutComplete]
	cartAdds := counts[models.EventAddToCart]

	stats := models.OverviewStats{
		StartDate:           start,
		EndDate:             end,
		TotalEvents:         total,
		PageViews:           counts[models.EventPageView],
		ProductViews:        counts[models.EventProductView],
		CartAdds:            cartAdds,
		CheckoutStarts:      counts[models.EventCheckoutStart],
		Purchases:           purchases,
		ConversionRate:      models.Percent(purchases, counts[models.EventProductView]),
		CartAbandonmentRate: models.Percent(cartAdds-purchases, cartAdds),
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// Dashboard handles GET /api/stats/dashboard. A primary source failure is
// not an outage for the admin panel: the response degrades to fallback
// data and says so.
func (h *StatsHandlers) Dashboard(c *gin.Context) {
	days := int(intQuery(c, "days", 30, 365))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	data, err := h.Primary.Dashboard(ctx, days)
	if err != nil {
		log.Printf("Dashboard source failed, serving fallback data: %v", err)
		data, err = h.Fallback.Dashboard(ctx, days)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to load dashboard data", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"degraded": true,
			"message":  "Statistics store unavailable; serving fallback data",
			"data":     data,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"degraded": false,
		"data":     data,
	})
}

// Trends handles GET /api/stats/trends?metric=visits&days=30 with the
// same degradation policy as the dashboard.
func (h *StatsHandlers) Trends(c *gin.Context) {
	metric := c.DefaultQuery("metric", "visits")
	if !utils.IsValidTrendMetric(metric) {
		respondError(c, http.StatusBadRequest, "Invalid 'metric'. Use visits, sales, revenue, conversion or users", nil)
		return
	}
	days := int(intQuery(c, "days", 30, 365))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	trend, err := h.Primary.Trend(ctx, metric, days)
	if err != nil {
		log.Printf("Trend source failed for %s, serving fallback data: %v", metric, err)
		trend, err = h.Fallback.Trend(ctx, metric, days)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to load trend data", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"degraded": true,
			"message":  "Statistics store unavailable; serving fallback data",
			"trend":    trend,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"degraded": false,
		"trend":    trend,
	})
}

// PublicStats handles GET /api/stats/public, the unauthenticated
// storefront counters.
func (h *StatsHandlers) PublicStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	stats, err := h.Primary.Public(ctx)
	if err != nil {
		log.Printf("Public stats source failed, serving fallback data: %v", err)
		stats, err = h.Fallback.Public(ctx)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to load public statistics", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"degraded": true,
			"stats":    stats,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"degraded": false,
		"stats":    stats,
	})
}
