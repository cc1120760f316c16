// handlers/log_handlers.go
package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/models"

	"github.com/gin-gonic/gin"
)

// EventStore is what the log and stats handlers need from the persistence
// layer. The mongo-backed store satisfies it; tests plug in fakes.
type EventStore interface {
	Insert(ctx context.Context, event *models.Event) (string, error)
	InsertBatch(ctx context.Context, events []*models.Event) (int, error)
	ListByType(ctx context.Context, eventType string, start, end time.Time, page, limit int64) ([]models.Event, int64, error)
	CountsByType(ctx context.Context, start, end time.Time) ([]models.EventTypeCount, error)
	CountType(ctx context.Context, eventType string, start, end time.Time) (int64, error)
	CountAll(ctx context.Context, start, end time.Time) (int64, error)
	MostViewedProducts(ctx context.Context, start, end time.Time, limit int64) ([]models.ProductViewCount, error)
}

type LogHandlers struct {
	Events EventStore
}

func NewLogHandlers(events EventStore) *LogHandlers {
	return &LogHandlers{Events: events}
}

// IngestEvent handles POST /api/logs/event, the unauthenticated endpoint
// the storefront reports into. Identity is derived, never trusted from a
// token: userId as sent, or "anonymous".
func (h *LogHandlers) IngestEvent(c *gin.Context) {
	var req models.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding incoming event JSON: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if req.EventType == "" || req.SessionID == "" || req.EventData == nil {
		respondError(c, http.StatusBadRequest, "eventType, sessionId and eventData are required", nil)
		return
	}
	if err := models.ValidateEventData(req.EventType, req.EventData); err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if !models.IsKnownEventType(req.EventType) {
		log.Printf("Accepting unknown event type %q", req.EventType)
	}

	event := &models.Event{
		EventType:       req.EventType,
		UserID:          req.UserID,
		IsAuthenticated: req.UserID != "",
		SessionID:       req.SessionID,
		EventData:       req.EventData,
		UserAgent:       c.Request.UserAgent(),
		IPAddress:       c.ClientIP(),
		PageURL:         req.PageURL,
		Referrer:        req.Referrer,
		Timestamp:       time.Now().UTC(),
	}
	if event.UserID == "" {
		event.UserID = models.AnonymousUser
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	id, err := h.Events.Insert(ctx, event)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to record event", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Event logged",
		"event":   gin.H{"id": id},
	})
}

// IngestBatch handles POST /api/logs/batch, the tracker client's flush
// target. Items are validated one by one; bad items are dropped, good
// ones stored, and the response reports both counts.
func (h *LogHandlers) IngestBatch(c *gin.Context) {
	var items []models.BatchEventItem
	if err := c.ShouldBindJSON(&items); err != nil {
		log.Printf("Error binding incoming batch JSON: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if len(items) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "inserted": 0, "rejected": 0})
		return
	}

	now := time.Now().UTC()
	events := make([]*models.Event, 0, len(items))
	rejected := 0
	for _, item := range items {
		if item.EventType == "" || item.SessionID == "" || item.Data == nil {
			rejected++
			continue
		}
		if err := models.ValidateEventData(item.EventType, item.Data); err != nil {
			log.Printf("Dropping invalid %s event from batch: %v", item.EventType, err)
			rejected++
			continue
		}

		event := &models.Event{
			EventType:       item.EventType,
			UserID:          item.UserID,
			IsAuthenticated: item.UserID != "",
			SessionID:       item.SessionID,
			EventData:       item.Data,
			UserAgent:       item.UserAgent,
			IPAddress:       c.ClientIP(),
			PageURL:         item.URL,
			Timestamp:       item.Timestamp,
		}
		if event.UserID == "" {
			event.UserID = models.AnonymousUser
		}
		if event.UserAgent == "" {
			event.UserAgent = c.Request.UserAgent()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = now
		}
		events = append(events, event)
	}

	inserted := 0
	if len(events) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		n, err := h.Events.InsertBatch(ctx, events)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to record events", err)
			return
		}
		inserted = n
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"inserted": inserted,
		"rejected": rejected,
	})
}

// EventsByType handles GET /api/logs/events/:type with pagination, newest
// first, over a default trailing week.
func (h *LogHandlers) EventsByType(c *gin.Context) {
	eventType := c.Param("type")
	if eventType == "" {
		respondError(c, http.StatusBadRequest, "Event type is required", nil)
		return
	}

	start, end, ok := parseWindow(c, 7)
	if !ok {
		return
	}
	page := intQuery(c, "page", 1, 0)
	limit := intQuery(c, "limit", 50, 500)

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	events, total, err := h.Events.ListByType(ctx, eventType, start, end, page, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to retrieve events", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"events":     events,
		"pagination": pagination(page, limit, total),
	})
}

// EventCounts handles GET /api/logs/counts: events per type in the
// window, most frequent first.
func (h *LogHandlers) EventCounts(c *gin.Context) {
	start, end, ok := parseWindow(c, 30)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	counts, err := h.Events.CountsByType(ctx, start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to retrieve event counts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"counts":    counts,
		"startDate": start.Format(time.RFC3339),
		"endDate":   end.Format(time.RFC3339),
	})
}

// MostViewed handles GET /api/logs/most-viewed: the products with the
// most product_view events in the window.
func (h *LogHandlers) MostViewed(c *gin.Context) {
	start, end, ok := parseWindow(c, 30)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 10, 100)

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	products, err := h.Events.MostViewedProducts(ctx, start, end, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to retrieve most viewed products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": products,
	})
}

// Funnel handles GET /api/logs/funnel. Each stage is counted with its own
// query; conversions divide adjacent stages and survive empty stages as 0.
func (h *LogHandlers) Funnel(c *gin.Context) {
	start, end, ok := parseWindow(c, 30)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	stages := make([]models.FunnelStage, 0, len(models.FunnelStages))
	for _, stage := range models.FunnelStages {
		count, err := h.Events.CountType(ctx, stage, start, end)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to compute funnel statistics", err)
			return
		}
		stages = append(stages, models.FunnelStage{Stage: stage, Count: count})
	}

	conversions := make([]models.StageConversion, 0, len(stages)-1)
	for i := 1; i < len(stages); i++ {
		conversions = append(conversions, models.StageConversion{
			From: stages[i-1].Stage,
			To:   stages[i].Stage,
			Rate: models.Percent(stages[i].Count, stages[i-1].Count),
		})
	}

	funnel := models.FunnelStats{
		StartDate:         start,
		EndDate:           end,
		Stages:            stages,
		Conversions:       conversions,
		OverallConversion: models.Percent(stages[len(stages)-1].Count, stages[0].Count),
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"funnel":  funnel,
	})
}
