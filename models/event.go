// models/event.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnonymousUser is stored as userId whenever an event arrives without one.
const AnonymousUser = "anonymous"

// Known event types. Unknown types are still accepted and stored so that
// new frontend instrumentation does not require a backend release.
const (
	EventPageView         = "page_view"
	EventProductView      = "product_view"
	EventProductCustomize = "product_customize"
	EventAddToCart        = "add_to_cart"
	EventRemoveFromCart   = "remove_from_cart"
	EventCheckoutStart    = "checkout_start"
	EventCheckoutComplete = "checkout_complete"
	EventPurchase         = "purchase"
	EventError            = "error"
)

// FunnelStages lists the purchase funnel in order, first touch to conversion.
var FunnelStages = []string{
	EventProductView,
	EventProductCustomize,
	EventAddToCart,
	EventCheckoutStart,
	EventCheckoutComplete,
}

// Event is a single behavioral log entry as persisted in the events
// collection. Field names mirror the frontend payloads, hence the camelCase
// bson tags.
type Event struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	EventType       string             `bson:"eventType" json:"eventType"`
	UserID          string             `bson:"userId" json:"userId"`
	IsAuthenticated bool               `bson:"isAuthenticated" json:"isAuthenticated"`
	SessionID       string             `bson:"sessionId" json:"sessionId"`
	EventData       map[string]any     `bson:"eventData" json:"eventData"`
	UserAgent       string             `bson:"userAgent" json:"userAgent"`
	IPAddress       string             `bson:"ipAddress" json:"ipAddress"`
	PageURL         string             `bson:"pageUrl" json:"pageUrl"`
	Referrer        string             `bson:"referrer" json:"referrer"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
}

// IngestEventRequest is the body of POST /api/logs/event.
type IngestEventRequest struct {
	EventType string         `json:"eventType"`
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId"`
	EventData map[string]any `json:"eventData"`
	PageURL   string         `json:"pageUrl"`
	Referrer  string         `json:"referrer"`
}

// BatchEventItem is one entry of POST /api/logs/batch. Its shape matches
// what the tracker client queues, which differs slightly from the single
// event endpoint (data/url instead of eventData/pageUrl, plus timestamp
// and severity captured at log time).
type BatchEventItem struct {
	EventType string         `json:"eventType"`
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  string         `json:"severity"`
	Data      map[string]any `json:"data"`
	URL       string         `json:"url"`
	UserAgent string         `json:"userAgent"`
}

// EventTypeCount is one bucket of the counts-by-type aggregation. The _id
// key is kept in the JSON shape because it is the grouping key coming out
// of the pipeline and the dashboard consumes it as such.
type EventTypeCount struct {
	EventType string `bson:"_id" json:"_id"`
	Count     int64  `bson:"count" json:"count"`
}

// ProductViewCount is one bucket of the most-viewed-products aggregation.
type ProductViewCount struct {
	ProductID   string `bson:"_id" json:"productId"`
	ProductName string `bson:"productName" json:"productName"`
	Count       int64  `bson:"count" json:"count"`
}

// payloadRule describes what a given event type requires inside eventData.
// requiredStrings must be present as non-empty strings. numericMins apply
// only when the field is present.
type payloadRule struct {
	requiredStrings []string
	numericMins     map[string]float64
}

var payloadRules = map[string]payloadRule{
	EventPageView:         {},
	EventProductView:      {requiredStrings: []string{"productId"}},
	EventProductCustomize: {requiredStrings: []string{"productId"}},
	EventAddToCart:        {requiredStrings: []string{"productId"}, numericMins: map[string]float64{"quantity": 1}},
	EventRemoveFromCart:   {requiredStrings: []string{"productId"}, numericMins: map[string]float64{"quantity": 1}},
	EventCheckoutStart:    {numericMins: map[string]float64{"cartValue": 0}},
	EventCheckoutComplete: {numericMins: map[string]float64{"amount": 0}},
	EventPurchase:         {numericMins: map[string]float64{"amount": 0}},
	EventError:            {requiredStrings: []string{"message"}},
}

// IsKnownEventType reports whether the type has a validation rule, i.e.
// whether the frontend instrumentation for it is known to this backend.
func IsKnownEventType(eventType string) bool {
	_, ok := payloadRules[eventType]
	return ok
}

// ValidateEventData checks eventData against the rules for the given event
// type. A nil map is always rejected; an empty map is fine for types with
// no required fields. Unknown event types only get the presence check.
func ValidateEventData(eventType string, data map[string]any) error {
	if data == nil {
		return fmt.Errorf("eventData is required")
	}

	rule, known := payloadRules[eventType]
	if !known {
		return nil
	}

	for _, key := range rule.requiredStrings {
		s, ok := data[key].(string)
		if !ok || s == "" {
			return fmt.Errorf("eventData.%s must be a non-empty string for %s events", key, eventType)
		}
	}

	for key, min := range rule.numericMins {
		raw, present := data[key]
		if !present {
			continue
		}
		n, ok := toFloat(raw)
		if !ok {
			return fmt.Errorf("eventData.%s must be a number for %s events", key, eventType)
		}
		if n < min {
			return fmt.Errorf("eventData.%s must be at least %g for %s events", key, min, eventType)
		}
	}

	return nil
}

// toFloat widens the numeric types a decoded JSON body or a Go caller may
// hand us. JSON numbers always arrive as float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
