// store/event_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/database"
	"github.com/Klienn77/pos-vendas-ecommerce/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventStore persists and aggregates behavioral events.
type EventStore struct {
	coll *mongo.Collection
}

func NewEventStore(db *database.MongoClient) *EventStore {
	s := &EventStore{coll: db.Collection("events")}
	s.ensureIndexes()
	return s
}

// ensureIndexes is best effort: a failure is logged, not fatal, since every
// query still works against an unindexed collection.
func (s *EventStore) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "eventType", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "sessionId", Value: 1}}},
	})
	if err != nil {
		log.Printf("Could not ensure event indexes: %v", err)
	}
}

// eventFilter builds the standard eventType plus timestamp window filter.
// Zero times leave that bound open.
func eventFilter(eventType string, start, end time.Time) bson.M {
	filter := bson.M{}
	if eventType != "" {
		filter["eventType"] = eventType
	}
	window := bson.M{}
	if !start.IsZero() {
		window["$gte"] = start
	}
	if !end.IsZero() {
		window["$lte"] = end
	}
	if len(window) > 0 {
		filter["timestamp"] = window
	}
	return filter
}

// Insert stores a single event and returns its generated id.
func (s *EventStore) Insert(ctx context.Context, event *models.Event) (string, error) {
	res, err := s.coll.InsertOne(ctx, event)
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// InsertBatch stores a batch of already validated events in one write.
func (s *EventStore) InsertBatch(ctx context.Context, events []*models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(events))
	for _, event := range events {
		docs = append(docs, event)
	}

	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		return len(res.InsertedIDs), fmt.Errorf("failed to insert event batch: %w", err)
	}

	log.Printf("Successfully inserted %d events.", len(res.InsertedIDs))
	return len(res.InsertedIDs), nil
}

// ListByType returns a page of events of one type, newest first, along
// with the total match count for pagination.
func (s *EventStore) ListByType(ctx context.Context, eventType string, start, end time.Time, page, limit int64) ([]models.Event, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	filter := eventFilter(eventType, start, end)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]models.Event, 0, limit)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, total, nil
}

// CountsByType groups all events in the window by type, most frequent
// first. The _id of each bucket is the event type.
func (s *EventStore) CountsByType(ctx context.Context, start, end time.Time) ([]models.EventTypeCount, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: eventFilter("", start, end)}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$eventType",
			"count": bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate event counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make([]models.EventTypeCount, 0)
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode event counts: %w", err)
	}
	return counts, nil
}

// CountType counts events of a single type inside the window.
func (s *EventStore) CountType(ctx context.Context, eventType string, start, end time.Time) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, eventFilter(eventType, start, end))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s events: %w", eventType, err)
	}
	return count, nil
}

// CountAll counts every event inside the window.
func (s *EventStore) CountAll(ctx context.Context, start, end time.Time) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, eventFilter("", start, end))
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// CountDistinctSessions counts the distinct session ids seen in the window.
func (s *EventStore) CountDistinctSessions(ctx context.Context, start, end time.Time) (int64, error) {
	sessions, err := s.coll.Distinct(ctx, "sessionId", eventFilter("", start, end))
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct sessions: %w", err)
	}
	return int64(len(sessions)), nil
}

// MostViewedProducts ranks products by product_view events in the window.
// Events without a productId in their payload are skipped.
func (s *EventStore) MostViewedProducts(ctx context.Context, start, end time.Time, limit int64) ([]models.ProductViewCount, error) {
	if limit < 1 {
		limit = 10
	}

	match := eventFilter(models.EventProductView, start, end)
	match["eventData.productId"] = bson.M{"$exists": true, "$nin": bson.A{nil, ""}}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":         "$eventData.productId",
			"productName": bson.M{"$first": "$eventData.productName"},
			"count":       bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate most viewed products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.ProductViewCount, 0, limit)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode most viewed products: %w", err)
	}
	return products, nil
}

// dayCount is the decode target of the per-day aggregations.
type dayCount struct {
	Date  string `bson:"_id"`
	Count int64  `bson:"count"`
}

// CountsByDay buckets events of one type (or all types when eventType is
// empty) into daily counts, oldest day first.
func (s *EventStore) CountsByDay(ctx context.Context, eventType string, start, end time.Time) ([]models.TrendPoint, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: eventFilter(eventType, start, end)}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$timestamp"}},
			"count": bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	return s.aggregateDays(ctx, pipeline)
}

// SessionsByDay buckets distinct session ids into daily counts.
func (s *EventStore) SessionsByDay(ctx context.Context, start, end time.Time) ([]models.TrendPoint, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: eventFilter("", start, end)}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":      bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$timestamp"}},
			"sessions": bson.M{"$addToSet": "$sessionId"},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"count": bson.M{"$size": "$sessions"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	return s.aggregateDays(ctx, pipeline)
}

func (s *EventStore) aggregateDays(ctx context.Context, pipeline mongo.Pipeline) ([]models.TrendPoint, error) {
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily counts: %w", err)
	}
	defer cursor.Close(ctx)

	var days []dayCount
	if err := cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode daily counts: %w", err)
	}

	points := make([]models.TrendPoint, 0, len(days))
	for _, d := range days {
		points = append(points, models.TrendPoint{Date: d.Date, Value: float64(d.Count)})
	}
	return points, nil
}

// DeviceCounts classifies events in the window by user agent. Tablets are
// matched before phones since tablet agents usually carry both markers.
func (s *EventStore) DeviceCounts(ctx context.Context, start, end time.Time) (mobile, tablet, total int64, err error) {
	total, err = s.coll.CountDocuments(ctx, eventFilter("", start, end))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count events for device usage: %w", err)
	}

	tabletFilter := eventFilter("", start, end)
	tabletFilter["userAgent"] = bson.M{"$regex": primitive.Regex{Pattern: "Tablet|iPad", Options: "i"}}
	tablet, err = s.coll.CountDocuments(ctx, tabletFilter)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count tablet events: %w", err)
	}

	mobileFilter := eventFilter("", start, end)
	mobileFilter["userAgent"] = bson.M{"$regex": primitive.Regex{Pattern: "Mobi|Android", Options: "i"}}
	mobileFilter["$nor"] = bson.A{bson.M{"userAgent": bson.M{"$regex": primitive.Regex{Pattern: "Tablet|iPad", Options: "i"}}}}
	mobile, err = s.coll.CountDocuments(ctx, mobileFilter)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count mobile events: %w", err)
	}

	return mobile, tablet, total, nil
}
