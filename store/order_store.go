package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/database"
	"github.com/Klienn77/pos-vendas-ecommerce/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(db *database.MongoClient) *OrderStore {
	return &OrderStore{coll: db.Collection("orders")}
}

// NewOrderNumber builds a human readable order reference.
func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.New().String()[:8])
}

// createdWindow filters orders by creation time. Zero times leave that
// bound open.
func createdWindow(start, end time.Time) bson.M {
	filter := bson.M{}
	window := bson.M{}
	if !start.IsZero() {
		window["$gte"] = start
	}
	if !end.IsZero() {
		window["$lte"] = end
	}
	if len(window) > 0 {
		filter["createdAt"] = window
	}
	return filter
}

// Create inserts a new order, generating the order number when the caller
// did not set one.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.OrderNumber == "" {
		order.OrderNumber = NewOrderNumber()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}

	res, err := s.coll.InsertOne(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = oid
	}
	return order, nil
}

// List returns a page of orders, newest first, optionally narrowed to one
// status, plus the total match count.
func (s *OrderStore) List(ctx context.Context, q models.OrderQuery) ([]models.Order, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}

	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0, q.Limit)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}

	return orders, total, nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	order := &models.Order{}
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// Update applies the non-nil fields and returns the updated document.
func (s *OrderStore) Update(ctx context.Context, id string, upd models.OrderUpdate) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.CustomerName != nil {
		set["customerName"] = *upd.CustomerName
	}
	if upd.CustomerEmail != nil {
		set["customerEmail"] = *upd.CustomerEmail
	}
	if upd.Items != nil {
		set["items"] = *upd.Items
	}
	if upd.TotalAmount != nil {
		set["totalAmount"] = *upd.TotalAmount
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}

	order := &models.Order{}
	err = s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return order, nil
}

func (s *OrderStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return ErrOrderNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Count counts orders created inside the window.
func (s *OrderStore) Count(ctx context.Context, start, end time.Time) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, createdWindow(start, end))
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// CountByStatus counts all orders currently in the given status.
func (s *OrderStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s orders: %w", status, err)
	}
	return count, nil
}

// Revenue sums the order totals inside the window, excluding cancelled
// orders, rounded to cents.
func (s *OrderStore) Revenue(ctx context.Context, start, end time.Time) (float64, error) {
	match := createdWindow(start, end)
	match["status"] = bson.M{"$ne": models.OrderStatusCancelled}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$totalAmount"},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode revenue: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return math.Round(result[0].Total*100) / 100, nil
}

// SalesByDay buckets non-cancelled orders into daily counts, oldest first.
func (s *OrderStore) SalesByDay(ctx context.Context, start, end time.Time) ([]models.TrendPoint, error) {
	return s.aggregateDays(ctx, start, end, bson.M{"$sum": 1})
}

// RevenueByDay buckets non-cancelled order totals into daily sums.
func (s *OrderStore) RevenueByDay(ctx context.Context, start, end time.Time) ([]models.TrendPoint, error) {
	return s.aggregateDays(ctx, start, end, bson.M{"$sum": "$totalAmount"})
}

func (s *OrderStore) aggregateDays(ctx context.Context, start, end time.Time, accumulator bson.M) ([]models.TrendPoint, error) {
	match := createdWindow(start, end)
	match["status"] = bson.M{"$ne": models.OrderStatusCancelled}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"value": accumulator,
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily orders: %w", err)
	}
	defer cursor.Close(ctx)

	var days []struct {
		Date  string  `bson:"_id"`
		Value float64 `bson:"value"`
	}
	if err := cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode daily orders: %w", err)
	}

	points := make([]models.TrendPoint, 0, len(days))
	for _, d := range days {
		points = append(points, models.TrendPoint{Date: d.Date, Value: math.Round(d.Value*100) / 100})
	}
	return points, nil
}
