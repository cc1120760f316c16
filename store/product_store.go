package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/database"
	"github.com/Klienn77/pos-vendas-ecommerce/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrProductNotFound = errors.New("product not found")

type ProductStore struct {
	coll *mongo.Collection
}

func NewProductStore(db *database.MongoClient) *ProductStore {
	return &ProductStore{coll: db.Collection("products")}
}

// Create inserts a new product. Slice fields are normalized to empty
// slices so responses encode them as [] and the derived rating is set.
func (s *ProductStore) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.AverageRating = models.AverageRating(product.Ratings)
	if product.Images == nil {
		product.Images = []string{}
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	if product.Ratings == nil {
		product.Ratings = []models.Rating{}
	}

	res, err := s.coll.InsertOne(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = oid
	}
	return product, nil
}

// List returns a page of products plus the total match count. Search is a
// case insensitive substring match over name, description and tags.
func (s *ProductStore) List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
		q.SortDesc = true
	}

	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = []bson.M{
			{"name": re},
			{"description": re},
			{"tags": re},
		}
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	order := 1
	if q.SortDesc {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: q.SortBy, Value: order}}).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0, q.Limit)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, total, nil
}

func (s *ProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, ErrProductNotFound
	}

	product := &models.Product{}
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// Update applies the non-nil fields and returns the updated document. When
// the ratings change, the average rating is recomputed in the same write.
func (s *ProductStore) Update(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, ErrProductNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Subcategory != nil {
		set["subcategory"] = *upd.Subcategory
	}
	if upd.Images != nil {
		set["images"] = *upd.Images
	}
	if upd.Model3DURL != nil {
		set["model3dUrl"] = *upd.Model3DURL
	}
	if upd.Has3DModel != nil {
		set["has3dModel"] = *upd.Has3DModel
	}
	if upd.CustomizationOptions != nil {
		set["customizationOptions"] = *upd.CustomizationOptions
	}
	if upd.Stock != nil {
		set["stock"] = *upd.Stock
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	if upd.IsFeatured != nil {
		set["isFeatured"] = *upd.IsFeatured
	}
	if upd.Tags != nil {
		set["tags"] = *upd.Tags
	}
	if upd.Ratings != nil {
		set["ratings"] = *upd.Ratings
		set["averageRating"] = models.AverageRating(*upd.Ratings)
	}

	product := &models.Product{}
	err = s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return ErrProductNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// CountActive counts the products currently visible in the storefront.
func (s *ProductStore) CountActive(ctx context.Context) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return 0, fmt.Errorf("failed to count active products: %w", err)
	}
	return count, nil
}

// AverageRatingAcross averages the per-product average rating over all
// rated products, rounded to one decimal.
func (s *ProductStore) AverageRatingAcross(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"averageRating": bson.M{"$gt": 0}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": nil,
			"avg": bson.M{"$avg": "$averageRating"},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate product ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Avg float64 `bson:"avg"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode product rating average: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return math.Round(result[0].Avg*10) / 10, nil
}
