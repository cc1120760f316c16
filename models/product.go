package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rating is a single customer review embedded in a product document.
type Rating struct {
	UserID  string    `bson:"userId" json:"userId"`
	Rating  float64   `bson:"rating" json:"rating"`
	Comment string    `bson:"comment" json:"comment"`
	Date    time.Time `bson:"date" json:"date"`
}

// CustomizationOptions enumerates what the 3D configurator lets a customer
// change on a product.
type CustomizationOptions struct {
	Colors     []string `bson:"colors" json:"colors"`
	Materials  []string `bson:"materials" json:"materials"`
	Components []string `bson:"components" json:"components"`
}

// Product is a catalog entry. Images holds the public /uploads paths of
// the processed files. AverageRating is derived from Ratings and rewritten
// by the store on every write that touches them.
type Product struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name                 string               `bson:"name" json:"name"`
	Description          string               `bson:"description" json:"description"`
	Price                float64              `bson:"price" json:"price"`
	Category             string               `bson:"category" json:"category"`
	Subcategory          string               `bson:"subcategory" json:"subcategory"`
	Images               []string             `bson:"images" json:"images"`
	Model3DURL           string               `bson:"model3dUrl" json:"model3dUrl"`
	Has3DModel           bool                 `bson:"has3dModel" json:"has3dModel"`
	CustomizationOptions CustomizationOptions `bson:"customizationOptions" json:"customizationOptions"`
	Stock                int                  `bson:"stock" json:"stock"`
	IsActive             bool                 `bson:"isActive" json:"isActive"`
	IsFeatured           bool                 `bson:"isFeatured" json:"isFeatured"`
	Tags                 []string             `bson:"tags" json:"tags"`
	Ratings              []Rating             `bson:"ratings" json:"ratings"`
	AverageRating        float64              `bson:"averageRating" json:"averageRating"`
	CreatedAt            time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// AverageRating computes the mean of the given ratings rounded to one
// decimal place. No ratings means 0.
func AverageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r.Rating
	}
	return math.Round(sum/float64(len(ratings))*10) / 10
}

// ProductQuery narrows and pages a product listing.
type ProductQuery struct {
	Page     int64
	Limit    int64
	Category string
	Search   string
	SortBy   string
	SortDesc bool
}

// ProductUpdate carries merge-style field changes. Nil fields are left as
// they are; a non-nil pointer replaces the stored value, including slices.
type ProductUpdate struct {
	Name                 *string
	Description          *string
	Price                *float64
	Category             *string
	Subcategory          *string
	Images               *[]string
	Model3DURL           *string
	Has3DModel           *bool
	CustomizationOptions *CustomizationOptions
	Stock                *int
	IsActive             *bool
	IsFeatured           *bool
	Tags                 *[]string
	Ratings              *[]Rating
}
