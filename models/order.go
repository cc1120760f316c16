package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderItem is one line of an order. Price is the unit price at purchase
// time; Customization captures the configurator choices, if any.
type OrderItem struct {
	ProductID     string            `bson:"productId" json:"productId"`
	Name          string            `bson:"name" json:"name"`
	Price         float64           `bson:"price" json:"price"`
	Quantity      int               `bson:"quantity" json:"quantity"`
	Customization map[string]string `bson:"customization,omitempty" json:"customization,omitempty"`
}

// Order is a placed order as persisted in the orders collection. UserID is
// empty for guest checkouts.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderNumber   string             `bson:"orderNumber" json:"orderNumber"`
	UserID        string             `bson:"userId,omitempty" json:"userId,omitempty"`
	CustomerName  string             `bson:"customerName" json:"customerName"`
	CustomerEmail string             `bson:"customerEmail" json:"customerEmail"`
	Items         []OrderItem        `bson:"items" json:"items"`
	TotalAmount   float64            `bson:"totalAmount" json:"totalAmount"`
	Status        string             `bson:"status" json:"status"`
	Notes         string             `bson:"notes" json:"notes"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OrderTotal sums price times quantity over the items, rounded to cents.
func OrderTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return math.Round(total*100) / 100
}

// CreateOrderRequest is the body of POST /api/admin/orders.
type CreateOrderRequest struct {
	UserID        string      `json:"userId"`
	CustomerName  string      `json:"customerName" binding:"required"`
	CustomerEmail string      `json:"customerEmail" binding:"required,email"`
	Items         []OrderItem `json:"items" binding:"required"`
	TotalAmount   *float64    `json:"totalAmount"`
	Status        string      `json:"status"`
	Notes         string      `json:"notes"`
}

// UpdateOrderRequest carries merge-style changes for an order.
type UpdateOrderRequest struct {
	CustomerName  *string      `json:"customerName"`
	CustomerEmail *string      `json:"customerEmail"`
	Items         *[]OrderItem `json:"items"`
	TotalAmount   *float64     `json:"totalAmount"`
	Status        *string      `json:"status"`
	Notes         *string      `json:"notes"`
}

// OrderUpdate is the store-level form of UpdateOrderRequest.
type OrderUpdate struct {
	CustomerName  *string
	CustomerEmail *string
	Items         *[]OrderItem
	TotalAmount   *float64
	Status        *string
	Notes         *string
}

// OrderQuery narrows and pages an order listing.
type OrderQuery struct {
	Page   int64
	Limit  int64
	Status string
}
