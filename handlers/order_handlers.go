package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
	"github.com/Klienn77/pos-vendas-ecommerce/store"
	"github.com/Klienn77/pos-vendas-ecommerce/utils"

	"github.com/gin-gonic/gin"
)

// OrderStore is what the order handlers need from the persistence layer.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	List(ctx context.Context, q models.OrderQuery) ([]models.Order, int64, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	Update(ctx context.Context, id string, upd models.OrderUpdate) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

type OrderHandlers struct {
	Orders OrderStore
}

func NewOrderHandlers(orders OrderStore) *OrderHandlers {
	return &OrderHandlers{Orders: orders}
}

// validateItems checks every order line for the fields the storefront
// must have captured at checkout time.
func validateItems(c *gin.Context, items []models.OrderItem) bool {
	if len(items) == 0 {
		respondError(c, http.StatusBadRequest, "items must contain at least one entry", nil)
		return false
	}
	for _, item := range items {
		if item.ProductID == "" || item.Name == "" {
			respondError(c, http.StatusBadRequest, "each item needs a productId and a name", nil)
			return false
		}
		if item.Price < 0 {
			respondError(c, http.StatusBadRequest, "item prices must be non-negative", nil)
			return false
		}
		if item.Quantity < 1 {
			respondError(c, http.StatusBadRequest, "item quantities must be at least 1", nil)
			return false
		}
	}
	return true
}

// CreateOrder handles POST /api/admin/orders. The total is derived from
// the items unless the request provides one explicitly.
func (h *OrderHandlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding order JSON: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if !validateItems(c, req.Items) {
		return
	}

	status := req.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	if !utils.IsValidOrderStatus(status) {
		respondError(c, http.StatusBadRequest, "Invalid status. Use pending, processing, shipped, delivered or cancelled", nil)
		return
	}

	total := models.OrderTotal(req.Items)
	if req.TotalAmount != nil {
		if *req.TotalAmount < 0 {
			respondError(c, http.StatusBadRequest, "totalAmount must be non-negative", nil)
			return
		}
		total = *req.TotalAmount
	}

	order := &models.Order{
		UserID:        req.UserID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Items:         req.Items,
		TotalAmount:   total,
		Status:        status,
		Notes:         req.Notes,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	created, err := h.Orders.Create(ctx, order)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create order", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created",
		"order":   created,
	})
}

// ListOrders handles GET /api/admin/orders with paging and an optional
// status filter.
func (h *OrderHandlers) ListOrders(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !utils.IsValidOrderStatus(status) {
		respondError(c, http.StatusBadRequest, "Invalid status. Use pending, processing, shipped, delivered or cancelled", nil)
		return
	}

	q := models.OrderQuery{
		Page:   intQuery(c, "page", 1, 0),
		Limit:  intQuery(c, "limit", 20, 100),
		Status: status,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	orders, total, err := h.Orders.List(ctx, q)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to retrieve orders", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"orders":     orders,
		"pagination": pagination(q.Page, q.Limit, total),
	})
}

func (h *OrderHandlers) GetOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	order, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "Order not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to retrieve order", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// UpdateOrder handles PUT /api/admin/orders/:id. When the items change
// and no explicit total accompanies them, the total is re-derived.
func (h *OrderHandlers) UpdateOrder(c *gin.Context) {
	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding order JSON: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	upd := models.OrderUpdate{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		TotalAmount:   req.TotalAmount,
		Notes:         req.Notes,
	}

	if req.Status != nil {
		if !utils.IsValidOrderStatus(*req.Status) {
			respondError(c, http.StatusBadRequest, "Invalid status. Use pending, processing, shipped, delivered or cancelled", nil)
			return
		}
		upd.Status = req.Status
	}

	if req.Items != nil {
		if !validateItems(c, *req.Items) {
			return
		}
		upd.Items = req.Items
		if req.TotalAmount == nil {
			total := models.OrderTotal(*req.Items)
			upd.TotalAmount = &total
		}
	}
	if req.TotalAmount != nil && *req.TotalAmount < 0 {
		respondError(c, http.StatusBadRequest, "totalAmount must be non-negative", nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	updated, err := h.Orders.Update(ctx, c.Param("id"), upd)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "Order not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to update order", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order updated",
		"order":   updated,
	})
}

func (h *OrderHandlers) DeleteOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.Orders.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "Order not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to delete order", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}
