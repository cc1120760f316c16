package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
	"github.com/Klienn77/pos-vendas-ecommerce/store"
	"github.com/Klienn77/pos-vendas-ecommerce/utils"

	"github.com/gin-gonic/gin"
)

// ProductStore is what the product handlers need from the persistence
// layer.
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductHandlers struct {
	Products  ProductStore
	UploadDir string
}

func NewProductHandlers(products ProductStore, uploadDir string) *ProductHandlers {
	return &ProductHandlers{Products: products, UploadDir: uploadDir}
}

// formFloat parses a non-negative numeric form field.
func formFloat(c *gin.Context, name, raw string) (float64, bool) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		respondError(c, http.StatusBadRequest, name+" must be a non-negative number", nil)
		return 0, false
	}
	return value, true
}

func formInt(c *gin.Context, name, raw string) (int, bool) {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		respondError(c, http.StatusBadRequest, name+" must be a non-negative integer", nil)
		return 0, false
	}
	return value, true
}

func formBool(c *gin.Context, name, raw string) (bool, bool) {
	value, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, name+" must be true or false", nil)
		return false, false
	}
	return value, true
}

// parseCustomization decodes the customizationOptions form field, which
// the admin panel sends as a JSON object.
func parseCustomization(c *gin.Context, raw string) (*models.CustomizationOptions, bool) {
	opts := &models.CustomizationOptions{}
	if err := json.Unmarshal([]byte(raw), opts); err != nil {
		respondError(c, http.StatusBadRequest, "customizationOptions must be a valid JSON object", nil)
		return nil, false
	}
	return opts, true
}

// parseRatings decodes and validates the ratings form field.
func parseRatings(c *gin.Context, raw string) ([]models.Rating, bool) {
	var ratings []models.Rating
	if err := json.Unmarshal([]byte(raw), &ratings); err != nil {
		respondError(c, http.StatusBadRequest, "ratings must be a valid JSON array", nil)
		return nil, false
	}
	for _, r := range ratings {
		if r.Rating < 1 || r.Rating > 5 {
			respondError(c, http.StatusBadRequest, "each rating must be between 1 and 5", nil)
			return nil, false
		}
	}
	return ratings, true
}

// saveUploads runs the uploaded images through the processing pipeline,
// mapping validation failures to 400.
func (h *ProductHandlers) saveUploads(c *gin.Context) ([]string, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Expected multipart form data", nil)
		return nil, false
	}

	files := form.File["images"]
	if len(files) == 0 {
		return []string{}, true
	}

	paths, err := utils.SaveProductImages(files, h.UploadDir)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidImage) {
			respondError(c, http.StatusBadRequest, err.Error(), nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to store images", err)
		}
		return nil, false
	}
	return paths, true
}

// CreateProduct handles POST /api/admin/products. The body is a multipart
// form: scalar fields as strings, customizationOptions as embedded JSON,
// images as file parts.
func (h *ProductHandlers) CreateProduct(c *gin.Context) {
	name := c.PostForm("name")
	description := c.PostForm("description")
	priceRaw := c.PostForm("price")
	category := c.PostForm("category")
	if name == "" || description == "" || priceRaw == "" || category == "" {
		respondError(c, http.StatusBadRequest, "name, description, price and category are required", nil)
		return
	}

	price, ok := formFloat(c, "price", priceRaw)
	if !ok {
		return
	}

	stock := 0
	if raw := c.PostForm("stock"); raw != "" {
		if stock, ok = formInt(c, "stock", raw); !ok {
			return
		}
	}

	isActive := true
	if raw := c.PostForm("isActive"); raw != "" {
		if isActive, ok = formBool(c, "isActive", raw); !ok {
			return
		}
	}
	isFeatured := false
	if raw := c.PostForm("isFeatured"); raw != "" {
		if isFeatured, ok = formBool(c, "isFeatured", raw); !ok {
			return
		}
	}

	customization := models.CustomizationOptions{}
	if raw := c.PostForm("customizationOptions"); raw != "" {
		parsed, ok := parseCustomization(c, raw)
		if !ok {
			return
		}
		customization = *parsed
	}

	model3dURL := c.PostForm("model3dUrl")
	has3dModel := model3dURL != ""
	if raw := c.PostForm("has3dModel"); raw != "" {
		if has3dModel, ok = formBool(c, "has3dModel", raw); !ok {
			return
		}
	}

	images, ok := h.saveUploads(c)
	if !ok {
		return
	}

	product := &models.Product{
		Name:                 name,
		Description:          description,
		Price:                price,
		Category:             category,
		Subcategory:          c.PostForm("subcategory"),
		Images:               images,
		Model3DURL:           model3dURL,
		Has3DModel:           has3dModel,
		CustomizationOptions: customization,
		Stock:                stock,
		IsActive:             isActive,
		IsFeatured:           isFeatured,
		Tags:                 utils.NormalizeTags(c.PostForm("tags")),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	created, err := h.Products.Create(ctx, product)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create product", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product created",
		"product": created,
	})
}

// ListProducts handles GET /api/admin/products with paging, category and
// free text filters, and whitelisted sorting.
func (h *ProductHandlers) ListProducts(c *gin.Context) {
	sortBy := c.DefaultQuery("sortBy", "createdAt")
	if !utils.IsValidProductSort(sortBy) {
		respondError(c, http.StatusBadRequest, "Invalid 'sortBy'. Use name, price, stock, averageRating or createdAt", nil)
		return
	}
	order := c.DefaultQuery("order", "desc")
	if order != "asc" && order != "desc" {
		respondError(c, http.StatusBadRequest, "Invalid 'order'. Use asc or desc", nil)
		return
	}

	q := models.ProductQuery{
		Page:     intQuery(c, "page", 1, 0),
		Limit:    intQuery(c, "limit", 20, 100),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		SortBy:   sortBy,
		SortDesc: order == "desc",
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	products, total, err := h.Products.List(ctx, q)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to retrieve products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"products":   products,
		"pagination": pagination(q.Page, q.Limit, total),
	})
}

func (h *ProductHandlers) GetProduct(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	product, err := h.Products.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to retrieve product", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": product,
	})
}

// UpdateProduct handles PUT /api/admin/products/:id. Only fields present
// in the form are touched. New image files replace the existing list
// unless keepImages=true, in which case they are appended to it.
func (h *ProductHandlers) UpdateProduct(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	existing, err := h.Products.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to retrieve product", err)
		}
		return
	}

	upd := models.ProductUpdate{}

	if raw, present := c.GetPostForm("name"); present {
		if raw == "" {
			respondError(c, http.StatusBadRequest, "name cannot be empty", nil)
			return
		}
		upd.Name = &raw
	}
	if raw, present := c.GetPostForm("description"); present {
		upd.Description = &raw
	}
	if raw, present := c.GetPostForm("price"); present {
		price, ok := formFloat(c, "price", raw)
		if !ok {
			return
		}
		upd.Price = &price
	}
	if raw, present := c.GetPostForm("category"); present {
		upd.Category = &raw
	}
	if raw, present := c.GetPostForm("subcategory"); present {
		upd.Subcategory = &raw
	}
	if raw, present := c.GetPostForm("stock"); present {
		stock, ok := formInt(c, "stock", raw)
		if !ok {
			return
		}
		upd.Stock = &stock
	}
	if raw, present := c.GetPostForm("isActive"); present {
		active, ok := formBool(c, "isActive", raw)
		if !ok {
			return
		}
		upd.IsActive = &active
	}
	if raw, present := c.GetPostForm("isFeatured"); present {
		featured, ok := formBool(c, "isFeatured", raw)
		if !ok {
			return
		}
		upd.IsFeatured = &featured
	}
	if raw, present := c.GetPostForm("model3dUrl"); present {
		upd.Model3DURL = &raw
		has := raw != ""
		upd.Has3DModel = &has
	}
	if raw, present := c.GetPostForm("has3dModel"); present {
		has, ok := formBool(c, "has3dModel", raw)
		if !ok {
			return
		}
		upd.Has3DModel = &has
	}
	if raw, present := c.GetPostForm("customizationOptions"); present {
		opts, ok := parseCustomization(c, raw)
		if !ok {
			return
		}
		upd.CustomizationOptions = opts
	}
	if raw, present := c.GetPostForm("tags"); present {
		tags := utils.NormalizeTags(raw)
		upd.Tags = &tags
	}
	if raw, present := c.GetPostForm("ratings"); present {
		ratings, ok := parseRatings(c, raw)
		if !ok {
			return
		}
		upd.Ratings = &ratings
	}

	if form, err := c.MultipartForm(); err == nil && len(form.File["images"]) > 0 {
		newPaths, saveErr := utils.SaveProductImages(form.File["images"], h.UploadDir)
		if saveErr != nil {
			if errors.Is(saveErr, utils.ErrInvalidImage) {
				respondError(c, http.StatusBadRequest, saveErr.Error(), nil)
			} else {
				respondError(c, http.StatusInternalServerError, "Failed to store images", saveErr)
			}
			return
		}
		if c.PostForm("keepImages") == "true" {
			combined := append(append([]string{}, existing.Images...), newPaths...)
			upd.Images = &combined
		} else {
			upd.Images = &newPaths
		}
	}

	updated, err := h.Products.Update(ctx, c.Param("id"), upd)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to update product", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated",
		"product": updated,
	})
}

func (h *ProductHandlers) DeleteProduct(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.Products.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to delete product", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted",
	})
}
