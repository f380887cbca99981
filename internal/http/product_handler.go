package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cargolink/internal/service"
)

// ProductHandler expone los endpoints de envios del emprendedor.
type ProductHandler struct {
	logger      *zap.Logger
	productServ *service.ProductService
}

func NewProductHandler(logger *zap.Logger, productServ *service.ProductService) *ProductHandler {
	return &ProductHandler{
		logger:      logger,
		productServ: productServ,
	}
}

// Create maneja POST /api/products.
func (h *ProductHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	var req struct {
		ProductName  string  `json:"productName"`
		Quantity     string  `json:"quantity"`
		Weight       float64 `json:"weight"`
		Cost         float64 `json:"cost"`
		FromLocation string  `json:"fromLocation"`
		ToLocation   string  `json:"toLocation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	product, err := h.productServ.Create(c.Request.Context(), claims.UserID, claims.UserType, service.CreateProductInput{
		ProductName:  req.ProductName,
		Quantity:     req.Quantity,
		Weight:       req.Weight,
		Cost:         req.Cost,
		FromLocation: req.FromLocation,
		ToLocation:   req.ToLocation,
	})
	if err != nil {
		h.respondError(c, err, "create product failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// MyProducts maneja GET /api/products/my-products.
func (h *ProductHandler) MyProducts(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	products, err := h.productServ.MyProducts(c.Request.Context(), claims.UserID, claims.UserType)
	if err != nil {
		h.respondError(c, err, "list products failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Get maneja GET /api/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	product, err := h.productServ.Get(c.Request.Context(), claims.UserID, claims.UserType, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get product failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Update maneja PUT /api/products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	var req struct {
		Status          string `json:"status"`
		CurrentLocation string `json:"currentLocation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	product, err := h.productServ.Update(c.Request.Context(), claims.UserID, claims.UserType, c.Param("id"), service.UpdateProductInput{
		Status:          req.Status,
		CurrentLocation: req.CurrentLocation,
	})
	if err != nil {
		h.respondError(c, err, "update product failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// Delete maneja DELETE /api/products/:id.
func (h *ProductHandler) Delete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	if err := h.productServ.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		h.respondError(c, err, "delete product failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// respondError mapea errores del servicio de productos a status + body.
func (h *ProductHandler) respondError(c *gin.Context, err error, logMsg string) {
	respondProductError(c, h.logger, err, logMsg)
}

func respondProductError(c *gin.Context, logger *zap.Logger, err error, logMsg string) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": vErr.Message})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"message": "Access denied"})
	case errors.Is(err, service.ErrProductUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Product is no longer available"})
	case errors.Is(err, service.ErrPartnerAssigned):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot delete product with assigned delivery partner"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	default:
		logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}
