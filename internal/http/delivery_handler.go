package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cargolink/internal/service"
)

// DeliveryHandler expone los endpoints del delivery partner.
type DeliveryHandler struct {
	logger      *zap.Logger
	productServ *service.ProductService
}

func NewDeliveryHandler(logger *zap.Logger, productServ *service.ProductService) *DeliveryHandler {
	return &DeliveryHandler{
		logger:      logger,
		productServ: productServ,
	}
}

// Available maneja GET /api/deliveries/available.
func (h *DeliveryHandler) Available(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	products, err := h.productServ.AvailableDeliveries(c.Request.Context(), claims.UserType)
	if err != nil {
		respondProductError(c, h.logger, err, "list available deliveries failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Accept maneja POST /api/deliveries/accept/:productId.
func (h *DeliveryHandler) Accept(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	var req struct {
		OfferedPrice float64 `json:"offeredPrice"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Valid offered price is required"})
		return
	}

	product, err := h.productServ.AcceptDelivery(c.Request.Context(), claims.UserID, claims.UserType, c.Param("productId"), req.OfferedPrice)
	if err != nil {
		respondProductError(c, h.logger, err, "accept delivery failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Delivery accepted successfully",
		"product": product,
	})
}

// MyDeliveries maneja GET /api/deliveries/my-deliveries.
func (h *DeliveryHandler) MyDeliveries(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	products, err := h.productServ.MyDeliveries(c.Request.Context(), claims.UserID, claims.UserType)
	if err != nil {
		respondProductError(c, h.logger, err, "list deliveries failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// UpdateStatus maneja PUT /api/deliveries/:id/status.
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
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

	product, err := h.productServ.UpdateDeliveryStatus(c.Request.Context(), claims.UserID, c.Param("id"), service.UpdateProductInput{
		Status:          req.Status,
		CurrentLocation: req.CurrentLocation,
	})
	if err != nil {
		respondProductError(c, h.logger, err, "update delivery status failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Delivery status updated successfully",
		"product": product,
	})
}
