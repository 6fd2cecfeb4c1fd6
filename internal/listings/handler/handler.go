// Package handler exposes the listings HTTP surface.
package handler

import (
	"net/http"

	"foodbridge_backend/internal/listings/service"
	"foodbridge_backend/internal/listings/transport"
	"foodbridge_backend/internal/maps"
	"foodbridge_backend/platform/httpkit"
	"foodbridge_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for food listings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new listings handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the listing routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetListings)
	rg.POST("/:id/claim", h.Claim)
	rg.POST("/:id/unclaim", h.Unclaim)
	rg.POST("/:id/remove", h.Remove)
	rg.POST("/deliveries", h.ScheduleDelivery)
	rg.POST("/deliveries/:id/cancel", h.CancelDelivery)
	rg.PATCH("/deliveries/:id/state", h.UpdateDeliveryState)
}

// GetListings handles GET /api/v1/listings
func (h *Handler) GetListings(c *gin.Context) {
	var req transport.GetListingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		return
	}

	coord := maps.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	result, err := h.svc.GetListings(c.Request.Context(), req.Filters(), userID, coord)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Claim handles POST /api/v1/listings/:id/claim
func (h *Handler) Claim(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	var req transport.ClaimListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed)
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		return
	}

	if err := h.svc.Claim(c.Request.Context(), listingID, userID, req.AvailabilityTimes); httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{"status": "claimed"})
}

// Unclaim handles POST /api/v1/listings/:id/unclaim
func (h *Handler) Unclaim(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	var req transport.UnclaimListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed)
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		return
	}

	if err := h.svc.Unclaim(c.Request.Context(), listingID, userID, req.Reason); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "unclaimed"})
}

// Remove handles POST /api/v1/listings/:id/remove
func (h *Handler) Remove(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	var req transport.RemoveListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed)
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		return
	}

	if err := h.svc.Remove(c.Request.Context(), listingID, userID, req.Reason); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "removed"})
}

// ScheduleDelivery handles POST /api/v1/listings/deliveries
func (h *Handler) ScheduleDelivery(c *gin.Context) {
	var req transport.ScheduleDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed)
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		return
	}

	err := h.svc.ScheduleDelivery(c.Request.Context(), req.ClaimID, userID, req.StartImmediately, req.ScheduledStart)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{"status": "scheduled"})
}

// CancelDelivery handles POST /api/v1/listings/deliveries/:id/cancel
func (h *Handler) CancelDelivery(c *gin.Context) {
	deliveryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	var req transport.CancelDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed)
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		return
	}

	if err := h.svc.CancelDelivery(c.Request.Context(), deliveryID, userID, req.Reason, req.FoodRejected); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "cancelled"})
}

// UpdateDeliveryState handles PATCH /api/v1/listings/deliveries/:id/state
func (h *Handler) UpdateDeliveryState(c *gin.Context) {
	deliveryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	var req transport.UpdateDeliveryStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed)
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		return
	}

	if err := h.svc.UpdateDeliveryState(c.Request.Context(), deliveryID, userID, req.State); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "updated"})
}
