package handlers

import (
	"net/http"

	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/service"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// EntitlementHandler serves the entitlement store read path and
// manual activation.
type EntitlementHandler struct {
	service service.EntitlementService
	log     *logger.Logger
}

// NewEntitlementHandler creates a new entitlement handler
func NewEntitlementHandler(svc service.EntitlementService, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		service: svc,
		log:     log,
	}
}

// GetEntitlements returns all entitlements, optionally filtered by user
func (h *EntitlementHandler) GetEntitlements(c *gin.Context) {
	if userID := c.Query("user_id"); userID != "" {
		entitlements, err := h.service.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			respondError(c, h.log, err, "Failed to get entitlements")
			return
		}
		c.JSON(http.StatusOK, entitlements)
		return
	}

	entitlements, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to get entitlements")
		return
	}

	h.log.Info("Returned %d entitlements", len(entitlements))
	c.JSON(http.StatusOK, entitlements)
}

// GetEntitlement returns one entitlement by ID
func (h *EntitlementHandler) GetEntitlement(c *gin.Context) {
	id := c.Param("id")

	entitlement, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get entitlement")
		return
	}

	c.JSON(http.StatusOK, entitlement)
}

// ActivatePayment creates the entitlement for an already verified
// payment. A repeat call for the same payment reports a conflict and
// grants nothing twice.
func (h *EntitlementHandler) ActivatePayment(c *gin.Context) {
	paymentID := c.Param("id")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated actor"})
		return
	}

	entitlement, err := h.service.Activate(c.Request.Context(), paymentID, actor)
	if err != nil {
		respondError(c, h.log, err, "Failed to activate entitlement")
		return
	}

	h.log.Info("Entitlement %s activated for payment %s by %s", entitlement.ID, paymentID, actor.UserID)
	c.JSON(http.StatusCreated, entitlement)
}
