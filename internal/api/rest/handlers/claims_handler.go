package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/service"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ClaimsHandler exposes the claims synchronizer. Mutations return the
// step-outcome report; a partially applied sync is surfaced as a 502
// with the report in the body, never flattened into a success.
type ClaimsHandler struct {
	service service.ClaimsSyncService
	log     *logger.Logger
}

// NewClaimsHandler creates a new claims handler
func NewClaimsHandler(svc service.ClaimsSyncService, log *logger.Logger) *ClaimsHandler {
	return &ClaimsHandler{
		service: svc,
		log:     log,
	}
}

// GetClaims reads the current snapshot for a subject. With ?email=1
// the path segment is treated as the subject's email instead of its ID.
func (h *ClaimsHandler) GetClaims(c *gin.Context) {
	subject := c.Param("subject")

	var snapshot *domain.ClaimsSnapshot
	var err error
	if c.Query("email") != "" {
		snapshot, err = h.service.GetClaimsByEmail(c.Request.Context(), subject)
	} else {
		snapshot, err = h.service.GetClaims(c.Request.Context(), subject)
	}
	if err != nil {
		respondError(c, h.log, err, "Failed to get claims")
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// SetClaims replaces a subject's claims wholesale
func (h *ClaimsHandler) SetClaims(c *gin.Context) {
	subjectID := c.Param("subject")

	var claims domain.Claims
	if err := c.ShouldBindJSON(&claims); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated actor"})
		return
	}

	outcome, err := h.service.SetClaims(c.Request.Context(), subjectID, claims, actor)
	h.respondOutcome(c, subjectID, outcome, err)
}

// UpdateClaims applies a partial update to a subject's claims
func (h *ClaimsHandler) UpdateClaims(c *gin.Context) {
	subjectID := c.Param("subject")

	var update domain.ClaimsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated actor"})
		return
	}

	outcome, err := h.service.UpdateClaims(c.Request.Context(), subjectID, update, actor)
	h.respondOutcome(c, subjectID, outcome, err)
}

// DeleteClaims removes named claim fields for a subject
func (h *ClaimsHandler) DeleteClaims(c *gin.Context) {
	subjectID := c.Param("subject")
	fields := c.QueryArray("field")

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated actor"})
		return
	}

	outcome, err := h.service.DeleteClaims(c.Request.Context(), subjectID, fields, actor)
	h.respondOutcome(c, subjectID, outcome, err)
}

func (h *ClaimsHandler) respondOutcome(c *gin.Context, subjectID string, outcome domain.SyncOutcome, err error) {
	if err != nil {
		var partial *domain.PartialFailureError
		if errors.As(err, &partial) {
			h.log.Warnw("Claims sync partially failed", "subject", subjectID, "failed", partial.Outcome.StepsFailed)
			c.JSON(http.StatusBadGateway, partial.Outcome)
			return
		}
		respondError(c, h.log, err, "Failed to sync claims")
		return
	}

	h.log.Info("Claims sync completed for subject %s", subjectID)
	c.JSON(http.StatusOK, outcome)
}
