package handlers

import (
	"net/http"

	"github.com/Dhoini/Entitlement-service/internal/service"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ReconciliationHandler serves the cross-store drift report
type ReconciliationHandler struct {
	service service.ReconciliationService
	log     *logger.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(svc service.ReconciliationService, log *logger.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: svc,
		log:     log,
	}
}

// GetDrift lists every detected inconsistency between the ledger, the
// entitlement store and the external claims snapshots.
func (h *ReconciliationHandler) GetDrift(c *gin.Context) {
	cases, err := h.service.ListDrift(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to scan for drift")
		return
	}

	h.log.Info("Drift report returned %d cases", len(cases))
	c.JSON(http.StatusOK, gin.H{
		"count": len(cases),
		"cases": cases,
	})
}
