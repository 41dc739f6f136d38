package handlers

import (
	"net/http"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/integration/orchestrator"
	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/service"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the payment ledger and verification endpoints
type PaymentHandler struct {
	service   service.VerificationService
	processor orchestrator.PaymentProcessor
	log       *logger.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(svc service.VerificationService, processor orchestrator.PaymentProcessor, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   svc,
		processor: processor,
		log:       log,
	}
}

// GetPayments returns the ledger, optionally filtered by status or user
func (h *PaymentHandler) GetPayments(c *gin.Context) {
	if status := c.Query("status"); status != "" {
		h.getPaymentsByStatus(c, status)
		return
	}

	payments, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to get payments")
		return
	}

	h.log.Info("Returned %d payments", len(payments))
	c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) getPaymentsByStatus(c *gin.Context, raw string) {
	status := domain.PaymentStatus(raw)
	switch status {
	case domain.PaymentStatusPending, domain.PaymentStatusSuccess, domain.PaymentStatusRejected:
	default:
		h.log.Warn("Invalid payment status filter: %s", raw)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment status"})
		return
	}

	payments, err := h.service.GetByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, h.log, err, "Failed to get payments")
		return
	}

	h.log.Info("Returned %d payments with status %s", len(payments), status)
	c.JSON(http.StatusOK, payments)
}

// GetPayment returns one payment by ID
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")

	payment, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get payment")
		return
	}

	c.JSON(http.StatusOK, payment)
}

// SubmitPayment records a claimed payment as pending
func (h *PaymentHandler) SubmitPayment(c *gin.Context) {
	var req domain.PaymentSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated actor"})
		return
	}

	payment, err := h.service.Submit(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, h.log, err, "Failed to submit payment")
		return
	}

	h.log.Info("Recorded payment %s from user %s", payment.ID, actor.UserID)
	c.JSON(http.StatusCreated, payment)
}

// VerifyPayment confirms a pending payment and triggers activation
// and claims sync. A partial downstream failure still returns the
// full step report so the admin can see what remains to replay.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	id := c.Param("id")

	var req domain.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated actor"})
		return
	}

	result, err := h.service.Verify(c.Request.Context(), id, actor, req.Notes)
	if err != nil {
		respondError(c, h.log, err, "Failed to verify payment")
		return
	}

	if result.ActivationError != "" || result.SyncError != "" || (result.Sync != nil && !result.Sync.Succeeded()) {
		h.log.Warnw("Payment verified with incomplete downstream effects", "paymentID", id)
		c.JSON(http.StatusBadGateway, result)
		return
	}

	h.log.Info("Payment %s verified by %s", id, actor.UserID)
	c.JSON(http.StatusOK, result)
}

// RejectPayment rejects a pending payment with a mandatory reason
func (h *PaymentHandler) RejectPayment(c *gin.Context) {
	id := c.Param("id")

	var req domain.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rejection reason is required"})
		return
	}

	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated actor"})
		return
	}

	payment, err := h.service.Reject(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		respondError(c, h.log, err, "Failed to reject payment")
		return
	}

	h.log.Info("Payment %s rejected by %s", id, actor.UserID)
	c.JSON(http.StatusOK, payment)
}

// ProcessPayment replays the orchestrated processing run for a payment
// that already succeeded but whose downstream effects are incomplete.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	id := c.Param("id")

	payment, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get payment")
		return
	}

	if payment.Status != domain.PaymentStatusSuccess {
		c.JSON(http.StatusConflict, gin.H{"error": "Only verified payments can be processed"})
		return
	}

	resp, err := h.processor.ProcessPayment(c.Request.Context(), payment.ID.String(), payment.UserID, payment.PlanName)
	if err != nil {
		respondError(c, h.log, err, "Failed to process payment")
		return
	}

	outcome := resp.Outcome()
	if !outcome.Succeeded() {
		h.log.Warnw("Processing run incomplete", "paymentID", id, "failed", outcome.StepsFailed)
		c.JSON(http.StatusBadGateway, outcome)
		return
	}

	h.log.Info("Processing run completed for payment %s", id)
	c.JSON(http.StatusOK, outcome)
}
