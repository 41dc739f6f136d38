package rest

import (
	"github.com/Dhoini/Entitlement-service/internal/api/rest/handlers"
	restmiddleware "github.com/Dhoini/Entitlement-service/internal/api/rest/middleware"
	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles the request handlers wired into the router
type Handlers struct {
	Payments       *handlers.PaymentHandler
	Entitlements   *handlers.EntitlementHandler
	Claims         *handlers.ClaimsHandler
	Reconciliation *handlers.ReconciliationHandler
}

// SetupRouter configures the Gin router with routes and middleware
func SetupRouter(log *logger.Logger, registry *prometheus.Registry, auth *middleware.JWTMiddleware, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(restmiddleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		payments := v1.Group("/payments")
		{
			payments.POST("", h.Payments.SubmitPayment)
			payments.GET("", auth.RequireAdmin(), h.Payments.GetPayments)
			payments.GET("/:id", auth.RequireAdmin(), h.Payments.GetPayment)
			payments.POST("/:id/verify", auth.RequireAdmin(), h.Payments.VerifyPayment)
			payments.POST("/:id/reject", auth.RequireAdmin(), h.Payments.RejectPayment)
			payments.POST("/:id/activate", auth.RequireAdmin(), h.Entitlements.ActivatePayment)
			payments.POST("/:id/process", auth.RequireAdmin(), h.Payments.ProcessPayment)
		}

		entitlements := v1.Group("/entitlements", auth.RequireAdmin())
		{
			entitlements.GET("", h.Entitlements.GetEntitlements)
			entitlements.GET("/:id", h.Entitlements.GetEntitlement)
		}

		claims := v1.Group("/claims", auth.RequireAdmin())
		{
			claims.GET("/:subject", h.Claims.GetClaims)
			claims.POST("/:subject", h.Claims.SetClaims)
			claims.PUT("/:subject", h.Claims.UpdateClaims)
			claims.DELETE("/:subject", h.Claims.DeleteClaims)
		}

		reconciliation := v1.Group("/reconciliation", auth.RequireAdmin())
		{
			reconciliation.GET("/drift", h.Reconciliation.GetDrift)
		}
	}

	return r
}
