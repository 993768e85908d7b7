// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KamranYsupov/TaxiDriverBot/internal/http/handlers"
	"github.com/KamranYsupov/TaxiDriverBot/internal/http/middleware"
)

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logging(s.deps.Logger), middleware.Recovery(s.deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	paymentHandler := handlers.NewPaymentHandler(s.deps.Payments)
	r.POST("/api/payments/:id/confirm", paymentHandler.Confirm)

	adminHandler := handlers.NewAdminHandler(s.deps.Moderation, s.deps.Pricing, s.deps.Catalog)
	admin := r.Group("/api/admin", middleware.AdminToken(s.deps.AdminToken))
	admin.POST("/cars/:id/status", adminHandler.SetCarStatus)
	admin.POST("/tariff-requests/:id/status", adminHandler.ResolveTariffRequest)
	admin.GET("/pricing", adminHandler.GetPricing)
	admin.PUT("/pricing", adminHandler.UpdatePricing)
	admin.POST("/pricing/reload", adminHandler.ReloadPricing)
	admin.GET("/products", adminHandler.ListProducts)
	admin.POST("/products", adminHandler.AddProduct)

	return r
}
