// README: Admin endpoints for car and tariff moderation, fares and the product catalogue.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/driver"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/market"
	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/pricing"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type Moderator interface {
	SetCarStatus(ctx context.Context, carID types.ID, next driver.ApprovalStatus) (*driver.Car, error)
	ResolveTariffRequest(ctx context.Context, id types.ID, next driver.ApprovalStatus) (*driver.TariffRequest, error)
}

type PricingAdmin interface {
	Config(ctx context.Context) (pricing.Config, error)
	Update(ctx context.Context, c pricing.Config) (pricing.Config, error)
	Invalidate()
}

type Catalog interface {
	List(ctx context.Context) ([]market.Product, error)
	Add(ctx context.Context, cmd market.AddCommand) (*market.Product, error)
}

type AdminHandler struct {
	drivers Moderator
	pricing PricingAdmin
	market  Catalog
}

func NewAdminHandler(drivers Moderator, pricing PricingAdmin, market Catalog) *AdminHandler {
	return &AdminHandler{drivers: drivers, pricing: pricing, market: market}
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *AdminHandler) SetCarStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	car, err := h.drivers.SetCarStatus(c.Request.Context(), types.ID(id), driver.ApprovalStatus(req.Status))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"car_id": car.ID, "status": car.Status})
}

func (h *AdminHandler) ResolveTariffRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.drivers.ResolveTariffRequest(c.Request.Context(), types.ID(id), driver.ApprovalStatus(req.Status))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"request_id": r.ID, "status": r.Status, "tariff": r.Tariff})
}

type pricingBody struct {
	BaseFare  float64 `json:"base_fare"`
	PerKm     float64 `json:"per_km"`
	PerMinute float64 `json:"per_minute"`
}

func pricingResp(cfg pricing.Config) gin.H {
	return gin.H{"base_fare": cfg.BaseFare, "per_km": cfg.PerKm, "per_minute": cfg.PerMinute, "updated_at": cfg.UpdatedAt}
}

func (h *AdminHandler) GetPricing(c *gin.Context) {
	cfg, err := h.pricing.Config(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, pricingResp(cfg))
}

func (h *AdminHandler) UpdatePricing(c *gin.Context) {
	var req pricingBody
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := h.pricing.Update(c.Request.Context(), pricing.Config{BaseFare: req.BaseFare, PerKm: req.PerKm, PerMinute: req.PerMinute})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, pricingResp(cfg))
}

// ReloadPricing drops the cached fares after an out-of-band edit.
func (h *AdminHandler) ReloadPricing(c *gin.Context) {
	h.pricing.Invalidate()
	c.Status(http.StatusNoContent)
}

type productReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

func (h *AdminHandler) ListProducts(c *gin.Context) {
	ps, err := h.market.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(ps))
	for _, p := range ps {
		out = append(out, gin.H{"id": p.ID, "name": p.Name, "price": p.Price, "quantity": p.Quantity})
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *AdminHandler) AddProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.market.Add(c.Request.Context(), market.AddCommand{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"id": p.ID, "name": p.Name})
}
