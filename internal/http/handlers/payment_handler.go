// README: Payment confirmation endpoint used by the provider return page.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KamranYsupov/TaxiDriverBot/internal/modules/ledger"
	"github.com/KamranYsupov/TaxiDriverBot/internal/types"
)

type PaymentConfirmer interface {
	Confirm(ctx context.Context, id types.ID) (ledger.Confirmation, error)
}

type PaymentHandler struct {
	ledger PaymentConfirmer
}

func NewPaymentHandler(svc PaymentConfirmer) *PaymentHandler {
	return &PaymentHandler{ledger: svc}
}

type paymentResp struct {
	PaymentID   types.ID             `json:"payment_id"`
	Status      ledger.PaymentStatus `json:"status"`
	Amount      int64                `json:"amount"`
	AlreadyPaid bool                 `json:"already_paid"`
}

// Confirm checks the payment with the provider and applies its effects once.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.ledger.Confirm(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, paymentResp{
		PaymentID:   res.Payment.ID,
		Status:      res.Payment.Status,
		Amount:      res.Payment.Amount,
		AlreadyPaid: res.AlreadyPaid,
	})
}
