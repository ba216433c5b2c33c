package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/service"
)

// CheckoutHandler checks out the cart of the caller's session.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

func (h *CheckoutHandler) ProcessCheckout(c *gin.Context) {
	h.withRequest(c, h.checkout.ProcessCheckout)
}

func (h *CheckoutHandler) CreateCheckoutPayment(c *gin.Context) {
	h.withRequest(c, h.checkout.CreateCheckoutPayment)
}

func (h *CheckoutHandler) GetCheckoutSummary(c *gin.Context) {
	h.withRequest(c, h.checkout.GetCheckoutSummary)
}

func (h *CheckoutHandler) CompleteCheckout(c *gin.Context) {
	resp, err := h.checkout.CompleteCheckout(c.Request.Context(), sessionID(c), c.Param("paymentId"))
	respond(c, resp, err)
}

type checkoutFunc func(ctx context.Context, cartID string, req *models.CheckoutRequest) (*models.CheckoutResponse, error)

func (h *CheckoutHandler) withRequest(c *gin.Context, fn checkoutFunc) {
	id := sessionID(c)

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := fn(c.Request.Context(), id, &req)
	respond(c, resp, err)
}
