package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/service"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

type PaymentHandler struct {
	payments    *service.PaymentService
	returnHosts map[string]struct{}
}

// NewPaymentHandler builds the payment endpoints. returnHosts lists the hosts
// MockPay may redirect to besides relative paths.
func NewPaymentHandler(payments *service.PaymentService, returnHosts []string) *PaymentHandler {
	hosts := make(map[string]struct{}, len(returnHosts))
	for _, h := range returnHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = struct{}{}
		}
	}
	return &PaymentHandler{payments: payments, returnHosts: hosts}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.payments.CreatePayment(c.Request.Context(), &req)
	respond(c, resp, err)
}

func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.payments.ProcessPayment(c.Request.Context(), &req)
	if err != nil {
		telemetry.Logger.Info("Payment not completed",
			zap.String("error_code", apperror.Code(err)),
			zap.String("payment_method", string(req.PaymentMethod)),
		)
	}
	respond(c, resp, err)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	resp, err := h.payments.GetPayment(c.Request.Context(), c.Param("paymentId"))
	respond(c, resp, err)
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	resp, err := h.payments.VerifyPayment(c.Request.Context(), c.Param("paymentId"))
	respond(c, resp, err)
}

func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		writeError(c, apperror.Validation(apperror.CodeInvalidAmount, "Refund amount is required"))
		return
	}

	resp, err := h.payments.RefundPayment(c.Request.Context(), c.Param("paymentId"), amount, c.Query("reason"))
	respond(c, resp, err)
}

func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	resp, err := h.payments.CancelPayment(c.Request.Context(), c.Param("paymentId"))
	respond(c, resp, err)
}

func (h *PaymentHandler) GetPaymentsByCustomer(c *gin.Context) {
	list, err := h.payments.GetPaymentsByCustomer(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MockPay is the hosted payment page of the simulated gateway. The customer
// lands here from the payment URL and is sent back to return_url afterwards.
func (h *PaymentHandler) MockPay(c *gin.Context) {
	paymentID := c.Param("paymentId")
	resp, err := h.payments.AuthorizeRedirect(c.Request.Context(), paymentID)

	returnURL := c.Query("return_url")
	if returnURL == "" || resp == nil {
		respond(c, resp, err)
		return
	}

	target, ok := h.returnTarget(returnURL)
	if !ok {
		telemetry.Logger.Warn("Refusing redirect to untrusted return url",
			zap.String("payment_id", paymentID),
			zap.String("return_url", returnURL),
		)
		respond(c, resp, err)
		return
	}
	q := target.Query()
	q.Set("paymentId", paymentID)
	q.Set("status", string(resp.Status))
	target.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, target.String())
}

// returnTarget accepts same-site paths and http(s) URLs on an allowed host.
func (h *PaymentHandler) returnTarget(raw string) (*url.URL, bool) {
	target, err := url.Parse(raw)
	if err != nil || target.User != nil {
		return nil, false
	}
	if target.Scheme == "" && target.Host == "" {
		return target, strings.HasPrefix(target.Path, "/") && !strings.HasPrefix(raw, "//") && !strings.Contains(raw, "\\")
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, false
	}
	_, ok := h.returnHosts[strings.ToLower(target.Hostname())]
	return target, ok
}
