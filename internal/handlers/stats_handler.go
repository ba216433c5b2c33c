package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/service"
)

// StatsHandler serves read-only payment queries.
type StatsHandler struct {
	stats *service.StatsService
}

func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) GetPaymentStats(c *gin.Context) {
	stats, err := h.stats.GetPaymentStats(c.Request.Context())
	respond(c, stats, err)
}

func (h *StatsHandler) ListPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, models.ListPaymentMethods())
}

func (h *StatsHandler) ListExpiredPending(c *gin.Context) {
	list, err := h.stats.ListExpiredPending(c.Request.Context())
	writeList(c, list, err)
}

func (h *StatsHandler) GetByTransactionID(c *gin.Context) {
	resp, err := h.stats.FindByGatewayTransactionID(c.Request.Context(), c.Param("transactionId"))
	respond(c, resp, err)
}

func (h *StatsHandler) CountSuccessfulByCustomer(c *gin.Context) {
	email := c.Param("email")
	n, err := h.stats.CountSuccessfulByCustomer(c.Request.Context(), email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customerEmail": email, "successfulPayments": n})
}

// Search filters by exactly one of status, method or a from/to range (RFC 3339).
func (h *StatsHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	if status := c.Query("status"); status != "" {
		list, err := h.stats.FindByStatus(ctx, models.PaymentStatus(status))
		writeList(c, list, err)
		return
	}
	if method := c.Query("method"); method != "" {
		list, err := h.stats.FindByMethod(ctx, models.PaymentMethod(method))
		writeList(c, list, err)
		return
	}

	from, errFrom := time.Parse(time.RFC3339, c.Query("from"))
	to, errTo := time.Parse(time.RFC3339, c.Query("to"))
	if errFrom != nil || errTo != nil {
		writeError(c, apperror.Validation(apperror.CodeInvalidRequest, "Provide status, method, or from and to as RFC 3339 timestamps"))
		return
	}
	list, err := h.stats.ListPaymentsBetween(ctx, from, to)
	writeList(c, list, err)
}

func writeList(c *gin.Context, list []*models.PaymentResponse, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
