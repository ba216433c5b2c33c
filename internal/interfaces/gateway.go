package interfaces

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mock.go -package=mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

type Gateway interface {
	ProcessPayment(ctx context.Context, req *models.PaymentRequest) (*models.GatewayResult, error)
	VerifyPayment(ctx context.Context, transactionID string) (*models.GatewayResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error)
	GeneratePaymentURL(paymentID string, amount decimal.Decimal, currency, returnURL string) string
}
