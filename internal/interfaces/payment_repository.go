package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrVersionConflict is returned by Update when the stored version no longer
	// matches the one the caller read.
	ErrVersionConflict = errors.New("payment was modified concurrently")
)

// PaymentRepository defines the contract for payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id int64) (*models.Payment, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error)
	FindByGatewayTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	FindByCustomerEmail(ctx context.Context, email string) ([]*models.Payment, error)
	FindByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.Payment, error)
	FindByMethod(ctx context.Context, method models.PaymentMethod) ([]*models.Payment, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]*models.Payment, error)
	FindExpiredPending(ctx context.Context, now time.Time) ([]*models.Payment, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, error)
	CountSuccessfulByCustomer(ctx context.Context, email string) (int64, error)
	SumCompletedSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}
