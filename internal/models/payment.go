package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusPending           PaymentStatus = "PENDING"
	StatusProcessing        PaymentStatus = "PROCESSING"
	StatusCompleted         PaymentStatus = "COMPLETED"
	StatusFailed            PaymentStatus = "FAILED"
	StatusCancelled         PaymentStatus = "CANCELLED"
	StatusRefunded          PaymentStatus = "REFUNDED"
	StatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

var statusDescriptions = map[PaymentStatus]string{
	StatusPending:           "Payment is pending",
	StatusProcessing:        "Payment is being processed",
	StatusCompleted:         "Payment completed successfully",
	StatusFailed:            "Payment failed",
	StatusCancelled:         "Payment was cancelled",
	StatusRefunded:          "Payment was refunded",
	StatusPartiallyRefunded: "Payment was partially refunded",
}

// allowedTransitions is the payment state machine. Anything not listed is rejected.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusRefunded, StatusPartiallyRefunded},
}

func (s PaymentStatus) Valid() bool {
	_, ok := statusDescriptions[s]
	return ok
}

func (s PaymentStatus) Description() string {
	return statusDescriptions[s]
}

func (s PaymentStatus) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func (s PaymentStatus) IsSuccessful() bool {
	return s == StatusCompleted
}

func (s PaymentStatus) IsPending() bool {
	return s == StatusPending || s == StatusProcessing
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	MethodCreditCard     PaymentMethod = "CREDIT_CARD"
	MethodDebitCard      PaymentMethod = "DEBIT_CARD"
	MethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	MethodDigitalWallet  PaymentMethod = "DIGITAL_WALLET"
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	MethodPaypal         PaymentMethod = "PAYPAL"
	MethodStripe         PaymentMethod = "STRIPE"
	MethodMockGateway    PaymentMethod = "MOCK_GATEWAY"
)

// PaymentMethods lists every supported method in display order.
var PaymentMethods = []PaymentMethod{
	MethodCreditCard,
	MethodDebitCard,
	MethodBankTransfer,
	MethodDigitalWallet,
	MethodCashOnDelivery,
	MethodPaypal,
	MethodStripe,
	MethodMockGateway,
}

var methodDisplayNames = map[PaymentMethod]string{
	MethodCreditCard:     "Credit Card",
	MethodDebitCard:      "Debit Card",
	MethodBankTransfer:   "Bank Transfer",
	MethodDigitalWallet:  "Digital Wallet",
	MethodCashOnDelivery: "Cash on Delivery",
	MethodPaypal:         "PayPal",
	MethodStripe:         "Stripe",
	MethodMockGateway:    "Mock Gateway",
}

func (m PaymentMethod) Valid() bool {
	_, ok := methodDisplayNames[m]
	return ok
}

func (m PaymentMethod) DisplayName() string {
	return methodDisplayNames[m]
}

func (m PaymentMethod) RequiresCardDetails() bool {
	return m == MethodCreditCard || m == MethodDebitCard
}

func (m PaymentMethod) IsOnline() bool {
	return m != MethodCashOnDelivery
}

var ErrInvalidTransition = errors.New("invalid payment status transition")

// Payment is the durable record of a single payment attempt.
type Payment struct {
	ID                   int64           `json:"id"`
	PaymentID            string          `json:"payment_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Status               PaymentStatus   `json:"status"`
	PaymentMethod        PaymentMethod   `json:"payment_method"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	GatewayResponse      string          `json:"gateway_response,omitempty"`
	CustomerEmail        string          `json:"customer_email"`
	CustomerName         string          `json:"customer_name,omitempty"`
	CustomerPhone        string          `json:"customer_phone,omitempty"`
	BillingAddress       string          `json:"billing_address,omitempty"`
	Description          string          `json:"description,omitempty"`
	Metadata             string          `json:"metadata,omitempty"`
	RefundedAmount       decimal.Decimal `json:"refunded_amount"`
	Version              int64           `json:"-"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	FailedAt             *time.Time      `json:"failed_at,omitempty"`
	ExpiresAt            *time.Time      `json:"expires_at,omitempty"`
}

// NewPayment builds a PENDING payment with a fresh external identifier.
func NewPayment(amount decimal.Decimal, currency string, method PaymentMethod, customerEmail, description string, now time.Time) *Payment {
	return &Payment{
		PaymentID:      NewPaymentID(now),
		Amount:         amount.Round(MoneyScale),
		Currency:       currency,
		Status:         StatusPending,
		PaymentMethod:  method,
		CustomerEmail:  customerEmail,
		Description:    description,
		RefundedAmount: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewPaymentID returns PAY_<unix millis>_<random hex>.
func NewPaymentID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("PAY_%d_%s", now.UnixMilli(), strings.ToUpper(suffix))
}

func (p *Payment) transition(to PaymentStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s for payment %s", ErrInvalidTransition, p.Status, to, p.PaymentID)
	}
	p.Status = to
	p.UpdatedAt = now
	return nil
}

func (p *Payment) MarkAsProcessing(now time.Time) error {
	return p.transition(StatusProcessing, now)
}

func (p *Payment) MarkAsPaid(transactionID, gatewayResponse string, now time.Time) error {
	if err := p.transition(StatusCompleted, now); err != nil {
		return err
	}
	p.GatewayTransactionID = transactionID
	p.GatewayResponse = gatewayResponse
	paidAt := now
	p.PaidAt = &paidAt
	return nil
}

func (p *Payment) MarkAsFailed(gatewayResponse string, now time.Time) error {
	if err := p.transition(StatusFailed, now); err != nil {
		return err
	}
	p.GatewayResponse = gatewayResponse
	failedAt := now
	p.FailedAt = &failedAt
	return nil
}

func (p *Payment) MarkAsCancelled(now time.Time) error {
	return p.transition(StatusCancelled, now)
}

// MarkAsRefunded records a refund and moves to REFUNDED or PARTIALLY_REFUNDED.
func (p *Payment) MarkAsRefunded(amount decimal.Decimal, now time.Time) error {
	target := StatusPartiallyRefunded
	if amount.Equal(p.Amount) {
		target = StatusRefunded
	}
	if err := p.transition(target, now); err != nil {
		return err
	}
	p.RefundedAmount = p.RefundedAmount.Add(amount)
	return nil
}

// AttachGatewayTransaction records the gateway reference of a redirect payment
// without changing its status.
func (p *Payment) AttachGatewayTransaction(transactionID, gatewayResponse string, now time.Time) {
	p.GatewayTransactionID = transactionID
	p.GatewayResponse = gatewayResponse
	p.UpdatedAt = now
}

func (p *Payment) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

func (p *Payment) CanBeProcessed(now time.Time) bool {
	return p.Status == StatusPending && !p.IsExpired(now)
}

// RemainingRefundable is the amount not yet refunded.
func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}
