package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStateChangedEvent is published on every persisted status transition.
type PaymentStateChangedEvent struct {
	EventID       string          `json:"event_id"`
	PaymentID     string          `json:"payment_id"`
	State         PaymentStatus   `json:"state"`
	PreviousState PaymentStatus   `json:"previous_state,omitempty"`
	CustomerEmail string          `json:"customer_email"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	GatewayTxnID  string          `json:"gateway_transaction_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

type CheckoutCompletedEvent struct {
	EventID       string          `json:"event_id"`
	CartID        string          `json:"cart_id"`
	PaymentID     string          `json:"payment_id"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Items         []CartLine      `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	Timestamp     time.Time       `json:"timestamp"`
}
