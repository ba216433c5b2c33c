package models

import "time"

// GatewayResult is the outcome reported by a payment gateway for a single call.
// Success=false with a nil error is a decline, not a transport failure.
type GatewayResult struct {
	TransactionID string    `json:"transaction_id"`
	GatewayName   string    `json:"gateway_name"`
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	ErrorCode     string    `json:"error_code,omitempty"`
	PaymentURL    string    `json:"payment_url,omitempty"`
	RawResponse   string    `json:"raw_response"`
	ProcessedAt   time.Time `json:"processed_at"`
}
