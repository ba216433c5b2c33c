package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// MoneyScale is the number of decimal places amounts are kept at.
const MoneyScale int32 = 2

// CardDetails are only ever held in memory for the duration of a gateway call.
type CardDetails struct {
	CardNumber     string `json:"cardNumber,omitempty"`
	CardHolderName string `json:"cardHolderName,omitempty"`
	ExpiryMonth    string `json:"expiryMonth,omitempty"`
	ExpiryYear     string `json:"expiryYear,omitempty"`
	CVV            string `json:"cvv,omitempty"`
}

type PaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	CustomerEmail  string          `json:"customerEmail"`
	CustomerName   string          `json:"customerName,omitempty"`
	CustomerPhone  string          `json:"customerPhone,omitempty"`
	BillingAddress string          `json:"billingAddress,omitempty"`
	Description    string          `json:"description,omitempty"`
	CardDetails
	ReturnURL  string `json:"returnUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`
	Metadata   string `json:"metadata,omitempty"`
}

type PaymentResponse struct {
	PaymentID            string          `json:"paymentId"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Status               PaymentStatus   `json:"status"`
	PaymentMethod        PaymentMethod   `json:"paymentMethod,omitempty"`
	CustomerEmail        string          `json:"customerEmail,omitempty"`
	CustomerName         string          `json:"customerName,omitempty"`
	Description          string          `json:"description,omitempty"`
	GatewayTransactionID string          `json:"gatewayTransactionId,omitempty"`
	GatewayResponse      string          `json:"gatewayResponse,omitempty"`
	RefundedAmount       decimal.Decimal `json:"refundedAmount"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	PaidAt               *time.Time      `json:"paidAt,omitempty"`
	FailedAt             *time.Time      `json:"failedAt,omitempty"`
	ExpiresAt            *time.Time      `json:"expiresAt,omitempty"`
	PaymentURL           string          `json:"paymentUrl,omitempty"`
	RedirectURL          string          `json:"redirectUrl,omitempty"`
	RequiresRedirect     bool            `json:"requiresRedirect"`
	ErrorCode            string          `json:"errorCode,omitempty"`
	ErrorMessage         string          `json:"errorMessage,omitempty"`
}

func NewPaymentResponse(p *Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:            p.PaymentID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		Status:               p.Status,
		PaymentMethod:        p.PaymentMethod,
		CustomerEmail:        p.CustomerEmail,
		CustomerName:         p.CustomerName,
		Description:          p.Description,
		GatewayTransactionID: p.GatewayTransactionID,
		GatewayResponse:      p.GatewayResponse,
		RefundedAmount:       p.RefundedAmount,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		PaidAt:               p.PaidAt,
		FailedAt:             p.FailedAt,
		ExpiresAt:            p.ExpiresAt,
	}
}

// FailedPaymentResponse describes a persisted payment that ended FAILED.
func FailedPaymentResponse(p *Payment, errorCode, errorMessage string) *PaymentResponse {
	resp := NewPaymentResponse(p)
	resp.Status = StatusFailed
	resp.ErrorCode = errorCode
	resp.ErrorMessage = errorMessage
	return resp
}

func PendingPaymentResponse(p *Payment, paymentURL string) *PaymentResponse {
	resp := NewPaymentResponse(p)
	resp.PaymentURL = paymentURL
	resp.RequiresRedirect = true
	return resp
}

type CheckoutRequest struct {
	CustomerEmail  string        `json:"customerEmail"`
	CustomerName   string        `json:"customerName,omitempty"`
	CustomerPhone  string        `json:"customerPhone,omitempty"`
	BillingAddress string        `json:"billingAddress,omitempty"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	CardDetails
	ReturnURL string `json:"returnUrl,omitempty"`
	CancelURL string `json:"cancelUrl,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// HasValidCardDetails is true when the method needs no card or every card field is filled in.
func HasValidCardDetails(method PaymentMethod, card CardDetails) bool {
	if !method.RequiresCardDetails() {
		return true
	}
	return notBlank(card.CardNumber) &&
		notBlank(card.CardHolderName) &&
		notBlank(card.ExpiryMonth) &&
		notBlank(card.ExpiryYear) &&
		notBlank(card.CVV)
}

type CheckoutResponse struct {
	PaymentID        string          `json:"paymentId,omitempty"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status,omitempty"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod,omitempty"`
	CustomerEmail    string          `json:"customerEmail,omitempty"`
	CustomerName     string          `json:"customerName,omitempty"`
	Description      string          `json:"description,omitempty"`
	CreatedAt        *time.Time      `json:"createdAt,omitempty"`
	PaymentURL       string          `json:"paymentUrl,omitempty"`
	RedirectURL      string          `json:"redirectUrl,omitempty"`
	RequiresRedirect bool            `json:"requiresRedirect"`
	CartItems        []CartLine      `json:"cartItems"`
	TotalQuantity    int             `json:"totalQuantity"`
	ErrorCode        string          `json:"errorCode,omitempty"`
	ErrorMessage     string          `json:"errorMessage,omitempty"`
}

func NewCheckoutResponse(payment *PaymentResponse, lines []CartLine, totalQuantity int) *CheckoutResponse {
	createdAt := payment.CreatedAt
	if lines == nil {
		lines = []CartLine{}
	}
	return &CheckoutResponse{
		PaymentID:        payment.PaymentID,
		TotalAmount:      payment.Amount,
		Currency:         payment.Currency,
		Status:           payment.Status,
		PaymentMethod:    payment.PaymentMethod,
		CustomerEmail:    payment.CustomerEmail,
		CustomerName:     payment.CustomerName,
		Description:      payment.Description,
		CreatedAt:        &createdAt,
		PaymentURL:       payment.PaymentURL,
		RedirectURL:      payment.RedirectURL,
		RequiresRedirect: payment.RequiresRedirect,
		CartItems:        lines,
		TotalQuantity:    totalQuantity,
		ErrorCode:        payment.ErrorCode,
		ErrorMessage:     payment.ErrorMessage,
	}
}

type PaymentStats struct {
	TotalPayments     int64           `json:"totalPayments"`
	CompletedPayments int64           `json:"completedPayments"`
	PendingPayments   int64           `json:"pendingPayments"`
	FailedPayments    int64           `json:"failedPayments"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	SuccessRate       float64         `json:"successRate"`
}

type PaymentMethodInfo struct {
	Method              PaymentMethod `json:"method"`
	DisplayName         string        `json:"displayName"`
	RequiresCardDetails bool          `json:"requiresCardDetails"`
	Online              bool          `json:"online"`
}

func ListPaymentMethods() []PaymentMethodInfo {
	out := make([]PaymentMethodInfo, 0, len(PaymentMethods))
	for _, m := range PaymentMethods {
		out = append(out, PaymentMethodInfo{
			Method:              m,
			DisplayName:         m.DisplayName(),
			RequiresCardDetails: m.RequiresCardDetails(),
			Online:              m.IsOnline(),
		})
	}
	return out
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
