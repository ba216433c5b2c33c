package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPayment(amount string) *Payment {
	return NewPayment(decimal.RequireFromString(amount), "USD", MethodMockGateway, "buyer@example.com", "test", fixedNow)
}

func TestNewPaymentID_Format(t *testing.T) {
	id := NewPaymentID(fixedNow)
	assert.Regexp(t, regexp.MustCompile(`^PAY_1709294400000_[0-9A-F]{8}$`), id)
	assert.NotEqual(t, id, NewPaymentID(fixedNow))
}

func TestPaymentStatus_Predicates(t *testing.T) {
	testCases := []struct {
		status     PaymentStatus
		final      bool
		successful bool
		pending    bool
	}{
		{StatusPending, false, false, true},
		{StatusProcessing, false, false, true},
		{StatusCompleted, true, true, false},
		{StatusFailed, true, false, false},
		{StatusCancelled, true, false, false},
		{StatusRefunded, false, false, false},
		{StatusPartiallyRefunded, false, false, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.True(t, tc.status.Valid())
			assert.NotEmpty(t, tc.status.Description())
			assert.Equal(t, tc.final, tc.status.IsFinal())
			assert.Equal(t, tc.successful, tc.status.IsSuccessful())
			assert.Equal(t, tc.pending, tc.status.IsPending())
		})
	}
	assert.False(t, PaymentStatus("SETTLED").Valid())
}

func TestPaymentMethod_Predicates(t *testing.T) {
	for _, m := range PaymentMethods {
		assert.True(t, m.Valid(), m)
		assert.Equal(t, m == MethodCreditCard || m == MethodDebitCard, m.RequiresCardDetails(), m)
		assert.Equal(t, m != MethodCashOnDelivery, m.IsOnline(), m)
	}
	assert.Equal(t, "Cash on Delivery", MethodCashOnDelivery.DisplayName())
	assert.False(t, PaymentMethod("BITCOIN").Valid())
}

func TestPayment_ProcessToCompleted(t *testing.T) {
	p := newTestPayment("100")
	later := fixedNow.Add(time.Second)

	require.NoError(t, p.MarkAsProcessing(later))
	require.NoError(t, p.MarkAsPaid("TXN_1", `{"success":true}`, later))

	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, "TXN_1", p.GatewayTransactionID)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, later, *p.PaidAt)
	assert.Nil(t, p.FailedAt)
}

func TestPayment_ProcessToFailed(t *testing.T) {
	p := newTestPayment("100")

	require.NoError(t, p.MarkAsProcessing(fixedNow))
	require.NoError(t, p.MarkAsFailed(`{"success":false}`, fixedNow))

	assert.Equal(t, StatusFailed, p.Status)
	require.NotNil(t, p.FailedAt)
	assert.ErrorIs(t, p.MarkAsProcessing(fixedNow), ErrInvalidTransition)
}

func TestPayment_IllegalTransitions(t *testing.T) {
	p := newTestPayment("10")

	assert.ErrorIs(t, p.MarkAsFailed("", fixedNow), ErrInvalidTransition)
	assert.ErrorIs(t, p.MarkAsRefunded(decimal.NewFromInt(1), fixedNow), ErrInvalidTransition)
	assert.Equal(t, StatusPending, p.Status)

	require.NoError(t, p.MarkAsCancelled(fixedNow))
	assert.ErrorIs(t, p.MarkAsPaid("TXN", "", fixedNow), ErrInvalidTransition)
	assert.ErrorIs(t, p.MarkAsCancelled(fixedNow), ErrInvalidTransition)
}

func TestPayment_Refunds(t *testing.T) {
	full := newTestPayment("100")
	require.NoError(t, full.MarkAsPaid("TXN", "", fixedNow))
	require.NoError(t, full.MarkAsRefunded(decimal.RequireFromString("100.00"), fixedNow))
	assert.Equal(t, StatusRefunded, full.Status)
	assert.True(t, full.RemainingRefundable().IsZero())

	partial := newTestPayment("100")
	require.NoError(t, partial.MarkAsPaid("TXN", "", fixedNow))
	require.NoError(t, partial.MarkAsRefunded(decimal.NewFromInt(50), fixedNow))
	assert.Equal(t, StatusPartiallyRefunded, partial.Status)
	assert.True(t, decimal.NewFromInt(50).Equal(partial.RemainingRefundable()))
}

func TestPayment_Expiry(t *testing.T) {
	p := newTestPayment("5")
	assert.True(t, p.CanBeProcessed(fixedNow))
	assert.False(t, p.IsExpired(fixedNow.Add(48*time.Hour)))

	expires := fixedNow.Add(24 * time.Hour)
	p.ExpiresAt = &expires
	assert.False(t, p.IsExpired(expires))
	assert.True(t, p.IsExpired(expires.Add(time.Millisecond)))
	assert.False(t, p.CanBeProcessed(expires.Add(time.Minute)))

	require.NoError(t, p.MarkAsCancelled(fixedNow))
	assert.False(t, p.CanBeProcessed(fixedNow))
}

func TestHasValidCardDetails(t *testing.T) {
	card := CardDetails{CardNumber: "4111111111111111", CardHolderName: "A B", ExpiryMonth: "12", ExpiryYear: "2030", CVV: "123"}
	assert.True(t, HasValidCardDetails(MethodCreditCard, card))

	card.CVV = "   "
	assert.False(t, HasValidCardDetails(MethodCreditCard, card))
	assert.False(t, HasValidCardDetails(MethodDebitCard, card))
	assert.True(t, HasValidCardDetails(MethodPaypal, CardDetails{}))
}
