package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces/mocks"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

// scriptedRandom replays fixed values, reduced modulo n.
type scriptedRandom struct {
	values []int
	next   int
}

func (s *scriptedRandom) Intn(n int) int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}

var testNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func newTestSimulator(values ...int) *Simulator {
	cfg := DefaultConfig()
	cfg.ProcessLatency = LatencyRange{}
	cfg.VerifyLatency = LatencyRange{}
	cfg.RefundLatency = LatencyRange{}
	sim := NewSimulator(cfg, &scriptedRandom{values: values})
	sim.now = func() time.Time { return testNow }
	return sim
}

func testRequest() *models.PaymentRequest {
	return &models.PaymentRequest{
		Amount:        decimal.RequireFromString("42.50"),
		Currency:      "USD",
		PaymentMethod: models.MethodMockGateway,
		CustomerEmail: "buyer@example.com",
	}
}

func TestProcessPayment_Success(t *testing.T) {
	// txn digits, success roll
	sim := newTestSimulator(123, 10)

	result, err := sim.ProcessPayment(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "TXN_1715333400000_000123", result.TransactionID)
	assert.Equal(t, DefaultName, result.GatewayName)
	assert.Equal(t, "Payment processed successfully", result.Message)
	assert.Empty(t, result.ErrorCode)
	assert.Equal(t, DefaultBaseURL+"/"+result.TransactionID, result.PaymentURL)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(result.RawResponse), &raw))
	assert.Equal(t, "success", raw["status"])
	assert.Equal(t, "42.50", raw["amount"])
}

func TestProcessPayment_Decline(t *testing.T) {
	// txn digits, failing roll, reason index, code index
	sim := newTestSimulator(7, 99, 1, 6)

	result, err := sim.ProcessPayment(context.Background(), testRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "Card declined", result.Message)
	assert.Equal(t, "FRAUD_DETECTED", result.ErrorCode)
	assert.Contains(t, result.RawResponse, `"status":"failed"`)
}

func TestProcessPayment_SuccessRateBoundary(t *testing.T) {
	assert.True(t, newTestSimulator(84).roll())
	assert.False(t, newTestSimulator(85).roll())
}

func TestProcessPayment_ContextCancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProcessLatency = LatencyRange{Min: time.Minute, Max: time.Minute}
	sim := NewSimulator(cfg, NewRandomSource(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := sim.ProcessPayment(ctx, testRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestVerifyPayment_AlwaysSucceeds(t *testing.T) {
	sim := newTestSimulator(99)

	result, err := sim.VerifyPayment(context.Background(), "TXN_1_000001")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "TXN_1_000001", result.TransactionID)
	assert.Equal(t, "Payment verified successfully", result.Message)
}

func TestRefundPayment(t *testing.T) {
	ok, err := newTestSimulator(5, 0).RefundPayment(context.Background(), "TXN_1", decimal.NewFromInt(50), "customer request")
	require.NoError(t, err)
	assert.True(t, ok.Success)
	assert.Regexp(t, regexp.MustCompile(`^REF_\d+_\d{6}$`), ok.TransactionID)
	assert.Contains(t, ok.RawResponse, `"original_transaction_id":"TXN_1"`)

	failed, err := newTestSimulator(5, 90).RefundPayment(context.Background(), "TXN_1", decimal.NewFromInt(50), "")
	require.NoError(t, err)
	assert.False(t, failed.Success)
	assert.Equal(t, "REFUND_FAILED", failed.ErrorCode)
	assert.Equal(t, "Refund failed - insufficient funds", failed.Message)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(failed.RawResponse), &raw))
	assert.Equal(t, "failed", raw["status"])
	assert.Equal(t, "REFUND_FAILED", raw["error_code"])
	assert.Equal(t, "Refund failed - insufficient funds", raw["error_message"])
	assert.Equal(t, "TXN_1", raw["original_transaction_id"])
}

func TestGeneratePaymentURL(t *testing.T) {
	sim := newTestSimulator(0)

	raw := sim.GeneratePaymentURL("PAY_1_ABCDEF01", decimal.RequireFromString("25"), "USD", "https://shop.example.com/done?x=1")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "/api/payment/mock-pay/PAY_1_ABCDEF01", u.Path)
	assert.Equal(t, "25.00", u.Query().Get("amount"))
	assert.Equal(t, "USD", u.Query().Get("currency"))
	assert.Equal(t, "https://shop.example.com/done?x=1", u.Query().Get("return_url"))
}

func TestBreakerGateway_TripsOnErrorsNotDeclines(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockGateway(ctrl)
	breaker := NewBreakerGateway(next, BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	next.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).
		Return(&models.GatewayResult{Success: false, ErrorCode: "CARD_DECLINED"}, nil).Times(3)
	for i := 0; i < 3; i++ {
		_, err := breaker.ProcessPayment(ctx, testRequest())
		require.NoError(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	next.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused")).Times(2)
	for i := 0; i < 2; i++ {
		_, err := breaker.ProcessPayment(ctx, testRequest())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	_, err := breaker.ProcessPayment(ctx, testRequest())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerGateway_IgnoresCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockGateway(ctrl)
	breaker := NewBreakerGateway(next, BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	next.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *models.PaymentRequest) (*models.GatewayResult, error) {
			return nil, ctx.Err()
		}).Times(6)
	for i := 0; i < 3; i++ {
		_, err := breaker.ProcessPayment(cancelled, testRequest())
		assert.ErrorIs(t, err, context.Canceled)
		_, err = breaker.ProcessPayment(expired, testRequest())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	next.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).
		Return(&models.GatewayResult{Success: true, TransactionID: "TXN_1_000001"}, nil)
	result, err := breaker.ProcessPayment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
}
