package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

const (
	DefaultName        = "MockPaymentGateway"
	DefaultBaseURL     = "http://localhost:8080/api/payment/mock-pay"
	DefaultSuccessRate = 85
)

// RandomSource decides simulated outcomes. Intn returns a value in [0, n).
type RandomSource interface {
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSource returns a goroutine-safe pseudo-random source.
func NewRandomSource(seed int64) RandomSource {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

type LatencyRange struct {
	Min time.Duration
	Max time.Duration
}

type Config struct {
	Name           string
	BaseURL        string
	SuccessRate    int
	ProcessLatency LatencyRange
	VerifyLatency  LatencyRange
	RefundLatency  LatencyRange
}

func DefaultConfig() Config {
	return Config{
		Name:           DefaultName,
		BaseURL:        DefaultBaseURL,
		SuccessRate:    DefaultSuccessRate,
		ProcessLatency: LatencyRange{Min: time.Second, Max: 3 * time.Second},
		VerifyLatency:  LatencyRange{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond},
		RefundLatency:  LatencyRange{Min: 1500 * time.Millisecond, Max: 3500 * time.Millisecond},
	}
}

var failureReasons = []string{
	"Insufficient funds",
	"Card declined",
	"Invalid card details",
	"Expired card",
	"Network timeout",
	"Gateway unavailable",
	"Fraud detection triggered",
}

var failureCodes = []string{
	"INSUFFICIENT_FUNDS",
	"CARD_DECLINED",
	"INVALID_CARD",
	"EXPIRED_CARD",
	"NETWORK_ERROR",
	"GATEWAY_ERROR",
	"FRAUD_DETECTED",
}

// Simulator is an in-process stand-in for a card processor. Outcomes are
// drawn from the injected RandomSource and each call waits a simulated latency.
type Simulator struct {
	cfg Config
	rnd RandomSource
	now func() time.Time
}

func NewSimulator(cfg Config, rnd RandomSource) *Simulator {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Simulator{cfg: cfg, rnd: rnd, now: time.Now}
}

func (s *Simulator) ProcessPayment(ctx context.Context, req *models.PaymentRequest) (*models.GatewayResult, error) {
	start := time.Now()
	if err := s.wait(ctx, s.cfg.ProcessLatency); err != nil {
		telemetry.ObserveGatewayCall("process", "error", time.Since(start))
		return nil, fmt.Errorf("gateway process: %w", err)
	}

	now := s.now()
	result := &models.GatewayResult{
		TransactionID: s.reference("TXN", now),
		GatewayName:   s.cfg.Name,
		ProcessedAt:   now,
	}

	raw := map[string]interface{}{
		"transaction_id": result.TransactionID,
		"amount":         req.Amount.StringFixed(2),
		"currency":       req.Currency,
		"payment_method": string(req.PaymentMethod),
		"processed_at":   now.Format(time.RFC3339Nano),
	}

	if s.roll() {
		result.Success = true
		result.Message = "Payment processed successfully"
		result.PaymentURL = s.cfg.BaseURL + "/" + result.TransactionID
		raw["status"] = "success"
	} else {
		result.Message = failureReasons[s.rnd.Intn(len(failureReasons))]
		result.ErrorCode = failureCodes[s.rnd.Intn(len(failureCodes))]
		raw["status"] = "failed"
		raw["error_code"] = result.ErrorCode
		raw["error_message"] = result.Message
	}
	result.RawResponse = encodeRaw(raw)

	telemetry.ObserveGatewayCall("process", outcome(result), time.Since(start))
	telemetry.Logger.Debug("Gateway processed payment",
		zap.String("transaction_id", result.TransactionID),
		zap.Bool("success", result.Success),
		zap.String("error_code", result.ErrorCode),
	)
	return result, nil
}

// VerifyPayment always confirms the transaction.
func (s *Simulator) VerifyPayment(ctx context.Context, transactionID string) (*models.GatewayResult, error) {
	start := time.Now()
	if err := s.wait(ctx, s.cfg.VerifyLatency); err != nil {
		telemetry.ObserveGatewayCall("verify", "error", time.Since(start))
		return nil, fmt.Errorf("gateway verify: %w", err)
	}

	result := &models.GatewayResult{
		TransactionID: transactionID,
		GatewayName:   s.cfg.Name,
		Success:       true,
		Message:       "Payment verified successfully",
		RawResponse: encodeRaw(map[string]interface{}{
			"status":         "verified",
			"transaction_id": transactionID,
		}),
		ProcessedAt: s.now(),
	}
	telemetry.ObserveGatewayCall("verify", outcome(result), time.Since(start))
	return result, nil
}

func (s *Simulator) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error) {
	start := time.Now()
	if err := s.wait(ctx, s.cfg.RefundLatency); err != nil {
		telemetry.ObserveGatewayCall("refund", "error", time.Since(start))
		return nil, fmt.Errorf("gateway refund: %w", err)
	}

	now := s.now()
	result := &models.GatewayResult{
		TransactionID: s.reference("REF", now),
		GatewayName:   s.cfg.Name,
		ProcessedAt:   now,
	}

	raw := map[string]interface{}{
		"refund_id":               result.TransactionID,
		"original_transaction_id": transactionID,
		"refund_amount":           amount.StringFixed(2),
		"reason":                  reason,
		"processed_at":            now.Format(time.RFC3339Nano),
	}
	if s.roll() {
		result.Success = true
		result.Message = "Refund processed successfully"
		raw["status"] = "success"
	} else {
		result.Message = "Refund failed - insufficient funds"
		result.ErrorCode = "REFUND_FAILED"
		raw["status"] = "failed"
		raw["error_code"] = result.ErrorCode
		raw["error_message"] = result.Message
	}
	result.RawResponse = encodeRaw(raw)

	telemetry.ObserveGatewayCall("refund", outcome(result), time.Since(start))
	return result, nil
}

// GeneratePaymentURL builds the redirect URL for the hosted payment page.
func (s *Simulator) GeneratePaymentURL(paymentID string, amount decimal.Decimal, currency, returnURL string) string {
	q := url.Values{}
	q.Set("amount", amount.StringFixed(2))
	q.Set("currency", currency)
	q.Set("return_url", returnURL)
	return fmt.Sprintf("%s/%s?%s", s.cfg.BaseURL, url.PathEscape(paymentID), q.Encode())
}

func (s *Simulator) roll() bool {
	return s.rnd.Intn(100) < s.cfg.SuccessRate
}

func (s *Simulator) reference(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%06d", prefix, now.UnixMilli(), s.rnd.Intn(1000000))
}

// wait blocks for a random duration inside r, or until ctx is done.
func (s *Simulator) wait(ctx context.Context, r LatencyRange) error {
	d := r.Min
	if span := r.Max - r.Min; span > 0 {
		d += time.Duration(s.rnd.Intn(int(span/time.Millisecond)+1)) * time.Millisecond
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outcome(r *models.GatewayResult) string {
	if r.Success {
		return "success"
	}
	return "declined"
}

func encodeRaw(fields map[string]interface{}) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}
