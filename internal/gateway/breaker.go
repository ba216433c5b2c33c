package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Declines never count as failures.
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// BreakerGateway short-circuits calls to a gateway that keeps erroring.
type BreakerGateway struct {
	next interfaces.Gateway
	cb   *gobreaker.CircuitBreaker[*models.GatewayResult]
}

func NewBreakerGateway(next interfaces.Gateway, cfg BreakerConfig) *BreakerGateway {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		// Calls abandoned by the caller say nothing about gateway health.
		IsSuccessful: func(err error) bool {
			var done callerDone
			return err == nil || errors.As(err, &done)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Logger.Warn("Gateway circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerGateway{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*models.GatewayResult](settings),
	}
}

// callerDone marks an error returned after the caller's context ended, be it
// cancelled or past its deadline.
type callerDone struct{ err error }

func (e callerDone) Error() string { return e.err.Error() }
func (e callerDone) Unwrap() error { return e.err }

func (g *BreakerGateway) execute(ctx context.Context, call func() (*models.GatewayResult, error)) (*models.GatewayResult, error) {
	result, err := g.cb.Execute(func() (*models.GatewayResult, error) {
		result, err := call()
		if err != nil && ctx.Err() != nil {
			return result, callerDone{err: err}
		}
		return result, err
	})
	var done callerDone
	if errors.As(err, &done) {
		return result, done.err
	}
	return result, err
}

func (g *BreakerGateway) ProcessPayment(ctx context.Context, req *models.PaymentRequest) (*models.GatewayResult, error) {
	return g.execute(ctx, func() (*models.GatewayResult, error) {
		return g.next.ProcessPayment(ctx, req)
	})
}

func (g *BreakerGateway) VerifyPayment(ctx context.Context, transactionID string) (*models.GatewayResult, error) {
	return g.execute(ctx, func() (*models.GatewayResult, error) {
		return g.next.VerifyPayment(ctx, transactionID)
	})
}

func (g *BreakerGateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) (*models.GatewayResult, error) {
	return g.execute(ctx, func() (*models.GatewayResult, error) {
		return g.next.RefundPayment(ctx, transactionID, amount, reason)
	})
}

func (g *BreakerGateway) GeneratePaymentURL(paymentID string, amount decimal.Decimal, currency, returnURL string) string {
	return g.next.GeneratePaymentURL(paymentID, amount, currency, returnURL)
}

func (g *BreakerGateway) State() gobreaker.State {
	return g.cb.State()
}
