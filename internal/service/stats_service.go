package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

const revenueWindow = 30 * 24 * time.Hour

// StatsService answers read-only questions about stored payments.
type StatsService struct {
	repo  interfaces.PaymentRepository
	group singleflight.Group
	now   func() time.Time
}

func NewStatsService(repo interfaces.PaymentRepository, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{repo: repo, now: now}
}

// GetPaymentStats aggregates counters over all payments. Revenue only counts
// COMPLETED payments created in the trailing 30 days. Concurrent callers share
// one computation.
func (s *StatsService) GetPaymentStats(ctx context.Context) (*models.PaymentStats, error) {
	v, err, _ := s.group.Do("payment-stats", func() (interface{}, error) {
		return s.computeStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	stats := *v.(*models.PaymentStats)
	return &stats, nil
}

func (s *StatsService) computeStats(ctx context.Context) (*models.PaymentStats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, apperror.Internal("Failed to count payments", err)
	}
	completed, err := s.repo.CountByStatus(ctx, models.StatusCompleted)
	if err != nil {
		return nil, apperror.Internal("Failed to count payments", err)
	}
	pending, err := s.repo.CountByStatus(ctx, models.StatusPending)
	if err != nil {
		return nil, apperror.Internal("Failed to count payments", err)
	}
	failed, err := s.repo.CountByStatus(ctx, models.StatusFailed)
	if err != nil {
		return nil, apperror.Internal("Failed to count payments", err)
	}
	revenue, err := s.repo.SumCompletedSince(ctx, s.now().Add(-revenueWindow))
	if err != nil {
		return nil, apperror.Internal("Failed to sum revenue", err)
	}

	var rate float64
	if total > 0 {
		rate = float64(completed) / float64(total) * 100
	}

	return &models.PaymentStats{
		TotalPayments:     total,
		CompletedPayments: completed,
		PendingPayments:   pending,
		FailedPayments:    failed,
		TotalRevenue:      revenue,
		SuccessRate:       rate,
	}, nil
}

func (s *StatsService) ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]*models.PaymentResponse, error) {
	if to.Before(from) {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "Range end must not be before range start")
	}
	payments, err := s.repo.FindBetween(ctx, from, to)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch payments", err)
	}
	return toResponses(payments), nil
}

// ListExpiredPending returns PENDING payments whose expiry has passed. Nothing
// sweeps them; they only stop being processable.
func (s *StatsService) ListExpiredPending(ctx context.Context) ([]*models.PaymentResponse, error) {
	payments, err := s.repo.FindExpiredPending(ctx, s.now())
	if err != nil {
		return nil, apperror.Internal("Failed to fetch payments", err)
	}
	return toResponses(payments), nil
}

func (s *StatsService) CountSuccessfulByCustomer(ctx context.Context, email string) (int64, error) {
	n, err := s.repo.CountSuccessfulByCustomer(ctx, email)
	if err != nil {
		return 0, apperror.Internal("Failed to count payments", err)
	}
	return n, nil
}

func (s *StatsService) FindByGatewayTransactionID(ctx context.Context, transactionID string) (*models.PaymentResponse, error) {
	payment, err := s.repo.FindByGatewayTransactionID(ctx, transactionID)
	if errors.Is(err, interfaces.ErrPaymentNotFound) {
		return nil, apperror.NotFound("Payment not found")
	}
	if err != nil {
		return nil, apperror.Internal("Failed to fetch payment", err)
	}
	return models.NewPaymentResponse(payment), nil
}

func (s *StatsService) FindByMethod(ctx context.Context, method models.PaymentMethod) ([]*models.PaymentResponse, error) {
	if !method.Valid() {
		return nil, apperror.Validation(apperror.CodeInvalidPaymentMethod, "Unknown payment method")
	}
	payments, err := s.repo.FindByMethod(ctx, method)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch payments", err)
	}
	return toResponses(payments), nil
}

func (s *StatsService) FindByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.PaymentResponse, error) {
	if !status.Valid() {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "Unknown payment status")
	}
	payments, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch payments", err)
	}
	return toResponses(payments), nil
}
