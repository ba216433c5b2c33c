package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

// MemoryPaymentRepository keeps payments in process memory with the same
// version check as the Postgres repository. Stored values are copied on the
// way in and out so callers never share a record.
type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	nextID   int64
	payments map[string]*models.Payment
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{payments: make(map[string]*models.Payment)}
}

func (r *MemoryPaymentRepository) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.PaymentID]; exists {
		return fmt.Errorf("insert payment %s: duplicate payment id", p.PaymentID)
	}
	r.nextID++
	p.ID = r.nextID
	r.payments[p.PaymentID] = clonePayment(p)
	return nil
}

func (r *MemoryPaymentRepository) Update(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.payments[p.PaymentID]
	if !ok || stored.Version != p.Version {
		return fmt.Errorf("update payment %s at version %d: %w", p.PaymentID, p.Version, interfaces.ErrVersionConflict)
	}

	p.Version++
	r.payments[p.PaymentID] = clonePayment(p)
	return nil
}

func (r *MemoryPaymentRepository) FindByID(_ context.Context, id int64) (*models.Payment, error) {
	return r.first(func(p *models.Payment) bool { return p.ID == id })
}

func (r *MemoryPaymentRepository) FindByPaymentID(_ context.Context, paymentID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[paymentID]
	if !ok {
		return nil, interfaces.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (r *MemoryPaymentRepository) FindByGatewayTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	return r.first(func(p *models.Payment) bool {
		return transactionID != "" && p.GatewayTransactionID == transactionID
	})
}

func (r *MemoryPaymentRepository) FindByCustomerEmail(_ context.Context, email string) ([]*models.Payment, error) {
	return r.filter(func(p *models.Payment) bool { return p.CustomerEmail == email }), nil
}

func (r *MemoryPaymentRepository) FindByStatus(_ context.Context, status models.PaymentStatus) ([]*models.Payment, error) {
	return r.filter(func(p *models.Payment) bool { return p.Status == status }), nil
}

func (r *MemoryPaymentRepository) FindByMethod(_ context.Context, method models.PaymentMethod) ([]*models.Payment, error) {
	return r.filter(func(p *models.Payment) bool { return p.PaymentMethod == method }), nil
}

func (r *MemoryPaymentRepository) FindBetween(_ context.Context, from, to time.Time) ([]*models.Payment, error) {
	return r.filter(func(p *models.Payment) bool {
		return !p.CreatedAt.Before(from) && !p.CreatedAt.After(to)
	}), nil
}

func (r *MemoryPaymentRepository) FindExpiredPending(_ context.Context, now time.Time) ([]*models.Payment, error) {
	return r.filter(func(p *models.Payment) bool {
		return p.Status == models.StatusPending && p.ExpiresAt != nil && p.ExpiresAt.Before(now)
	}), nil
}

func (r *MemoryPaymentRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.payments)), nil
}

func (r *MemoryPaymentRepository) CountByStatus(_ context.Context, status models.PaymentStatus) (int64, error) {
	return int64(len(r.filter(func(p *models.Payment) bool { return p.Status == status }))), nil
}

func (r *MemoryPaymentRepository) CountSuccessfulByCustomer(_ context.Context, email string) (int64, error) {
	return int64(len(r.filter(func(p *models.Payment) bool {
		return p.Status == models.StatusCompleted && p.CustomerEmail == email
	}))), nil
}

func (r *MemoryPaymentRepository) SumCompletedSince(_ context.Context, since time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.filter(func(p *models.Payment) bool {
		return p.Status == models.StatusCompleted && !p.CreatedAt.Before(since)
	}) {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (r *MemoryPaymentRepository) first(match func(*models.Payment) bool) (*models.Payment, error) {
	found := r.filter(match)
	if len(found) == 0 {
		return nil, interfaces.ErrPaymentNotFound
	}
	return found[0], nil
}

// filter returns copies of matching payments, newest first.
func (r *MemoryPaymentRepository) filter(match func(*models.Payment) bool) []*models.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Payment, 0)
	for _, p := range r.payments {
		if match(p) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	c.PaidAt = cloneTime(p.PaidAt)
	c.FailedAt = cloneTime(p.FailedAt)
	c.ExpiresAt = cloneTime(p.ExpiresAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
