package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const paymentColumns = `id, payment_id, amount, currency, status, payment_method,
	gateway_transaction_id, gateway_response, customer_email, customer_name,
	customer_phone, billing_address, description, metadata, refunded_amount,
	version, created_at, updated_at, paid_at, failed_at, expires_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// RunMigrations applies the embedded schema migrations.
func (r *PaymentRepository) RunMigrations() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (payment_id, amount, currency, status, payment_method,
			gateway_transaction_id, gateway_response, customer_email, customer_name,
			customer_phone, billing_address, description, metadata, refunded_amount,
			version, created_at, updated_at, paid_at, failed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`, p.PaymentID, p.Amount, p.Currency, p.Status, p.PaymentMethod,
		p.GatewayTransactionID, p.GatewayResponse, p.CustomerEmail, p.CustomerName,
		p.CustomerPhone, p.BillingAddress, p.Description, p.Metadata, p.RefundedAmount,
		p.Version, p.CreatedAt, p.UpdatedAt, nullTime(p.PaidAt), nullTime(p.FailedAt), nullTime(p.ExpiresAt),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert payment %s: %w", p.PaymentID, err)
	}
	return nil
}

// Update writes the mutable fields only if nobody else has written the row
// since it was read, then bumps the version.
func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, gateway_transaction_id = $2, gateway_response = $3,
			refunded_amount = $4, updated_at = $5, paid_at = $6, failed_at = $7,
			version = version + 1
		WHERE payment_id = $8 AND version = $9
	`, p.Status, p.GatewayTransactionID, p.GatewayResponse, p.RefundedAmount,
		p.UpdatedAt, nullTime(p.PaidAt), nullTime(p.FailedAt), p.PaymentID, p.Version)
	if err != nil {
		return fmt.Errorf("update payment %s: %w", p.PaymentID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment %s: %w", p.PaymentID, err)
	}
	if rows == 0 {
		return fmt.Errorf("update payment %s at version %d: %w", p.PaymentID, p.Version, interfaces.ErrVersionConflict)
	}

	p.Version++
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*models.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *PaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1`, paymentID)
}

func (r *PaymentRepository) FindByGatewayTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_transaction_id = $1 LIMIT 1`, transactionID)
}

func (r *PaymentRepository) FindByCustomerEmail(ctx context.Context, email string) ([]*models.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments WHERE customer_email = $1 ORDER BY created_at DESC`, email)
}

func (r *PaymentRepository) FindByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments WHERE status = $1 ORDER BY created_at DESC`, status)
}

func (r *PaymentRepository) FindByMethod(ctx context.Context, method models.PaymentMethod) ([]*models.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_method = $1 ORDER BY created_at DESC`, method)
}

func (r *PaymentRepository) FindBetween(ctx context.Context, from, to time.Time) ([]*models.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC`, from, to)
}

func (r *PaymentRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]*models.Payment, error) {
	return r.findMany(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE status = $1 AND expires_at < $2 ORDER BY expires_at`, models.StatusPending, now)
}

func (r *PaymentRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM payments`)
}

func (r *PaymentRepository) CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM payments WHERE status = $1`, status)
}

func (r *PaymentRepository) CountSuccessfulByCustomer(ctx context.Context, email string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM payments WHERE status = $1 AND customer_email = $2`, models.StatusCompleted, email)
}

func (r *PaymentRepository) SumCompletedSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM payments WHERE status = $1 AND created_at >= $2`,
		models.StatusCompleted, since,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum completed payments: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p                         models.Payment
		paidAt, failedAt, expires sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.PaymentID, &p.Amount, &p.Currency, &p.Status, &p.PaymentMethod,
		&p.GatewayTransactionID, &p.GatewayResponse, &p.CustomerEmail, &p.CustomerName,
		&p.CustomerPhone, &p.BillingAddress, &p.Description, &p.Metadata, &p.RefundedAmount,
		&p.Version, &p.CreatedAt, &p.UpdatedAt, &paidAt, &failedAt, &expires,
	)
	if err != nil {
		return nil, err
	}
	p.PaidAt = timePtr(paidAt)
	p.FailedAt = timePtr(failedAt)
	p.ExpiresAt = timePtr(expires)
	return &p, nil
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
