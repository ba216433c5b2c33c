//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

func setupTestDB(t *testing.T) *PaymentRepository {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("payments"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewPaymentRepository(db)
	require.NoError(t, repo.RunMigrations())
	require.NoError(t, repo.RunMigrations(), "migrations are idempotent")
	return repo
}

func TestPaymentRepository_Postgres(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	p := models.NewPayment(decimal.RequireFromString("99.90"), "USD", models.MethodCreditCard, "pg@example.com", "integration", now)
	expires := now.Add(24 * time.Hour)
	p.ExpiresAt = &expires
	require.NoError(t, repo.Create(ctx, p))
	assert.NotZero(t, p.ID)

	stale, err := repo.FindByPaymentID(ctx, p.PaymentID)
	require.NoError(t, err)

	require.NoError(t, p.MarkAsProcessing(now))
	require.NoError(t, repo.Update(ctx, p))
	require.NoError(t, p.MarkAsPaid("TXN_9_000009", `{"status":"success"}`, now))
	require.NoError(t, repo.Update(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	require.NoError(t, stale.MarkAsCancelled(now))
	assert.ErrorIs(t, repo.Update(ctx, stale), interfaces.ErrVersionConflict)

	got, err := repo.FindByGatewayTransactionID(ctx, "TXN_9_000009")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.True(t, decimal.RequireFromString("99.90").Equal(got.Amount))
	require.NotNil(t, got.PaidAt)

	revenue, err := repo.SumCompletedSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("99.90").Equal(revenue))

	count, err := repo.CountSuccessfulByCustomer(ctx, "pg@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
