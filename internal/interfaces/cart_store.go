package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

// CartStore keeps one cart per session. Get returns an empty cart for unknown ids.
type CartStore interface {
	Get(ctx context.Context, cartID string) (*models.Cart, error)
	Save(ctx context.Context, cartID string, cart *models.Cart) error
	Delete(ctx context.Context, cartID string) error
}
