package interfaces

//go:generate mockgen -source=event_publisher.go -destination=mocks/event_publisher_mock.go -package=mocks

import (
	"context"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

type EventPublisher interface {
	PublishStateChanged(ctx context.Context, event *models.PaymentStateChangedEvent) error
	PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error
	Close() error
}
