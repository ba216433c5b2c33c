package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

const (
	StateChangedTopic        = "payment.state.changed"
	CheckoutCompletedSubject = "checkout.completed"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SubjectPublisher is the subset of *nats.Conn the publisher needs.
type SubjectPublisher interface {
	Publish(subject string, data []byte) error
}

// Publisher sends payment state changes to Kafka and checkout notifications
// to NATS. Either side may be nil, in which case those events are dropped.
type Publisher struct {
	writer MessageWriter
	nc     SubjectPublisher
}

func NewPublisher(writer MessageWriter, nc SubjectPublisher) *Publisher {
	return &Publisher{writer: writer, nc: nc}
}

// kafkaBatchTimeout bounds how long a state change waits in the writer buffer.
const kafkaBatchTimeout = 10 * time.Millisecond

// NewKafkaWriter builds the writer for the state-change topic. Writes are
// asynchronous: WriteMessages only enqueues, delivery failures are logged from
// the completion callback, and Close flushes what is still buffered.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  StateChangedTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           kafkaBatchTimeout,
		Completion:             logDeliveryFailure,
	}
}

func logDeliveryFailure(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		telemetry.Logger.Warn("Failed to deliver payment state change",
			zap.String("topic", StateChangedTopic),
			zap.String("payment_id", string(m.Key)),
			zap.Error(err),
		)
	}
}

func NewNATSConn(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("checkout-orchestrator"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func (p *Publisher) PublishStateChanged(ctx context.Context, event *models.PaymentStateChangedEvent) error {
	if p.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode state change: %w", err)
	}
	// One payment always maps to one partition.
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.PaymentID), Value: data}); err != nil {
		return fmt.Errorf("publish state change for %s: %w", event.PaymentID, err)
	}
	return nil
}

func (p *Publisher) PublishCheckoutCompleted(_ context.Context, event *models.CheckoutCompletedEvent) error {
	if p.nc == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode checkout completed: %w", err)
	}
	if err := p.nc.Publish(CheckoutCompletedSubject, data); err != nil {
		return fmt.Errorf("publish checkout completed for %s: %w", event.PaymentID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	var errs []error
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := p.nc.(interface{ Drain() error }); ok {
		if err := closer.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
