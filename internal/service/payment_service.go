package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/repository"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

const DefaultPaymentExpiry = 24 * time.Hour

type PaymentService struct {
	repo      interfaces.PaymentRepository
	gateway   interfaces.Gateway
	locker    interfaces.Locker
	publisher interfaces.EventPublisher
	expiry    time.Duration
	now       func() time.Time
}

type PaymentServiceOption func(*PaymentService)

func WithPaymentExpiry(d time.Duration) PaymentServiceOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) { s.now = now }
}

func NewPaymentService(
	repo interfaces.PaymentRepository,
	gateway interfaces.Gateway,
	locker interfaces.Locker,
	publisher interfaces.EventPublisher,
	opts ...PaymentServiceOption,
) *PaymentService {
	s := &PaymentService{
		repo:      repo,
		gateway:   gateway,
		locker:    locker,
		publisher: publisher,
		expiry:    DefaultPaymentExpiry,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessPayment charges synchronously. A payment row created here always ends
// up COMPLETED or FAILED, even if ctx is cancelled while the gateway is working.
func (s *PaymentService) ProcessPayment(ctx context.Context, req *models.PaymentRequest) (resp *models.PaymentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.ProcessPayment")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.validate(req); err != nil {
		telemetry.RecordPayment("process", apperror.Code(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.method", string(req.PaymentMethod)))

	now := s.now()
	payment := s.newPayment(req, now)
	payment.Status = models.StatusProcessing
	if err := s.create(ctx, payment); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.id", payment.PaymentID))

	result, gwErr := s.gateway.ProcessPayment(ctx, req)

	// The outcome must be recorded even if the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)

	if gwErr != nil {
		telemetry.Logger.Error("Gateway call failed",
			zap.String("payment_id", payment.PaymentID),
			zap.Error(gwErr),
		)
		if err := payment.MarkAsFailed(gatewayErrorRaw(gwErr), s.now()); err != nil {
			return nil, apperror.Internal("Failed to update payment", err)
		}
		if err := s.transition(persistCtx, payment, models.StatusProcessing); err != nil {
			return nil, err
		}
		telemetry.RecordPayment("process", apperror.CodeGatewayError)
		gatewayErr := apperror.Gateway(apperror.CodeGatewayError, "Payment gateway unavailable")
		gatewayErr.Err = gwErr
		return models.FailedPaymentResponse(payment, gatewayErr.Code, gatewayErr.Message), gatewayErr
	}

	if result.Success {
		if err := payment.MarkAsPaid(result.TransactionID, result.RawResponse, result.ProcessedAt); err != nil {
			return nil, apperror.Internal("Failed to update payment", err)
		}
		if err := s.transition(persistCtx, payment, models.StatusProcessing); err != nil {
			return nil, err
		}
		telemetry.RecordPayment("process", string(models.StatusCompleted))
		return models.NewPaymentResponse(payment), nil
	}

	if err := payment.MarkAsFailed(result.RawResponse, result.ProcessedAt); err != nil {
		return nil, apperror.Internal("Failed to update payment", err)
	}
	if err := s.transition(persistCtx, payment, models.StatusProcessing); err != nil {
		return nil, err
	}
	telemetry.RecordPayment("process", result.ErrorCode)
	return models.FailedPaymentResponse(payment, result.ErrorCode, result.Message),
		apperror.Gateway(result.ErrorCode, result.Message)
}

// CreatePayment records a PENDING payment for the redirect flow and returns
// the hosted payment page URL.
func (s *PaymentService) CreatePayment(ctx context.Context, req *models.PaymentRequest) (resp *models.PaymentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.CreatePayment")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.validate(req); err != nil {
		telemetry.RecordPayment("create", apperror.Code(err))
		return nil, err
	}

	now := s.now()
	payment := s.newPayment(req, now)
	expiresAt := now.Add(s.expiry)
	payment.ExpiresAt = &expiresAt

	if err := s.create(ctx, payment); err != nil {
		return nil, err
	}

	url := s.gateway.GeneratePaymentURL(payment.PaymentID, payment.Amount, payment.Currency, req.ReturnURL)
	telemetry.RecordPayment("create", string(models.StatusPending))
	return models.PendingPaymentResponse(payment, url), nil
}

// AuthorizeRedirect is the landing step of the hosted payment page. On approval
// the gateway reference is attached and the payment stays PENDING until it is
// verified. A decline fails the payment.
func (s *PaymentService) AuthorizeRedirect(ctx context.Context, paymentID string) (resp *models.PaymentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.AuthorizeRedirect", attribute.String("payment.id", paymentID))
	defer func() { telemetry.EndSpan(span, err) }()

	release, err := s.lock(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.CanBeProcessed(s.now()) {
		return nil, apperror.Business(apperror.CodeInvalidStatus, "Payment cannot be authorized in current status")
	}
	if payment.GatewayTransactionID != "" {
		return models.NewPaymentResponse(payment), nil
	}

	result, gwErr := s.gateway.ProcessPayment(ctx, &models.PaymentRequest{
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		PaymentMethod:  payment.PaymentMethod,
		CustomerEmail:  payment.CustomerEmail,
		CustomerName:   payment.CustomerName,
		CustomerPhone:  payment.CustomerPhone,
		BillingAddress: payment.BillingAddress,
		Description:    payment.Description,
		Metadata:       payment.Metadata,
	})
	if gwErr != nil {
		gatewayErr := apperror.Gateway(apperror.CodeGatewayError, "Payment gateway unavailable")
		gatewayErr.Err = gwErr
		return nil, gatewayErr
	}

	persistCtx := context.WithoutCancel(ctx)

	if result.Success {
		payment.AttachGatewayTransaction(result.TransactionID, result.RawResponse, s.now())
		if err := s.save(persistCtx, payment); err != nil {
			return nil, err
		}
		telemetry.RecordPayment("authorize", "approved")
		return models.NewPaymentResponse(payment), nil
	}

	if err := payment.MarkAsProcessing(s.now()); err != nil {
		return nil, apperror.Internal("Failed to update payment", err)
	}
	if err := s.transition(persistCtx, payment, models.StatusPending); err != nil {
		return nil, err
	}
	if err := payment.MarkAsFailed(result.RawResponse, result.ProcessedAt); err != nil {
		return nil, apperror.Internal("Failed to update payment", err)
	}
	if err := s.transition(persistCtx, payment, models.StatusProcessing); err != nil {
		return nil, err
	}
	telemetry.RecordPayment("authorize", result.ErrorCode)
	return models.FailedPaymentResponse(payment, result.ErrorCode, result.Message),
		apperror.Gateway(result.ErrorCode, result.Message)
}

// VerifyPayment completes a PENDING payment that already carries a gateway
// reference. Payments in any other state are returned unchanged.
func (s *PaymentService) VerifyPayment(ctx context.Context, paymentID string) (resp *models.PaymentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.VerifyPayment", attribute.String("payment.id", paymentID))
	defer func() { telemetry.EndSpan(span, err) }()

	release, err := s.lock(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.StatusPending || payment.GatewayTransactionID == "" {
		return models.NewPaymentResponse(payment), nil
	}

	result, gwErr := s.gateway.VerifyPayment(ctx, payment.GatewayTransactionID)
	if gwErr != nil {
		gatewayErr := apperror.Gateway(apperror.CodeGatewayError, "Payment verification failed")
		gatewayErr.Err = gwErr
		return nil, gatewayErr
	}
	if !result.Success {
		return models.NewPaymentResponse(payment), nil
	}

	if err := payment.MarkAsPaid(payment.GatewayTransactionID, result.RawResponse, s.now()); err != nil {
		return nil, apperror.Internal("Failed to update payment", err)
	}
	if err := s.transition(context.WithoutCancel(ctx), payment, models.StatusPending); err != nil {
		return nil, err
	}
	telemetry.RecordPayment("verify", string(models.StatusCompleted))
	return models.NewPaymentResponse(payment), nil
}

func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*models.PaymentResponse, error) {
	payment, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return models.NewPaymentResponse(payment), nil
}

func (s *PaymentService) GetPaymentsByCustomer(ctx context.Context, email string) ([]*models.PaymentResponse, error) {
	payments, err := s.repo.FindByCustomerEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal("Failed to fetch payments", err)
	}
	return toResponses(payments), nil
}

// RefundPayment refunds all or part of a COMPLETED payment. A gateway refusal
// leaves the payment untouched.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) (resp *models.PaymentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.RefundPayment",
		attribute.String("payment.id", paymentID),
		attribute.String("refund.amount", amount.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	release, err := s.lock(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.StatusCompleted {
		return nil, apperror.Business(apperror.CodeInvalidStatus, "Only completed payments can be refunded")
	}
	amount = amount.Round(models.MoneyScale)
	if !amount.IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Refund amount must be greater than zero")
	}
	if amount.GreaterThan(payment.RemainingRefundable()) {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Refund amount cannot exceed payment amount")
	}

	result, gwErr := s.gateway.RefundPayment(ctx, payment.GatewayTransactionID, amount, reason)
	if gwErr != nil {
		telemetry.RecordPayment("refund", apperror.CodeGatewayError)
		gatewayErr := apperror.Gateway(apperror.CodeGatewayError, "Payment gateway unavailable")
		gatewayErr.Err = gwErr
		return nil, gatewayErr
	}
	if !result.Success {
		telemetry.RecordPayment("refund", result.ErrorCode)
		return nil, apperror.Gateway(result.ErrorCode, result.Message)
	}

	if err := payment.MarkAsRefunded(amount, s.now()); err != nil {
		return nil, apperror.Internal("Failed to update payment", err)
	}
	if err := s.transition(context.WithoutCancel(ctx), payment, models.StatusCompleted); err != nil {
		return nil, err
	}

	telemetry.RecordPayment("refund", string(payment.Status))
	resp = models.NewPaymentResponse(payment)
	resp.GatewayTransactionID = result.TransactionID
	return resp, nil
}

func (s *PaymentService) CancelPayment(ctx context.Context, paymentID string) (resp *models.PaymentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.CancelPayment", attribute.String("payment.id", paymentID))
	defer func() { telemetry.EndSpan(span, err) }()

	release, err := s.lock(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := s.find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.CanBeProcessed(s.now()) {
		return nil, apperror.Business(apperror.CodeInvalidStatus, "Payment cannot be cancelled in current status")
	}

	if err := payment.MarkAsCancelled(s.now()); err != nil {
		return nil, apperror.Internal("Failed to update payment", err)
	}
	if err := s.transition(ctx, payment, models.StatusPending); err != nil {
		return nil, err
	}
	telemetry.RecordPayment("cancel", string(models.StatusCancelled))
	return models.NewPaymentResponse(payment), nil
}

func (s *PaymentService) validate(req *models.PaymentRequest) error {
	if req == nil {
		return apperror.Validation(apperror.CodeInvalidRequest, "Payment request is required")
	}
	// The gateway and storage both see the amount in cents.
	req.Amount = req.Amount.Round(models.MoneyScale)
	if !req.Amount.IsPositive() {
		return apperror.Validation(apperror.CodeInvalidAmount, "Amount must be greater than zero")
	}
	if !req.PaymentMethod.Valid() {
		return apperror.Validation(apperror.CodeInvalidPaymentMethod, "Payment method is required")
	}
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil || strings.TrimSpace(req.CustomerEmail) != req.CustomerEmail {
		return apperror.Validation(apperror.CodeInvalidEmail, "Valid customer email is required")
	}

	if req.Currency == "" {
		req.Currency = models.DefaultCurrency
	}
	req.Currency = strings.ToUpper(req.Currency)
	if !isCurrencyCode(req.Currency) {
		return apperror.Validation(apperror.CodeInvalidCurrency, "Currency must be a 3-letter ISO code")
	}

	if !models.HasValidCardDetails(req.PaymentMethod, req.CardDetails) {
		return apperror.Validation(apperror.CodeInvalidCardDetails, "Card details are required for selected payment method")
	}
	return nil
}

func isCurrencyCode(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *PaymentService) newPayment(req *models.PaymentRequest, now time.Time) *models.Payment {
	payment := models.NewPayment(req.Amount, req.Currency, req.PaymentMethod, req.CustomerEmail, req.Description, now)
	payment.CustomerName = req.CustomerName
	payment.CustomerPhone = req.CustomerPhone
	payment.BillingAddress = req.BillingAddress
	payment.Metadata = req.Metadata
	return payment
}

func (s *PaymentService) lock(ctx context.Context, paymentID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, repository.PaymentLockKey(paymentID))
	if errors.Is(err, interfaces.ErrLockHeld) {
		return nil, apperror.Business(apperror.CodeConcurrentModification, "Payment is being modified by another request")
	}
	if err != nil {
		return nil, apperror.Internal("Failed to lock payment", err)
	}
	return release, nil
}

func (s *PaymentService) find(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.repo.FindByPaymentID(ctx, paymentID)
	if errors.Is(err, interfaces.ErrPaymentNotFound) {
		return nil, apperror.NotFound("Payment not found")
	}
	if err != nil {
		return nil, apperror.Internal("Failed to fetch payment", err)
	}
	return payment, nil
}

func (s *PaymentService) create(ctx context.Context, payment *models.Payment) error {
	if err := s.repo.Create(ctx, payment); err != nil {
		return apperror.Internal("Failed to save payment", err)
	}
	s.logTransition(ctx, payment, "")
	return nil
}

// save persists the payment without a status change.
func (s *PaymentService) save(ctx context.Context, payment *models.Payment) error {
	err := s.repo.Update(ctx, payment)
	if errors.Is(err, interfaces.ErrVersionConflict) {
		return apperror.Business(apperror.CodeConcurrentModification, "Payment was modified by another request")
	}
	if err != nil {
		return apperror.Internal("Failed to update payment", err)
	}
	return nil
}

func (s *PaymentService) transition(ctx context.Context, payment *models.Payment, from models.PaymentStatus) error {
	if err := s.save(ctx, payment); err != nil {
		return err
	}
	s.logTransition(ctx, payment, from)
	return nil
}

func (s *PaymentService) logTransition(ctx context.Context, payment *models.Payment, from models.PaymentStatus) {
	telemetry.Logger.Info("Payment state transition",
		zap.String("payment_id", payment.PaymentID),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(payment.Status)),
	)

	event := &models.PaymentStateChangedEvent{
		EventID:       uuid.NewString(),
		PaymentID:     payment.PaymentID,
		State:         payment.Status,
		PreviousState: from,
		CustomerEmail: payment.CustomerEmail,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		GatewayTxnID:  payment.GatewayTransactionID,
		Timestamp:     payment.UpdatedAt,
	}
	if err := s.publisher.PublishStateChanged(ctx, event); err != nil {
		telemetry.Logger.Warn("Failed to publish state change",
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err),
		)
	}
}

func gatewayErrorRaw(err error) string {
	data, _ := json.Marshal(map[string]string{
		"status": "error",
		"error":  err.Error(),
	})
	return string(data)
}

func toResponses(payments []*models.Payment) []*models.PaymentResponse {
	out := make([]*models.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, models.NewPaymentResponse(p))
	}
	return out
}
