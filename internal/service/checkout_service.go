package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/repository"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

// payments is the part of PaymentService that checkout drives.
type payments interface {
	ProcessPayment(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResponse, error)
	CreatePayment(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResponse, error)
	VerifyPayment(ctx context.Context, paymentID string) (*models.PaymentResponse, error)
}

// CheckoutService turns a session cart into a payment. The cart is only
// cleared once the payment is COMPLETED.
type CheckoutService struct {
	payments  payments
	carts     interfaces.CartStore
	locker    interfaces.Locker
	publisher interfaces.EventPublisher
	now       func() time.Time
}

func NewCheckoutService(
	payments payments,
	carts interfaces.CartStore,
	locker interfaces.Locker,
	publisher interfaces.EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		payments:  payments,
		carts:     carts,
		locker:    locker,
		publisher: publisher,
		now:       time.Now,
	}
}

type checkoutMetadata struct {
	CartItems     int    `json:"cart_items"`
	TotalQuantity int    `json:"total_quantity"`
	Notes         string `json:"notes"`
}

func (s *CheckoutService) ProcessCheckout(ctx context.Context, cartID string, req *models.CheckoutRequest) (resp *models.CheckoutResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutService.ProcessCheckout", attribute.String("cart.id", cartID))
	defer func() {
		telemetry.EndSpan(span, err)
		recordCheckout("process", err)
	}()

	release, err := s.lockCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.chargeableCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !models.HasValidCardDetails(req.PaymentMethod, req.CardDetails) {
		return nil, apperror.Validation(apperror.CodeInvalidCardDetails, "Card details are required for selected payment method")
	}

	paymentReq, err := buildPaymentRequest(cart, req)
	if err != nil {
		return nil, err
	}

	paymentResp, err := s.payments.ProcessPayment(ctx, paymentReq)
	if err != nil {
		telemetry.Logger.Warn("Checkout payment failed",
			zap.String("cart_id", cartID),
			zap.String("error_code", apperror.Code(err)),
		)
		return nil, err
	}
	if paymentResp.Status != models.StatusCompleted {
		return nil, apperror.Business(apperror.CodePaymentNotCompleted, "Payment was not completed")
	}

	lines, qty := cart.Lines(), cart.TotalQuantity()
	s.finish(ctx, cartID, paymentResp, lines, qty)
	return models.NewCheckoutResponse(paymentResp, lines, qty), nil
}

// CreateCheckoutPayment starts the redirect flow. The cart is kept until the
// payment is completed with CompleteCheckout.
func (s *CheckoutService) CreateCheckoutPayment(ctx context.Context, cartID string, req *models.CheckoutRequest) (resp *models.CheckoutResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutService.CreateCheckoutPayment", attribute.String("cart.id", cartID))
	defer func() {
		telemetry.EndSpan(span, err)
		recordCheckout("create", err)
	}()

	release, err := s.lockCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	cart, err := s.chargeableCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	paymentReq, err := buildPaymentRequest(cart, req)
	if err != nil {
		return nil, err
	}

	paymentResp, err := s.payments.CreatePayment(ctx, paymentReq)
	if err != nil {
		return nil, err
	}
	if paymentResp.Status != models.StatusPending {
		return nil, apperror.Business(apperror.CodeInvalidStatus, "Payment was not created as pending")
	}

	resp = models.NewCheckoutResponse(paymentResp, cart.Lines(), cart.TotalQuantity())
	resp.RequiresRedirect = true
	return resp, nil
}

func (s *CheckoutService) CompleteCheckout(ctx context.Context, cartID, paymentID string) (resp *models.CheckoutResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutService.CompleteCheckout",
		attribute.String("cart.id", cartID),
		attribute.String("payment.id", paymentID))
	defer func() {
		telemetry.EndSpan(span, err)
		recordCheckout("complete", err)
	}()

	release, err := s.lockCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer release()

	paymentResp, err := s.payments.VerifyPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if paymentResp.Status != models.StatusCompleted {
		return nil, apperror.Business(apperror.CodePaymentNotCompleted, "Payment is not completed yet")
	}

	s.finish(ctx, cartID, paymentResp, nil, 0)
	return models.NewCheckoutResponse(paymentResp, nil, 0), nil
}

// GetCheckoutSummary previews what a checkout of the cart would charge.
func (s *CheckoutService) GetCheckoutSummary(ctx context.Context, cartID string, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return &models.CheckoutResponse{
		TotalAmount:   cart.Subtotal(),
		Currency:      models.DefaultCurrency,
		PaymentMethod: req.PaymentMethod,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Description:   "Checkout Summary",
		CartItems:     cart.Lines(),
		TotalQuantity: cart.TotalQuantity(),
	}, nil
}

func (s *CheckoutService) lockCart(ctx context.Context, cartID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, repository.CartLockKey(cartID))
	if errors.Is(err, interfaces.ErrLockHeld) {
		return nil, apperror.Business(apperror.CodeCheckoutInProgress, "Checkout already in progress for this cart")
	}
	if err != nil {
		return nil, apperror.Internal("Failed to lock cart", err)
	}
	return release, nil
}

// loadCart returns the cart unless it is empty.
func (s *CheckoutService) loadCart(ctx context.Context, cartID string) (*models.Cart, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, apperror.Internal("Failed to load cart", err)
	}
	if cart.IsEmpty() {
		return nil, apperror.Validation(apperror.CodeEmptyCart, "Cart is empty")
	}
	return cart, nil
}

// chargeableCart is loadCart plus a positive total, required before charging.
func (s *CheckoutService) chargeableCart(ctx context.Context, cartID string) (*models.Cart, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !cart.Subtotal().IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "Cart total must be greater than zero")
	}
	return cart, nil
}

// finish clears the cart and announces the completed checkout. The payment is
// already captured at this point, so neither step can fail the checkout.
func (s *CheckoutService) finish(ctx context.Context, cartID string, payment *models.PaymentResponse, lines []models.CartLine, qty int) {
	ctx = context.WithoutCancel(ctx)

	if err := s.carts.Delete(ctx, cartID); err != nil {
		telemetry.Logger.Error("Failed to clear cart after checkout",
			zap.String("cart_id", cartID),
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err),
		)
	}

	if lines == nil {
		lines = []models.CartLine{}
	}
	event := &models.CheckoutCompletedEvent{
		EventID:       uuid.NewString(),
		CartID:        cartID,
		PaymentID:     payment.PaymentID,
		CustomerEmail: payment.CustomerEmail,
		CustomerName:  payment.CustomerName,
		TotalAmount:   payment.Amount,
		Currency:      payment.Currency,
		Items:         lines,
		TotalQuantity: qty,
		Timestamp:     s.now(),
	}
	if err := s.publisher.PublishCheckoutCompleted(ctx, event); err != nil {
		telemetry.Logger.Warn("Failed to publish checkout completion",
			zap.String("cart_id", cartID),
			zap.String("payment_id", payment.PaymentID),
			zap.Error(err),
		)
	}

	telemetry.Logger.Info("Checkout completed",
		zap.String("cart_id", cartID),
		zap.String("payment_id", payment.PaymentID),
	)
}

func buildPaymentRequest(cart *models.Cart, req *models.CheckoutRequest) (*models.PaymentRequest, error) {
	qty := cart.TotalQuantity()
	metadata, err := json.Marshal(checkoutMetadata{
		CartItems:     cart.ItemCount(),
		TotalQuantity: qty,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, apperror.Internal("Failed to encode checkout metadata", err)
	}

	paymentReq := &models.PaymentRequest{
		Amount:         cart.Subtotal(),
		Currency:       models.DefaultCurrency,
		PaymentMethod:  req.PaymentMethod,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		BillingAddress: req.BillingAddress,
		Description:    fmt.Sprintf("Checkout for %d items", qty),
		ReturnURL:      req.ReturnURL,
		CancelURL:      req.CancelURL,
		Metadata:       string(metadata),
	}
	if req.PaymentMethod.RequiresCardDetails() {
		paymentReq.CardDetails = req.CardDetails
	}
	return paymentReq, nil
}

func recordCheckout(flow string, err error) {
	if err != nil {
		telemetry.RecordCheckout(flow, apperror.Code(err))
		return
	}
	telemetry.RecordCheckout(flow, "success")
}
