package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/repository"
)

const cartID = "session-42"

type checkoutFixture struct {
	*fixture
	checkout *CheckoutService
	carts    *repository.MemoryCartStore
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	f := newFixture(t)
	carts := repository.NewMemoryCartStore()
	c := &checkoutFixture{
		fixture:  f,
		checkout: NewCheckoutService(f.svc, carts, f.locker, f.publisher),
		carts:    carts,
	}
	c.checkout.now = f.clock.Now
	return c
}

func (c *checkoutFixture) fillCart(t *testing.T) {
	t.Helper()
	cart := models.NewCart()
	cart.AddOrUpdateItem(models.CartLine{ProductID: 1, Name: "Ceylon Cinnamon", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2})
	cart.AddOrUpdateItem(models.CartLine{ProductID: 7, Name: "Cassia Bark", UnitPrice: decimal.RequireFromString("4.25"), Quantity: 3})
	require.NoError(t, c.carts.Save(context.Background(), cartID, cart))
}

func (c *checkoutFixture) cart(t *testing.T) *models.Cart {
	t.Helper()
	cart, err := c.carts.Get(context.Background(), cartID)
	require.NoError(t, err)
	return cart
}

func cardCheckout() *models.CheckoutRequest {
	return &models.CheckoutRequest{
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Buyer",
		PaymentMethod: models.MethodCreditCard,
		CardDetails: models.CardDetails{
			CardNumber:     "4111111111111111",
			CardHolderName: "Buyer",
			ExpiryMonth:    "12",
			ExpiryYear:     "2030",
			CVV:            "123",
		},
		Notes: `leave at "back" door`,
	}
}

func TestProcessCheckout_Success(t *testing.T) {
	c := newCheckoutFixture(t)
	c.fillCart(t)

	var sent *models.PaymentRequest
	c.gateway.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *models.PaymentRequest) (*models.GatewayResult, error) {
			sent = req
			return approved("TXN_1_000001"), nil
		})

	var completed *models.CheckoutCompletedEvent
	c.publisher.EXPECT().PublishCheckoutCompleted(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *models.CheckoutCompletedEvent) error {
			completed = e
			return nil
		})

	resp, err := c.checkout.ProcessCheckout(context.Background(), cartID, cardCheckout())
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, resp.Status)
	assert.Equal(t, "37.75", resp.TotalAmount.StringFixed(2))
	assert.Equal(t, 5, resp.TotalQuantity)
	require.Len(t, resp.CartItems, 2)
	assert.Equal(t, "Ceylon Cinnamon", resp.CartItems[0].Name)
	assert.False(t, resp.RequiresRedirect)

	require.NotNil(t, sent)
	assert.Equal(t, "USD", sent.Currency)
	assert.Equal(t, "Checkout for 5 items", sent.Description)
	assert.Equal(t, "4111111111111111", sent.CardNumber)
	assert.JSONEq(t, `{"cart_items":2,"total_quantity":5,"notes":"leave at \"back\" door"}`, sent.Metadata)

	assert.True(t, c.cart(t).IsEmpty(), "cart is cleared after a completed checkout")

	require.NotNil(t, completed)
	assert.Equal(t, cartID, completed.CartID)
	assert.Equal(t, resp.PaymentID, completed.PaymentID)
	assert.Equal(t, 5, completed.TotalQuantity)
}

func TestProcessCheckout_MetadataIsValidJSON(t *testing.T) {
	cart := models.NewCart()
	cart.AddOrUpdateItem(models.CartLine{ProductID: 1, Name: "x", UnitPrice: decimal.NewFromInt(1), Quantity: 4})

	req, err := buildPaymentRequest(cart, &models.CheckoutRequest{PaymentMethod: models.MethodPaypal, Notes: "line\nbreak", CardDetails: models.CardDetails{CVV: "999"}})
	require.NoError(t, err)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.Metadata), &meta))
	assert.Equal(t, "line\nbreak", meta["notes"])
	assert.Empty(t, req.CVV, "card fields are not forwarded for wallet methods")
	assert.Equal(t, "Checkout for 4 items", req.Description)
}

func TestProcessCheckout_Declined(t *testing.T) {
	c := newCheckoutFixture(t)
	c.fillCart(t)
	c.gateway.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).
		Return(declined("CARD_DECLINED", "Card declined"), nil)

	resp, err := c.checkout.ProcessCheckout(context.Background(), cartID, cardCheckout())
	assert.Nil(t, resp)
	assertCode(t, err, "CARD_DECLINED")
	assert.Equal(t, 2, c.cart(t).ItemCount(), "cart is kept when the payment fails")
}

func TestProcessCheckout_EmptyCart(t *testing.T) {
	c := newCheckoutFixture(t)

	_, err := c.checkout.ProcessCheckout(context.Background(), cartID, cardCheckout())
	assertCode(t, err, apperror.CodeEmptyCart)
	assert.Equal(t, "Cart is empty", apperror.As(err).Message)
}

func TestProcessCheckout_ZeroTotal(t *testing.T) {
	c := newCheckoutFixture(t)
	cart := models.NewCart()
	cart.AddOrUpdateItem(models.CartLine{ProductID: 3, Name: "Free sample", UnitPrice: decimal.Zero, Quantity: 1})
	require.NoError(t, c.carts.Save(context.Background(), cartID, cart))

	_, err := c.checkout.ProcessCheckout(context.Background(), cartID, cardCheckout())
	assertCode(t, err, apperror.CodeInvalidAmount)
	assert.Equal(t, "Cart total must be greater than zero", apperror.As(err).Message)
}

func TestProcessCheckout_MissingCard(t *testing.T) {
	c := newCheckoutFixture(t)
	c.fillCart(t)
	req := cardCheckout()
	req.CardHolderName = ""

	_, err := c.checkout.ProcessCheckout(context.Background(), cartID, req)
	assertCode(t, err, apperror.CodeInvalidCardDetails)

	n, _ := c.repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestProcessCheckout_InProgress(t *testing.T) {
	c := newCheckoutFixture(t)
	c.fillCart(t)

	release, err := c.locker.Acquire(context.Background(), repository.CartLockKey(cartID))
	require.NoError(t, err)
	defer release()

	_, err = c.checkout.ProcessCheckout(context.Background(), cartID, cardCheckout())
	assertCode(t, err, apperror.CodeCheckoutInProgress)

	_, err = c.checkout.CreateCheckoutPayment(context.Background(), cartID, cardCheckout())
	assertCode(t, err, apperror.CodeCheckoutInProgress)

	_, err = c.checkout.CompleteCheckout(context.Background(), cartID, "PAY_ANY")
	assertCode(t, err, apperror.CodeCheckoutInProgress)
	assert.Equal(t, 2, c.cart(t).ItemCount())
}

func TestRedirectCheckout(t *testing.T) {
	c := newCheckoutFixture(t)
	c.fillCart(t)
	req := cardCheckout()
	req.PaymentMethod = models.MethodMockGateway
	req.ReturnURL = "https://shop.example.com/done"

	c.gateway.EXPECT().GeneratePaymentURL(gomock.Any(), gomock.Any(), "USD", "https://shop.example.com/done").
		Return("http://localhost:8080/api/payment/mock-pay/p")

	pending, err := c.checkout.CreateCheckoutPayment(context.Background(), cartID, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, pending.Status)
	assert.True(t, pending.RequiresRedirect)
	assert.Equal(t, "http://localhost:8080/api/payment/mock-pay/p", pending.PaymentURL)
	assert.Equal(t, 5, pending.TotalQuantity)
	assert.Equal(t, 2, c.cart(t).ItemCount(), "cart is kept while the payment is pending")

	_, err = c.checkout.CompleteCheckout(context.Background(), cartID, pending.PaymentID)
	assertCode(t, err, apperror.CodePaymentNotCompleted)
	assert.Equal(t, 2, c.cart(t).ItemCount())

	c.gateway.EXPECT().ProcessPayment(gomock.Any(), gomock.Any()).Return(approved("TXN_3_000003"), nil)
	_, err = c.svc.AuthorizeRedirect(context.Background(), pending.PaymentID)
	require.NoError(t, err)

	c.gateway.EXPECT().VerifyPayment(gomock.Any(), "TXN_3_000003").
		Return(&models.GatewayResult{TransactionID: "TXN_3_000003", Success: true}, nil)
	c.publisher.EXPECT().PublishCheckoutCompleted(gomock.Any(), gomock.Any()).Return(nil)

	done, err := c.checkout.CompleteCheckout(context.Background(), cartID, pending.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Empty(t, done.CartItems)
	assert.NotNil(t, done.CartItems)
	assert.Zero(t, done.TotalQuantity)
	assert.True(t, c.cart(t).IsEmpty())
}

func TestCompleteCheckout_UnknownPayment(t *testing.T) {
	c := newCheckoutFixture(t)

	_, err := c.checkout.CompleteCheckout(context.Background(), cartID, "PAY_MISSING")
	assertCode(t, err, apperror.CodeNotFound)
}

func TestGetCheckoutSummary(t *testing.T) {
	c := newCheckoutFixture(t)

	_, err := c.checkout.GetCheckoutSummary(context.Background(), cartID, cardCheckout())
	assertCode(t, err, apperror.CodeEmptyCart)

	c.fillCart(t)
	summary, err := c.checkout.GetCheckoutSummary(context.Background(), cartID, cardCheckout())
	require.NoError(t, err)

	assert.Equal(t, "Checkout Summary", summary.Description)
	assert.Equal(t, "USD", summary.Currency)
	assert.Equal(t, "37.75", summary.TotalAmount.StringFixed(2))
	assert.Equal(t, models.MethodCreditCard, summary.PaymentMethod)
	assert.Equal(t, "buyer@example.com", summary.CustomerEmail)
	assert.Equal(t, 5, summary.TotalQuantity)
	assert.Empty(t, summary.PaymentID)
	assert.Equal(t, 2, c.cart(t).ItemCount())
}

func TestGetCheckoutSummary_ZeroPriceCart(t *testing.T) {
	c := newCheckoutFixture(t)
	cart := models.NewCart()
	cart.AddOrUpdateItem(models.CartLine{ProductID: 3, Name: "Free sample", UnitPrice: decimal.Zero, Quantity: 2})
	require.NoError(t, c.carts.Save(context.Background(), cartID, cart))

	summary, err := c.checkout.GetCheckoutSummary(context.Background(), cartID, cardCheckout())
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.IsZero())
	assert.Equal(t, 2, summary.TotalQuantity)
	assert.Len(t, summary.CartItems, 1)

	_, err = c.checkout.ProcessCheckout(context.Background(), cartID, cardCheckout())
	assertCode(t, err, apperror.CodeInvalidAmount)
}
