package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/repository"
)

// SessionHeader carries the cart scope. Requests without it get a new session.
const SessionHeader = "X-Session-ID"

type AddCartItemRequest struct {
	ProductID int64           `json:"productId" binding:"required,gt=0"`
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartView struct {
	SessionID     string            `json:"sessionId"`
	Items         []models.CartLine `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	TotalQuantity int               `json:"totalQuantity"`
	ItemCount     int               `json:"itemCount"`
}

// CartHandler edits carts under the same per-cart lock checkouts hold, so a
// cart cannot change while it is being charged.
type CartHandler struct {
	carts  interfaces.CartStore
	locker interfaces.Locker
}

func NewCartHandler(carts interfaces.CartStore, locker interfaces.Locker) *CartHandler {
	return &CartHandler{carts: carts, locker: locker}
}

func sessionID(c *gin.Context) string {
	id := c.GetHeader(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(SessionHeader, id)
	return id
}

func (h *CartHandler) GetCart(c *gin.Context) {
	id := sessionID(c)
	cart, err := h.carts.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, apperror.Internal("Failed to load cart", err))
		return
	}
	c.JSON(http.StatusOK, newCartView(id, cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	id := sessionID(c)

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	line := models.CartLine{ProductID: req.ProductID, Name: req.Name, UnitPrice: req.UnitPrice, Quantity: req.Quantity}
	if err := line.Validate(); err != nil {
		writeError(c, apperror.Validation(apperror.CodeInvalidRequest, err.Error()))
		return
	}

	h.mutate(c, id, func(cart *models.Cart) error {
		cart.AddOrUpdateItem(line)
		return nil
	})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	id := sessionID(c)

	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		writeError(c, apperror.Validation(apperror.CodeInvalidRequest, "Invalid product id"))
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.mutate(c, id, func(cart *models.Cart) error {
		if !cart.UpdateQuantity(productID, req.Quantity) {
			return apperror.NotFound("Product is not in the cart")
		}
		return nil
	})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	id := sessionID(c)

	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		writeError(c, apperror.Validation(apperror.CodeInvalidRequest, "Invalid product id"))
		return
	}

	h.mutate(c, id, func(cart *models.Cart) error {
		cart.RemoveItem(productID)
		return nil
	})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	id := sessionID(c)
	release, err := h.lock(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer release()

	if err := h.carts.Delete(c.Request.Context(), id); err != nil {
		writeError(c, apperror.Internal("Failed to clear cart", err))
		return
	}
	c.JSON(http.StatusOK, newCartView(id, models.NewCart()))
}

func (h *CartHandler) lock(c *gin.Context, id string) (func(), error) {
	release, err := h.locker.Acquire(c.Request.Context(), repository.CartLockKey(id))
	if errors.Is(err, interfaces.ErrLockHeld) {
		return nil, apperror.Business(apperror.CodeCheckoutInProgress, "Checkout already in progress for this cart")
	}
	if err != nil {
		return nil, apperror.Internal("Failed to lock cart", err)
	}
	return release, nil
}

func (h *CartHandler) mutate(c *gin.Context, id string, apply func(*models.Cart) error) {
	release, err := h.lock(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer release()

	ctx := c.Request.Context()
	cart, err := h.carts.Get(ctx, id)
	if err != nil {
		writeError(c, apperror.Internal("Failed to load cart", err))
		return
	}
	if err := apply(cart); err != nil {
		writeError(c, err)
		return
	}
	if err := h.carts.Save(ctx, id, cart); err != nil {
		writeError(c, apperror.Internal("Failed to save cart", err))
		return
	}
	c.JSON(http.StatusOK, newCartView(id, cart))
}

func newCartView(id string, cart *models.Cart) CartView {
	return CartView{
		SessionID:     id,
		Items:         cart.Lines(),
		Subtotal:      cart.Subtotal(),
		TotalQuantity: cart.TotalQuantity(),
		ItemCount:     cart.ItemCount(),
	}
}
