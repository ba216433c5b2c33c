package models

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProductID = errors.New("product id must be positive")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidPrice     = errors.New("unit price must not be negative")
	ErrMissingName      = errors.New("product name is required")
)

type CartLine struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) Validate() error {
	switch {
	case l.ProductID <= 0:
		return ErrInvalidProductID
	case strings.TrimSpace(l.Name) == "":
		return ErrMissingName
	case l.UnitPrice.IsNegative():
		return ErrInvalidPrice
	case l.Quantity < 1:
		return ErrInvalidQuantity
	}
	return nil
}

// Cart keeps at most one line per product, in the order products were first added.
type Cart struct {
	order []int64
	lines map[int64]CartLine
}

func NewCart() *Cart {
	return &Cart{lines: make(map[int64]CartLine)}
}

// AddOrUpdateItem inserts the line or replaces the existing line for the same product.
func (c *Cart) AddOrUpdateItem(line CartLine) {
	if c.lines == nil {
		c.lines = make(map[int64]CartLine)
	}
	if _, ok := c.lines[line.ProductID]; !ok {
		c.order = append(c.order, line.ProductID)
	}
	c.lines[line.ProductID] = line
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes it. It reports whether the product was in the cart.
func (c *Cart) UpdateQuantity(productID int64, quantity int) bool {
	line, ok := c.lines[productID]
	if !ok {
		return false
	}
	if quantity <= 0 {
		c.RemoveItem(productID)
		return true
	}
	line.Quantity = quantity
	c.lines[productID] = line
	return true
}

func (c *Cart) RemoveItem(productID int64) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Clear() {
	c.order = nil
	c.lines = make(map[int64]CartLine)
}

func (c *Cart) Item(productID int64) (CartLine, bool) {
	line, ok := c.lines[productID]
	return line, ok
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.lines[id])
	}
	return out
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Total())
	}
	return total.Round(MoneyScale)
}

func (c *Cart) TotalQuantity() int {
	qty := 0
	for _, line := range c.lines {
		qty += line.Quantity
	}
	return qty
}

func (c *Cart) ItemCount() int {
	return len(c.order)
}

func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}

type cartJSON struct {
	Items []CartLine `json:"items"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartJSON{Items: c.Lines()})
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Clear()
	for _, line := range raw.Items {
		c.AddOrUpdateItem(line)
	}
	return nil
}
