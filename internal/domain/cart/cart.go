package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem is one cart entry. Discount is the amount waived on this line by
// an applied coupon; it starts at zero.
type LineItem struct {
	ProductID int64
	Quantity  int64
	Price     decimal.Decimal
	Discount  decimal.Decimal
}

// Cart is an ordered sequence of line items with derived totals. The
// invariant FinalPrice = Subtotal - TotalDiscount holds after construction
// and after every discount application. Carts are transient; they are built
// per request and never stored.
type Cart struct {
	Items         []LineItem
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	FinalPrice    decimal.Decimal
}

// New builds a cart from the given items and computes its subtotal.
// Discounts start at zero, so FinalPrice equals Subtotal.
func New(items []LineItem) *Cart {
	c := &Cart{Items: items}
	c.ComputeSubtotal()
	return c
}

// ComputeSubtotal unconditionally recomputes Subtotal from the items and
// resets FinalPrice to Subtotal minus the current TotalDiscount. It is safe
// to call repeatedly.
func (c *Cart) ComputeSubtotal() {
	sum := decimal.Zero
	for _, item := range c.Items {
		line := item.Price.Mul(decimal.NewFromInt(item.Quantity))
		sum = sum.Add(line)
	}
	c.Subtotal = sum
	c.FinalPrice = c.Subtotal.Sub(c.TotalDiscount)
}
