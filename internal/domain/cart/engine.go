package cart

import (
	"github.com/shopspring/decimal"

	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
)

var hundred = decimal.NewFromInt(100)

// Applicable reports whether the coupon details are satisfied by the cart.
// It is pure: neither the cart nor the details are mutated, and it may be
// called independently of ApplyDiscount.
func Applicable(details coupon.Details, c *Cart) bool {
	switch d := details.(type) {
	case coupon.CartWise:
		return c.Subtotal.GreaterThan(d.Threshold)
	case coupon.ProductWise:
		for _, item := range c.Items {
			if item.ProductID == d.ProductID {
				return true
			}
		}
		return false
	case coupon.BuyXGetY:
		// The repetition limit only caps the reward magnitude, not
		// applicability.
		return buyCount(d.Buy, c.Items) > 0
	default:
		return false
	}
}

// ApplyDiscount mutates the cart with the coupon's effect. A coupon whose
// conditions are not met degrades to a zero discount rather than failing;
// the cart invariant FinalPrice = Subtotal - TotalDiscount holds on return.
func ApplyDiscount(c *Cart, details coupon.Details) {
	switch d := details.(type) {
	case coupon.CartWise:
		applyCartWise(c, d)
	case coupon.ProductWise:
		applyProductWise(c, d)
	case coupon.BuyXGetY:
		applyBuyXGetY(c, d)
	}
}

func applyCartWise(c *Cart, d coupon.CartWise) {
	// Re-checked here rather than assumed from an earlier Applicable call.
	if !c.Subtotal.GreaterThan(d.Threshold) {
		return
	}
	amount := c.Subtotal.Mul(d.Discount).Div(hundred)
	c.TotalDiscount = amount
	c.FinalPrice = c.Subtotal.Sub(amount)
}

func applyProductWise(c *Cart, d coupon.ProductWise) {
	for i := range c.Items {
		item := &c.Items[i]
		if item.ProductID != d.ProductID {
			continue
		}
		amount := item.Price.Mul(d.Discount).Div(hundred).Mul(decimal.NewFromInt(item.Quantity))
		item.Discount = amount
		c.TotalDiscount = c.TotalDiscount.Add(amount)
	}
	c.FinalPrice = c.Subtotal.Sub(c.TotalDiscount)
}

func applyBuyXGetY(c *Cart, d coupon.BuyXGetY) {
	reps := buyCount(d.Buy, c.Items)
	if reps > d.RepetitionLimit {
		reps = d.RepetitionLimit
	}
	if reps > 0 {
		for _, get := range d.Get {
			for i := range c.Items {
				item := &c.Items[i]
				if item.ProductID != get.ProductID {
					continue
				}
				amount := item.Price.Mul(decimal.NewFromInt(get.Quantity * reps))
				item.Discount = item.Discount.Add(amount)
				c.TotalDiscount = c.TotalDiscount.Add(amount)
			}
		}
	}
	c.FinalPrice = c.Subtotal.Sub(c.TotalDiscount)
}

// buyCount sums floor(item quantity / required quantity) over every buy
// condition and every matching line item.
func buyCount(buy []coupon.ProductQuantity, items []LineItem) int64 {
	var count int64
	for _, b := range buy {
		if b.Quantity <= 0 {
			continue
		}
		for _, item := range items {
			if item.ProductID == b.ProductID {
				count += item.Quantity / b.Quantity
			}
		}
	}
	return count
}
