// Package pricing derives a cart's monetary totals from its items and
// coupons. The calculation is deterministic and runs on every cart write.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/link4deal/commerce-api/internal/model"
)

// DefaultTaxRate is the flat national VAT rate applied to the taxable
// amount. There is no per-jurisdiction logic.
var DefaultTaxRate = decimal.NewFromFloat(0.16)

var oneHundred = decimal.NewFromInt(100)

type Calculator struct {
	taxRate decimal.Decimal
}

func NewCalculator(taxRate decimal.Decimal) Calculator {
	return Calculator{taxRate: taxRate}
}

// ItemDiscountTotal sums an item's discount records against its own line
// total. Percentage and fixed discounts stack additively and are never
// clamped to the line total, so a line's contribution can go negative.
func ItemDiscountTotal(item *model.CartItem) decimal.Decimal {
	line := item.LineTotal()
	total := decimal.Zero
	for _, d := range item.Discounts {
		if !d.Percentage.IsZero() {
			total = total.Add(d.Percentage.Div(oneHundred).Mul(line))
		} else {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// CouponDiscount computes a single coupon's discount against the given
// subtotal and shipping sum. Percentage coupons clamp to MaximumDiscount
// when set; fixed coupons are taken at face value even beyond the subtotal.
func CouponDiscount(c *model.Coupon, subtotal, shipping decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case model.CouponTypePercentage:
		discount := c.Value.Div(oneHundred).Mul(subtotal)
		if c.MaximumDiscount != nil && discount.GreaterThan(*c.MaximumDiscount) {
			discount = *c.MaximumDiscount
		}
		return discount
	case model.CouponTypeFixed:
		return c.Value
	case model.CouponTypeFreeShipping:
		return shipping
	}
	return decimal.Zero
}

// Recalculate rewrites cart.Totals from current items and coupons and
// refreshes each coupon's recorded discount amount.
//
// Order matters: subtotal, per-item discounts, coupon discounts, shipping,
// taxes, then the grand total. Only the grand total is floor-clamped at
// zero; intermediate values may go negative (a summed discount larger than
// the subtotal yields a negative taxable amount and a negative tax
// contribution that the final clamp absorbs).
func (calc Calculator) Recalculate(cart *model.Cart) {
	subtotal := decimal.Zero
	itemDiscounts := decimal.Zero
	rawShipping := decimal.Zero

	for i := range cart.Items {
		item := &cart.Items[i]
		subtotal = subtotal.Add(item.LineTotal())
		itemDiscounts = itemDiscounts.Add(ItemDiscountTotal(item))
		rawShipping = rawShipping.Add(item.Shipping.Cost)
	}

	couponDiscounts := decimal.Zero
	for i := range cart.Coupons {
		c := &cart.Coupons[i]
		c.DiscountAmount = CouponDiscount(c, subtotal, rawShipping)
		couponDiscounts = couponDiscounts.Add(c.DiscountAmount)
	}

	discounts := itemDiscounts.Add(couponDiscounts)

	// Presence check, not a sum: any number of free-shipping coupons
	// zeroes shipping exactly once.
	shipping := rawShipping
	if hasFreeShipping(cart.Coupons) {
		shipping = decimal.Zero
	}

	taxable := subtotal.Sub(discounts)
	taxes := taxable.Mul(calc.taxRate)

	total := subtotal.Sub(discounts).Add(taxes).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	currency := cart.Totals.Currency
	if len(cart.Items) > 0 {
		currency = cart.Items[0].Currency
	}
	if currency == "" {
		currency = model.CurrencyMXN
	}

	cart.Totals = model.Totals{
		Subtotal:  subtotal,
		Discounts: discounts,
		Taxes:     taxes,
		Shipping:  shipping,
		Total:     total,
		Currency:  currency,
	}
}

func hasFreeShipping(coupons []model.Coupon) bool {
	for i := range coupons {
		if coupons[i].Type == model.CouponTypeFreeShipping {
			return true
		}
	}
	return false
}
