package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxItemQuantity bounds a single cart line.
	MaxItemQuantity = 100
	// DefaultCartTTLDays is how long a cart lives past its last write.
	DefaultCartTTLDays = 30
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusConverted CartStatus = "converted"
	CartStatusExpired   CartStatus = "expired"
)

type DiscountType string

const (
	DiscountTypePromotion DiscountType = "promotion"
	DiscountTypeCoupon    DiscountType = "coupon"
	DiscountTypeLoyalty   DiscountType = "loyalty"
	DiscountTypeBulk      DiscountType = "bulk"
)

type CouponType string

const (
	CouponTypePercentage   CouponType = "percentage"
	CouponTypeFixed        CouponType = "fixed"
	CouponTypeFreeShipping CouponType = "free-shipping"
)

// ItemDiscount is a per-line discount record. Amount and Percentage are
// mutually exclusive: a non-zero Percentage wins, otherwise Amount applies
// as a flat reduction.
type ItemDiscount struct {
	Type        DiscountType    `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Percentage  decimal.Decimal `json:"percentage"`
	Description string          `json:"description,omitempty"`
}

type ItemShipping struct {
	Cost   decimal.Decimal `json:"cost"`
	Method string          `json:"method,omitempty"`
}

type CartItem struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	PromotionID   *uuid.UUID
	Quantity      int
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Currency      Currency
	Variant       map[string]string
	Discounts     []ItemDiscount
	Available     bool
	Shipping      ItemShipping
	AddedAt       time.Time
	UpdatedAt     time.Time
}

// LineTotal is price times quantity, before any discount.
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SameSelection reports whether the item refers to the same product with an
// identical variant selector, in which case an add merges quantities.
func (i *CartItem) SameSelection(productID uuid.UUID, variant map[string]string) bool {
	if i.ProductID != productID || len(i.Variant) != len(variant) {
		return false
	}
	for k, v := range variant {
		if i.Variant[k] != v {
			return false
		}
	}
	return true
}

// Coupon is a cart-level discount instrument. Codes are stored uppercase and
// a code may appear at most once per cart.
type Coupon struct {
	Code            string
	Type            CouponType
	Value           decimal.Decimal
	MinimumPurchase *decimal.Decimal
	MaximumDiscount *decimal.Decimal
	DiscountAmount  decimal.Decimal
	AppliedAt       time.Time
}

type Totals struct {
	Subtotal  decimal.Decimal
	Discounts decimal.Decimal
	Taxes     decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
	Currency  Currency
}

// Conversion records the terminal checkout snapshot of a cart.
type Conversion struct {
	OrderID     uuid.UUID
	ConvertedAt time.Time
	Value       decimal.Decimal
}

type Cart struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Items      []CartItem
	Coupons    []Coupon
	Totals     Totals
	Status     CartStatus
	ExpiresAt  time.Time
	Conversion *Conversion
	// Version is the optimistic-concurrency token checked and bumped on
	// every persisted write.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeCouponCode canonicalizes a coupon code for case-insensitive
// comparison and storage.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Cart) FindItem(itemID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) HasCoupon(code string) bool {
	code = NormalizeCouponCode(code)
	for i := range c.Coupons {
		if c.Coupons[i].Code == code {
			return true
		}
	}
	return false
}
