package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/pricing"
	"github.com/link4deal/commerce-api/internal/repository"
)

// CartService owns the cart lifecycle. Every mutation recomputes totals,
// refreshes item availability and expiry, and persists the cart as a single
// versioned write.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	calc        pricing.Calculator
	ttlDays     int
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, calc pricing.Calculator, ttlDays int) *CartService {
	if ttlDays <= 0 {
		ttlDays = model.DefaultCartTTLDays
	}
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, calc: calc, ttlDays: ttlDays}
}

// AddItemOptions carries the optional parts of an add-to-cart call.
type AddItemOptions struct {
	Quantity       int
	Variant        map[string]string
	PromotionID    *uuid.UUID
	Discounts      []model.ItemDiscount
	ShippingCost   decimal.Decimal
	ShippingMethod string
}

// GetCart returns the user's cart, creating it lazily, with advisory item
// availability refreshed against the current catalog. Availability updates
// on read are not persisted.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	if err := s.checkItemAvailability(ctx, cart); err != nil {
		return nil, err
	}
	s.calc.Recalculate(cart)
	return cart, nil
}

// AddItem appends a line item, or merges quantity into an existing line
// with the same product and identical variant selector.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, opts AddItemOptions) (*model.Cart, error) {
	quantity := opts.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 || quantity > model.MaxItemQuantity {
		return nil, validationErrorf("quantity", "must be between 1 and %d", model.MaxItemQuantity)
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	merged := false
	for i := range cart.Items {
		if cart.Items[i].SameSelection(productID, opts.Variant) {
			if cart.Items[i].Quantity+quantity > model.MaxItemQuantity {
				return nil, validationErrorf("quantity", "line quantity cannot exceed %d", model.MaxItemQuantity)
			}
			cart.Items[i].Quantity += quantity
			cart.Items[i].UpdatedAt = now
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, model.CartItem{
			ID:            uuid.New(),
			ProductID:     productID,
			PromotionID:   opts.PromotionID,
			Quantity:      quantity,
			Price:         product.Price,
			OriginalPrice: product.OriginalPrice,
			Currency:      product.Currency,
			Variant:       opts.Variant,
			Discounts:     opts.Discounts,
			Available:     true,
			Shipping:      model.ItemShipping{Cost: opts.ShippingCost, Method: opts.ShippingMethod},
			AddedAt:       now,
			UpdatedAt:     now,
		})
	}

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	_ = s.productRepo.IncrementMetric(ctx, productID, "cart_adds")
	return cart, nil
}

// RemoveItem filters the item out by identity. Removing an absent item is
// a no-op.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*model.Cart, error) {
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItemQuantity sets a line's quantity; zero or negative delegates to
// RemoveItem.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}
	if quantity > model.MaxItemQuantity {
		return nil, validationErrorf("quantity", "must be between 1 and %d", model.MaxItemQuantity)
	}

	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := cart.FindItem(itemID)
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now()

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ApplyCoupon validates and appends a cart-level coupon. The code is
// case-normalized; a duplicate is a conflict. Minimum purchase is checked
// only here — a cart whose subtotal later drops keeps the coupon.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, coupon model.Coupon) (*model.Cart, error) {
	coupon.Code = model.NormalizeCouponCode(coupon.Code)
	if coupon.Code == "" {
		return nil, validationErrorf("code", "coupon code is required")
	}
	switch coupon.Type {
	case model.CouponTypePercentage, model.CouponTypeFixed, model.CouponTypeFreeShipping:
	default:
		return nil, validationErrorf("type", "unknown coupon type %q", coupon.Type)
	}

	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.HasCoupon(coupon.Code) {
		return nil, ErrCouponAlreadyApplied
	}

	subtotal := decimal.Zero
	shipping := decimal.Zero
	for i := range cart.Items {
		subtotal = subtotal.Add(cart.Items[i].LineTotal())
		shipping = shipping.Add(cart.Items[i].Shipping.Cost)
	}
	if coupon.MinimumPurchase != nil && subtotal.LessThan(*coupon.MinimumPurchase) {
		return nil, validationErrorf("minimum_purchase",
			"subtotal %s is below the coupon minimum %s", subtotal, coupon.MinimumPurchase)
	}

	coupon.DiscountAmount = pricing.CouponDiscount(&coupon, subtotal, shipping)
	coupon.AppliedAt = time.Now()
	cart.Coupons = append(cart.Coupons, coupon)

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveCoupon drops the coupon by its normalized code. A code that is
// not on the cart is ErrCouponNotFound.
func (s *CartService) RemoveCoupon(ctx context.Context, userID uuid.UUID, code string) (*model.Cart, error) {
	code = model.NormalizeCouponCode(code)

	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.HasCoupon(code) {
		return nil, ErrCouponNotFound
	}

	kept := cart.Coupons[:0]
	for _, c := range cart.Coupons {
		if c.Code != code {
			kept = append(kept, c)
		}
	}
	cart.Coupons = kept

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ClearItems empties items and coupons in one write.
func (s *CartService) ClearItems(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Items = nil
	cart.Coupons = nil

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ConvertToOrder is the terminal checkout transition: totals are frozen
// into the conversion snapshot and the cart leaves the active state for
// good. Stock is decremented per line in the same transaction as the
// versioned cart write, so a conflict or a short line rolls everything
// back.
func (s *CartService) ConvertToOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Cart, error) {
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, validationErrorf("items", "cannot convert an empty cart")
	}

	if err := s.checkItemAvailability(ctx, cart); err != nil {
		return nil, err
	}
	s.calc.Recalculate(cart)

	cart.Status = model.CartStatusConverted
	cart.Conversion = &model.Conversion{
		OrderID:     orderID,
		ConvertedAt: time.Now(),
		Value:       cart.Totals.Total,
	}
	cart.ExpiresAt = time.Now().AddDate(0, 0, s.ttlDays)

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i := range cart.Items {
		item := &cart.Items[i]
		if err = s.productRepo.DecrementStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, validationErrorf("items", "not enough stock for product %s", item.ProductID)
			}
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	if err = s.cartRepo.SaveTx(ctx, tx, cart); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrCartModified
		}
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return cart, nil
}

func (s *CartService) MarkAsAbandoned(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Status = model.CartStatusAbandoned

	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ExtendExpiration resets expiresAt relative to now. Zero or negative days
// falls back to the configured TTL.
func (s *CartService) ExtendExpiration(ctx context.Context, userID uuid.UUID, days int) (*model.Cart, error) {
	if days <= 0 {
		days = s.ttlDays
	}

	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.checkItemAvailability(ctx, cart); err != nil {
		return nil, err
	}
	s.calc.Recalculate(cart)
	cart.ExpiresAt = time.Now().AddDate(0, 0, days)

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// mutableCart loads the user's cart and rejects mutation of carts that
// left the active state.
func (s *CartService) mutableCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	if cart.Status != model.CartStatusActive {
		return nil, ErrCartNotActive
	}
	return cart, nil
}

// persist runs the standard write path: availability refresh, totals
// recompute, expiry bump, versioned save.
func (s *CartService) persist(ctx context.Context, cart *model.Cart) error {
	if err := s.checkItemAvailability(ctx, cart); err != nil {
		return err
	}
	s.calc.Recalculate(cart)
	cart.ExpiresAt = time.Now().AddDate(0, 0, s.ttlDays)
	return s.save(ctx, cart)
}

func (s *CartService) save(ctx context.Context, cart *model.Cart) error {
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrCartModified
		}
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// checkItemAvailability marks a line unavailable when its product is
// missing, not active, or short on stock. Advisory only: quantities are
// never adjusted and lines are never dropped.
func (s *CartService) checkItemAvailability(ctx context.Context, cart *model.Cart) error {
	for i := range cart.Items {
		item := &cart.Items[i]
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		item.Available = product != nil &&
			product.Status == model.ProductStatusActive &&
			product.Stock >= item.Quantity
	}
	return nil
}
