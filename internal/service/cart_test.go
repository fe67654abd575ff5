package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/pricing"
	"github.com/link4deal/commerce-api/internal/repository"
)

type mockCartRepo struct {
	carts    map[uuid.UUID]*model.Cart
	versions map[uuid.UUID]int64
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{
		carts:    make(map[uuid.UUID]*model.Cart),
		versions: make(map[uuid.UUID]int64),
	}
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	for _, c := range m.carts {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	cart := &model.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    model.CartStatusActive,
		ExpiresAt: time.Now().AddDate(0, 0, model.DefaultCartTTLDays),
		Version:   1,
	}
	m.carts[cart.ID] = cart
	m.versions[cart.ID] = 1
	cp := *cart
	return &cp, nil
}

func (m *mockCartRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockCartRepo) Save(_ context.Context, cart *model.Cart) error {
	if m.versions[cart.ID] != cart.Version {
		return repository.ErrVersionConflict
	}
	m.versions[cart.ID]++
	cart.Version = m.versions[cart.ID]
	cp := *cart
	m.carts[cart.ID] = &cp
	return nil
}

// fakeTx satisfies pgx.Tx for commit/rollback bookkeeping; anything else
// panics through the embedded nil interface.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

func (m *mockCartRepo) BeginTx(_ context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

func (m *mockCartRepo) SaveTx(ctx context.Context, _ pgx.Tx, cart *model.Cart) error {
	return m.Save(ctx, cart)
}

func (m *mockCartRepo) SweepAbandoned(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockCartRepo) MarkExpired(_ context.Context) (int64, error) { return 0, nil }

func (m *mockCartRepo) DeleteExpired(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func newCartService(cartRepo *mockCartRepo, productRepo *mockProductRepo) *CartService {
	return NewCartService(cartRepo, productRepo, pricing.NewCalculator(pricing.DefaultTaxRate), 30)
}

func activeProduct(repo *mockProductRepo, price float64, stock int) uuid.UUID {
	id := uuid.New()
	repo.products[id] = &model.Product{
		ID:       id,
		Price:    decimal.NewFromFloat(price),
		Currency: model.CurrencyMXN,
		Stock:    stock,
		Status:   model.ProductStatusActive,
	}
	return id
}

func TestCartService_AddItem(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(cartRepo, productRepo)

	cart, err := svc.AddItem(context.Background(), uuid.New(), pid, AddItemOptions{Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Totals.Subtotal.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, int64(1), productRepo.products[pid].Metrics.CartAdds)
}

func TestCartService_AddItem_DefaultsQuantityToOne(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 50, 5)
	svc := newCartService(newMockCartRepo(), productRepo)

	cart, err := svc.AddItem(context.Background(), uuid.New(), pid, AddItemOptions{})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestCartService_AddItem_MergesSameSelection(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()
	variant := map[string]string{"size": "M"}

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 2, Variant: variant})
	require.NoError(t, err)
	cart, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 3, Variant: variant})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddItem_DifferentVariantIsNewLine(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Variant: map[string]string{"size": "M"}})
	require.NoError(t, err)
	cart, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Variant: map[string]string{"size": "L"}})
	require.NoError(t, err)

	assert.Len(t, cart.Items, 2)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	svc := newCartService(newMockCartRepo(), newMockProductRepo())
	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), AddItemOptions{Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_QuantityCap(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 10, 1000)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 101})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)

	_, err = svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 60})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 60})
	require.ErrorAs(t, err, &verr)
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	cart, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 2})
	require.NoError(t, err)

	cart, err = svc.UpdateItemQuantity(context.Background(), userID, cart.Items[0].ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestCartService_UpdateItemQuantity_ZeroRemoves(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	cart, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 2})
	require.NoError(t, err)

	cart, err = svc.UpdateItemQuantity(context.Background(), userID, cart.Items[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_UpdateItemQuantity_NotFound(t *testing.T) {
	svc := newCartService(newMockCartRepo(), newMockProductRepo())
	_, err := svc.UpdateItemQuantity(context.Background(), uuid.New(), uuid.New(), 3)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_RemoveItem_AbsentIsNoOp(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{})
	require.NoError(t, err)

	cart, err := svc.RemoveItem(context.Background(), userID, uuid.New())
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCartService_ApplyCoupon(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 2})
	require.NoError(t, err)

	cart, err := svc.ApplyCoupon(context.Background(), userID, model.Coupon{
		Code: "  save10 ", Type: model.CouponTypePercentage, Value: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Len(t, cart.Coupons, 1)
	assert.Equal(t, "SAVE10", cart.Coupons[0].Code)
	assert.True(t, cart.Totals.Discounts.Equal(decimal.NewFromInt(20)))
}

func TestCartService_ApplyCoupon_Duplicate(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{})
	require.NoError(t, err)

	coupon := model.Coupon{Code: "TWICE", Type: model.CouponTypeFixed, Value: decimal.NewFromInt(5)}
	_, err = svc.ApplyCoupon(context.Background(), userID, coupon)
	require.NoError(t, err)

	// Same code in different case still conflicts, and the cart is untouched.
	coupon.Code = "twice"
	_, err = svc.ApplyCoupon(context.Background(), userID, coupon)
	assert.ErrorIs(t, err, ErrCouponAlreadyApplied)

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, cart.Coupons, 1)
}

func TestCartService_ApplyCoupon_MinimumPurchase(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{})
	require.NoError(t, err)

	minPurchase := decimal.NewFromInt(500)
	_, err = svc.ApplyCoupon(context.Background(), userID, model.Coupon{
		Code: "BIGSPEND", Type: model.CouponTypeFixed,
		Value: decimal.NewFromInt(50), MinimumPurchase: &minPurchase,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "minimum_purchase", verr.Field)
}

func TestCartService_ApplyCoupon_MinimumCheckedOnlyAtApply(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	cart, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 5})
	require.NoError(t, err)

	minPurchase := decimal.NewFromInt(400)
	_, err = svc.ApplyCoupon(context.Background(), userID, model.Coupon{
		Code: "KEEPME", Type: model.CouponTypeFixed,
		Value: decimal.NewFromInt(50), MinimumPurchase: &minPurchase,
	})
	require.NoError(t, err)

	// Subtotal drops below the minimum; the coupon stays.
	cart, err = svc.UpdateItemQuantity(context.Background(), userID, cart.Items[0].ID, 1)
	require.NoError(t, err)
	assert.Len(t, cart.Coupons, 1)
}

func TestCartService_RemoveCoupon(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), userID, model.Coupon{
		Code: "GONE", Type: model.CouponTypeFixed, Value: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	cart, err := svc.RemoveCoupon(context.Background(), userID, "gone")
	require.NoError(t, err)
	assert.Empty(t, cart.Coupons)
}

func TestCartService_RemoveCoupon_NotFound(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), userID, model.Coupon{
		Code: "STAYS", Type: model.CouponTypeFixed, Value: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	_, err = svc.RemoveCoupon(context.Background(), userID, "NEVERAPPLIED")
	assert.ErrorIs(t, err, ErrCouponNotFound)

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, cart.Coupons, 1)
}

func TestCartService_ClearItems(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 2})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(context.Background(), userID, model.Coupon{
		Code: "X", Type: model.CouponTypeFixed, Value: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	cart, err := svc.ClearItems(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Empty(t, cart.Coupons)
	assert.True(t, cart.Totals.Total.IsZero())
}

func TestCartService_ConvertToOrder(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 2})
	require.NoError(t, err)

	orderID := uuid.New()
	cart, err := svc.ConvertToOrder(context.Background(), userID, orderID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusConverted, cart.Status)
	require.NotNil(t, cart.Conversion)
	assert.Equal(t, orderID, cart.Conversion.OrderID)
	assert.True(t, cart.Conversion.Value.Equal(cart.Totals.Total))

	// Checkout consumed stock and recorded the sales.
	assert.Equal(t, 8, productRepo.products[pid].Stock)
	assert.Equal(t, int64(2), productRepo.products[pid].Metrics.Purchases)

	// Terminal state: the cart no longer accepts mutation.
	_, err = svc.AddItem(context.Background(), userID, pid, AddItemOptions{})
	assert.ErrorIs(t, err, ErrCartNotActive)
}

func TestCartService_ConvertToOrder_DecrementsEachLine(t *testing.T) {
	productRepo := newMockProductRepo()
	first := activeProduct(productRepo, 100, 10)
	second := activeProduct(productRepo, 25, 4)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, first, AddItemOptions{Quantity: 3})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, second, AddItemOptions{Quantity: 4})
	require.NoError(t, err)

	_, err = svc.ConvertToOrder(context.Background(), userID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 7, productRepo.products[first].Stock)
	assert.Equal(t, int64(3), productRepo.products[first].Metrics.Purchases)
	assert.Equal(t, 0, productRepo.products[second].Stock)
	assert.Equal(t, int64(4), productRepo.products[second].Metrics.Purchases)
}

func TestCartService_ConvertToOrder_InsufficientStock(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 5)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 5})
	require.NoError(t, err)

	// Another sale drains the shelf between add and checkout.
	productRepo.products[pid].Stock = 3

	_, err = svc.ConvertToOrder(context.Background(), userID, uuid.New())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Field)

	// Nothing was consumed and the cart is still usable.
	assert.Equal(t, 3, productRepo.products[pid].Stock)
	assert.Equal(t, int64(0), productRepo.products[pid].Metrics.Purchases)
	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, model.CartStatusActive, cart.Status)
	assert.Nil(t, cart.Conversion)
}

func TestCartService_ConvertToOrder_EmptyCart(t *testing.T) {
	svc := newCartService(newMockCartRepo(), newMockProductRepo())
	_, err := svc.ConvertToOrder(context.Background(), uuid.New(), uuid.New())
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCartService_VersionConflict(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(cartRepo, productRepo)
	userID := uuid.New()

	cart, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{})
	require.NoError(t, err)

	// A concurrent writer bumps the stored version behind our back.
	cartRepo.versions[cart.ID]++
	cartRepo.carts[cart.ID].Version = cartRepo.versions[cart.ID]

	stale := &model.Cart{ID: cart.ID, UserID: userID, Status: model.CartStatusActive, Version: cart.Version}
	err = svc.save(context.Background(), stale)
	assert.ErrorIs(t, err, ErrCartModified)
}

func TestCartService_AvailabilityMarking(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := activeProduct(productRepo, 100, 10)
	svc := newCartService(newMockCartRepo(), productRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, pid, AddItemOptions{Quantity: 5})
	require.NoError(t, err)

	// Stock drops below the requested quantity; the line stays but is
	// flagged unavailable.
	productRepo.products[pid].Stock = 2
	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.False(t, cart.Items[0].Available)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_ExtendExpiration(t *testing.T) {
	svc := newCartService(newMockCartRepo(), newMockProductRepo())
	userID := uuid.New()

	cart, err := svc.ExtendExpiration(context.Background(), userID, 60)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 60), cart.ExpiresAt, time.Minute)
}
