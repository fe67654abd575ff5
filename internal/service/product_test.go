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

	"github.com/link4deal/commerce-api/internal/dto"
	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/repository"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
	reviews  map[uuid.UUID][]model.Review
	skus     map[string]bool
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{
		products: make(map[uuid.UUID]*model.Product),
		reviews:  make(map[uuid.UUID][]model.Review),
		skus:     make(map[string]bool),
	}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	if m.skus[p.SKU] {
		return repository.ErrDuplicate
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	m.skus[p.SKU] = true
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) List(_ context.Context, limit, offset int, search, category, sort, order string) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	return all, len(all), nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) UpdateStock(_ context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	p.ApplyStockDelta(delta)
	return p, nil
}

func (m *mockProductRepo) IncrementMetric(_ context.Context, id uuid.UUID, metric string) error {
	p, ok := m.products[id]
	if !ok {
		return nil
	}
	switch metric {
	case "views":
		p.Metrics.Views++
	case "cart_adds":
		p.Metrics.CartAdds++
	case "wishlist_adds":
		p.Metrics.WishlistAdds++
	case "purchases":
		p.Metrics.Purchases++
	default:
		return repository.ErrUnknownMetric
	}
	return nil
}

func (m *mockProductRepo) AddReview(_ context.Context, review *model.Review) error {
	for _, r := range m.reviews[review.ProductID] {
		if r.UserID == review.UserID {
			return repository.ErrDuplicate
		}
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	m.reviews[review.ProductID] = append(m.reviews[review.ProductID], *review)

	if p, ok := m.products[review.ProductID]; ok {
		sum := 0
		for _, r := range m.reviews[review.ProductID] {
			sum += r.Rating
		}
		p.Metrics.ReviewCount = len(m.reviews[review.ProductID])
		p.Metrics.Rating = float64(sum) / float64(p.Metrics.ReviewCount)
	}
	return nil
}

func (m *mockProductRepo) ListReviews(_ context.Context, productID uuid.UUID) ([]model.Review, error) {
	return m.reviews[productID], nil
}

func (m *mockProductRepo) DecrementStockTx(_ context.Context, _ pgx.Tx, productID uuid.UUID, quantity int) error {
	p, ok := m.products[productID]
	if !ok || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.ApplyStockDelta(-quantity)
	p.Metrics.Purchases += int64(quantity)
	return nil
}

func TestProductService_Create(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	product, err := svc.Create(context.Background(), uuid.New(), dto.CreateProductRequest{
		Name: "Olla Coffee Kit", Category: "food", Currency: "MXN",
		Price: decimal.NewFromFloat(249.90), SKU: "CAFE-001", Stock: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "olla-coffee-kit", product.Slug)
	assert.Equal(t, model.ProductStatusActive, product.Status)
}

func TestProductService_Create_DraftWithoutStock(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	product, err := svc.Create(context.Background(), uuid.New(), dto.CreateProductRequest{
		Name: "Preorder", Category: "misc", Currency: "USD",
		Price: decimal.NewFromInt(10), SKU: "PRE-001", Stock: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusDraft, product.Status)
}

func TestProductService_Create_InvalidCurrency(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.Create(context.Background(), uuid.New(), dto.CreateProductRequest{
		Name: "X", Category: "misc", Currency: "GBP",
		Price: decimal.NewFromInt(10), SKU: "X-001",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "currency", verr.Field)
}

func TestProductService_Create_DuplicateSKU(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)
	req := dto.CreateProductRequest{
		Name: "First", Category: "misc", Currency: "MXN",
		Price: decimal.NewFromInt(10), SKU: "DUP-001", Stock: 1,
	}
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	req.Name = "Second"
	_, err = svc.Create(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_UpdateStock_StatusFlips(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)
	id := uuid.New()
	repo.products[id] = &model.Product{ID: id, Stock: 2, Status: model.ProductStatusActive}

	product, err := svc.UpdateStock(context.Background(), id, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
	assert.Equal(t, model.ProductStatusOutOfStock, product.Status)

	product, err = svc.UpdateStock(context.Background(), id, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, product.Stock)
	assert.Equal(t, model.ProductStatusActive, product.Status)
}

func TestProductService_UpdateStock_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.UpdateStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_AddReview(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)
	id := uuid.New()
	repo.products[id] = &model.Product{ID: id, Status: model.ProductStatusActive}

	_, err := svc.AddReview(context.Background(), id, uuid.New(), dto.AddReviewRequest{Rating: 4})
	require.NoError(t, err)
	_, err = svc.AddReview(context.Background(), id, uuid.New(), dto.AddReviewRequest{Rating: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.products[id].Metrics.ReviewCount)
	assert.InDelta(t, 3.0, repo.products[id].Metrics.Rating, 0.001)
}

func TestProductService_AddReview_Duplicate(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)
	id := uuid.New()
	userID := uuid.New()
	repo.products[id] = &model.Product{ID: id, Status: model.ProductStatusActive}

	_, err := svc.AddReview(context.Background(), id, userID, dto.AddReviewRequest{Rating: 5})
	require.NoError(t, err)
	_, err = svc.AddReview(context.Background(), id, userID, dto.AddReviewRequest{Rating: 1})
	assert.ErrorIs(t, err, ErrDuplicateReview)
}

func TestProductService_AddReview_InvalidRating(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.AddReview(context.Background(), uuid.New(), uuid.New(), dto.AddReviewRequest{Rating: 6})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNormalizeImages(t *testing.T) {
	images, err := normalizeImages([]model.ProductImage{
		{URL: "a.jpg"}, {URL: "b.jpg"},
	})
	require.NoError(t, err)
	assert.True(t, images[0].Primary)
	assert.False(t, images[1].Primary)

	_, err = normalizeImages([]model.ProductImage{
		{URL: "a.jpg", Primary: true}, {URL: "b.jpg", Primary: true},
	})
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", slugify("Hello, World!"))
	assert.Equal(t, "caf-2-go", slugify("  Café 2 Go  "))
}
