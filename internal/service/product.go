package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/link4deal/commerce-api/internal/dto"
	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/repository"
)

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient}
}

func (s *ProductService) Create(ctx context.Context, sellerID uuid.UUID, req dto.CreateProductRequest) (*model.Product, error) {
	currency := model.Currency(req.Currency)
	if !currency.Valid() {
		return nil, validationErrorf("currency", "unsupported currency %q", req.Currency)
	}
	if req.Price.IsNegative() {
		return nil, validationErrorf("price", "must not be negative")
	}
	images, err := normalizeImages(req.Images)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		SellerID:      sellerID,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		Tags:          req.Tags,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Currency:      currency,
		Stock:         req.Stock,
		SKU:           req.SKU,
		Slug:          slugify(req.Name),
		Status:        model.ProductStatusDraft,
		Images:        images,
		Variants:      req.Variants,
	}
	if product.Stock > 0 {
		product.Status = model.ProductStatusActive
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateSKU
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	cacheKey := "product:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var p model.Product
			if json.Unmarshal([]byte(cached), &p) == nil {
				return &p, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(product); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) ([]model.Product, int, error) {
	offset := (req.Page - 1) * req.Limit
	products, total, err := s.productRepo.List(ctx, req.Limit, offset, req.Search, req.Category, req.Sort, req.Order)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Subcategory != nil {
		product.Subcategory = *req.Subcategory
	}
	if req.Tags != nil {
		product.Tags = req.Tags
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, validationErrorf("price", "must not be negative")
		}
		product.Price = *req.Price
	}
	if req.OriginalPrice != nil {
		product.OriginalPrice = *req.OriginalPrice
	}
	if req.Status != nil {
		status := model.ProductStatus(*req.Status)
		switch status {
		case model.ProductStatusDraft, model.ProductStatusActive, model.ProductStatusInactive,
			model.ProductStatusOutOfStock, model.ProductStatusDiscontinued:
			product.Status = status
		default:
			return nil, validationErrorf("status", "unknown status %q", *req.Status)
		}
	}
	if req.Images != nil {
		images, err := normalizeImages(req.Images)
		if err != nil {
			return nil, err
		}
		product.Images = images
	}
	if req.Variants != nil {
		product.Variants = req.Variants
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return product, nil
}

// UpdateStock applies a delta; stock floors at zero and status flips
// between active and out-of-stock at the boundary.
func (s *ProductService) UpdateStock(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	product, err := s.productRepo.UpdateStock(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	s.invalidateCache(ctx, id)
	return product, nil
}

func (s *ProductService) AddReview(ctx context.Context, productID, userID uuid.UUID, req dto.AddReviewRequest) (*model.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, validationErrorf("rating", "must be between 1 and 5")
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	review := &model.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	}
	if err := s.productRepo.AddReview(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("add review: %w", err)
	}
	s.invalidateCache(ctx, productID)
	return review, nil
}

func (s *ProductService) ListReviews(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	return s.productRepo.ListReviews(ctx, productID)
}

// RecordView bumps the view counter. Counter writes are atomic at the
// storage layer, so concurrent requests never lose increments.
func (s *ProductService) RecordView(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.IncrementMetric(ctx, id, "views")
}

func (s *ProductService) RecordWishlistAdd(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.IncrementMetric(ctx, id, "wishlist_adds")
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "product:"+id.String())
	}
}

// normalizeImages enforces the single-primary invariant: with no flag set
// the first image becomes primary, more than one flagged is an error.
func normalizeImages(images []model.ProductImage) ([]model.ProductImage, error) {
	if len(images) == 0 {
		return nil, nil
	}
	primaries := 0
	for _, img := range images {
		if img.Primary {
			primaries++
		}
	}
	switch primaries {
	case 0:
		images[0].Primary = true
	case 1:
	default:
		return nil, validationErrorf("images", "exactly one image may be primary")
	}
	return images, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
