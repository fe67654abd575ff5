package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/link4deal/commerce-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"omitempty,oneof=customer brand influencer"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

// --- Product ---

type CreateProductRequest struct {
	Name          string                 `json:"name" binding:"required"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category" binding:"required"`
	Subcategory   string                 `json:"subcategory"`
	Tags          []string               `json:"tags"`
	Price         decimal.Decimal        `json:"price" binding:"required"`
	OriginalPrice decimal.Decimal        `json:"original_price"`
	Currency      string                 `json:"currency" binding:"required"`
	Stock         int                    `json:"stock" binding:"min=0"`
	SKU           string                 `json:"sku" binding:"required"`
	Images        []model.ProductImage   `json:"images"`
	Variants      []model.ProductVariant `json:"variants"`
}

type UpdateProductRequest struct {
	Name          *string                `json:"name"`
	Description   *string                `json:"description"`
	Category      *string                `json:"category"`
	Subcategory   *string                `json:"subcategory"`
	Tags          []string               `json:"tags"`
	Price         *decimal.Decimal       `json:"price"`
	OriginalPrice *decimal.Decimal       `json:"original_price"`
	Status        *string                `json:"status"`
	Images        []model.ProductImage   `json:"images"`
	Variants      []model.ProductVariant `json:"variants"`
}

type ListProductsRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search   string `form:"search"`
	Category string `form:"category"`
	Sort     string `form:"sort,default=created_at" binding:"oneof=name price rating created_at"`
	Order    string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID            uuid.UUID              `json:"id"`
	SellerID      uuid.UUID              `json:"seller_id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category"`
	Subcategory   string                 `json:"subcategory,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	Price         decimal.Decimal        `json:"price"`
	OriginalPrice decimal.Decimal        `json:"original_price"`
	Currency      model.Currency         `json:"currency"`
	Stock         int                    `json:"stock"`
	SKU           string                 `json:"sku"`
	Slug          string                 `json:"slug"`
	Status        model.ProductStatus    `json:"status"`
	Images        []model.ProductImage   `json:"images,omitempty"`
	Variants      []model.ProductVariant `json:"variants,omitempty"`
	Metrics       ProductMetricsResponse `json:"metrics"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type ProductMetricsResponse struct {
	Views        int64   `json:"views"`
	CartAdds     int64   `json:"cart_adds"`
	WishlistAdds int64   `json:"wishlist_adds"`
	Purchases    int64   `json:"purchases"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type UpdateStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type AddReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

type ReviewResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID      uuid.UUID            `json:"product_id" binding:"required"`
	Quantity       int                  `json:"quantity" binding:"omitempty,min=1,max=100"`
	Variant        map[string]string    `json:"variant"`
	PromotionID    *uuid.UUID           `json:"promotion_id"`
	Discounts      []model.ItemDiscount `json:"discounts"`
	ShippingCost   decimal.Decimal      `json:"shipping_cost"`
	ShippingMethod string               `json:"shipping_method"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"max=100"`
}

type ApplyCouponRequest struct {
	Code            string           `json:"code" binding:"required"`
	Type            string           `json:"type" binding:"required,oneof=percentage fixed free-shipping"`
	Value           decimal.Decimal  `json:"value"`
	MinimumPurchase *decimal.Decimal `json:"minimum_purchase"`
	MaximumDiscount *decimal.Decimal `json:"maximum_discount"`
}

type ConvertCartRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
}

type ExtendExpirationRequest struct {
	Days int `json:"days" binding:"omitempty,min=1,max=365"`
}

type CartResponse struct {
	ID         uuid.UUID           `json:"id"`
	UserID     uuid.UUID           `json:"user_id"`
	Items      []CartItemResponse  `json:"items"`
	Coupons    []CouponResponse    `json:"coupons"`
	Totals     TotalsResponse      `json:"totals"`
	Status     model.CartStatus    `json:"status"`
	ExpiresAt  time.Time           `json:"expires_at"`
	Conversion *ConversionResponse `json:"conversion,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

type CartItemResponse struct {
	ID            uuid.UUID            `json:"id"`
	ProductID     uuid.UUID            `json:"product_id"`
	PromotionID   *uuid.UUID           `json:"promotion_id,omitempty"`
	Quantity      int                  `json:"quantity"`
	Price         decimal.Decimal      `json:"price"`
	OriginalPrice decimal.Decimal      `json:"original_price"`
	Currency      model.Currency       `json:"currency"`
	Variant       map[string]string    `json:"variant,omitempty"`
	Discounts     []model.ItemDiscount `json:"discounts,omitempty"`
	Available     bool                 `json:"available"`
	ShippingCost  decimal.Decimal      `json:"shipping_cost"`
}

type CouponResponse struct {
	Code           string          `json:"code"`
	Type           model.CouponType `json:"type"`
	Value          decimal.Decimal `json:"value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	AppliedAt      time.Time       `json:"applied_at"`
}

type TotalsResponse struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discounts decimal.Decimal `json:"discounts"`
	Taxes     decimal.Decimal `json:"taxes"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	Currency  model.Currency  `json:"currency"`
}

type ConversionResponse struct {
	OrderID     uuid.UUID       `json:"order_id"`
	ConvertedAt time.Time       `json:"converted_at"`
	Value       decimal.Decimal `json:"value"`
}

// --- Channel / scraping / promotions ---

type CreateChannelRequest struct {
	ChannelName string `json:"channel_name" binding:"required"`
	Platform    string `json:"platform" binding:"required"`
	URL         string `json:"url" binding:"omitempty,url"`
	Followers   int    `json:"followers" binding:"min=0"`
}

type ChannelResponse struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	ChannelName string    `json:"channel_name"`
	Platform    string    `json:"platform"`
	URL         string    `json:"url,omitempty"`
	Followers   int       `json:"followers"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type SubmitScrapeRequest struct {
	URL string `json:"url" binding:"required"`
}

type ScrapeResponse struct {
	ID        uuid.UUID           `json:"id"`
	ChannelID uuid.UUID           `json:"channel_id"`
	URL       string              `json:"url"`
	Status    model.ScrapeStatus  `json:"status"`
	Result    *model.ScrapeResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type CreatePromotionRequest struct {
	ProductID    *uuid.UUID      `json:"product_id"`
	Title        string          `json:"title" binding:"required"`
	Code         string          `json:"code" binding:"required"`
	DiscountType string          `json:"discount_type" binding:"required"`
	Value        decimal.Decimal `json:"value"`
	StartsAt     time.Time       `json:"starts_at" binding:"required"`
	EndsAt       time.Time       `json:"ends_at" binding:"required"`
}

type PromotionResponse struct {
	ID           uuid.UUID        `json:"id"`
	ChannelID    uuid.UUID        `json:"channel_id"`
	ProductID    *uuid.UUID       `json:"product_id,omitempty"`
	Title        string           `json:"title"`
	Code         string           `json:"code"`
	DiscountType model.CouponType `json:"discount_type"`
	Value        decimal.Decimal  `json:"value"`
	StartsAt     time.Time        `json:"starts_at"`
	EndsAt       time.Time        `json:"ends_at"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
}

type PromotionListResponse struct {
	Promotions []PromotionResponse `json:"promotions"`
	Total      int                 `json:"total"`
}

// --- Images ---

type OptimizeImageResponse struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Format           string  `json:"format"`
	OriginalSize     int     `json:"original_size"`
	OptimizedSize    int     `json:"optimized_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	Data             []byte  `json:"data"`
}
