package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyMXN Currency = "MXN"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyCOP Currency = "COP"
	CurrencyARS Currency = "ARS"
	CurrencyBRL Currency = "BRL"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyMXN, CurrencyUSD, CurrencyEUR, CurrencyCOP, CurrencyARS, CurrencyBRL:
		return true
	}
	return false
}

type ProductStatus string

const (
	ProductStatusDraft        ProductStatus = "draft"
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusOutOfStock   ProductStatus = "out-of-stock"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

type Product struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	Name          string
	Description   string
	Category      string
	Subcategory   string
	Tags          []string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Currency      Currency
	Stock         int
	SKU           string
	Slug          string
	Status        ProductStatus
	Images        []ProductImage
	Variants      []ProductVariant
	Metrics       ProductMetrics
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductImage is an entry in the product's ordered gallery. Exactly one
// image carries Primary=true whenever the gallery is non-empty.
type ProductImage struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Primary bool   `json:"primary"`
}

type ProductVariant struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type ProductMetrics struct {
	Views        int64
	CartAdds     int64
	WishlistAdds int64
	Purchases    int64
	Rating       float64
	ReviewCount  int
}

type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Title     string
	Comment   string
	CreatedAt time.Time
}

// ApplyStockDelta adjusts stock, flooring at zero, and flips status between
// active and out-of-stock. Other statuses (draft, inactive, discontinued)
// are never changed by stock movement.
func (p *Product) ApplyStockDelta(delta int) {
	stock := p.Stock + delta
	if stock < 0 {
		stock = 0
	}
	p.Stock = stock

	switch {
	case p.Stock == 0 && p.Status == ProductStatusActive:
		p.Status = ProductStatusOutOfStock
	case p.Stock > 0 && p.Status == ProductStatusOutOfStock:
		p.Status = ProductStatusActive
	}
}

// PrimaryImage returns the image flagged primary, falling back to the first
// entry when the flag is missing.
func (p *Product) PrimaryImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].Primary {
			return &p.Images[i]
		}
	}
	if len(p.Images) > 0 {
		return &p.Images[0]
	}
	return nil
}
