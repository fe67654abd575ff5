package service

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to the API layer: not-found and conflict
// sentinels checked with errors.Is, and ValidationError carrying a field
// message. The handlers translate these to 404, 409 and 400; anything else
// is a 500. Services never retry internally.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrChannelNotFound   = errors.New("channel not found")
	ErrScrapeNotFound    = errors.New("scrape request not found")
	ErrPromotionNotFound = errors.New("promotion not found")

	ErrCouponAlreadyApplied = errors.New("coupon already applied")
	ErrDuplicateReview      = errors.New("user already reviewed this product")
	ErrDuplicateSKU         = errors.New("sku already exists")
	ErrChannelNameTaken     = errors.New("channel name already taken")
	ErrCartNotActive        = errors.New("cart is not active")
	// ErrCartModified is a lost optimistic-concurrency race; the client
	// should re-read and retry.
	ErrCartModified = errors.New("cart was modified concurrently")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
