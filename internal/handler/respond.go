package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/link4deal/commerce-api/internal/service"
)

// respondError translates the service error taxonomy to HTTP statuses:
// validation 400, not-found 404, conflict 409, anything else 500.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
		return
	}

	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartItemNotFound),
		errors.Is(err, service.ErrCouponNotFound),
		errors.Is(err, service.ErrChannelNotFound),
		errors.Is(err, service.ErrScrapeNotFound),
		errors.Is(err, service.ErrPromotionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCouponAlreadyApplied),
		errors.Is(err, service.ErrDuplicateReview),
		errors.Is(err, service.ErrDuplicateSKU),
		errors.Is(err, service.ErrChannelNameTaken),
		errors.Is(err, service.ErrCartNotActive),
		errors.Is(err, service.ErrCartModified),
		errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
