package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/link4deal/commerce-api/internal/dto"
	"github.com/link4deal/commerce-api/internal/middleware"
	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/service"
)

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.AddItem(c.Request.Context(), middleware.GetUserID(c), req.ProductID, service.AddItemOptions{
		Quantity:       req.Quantity,
		Variant:        req.Variant,
		PromotionID:    req.PromotionID,
		Discounts:      req.Discounts,
		ShippingCost:   req.ShippingCost,
		ShippingMethod: req.ShippingMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResponse(cart))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.UpdateItemQuantity(c.Request.Context(), middleware.GetUserID(c), itemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) DeleteItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), middleware.GetUserID(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	var req dto.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.ApplyCoupon(c.Request.Context(), middleware.GetUserID(c), model.Coupon{
		Code:            req.Code,
		Type:            model.CouponType(req.Type),
		Value:           req.Value,
		MinimumPurchase: req.MinimumPurchase,
		MaximumDiscount: req.MaximumDiscount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartResponse(cart))
}

func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	cart, err := h.svc.RemoveCoupon(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) Clear(c *gin.Context) {
	cart, err := h.svc.ClearItems(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) Convert(c *gin.Context) {
	var req dto.ConvertCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.ConvertToOrder(c.Request.Context(), middleware.GetUserID(c), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) Abandon(c *gin.Context) {
	cart, err := h.svc.MarkAsAbandoned(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) ExtendExpiration(c *gin.Context) {
	var req dto.ExtendExpirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.ExtendExpiration(c.Request.Context(), middleware.GetUserID(c), req.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, dto.CartItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			PromotionID:   item.PromotionID,
			Quantity:      item.Quantity,
			Price:         item.Price,
			OriginalPrice: item.OriginalPrice,
			Currency:      item.Currency,
			Variant:       item.Variant,
			Discounts:     item.Discounts,
			Available:     item.Available,
			ShippingCost:  item.Shipping.Cost,
		})
	}
	coupons := make([]dto.CouponResponse, 0, len(cart.Coupons))
	for _, coupon := range cart.Coupons {
		coupons = append(coupons, dto.CouponResponse{
			Code:           coupon.Code,
			Type:           coupon.Type,
			Value:          coupon.Value,
			DiscountAmount: coupon.DiscountAmount,
			AppliedAt:      coupon.AppliedAt,
		})
	}
	resp := dto.CartResponse{
		ID:      cart.ID,
		UserID:  cart.UserID,
		Items:   items,
		Coupons: coupons,
		Totals: dto.TotalsResponse{
			Subtotal:  cart.Totals.Subtotal,
			Discounts: cart.Totals.Discounts,
			Taxes:     cart.Totals.Taxes,
			Shipping:  cart.Totals.Shipping,
			Total:     cart.Totals.Total,
			Currency:  cart.Totals.Currency,
		},
		Status:    cart.Status,
		ExpiresAt: cart.ExpiresAt,
		UpdatedAt: cart.UpdatedAt,
	}
	if cart.Conversion != nil {
		resp.Conversion = &dto.ConversionResponse{
			OrderID:     cart.Conversion.OrderID,
			ConvertedAt: cart.Conversion.ConvertedAt,
			Value:       cart.Conversion.Value,
		}
	}
	return resp
}
