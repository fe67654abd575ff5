package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/link4deal/commerce-api/internal/dto"
	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/repository"
)

type PromotionService struct {
	promoRepo   repository.PromotionRepository
	channelRepo repository.ChannelRepository
}

func NewPromotionService(promoRepo repository.PromotionRepository, channelRepo repository.ChannelRepository) *PromotionService {
	return &PromotionService{promoRepo: promoRepo, channelRepo: channelRepo}
}

func (s *PromotionService) Create(ctx context.Context, channelID uuid.UUID, req dto.CreatePromotionRequest) (*model.Promotion, error) {
	discountType := model.CouponType(req.DiscountType)
	switch discountType {
	case model.CouponTypePercentage, model.CouponTypeFixed, model.CouponTypeFreeShipping:
	default:
		return nil, validationErrorf("discount_type", "unknown discount type %q", req.DiscountType)
	}
	if req.Value.IsNegative() {
		return nil, validationErrorf("value", "must not be negative")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, validationErrorf("ends_at", "must be after starts_at")
	}

	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}

	promo := &model.Promotion{
		ChannelID:    channelID,
		ProductID:    req.ProductID,
		Title:        req.Title,
		Code:         model.NormalizeCouponCode(req.Code),
		DiscountType: discountType,
		Value:        req.Value,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Active:       true,
	}
	if err := s.promoRepo.Create(ctx, promo); err != nil {
		return nil, fmt.Errorf("create promotion: %w", err)
	}
	return promo, nil
}

func (s *PromotionService) ListByChannel(ctx context.Context, channelID uuid.UUID, activeOnly bool) ([]model.Promotion, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}
	return s.promoRepo.ListByChannel(ctx, channelID, activeOnly)
}
