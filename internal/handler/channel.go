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

type ChannelHandler struct {
	channelService *service.ChannelService
	promoService   *service.PromotionService
}

func NewChannelHandler(channelService *service.ChannelService, promoService *service.PromotionService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService, promoService: promoService}
}

func (h *ChannelHandler) Create(c *gin.Context) {
	var req dto.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.channelService.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toChannelResponse(channel))
}

func (h *ChannelHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel ID"})
		return
	}

	channel, err := h.channelService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChannelResponse(channel))
}

func (h *ChannelHandler) SubmitScrape(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel ID"})
		return
	}

	var req dto.SubmitScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scrape, err := h.channelService.SubmitScrape(c.Request.Context(), channelID, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toScrapeResponse(scrape))
}

func (h *ChannelHandler) GetScrape(c *gin.Context) {
	id, err := uuid.Parse(c.Param("scrapeID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scrape ID"})
		return
	}

	scrape, err := h.channelService.GetScrape(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScrapeResponse(scrape))
}

func (h *ChannelHandler) CreatePromotion(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel ID"})
		return
	}

	var req dto.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	promo, err := h.promoService.Create(c.Request.Context(), channelID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPromotionResponse(promo))
}

func (h *ChannelHandler) ListPromotions(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel ID"})
		return
	}

	activeOnly := c.Query("active") == "true"
	promos, err := h.promoService.ListByChannel(c.Request.Context(), channelID, activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.PromotionResponse, 0, len(promos))
	for i := range promos {
		items = append(items, toPromotionResponse(&promos[i]))
	}
	c.JSON(http.StatusOK, dto.PromotionListResponse{Promotions: items, Total: len(items)})
}

func toChannelResponse(ch *model.Channel) dto.ChannelResponse {
	return dto.ChannelResponse{
		ID:          ch.ID,
		OwnerID:     ch.OwnerID,
		ChannelName: ch.ChannelName,
		Platform:    ch.Platform,
		URL:         ch.URL,
		Followers:   ch.Followers,
		Active:      ch.Active,
		CreatedAt:   ch.CreatedAt,
	}
}

func toScrapeResponse(s *model.ScrapeRequest) dto.ScrapeResponse {
	return dto.ScrapeResponse{
		ID:        s.ID,
		ChannelID: s.ChannelID,
		URL:       s.URL,
		Status:    s.Status,
		Result:    s.Result,
		Error:     s.Error,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toPromotionResponse(p *model.Promotion) dto.PromotionResponse {
	return dto.PromotionResponse{
		ID:           p.ID,
		ChannelID:    p.ChannelID,
		ProductID:    p.ProductID,
		Title:        p.Title,
		Code:         p.Code,
		DiscountType: p.DiscountType,
		Value:        p.Value,
		StartsAt:     p.StartsAt,
		EndsAt:       p.EndsAt,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
	}
}
