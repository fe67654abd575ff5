package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/link4deal/commerce-api/internal/dto"
	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/repository"
)

// ScrapeQueueName is the AMQP queue feeding the scrape worker.
const ScrapeQueueName = "scrapes"

type ChannelService struct {
	channelRepo repository.ChannelRepository
	scrapeRepo  repository.ScrapeRepository
	amqpCh      *amqp.Channel
}

func NewChannelService(channelRepo repository.ChannelRepository, scrapeRepo repository.ScrapeRepository, amqpCh *amqp.Channel) *ChannelService {
	return &ChannelService{channelRepo: channelRepo, scrapeRepo: scrapeRepo, amqpCh: amqpCh}
}

func (s *ChannelService) Create(ctx context.Context, ownerID uuid.UUID, req dto.CreateChannelRequest) (*model.Channel, error) {
	channel := &model.Channel{
		OwnerID:     ownerID,
		ChannelName: req.ChannelName,
		Platform:    req.Platform,
		URL:         req.URL,
		Followers:   req.Followers,
		Active:      true,
	}
	if err := s.channelRepo.Create(ctx, channel); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrChannelNameTaken
		}
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return channel, nil
}

func (s *ChannelService) GetByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	channel, err := s.channelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}
	return channel, nil
}

// SubmitScrape records a scrape request and hands it to the worker over
// AMQP. The request is processed asynchronously; callers poll GetScrape.
func (s *ChannelService) SubmitScrape(ctx context.Context, channelID uuid.UUID, rawURL string) (*model.ScrapeRequest, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, validationErrorf("url", "must be an absolute http(s) URL")
	}

	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}

	req := &model.ScrapeRequest{ChannelID: channelID, URL: rawURL}
	if err := s.scrapeRepo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create scrape request: %w", err)
	}

	body, _ := json.Marshal(model.ScrapeMessage{RequestID: req.ID})
	if s.amqpCh != nil {
		err = s.amqpCh.PublishWithContext(ctx, "", ScrapeQueueName, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
		if err != nil {
			return nil, fmt.Errorf("publish scrape request: %w", err)
		}
	}
	return req, nil
}

func (s *ChannelService) GetScrape(ctx context.Context, id uuid.UUID) (*model.ScrapeRequest, error) {
	req, err := s.scrapeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get scrape request: %w", err)
	}
	if req == nil {
		return nil, ErrScrapeNotFound
	}
	return req, nil
}
