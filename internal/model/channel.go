package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Channel is an influencer publishing channel through which promotions are
// distributed. ChannelName is unique across the platform.
type Channel struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	ChannelName string
	Platform    string
	URL         string
	Followers   int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ScrapeStatus string

const (
	ScrapeStatusPending    ScrapeStatus = "pending"
	ScrapeStatusProcessing ScrapeStatus = "processing"
	ScrapeStatusCompleted  ScrapeStatus = "completed"
	ScrapeStatusFailed     ScrapeStatus = "failed"
)

// ScrapeRequest asks the platform to extract product data from an external
// page. Processing happens asynchronously in the scrape worker.
type ScrapeRequest struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	URL       string
	Status    ScrapeStatus
	Result    *ScrapeResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ScrapeResult struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// ScrapeMessage is the AMQP payload handed to the scrape worker.
type ScrapeMessage struct {
	RequestID uuid.UUID `json:"request_id"`
}

// Promotion is a channel-scoped deal that cart items may reference.
type Promotion struct {
	ID           uuid.UUID
	ChannelID    uuid.UUID
	ProductID    *uuid.UUID
	Title        string
	Code         string
	DiscountType CouponType
	Value        decimal.Decimal
	StartsAt     time.Time
	EndsAt       time.Time
	Active       bool
	CreatedAt    time.Time
}
