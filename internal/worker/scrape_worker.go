package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/link4deal/commerce-api/internal/model"
	"github.com/link4deal/commerce-api/internal/repository"
	"github.com/link4deal/commerce-api/internal/scraper"
	"github.com/link4deal/commerce-api/internal/service"
)

const (
	scrapeQueueName = service.ScrapeQueueName
	dlxExchange     = "scrapes.dlx"
	dlqQueueName    = "scrapes.dlq"
	idempotencyTTL  = 24 * time.Hour
)

// ScrapeWorker consumes scrape requests from AMQP, fetches the target page
// and persists the extracted product data. Poison messages land in the DLQ.
type ScrapeWorker struct {
	channel     *amqp.Channel
	scrapeRepo  repository.ScrapeRepository
	scraper     *scraper.Scraper
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewScrapeWorker(
	ch *amqp.Channel,
	scrapeRepo repository.ScrapeRepository,
	sc *scraper.Scraper,
	redisClient *redis.Client,
	log *slog.Logger,
) *ScrapeWorker {
	return &ScrapeWorker{
		channel:     ch,
		scrapeRepo:  scrapeRepo,
		scraper:     sc,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, scrapeQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(scrapeQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": scrapeQueueName,
	}); err != nil {
		return fmt.Errorf("declare scrape queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *ScrapeWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(scrapeQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("scrape worker started")
	return nil
}

func (w *ScrapeWorker) Stop() { close(w.done) }

func (w *ScrapeWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var scrapeMsg model.ScrapeMessage
	if err := json.Unmarshal(msg.Body, &scrapeMsg); err != nil {
		w.log.Error("unmarshal scrape message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("scrape_id", scrapeMsg.RequestID)

	idempotencyKey := "scrape_processed:" + scrapeMsg.RequestID.String()
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("scrape already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.processScrape(ctx, scrapeMsg.RequestID); err != nil {
		log.Error("process scrape failed", "error", err)
		_ = msg.Nack(false, false) // → DLQ
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("scrape processed successfully")
}

func (w *ScrapeWorker) processScrape(ctx context.Context, requestID uuid.UUID) error {
	req, err := w.scrapeRepo.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("get scrape request: %w", err)
	}
	if req == nil {
		return fmt.Errorf("scrape request not found: %s", requestID)
	}
	if req.Status == model.ScrapeStatusCompleted {
		return nil
	}

	if err := w.scrapeRepo.SetProcessing(ctx, req.ID); err != nil {
		return fmt.Errorf("set processing: %w", err)
	}

	result, err := w.scraper.ScrapeProduct(ctx, req.URL)
	if err != nil {
		// Extraction failures are recorded, not retried: the page is the
		// problem, not the worker.
		if setErr := w.scrapeRepo.SetFailed(ctx, req.ID, err.Error()); setErr != nil {
			return fmt.Errorf("set failed: %w", setErr)
		}
		return nil
	}

	if err := w.scrapeRepo.SetResult(ctx, req.ID, result); err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	return nil
}
