package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

var errBrokerClosed = errors.New("amqp link closed")

// readinessCheck probes one backing dependency by name.
type readinessCheck struct {
	name  string
	probe func(ctx context.Context) error
}

// HealthHandler reports liveness and readiness. Readiness covers every
// dependency a request or the scrape pipeline can touch: Postgres, Redis,
// the AMQP connection and the channel the scrape queue runs on.
type HealthHandler struct {
	checks []readinessCheck
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection, amqpCh *amqp.Channel) *HealthHandler {
	return &HealthHandler{checks: []readinessCheck{
		{name: "postgres", probe: dbPool.Ping},
		{name: "redis", probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
		{name: "rabbitmq", probe: func(context.Context) error {
			if amqpConn.IsClosed() {
				return errBrokerClosed
			}
			return nil
		}},
		{name: "scrape_queue", probe: func(context.Context) error {
			if amqpCh.IsClosed() {
				return errBrokerClosed
			}
			return nil
		}},
	}}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz runs every check and reports per-dependency state. Any failure
// turns the whole response into a 503; the remaining checks still run so
// the body shows which dependencies are down.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.probe(ctx); err != nil {
			body[check.name] = "unavailable"
			body["status"] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[check.name] = "connected"
	}
	c.JSON(status, body)
}
