package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/link4deal/commerce-api/internal/model"
)

type ScrapeRepository interface {
	Create(ctx context.Context, req *model.ScrapeRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ScrapeRequest, error)
	SetProcessing(ctx context.Context, id uuid.UUID) error
	SetResult(ctx context.Context, id uuid.UUID, result *model.ScrapeResult) error
	SetFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type pgScrapeRepo struct{ pool *pgxpool.Pool }

func NewScrapeRepository(pool *pgxpool.Pool) ScrapeRepository {
	return &pgScrapeRepo{pool: pool}
}

func (r *pgScrapeRepo) Create(ctx context.Context, req *model.ScrapeRequest) error {
	req.ID = uuid.New()
	req.Status = model.ScrapeStatusPending
	err := r.pool.QueryRow(ctx,
		`INSERT INTO scrape_requests (id, channel_id, url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING created_at, updated_at`,
		req.ID, req.ChannelID, req.URL, req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create scrape request: %w", err)
	}
	return nil
}

func (r *pgScrapeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.ScrapeRequest, error) {
	req := &model.ScrapeRequest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, channel_id, url, status, result, error, created_at, updated_at
		 FROM scrape_requests WHERE id = $1`, id,
	).Scan(&req.ID, &req.ChannelID, &req.URL, &req.Status, &req.Result, &req.Error,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get scrape request: %w", err)
	}
	return req, nil
}

func (r *pgScrapeRepo) SetProcessing(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id,
		`UPDATE scrape_requests SET status = $2, updated_at = NOW() WHERE id = $1`,
		model.ScrapeStatusProcessing)
}

func (r *pgScrapeRepo) SetResult(ctx context.Context, id uuid.UUID, result *model.ScrapeResult) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE scrape_requests SET status = $2, result = $3, error = '', updated_at = NOW() WHERE id = $1`,
		id, model.ScrapeStatusCompleted, result,
	)
	if err != nil {
		return fmt.Errorf("set scrape result: %w", err)
	}
	return nil
}

func (r *pgScrapeRepo) SetFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE scrape_requests SET status = $2, error = $3, updated_at = NOW() WHERE id = $1`,
		id, model.ScrapeStatusFailed, reason,
	)
	if err != nil {
		return fmt.Errorf("set scrape failed: %w", err)
	}
	return nil
}

func (r *pgScrapeRepo) setStatus(ctx context.Context, id uuid.UUID, query string, status model.ScrapeStatus) error {
	_, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update scrape status: %w", err)
	}
	return nil
}
