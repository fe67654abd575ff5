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

type ChannelRepository interface {
	Create(ctx context.Context, channel *model.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	GetByName(ctx context.Context, name string) (*model.Channel, error)
}

type pgChannelRepo struct{ pool *pgxpool.Pool }

func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &pgChannelRepo{pool: pool}
}

func (r *pgChannelRepo) Create(ctx context.Context, channel *model.Channel) error {
	channel.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO channels (id, owner_id, channel_name, platform, url, followers, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		channel.ID, channel.OwnerID, channel.ChannelName, channel.Platform,
		channel.URL, channel.Followers, channel.Active,
	).Scan(&channel.CreatedAt, &channel.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

func (r *pgChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *pgChannelRepo) GetByName(ctx context.Context, name string) (*model.Channel, error) {
	return r.get(ctx, `WHERE channel_name = $1`, name)
}

func (r *pgChannelRepo) get(ctx context.Context, where string, arg any) (*model.Channel, error) {
	ch := &model.Channel{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, channel_name, platform, url, followers, active, created_at, updated_at
		 FROM channels `+where, arg,
	).Scan(&ch.ID, &ch.OwnerID, &ch.ChannelName, &ch.Platform, &ch.URL,
		&ch.Followers, &ch.Active, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}
