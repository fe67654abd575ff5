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

type PromotionRepository interface {
	Create(ctx context.Context, promo *model.Promotion) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID, activeOnly bool) ([]model.Promotion, error)
}

type pgPromotionRepo struct{ pool *pgxpool.Pool }

func NewPromotionRepository(pool *pgxpool.Pool) PromotionRepository {
	return &pgPromotionRepo{pool: pool}
}

func (r *pgPromotionRepo) Create(ctx context.Context, promo *model.Promotion) error {
	promo.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO promotions (id, channel_id, product_id, title, code, discount_type,
			value, starts_at, ends_at, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		 RETURNING created_at`,
		promo.ID, promo.ChannelID, promo.ProductID, promo.Title, promo.Code,
		promo.DiscountType, promo.Value, promo.StartsAt, promo.EndsAt, promo.Active,
	).Scan(&promo.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

func (r *pgPromotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	p := &model.Promotion{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, channel_id, product_id, title, code, discount_type, value,
				starts_at, ends_at, active, created_at
		 FROM promotions WHERE id = $1`, id,
	).Scan(&p.ID, &p.ChannelID, &p.ProductID, &p.Title, &p.Code, &p.DiscountType,
		&p.Value, &p.StartsAt, &p.EndsAt, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	return p, nil
}

func (r *pgPromotionRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, activeOnly bool) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, channel_id, product_id, title, code, discount_type, value,
				starts_at, ends_at, active, created_at
		 FROM promotions
		 WHERE channel_id = $1 AND ($2 = false OR (active AND NOW() BETWEEN starts_at AND ends_at))
		 ORDER BY created_at DESC`, channelID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	var promos []model.Promotion
	for rows.Next() {
		var p model.Promotion
		if err := rows.Scan(&p.ID, &p.ChannelID, &p.ProductID, &p.Title, &p.Code,
			&p.DiscountType, &p.Value, &p.StartsAt, &p.EndsAt, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}
