package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/link4deal/commerce-api/internal/model"
)

type CartRepository interface {
	// GetOrCreate returns the user's cart, lazily creating an empty active
	// one. Carts are unique per user.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error)
	// Save persists the whole cart as one transactional write guarded by
	// the version token. A concurrent writer surfaces as ErrVersionConflict
	// and leaves prior state untouched.
	Save(ctx context.Context, cart *model.Cart) error
	// BeginTx opens a transaction so the caller can combine the versioned
	// cart write with other statements, e.g. checkout stock decrements.
	// SaveTx is Save's body running inside the caller's transaction; the
	// caller owns commit and rollback.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	SaveTx(ctx context.Context, tx pgx.Tx, cart *model.Cart) error
	// SweepAbandoned marks active carts untouched since the cutoff.
	SweepAbandoned(ctx context.Context, inactiveSince time.Time) (int64, error)
	// MarkExpired flips carts past their expiry to the terminal expired
	// status; DeleteExpired removes them once past the grace window. The
	// pair stands in for the document store's TTL index.
	MarkExpired(ctx context.Context) (int64, error)
	DeleteExpired(ctx context.Context, grace time.Duration) (int64, error)
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := r.getByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	id := uuid.New()
	expiresAt := time.Now().AddDate(0, 0, model.DefaultCartTTLDays)
	_, err = r.pool.Exec(ctx,
		`INSERT INTO carts (id, user_id, status, currency, expires_at, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		id, userID, model.CartStatusActive, model.CurrencyMXN, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	// Re-read either our insert or a concurrent winner's row.
	cart, err = r.getByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart for user %s missing after insert", userID)
	}
	return cart, nil
}

func (r *pgCartRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *pgCartRepo) getByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	return r.get(ctx, `WHERE user_id = $1`, userID)
}

func (r *pgCartRepo) get(ctx context.Context, where string, arg any) (*model.Cart, error) {
	cart := &model.Cart{}
	var orderID *uuid.UUID
	var convertedAt *time.Time
	var conversionValue decimal.NullDecimal
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, subtotal, discounts, taxes, shipping, total, currency,
				status, expires_at, order_id, converted_at, conversion_value,
				version, created_at, updated_at
		 FROM carts `+where, arg,
	).Scan(
		&cart.ID, &cart.UserID,
		&cart.Totals.Subtotal, &cart.Totals.Discounts, &cart.Totals.Taxes,
		&cart.Totals.Shipping, &cart.Totals.Total, &cart.Totals.Currency,
		&cart.Status, &cart.ExpiresAt, &orderID, &convertedAt, &conversionValue,
		&cart.Version, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if orderID != nil && convertedAt != nil {
		cart.Conversion = &model.Conversion{OrderID: *orderID, ConvertedAt: *convertedAt}
		if conversionValue.Valid {
			cart.Conversion.Value = conversionValue.Decimal
		}
	}

	if err := r.loadItems(ctx, cart); err != nil {
		return nil, err
	}
	if err := r.loadCoupons(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *pgCartRepo) loadItems(ctx context.Context, cart *model.Cart) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, promotion_id, quantity, price, original_price, currency,
				variant, discounts, available, shipping_cost, shipping_method, added_at, updated_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY added_at`, cart.ID)
	if err != nil {
		return fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.PromotionID, &item.Quantity,
			&item.Price, &item.OriginalPrice, &item.Currency,
			&item.Variant, &item.Discounts, &item.Available,
			&item.Shipping.Cost, &item.Shipping.Method, &item.AddedAt, &item.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return rows.Err()
}

func (r *pgCartRepo) loadCoupons(ctx context.Context, cart *model.Cart) error {
	rows, err := r.pool.Query(ctx,
		`SELECT code, type, value, minimum_purchase, maximum_discount, discount_amount, applied_at
		 FROM cart_coupons WHERE cart_id = $1 ORDER BY applied_at`, cart.ID)
	if err != nil {
		return fmt.Errorf("get cart coupons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Coupon
		var minPurchase, maxDiscount decimal.NullDecimal
		if err := rows.Scan(&c.Code, &c.Type, &c.Value, &minPurchase, &maxDiscount, &c.DiscountAmount, &c.AppliedAt); err != nil {
			return fmt.Errorf("scan cart coupon: %w", err)
		}
		if minPurchase.Valid {
			c.MinimumPurchase = &minPurchase.Decimal
		}
		if maxDiscount.Valid {
			c.MaximumDiscount = &maxDiscount.Decimal
		}
		cart.Coupons = append(cart.Coupons, c)
	}
	return rows.Err()
}

func (r *pgCartRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *pgCartRepo) Save(ctx context.Context, cart *model.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.SaveTx(ctx, tx, cart); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgCartRepo) SaveTx(ctx context.Context, tx pgx.Tx, cart *model.Cart) error {
	var orderID *uuid.UUID
	var convertedAt *time.Time
	var conversionValue decimal.NullDecimal
	if cart.Conversion != nil {
		orderID = &cart.Conversion.OrderID
		convertedAt = &cart.Conversion.ConvertedAt
		conversionValue = decimal.NullDecimal{Decimal: cart.Conversion.Value, Valid: true}
	}

	err := tx.QueryRow(ctx,
		`UPDATE carts SET
			subtotal=$3, discounts=$4, taxes=$5, shipping=$6, total=$7, currency=$8,
			status=$9, expires_at=$10, order_id=$11, converted_at=$12, conversion_value=$13,
			version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at`,
		cart.ID, cart.Version,
		cart.Totals.Subtotal, cart.Totals.Discounts, cart.Totals.Taxes,
		cart.Totals.Shipping, cart.Totals.Total, cart.Totals.Currency,
		cart.Status, cart.ExpiresAt, orderID, convertedAt, conversionValue,
	).Scan(&cart.Version, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("update cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO cart_items (id, cart_id, product_id, promotion_id, quantity, price,
				original_price, currency, variant, discounts, available,
				shipping_cost, shipping_method, added_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			item.ID, cart.ID, item.ProductID, item.PromotionID, item.Quantity, item.Price,
			item.OriginalPrice, item.Currency, item.Variant, item.Discounts, item.Available,
			item.Shipping.Cost, item.Shipping.Method, item.AddedAt, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_coupons WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("clear cart coupons: %w", err)
	}
	for i := range cart.Coupons {
		c := &cart.Coupons[i]
		var minPurchase, maxDiscount decimal.NullDecimal
		if c.MinimumPurchase != nil {
			minPurchase = decimal.NullDecimal{Decimal: *c.MinimumPurchase, Valid: true}
		}
		if c.MaximumDiscount != nil {
			maxDiscount = decimal.NullDecimal{Decimal: *c.MaximumDiscount, Valid: true}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO cart_coupons (cart_id, code, type, value, minimum_purchase,
				maximum_discount, discount_amount, applied_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			cart.ID, c.Code, c.Type, c.Value, minPurchase, maxDiscount, c.DiscountAmount, c.AppliedAt,
		)
		if err != nil {
			return fmt.Errorf("insert cart coupon: %w", err)
		}
	}
	return nil
}

func (r *pgCartRepo) SweepAbandoned(ctx context.Context, inactiveSince time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE carts SET status = $1, updated_at = NOW()
		 WHERE status = $2 AND updated_at < $3`,
		model.CartStatusAbandoned, model.CartStatusActive, inactiveSince,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep abandoned: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgCartRepo) MarkExpired(ctx context.Context) (int64, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE carts SET status = $1, updated_at = NOW()
		 WHERE expires_at < NOW() AND status IN ($2, $3)`,
		model.CartStatusExpired, model.CartStatusActive, model.CartStatusAbandoned,
	)
	if err != nil {
		return 0, fmt.Errorf("mark expired: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgCartRepo) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM carts WHERE status = $1 AND expires_at < $2`,
		model.CartStatusExpired, time.Now().Add(-grace),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return ct.RowsAffected(), nil
}
