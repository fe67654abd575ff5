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

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, limit, offset int, search, category, sort, order string) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	// UpdateStock applies a stock delta atomically, flooring at zero and
	// flipping status between active and out-of-stock in the same statement.
	UpdateStock(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error)
	// IncrementMetric bumps one of the monotonic counters atomically.
	IncrementMetric(ctx context.Context, id uuid.UUID, metric string) error
	AddReview(ctx context.Context, review *model.Review) error
	ListReviews(ctx context.Context, productID uuid.UUID) ([]model.Review, error)
	DecrementStockTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error
}

// metric name → whitelisted column, keeps increments out of string building.
var metricColumns = map[string]string{
	"views":         "views",
	"cart_adds":     "cart_adds",
	"wishlist_adds": "wishlist_adds",
	"purchases":     "purchases",
}

var ErrUnknownMetric = errors.New("unknown metric")

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `id, seller_id, name, description, category, subcategory, tags,
	price, original_price, currency, stock, sku, slug, status, images, variants,
	views, cart_adds, wishlist_adds, purchases, rating, review_count, created_at, updated_at`

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	if product.Status == "" {
		product.Status = model.ProductStatusDraft
	}
	query := `INSERT INTO products (id, seller_id, name, description, category, subcategory, tags,
				price, original_price, currency, stock, sku, slug, status, images, variants,
				created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.SellerID, product.Name, product.Description,
		product.Category, product.Subcategory, product.Tags,
		product.Price, product.OriginalPrice, product.Currency, product.Stock,
		product.SKU, product.Slug, product.Status, product.Images, product.Variants,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, limit, offset int, search, category, sort, order string) ([]model.Product, int, error) {
	allowedSorts := map[string]bool{"name": true, "price": true, "rating": true, "created_at": true}
	if !allowedSorts[sort] {
		sort = "created_at"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	filter := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
			   AND ($2 = '' OR category = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+filter, search, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s LIMIT $3 OFFSET $4`,
		productColumns, filter, sort, order)
	rows, err := r.pool.Query(ctx, query, search, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, description=$3, category=$4, subcategory=$5, tags=$6,
				price=$7, original_price=$8, currency=$9, stock=$10, status=$11,
				images=$12, variants=$13, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Category, product.Subcategory,
		product.Tags, product.Price, product.OriginalPrice, product.Currency, product.Stock,
		product.Status, product.Images, product.Variants,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) UpdateStock(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	query := `UPDATE products SET
				stock = GREATEST(0, stock + $2),
				status = CASE
					WHEN GREATEST(0, stock + $2) = 0 AND status = 'active' THEN 'out-of-stock'
					WHEN GREATEST(0, stock + $2) > 0 AND status = 'out-of-stock' THEN 'active'
					ELSE status
				END,
				updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + productColumns
	row := r.pool.QueryRow(ctx, query, id, delta)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update stock: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) IncrementMetric(ctx context.Context, id uuid.UUID, metric string) error {
	column, ok := metricColumns[metric]
	if !ok {
		return ErrUnknownMetric
	}
	_, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE products SET %s = %s + 1 WHERE id = $1`, column, column), id)
	if err != nil {
		return fmt.Errorf("increment %s: %w", metric, err)
	}
	return nil
}

// AddReview inserts the review and recomputes the aggregate rating in one
// transaction. The (product_id, user_id) unique index enforces one review
// per user.
func (r *pgProductRepo) AddReview(ctx context.Context, review *model.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	review.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO reviews (id, product_id, user_id, rating, title, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Title, review.Comment,
	).Scan(&review.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE products SET
			rating = (SELECT AVG(rating)::float8 FROM reviews WHERE product_id = $1),
			review_count = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
			updated_at = NOW()
		 WHERE id = $1`, review.ProductID)
	if err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgProductRepo) ListReviews(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, user_id, rating, title, comment, created_at
		 FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Title, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *pgProductRepo) DecrementStockTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET
			stock = stock - $2,
			status = CASE WHEN stock - $2 = 0 AND status = 'active' THEN 'out-of-stock' ELSE status END,
			purchases = purchases + $2,
			updated_at = NOW()
		 WHERE id = $1 AND stock >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Category, &p.Subcategory, &p.Tags,
		&p.Price, &p.OriginalPrice, &p.Currency, &p.Stock, &p.SKU, &p.Slug, &p.Status,
		&p.Images, &p.Variants,
		&p.Metrics.Views, &p.Metrics.CartAdds, &p.Metrics.WishlistAdds, &p.Metrics.Purchases,
		&p.Metrics.Rating, &p.Metrics.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
