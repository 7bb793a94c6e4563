package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier defines the database operations Store depends on.
// Following Go best practices: interfaces are defined by the consumer, not
// the provider. *pgxpool.Pool satisfies it in production.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages the catalog and carts with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	q      Querier
	logger *slog.Logger
}

// New creates a Store.
func New(q Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, logger: logger}
}

const productColumns = `id, name, description, category, price_cents, in_stock, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.InStock, &p.CreatedAt)
	return p, err
}

// SearchProducts returns catalog entries matching the query against name,
// description, and category. Case-insensitive substring match, newest first.
func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.q.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE name ILIKE '%' || $1 || '%'
		    OR description ILIKE '%' || $1 || '%'
		    OR category ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC
		 LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	s.logger.Debug("product search", "query", query, "results", len(products))
	return products, nil
}

// Product returns one catalog entry by ID.
func (s *Store) Product(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return Product{}, fmt.Errorf("getting product %s: %w", id, err)
	}
	return p, nil
}

// AddProduct inserts or updates a catalog entry. Used by seeding.
func (s *Store) AddProduct(ctx context.Context, p Product) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO products (id, name, description, category, price_cents, in_stock)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     category = EXCLUDED.category,
		     price_cents = EXCLUDED.price_cents,
		     in_stock = EXCLUDED.in_stock`,
		p.ID, p.Name, p.Description, p.Category, p.PriceCents, p.InStock)
	if err != nil {
		return fmt.Errorf("upserting product %s: %w", p.ID, err)
	}
	return nil
}

// AddToCart puts quantity units of a product into the user's cart, adding
// to any existing line.
func (s *Store) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	p, err := s.Product(ctx, productID)
	if err != nil {
		return err
	}
	if !p.InStock {
		return fmt.Errorf("%w: product %s", ErrOutOfStock, productID)
	}

	_, err = s.q.Exec(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET
		     quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("adding to cart: %w", err)
	}

	s.logger.Debug("added to cart", "user_id", userID, "product_id", productID, "quantity", quantity)
	return nil
}

// RemoveFromCart deletes a product line from the user's cart.
func (s *Store) RemoveFromCart(ctx context.Context, userID, productID string) error {
	tag, err := s.q.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("removing from cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s not in cart", ErrNotFound, productID)
	}
	return nil
}

// Cart returns the user's cart with the computed total.
func (s *Store) Cart(ctx context.Context, userID string) (Cart, error) {
	rows, err := s.q.Query(ctx,
		`SELECT p.id, p.name, p.description, p.category, p.price_cents, p.in_stock, p.created_at, c.quantity
		 FROM cart_items c
		 JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = $1
		 ORDER BY c.added_at ASC`, userID)
	if err != nil {
		return Cart{}, fmt.Errorf("reading cart: %w", err)
	}
	defer rows.Close()

	var cart Cart
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(&item.Product.ID, &item.Product.Name, &item.Product.Description,
			&item.Product.Category, &item.Product.PriceCents, &item.Product.InStock,
			&item.Product.CreatedAt, &item.Quantity); err != nil {
			return Cart{}, fmt.Errorf("scanning cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
		cart.TotalCents += item.Product.PriceCents * int64(item.Quantity)
	}
	if err := rows.Err(); err != nil {
		return Cart{}, fmt.Errorf("iterating cart: %w", err)
	}

	return cart, nil
}
