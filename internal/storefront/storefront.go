// Package storefront implements the Bytecraft catalog and per-user carts.
//
// This is the domain behind the agent's shopping toolset: product search,
// product detail, and cart manipulation. The MCP surface in mcp.go exposes
// these operations to the agent.
package storefront

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors checked with errors.Is().
var (
	// ErrNotFound indicates the product or cart item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrOutOfStock indicates the product cannot be added to a cart.
	ErrOutOfStock = errors.New("out of stock")
)

// Product is a catalog entry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"priceCents"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"-"`
}

// Price renders the price for user-facing text.
func (p Product) Price() string {
	return fmt.Sprintf("$%d.%02d", p.PriceCents/100, p.PriceCents%100)
}

// CartItem is one product line in a user's cart.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart is a user's full cart with the computed total.
type Cart struct {
	Items      []CartItem `json:"items"`
	TotalCents int64      `json:"totalCents"`
}
