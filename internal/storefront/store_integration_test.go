package storefront_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bytecraft/aira/internal/storefront"
	"github.com/bytecraft/aira/internal/testutil"
)

func setupStore(t *testing.T) (*storefront.Store, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	container, cleanup := testutil.SetupTestDB(t)
	store := storefront.New(container.Pool, testutil.DiscardLogger())
	if err := store.Seed(context.Background()); err != nil {
		cleanup()
		t.Fatalf("Seed() error: %v", err)
	}
	return store, cleanup
}

func TestSearchProducts(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("matches category", func(t *testing.T) {
		products, err := store.SearchProducts(ctx, "keyboards", 10)
		if err != nil {
			t.Fatalf("SearchProducts() error: %v", err)
		}
		if len(products) != 2 {
			t.Fatalf("got %d products, want 2", len(products))
		}
		for _, p := range products {
			if p.Category != "keyboards" {
				t.Errorf("product %s has category %q, want keyboards", p.ID, p.Category)
			}
		}
	})

	t.Run("matches description", func(t *testing.T) {
		products, err := store.SearchProducts(ctx, "ergonomic", 10)
		if err != nil {
			t.Fatalf("SearchProducts() error: %v", err)
		}
		if len(products) != 1 || products[0].ID != "ms-111" {
			t.Errorf("got %v, want single match ms-111", products)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		products, err := store.SearchProducts(ctx, "MONITOR", 10)
		if err != nil {
			t.Fatalf("SearchProducts() error: %v", err)
		}
		if len(products) == 0 {
			t.Error("expected matches for MONITOR")
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		products, err := store.SearchProducts(ctx, "Bytecraft", 3)
		if err != nil {
			t.Fatalf("SearchProducts() error: %v", err)
		}
		if len(products) != 3 {
			t.Errorf("got %d products, want 3", len(products))
		}
	})

	t.Run("no matches", func(t *testing.T) {
		products, err := store.SearchProducts(ctx, "zeppelin", 10)
		if err != nil {
			t.Fatalf("SearchProducts() error: %v", err)
		}
		if len(products) != 0 {
			t.Errorf("got %d products, want 0", len(products))
		}
	})
}

func TestProductLookup(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	p, err := store.Product(ctx, "hd-220")
	if err != nil {
		t.Fatalf("Product() error: %v", err)
	}
	if p.Name != "Bytecraft Studio Headset" {
		t.Errorf("got name %q", p.Name)
	}
	if p.Price() != "$179.99" {
		t.Errorf("got price %q, want $179.99", p.Price())
	}

	_, err = store.Product(ctx, "does-not-exist")
	if !errors.Is(err, storefront.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestCartLifecycle(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	const userID = "cart-user"

	// Empty cart before any additions.
	cart, err := store.Cart(ctx, userID)
	if err != nil {
		t.Fatalf("Cart() error: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalCents != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}

	if err := store.AddToCart(ctx, userID, "kb-301", 1); err != nil {
		t.Fatalf("AddToCart() error: %v", err)
	}
	if err := store.AddToCart(ctx, userID, "cb-010", 2); err != nil {
		t.Fatalf("AddToCart() error: %v", err)
	}
	// Adding the same product again accumulates quantity.
	if err := store.AddToCart(ctx, userID, "kb-301", 1); err != nil {
		t.Fatalf("AddToCart() error: %v", err)
	}

	cart, err = store.Cart(ctx, userID)
	if err != nil {
		t.Fatalf("Cart() error: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("got %d cart lines, want 2", len(cart.Items))
	}
	if cart.Items[0].Product.ID != "kb-301" || cart.Items[0].Quantity != 2 {
		t.Errorf("first line = %s x%d, want kb-301 x2", cart.Items[0].Product.ID, cart.Items[0].Quantity)
	}
	wantTotal := int64(2*12999 + 2*1499)
	if cart.TotalCents != wantTotal {
		t.Errorf("TotalCents = %d, want %d", cart.TotalCents, wantTotal)
	}

	if err := store.RemoveFromCart(ctx, userID, "kb-301"); err != nil {
		t.Fatalf("RemoveFromCart() error: %v", err)
	}
	cart, err = store.Cart(ctx, userID)
	if err != nil {
		t.Fatalf("Cart() error: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Product.ID != "cb-010" {
		t.Errorf("unexpected cart after removal: %+v", cart.Items)
	}
}

func TestAddToCartErrors(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.AddToCart(ctx, "u1", "no-such-product", 1); !errors.Is(err, storefront.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}

	// ms-111 is seeded out of stock.
	if err := store.AddToCart(ctx, "u1", "ms-111", 1); !errors.Is(err, storefront.ErrOutOfStock) {
		t.Errorf("got error %v, want ErrOutOfStock", err)
	}
}

func TestRemoveFromCartMissingLine(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	err := store.RemoveFromCart(context.Background(), "u1", "kb-301")
	if !errors.Is(err, storefront.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.AddToCart(ctx, "alice", "kb-301", 1); err != nil {
		t.Fatalf("AddToCart() error: %v", err)
	}
	if err := store.AddToCart(ctx, "bob", "ms-110", 1); err != nil {
		t.Fatalf("AddToCart() error: %v", err)
	}

	aliceCart, err := store.Cart(ctx, "alice")
	if err != nil {
		t.Fatalf("Cart() error: %v", err)
	}
	if len(aliceCart.Items) != 1 || aliceCart.Items[0].Product.ID != "kb-301" {
		t.Errorf("alice cart = %+v", aliceCart.Items)
	}

	bobCart, err := store.Cart(ctx, "bob")
	if err != nil {
		t.Fatalf("Cart() error: %v", err)
	}
	if len(bobCart.Items) != 1 || bobCart.Items[0].Product.ID != "ms-110" {
		t.Errorf("bob cart = %+v", bobCart.Items)
	}
}
