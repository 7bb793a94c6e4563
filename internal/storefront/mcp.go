package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the storefront operations as MCP tools. The agent process
// spawns it over stdio and calls the tools during the reasoning loop.
type Server struct {
	mcpServer *mcp.Server
	store     *Store
	logger    *slog.Logger
}

// ServerConfig holds MCP server configuration.
type ServerConfig struct {
	Name    string
	Version string
	Store   *Store
	Logger  *slog.Logger
}

// NewServer creates an MCP server with all storefront tools registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		store:  cfg.Store,
		logger: cfg.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the given transport. Blocking; returns when
// the transport closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("mcp server starting")
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerSearchProducts(); err != nil {
		return err
	}
	if err := s.registerGetProduct(); err != nil {
		return err
	}
	if err := s.registerAddToCart(); err != nil {
		return err
	}
	if err := s.registerRemoveFromCart(); err != nil {
		return err
	}
	return s.registerViewCart()
}

// domainError distinguishes expected storefront failures (reported to the
// model as tool errors so it can recover) from system failures (propagated
// to the MCP layer).
func domainError(err error) (*mcp.CallToolResult, any, error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrOutOfStock) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
			IsError: true,
		}, nil, nil
	}
	return nil, nil, err
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
	}, nil, nil
}

// SearchProductsInput defines the input schema for the searchProducts tool.
type SearchProductsInput struct {
	Query string `json:"query" jsonschema:"Search text matched against product name, description, and category"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of products to return (default 10)"`
}

func (s *Server) registerSearchProducts() error {
	inputSchema, err := jsonschema.For[SearchProductsInput](nil)
	if err != nil {
		return fmt.Errorf("searchProducts schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "searchProducts",
		Description: "Search the Bytecraft catalog by name, description, or category. Returns matching products with their IDs and prices.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in SearchProductsInput) (*mcp.CallToolResult, any, error) {
		products, err := s.store.SearchProducts(ctx, in.Query, in.Limit)
		if err != nil {
			return nil, nil, err
		}
		if len(products) == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "No products matched the query."}},
			}, nil, nil
		}
		return textResult(products)
	})

	return nil
}

// GetProductInput defines the input schema for the getProduct tool.
type GetProductInput struct {
	ProductID string `json:"productId" jsonschema:"The product ID to look up"`
}

func (s *Server) registerGetProduct() error {
	inputSchema, err := jsonschema.For[GetProductInput](nil)
	if err != nil {
		return fmt.Errorf("getProduct schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "getProduct",
		Description: "Get full details for one product by its ID, including price and stock status.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in GetProductInput) (*mcp.CallToolResult, any, error) {
		p, err := s.store.Product(ctx, in.ProductID)
		if err != nil {
			return domainError(err)
		}
		return textResult(p)
	})

	return nil
}

// AddToCartInput defines the input schema for the addToCart tool.
type AddToCartInput struct {
	UserID    string `json:"userId" jsonschema:"The ID of the user whose cart to modify"`
	ProductID string `json:"productId" jsonschema:"The product ID to add"`
	Quantity  int    `json:"quantity,omitempty" jsonschema:"Number of units to add (default 1)"`
}

func (s *Server) registerAddToCart() error {
	inputSchema, err := jsonschema.For[AddToCartInput](nil)
	if err != nil {
		return fmt.Errorf("addToCart schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "addToCart",
		Description: "Add a product to the user's cart. Fails if the product does not exist or is out of stock.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in AddToCartInput) (*mcp.CallToolResult, any, error) {
		if err := s.store.AddToCart(ctx, in.UserID, in.ProductID, in.Quantity); err != nil {
			return domainError(err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Added %s to the cart.", in.ProductID)}},
		}, nil, nil
	})

	return nil
}

// RemoveFromCartInput defines the input schema for the removeFromCart tool.
type RemoveFromCartInput struct {
	UserID    string `json:"userId" jsonschema:"The ID of the user whose cart to modify"`
	ProductID string `json:"productId" jsonschema:"The product ID to remove"`
}

func (s *Server) registerRemoveFromCart() error {
	inputSchema, err := jsonschema.For[RemoveFromCartInput](nil)
	if err != nil {
		return fmt.Errorf("removeFromCart schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "removeFromCart",
		Description: "Remove a product from the user's cart.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in RemoveFromCartInput) (*mcp.CallToolResult, any, error) {
		if err := s.store.RemoveFromCart(ctx, in.UserID, in.ProductID); err != nil {
			return domainError(err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Removed %s from the cart.", in.ProductID)}},
		}, nil, nil
	})

	return nil
}

// ViewCartInput defines the input schema for the viewCart tool.
type ViewCartInput struct {
	UserID string `json:"userId" jsonschema:"The ID of the user whose cart to read"`
}

func (s *Server) registerViewCart() error {
	inputSchema, err := jsonschema.For[ViewCartInput](nil)
	if err != nil {
		return fmt.Errorf("viewCart schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "viewCart",
		Description: "List the contents of the user's cart with per-line quantities and the total price.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in ViewCartInput) (*mcp.CallToolResult, any, error) {
		cart, err := s.store.Cart(ctx, in.UserID)
		if err != nil {
			return nil, nil, err
		}
		if len(cart.Items) == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "The cart is empty."}},
			}, nil, nil
		}
		return textResult(cart)
	})

	return nil
}
