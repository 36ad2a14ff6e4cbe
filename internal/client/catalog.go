package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"carrethree/internal/cart"
	"carrethree/internal/domain"

	"github.com/google/uuid"
)

// ListProducts lists catalog products matching filter
func (c *Client) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query := url.Values{}
	if filter.Keyword != "" {
		query.Set("keyword", filter.Keyword)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}

	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", query.Encode(), "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Categories lists the distinct product categories
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.do(ctx, http.MethodGet, "/api/products/categories", "", "", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetProduct fetches one product
func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+id.String(), "", "", nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Lookup implements cart.Catalog
func (c *Client) Lookup(ctx context.Context, id uuid.UUID) (cart.ProductView, bool, error) {
	product, err := c.GetProduct(ctx, id)
	if errors.Is(err, cart.ErrNotFound) {
		return cart.ProductView{}, false, nil
	}
	if err != nil {
		return cart.ProductView{}, false, err
	}
	return cart.ViewOf(product), true, nil
}
