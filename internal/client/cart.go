package client

import (
	"context"
	"net/http"

	"carrethree/internal/cart"
	"carrethree/internal/domain"
	"carrethree/internal/transport"

	"github.com/google/uuid"
)

func linesOf(resp transport.CartResponse) []cart.Line {
	lines := make([]cart.Line, 0, len(resp.Items))
	for _, item := range resp.Items {
		line := cart.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Available: item.Available && item.Product != nil,
			State:     item.State,
		}
		if item.Product != nil {
			line.Product = cart.ViewOf(item.Product)
		}
		lines = append(lines, line)
	}
	return lines
}

func (c *Client) cartCall(ctx context.Context, method, path, token string, payload interface{}) ([]cart.Line, error) {
	var resp transport.CartResponse
	if err := c.do(ctx, method, path, "", token, payload, &resp); err != nil {
		return nil, err
	}
	return linesOf(resp), nil
}

// Cart fetches the cart of the user behind token
func (c *Client) Cart(ctx context.Context, token string) ([]cart.Line, error) {
	return c.cartCall(ctx, http.MethodGet, "/api/cart", token, nil)
}

// Add adds quantity units of a product to the cart
func (c *Client) Add(ctx context.Context, token string, productID uuid.UUID, quantity int) ([]cart.Line, error) {
	req := transport.CartLineRequest{ProductID: productID, Quantity: quantity}
	return c.cartCall(ctx, http.MethodPost, "/api/cart/add", token, req)
}

// Update sets the quantity of a cart line
func (c *Client) Update(ctx context.Context, token string, productID uuid.UUID, quantity int) ([]cart.Line, error) {
	req := transport.UpdateCartRequest{ProductID: productID, Quantity: quantity}
	return c.cartCall(ctx, http.MethodPut, "/api/cart/update", token, req)
}

// Remove deletes a cart line
func (c *Client) Remove(ctx context.Context, token string, productID uuid.UUID) ([]cart.Line, error) {
	return c.cartCall(ctx, http.MethodDelete, "/api/cart/remove/"+productID.String(), token, nil)
}

// Merge folds guest lines into the cart. The server ignores a mergeID it has
// already applied.
func (c *Client) Merge(ctx context.Context, token string, mergeID uuid.UUID, lines []domain.CartLine) ([]cart.Line, error) {
	req := transport.MergeCartRequest{MergeID: mergeID, CartItems: make([]transport.CartLineRequest, 0, len(lines))}
	for _, line := range lines {
		req.CartItems = append(req.CartItems, transport.CartLineRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return c.cartCall(ctx, http.MethodPost, "/api/cart/merge", token, req)
}

// Clear empties the cart
func (c *Client) Clear(ctx context.Context, token string) ([]cart.Line, error) {
	return c.cartCall(ctx, http.MethodDelete, "/api/cart/clear", token, nil)
}
