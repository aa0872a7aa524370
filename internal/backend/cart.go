package backend

import (
	"context"
	"fmt"
	"net/http"
)

type mutationWire struct {
	envelope
}

func (c *Client) mutate(ctx context.Context, rc call, fallback string) (string, error) {
	var wire mutationWire
	if err := c.doJSON(ctx, rc, &wire); err != nil {
		return "", err
	}
	if wire.failed() {
		return "", businessError(wire.envelope, fallback)
	}
	return wire.Message, nil
}

// CartSummary calls GET /cart/summary.
func (c *Client) CartSummary(ctx context.Context) (*Cart, error) {
	var wire cartSummaryWire
	if err := c.doJSON(ctx, call{endpoint: "cart.summary", method: http.MethodGet, path: "/cart/summary"}, &wire); err != nil {
		return nil, err
	}
	return wire.normalize(), nil
}

// AddToCart calls POST /cart/add.
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) (string, error) {
	body := map[string]any{"productId": productID, "quantity": quantity}
	return c.mutate(ctx, call{endpoint: "cart.add", method: http.MethodPost, path: "/cart/add", body: body}, "Failed to add item to cart")
}

// UpdateCartItem calls PUT /cart/update.
func (c *Client) UpdateCartItem(ctx context.Context, cartItemID int64, quantity int) (string, error) {
	body := map[string]any{"cartItemId": cartItemID, "quantity": quantity}
	return c.mutate(ctx, call{endpoint: "cart.update", method: http.MethodPut, path: "/cart/update", body: body}, "Failed to update cart item")
}

// RemoveCartItem calls DELETE /cart/remove/{id}.
func (c *Client) RemoveCartItem(ctx context.Context, cartItemID int64) (string, error) {
	path := fmt.Sprintf("/cart/remove/%d", cartItemID)
	return c.mutate(ctx, call{endpoint: "cart.remove", method: http.MethodDelete, path: path}, "Failed to remove item from cart")
}

// ClearCart calls DELETE /cart/clear.
func (c *Client) ClearCart(ctx context.Context) (string, error) {
	return c.mutate(ctx, call{endpoint: "cart.clear", method: http.MethodDelete, path: "/cart/clear"}, "Failed to clear cart")
}
