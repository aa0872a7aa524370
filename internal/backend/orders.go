package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
)

// Checkout calls POST /checkout/process. Both an explicit success flag and
// an order payload are required; anything less is a failure.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	var wire struct {
		envelope
		Order *orderWire `json:"order"`
	}
	if err := c.doJSON(ctx, call{endpoint: "checkout.process", method: http.MethodPost, path: "/checkout/process", body: req}, &wire); err != nil {
		return nil, err
	}
	if wire.Success == nil || !*wire.Success {
		return nil, businessError(wire.envelope, "Order creation failed")
	}
	order := wire.Order.normalize()
	if order == nil || order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "Order creation failed: response missing order")
	}
	return order, nil
}

// ListOrders calls GET /orders/user/current. Unexpected shapes degrade to
// an empty list; transport and status errors are still returned.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	body, err := c.do(ctx, call{endpoint: "orders.list", method: http.MethodGet, path: "/orders/user/current"})
	if err != nil {
		return nil, err
	}
	return decodeOrderList(body), nil
}

// GetOrder calls GET /orders/{id}. A missing order is CodeNotFound.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	id, err := orderPath(orderID)
	if err != nil {
		return nil, err
	}
	var wire orderEnvelope
	if err := c.doJSON(ctx, call{endpoint: "orders.get", method: http.MethodGet, path: "/orders/" + id}, &wire); err != nil {
		return nil, err
	}
	return wire.order(orderID)
}

// CancelOrder calls PUT /orders/{id}/cancel. A bare acknowledgement yields
// a nil order and a nil error; callers refetch.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	id, err := orderPath(orderID)
	if err != nil {
		return nil, err
	}
	var wire orderEnvelope
	if err := c.doJSON(ctx, call{endpoint: "orders.cancel", method: http.MethodPut, path: fmt.Sprintf("/orders/%s/cancel", id)}, &wire); err != nil {
		return nil, err
	}
	if wire.failed() {
		return nil, businessError(wire.envelope, "Failed to cancel order")
	}
	return wire.acknowledged(orderID), nil
}

// UpdateOrderStatus calls PUT /orders/{id}/status (admin only). As with
// CancelOrder, a bare acknowledgement yields a nil order.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*Order, error) {
	id, err := orderPath(orderID)
	if err != nil {
		return nil, err
	}
	var wire orderEnvelope
	body := map[string]string{"status": status.String()}
	if err := c.doJSON(ctx, call{endpoint: "orders.update_status", method: http.MethodPut, path: fmt.Sprintf("/orders/%s/status", id), body: body}, &wire); err != nil {
		return nil, err
	}
	if wire.failed() {
		return nil, businessError(wire.envelope, "Failed to update order status")
	}
	return wire.acknowledged(orderID), nil
}

// orderEnvelope accepts either a bare order or {order: {...}}.
type orderEnvelope struct {
	envelope
	orderWire
	Order *orderWire `json:"order"`
}

func (w *orderEnvelope) order(requested string) (*Order, error) {
	if w.Order != nil {
		if o := w.Order.normalize(); o.ID != "" {
			return o, nil
		}
	}
	if o := w.orderWire.normalize(); o.ID != "" {
		return o, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", requested))
}

// acknowledged returns the order carried by a mutation response, or nil
// when the backend only confirmed success.
func (w *orderEnvelope) acknowledged(requested string) *Order {
	order, err := w.order(requested)
	if err != nil {
		return nil
	}
	return order
}

func orderPath(orderID string) (string, error) {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return url.PathEscape(trimmed), nil
}
