package backend

import (
	"context"
	"net/http"
)

// Ping calls GET /health.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, call{endpoint: "health", method: http.MethodGet, path: "/health"})
	return err
}
