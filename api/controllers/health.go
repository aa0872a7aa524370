package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/salessavvy-storefront/api/responses"
	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// Pinger is an optional dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness plus the state of the rate limit store when one
// is wired.
func Health(cfg *config.Config, counters Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SalesSavvy-Env", cfg.App.Env)
		if counters != nil {
			if err := counters.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, responses.Body{"status": "healthy"})
	}
}
