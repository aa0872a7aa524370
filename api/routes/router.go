package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/salessavvy-storefront/api/controllers"
	"github.com/angelmondragon/salessavvy-storefront/api/middleware"
	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// Store is everything the dev backend exposes over HTTP.
type Store interface {
	controllers.AccountService
	controllers.CartService
	controllers.OrderService
	controllers.CatalogService
	middleware.SessionChecker
}

// Counter backs the auth rate limits and is checked by /health.
type Counter interface {
	middleware.RateCounter
	Ping(ctx context.Context) error
}

// NewRouter mounts the storefront contract under /api.
func NewRouter(cfg *config.Config, logg *logger.Logger, store Store, counter Counter) http.Handler {
	dev := cfg.DevServer
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(dev.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy("login", dev.AuthRateWindow, dev.AuthRateIPLimit, dev.AuthRateIdentLimit)
	registerPolicy := middleware.NewAuthRateLimitPolicy("register", dev.AuthRateWindow, dev.AuthRateIPLimit, dev.AuthRateIdentLimit)
	resetPolicy := middleware.NewAuthRateLimitPolicy("forgot", 15*time.Minute, dev.AuthRateIPLimit, 3)

	authed := middleware.Auth(dev, store, logg)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health(cfg, counter, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(store, logg))
			r.Get("/{productId}", controllers.ProductDetail(store, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, counter, logg)).Post("/login", controllers.AuthLogin(store, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, counter, logg)).Post("/register", controllers.AuthRegister(store, logg))
			r.Post("/logout", controllers.AuthLogout(store, dev, logg))
			r.With(middleware.AuthRateLimit(resetPolicy, counter, logg)).Post("/forgot-password", controllers.AuthForgotPassword(store, logg))
			r.Post("/reset-password", controllers.AuthResetPassword(store, logg))
			r.Get("/validate-reset-token", controllers.AuthValidateResetToken(store, logg))
			r.With(authed).Get("/validate", controllers.AuthValidate(store, logg))
			r.With(authed).Get("/me", controllers.AuthMe(store, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authed)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/summary", controllers.CartSummary(store, logg))
				r.Post("/add", controllers.CartAdd(store, logg))
				r.Put("/update", controllers.CartUpdate(store, logg))
				r.Delete("/remove/{cartItemId}", controllers.CartRemove(store, logg))
				r.Delete("/clear", controllers.CartClear(store, logg))
			})

			r.Post("/checkout/process", controllers.CheckoutProcess(store, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/user/current", controllers.OrdersForCurrentUser(store, logg))
				r.Get("/{orderId}", controllers.OrderDetail(store, logg))
				r.Put("/{orderId}/cancel", controllers.OrderCancel(store, logg))
				r.With(middleware.RequireRole(enums.RoleAdmin, logg)).Put("/{orderId}/status", controllers.OrderUpdateStatus(store, logg))
			})
		})
	})

	return r
}
