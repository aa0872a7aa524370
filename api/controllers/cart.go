package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/salessavvy-storefront/api/middleware"
	"github.com/angelmondragon/salessavvy-storefront/api/responses"
	"github.com/angelmondragon/salessavvy-storefront/api/validators"
	"github.com/angelmondragon/salessavvy-storefront/internal/devserver"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// CartService is the per-user cart surface behind /cart.
type CartService interface {
	Cart(ctx context.Context, userID int64) devserver.CartSummary
	AddToCart(ctx context.Context, userID, productID int64, quantity int) (devserver.CartLine, error)
	UpdateCartItem(ctx context.Context, userID, cartItemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, cartItemID int64) error
	ClearCart(ctx context.Context, userID int64) int
}

type addToCartRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  *int  `json:"quantity"`
}

type updateCartRequest struct {
	CartItemID int64 `json:"cartItemId" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"gte=0"`
}

func CartSummary(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary := svc.Cart(r.Context(), middleware.UserIDFromContext(r.Context()))
		responses.WriteSuccess(w, responses.Body{
			"cartItems":  summary.Items,
			"totalItems": summary.TotalItems,
			"totalValue": summary.TotalValue,
		})
	}
}

// CartAdd defaults a missing quantity to 1.
func CartAdd(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addToCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := 1
		if body.Quantity != nil {
			quantity = *body.Quantity
		}

		line, err := svc.AddToCart(r.Context(), middleware.UserIDFromContext(r.Context()), body.ProductID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{
			"message":  "Item added to cart successfully",
			"cartItem": line,
		})
	}
}

func CartUpdate(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateCartItem(r.Context(), middleware.UserIDFromContext(r.Context()), body.CartItemID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{"message": "Cart item updated successfully"})
	}
}

func CartRemove(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartItemID, err := validators.PathInt64(r, "cartItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveCartItem(r.Context(), middleware.UserIDFromContext(r.Context()), cartItemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{"message": "Item removed from cart successfully"})
	}
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed := svc.ClearCart(r.Context(), middleware.UserIDFromContext(r.Context()))
		responses.WriteSuccess(w, responses.Body{
			"message": "Cart cleared successfully",
			"removed": removed,
		})
	}
}
