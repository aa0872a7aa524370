package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/salessavvy-storefront/api/middleware"
	"github.com/angelmondragon/salessavvy-storefront/api/responses"
	"github.com/angelmondragon/salessavvy-storefront/api/validators"
	"github.com/angelmondragon/salessavvy-storefront/internal/devserver"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// OrderService covers checkout and the /orders endpoints.
type OrderService interface {
	Checkout(ctx context.Context, userID int64, in devserver.CheckoutInput) (*devserver.Order, error)
	OrdersForUser(ctx context.Context, userID int64) []devserver.Order
	Order(ctx context.Context, userID int64, role enums.Role, orderID string) (*devserver.Order, error)
	CancelOrder(ctx context.Context, userID int64, orderID string) (*devserver.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*devserver.Order, error)
}

type paymentDetails struct {
	CardNumber   string `json:"cardNumber"`
	ExpiryDate   string `json:"expiryDate"`
	CVV          string `json:"cvv"`
	NameOnCard   string `json:"nameOnCard"`
	UPIID        string `json:"upiId"`
	WalletType   string `json:"walletType"`
	MobileNumber string `json:"mobileNumber"`
}

type checkoutRequest struct {
	ShippingAddress string          `json:"shippingAddress" validate:"required,max=500"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
	PaymentDetails  *paymentDetails `json:"paymentDetails"`
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CheckoutProcess places an order from the caller's cart. Payment details
// are accepted and discarded; no payment is taken.
func CheckoutProcess(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Unsupported payment method").
				WithDetails(map[string]string{"paymentMethod": "Unsupported payment method"}))
			return
		}

		order, err := svc.Checkout(r.Context(), middleware.UserIDFromContext(r.Context()), devserver.CheckoutInput{
			ShippingAddress: validators.SanitizeString(body.ShippingAddress, 500),
			PaymentMethod:   method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{
			"message": "Order placed successfully",
			"order":   order,
		})
	}
}

// OrdersForCurrentUser answers with a bare array.
func OrdersForCurrentUser(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders := svc.OrdersForUser(r.Context(), middleware.UserIDFromContext(r.Context()))
		responses.WriteJSON(w, http.StatusOK, orders)
	}
}

// OrderDetail answers with the bare order object.
func OrderDetail(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathString(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		order, err := svc.Order(ctx, middleware.UserIDFromContext(ctx), middleware.RoleFromContext(ctx), orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, order)
	}
}

// OrderCancel answers with the updated bare order.
func OrderCancel(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathString(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CancelOrder(r.Context(), middleware.UserIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, order)
	}
}

// OrderUpdateStatus is mounted behind middleware.RequireRole(ADMIN).
func OrderUpdateStatus(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathString(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid order status").
				WithDetails(map[string]string{"status": "is invalid"}))
			return
		}
		order, err := svc.UpdateOrderStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, responses.Body{
			"message": "Order status updated",
			"order":   order,
		})
	}
}
