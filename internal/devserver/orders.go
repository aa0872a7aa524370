package devserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is a priced snapshot of one purchased line.
type OrderItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	ImageURL    string          `json:"productImageUrl,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is the stored purchase.
type Order struct {
	OrderID         string              `json:"orderId"`
	UserID          int64               `json:"userId"`
	Items           []OrderItem         `json:"orderItems"`
	ShippingAddress string              `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	Status          enums.OrderStatus   `json:"status"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func (o *Order) clone() *Order {
	out := *o
	out.Items = append([]OrderItem(nil), o.Items...)
	return &out
}

// CheckoutInput is the server-side view of a checkout submission. Payment
// details are accepted but never charged.
type CheckoutInput struct {
	ShippingAddress string
	PaymentMethod   enums.PaymentMethod
}

// Checkout turns the user's cart into an order, decrements stock and empties
// the cart. Non-COD payments are recorded as completed.
func (s *Service) Checkout(ctx context.Context, userID int64, in CheckoutInput) (*Order, error) {
	address := strings.TrimSpace(in.ShippingAddress)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Shipping address is required").
			WithDetails(map[string]string{"shippingAddress": "Shipping address is required"})
	}
	if !in.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Unsupported payment method").
			WithDetails(map[string]string{"paymentMethod": "Unsupported payment method"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[userID]
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Cart is empty")
	}

	total := decimal.Zero
	for _, line := range lines {
		product, ok := s.products[line.productID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Product %d is no longer available", line.productID))
		}
		if product.Stock < line.quantity {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Insufficient stock for: "+product.Name)
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.quantity))))
	}

	order := &Order{
		OrderID:         newOrderID(),
		UserID:          userID,
		Items:           make([]OrderItem, 0, len(lines)),
		ShippingAddress: address,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusCompleted,
		Status:          enums.OrderStatusPending,
		TotalAmount:     total,
		CreatedAt:       s.now().UTC(),
	}
	if in.PaymentMethod == enums.PaymentMethodCOD {
		order.PaymentStatus = enums.PaymentStatusPending
	}
	for _, line := range lines {
		product := s.products[line.productID]
		s.nextOrderItemID++
		order.Items = append(order.Items, OrderItem{
			ID:          s.nextOrderItemID,
			ProductID:   product.ID,
			ProductName: product.Name,
			ImageURL:    product.ImageURL,
			Price:       product.Price,
			Quantity:    line.quantity,
			Subtotal:    product.Price.Mul(decimal.NewFromInt(int64(line.quantity))),
		})
		product.Stock -= line.quantity
	}

	s.orders[order.OrderID] = order
	s.orderSeq = append(s.orderSeq, order.OrderID)
	delete(s.carts, userID)
	return order.clone(), nil
}

// OrdersForUser lists the user's orders, newest first.
func (s *Service) OrdersForUser(ctx context.Context, userID int64) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Order{}
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		o := s.orders[s.orderSeq[i]]
		if o.UserID == userID {
			out = append(out, *o.clone())
		}
	}
	return out
}

// Order returns one order. Only its owner or an admin may read it.
func (s *Service) Order(ctx context.Context, userID int64, role enums.Role, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.ownedLocked(userID, role, orderID)
	if err != nil {
		return nil, err
	}
	return o.clone(), nil
}

// CancelOrder cancels a PENDING or CONFIRMED order owned by userID.
func (s *Service) CancelOrder(ctx context.Context, userID int64, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.ownedLocked(userID, enums.RoleCustomer, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order cannot be cancelled at this stage")
	}
	o.Status = enums.OrderStatusCancelled
	return o.clone(), nil
}

// UpdateOrderStatus moves any order to status. Callers gate this to admins.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid order status").
			WithDetails(map[string]string{"status": "is invalid"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, orderNotFound(orderID)
	}
	o.Status = status
	return o.clone(), nil
}

func (s *Service) ownedLocked(userID int64, role enums.Role, orderID string) (*Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, orderNotFound(orderID)
	}
	if o.UserID != userID && !role.Is(enums.RoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
	}
	return o, nil
}

func orderNotFound(orderID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Order not found with ID: "+orderID)
}

func newOrderID() string {
	return "ORD" + strings.ToUpper(uuid.NewString()[:8])
}
