package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// Every endpoint decodes into a *Wire struct that tolerates the shapes the
// backend has been seen to send, then normalizes into one canonical type.

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// failed reports an explicit success=false.
func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) text(fallback string) string {
	return firstString(e.Error, e.Message, fallback)
}

type identityWire struct {
	UserID    flexInt `json:"userId"`
	ID        flexInt `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	Avatar    string  `json:"avatar"`
}

func (w *identityWire) normalize(fallbackRole string) *Identity {
	if w == nil {
		return nil
	}
	role, err := enums.ParseRole(firstString(w.Role, fallbackRole))
	if err != nil {
		role = enums.RoleCustomer
	}
	return &Identity{
		UserID:    firstInt(w.UserID, w.ID),
		Username:  w.Username,
		Email:     w.Email,
		Role:      role,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Phone:     w.Phone,
		Address:   w.Address,
		Avatar:    w.Avatar,
	}
}

type productWire struct {
	ID        flexInt          `json:"id"`
	ProductID flexInt          `json:"productId"`
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	ImageURL  string           `json:"imageUrl"`
}

type lineItemWire struct {
	ID          flexInt          `json:"id"`
	CartItemID  flexInt          `json:"cartItemId"`
	Product     *productWire     `json:"product"`
	ProductID   flexInt          `json:"productId"`
	ProductName string           `json:"productName"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    string           `json:"imageUrl"`
	Quantity    int              `json:"quantity"`
	Subtotal    *decimal.Decimal `json:"subtotal"`
}

func (w lineItemWire) normalize() LineItem {
	product := Product{
		ID:       int64(w.ProductID),
		Name:     w.ProductName,
		ImageURL: w.ImageURL,
	}
	price, _ := firstDecimal(w.Price)
	if w.Product != nil {
		product.ID = firstInt(w.Product.ID, w.Product.ProductID, w.ProductID)
		product.Name = firstString(w.Product.Name, w.ProductName)
		product.ImageURL = firstString(w.Product.ImageURL, w.ImageURL)
		price, _ = firstDecimal(w.Product.Price, w.Price)
	}
	product.Price = price

	subtotal, ok := firstDecimal(w.Subtotal)
	if !ok {
		subtotal = price.Mul(decimal.NewFromInt(int64(w.Quantity)))
	}
	return LineItem{
		ID:       firstInt(w.ID, w.CartItemID),
		Product:  product,
		Quantity: w.Quantity,
		Subtotal: subtotal,
	}
}

type cartSummaryWire struct {
	CartItems  []lineItemWire   `json:"cartItems"`
	Items      []lineItemWire   `json:"items"`
	TotalValue *decimal.Decimal `json:"totalValue"`
	Total      *decimal.Decimal `json:"total"`
	TotalItems *int             `json:"totalItems"`
}

// normalize folds cartItems|items, totalValue|total and an explicit or
// summed item count into the canonical Cart.
func (w cartSummaryWire) normalize() *Cart {
	raw := w.CartItems
	if raw == nil {
		raw = w.Items
	}
	cart := &Cart{Items: make([]LineItem, 0, len(raw))}
	quantities := 0
	for _, item := range raw {
		line := item.normalize()
		quantities += line.Quantity
		cart.Items = append(cart.Items, line)
	}
	cart.TotalValue, _ = firstDecimal(w.TotalValue, w.Total)
	if w.TotalItems != nil {
		cart.TotalItems = *w.TotalItems
	} else {
		cart.TotalItems = quantities
	}
	return cart
}

type orderItemWire struct {
	ID          flexInt          `json:"id"`
	ProductID   flexInt          `json:"productId"`
	ProductName string           `json:"productName"`
	ImageURL    string           `json:"productImageUrl"`
	Product     *productWire     `json:"product"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    int              `json:"quantity"`
	Subtotal    *decimal.Decimal `json:"subtotal"`
}

type orderWire struct {
	OrderID         flexString       `json:"orderId"`
	ID              flexString       `json:"id"`
	OrderItems      []orderItemWire  `json:"orderItems"`
	Items           []orderItemWire  `json:"items"`
	ShippingAddress string           `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
	PaymentStatus   string           `json:"paymentStatus"`
	Status          string           `json:"status"`
	TotalAmount     *decimal.Decimal `json:"totalAmount"`
	Total           *decimal.Decimal `json:"total"`
	CreatedAt       flexTime         `json:"createdAt"`
}

func (w *orderWire) normalize() *Order {
	if w == nil {
		return nil
	}
	raw := w.OrderItems
	if raw == nil {
		raw = w.Items
	}
	items := make([]OrderItem, 0, len(raw))
	for _, it := range raw {
		item := OrderItem{
			ID:          int64(it.ID),
			ProductID:   int64(it.ProductID),
			ProductName: it.ProductName,
			ImageURL:    it.ImageURL,
			Quantity:    it.Quantity,
		}
		item.Price, _ = firstDecimal(it.Price)
		if it.Product != nil {
			item.ProductID = firstInt(it.ProductID, it.Product.ID, it.Product.ProductID)
			item.ProductName = firstString(it.ProductName, it.Product.Name)
			item.ImageURL = firstString(it.ImageURL, it.Product.ImageURL)
			item.Price, _ = firstDecimal(it.Price, it.Product.Price)
		}
		var ok bool
		if item.Subtotal, ok = firstDecimal(it.Subtotal); !ok {
			item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		}
		items = append(items, item)
	}

	order := &Order{
		ID:              firstString(string(w.OrderID), string(w.ID)),
		Items:           items,
		ShippingAddress: w.ShippingAddress,
		CreatedAt:       time.Time(w.CreatedAt),
	}
	order.TotalAmount, _ = firstDecimal(w.TotalAmount, w.Total)
	if m, err := enums.ParsePaymentMethod(w.PaymentMethod); err == nil {
		order.PaymentMethod = m
	}
	if s, err := enums.ParsePaymentStatus(w.PaymentStatus); err == nil {
		order.PaymentStatus = s
	}
	if s, err := enums.ParseOrderStatus(w.Status); err == nil {
		order.Status = s
	}
	return order
}

// decodeOrderList accepts a bare array, {orders: [...]} or {data: [...]}.
// Anything else yields an empty list.
func decodeOrderList(body []byte) []Order {
	body = bytes.TrimSpace(body)
	var raw []orderWire
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &raw); err != nil {
			return []Order{}
		}
	} else {
		var wrapped struct {
			Orders []orderWire `json:"orders"`
			Data   []orderWire `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return []Order{}
		}
		raw = wrapped.Orders
		if raw == nil {
			raw = wrapped.Data
		}
	}

	orders := make([]Order, 0, len(raw))
	for i := range raw {
		orders = append(orders, *raw[i].normalize())
	}
	return orders
}
