package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// Identity is the authenticated user's profile as known to the client.
type Identity struct {
	UserID    int64      `json:"userId"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role.Is(enums.RoleAdmin)
}

// Product is the catalogue reference embedded in line items.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// LineItem is one product+quantity entry in the cart.
type LineItem struct {
	ID       int64           `json:"id"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Cart is the canonical cart summary every response shape is normalized into.
type Cart struct {
	Items      []LineItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// OrderItem is one line of an order snapshot.
type OrderItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	ImageURL    string          `json:"productImageUrl,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Order is the immutable snapshot of a completed checkout.
type Order struct {
	ID              string              `json:"orderId"`
	Items           []OrderItem         `json:"orderItems"`
	ShippingAddress string              `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	Status          enums.OrderStatus   `json:"status"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// PaymentDetails carries the method-specific fields of a checkout.
type PaymentDetails struct {
	CardNumber   string `json:"cardNumber,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
	CVV          string `json:"cvv,omitempty"`
	NameOnCard   string `json:"nameOnCard,omitempty"`
	UPIID        string `json:"upiId,omitempty"`
	WalletType   string `json:"walletType,omitempty"`
	MobileNumber string `json:"mobileNumber,omitempty"`
}

// CheckoutRequest is the body of POST /checkout/process.
type CheckoutRequest struct {
	ShippingAddress string              `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	PaymentDetails  PaymentDetails      `json:"paymentDetails"`
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = flexInt(v)
	return nil
}

// flexString accepts a JSON string or a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// flexTime accepts RFC3339 and zone-less ISO timestamps.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func firstInt(values ...flexInt) int64 {
	for _, v := range values {
		if v != 0 {
			return int64(v)
		}
	}
	return 0
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstDecimal(values ...*decimal.Decimal) (decimal.Decimal, bool) {
	for _, v := range values {
		if v != nil {
			return *v, true
		}
	}
	return decimal.Zero, false
}
