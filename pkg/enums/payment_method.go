package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how a buyer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodUPI    PaymentMethod = "UPI"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodCard,
	PaymentMethodUPI,
	PaymentMethodWallet,
}

var paymentMethodDisplayNames = map[PaymentMethod]string{
	PaymentMethodCOD:    "Cash on Delivery",
	PaymentMethodCard:   "Credit/Debit Card",
	PaymentMethodUPI:    "UPI Payment",
	PaymentMethodWallet: "Digital Wallet",
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// DisplayName returns the label shown to shoppers.
func (p PaymentMethod) DisplayName() string {
	if name, ok := paymentMethodDisplayNames[p]; ok {
		return name
	}
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if strings.EqualFold(strings.TrimSpace(value), string(candidate)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
