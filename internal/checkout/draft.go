package checkout

import (
	"reflect"
	"strings"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Draft is the transient checkout input. It is never persisted.
type Draft struct {
	ShippingAddress string              `json:"shippingAddress" validate:"required"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod" validate:"required,payment_method"`
	CardNumber      string              `json:"cardNumber" validate:"required_if=PaymentMethod CARD"`
	ExpiryDate      string              `json:"expiryDate" validate:"required_if=PaymentMethod CARD"`
	CVV             string              `json:"cvv" validate:"required_if=PaymentMethod CARD"`
	NameOnCard      string              `json:"nameOnCard" validate:"required_if=PaymentMethod CARD"`
	UPIID           string              `json:"upiId" validate:"required_if=PaymentMethod UPI"`
	WalletType      string              `json:"walletType" validate:"required_if=PaymentMethod WALLET"`
	MobileNumber    string              `json:"mobileNumber" validate:"required_if=PaymentMethod WALLET"`
}

var fieldMessages = map[string]string{
	"shippingAddress": "Shipping address is required",
	"paymentMethod":   "Payment method is required",
	"cardNumber":      "Card number is required",
	"expiryDate":      "Expiry date is required",
	"cvv":             "CVV is required",
	"nameOnCard":      "Name on card is required",
	"upiId":           "UPI ID is required",
	"walletType":      "Wallet type is required",
	"mobileNumber":    "Mobile number is required",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return enums.PaymentMethod(fl.Field().String()).IsValid()
	})
	return v
}

// Normalize trims every field and upper-cases the payment method.
func (d Draft) Normalize() Draft {
	trim := strings.TrimSpace
	return Draft{
		ShippingAddress: trim(d.ShippingAddress),
		PaymentMethod:   enums.PaymentMethod(strings.ToUpper(trim(string(d.PaymentMethod)))),
		CardNumber:      trim(d.CardNumber),
		ExpiryDate:      trim(d.ExpiryDate),
		CVV:             trim(d.CVV),
		NameOnCard:      trim(d.NameOnCard),
		UPIID:           trim(d.UPIID),
		WalletType:      trim(d.WalletType),
		MobileNumber:    trim(d.MobileNumber),
	}
}

// Validate checks the normalized draft. Failures are CodeValidation errors
// whose details map each field to its message.
func (d Draft) Validate() error {
	n := d.Normalize()
	err := validate.Struct(n)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = messageFor(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, firstMessage(details)).WithDetails(details)
}

func messageFor(fe validator.FieldError) string {
	if fe.Tag() == "payment_method" {
		return "Unsupported payment method"
	}
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}

// firstMessage picks the message of the earliest field in form order so the
// summary line is stable.
func firstMessage(details map[string]string) string {
	for _, field := range []string{"shippingAddress", "paymentMethod", "cardNumber", "expiryDate", "cvv", "nameOnCard", "upiId", "walletType", "mobileNumber"} {
		if msg, ok := details[field]; ok {
			return msg
		}
	}
	return "validation failed"
}

// Request converts a validated draft to the wire body, sending only the
// details of the selected method.
func (d Draft) Request() backend.CheckoutRequest {
	n := d.Normalize()
	req := backend.CheckoutRequest{
		ShippingAddress: n.ShippingAddress,
		PaymentMethod:   n.PaymentMethod,
	}
	switch n.PaymentMethod {
	case enums.PaymentMethodCard:
		req.PaymentDetails = backend.PaymentDetails{
			CardNumber: n.CardNumber,
			ExpiryDate: n.ExpiryDate,
			CVV:        n.CVV,
			NameOnCard: n.NameOnCard,
		}
	case enums.PaymentMethodUPI:
		req.PaymentDetails = backend.PaymentDetails{UPIID: n.UPIID}
	case enums.PaymentMethodWallet:
		req.PaymentDetails = backend.PaymentDetails{WalletType: n.WalletType, MobileNumber: n.MobileNumber}
	}
	return req
}
