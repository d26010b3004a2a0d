package domain

// Status is the externally visible order lifecycle status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a raw status value against the enumerated set.
// All status validation funnels through here so a transition graph can be
// added later without touching callers.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(raw), nil
	default:
		return "", &InvalidStatusError{Value: raw}
	}
}

// PaymentMethod is the payment tag captured at checkout.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentPaypal     PaymentMethod = "paypal"
	PaymentCash       PaymentMethod = "cash"
)

// ParsePaymentMethod validates a raw payment tag, defaulting to
// credit_card when omitted, as the storefront always has.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	if raw == "" {
		return PaymentCreditCard, nil
	}
	switch PaymentMethod(raw) {
	case PaymentCreditCard, PaymentDebitCard, PaymentPaypal, PaymentCash:
		return PaymentMethod(raw), nil
	default:
		return "", &ValidationError{Field: "paymentMethod", Reason: "unknown payment method " + raw}
	}
}
