package application

import "storefront/internal/service/order/domain"

// CheckoutRequest is the checkout entry point's input.
type CheckoutRequest struct {
	UserID          string            `json:"userId"`
	UserName        string            `json:"userName"`
	UserEmail       string            `json:"userEmail"`
	Items           []domain.CartItem `json:"items"`
	ShippingAddress domain.Address    `json:"shippingAddress"`
	PaymentMethod   string            `json:"paymentMethod"`
}
