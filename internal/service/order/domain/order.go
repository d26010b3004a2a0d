package domain

import "time"

// CartItem is one requested (product, quantity) pairing. It is transient
// request input and never persisted on its own.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderItem is a committed line item. Name and price are snapshots taken
// at reservation time: an order must reflect what was charged regardless
// of later catalog changes.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Address is the shipping destination captured with the order.
type Address struct {
	Street     string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order is the order aggregate. It is persisted only after every line
// item's reservation has committed; partial orders must never exist.
type Order struct {
	ID              string
	UserID          string
	UserName        string
	UserEmail       string
	Items           []OrderItem
	TotalAmount     float64
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder assembles a persisted-ready order from committed line items.
// The total is computed here, server-side, from the snapshots.
func NewOrder(id, userID, userName, userEmail string, items []OrderItem, shipping Address, payment PaymentMethod) *Order {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	now := time.Now()
	return &Order{
		ID:              id,
		UserID:          userID,
		UserName:        userName,
		UserEmail:       userEmail,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: shipping,
		PaymentMethod:   payment,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// SetStatus applies a validated status. The current design accepts any
// enumerated status from any other; tightening to a transition graph only
// requires changing this method.
func (o *Order) SetStatus(raw string) error {
	status, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

// ValidateCart rejects an empty cart or any non-positive quantity before
// the coordinator touches inventory.
func ValidateCart(items []CartItem) error {
	if len(items) == 0 {
		return &ValidationError{Field: "items", Reason: "cart is empty"}
	}
	for _, item := range items {
		if item.ProductID == "" {
			return &ValidationError{Field: "items", Reason: "missing product id"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{
				Field:  "items",
				Reason: "quantity must be positive for product " + item.ProductID,
			}
		}
	}
	return nil
}
