package domain

import "time"

// OrderPlacedEvent is published after an order committed with all
// reservations held.
type OrderPlacedEvent struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	PlacedAt    time.Time   `json:"placedAt"`
}

// OrderStatusChangedEvent is published on every accepted status update.
type OrderStatusChangedEvent struct {
	OrderID   string    `json:"orderId"`
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
}
