package domain

import "time"

// Product is the inventory aggregate. Stock and Version are mutated only
// through the repository's conditional primitives; handlers never write
// them directly.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Stock       int
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Availability is the read snapshot handed to reservation callers. The
// version pins the snapshot for the follow-up conditional decrement.
type Availability struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Stock     int     `json:"stock"`
	Version   int64   `json:"version"`
}

func (p *Product) Availability() Availability {
	return Availability{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Version:   p.Version,
	}
}
