package infrastructure

import (
	"time"

	"storefront/internal/service/order/domain"
)

// OrderModel and OrderItemModel map the order aggregate onto two tables.
// Items are value children of the order row and carry the name/price
// snapshots verbatim.
type OrderModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	UserID        string `gorm:"size:64;index;not null"`
	UserName      string `gorm:"size:255"`
	UserEmail     string `gorm:"size:255"`
	TotalAmount   float64
	Street        string `gorm:"size:255"`
	City          string `gorm:"size:128"`
	PostalCode    string `gorm:"size:32"`
	Country       string `gorm:"size:128"`
	PaymentMethod string `gorm:"size:32"`
	Status        string `gorm:"size:32;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (OrderModel) TableName() string { return "orders" }

type OrderItemModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	OrderID     string `gorm:"size:64;index;not null"`
	ProductID   string `gorm:"size:64;not null"`
	ProductName string `gorm:"size:255"`
	Quantity    int    `gorm:"not null"`
	Price       float64
	Position    int `gorm:"not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }

func toOrderModel(o *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:            o.ID,
		UserID:        o.UserID,
		UserName:      o.UserName,
		UserEmail:     o.UserEmail,
		TotalAmount:   o.TotalAmount,
		Street:        o.ShippingAddress.Street,
		City:          o.ShippingAddress.City,
		PostalCode:    o.ShippingAddress.PostalCode,
		Country:       o.ShippingAddress.Country,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for i, item := range o.Items {
		model.Items = append(model.Items, OrderItemModel{
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Position:    i,
		})
	}
	return model
}

func toDomainOrder(m *OrderModel) *domain.Order {
	order := &domain.Order{
		ID:          m.ID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		UserEmail:   m.UserEmail,
		TotalAmount: m.TotalAmount,
		ShippingAddress: domain.Address{
			Street:     m.Street,
			City:       m.City,
			PostalCode: m.PostalCode,
			Country:    m.Country,
		},
		PaymentMethod: domain.PaymentMethod(m.PaymentMethod),
		Status:        domain.Status(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	for _, item := range m.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return order
}
