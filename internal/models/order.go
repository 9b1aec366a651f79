package models

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// OrderItem is a line of an order, priced at checkout time.
type OrderItem struct {
	ProductID   string  `json:"productId" bson:"productId"`
	ProductName string  `json:"productName" bson:"productName"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	UnitPrice   float64 `json:"unitPrice" bson:"unitPrice"`
	LineTotal   float64 `json:"lineTotal" bson:"lineTotal"`
}

// Order is a checkout placed by an authenticated user.
type Order struct {
	ID        string      `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string      `json:"userId" bson:"userId" gorm:"index;type:varchar(36)"`
	Items     []OrderItem `json:"items" bson:"items" gorm:"serializer:json"`
	Total     float64     `json:"total" bson:"total"`
	Status    OrderStatus `json:"status" bson:"status" gorm:"type:varchar(16)"`
	Notes     string      `json:"notes,omitempty" bson:"notes,omitempty" gorm:"type:text"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
}
