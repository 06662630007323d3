package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes catalog-backed orders from free-form custom cake requests.
type OrderType string

const (
	OrderTypeStandard OrderType = "standard"
	OrderTypeCustom   OrderType = "custom"
)

// OrderStatus is the fulfillment lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusPreparing OrderStatus = "preparing"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusDeclined  OrderStatus = "declined"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []OrderStatus{
	StatusPending, StatusAccepted, StatusPreparing, StatusShipped, StatusDelivered, StatusDeclined,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is expected from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusDeclined
}

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// DeliveryInfo holds contact details, plus the address when the order is delivered.
type DeliveryInfo struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Date    string `json:"date,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// ContactOnly strips everything but the name and phone, the shape stored for pickups.
func (d DeliveryInfo) ContactOnly() DeliveryInfo {
	return DeliveryInfo{Name: d.Name, Phone: d.Phone}
}

// OrderItem is a single catalog line within a standard order.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string          `json:"product_id,omitempty" gorm:"type:varchar(36)"`
	Name      string          `json:"name,omitempty" gorm:"type:varchar(100)"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"` // Price at the time of order
}

// Order is a customer order fulfilled by exactly one baker.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber     string          `json:"order_number" gorm:"uniqueIndex;type:varchar(32);not null"`
	OrderType       OrderType       `json:"order_type" gorm:"type:varchar(16);not null"`
	CustomerID      string          `json:"customer_id" gorm:"index;type:varchar(36);not null"`
	BakerID         string          `json:"baker_id" gorm:"index;type:varchar(36);not null"`
	Items           []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Details         string          `json:"details,omitempty" gorm:"type:text"`
	TotalPrice      decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	DeliveryMethod  DeliveryMethod  `json:"delivery_method" gorm:"type:varchar(16);not null"`
	DeliveryInfo    DeliveryInfo    `json:"delivery_info" gorm:"embedded;embeddedPrefix:delivery_"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"type:varchar(16);not null"`
	Status          OrderStatus     `json:"status" gorm:"index;type:varchar(16);not null"`
	RejectionReason *string         `json:"rejection_reason,omitempty" gorm:"type:text"`
	Version         int             `json:"version" gorm:"not null"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
