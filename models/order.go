package models

import (
	"time"
)

// OrderStatus is the strictly ordered lifecycle of an order. Transitions
// only happen through conditional updates keyed on the expected current
// status; CANCELED is reachable from any pre-payment status.
type OrderStatus string

const (
	OrderWaitingDriverPickup  OrderStatus = "WAITING_DRIVER_PICKUP"
	OrderOnTheWayToOutlet     OrderStatus = "ON_THE_WAY_TO_OUTLET"
	OrderArrivedAtOutlet      OrderStatus = "ARRIVED_AT_OUTLET"
	OrderWashing              OrderStatus = "WASHING"
	OrderIroning              OrderStatus = "IRONING"
	OrderPacking              OrderStatus = "PACKING"
	OrderWaitingPayment       OrderStatus = "WAITING_PAYMENT"
	OrderReadyToDeliver       OrderStatus = "READY_TO_DELIVER"
	OrderDeliveringToCustomer OrderStatus = "DELIVERING_TO_CUSTOMER"
	OrderReceivedByCustomer   OrderStatus = "RECEIVED_BY_CUSTOMER"
	OrderCanceled             OrderStatus = "CANCELED"
)

type ServiceType string

const (
	ServiceStandard ServiceType = "STANDARD"
	ServicePremium  ServiceType = "PREMIUM"
)

type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	OrderNumber     string      `gorm:"type:varchar(32);not null;uniqueIndex:idx_outlet_order_number" json:"order_number"`
	OutletID        uint        `gorm:"not null;index;uniqueIndex:idx_outlet_order_number" json:"outlet_id"`
	Outlet          Outlet      `gorm:"foreignKey:OutletID" json:"-"`
	CustomerID      uint        `gorm:"not null;index" json:"customer_id"`
	Customer        User        `gorm:"foreignKey:CustomerID" json:"-"`
	PickupRequestID *uint       `gorm:"index" json:"pickup_request_id,omitempty"`
	ServiceType     ServiceType `gorm:"type:varchar(20);not null;default:'STANDARD'" json:"service_type"`
	WeightKg        float64     `gorm:"type:decimal(6,2);not null;default:0" json:"weight_kg"`
	Subtotal        float64     `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	DeliveryFee     float64     `gorm:"type:decimal(12,2);not null;default:0" json:"delivery_fee"`
	Total           float64     `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Status          OrderStatus `gorm:"type:varchar(30);not null;index" json:"status"`
	PaymentDueAt    *time.Time  `json:"payment_due_at,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt       time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null" json:"updated_at"`

	OrderItems []OrderItem    `gorm:"foreignKey:OrderID" json:"order_items,omitempty"`
	Stations   []OrderStation `gorm:"foreignKey:OrderID" json:"stations,omitempty"`
	Payments   []Payment      `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// PrePayment reports whether the order has not yet reached payment
// settlement; only these orders may be canceled.
func (s OrderStatus) PrePayment() bool {
	switch s {
	case OrderWaitingDriverPickup, OrderOnTheWayToOutlet, OrderArrivedAtOutlet,
		OrderWashing, OrderIroning, OrderPacking, OrderWaitingPayment:
		return true
	}
	return false
}

// OrderItem records the expected quantity of one laundry item within an
// order; station completion counts are diffed against these rows.
type OrderItem struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	OrderID       uint        `gorm:"not null;uniqueIndex:idx_order_item" json:"order_id"`
	LaundryItemID uint        `gorm:"not null;uniqueIndex:idx_order_item" json:"laundry_item_id"`
	LaundryItem   LaundryItem `gorm:"foreignKey:LaundryItemID" json:"laundry_item,omitempty"`
	Qty           int         `gorm:"not null" json:"qty"`
	CreatedAt     time.Time   `gorm:"not null" json:"created_at"`
}
