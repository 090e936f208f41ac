package models

import (
	"time"
)

type PickupStatus string

const (
	PickupWaitingDriver  PickupStatus = "WAITING_DRIVER"
	PickupDriverAssigned PickupStatus = "DRIVER_ASSIGNED"
	PickupPickedUp       PickupStatus = "PICKED_UP"
	PickupArrivedOutlet  PickupStatus = "ARRIVED_OUTLET"
	PickupCanceled       PickupStatus = "CANCELED"
)

// PickupRequest is the customer-initiated request that starts the whole
// flow. It is bound to exactly one outlet and, once approved by outlet
// staff, to exactly one order.
type PickupRequest struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CustomerID  uint         `gorm:"not null;index" json:"customer_id"`
	Customer    User         `gorm:"foreignKey:CustomerID" json:"-"`
	OutletID    uint         `gorm:"not null;index" json:"outlet_id"`
	Outlet      Outlet       `gorm:"foreignKey:OutletID" json:"-"`
	OrderID     *uint        `gorm:"index" json:"order_id,omitempty"`
	AddressLine string       `gorm:"type:varchar(255);not null" json:"address_line"`
	Latitude    float64      `gorm:"type:decimal(10,7)" json:"latitude"`
	Longitude   float64      `gorm:"type:decimal(10,7)" json:"longitude"`
	Notes       string       `gorm:"type:text" json:"notes"`
	Status      PickupStatus `gorm:"type:varchar(20);not null;default:'WAITING_DRIVER';index" json:"status"`
	ScheduledAt *time.Time   `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}
