package models

import (
	"time"
)

type TaskType string

const (
	TaskPickup   TaskType = "PICKUP"
	TaskDelivery TaskType = "DELIVERY"
)

type TaskStatus string

const (
	TaskAssigned   TaskStatus = "ASSIGNED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
	TaskCanceled   TaskStatus = "CANCELED"
)

// Active reports whether the task still occupies its driver.
func (s TaskStatus) Active() bool {
	return s == TaskAssigned || s == TaskInProgress
}

// DriverTask is one unit of driver work. Pickup tasks reference a
// PickupRequest, delivery tasks an Order; never both. A driver may hold
// at most one task in ASSIGNED or IN_PROGRESS at a time.
type DriverTask struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	DriverID        uint           `gorm:"not null;index" json:"driver_id"`
	Driver          User           `gorm:"foreignKey:DriverID" json:"-"`
	TaskType        TaskType       `gorm:"type:varchar(20);not null" json:"task_type"`
	Status          TaskStatus     `gorm:"type:varchar(20);not null;default:'ASSIGNED';index" json:"status"`
	PickupRequestID *uint          `gorm:"index" json:"pickup_request_id,omitempty"`
	PickupRequest   *PickupRequest `gorm:"foreignKey:PickupRequestID" json:"pickup_request,omitempty"`
	OrderID         *uint          `gorm:"index" json:"order_id,omitempty"`
	Order           *Order         `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	FromAddress     string         `gorm:"type:varchar(255)" json:"from_address"`
	FromLatitude    float64        `gorm:"type:decimal(10,7)" json:"from_latitude"`
	FromLongitude   float64        `gorm:"type:decimal(10,7)" json:"from_longitude"`
	ToAddress       string         `gorm:"type:varchar(255)" json:"to_address"`
	ToLatitude      float64        `gorm:"type:decimal(10,7)" json:"to_latitude"`
	ToLongitude     float64        `gorm:"type:decimal(10,7)" json:"to_longitude"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}
