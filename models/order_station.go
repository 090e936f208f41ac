package models

import (
	"time"
)

// StationType is a fixed processing stage an order passes through at an
// outlet. The set is finite and ordered; it is not configurable.
type StationType string

const (
	StationWashing StationType = "WASHING"
	StationIroning StationType = "IRONING"
	StationPacking StationType = "PACKING"
)

func (t StationType) Valid() bool {
	switch t {
	case StationWashing, StationIroning, StationPacking:
		return true
	}
	return false
}

type StationStatus string

const (
	StationPending       StationStatus = "PENDING"
	StationInProgress    StationStatus = "IN_PROGRESS"
	StationWaitingBypass StationStatus = "WAITING_BYPASS"
	StationCompleted     StationStatus = "COMPLETED"
)

// Open reports whether the station still occupies its assigned worker.
func (s StationStatus) Open() bool {
	return s == StationInProgress || s == StationWaitingBypass
}

// OrderStation is the per-order, per-stage work record. One row per
// (order, station type), created PENDING at order creation. A worker may
// hold at most one station in IN_PROGRESS or WAITING_BYPASS system-wide.
type OrderStation struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	OrderID          uint          `gorm:"not null;uniqueIndex:idx_order_station" json:"order_id"`
	Order            Order         `gorm:"foreignKey:OrderID" json:"-"`
	StationType      StationType   `gorm:"type:varchar(20);not null;uniqueIndex:idx_order_station" json:"station_type"`
	Status           StationStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	AssignedWorkerID *uint         `gorm:"index" json:"assigned_worker_id,omitempty"`
	AssignedWorker   *User         `gorm:"foreignKey:AssignedWorkerID" json:"assigned_worker,omitempty"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`

	ItemCounts []StationItemCount `gorm:"foreignKey:OrderStationID" json:"item_counts,omitempty"`
}

// StationItemCount is the quantity a worker counted for one laundry item
// while completing a station. Keyed uniquely by (station, item); upserted,
// never duplicated.
type StationItemCount struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	OrderStationID uint        `gorm:"not null;uniqueIndex:idx_station_count" json:"order_station_id"`
	LaundryItemID  uint        `gorm:"not null;uniqueIndex:idx_station_count" json:"laundry_item_id"`
	LaundryItem    LaundryItem `gorm:"foreignKey:LaundryItemID" json:"laundry_item,omitempty"`
	Qty            int         `gorm:"not null" json:"qty"`
	CreatedAt      time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null" json:"updated_at"`
}
