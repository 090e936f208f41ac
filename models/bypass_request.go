package models

import (
	"time"
)

type BypassStatus string

const (
	BypassRequested BypassStatus = "REQUESTED"
	BypassApproved  BypassStatus = "APPROVED"
	BypassRejected  BypassStatus = "REJECTED"
)

// BypassRequest is an administrator-mediated exception allowing a station
// to complete despite a count mismatch. At most one REQUESTED bypass may
// exist per station; the diff snapshot is immutable once created.
type BypassRequest struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrderStationID uint         `gorm:"not null;index" json:"order_station_id"`
	OrderStation   OrderStation `gorm:"foreignKey:OrderStationID" json:"order_station,omitempty"`
	Reason         string       `gorm:"type:text;not null" json:"reason"`
	Status         BypassStatus `gorm:"type:varchar(20);not null;default:'REQUESTED';index" json:"status"`
	RequestedByID  uint         `gorm:"not null" json:"requested_by_id"`
	RequestedBy    User         `gorm:"foreignKey:RequestedByID" json:"requested_by,omitempty"`
	DecidedByID    *uint        `json:"decided_by_id,omitempty"`
	DecidedBy      *User        `gorm:"foreignKey:DecidedByID" json:"decided_by,omitempty"`
	DecidedAt      *time.Time   `json:"decided_at,omitempty"`
	AdminNote      *string      `gorm:"type:text" json:"admin_note,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`

	Diffs []BypassDiff `gorm:"foreignKey:BypassRequestID" json:"diffs,omitempty"`
}

// BypassDiff captures one discrepancy between the expected quantity and
// the worker's count at request time. PrevQty is the expected quantity,
// CurrentQty the counted one; on approval CurrentQty becomes authoritative.
type BypassDiff struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	BypassRequestID uint        `gorm:"not null;index" json:"bypass_request_id"`
	LaundryItemID   uint        `gorm:"not null" json:"laundry_item_id"`
	LaundryItem     LaundryItem `gorm:"foreignKey:LaundryItemID" json:"laundry_item,omitempty"`
	PrevQty         int         `gorm:"not null" json:"prev_qty"`
	CurrentQty      int         `gorm:"not null" json:"current_qty"`
	CreatedAt       time.Time   `gorm:"not null" json:"created_at"`
}
