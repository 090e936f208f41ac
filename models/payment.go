package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
	PaymentExpired PaymentStatus = "EXPIRED"
)

// Payment is one payment attempt for an order. An order may accumulate
// several attempts but holds at most one PENDING or PAID row at a time.
// ReferenceID is the order reference sent to the gateway; TransactionID
// is the gateway's own transaction identifier. RawPayload keeps the last
// gateway notification verbatim for audit.
type Payment struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderID       uint          `gorm:"not null;index" json:"order_id"`
	Order         Order         `gorm:"foreignKey:OrderID" json:"-"`
	Amount        float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Method        string        `gorm:"type:varchar(30);not null;default:'qris'" json:"method"`
	ReferenceID   string        `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference_id"`
	TransactionID string        `gorm:"type:varchar(64);index" json:"transaction_id"`
	QRCodeURL     string        `gorm:"type:varchar(255)" json:"qr_code_url"`
	RawPayload    string        `gorm:"type:text" json:"-"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	ExpiredAt     *time.Time    `json:"expired_at,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}
