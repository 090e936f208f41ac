package models

import "time"

type Outlet struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"type:varchar(100);not null" json:"name"`
	Address   string  `gorm:"type:varchar(255);not null" json:"address"`
	Latitude  float64 `gorm:"type:decimal(10,7)" json:"latitude"`
	Longitude float64 `gorm:"type:decimal(10,7)" json:"longitude"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LaundryItem is a countable garment type (shirt, pants, bedsheet, ...)
// used for per-station piece counting.
type LaundryItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(100);unique;not null" json:"name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
