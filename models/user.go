package models

import "time"

type Role string

const (
	RoleCustomer    Role = "CUSTOMER"
	RoleWorker      Role = "WORKER"
	RoleDriver      Role = "DRIVER"
	RoleOutletAdmin Role = "OUTLET_ADMIN"
	RoleSuperAdmin  Role = "SUPER_ADMIN"
)

type User struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"type:varchar(255);not null" json:"name"`
	Email     string  `gorm:"type:varchar(255);unique;not null" json:"email"`
	Password  string  `gorm:"type:varchar(255);not null" json:"-"`
	Phone     string  `gorm:"type:varchar(30)" json:"phone"`
	Role      Role    `gorm:"type:varchar(20);not null" json:"role"`
	OutletID  *uint   `gorm:"index" json:"outlet_id,omitempty"`
	Outlet    *Outlet `gorm:"foreignKey:OutletID" json:"outlet,omitempty"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
