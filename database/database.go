package database

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"laundry-backend/models"
)

// Connect opens the MySQL connection used in production.
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

// Migrate creates or updates the ledger schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Outlet{},
		&models.User{},
		&models.LaundryItem{},
		&models.Attendance{},
		&models.PickupRequest{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStation{},
		&models.StationItemCount{},
		&models.BypassRequest{},
		&models.BypassDiff{},
		&models.DriverTask{},
		&models.Payment{},
		&models.Notification{},
	)
}
