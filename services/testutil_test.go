package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry-backend/models"
)

var testDBSeq int64

// setupTestDB opens a fresh in-memory database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
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
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedOutlet(t *testing.T, db *gorm.DB) *models.Outlet {
	t.Helper()
	outlet := &models.Outlet{Name: "Outlet A", Address: "Jl. Melati 1", Latitude: -6.2, Longitude: 106.8}
	if err := db.Create(outlet).Error; err != nil {
		t.Fatalf("seed outlet: %v", err)
	}
	return outlet
}

func seedUser(t *testing.T, db *gorm.DB, role models.Role, outletID *uint) *models.User {
	t.Helper()
	user := &models.User{
		Name:     fmt.Sprintf("%s user", role),
		Email:    fmt.Sprintf("%s-%d@example.com", role, atomic.AddInt64(&testDBSeq, 1)),
		Password: "hashed",
		Role:     role,
		OutletID: outletID,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedLaundryItem(t *testing.T, db *gorm.DB, name string) *models.LaundryItem {
	t.Helper()
	item := &models.LaundryItem{Name: name}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed laundry item: %v", err)
	}
	return item
}

// seedOrder creates an order at the given status with one expected item
// (qty 3) and the three stations in PENDING.
func seedOrder(t *testing.T, db *gorm.DB, outletID, customerID uint, status models.OrderStatus) (*models.Order, *models.LaundryItem) {
	t.Helper()

	item := seedLaundryItem(t, db, fmt.Sprintf("shirt-%d", atomic.AddInt64(&testDBSeq, 1)))
	order := &models.Order{
		OrderNumber: fmt.Sprintf("ORD-TEST-%04d", atomic.AddInt64(&testDBSeq, 1)),
		OutletID:    outletID,
		CustomerID:  customerID,
		ServiceType: models.ServiceStandard,
		Status:      status,
		OrderItems: []models.OrderItem{
			{LaundryItemID: item.ID, Qty: 3},
		},
		Stations: []models.OrderStation{
			{StationType: models.StationWashing, Status: models.StationPending},
			{StationType: models.StationIroning, Status: models.StationPending},
			{StationType: models.StationPacking, Status: models.StationPending},
		},
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order, item
}

func seedPickup(t *testing.T, db *gorm.DB, customerID, outletID uint, status models.PickupStatus) *models.PickupRequest {
	t.Helper()
	pickup := &models.PickupRequest{
		CustomerID:  customerID,
		OutletID:    outletID,
		AddressLine: "Jl. Kenanga 5",
		Latitude:    -6.21,
		Longitude:   106.81,
		Status:      status,
	}
	if err := db.Create(pickup).Error; err != nil {
		t.Fatalf("seed pickup: %v", err)
	}
	return pickup
}

// clockIn opens today's attendance for the user so on-duty checks pass.
func clockIn(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	now := time.Now()
	att := &models.Attendance{
		UserID:    userID,
		WorkDate:  models.AttendanceDate(now),
		ClockInAt: &now,
	}
	if err := db.Create(att).Error; err != nil {
		t.Fatalf("seed attendance: %v", err)
	}
}

func orderStatus(t *testing.T, db *gorm.DB, orderID uint) models.OrderStatus {
	t.Helper()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order.Status
}

func stationByType(t *testing.T, db *gorm.DB, orderID uint, st models.StationType) *models.OrderStation {
	t.Helper()
	var station models.OrderStation
	if err := db.Where("order_id = ? AND station_type = ?", orderID, st).First(&station).Error; err != nil {
		t.Fatalf("reload station: %v", err)
	}
	return &station
}
