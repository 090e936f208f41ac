package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
	"laundry-backend/realtime"
)

const (
	ratePerKgStandard = 8000
	ratePerKgPremium  = 12000

	paymentWindow = 24 * time.Hour
)

// OrderIntakeService owns the front of the lifecycle: pickup requests,
// order creation at approval, weighing/pricing at the outlet and
// cancellation.
type OrderIntakeService struct {
	db *gorm.DB
}

func NewOrderIntakeService(db *gorm.DB) *OrderIntakeService {
	return &OrderIntakeService{db: db}
}

type PickupInput struct {
	OutletID    uint       `json:"outlet_id" binding:"required"`
	AddressLine string     `json:"address_line" binding:"required"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Notes       string     `json:"notes"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type ApproveItemInput struct {
	LaundryItemID uint `json:"laundry_item_id" binding:"required"`
	Qty           int  `json:"qty" binding:"required"`
}

type ProcessInput struct {
	WeightKg    float64            `json:"weight_kg" binding:"required"`
	ServiceType models.ServiceType `json:"service_type" binding:"required"`
	DeliveryFee float64            `json:"delivery_fee"`
}

// CreatePickupRequest opens a new pickup for the customer.
func (s *OrderIntakeService) CreatePickupRequest(customerID uint, in PickupInput) (*models.PickupRequest, error) {
	if strings.TrimSpace(in.AddressLine) == "" {
		return nil, apperr.InvalidInput("address line must not be empty")
	}

	var outlet models.Outlet
	if err := s.db.First(&outlet, in.OutletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("outlet %d not found", in.OutletID)
		}
		return nil, err
	}

	pickup := models.PickupRequest{
		CustomerID:  customerID,
		OutletID:    in.OutletID,
		AddressLine: strings.TrimSpace(in.AddressLine),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Notes:       in.Notes,
		Status:      models.PickupWaitingDriver,
		ScheduledAt: in.ScheduledAt,
	}
	if err := s.db.Create(&pickup).Error; err != nil {
		return nil, err
	}

	realtime.BroadcastPickupUpdate(pickup)
	return &pickup, nil
}

// CancelPickupRequest cancels the customer's own pickup while no driver
// has taken it yet.
func (s *OrderIntakeService) CancelPickupRequest(customerID, pickupID uint) (*models.PickupRequest, error) {
	var pickup models.PickupRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&pickup, pickupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("pickup request %d not found", pickupID)
			}
			return err
		}
		if pickup.CustomerID != customerID {
			return apperr.Forbidden("pickup belongs to another customer")
		}

		res := tx.Model(&models.PickupRequest{}).
			Where("id = ? AND status = ?", pickupID, models.PickupWaitingDriver).
			Updates(map[string]interface{}{
				"status":     models.PickupCanceled,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("pickup can only be canceled while waiting for a driver")
		}
		return tx.First(&pickup, pickupID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastPickupUpdate(pickup)
	return &pickup, nil
}

// ApprovePickup turns a pickup request into an order. The order starts at
// WAITING_DRIVER_PICKUP with the declared item list and three pending
// stations; the pickup is bound to the order exactly once through the
// order_id IS NULL guard.
func (s *OrderIntakeService) ApprovePickup(adminID, pickupID uint, items []ApproveItemInput) (*models.Order, error) {
	if len(items) == 0 {
		return nil, apperr.InvalidInput("an order needs at least one item")
	}
	seen := make(map[uint]bool, len(items))
	for _, it := range items {
		if it.Qty <= 0 {
			return nil, apperr.InvalidInput("item %d quantity must be positive", it.LaundryItemID)
		}
		if seen[it.LaundryItemID] {
			return nil, apperr.InvalidInput("item %d listed twice", it.LaundryItemID)
		}
		seen[it.LaundryItemID] = true
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		admin, err := outletAdmin(tx, adminID)
		if err != nil {
			return err
		}

		var pickup models.PickupRequest
		if err := tx.First(&pickup, pickupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("pickup request %d not found", pickupID)
			}
			return err
		}
		if admin.OutletID != nil && *admin.OutletID != pickup.OutletID {
			return apperr.Forbidden("pickup belongs to another outlet")
		}
		if pickup.Status == models.PickupCanceled {
			return apperr.InvalidState("pickup has been canceled")
		}

		for id := range seen {
			var item models.LaundryItem
			if err := tx.First(&item, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.InvalidInput("laundry item %d does not exist", id)
				}
				return err
			}
		}

		number, err := nextOrderNumber(tx, pickup.OutletID)
		if err != nil {
			return err
		}

		pickupRef := pickup.ID
		order = models.Order{
			OrderNumber:     number,
			OutletID:        pickup.OutletID,
			CustomerID:      pickup.CustomerID,
			PickupRequestID: &pickupRef,
			ServiceType:     models.ServiceStandard,
			Status:          models.OrderWaitingDriverPickup,
		}
		for _, it := range items {
			order.OrderItems = append(order.OrderItems, models.OrderItem{
				LaundryItemID: it.LaundryItemID,
				Qty:           it.Qty,
			})
		}
		for _, st := range []models.StationType{models.StationWashing, models.StationIroning, models.StationPacking} {
			order.Stations = append(order.Stations, models.OrderStation{
				StationType: st,
				Status:      models.StationPending,
			})
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		res := tx.Model(&models.PickupRequest{}).
			Where("id = ? AND order_id IS NULL", pickup.ID).
			Updates(map[string]interface{}{
				"order_id":   order.ID,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("pickup has already been approved")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastOrderUpdate(order)
	return &order, nil
}

// ProcessOrder weighs and prices the order at the outlet and pushes it
// into the station pipeline. The price is weight times the per-kg rate of
// the chosen plan plus the delivery fee; the payment window opens now.
func (s *OrderIntakeService) ProcessOrder(adminID, orderID uint, in ProcessInput) (*models.Order, error) {
	if in.WeightKg <= 0 {
		return nil, apperr.InvalidInput("weight must be positive")
	}
	var rate float64
	switch in.ServiceType {
	case models.ServiceStandard:
		rate = ratePerKgStandard
	case models.ServicePremium:
		rate = ratePerKgPremium
	default:
		return nil, apperr.InvalidInput("unknown service type %q", in.ServiceType)
	}
	if in.DeliveryFee < 0 {
		return nil, apperr.InvalidInput("delivery fee must not be negative")
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		admin, err := outletAdmin(tx, adminID)
		if err != nil {
			return err
		}
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order %d not found", orderID)
			}
			return err
		}
		if admin.OutletID != nil && *admin.OutletID != order.OutletID {
			return apperr.Forbidden("order belongs to another outlet")
		}

		subtotal := in.WeightKg * rate
		dueAt := time.Now().Add(paymentWindow)
		err = advanceOrderWith(tx, orderID,
			models.OrderArrivedAtOutlet, models.OrderWashing,
			map[string]interface{}{
				"weight_kg":      in.WeightKg,
				"service_type":   in.ServiceType,
				"subtotal":       subtotal,
				"delivery_fee":   in.DeliveryFee,
				"total":          subtotal + in.DeliveryFee,
				"payment_due_at": dueAt,
			})
		if err != nil {
			return err
		}
		return tx.Preload("OrderItems").Preload("Stations").First(&order, orderID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastOrderUpdate(order)
	return &order, nil
}

// CancelOrder cancels a pre-payment order. Open stations and active
// driver tasks on the order are canceled with it; paid and delivering
// orders are out of reach.
func (s *OrderIntakeService) CancelOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order %d not found", orderID)
			}
			return err
		}
		if !order.Status.PrePayment() {
			return apperr.InvalidState("order is %s and can no longer be canceled", order.Status)
		}

		now := time.Now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, order.Status).
			Updates(map[string]interface{}{
				"status":     models.OrderCanceled,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("order %d changed concurrently", orderID)
		}

		if err := tx.Model(&models.OrderStation{}).
			Where("order_id = ? AND status <> ?", orderID, models.StationCompleted).
			Updates(map[string]interface{}{
				"status":     models.StationCompleted,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.DriverTask{}).
			Where("order_id = ? AND status IN ?", orderID, activeTaskStatuses).
			Updates(map[string]interface{}{
				"status":     models.TaskCanceled,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		if order.PickupRequestID != nil {
			if err := tx.Model(&models.PickupRequest{}).
				Where("id = ? AND status <> ?", *order.PickupRequestID, models.PickupArrivedOutlet).
				Updates(map[string]interface{}{
					"status":     models.PickupCanceled,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}

		return tx.First(&order, orderID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastOrderUpdate(order)
	return &order, nil
}

// OrderDetail loads one order with its items, stations and payments.
func (s *OrderIntakeService) OrderDetail(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.
		Preload("OrderItems.LaundryItem").
		Preload("Stations.ItemCounts").
		Preload("Payments").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order %d not found", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OrdersForCustomer lists a customer's orders, newest first.
func (s *OrderIntakeService) OrdersForCustomer(customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Where("customer_id = ?", customerID).
		Order("created_at desc").Find(&orders).Error
	return orders, err
}

// OrdersForOutlet lists an outlet's orders, optionally filtered by status.
func (s *OrderIntakeService) OrdersForOutlet(outletID uint, status models.OrderStatus) ([]models.Order, error) {
	q := s.db.Where("outlet_id = ?", outletID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	err := q.Order("created_at desc").Find(&orders).Error
	return orders, err
}

// OrdersForAdmin lists orders scoped to the staff member's outlet; a
// super admin without an assignment sees all outlets.
func (s *OrderIntakeService) OrdersForAdmin(adminID uint, status models.OrderStatus) ([]models.Order, error) {
	var admin models.User
	if err := s.db.First(&admin, adminID).Error; err != nil {
		return nil, apperr.NotFound("user %d not found", adminID)
	}
	if admin.Role == models.RoleCustomer {
		return s.OrdersForCustomer(adminID)
	}
	if admin.OutletID == nil {
		if admin.Role != models.RoleSuperAdmin {
			return nil, apperr.Forbidden("no outlet assignment")
		}
		q := s.db.Session(&gorm.Session{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		var orders []models.Order
		err := q.Order("created_at desc").Find(&orders).Error
		return orders, err
	}
	return s.OrdersForOutlet(*admin.OutletID, status)
}

// PickupsForAdmin lists the admin's outlet's pickup requests.
func (s *OrderIntakeService) PickupsForAdmin(adminID uint) ([]models.PickupRequest, error) {
	admin, err := outletAdmin(s.db, adminID)
	if err != nil {
		return nil, err
	}
	if admin.OutletID == nil {
		var pickups []models.PickupRequest
		err := s.db.Where("status <> ?", models.PickupCanceled).
			Order("created_at asc").Find(&pickups).Error
		return pickups, err
	}
	return s.PickupsForOutlet(*admin.OutletID)
}

// PickupsForCustomer lists a customer's pickup requests, newest first.
func (s *OrderIntakeService) PickupsForCustomer(customerID uint) ([]models.PickupRequest, error) {
	var pickups []models.PickupRequest
	err := s.db.Where("customer_id = ?", customerID).
		Order("created_at desc").Find(&pickups).Error
	return pickups, err
}

// PickupsForOutlet lists an outlet's pickup requests awaiting approval or
// in flight.
func (s *OrderIntakeService) PickupsForOutlet(outletID uint) ([]models.PickupRequest, error) {
	var pickups []models.PickupRequest
	err := s.db.Where("outlet_id = ? AND status <> ?", outletID, models.PickupCanceled).
		Order("created_at asc").Find(&pickups).Error
	return pickups, err
}

// nextOrderNumber produces ORD-YYYYMMDD-NNNN where NNNN is the outlet's
// position in today's sequence. Generated inside the caller's
// transaction so the count and the insert see the same day; uniqueness
// is backed by the (outlet, number) index.
func nextOrderNumber(tx *gorm.DB, outletID uint) (string, error) {
	now := time.Now()
	day := now.Format("20060102")
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int64
	if err := tx.Model(&models.Order{}).
		Where("outlet_id = ? AND created_at >= ?", outletID, start).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%04d", day, count+1), nil
}

func outletAdmin(tx *gorm.DB, adminID uint) (*models.User, error) {
	var admin models.User
	if err := tx.First(&admin, adminID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user %d not found", adminID)
		}
		return nil, err
	}
	if admin.Role != models.RoleOutletAdmin && admin.Role != models.RoleSuperAdmin {
		return nil, apperr.Forbidden("only outlet staff may do this")
	}
	if admin.Role == models.RoleOutletAdmin && admin.OutletID == nil {
		return nil, apperr.Forbidden("admin has no outlet assignment")
	}
	return &admin, nil
}
