package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
	"laundry-backend/realtime"
)

// DriverDispatchEngine runs claim/cancel/progress operations on pickup
// and delivery tasks. Every state change is a conditional update scoped
// by the expected current status; the affected-row count is the only
// success signal, and a zero count is a concurrency loss.
type DriverDispatchEngine struct {
	db *gorm.DB
}

func NewDriverDispatchEngine(db *gorm.DB) *DriverDispatchEngine {
	return &DriverDispatchEngine{db: db}
}

var activeTaskStatuses = []models.TaskStatus{models.TaskAssigned, models.TaskInProgress}

// ClaimPickup assigns a waiting pickup to the driver. Two drivers racing
// for the same pickup resolve to one winner through the status-scoped
// update; the loser gets a conflict. The fallback branch re-dispatches a
// pickup marked arrived whose order never left WAITING_DRIVER_PICKUP.
func (e *DriverDispatchEngine) ClaimPickup(driverID, pickupID uint) (*models.DriverTask, error) {
	var task models.DriverTask
	err := e.db.Transaction(func(tx *gorm.DB) error {
		driver, err := e.onDutyDriver(tx, driverID)
		if err != nil {
			return err
		}
		if err := e.guardNoActiveTask(tx, driverID); err != nil {
			return err
		}

		var pickup models.PickupRequest
		if err := tx.First(&pickup, pickupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("pickup request %d not found", pickupID)
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.PickupRequest{}).
			Where("id = ? AND outlet_id = ? AND status = ?", pickupID, *driver.OutletID, models.PickupWaitingDriver).
			Updates(map[string]interface{}{
				"status":     models.PickupDriverAssigned,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			stuckOrders := tx.Model(&models.Order{}).
				Select("id").
				Where("status = ?", models.OrderWaitingDriverPickup)
			res = tx.Model(&models.PickupRequest{}).
				Where("id = ? AND outlet_id = ? AND status = ? AND order_id IN (?)",
					pickupID, *driver.OutletID, models.PickupArrivedOutlet, stuckOrders).
				Updates(map[string]interface{}{
					"status":     models.PickupDriverAssigned,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("pickup is no longer available")
			}
		}

		var outlet models.Outlet
		if err := tx.First(&outlet, *driver.OutletID).Error; err != nil {
			return err
		}

		pickupRef := pickup.ID
		task = models.DriverTask{
			DriverID:        driverID,
			TaskType:        models.TaskPickup,
			Status:          models.TaskAssigned,
			PickupRequestID: &pickupRef,
			FromAddress:     pickup.AddressLine,
			FromLatitude:    pickup.Latitude,
			FromLongitude:   pickup.Longitude,
			ToAddress:       outlet.Address,
			ToLatitude:      outlet.Latitude,
			ToLongitude:     outlet.Longitude,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}

	if task.PickupRequest == nil {
		_ = e.db.Preload("PickupRequest").First(&task, task.ID).Error
	}
	if task.PickupRequest != nil {
		realtime.BroadcastPickupUpdate(*task.PickupRequest)
	}
	return &task, nil
}

// StartTask moves one of the driver's tasks from ASSIGNED to IN_PROGRESS.
func (e *DriverDispatchEngine) StartTask(driverID, taskID uint) (*models.DriverTask, error) {
	var task models.DriverTask
	err := e.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.DriverTask{}).
			Where("id = ? AND driver_id = ? AND status = ?", taskID, driverID, models.TaskAssigned).
			Updates(map[string]interface{}{
				"status":     models.TaskInProgress,
				"started_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("task cannot be started")
		}
		return tx.First(&task, taskID).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelPickup abandons an assigned pickup task and reopens the pickup
// for other drivers.
func (e *DriverDispatchEngine) CancelPickup(driverID, taskID uint) (*models.DriverTask, error) {
	var task models.DriverTask
	err := e.db.Transaction(func(tx *gorm.DB) error {
		t, err := e.findDriverTask(tx, driverID, taskID, models.TaskPickup)
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.DriverTask{}).
			Where("id = ? AND driver_id = ? AND status = ?", taskID, driverID, models.TaskAssigned).
			Updates(map[string]interface{}{
				"status":     models.TaskCanceled,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("task can only be canceled while assigned")
		}

		if t.PickupRequestID != nil {
			// Reopen for the next driver; zero rows just means the
			// pickup moved on.
			res := tx.Model(&models.PickupRequest{}).
				Where("id = ? AND status = ?", *t.PickupRequestID, models.PickupDriverAssigned).
				Updates(map[string]interface{}{
					"status":     models.PickupWaitingDriver,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
		}

		return tx.First(&task, taskID).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// PickupPickedUp marks the laundry collected: the task starts, the pickup
// becomes PICKED_UP, and the bound order moves onto the road.
func (e *DriverDispatchEngine) PickupPickedUp(driverID, taskID uint) (*models.DriverTask, error) {
	return e.progressPickup(driverID, taskID,
		models.TaskAssigned, models.TaskInProgress,
		models.PickupDriverAssigned, models.PickupPickedUp,
		models.OrderWaitingDriverPickup, models.OrderOnTheWayToOutlet,
	)
}

// PickupArrivedOutlet closes the pickup leg: the task is done, the pickup
// is at the outlet, and the bound order is ARRIVED_AT_OUTLET.
func (e *DriverDispatchEngine) PickupArrivedOutlet(driverID, taskID uint) (*models.DriverTask, error) {
	return e.progressPickup(driverID, taskID,
		models.TaskInProgress, models.TaskDone,
		models.PickupPickedUp, models.PickupArrivedOutlet,
		models.OrderOnTheWayToOutlet, models.OrderArrivedAtOutlet,
	)
}

func (e *DriverDispatchEngine) progressPickup(driverID, taskID uint,
	taskFrom, taskTo models.TaskStatus,
	pickupFrom, pickupTo models.PickupStatus,
	orderFrom, orderTo models.OrderStatus,
) (*models.DriverTask, error) {
	var task models.DriverTask
	var pickup models.PickupRequest
	err := e.db.Transaction(func(tx *gorm.DB) error {
		t, err := e.findDriverTask(tx, driverID, taskID, models.TaskPickup)
		if err != nil {
			return err
		}
		if t.PickupRequestID == nil {
			return apperr.InvalidState("task has no pickup request")
		}

		now := time.Now()
		taskValues := map[string]interface{}{
			"status":     taskTo,
			"updated_at": now,
		}
		if taskTo == models.TaskInProgress {
			taskValues["started_at"] = now
		}
		if taskTo == models.TaskDone {
			taskValues["completed_at"] = now
		}
		res := tx.Model(&models.DriverTask{}).
			Where("id = ? AND driver_id = ? AND status = ?", taskID, driverID, taskFrom).
			Updates(taskValues)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("task is not %s", taskFrom)
		}

		res = tx.Model(&models.PickupRequest{}).
			Where("id = ? AND status = ?", *t.PickupRequestID, pickupFrom).
			Updates(map[string]interface{}{
				"status":     pickupTo,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("pickup is not %s", pickupFrom)
		}

		if err := tx.First(&pickup, *t.PickupRequestID).Error; err != nil {
			return err
		}
		if pickup.OrderID != nil {
			if err := advanceOrder(tx, *pickup.OrderID, orderFrom, orderTo); err != nil {
				return err
			}
		}

		return tx.First(&task, taskID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastPickupUpdate(pickup)
	return &task, nil
}

// ClaimDelivery takes an order that is ready to leave the outlet. The
// claim itself moves the order to DELIVERING_TO_CUSTOMER, so a second
// driver's claim finds zero matching rows.
func (e *DriverDispatchEngine) ClaimDelivery(driverID, orderID uint) (*models.DriverTask, error) {
	var task models.DriverTask
	err := e.db.Transaction(func(tx *gorm.DB) error {
		driver, err := e.onDutyDriver(tx, driverID)
		if err != nil {
			return err
		}
		if err := e.guardNoActiveTask(tx, driverID); err != nil {
			return err
		}

		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order %d not found", orderID)
			}
			return err
		}
		if order.OutletID != *driver.OutletID {
			return apperr.Forbidden("order belongs to another outlet")
		}

		if err := advanceOrder(tx, orderID, models.OrderReadyToDeliver, models.OrderDeliveringToCustomer); err != nil {
			return err
		}

		var outlet models.Outlet
		if err := tx.First(&outlet, order.OutletID).Error; err != nil {
			return err
		}

		now := time.Now()
		orderRef := order.ID
		task = models.DriverTask{
			DriverID:      driverID,
			TaskType:      models.TaskDelivery,
			Status:        models.TaskAssigned,
			OrderID:       &orderRef,
			FromAddress:   outlet.Address,
			FromLatitude:  outlet.Latitude,
			FromLongitude: outlet.Longitude,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if order.PickupRequestID != nil {
			var pickup models.PickupRequest
			if err := tx.First(&pickup, *order.PickupRequestID).Error; err == nil {
				task.ToAddress = pickup.AddressLine
				task.ToLatitude = pickup.Latitude
				task.ToLongitude = pickup.Longitude
			}
		}

		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteDelivery hands the order to the customer and closes the task.
func (e *DriverDispatchEngine) CompleteDelivery(driverID, taskID uint) (*models.DriverTask, error) {
	var task models.DriverTask
	err := e.db.Transaction(func(tx *gorm.DB) error {
		t, err := e.findDriverTask(tx, driverID, taskID, models.TaskDelivery)
		if err != nil {
			return err
		}
		if t.OrderID == nil {
			return apperr.InvalidState("task has no order")
		}

		now := time.Now()
		res := tx.Model(&models.DriverTask{}).
			Where("id = ? AND driver_id = ? AND status = ?", taskID, driverID, models.TaskInProgress).
			Updates(map[string]interface{}{
				"status":       models.TaskDone,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("task is not in progress")
		}

		if err := advanceOrderWith(tx, *t.OrderID,
			models.OrderDeliveringToCustomer, models.OrderReceivedByCustomer,
			map[string]interface{}{"delivered_at": now}); err != nil {
			return err
		}

		return tx.First(&task, taskID).Error
	})
	if err != nil {
		return nil, err
	}

	var order models.Order
	if task.OrderID != nil {
		if err := e.db.First(&order, *task.OrderID).Error; err == nil {
			realtime.BroadcastOrderUpdate(order)
		}
	}
	return &task, nil
}

// AvailablePickups lists pickups a driver of this outlet could claim.
func (e *DriverDispatchEngine) AvailablePickups(driverID uint) ([]models.PickupRequest, error) {
	var driver models.User
	if err := e.db.First(&driver, driverID).Error; err != nil {
		return nil, apperr.NotFound("driver %d not found", driverID)
	}
	if driver.OutletID == nil {
		return nil, apperr.Forbidden("driver has no outlet assignment")
	}

	var pickups []models.PickupRequest
	err := e.db.
		Where("outlet_id = ? AND status = ?", *driver.OutletID, models.PickupWaitingDriver).
		Order("created_at asc").
		Find(&pickups).Error
	return pickups, err
}

// ActiveTask returns the driver's current ASSIGNED or IN_PROGRESS task.
func (e *DriverDispatchEngine) ActiveTask(driverID uint) (*models.DriverTask, error) {
	var task models.DriverTask
	err := e.db.Preload("PickupRequest").Preload("Order").
		Where("driver_id = ? AND status IN ?", driverID, activeTaskStatuses).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no active task")
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// onDutyDriver checks the claim preconditions: an outlet assignment and
// an open attendance record for today.
func (e *DriverDispatchEngine) onDutyDriver(tx *gorm.DB, driverID uint) (*models.User, error) {
	var driver models.User
	if err := tx.First(&driver, driverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("driver %d not found", driverID)
		}
		return nil, err
	}
	if driver.Role != models.RoleDriver {
		return nil, apperr.Forbidden("only drivers may claim tasks")
	}
	if driver.OutletID == nil {
		return nil, apperr.Forbidden("driver has no outlet assignment")
	}

	var att models.Attendance
	err := tx.Where("user_id = ? AND work_date = ?", driverID, models.AttendanceDate(time.Now())).
		First(&att).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Forbidden("driver is not clocked in today")
	}
	if err != nil {
		return nil, err
	}
	if att.ClockInAt == nil || att.ClockOutAt != nil {
		return nil, apperr.Forbidden("driver is not clocked in")
	}

	return &driver, nil
}

func (e *DriverDispatchEngine) guardNoActiveTask(tx *gorm.DB, driverID uint) error {
	var active int64
	if err := tx.Model(&models.DriverTask{}).
		Where("driver_id = ? AND status IN ?", driverID, activeTaskStatuses).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return apperr.Conflict("driver already has an active task")
	}
	return nil
}

func (e *DriverDispatchEngine) findDriverTask(tx *gorm.DB, driverID, taskID uint, taskType models.TaskType) (*models.DriverTask, error) {
	var task models.DriverTask
	err := tx.Where("id = ? AND driver_id = ?", taskID, driverID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("task %d not found", taskID)
	}
	if err != nil {
		return nil, err
	}
	if task.TaskType != taskType {
		return nil, apperr.InvalidState("task is not a %s task", taskType)
	}
	return &task, nil
}
