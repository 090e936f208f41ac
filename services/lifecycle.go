package services

import (
	"time"

	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
)

// advanceOrder is the single writer of Order.status outside creation.
// The transition is a conditional update keyed on the expected current
// status; zero affected rows means a concurrent writer won.
func advanceOrder(tx *gorm.DB, orderID uint, from, to models.OrderStatus) error {
	return advanceOrderWith(tx, orderID, from, to, nil)
}

// advanceOrderWith additionally sets extra columns (e.g. paid_at,
// delivered_at) in the same conditional update.
func advanceOrderWith(tx *gorm.DB, orderID uint, from, to models.OrderStatus, extra map[string]interface{}) error {
	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		values[k] = v
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("order %d is no longer in %s", orderID, from)
	}
	return nil
}

// nextStageForStation maps a completed station to the order transition it
// triggers: WASHING -> IRONING -> PACKING -> WAITING_PAYMENT.
func nextStageForStation(t models.StationType) (from, to models.OrderStatus) {
	switch t {
	case models.StationWashing:
		return models.OrderWashing, models.OrderIroning
	case models.StationIroning:
		return models.OrderIroning, models.OrderPacking
	default:
		return models.OrderPacking, models.OrderWaitingPayment
	}
}
