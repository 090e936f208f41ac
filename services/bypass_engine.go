package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-backend/apperr"
	"laundry-backend/models"
	"laundry-backend/realtime"
)

// BypassApprovalEngine applies the administrator's decision on a bypass
// request. Approval makes the worker's counts authoritative and closes
// the station; rejection sends the station back to rework. Either branch
// is one transaction with no partially applied state.
type BypassApprovalEngine struct {
	db *gorm.DB
}

func NewBypassApprovalEngine(db *gorm.DB) *BypassApprovalEngine {
	return &BypassApprovalEngine{db: db}
}

type DecisionAction string

const (
	ActionApprove DecisionAction = "APPROVE"
	ActionReject  DecisionAction = "REJECT"
)

func (e *BypassApprovalEngine) Decide(adminID uint, requestID uint, action DecisionAction, note string) (*models.BypassRequest, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, apperr.InvalidInput("unknown decision %q", action)
	}

	var request models.BypassRequest
	err := e.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Diffs").Preload("OrderStation").First(&request, requestID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("bypass request %d not found", requestID)
		}
		if err != nil {
			return err
		}
		if request.Status != models.BypassRequested {
			return apperr.InvalidState("bypass request already %s", request.Status)
		}

		now := time.Now()
		decided := models.BypassApproved
		if action == ActionReject {
			decided = models.BypassRejected
		}
		values := map[string]interface{}{
			"status":        decided,
			"decided_by_id": adminID,
			"decided_at":    now,
			"updated_at":    now,
		}
		if note != "" {
			values["admin_note"] = note
		}

		// Double decisions race here; the loser sees zero rows.
		res := tx.Model(&models.BypassRequest{}).
			Where("id = ? AND status = ?", requestID, models.BypassRequested).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("bypass request already decided")
		}

		station := request.OrderStation
		if action == ActionReject {
			res := tx.Model(&models.OrderStation{}).
				Where("id = ? AND status = ?", station.ID, models.StationWaitingBypass).
				Updates(map[string]interface{}{
					"status":     models.StationInProgress,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("station changed concurrently")
			}
		} else {
			// The worker's counts become authoritative.
			for _, d := range request.Diffs {
				row := models.StationItemCount{
					OrderStationID: station.ID,
					LaundryItemID:  d.LaundryItemID,
					Qty:            d.CurrentQty,
					CreatedAt:      now,
					UpdatedAt:      now,
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "order_station_id"}, {Name: "laundry_item_id"}},
					DoUpdates: clause.Assignments(map[string]interface{}{"qty": d.CurrentQty, "updated_at": now}),
				}).Create(&row).Error; err != nil {
					return err
				}
			}

			res := tx.Model(&models.OrderStation{}).
				Where("id = ? AND status = ?", station.ID, models.StationWaitingBypass).
				Updates(map[string]interface{}{
					"status":       models.StationCompleted,
					"completed_at": now,
					"updated_at":   now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("station changed concurrently")
			}

			from, to := nextStageForStation(station.StationType)
			if err := advanceOrder(tx, station.OrderID, from, to); err != nil {
				return err
			}
		}

		if err := notifyRequester(tx, request, decided); err != nil {
			return err
		}

		return tx.Preload("Diffs").Preload("OrderStation").First(&request, requestID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastBypassDecided(request)
	return &request, nil
}

// PendingForAdmin lists open bypass requests scoped to the admin's
// outlet. A super admin without an outlet assignment sees all outlets.
func (e *BypassApprovalEngine) PendingForAdmin(adminID uint) ([]models.BypassRequest, error) {
	var admin models.User
	if err := e.db.First(&admin, adminID).Error; err != nil {
		return nil, apperr.NotFound("user %d not found", adminID)
	}
	if admin.OutletID == nil {
		if admin.Role != models.RoleSuperAdmin {
			return nil, apperr.Forbidden("admin has no outlet assignment")
		}
		var requests []models.BypassRequest
		err := e.db.Where("status = ?", models.BypassRequested).
			Preload("Diffs").Preload("OrderStation").
			Order("created_at asc").
			Find(&requests).Error
		return requests, err
	}
	return e.PendingForOutlet(*admin.OutletID)
}

// PendingForOutlet lists open bypass requests on orders of one outlet.
func (e *BypassApprovalEngine) PendingForOutlet(outletID uint) ([]models.BypassRequest, error) {
	var requests []models.BypassRequest
	err := e.db.
		Joins("JOIN order_stations ON order_stations.id = bypass_requests.order_station_id").
		Joins("JOIN orders ON orders.id = order_stations.order_id").
		Where("bypass_requests.status = ? AND orders.outlet_id = ?", models.BypassRequested, outletID).
		Preload("Diffs").
		Preload("OrderStation").
		Order("bypass_requests.created_at asc").
		Find(&requests).Error
	return requests, err
}

func notifyRequester(tx *gorm.DB, request models.BypassRequest, decided models.BypassStatus) error {
	workerID := request.RequestedByID
	title := "Bypass " + string(decided)
	message := "Your bypass request was approved; the station is completed."
	if decided == models.BypassRejected {
		message = "Your bypass request was rejected; please recount the items."
	}
	notif := models.Notification{
		UserID:    &workerID,
		Title:     &title,
		Message:   message,
		CreatedAt: time.Now(),
	}
	return tx.Create(&notif).Error
}
