package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-backend/apperr"
	"laundry-backend/models"
	"laundry-backend/realtime"
)

// StationWorkEngine runs the claim/complete/bypass protocol on a single
// order station. Every operation is one short transaction; concurrency
// control is the conditional update plus the in-transaction guard on the
// worker's open stations.
type StationWorkEngine struct {
	db *gorm.DB
}

func NewStationWorkEngine(db *gorm.DB) *StationWorkEngine {
	return &StationWorkEngine{db: db}
}

// StationCount is one counted quantity submitted by a worker.
type StationCount struct {
	LaundryItemID uint `json:"laundry_item_id" binding:"required"`
	Qty           int  `json:"qty"`
}

// StationDiff is one discrepancy between expected and counted quantity.
type StationDiff struct {
	LaundryItemID uint `json:"laundry_item_id"`
	PrevQty       int  `json:"prev_qty"`
	CurrentQty    int  `json:"current_qty"`
}

var openStationStatuses = []models.StationStatus{
	models.StationInProgress,
	models.StationWaitingBypass,
}

// Claim gives the worker exclusive ownership of a pending station. A
// worker may hold only one open station system-wide.
func (e *StationWorkEngine) Claim(workerID uint, stationType models.StationType, orderID uint) (*models.OrderStation, error) {
	if !stationType.Valid() {
		return nil, apperr.InvalidInput("unknown station type %q", stationType)
	}

	var claimed models.OrderStation
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.OrderStation{}).
			Where("assigned_worker_id = ? AND status IN ?", workerID, openStationStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.Conflict("worker already has an open station")
		}

		station, err := findStation(tx, orderID, stationType)
		if err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.OrderStation{}).
			Where("id = ? AND status = ? AND assigned_worker_id IS NULL", station.ID, models.StationPending).
			Updates(map[string]interface{}{
				"assigned_worker_id": workerID,
				"status":             models.StationInProgress,
				"started_at":         gorm.Expr("COALESCE(started_at, ?)", now),
				"updated_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("station is no longer available")
		}

		return tx.First(&claimed, station.ID).Error
	})
	if err != nil {
		return nil, err
	}

	realtime.BroadcastStationUpdate(claimed)
	return &claimed, nil
}

// Complete records the worker's counts and, when every count matches the
// order's expected quantities, closes the station and advances the order
// one stage. Any non-zero diff aborts with a mismatch carrying the full
// diff set; nothing but the counts themselves is persisted in that case.
func (e *StationWorkEngine) Complete(workerID uint, stationType models.StationType, orderID uint, counts []StationCount) (*models.OrderStation, error) {
	if !stationType.Valid() {
		return nil, apperr.InvalidInput("unknown station type %q", stationType)
	}

	var completed models.OrderStation
	var mismatch error
	err := e.db.Transaction(func(tx *gorm.DB) error {
		station, err := findStation(tx, orderID, stationType)
		if err != nil {
			return err
		}
		if err := guardAssignedWorker(station, workerID); err != nil {
			return err
		}

		expected, err := expectedQuantities(tx, orderID)
		if err != nil {
			return err
		}
		if err := upsertCounts(tx, station.ID, expected, counts); err != nil {
			return err
		}

		diffs, err := stationDiffs(tx, station.ID, expected)
		if err != nil {
			return err
		}
		if len(diffs) > 0 {
			// Commit the counts themselves; a later bypass request
			// snapshots its diffs from them.
			mismatch = apperr.Mismatch(diffs, "counted quantities do not match the order")
			return nil
		}

		now := time.Now()
		res := tx.Model(&models.OrderStation{}).
			Where("id = ? AND status IN ? AND assigned_worker_id = ?", station.ID, openStationStatuses, workerID).
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

		// A matching recount supersedes a bypass still waiting on a
		// decision; otherwise the request would sit undecidable on a
		// completed station.
		res = tx.Model(&models.BypassRequest{}).
			Where("order_station_id = ? AND status = ?", station.ID, models.BypassRequested).
			Updates(map[string]interface{}{
				"status":     models.BypassRejected,
				"admin_note": "superseded by a matching recount",
				"decided_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}

		from, to := nextStageForStation(stationType)
		if err := advanceOrder(tx, orderID, from, to); err != nil {
			return err
		}

		return tx.Preload("ItemCounts").First(&completed, station.ID).Error
	})
	if err != nil {
		return nil, err
	}
	if mismatch != nil {
		return nil, mismatch
	}

	realtime.BroadcastStationUpdate(completed)
	return &completed, nil
}

// RequestBypass escalates a count mismatch to the outlet admins. The diff
// snapshot is captured at request time; a second request while one is
// still open returns the open request instead of creating a duplicate.
func (e *StationWorkEngine) RequestBypass(workerID uint, stationType models.StationType, orderID uint, reason string) (*models.BypassRequest, error) {
	if !stationType.Valid() {
		return nil, apperr.InvalidInput("unknown station type %q", stationType)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.InvalidInput("bypass reason must not be empty")
	}

	var request models.BypassRequest
	var created bool
	err := e.db.Transaction(func(tx *gorm.DB) error {
		station, err := findStation(tx, orderID, stationType)
		if err != nil {
			return err
		}
		if err := guardAssignedWorker(station, workerID); err != nil {
			return err
		}

		err = tx.Preload("Diffs").
			Where("order_station_id = ? AND status = ?", station.ID, models.BypassRequested).
			First(&request).Error
		if err == nil {
			return nil // open request already exists, hand it back
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		expected, err := expectedQuantities(tx, orderID)
		if err != nil {
			return err
		}
		diffs, err := stationDiffs(tx, station.ID, expected)
		if err != nil {
			return err
		}
		if len(diffs) == 0 {
			return apperr.InvalidState("counts match the order; nothing to bypass")
		}

		now := time.Now()
		request = models.BypassRequest{
			OrderStationID: station.ID,
			Reason:         strings.TrimSpace(reason),
			Status:         models.BypassRequested,
			RequestedByID:  workerID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		for _, d := range diffs {
			request.Diffs = append(request.Diffs, models.BypassDiff{
				LaundryItemID: d.LaundryItemID,
				PrevQty:       d.PrevQty,
				CurrentQty:    d.CurrentQty,
				CreatedAt:     now,
			})
		}
		if err := tx.Create(&request).Error; err != nil {
			return err
		}

		res := tx.Model(&models.OrderStation{}).
			Where("id = ? AND status = ? AND assigned_worker_id = ?", station.ID, models.StationInProgress, workerID).
			Updates(map[string]interface{}{
				"status":     models.StationWaitingBypass,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("station changed concurrently")
		}

		if err := notifyOutletAdmins(tx, station.OrderID, request); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		realtime.BroadcastBypassRequested(request)
	}
	return &request, nil
}

// PendingForWorker lists claimable stations at the worker's outlet. A
// station is claimable when it is PENDING and its order has reached the
// matching stage.
func (e *StationWorkEngine) PendingForWorker(workerID uint) ([]models.OrderStation, error) {
	var worker models.User
	if err := e.db.First(&worker, workerID).Error; err != nil {
		return nil, apperr.NotFound("worker %d not found", workerID)
	}
	if worker.OutletID == nil {
		return nil, apperr.Forbidden("worker has no outlet assignment")
	}

	var stations []models.OrderStation
	err := e.db.
		Joins("JOIN orders ON orders.id = order_stations.order_id").
		Where("order_stations.status = ? AND orders.outlet_id = ?", models.StationPending, *worker.OutletID).
		Where("orders.status IN ?", []models.OrderStatus{
			models.OrderWashing, models.OrderIroning, models.OrderPacking,
		}).
		Order("order_stations.created_at asc").
		Find(&stations).Error
	return stations, err
}

func findStation(tx *gorm.DB, orderID uint, stationType models.StationType) (*models.OrderStation, error) {
	var station models.OrderStation
	err := tx.Where("order_id = ? AND station_type = ?", orderID, stationType).First(&station).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no %s station for order %d", stationType, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &station, nil
}

func guardAssignedWorker(station *models.OrderStation, workerID uint) error {
	if station.AssignedWorkerID == nil || *station.AssignedWorkerID != workerID {
		return apperr.Forbidden("station is not assigned to this worker")
	}
	if !station.Status.Open() {
		return apperr.InvalidState("station is %s", station.Status)
	}
	return nil
}

// expectedQuantities returns the order's item list as itemID -> expected qty.
func expectedQuantities(tx *gorm.DB, orderID uint) (map[uint]int, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	expected := make(map[uint]int, len(items))
	for _, it := range items {
		expected[it.LaundryItemID] = it.Qty
	}
	return expected, nil
}

func upsertCounts(tx *gorm.DB, stationID uint, expected map[uint]int, counts []StationCount) error {
	now := time.Now()
	for _, cnt := range counts {
		if cnt.Qty < 0 {
			return apperr.InvalidInput("count for item %d must not be negative", cnt.LaundryItemID)
		}
		if _, ok := expected[cnt.LaundryItemID]; !ok {
			return apperr.InvalidInput("item %d is not part of this order", cnt.LaundryItemID)
		}
	}
	for _, cnt := range counts {
		row := models.StationItemCount{
			OrderStationID: stationID,
			LaundryItemID:  cnt.LaundryItemID,
			Qty:            cnt.Qty,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_station_id"}, {Name: "laundry_item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"qty": cnt.Qty, "updated_at": now}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// stationDiffs compares the recorded counts against the expected
// quantities; an item never counted is treated as counted zero.
func stationDiffs(tx *gorm.DB, stationID uint, expected map[uint]int) ([]StationDiff, error) {
	var rows []models.StationItemCount
	if err := tx.Where("order_station_id = ?", stationID).Find(&rows).Error; err != nil {
		return nil, err
	}
	counted := make(map[uint]int, len(rows))
	for _, r := range rows {
		counted[r.LaundryItemID] = r.Qty
	}

	var diffs []StationDiff
	for itemID, exp := range expected {
		if got := counted[itemID]; got != exp {
			diffs = append(diffs, StationDiff{
				LaundryItemID: itemID,
				PrevQty:       exp,
				CurrentQty:    got,
			})
		}
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].LaundryItemID < diffs[j].LaundryItemID })
	return diffs, nil
}

func notifyOutletAdmins(tx *gorm.DB, orderID uint, request models.BypassRequest) error {
	var order models.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		return err
	}

	var admins []models.User
	if err := tx.Where("role = ? AND outlet_id = ?", models.RoleOutletAdmin, order.OutletID).
		Find(&admins).Error; err != nil {
		return err
	}

	title := "Bypass requested"
	for _, admin := range admins {
		adminID := admin.ID
		notif := models.Notification{
			UserID:    &adminID,
			Title:     &title,
			Message:   "A station on order " + order.OrderNumber + " reported a count mismatch and requested a bypass.",
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&notif).Error; err != nil {
			return err
		}
	}
	return nil
}
