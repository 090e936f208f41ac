package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-backend/apperr"
	"laundry-backend/models"
)

func TestClaimAssignsWorkerAndStartsStation(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, _ := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	station, err := engine.Claim(worker.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StationInProgress, station.Status)
	require.NotNil(t, station.AssignedWorkerID)
	assert.Equal(t, worker.ID, *station.AssignedWorkerID)
	assert.NotNil(t, station.StartedAt)
}

func TestClaimRejectsBusyWorker(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	first, _ := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)
	second, _ := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(worker.ID, models.StationWashing, first.ID)
	require.NoError(t, err)

	_, err = engine.Claim(worker.ID, models.StationWashing, second.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "expected conflict, got %v", err)
}

func TestClaimRejectsAlreadyClaimedStation(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	first := seedUser(t, db, models.RoleWorker, &outlet.ID)
	second := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, _ := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(first.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	_, err = engine.Claim(second.ID, models.StationWashing, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCompleteWithMatchingCountsAdvancesOneStage(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(worker.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	station, err := engine.Complete(worker.ID, models.StationWashing, order.ID, []StationCount{
		{LaundryItemID: item.ID, Qty: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StationCompleted, station.Status)
	assert.NotNil(t, station.CompletedAt)
	assert.Equal(t, models.OrderIroning, orderStatus(t, db, order.ID))

	// A second completion finds the station closed.
	_, err = engine.Complete(worker.ID, models.StationWashing, order.ID, []StationCount{
		{LaundryItemID: item.ID, Qty: 3},
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "expected invalid state, got %v", err)
	assert.Equal(t, models.OrderIroning, orderStatus(t, db, order.ID))
}

func TestCompleteMismatchKeepsStationOpen(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(worker.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	_, err = engine.Complete(worker.ID, models.StationWashing, order.ID, []StationCount{
		{LaundryItemID: item.ID, Qty: 2},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindMismatch))

	diffs, ok := apperr.DataOf(err).([]StationDiff)
	require.True(t, ok, "mismatch should carry the diff set")
	require.Len(t, diffs, 1)
	assert.Equal(t, item.ID, diffs[0].LaundryItemID)
	assert.Equal(t, 3, diffs[0].PrevQty)
	assert.Equal(t, 2, diffs[0].CurrentQty)

	station := stationByType(t, db, order.ID, models.StationWashing)
	assert.Equal(t, models.StationInProgress, station.Status)
	assert.Equal(t, models.OrderWashing, orderStatus(t, db, order.ID))
}

func TestCompleteUncountedItemTreatedAsZero(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(worker.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	_, err = engine.Complete(worker.ID, models.StationWashing, order.ID, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindMismatch))

	diffs := apperr.DataOf(err).([]StationDiff)
	require.Len(t, diffs, 1)
	assert.Equal(t, item.ID, diffs[0].LaundryItemID)
	assert.Equal(t, 0, diffs[0].CurrentQty)
}

func TestCompleteByOtherWorkerForbidden(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	owner := seedUser(t, db, models.RoleWorker, &outlet.ID)
	other := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(owner.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	_, err = engine.Complete(other.ID, models.StationWashing, order.ID, []StationCount{
		{LaundryItemID: item.ID, Qty: 3},
	})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestRequestBypassIsIdempotentWhileOpen(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	admin := seedUser(t, db, models.RoleOutletAdmin, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(worker.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	_, err = engine.Complete(worker.ID, models.StationWashing, order.ID, []StationCount{
		{LaundryItemID: item.ID, Qty: 2},
	})
	require.True(t, apperr.Is(err, apperr.KindMismatch))

	first, err := engine.RequestBypass(worker.ID, models.StationWashing, order.ID, "two shirts missing")
	require.NoError(t, err)
	require.Len(t, first.Diffs, 1)
	assert.Equal(t, models.BypassRequested, first.Status)

	station := stationByType(t, db, order.ID, models.StationWashing)
	assert.Equal(t, models.StationWaitingBypass, station.Status)

	second, err := engine.RequestBypass(worker.ID, models.StationWashing, order.ID, "still missing")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.BypassRequest{}).Count(&count)
	assert.EqualValues(t, 1, count)

	// The outlet admin got a notification row exactly once.
	var notifs int64
	db.Model(&models.Notification{}).Where("user_id = ?", admin.ID).Count(&notifs)
	assert.EqualValues(t, 1, notifs)
}

func TestMatchingRecountSupersedesOpenBypass(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	admin := seedUser(t, db, models.RoleOutletAdmin, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	request := openBypass(t, db, worker.ID, order.ID, item.ID)

	// The missing shirts turn up; the recount matches and completes the
	// station from WAITING_BYPASS.
	engine := NewStationWorkEngine(db)
	station, err := engine.Complete(worker.ID, models.StationWashing, order.ID, []StationCount{
		{LaundryItemID: item.ID, Qty: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StationCompleted, station.Status)
	assert.Equal(t, models.OrderIroning, orderStatus(t, db, order.ID))

	// The open bypass is closed with it, not left undecidable.
	var reloaded models.BypassRequest
	require.NoError(t, db.First(&reloaded, request.ID).Error)
	assert.Equal(t, models.BypassRejected, reloaded.Status)
	assert.Nil(t, reloaded.DecidedByID)
	assert.NotNil(t, reloaded.DecidedAt)

	approvals := NewBypassApprovalEngine(db)
	pending, err := approvals.PendingForAdmin(admin.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = approvals.Decide(admin.ID, request.ID, ActionApprove, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestRequestBypassWithoutDiffInvalid(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(worker.ID, models.StationWashing, order.ID)
	require.NoError(t, err)

	// Matching counts recorded but station intentionally not completed.
	require.NoError(t, db.Create(&models.StationItemCount{
		OrderStationID: stationByType(t, db, order.ID, models.StationWashing).ID,
		LaundryItemID:  item.ID,
		Qty:            3,
	}).Error)

	_, err = engine.RequestBypass(worker.ID, models.StationWashing, order.ID, "no reason really")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	_, err = engine.RequestBypass(worker.ID, models.StationWashing, order.ID, "  ")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}
