package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
)

// openBypass drives a station into WAITING_BYPASS with one diff
// (expected 3, counted 2) and returns the request.
func openBypass(t *testing.T, db *gorm.DB, workerID uint, orderID uint, itemID uint) *models.BypassRequest {
	t.Helper()

	engine := NewStationWorkEngine(db)
	_, err := engine.Claim(workerID, models.StationWashing, orderID)
	require.NoError(t, err)

	_, err = engine.Complete(workerID, models.StationWashing, orderID, []StationCount{
		{LaundryItemID: itemID, Qty: 2},
	})
	require.True(t, apperr.Is(err, apperr.KindMismatch))

	request, err := engine.RequestBypass(workerID, models.StationWashing, orderID, "shirts missing")
	require.NoError(t, err)
	return request
}

func TestDecideApproveMakesCountsAuthoritative(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	admin := seedUser(t, db, models.RoleOutletAdmin, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	request := openBypass(t, db, worker.ID, order.ID, item.ID)

	approvals := NewBypassApprovalEngine(db)
	decided, err := approvals.Decide(admin.ID, request.ID, ActionApprove, "verified at the rack")
	require.NoError(t, err)

	assert.Equal(t, models.BypassApproved, decided.Status)
	require.NotNil(t, decided.DecidedByID)
	assert.Equal(t, admin.ID, *decided.DecidedByID)
	assert.NotNil(t, decided.DecidedAt)

	station := stationByType(t, db, order.ID, models.StationWashing)
	assert.Equal(t, models.StationCompleted, station.Status)
	assert.NotNil(t, station.CompletedAt)
	assert.Equal(t, models.OrderIroning, orderStatus(t, db, order.ID))

	var count models.StationItemCount
	require.NoError(t, db.Where("order_station_id = ? AND laundry_item_id = ?", station.ID, item.ID).
		First(&count).Error)
	assert.Equal(t, 2, count.Qty, "approved diff quantity becomes authoritative")

	// The requesting worker was notified.
	var notifs int64
	db.Model(&models.Notification{}).Where("user_id = ?", worker.ID).Count(&notifs)
	assert.EqualValues(t, 1, notifs)
}

func TestDecideRejectReturnsStationToRework(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	admin := seedUser(t, db, models.RoleOutletAdmin, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	request := openBypass(t, db, worker.ID, order.ID, item.ID)

	approvals := NewBypassApprovalEngine(db)
	decided, err := approvals.Decide(admin.ID, request.ID, ActionReject, "recount please")
	require.NoError(t, err)
	assert.Equal(t, models.BypassRejected, decided.Status)

	station := stationByType(t, db, order.ID, models.StationWashing)
	assert.Equal(t, models.StationInProgress, station.Status)
	require.NotNil(t, station.AssignedWorkerID)
	assert.Equal(t, worker.ID, *station.AssignedWorkerID, "assignment survives rejection")
	assert.Equal(t, models.OrderWashing, orderStatus(t, db, order.ID))

	// The previously recorded count is untouched.
	var count models.StationItemCount
	require.NoError(t, db.Where("order_station_id = ? AND laundry_item_id = ?", station.ID, item.ID).
		First(&count).Error)
	assert.Equal(t, 2, count.Qty)
}

func TestDecideTwiceInvalid(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	admin := seedUser(t, db, models.RoleOutletAdmin, &outlet.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	request := openBypass(t, db, worker.ID, order.ID, item.ID)

	approvals := NewBypassApprovalEngine(db)
	_, err := approvals.Decide(admin.ID, request.ID, ActionApprove, "")
	require.NoError(t, err)

	_, err = approvals.Decide(admin.ID, request.ID, ActionReject, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	_, err = approvals.Decide(admin.ID, request.ID+99, ActionApprove, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = approvals.Decide(admin.ID, request.ID, "MAYBE", "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestPendingForAdminScopesToOutlet(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	other := &models.Outlet{Name: "Outlet B", Address: "Jl. Mawar 2"}
	require.NoError(t, db.Create(other).Error)

	worker := seedUser(t, db, models.RoleWorker, &outlet.ID)
	admin := seedUser(t, db, models.RoleOutletAdmin, &other.ID)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, item := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWashing)

	openBypass(t, db, worker.ID, order.ID, item.ID)

	approvals := NewBypassApprovalEngine(db)
	requests, err := approvals.PendingForAdmin(admin.ID)
	require.NoError(t, err)
	assert.Empty(t, requests, "admin of another outlet sees nothing")

	sameOutletAdmin := seedUser(t, db, models.RoleOutletAdmin, &outlet.ID)
	requests, err = approvals.PendingForAdmin(sameOutletAdmin.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Len(t, requests[0].Diffs, 1)
}
