package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-backend/apperr"
	"laundry-backend/models"
)

func TestClockInOutOnceADay(t *testing.T) {
	db := setupTestDB(t)
	outlet := seedOutlet(t, db)
	driver := seedUser(t, db, models.RoleDriver, &outlet.ID)

	svc := NewAttendanceService(db)

	_, err := svc.Today(driver.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	att, err := svc.ClockIn(driver.ID)
	require.NoError(t, err)
	assert.NotNil(t, att.ClockInAt)
	assert.Nil(t, att.ClockOutAt)

	_, err = svc.ClockIn(driver.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	att, err = svc.ClockOut(driver.ID)
	require.NoError(t, err)
	assert.NotNil(t, att.ClockOutAt)

	_, err = svc.ClockOut(driver.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	// Clocked out means off duty for dispatch.
	customer := seedUser(t, db, models.RoleCustomer, nil)
	pickup := seedPickup(t, db, customer.ID, outlet.ID, models.PickupWaitingDriver)
	engine := NewDriverDispatchEngine(db)
	_, err = engine.ClaimPickup(driver.ID, pickup.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
