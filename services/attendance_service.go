package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
)

// AttendanceService tracks staff clock-in and clock-out. Drivers must
// hold an open attendance record for the day before they can claim
// tasks.
type AttendanceService struct {
	db *gorm.DB
}

func NewAttendanceService(db *gorm.DB) *AttendanceService {
	return &AttendanceService{db: db}
}

// ClockIn opens today's attendance record. Clocking in twice on the same
// day is a conflict; the unique index on (user_id, work_date) backs the
// check under concurrency.
func (s *AttendanceService) ClockIn(userID uint) (*models.Attendance, error) {
	now := time.Now()
	att := models.Attendance{
		UserID:    userID,
		WorkDate:  models.AttendanceDate(now),
		ClockInAt: &now,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Attendance{}).
			Where("user_id = ? AND work_date = ?", userID, att.WorkDate).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("already clocked in today")
		}
		return tx.Create(&att).Error
	})
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// ClockOut closes today's record. The conditional update refuses a
// second clock-out.
func (s *AttendanceService) ClockOut(userID uint) (*models.Attendance, error) {
	now := time.Now()
	workDate := models.AttendanceDate(now)

	var att models.Attendance
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND work_date = ?", userID, workDate).First(&att).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.InvalidState("not clocked in today")
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.Attendance{}).
			Where("id = ? AND clock_out_at IS NULL", att.ID).
			Updates(map[string]interface{}{
				"clock_out_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("already clocked out today")
		}
		return tx.First(&att, att.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// Today returns the caller's attendance record for today, if any.
func (s *AttendanceService) Today(userID uint) (*models.Attendance, error) {
	var att models.Attendance
	err := s.db.Where("user_id = ? AND work_date = ?", userID, models.AttendanceDate(time.Now())).
		First(&att).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no attendance record for today")
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}
