package models

import "time"

// Attendance is the per-employee per-day shift record. Drivers may only
// claim work while clocked in (clock-in set, clock-out unset) on the
// current day.
type Attendance struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_attendance_day" json:"user_id"`
	User       User       `gorm:"foreignKey:UserID" json:"-"`
	WorkDate   string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_attendance_day" json:"work_date"`
	ClockInAt  *time.Time `json:"clock_in_at,omitempty"`
	ClockOutAt *time.Time `json:"clock_out_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

// AttendanceDate formats t the way WorkDate rows are stored.
func AttendanceDate(t time.Time) string {
	return t.Format("2006-01-02")
}
