package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
)

// NotificationService reads and acknowledges in-app notifications.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(userID uint) ([]models.Notification, error) {
	var notifs []models.Notification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(100).
		Find(&notifs).Error
	return notifs, err
}

// MarkRead stamps one of the user's notifications as read. Re-reading an
// already read notification is a no-op.
func (s *NotificationService) MarkRead(userID, notifID uint) (*models.Notification, error) {
	var notif models.Notification
	err := s.db.Where("id = ? AND user_id = ?", notifID, userID).First(&notif).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("notification %d not found", notifID)
	}
	if err != nil {
		return nil, err
	}

	if notif.ReadAt == nil {
		now := time.Now()
		if err := s.db.Model(&notif).Update("read_at", now).Error; err != nil {
			return nil, err
		}
		notif.ReadAt = &now
	}
	return &notif, nil
}
