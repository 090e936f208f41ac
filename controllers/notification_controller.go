package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/middlewares"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// List returns the caller's notifications.
func (ctl *NotificationController) List(c *gin.Context) {
	notifs, err := ctl.notifications.ListForUser(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "notifications", notifs)
}

// MarkRead acknowledges one notification.
func (ctl *NotificationController) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	notif, err := ctl.notifications.MarkRead(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "notification read", notif)
}
