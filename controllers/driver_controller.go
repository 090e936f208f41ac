package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/middlewares"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type DriverController struct {
	dispatch *services.DriverDispatchEngine
}

func NewDriverController(dispatch *services.DriverDispatchEngine) *DriverController {
	return &DriverController{dispatch: dispatch}
}

// AvailablePickups lists pickups the driver's outlet has waiting.
func (ctl *DriverController) AvailablePickups(c *gin.Context) {
	pickups, err := ctl.dispatch.AvailablePickups(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "available pickups", pickups)
}

// ActiveTask returns the driver's current task, if any.
func (ctl *DriverController) ActiveTask(c *gin.Context) {
	task, err := ctl.dispatch.ActiveTask(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "active task", task)
}

// ClaimPickup takes a waiting pickup.
func (ctl *DriverController) ClaimPickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := ctl.dispatch.ClaimPickup(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "pickup claimed", task)
}

// StartTask moves an assigned task in progress.
func (ctl *DriverController) StartTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := ctl.dispatch.StartTask(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "task started", task)
}

// CancelPickup abandons an assigned pickup task.
func (ctl *DriverController) CancelPickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := ctl.dispatch.CancelPickup(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "task canceled", task)
}

// PickedUp marks the laundry collected from the customer.
func (ctl *DriverController) PickedUp(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := ctl.dispatch.PickupPickedUp(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "pickup collected", task)
}

// ArrivedOutlet closes the pickup leg at the outlet.
func (ctl *DriverController) ArrivedOutlet(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := ctl.dispatch.PickupArrivedOutlet(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "arrived at outlet", task)
}

// ClaimDelivery takes a paid order out for delivery.
func (ctl *DriverController) ClaimDelivery(c *gin.Context) {
	id, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	task, err := ctl.dispatch.ClaimDelivery(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "delivery claimed", task)
}

// CompleteDelivery hands the order to the customer.
func (ctl *DriverController) CompleteDelivery(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := ctl.dispatch.CompleteDelivery(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "delivery completed", task)
}
