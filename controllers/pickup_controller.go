package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"laundry-backend/apperr"
	"laundry-backend/middlewares"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type PickupController struct {
	intake *services.OrderIntakeService
}

func NewPickupController(intake *services.OrderIntakeService) *PickupController {
	return &PickupController{intake: intake}
}

// Create opens a pickup request for the authenticated customer.
func (ctl *PickupController) Create(c *gin.Context) {
	var in services.PickupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	pickup, err := ctl.intake.CreatePickupRequest(middlewares.SubjectID(c), in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "pickup request created", pickup)
}

// Cancel cancels the caller's own pickup while still unclaimed.
func (ctl *PickupController) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	pickup, err := ctl.intake.CancelPickupRequest(middlewares.SubjectID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "pickup request canceled", pickup)
}

// Mine lists the caller's pickup requests.
func (ctl *PickupController) Mine(c *gin.Context) {
	pickups, err := ctl.intake.PickupsForCustomer(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "pickup requests", pickups)
}

// ForOutlet lists the caller's outlet's pickup requests.
func (ctl *PickupController) ForOutlet(c *gin.Context) {
	pickups, err := ctl.intake.PickupsForAdmin(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "pickup requests", pickups)
}

type approveRequest struct {
	Items []services.ApproveItemInput `json:"items" binding:"required"`
}

// Approve turns a pickup request into an order.
func (ctl *PickupController) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	order, err := ctl.intake.ApprovePickup(middlewares.SubjectID(c), id, req.Items)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "order created", order)
}

// pathID parses a numeric path parameter and writes the 400 itself on
// failure.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		utils.RespondError(c, apperr.InvalidInput("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}
