package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/middlewares"
	"laundry-backend/models"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type StationController struct {
	stations *services.StationWorkEngine
}

func NewStationController(stations *services.StationWorkEngine) *StationController {
	return &StationController{stations: stations}
}

// Pending lists claimable stations at the caller's outlet.
func (ctl *StationController) Pending(c *gin.Context) {
	stations, err := ctl.stations.PendingForWorker(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "pending stations", stations)
}

// Claim assigns the caller to the order's station of the given type.
func (ctl *StationController) Claim(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	stationType := models.StationType(c.Param("type"))

	station, err := ctl.stations.Claim(middlewares.SubjectID(c), stationType, orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "station claimed", station)
}

type completeRequest struct {
	Counts []services.StationCount `json:"counts" binding:"required"`
}

// Complete submits the caller's counts and closes the station when they
// match. A mismatch answers 409 with the diff set.
func (ctl *StationController) Complete(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	stationType := models.StationType(c.Param("type"))

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	station, err := ctl.stations.Complete(middlewares.SubjectID(c), stationType, orderID, req.Counts)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "station completed", station)
}

type bypassRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestBypass escalates a count mismatch to the outlet admins.
func (ctl *StationController) RequestBypass(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	stationType := models.StationType(c.Param("type"))

	var req bypassRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	request, err := ctl.stations.RequestBypass(middlewares.SubjectID(c), stationType, orderID, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "bypass requested", request)
}
