package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/middlewares"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type AttendanceController struct {
	attendance *services.AttendanceService
}

func NewAttendanceController(attendance *services.AttendanceService) *AttendanceController {
	return &AttendanceController{attendance: attendance}
}

func (ctl *AttendanceController) ClockIn(c *gin.Context) {
	att, err := ctl.attendance.ClockIn(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "clocked in", att)
}

func (ctl *AttendanceController) ClockOut(c *gin.Context) {
	att, err := ctl.attendance.ClockOut(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "clocked out", att)
}

func (ctl *AttendanceController) Today(c *gin.Context) {
	att, err := ctl.attendance.Today(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "attendance", att)
}
