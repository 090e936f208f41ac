package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/middlewares"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type BypassController struct {
	approvals *services.BypassApprovalEngine
}

func NewBypassController(approvals *services.BypassApprovalEngine) *BypassController {
	return &BypassController{approvals: approvals}
}

// Pending lists open bypass requests at the caller's outlet.
func (ctl *BypassController) Pending(c *gin.Context) {
	requests, err := ctl.approvals.PendingForAdmin(middlewares.SubjectID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "pending bypass requests", requests)
}

type decideRequest struct {
	Action services.DecisionAction `json:"action" binding:"required"`
	Note   string                  `json:"note"`
}

// Decide approves or rejects a bypass request.
func (ctl *BypassController) Decide(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	request, err := ctl.approvals.Decide(middlewares.SubjectID(c), id, req.Action, req.Note)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "bypass decided", request)
}
