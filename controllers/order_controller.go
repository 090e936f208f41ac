package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/apperr"
	"laundry-backend/middlewares"
	"laundry-backend/models"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type OrderController struct {
	intake *services.OrderIntakeService
}

func NewOrderController(intake *services.OrderIntakeService) *OrderController {
	return &OrderController{intake: intake}
}

// Process weighs and prices an arrived order.
func (ctl *OrderController) Process(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var in services.ProcessInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	order, err := ctl.intake.ProcessOrder(middlewares.SubjectID(c), id, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "order processed", order)
}

// Cancel cancels a pre-payment order.
func (ctl *OrderController) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := ctl.intake.CancelOrder(id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "order canceled", order)
}

// Detail returns one order with items, stations and payments. Customers
// may only see their own orders.
func (ctl *OrderController) Detail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := ctl.intake.OrderDetail(id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if role, _ := c.Get("role"); role == models.RoleCustomer && order.CustomerID != middlewares.SubjectID(c) {
		utils.RespondError(c, apperr.Forbidden("order belongs to another customer"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "order", order)
}

// List returns orders scoped by the caller's role: customers see their
// own, outlet staff see their outlet's (filterable by status).
func (ctl *OrderController) List(c *gin.Context) {
	userID := middlewares.SubjectID(c)
	role, _ := c.Get("role")

	var (
		orders []models.Order
		err    error
	)
	if role == models.RoleCustomer {
		orders, err = ctl.intake.OrdersForCustomer(userID)
	} else {
		orders, err = ctl.intake.OrdersForAdmin(userID, models.OrderStatus(c.Query("status")))
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "orders", orders)
}
