package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-backend/middlewares"
	"laundry-backend/services"
	"laundry-backend/utils"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

type createPaymentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// Create opens a QRIS charge for the caller's order.
func (ctl *PaymentController) Create(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	payment, err := ctl.payments.CreatePayment(middlewares.SubjectID(c), req.OrderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "payment created", payment)
}

// ForOrder lists an order's payment attempts.
func (ctl *PaymentController) ForOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	payments, err := ctl.payments.PaymentsForOrder(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "payments", payments)
}

// Webhook receives gateway notifications. The raw body is kept verbatim
// for the payment's audit column before decoding.
func (ctl *PaymentController) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}

	var payload services.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.RespondErrorWithStatus(c, http.StatusBadRequest, err)
		return
	}
	payload.Raw = string(body)

	result, err := ctl.payments.HandleNotification(payload)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"paymentStatus": result.PaymentStatus,
		"orderStatus":   result.OrderStatus,
	})
}
