package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
	"laundry-backend/realtime"
)

// PaymentService creates payment attempts and reconciles gateway state
// reports (webhook notifications and polled status checks) into local
// payment and order state.
type PaymentService struct {
	db      *gorm.DB
	gateway PaymentGateway
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway) *PaymentService {
	return &PaymentService{db: db, gateway: gateway}
}

// CreatePayment opens a QRIS charge for an order in WAITING_PAYMENT. The
// gateway call happens before the transaction; if the insert then loses a
// race the charge is orphaned at the gateway and expires on its own.
func (s *PaymentService) CreatePayment(customerID, orderID uint) (*models.Payment, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order %d not found", orderID)
		}
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, apperr.Forbidden("order belongs to another customer")
	}
	if order.Status != models.OrderWaitingPayment {
		return nil, apperr.InvalidState("order is %s, not awaiting payment", order.Status)
	}
	if order.PaymentDueAt != nil && time.Now().After(*order.PaymentDueAt) {
		return nil, apperr.InvalidState("payment window for this order has closed")
	}

	var existing int64
	if err := s.db.Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID,
			[]models.PaymentStatus{models.PaymentPending, models.PaymentPaid}).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.Conflict("order already has an open payment attempt")
	}

	var customer models.User
	if err := s.db.First(&customer, customerID).Error; err != nil {
		return nil, err
	}

	referenceID := "PAY-" + uuid.NewString()
	charge, err := s.gateway.ChargeQRIS(referenceID, order.Total, customer.Name, customer.Email)
	if err != nil {
		return nil, err
	}

	payment := models.Payment{
		OrderID:       orderID,
		Amount:        order.Total,
		Status:        models.PaymentPending,
		Method:        "qris",
		ReferenceID:   referenceID,
		TransactionID: charge.TransactionID,
		QRCodeURL:     charge.QRCodeURL,
		ExpiredAt:     charge.ExpiresAt,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&models.Payment{}).
			Where("order_id = ? AND status IN ?", orderID,
				[]models.PaymentStatus{models.PaymentPending, models.PaymentPaid}).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.Conflict("order already has an open payment attempt")
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// WebhookPayload is the subset of the Midtrans notification body we act
// on. Everything else rides along in Raw for the audit column.
type WebhookPayload struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	FraudStatus       string `json:"fraud_status"`
	Raw               string `json:"-"`
}

// WebhookResult reports what the notification changed.
type WebhookResult struct {
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	OrderStatus   models.OrderStatus   `json:"order_status"`
}

// HandleNotification applies one gateway notification. Deliveries are
// retried by the gateway, so the whole path is idempotent: a payment
// already in PAID is never rewritten, and the order transition tolerates
// having already happened.
func (s *PaymentService) HandleNotification(payload WebhookPayload) (*WebhookResult, error) {
	if hasSignatureFields(payload) {
		if !s.gateway.ValidateSignature(payload.OrderID, payload.StatusCode, payload.GrossAmount, payload.SignatureKey) {
			return nil, apperr.Unauthorized("invalid notification signature")
		}
	}

	var result WebhookResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := findPaymentByReference(tx, payload.OrderID, payload.TransactionID)
		if err != nil {
			return err
		}

		next := mapTransactionStatus(payload.TransactionStatus, payment.Status)
		order, err := applyTransition(tx, payment, next, payload.Raw)
		if err != nil {
			return err
		}

		result.PaymentStatus = payment.Status
		result.OrderStatus = order.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncPending polls the gateway for every PENDING payment and applies
// whatever status it reports. Used by the background sync job.
func (s *PaymentService) SyncPending() (int, error) {
	var pending []models.Payment
	if err := s.db.Where("status = ?", models.PaymentPending).Find(&pending).Error; err != nil {
		return 0, err
	}

	changed := 0
	for i := range pending {
		status, err := s.gateway.CheckStatus(pending[i].ReferenceID)
		if err != nil {
			continue
		}
		next := mapTransactionStatus(status.TransactionStatus, pending[i].Status)
		if next == pending[i].Status {
			continue
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			payment := pending[i]
			_, err := applyTransition(tx, &payment, next, status.Raw)
			return err
		})
		if err == nil {
			changed++
		}
	}
	return changed, nil
}

// PaymentsForOrder returns the order's payment attempts, newest first.
func (s *PaymentService) PaymentsForOrder(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("order_id = ?", orderID).Order("created_at desc").Find(&payments).Error
	return payments, err
}

// applyTransition moves the payment to next and, on a transition into
// PAID, advances the order out of WAITING_PAYMENT. The payment update is
// conditional on the current status so replays and races collapse to a
// no-op.
func applyTransition(tx *gorm.DB, payment *models.Payment, next models.PaymentStatus, raw string) (*models.Order, error) {
	var order models.Order
	if err := tx.First(&order, payment.OrderID).Error; err != nil {
		return nil, err
	}

	if next == payment.Status || payment.Status == models.PaymentPaid {
		return &order, nil
	}

	now := time.Now()
	values := map[string]interface{}{
		"status":     next,
		"updated_at": now,
	}
	if raw != "" {
		values["raw_payload"] = raw
	}
	if next == models.PaymentPaid {
		values["paid_at"] = now
	}

	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, payment.Status).
		Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent delivery already applied this report.
		if err := tx.First(payment, payment.ID).Error; err != nil {
			return nil, err
		}
		return &order, nil
	}
	payment.Status = next
	if next == models.PaymentPaid {
		payment.PaidAt = &now
	}

	if next == models.PaymentPaid {
		err := advanceOrderWith(tx, order.ID,
			models.OrderWaitingPayment, models.OrderReadyToDeliver,
			map[string]interface{}{"paid_at": now})
		if err != nil && apperr.KindOf(err) != apperr.KindConflict {
			return nil, err
		}
		if err := tx.First(&order, order.ID).Error; err != nil {
			return nil, err
		}
		realtime.BroadcastPaymentUpdate(*payment, order)
		realtime.BroadcastOrderUpdate(order)
	} else {
		realtime.BroadcastPaymentUpdate(*payment, order)
	}

	return &order, nil
}

// mapTransactionStatus translates a gateway transaction status into the
// local payment status; unknown values leave the payment unchanged.
func mapTransactionStatus(s string, current models.PaymentStatus) models.PaymentStatus {
	switch strings.ToLower(s) {
	case "settlement", "capture", "success":
		return models.PaymentPaid
	case "pending":
		return models.PaymentPending
	case "deny", "cancel":
		return models.PaymentFailed
	case "expire":
		return models.PaymentExpired
	default:
		return current
	}
}

// hasSignatureFields reports whether the payload carries the signed
// triple at all. Local test posts without any of the four fields skip
// verification; a partially filled payload still must verify.
func hasSignatureFields(p WebhookPayload) bool {
	return p.OrderID != "" || p.StatusCode != "" || p.GrossAmount != "" || p.SignatureKey != ""
}

func findPaymentByReference(tx *gorm.DB, orderRef, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := tx.Where("reference_id = ?", orderRef).First(&payment).Error
	if err == nil {
		return &payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if transactionID != "" {
		err = tx.Where("transaction_id = ?", transactionID).First(&payment).Error
		if err == nil {
			return &payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, apperr.NotFound("no payment matches reference %q", orderRef)
}
