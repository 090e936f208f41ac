package services

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
)

// fakeGateway stands in for Midtrans: charges always succeed and status
// checks answer from a scripted map. The signature scheme is the real
// one so webhook tests exercise the verification path.
type fakeGateway struct {
	serverKey string
	statuses  map[string]string
	charges   int
	failNext  bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{serverKey: "test-server-key", statuses: map[string]string{}}
}

func (g *fakeGateway) ChargeQRIS(referenceID string, amount float64, name, email string) (*ChargeResult, error) {
	if g.failNext {
		g.failNext = false
		return nil, apperr.Upstream(nil, "gateway down")
	}
	g.charges++
	exp := time.Now().Add(15 * time.Minute)
	return &ChargeResult{
		TransactionID: "trx-" + referenceID,
		QRCodeURL:     "https://api.sandbox.midtrans.com/qr/" + referenceID,
		ExpiresAt:     &exp,
	}, nil
}

func (g *fakeGateway) CheckStatus(referenceID string) (*StatusResult, error) {
	status, ok := g.statuses[referenceID]
	if !ok {
		return nil, apperr.Upstream(nil, "unknown transaction")
	}
	return &StatusResult{TransactionID: "trx-" + referenceID, TransactionStatus: status}, nil
}

func (g *fakeGateway) ValidateSignature(orderRef, statusCode, grossAmount, signature string) bool {
	return g.sign(orderRef, statusCode, grossAmount) == signature
}

func (g *fakeGateway) sign(orderRef, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderRef + statusCode + grossAmount + g.serverKey))
	return hex.EncodeToString(sum[:])
}

func seedPayableOrder(t *testing.T, db *gorm.DB) (*models.Order, *models.User) {
	t.Helper()
	outlet := seedOutlet(t, db)
	customer := seedUser(t, db, models.RoleCustomer, nil)
	order, _ := seedOrder(t, db, outlet.ID, customer.ID, models.OrderWaitingPayment)
	due := time.Now().Add(24 * time.Hour)
	require.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"total":          64000.0,
		"payment_due_at": due,
	}).Error)
	order.Total = 64000
	return order, customer
}

func TestCreatePaymentOpensPendingAttempt(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewPaymentService(db, gateway)
	order, customer := seedPayableOrder(t, db)

	payment, err := svc.CreatePayment(customer.ID, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, order.Total, payment.Amount)
	assert.Contains(t, payment.ReferenceID, "PAY-")
	assert.NotEmpty(t, payment.QRCodeURL)
	assert.Equal(t, 1, gateway.charges)

	// A second attempt while one is open is refused without charging.
	_, err = svc.CreatePayment(customer.ID, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 1, gateway.charges)
}

func TestCreatePaymentGuards(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewPaymentService(db, gateway)
	order, customer := seedPayableOrder(t, db)

	stranger := seedUser(t, db, models.RoleCustomer, nil)
	_, err := svc.CreatePayment(stranger.ID, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// Past the due date.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(order).Update("payment_due_at", past).Error)
	_, err = svc.CreatePayment(customer.ID, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	// Wrong lifecycle stage.
	require.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"status":         models.OrderWashing,
		"payment_due_at": time.Now().Add(time.Hour),
	}).Error)
	_, err = svc.CreatePayment(customer.ID, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	// Gateway failure surfaces as Upstream, nothing persisted.
	require.NoError(t, db.Model(order).Update("status", models.OrderWaitingPayment).Error)
	gateway.failNext = true
	_, err = svc.CreatePayment(customer.ID, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestWebhookSettlementPaysOrderIdempotently(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewPaymentService(db, gateway)
	order, customer := seedPayableOrder(t, db)

	payment, err := svc.CreatePayment(customer.ID, order.ID)
	require.NoError(t, err)

	payload := WebhookPayload{
		OrderID:           payment.ReferenceID,
		TransactionID:     payment.TransactionID,
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "64000.00",
	}
	payload.SignatureKey = gateway.sign(payload.OrderID, payload.StatusCode, payload.GrossAmount)

	result, err := svc.HandleNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, result.PaymentStatus)
	assert.Equal(t, models.OrderReadyToDeliver, result.OrderStatus)

	var reloaded models.Payment
	require.NoError(t, db.First(&reloaded, payment.ID).Error)
	assert.NotNil(t, reloaded.PaidAt)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.NotNil(t, reloadedOrder.PaidAt)

	// The gateway retries deliveries; the replay changes nothing.
	result, err = svc.HandleNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, result.PaymentStatus)
	assert.Equal(t, models.OrderReadyToDeliver, result.OrderStatus)

	firstPaidAt := *reloaded.PaidAt
	require.NoError(t, db.First(&reloaded, payment.ID).Error)
	assert.WithinDuration(t, firstPaidAt, *reloaded.PaidAt, time.Millisecond)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewPaymentService(db, gateway)
	order, customer := seedPayableOrder(t, db)

	payment, err := svc.CreatePayment(customer.ID, order.ID)
	require.NoError(t, err)

	payload := WebhookPayload{
		OrderID:           payment.ReferenceID,
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "64000.00",
		SignatureKey:      "not-the-signature",
	}
	_, err = svc.HandleNotification(payload)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	var reloaded models.Payment
	require.NoError(t, db.First(&reloaded, payment.ID).Error)
	assert.Equal(t, models.PaymentPending, reloaded.Status)
}

func TestWebhookStatusMapping(t *testing.T) {
	cases := []struct {
		gateway string
		want    models.PaymentStatus
		order   models.OrderStatus
	}{
		{"expire", models.PaymentExpired, models.OrderWaitingPayment},
		{"deny", models.PaymentFailed, models.OrderWaitingPayment},
		{"cancel", models.PaymentFailed, models.OrderWaitingPayment},
		{"pending", models.PaymentPending, models.OrderWaitingPayment},
		{"somefuturestatus", models.PaymentPending, models.OrderWaitingPayment},
	}
	for _, tc := range cases {
		t.Run(tc.gateway, func(t *testing.T) {
			db := setupTestDB(t)
			gateway := newFakeGateway()
			svc := NewPaymentService(db, gateway)
			order, customer := seedPayableOrder(t, db)

			payment, err := svc.CreatePayment(customer.ID, order.ID)
			require.NoError(t, err)

			payload := WebhookPayload{
				OrderID:           payment.ReferenceID,
				TransactionStatus: tc.gateway,
				StatusCode:        "200",
				GrossAmount:       "64000.00",
			}
			payload.SignatureKey = gateway.sign(payload.OrderID, payload.StatusCode, payload.GrossAmount)

			result, err := svc.HandleNotification(payload)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.PaymentStatus)
			assert.Equal(t, tc.order, result.OrderStatus)
		})
	}
}

func TestWebhookUnknownReferenceNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPaymentService(db, newFakeGateway())

	_, err := svc.HandleNotification(WebhookPayload{TransactionStatus: "settlement"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSyncPendingAppliesGatewayState(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewPaymentService(db, gateway)
	order, customer := seedPayableOrder(t, db)

	payment, err := svc.CreatePayment(customer.ID, order.ID)
	require.NoError(t, err)

	gateway.statuses[payment.ReferenceID] = "settlement"

	changed, err := svc.SyncPending()
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, models.OrderReadyToDeliver, orderStatus(t, db, order.ID))

	// Nothing left pending.
	changed, err = svc.SyncPending()
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}
