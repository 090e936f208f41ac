package services

import (
	"crypto/sha512"
	"encoding/hex"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"

	"laundry-backend/apperr"
	"laundry-backend/config"
)

// ChargeResult is what the gateway hands back for a successful charge.
type ChargeResult struct {
	TransactionID string
	QRCodeURL     string
	ExpiresAt     *time.Time
	Raw           string
}

// StatusResult is the gateway's current view of a transaction.
type StatusResult struct {
	TransactionID     string
	TransactionStatus string
	Raw               string
}

// PaymentGateway abstracts the payment provider so payment logic can be
// tested against a fake.
type PaymentGateway interface {
	ChargeQRIS(referenceID string, amount float64, customerName, customerEmail string) (*ChargeResult, error)
	CheckStatus(referenceID string) (*StatusResult, error)
	ValidateSignature(orderRef, statusCode, grossAmount, signature string) bool
}

// MidtransService talks to Midtrans Core API for QRIS charges and
// transaction status, and verifies webhook signatures.
type MidtransService struct {
	client    coreapi.Client
	serverKey string
}

func NewMidtransService(cfg *config.Config) *MidtransService {
	env := midtrans.Sandbox
	if cfg.MidtransProduction {
		env = midtrans.Production
	}

	var client coreapi.Client
	client.New(cfg.MidtransServerKey, env)

	return &MidtransService{
		client:    client,
		serverKey: cfg.MidtransServerKey,
	}
}

func (s *MidtransService) ChargeQRIS(referenceID string, amount float64, customerName, customerEmail string) (*ChargeResult, error) {
	req := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeQris,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  referenceID,
			GrossAmt: int64(amount),
		},
		CustomerDetails: &midtrans.CustomerDetails{
			FName: customerName,
			Email: customerEmail,
		},
	}

	resp, err := s.client.ChargeTransaction(req)
	if err != nil {
		return nil, apperr.Upstream(err, "midtrans charge failed")
	}

	result := &ChargeResult{
		TransactionID: resp.TransactionID,
		Raw:           resp.StatusMessage,
	}
	for _, action := range resp.Actions {
		if action.Name == "generate-qr-code" {
			result.QRCodeURL = action.URL
			break
		}
	}
	if resp.ExpiryTime != "" {
		if t, perr := time.ParseInLocation("2006-01-02 15:04:05", resp.ExpiryTime, time.Local); perr == nil {
			result.ExpiresAt = &t
		}
	}
	return result, nil
}

func (s *MidtransService) CheckStatus(referenceID string) (*StatusResult, error) {
	resp, err := s.client.CheckTransaction(referenceID)
	if err != nil {
		return nil, apperr.Upstream(err, "midtrans status check failed")
	}
	return &StatusResult{
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		Raw:               resp.StatusMessage,
	}, nil
}

// ValidateSignature checks the webhook signature:
// sha512(order_id + status_code + gross_amount + server_key).
func (s *MidtransService) ValidateSignature(orderRef, statusCode, grossAmount, signature string) bool {
	sum := sha512.Sum512([]byte(orderRef + statusCode + grossAmount + s.serverKey))
	return hex.EncodeToString(sum[:]) == signature
}
