package services

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"laundry-backend/utils"
)

// PaymentSyncJob periodically reconciles PENDING payments against the
// gateway. Webhooks are the primary channel; the job covers deliveries
// that never arrived.
type PaymentSyncJob struct {
	payments *PaymentService
	cron     *cron.Cron
}

func NewPaymentSyncJob(payments *PaymentService) *PaymentSyncJob {
	return &PaymentSyncJob{
		payments: payments,
		cron:     cron.New(),
	}
}

// Start schedules the sync every intervalMinutes. A zero or negative
// interval disables the job.
func (j *PaymentSyncJob) Start(intervalMinutes int) error {
	if intervalMinutes <= 0 {
		return nil
	}

	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	_, err := j.cron.AddFunc(spec, func() {
		changed, err := j.payments.SyncPending()
		if err != nil {
			if utils.ErrorLogger != nil {
				utils.ErrorLogger.WithError(err).Error("payment sync failed")
			}
			return
		}
		if changed > 0 && utils.InfoLogger != nil {
			utils.InfoLogger.WithField("changed", changed).Info("payment sync applied gateway updates")
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	return nil
}

func (j *PaymentSyncJob) Stop() {
	j.cron.Stop()
}
