package main

import (
	"log"

	"laundry-backend/config"
	"laundry-backend/database"
	"laundry-backend/router"
	"laundry-backend/services"
	"laundry-backend/utils"
)

func main() {
	utils.InitLogger()

	cfg := config.Load()
	utils.SetJWTSecret(cfg.JWTSecret)

	db, err := database.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	gateway := services.NewMidtransService(cfg)

	syncJob := services.NewPaymentSyncJob(services.NewPaymentService(db, gateway))
	if err := syncJob.Start(cfg.PaymentSyncMinutes); err != nil {
		log.Fatalf("payment sync job failed to start: %v", err)
	}
	defer syncJob.Stop()

	r := router.SetupRouter(db, gateway)

	utils.InfoLogger.WithField("port", cfg.Port).Info("laundry backend listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
