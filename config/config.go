package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the process reads from the environment.
type Config struct {
	Port      string
	DBDSN     string
	JWTSecret string

	MidtransServerKey  string
	MidtransProduction bool

	// Interval in minutes between gateway status sync runs; 0 disables
	// the job.
	PaymentSyncMinutes int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		MidtransServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransProduction: os.Getenv("MIDTRANS_ENV") == "production",
		PaymentSyncMinutes: 5,
	}

	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		cfg.DBDSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			getEnv("DB_USER", "root"),
			os.Getenv("DB_PASSWORD"),
			getEnv("DB_HOST", "127.0.0.1"),
			getEnv("DB_PORT", "3306"),
			getEnv("DB_NAME", "laundry"),
		)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
