package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port              string
	StoreKind         string // "postgres" or "memory"
	DBConn            string
	LogLevel          string
	JWTSecret         string
	AdminLogin        string
	AdminPassword     string
	CBRURL            string
	KeyRateMargin     float64
	PriceSnapshotCron string // cron spec, empty disables the snapshot job
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	SenderEmail       string
	AdminEmail        string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	margin, err := strconv.ParseFloat(getEnv("KEY_RATE_MARGIN", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid KEY_RATE_MARGIN: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		StoreKind:         getEnv("STORE_KIND", "postgres"),
		DBConn:            getEnv("DB_CONN", "host=localhost port=5432 user=bank password=bank dbname=bank sslmode=disable"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:         getEnv("JWT_SECRET", "secret"),
		AdminLogin:        getEnv("ADMIN_LOGIN", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "admin"),
		CBRURL:            getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		KeyRateMargin:     margin,
		PriceSnapshotCron: getEnv("PRICE_SNAPSHOT_CRON", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", "bank@localhost"),
		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
	}

	if cfg.StoreKind == "postgres" && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AdminLogin == "" || cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_LOGIN and ADMIN_PASSWORD are required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
