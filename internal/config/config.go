package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// EMI engine
	Emi EmiConfig

	// Daily batch
	Batch BatchConfig

	// Notification sink (AWS SNS)
	SNS SNSConfig

	// Eligibility/credit service
	EligibilityURL string
}

// EmiConfig holds the penalty-policy knobs of the installment engine.
type EmiConfig struct {
	DueDayOfMonth    int             // day of month every installment is anchored to
	PenaltyRate      decimal.Decimal // percent per day while overdue
	GracePeriodDays  int
	ReminderLeadDays int
}

// BatchConfig fixes the daily wall-clock trigger of the reminder/penalty run.
type BatchConfig struct {
	Hour     int
	Minute   int
	Timezone string
}

// Location resolves the configured batch timezone.
func (b BatchConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// SNSConfig holds AWS SNS configuration for the notification sink.
type SNSConfig struct {
	Region   string
	TopicARN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	penaltyRate, err := decimal.NewFromString(getEnv("EMI_PENALTY_RATE_PER_DAY", "0.1"))
	if err != nil {
		return nil, fmt.Errorf("EMI_PENALTY_RATE_PER_DAY is not a valid decimal: %w", err)
	}

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),
		Emi: EmiConfig{
			DueDayOfMonth:    getEnvInt("EMI_DUE_DAY_OF_MONTH", 5),
			PenaltyRate:      penaltyRate,
			GracePeriodDays:  getEnvInt("EMI_GRACE_PERIOD_DAYS", 3),
			ReminderLeadDays: getEnvInt("EMI_REMINDER_LEAD_DAYS", 3),
		},
		Batch: BatchConfig{
			Hour:     getEnvInt("BATCH_HOUR", 9),
			Minute:   getEnvInt("BATCH_MINUTE", 0),
			Timezone: getEnv("BATCH_TIMEZONE", "Asia/Kolkata"),
		},
		SNS: SNSConfig{
			Region:   getEnv("SNS_REGION", "ap-south-1"),
			TopicARN: getEnv("SNS_TOPIC_ARN", ""),
		},
		EligibilityURL: getEnv("ELIGIBILITY_SERVICE_URL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Emi.DueDayOfMonth < 1 || c.Emi.DueDayOfMonth > 28 {
		return fmt.Errorf("EMI_DUE_DAY_OF_MONTH must be between 1 and 28")
	}
	if c.Emi.PenaltyRate.IsNegative() {
		return fmt.Errorf("EMI_PENALTY_RATE_PER_DAY must not be negative")
	}
	if c.Emi.GracePeriodDays < 0 {
		return fmt.Errorf("EMI_GRACE_PERIOD_DAYS must not be negative")
	}
	if c.Batch.Hour < 0 || c.Batch.Hour > 23 || c.Batch.Minute < 0 || c.Batch.Minute > 59 {
		return fmt.Errorf("BATCH_HOUR/BATCH_MINUTE is not a valid wall-clock time")
	}
	if _, err := c.Batch.Location(); err != nil {
		return fmt.Errorf("BATCH_TIMEZONE is not a valid timezone: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
