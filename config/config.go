package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"billing-service/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Gateway    GatewayConfig
	Directory  DirectoryConfig
	SMTP       SMTPConfig
	Withdrawal WithdrawalConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ServiceToken string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PlanKey indexes the gateway plan table by a typed pair instead of a
// string-concatenated key, so a missing combination fails loudly.
type PlanKey struct {
	Plan  domain.Plan
	Cycle domain.BillingCycle
}

type GatewayConfig struct {
	KeyID              string
	KeySecret          string
	WebhookSecret      string
	BaseURL            string
	SettlementCurrency string
	Timeout            time.Duration
	Plans              map[PlanKey]string
}

type DirectoryConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type WithdrawalConfig struct {
	MinAmount      decimal.Decimal
	MaxPendingReqs int
}

func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, relying on environment")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8042"),
			Env:          getEnv("ENVIRONMENT", "development"),
			ServiceToken: getEnv("SERVICE_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "billing"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			KeyID:              getEnv("GATEWAY_KEY_ID", ""),
			KeySecret:          getEnv("GATEWAY_KEY_SECRET", ""),
			WebhookSecret:      getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			BaseURL:            getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
			SettlementCurrency: getEnv("GATEWAY_SETTLEMENT_CURRENCY", "INR"),
			Timeout:            time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Directory: DirectoryConfig{
			BaseURL:   getEnv("AUTH_DIRECTORY_URL", "http://localhost:8001"),
			APIKey:    getEnv("AUTH_API_KEY", ""),
			APISecret: getEnv("AUTH_API_SECRET", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@billing.local"),
		},
		Withdrawal: WithdrawalConfig{
			MinAmount:      getEnvDecimal("WITHDRAWAL_MIN_AMOUNT", decimal.NewFromInt(100)),
			MaxPendingReqs: getEnvInt("WITHDRAWAL_MAX_PENDING", 3),
		},
	}

	cfg.Gateway.Plans = loadPlanTable(logger)

	if cfg.Gateway.KeyID == "" || cfg.Gateway.KeySecret == "" {
		return nil, fmt.Errorf("GATEWAY_KEY_ID and GATEWAY_KEY_SECRET are required")
	}
	if cfg.Gateway.WebhookSecret == "" {
		return nil, fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required")
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.Int("gateway_plans", len(cfg.Gateway.Plans)))

	return cfg, nil
}

// loadPlanTable reads the four plan-id mappings. Absent entries are simply
// not inserted; PlanID turns a miss into a ConfigError at call time.
func loadPlanTable(logger *zap.Logger) map[PlanKey]string {
	table := make(map[PlanKey]string)

	entries := []struct {
		env   string
		plan  domain.Plan
		cycle domain.BillingCycle
	}{
		{"PLAN_BASIC_MONTHLY", domain.PlanBasic, domain.CycleMonthly},
		{"PLAN_BASIC_YEARLY", domain.PlanBasic, domain.CycleYearly},
		{"PLAN_PREMIUM_MONTHLY", domain.PlanPremium, domain.CycleMonthly},
		{"PLAN_PREMIUM_YEARLY", domain.PlanPremium, domain.CycleYearly},
	}

	for _, e := range entries {
		id := os.Getenv(e.env)
		if id == "" {
			logger.Warn("gateway plan id not configured", zap.String("env", e.env))
			continue
		}
		table[PlanKey{Plan: e.plan, Cycle: e.cycle}] = id
	}

	return table
}

// PlanID resolves the gateway plan identifier for a plan/cycle pair.
func (g *GatewayConfig) PlanID(plan domain.Plan, cycle domain.BillingCycle) (string, error) {
	id, ok := g.Plans[PlanKey{Plan: plan, Cycle: cycle}]
	if !ok {
		return "", &domain.ConfigError{Key: fmt.Sprintf("gateway plan id for %s/%s", plan, cycle)}
	}
	return id, nil
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

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
