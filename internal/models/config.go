package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Payout   PayoutConfig
	Deposit  DepositConfig
	Feed     FeedConfig
	Referral ReferralConfig
	Admin    AdminConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	ConnectAttempts int
	ConnectInterval time.Duration
}

// PayoutConfig holds accrual scheduler settings
type PayoutConfig struct {
	Schedule string // cron spec, e.g. "@every 1m"
	Cycle    time.Duration
}

// DepositConfig holds deposit lifecycle limits
type DepositConfig struct {
	MinAmount   decimal.Decimal
	TariffsFile string
}

// FeedConfig holds live feed fan-out settings
type FeedConfig struct {
	RedisAddr     string
	RedisPassword string
	Channel       string
	TickInterval  time.Duration
	QueueSize     int
}

// ReferralConfig holds invitation link settings
type ReferralConfig struct {
	BotUsername string
}

// AdminConfig holds the static admin allowlist folded into the user table at boot
type AdminConfig struct {
	TgIds []int64
}

// MetricsConfig holds the prometheus listener address; empty disables it
type MetricsConfig struct {
	Addr      string
	Namespace string
}
