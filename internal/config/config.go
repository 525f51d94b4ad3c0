/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"invest-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	connectInterval, err := getEnvDuration("DB_CONNECT_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	payoutCycle, err := getEnvDuration("PAYOUT_CYCLE", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	if payoutCycle <= 0 {
		return nil, fmt.Errorf("PAYOUT_CYCLE must be positive, got %v", payoutCycle)
	}

	minDeposit, err := getEnvDecimal("MIN_DEPOSIT_AMOUNT", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}
	if !minDeposit.IsPositive() {
		return nil, fmt.Errorf("MIN_DEPOSIT_AMOUNT must be positive, got %s", minDeposit)
	}

	feedInterval, err := getEnvDuration("FEED_TICK_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	adminIds, err := getEnvInt64List("ADMIN_TG_IDS")
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "invest.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
			ConnectInterval: connectInterval,
		},
		Payout: models.PayoutConfig{
			Schedule: getEnvString("PAYOUT_SCHEDULE", "@every 1m"),
			Cycle:    payoutCycle,
		},
		Deposit: models.DepositConfig{
			MinAmount:   minDeposit,
			TariffsFile: getEnvString("TARIFFS_FILE", "tariffs.yaml"),
		},
		Feed: models.FeedConfig{
			RedisAddr:     getEnvString("REDIS_ADDR", ""),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			Channel:       getEnvString("FEED_CHANNEL", "invest:live"),
			TickInterval:  feedInterval,
			QueueSize:     getEnvInt("FEED_QUEUE_SIZE", 256),
		},
		Referral: models.ReferralConfig{
			BotUsername: getEnvString("BOT_USERNAME", ""),
		},
		Admin: models.AdminConfig{
			TgIds: adminIds,
		},
		Metrics: models.MetricsConfig{
			Addr:      getEnvString("METRICS_ADDR", ""),
			Namespace: getEnvString("METRICS_NAMESPACE", "invest"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return amount, nil
	}
	return defaultValue, nil
}

// getEnvInt64List parses a comma separated list, skipping blanks
func getEnvInt64List(key string) ([]int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id in %s: %q (%w)", key, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
