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

package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"invest-engine-go/internal/account"
	"invest-engine-go/internal/admin"
	"invest-engine-go/internal/api"
	"invest-engine-go/internal/auth"
	"invest-engine-go/internal/database"
	"invest-engine-go/internal/deposit"
	"invest-engine-go/internal/feed"
	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/metrics"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/payout"
	"invest-engine-go/internal/referral"
	"invest-engine-go/internal/tariff"

	"github.com/cenkalti/backoff/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Metrics   *metrics.Collector
	Feed      *feed.Publisher
	Recorder  *ledger.Recorder
	Tariffs   *tariff.Service
	Referrals *referral.Service
	Deposits  *deposit.Manager
	Engine    *payout.Engine
	Scheduler *payout.Scheduler
	Policy    *auth.Policy
	Accounts  *account.Service
	Admin     *admin.Service
	Api       *api.Service

	fanout *feed.RedisFanOut
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database and wires every service on top of it.
// The Redis fan-out is optional; when it cannot be reached the live feed runs
// in-process only.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}

	services := &Services{
		DbService: dbService,
		Metrics:   metrics.NewCollector(cfg.Metrics.Namespace),
		Tariffs:   tariff.NewService(),
	}

	var fanout feed.FanOut
	if cfg.Feed.RedisAddr != "" {
		redisFanOut, err := feed.NewRedisFanOut(ctx, cfg.Feed.RedisAddr, cfg.Feed.RedisPassword)
		if err != nil {
			zap.L().Warn("Live feed fan-out unavailable, continuing without it",
				zap.String("addr", cfg.Feed.RedisAddr),
				zap.Error(err))
		} else {
			services.fanout = redisFanOut
			fanout = redisFanOut
		}
	}

	services.Feed = feed.NewPublisher(dbService, fanout, services.Metrics, feed.Config{
		Channel:   cfg.Feed.Channel,
		QueueSize: cfg.Feed.QueueSize,
	})
	services.Recorder = ledger.NewRecorder(services.Feed, services.Metrics)
	services.Referrals = referral.NewService(services.Recorder, services.Metrics, cfg.Referral.BotUsername)
	services.Deposits = deposit.NewManager(dbService, services.Tariffs, services.Referrals, services.Recorder,
		services.Metrics, deposit.Config{
			MinAmount:   cfg.Deposit.MinAmount,
			PayoutCycle: cfg.Payout.Cycle,
		})
	services.Engine = payout.NewEngine(dbService, services.Tariffs, services.Recorder, services.Metrics,
		payout.WithCycle(cfg.Payout.Cycle))

	services.Scheduler, err = payout.NewScheduler(services.Engine, cfg.Payout.Schedule, sweepTimeout)
	if err != nil {
		services.Close()
		return nil, err
	}

	services.Policy = auth.NewPolicy(dbService)
	promoted, err := services.Policy.Bootstrap(ctx, cfg.Admin.TgIds)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to bootstrap admins: %w", err)
	}
	zap.L().Info("Admin allowlist loaded",
		zap.Int("allowlisted", len(cfg.Admin.TgIds)),
		zap.Int("promoted", promoted))

	services.Accounts = account.NewService(dbService, services.Tariffs, services.Referrals, services.Recorder,
		services.Deposits, services.Policy)
	services.Admin = admin.NewService(dbService, services.Policy, services.Deposits, services.Accounts, services.Engine)
	services.Api = api.NewService(api.Dependencies{
		Store:    dbService,
		Tariffs:  services.Tariffs,
		Recorder: services.Recorder,
		Deposits: services.Deposits,
		Accounts: services.Accounts,
		Sweeper:  services.Engine,
		Feed:     services.Feed,
	})

	return services, nil
}

// InitializeDatabaseOnly opens just the database, retrying while it is busy
// or not yet mounted. Useful for read-only operations like reports.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	attempts := cfg.Database.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := cfg.Database.ConnectInterval
	if interval <= 0 {
		interval = time.Second
	}

	dbService, err := backoff.Retry(ctx,
		func() (*database.Service, error) {
			return database.NewService(ctx, cfg.Database)
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.L().Warn("Database not ready, retrying",
				zap.String("path", cfg.Database.Path),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to open database after %d attempts: %w", attempts, err)
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.fanout != nil {
		if err := cs.fanout.Close(); err != nil {
			zap.L().Warn("Failed to close live feed fan-out", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
