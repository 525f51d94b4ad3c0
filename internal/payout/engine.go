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

// Package payout accrues daily profit on active deposits.
package payout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/metrics"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"
	"invest-engine-go/internal/tariff"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultCycle = 24 * time.Hour

	pathCompound   = "compound"
	pathAccumulate = "accumulate"
	pathFailed     = "failed"
)

var ErrSweepInProgress = errors.New("payout sweep already in progress")

var hundred = decimal.NewFromInt(100)

type Engine struct {
	store    store.Store
	tariffs  *tariff.Service
	recorder *ledger.Recorder
	metrics  *metrics.Collector
	cycle    time.Duration
	now      func() time.Time

	running sync.Mutex
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithCycle(cycle time.Duration) Option {
	return func(e *Engine) {
		if cycle > 0 {
			e.cycle = cycle
		}
	}
}

func NewEngine(st store.Store, tariffs *tariff.Service, recorder *ledger.Recorder, collector *metrics.Collector, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		tariffs:  tariffs,
		recorder: recorder,
		metrics:  collector,
		cycle:    DefaultCycle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sweep credits one accrual cycle to every active deposit that is due and
// returns how many were processed. All deposits commit together; a deposit
// that fails is rolled back to its savepoint, logged and left due for the
// next run.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	if !e.running.TryLock() {
		return 0, ErrSweepInProgress
	}
	defer e.running.Unlock()

	ctx = models.WithOrigin(ctx, models.Origin{Source: "payout-scheduler"})
	start := time.Now()
	var processed, failed int
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		processed, failed = 0, 0
		now := e.now().UTC()

		due, err := tx.ListDueDeposits(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to load due deposits: %w", err)
		}

		for i := range due {
			deposit := due[i]

			var path string
			var profit decimal.Decimal
			err := tx.Savepoint(ctx, func(sp store.Tx) error {
				var err error
				path, profit, err = e.accrue(ctx, sp, &deposit, now)
				return err
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed++
				zap.L().Error("Failed to process deposit payout, skipping",
					zap.String("deposit_id", deposit.Id),
					zap.String("user_id", deposit.UserId),
					zap.Error(err))
				continue
			}

			processed++
			tx.AfterCommit(func() { e.metrics.RecordPayout(path, profit) })
		}
		return nil
	})

	e.metrics.RecordSweep(time.Since(start), err)
	if err != nil {
		zap.L().Error("Payout sweep failed", zap.Error(err))
		return 0, err
	}
	for i := 0; i < failed; i++ {
		e.metrics.RecordPayout(pathFailed, decimal.Zero)
	}

	if processed > 0 || failed > 0 {
		zap.L().Info("Payout sweep completed",
			zap.Int("processed", processed),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)))
	}
	return processed, nil
}

// accrue applies one cycle of profit to deposit. It returns the path taken
// and the profit credited.
func (e *Engine) accrue(ctx context.Context, tx store.Tx, deposit *models.Deposit, now time.Time) (string, decimal.Decimal, error) {
	user, err := tx.GetUser(ctx, deposit.UserId)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("failed to load user: %w", err)
	}
	tr, err := tx.GetTariff(ctx, deposit.TariffId)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("failed to load tariff %s: %w", deposit.TariffId, err)
	}

	profit := deposit.Amount.Mul(tr.DailyPercent).Div(hundred)
	deposit.Earned = deposit.Earned.Add(profit)
	user.TotalEarned = user.TotalEarned.Add(profit)

	if _, err := e.recorder.Record(ctx, tx, ledger.RecordParams{
		UserId:      user.Id,
		Type:        models.TxProfit,
		Amount:      profit,
		Status:      models.TxCompleted,
		Description: fmt.Sprintf("Profit %s%% on %s", tr.DailyPercent.String(), deposit.Amount.String()),
		IsVisible:   true,
	}); err != nil {
		return "", decimal.Zero, err
	}

	next := now.Add(e.cycle)
	deposit.NextPayoutAt = &next

	path := pathAccumulate
	if deposit.AutoReinvest || user.AutoReinvest {
		path = pathCompound
		deposit.Amount = deposit.Amount.Add(profit)
		user.TotalDeposit = user.TotalDeposit.Add(profit)

		if err := tx.UpdateUser(ctx, user); err != nil {
			return "", decimal.Zero, err
		}
		resolved, err := e.tariffs.UpdateUserTariff(ctx, tx, user)
		if err != nil {
			return "", decimal.Zero, err
		}
		deposit.TariffId = resolved.Id

		if _, err := e.recorder.Record(ctx, tx, ledger.RecordParams{
			UserId:      user.Id,
			Type:        models.TxReinvest,
			Amount:      profit,
			Status:      models.TxCompleted,
			Description: fmt.Sprintf("Auto-reinvest of %s profit", profit.StringFixed(2)),
			IsVisible:   true,
		}); err != nil {
			return "", decimal.Zero, err
		}
	} else {
		user.Accumulated = user.Accumulated.Add(profit)
		if err := tx.UpdateUser(ctx, user); err != nil {
			return "", decimal.Zero, err
		}
	}

	if err := tx.UpdateDeposit(ctx, deposit); err != nil {
		return "", decimal.Zero, err
	}

	zap.L().Debug("Deposit payout credited",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", user.Id),
		zap.String("profit", profit.String()),
		zap.String("path", path),
		zap.Time("next_payout_at", next))
	return path, profit, nil
}
