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

// Package deposit owns the deposit state machine:
//
//	pending -activate-> active -withdraw-> completed
//	pending -reject-> cancelled
//
// Active deposits also accept top-ups and reinvestment of accumulated profit.
// Every operation runs as a single unit of work against the store.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/metrics"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/referral"
	"invest-engine-go/internal/store"
	"invest-engine-go/internal/tariff"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPayoutCycle = 24 * time.Hour
)

var DefaultMinAmount = decimal.NewFromInt(100)

// Config holds deposit limits and the accrual cycle length
type Config struct {
	MinAmount   decimal.Decimal
	PayoutCycle time.Duration
}

// CreateParams contains the parameters for creating a deposit
type CreateParams struct {
	UserId       string
	Amount       decimal.Decimal
	AutoReinvest bool
	AutoActivate bool
	// IsReinvest funds the deposit from accumulated profit instead of balance
	IsReinvest bool
}

type Manager struct {
	store     store.Store
	tariffs   *tariff.Service
	referrals *referral.Service
	recorder  *ledger.Recorder
	metrics   *metrics.Collector
	cfg       Config
	now       func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, for tests and replays
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(st store.Store, tariffs *tariff.Service, referrals *referral.Service, recorder *ledger.Recorder,
	collector *metrics.Collector, cfg Config, opts ...Option) *Manager {
	if cfg.PayoutCycle <= 0 {
		cfg.PayoutCycle = DefaultPayoutCycle
	}
	if cfg.MinAmount.IsZero() {
		cfg.MinAmount = DefaultMinAmount
	}

	m := &Manager{
		store:     st,
		tariffs:   tariffs,
		referrals: referrals,
		recorder:  recorder,
		metrics:   collector,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PayoutCycle is the time between two accruals of a deposit
func (m *Manager) PayoutCycle() time.Duration {
	return m.cfg.PayoutCycle
}

func (m *Manager) run(ctx context.Context, operation string, fn func(tx store.Tx) error) error {
	err := m.store.WithTx(ctx, fn)
	m.metrics.RecordDepositOperation(operation, err)
	if err != nil && !models.IsValidation(err) {
		zap.L().Error("Deposit operation failed", zap.String("operation", operation), zap.Error(err))
	}
	return err
}

// Create opens a pending deposit, or tops up the user's active deposit when
// one exists. With AutoActivate the new deposit is activated in the same unit
// of work.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*models.Deposit, error) {
	if err := m.validateAmount(params.Amount); err != nil {
		return nil, err
	}

	var result *models.Deposit
	err := m.run(ctx, "create", func(tx store.Tx) error {
		user, err := tx.GetUser(ctx, params.UserId)
		if err != nil {
			return err
		}
		if user.IsBanned {
			return models.ErrUserBanned
		}

		active, err := activeDeposit(ctx, tx, user.Id)
		if err != nil {
			return err
		}
		if active != nil {
			if params.IsReinvest {
				return models.ErrActiveDepositExists
			}
			if err := m.topUp(ctx, tx, user, active, params.Amount); err != nil {
				return err
			}
			result = active
			return nil
		}

		if params.AutoActivate {
			if err := checkFunds(user, params.IsReinvest, params.Amount); err != nil {
				return err
			}
		}

		resolved, err := m.tariffs.ForAmount(ctx, tx, user.TotalDeposit.Add(params.Amount))
		if err != nil {
			return err
		}

		deposit := &models.Deposit{
			Id:           uuid.New().String(),
			UserId:       user.Id,
			TariffId:     resolved.Id,
			Amount:       params.Amount,
			Earned:       decimal.Zero,
			Status:       models.DepositPending,
			IsReinvest:   params.IsReinvest,
			AutoReinvest: params.AutoReinvest,
			CreatedAt:    m.now().UTC(),
		}
		if err := tx.CreateDeposit(ctx, deposit); err != nil {
			return err
		}

		zap.L().Info("Deposit created",
			zap.String("deposit_id", deposit.Id),
			zap.String("user_id", user.Id),
			zap.String("amount", deposit.Amount.String()),
			zap.String("tariff_id", deposit.TariffId),
			zap.Bool("is_reinvest", deposit.IsReinvest))

		if params.AutoActivate {
			if err := m.activate(ctx, tx, deposit, user); err != nil {
				return err
			}
		}
		result = deposit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Activate moves a pending deposit to active and funds it
func (m *Manager) Activate(ctx context.Context, depositId string) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := m.run(ctx, "activate", func(tx store.Tx) error {
		var err error
		deposit, err = tx.GetDeposit(ctx, depositId)
		if err != nil {
			return err
		}
		user, err := tx.GetUser(ctx, deposit.UserId)
		if err != nil {
			return err
		}
		return m.activate(ctx, tx, deposit, user)
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

func (m *Manager) activate(ctx context.Context, tx store.Tx, deposit *models.Deposit, user *models.User) error {
	if deposit.Status != models.DepositPending {
		return fmt.Errorf("%w: deposit %s is %s", models.ErrDepositNotPending, deposit.Id, deposit.Status)
	}

	active, err := activeDeposit(ctx, tx, user.Id)
	if err != nil {
		return err
	}
	if active != nil {
		return models.ErrActiveDepositExists
	}

	if err := checkFunds(user, deposit.IsReinvest, deposit.Amount); err != nil {
		return err
	}
	if deposit.IsReinvest {
		user.Accumulated = user.Accumulated.Sub(deposit.Amount)
	} else {
		user.Balance = user.Balance.Sub(deposit.Amount)
	}
	user.TotalDeposit = user.TotalDeposit.Add(deposit.Amount)

	if err := tx.UpdateUser(ctx, user); err != nil {
		return err
	}
	resolved, err := m.tariffs.UpdateUserTariff(ctx, tx, user)
	if err != nil {
		return err
	}

	now := m.now().UTC()
	next := now.Add(m.cfg.PayoutCycle)
	deposit.Status = models.DepositActive
	deposit.StartedAt = &now
	deposit.NextPayoutAt = &next
	deposit.TariffId = resolved.Id
	if err := tx.UpdateDeposit(ctx, deposit); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.ErrActiveDepositExists
		}
		return err
	}

	txType, description := models.TxDeposit, fmt.Sprintf("Deposit of %s", deposit.Amount.String())
	if deposit.IsReinvest {
		txType, description = models.TxReinvest, fmt.Sprintf("Reinvest of %s", deposit.Amount.String())
	} else if _, err := m.referrals.ProcessDepositReferral(ctx, tx, user, deposit.Amount); err != nil {
		return err
	}

	if _, err := m.recorder.Record(ctx, tx, ledger.RecordParams{
		UserId:      user.Id,
		Type:        txType,
		Amount:      deposit.Amount,
		Status:      models.TxCompleted,
		Description: description,
		IsVisible:   true,
	}); err != nil {
		return err
	}

	zap.L().Info("Deposit activated",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", user.Id),
		zap.String("amount", deposit.Amount.String()),
		zap.String("tariff_id", deposit.TariffId),
		zap.Time("next_payout_at", next))
	return nil
}

// Reject cancels a pending deposit
func (m *Manager) Reject(ctx context.Context, depositId string) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := m.run(ctx, "reject", func(tx store.Tx) error {
		var err error
		deposit, err = tx.GetDeposit(ctx, depositId)
		if err != nil {
			return err
		}
		if deposit.Status != models.DepositPending {
			return fmt.Errorf("%w: deposit %s is %s", models.ErrDepositNotPending, deposit.Id, deposit.Status)
		}

		now := m.now().UTC()
		deposit.Status = models.DepositCancelled
		deposit.CompletedAt = &now
		if err := tx.UpdateDeposit(ctx, deposit); err != nil {
			return err
		}

		zap.L().Info("Deposit rejected", zap.String("deposit_id", deposit.Id), zap.String("user_id", deposit.UserId))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

// TopUp adds fresh balance to the user's active deposit
func (m *Manager) TopUp(ctx context.Context, userId string, amount decimal.Decimal) (*models.Deposit, error) {
	if !amount.IsPositive() {
		return nil, models.ErrNonPositiveAmount
	}

	var deposit *models.Deposit
	err := m.run(ctx, "top_up", func(tx store.Tx) error {
		user, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		deposit, err = activeDeposit(ctx, tx, userId)
		if err != nil {
			return err
		}
		if deposit == nil {
			return models.ErrNoActiveDeposit
		}
		return m.topUp(ctx, tx, user, deposit, amount)
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

func (m *Manager) topUp(ctx context.Context, tx store.Tx, user *models.User, deposit *models.Deposit, amount decimal.Decimal) error {
	if user.Balance.LessThan(amount) {
		return models.ErrInsufficientBalance
	}

	user.Balance = user.Balance.Sub(amount)
	user.TotalDeposit = user.TotalDeposit.Add(amount)
	deposit.Amount = deposit.Amount.Add(amount)

	if err := tx.UpdateUser(ctx, user); err != nil {
		return err
	}
	resolved, err := m.tariffs.UpdateUserTariff(ctx, tx, user)
	if err != nil {
		return err
	}
	deposit.TariffId = resolved.Id
	if err := tx.UpdateDeposit(ctx, deposit); err != nil {
		return err
	}

	if _, err := m.recorder.Record(ctx, tx, ledger.RecordParams{
		UserId:      user.Id,
		Type:        models.TxDeposit,
		Amount:      amount,
		Status:      models.TxCompleted,
		Description: fmt.Sprintf("Deposit top-up of %s", amount.String()),
		IsVisible:   true,
	}); err != nil {
		return err
	}

	if _, err := m.referrals.ProcessDepositReferral(ctx, tx, user, amount); err != nil {
		return err
	}

	zap.L().Info("Deposit topped up",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", user.Id),
		zap.String("amount", amount.String()),
		zap.String("new_principal", deposit.Amount.String()))
	return nil
}

// Reinvest folds all accumulated profit into the active deposit. Reinvested
// profit is not new money and pays no referral commission.
func (m *Manager) Reinvest(ctx context.Context, userId string) (*models.Deposit, error) {
	var deposit *models.Deposit
	err := m.run(ctx, "reinvest", func(tx store.Tx) error {
		user, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		deposit, err = activeDeposit(ctx, tx, userId)
		if err != nil {
			return err
		}
		if deposit == nil {
			return models.ErrNoActiveDeposit
		}
		if !user.Accumulated.IsPositive() {
			return models.ErrNoAccumulatedProfit
		}

		profit := user.Accumulated
		deposit.Amount = deposit.Amount.Add(profit)
		user.TotalDeposit = user.TotalDeposit.Add(profit)
		user.Accumulated = decimal.Zero

		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		resolved, err := m.tariffs.UpdateUserTariff(ctx, tx, user)
		if err != nil {
			return err
		}
		deposit.TariffId = resolved.Id
		if err := tx.UpdateDeposit(ctx, deposit); err != nil {
			return err
		}

		_, err = m.recorder.Record(ctx, tx, ledger.RecordParams{
			UserId:      user.Id,
			Type:        models.TxReinvest,
			Amount:      profit,
			Status:      models.TxCompleted,
			Description: fmt.Sprintf("Reinvest of %s profit into the deposit", profit.StringFixed(2)),
			IsVisible:   true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

// Withdraw completes the active deposit and returns principal plus
// accumulated profit to balance. It returns the principal.
func (m *Manager) Withdraw(ctx context.Context, userId string) (decimal.Decimal, error) {
	var principal decimal.Decimal
	err := m.run(ctx, "withdraw", func(tx store.Tx) error {
		user, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		deposit, err := activeDeposit(ctx, tx, userId)
		if err != nil {
			return err
		}
		if deposit == nil {
			return models.ErrNoActiveDeposit
		}

		principal = deposit.Amount
		now := m.now().UTC()
		deposit.Status = models.DepositCompleted
		deposit.CompletedAt = &now
		if err := tx.UpdateDeposit(ctx, deposit); err != nil {
			return err
		}

		user.Balance = user.Balance.Add(principal).Add(user.Accumulated)
		user.TotalDeposit = user.TotalDeposit.Sub(principal)
		if user.TotalDeposit.IsNegative() {
			zap.L().Warn("Total deposit below principal, clamping to zero",
				zap.String("user_id", user.Id),
				zap.String("total_deposit", user.TotalDeposit.String()))
			user.TotalDeposit = decimal.Zero
		}
		user.Accumulated = decimal.Zero
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}

		// Returning funds must not depend on tariff configuration
		if _, err := m.tariffs.UpdateUserTariff(ctx, tx, user); err != nil {
			if !errors.Is(err, models.ErrNoActiveTariff) {
				return err
			}
			zap.L().Warn("No active tariff while withdrawing", zap.String("user_id", user.Id))
		}

		_, err = m.recorder.Record(ctx, tx, ledger.RecordParams{
			UserId:      user.Id,
			Type:        models.TxWithdraw,
			Amount:      principal.Neg(),
			Status:      models.TxCompleted,
			Description: fmt.Sprintf("Deposit withdrawal of %s", principal.String()),
			IsVisible:   true,
		})
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return principal, nil
}

// Collect moves accumulated profit to the withdrawable balance
func (m *Manager) Collect(ctx context.Context, userId string) (decimal.Decimal, error) {
	var collected decimal.Decimal
	err := m.run(ctx, "collect", func(tx store.Tx) error {
		user, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		if !user.Accumulated.IsPositive() {
			return models.ErrNoAccumulatedProfit
		}

		collected = user.Accumulated
		user.Balance = user.Balance.Add(collected)
		user.Accumulated = decimal.Zero
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return collected, nil
}

// ActiveDeposit returns the user's active deposit or nil
func (m *Manager) ActiveDeposit(ctx context.Context, userId string) (*models.Deposit, error) {
	return activeDeposit(ctx, m.store, userId)
}

// UserDeposits returns the user's deposits, newest first
func (m *Manager) UserDeposits(ctx context.Context, userId string) ([]models.Deposit, error) {
	return m.store.ListUserDeposits(ctx, userId)
}

// PendingDeposits returns deposits awaiting activation, oldest first
func (m *Manager) PendingDeposits(ctx context.Context) ([]models.Deposit, error) {
	return m.store.ListDepositsByStatus(ctx, models.DepositPending)
}

// DueDeposits returns active deposits whose next payout is at or before now
func (m *Manager) DueDeposits(ctx context.Context, now time.Time) ([]models.Deposit, error) {
	return m.store.ListDueDeposits(ctx, now)
}

func (m *Manager) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return models.ErrNonPositiveAmount
	}
	if amount.LessThan(m.cfg.MinAmount) {
		return fmt.Errorf("%w: minimum is %s", models.ErrBelowMinimumDeposit, m.cfg.MinAmount.String())
	}
	return nil
}

func activeDeposit(ctx context.Context, q store.Queries, userId string) (*models.Deposit, error) {
	deposit, err := q.GetActiveDeposit(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return deposit, nil
}

func checkFunds(user *models.User, fromAccumulated bool, amount decimal.Decimal) error {
	if fromAccumulated {
		if user.Accumulated.LessThan(amount) {
			return fmt.Errorf("%w: accumulated %s is less than %s", models.ErrNoAccumulatedProfit,
				user.Accumulated.String(), amount.String())
		}
		return nil
	}
	if user.Balance.LessThan(amount) {
		return models.ErrInsufficientBalance
	}
	return nil
}
