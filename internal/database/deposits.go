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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"go.uber.org/zap"
)

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var deposit models.Deposit
	var amount, earned, status string
	var startedAt, nextPayoutAt, completedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&deposit.Id, &deposit.UserId, &deposit.TariffId, &amount, &earned, &status,
		&deposit.IsReinvest, &deposit.AutoReinvest, &startedAt, &nextPayoutAt, &completedAt,
		&deposit.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	deposit.Status, err = models.ParseDepositStatus(status)
	if err != nil {
		return nil, err
	}

	var p fieldParser
	deposit.Amount = p.decimal("amount", amount)
	deposit.Earned = p.decimal("earned", earned)
	deposit.StartedAt = p.optionalTime("started_at", startedAt)
	deposit.NextPayoutAt = p.optionalTime("next_payout_at", nextPayoutAt)
	deposit.CompletedAt = p.optionalTime("completed_at", completedAt)
	deposit.CreatedAt = p.time("created_at", createdAt)
	deposit.UpdatedAt = p.time("updated_at", updatedAt)
	if p.err != nil {
		return nil, p.err
	}
	return &deposit, nil
}

func (q queries) queryDeposits(ctx context.Context, query string, args ...any) ([]models.Deposit, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query deposits", zap.Error(err))
		return nil, fmt.Errorf("unable to query deposits: %w", err)
	}
	defer closeRows(rows)

	var deposits []models.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan deposit row: %w", err)
		}
		deposits = append(deposits, *deposit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}
	return deposits, nil
}

func (q queries) GetDeposit(ctx context.Context, depositId string) (*models.Deposit, error) {
	deposit, err := scanDeposit(q.q.QueryRowContext(ctx, queryGetDeposit, depositId))
	if err != nil {
		if err = translateError(err); errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("deposit %s: %w", depositId, err)
		}
		return nil, fmt.Errorf("unable to query deposit: %w", err)
	}
	return deposit, nil
}

// GetActiveDeposit returns store.ErrNotFound when the user has no active deposit
func (q queries) GetActiveDeposit(ctx context.Context, userId string) (*models.Deposit, error) {
	deposit, err := scanDeposit(q.q.QueryRowContext(ctx, queryGetActiveDeposit, userId))
	if err != nil {
		if err = translateError(err); errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("active deposit for user %s: %w", userId, err)
		}
		return nil, fmt.Errorf("unable to query active deposit: %w", err)
	}
	return deposit, nil
}

func (q queries) ListUserDeposits(ctx context.Context, userId string) ([]models.Deposit, error) {
	return q.queryDeposits(ctx, queryListUserDeposits, userId)
}

func (q queries) ListDepositsByStatus(ctx context.Context, status models.DepositStatus) ([]models.Deposit, error) {
	return q.queryDeposits(ctx, queryListDepositsByStatus, string(status))
}

func (q queries) ListDueDeposits(ctx context.Context, now time.Time) ([]models.Deposit, error) {
	return q.queryDeposits(ctx, queryListDueDeposits, formatTime(now))
}

func (q queries) CreateDeposit(ctx context.Context, deposit *models.Deposit) error {
	now := time.Now().UTC()
	if deposit.CreatedAt.IsZero() {
		deposit.CreatedAt = now
	}
	deposit.UpdatedAt = now
	if deposit.Version == 0 {
		deposit.Version = 1
	}

	_, err := q.q.ExecContext(ctx, queryInsertDeposit,
		deposit.Id, deposit.UserId, deposit.TariffId, deposit.Amount.String(), deposit.Earned.String(),
		string(deposit.Status), deposit.IsReinvest, deposit.AutoReinvest,
		formatOptionalTime(deposit.StartedAt), formatOptionalTime(deposit.NextPayoutAt), formatOptionalTime(deposit.CompletedAt),
		deposit.Version, formatTime(deposit.CreatedAt), formatTime(deposit.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert deposit: %w", translateError(err))
	}
	return nil
}

func (q queries) UpdateDeposit(ctx context.Context, deposit *models.Deposit) error {
	now := time.Now().UTC()
	result, err := q.q.ExecContext(ctx, queryUpdateDeposit,
		deposit.TariffId, deposit.Amount.String(), deposit.Earned.String(), string(deposit.Status), deposit.AutoReinvest,
		formatOptionalTime(deposit.StartedAt), formatOptionalTime(deposit.NextPayoutAt), formatOptionalTime(deposit.CompletedAt),
		formatTime(now), deposit.Id, deposit.Version)
	if err != nil {
		// The one-active-deposit index surfaces here as a unique violation
		return fmt.Errorf("failed to update deposit: %w", translateError(err))
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("deposit %s update failed - %w", deposit.Id, err)
	}

	deposit.Version++
	deposit.UpdatedAt = now
	return nil
}
