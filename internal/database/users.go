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

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var balance, totalDeposit, totalEarned, accumulated, referralEarned string
	var tariffId, referrerId sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&user.Id, &user.TgId, &user.Username, &user.FirstName,
		&balance, &totalDeposit, &totalEarned, &accumulated,
		&tariffId, &user.AutoReinvest, &referrerId, &referralEarned,
		&user.IsBanned, &user.IsAdmin, &user.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var p fieldParser
	user.Balance = p.decimal("balance", balance)
	user.TotalDeposit = p.decimal("total_deposit", totalDeposit)
	user.TotalEarned = p.decimal("total_earned", totalEarned)
	user.Accumulated = p.decimal("accumulated", accumulated)
	user.ReferralEarned = p.decimal("referral_earned", referralEarned)
	user.CurrentTariffId = tariffId.String
	user.ReferrerId = referrerId.String
	user.CreatedAt = p.time("created_at", createdAt)
	user.UpdatedAt = p.time("updated_at", updatedAt)
	if p.err != nil {
		return nil, p.err
	}
	return &user, nil
}

func (q queries) GetUser(ctx context.Context, userId string) (*models.User, error) {
	user, err := scanUser(q.q.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if err = translateError(err); errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userId, err)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

func (q queries) GetUserByTgId(ctx context.Context, tgId int64) (*models.User, error) {
	user, err := scanUser(q.q.QueryRowContext(ctx, queryGetUserByTgId, tgId))
	if err != nil {
		if err = translateError(err); errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user with tg_id %d: %w", tgId, err)
		}
		zap.L().Error("Failed to query user by tg_id", zap.Int64("tg_id", tgId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by tg_id: %w", err)
	}
	return user, nil
}

func (q queries) ListUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := q.q.QueryContext(ctx, queryListUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (q queries) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Version == 0 {
		user.Version = 1
	}

	_, err := q.q.ExecContext(ctx, queryInsertUser,
		user.Id, user.TgId, user.Username, user.FirstName,
		user.Balance.String(), user.TotalDeposit.String(), user.TotalEarned.String(), user.Accumulated.String(),
		nullString(user.CurrentTariffId), user.AutoReinvest, nullString(user.ReferrerId), user.ReferralEarned.String(),
		user.IsBanned, user.IsAdmin, user.Version, formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateError(err))
	}

	zap.L().Info("User created",
		zap.String("user_id", user.Id),
		zap.Int64("tg_id", user.TgId),
		zap.String("referrer_id", user.ReferrerId))
	return nil
}

func (q queries) UpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	result, err := q.q.ExecContext(ctx, queryUpdateUser,
		user.Username, user.FirstName, user.Balance.String(), user.TotalDeposit.String(), user.TotalEarned.String(),
		user.Accumulated.String(), nullString(user.CurrentTariffId), user.AutoReinvest, nullString(user.ReferrerId),
		user.ReferralEarned.String(), user.IsBanned, user.IsAdmin, formatTime(now),
		user.Id, user.Version)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("user %s update failed - %w", user.Id, err)
	}

	user.Version++
	user.UpdatedAt = now
	return nil
}
