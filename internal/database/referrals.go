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
	"fmt"
	"time"

	"invest-engine-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanReferral(row rowScanner) (*models.Referral, error) {
	var referral models.Referral
	var totalEarned, createdAt string
	err := row.Scan(&referral.Id, &referral.ReferrerId, &referral.ReferredId, &referral.Level, &totalEarned, &createdAt)
	if err != nil {
		return nil, err
	}

	var p fieldParser
	referral.TotalEarned = p.decimal("total_earned", totalEarned)
	referral.CreatedAt = p.time("created_at", createdAt)
	if p.err != nil {
		return nil, p.err
	}
	return &referral, nil
}

// InsertReferral returns store.ErrDuplicate when the edge already exists
func (q queries) InsertReferral(ctx context.Context, referral *models.Referral) error {
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now().UTC()
	}
	_, err := q.q.ExecContext(ctx, queryInsertReferral,
		referral.Id, referral.ReferrerId, referral.ReferredId, referral.Level,
		referral.TotalEarned.String(), formatTime(referral.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert referral: %w", translateError(err))
	}
	return nil
}

func (q queries) listReferrals(ctx context.Context, query, userId string) ([]models.Referral, error) {
	rows, err := q.q.QueryContext(ctx, query, userId)
	if err != nil {
		zap.L().Error("Failed to query referrals", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query referrals: %w", err)
	}
	defer closeRows(rows)

	var referrals []models.Referral
	for rows.Next() {
		referral, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan referral row: %w", err)
		}
		referrals = append(referrals, *referral)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral rows: %w", err)
	}
	return referrals, nil
}

func (q queries) ListReferralsByReferred(ctx context.Context, referredId string) ([]models.Referral, error) {
	return q.listReferrals(ctx, queryListReferralsByReferred, referredId)
}

func (q queries) ListReferralsByReferrer(ctx context.Context, referrerId string) ([]models.Referral, error) {
	return q.listReferrals(ctx, queryListReferralsByReferrer, referrerId)
}

// AddReferralEarnings adds amount to the edge total. Decimal text columns
// cannot be summed in SQL without losing precision, so this reads then writes.
func (q queries) AddReferralEarnings(ctx context.Context, referralId string, amount decimal.Decimal) error {
	var current string
	if err := q.q.QueryRowContext(ctx, queryGetReferralEarned, referralId).Scan(&current); err != nil {
		return fmt.Errorf("unable to read referral earnings: %w", translateError(err))
	}

	var p fieldParser
	total := p.decimal("total_earned", current)
	if p.err != nil {
		return p.err
	}

	result, err := q.q.ExecContext(ctx, querySetReferralEarned, total.Add(amount).String(), referralId)
	if err != nil {
		return fmt.Errorf("failed to update referral earnings: %w", err)
	}
	return checkAffected(result)
}
