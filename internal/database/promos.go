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
)

func scanPromoCode(row rowScanner) (*models.PromoCode, error) {
	var promo models.PromoCode
	var amount, createdAt string
	var validFrom, validTo sql.NullString
	err := row.Scan(&promo.Id, &promo.Code, &amount, &promo.Description, &promo.IsActive,
		&promo.MaxUsesTotal, &promo.MaxUsesPerUser, &validFrom, &validTo, &createdAt)
	if err != nil {
		return nil, err
	}

	var p fieldParser
	promo.Amount = p.decimal("amount", amount)
	promo.ValidFrom = p.optionalTime("valid_from", validFrom)
	promo.ValidTo = p.optionalTime("valid_to", validTo)
	promo.CreatedAt = p.time("created_at", createdAt)
	if p.err != nil {
		return nil, p.err
	}
	return &promo, nil
}

func (q queries) CreatePromoCode(ctx context.Context, promo *models.PromoCode) error {
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}
	_, err := q.q.ExecContext(ctx, queryInsertPromoCode,
		promo.Id, promo.Code, promo.Amount.String(), promo.Description, promo.IsActive,
		promo.MaxUsesTotal, promo.MaxUsesPerUser,
		formatOptionalTime(promo.ValidFrom), formatOptionalTime(promo.ValidTo), formatTime(promo.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert promo code: %w", translateError(err))
	}
	return nil
}

// GetPromoCodeByCode matches case-insensitively
func (q queries) GetPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	promo, err := scanPromoCode(q.q.QueryRowContext(ctx, queryGetPromoCodeByCode, code))
	if err != nil {
		if err = translateError(err); errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("promo code %q: %w", code, err)
		}
		return nil, fmt.Errorf("unable to query promo code: %w", err)
	}
	return promo, nil
}

// CountPromoRedemptions counts uses of a code, by one user when userId is set
func (q queries) CountPromoRedemptions(ctx context.Context, promoCodeId, userId string) (int, error) {
	var count int
	var err error
	if userId == "" {
		err = q.q.QueryRowContext(ctx, queryCountPromoRedemptions, promoCodeId).Scan(&count)
	} else {
		err = q.q.QueryRowContext(ctx, queryCountUserPromoRedemptions, promoCodeId, userId).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("unable to count promo redemptions: %w", err)
	}
	return count, nil
}

func (q queries) InsertPromoRedemption(ctx context.Context, redemption *models.PromoRedemption) error {
	if redemption.RedeemedAt.IsZero() {
		redemption.RedeemedAt = time.Now().UTC()
	}
	_, err := q.q.ExecContext(ctx, queryInsertPromoRedemption,
		redemption.Id, redemption.PromoCodeId, redemption.UserId, redemption.Amount.String(), formatTime(redemption.RedeemedAt))
	if err != nil {
		return fmt.Errorf("failed to insert promo redemption: %w", translateError(err))
	}
	return nil
}
