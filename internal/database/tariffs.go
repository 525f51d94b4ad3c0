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
	"errors"
	"fmt"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"go.uber.org/zap"
)

func scanTariff(row rowScanner) (*models.Tariff, error) {
	var tariff models.Tariff
	var dailyPercent, minAmount, maxAmount string
	err := row.Scan(&tariff.Id, &tariff.Name, &tariff.Label, &dailyPercent, &minAmount, &maxAmount,
		&tariff.IsActive, &tariff.SortOrder)
	if err != nil {
		return nil, err
	}

	var p fieldParser
	tariff.DailyPercent = p.decimal("daily_percent", dailyPercent)
	tariff.MinAmount = p.decimal("min_amount", minAmount)
	tariff.MaxAmount = p.decimal("max_amount", maxAmount)
	if p.err != nil {
		return nil, p.err
	}
	return &tariff, nil
}

func (q queries) ListTariffs(ctx context.Context, activeOnly bool) ([]models.Tariff, error) {
	query := queryListTariffs
	if activeOnly {
		query = queryListActiveTariffs
	}

	rows, err := q.q.QueryContext(ctx, query)
	if err != nil {
		zap.L().Error("Failed to query tariffs", zap.Error(err))
		return nil, fmt.Errorf("unable to query tariffs: %w", err)
	}
	defer closeRows(rows)

	var tariffs []models.Tariff
	for rows.Next() {
		tariff, err := scanTariff(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan tariff row: %w", err)
		}
		tariffs = append(tariffs, *tariff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tariff rows: %w", err)
	}
	return tariffs, nil
}

func (q queries) GetTariff(ctx context.Context, tariffId string) (*models.Tariff, error) {
	tariff, err := scanTariff(q.q.QueryRowContext(ctx, queryGetTariff, tariffId))
	if err != nil {
		if err = translateError(err); errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("tariff %s: %w", tariffId, err)
		}
		return nil, fmt.Errorf("unable to query tariff: %w", err)
	}
	return tariff, nil
}

func (q queries) UpsertTariff(ctx context.Context, tariff *models.Tariff) error {
	_, err := q.q.ExecContext(ctx, queryUpsertTariff,
		tariff.Id, tariff.Name, tariff.Label, tariff.DailyPercent.String(),
		tariff.MinAmount.String(), tariff.MaxAmount.String(), tariff.IsActive, tariff.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to upsert tariff %s: %w", tariff.Name, translateError(err))
	}

	zap.L().Debug("Tariff stored",
		zap.String("tariff_id", tariff.Id),
		zap.String("name", tariff.Name),
		zap.String("daily_percent", tariff.DailyPercent.String()))
	return nil
}
