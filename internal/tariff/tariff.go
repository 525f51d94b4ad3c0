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

// Package tariff maps a user's invested principal to an interest tier.
package tariff

import (
	"context"
	"fmt"
	"sort"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Resolve picks the tariff for total among the active entries of tariffs.
//
// The covering tariff with the highest daily percent wins. When no range
// covers total, the best tariff whose minimum is at or below total is used,
// and below the lowest tier the tariff with the smallest minimum applies.
// Remaining ties go to the lower sort order, then the lower id.
func Resolve(tariffs []models.Tariff, total decimal.Decimal) (*models.Tariff, error) {
	active := activeTariffs(tariffs)
	if len(active) == 0 {
		return nil, models.ErrNoActiveTariff
	}

	var covering, below []models.Tariff
	for _, t := range active {
		if t.Covers(total) {
			covering = append(covering, t)
		}
		if t.MinAmount.LessThanOrEqual(total) {
			below = append(below, t)
		}
	}

	if len(covering) > 0 {
		sort.SliceStable(covering, func(i, j int) bool {
			if c := covering[i].DailyPercent.Cmp(covering[j].DailyPercent); c != 0 {
				return c > 0
			}
			return before(covering[i], covering[j])
		})
		return &covering[0], nil
	}

	if len(below) > 0 {
		sort.SliceStable(below, func(i, j int) bool {
			if c := below[i].DailyPercent.Cmp(below[j].DailyPercent); c != 0 {
				return c > 0
			}
			if c := below[i].MinAmount.Cmp(below[j].MinAmount); c != 0 {
				return c > 0
			}
			return before(below[i], below[j])
		})
		return &below[0], nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		if c := active[i].MinAmount.Cmp(active[j].MinAmount); c != 0 {
			return c < 0
		}
		return before(active[i], active[j])
	})
	return &active[0], nil
}

// Next returns the cheapest active tariff whose minimum is above total, or
// nil when total already sits in the top tier.
func Next(tariffs []models.Tariff, total decimal.Decimal) *models.Tariff {
	var next *models.Tariff
	for _, t := range activeTariffs(tariffs) {
		if !t.MinAmount.GreaterThan(total) {
			continue
		}
		if next == nil || t.MinAmount.LessThan(next.MinAmount) ||
			(t.MinAmount.Equal(next.MinAmount) && before(t, *next)) {
			t := t
			next = &t
		}
	}
	return next
}

func activeTariffs(tariffs []models.Tariff) []models.Tariff {
	active := make([]models.Tariff, 0, len(tariffs))
	for _, t := range tariffs {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active
}

func before(a, b models.Tariff) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.Id < b.Id
}

// Service resolves tariffs against the tariffs table
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ForAmount loads the active tariffs through q and resolves total
func (s *Service) ForAmount(ctx context.Context, q store.Queries, total decimal.Decimal) (*models.Tariff, error) {
	tariffs, err := q.ListTariffs(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load tariffs: %w", err)
	}
	return Resolve(tariffs, total)
}

// NextTariff returns the next upgrade tier for total, or nil
func (s *Service) NextTariff(ctx context.Context, q store.Queries, total decimal.Decimal) (*models.Tariff, error) {
	tariffs, err := q.ListTariffs(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load tariffs: %w", err)
	}
	return Next(tariffs, total), nil
}

// UpdateUserTariff re-resolves the user's tier from TotalDeposit and, when it
// changed, persists the user in the caller's unit of work.
func (s *Service) UpdateUserTariff(ctx context.Context, q store.Queries, user *models.User) (*models.Tariff, error) {
	resolved, err := s.ForAmount(ctx, q, user.TotalDeposit)
	if err != nil {
		return nil, err
	}
	if user.CurrentTariffId == resolved.Id {
		return resolved, nil
	}

	previous := user.CurrentTariffId
	user.CurrentTariffId = resolved.Id
	if err := q.UpdateUser(ctx, user); err != nil {
		user.CurrentTariffId = previous
		return nil, fmt.Errorf("failed to persist user tariff: %w", err)
	}

	zap.L().Info("User tariff changed",
		zap.String("user_id", user.Id),
		zap.String("from_tariff_id", previous),
		zap.String("to_tariff_id", resolved.Id),
		zap.String("total_deposit", user.TotalDeposit.String()))
	return resolved, nil
}
