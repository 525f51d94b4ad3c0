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

package api

import (
	"context"
	"fmt"

	"invest-engine-go/internal/account"
	"invest-engine-go/internal/feed"
	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"

	"go.uber.org/zap"
)

// Register returns the user for tgId, creating it on first contact
func (s *Service) Register(ctx context.Context, params account.RegisterParams) (*models.User, bool, error) {
	ctx = models.WithOrigin(ctx, models.Origin{Source: "api"})
	user, created, err := s.accounts.Register(ctx, params)
	if err != nil {
		zap.L().Error("Failed to register user", zap.Int64("tg_id", params.TgId), zap.Error(err))
		return nil, false, err
	}
	return user, created, nil
}

// GetUserStats returns the dashboard aggregates for a user
func (s *Service) GetUserStats(ctx context.Context, userId string) (*models.UserStats, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	stats, err := s.accounts.Stats(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user stats", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve stats: %w", err)
	}
	return stats, nil
}

// GetTransactionHistory returns the user's real transactions, newest first.
// An empty txType returns every type.
func (s *Service) GetTransactionHistory(ctx context.Context, userId string, txType models.TransactionType, limit int) ([]models.TransactionRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	transactions, err := s.recorder.History(ctx, s.store, userId, txType, limit)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("user_id", userId),
			zap.String("type", string(txType)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	result := make([]models.TransactionRecord, len(transactions))
	for i, tx := range transactions {
		result[i] = ledger.ToRecord(tx)
	}
	return result, nil
}

func (s *Service) GetReferralStats(ctx context.Context, userId string) (*models.ReferralStats, error) {
	return s.accounts.ReferralStats(ctx, userId)
}

func (s *Service) GetPartners(ctx context.Context, userId string) ([]models.PartnerView, error) {
	return s.accounts.Partners(ctx, userId)
}

// GetTariffs lists the active tariffs in display order
func (s *Service) GetTariffs(ctx context.Context) ([]models.Tariff, error) {
	return s.store.ListTariffs(ctx, true)
}

// LiveSnapshot returns the initial live feed payload for a new client
func (s *Service) LiveSnapshot(ctx context.Context) (feed.Snapshot, error) {
	if s.feed == nil {
		return feed.Snapshot{}, fmt.Errorf("live feed is not configured")
	}
	return s.feed.Snapshot(ctx), nil
}
