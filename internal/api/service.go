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

// Package api is the facade consumed by HTTP routers and the chat bot. User
// mistakes come back as unsuccessful results; only service failures are
// returned as errors.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invest-engine-go/internal/account"
	"invest-engine-go/internal/deposit"
	"invest-engine-go/internal/feed"
	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"
	"invest-engine-go/internal/tariff"

	"go.uber.org/zap"
)

// Sweeper runs a payout sweep on demand
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Dependencies wires the facade to the core services. Feed may be nil.
type Dependencies struct {
	Store    store.Store
	Tariffs  *tariff.Service
	Recorder *ledger.Recorder
	Deposits *deposit.Manager
	Accounts *account.Service
	Sweeper  Sweeper
	Feed     *feed.Publisher
	Clock    func() time.Time
}

type Service struct {
	store    store.Store
	tariffs  *tariff.Service
	recorder *ledger.Recorder
	deposits *deposit.Manager
	accounts *account.Service
	sweeper  Sweeper
	feed     *feed.Publisher
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{
		store:    deps.Store,
		tariffs:  deps.Tariffs,
		recorder: deps.Recorder,
		deposits: deps.Deposits,
		accounts: deps.Accounts,
		sweeper:  deps.Sweeper,
		feed:     deps.Feed,
		now:      deps.Clock,
	}
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func withOrigin(ctx context.Context, userId string) context.Context {
	return models.WithOrigin(ctx, models.Origin{Source: "api", ActorId: userId})
}

// rejected turns a user-facing failure into a result. Anything else is a
// service failure and is returned as an error.
func rejected(operation, userId string, err error) (*models.OperationResult, error) {
	if models.IsValidation(err) || errors.Is(err, store.ErrNotFound) {
		zap.L().Info("Operation rejected",
			zap.String("operation", operation),
			zap.String("user_id", userId),
			zap.String("reason", err.Error()))
		return &models.OperationResult{
			Success: false,
			UserId:  userId,
			Error:   err.Error(),
		}, nil
	}

	zap.L().Error("Operation failed",
		zap.String("operation", operation),
		zap.String("user_id", userId),
		zap.Error(err))
	return nil, fmt.Errorf("%s failed: %w", operation, err)
}
