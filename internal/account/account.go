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

// Package account holds the user-facing operations around the deposit core:
// registration, bonus and promo credits, withdrawal requests, the exchange
// mini-game and the dashboard aggregates.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invest-engine-go/internal/auth"
	"invest-engine-go/internal/deposit"
	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/referral"
	"invest-engine-go/internal/store"
	"invest-engine-go/internal/tariff"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterParams contains the parameters for registering a user
type RegisterParams struct {
	TgId         int64
	Username     string
	FirstName    string
	ReferrerTgId int64
}

type Service struct {
	store     store.Store
	tariffs   *tariff.Service
	referrals *referral.Service
	recorder  *ledger.Recorder
	deposits  *deposit.Manager
	policy    *auth.Policy
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, tariffs *tariff.Service, referrals *referral.Service, recorder *ledger.Recorder,
	deposits *deposit.Manager, policy *auth.Policy, opts ...Option) *Service {
	s := &Service{
		store:     st,
		tariffs:   tariffs,
		referrals: referrals,
		recorder:  recorder,
		deposits:  deposits,
		policy:    policy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register returns the user with params.TgId, creating it when missing. New
// users are linked to their referrer, if it exists and is not themselves, and
// get their referral chain built. created reports whether a user was made.
func (s *Service) Register(ctx context.Context, params RegisterParams) (user *models.User, created bool, err error) {
	if params.TgId <= 0 {
		return nil, false, fmt.Errorf("%w: tg id is required", models.ErrValidation)
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetUserByTgId(ctx, params.TgId)
		switch {
		case err == nil:
			user, created = existing, false
			return s.refreshProfile(ctx, tx, existing, params)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		user = &models.User{
			Id:        uuid.New().String(),
			TgId:      params.TgId,
			Username:  params.Username,
			FirstName: params.FirstName,
			IsAdmin:   s.policy != nil && s.policy.Allowlisted(params.TgId),
			CreatedAt: s.now().UTC(),
		}

		if params.ReferrerTgId != 0 && params.ReferrerTgId != params.TgId {
			referrer, err := tx.GetUserByTgId(ctx, params.ReferrerTgId)
			switch {
			case err == nil:
				user.ReferrerId = referrer.Id
			case errors.Is(err, store.ErrNotFound):
				zap.L().Warn("Referrer not found, registering without one",
					zap.Int64("tg_id", params.TgId),
					zap.Int64("referrer_tg_id", params.ReferrerTgId))
			default:
				return err
			}
		}

		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if _, err := s.referrals.BuildChain(ctx, tx, user); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		zap.L().Info("User registered",
			zap.String("user_id", user.Id),
			zap.Int64("tg_id", user.TgId),
			zap.String("referrer_id", user.ReferrerId),
			zap.Bool("is_admin", user.IsAdmin))
	}
	return user, created, nil
}

func (s *Service) refreshProfile(ctx context.Context, tx store.Tx, user *models.User, params RegisterParams) error {
	changed := false
	if params.Username != "" && params.Username != user.Username {
		user.Username = params.Username
		changed = true
	}
	if params.FirstName != "" && params.FirstName != user.FirstName {
		user.FirstName = params.FirstName
		changed = true
	}
	if !changed {
		return nil
	}
	return tx.UpdateUser(ctx, user)
}

// GetUser looks a user up by Telegram id
func (s *Service) GetUser(ctx context.Context, tgId int64) (*models.User, error) {
	return s.store.GetUserByTgId(ctx, tgId)
}

// SetAutoReinvest sets the user's compounding preference and applies it to
// the active deposit as well.
func (s *Service) SetAutoReinvest(ctx context.Context, userId string, enabled bool) (*models.User, error) {
	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		user.AutoReinvest = enabled
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}

		active, err := tx.GetActiveDeposit(ctx, userId)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		active.AutoReinvest = enabled
		return tx.UpdateDeposit(ctx, active)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Auto-reinvest updated", zap.String("user_id", userId), zap.Bool("enabled", enabled))
	return user, nil
}

// SetBanned bans or unbans a user
func (s *Service) SetBanned(ctx context.Context, userId string, banned bool) (*models.User, error) {
	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		user.IsBanned = banned
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User ban flag updated", zap.String("user_id", userId), zap.Bool("banned", banned))
	return user, nil
}
