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

// Package admin exposes the manual overrides available to operators. Every
// operation is checked against the authorization policy first.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invest-engine-go/internal/account"
	"invest-engine-go/internal/auth"
	"invest-engine-go/internal/deposit"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sweeper runs a payout sweep on demand
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Service struct {
	store    store.Store
	policy   *auth.Policy
	deposits *deposit.Manager
	accounts *account.Service
	sweeper  Sweeper
}

func NewService(st store.Store, policy *auth.Policy, deposits *deposit.Manager, accounts *account.Service, sweeper Sweeper) *Service {
	return &Service{
		store:    st,
		policy:   policy,
		deposits: deposits,
		accounts: accounts,
		sweeper:  sweeper,
	}
}

// authorize checks the actor and tags ctx with the admin origin
func (s *Service) authorize(ctx context.Context, actorTgId int64, capability auth.Capability) (context.Context, error) {
	actor, err := s.policy.Authorize(ctx, actorTgId, capability)
	if err != nil {
		return ctx, err
	}
	return models.WithOrigin(ctx, models.Origin{Source: "admin", ActorId: actor.Id}), nil
}

func (s *Service) ApproveDeposit(ctx context.Context, actorTgId int64, depositId string) (*models.Deposit, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ApproveDeposits)
	if err != nil {
		return nil, err
	}
	return s.deposits.Activate(ctx, depositId)
}

func (s *Service) RejectDeposit(ctx context.Context, actorTgId int64, depositId string) (*models.Deposit, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ApproveDeposits)
	if err != nil {
		return nil, err
	}
	return s.deposits.Reject(ctx, depositId)
}

func (s *Service) ApproveWithdrawal(ctx context.Context, actorTgId int64, transactionId string) (*models.Transaction, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ApproveWithdrawals)
	if err != nil {
		return nil, err
	}
	return s.accounts.ApproveWithdrawal(ctx, transactionId)
}

func (s *Service) RejectWithdrawal(ctx context.Context, actorTgId int64, transactionId string) (*models.Transaction, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ApproveWithdrawals)
	if err != nil {
		return nil, err
	}
	return s.accounts.RejectWithdrawal(ctx, transactionId)
}

// AddBalance credits a manual payment to a user
func (s *Service) AddBalance(ctx context.Context, actorTgId int64, userId string, amount decimal.Decimal) (*models.User, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.AdjustBalance)
	if err != nil {
		return nil, err
	}
	return s.accounts.AddFunds(ctx, userId, amount, "Top-up by administrator")
}

// TriggerPayouts runs a sweep out of band
func (s *Service) TriggerPayouts(ctx context.Context, actorTgId int64) (int, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.TriggerPayouts)
	if err != nil {
		return 0, err
	}
	zap.L().Info("Payout sweep triggered by admin", zap.String("actor_id", models.OriginFrom(ctx).ActorId))
	return s.sweeper.Sweep(ctx)
}

func (s *Service) SetBanned(ctx context.Context, actorTgId int64, userId string, banned bool) (*models.User, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ManageUsers)
	if err != nil {
		return nil, err
	}
	return s.accounts.SetBanned(ctx, userId, banned)
}

// PromoParams contains the parameters for creating a promo code
type PromoParams struct {
	Code           string
	Amount         decimal.Decimal
	Description    string
	MaxUsesTotal   int
	MaxUsesPerUser int
	ValidFrom      *time.Time
	ValidTo        *time.Time
}

func (s *Service) CreatePromo(ctx context.Context, actorTgId int64, params PromoParams) (*models.PromoCode, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ManagePromos)
	if err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(params.Code))
	if code == "" {
		return nil, fmt.Errorf("%w: promo code is required", models.ErrValidation)
	}
	if !params.Amount.IsPositive() {
		return nil, models.ErrNonPositiveAmount
	}
	if params.MaxUsesPerUser <= 0 {
		params.MaxUsesPerUser = 1
	}

	promo := &models.PromoCode{
		Id:             uuid.New().String(),
		Code:           code,
		Amount:         params.Amount,
		Description:    params.Description,
		IsActive:       true,
		MaxUsesTotal:   params.MaxUsesTotal,
		MaxUsesPerUser: params.MaxUsesPerUser,
		ValidFrom:      params.ValidFrom,
		ValidTo:        params.ValidTo,
	}
	if err := s.store.CreatePromoCode(ctx, promo); err != nil {
		return nil, err
	}

	zap.L().Info("Promo code created",
		zap.String("code", promo.Code),
		zap.String("amount", promo.Amount.String()),
		zap.String("actor_id", models.OriginFrom(ctx).ActorId))
	return promo, nil
}

func (s *Service) PendingDeposits(ctx context.Context, actorTgId int64) ([]models.Deposit, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ApproveDeposits)
	if err != nil {
		return nil, err
	}
	return s.deposits.PendingDeposits(ctx)
}

func (s *Service) PendingWithdrawals(ctx context.Context, actorTgId int64) ([]models.Transaction, error) {
	ctx, err := s.authorize(ctx, actorTgId, auth.ApproveWithdrawals)
	if err != nil {
		return nil, err
	}
	return s.accounts.PendingWithdrawals(ctx)
}
