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

	"invest-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

// RequestWithdrawal reserves amount for a pending withdrawal
func (s *Service) RequestWithdrawal(ctx context.Context, userId string, amount decimal.Decimal) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	_, user, err := s.accounts.RequestWithdrawal(ctx, userId, amount)
	if err != nil {
		return rejected("request withdrawal", userId, err)
	}
	return &models.OperationResult{Success: true, UserId: userId, Amount: amount, NewBalance: user.Balance}, nil
}

func (s *Service) GameBet(ctx context.Context, userId string, amount decimal.Decimal) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	user, err := s.accounts.GameBet(ctx, userId, amount)
	if err != nil {
		return rejected("game bet", userId, err)
	}
	return &models.OperationResult{Success: true, UserId: userId, Amount: amount, NewBalance: user.Balance}, nil
}

func (s *Service) GamePayout(ctx context.Context, userId string, amount decimal.Decimal) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	user, err := s.accounts.GamePayout(ctx, userId, amount)
	if err != nil {
		return rejected("game payout", userId, err)
	}
	return &models.OperationResult{Success: true, UserId: userId, Amount: amount, NewBalance: user.Balance}, nil
}

// RedeemPromo applies a promo code
func (s *Service) RedeemPromo(ctx context.Context, userId, code string) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	promo, user, err := s.accounts.RedeemPromo(ctx, userId, code)
	if err != nil {
		return rejected("redeem promo", userId, err)
	}
	return &models.OperationResult{Success: true, UserId: userId, Amount: promo.Amount, NewBalance: user.Balance}, nil
}

// CreditBonus grants a bonus credit
func (s *Service) CreditBonus(ctx context.Context, userId string, amount decimal.Decimal, description string) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	user, err := s.accounts.CreditBonus(ctx, userId, amount, description)
	if err != nil {
		return rejected("credit bonus", userId, err)
	}
	return &models.OperationResult{Success: true, UserId: userId, Amount: amount, NewBalance: user.Balance}, nil
}

func (s *Service) SetAutoReinvest(ctx context.Context, userId string, enabled bool) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	user, err := s.accounts.SetAutoReinvest(ctx, userId, enabled)
	if err != nil {
		return rejected("set auto-reinvest", userId, err)
	}
	return &models.OperationResult{Success: true, UserId: userId, NewBalance: user.Balance}, nil
}
