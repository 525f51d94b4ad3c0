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

package account

import (
	"context"
	"errors"
	"fmt"

	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestWithdrawal reserves amount from the balance and records a pending
// withdrawal for an admin to approve. Users need an active deposit or at
// least one completed real deposit first.
func (s *Service) RequestWithdrawal(ctx context.Context, userId string, amount decimal.Decimal) (*models.Transaction, *models.User, error) {
	if !amount.IsPositive() {
		return nil, nil, models.ErrNonPositiveAmount
	}

	var request *models.Transaction
	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}
		if user.IsBanned {
			return models.ErrUserBanned
		}
		if err := s.checkWithdrawalAllowed(ctx, tx, userId); err != nil {
			return err
		}
		if user.Balance.LessThan(amount) {
			return models.ErrInsufficientBalance
		}

		user.Balance = user.Balance.Sub(amount)
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}

		request, err = s.recorder.Record(ctx, tx, ledger.RecordParams{
			UserId:      user.Id,
			Type:        models.TxWithdraw,
			Amount:      amount.Neg(),
			Status:      models.TxPending,
			Description: fmt.Sprintf("Withdrawal request %s", amount.String()),
			IsVisible:   true,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Withdrawal requested",
		zap.String("transaction_id", request.Id),
		zap.String("user_id", userId),
		zap.String("amount", amount.String()))
	return request, user, nil
}

func (s *Service) checkWithdrawalAllowed(ctx context.Context, q store.Queries, userId string) error {
	_, err := q.GetActiveDeposit(ctx, userId)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	deposits, err := q.CountTransactions(ctx, store.TransactionFilter{
		UserId: userId,
		Type:   models.TxDeposit,
		Status: models.TxCompleted,
	})
	if err != nil {
		return err
	}
	if deposits == 0 {
		return models.ErrWithdrawalNotAllowed
	}
	return nil
}

// ApproveWithdrawal completes a pending withdrawal request
func (s *Service) ApproveWithdrawal(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return s.settleWithdrawal(ctx, transactionId, models.TxCompleted)
}

// RejectWithdrawal rejects a pending withdrawal request and refunds the
// reserved amount
func (s *Service) RejectWithdrawal(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return s.settleWithdrawal(ctx, transactionId, models.TxRejected)
}

func (s *Service) settleWithdrawal(ctx context.Context, transactionId string, to models.TransactionStatus) (*models.Transaction, error) {
	var request *models.Transaction
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		request, err = tx.GetTransaction(ctx, transactionId)
		if err != nil {
			return err
		}
		if request.Type != models.TxWithdraw {
			return models.ErrNotWithdrawal
		}
		if request.Status != models.TxPending {
			return fmt.Errorf("%w: transaction %s is %s", models.ErrTransactionNotPending, request.Id, request.Status)
		}

		if err := tx.UpdateTransactionStatus(ctx, request.Id, models.TxPending, to); err != nil {
			return err
		}
		request.Status = to

		if to == models.TxRejected {
			user, err := tx.GetUser(ctx, request.UserId)
			if err != nil {
				return err
			}
			user.Balance = user.Balance.Add(request.Amount.Abs())
			if err := tx.UpdateUser(ctx, user); err != nil {
				return err
			}
		}

		s.recorder.Republish(ctx, tx, *request)
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Withdrawal settled",
		zap.String("transaction_id", request.Id),
		zap.String("user_id", request.UserId),
		zap.String("status", string(to)),
		zap.String("amount", request.Amount.String()))
	return request, nil
}

// PendingWithdrawals lists withdrawal requests awaiting a decision
func (s *Service) PendingWithdrawals(ctx context.Context) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, store.TransactionFilter{
		Type:   models.TxWithdraw,
		Status: models.TxPending,
	})
}
