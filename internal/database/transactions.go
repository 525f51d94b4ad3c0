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
	"strings"
	"time"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"go.uber.org/zap"
)

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var transaction models.Transaction
	var txType, amount, status, createdAt, updatedAt string
	err := row.Scan(&transaction.Id, &transaction.UserId, &txType, &amount, &status,
		&transaction.Description, &transaction.HashCode, &transaction.IsFake, &transaction.IsVisible,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if transaction.Type, err = models.ParseTransactionType(txType); err != nil {
		return nil, err
	}
	if transaction.Status, err = models.ParseTransactionStatus(status); err != nil {
		return nil, err
	}

	var p fieldParser
	transaction.Amount = p.decimal("amount", amount)
	transaction.CreatedAt = p.time("created_at", createdAt)
	transaction.UpdatedAt = p.time("updated_at", updatedAt)
	if p.err != nil {
		return nil, p.err
	}
	return &transaction, nil
}

func (q queries) InsertTransaction(ctx context.Context, transaction *models.Transaction) error {
	now := time.Now().UTC()
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = now
	}
	transaction.UpdatedAt = transaction.CreatedAt

	_, err := q.q.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.UserId, string(transaction.Type), transaction.Amount.String(),
		string(transaction.Status), transaction.Description, transaction.HashCode,
		transaction.IsFake, transaction.IsVisible,
		formatTime(transaction.CreatedAt), formatTime(transaction.UpdatedAt))
	if err != nil {
		zap.L().Error("Failed to insert transaction",
			zap.String("user_id", transaction.UserId),
			zap.String("type", string(transaction.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to insert transaction: %w", translateError(err))
	}
	return nil
}

func (q queries) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	transaction, err := scanTransaction(q.q.QueryRowContext(ctx, queryGetTransaction, transactionId))
	if err != nil {
		if err = translateError(err); errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", transactionId, err)
		}
		return nil, fmt.Errorf("unable to query transaction: %w", err)
	}
	return transaction, nil
}

func (q queries) UpdateTransactionStatus(ctx context.Context, transactionId string, from, to models.TransactionStatus) error {
	result, err := q.q.ExecContext(ctx, queryUpdateTransactionStatus, string(to), formatTime(time.Now()), transactionId, string(from))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return fmt.Errorf("transaction %s status %s -> %s failed - %w", transactionId, from, to, err)
	}
	return nil
}

// buildTransactionFilter renders the WHERE clause for a filter
func buildTransactionFilter(filter store.TransactionFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.UserId != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.IncludeFake {
		conditions = append(conditions, "is_fake = 0")
	}
	if filter.VisibleOnly {
		conditions = append(conditions, "is_visible = 1")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (q queries) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	where, args := buildTransactionFilter(filter)
	query := "SELECT " + transactionColumns + " FROM transactions" + where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query transactions", zap.String("user_id", filter.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to query transactions: %w", err)
	}
	defer closeRows(rows)

	var transactions []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction row: %w", err)
		}
		transactions = append(transactions, *transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

func (q queries) CountTransactions(ctx context.Context, filter store.TransactionFilter) (int, error) {
	where, args := buildTransactionFilter(filter)

	var count int
	if err := q.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count transactions: %w", err)
	}
	return count, nil
}
