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

// Package ledger appends immutable financial records and hands committed,
// feed-eligible records to the live feed publisher.
package ledger

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"invest-engine-go/internal/metrics"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

// Publisher receives committed transactions for the live feed. Implementations
// must not block.
type Publisher interface {
	Publish(ctx context.Context, transaction models.Transaction)
}

// RecordParams contains the parameters for recording a transaction
type RecordParams struct {
	UserId      string
	Type        models.TransactionType
	Amount      decimal.Decimal
	Status      models.TransactionStatus
	Description string
	IsVisible   bool
	IsFake      bool
}

type Recorder struct {
	publisher Publisher
	metrics   *metrics.Collector
	now       func() time.Time
}

type Option func(*Recorder)

// WithClock stamps transactions with now instead of time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder. publisher may be nil.
func NewRecorder(publisher Publisher, collector *metrics.Collector, opts ...Option) *Recorder {
	r := &Recorder{publisher: publisher, metrics: collector, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HashCode returns the display-only token shown next to feed entries
func HashCode() string {
	return fmt.Sprintf("Ha$h: %d", 1000+rand.IntN(9000))
}

// Record inserts the transaction in the caller's unit of work. Visible real
// transactions are published once the unit of work commits.
func (r *Recorder) Record(ctx context.Context, tx store.Tx, params RecordParams) (*models.Transaction, error) {
	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", models.ErrValidation, params.Type)
	}
	if params.Status == "" {
		params.Status = models.TxPending
	}
	if !params.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction status %q", models.ErrValidation, params.Status)
	}

	transaction := &models.Transaction{
		Id:          uuid.New().String(),
		UserId:      params.UserId,
		Type:        params.Type,
		Amount:      params.Amount,
		Status:      params.Status,
		Description: params.Description,
		HashCode:    HashCode(),
		IsFake:      params.IsFake,
		IsVisible:   params.IsVisible,
		CreatedAt:   r.now().UTC(),
	}
	if err := tx.InsertTransaction(ctx, transaction); err != nil {
		return nil, err
	}

	origin := models.OriginFrom(ctx)
	zap.L().Info("Transaction recorded",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", transaction.UserId),
		zap.String("type", string(transaction.Type)),
		zap.String("status", string(transaction.Status)),
		zap.String("amount", transaction.Amount.String()),
		zap.String("origin", origin.Source),
		zap.String("actor_id", origin.ActorId))

	recorded := *transaction
	tx.AfterCommit(func() {
		r.metrics.RecordTransaction(string(recorded.Type), string(recorded.Status))
	})
	r.publishAfterCommit(ctx, tx, recorded)
	return transaction, nil
}

// Republish pushes a transaction to the feed again after a status change,
// once tx commits.
func (r *Recorder) Republish(ctx context.Context, tx store.Tx, transaction models.Transaction) {
	r.publishAfterCommit(ctx, tx, transaction)
}

func (r *Recorder) publishAfterCommit(ctx context.Context, tx store.Tx, transaction models.Transaction) {
	if r.publisher == nil || !transaction.IsVisible || transaction.IsFake {
		return
	}
	// The request context may be gone by the time hooks run
	publishCtx := context.WithoutCancel(ctx)
	tx.AfterCommit(func() {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("Feed publisher panicked",
					zap.String("transaction_id", transaction.Id),
					zap.Any("panic", rec))
			}
		}()
		r.publisher.Publish(publishCtx, transaction)
	})
}

// History returns the user's real transactions, newest first. An empty
// txType matches every type.
func (r *Recorder) History(ctx context.Context, q store.Queries, userId string, txType models.TransactionType, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if txType != "" && !txType.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", models.ErrValidation, txType)
	}

	transactions, err := q.ListTransactions(ctx, store.TransactionFilter{
		UserId: userId,
		Type:   txType,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}
	return transactions, nil
}

// ToRecord converts a transaction for API responses
func ToRecord(transaction models.Transaction) models.TransactionRecord {
	return models.TransactionRecord{
		Id:          transaction.Id,
		Type:        string(transaction.Type),
		Amount:      transaction.Amount,
		Status:      string(transaction.Status),
		Description: transaction.Description,
		HashCode:    transaction.HashCode,
		CreatedAt:   transaction.CreatedAt,
	}
}
