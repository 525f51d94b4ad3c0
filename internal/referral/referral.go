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

// Package referral distributes deposit commissions up a three-level
// referrer chain and builds that chain when a user registers.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/metrics"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxLevel is the depth of the referral chain
const MaxLevel = 3

var levelPercents = map[int]decimal.Decimal{
	1: decimal.NewFromInt(20),
	2: decimal.NewFromInt(7),
	3: decimal.NewFromInt(4),
}

var hundred = decimal.NewFromInt(100)

// LevelPercent returns the commission percent for a level, zero when unknown
func LevelPercent(level int) decimal.Decimal {
	if pct, ok := levelPercents[level]; ok {
		return pct
	}
	return decimal.Zero
}

type Service struct {
	recorder    *ledger.Recorder
	metrics     *metrics.Collector
	botUsername string
}

func NewService(recorder *ledger.Recorder, collector *metrics.Collector, botUsername string) *Service {
	return &Service{recorder: recorder, metrics: collector, botUsername: botUsername}
}

// ProcessDepositReferral pays every ancestor of user its level share of
// amount. It runs in the caller's unit of work, so a failure on any edge
// rolls back all of them. Returns the total paid.
func (s *Service) ProcessDepositReferral(ctx context.Context, tx store.Tx, user *models.User, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	edges, err := tx.ListReferralsByReferred(ctx, user.Id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load referral edges: %w", err)
	}

	total := decimal.Zero
	for _, edge := range edges {
		pct := LevelPercent(edge.Level)
		if !pct.IsPositive() {
			continue
		}
		commission := amount.Mul(pct).Div(hundred)

		if err := tx.AddReferralEarnings(ctx, edge.Id, commission); err != nil {
			return decimal.Zero, fmt.Errorf("failed to credit referral edge %s: %w", edge.Id, err)
		}

		referrer, err := tx.GetUser(ctx, edge.ReferrerId)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to load referrer %s: %w", edge.ReferrerId, err)
		}
		referrer.ReferralEarned = referrer.ReferralEarned.Add(commission)
		referrer.Balance = referrer.Balance.Add(commission)
		if err := tx.UpdateUser(ctx, referrer); err != nil {
			return decimal.Zero, fmt.Errorf("failed to credit referrer %s: %w", referrer.Id, err)
		}

		_, err = s.recorder.Record(ctx, tx, ledger.RecordParams{
			UserId:      referrer.Id,
			Type:        models.TxReferral,
			Amount:      commission,
			Status:      models.TxCompleted,
			Description: fmt.Sprintf("Referral income level %d (%s%%)", edge.Level, pct.String()),
			IsVisible:   false,
		})
		if err != nil {
			return decimal.Zero, err
		}

		level := strconv.Itoa(edge.Level)
		tx.AfterCommit(func() { s.metrics.RecordCommission(level, commission) })

		zap.L().Info("Referral commission credited",
			zap.String("referrer_id", referrer.Id),
			zap.String("referred_id", user.Id),
			zap.Int("level", edge.Level),
			zap.String("deposit_amount", amount.String()),
			zap.String("commission", commission.String()))

		total = total.Add(commission)
	}
	return total, nil
}

// BuildChain inserts one edge per ancestor of user, up to MaxLevel, starting
// from user.ReferrerId. Existing edges are kept and cycles end the walk.
func (s *Service) BuildChain(ctx context.Context, tx store.Tx, user *models.User) (int, error) {
	seen := map[string]bool{user.Id: true}
	created := 0

	ancestorId := user.ReferrerId
	for level := 1; level <= MaxLevel && ancestorId != ""; level++ {
		if seen[ancestorId] {
			zap.L().Warn("Referral cycle detected, stopping chain",
				zap.String("user_id", user.Id),
				zap.String("ancestor_id", ancestorId))
			break
		}
		seen[ancestorId] = true

		ancestor, err := tx.GetUser(ctx, ancestorId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				break
			}
			return created, fmt.Errorf("failed to load ancestor: %w", err)
		}

		err = tx.InsertReferral(ctx, &models.Referral{
			Id:         uuid.New().String(),
			ReferrerId: ancestor.Id,
			ReferredId: user.Id,
			Level:      level,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, store.ErrDuplicate):
			// already linked
		default:
			return created, err
		}

		ancestorId = ancestor.ReferrerId
	}

	if created > 0 {
		zap.L().Info("Referral chain built", zap.String("user_id", user.Id), zap.Int("edges", created))
	}
	return created, nil
}

// Stats summarises the partners invited by userId. A partner is active once
// it has principal invested.
func (s *Service) Stats(ctx context.Context, q store.Queries, user *models.User) (*models.ReferralStats, error) {
	edges, err := q.ListReferralsByReferrer(ctx, user.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load partners: %w", err)
	}

	stats := &models.ReferralStats{
		TotalPartners:         len(edges),
		TotalEarned:           decimal.Zero,
		TotalDepositedByChain: decimal.Zero,
		ReferralLink:          s.ReferralLink(user),
	}
	for _, edge := range edges {
		switch edge.Level {
		case 1:
			stats.Level1Partners++
		case 2, 3:
			stats.Level23Partners++
		}
		stats.TotalEarned = stats.TotalEarned.Add(edge.TotalEarned)

		partner, err := q.GetUser(ctx, edge.ReferredId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if partner.TotalDeposit.IsPositive() {
			stats.ActivePartners++
			stats.TotalDepositedByChain = stats.TotalDepositedByChain.Add(partner.TotalDeposit)
		}
	}
	return stats, nil
}

// Partners lists invited users by level
func (s *Service) Partners(ctx context.Context, q store.Queries, userId string) ([]models.PartnerView, error) {
	edges, err := q.ListReferralsByReferrer(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to load partners: %w", err)
	}

	partners := make([]models.PartnerView, 0, len(edges))
	for _, edge := range edges {
		partner, err := q.GetUser(ctx, edge.ReferredId)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		partners = append(partners, models.PartnerView{
			Id:           edge.Id,
			ReferredName: partner.DisplayName(),
			ReferredTgId: partner.TgId,
			Level:        edge.Level,
			TotalEarned:  edge.TotalEarned,
			IsActive:     partner.TotalDeposit.IsPositive(),
			CreatedAt:    edge.CreatedAt,
		})
	}
	return partners, nil
}

// ReferralLink is the bot deep link that registers new users under user
func (s *Service) ReferralLink(user *models.User) string {
	if s.botUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%d", s.botUsername, user.TgId)
}
