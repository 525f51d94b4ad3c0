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

package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// User represents an investor account and its running aggregates
type User struct {
	Id              string          `db:"id"`
	TgId            int64           `db:"tg_id"`
	Username        string          `db:"username"`
	FirstName       string          `db:"first_name"`
	Balance         decimal.Decimal `db:"balance"`
	TotalDeposit    decimal.Decimal `db:"total_deposit"`
	TotalEarned     decimal.Decimal `db:"total_earned"`
	Accumulated     decimal.Decimal `db:"accumulated"`
	CurrentTariffId string          `db:"current_tariff_id"`
	AutoReinvest    bool            `db:"auto_reinvest"`
	ReferrerId      string          `db:"referrer_id"`
	ReferralEarned  decimal.Decimal `db:"referral_earned"`
	IsBanned        bool            `db:"is_banned"`
	IsAdmin         bool            `db:"is_admin"`
	Version         int64           `db:"version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// DisplayName is the name shown in the live feed and referral listings
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "User_" + strconv.FormatInt(u.TgId, 10)
}

// Tariff is an interest tier covering the inclusive range [MinAmount, MaxAmount]
type Tariff struct {
	Id           string          `db:"id"`
	Name         string          `db:"name"`
	Label        string          `db:"label"`
	DailyPercent decimal.Decimal `db:"daily_percent"`
	MinAmount    decimal.Decimal `db:"min_amount"`
	MaxAmount    decimal.Decimal `db:"max_amount"`
	IsActive     bool            `db:"is_active"`
	SortOrder    int             `db:"sort_order"`
}

// Covers reports whether amount falls inside the tariff range
func (t *Tariff) Covers(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(t.MinAmount) && amount.LessThanOrEqual(t.MaxAmount)
}

// Deposit is a principal sum placed under a tariff
type Deposit struct {
	Id           string          `db:"id"`
	UserId       string          `db:"user_id"`
	TariffId     string          `db:"tariff_id"`
	Amount       decimal.Decimal `db:"amount"`
	Earned       decimal.Decimal `db:"earned"`
	Status       DepositStatus   `db:"status"`
	IsReinvest   bool            `db:"is_reinvest"`
	AutoReinvest bool            `db:"auto_reinvest"`
	StartedAt    *time.Time      `db:"started_at"`
	NextPayoutAt *time.Time      `db:"next_payout_at"`
	CompletedAt  *time.Time      `db:"completed_at"`
	Version      int64           `db:"version"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// Transaction represents an immutable ledger entry
type Transaction struct {
	Id          string            `db:"id"`
	UserId      string            `db:"user_id"`
	Type        TransactionType   `db:"type"`
	Amount      decimal.Decimal   `db:"amount"`
	Status      TransactionStatus `db:"status"`
	Description string            `db:"description"`
	HashCode    string            `db:"hash_code"`
	IsFake      bool              `db:"is_fake"`
	IsVisible   bool              `db:"is_visible"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// Referral is a directed referrer -> referred edge at a given level
type Referral struct {
	Id          string          `db:"id"`
	ReferrerId  string          `db:"referrer_id"`
	ReferredId  string          `db:"referred_id"`
	Level       int             `db:"level"`
	TotalEarned decimal.Decimal `db:"total_earned"`
	CreatedAt   time.Time       `db:"created_at"`
}

// PromoCode grants a fixed bonus credit
type PromoCode struct {
	Id             string          `db:"id"`
	Code           string          `db:"code"`
	Amount         decimal.Decimal `db:"amount"`
	Description    string          `db:"description"`
	IsActive       bool            `db:"is_active"`
	MaxUsesTotal   int             `db:"max_uses_total"` // 0 means unlimited
	MaxUsesPerUser int             `db:"max_uses_per_user"`
	ValidFrom      *time.Time      `db:"valid_from"`
	ValidTo        *time.Time      `db:"valid_to"`
	CreatedAt      time.Time       `db:"created_at"`
}

// PromoRedemption records one use of a promo code by a user
type PromoRedemption struct {
	Id          string          `db:"id"`
	PromoCodeId string          `db:"promo_code_id"`
	UserId      string          `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	RedeemedAt  time.Time       `db:"redeemed_at"`
}
