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
	"time"

	"github.com/shopspring/decimal"
)

// UserStats is the dashboard view of a user's aggregates
type UserStats struct {
	Balance              decimal.Decimal  `json:"balance"`
	TotalDeposit         decimal.Decimal  `json:"total_deposit"`
	TotalEarned          decimal.Decimal  `json:"total_earned"`
	Accumulated          decimal.Decimal  `json:"accumulated"`
	ReferralEarned       decimal.Decimal  `json:"referral_earned"`
	CurrentTariffName    string           `json:"current_tariff_name,omitempty"`
	CurrentTariffPercent decimal.Decimal  `json:"current_tariff_percent"`
	NextTariffName       string           `json:"next_tariff_name,omitempty"`
	AmountToNextTariff   *decimal.Decimal `json:"amount_to_next_tariff,omitempty"`
	SecondsToNextPayout  *int64           `json:"seconds_to_next_payout,omitempty"`
	PartnersCount        int              `json:"partners_count"`
	ActivePartnersCount  int              `json:"active_partners_count"`
}

// ReferralStats summarises the partners a user invited
type ReferralStats struct {
	TotalPartners         int             `json:"total_partners"`
	ActivePartners        int             `json:"active_partners"`
	Level1Partners        int             `json:"level1_partners"`
	Level23Partners       int             `json:"level23_partners"`
	TotalEarned           decimal.Decimal `json:"total_earned"`
	TotalDepositedByChain decimal.Decimal `json:"total_deposited_by_referrals"`
	ReferralLink          string          `json:"referral_link,omitempty"`
}

// PartnerView is one invited user as seen by the referrer
type PartnerView struct {
	Id           string          `json:"id"`
	ReferredName string          `json:"referred_name"`
	ReferredTgId int64           `json:"referred_tg_id"`
	Level        int             `json:"level"`
	TotalEarned  decimal.Decimal `json:"total_earned"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionRecord represents a transaction in the user's history
type TransactionRecord struct {
	Id          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	HashCode    string          `json:"hash_code,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DepositView is a deposit joined with its tariff for display
type DepositView struct {
	Id            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Earned        decimal.Decimal `json:"earned"`
	Status        string          `json:"status"`
	TariffName    string          `json:"tariff_name"`
	TariffPercent decimal.Decimal `json:"tariff_percent"`
	IsReinvest    bool            `json:"is_reinvest"`
	AutoReinvest  bool            `json:"auto_reinvest"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	NextPayoutAt  *time.Time      `json:"next_payout_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OperationResult represents the result of a user-facing financial operation
type OperationResult struct {
	Success    bool            `json:"success"`
	UserId     string          `json:"user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	DepositId  string          `json:"deposit_id,omitempty"`
	Error      string          `json:"error,omitempty"`
}
