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

const (
	userColumns = `id, tg_id, username, first_name, balance, total_deposit, total_earned, accumulated,
		current_tariff_id, auto_reinvest, referrer_id, referral_earned, is_banned, is_admin, version,
		created_at, updated_at`

	tariffColumns = `id, name, label, daily_percent, min_amount, max_amount, is_active, sort_order`

	depositColumns = `id, user_id, tariff_id, amount, earned, status, is_reinvest, auto_reinvest,
		started_at, next_payout_at, completed_at, version, created_at, updated_at`

	transactionColumns = `id, user_id, type, amount, status, description, hash_code, is_fake, is_visible,
		created_at, updated_at`

	referralColumns = `id, referrer_id, referred_id, level, total_earned, created_at`

	promoColumns = `id, code, amount, description, is_active, max_uses_total, max_uses_per_user,
		valid_from, valid_to, created_at`
)

const (
	// User queries
	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryGetUserByTgId = `
		SELECT ` + userColumns + `
		FROM users
		WHERE tg_id = ?`

	queryListUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, id`

	queryInsertUser = `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateUser = `
		UPDATE users
		SET username = ?, first_name = ?, balance = ?, total_deposit = ?, total_earned = ?,
		    accumulated = ?, current_tariff_id = ?, auto_reinvest = ?, referrer_id = ?,
		    referral_earned = ?, is_banned = ?, is_admin = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Tariff queries
	queryListTariffs = `
		SELECT ` + tariffColumns + `
		FROM tariffs
		ORDER BY sort_order, id`

	queryListActiveTariffs = `
		SELECT ` + tariffColumns + `
		FROM tariffs
		WHERE is_active = 1
		ORDER BY sort_order, id`

	queryGetTariff = `
		SELECT ` + tariffColumns + `
		FROM tariffs
		WHERE id = ?`

	queryUpsertTariff = `
		INSERT INTO tariffs (` + tariffColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			label = excluded.label,
			daily_percent = excluded.daily_percent,
			min_amount = excluded.min_amount,
			max_amount = excluded.max_amount,
			is_active = excluded.is_active,
			sort_order = excluded.sort_order`

	// Deposit queries
	queryGetDeposit = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE id = ?`

	queryGetActiveDeposit = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE user_id = ? AND status = 'active'`

	queryListUserDeposits = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE user_id = ?
		ORDER BY created_at DESC, id`

	queryListDepositsByStatus = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE status = ?
		ORDER BY created_at, id`

	queryListDueDeposits = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE status = 'active' AND next_payout_at IS NOT NULL AND next_payout_at <= ?
		ORDER BY next_payout_at, id`

	queryInsertDeposit = `
		INSERT INTO deposits (` + depositColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateDeposit = `
		UPDATE deposits
		SET tariff_id = ?, amount = ?, earned = ?, status = ?, auto_reinvest = ?,
		    started_at = ?, next_payout_at = ?, completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransaction = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryUpdateTransactionStatus = `
		UPDATE transactions
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	// Referral queries
	queryInsertReferral = `
		INSERT INTO referrals (` + referralColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryListReferralsByReferred = `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE referred_id = ?
		ORDER BY level`

	queryListReferralsByReferrer = `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE referrer_id = ?
		ORDER BY level, created_at`

	queryGetReferralEarned = `
		SELECT total_earned FROM referrals WHERE id = ?`

	querySetReferralEarned = `
		UPDATE referrals SET total_earned = ? WHERE id = ?`

	// Promo code queries
	queryInsertPromoCode = `
		INSERT INTO promo_codes (` + promoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetPromoCodeByCode = `
		SELECT ` + promoColumns + `
		FROM promo_codes
		WHERE code = ? COLLATE NOCASE`

	queryCountPromoRedemptions = `
		SELECT COUNT(*)
		FROM promo_redemptions
		WHERE promo_code_id = ?`

	queryCountUserPromoRedemptions = `
		SELECT COUNT(*)
		FROM promo_redemptions
		WHERE promo_code_id = ? AND user_id = ?`

	queryInsertPromoRedemption = `
		INSERT INTO promo_redemptions (id, promo_code_id, user_id, amount, redeemed_at)
		VALUES (?, ?, ?, ?, ?)`
)
