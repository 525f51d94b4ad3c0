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

const schema = `
	CREATE TABLE IF NOT EXISTS tariffs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		daily_percent TEXT NOT NULL,
		min_amount TEXT NOT NULL,
		max_amount TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		tg_id INTEGER NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0),
		total_deposit TEXT NOT NULL DEFAULT '0',
		total_earned TEXT NOT NULL DEFAULT '0',
		accumulated TEXT NOT NULL DEFAULT '0' CHECK (CAST(accumulated AS REAL) >= 0),
		current_tariff_id TEXT REFERENCES tariffs(id),
		auto_reinvest INTEGER NOT NULL DEFAULT 0,
		referrer_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		referral_earned TEXT NOT NULL DEFAULT '0',
		is_banned INTEGER NOT NULL DEFAULT 0,
		is_admin INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_referrer ON users(referrer_id);

	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		tariff_id TEXT NOT NULL REFERENCES tariffs(id),
		amount TEXT NOT NULL,
		earned TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'completed', 'cancelled')),
		is_reinvest INTEGER NOT NULL DEFAULT 0,
		auto_reinvest INTEGER NOT NULL DEFAULT 0,
		started_at TEXT,
		next_payout_at TEXT,
		completed_at TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- At most one active deposit per user
	CREATE UNIQUE INDEX IF NOT EXISTS idx_deposits_one_active ON deposits(user_id) WHERE status = 'active';
	CREATE INDEX IF NOT EXISTS idx_deposits_due ON deposits(status, next_payout_at);
	CREATE INDEX IF NOT EXISTS idx_deposits_user ON deposits(user_id, created_at);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type TEXT NOT NULL CHECK (type IN ('deposit', 'withdraw', 'profit', 'reinvest', 'referral', 'bonus', 'game_bet', 'game_payout')),
		amount TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'cancelled', 'rejected')),
		description TEXT NOT NULL DEFAULT '',
		hash_code TEXT NOT NULL DEFAULT '',
		is_fake INTEGER NOT NULL DEFAULT 0,
		is_visible INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_type_status ON transactions(type, status, created_at);

	CREATE TABLE IF NOT EXISTS referrals (
		id TEXT PRIMARY KEY,
		referrer_id TEXT NOT NULL REFERENCES users(id),
		referred_id TEXT NOT NULL REFERENCES users(id),
		level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 3),
		total_earned TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		UNIQUE(referrer_id, referred_id, level)
	);

	CREATE INDEX IF NOT EXISTS idx_referrals_referred ON referrals(referred_id);

	CREATE TABLE IF NOT EXISTS promo_codes (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE COLLATE NOCASE,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		max_uses_total INTEGER NOT NULL DEFAULT 0,
		max_uses_per_user INTEGER NOT NULL DEFAULT 1,
		valid_from TEXT,
		valid_to TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS promo_redemptions (
		id TEXT PRIMARY KEY,
		promo_code_id TEXT NOT NULL REFERENCES promo_codes(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		redeemed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_promo_redemptions_code_user ON promo_redemptions(promo_code_id, user_id);
`
