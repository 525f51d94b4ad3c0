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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"invest-engine-go/internal/common"
	"invest-engine-go/internal/config"
	"invest-engine-go/internal/database"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type reportStats struct {
	totalUsers     int
	activeDeposits int
	totalBalance   decimal.Decimal
	totalInvested  decimal.Decimal
	totalEarned    decimal.Decimal
}

func printUser(user models.User, active *models.Deposit) {
	fmt.Printf("\n┌─ User: %s (%d)\n", user.DisplayName(), user.TgId)
	fmt.Printf("│  ID: %s  tariff: %s  v%d\n", user.Id, tariffOrNone(user.CurrentTariffId), user.Version)
	common.PrintBoxSeparator(78)

	rows := []string{
		fmt.Sprintf("%-15s: %20s", "balance", common.Money(user.Balance)),
		fmt.Sprintf("%-15s: %20s", "total deposit", common.Money(user.TotalDeposit)),
		fmt.Sprintf("%-15s: %20s", "total earned", common.Money(user.TotalEarned)),
		fmt.Sprintf("%-15s: %20s", "accumulated", common.Money(user.Accumulated)),
		fmt.Sprintf("%-15s: %20s", "referral", common.Money(user.ReferralEarned)),
	}
	if active != nil {
		rows = append(rows, fmt.Sprintf("%-15s: %20s (deposit %s, next payout %s)",
			"active deposit",
			common.Money(active.Amount),
			common.ShortId(active.Id),
			common.Timestamp(active.NextPayoutAt)))
	}

	for i, row := range rows {
		fmt.Println(common.BoxPrefix(i == len(rows)-1) + row)
	}
}

func tariffOrNone(tariffId string) string {
	if tariffId == "" {
		return "none"
	}
	return tariffId
}

func generateReport(ctx context.Context, users []models.User, dbService *database.Service) reportStats {
	stats := reportStats{}

	for _, user := range users {
		stats.totalUsers++
		stats.totalBalance = stats.totalBalance.Add(user.Balance)
		stats.totalInvested = stats.totalInvested.Add(user.TotalDeposit)
		stats.totalEarned = stats.totalEarned.Add(user.TotalEarned)

		active, err := dbService.GetActiveDeposit(ctx, user.Id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				zap.L().Error("Failed to load active deposit",
					zap.String("user_id", user.Id),
					zap.Error(err))
			}
			active = nil
		} else {
			stats.activeDeposits++
		}

		printUser(user, active)
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	tgIdFlag := flag.Int64("tg-id", 0, "Filter by telegram id (optional)")
	flag.Parse()

	logger.Info("Starting balance report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.SelectUsers(ctx, dbService, *tgIdFlag)
	if err != nil {
		logger.Fatal("Failed to select users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := generateReport(ctx, users, dbService)

	summary := fmt.Sprintf("SUMMARY: %d users, %d active deposits, balance %s, invested %s, earned %s",
		stats.totalUsers, stats.activeDeposits,
		common.Money(stats.totalBalance), common.Money(stats.totalInvested), common.Money(stats.totalEarned))
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("users", stats.totalUsers),
		zap.Int("active_deposits", stats.activeDeposits),
		zap.String("total_balance", stats.totalBalance.String()))
}
