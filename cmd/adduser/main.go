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
	"flag"
	"fmt"
	"os"
	"strings"

	"invest-engine-go/internal/account"
	"invest-engine-go/internal/common"
	"invest-engine-go/internal/config"
	"invest-engine-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func validateTgId(tgId int64) error {
	if tgId <= 0 {
		return fmt.Errorf("telegram id must be positive, got %d", tgId)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("first name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("first name must be at least 2 characters")
	}
	return nil
}

func parseFunds(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	funds, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid funds amount %q: %w", value, err)
	}
	if funds.IsNegative() {
		return decimal.Zero, fmt.Errorf("funds amount cannot be negative")
	}
	return funds, nil
}

func main() {
	tgIdFlag := flag.Int64("tg-id", 0, "Telegram id of the user (required)")
	usernameFlag := flag.String("username", "", "Telegram username without @")
	nameFlag := flag.String("name", "", "First name of the user (required)")
	referrerFlag := flag.Int64("referrer", 0, "Telegram id of the inviting user")
	fundsFlag := flag.String("funds", "", "Opening balance credited as a top-up")
	flag.Parse()

	name := strings.TrimSpace(*nameFlag)
	funds, err := parseFunds(*fundsFlag)
	if err == nil {
		err = validateTgId(*tgIdFlag)
	}
	if err == nil {
		err = validateName(name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := models.WithOrigin(context.Background(), models.Origin{Source: "cli"})

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, created, err := services.Api.Register(ctx, account.RegisterParams{
		TgId:         *tgIdFlag,
		Username:     strings.TrimPrefix(strings.TrimSpace(*usernameFlag), "@"),
		FirstName:    name,
		ReferrerTgId: *referrerFlag,
	})
	if err != nil {
		zap.L().Fatal("Failed to register user", zap.Int64("tg_id", *tgIdFlag), zap.Error(err))
	}

	if created {
		fmt.Printf("✓ Created user %s (%d)\n", user.DisplayName(), user.TgId)
	} else {
		fmt.Printf("✓ User %s (%d) already exists, profile refreshed\n", user.DisplayName(), user.TgId)
	}
	fmt.Printf("  ID: %s\n", user.Id)
	if user.ReferrerId != "" {
		fmt.Printf("  Referrer: %s\n", user.ReferrerId)
	}
	if user.IsAdmin {
		fmt.Println("  Admin: yes")
	}

	if funds.IsPositive() {
		funded, err := services.Accounts.AddFunds(ctx, user.Id, funds, "Opening balance")
		if err != nil {
			zap.L().Fatal("Failed to credit opening balance", zap.String("user_id", user.Id), zap.Error(err))
		}
		fmt.Printf("  Balance: %s\n", common.Money(funded.Balance))
	}
}
