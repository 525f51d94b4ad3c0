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

	"invest-engine-go/internal/auth"
	"invest-engine-go/internal/common"
	"invest-engine-go/internal/config"
	"invest-engine-go/internal/models"

	"go.uber.org/zap"
)

func printTariffs(tariffs []models.Tariff) {
	for i, t := range tariffs {
		status := "active"
		if !t.IsActive {
			status = "inactive"
		}
		fmt.Printf("%s %-10s %5s%%/day  %s .. %s  (%s, %s)\n",
			common.BoxPrefix(i == len(tariffs)-1),
			t.Name,
			t.DailyPercent.String(),
			common.Money(t.MinAmount),
			common.Money(t.MaxAmount),
			t.Label,
			status)
	}
}

func main() {
	tariffsFlag := flag.String("tariffs", "", "Path to tariffs.yaml (default: TARIFFS_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := models.WithOrigin(context.Background(), models.Origin{Source: "cli"})

	tariffsFile := cfg.Deposit.TariffsFile
	if *tariffsFlag != "" {
		tariffsFile = *tariffsFlag
	}

	zap.L().Info("Loading tariff configuration", zap.String("file", tariffsFile))
	tariffs, err := common.LoadTariffs(tariffsFile)
	if err != nil {
		zap.L().Fatal("Failed to load tariffs", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if err := common.SeedTariffs(ctx, dbService, tariffs); err != nil {
		zap.L().Fatal("Failed to seed tariffs", zap.Error(err))
	}

	promoted, err := auth.NewPolicy(dbService).Bootstrap(ctx, cfg.Admin.TgIds)
	if err != nil {
		zap.L().Fatal("Failed to promote admins", zap.Error(err))
	}

	common.PrintHeader("TARIFFS", common.DefaultWidth)
	printTariffs(tariffs)
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d tariffs stored, %d of %d allowlisted admins promoted",
		len(tariffs), promoted, len(cfg.Admin.TgIds)), common.DefaultWidth)
}
