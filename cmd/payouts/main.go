package main

import (
	"context"
	"flag"
	"fmt"

	"invest-engine-go/internal/common"
	"invest-engine-go/internal/config"
	"invest-engine-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "List deposits that are due without accruing them")
	flag.Parse()

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

	if *dryRun {
		due, err := services.Api.DueDeposits(ctx)
		if err != nil {
			zap.L().Fatal("Failed to list due deposits", zap.Error(err))
		}

		common.PrintHeader("DUE DEPOSITS", common.DefaultWidth)
		for i, d := range due {
			fmt.Printf("%s %s user=%s tariff=%s amount=%s next=%s\n",
				common.BoxPrefix(i == len(due)-1),
				common.ShortId(d.Id),
				common.ShortId(d.UserId),
				d.TariffId,
				common.Money(d.Amount),
				common.Timestamp(d.NextPayoutAt))
		}
		common.PrintFooter(fmt.Sprintf("SUMMARY: %d deposits due", len(due)), common.DefaultWidth)
		return
	}

	processed, err := services.Scheduler.Trigger(ctx)
	if err != nil {
		zap.L().Fatal("Payout sweep failed", zap.Error(err))
	}

	zap.L().Info("Payout sweep completed", zap.Int("deposits_processed", processed))
	fmt.Printf("✓ Accrued profit on %d deposits\n", processed)
}
