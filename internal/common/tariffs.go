package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// TariffConfig is one tier as written in tariffs.yaml. Amounts are strings so
// they parse exactly.
type TariffConfig struct {
	Id           string `yaml:"id"`
	Name         string `yaml:"name"`
	Label        string `yaml:"label"`
	DailyPercent string `yaml:"daily_percent"`
	MinAmount    string `yaml:"min_amount"`
	MaxAmount    string `yaml:"max_amount"`
	Active       *bool  `yaml:"active"`
	SortOrder    int    `yaml:"sort_order"`
}

type TariffsConfig struct {
	Tariffs []TariffConfig `yaml:"tariffs"`
}

func LoadTariffs(tariffsFile string) ([]models.Tariff, error) {
	var tariffsPath string
	if filepath.IsAbs(tariffsFile) {
		tariffsPath = tariffsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		tariffsPath = filepath.Join(wd, tariffsFile)
	}

	data, err := os.ReadFile(tariffsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", tariffsFile, err)
	}
	return ParseTariffs(data)
}

func ParseTariffs(data []byte) ([]models.Tariff, error) {
	var config TariffsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse tariffs: %w", err)
	}
	if len(config.Tariffs) == 0 {
		return nil, fmt.Errorf("no tariffs defined")
	}

	var err error
	seen := make(map[string]bool, len(config.Tariffs))
	tariffs := make([]models.Tariff, 0, len(config.Tariffs))
	for i, tc := range config.Tariffs {
		if tc.Id == "" {
			return nil, fmt.Errorf("tariff at index %d missing id", i)
		}
		if tc.Name == "" {
			return nil, fmt.Errorf("tariff %s missing name", tc.Id)
		}
		if seen[tc.Id] {
			return nil, fmt.Errorf("duplicate tariff id %s", tc.Id)
		}
		seen[tc.Id] = true

		tariff := models.Tariff{
			Id:        tc.Id,
			Name:      tc.Name,
			Label:     tc.Label,
			IsActive:  tc.Active == nil || *tc.Active,
			SortOrder: tc.SortOrder,
		}
		if tariff.DailyPercent, err = parseAmount(tc.Id, "daily_percent", tc.DailyPercent); err != nil {
			return nil, err
		}
		if tariff.MinAmount, err = parseAmount(tc.Id, "min_amount", tc.MinAmount); err != nil {
			return nil, err
		}
		if tariff.MaxAmount, err = parseAmount(tc.Id, "max_amount", tc.MaxAmount); err != nil {
			return nil, err
		}

		if !tariff.DailyPercent.IsPositive() {
			return nil, fmt.Errorf("tariff %s daily_percent must be positive", tc.Id)
		}
		if tariff.MinAmount.IsNegative() || tariff.MaxAmount.LessThan(tariff.MinAmount) {
			return nil, fmt.Errorf("tariff %s has invalid range %s..%s", tc.Id, tariff.MinAmount, tariff.MaxAmount)
		}
		tariffs = append(tariffs, tariff)
	}

	return tariffs, nil
}

func parseAmount(tariffId, field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("tariff %s missing %s", tariffId, field)
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("tariff %s has invalid %s %q: %w", tariffId, field, value, err)
	}
	return amount, nil
}

// SeedTariffs upserts every tariff in one unit of work
func SeedTariffs(ctx context.Context, st store.Store, tariffs []models.Tariff) error {
	return st.WithTx(ctx, func(tx store.Tx) error {
		for i := range tariffs {
			if err := tx.UpsertTariff(ctx, &tariffs[i]); err != nil {
				return fmt.Errorf("failed to store tariff %s: %w", tariffs[i].Id, err)
			}
			zap.L().Info("Tariff stored",
				zap.String("id", tariffs[i].Id),
				zap.String("name", tariffs[i].Name),
				zap.String("daily_percent", tariffs[i].DailyPercent.String()),
				zap.String("min_amount", tariffs[i].MinAmount.String()),
				zap.String("max_amount", tariffs[i].MaxAmount.String()))
		}
		return nil
	})
}
