// Package testutil builds throwaway SQLite stores seeded for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"invest-engine-go/internal/database"
	"invest-engine-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewStore opens a file-backed database in a temp dir so that concurrent
// transactions behave as they do in production.
func NewStore(t testing.TB) *database.Service {
	t.Helper()

	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "invest.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

// Tariffs mirrors the default tariffs.yaml
func Tariffs() []models.Tariff {
	return []models.Tariff{
		{Id: "okx", Name: "OKX", Label: "For new users", DailyPercent: D("3.2"), MinAmount: D("100"), MaxAmount: D("10000"), IsActive: true, SortOrder: 1},
		{Id: "bybit", Name: "Bybit", Label: "Recommended", DailyPercent: D("4.2"), MinAmount: D("10000"), MaxAmount: D("100000"), IsActive: true, SortOrder: 2},
		{Id: "binance", Name: "Binance", Label: "Private", DailyPercent: D("5.2"), MinAmount: D("100000"), MaxAmount: D("5000000"), IsActive: true, SortOrder: 3},
	}
}

// SeedTariffs stores the default tariffs
func SeedTariffs(t testing.TB, svc *database.Service) []models.Tariff {
	t.Helper()

	tariffs := Tariffs()
	for i := range tariffs {
		if err := svc.UpsertTariff(context.Background(), &tariffs[i]); err != nil {
			t.Fatalf("Failed to seed tariff %s: %v", tariffs[i].Name, err)
		}
	}
	return tariffs
}

// CreateUser inserts a user holding balance, optionally referred by referrerId
func CreateUser(t testing.TB, svc *database.Service, tgId int64, balance string, referrerId string) *models.User {
	t.Helper()

	user := &models.User{
		Id:         uuid.New().String(),
		TgId:       tgId,
		FirstName:  "Investor",
		Balance:    D(balance),
		ReferrerId: referrerId,
	}
	if err := svc.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user %d: %v", tgId, err)
	}
	return user
}

// MustUser reloads a user
func MustUser(t testing.TB, svc *database.Service, userId string) *models.User {
	t.Helper()

	user, err := svc.GetUser(context.Background(), userId)
	if err != nil {
		t.Fatalf("Failed to load user %s: %v", userId, err)
	}
	return user
}

// D parses a decimal literal
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
