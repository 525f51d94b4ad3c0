package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"invest-engine-go/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tariffsYaml = `
tariffs:
  - id: okx
    name: OKX
    label: For new users
    daily_percent: "3.2"
    min_amount: "100"
    max_amount: "10000"
    sort_order: 1
  - id: bybit
    name: Bybit
    label: Recommended
    daily_percent: "4.2"
    min_amount: "10000"
    max_amount: "100000"
    sort_order: 2
  - id: legacy
    name: Legacy
    daily_percent: "1"
    min_amount: "0"
    max_amount: "100"
    active: false
    sort_order: 9
`

func TestParseTariffs(t *testing.T) {
	tariffs, err := ParseTariffs([]byte(tariffsYaml))
	require.NoError(t, err)
	require.Len(t, tariffs, 3)

	assert.Equal(t, "okx", tariffs[0].Id)
	assert.Equal(t, "3.2", tariffs[0].DailyPercent.String())
	assert.Equal(t, "10000", tariffs[0].MaxAmount.String())
	assert.True(t, tariffs[0].IsActive)
	assert.Equal(t, 2, tariffs[1].SortOrder)
	assert.False(t, tariffs[2].IsActive)
}

func TestParseTariffs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "tariffs: []"},
		{"missing id", `tariffs: [{name: A, daily_percent: "1", min_amount: "1", max_amount: "2"}]`},
		{"missing name", `tariffs: [{id: a, daily_percent: "1", min_amount: "1", max_amount: "2"}]`},
		{"bad percent", `tariffs: [{id: a, name: A, daily_percent: "x", min_amount: "1", max_amount: "2"}]`},
		{"zero percent", `tariffs: [{id: a, name: A, daily_percent: "0", min_amount: "1", max_amount: "2"}]`},
		{"missing max", `tariffs: [{id: a, name: A, daily_percent: "1", min_amount: "1"}]`},
		{"inverted range", `tariffs: [{id: a, name: A, daily_percent: "1", min_amount: "5", max_amount: "2"}]`},
		{"duplicate", `tariffs: [{id: a, name: A, daily_percent: "1", min_amount: "1", max_amount: "2"}, {id: a, name: B, daily_percent: "1", min_amount: "1", max_amount: "2"}]`},
		{"not yaml", "tariffs: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTariffs([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTariffs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariffs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tariffsYaml), 0o600))

	tariffs, err := LoadTariffs(path)
	require.NoError(t, err)
	assert.Len(t, tariffs, 3)

	_, err = LoadTariffs(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedTariffs_Upserts(t *testing.T) {
	ctx := context.Background()
	svc := testutil.NewStore(t)

	tariffs, err := ParseTariffs([]byte(tariffsYaml))
	require.NoError(t, err)
	require.NoError(t, SeedTariffs(ctx, svc, tariffs))

	tariffs[0].Label = "Starter"
	require.NoError(t, SeedTariffs(ctx, svc, tariffs))

	stored, err := svc.ListTariffs(ctx, false)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	active, err := svc.ListTariffs(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	okx, err := svc.GetTariff(ctx, "okx")
	require.NoError(t, err)
	assert.Equal(t, "Starter", okx.Label)
}
