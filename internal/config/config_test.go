package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)

		assert.Equal(t, DefaultLedgerURL, cfg.Sources.Ledger.URL)
		assert.Equal(t, FormatXLSX, cfg.Sources.Mapping.Format)
		assert.Equal(t, "SEGMENT5", cfg.LedgerColumns.Account)
		assert.Equal(t, "nombre cuenta", cfg.MappingColumns.Name)
		assert.Equal(t, DefaultMonthNames, cfg.MonthNames)
		assert.Equal(t, int64(400000000), cfg.Classification.IncomeMin)
		assert.Equal(t, int64(499999999), cfg.Classification.IncomeMax)
		assert.Equal(t, int64(500000000), cfg.Classification.ExpenseMin)
		assert.Equal(t, ScopeAll, cfg.OpeningBalanceScope)
		assert.Equal(t, "Datos", cfg.Output.BalancesSheet)
		assert.Equal(t, "Hoja1", cfg.Output.SummarySheet)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.Zero(t, cfg.Sources.Timeout)
	})

	t.Run("default matches load without file", func(t *testing.T) {
		cfg := Default()
		assert.NoError(t, Validate(cfg))
		assert.Equal(t, ":8080", cfg.Server.Addr)
	})
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
sources:
  ledger:
    url: http://example.test/ledger.csv
    format: CSV
    csv:
      delimiter: ";"
  timeout: 30s
opening_balance_scope: company
cache:
  ttl: 5m
output:
  summary_sheet: Resumen
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://example.test/ledger.csv", cfg.Sources.Ledger.URL)
	assert.Equal(t, FormatCSV, cfg.Sources.Ledger.Format)
	assert.Equal(t, ";", cfg.Sources.Ledger.CSV.Delimiter)
	assert.Equal(t, 30*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, ScopeCompany, cfg.OpeningBalanceScope)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "Resumen", cfg.Output.SummarySheet)
	assert.Equal(t, DefaultMappingURL, cfg.Sources.Mapping.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_URL", "http://env.test/ledger.xlsx")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://env.test/ledger.xlsx", cfg.Sources.Ledger.URL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "sources: [\n"},
		{"bad format", "sources:\n  ledger:\n    format: ods\n"},
		{"csv template", "sources:\n  template:\n    format: csv\n"},
		{"short month list", "month_names: [jan, feb]\n"},
		{"overlapping ranges", "classification:\n  income_min: 400\n  income_max: 600\n  expense_min: 500\n"},
		{"bad scope", "opening_balance_scope: everyone\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadKeepsNegativeCacheTTL(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cache:\n  ttl: -1s\n"))
	require.NoError(t, err)
	assert.Equal(t, -time.Second, cfg.Cache.TTL)
}

func TestLoadRejectsBadCacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	_, err := Load("")
	assert.Error(t, err)
}
