package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/trial-balance/internal/testutil"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeSources writes a small ledger, mapping and template to dir and
// returns a config file pointing at them.
func writeSources(t *testing.T, dir string) string {
	t.Helper()

	files := map[string][]byte{
		"ledger.xlsx": testutil.SingleSheet(t, "Sheet1",
			[]interface{}{"DEFAULT_EFFECTIVE_DATE", "DESC_SEGMENT1", "SEGMENT5", "DEBIT", "CREDIT"},
			[]interface{}{"2023-12-20", "ESGARI", 110000001, 500, 0},
			[]interface{}{"2024-01-15", "ESGARI", 410000001, 0, 1000},
			[]interface{}{"2024-01-16", "ESGARI", 110000001, 1000, 0},
			[]interface{}{"2024-01-17", "ESGARI", 999999999, 3, 0},
		),
		"mapping.xlsx": testutil.SingleSheet(t, "Hoja1",
			[]interface{}{"Cuenta", "nombre cuenta", "Categoria"},
			[]interface{}{110000001, "Caja", "Activo"},
			[]interface{}{410000001, "Ventas", "Ingresos"},
		),
		"template.xlsx": testutil.SingleSheet(t, "Hoja1",
			[]interface{}{"ESTADO DE SITUACION"},
		),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	cfg := fmt.Sprintf(`
sources:
  ledger:
    url: %[1]s/ledger.xlsx
  mapping:
    url: %[1]s/mapping.xlsx
  template:
    url: %[1]s/template.xlsx
output:
  dir: %[1]s/out
  archive_dir: %[1]s/archive
  archive_retention: 720h
log_level: error
`, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag variables are package globals and survive between runs.
	selYear, selMonth, selCompany = 0, "", ""
	dryRun, outputDir, writeIssues = false, "", false
	optionsJSON = false
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Trial Balance Reporter")
	assert.Contains(t, out, Version)
}

func TestOptionsCommand(t *testing.T) {
	cfg := writeSources(t, t.TempDir())

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "options", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "Years:     2024, 2023")
		assert.Contains(t, out, "Companies: ESGARI")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "options", "--config", cfg, "--json")
		require.NoError(t, err)

		var opts types.Options
		require.NoError(t, json.Unmarshal([]byte(out), &opts))
		assert.Equal(t, []int{2024, 2023}, opts.Years)
		assert.Equal(t, []string{"diciembre", "enero"}, opts.Months)
	})
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeSources(t, dir)

	out, err := execute(t, "process", "--config", cfg,
		"--year", "2024", "--month", "enero", "--company", "ESGARI", "--issue-log")
	require.NoError(t, err)

	assert.Contains(t, out, "=== Report Complete ===")
	assert.Contains(t, out, "Net income:      1000.00")
	assert.Contains(t, out, "unmapped_account")

	balances, err := filepath.Glob(filepath.Join(dir, "out", "saldos_cuentas_*.xlsx"))
	require.NoError(t, err)
	require.Len(t, balances, 1)

	f, err := excelize.OpenFile(balances[0])
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Datos")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	summary, err := filepath.Glob(filepath.Join(dir, "out", "balance_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, summary, 1)

	archived, err := filepath.Glob(filepath.Join(dir, "archive", "*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, archived, 2)

	logs, err := filepath.Glob(filepath.Join(dir, "out", "issue_log_*.txt"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestProcessDryRunDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := writeSources(t, dir)

	out, err := execute(t, "process", "--config", cfg, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "Selection: diciembre 2024, ESGARI")
	assert.Contains(t, out, "Dry run: no files written")
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestProcessUnknownMonth(t *testing.T) {
	cfg := writeSources(t, t.TempDir())

	_, err := execute(t, "process", "--config", cfg, "--year", "2024", "--month", "smarch", "--company", "ESGARI", "--dry-run")
	assert.Error(t, err)
}
