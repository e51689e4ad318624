package xlsxwriter

import (
	"bytes"
	"testing"

	"github.com/ginjaninja78/trial-balance/internal/testutil"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

var sampleTotals = []types.CategoryTotal{
	{Category: "Activo", ClosingBalance: decimal.RequireFromString("860.5")},
	{Category: "Ingresos", ClosingBalance: decimal.NewFromInt(-1000)},
}

var sampleLabels = []types.SummaryLabel{
	{Key: "nombre", Value: "ESGARI"},
	{Key: "fecha_r", Value: "enero de 2024"},
	{Key: "fecha", Value: "ESTADO DE SITUACION FIANCIERA enero 2024"},
}

func TestWriteBalances(t *testing.T) {
	aggs := []types.PeriodAggregate{
		{
			Year: 2024, Month: "enero", Account: 410000001, AccountName: "Ventas", Category: "Ingresos",
			OpeningBalance: decimal.Zero, Debit: decimal.Zero,
			Credit: decimal.NewFromInt(1000), ClosingBalance: decimal.NewFromInt(-1000),
		},
	}

	data, err := WriteBalances(aggs, "Datos")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Datos"}, f.GetSheetList())

	rows, err := f.GetRows("Datos")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, BalanceHeaders, rows[0])
	assert.Equal(t, []string{"2024", "enero", "410000001", "Ventas", "Ingresos", "0", "0", "1000", "-1000"}, rows[1])
}

func TestWriteBalancesEmpty(t *testing.T) {
	data, err := WriteBalances(nil, "Datos")
	require.NoError(t, err)
	assert.Equal(t, [][]string{BalanceHeaders}, readRows(t, data, "Datos"))
}

func TestAppendSummary(t *testing.T) {
	t.Run("appends after existing rows", func(t *testing.T) {
		template := testutil.Workbook(t,
			testutil.Sheet{Name: "Portada", Rows: [][]interface{}{{"no tocar"}}},
			testutil.Sheet{Name: "Hoja1", Rows: [][]interface{}{{"titulo"}, {"subtitulo", 1}}},
		)

		data, err := AppendSummary(template, "Hoja1", sampleTotals, sampleLabels)
		require.NoError(t, err)

		rows := readRows(t, data, "Hoja1")
		require.Len(t, rows, 8)
		assert.Equal(t, []string{"titulo"}, rows[0])
		assert.Equal(t, []string{"subtitulo", "1"}, rows[1])
		assert.Equal(t, SummaryHeaders, rows[2])
		assert.Equal(t, []string{"Activo", "860.5"}, rows[3])
		assert.Equal(t, []string{"Ingresos", "-1000"}, rows[4])
		assert.Equal(t, []string{"nombre", "ESGARI"}, rows[5])
		assert.Equal(t, []string{"fecha", "ESTADO DE SITUACION FIANCIERA enero 2024"}, rows[7])

		assert.Equal(t, [][]string{{"no tocar"}}, readRows(t, data, "Portada"))
	})

	t.Run("creates missing sheet", func(t *testing.T) {
		template := testutil.SingleSheet(t, "Resultados", []interface{}{"x"})

		data, err := AppendSummary(template, "Hoja1", sampleTotals, sampleLabels)
		require.NoError(t, err)

		rows := readRows(t, data, "Hoja1")
		require.Len(t, rows, 7)
		assert.Empty(t, rows[0])
		assert.Equal(t, SummaryHeaders, rows[1])
		assert.Equal(t, [][]string{{"x"}}, readRows(t, data, "Resultados"))
	})

	t.Run("empty totals still writes labels", func(t *testing.T) {
		template := testutil.SingleSheet(t, "Hoja1")

		data, err := AppendSummary(template, "Hoja1", nil, sampleLabels)
		require.NoError(t, err)

		rows := readRows(t, data, "Hoja1")
		require.Len(t, rows, 5)
		assert.Equal(t, SummaryHeaders, rows[1])
		assert.Equal(t, []string{"nombre", "ESGARI"}, rows[2])
	})

	t.Run("invalid template", func(t *testing.T) {
		_, err := AppendSummary([]byte("not a workbook"), "Hoja1", nil, nil)
		assert.Error(t, err)
	})
}
