// =============================================================================
// Trial Balance Reporter - XLSX Writer Module
// =============================================================================
//
// This module renders report data into XLSX workbooks.
//
// BALANCE DETAIL WORKBOOK:
//   A new workbook with one sheet (default "Datos"):
//
//   | Año  | Mes   | Cuenta    | nombre cuenta | Categoria | Saldo inicial | Débito | Crédito | Saldo final |
//   |------|-------|-----------|---------------|-----------|---------------|--------|---------|-------------|
//   | 2024 | enero | 410000001 | Ventas        | Ingresos  | 0             | 0      | 1000    | -1000       |
//
// SUMMARY WORKBOOK:
//   The statement template with the category totals appended to one sheet
//   (default "Hoja1", created when missing). Existing content is kept: the
//   block starts on the row after the last used row, or on row 2 when the
//   sheet is empty.
//
//   | Categoria | Saldo final                             |
//   | Activo    | 860                                     |
//   | ...       | ...                                     |
//   | nombre    | ESGARI                                  |
//   | fecha_r   | marzo de 2024                           |
//   | fecha     | ESTADO DE SITUACION FIANCIERA marzo 2024|
//
//   Every other sheet of the template is left untouched.
//
// =============================================================================

package xlsxwriter

import (
	"bytes"
	"fmt"

	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// BalanceHeaders are the column headers of the balance detail sheet.
var BalanceHeaders = []string{
	"Año", "Mes", "Cuenta", "nombre cuenta", "Categoria",
	"Saldo inicial", "Débito", "Crédito", "Saldo final",
}

// SummaryHeaders are the column headers of the summary block.
var SummaryHeaders = []string{"Categoria", "Saldo final"}

// =============================================================================
// BALANCE DETAIL
// =============================================================================

// WriteBalances renders the balance detail into a new workbook.
//
// PARAMETERS:
//   - aggs: The balance detail rows, already sorted.
//   - sheet: The worksheet name.
//
// RETURNS:
//   - The workbook bytes.
//   - An error if the workbook cannot be written.
func WriteBalances(aggs []types.PeriodAggregate, sheet string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeRow(f, sheet, 1, toCells(BalanceHeaders)); err != nil {
		return nil, err
	}

	for i, a := range aggs {
		row := []interface{}{
			a.Year,
			a.Month,
			int64(a.Account),
			a.AccountName,
			a.Category,
			amount(a.OpeningBalance),
			amount(a.Debit),
			amount(a.Credit),
			amount(a.ClosingBalance),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return save(f)
}

// =============================================================================
// SUMMARY
// =============================================================================

// AppendSummary appends the category totals and label rows to a sheet of
// the template workbook and returns the modified workbook.
func AppendSummary(template []byte, sheet string, totals []types.CategoryTotal, labels []types.SummaryLabel) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sheet %q: %w", sheet, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
	}

	start, err := nextFreeRow(f, sheet)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(totals)+len(labels)+1)
	rows = append(rows, toCells(SummaryHeaders))
	for _, t := range totals {
		rows = append(rows, []interface{}{t.Category, amount(t.ClosingBalance)})
	}
	for _, l := range labels {
		rows = append(rows, []interface{}{l.Key, l.Value})
	}

	for i, row := range rows {
		if err := writeRow(f, sheet, start+i, row); err != nil {
			return nil, err
		}
	}

	return save(f)
}

// nextFreeRow returns the row after the last used row of the sheet. An
// empty sheet still counts one row, so the block starts on row 2.
func nextFreeRow(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	maxRow := len(rows)
	if maxRow < 1 {
		maxRow = 1
	}
	return maxRow + 1, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func save(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// amount converts a decimal to the float stored in the cell. Spreadsheet
// numbers are doubles, so this is the only lossy step of the pipeline.
func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
