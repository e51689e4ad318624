// =============================================================================
// Trial Balance Reporter - XLSX Parser
// =============================================================================
//
// This module decodes XLSX workbooks (ledger export, chart-of-accounts
// mapping) into a generic Table of raw cell text. Type coercion happens later
// in the ledger package; this module only locates the sheet and the header
// row and strips empty rows.
//
// SHEET LAYOUT (Expected):
//
//   | Column A               | Column B      | Column C | Column D | Column E |
//   |------------------------|---------------|----------|----------|----------|
//   | DEFAULT_EFFECTIVE_DATE | DESC_SEGMENT1 | SEGMENT5 | DEBIT    | CREDIT   |
//   | 45306                  | ESGARI        | 410000001| 0        | 1000     |
//
//   Column order does not matter; columns are found by header name.
//
// RAW VALUES:
//   Cells are read with RawCellValue so that number formats are not applied.
//   Dates therefore arrive as Excel serial numbers (e.g. "45306") and amounts
//   keep their full precision.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// PARSE OPTIONS
// =============================================================================

// Options selects the sheet and header row to decode.
type Options struct {
	// Sheet is the worksheet name. Empty means the first sheet.
	Sheet string

	// HeaderRow is the 1-based row containing column headers.
	// Data starts on the following row.
	// Default: 1
	HeaderRow int
}

// DefaultOptions returns the default layout: first sheet, headers on row 1.
func DefaultOptions() Options {
	return Options{
		Sheet:     "",
		HeaderRow: 1,
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse decodes the first sheet of an XLSX workbook.
func Parse(data []byte) (*types.Table, error) {
	return ParseWithOptions(data, DefaultOptions())
}

// ParseWithOptions decodes one sheet of an XLSX workbook.
//
// PARAMETERS:
//   - data: The workbook bytes.
//   - opts: Sheet and header row selection.
//
// RETURNS:
//   - The decoded Table. A sheet with only a header row yields no rows.
//   - An error if the workbook cannot be opened, the sheet does not exist,
//     or the header row is beyond the end of the sheet.
func ParseWithOptions(data []byte, opts Options) (*types.Table, error) {
	if opts.HeaderRow < 1 {
		opts.HeaderRow = 1
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (sheets: %s)", sheetName, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return buildTable(rows, opts.HeaderRow)
}

// buildTable splits sheet rows into headers and data rows.
func buildTable(rows [][]string, headerRow int) (*types.Table, error) {
	if len(rows) < headerRow {
		return nil, fmt.Errorf("header row %d is beyond the last row (%d)", headerRow, len(rows))
	}

	headers := make([]string, len(rows[headerRow-1]))
	for i, h := range rows[headerRow-1] {
		headers[i] = strings.TrimSpace(h)
	}

	table := &types.Table{
		Headers:      headers,
		Rows:         make([][]string, 0, len(rows)-headerRow),
		FirstDataRow: headerRow + 1,
	}

	// Empty rows inside the data are kept as empty slices so that
	// Table.SheetRow still points at the original row.
	for _, row := range rows[headerRow:] {
		if isRowEmpty(row) {
			row = nil
		}
		table.Rows = append(table.Rows, row)
	}

	// Trailing empty rows carry no information.
	for len(table.Rows) > 0 && table.Rows[len(table.Rows)-1] == nil {
		table.Rows = table.Rows[:len(table.Rows)-1]
	}

	return table, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
