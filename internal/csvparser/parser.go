// =============================================================================
// Trial Balance Reporter - CSV Parser Module
// =============================================================================
//
// Some ledger systems export CSV instead of XLSX. This module decodes those
// exports into the same Table the XLSX parser produces, so that the rest of
// the pipeline does not care about the source format. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Multi-line headers
//   - A UTF-8 byte order mark on the first header
//   - Quoted fields with lazy quote handling
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/types"
)

const utf8BOM = "\ufeff"

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse decodes CSV bytes into a Table.
//
// PARAMETERS:
//   - data: The CSV file contents.
//   - settings: Delimiter and header settings from the source configuration.
//
// RETURNS:
//   - The decoded Table.
//   - An error if the CSV is malformed or empty.
//
// PARSING PROCESS:
//   1. Configure the CSV reader with the specified delimiter
//   2. Read all records
//   3. Merge header rows (for multi-line headers)
//   4. Keep the remaining records as data rows
func Parse(data []byte, settings config.CSVSettings) (*types.Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	configureReader(reader, settings)

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headerRows := settings.HeaderRows
	if headerRows < 1 {
		headerRows = 1
	}
	if headerRows > len(allRows) {
		return nil, fmt.Errorf("CSV has %d row(s), expected at least %d header row(s)", len(allRows), headerRows)
	}

	headers := extractHeaders(allRows[:headerRows])

	table := &types.Table{
		Headers:      headers,
		Rows:         make([][]string, 0, len(allRows)-headerRows),
		FirstDataRow: headerRows + 1,
	}

	for _, row := range allRows[headerRows:] {
		if isRowEmpty(row) {
			row = nil
		}
		table.Rows = append(table.Rows, row)
	}
	for len(table.Rows) > 0 && table.Rows[len(table.Rows)-1] == nil {
		table.Rows = table.Rows[:len(table.Rows)-1]
	}

	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Exports are not always rectangular.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders merges one or more header rows into a single header row.
// Multi-row headers are joined column by column with a space, skipping
// empty parts, so that
//
//	| Account |       |
//	| Code    | Name  |
//
// becomes ["Account Code", "Name"].
func extractHeaders(headerRows [][]string) []string {
	width := 0
	for _, row := range headerRows {
		if len(row) > width {
			width = len(row)
		}
	}

	headers := make([]string, width)
	for col := 0; col < width; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if part := strings.TrimSpace(row[col]); part != "" {
					parts = append(parts, part)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers)
}

// cleanHeaders strips a byte order mark and surrounding whitespace.
func cleanHeaders(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	return headers
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
