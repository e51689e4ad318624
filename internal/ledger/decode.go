// =============================================================================
// Trial Balance Reporter - Ledger Decoding
// =============================================================================
//
// Turns raw source tables into typed ledger rows and account mappings.
//
// COERCION POLICY:
//   A value that cannot be read becomes null instead of failing the run.
//   Null dates exclude the row from every period, null account codes
//   exclude it from every account roll-up, and null amounts count as zero.
//   Each coercion failure is recorded as a validation issue so the number of
//   affected rows is visible.
//
//   - Dates: numeric cells are Excel serial dates; text cells are tried
//     against the configured layouts in order.
//   - Account codes: any numeric text that is a whole number.
//   - Amounts: decimal text (exponents allowed, no thousands separators).
//
// =============================================================================

package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/ginjaninja78/trial-balance/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when a configured column is not in a table.
var ErrMissingColumn = errors.New("missing column")

// =============================================================================
// LEDGER
// =============================================================================

// DecodeLedger selects the configured ledger columns and coerces each row.
//
// PARAMETERS:
//   - table: The raw ledger table.
//   - cols: Header names of the five ledger columns.
//   - layouts: Go time layouts tried for text dates.
//
// RETURNS:
//   - One LedgerRow per non-empty table row, in table order.
//   - The coercion issues found.
//   - An error wrapping ErrMissingColumn if a column is absent.
func DecodeLedger(table *types.Table, cols config.LedgerColumns, layouts []string) ([]types.LedgerRow, *validation.Result, error) {
	idx, err := columnIndexes(table, "ledger",
		cols.Date, cols.Company, cols.Account, cols.Debit, cols.Credit)
	if err != nil {
		return nil, nil, err
	}
	dateCol, companyCol, accountCol, debitCol, creditCol := idx[0], idx[1], idx[2], idx[3], idx[4]

	result := validation.NewResult()
	rows := make([]types.LedgerRow, 0, len(table.Rows))

	for i, raw := range table.Rows {
		if raw == nil {
			continue
		}
		sheetRow := table.SheetRow(i)

		row := types.LedgerRow{
			Company:   strings.TrimSpace(table.Cell(i, companyCol)),
			SourceRow: sheetRow,
		}

		rawDate := strings.TrimSpace(table.Cell(i, dateCol))
		if rawDate == "" {
			result.Add(validation.MissingValue("ledger", sheetRow, cols.Date))
		} else if d, ok := ParseDate(rawDate, layouts); ok {
			row.Date = d
		} else {
			result.Add(validation.InvalidValue(validation.KindInvalidDate, "ledger", sheetRow, cols.Date, rawDate))
		}

		rawAccount := strings.TrimSpace(table.Cell(i, accountCol))
		if rawAccount == "" {
			result.Add(validation.MissingValue("ledger", sheetRow, cols.Account))
		} else if code, ok := ParseAccount(rawAccount); ok {
			row.Account = code
			row.AccountValid = true
		} else {
			result.Add(validation.InvalidValue(validation.KindInvalidAccount, "ledger", sheetRow, cols.Account, rawAccount))
		}

		row.Debit = coerceAmount(result, sheetRow, cols.Debit, table.Cell(i, debitCol))
		row.Credit = coerceAmount(result, sheetRow, cols.Credit, table.Cell(i, creditCol))

		rows = append(rows, row)
	}

	return rows, result, nil
}

// coerceAmount parses an amount cell, recording an issue for bad values.
// Empty cells are null without an issue: blank debit or credit is normal.
func coerceAmount(result *validation.Result, sheetRow int, field, raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	amount, ok := ParseAmount(raw)
	if !ok {
		result.Add(validation.InvalidValue(validation.KindInvalidAmount, "ledger", sheetRow, field, raw))
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: amount, Valid: true}
}

// =============================================================================
// MAPPING
// =============================================================================

// DecodeMappings reads the chart-of-accounts table. Rows without a usable
// account code are skipped; repeated codes keep their first occurrence. Both
// are reported.
func DecodeMappings(table *types.Table, cols config.MappingColumns) ([]types.AccountMapping, *validation.Result, error) {
	idx, err := columnIndexes(table, "mapping", cols.Account, cols.Name, cols.Category)
	if err != nil {
		return nil, nil, err
	}
	accountCol, nameCol, categoryCol := idx[0], idx[1], idx[2]

	result := validation.NewResult()
	mappings := make([]types.AccountMapping, 0, len(table.Rows))
	firstRow := make(map[types.AccountCode]int)

	for i, raw := range table.Rows {
		if raw == nil {
			continue
		}
		sheetRow := table.SheetRow(i)

		rawAccount := strings.TrimSpace(table.Cell(i, accountCol))
		code, ok := ParseAccount(rawAccount)
		if !ok {
			result.Add(&validation.Issue{
				Severity: validation.SeverityWarning,
				Kind:     validation.KindInvalidMapping,
				Source:   "mapping",
				Row:      sheetRow,
				Field:    cols.Account,
				Value:    rawAccount,
				Message:  "mapping row has no usable account code and is ignored",
			})
			continue
		}

		if prev, dup := firstRow[code]; dup {
			result.Add(&validation.Issue{
				Severity: validation.SeverityWarning,
				Kind:     validation.KindDuplicateMapping,
				Source:   "mapping",
				Row:      sheetRow,
				Field:    cols.Account,
				Value:    rawAccount,
				Message:  fmt.Sprintf("account already mapped on row %d; this row is ignored", prev),
			})
			continue
		}
		firstRow[code] = sheetRow

		mappings = append(mappings, types.AccountMapping{
			Account:  code,
			Name:     strings.TrimSpace(table.Cell(i, nameCol)),
			Category: strings.TrimSpace(table.Cell(i, categoryCol)),
		})
	}

	return mappings, result, nil
}

// =============================================================================
// COERCION FUNCTIONS
// =============================================================================

// Serial dates must land in this range of years.
const (
	minDateYear = 1900
	maxDateYear = 9999
)

// ParseDate reads a text date or an Excel serial date. Text layouts are
// tried first so that compact dates such as "20240115" are not read as
// serials. Serials outside the years 1900..9999 are rejected.
// The time of day is dropped.
func ParseDate(raw string, layouts []string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return truncateDay(t), true
		}
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil || t.Year() < minDateYear || t.Year() > maxDateYear {
			return time.Time{}, false
		}
		return truncateDay(t), true
	}

	return time.Time{}, false
}

// ParseAccount reads a whole-number account code. "410000001.0" and
// "4.10000001E8" are accepted; "410000001.5" is not.
func ParseAccount(raw string) (types.AccountCode, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return types.AccountCode(n), true
	}

	d, err := decimal.NewFromString(raw)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	if !d.BigInt().IsInt64() {
		return 0, false
	}
	return types.AccountCode(d.IntPart()), true
}

// ParseAmount reads a decimal amount.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// columnIndexes resolves header names to column indexes.
func columnIndexes(table *types.Table, source string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	var missing []string
	for i, name := range names {
		out[i] = table.ColumnIndex(name)
		if out[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", source, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
