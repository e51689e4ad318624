// =============================================================================
// Trial Balance Reporter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - xlsxparser / csvparser (Table)
//   - ledger (LedgerRow, AccountMapping, PeriodAggregate, CategoryTotal)
//   - xlsxwriter (PeriodAggregate, CategoryTotal, SummaryLabel)
//   - web (all of the above, rendered)
//
// =============================================================================

package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TABULAR SOURCE DATA
// =============================================================================

// Table is a decoded sheet: one header row plus data rows of raw cell text.
type Table struct {
	// Headers contains the column headers, trimmed.
	Headers []string

	// Rows contains the data rows. Rows may be shorter than Headers when
	// trailing cells are empty.
	Rows [][]string

	// FirstDataRow is the 1-based sheet row number of Rows[0].
	// Used to report coercion problems against the original file.
	FirstDataRow int
}

// ColumnIndex returns the index of the named column, or -1.
// Matching ignores surrounding whitespace and letter case.
func (t *Table) ColumnIndex(name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Headers {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, col), or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// SheetRow returns the 1-based sheet row number of data row i.
func (t *Table) SheetRow(i int) int {
	return t.FirstDataRow + i
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// AccountCode is a numeric chart-of-accounts code (e.g. 410000001).
type AccountCode int64

// LedgerRow is one coerced line of the ledger export.
// Null values are represented by the zero Date, AccountValid=false and
// invalid NullDecimals; they count as zero in every sum.
type LedgerRow struct {
	Date         time.Time
	Company      string
	Account      AccountCode
	AccountValid bool
	Debit        decimal.NullDecimal
	Credit       decimal.NullDecimal

	// SourceRow is the 1-based row number in the source sheet.
	SourceRow int
}

// HasDate reports whether the date coerced successfully.
func (r LedgerRow) HasDate() bool {
	return !r.Date.IsZero()
}

// DebitAmount returns the debit with null treated as zero.
func (r LedgerRow) DebitAmount() decimal.Decimal {
	if !r.Debit.Valid {
		return decimal.Zero
	}
	return r.Debit.Decimal
}

// CreditAmount returns the credit with null treated as zero.
func (r LedgerRow) CreditAmount() decimal.Decimal {
	if !r.Credit.Valid {
		return decimal.Zero
	}
	return r.Credit.Decimal
}

// AccountMapping assigns a name and a category to an account code.
type AccountMapping struct {
	Account  AccountCode `json:"account"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
}

// =============================================================================
// DERIVED TYPES
// =============================================================================

// PeriodAggregate is one line of the balance detail for a selected period.
type PeriodAggregate struct {
	Year           int             `json:"year"`
	Month          string          `json:"month"`
	Account        AccountCode     `json:"account"`
	AccountName    string          `json:"account_name"`
	Category       string          `json:"category"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// CategoryTotal rolls period aggregates up to a mapping category.
type CategoryTotal struct {
	Category       string          `json:"category"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// SummaryLabel is a key/value pair written under the category totals of the
// summary sheet (company name and report dates).
type SummaryLabel struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NetFigures holds the income-statement net amounts for a period.
type NetFigures struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Result returns income minus expense.
func (n NetFigures) Result() decimal.Decimal {
	return n.Income.Sub(n.Expense)
}

// =============================================================================
// SELECTION TYPES
// =============================================================================

// Selection identifies the report period and company.
// Month is the localized month name as shown to the user (e.g. "enero").
type Selection struct {
	Year    int    `json:"year" form:"year" binding:"omitempty,gte=1900,lte=9999"`
	Month   string `json:"month" form:"month" binding:"max=32"`
	Company string `json:"company" form:"company"`
}

// Options lists the values a user can select.
type Options struct {
	// Years are sorted descending.
	Years []int `json:"years"`

	// Months are in the order they are first seen in the ledger.
	Months []string `json:"months"`

	// Companies are in the order they are first seen in the ledger.
	Companies []string `json:"companies"`
}
