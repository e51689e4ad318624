package ledger

import (
	"testing"
	"time"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testCalendar = NewCalendar(config.DefaultMonthNames)

var testPolicy = Policy{
	Classification: config.Classification{
		IncomeMin:  config.DefaultIncomeMin,
		IncomeMax:  config.DefaultIncomeMax,
		ExpenseMin: config.DefaultExpenseMin,
	},
	OpeningScope: config.ScopeAll,
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func dec(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

// row builds a ledger row; date is "2006-01-02" or "" for null.
func row(date, company string, account int64, debit, credit string) types.LedgerRow {
	r := types.LedgerRow{
		Company:      company,
		Account:      types.AccountCode(account),
		AccountValid: account != 0,
		Debit:        dec(debit),
		Credit:       dec(credit),
	}
	if date != "" {
		r.Date, _ = time.Parse("2006-01-02", date)
	}
	return r
}

func mapping(account int64, name, category string) types.AccountMapping {
	return types.AccountMapping{Account: types.AccountCode(account), Name: name, Category: category}
}

func sel(year int, month, company string) types.Selection {
	return types.Selection{Year: year, Month: month, Company: company}
}
