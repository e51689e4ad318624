// =============================================================================
// Trial Balance Reporter - Balance Computation
// =============================================================================
//
// Builds the trial balance of one company for one month.
//
// BALANCE RULES:
//   - Period rows are grouped by (account, name, category). Rows without a
//     date or without a mapping take part in no group.
//   - Opening balance = sum(debit - credit) of the rows strictly before the
//     period. For January that means earlier years only.
//   - Accounts with an opening balance and no period movement are listed
//     with zero debit and credit.
//   - Closing balance = opening + debit - credit.
//
// NET FIGURES:
//   Computed on the unfiltered period rows of the company (mapped or not):
//     income  = sum(credit - debit) for IncomeMin <= account <= IncomeMax
//     expense = sum(debit - credit) for account >= ExpenseMin
//
// =============================================================================

package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/shopspring/decimal"
)

// ErrUnknownMonth is returned when a selection names a month that is not in
// the calendar.
var ErrUnknownMonth = errors.New("unknown month")

// Policy holds the configurable balance rules.
type Policy struct {
	Classification config.Classification

	// OpeningScope is config.ScopeAll or config.ScopeCompany.
	OpeningScope string
}

// PolicyFromConfig extracts the balance rules from the configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		Classification: cfg.Classification,
		OpeningScope:   cfg.OpeningBalanceScope,
	}
}

// Totals sums the columns of a balance detail.
type Totals struct {
	Opening decimal.Decimal `json:"opening"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Closing decimal.Decimal `json:"closing"`
}

// Report is everything shown and exported for one selection.
type Report struct {
	Selection  types.Selection         `json:"selection"`
	Balances   []types.PeriodAggregate `json:"balances"`
	Totals     Totals                  `json:"totals"`
	Categories []types.CategoryTotal   `json:"categories"`
	Labels     []types.SummaryLabel    `json:"labels"`
	Net        types.NetFigures        `json:"net"`
	Unmapped   []types.AccountCode     `json:"unmapped"`

	// PeriodRows is the number of ledger rows in the selection.
	PeriodRows int `json:"period_rows"`
}

// =============================================================================
// REPORT
// =============================================================================

// Build computes the report for a selection. An unknown month is an error;
// a selection with no rows is a valid empty report. The month in
// Report.Selection is the calendar's spelling, whatever case was asked for.
func Build(ds *Dataset, sel types.Selection, policy Policy) (*Report, error) {
	month, ok := ds.Calendar.Month(sel.Month)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMonth, sel.Month)
	}
	sel.Month = ds.Calendar.Name(month)
	sel.Company = strings.TrimSpace(sel.Company)

	balances, err := ds.Balances(sel, policy.OpeningScope)
	if err != nil {
		return nil, err
	}
	period := ds.Filter(sel)

	return &Report{
		Selection:  sel,
		Balances:   balances,
		Totals:     SumBalances(balances),
		Categories: CategoryTotals(balances),
		Labels:     SummaryLabels(sel),
		Net:        NetFigures(period, policy.Classification),
		Unmapped:   ds.Unmapped(),
		PeriodRows: len(period),
	}, nil
}

// =============================================================================
// BALANCES
// =============================================================================

type groupKey struct {
	account  types.AccountCode
	name     string
	category string
}

type movement struct {
	debit  decimal.Decimal
	credit decimal.Decimal
}

// Balances returns the balance detail of the selection, sorted by account,
// name and category.
//
// PARAMETERS:
//   - sel: The selected year, month and company.
//   - scope: config.ScopeCompany restricts opening balances to the selected
//     company; anything else uses every company.
func (d *Dataset) Balances(sel types.Selection, scope string) ([]types.PeriodAggregate, error) {
	month, ok := d.Calendar.Month(sel.Month)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMonth, sel.Month)
	}
	company := strings.TrimSpace(sel.Company)

	period := make(map[groupKey]*movement)
	opening := make(map[groupKey]*movement)

	for _, e := range d.Entries {
		if !e.AccountValid || !e.Mapped() {
			continue
		}
		key := groupKey{account: e.Account, name: e.Mapping.Name, category: e.Mapping.Category}

		switch {
		case e.inPeriod(sel.Year, month) && e.Company == company:
			accumulate(period, key, e)
		case e.before(sel.Year, month) && (scope != config.ScopeCompany || e.Company == company):
			accumulate(opening, key, e)
		}
	}

	keys := make([]groupKey, 0, len(period)+len(opening))
	for k := range period {
		keys = append(keys, k)
	}
	for k := range opening {
		if _, ok := period[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.account != b.account {
			return a.account < b.account
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return a.category < b.category
	})

	monthName := d.Calendar.Name(month)
	out := make([]types.PeriodAggregate, 0, len(keys))
	for _, k := range keys {
		agg := types.PeriodAggregate{
			Year:           sel.Year,
			Month:          monthName,
			Account:        k.account,
			AccountName:    k.name,
			Category:       k.category,
			OpeningBalance: decimal.Zero,
			Debit:          decimal.Zero,
			Credit:         decimal.Zero,
		}
		if m, ok := opening[k]; ok {
			agg.OpeningBalance = m.debit.Sub(m.credit)
		}
		if m, ok := period[k]; ok {
			agg.Debit = m.debit
			agg.Credit = m.credit
		}
		agg.ClosingBalance = agg.OpeningBalance.Add(agg.Debit).Sub(agg.Credit)
		out = append(out, agg)
	}

	return out, nil
}

func accumulate(groups map[groupKey]*movement, key groupKey, e Entry) {
	m, ok := groups[key]
	if !ok {
		m = &movement{debit: decimal.Zero, credit: decimal.Zero}
		groups[key] = m
	}
	m.debit = m.debit.Add(e.DebitAmount())
	m.credit = m.credit.Add(e.CreditAmount())
}

// SumBalances totals each column of a balance detail.
func SumBalances(aggs []types.PeriodAggregate) Totals {
	t := Totals{Opening: decimal.Zero, Debit: decimal.Zero, Credit: decimal.Zero, Closing: decimal.Zero}
	for _, a := range aggs {
		t.Opening = t.Opening.Add(a.OpeningBalance)
		t.Debit = t.Debit.Add(a.Debit)
		t.Credit = t.Credit.Add(a.Credit)
		t.Closing = t.Closing.Add(a.ClosingBalance)
	}
	return t
}

// =============================================================================
// SUMMARY
// =============================================================================

// CategoryTotals rolls the balance detail up by category, sorted by
// category name.
func CategoryTotals(aggs []types.PeriodAggregate) []types.CategoryTotal {
	index := make(map[string]int)
	out := make([]types.CategoryTotal, 0)
	for _, a := range aggs {
		i, ok := index[a.Category]
		if !ok {
			i = len(out)
			index[a.Category] = i
			out = append(out, types.CategoryTotal{
				Category:       a.Category,
				Debit:          decimal.Zero,
				Credit:         decimal.Zero,
				ClosingBalance: decimal.Zero,
			})
		}
		out[i].Debit = out[i].Debit.Add(a.Debit)
		out[i].Credit = out[i].Credit.Add(a.Credit)
		out[i].ClosingBalance = out[i].ClosingBalance.Add(a.ClosingBalance)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// SummaryLabels returns the label rows written under the category totals.
// The "FIANCIERA" spelling matches the statement template.
func SummaryLabels(sel types.Selection) []types.SummaryLabel {
	year := strconv.Itoa(sel.Year)
	return []types.SummaryLabel{
		{Key: "nombre", Value: sel.Company},
		{Key: "fecha_r", Value: sel.Month + " de " + year},
		{Key: "fecha", Value: "ESTADO DE SITUACION FIANCIERA " + sel.Month + " " + year},
	}
}

// NetFigures computes net income and net expense over the period entries.
// Entries without an account code are ignored.
func NetFigures(entries []Entry, c config.Classification) types.NetFigures {
	net := types.NetFigures{Income: decimal.Zero, Expense: decimal.Zero}
	for _, e := range entries {
		if !e.AccountValid {
			continue
		}
		code := int64(e.Account)
		switch {
		case code >= c.IncomeMin && code <= c.IncomeMax:
			net.Income = net.Income.Add(e.CreditAmount().Sub(e.DebitAmount()))
		case code >= c.ExpenseMin:
			net.Expense = net.Expense.Add(e.DebitAmount().Sub(e.CreditAmount()))
		}
	}
	return net
}
