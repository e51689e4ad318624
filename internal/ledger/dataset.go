package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/trial-balance/internal/types"
)

// Entry is a ledger row joined with its account mapping and calendar fields.
type Entry struct {
	types.LedgerRow

	// Year, Month and MonthName are zero when the row has no date.
	Year      int
	Month     time.Month
	MonthName string

	// Mapping is nil when the account has no mapping row.
	Mapping *types.AccountMapping
}

// Mapped reports whether the entry resolves to a named, categorised account.
// Rows with a blank name or category are grouped nowhere, the same as rows
// with no mapping at all.
func (e Entry) Mapped() bool {
	return e.Mapping != nil && e.Mapping.Name != "" && e.Mapping.Category != ""
}

// Dataset is the joined ledger, in ledger order.
type Dataset struct {
	Entries  []Entry
	Calendar Calendar
}

// Prepare derives calendar fields and left-joins the mappings onto the
// ledger rows. The mappings must already be unique per account code.
func Prepare(rows []types.LedgerRow, mappings []types.AccountMapping, cal Calendar) *Dataset {
	byCode := make(map[types.AccountCode]*types.AccountMapping, len(mappings))
	for i := range mappings {
		if _, ok := byCode[mappings[i].Account]; !ok {
			byCode[mappings[i].Account] = &mappings[i]
		}
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{LedgerRow: row}
		if row.HasDate() {
			e.Year = row.Date.Year()
			e.Month = row.Date.Month()
			e.MonthName = cal.Name(e.Month)
		}
		if row.AccountValid {
			e.Mapping = byCode[row.Account]
		}
		entries = append(entries, e)
	}

	return &Dataset{Entries: entries, Calendar: cal}
}

// Unmapped returns the distinct account codes with no usable mapping, in the
// order they first appear. Rows without an account code are not included.
func (d *Dataset) Unmapped() []types.AccountCode {
	seen := make(map[types.AccountCode]bool)
	out := []types.AccountCode{}
	for _, e := range d.Entries {
		if !e.AccountValid || e.Mapped() || seen[e.Account] {
			continue
		}
		seen[e.Account] = true
		out = append(out, e.Account)
	}
	return out
}

// Options lists the selectable years (descending), month names and
// companies (first-seen order).
func (d *Dataset) Options() types.Options {
	opts := types.Options{
		Years:     []int{},
		Months:    []string{},
		Companies: []string{},
	}

	years := make(map[int]bool)
	months := make(map[string]bool)
	companies := make(map[string]bool)

	for _, e := range d.Entries {
		if e.HasDate() {
			if !years[e.Year] {
				years[e.Year] = true
				opts.Years = append(opts.Years, e.Year)
			}
			if e.MonthName != "" && !months[e.MonthName] {
				months[e.MonthName] = true
				opts.Months = append(opts.Months, e.MonthName)
			}
		}
		if e.Company != "" && !companies[e.Company] {
			companies[e.Company] = true
			opts.Companies = append(opts.Companies, e.Company)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(opts.Years)))
	return opts
}

// Filter returns the entries of the selected year, month and company,
// mapped or not. An unknown month matches nothing.
func (d *Dataset) Filter(sel types.Selection) []Entry {
	month, ok := d.Calendar.Month(sel.Month)
	if !ok {
		return nil
	}
	var out []Entry
	for _, e := range d.Entries {
		if e.inPeriod(sel.Year, month) && e.Company == strings.TrimSpace(sel.Company) {
			out = append(out, e)
		}
	}
	return out
}

func (e Entry) inPeriod(year int, month time.Month) bool {
	return e.HasDate() && e.Year == year && e.Month == month
}

// before reports whether the entry falls strictly before the period. For
// January only earlier years count.
func (e Entry) before(year int, month time.Month) bool {
	if !e.HasDate() {
		return false
	}
	if month == time.January {
		return e.Year < year
	}
	return e.Year < year || (e.Year == year && e.Month < month)
}
