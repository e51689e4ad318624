// =============================================================================
// Trial Balance Reporter - Validation Module
// =============================================================================
//
// This module collects data-quality issues found while building a report.
// None of them stop the report: the ledger is processed with nulls treated
// as zero and unmapped accounts left out of the category roll-up. The issues
// are surfaced so the user knows how much of the ledger was affected.
//
// ISSUE KINDS:
//   - invalid_date / invalid_account / invalid_amount:
//       a ledger cell that could not be coerced (counted per column)
//   - missing_value:
//       an empty date or account cell in the ledger
//   - unmapped_account:
//       a ledger account with no name/category in the mapping
//   - invalid_mapping / duplicate_mapping:
//       a mapping row without a usable account code, or a repeated code
//       (the first occurrence wins)
//
// =============================================================================

package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/trial-balance/internal/types"
)

// =============================================================================
// ISSUE TYPES
// =============================================================================

// Kind classifies an issue.
type Kind string

const (
	KindInvalidDate      Kind = "invalid_date"
	KindInvalidAccount   Kind = "invalid_account"
	KindInvalidAmount    Kind = "invalid_amount"
	KindMissingValue     Kind = "missing_value"
	KindUnmappedAccount  Kind = "unmapped_account"
	KindInvalidMapping   Kind = "invalid_mapping"
	KindDuplicateMapping Kind = "duplicate_mapping"
)

// Severity of an issue. Data issues never stop a report, so they are all
// warnings.
type Severity string

const SeverityWarning Severity = "warning"

// Issue represents a single data-quality problem.
type Issue struct {
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`

	// Source is "ledger" or "mapping".
	Source string `json:"source"`

	// Row is the 1-based sheet row, or 0 when the issue is not row specific.
	Row int `json:"row,omitempty"`

	// Field is the source column header.
	Field string `json:"field,omitempty"`

	// Value is the offending raw value.
	Value string `json:"value,omitempty"`

	Message string `json:"message"`
}

// Error implements the error interface.
func (i *Issue) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(string(i.Severity)), i.Source)
	if i.Row > 0 {
		fmt.Fprintf(&b, " row %d", i.Row)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, ", field '%s'", i.Field)
	}
	fmt.Fprintf(&b, ": %s", i.Message)
	if i.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", i.Value)
	}
	return b.String()
}

// InvalidValue builds the issue for a cell that failed coercion.
func InvalidValue(kind Kind, source string, row int, field, value string) *Issue {
	return &Issue{
		Severity: SeverityWarning,
		Kind:     kind,
		Source:   source,
		Row:      row,
		Field:    field,
		Value:    value,
		Message:  fmt.Sprintf("value could not be read and is treated as empty (%s)", kind),
	}
}

// MissingValue builds the issue for an empty required cell.
func MissingValue(source string, row int, field string) *Issue {
	return &Issue{
		Severity: SeverityWarning,
		Kind:     KindMissingValue,
		Source:   source,
		Row:      row,
		Field:    field,
		Message:  "value is empty",
	}
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result accumulates issues.
type Result struct {
	Issues []*Issue `json:"issues"`

	WarningCount int `json:"warning_count"`

	byKind map[Kind]int
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{
		Issues: make([]*Issue, 0),
		byKind: make(map[Kind]int),
	}
}

// Add records issues.
func (r *Result) Add(issues ...*Issue) {
	if r.byKind == nil {
		r.byKind = make(map[Kind]int)
	}
	for _, issue := range issues {
		r.Issues = append(r.Issues, issue)
		r.byKind[issue.Kind]++
		r.WarningCount++
	}
}

// Merge appends another result's issues.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Add(other.Issues...)
}

// Count returns the number of issues of one kind.
func (r *Result) Count(kind Kind) int {
	return r.byKind[kind]
}

// Counts returns the issue counts keyed by kind.
func (r *Result) Counts() map[Kind]int {
	out := make(map[Kind]int, len(r.byKind))
	for k, v := range r.byKind {
		out[k] = v
	}
	return out
}

// Empty reports whether no issues were recorded.
func (r *Result) Empty() bool {
	return len(r.Issues) == 0
}

// =============================================================================
// CHECKS
// =============================================================================

// CheckUnmapped reports each unmapped account code once.
func CheckUnmapped(codes []types.AccountCode) []*Issue {
	issues := make([]*Issue, 0, len(codes))
	for _, code := range codes {
		issues = append(issues, &Issue{
			Severity: SeverityWarning,
			Kind:     KindUnmappedAccount,
			Source:   "ledger",
			Value:    fmt.Sprintf("%d", code),
			Message:  "account has no name or category in the mapping",
		})
	}
	return issues
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatIssues formats issues for display, grouped by kind with counts
// first. At most limit individual issues are listed; limit <= 0 lists all.
func FormatIssues(result *Result, limit int) string {
	if result == nil || result.Empty() {
		return "No data issues found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Data issues: %d warning(s)\n", result.WarningCount)

	kinds := make([]string, 0, len(result.byKind))
	for k := range result.byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %-18s %d\n", k+":", result.byKind[Kind(k)])
	}

	shown := result.Issues
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, issue := range shown {
		fmt.Fprintf(&b, "  - %s\n", issue.Error())
	}
	if len(shown) < len(result.Issues) {
		fmt.Fprintf(&b, "  ... and %d more\n", len(result.Issues)-len(shown))
	}

	return b.String()
}
