// =============================================================================
// Trial Balance Reporter - Transformation Engine
// =============================================================================
//
// This module cleans raw source cells before they are coerced into ledger
// and mapping values. Exports from different ERP instances rarely agree on
// details such as company name casing, stray whitespace or account codes
// with a text prefix; transformation rules fix those up per column.
//
// EXAMPLE (config.yaml):
//
//   sources:
//     ledger:
//       transformations:
//         - field: DESC_SEGMENT1
//           actions:
//             - type: normalize_whitespace
//             - type: uppercase
//         - field: SEGMENT5
//           actions:
//             - type: extract_digits
//
// =============================================================================

package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/types"
)

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies transformation rules to table columns.
type Transformer struct {
	rules []config.TransformationRule

	// compiled holds regex_replace patterns keyed by pattern text.
	compiled map[string]*regexp.Regexp
}

// New creates a Transformer and compiles its regular expressions.
//
// RETURNS:
//   - An error if a rule uses an unknown action type or an invalid pattern.
func New(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules:    rules,
		compiled: make(map[string]*regexp.Regexp),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			if !knownAction(action.Type) {
				return nil, fmt.Errorf("field %q: unknown transformation type: %s", rule.Field, action.Type)
			}
			if action.Type == "regex_replace" && action.Find != "" {
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("field %q: invalid regex pattern: %w", rule.Field, err)
				}
				t.compiled[action.Find] = re
			}
		}
	}

	return t, nil
}

// Apply rewrites the table cells in place. Rules naming a column the table
// does not have are ignored; the decoder reports missing required columns.
func (t *Transformer) Apply(table *types.Table) {
	for _, rule := range t.rules {
		col := table.ColumnIndex(rule.Field)
		if col < 0 {
			continue
		}

		for r, row := range table.Rows {
			if col >= len(row) {
				continue
			}
			value := row[col]
			for _, action := range rule.Actions {
				value = t.applyAction(value, action)
			}
			table.Rows[r][col] = value
		}
	}
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// applyAction applies a single transformation action.
func (t *Transformer) applyAction(value string, action config.TransformationAction) string {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value)

	case "uppercase":
		return strings.ToUpper(value)

	case "lowercase":
		return strings.ToLower(value)

	case "normalize_whitespace":
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))

	case "prepend_string":
		return action.Value + value

	case "append_string":
		return value + action.Value

	case "replace":
		if action.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, action.Find, action.Value)

	case "regex_replace":
		re, ok := t.compiled[action.Find]
		if !ok {
			return value
		}
		return re.ReplaceAllString(value, action.Value)

	// =========================================================================
	// CODE CLEANUP
	// =========================================================================

	case "remove_leading_zeros":
		result := strings.TrimLeft(value, "0")
		if result == "" && value != "" {
			return "0"
		}
		return result

	case "extract_digits":
		return strings.Join(digitsPattern.FindAllString(value, -1), "")

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement
		}
		return value

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement
		}
		return action.Value

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value
		}
		return value
	}

	return value
}

// knownAction reports whether the action type is supported.
func knownAction(actionType string) bool {
	switch actionType {
	case "trim", "uppercase", "lowercase", "normalize_whitespace",
		"prepend_string", "append_string", "replace", "regex_replace",
		"remove_leading_zeros", "extract_digits",
		"lookup", "lookup_with_default", "if_empty_use_default":
		return true
	}
	return false
}
