package transform

import (
	"testing"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(field string, actions ...config.TransformationAction) config.TransformationRule {
	return config.TransformationRule{Field: field, Actions: actions}
}

func TestApply(t *testing.T) {
	table := &types.Table{
		Headers: []string{"DESC_SEGMENT1", "SEGMENT5", "DEBIT"},
		Rows: [][]string{
			{"  esgari   logistica ", "CTA-0410000001", ""},
			{"otra", "00000", "12"},
			nil,
			{"corto"},
		},
	}

	tr, err := New([]config.TransformationRule{
		rule("desc_segment1",
			config.TransformationAction{Type: "normalize_whitespace"},
			config.TransformationAction{Type: "uppercase"},
			config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"OTRA": "OTRA EMPRESA"}},
		),
		rule("SEGMENT5",
			config.TransformationAction{Type: "extract_digits"},
			config.TransformationAction{Type: "remove_leading_zeros"},
		),
		rule("DEBIT", config.TransformationAction{Type: "if_empty_use_default", Value: "0"}),
		rule("NOT_THERE", config.TransformationAction{Type: "trim"}),
	})
	require.NoError(t, err)

	tr.Apply(table)

	assert.Equal(t, []string{"ESGARI LOGISTICA", "410000001", "0"}, table.Rows[0])
	assert.Equal(t, []string{"OTRA EMPRESA", "0", "12"}, table.Rows[1])
	assert.Nil(t, table.Rows[2])
	assert.Equal(t, []string{"CORTO"}, table.Rows[3])
}

func TestApplyAction(t *testing.T) {
	tests := []struct {
		name   string
		action config.TransformationAction
		in     string
		want   string
	}{
		{"trim", config.TransformationAction{Type: "trim"}, "  a ", "a"},
		{"lowercase", config.TransformationAction{Type: "lowercase"}, "AbC", "abc"},
		{"prepend", config.TransformationAction{Type: "prepend_string", Value: "4"}, "10", "410"},
		{"append", config.TransformationAction{Type: "append_string", Value: "0"}, "41", "410"},
		{"replace", config.TransformationAction{Type: "replace", Find: ",", Value: ""}, "1,000", "1000"},
		{"replace without find", config.TransformationAction{Type: "replace"}, "1,000", "1,000"},
		{"regex", config.TransformationAction{Type: "regex_replace", Find: `^CTA-`, Value: ""}, "CTA-41", "41"},
		{"lookup default", config.TransformationAction{Type: "lookup_with_default", Value: "?"}, "x", "?"},
		{"leading zeros empty", config.TransformationAction{Type: "remove_leading_zeros"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New([]config.TransformationRule{rule("f", tt.action)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.applyAction(tt.in, tt.action))
		})
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	_, err := New([]config.TransformationRule{rule("f", config.TransformationAction{Type: "explode"})})
	assert.ErrorContains(t, err, "unknown transformation type")

	_, err = New([]config.TransformationRule{rule("f", config.TransformationAction{Type: "regex_replace", Find: "("})})
	assert.ErrorContains(t, err, "invalid regex")
}
