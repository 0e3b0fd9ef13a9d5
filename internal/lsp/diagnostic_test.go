package lsp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/internal/testutil"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/leapstack-labs/fetchsql/pkg/core"
)

func newDoc(content string) *Document {
	return newDocument("file:///q", completion.SQL, content, 1)
}

func TestToDiagnostic_Range(t *testing.T) {
	doc := newDoc("<fetch>\n  <entity name=\"account\">")

	tests := []struct {
		name     string
		diag     convert.Diagnostic
		expected Range
	}{
		{
			name:     "word at offset",
			diag:     convert.Diagnostic{Offset: 1},
			expected: Range{Start: Position{Line: 0, Character: 1}, End: Position{Line: 0, Character: 6}},
		},
		{
			name:     "fragment",
			diag:     convert.Diagnostic{Offset: 10, Fragment: `<entity name="account">`},
			expected: Range{Start: Position{Line: 1, Character: 2}, End: Position{Line: 1, Character: 25}},
		},
		{
			name:     "fragment not in document",
			diag:     convert.Diagnostic{Offset: 10, Fragment: "<entity ...>"},
			expected: Range{Start: Position{Line: 1, Character: 2}, End: Position{Line: 1, Character: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toDiagnostic(doc, tt.diag)
			assert.Equal(t, tt.expected, got.Range)
			assert.Equal(t, diagnosticSource, got.Source)
		})
	}
}

func TestSeverityToLSP(t *testing.T) {
	assert.Equal(t, DiagnosticSeverityError, severityToLSP(core.SeverityError))
	assert.Equal(t, DiagnosticSeverityWarning, severityToLSP(core.SeverityWarning))
}

func TestTranslate_TooLarge(t *testing.T) {
	srv := NewServerWithLogger(strings.NewReader(""), &strings.Builder{}, Options{}, testutil.NewTestLogger(t))
	doc := newDoc("SELECT " + strings.Repeat("a", core.DefaultMaxInputSize))

	res, diags := srv.translate(doc)
	assert.Nil(t, res)
	require.Len(t, diags, 1)
	assert.Equal(t, convert.CodeInputTooLarge, diags[0].Code)
	assert.Equal(t, DiagnosticSeverityError, diags[0].Severity)
}
