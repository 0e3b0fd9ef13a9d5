package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/pkg/core"
)

// displayName names a source in messages.
func displayName(path string) string {
	if path == stdinName {
		return "<stdin>"
	}
	return path
}

// printDiagnostics writes one line per diagnostic to the error writer,
// compiler style: name:line:col: message [CODE].
func printDiagnostics(r *output.Renderer, path string, diags []convert.Diagnostic) {
	for _, d := range diags {
		msg := fmt.Sprintf("%s:%d:%d: %s [%s]", displayName(path), d.Line, d.Column, d.Message, d.Code)
		if d.Severity == core.SeverityError {
			r.Error(msg)
			continue
		}
		r.Warning(msg)
	}
}

// diagnosticTable renders diagnostics as a table.
func diagnosticTable(r *output.Renderer, diags []convert.Diagnostic) {
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		rows = append(rows, []string{
			d.Severity.String(),
			strconv.Itoa(d.Line) + ":" + strconv.Itoa(d.Column),
			d.Code,
			d.Message,
		})
	}
	r.Table([]string{"Severity", "Position", "Code", "Message"}, rows)
}
