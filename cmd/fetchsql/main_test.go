// Package main provides tests for the fetchsql CLI.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/fetchsql/internal/cli"
	"github.com/leapstack-labs/fetchsql/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fetchsql v"+cli.Version)
}

func TestHelpCommand(t *testing.T) {
	out, _, err := run(t, "", "--help")
	require.NoError(t, err)

	for _, expected := range []string{"translate", "validate", "complete", "tokens", "fmt", "repl", "watch", "lsp", "serve", "metadata", "completion"} {
		assert.Contains(t, out, expected)
	}
}

func TestTranslateRoundTrip(t *testing.T) {
	out, _, err := run(t, "SELECT name FROM account WHERE statecode = 0", "translate", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `<entity name="account">`)
	assert.Contains(t, out, `<condition attribute="statecode" operator="eq" value="0" />`)

	back, _, err := run(t, out, "translate", "-")
	require.NoError(t, err)
	assert.Contains(t, back, "FROM account")
	assert.Contains(t, back, "statecode = 0")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := run(t, "", "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "fetchsql")
		})
	}

	_, _, err := run(t, "", "completion", "tcsh")
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := run(t, "", "frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
