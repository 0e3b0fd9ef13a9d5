package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fetchsql/internal/cli/testutil"
)

// setupProject creates a project holding files and loads its configuration.
func setupProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := testutil.SetupTestProject(t, files)
	testutil.LoadTestConfig(t)
	return dir
}

func execute(cmd *cobra.Command, stdin string, args ...string) testutil.CommandResult {
	return testutil.ExecuteCommand(cmd, stdin, args...)
}

func TestCommandDefinitions(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewTranslateCommand(), "translate [files...]", []string{"to", "out-dir", "jobs"}},
		{NewValidateCommand(), "validate [file]", []string{"language"}},
		{NewCompleteCommand(), "complete [file]", []string{"offset", "language"}},
		{NewTokensCommand(), "tokens [file]", nil},
		{NewFmtCommand(), "fmt [file]", []string{"write"}},
		{NewREPLCommand(), "repl", []string{"mode"}},
		{NewWatchCommand(), "watch <files...>", []string{"debounce"}},
		{NewLSPCommand("dev"), "lsp", nil},
		{NewServeCommand("dev"), "serve", []string{"addr", "watch", "debounce"}},
		{NewMetadataCommand(), "metadata", nil},
		{NewVersionCommand(BuildInfo{}), "version", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}

	sub := NewMetadataCommand().Commands()
	require.Len(t, sub, 2)
}

func TestTranslate_Stdin(t *testing.T) {
	setupProject(t, nil)

	res := execute(NewTranslateCommand(), "SELECT name FROM account WHERE statecode = 0")
	require.NoError(t, res.Err)
	assert.True(t, strings.HasPrefix(res.Out, "<fetch>"), res.Out)
	assert.Contains(t, res.Out, `<condition attribute="statecode" operator="eq" value="0" />`)
	assert.Empty(t, res.ErrOut)
}

func TestTranslate_ReverseWithWarnings(t *testing.T) {
	dir := setupProject(t, map[string]string{
		"paged.xml": `<fetch count="5" page="2"><entity name="account"><attribute name="name" /></entity></fetch>`,
	})

	res := execute(NewTranslateCommand(), "", filepath.Join(dir, "paged.xml"))
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "FROM account")
	assert.Contains(t, res.ErrOut, "[PAGING]")
}

func TestTranslate_Errors(t *testing.T) {
	setupProject(t, nil)

	res := execute(NewTranslateCommand(), "SELECT FROM")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "1 of 1 translations failed")
	assert.Contains(t, res.ErrOut, "<stdin>:1:")
	assert.Contains(t, res.ErrOut, "[SYNTAX]")

	res = execute(NewTranslateCommand(), "", "--to", "cobol")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "invalid --to")

	res = execute(NewTranslateCommand(), "", "missing.sql")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "missing.sql")
}

func TestTranslate_OutDir(t *testing.T) {
	dir := setupProject(t, map[string]string{
		"a.sql": "SELECT name FROM account",
		"b.xml": `<fetch><entity name="contact"><attribute name="fullname" /></entity></fetch>`,
	})
	outDir := filepath.Join(dir, "build")

	res := execute(NewTranslateCommand(), "", "a.sql", "b.xml", "--out-dir", outDir, "-j", "2")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "a.sql: ok")
	assert.Contains(t, res.Out, "b.xml: ok")

	xml, err := os.ReadFile(filepath.Join(outDir, "a.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(xml), `<entity name="account">`)

	sql, err := os.ReadFile(filepath.Join(outDir, "b.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(sql), "FROM contact")

	res = execute(NewTranslateCommand(), "", "--out-dir", outDir)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "--out-dir needs file arguments")
}

func TestTranslate_JSON(t *testing.T) {
	setupProject(t, map[string]string{"fetchsql.yaml": "output: json\n"})

	res := execute(NewTranslateCommand(), "SELECT name FROM account")
	require.NoError(t, res.Err)

	var out []translation
	require.NoError(t, json.Unmarshal([]byte(res.Out), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "-", out[0].Path)
	assert.Equal(t, "fetchxml", out[0].Result.To)
}

func TestTranslate_CountStarFromConfig(t *testing.T) {
	setupProject(t, map[string]string{"fetchsql.yaml": "transpile:\n  count_star: primary-key\n"})

	res := execute(NewTranslateCommand(), "SELECT COUNT(*) FROM account")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, `name="accountid"`)
}

func TestValidate(t *testing.T) {
	setupProject(t, nil)

	res := execute(NewValidateCommand(), `<fetch><entity name="account"><attribute /></entity></fetch>`)
	require.Error(t, res.Err)
	assert.Equal(t, "validation failed", res.Err.Error())
	assert.Contains(t, res.Out, "Severity")
	assert.Contains(t, res.Out, "VALIDATION")

	res = execute(NewValidateCommand(), "SELECT name FROM account", "--language", "sql")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "<stdin> is valid sql")
}

func TestComplete(t *testing.T) {
	setupProject(t, map[string]string{"catalog.yaml": testutil.TestCatalog})

	res := execute(NewCompleteCommand(), "SELECT  FROM account", "--offset", "7")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "column-list (account)")
	assert.Contains(t, res.Out, "accountid")
	assert.Contains(t, res.Out, "DISTINCT")

	res = execute(NewCompleteCommand(), "SELECT name FROM co")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "contact")
	assert.NotContains(t, res.Out, "account")

	res = execute(NewCompleteCommand(), "SELECT", "--offset", "99")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "past the end")
}

func TestComplete_JSON(t *testing.T) {
	setupProject(t, map[string]string{
		"catalog.yaml":  testutil.TestCatalog,
		"fetchsql.yaml": "output: json\n",
	})

	res := execute(NewCompleteCommand(), `<fetch><entity name="account"><attribute name="`)
	require.NoError(t, res.Err)

	var out completeResult
	require.NoError(t, json.Unmarshal([]byte(res.Out), &out))
	assert.Equal(t, "attribute-name", out.Kind)
	assert.Equal(t, "account", out.Context.Entity)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "accountid", out.Items[0].Label)
}

func TestTokens(t *testing.T) {
	setupProject(t, map[string]string{"fetchsql.yaml": "output: json\n"})

	res := execute(NewTokensCommand(), "SELECT [first name]")
	require.NoError(t, res.Err)

	var out []tokenRow
	require.NoError(t, json.Unmarshal([]byte(res.Out), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "SELECT", out[0].Kind)
	assert.Equal(t, tokenRow{Kind: "IDENT", Text: "first name", Start: 7, End: 19, Line: 1, Column: 8}, out[1])
}

func TestFmt(t *testing.T) {
	dir := setupProject(t, map[string]string{"q.sql": "select name from account where statecode=0"})

	res := execute(NewFmtCommand(), "select name from account")
	require.NoError(t, res.Err)
	assert.Equal(t, "SELECT\n  name\nFROM account\n", res.Out)

	res = execute(NewFmtCommand(), "", "-w", "q.sql")
	require.NoError(t, res.Err)
	data, err := os.ReadFile(filepath.Join(dir, "q.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  name\nFROM account\nWHERE\n  statecode = 0\n", string(data))

	res = execute(NewFmtCommand(), "SELECT")
	require.Error(t, res.Err)

	res = execute(NewFmtCommand(), "SELECT 1", "-w")
	require.Error(t, res.Err)
}

func TestMetadata(t *testing.T) {
	setupProject(t, map[string]string{"catalog.yaml": testutil.TestCatalog})

	res := execute(NewMetadataCommand(), "", "entities")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "Entities (2 total)")
	assert.Contains(t, res.Out, "accountid")

	res = execute(NewMetadataCommand(), "", "attributes", "account")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "Account Name")

	res = execute(NewMetadataCommand(), "", "attributes", "lead")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), `"lead" is not in the catalog`)
}

func TestMetadata_NoCatalog(t *testing.T) {
	setupProject(t, nil)

	res := execute(NewMetadataCommand(), "", "entities")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "No metadata configured")
}

func TestVersion(t *testing.T) {
	setupProject(t, nil)

	res := execute(NewVersionCommand(BuildInfo{Version: "1.2.3", Commit: "abc", BuildDate: "today"}), "")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Out, "fetchsql v1.2.3")
	assert.Contains(t, res.Out, "commit abc")
}
