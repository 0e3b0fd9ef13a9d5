package commands

import (
	"strconv"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/pkg/parser"
	"github.com/leapstack-labs/fetchsql/pkg/token"
	"github.com/spf13/cobra"
)

// tokenRow is the JSON shape of one token.
type tokenRow struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [file]",
		Short: "Dump the SQL tokens of a document",
		Long: `Print every token the SQL lexer produces: its kind, literal text and
byte range. The lexer never fails; unknown characters appear as ILLEGAL
tokens.`,
		Example: `  fetchsql tokens query.sql
  echo "SELECT [first name] FROM contact" | fetchsql tokens -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, sourceArg(args))
		},
	}
}

func runTokens(cmd *cobra.Command, path string) error {
	cmdCtx, err := NewCommandContextWithoutMetadata(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	text, err := readSource(cmd, path)
	if err != nil {
		return err
	}

	var tokens []tokenRow
	for _, tok := range parser.Tokenize(text) {
		if tok.Type == token.EOF {
			break
		}
		tokens = append(tokens, tokenRow{
			Kind:   tok.Type.String(),
			Text:   tok.Literal,
			Start:  tok.Pos.Offset,
			End:    tok.End,
			Line:   tok.Pos.Line,
			Column: tok.Pos.Column,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		if tokens == nil {
			tokens = []tokenRow{}
		}
		return r.JSON(tokens)
	}

	rows := make([][]string, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, []string{
			t.Kind,
			t.Text,
			strconv.Itoa(t.Start),
			strconv.Itoa(t.End),
			strconv.Itoa(t.Line) + ":" + strconv.Itoa(t.Column),
		})
	}
	r.Table([]string{"Kind", "Text", "Start", "End", "Position"}, rows)
	return nil
}
