package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/internal/suggest"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/transpile"
	"github.com/spf13/cobra"
)

// REPLOptions holds options for the repl command.
type REPLOptions struct {
	Mode string
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	opts := &REPLOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL ⇄ FetchXML shell",
		Long: `Start an interactive shell that translates each document you enter.

SQL input ends with a semicolon, FetchXML input with </fetch>; an empty
line translates whatever has been typed. Tab completes keywords, entity
and attribute names and FetchXML elements at the cursor.`,
		Example: `  # Start in auto mode (SQL unless the input starts with '<')
  fetchsql repl

  # Start in FetchXML mode
  fetchsql repl --mode fetchxml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "auto", "Input language (auto|sql|fetchxml)")

	return cmd
}

func runREPL(cmd *cobra.Command, opts *REPLOptions) error {
	lang, ok := completion.ParseLanguage(opts.Mode)
	if !ok {
		return fmt.Errorf("invalid --mode %q: want auto, sql or fetchxml", opts.Mode)
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session := newREPLSession(cmd.Context(), cmdCtx.Renderer, cmdCtx.Metadata, cmdCtx.TranspileOpts, lang)

	// Configure readline
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          session.prompt(),
		HistoryFile:     historyFile(),
		AutoComplete:    &replCompleter{session: session},
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	// Print welcome message
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "fetchsql REPL")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	// REPL loop
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.reset()
			rl.SetPrompt(session.prompt())
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if quit := session.feed(line); quit {
			break
		}
		rl.SetPrompt(session.prompt())
	}

	return nil
}

// historyFile returns the REPL history path, or "" to keep no history.
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "fetchsql")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

// replSession accumulates input lines into documents and translates them.
type replSession struct {
	ctx      context.Context
	r        *output.Renderer
	metadata core.MetadataProvider
	opts     []transpile.Option
	lang     completion.Language
	buf      strings.Builder
}

func newREPLSession(ctx context.Context, r *output.Renderer, provider core.MetadataProvider, opts []transpile.Option, lang completion.Language) *replSession {
	return &replSession{ctx: ctx, r: r, metadata: provider, opts: opts, lang: lang}
}

func (s *replSession) prompt() string {
	if s.buf.Len() > 0 {
		return "    ...> "
	}
	return fmt.Sprintf("fetchsql(%s)> ", s.lang)
}

// reset drops a partially typed document.
func (s *replSession) reset() {
	s.buf.Reset()
}

// feed handles one line of input and reports whether to quit.
func (s *replSession) feed(line string) bool {
	trimmed := strings.TrimSpace(line)

	if s.buf.Len() == 0 {
		if trimmed == "" {
			return false
		}
		// Handle dot-commands
		if strings.HasPrefix(trimmed, ".") {
			return s.dot(trimmed)
		}
	}

	if trimmed != "" {
		s.buf.WriteString(line)
		s.buf.WriteString("\n")
		if !s.ready(trimmed) {
			return false
		}
	}

	text := s.buf.String()
	s.buf.Reset()
	s.translate(text)
	return false
}

// ready reports whether the buffered document is complete after last.
func (s *replSession) ready(last string) bool {
	if completion.Resolve(s.lang, s.buf.String()) == completion.FetchXML {
		return strings.HasSuffix(last, "</fetch>")
	}
	return strings.HasSuffix(last, ";")
}

func (s *replSession) translate(text string) {
	res, err := convert.Translate(text, s.lang, s.opts...)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	printDiagnostics(s.r, "input", res.Diagnostics)
	if res.Output != "" {
		s.r.Println(strings.TrimRight(res.Output, "\n"))
	}
	s.r.Println()
}

// dotCommands are completed at the start of a line.
var dotCommands = []string{".help", ".mode", ".entities", ".attributes", ".clear", ".quit", ".exit"}

func (s *replSession) dot(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".mode":
		if len(parts) < 2 {
			s.r.Println("mode: " + s.lang.String())
			return false
		}
		lang, ok := completion.ParseLanguage(parts[1])
		if !ok {
			s.r.Error("Usage: .mode sql|fetchxml|auto")
			return false
		}
		s.lang = lang
		s.r.Println("mode: " + s.lang.String())

	case ".entities":
		s.listEntities()

	case ".attributes":
		if len(parts) < 2 {
			s.r.Error("Usage: .attributes <entity>")
			return false
		}
		s.listAttributes(parts[1])

	case ".clear":
		s.r.Printf("\033[H\033[2J")

	default:
		s.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (s *replSession) listEntities() {
	if s.metadata == nil {
		s.r.Muted("No metadata configured")
		return
	}
	entities, err := s.metadata.ListEntities(s.ctx)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	for _, e := range entities {
		s.r.Println(e.LogicalName)
	}
}

func (s *replSession) listAttributes(entity string) {
	if s.metadata == nil {
		s.r.Muted("No metadata configured")
		return
	}
	attrs, err := s.metadata.ListAttributes(s.ctx, entity)
	if err != nil {
		s.r.Error(err.Error())
		return
	}
	for _, a := range attrs {
		s.r.Println(a.LogicalName)
	}
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                 Show this help message
  .mode [sql|fetchxml]  Show or set the input language (auto detects)
  .entities             List catalog entities
  .attributes <entity>  List the attributes of an entity
  .clear                Clear the screen
  .quit / .exit         Exit the REPL

Tips:
  - SQL ends with a semicolon (;), FetchXML with </fetch>
  - An empty line translates the pending input
  - Tab completion follows the cursor context
`
	_, _ = fmt.Fprintln(w, help)
}

// replCompleter completes from the detected context of the pending
// document plus the current line.
type replCompleter struct {
	session *replSession
}

// Do implements readline.AutoCompleter.
func (c *replCompleter) Do(line []rune, pos int) ([][]rune, int) {
	s := c.session
	typed := string(line[:pos])

	if s.buf.Len() == 0 && strings.HasPrefix(strings.TrimSpace(typed), ".") {
		return completeWords(dotCommands, strings.TrimSpace(typed))
	}

	text := s.buf.String() + typed
	ctx := completion.DetectAs(s.lang, text, len(text))
	items, err := suggest.Suggest(s.ctx, s.metadata, ctx)
	if err != nil {
		return nil, 0
	}
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	return completeWords(labels, ctx.Prefix)
}

// completeWords returns the remainders of the words starting with prefix
// (case-insensitive) and the prefix length.
func completeWords(words []string, prefix string) ([][]rune, int) {
	n := len([]rune(prefix))
	var out [][]rune
	for _, w := range words {
		r := []rune(w)
		if len(r) < n || !strings.EqualFold(string(r[:n]), prefix) {
			continue
		}
		out = append(out, r[n:])
	}
	return out, n
}
