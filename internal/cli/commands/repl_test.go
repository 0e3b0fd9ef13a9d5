package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fetchsql/internal/cli/testutil"
	"github.com/leapstack-labs/fetchsql/internal/metadata"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
)

func newTestSession(t *testing.T) (*replSession, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cat, err := metadata.ParseCatalog([]byte(testutil.TestCatalog))
	require.NoError(t, err)

	tr := testutil.NewTestRendererText()
	return newREPLSession(context.Background(), tr.Renderer, cat, nil, completion.Auto), tr.Out, tr.ErrOut
}

func TestREPLSession_MultiLineSQL(t *testing.T) {
	s, out, _ := newTestSession(t)

	assert.Equal(t, "fetchsql(auto)> ", s.prompt())
	assert.False(t, s.feed("SELECT name"))
	assert.Equal(t, "    ...> ", s.prompt())
	assert.Empty(t, out.String())

	assert.False(t, s.feed("FROM account;"))
	assert.Contains(t, out.String(), `<entity name="account">`)
	assert.Equal(t, "fetchsql(auto)> ", s.prompt())
}

func TestREPLSession_FetchXML(t *testing.T) {
	s, out, errOut := newTestSession(t)

	s.feed(`<fetch count="3">`)
	s.feed(`  <entity name="contact"><attribute name="fullname" /></entity>`)
	assert.Empty(t, out.String())
	s.feed(`</fetch>`)

	assert.Contains(t, out.String(), "FROM contact")
	assert.Contains(t, errOut.String(), "[PAGING]")
}

func TestREPLSession_BlankLineFlushes(t *testing.T) {
	s, out, _ := newTestSession(t)

	s.feed("SELECT name FROM account")
	assert.Empty(t, out.String())
	s.feed("")
	assert.Contains(t, out.String(), "<fetch>")
}

func TestREPLSession_DotCommands(t *testing.T) {
	s, out, errOut := newTestSession(t)

	assert.False(t, s.feed(".mode fetchxml"))
	assert.Equal(t, completion.FetchXML, s.lang)
	assert.Equal(t, "fetchsql(fetchxml)> ", s.prompt())

	s.feed(".mode nonsense")
	assert.Contains(t, errOut.String(), "Usage: .mode")

	out.Reset()
	s.feed(".entities")
	assert.Equal(t, "account\ncontact\n", out.String())

	out.Reset()
	s.feed(".attributes account")
	assert.Equal(t, "accountid\nname\n", out.String())

	s.feed(".bogus")
	assert.Contains(t, errOut.String(), "Unknown command: .bogus")

	out.Reset()
	s.feed(".help")
	assert.Contains(t, out.String(), ".attributes <entity>")

	assert.True(t, s.feed(".quit"))
	assert.True(t, s.feed(".exit"))
}

func TestREPLSession_Reset(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.feed("SELECT name")
	s.reset()
	assert.Equal(t, "fetchsql(auto)> ", s.prompt())
}

func labels(words [][]rune) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, string(w))
	}
	return out
}

func TestREPLCompleter(t *testing.T) {
	s, _, _ := newTestSession(t)
	c := &replCompleter{session: s}

	line := []rune("SELECT * FROM ac")
	got, n := c.Do(line, len(line))
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"count"}, labels(got))

	line = []rune("sel")
	got, n = c.Do(line, len(line))
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"ECT"}, labels(got))

	line = []rune(".at")
	got, n = c.Do(line, len(line))
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"tributes"}, labels(got))

	// Context spans the pending lines.
	s.feed("SELECT name")
	line = []rune("FROM account WHERE na")
	got, _ = c.Do(line, len(line))
	assert.Equal(t, []string{"me"}, labels(got))
}

func TestCompleteWords(t *testing.T) {
	got, n := completeWords([]string{"Alpha", "alps", "beta"}, "AL")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"pha", "ps"}, labels(got))

	got, n = completeWords([]string{"x"}, "")
	assert.Equal(t, 0, n)
	assert.Equal(t, []string{"x"}, labels(got))
}
