package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/fetchsql/internal/metadata"
	"github.com/leapstack-labs/fetchsql/internal/testutil"
)

const testCatalog = `entities:
  - name: account
    primary_key: accountid
    attributes:
      - name: name
        type: string
      - name: revenue
        type: money
  - name: contact
    primary_key: contactid
    attributes:
      - name: fullname
        type: string
`

// session scripts the client side of a conversation.
type session struct {
	in     bytes.Buffer
	nextID int
}

func (c *session) frame(msg map[string]any) {
	msg["jsonrpc"] = "2.0"
	body, _ := json.Marshal(msg)
	fmt.Fprintf(&c.in, "Content-Length: %d\r\n\r\n%s", len(body), body)
}

func (c *session) request(method string, params any) int {
	c.nextID++
	c.frame(map[string]any{"id": c.nextID, "method": method, "params": params})
	return c.nextID
}

func (c *session) notify(method string, params any) {
	c.frame(map[string]any{"method": method, "params": params})
}

func (c *session) open(uri, languageID, text string) {
	c.notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": uri, "languageId": languageID, "version": 1, "text": text},
	})
}

// run executes the script and returns the server's messages.
func (c *session) run(t *testing.T, opts Options) ([]JSONRPCMessage, error) {
	t.Helper()
	var out bytes.Buffer
	srv := NewServerWithLogger(&c.in, &out, opts, testutil.NewTestLogger(t))
	err := srv.Run(context.Background())
	return readFrames(t, &out), err
}

func readFrames(t *testing.T, r io.Reader) []JSONRPCMessage {
	t.Helper()
	br := bufio.NewReader(r)
	var msgs []JSONRPCMessage
	for {
		header, err := br.ReadString('\n')
		if err == io.EOF {
			return msgs
		}
		require.NoError(t, err)
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "Content-Length:")))
		require.NoError(t, err)
		_, err = br.ReadString('\n')
		require.NoError(t, err)

		body := make([]byte, n)
		_, err = io.ReadFull(br, body)
		require.NoError(t, err)

		var msg JSONRPCMessage
		require.NoError(t, json.Unmarshal(body, &msg))
		msgs = append(msgs, msg)
	}
}

func response(t *testing.T, msgs []JSONRPCMessage, id int) JSONRPCMessage {
	t.Helper()
	for _, m := range msgs {
		if m.ID != nil && string(*m.ID) == strconv.Itoa(id) {
			return m
		}
	}
	t.Fatalf("no response with id %d", id)
	return JSONRPCMessage{}
}

func notifications(msgs []JSONRPCMessage, method string) []JSONRPCMessage {
	var out []JSONRPCMessage
	for _, m := range msgs {
		if m.ID == nil && m.Method == method {
			out = append(out, m)
		}
	}
	return out
}

func testOptions(t *testing.T) Options {
	t.Helper()
	cat, err := metadata.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	return Options{Metadata: cat, Version: "test"}
}

func TestServer_Lifecycle(t *testing.T) {
	var c session
	initID := c.request("initialize", map[string]any{"processId": 1, "rootUri": "file:///work"})
	c.notify("initialized", map[string]any{})
	shutdownID := c.request("shutdown", nil)
	c.notify("exit", nil)

	msgs, err := c.run(t, testOptions(t))
	require.NoError(t, err)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(response(t, msgs, initID).Result, &result))
	require.NotNil(t, result.Capabilities.CompletionProvider)
	assert.Contains(t, result.Capabilities.CompletionProvider.TriggerCharacters, ".")
	assert.Equal(t, TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync.Change)
	assert.True(t, result.Capabilities.DocumentFormattingProvider)
	assert.Equal(t, "fetchsql", result.ServerInfo.Name)

	shutdown := response(t, msgs, shutdownID)
	assert.Nil(t, shutdown.Error)
	assert.Empty(t, notifications(msgs, "window/showMessage"))
}

func TestServer_ExitWithoutShutdown(t *testing.T) {
	var c session
	c.notify("exit", nil)

	_, err := c.run(t, Options{})
	assert.ErrorIs(t, err, ErrExitWithoutShutdown)
}

func TestServer_NoMetadataNotice(t *testing.T) {
	var c session
	c.notify("initialized", map[string]any{})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)
	require.Len(t, notifications(msgs, "window/showMessage"), 1)
}

func TestServer_RequestsAfterShutdown(t *testing.T) {
	var c session
	c.request("shutdown", nil)
	id := c.request("textDocument/completion", map[string]any{})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)
	resp := response(t, msgs, id)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestServer_MethodNotFound(t *testing.T) {
	var c session
	id := c.request("textDocument/hover", map[string]any{})
	c.notify("$/cancelRequest", map[string]any{"id": 1})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	resp := response(t, msgs, id)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestServer_MalformedMessage(t *testing.T) {
	var c session
	fmt.Fprintf(&c.in, "Content-Length: 5\r\n\r\n{oops")
	id := c.request("shutdown", nil)

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, codeParseError, msgs[0].Error.Code)
	assert.Nil(t, response(t, msgs, id).Error)
}

func TestServer_OversizedMessageKeepsSession(t *testing.T) {
	var c session
	c.notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": "file:///big.sql", "languageId": "sql", "version": 1,
			"text": strings.Repeat("a", maxMessageSize)},
	})
	id := c.request("shutdown", nil)
	c.notify("exit", nil)

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Nil(t, response(t, msgs, id).Error)
}

func TestServer_InvalidParams(t *testing.T) {
	var c session
	id := c.request("textDocument/completion", "not an object")

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)
	resp := response(t, msgs, id)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestServer_Diagnostics(t *testing.T) {
	var c session
	c.open("file:///q.sql", "sql", "SELECT name\nFROM")
	c.open("file:///q.xml", "xml", `<fetch><entity name="account"><bogus /></entity></fetch>`)
	c.open("file:///ok.sql", "sql", "SELECT name FROM account")
	c.notify("textDocument/didClose", map[string]any{"textDocument": map[string]any{"uri": "file:///ok.sql"}})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)

	published := notifications(msgs, "textDocument/publishDiagnostics")
	require.Len(t, published, 4)

	decode := func(m JSONRPCMessage) PublishDiagnosticsParams {
		var p PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(m.Params, &p))
		return p
	}

	sqlDiags := decode(published[0])
	assert.Equal(t, "file:///q.sql", sqlDiags.URI)
	require.Len(t, sqlDiags.Diagnostics, 1)
	assert.Equal(t, "SYNTAX", sqlDiags.Diagnostics[0].Code)
	assert.Equal(t, DiagnosticSeverityError, sqlDiags.Diagnostics[0].Severity)
	assert.Equal(t, uint32(1), sqlDiags.Diagnostics[0].Range.Start.Line)

	xmlDiags := decode(published[1])
	require.NotEmpty(t, xmlDiags.Diagnostics)
	assert.Equal(t, "VALIDATION", xmlDiags.Diagnostics[0].Code)
	assert.Equal(t, "fetchsql", xmlDiags.Diagnostics[0].Source)

	ok := decode(published[2])
	assert.NotNil(t, ok.Diagnostics)
	assert.Empty(t, ok.Diagnostics)

	closed := decode(published[3])
	assert.Equal(t, "file:///ok.sql", closed.URI)
	assert.Empty(t, closed.Diagnostics)
}

func TestServer_DidChangeRepublishes(t *testing.T) {
	var c session
	c.open("file:///q.sql", "sql", "SELECT")
	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": "file:///q.sql", "version": 2},
		"contentChanges": []map[string]any{{"text": "SELECT name FROM account"}},
	})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)

	published := notifications(msgs, "textDocument/publishDiagnostics")
	require.Len(t, published, 2)
	var p PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(published[1].Params, &p))
	assert.Empty(t, p.Diagnostics)
}

func TestServer_Completion(t *testing.T) {
	var c session
	c.open("file:///q.sql", "sql", "SELECT  FROM account")
	id := c.request("textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": "file:///q.sql"},
		"position":     map[string]any{"line": 0, "character": 7},
	})
	prefixID := c.request("textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": "file:///q.sql"},
		"position":     map[string]any{"line": 0, "character": 2},
	})

	msgs, err := c.run(t, testOptions(t))
	require.NoError(t, err)

	var list CompletionList
	require.NoError(t, json.Unmarshal(response(t, msgs, id).Result, &list))

	labels := map[string]CompletionItem{}
	for _, it := range list.Items {
		labels[it.Label] = it
	}
	require.Contains(t, labels, "FROM")
	require.Contains(t, labels, "name")
	assert.Equal(t, CompletionItemKindKeyword, labels["FROM"].Kind)
	assert.Equal(t, CompletionItemKindField, labels["name"].Kind)
	assert.Equal(t, "0000", list.Items[0].SortText)

	edit := labels["name"].TextEdit
	require.NotNil(t, edit)
	assert.Equal(t, Position{Line: 0, Character: 7}, edit.Range.Start)
	assert.Equal(t, Position{Line: 0, Character: 7}, edit.Range.End)

	// "SE|LECT": statement keywords replace the typed prefix.
	require.NoError(t, json.Unmarshal(response(t, msgs, prefixID).Result, &list))
	require.NotEmpty(t, list.Items)
	assert.Equal(t, "SELECT", list.Items[0].Label)
	assert.Equal(t, Position{Line: 0, Character: 0}, list.Items[0].TextEdit.Range.Start)
}

func TestServer_CompletionFetchXML(t *testing.T) {
	var c session
	text := `<fetch><entity name="account"><attribute name="" /></entity></fetch>`
	c.open("file:///q.xml", "xml", text)
	id := c.request("textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": "file:///q.xml"},
		"position":     map[string]any{"line": 0, "character": strings.Index(text, `""`) + 1},
	})

	msgs, err := c.run(t, testOptions(t))
	require.NoError(t, err)

	var list CompletionList
	require.NoError(t, json.Unmarshal(response(t, msgs, id).Result, &list))
	var labels []string
	for _, it := range list.Items {
		labels = append(labels, it.Label)
	}
	assert.Equal(t, []string{"name", "revenue"}, labels)
}

func TestServer_CompletionUnknownDocument(t *testing.T) {
	var c session
	id := c.request("textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": "file:///missing.sql"},
		"position":     map[string]any{"line": 0, "character": 0},
	})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)

	var list CompletionList
	require.NoError(t, json.Unmarshal(response(t, msgs, id).Result, &list))
	assert.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
}

func TestServer_Preview(t *testing.T) {
	var c session
	c.open("file:///q.sql", "sql", "SELECT name FROM account")
	c.open("file:///q.xml", "xml", `<fetch count="5"><entity name="account"><attribute name="name" /></entity></fetch>`)
	sqlID := c.request(MethodPreview, map[string]any{"textDocument": map[string]any{"uri": "file:///q.sql"}})
	xmlID := c.request(MethodPreview, map[string]any{"textDocument": map[string]any{"uri": "file:///q.xml"}})
	missingID := c.request(MethodPreview, map[string]any{"textDocument": map[string]any{"uri": "file:///nope.sql"}})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)

	var res PreviewResult
	require.NoError(t, json.Unmarshal(response(t, msgs, sqlID).Result, &res))
	assert.Equal(t, "sql", res.From)
	assert.Equal(t, "fetchxml", res.To)
	assert.Contains(t, res.Output, `<attribute name="name" />`)
	assert.Empty(t, res.Diagnostics)

	require.NoError(t, json.Unmarshal(response(t, msgs, xmlID).Result, &res))
	assert.Equal(t, "sql", res.To)
	assert.Equal(t, "SELECT\n  name\nFROM account\n", res.Output)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "PAGING", res.Diagnostics[0].Code)
	assert.Equal(t, DiagnosticSeverityWarning, res.Diagnostics[0].Severity)

	missing := response(t, msgs, missingID)
	require.NotNil(t, missing.Error)
	assert.Equal(t, codeInvalidParams, missing.Error.Code)
}

func TestServer_CodeActionsAndFormatting(t *testing.T) {
	var c session
	c.open("file:///q.sql", "sql", "select name from account")
	c.open("file:///bad.sql", "sql", "select")
	actionID := c.request("textDocument/codeAction", map[string]any{
		"textDocument": map[string]any{"uri": "file:///q.sql"},
		"range":        map[string]any{"start": map[string]any{"line": 0, "character": 0}, "end": map[string]any{"line": 0, "character": 0}},
		"context":      map[string]any{"diagnostics": []any{}},
	})
	quickfixID := c.request("textDocument/codeAction", map[string]any{
		"textDocument": map[string]any{"uri": "file:///q.sql"},
		"context":      map[string]any{"diagnostics": []any{}, "only": []string{"quickfix"}},
	})
	badID := c.request("textDocument/codeAction", map[string]any{
		"textDocument": map[string]any{"uri": "file:///bad.sql"},
		"context":      map[string]any{"diagnostics": []any{}},
	})
	formatID := c.request("textDocument/formatting", map[string]any{
		"textDocument": map[string]any{"uri": "file:///q.sql"},
	})

	msgs, err := c.run(t, Options{})
	require.NoError(t, err)

	var actions []CodeAction
	require.NoError(t, json.Unmarshal(response(t, msgs, actionID).Result, &actions))
	require.Len(t, actions, 2)
	assert.Equal(t, "Convert to FetchXML", actions[0].Title)
	edits := actions[0].Edit.Changes["file:///q.sql"]
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].NewText, "<fetch>")
	assert.Equal(t, Position{Line: 0, Character: 24}, edits[0].Range.End)
	assert.Equal(t, "Format SQL", actions[1].Title)

	require.NoError(t, json.Unmarshal(response(t, msgs, quickfixID).Result, &actions))
	assert.Empty(t, actions)

	require.NoError(t, json.Unmarshal(response(t, msgs, badID).Result, &actions))
	assert.Empty(t, actions)

	var formatted []TextEdit
	require.NoError(t, json.Unmarshal(response(t, msgs, formatID).Result, &formatted))
	require.Len(t, formatted, 1)
	assert.Equal(t, "SELECT\n  name\nFROM account\n", formatted[0].NewText)
}
