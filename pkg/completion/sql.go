package completion

import (
	"strings"

	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/parser"
	"github.com/leapstack-labs/fetchsql/pkg/token"
)

// DetectSQL returns the completion context at offset in SQL text.
//
// The cursor inside a string literal, a comment or a quoted identifier
// yields None, ahead of every other rule. Otherwise the tokens of the
// current statement (after the last ';' before the cursor) drive a clause
// state machine. A word touching the cursor is returned as Prefix and does
// not advance the machine.
func DetectSQL(text string, offset int) Context {
	if offset < 0 || offset > len(text) || core.CheckInputSize(text) != nil {
		return none
	}

	tokens := parser.Tokenize(text)
	var before []token.Token
	prefix := ""
	for _, tok := range tokens {
		if tok.Type == token.EOF || tok.Pos.Offset >= offset {
			break
		}
		if insideOpaque(text, tok, offset) {
			return none
		}
		if tok.Type == token.COMMENT {
			continue
		}
		if tok.End >= offset && isWord(text, tok) {
			prefix = text[tok.Pos.Offset:offset]
			break
		}
		before = append(before, tok)
	}

	// Current statement only.
	start := 0
	for i, tok := range before {
		if tok.Type == token.SEMICOLON {
			start = i + 1
		}
	}
	before = before[start:]
	statement := statementTokens(tokens, offset)

	scope := newMachine()
	scope.run(mergeQualified(statement))

	// alias.<cursor>
	if n := len(before); n >= 2 && before[n-1].Type == token.DOT && before[n-2].Type == token.IDENT {
		return qualifiedContext(before[:n-2], before[n-2].Literal, scope, prefix)
	}

	m := newMachine()
	m.run(mergeQualified(before))
	ctx := m.context(scope)
	if ctx.Kind == None {
		return none
	}
	ctx.Prefix = prefix
	return ctx
}

// insideOpaque reports whether offset lies inside a token whose content is
// not SQL: a string literal, a comment or a quoted identifier.
func insideOpaque(text string, tok token.Token, offset int) bool {
	switch tok.Type {
	case token.STRING:
		return tok.Contains(offset)
	case token.COMMENT:
		if strings.HasPrefix(text[tok.Pos.Offset:], "--") {
			// A line comment runs to the line break, so its end is inside.
			return offset > tok.Pos.Offset && offset <= tok.End
		}
		return tok.Contains(offset)
	case token.IDENT:
		if c := text[tok.Pos.Offset]; c == '"' || c == '[' {
			return tok.Contains(offset)
		}
	}
	return false
}

// isWord reports whether tok is a bare word that may be a partially typed
// identifier or keyword.
func isWord(text string, tok token.Token) bool {
	if tok.Type == token.IDENT {
		c := text[tok.Pos.Offset]
		return c != '"' && c != '['
	}
	return token.IsKeyword(tok.Type)
}

// statementTokens returns every token of the statement containing the
// cursor, including those after it, without comments.
func statementTokens(tokens []token.Token, offset int) []token.Token {
	var stmt []token.Token
	for _, tok := range tokens {
		if tok.Type == token.EOF {
			break
		}
		if tok.Type == token.COMMENT {
			continue
		}
		if tok.Type == token.SEMICOLON {
			if tok.Pos.Offset >= offset {
				break
			}
			stmt = stmt[:0]
			continue
		}
		stmt = append(stmt, tok)
	}
	return stmt
}

// mergeQualified collapses "a . b" and "a . *" into a single IDENT token so
// the state machine sees qualified names as one column reference.
func mergeQualified(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == token.IDENT && i+2 < len(tokens) && tokens[i+1].Type == token.DOT &&
			tokens[i+2].Is(token.IDENT, token.STAR) {
			tok.Literal = tok.Literal + "." + tokens[i+2].Literal
			tok.End = tokens[i+2].End
			i += 2
		}
		out = append(out, tok)
	}
	return out
}

// qualifiedContext handles a cursor right after "alias.". The alias must
// resolve against the statement's tables and the position must accept a
// column.
func qualifiedContext(before []token.Token, alias string, scope *machine, prefix string) Context {
	m := newMachine()
	m.run(mergeQualified(before))
	base := m.context(scope)

	clause := base.Clause
	switch base.Kind {
	case ColumnList:
		clause = "SELECT"
	case WhereAttribute:
		clause = "WHERE"
	case AttributeName:
	default:
		return none
	}

	entity := scope.resolve(alias)
	if entity == "" {
		return none
	}
	return Context{
		Kind:      AttributeName,
		Entity:    entity,
		Scope:     scope.scope,
		Clause:    clause,
		Qualifier: alias,
		Prefix:    prefix,
	}
}

// ---------- State machine ----------

type state int

const (
	stStart state = iota
	stDead

	stSelect
	stSelectTop
	stFrom
	stFromEntity
	stFromAs
	stJoinKeyword
	stJoin
	stJoinEntity
	stJoinAs
	stOn
	stOnLeft
	stOnEq
	stJoinDone

	stWhere
	stCondAttr
	stCondNot
	stCondOp
	stCondIs
	stCondIsNot
	stCondIn
	stCondInList
	stCondBetween
	stCondBetweenValue
	stCondBetweenAnd
	stCondDone

	stGroup
	stGroupBy
	stGroupByCol
	stOrder
	stOrderBy
	stOrderByCol
	stOrderDir

	stInsert
	stInsertInto
	stInsertEntity
	stInsertCols
	stInsertCol
	stInsertColsDone
	stValues

	stUpdate
	stUpdateEntity
	stSet
	stSetCol
	stSetEq
	stSetValue

	stDelete
	stDeleteFrom
	stDeleteEntity
)

// machine walks the tokens of one statement, tracking the clause state and
// the tables the statement names.
type machine struct {
	state   state
	depth   int // open parentheses in WHERE
	aliased bool
	entity  string // main entity
	scope   []ScopeEntry
}

func newMachine() *machine {
	return &machine{state: stStart}
}

func (m *machine) run(tokens []token.Token) {
	for _, tok := range tokens {
		if m.state == stDead {
			return
		}
		m.step(tok)
	}
}

func (m *machine) addTable(entity string) {
	if m.entity == "" {
		m.entity = entity
	}
	m.scope = append(m.scope, ScopeEntry{Entity: entity})
	m.aliased = false
}

func (m *machine) setAlias(alias string) {
	if n := len(m.scope); n > 0 {
		m.scope[n-1].Alias = alias
	}
	m.aliased = true
}

// resolve returns the entity an alias or entity name refers to.
func (m *machine) resolve(name string) string {
	for _, s := range m.scope {
		if strings.EqualFold(s.Alias, name) {
			return s.Entity
		}
	}
	for _, s := range m.scope {
		if s.Alias == "" && strings.EqualFold(s.Entity, name) {
			return s.Entity
		}
	}
	return ""
}

func isLiteral(tok token.Token) bool {
	return tok.Is(token.STRING, token.NUMBER, token.TRUE, token.FALSE, token.NULL)
}

//nolint:gocyclo // one case per state keeps the transition table readable
func (m *machine) step(tok token.Token) {
	t := tok.Type
	next := stDead

	switch m.state {
	case stStart:
		switch t {
		case token.SELECT:
			next = stSelect
		case token.INSERT:
			next = stInsert
		case token.UPDATE:
			next = stUpdate
		case token.DELETE:
			next = stDelete
		}

	// SELECT ... FROM
	case stSelect:
		switch t {
		case token.FROM:
			next = stFrom
		case token.TOP:
			next = stSelectTop
		default:
			next = stSelect
		}
	case stSelectTop:
		switch t {
		case token.LPAREN:
			next = stSelectTop
		case token.NUMBER:
			next = stSelect
		}
	case stFrom:
		if t == token.IDENT {
			m.addTable(tok.Literal)
			next = stFromEntity
		}
	case stFromEntity, stJoinDone:
		next = m.afterTable(tok)
	case stFromAs:
		if t == token.IDENT {
			m.setAlias(tok.Literal)
			next = stFromEntity
		}

	// Joins
	case stJoinKeyword:
		switch t {
		case token.OUTER:
			next = stJoinKeyword
		case token.JOIN:
			next = stJoin
		}
	case stJoin:
		if t == token.IDENT {
			m.addTable(tok.Literal)
			next = stJoinEntity
		}
	case stJoinEntity:
		switch {
		case t == token.IDENT && !m.aliased:
			m.setAlias(tok.Literal)
			next = stJoinEntity
		case t == token.AS && !m.aliased:
			next = stJoinAs
		case t == token.ON:
			next = stOn
		}
	case stJoinAs:
		if t == token.IDENT {
			m.setAlias(tok.Literal)
			next = stJoinEntity
		}
	case stOn:
		if t == token.IDENT {
			next = stOnLeft
		}
	case stOnLeft:
		if t == token.EQ {
			next = stOnEq
		}
	case stOnEq:
		if t == token.IDENT {
			next = stJoinDone
		}

	// WHERE
	case stWhere:
		switch t {
		case token.LPAREN:
			m.depth++
			next = stWhere
		case token.IDENT:
			next = stCondAttr
		}
	case stCondAttr:
		switch t {
		case token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE, token.LIKE:
			next = stCondOp
		case token.IS:
			next = stCondIs
		case token.NOT:
			next = stCondNot
		case token.IN:
			next = stCondIn
		case token.BETWEEN:
			next = stCondBetween
		}
	case stCondNot:
		switch t {
		case token.LIKE:
			next = stCondOp
		case token.IN:
			next = stCondIn
		case token.BETWEEN:
			next = stCondBetween
		}
	case stCondOp, stCondBetween, stCondBetweenAnd:
		switch {
		case t == token.MINUS || t == token.PLUS:
			next = m.state
		case isLiteral(tok) && m.state == stCondBetween:
			next = stCondBetweenValue
		case isLiteral(tok):
			next = stCondDone
		}
	case stCondBetweenValue:
		if t == token.AND {
			next = stCondBetweenAnd
		}
	case stCondIs:
		switch t {
		case token.NOT:
			next = stCondIsNot
		case token.NULL:
			next = stCondDone
		}
	case stCondIsNot:
		if t == token.NULL {
			next = stCondDone
		}
	case stCondIn:
		if t == token.LPAREN {
			next = stCondInList
		}
	case stCondInList:
		switch {
		case t == token.RPAREN:
			next = stCondDone
		case isLiteral(tok), t == token.COMMA, t == token.MINUS, t == token.PLUS:
			next = stCondInList
		}
	case stCondDone:
		switch t {
		case token.AND, token.OR:
			next = stWhere
		case token.RPAREN:
			if m.depth > 0 {
				m.depth--
				next = stCondDone
			}
		case token.GROUP:
			next = stGroup
		case token.ORDER:
			next = stOrder
		}

	// GROUP BY / ORDER BY
	case stGroup:
		if t == token.BY {
			next = stGroupBy
		}
	case stGroupBy:
		if t == token.IDENT {
			next = stGroupByCol
		}
	case stGroupByCol:
		switch t {
		case token.COMMA:
			next = stGroupBy
		case token.ORDER:
			next = stOrder
		}
	case stOrder:
		if t == token.BY {
			next = stOrderBy
		}
	case stOrderBy:
		if t == token.IDENT {
			next = stOrderByCol
		}
	case stOrderByCol:
		switch t {
		case token.ASC, token.DESC:
			next = stOrderDir
		case token.COMMA:
			next = stOrderBy
		}
	case stOrderDir:
		if t == token.COMMA {
			next = stOrderBy
		}

	// INSERT
	case stInsert:
		if t == token.INTO {
			next = stInsertInto
		}
	case stInsertInto:
		if t == token.IDENT {
			m.addTable(tok.Literal)
			next = stInsertEntity
		}
	case stInsertEntity:
		switch t {
		case token.LPAREN:
			next = stInsertCols
		case token.VALUES:
			next = stValues
		}
	case stInsertCols:
		if t == token.IDENT {
			next = stInsertCol
		}
	case stInsertCol:
		switch t {
		case token.COMMA:
			next = stInsertCols
		case token.RPAREN:
			next = stInsertColsDone
		}
	case stInsertColsDone:
		if t == token.VALUES {
			next = stValues
		}
	case stValues:
		next = stValues

	// UPDATE
	case stUpdate:
		if t == token.IDENT {
			m.addTable(tok.Literal)
			next = stUpdateEntity
		}
	case stUpdateEntity:
		if t == token.SET {
			next = stSet
		}
	case stSet:
		if t == token.IDENT {
			next = stSetCol
		}
	case stSetCol:
		if t == token.EQ {
			next = stSetEq
		}
	case stSetEq:
		switch {
		case t == token.MINUS || t == token.PLUS:
			next = stSetEq
		case isLiteral(tok):
			next = stSetValue
		}
	case stSetValue:
		switch t {
		case token.COMMA:
			next = stSet
		case token.WHERE:
			next = stWhere
		}

	// DELETE
	case stDelete:
		if t == token.FROM {
			next = stDeleteFrom
		}
	case stDeleteFrom:
		if t == token.IDENT {
			m.addTable(tok.Literal)
			next = stDeleteEntity
		}
	case stDeleteEntity:
		if t == token.WHERE {
			next = stWhere
		}
	}

	m.state = next
}

// afterTable handles the tokens that may follow FROM entity [alias] or a
// complete join.
func (m *machine) afterTable(tok token.Token) state {
	fromEntity := m.state == stFromEntity
	switch tok.Type {
	case token.IDENT:
		if fromEntity && !m.aliased {
			m.setAlias(tok.Literal)
			return stFromEntity
		}
	case token.AS:
		if fromEntity && !m.aliased {
			return stFromAs
		}
	case token.WHERE:
		return stWhere
	case token.JOIN:
		return stJoin
	case token.LEFT, token.INNER:
		return stJoinKeyword
	case token.GROUP:
		return stGroup
	case token.ORDER:
		return stOrder
	}
	return stDead
}

// context maps the current state to a completion context. scope is a
// machine run over the whole statement, so tables named after the cursor
// are known.
func (m *machine) context(scope *machine) Context {
	entity := scope.entity
	tables := scope.scope
	keywords := func(list []string) Context {
		return Context{Kind: ClauseKeyword, Keywords: clone(list)}
	}
	attributes := func(clause string) Context {
		return Context{Kind: AttributeName, Entity: entity, Scope: tables, Clause: clause}
	}

	switch m.state {
	case stStart:
		return Context{Kind: StatementStart, Keywords: clone(statementKeywords)}
	case stSelect:
		return Context{Kind: ColumnList, Keywords: clone(columnListKeywords), Entity: entity, Scope: tables}
	case stFrom, stJoin, stInsertInto, stUpdate, stDeleteFrom:
		return Context{Kind: EntityName}
	case stFromEntity:
		return keywords(fromEntityKeywords)
	case stJoinKeyword:
		return keywords(joinKeywords)
	case stJoinEntity:
		return keywords(joinEntityKeywords)
	case stOn, stOnEq:
		return attributes("ON")
	case stJoinDone:
		return keywords(joinedKeywords)
	case stWhere:
		return Context{Kind: WhereAttribute, Entity: entity, Scope: tables}
	case stCondDone:
		return keywords(conditionKeywords)
	case stGroup, stOrder:
		return keywords(byKeywords)
	case stGroupBy:
		return attributes("GROUP BY")
	case stGroupByCol:
		return keywords(groupedKeywords)
	case stOrderBy:
		return attributes("ORDER BY")
	case stOrderByCol:
		return Context{Kind: OrderDirection, Keywords: clone(directionKeywords)}
	case stOrderDir:
		return keywords(orderedKeywords)
	case stInsert:
		return keywords(intoKeywords)
	case stInsertEntity:
		return keywords(insertEntityKeyword)
	case stInsertCols:
		return attributes("INSERT")
	case stInsertColsDone:
		return keywords(insertColsKeywords)
	case stUpdateEntity:
		return keywords(updateEntityKeyword)
	case stSet:
		return attributes("SET")
	case stSetValue:
		return keywords(assignmentKeywords)
	case stDelete:
		return keywords(deleteKeywords)
	case stDeleteEntity:
		return keywords(deleteEntityKeyword)
	}
	return none
}
