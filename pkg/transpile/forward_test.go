package transpile

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/fetchsql/pkg/fetchxml"
	"github.com/leapstack-labs/fetchsql/pkg/parser"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, sql string) parser.Statement {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err, sql)
	return stmt
}

func TestToFetchXML_Golden(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{
			name: "forward_select",
			sql:  "SELECT name, revenue FROM account WHERE statecode = 0 ORDER BY name",
		},
		{
			name: "forward_join",
			sql: `SELECT a.name, c.fullname
				FROM account a
				LEFT JOIN contact c ON c.parentcustomerid = a.accountid
				WHERE c.statecode = 0 AND a.revenue > 1000
				ORDER BY c.fullname DESC`,
		},
		{
			name: "forward_nested_join",
			sql: `SELECT a.name FROM account a
				JOIN contact c ON c.parentcustomerid = a.accountid
				JOIN systemuser u ON u.systemuserid = c.ownerid`,
		},
		{
			name: "forward_aggregate",
			sql: `SELECT statecode, COUNT(*), SUM(revenue) AS total, COUNT(DISTINCT ownerid)
				FROM account
				GROUP BY statecode, industrycode
				ORDER BY total DESC`,
		},
		{
			name: "forward_values",
			sql: `SELECT DISTINCT TOP 5 name FROM account
				WHERE industrycode IN (1, 2) AND createdon BETWEEN '2024-01-01' AND '2024-12-31'`,
		},
		{
			name: "forward_delete",
			sql:  "DELETE FROM contact WHERE statecode = 1 OR (lastname LIKE 'Sm%' AND firstname IS NULL)",
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ToFetchXML(mustParse(t, tt.sql))
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(out))

			errs, err := fetchxml.Validate(out)
			require.NoError(t, err)
			assert.Empty(t, errs, "generated FetchXML must validate")
		})
	}
}

func TestToFetchXML_Operators(t *testing.T) {
	tests := []struct {
		where    string
		operator string
		value    string
		values   []string
	}{
		{where: "x = 1", operator: "eq", value: "1"},
		{where: "x != 1", operator: "ne", value: "1"},
		{where: "x <> 1", operator: "ne", value: "1"},
		{where: "x > 1", operator: "gt", value: "1"},
		{where: "x >= 1", operator: "ge", value: "1"},
		{where: "x < 1", operator: "lt", value: "1"},
		{where: "x <= 1", operator: "le", value: "1"},
		{where: "x LIKE 'a%'", operator: "like", value: "a%"},
		{where: "x NOT LIKE 'a%'", operator: "not-like", value: "a%"},
		{where: "x IS NULL", operator: "null"},
		{where: "x IS NOT NULL", operator: "not-null"},
		{where: "x IN ('a', 'b')", operator: "in", values: []string{"a", "b"}},
		{where: "x NOT IN (1)", operator: "not-in", values: []string{"1"}},
		{where: "x BETWEEN 1 AND 9", operator: "between", values: []string{"1", "9"}},
		{where: "x NOT BETWEEN -1 AND 1", operator: "not-between", values: []string{"-1", "1"}},
		{where: "x = 'O''Brien'", operator: "eq", value: "O'Brien"},
		{where: "x = TRUE", operator: "eq", value: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			root, err := BuildFetch(mustParse(t, "SELECT x FROM account WHERE "+tt.where))
			require.NoError(t, err)

			cond := root.Child(fetchxml.ElemEntity).Child(fetchxml.ElemFilter).Child(fetchxml.ElemCondition)
			require.NotNil(t, cond)
			assert.Equal(t, "x", cond.Get("attribute"))
			assert.Equal(t, tt.operator, cond.Get("operator"))

			value, hasValue := cond.Attr("value")
			assert.Equal(t, tt.value != "", hasValue)
			assert.Equal(t, tt.value, value)

			var values []string
			for _, v := range cond.ChildrenNamed(fetchxml.ElemValue) {
				values = append(values, v.Text)
			}
			assert.Equal(t, tt.values, values)
		})
	}
}

func TestToFetchXML_GeneratedAliases(t *testing.T) {
	root, err := BuildFetch(mustParse(t, "SELECT COUNT(*) AS count, COUNT(name), COUNT(revenue), MAX(revenue) FROM account"))
	require.NoError(t, err)

	var aliases []string
	for _, attr := range root.Child(fetchxml.ElemEntity).ChildrenNamed(fetchxml.ElemAttribute) {
		aliases = append(aliases, attr.Get("alias"))
	}
	assert.Equal(t, []string{"count", "count1", "count2", "max"}, aliases)
	assert.True(t, root.Flag("aggregate"))
}

func TestToFetchXML_CountStarPrimaryKey(t *testing.T) {
	stmt := mustParse(t, "SELECT COUNT(*) FROM account")

	root, err := BuildFetch(stmt)
	require.NoError(t, err)
	assert.Equal(t, "*", root.Child(fetchxml.ElemEntity).Child(fetchxml.ElemAttribute).Get("name"))

	root, err = BuildFetch(stmt, WithCountStarAttribute(CountStarPrimaryKey))
	require.NoError(t, err)
	attr := root.Child(fetchxml.ElemEntity).Child(fetchxml.ElemAttribute)
	assert.Equal(t, "accountid", attr.Get("name"))
	assert.Equal(t, "count", attr.Get("aggregate"))
}

func TestToFetchXML_OrderBySelectAlias(t *testing.T) {
	root, err := BuildFetch(mustParse(t, "SELECT name AS n FROM account ORDER BY n DESC"))
	require.NoError(t, err)

	order := root.Child(fetchxml.ElemEntity).Child(fetchxml.ElemOrder)
	require.NotNil(t, order)
	assert.Equal(t, "name", order.Get("attribute"))
	assert.True(t, order.Flag("descending"))
}

func TestToFetchXML_OrderByGroupedColumn(t *testing.T) {
	root, err := BuildFetch(mustParse(t, "SELECT statecode AS s, COUNT(*) AS n FROM account GROUP BY statecode ORDER BY statecode"))
	require.NoError(t, err)

	order := root.Child(fetchxml.ElemEntity).Child(fetchxml.ElemOrder)
	require.NotNil(t, order)
	assert.Equal(t, "s", order.Get("alias"))
	_, hasAttr := order.Attr("attribute")
	assert.False(t, hasAttr)
}

func TestToFetchXML_Update(t *testing.T) {
	root, err := BuildFetch(mustParse(t, "UPDATE account SET name = 'x' WHERE accountid = '123'"))
	require.NoError(t, err)

	entity := root.Child(fetchxml.ElemEntity)
	assert.Equal(t, "account", entity.Get("name"))
	assert.Equal(t, "accountid", entity.Child(fetchxml.ElemAttribute).Get("name"))
	cond := entity.Child(fetchxml.ElemFilter).Child(fetchxml.ElemCondition)
	assert.Equal(t, "123", cond.Get("value"))
}

func TestToFetchXML_Insert(t *testing.T) {
	_, err := ToFetchXML(mustParse(t, "INSERT INTO account (name) VALUES ('x')"))
	assert.True(t, errors.Is(err, ErrNoFetchEquivalent))
}

func TestToFetchXML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		message string
	}{
		{
			name:    "ungrouped column",
			sql:     "SELECT name, COUNT(*) FROM account",
			message: "column name must appear in GROUP BY or be used in an aggregate function",
		},
		{
			name:    "unknown qualifier",
			sql:     "SELECT x.name FROM account a",
			message: `unknown table or alias "x"`,
		},
		{
			name:    "unknown qualifier in where",
			sql:     "SELECT name FROM account WHERE c.statecode = 0",
			message: `unknown table or alias "c"`,
		},
		{
			name:    "join keys do not reference the joined table",
			sql:     "SELECT a.name FROM account a JOIN contact c ON a.accountid = a.primarycontactid",
			message: "join condition of c must compare a column of c with a column of a table joined before it",
		},
		{
			name:    "join to a later table",
			sql:     "SELECT a.name FROM account a JOIN contact c ON c.ownerid = u.systemuserid JOIN systemuser u ON u.systemuserid = a.ownerid",
			message: `unknown table or alias "u"`,
		},
		{
			name:    "duplicate alias",
			sql:     "SELECT a.name FROM account a JOIN contact a ON a.parentcustomerid = a.accountid",
			message: `table alias "a" is used more than once`,
		},
		{
			name:    "order by ungrouped column",
			sql:     "SELECT statecode, COUNT(*) FROM account GROUP BY statecode ORDER BY name",
			message: "ORDER BY name must reference a grouped column or an aggregate alias",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToFetchXML(mustParse(t, tt.sql))
			require.Error(t, err)

			var terr *Error
			require.True(t, errors.As(err, &terr), "expected *transpile.Error, got %T", err)
			assert.Equal(t, tt.message, terr.Message)
		})
	}
}

func TestAliasSet(t *testing.T) {
	a := newAliasSet()
	a.reserve("Count")
	a.reserve("")
	assert.Equal(t, "count1", a.generate("count"))
	assert.Equal(t, "count2", a.generate("COUNT"))
	assert.Equal(t, "sum", a.generate("sum"))
	assert.Equal(t, "sum1", a.generate("sum"))
}
