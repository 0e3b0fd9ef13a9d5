package transpile

import (
	"testing"

	"github.com/leapstack-labs/fetchsql/pkg/format"
	"github.com/leapstack-labs/fetchsql/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Queries in the supported subset survive SQL -> FetchXML -> SQL. The root
// entity is written unaliased and qualified by its name, the way the reverse
// direction renders it.
func TestRoundTrip(t *testing.T) {
	queries := []string{
		"SELECT name, revenue FROM account WHERE statecode = 0 ORDER BY name",
		"SELECT DISTINCT TOP 10 name FROM account WHERE name LIKE 'A%' OR name IS NULL",
		"SELECT * FROM account WHERE active = TRUE",
		"SELECT name FROM account WHERE revenue > -5",
		"SELECT name FROM account WHERE (statecode = 0 OR statecode = 1) AND revenue > 0",
		"SELECT name FROM account WHERE statecode = 0 OR revenue > 10 AND name LIKE 'B%'",
		"SELECT name FROM account WHERE industrycode NOT IN (1, 2) AND revenue NOT BETWEEN 10 AND 20 " +
			"AND name NOT LIKE '%x' AND ownerid IS NOT NULL AND statecode <> 1 AND revenue >= 5 AND revenue <= 100",
		"SELECT name FROM account WHERE createdon BETWEEN '2024-01-01' AND '2024-12-31' AND city IN ('Oslo', 'O''Hare')",
		"SELECT name FROM account WHERE city IN (' Oslo', 'Bergen ') AND code NOT IN ('  ', 'x')",
		"SELECT name FROM account WHERE name BETWEEN ' a' AND 'b ' AND city NOT BETWEEN 'c  ' AND '  d'",
		"SELECT account.name, c.fullname FROM account JOIN contact c ON c.parentcustomerid = account.accountid " +
			"WHERE c.statecode = 0 AND account.revenue > 1000 ORDER BY c.fullname DESC, account.name",
		"SELECT account.name, c.fullname, u.fullname AS owner FROM account " +
			"LEFT JOIN contact c ON c.parentcustomerid = account.accountid " +
			"JOIN systemuser u ON u.systemuserid = c.ownerid",
		"SELECT statecode, COUNT(*) AS total FROM account GROUP BY statecode ORDER BY total DESC",
		"SELECT ownerid, COUNT(DISTINCT customerid) AS customers, AVG(revenue) AS average FROM account GROUP BY ownerid",
	}

	for _, sql := range queries {
		t.Run(sql, func(t *testing.T) {
			stmt, err := parser.Parse(sql)
			require.NoError(t, err)

			xml, err := ToFetchXML(stmt)
			require.NoError(t, err)

			res, err := ToSQL(xml)
			require.NoError(t, err)
			assert.Empty(t, res.Warnings)
			require.NotNil(t, res.Statement)
			assert.Equal(t, format.Inline(stmt), format.Inline(res.Statement), xml)

			// The reverse output parses back to the same statement.
			again, err := parser.Parse(res.SQL)
			require.NoError(t, err, res.SQL)
			assert.Equal(t, format.Inline(stmt), format.Inline(again))
		})
	}
}

// Generated aliases and auto-inserted group-by columns make the reverse
// output differ textually, but it translates to the same FetchXML.
func TestRoundTrip_StableFetch(t *testing.T) {
	queries := []string{
		"SELECT statecode, COUNT(*) FROM account GROUP BY statecode, industrycode",
		"SELECT a.name FROM account a JOIN contact c ON c.parentcustomerid = a.accountid",
		"SELECT name AS n FROM account ORDER BY n",
	}

	for _, sql := range queries {
		t.Run(sql, func(t *testing.T) {
			stmt, err := parser.Parse(sql)
			require.NoError(t, err)
			first, err := ToFetchXML(stmt)
			require.NoError(t, err)

			res, err := ToSQL(first)
			require.NoError(t, err)
			require.Empty(t, res.Warnings)

			second, err := ToFetchXML(res.Statement)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

// Values are untyped in FetchXML: quoted numbers come back as numbers.
func TestRoundTrip_NumericStrings(t *testing.T) {
	stmt, err := parser.Parse("SELECT name FROM account WHERE code IN ('1', '2') AND flag = 'true'")
	require.NoError(t, err)
	xml, err := ToFetchXML(stmt)
	require.NoError(t, err)

	res, err := ToSQL(xml)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	want, err := parser.Parse("SELECT name FROM account WHERE code IN (1, 2) AND flag = TRUE")
	require.NoError(t, err)
	assert.Equal(t, format.Inline(want), format.Inline(res.Statement))
}
