package transpile

import (
	"errors"
	"strings"
	"testing"

	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/format"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(warnings []Warning) []WarningCode {
	out := make([]WarningCode, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Code)
	}
	return out
}

func TestToSQL_Simple(t *testing.T) {
	res, err := ToSQL(`<fetch top="3">
  <entity name="account">
    <attribute name="name" />
    <attribute name="revenue" alias="rev" />
    <order attribute="revenue" descending="true" />
    <filter>
      <condition attribute="statecode" operator="eq" value="0" />
      <condition attribute="name" operator="neq" value="O'Brien" />
    </filter>
  </entity>
</fetch>`)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "SELECT TOP 3\n  name,\n  revenue AS rev\nFROM account\nWHERE\n  statecode = 0\n  AND name <> 'O''Brien'\nORDER BY\n  revenue DESC\n", res.SQL)
}

func TestToSQL_Warnings(t *testing.T) {
	doc := `<fetch count="50" page="2">
  <entity name="account">
    <attribute name="name" />
    <order attribute="name" />
    <filter type="and">
      <condition attribute="statecode" operator="eq" value="0" />
      <condition attribute="createdon" operator="last-x-days" value="7" />
      <condition attribute="revenue" operator="gt" valueof="cost" />
    </filter>
    <link-entity name="contact" from="parentcustomerid" to="accountid" alias="c" link-type="outer">
      <attribute name="fullname" />
      <filter>
        <condition attribute="lastname" operator="begins-with" value="Sm" />
      </filter>
    </link-entity>
    <link-entity name="task" from="regardingobjectid" to="accountid" link-type="exists" />
  </entity>
</fetch>`

	res, err := ToSQL(doc)
	require.NoError(t, err)
	assert.Equal(t, []WarningCode{
		WarnPaging,
		WarnUnsupportedOperator,
		WarnColumnComparison,
		WarnLinkFilterApproximate,
		WarnUnsupportedLinkType,
	}, codes(res.Warnings))

	assert.Equal(t, `<fetch count="50" page="2">`, res.Warnings[0].Fragment)
	assert.Contains(t, res.Warnings[1].Message, "last-x-days")
	assert.Contains(t, res.Warnings[4].Message, "exists")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "reverse_warnings", []byte(res.SQL))
}

func TestToSQL_UnsupportedLinkTypeWarnsOnce(t *testing.T) {
	for _, linkType := range []string{"any", "not any", "all", "exists", "in", "matchfirstrowusingcrossapply"} {
		t.Run(linkType, func(t *testing.T) {
			doc := `<fetch>
  <entity name="account">
    <attribute name="name" />
    <filter>
      <link-entity name="contact" from="parentcustomerid" to="accountid" link-type="` + linkType + `">
        <filter>
          <condition attribute="statecode" operator="eq" value="0" />
        </filter>
      </link-entity>
    </filter>
  </entity>
</fetch>`
			res, err := ToSQL(doc)
			require.NoError(t, err)
			require.Len(t, res.Warnings, 1)
			assert.Equal(t, WarnUnsupportedLinkType, res.Warnings[0].Code)
			assert.Contains(t, res.Warnings[0].Message, `"`+linkType+`"`)
			assert.Equal(t, "SELECT\n  name\nFROM account\n", res.SQL)
		})
	}
}

func TestToSQL_Aggregates(t *testing.T) {
	res, err := ToSQL(`<fetch aggregate="true">
  <entity name="opportunity">
    <attribute name="ownerid" alias="ownerid" groupby="true" />
    <attribute name="createdon" alias="month" groupby="true" dategrouping="month" />
    <attribute name="opportunityid" alias="n" aggregate="count" />
    <attribute name="customerid" alias="customers" aggregate="countcolumn" distinct="true" />
    <attribute name="estimatedvalue" alias="total" aggregate="sum" />
    <attribute name="opportunityid" alias="children" rowaggregate="CountChildren" />
    <order alias="total" descending="true" />
    <filter>
      <condition attribute="estimatedvalue" operator="gt" value="100" aggregate="sum" />
    </filter>
  </entity>
</fetch>`)
	require.NoError(t, err)
	assert.Equal(t, []WarningCode{WarnDateGrouping, WarnUnsupportedAggregate, WarnHaving}, codes(res.Warnings))
	assert.Equal(t,
		"SELECT ownerid, createdon AS month, COUNT(*) AS n, COUNT(DISTINCT customerid) AS customers, SUM(estimatedvalue) AS total "+
			"FROM opportunity GROUP BY ownerid, createdon ORDER BY total DESC",
		format.Inline(res.Statement))
}

func TestToSQL_OperatorRewrites(t *testing.T) {
	tests := []struct {
		condition string
		expected  string
	}{
		{`<condition attribute="n" operator="begins-with" value="Sm" />`, "n LIKE 'Sm%'"},
		{`<condition attribute="n" operator="not-begin-with" value="Sm" />`, "n NOT LIKE 'Sm%'"},
		{`<condition attribute="n" operator="ends-with" value="son" />`, "n LIKE '%son'"},
		{`<condition attribute="n" operator="not-end-with" value="son" />`, "n NOT LIKE '%son'"},
		{`<condition attribute="n" operator="like" value="42" />`, "n LIKE '42'"},
		{`<condition attribute="n" operator="in"><value>1</value><value>x</value></condition>`, "n IN (1, 'x')"},
		{`<condition attribute="n" operator="between"><value>-1.5</value><value>2</value></condition>`, "n BETWEEN -1.5 AND 2"},
		{`<condition attribute="n" operator="eq" value="0123" />`, "n = '0123'"},
		{`<condition attribute="n" operator="eq" value="false" />`, "n = FALSE"},
		{`<condition attribute="n" operator="not-null" />`, "n IS NOT NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			res, err := ToSQL(`<fetch><entity name="a"><attribute name="n" /><filter>` + tt.condition + `</filter></entity></fetch>`)
			require.NoError(t, err)
			assert.Empty(t, res.Warnings)
			require.NotNil(t, res.Statement)
			assert.Equal(t, tt.expected, format.Condition(res.Statement.Where))
		})
	}
}

func TestToSQL_ValueCountWarning(t *testing.T) {
	res, err := ToSQL(`<fetch><entity name="a"><attribute name="n" /><filter><condition attribute="n" operator="between"><value>1</value></condition></filter></entity></fetch>`)
	require.NoError(t, err)
	assert.Equal(t, []WarningCode{WarnValidation}, codes(res.Warnings))
	assert.Nil(t, res.Statement.Where)
}

func TestToSQL_InvalidDocument(t *testing.T) {
	res, err := ToSQL(`<fetch><entity name="account"><attribute name="name" /></fetch>`)
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, WarnValidation, res.Warnings[0].Code)
	assert.Contains(t, res.Warnings[0].Message, "element <entity> is not closed")
	assert.Equal(t, `<entity name="account">`, res.Warnings[0].Fragment)
	assert.Equal(t, "SELECT\n  name\nFROM account\n", res.SQL)
}

func TestToSQL_NoEntity(t *testing.T) {
	for _, input := range []string{"", "   ", "<fetch></fetch>", "<entity name=\"a\" />", "<fetch><entity /></fetch>"} {
		res, err := ToSQL(input)
		require.NoError(t, err, input)
		assert.Empty(t, res.SQL, input)
		assert.Nil(t, res.Statement, input)
		assert.NotEmpty(t, res.Warnings, input)
	}
}

func TestToSQL_EmptyEntitySelectsAll(t *testing.T) {
	res, err := ToSQL(`<fetch><entity name="account" /></fetch>`)
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  *\nFROM account\n", res.SQL)
}

func TestToSQL_InputTooLarge(t *testing.T) {
	_, err := ToSQL(strings.Repeat(" ", core.DefaultMaxInputSize+1))
	assert.True(t, errors.Is(err, core.ErrInputTooLarge))
}

func TestToSQL_NeverPanics(t *testing.T) {
	inputs := []string{
		"<", "<fetch", `<fetch><entity name="a"><link-entity`, `<fetch><entity name="a"><filter><condition`,
		`<fetch aggregate="x"><entity name="a"><attribute aggregate="bogus" name="b" /></entity></fetch>`,
		`<fetch><entity name="a"><order /></entity></fetch>`,
		`<fetch><entity name="a"><link-entity name="b"><attribute name="c" /></link-entity></entity></fetch>`,
		"<fetch><entity name=\"a\"></fetch></entity>",
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_, err := ToSQL(input)
			assert.NoError(t, err)
		}, input)
	}
}

func TestFragmentAt(t *testing.T) {
	src := `<a x="1>2" y='z'>text</a>`
	assert.Equal(t, `<a x="1>2" y='z'>`, fragmentAt(src, 0))
	assert.Equal(t, "", fragmentAt(src, 3))
	assert.Equal(t, "", fragmentAt(src, -1))
	assert.Equal(t, "", fragmentAt(src, len(src)))
	assert.Equal(t, "<b", fragmentAt("<b", 0))
}
