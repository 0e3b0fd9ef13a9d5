package fetchxml

import (
	"errors"
	"strings"
	"testing"

	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `<?xml version="1.0"?>
<!-- accounts -->
<fetch top="10" distinct="true">
  <entity name="account">
    <attribute name="name" />
    <order attribute="name" descending="false" />
    <filter type="and">
      <condition attribute="statecode" operator="eq" value="0" />
      <condition attribute="industrycode" operator="in">
        <value>1</value>
        <value>2</value>
      </condition>
    </filter>
    <link-entity name="contact" from="parentcustomerid" to="accountid" alias="c" link-type="outer">
      <attribute name="fullname" />
    </link-entity>
  </entity>
</fetch>`

func messages(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	errs, err := Validate(validDoc)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "unclosed element",
			input:    `<fetch><entity name="account"><attribute name="name" /></fetch>`,
			expected: []string{"element <entity> is not closed"},
		},
		{
			name:     "stray closing tag",
			input:    `<fetch><entity name="a"></entity></filter></fetch>`,
			expected: []string{"unexpected closing tag </filter>"},
		},
		{
			name:     "missing required attribute",
			input:    `<fetch><entity><attribute /></entity></fetch>`,
			expected: []string{"<entity> requires attribute name", "<attribute> requires attribute name"},
		},
		{
			name:     "unknown element and attribute",
			input:    `<fetch bogus="1"><entity name="a"><column name="x" /></entity></fetch>`,
			expected: []string{"unknown attribute bogus on <fetch>", "unknown element <column>"},
		},
		{
			name:     "invalid child",
			input:    `<fetch><entity name="a"><condition attribute="x" operator="null" /></entity></fetch>`,
			expected: []string{"<condition> is not allowed inside <entity>"},
		},
		{
			name:     "bad enum",
			input:    `<fetch><entity name="a"><filter type="xor" /></entity></fetch>`,
			expected: []string{`invalid value "xor" for filter@type: expected one of and, or`},
		},
		{
			name:     "bad operator",
			input:    `<fetch><entity name="a"><filter><condition attribute="x" operator="equals" value="1" /></filter></entity></fetch>`,
			expected: []string{`invalid value "equals" for condition@operator: unknown value`},
		},
		{
			name:     "bad top",
			input:    `<fetch top="ten"><entity name="a" /></fetch>`,
			expected: []string{`invalid value "ten" for fetch@top: expected an integer`},
		},
		{
			name:     "wrong root",
			input:    `<entity name="a" />`,
			expected: []string{"root element must be <fetch>, found <entity>"},
		},
		{
			name:     "order without attribute",
			input:    `<fetch><entity name="a"><order descending="true" /></entity></fetch>`,
			expected: []string{"<order> requires attribute or alias"},
		},
		{
			name:     "no entity",
			input:    `<fetch></fetch>`,
			expected: []string{"<fetch> must contain exactly one <entity>"},
		},
		{
			name:     "empty document",
			input:    "   ",
			expected: []string{"document has no <fetch> element"},
		},
		{
			name:     "unquoted value",
			input:    `<fetch top=5><entity name="a" /></fetch>`,
			expected: []string{"value of attribute top must be quoted"},
		},
		{
			name:     "duplicate attribute",
			input:    `<fetch><entity name="a" name="b" /></fetch>`,
			expected: []string{"duplicate attribute name on <entity>"},
		},
		{
			name:  "unterminated tag",
			input: `<fetch><entity name="a"`,
			expected: []string{
				"element <fetch> is not closed",
				"unterminated tag <entity>",
				"element <entity> is not closed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, err := Validate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, messages(errs))
		})
	}
}

func TestValidate_Positions(t *testing.T) {
	errs, err := Validate("<fetch>\n  <entity>\n  </entity>\n</fetch>")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, 10, errs[0].Offset)
	assert.Equal(t, 2, errs[0].Line)
	assert.Equal(t, 3, errs[0].Column)
	assert.Equal(t, "line 2, column 3: <entity> requires attribute name", errs[0].Error())
}

func TestValidate_InputTooLarge(t *testing.T) {
	_, err := Validate(strings.Repeat("x", core.DefaultMaxInputSize+1))
	assert.True(t, errors.Is(err, core.ErrInputTooLarge))
}

func TestValidate_NeverPanics(t *testing.T) {
	inputs := []string{
		"", "<", "</", "<fetch", "<fetch ", `<fetch top="`, `<fetch top='1`, "<!--", "<![CDATA[", "<?xml",
		"<fetch><entity name=\"a\"></fetch></entity>", "<a b c>", "&", "<fetch>&bogus;</fetch>", "<<<>>>",
		"<fetch/><fetch/>", "<fetch =\"x\">",
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_, err := Validate(input)
			assert.NoError(t, err)
		}, input)
	}
}

func TestParse_Tree(t *testing.T) {
	root, errs := Parse(validDoc)
	require.Empty(t, errs)
	require.NotNil(t, root)

	assert.Equal(t, "fetch", root.Name)
	assert.Equal(t, "10", root.Get("top"))
	assert.True(t, root.Flag("distinct"))

	entity := root.Child(ElemEntity)
	require.NotNil(t, entity)
	assert.Equal(t, "account", entity.Get("name"))
	assert.Len(t, entity.ChildrenNamed(ElemAttribute), 1)

	cond := entity.Child(ElemFilter).ChildrenNamed(ElemCondition)[1]
	values := cond.ChildrenNamed(ElemValue)
	require.Len(t, values, 2)
	assert.Equal(t, "1", values[0].Text)
	assert.Equal(t, cond, values[0].Parent)

	link := entity.Child(ElemLinkEntity)
	require.NotNil(t, link)
	assert.Equal(t, "outer", link.Get("link-type"))
}

func TestParse_RawText(t *testing.T) {
	root, errs := Parse("<fetch><entity name=\"account\"><filter><condition attribute=\"city\" operator=\"in\">" +
		"<value> Oslo</value><value>Bergen </value><value><![CDATA[ a&b ]]></value>" +
		"</condition></filter></entity></fetch>")
	require.Empty(t, errs)

	values := root.Child(ElemEntity).Child(ElemFilter).Child(ElemCondition).ChildrenNamed(ElemValue)
	require.Len(t, values, 3)
	assert.Equal(t, "Oslo", values[0].Text)
	assert.Equal(t, " Oslo", values[0].Raw)
	assert.Equal(t, "Bergen ", values[1].Raw)
	assert.Equal(t, " a&b ", values[2].Raw)
}

func TestParse_ClosesUnclosedElements(t *testing.T) {
	root, errs := Parse(`<fetch><entity name="account"><attribute name="name" />`)
	require.NotNil(t, root)
	assert.NotEmpty(t, errs)

	entity := root.Child(ElemEntity)
	require.NotNil(t, entity)
	assert.Equal(t, "name", entity.Child(ElemAttribute).Get("name"))
}

func TestParse_DecodesEntities(t *testing.T) {
	root, errs := Parse(`<fetch><entity name="a"><filter><condition attribute="n" operator="eq" value="O&apos;Brien &amp; &#65;" /></filter></entity></fetch>`)
	require.Empty(t, errs)
	cond := root.Child(ElemEntity).Child(ElemFilter).Child(ElemCondition)
	assert.Equal(t, "O'Brien & A", cond.Get("value"))
}

func TestRender(t *testing.T) {
	fetch := NewNode(ElemFetch, "top", "5", "distinct", "")
	entity := NewNode(ElemEntity, "name", "account")
	entity.Append(
		NewNode(ElemAttribute, "name", "name"),
		NewNode(ElemFilter, "type", "and").Append(
			NewNode(ElemCondition, "attribute", "name", "operator", "eq").SetAttr("value", `a<b & "c"`),
			NewNode(ElemCondition, "attribute", "x", "operator", "in").Append(
				&Node{Name: ElemValue, Text: "1"},
			),
		),
	)
	fetch.Append(entity)

	expected := `<fetch top="5">
  <entity name="account">
    <attribute name="name" />
    <filter type="and">
      <condition attribute="name" operator="eq" value="a&lt;b &amp; &quot;c&quot;" />
      <condition attribute="x" operator="in">
        <value>1</value>
      </condition>
    </filter>
  </entity>
</fetch>
`
	assert.Equal(t, expected, fetch.Render())

	// Rendered output parses back without errors.
	_, errs := Parse(fetch.Render())
	assert.Empty(t, errs)
}

func TestScan_Items(t *testing.T) {
	items := Scan(`<fetch top="1"><entity name="a"/></fetch>`)
	require.Len(t, items, 3)

	assert.Equal(t, ItemStartTag, items[0].Kind)
	assert.Equal(t, "fetch", items[0].Name)
	assert.Equal(t, 6, items[0].NameEnd)
	attr, ok := items[0].Attr("top")
	require.True(t, ok)
	assert.Equal(t, "1", attr.Value)
	assert.Equal(t, 7, attr.Offset)
	assert.Equal(t, 12, attr.ValueStart)
	assert.Equal(t, 13, attr.ValueEnd)
	assert.True(t, attr.Closed)

	assert.True(t, items[1].SelfClosing)
	assert.Equal(t, ItemEndTag, items[2].Kind)
}

func TestScan_Unterminated(t *testing.T) {
	items := Scan(`<fetch><condition operator="e`)
	require.Len(t, items, 2)
	cond := items[1]
	assert.True(t, cond.Unterminated)
	attr, ok := cond.Attr("operator")
	require.True(t, ok)
	assert.False(t, attr.Closed)
	assert.Equal(t, "e", attr.Value)
	assert.True(t, cond.Contains(len(`<fetch><condition operator="e`)))

	// A quote left open stops at the next tag.
	items = Scan(`<a b="x<c>`)
	require.Len(t, items, 2)
	assert.True(t, items[0].Unterminated)
	assert.Equal(t, "c", items[1].Name)
}

func TestSchemaHelpers(t *testing.T) {
	assert.True(t, AllowsChild("", ElemFetch))
	assert.True(t, AllowsChild(ElemFilter, ElemCondition))
	assert.False(t, AllowsChild(ElemEntity, ElemCondition))
	assert.Equal(t, []string{ElemAllAttributes, ElemAttribute, ElemOrder, ElemFilter, ElemLinkEntity}, ChildElements(ElemEntity))
	assert.Contains(t, AttributeNames(ElemLinkEntity), "link-type")

	spec, ok := LookupAttribute(ElemCondition, "operator")
	require.True(t, ok)
	assert.Equal(t, ValueEnum, spec.Kind)
	assert.Contains(t, spec.Enum, "not-between")
}
