package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/esqlite/internal/ir"
)

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		s, err := LoadScenario(file)
		require.NoError(t, err, file)
		assert.NotEmpty(t, s.Steps)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: a\ndescription: d\nstep: []\n", "failed to parse YAML"},
		{"no name", "description: d\nsteps: [{op: list_tables}]\n", "name is required"},
		{"path name", "name: a/b\ndescription: d\nsteps: [{op: list_tables}]\n", "file name"},
		{"no description", "name: a\nsteps: [{op: list_tables}]\n", "description is required"},
		{"no steps", "name: a\ndescription: d\n", "steps list is required"},
		{"unknown op", "name: a\ndescription: d\nsteps: [{op: vacuum}]\n", `unknown op "vacuum"`},
		{"missing op", "name: a\ndescription: d\nsteps: [{table: t}]\n", "op is required"},
		{"exec without sql", "name: a\ndescription: d\nsteps: [{op: exec}]\n", "sql is required"},
		{"write without fields", "name: a\ndescription: d\nsteps: [{op: write, table: t}]\n", "fields mapping is required"},
		{"delete without where", "name: a\ndescription: d\nsteps: [{op: delete, table: t}]\n", "where mapping is required"},
		{"unbound handle", "name: a\ndescription: d\nsteps: [{op: next, handle: q}]\n", `handle "q" is not bound`},
		{"assertion type", "name: a\ndescription: d\nsteps: [{op: list_tables}]\nassertions: [{type: nope, table: t}]\n", "unknown assertion type"},
		{"table_exists without exists", "name: a\ndescription: d\nsteps: [{op: list_tables}]\nassertions: [{type: table_exists, table: t}]\n", "exists is required"},
		{"final_state without expect", "name: a\ndescription: d\nsteps: [{op: list_tables}]\nassertions: [{type: final_state, table: t}]\n", "expect mapping is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func node(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return doc.Content[0]
}

func TestValueOf_Tags(t *testing.T) {
	tests := []struct {
		src  string
		want ir.Value
	}{
		{"42", ir.Integer(42)},
		{"-9223372036854775808", ir.Integer(-9223372036854775808)},
		{"9223372036854775807", ir.Integer(9223372036854775807)},
		{"1.5", ir.Real(1.5)},
		{"hello", ir.Text("hello")},
		{`"42"`, ir.Text("42")},
		{"null", ir.Null{}},
		{"~", ir.Null{}},
		{"true", ir.Integer(1)},
		{"false", ir.Integer(0)},
		{"!!binary yv4=", ir.Blob{0xca, 0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := valueOf(node(t, tt.src))
			require.NoError(t, err)
			assert.True(t, ir.Equal(tt.want, got), "want %#v, got %#v", tt.want, got)
		})
	}
}

func TestValueOf_Errors(t *testing.T) {
	_, err := valueOf(node(t, "9223372036854775808"))
	assert.ErrorContains(t, err, "out of int64 range")

	_, err = valueOf(node(t, "[1, 2]"))
	assert.ErrorContains(t, err, "expected a scalar")

	_, err = valueOf(node(t, "!!binary '***'"))
	assert.ErrorContains(t, err, "invalid base64")
}

func TestFieldsOf_KeepsDocumentOrder(t *testing.T) {
	fields, err := fieldsOf(node(t, "{z: 1, a: two, m: null}"))
	require.NoError(t, err)
	assert.Equal(t, []ir.Field{
		ir.F("z", ir.Integer(1)),
		ir.F("a", ir.Text("two")),
		ir.F("m", ir.Null{}),
	}, fields)
}

func TestPredicateOf(t *testing.T) {
	p, err := predicateOf(&yaml.Node{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = predicateOf(node(t, "{id: 7}"))
	require.NoError(t, err)
	assert.Equal(t, ir.Where("id", ir.Integer(7)), p)

	_, err = predicateOf(node(t, "{a: 1, b: 2}"))
	assert.ErrorContains(t, err, "exactly one column")
}

func TestParamsOf(t *testing.T) {
	params, err := paramsOf(node(t, "[1, x]"))
	require.NoError(t, err)
	assert.Equal(t, []ir.Param{ir.P(ir.Integer(1)), ir.P(ir.Text("x"))}, params)

	params, err = paramsOf(node(t, `{":min": 2, "?3": y}`))
	require.NoError(t, err)
	assert.Equal(t, []ir.Param{ir.Named(":min", ir.Integer(2)), ir.Indexed(3, ir.Text("y"))}, params)

	_, err = paramsOf(node(t, `{"?0": 1}`))
	assert.ErrorContains(t, err, "invalid index")

	_, err = paramsOf(node(t, "7"))
	assert.ErrorContains(t, err, "sequence or mapping")
}

func TestColumnSpec_Descriptor(t *testing.T) {
	var specs []ColumnSpec
	require.NoError(t, yaml.Unmarshal([]byte(`
- {name: id, type: INTEGER, constraints: [primary_key desc autoincrement]}
- {name: email, type: text, constraints: [unique, not_null]}
- {name: created, type: text, default: CURRENT_TIMESTAMP}
- {name: label, type: text, default: "CURRENT_TIMESTAMP"}
- {name: blob, type: blob, default: !!binary yv4=}
`), &specs))

	schema, err := schemaOf(specs)
	require.NoError(t, err)
	assert.Equal(t, ir.TableSchema{
		ir.Column("id", ir.TypeInteger, ir.PrimaryKey{Order: ir.OrderDesc, Autoincrement: true}),
		ir.Column("email", ir.TypeText, ir.Unique{}, ir.NotNull{}),
		ir.Column("created", ir.TypeText, ir.Default{Keyword: "CURRENT_TIMESTAMP"}),
		ir.Column("label", ir.TypeText, ir.Default{Value: ir.Text("CURRENT_TIMESTAMP")}),
		ir.Column("blob", ir.TypeBlob, ir.Default{Value: ir.Blob{0xca, 0xfe}}),
	}, schema)
}

func TestColumnSpec_DescriptorErrors(t *testing.T) {
	_, err := ColumnSpec{Name: "a", Constraints: []string{"check"}}.descriptor()
	assert.ErrorContains(t, err, "unknown constraint")

	_, err = ColumnSpec{Name: "a", Constraints: []string{"primary_key sideways"}}.descriptor()
	assert.ErrorContains(t, err, "unknown primary_key option")

	_, err = ColumnSpec{Name: "a", Constraints: []string{"unique now"}}.descriptor()
	assert.ErrorContains(t, err, "takes no options")
}
