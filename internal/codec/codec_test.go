package codec

import (
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/esqlite/internal/ir"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		v    ir.Value
		want string
	}{
		{"integer", ir.Integer(42), "42"},
		{"negative integer", ir.Integer(-7), "-7"},
		{"max int64", ir.Integer(math.MaxInt64), "9223372036854775807"},
		{"min int64", ir.Integer(math.MinInt64), "-9223372036854775808"},
		{"real", ir.Real(1.5), "1.5"},
		{"integral real", ir.Real(2), "2.0"},
		{"exponent real", ir.Real(1e21), "1e+21"},
		{"inf", ir.Real(math.Inf(1)), "9e999"},
		{"neg inf", ir.Real(math.Inf(-1)), "-9e999"},
		{"nan", ir.Real(math.NaN()), "NULL"},
		{"null", ir.Null{}, "NULL"},
		{"nil", nil, "NULL"},
		{"text", ir.Text("abc"), "'abc'"},
		{"text with quote", ir.Text("a'"), "'a'''"},
		{"injection", ir.Text("x'); DROP TABLE t; --"), "'x''); DROP TABLE t; --'"},
		{"blob", ir.Blob{0xde, 0xad, 0x01}, "X'DEAD01'"},
		{"empty blob", ir.Blob{}, "X''"},
		{"text with nul", ir.Text("a\x00b"), "CAST(X'610062' AS TEXT)"},
		{"text with nul and quote", ir.Text("'\x00"), "CAST(X'2700' AS TEXT)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.v))
		})
	}
}

func TestRenderUnsafe_DoesNotEscape(t *testing.T) {
	assert.Equal(t, "'a'b'", RenderUnsafe(ir.Text("a'b")))
	assert.Equal(t, "'a''b'", RenderUnsafe(ir.Text("a''b")))
	assert.Equal(t, "12", RenderUnsafe(ir.Integer(12)))
	assert.Equal(t, "CAST(X'610062' AS TEXT)", RenderUnsafe(ir.Text("a\x00b")))
}

func TestParseLiteral_InvertsRender(t *testing.T) {
	values := []ir.Value{
		ir.Integer(0),
		ir.Integer(math.MaxInt64),
		ir.Integer(math.MinInt64),
		ir.Real(0.1),
		ir.Real(-2),
		ir.Real(1e300),
		ir.Real(math.Inf(1)),
		ir.Real(math.Inf(-1)),
		ir.Text(""),
		ir.Text("it's"),
		ir.Text("''"),
		ir.Text("a\x00b"),
		ir.Text("\x00"),
		ir.Blob{},
		ir.Blob{0, 1, 2, 255},
		ir.Null{},
	}

	for _, v := range values {
		lit := Render(v)
		got, err := ParseLiteral(lit)
		require.NoError(t, err, "literal %s", lit)
		assert.True(t, ir.Equal(v, got), "%s parsed as %#v", lit, got)
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want ir.Value
	}{
		{"null", ir.Null{}},
		{"TRUE", ir.Integer(1)},
		{"false", ir.Integer(0)},
		{"+5", ir.Integer(5)},
		{"-0.5", ir.Real(-0.5)},
		{".5", ir.Real(0.5)},
		{"9223372036854775808", ir.Real(9223372036854775808)},
		{"x'0aff'", ir.Blob{0x0a, 0xff}},
		{"cast(x'6100' as text)", ir.Text("a\x00")},
	}
	for _, tt := range tests {
		got, err := ParseLiteral(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, ir.Equal(tt.want, got), "%s -> %#v", tt.in, got)
	}
}

func TestParseLiteral_Errors(t *testing.T) {
	for _, in := range []string{"", "'open", "'a'b'", "X'zz'", "X'", "CURRENT_TIMESTAMP", "abs(1)", "0x10", "CAST(1 AS TEXT)", "CAST(X'00' AS BLOB)", "CAST(X'0' AS TEXT)"} {
		_, err := ParseLiteral(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ir.ErrInvalidValue), in)
	}
}

func TestFromNative(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		in   any
		want ir.Value
	}{
		{nil, ir.Null{}},
		{true, ir.Integer(1)},
		{false, ir.Integer(0)},
		{int8(-3), ir.Integer(-3)},
		{uint32(7), ir.Integer(7)},
		{uint64(math.MaxInt64), ir.Integer(math.MaxInt64)},
		{float32(0.5), ir.Real(0.5)},
		{"s", ir.Text("s")},
		{[]byte("b"), ir.Blob("b")},
		{[]byte(nil), ir.Blob{}},
		{ts, ir.Text("2024-05-06 07:08:09+00:00")},
		{ir.Text("v"), ir.Text("v")},
	}
	for _, tt := range tests {
		got, err := FromNative(tt.in)
		require.NoError(t, err, "%#v", tt.in)
		assert.True(t, ir.Equal(tt.want, got), "%#v -> %#v", tt.in, got)
	}
}

func TestFromNative_InvalidValue(t *testing.T) {
	for _, in := range []any{
		map[string]int{"a": 1},
		[]int{1, 2},
		struct{ A int }{1},
		uint64(math.MaxUint64),
	} {
		_, err := FromNative(in)
		require.Error(t, err, "%#v", in)
		assert.True(t, errors.Is(err, ir.ErrInvalidValue))
	}

	_, err := RenderNative([]string{"x"})
	assert.True(t, errors.Is(err, ir.ErrInvalidValue))

	lit, err := RenderNative("o'k")
	require.NoError(t, err)
	assert.Equal(t, "'o''k'", lit)
}

func TestFromEngine(t *testing.T) {
	v, err := FromEngine(int64(3))
	require.NoError(t, err)
	assert.Equal(t, ir.Integer(3), v)

	v, err = FromEngine("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, ir.Text("2024-01-02"), v)

	src := []byte{1, 2}
	v, err = FromEngine(src)
	require.NoError(t, err)
	src[0] = 9
	assert.Equal(t, ir.Blob{1, 2}, v, "blob must not alias driver memory")

	v, err = FromEngine(nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, v)
}

func TestFromEngine_RefusesConvertedValues(t *testing.T) {
	for _, x := range []any{true, time.Unix(1700000000, 0).UTC()} {
		_, err := FromEngine(x)
		require.Error(t, err, "%T", x)
		assert.Equal(t, ir.ErrCodeEngine, ir.CodeOf(err), "%T", x)
	}
}

func TestBindArgs(t *testing.T) {
	t.Run("positional", func(t *testing.T) {
		args, err := BindArgs([]ir.Param{ir.P(ir.Integer(1)), ir.P(ir.Text("a")), ir.P(ir.Null{})})
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1), "a", nil}, args)
	})

	t.Run("numbered", func(t *testing.T) {
		args, err := BindArgs([]ir.Param{ir.Indexed(2, ir.Text("b")), ir.Indexed(1, ir.Text("a"))})
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, args)
	})

	t.Run("positional flows around numbered", func(t *testing.T) {
		args, err := BindArgs([]ir.Param{ir.P(ir.Integer(10)), ir.Indexed(1, ir.Integer(1)), ir.P(ir.Integer(20))})
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1), int64(10), int64(20)}, args)
	})

	t.Run("named strips sigil", func(t *testing.T) {
		args, err := BindArgs([]ir.Param{ir.Named(":id", ir.Integer(5)), ir.Named("@name", ir.Text("x")), ir.Named("v", ir.Blob{1})})
		require.NoError(t, err)
		assert.Equal(t, []any{
			sql.Named("id", int64(5)),
			sql.Named("name", "x"),
			sql.Named("v", []byte{1}),
		}, args)
	})

	t.Run("errors", func(t *testing.T) {
		cases := [][]ir.Param{
			{ir.Indexed(1, ir.Integer(1)), ir.Indexed(1, ir.Integer(2))},
			{ir.Indexed(2, ir.Integer(1))},
			{ir.Indexed(-1, ir.Integer(1))},
			{{Name: "a", Index: 1, Value: ir.Integer(1)}},
			{ir.Named(":", ir.Integer(1))},
		}
		for _, c := range cases {
			_, err := BindArgs(c)
			assert.True(t, errors.Is(err, ir.ErrInvalidValue), "%#v", c)
		}
	})
}
