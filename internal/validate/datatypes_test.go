package validate

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/zonehop/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) dataset.Decimal {
	t.Helper()
	d, err := dataset.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func TestDatatypesDecimal(t *testing.T) {
	spec := ColumnTypeSpec{Column: "amount", Kind: KindDecimal, Precision: 2}

	tests := []struct {
		name   string
		values []any
		pass   bool
	}{
		{name: "two digits", values: []any{dec(t, "12.34")}, pass: true},
		{name: "one digit", values: []any{dec(t, "12.3")}},
		{name: "float", values: []any{12.34}},
		{name: "string", values: []any{"12.34"}},
		{name: "null first row", values: []any{nil, dec(t, "12.34")}},
		{name: "no rows", values: nil},
		{name: "later rows unchecked", values: []any{dec(t, "1.00"), dec(t, "1.5"), 3.0}, pass: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := table(t, &dataset.Column{Name: "amount", Type: dataset.LogicalType{Kind: dataset.TypeDecimal}, Values: tt.values})
			res, err := Datatypes(tbl, []ColumnTypeSpec{spec})
			require.NotNil(t, res)
			if tt.pass {
				require.NoError(t, err)
				assert.True(t, res.Passed)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTypeMismatch))
			var tm *TypeMismatchError
			require.ErrorAs(t, err, &tm)
			assert.Equal(t, "amount", tm.Column)
			assert.Equal(t, KindDecimal, tm.Kind)
			assert.False(t, res.Passed)
		})
	}
}

func TestDatatypesStrictDecimal(t *testing.T) {
	spec := []ColumnTypeSpec{{Column: "amount", Kind: KindDecimal, Precision: 2}}
	tbl := table(t, &dataset.Column{Name: "amount", Values: []any{dec(t, "1.00"), nil, dec(t, "1.5")}})

	_, err := Datatypes(tbl, spec)
	require.NoError(t, err)

	_, err = Datatypes(tbl, spec, WithStrictDecimal())
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Contains(t, tm.Reason, "row 2")

	ok := table(t, &dataset.Column{Name: "amount", Values: []any{dec(t, "1.00"), nil, dec(t, "2.50")}})
	_, err = Datatypes(ok, spec, WithStrictDecimal())
	assert.NoError(t, err)
}

func TestDatatypesString(t *testing.T) {
	text := dataset.LogicalType{Kind: dataset.TypeText}

	tests := []struct {
		name string
		kind Kind
		col  *dataset.Column
		pass bool
	}{
		{name: "typed text", kind: KindString, col: &dataset.Column{Name: "c", Type: text, Values: []any{"a", nil}}, pass: true},
		{name: "typed integer", kind: KindString, col: &dataset.Column{Name: "c", Type: dataset.LogicalType{Kind: dataset.TypeInteger}, Values: []any{int64(1)}}},
		{name: "inferred text", kind: KindString, col: &dataset.Column{Name: "c", Values: []any{"a", "b"}}, pass: true},
		{name: "inferred numeric", kind: KindString, col: &dataset.Column{Name: "c", Values: []any{1.5, 2.5}}},
		{name: "list of text as array kind", kind: KindStringArray, col: &dataset.Column{Name: "c", Type: dataset.ListOf(text), Values: []any{[]any{"a"}}}, pass: true},
		{name: "list of text as string kind", kind: KindString, col: &dataset.Column{Name: "c", Type: dataset.ListOf(text)}, pass: true},
		{name: "plain text as array kind", kind: KindStringArray, col: &dataset.Column{Name: "c", Type: text}, pass: true},
		{name: "list of integers", kind: KindStringArray, col: &dataset.Column{Name: "c", Type: dataset.ListOf(dataset.LogicalType{Kind: dataset.TypeInteger})}},
		{name: "inferred list of integers", kind: KindStringArray, col: &dataset.Column{Name: "c", Values: []any{[]any{int64(1)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Datatypes(table(t, tt.col), []ColumnTypeSpec{{Column: "c", Kind: tt.kind}})
			if tt.pass {
				require.NoError(t, err)
				assert.True(t, res.Passed)
				return
			}
			assert.ErrorIs(t, err, ErrTypeMismatch)
			assert.False(t, res.Passed)
		})
	}
}

func TestDatatypesMissingAndUnknown(t *testing.T) {
	tbl := table(t,
		&dataset.Column{Name: "name", Values: []any{"a"}},
		&dataset.Column{Name: "code", Values: []any{"x"}},
	)

	res, err := Datatypes(tbl, []ColumnTypeSpec{{Column: "ghost", Kind: KindString}, {Column: "name", Kind: KindString}})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	require.Len(t, res.Columns, 2)
	assert.True(t, res.Columns[1].Passed)

	_, err = Datatypes(tbl, []ColumnTypeSpec{{Column: "code", Kind: Kind("IntegerType")}})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestDatatypesFirstFailureKept(t *testing.T) {
	tbl := table(t,
		&dataset.Column{Name: "a", Values: []any{1.0}},
		&dataset.Column{Name: "b", Values: []any{2.0}},
	)
	res, err := Datatypes(tbl, []ColumnTypeSpec{{Column: "a", Kind: KindString}, {Column: "b", Kind: KindString}})
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "a", tm.Column)
	assert.Len(t, res.Failed(), 2)
}
