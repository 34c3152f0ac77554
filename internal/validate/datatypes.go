package validate

import (
	"fmt"

	"github.com/leapstack-labs/zonehop/internal/dataset"
)

type options struct {
	strictDecimal bool
}

// Option configures Datatypes.
type Option func(*options)

// WithStrictDecimal checks every non-null value of a decimal column rather
// than only the first row.
func WithStrictDecimal() Option {
	return func(o *options) { o.strictDecimal = true }
}

// Datatypes checks each declared column of t against its spec.
//
// DecimalType requires the first value to be a fixed-point decimal with
// exactly Precision fractional digits. StringType and ArrayType-StringType
// both require a textual element type; a list of text satisfies either.
// A declared column absent from t is a schema mismatch.
//
// The returned Result is always non-nil. The error is the first violation.
func Datatypes(t *dataset.Table, specs []ColumnTypeSpec, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if t == nil {
		t = &dataset.Table{}
	}

	res := &Result{Check: CheckDatatypes, Passed: true}
	var firstErr error
	for _, spec := range specs {
		col, ok := t.Column(spec.Column)
		if !ok {
			res.add(ColumnResult{Column: spec.Column, Reason: "column not present"})
			if firstErr == nil {
				firstErr = &SchemaMismatchError{Missing: []string{spec.Column}}
			}
			continue
		}

		reason := checkColumn(col, spec, o)
		res.add(ColumnResult{Column: spec.Column, Passed: reason == "", Reason: reason})
		if reason != "" && firstErr == nil {
			firstErr = &TypeMismatchError{Column: spec.Column, Kind: spec.Kind, Reason: reason}
		}
	}
	return res, firstErr
}

// checkColumn returns an empty string when col conforms to spec.
func checkColumn(col *dataset.Column, spec ColumnTypeSpec, o options) string {
	switch spec.Kind {
	case KindDecimal:
		return checkDecimal(col, spec.Precision, o.strictDecimal)
	case KindString, KindStringArray:
		if !isTextual(col) {
			return fmt.Sprintf("column type %s is not textual", describeType(col))
		}
		return ""
	default:
		return fmt.Sprintf("unrecognized declared type %q", spec.Kind)
	}
}

func checkDecimal(col *dataset.Column, precision int, strict bool) string {
	if len(col.Values) == 0 {
		return "column has no values"
	}
	if reason := decimalReason(col.Values[0], precision); reason != "" {
		return "first value " + reason
	}
	if !strict {
		return ""
	}
	for i, v := range col.Values[1:] {
		if v == nil {
			continue
		}
		if reason := decimalReason(v, precision); reason != "" {
			return fmt.Sprintf("row %d value %s", i+1, reason)
		}
	}
	return ""
}

func decimalReason(v any, precision int) string {
	switch d := v.(type) {
	case nil:
		return "is null"
	case dataset.Decimal:
		if d.FractionalDigits() != precision {
			return fmt.Sprintf("%s has %d fractional digits, want %d", d, d.FractionalDigits(), precision)
		}
		return ""
	default:
		return fmt.Sprintf("%v is %T, not a fixed-point decimal", v, v)
	}
}

func isTextual(col *dataset.Column) bool {
	if col.Type.Kind != dataset.TypeUnknown {
		return col.Type.Element().Kind == dataset.TypeText
	}
	for _, v := range col.Values {
		if !isTextValue(v) {
			return false
		}
	}
	return true
}

func isTextValue(v any) bool {
	switch x := v.(type) {
	case nil, string:
		return true
	case []any:
		for _, e := range x {
			if e != nil {
				if _, ok := e.(string); !ok {
					return false
				}
			}
		}
		return true
	default:
		return false
	}
}

func describeType(col *dataset.Column) string {
	if col.Type.Kind != dataset.TypeUnknown {
		return col.Type.String()
	}
	for _, v := range col.Values {
		if v != nil {
			return fmt.Sprintf("%T", v)
		}
	}
	return "unknown"
}
