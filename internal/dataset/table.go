// Package dataset holds the in-memory tabular model that readers produce and
// the validation engine consumes.
package dataset

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// TypeKind is the logical family of a column type.
type TypeKind int

// Logical type families.
const (
	TypeUnknown TypeKind = iota
	TypeText
	TypeInteger
	TypeFloat
	TypeDecimal
	TypeBoolean
	TypeTimestamp
	TypeDate
	TypeBinary
	TypeList
	TypeStruct
)

var typeKindNames = map[TypeKind]string{
	TypeUnknown:   "unknown",
	TypeText:      "text",
	TypeInteger:   "integer",
	TypeFloat:     "float",
	TypeDecimal:   "decimal",
	TypeBoolean:   "boolean",
	TypeTimestamp: "timestamp",
	TypeDate:      "date",
	TypeBinary:    "binary",
	TypeList:      "list",
	TypeStruct:    "struct",
}

func (k TypeKind) String() string {
	if s, ok := typeKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// LogicalType describes a column's type independent of the file format.
// Precision and Scale apply to decimals; Elem applies to lists.
type LogicalType struct {
	Kind      TypeKind
	Precision int
	Scale     int
	Elem      *LogicalType
}

// Element returns the element type for lists and the type itself otherwise.
func (t LogicalType) Element() LogicalType {
	if t.Kind == TypeList && t.Elem != nil {
		return *t.Elem
	}
	return t
}

func (t LogicalType) String() string {
	switch t.Kind {
	case TypeDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case TypeList:
		if t.Elem == nil {
			return "list<unknown>"
		}
		return "list<" + t.Elem.String() + ">"
	default:
		return t.Kind.String()
	}
}

// ListOf builds a list type with the given element type.
func ListOf(elem LogicalType) LogicalType {
	return LogicalType{Kind: TypeList, Elem: &elem}
}

// Decimal is a fixed-point number: Unscaled * 10^-Scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int
}

// NewDecimal builds a Decimal from an unscaled int64.
func NewDecimal(unscaled int64, scale int) Decimal {
	return Decimal{Unscaled: big.NewInt(unscaled), Scale: scale}
}

// ParseDecimal parses a plain decimal literal such as "-12.340". The scale
// is the number of digits after the point, trailing zeros included.
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	intPart, frac, _ := strings.Cut(s, ".")
	digits := intPart + frac
	if digits == "" || digits == "-" || digits == "+" {
		return Decimal{}, fmt.Errorf("invalid decimal %q", s)
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("invalid decimal %q", s)
	}
	return Decimal{Unscaled: v, Scale: len(frac)}, nil
}

// FractionalDigits is the number of digits after the decimal point.
func (d Decimal) FractionalDigits() int { return d.Scale }

func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "0"
	}
	s := new(big.Int).Abs(d.Unscaled).String()
	sign := ""
	if d.Unscaled.Sign() < 0 {
		sign = "-"
	}
	if d.Scale <= 0 {
		return sign + s + strings.Repeat("0", -d.Scale)
	}
	if len(s) <= d.Scale {
		s = strings.Repeat("0", d.Scale-len(s)+1) + s
	}
	return sign + s[:len(s)-d.Scale] + "." + s[len(s)-d.Scale:]
}

// Column is a named, ordered sequence of values. A nil value is null.
type Column struct {
	Name   string
	Type   LogicalType
	Values []any
}

// NonNullCount is the number of non-null values. This, not len(Values),
// is what "row count" means for validation.
func (c *Column) NonNullCount() int {
	n := 0
	for _, v := range c.Values {
		if v != nil {
			n++
		}
	}
	return n
}

// Len is the number of rows including nulls.
func (c *Column) Len() int { return len(c.Values) }

// Table is an ordered set of columns.
type Table struct {
	Columns []*Column
	index   map[string]int
}

// NewTable builds a table from columns in declared order.
// Duplicate column names are rejected.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{}
	for _, c := range cols {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column.
func (t *Table) AddColumn(c *Column) error {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if _, ok := t.index[c.Name]; ok {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	t.index[c.Name] = len(t.Columns)
	t.Columns = append(t.Columns, c)
	return nil
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	if t.index == nil {
		for _, c := range t.Columns {
			if c.Name == name {
				return c, true
			}
		}
		return nil, false
	}
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// ColumnNames returns column names in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// NumRows is the longest column length.
func (t *Table) NumRows() int {
	n := 0
	for _, c := range t.Columns {
		if c.Len() > n {
			n = c.Len()
		}
	}
	return n
}

// Append concatenates other's rows onto t. Both tables must declare the
// same columns in the same order with the same types.
func (t *Table) Append(other *Table) error {
	if len(t.Columns) != len(other.Columns) {
		return fmt.Errorf("schema mismatch: %d columns vs %d", len(t.Columns), len(other.Columns))
	}
	for i, c := range t.Columns {
		o := other.Columns[i]
		if c.Name != o.Name {
			return fmt.Errorf("schema mismatch at column %d: %q vs %q", i, c.Name, o.Name)
		}
		if c.Type.String() != o.Type.String() {
			return fmt.Errorf("schema mismatch for column %q: %s vs %s", c.Name, c.Type, o.Type)
		}
	}
	for i, c := range t.Columns {
		c.Values = append(c.Values, other.Columns[i].Values...)
	}
	return nil
}

// NormalizeValue maps driver-specific scalar types onto the set the
// validation engine understands: int64, float64, string, bool, Decimal,
// time.Time, []byte, []any and nil. Integers wider than int64 stay *big.Int.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return new(big.Int).SetUint64(x)
	case float32:
		return float64(x)
	case time.Time, int64, float64, string, bool, Decimal, []byte:
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = NormalizeValue(e)
		}
		return out
	default:
		return x
	}
}
