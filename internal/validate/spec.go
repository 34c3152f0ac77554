package validate

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a declared column type.
type Kind string

// Recognized declared kinds.
const (
	KindDecimal     Kind = "DecimalType"
	KindString      Kind = "StringType"
	KindStringArray Kind = "ArrayType-StringType"
)

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDecimal, KindString, KindStringArray:
		return true
	}
	return false
}

// ColumnTypeSpec declares the expected type of one column.
// Precision is the required number of fractional digits and is only
// meaningful for KindDecimal.
type ColumnTypeSpec struct {
	Column    string `json:"column" yaml:"column"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Precision int    `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// ParseColumnTypeSpec parses the "<Kind>[,<precision>]" form used in
// dataset configuration, e.g. "DecimalType,2" or "StringType".
func ParseColumnTypeSpec(column, raw string) (ColumnTypeSpec, error) {
	if strings.TrimSpace(column) == "" {
		return ColumnTypeSpec{}, fmt.Errorf("column name is empty")
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	spec := ColumnTypeSpec{Column: column, Kind: Kind(parts[0])}
	switch spec.Kind {
	case KindDecimal:
		if len(parts) != 2 || parts[1] == "" {
			return ColumnTypeSpec{}, fmt.Errorf("column %q: %s requires a precision, got %q", column, KindDecimal, raw)
		}
		p, err := strconv.Atoi(parts[1])
		if err != nil || p < 0 {
			return ColumnTypeSpec{}, fmt.Errorf("column %q: invalid precision %q", column, parts[1])
		}
		spec.Precision = p
	case KindString, KindStringArray:
		if len(parts) != 1 {
			return ColumnTypeSpec{}, fmt.Errorf("column %q: %s takes no precision, got %q", column, spec.Kind, raw)
		}
	default:
		return ColumnTypeSpec{}, fmt.Errorf("column %q: unknown type %q", column, parts[0])
	}
	return spec, nil
}

// String renders the spec in its configuration form.
func (s ColumnTypeSpec) String() string {
	if s.Kind == KindDecimal {
		return fmt.Sprintf("%s,%d", s.Kind, s.Precision)
	}
	return string(s.Kind)
}
