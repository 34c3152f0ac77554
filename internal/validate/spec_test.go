package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnTypeSpec(t *testing.T) {
	tests := []struct {
		raw     string
		want    ColumnTypeSpec
		wantErr bool
	}{
		{raw: "DecimalType,2", want: ColumnTypeSpec{Column: "c", Kind: KindDecimal, Precision: 2}},
		{raw: " DecimalType , 0 ", want: ColumnTypeSpec{Column: "c", Kind: KindDecimal, Precision: 0}},
		{raw: "StringType", want: ColumnTypeSpec{Column: "c", Kind: KindString}},
		{raw: "ArrayType-StringType", want: ColumnTypeSpec{Column: "c", Kind: KindStringArray}},
		{raw: "DecimalType", wantErr: true},
		{raw: "DecimalType,", wantErr: true},
		{raw: "DecimalType,two", wantErr: true},
		{raw: "DecimalType,-1", wantErr: true},
		{raw: "DecimalType,2,3", wantErr: true},
		{raw: "StringType,2", wantErr: true},
		{raw: "IntegerType", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseColumnTypeSpec("c", tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Kind.Valid())

			again, err := ParseColumnTypeSpec("c", got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}

	_, err := ParseColumnTypeSpec(" ", "StringType")
	assert.Error(t, err)
}
