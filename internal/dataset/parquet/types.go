package parquet

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/leapstack-labs/zonehop/internal/dataset"
	pq "github.com/xitongsys/parquet-go/parquet"
)

const julianUnixEpoch = 2440588

func leafType(el *pq.SchemaElement) dataset.LogicalType {
	if el.IsSetConvertedType() {
		switch el.GetConvertedType() {
		case pq.ConvertedType_DECIMAL:
			return dataset.LogicalType{Kind: dataset.TypeDecimal, Precision: int(el.GetPrecision()), Scale: int(el.GetScale())}
		case pq.ConvertedType_UTF8, pq.ConvertedType_ENUM, pq.ConvertedType_JSON:
			return dataset.LogicalType{Kind: dataset.TypeText}
		case pq.ConvertedType_DATE:
			return dataset.LogicalType{Kind: dataset.TypeDate}
		case pq.ConvertedType_TIMESTAMP_MILLIS, pq.ConvertedType_TIMESTAMP_MICROS:
			return dataset.LogicalType{Kind: dataset.TypeTimestamp}
		}
	}
	if lt := el.GetLogicalType(); lt != nil {
		switch {
		case lt.IsSetDECIMAL():
			return dataset.LogicalType{Kind: dataset.TypeDecimal, Precision: int(lt.DECIMAL.Precision), Scale: int(lt.DECIMAL.Scale)}
		case lt.IsSetSTRING(), lt.IsSetENUM(), lt.IsSetJSON():
			return dataset.LogicalType{Kind: dataset.TypeText}
		case lt.IsSetDATE():
			return dataset.LogicalType{Kind: dataset.TypeDate}
		}
	}

	switch el.GetType() {
	case pq.Type_BOOLEAN:
		return dataset.LogicalType{Kind: dataset.TypeBoolean}
	case pq.Type_INT32, pq.Type_INT64:
		return dataset.LogicalType{Kind: dataset.TypeInteger}
	case pq.Type_INT96:
		return dataset.LogicalType{Kind: dataset.TypeTimestamp}
	case pq.Type_FLOAT, pq.Type_DOUBLE:
		return dataset.LogicalType{Kind: dataset.TypeFloat}
	case pq.Type_BYTE_ARRAY, pq.Type_FIXED_LEN_BYTE_ARRAY:
		return dataset.LogicalType{Kind: dataset.TypeBinary}
	}
	return dataset.LogicalType{Kind: dataset.TypeUnknown}
}

// convertValue maps a parquet-go physical value onto the dataset value set.
func convertValue(v any, t dataset.LogicalType, el *pq.SchemaElement) any {
	switch t.Kind {
	case dataset.TypeDecimal:
		return decimalValue(v, t.Scale)
	case dataset.TypeBinary:
		if s, ok := v.(string); ok {
			return []byte(s)
		}
	case dataset.TypeDate:
		if d, ok := v.(int32); ok {
			return time.Unix(int64(d)*86400, 0).UTC()
		}
	case dataset.TypeTimestamp:
		return timestampValue(v, el)
	}
	return dataset.NormalizeValue(v)
}

func decimalValue(v any, scale int) any {
	switch x := v.(type) {
	case int32:
		return dataset.NewDecimal(int64(x), scale)
	case int64:
		return dataset.NewDecimal(x, scale)
	case string:
		return dataset.Decimal{Unscaled: twosComplement([]byte(x)), Scale: scale}
	}
	return dataset.NormalizeValue(v)
}

// twosComplement decodes a big-endian two's complement integer.
func twosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}

func timestampValue(v any, el *pq.SchemaElement) any {
	switch x := v.(type) {
	case int64:
		if el.IsSetConvertedType() && el.GetConvertedType() == pq.ConvertedType_TIMESTAMP_MILLIS {
			return time.UnixMilli(x).UTC()
		}
		return time.UnixMicro(x).UTC()
	case string:
		// INT96: 8 bytes of nanoseconds in the day, then 4 bytes of Julian day.
		if len(x) != 12 {
			return x
		}
		b := []byte(x)
		nanos := int64(binary.LittleEndian.Uint64(b[:8]))
		day := int64(binary.LittleEndian.Uint32(b[8:]))
		return time.Unix((day-julianUnixEpoch)*86400, nanos).UTC()
	}
	return dataset.NormalizeValue(v)
}
