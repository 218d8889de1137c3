package dataset

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow/go/v7/arrow"
	"github.com/apache/arrow/go/v7/arrow/array"
	"github.com/apache/arrow/go/v7/arrow/memory"
	"github.com/apache/arrow/go/v7/parquet"
	"github.com/apache/arrow/go/v7/parquet/pqarrow"
)

type parquetFormat struct{}

func (parquetFormat) Name() string { return "parquet" }

func (parquetFormat) CanDecode(filename string) bool {
	return hasExt(filename, ".parquet")
}

func (parquetFormat) Decode(name string, data []byte) (*Table, error) {
	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(data),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	ncol := int(tbl.NumCols())
	nrow := int(tbl.NumRows())
	columns := make([]string, ncol)
	rows := make([][]Value, nrow)
	for i := range rows {
		rows[i] = make([]Value, ncol)
	}
	for j := 0; j < ncol; j++ {
		columns[j] = schema.Field(j).Name
		offset := 0
		for _, chunk := range tbl.Column(j).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				rows[offset+i][j] = arrowValue(chunk, i)
			}
			offset += chunk.Len()
		}
	}
	return NewTable(name, columns, rows), nil
}

// arrowValue converts one element of an Arrow array. Unsupported types decode as null.
func arrowValue(arr arrow.Array, i int) Value {
	if arr.IsNull(i) {
		return NullValue()
	}
	switch a := arr.(type) {
	case *array.String:
		return StringValue(a.Value(i))
	case *array.Binary:
		return StringValue(string(a.Value(i)))
	case *array.Boolean:
		if a.Value(i) {
			return StringValue("True")
		}
		return StringValue("False")
	case *array.Float64:
		return NumberValue(a.Value(i))
	case *array.Float32:
		return NumberValue(float64(a.Value(i)))
	case *array.Int64:
		return NumberValue(float64(a.Value(i)))
	case *array.Int32:
		return NumberValue(float64(a.Value(i)))
	case *array.Int16:
		return NumberValue(float64(a.Value(i)))
	case *array.Int8:
		return NumberValue(float64(a.Value(i)))
	case *array.Uint64:
		return NumberValue(float64(a.Value(i)))
	case *array.Uint32:
		return NumberValue(float64(a.Value(i)))
	case *array.Uint16:
		return NumberValue(float64(a.Value(i)))
	case *array.Uint8:
		return NumberValue(float64(a.Value(i)))
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return TimeValue(timestampToTime(int64(a.Value(i)), unit))
	case *array.Date32:
		return TimeValue(time.Unix(int64(a.Value(i))*86400, 0).UTC())
	case *array.Date64:
		return TimeValue(time.UnixMilli(int64(a.Value(i))).UTC())
	default:
		return NullValue()
	}
}

func timestampToTime(v int64, unit arrow.TimeUnit) time.Time {
	switch unit {
	case arrow.Second:
		return time.Unix(v, 0).UTC()
	case arrow.Millisecond:
		return time.UnixMilli(v).UTC()
	case arrow.Microsecond:
		return time.UnixMicro(v).UTC()
	default:
		return time.Unix(0, v).UTC()
	}
}
