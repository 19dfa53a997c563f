package batch

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recordfilter/filter"
)

// ErrUnsupportedType is returned for column types Build cannot fill.
var ErrUnsupportedType = errors.New("unsupported column type")

// ColumnType maps a column type name ("int64", "float64", "string",
// "bool") to its Arrow data type.
func ColumnType(name string) (arrow.DataType, error) {
	switch name {
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "string":
		return arrow.BinaryTypes.String, nil
	case "bool":
		return arrow.FixedWidthTypes.Boolean, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
}

// Build converts records into a batch with the given schema. Each column
// is filled from the record field of the same name.
//
// Missing fields and values that do not fit the column type are stored
// as nulls: int64 columns take integral numbers only, float64 columns
// take any number, bool columns take booleans and string columns take
// strings or the JSON text of any other non-null value.
//
// Caller must Release the returned batch.
func Build(mem memory.Allocator, schema *arrow.Schema, records []filter.Value) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if err := CheckSchema(schema); err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()
	builder.Reserve(len(records))

	for _, rec := range records {
		for i, f := range schema.Fields() {
			v, ok := rec.Get(f.Name)
			if !ok || v.IsNull() {
				builder.Field(i).AppendNull()
				continue
			}
			if err := appendValue(builder.Field(i), v); err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Name, err)
			}
		}
	}

	return builder.NewRecordBatch(), nil
}

func appendValue(b array.Builder, v filter.Value) error {
	switch fb := b.(type) {
	case *array.Int64Builder:
		if i, ok := v.AsInt64(); ok {
			fb.Append(i)
			return nil
		}
	case *array.Float64Builder:
		if f, ok := v.AsFloat64(); ok {
			fb.Append(f)
			return nil
		}
	case *array.BooleanBuilder:
		if bv, ok := v.AsBool(); ok {
			fb.Append(bv)
			return nil
		}
	case *array.StringBuilder:
		if s, ok := v.AsString(); ok {
			fb.Append(s)
			return nil
		}
		data, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		fb.Append(string(data))
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, b.Type())
	}
	b.AppendNull()
	return nil
}

// CheckSchema reports an ErrUnsupportedType error for the first column
// Build cannot fill.
func CheckSchema(schema *arrow.Schema) error {
	for _, f := range schema.Fields() {
		if _, err := ColumnType(typeName(f.Type)); err != nil {
			return fmt.Errorf("column %s: %w", f.Name, err)
		}
	}
	return nil
}

func typeName(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.INT64:
		return "int64"
	case arrow.FLOAT64:
		return "float64"
	case arrow.STRING:
		return "string"
	case arrow.BOOL:
		return "bool"
	}
	return dt.String()
}
