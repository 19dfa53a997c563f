// Package batch connects Arrow record batches to the filter evaluator.
//
// A View exposes every row of a batch as a filter.Record, Build turns
// decoded records back into a batch for a fixed schema, and Select and
// NewFilterReader drop the rows a filter rejects.
package batch

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/recordfilter/filter"
)

// View indexes the columns of a record batch by name.
// The batch must outlive the view.
type View struct {
	rec   arrow.RecordBatch
	index map[string]int
}

// NewView creates a view over rec.
func NewView(rec arrow.RecordBatch) *View {
	schema := rec.Schema()
	index := make(map[string]int, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		name := schema.Field(i).Name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return &View{rec: rec, index: index}
}

// NumRows returns the number of rows in the underlying batch.
func (v *View) NumRows() int {
	return int(v.rec.NumRows())
}

// Row returns the i-th row.
func (v *View) Row(i int) Row {
	return Row{view: v, idx: i}
}

// Row is one row of a View. It implements filter.Record.
type Row struct {
	view *View
	idx  int
}

var _ filter.Record = Row{}

// Get returns the value of the named column. A missing column reports
// false; a null cell is a present null value.
func (r Row) Get(field string) (filter.Value, bool) {
	col, ok := r.view.index[field]
	if !ok {
		return filter.Value{}, false
	}
	return ValueAt(r.view.rec.Column(col), r.idx), true
}

// Value returns the whole row as an object value.
func (r Row) Value() filter.Value {
	fields := make(map[string]filter.Value, len(r.view.index))
	for name, col := range r.view.index {
		fields[name] = ValueAt(r.view.rec.Column(col), r.idx)
	}
	return filter.Object(fields)
}

// Values converts every row of rec to an object value.
func Values(rec arrow.RecordBatch) []filter.Value {
	v := NewView(rec)
	out := make([]filter.Value, v.NumRows())
	for i := range out {
		out[i] = v.Row(i).Value()
	}
	return out
}

// ValueAt converts the i-th element of arr.
//
// Signed and unsigned integers become integral numbers (unsigned values
// above MaxInt64 become floats), floating point columns always stay
// floats, lists become arrays and structs become objects. Types without
// a direct mapping are rendered with ValueStr.
func ValueAt(arr arrow.Array, i int) filter.Value {
	if arr.IsNull(i) {
		return filter.Null()
	}

	switch a := arr.(type) {
	case *array.Boolean:
		return filter.Bool(a.Value(i))
	case *array.Int8:
		return filter.Int(int64(a.Value(i)))
	case *array.Int16:
		return filter.Int(int64(a.Value(i)))
	case *array.Int32:
		return filter.Int(int64(a.Value(i)))
	case *array.Int64:
		return filter.Int(a.Value(i))
	case *array.Uint8:
		return filter.Int(int64(a.Value(i)))
	case *array.Uint16:
		return filter.Int(int64(a.Value(i)))
	case *array.Uint32:
		return filter.Int(int64(a.Value(i)))
	case *array.Uint64:
		u := a.Value(i)
		if u > math.MaxInt64 {
			return filter.Float(float64(u))
		}
		return filter.Int(int64(u))
	case *array.Float32:
		return filter.Float(float64(a.Value(i)))
	case *array.Float64:
		return filter.Float(a.Value(i))
	case *array.String:
		return filter.String(a.Value(i))
	case *array.LargeString:
		return filter.String(a.Value(i))
	case *array.Binary:
		return filter.String(string(a.Value(i)))
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValue(a.ListValues(), int(start), int(end))
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return listValue(a.ListValues(), int(start), int(end))
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		fields := make(map[string]filter.Value, a.NumField())
		for k := 0; k < a.NumField(); k++ {
			fields[st.Field(k).Name] = ValueAt(a.Field(k), i)
		}
		return filter.Object(fields)
	}
	return filter.String(arr.ValueStr(i))
}

func listValue(values arrow.Array, start, end int) filter.Value {
	items := make([]filter.Value, 0, end-start)
	for j := start; j < end; j++ {
		items = append(items, ValueAt(values, j))
	}
	return filter.Array(items...)
}
