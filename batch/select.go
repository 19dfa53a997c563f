package batch

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recordfilter/filter"
)

// Select returns a new batch holding the rows of rec that f accepts,
// keeping at most limit rows when limit > 0. A nil filter keeps every row.
//
// Caller must Release the returned batch.
func Select(mem memory.Allocator, rec arrow.RecordBatch, f *filter.Filter, limit int64) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	runs := matchingRuns(rec, f, limit)
	return takeRuns(mem, rec, runs)
}

// run is a half-open range of row indexes.
type run struct{ start, end int }

func matchingRuns(rec arrow.RecordBatch, f *filter.Filter, limit int64) []run {
	view := NewView(rec)
	var (
		runs  []run
		taken int64
	)
	for i := 0; i < view.NumRows(); i++ {
		if limit > 0 && taken >= limit {
			break
		}
		if !f.Match(view.Row(i)) {
			continue
		}
		taken++
		if n := len(runs); n > 0 && runs[n-1].end == i {
			runs[n-1].end++
		} else {
			runs = append(runs, run{i, i + 1})
		}
	}
	return runs
}

// takeRuns copies the row ranges of rec into a new batch.
func takeRuns(mem memory.Allocator, rec arrow.RecordBatch, runs []run) (arrow.RecordBatch, error) {
	var rows int64
	for _, r := range runs {
		rows += int64(r.end - r.start)
	}

	// whole batch selected
	if len(runs) == 1 && rows == rec.NumRows() {
		rec.Retain()
		return rec, nil
	}

	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := range cols {
		col := rec.Column(i)
		if len(runs) == 0 {
			cols[i] = array.MakeArrayOfNull(mem, col.DataType(), 0)
			continue
		}
		slices := make([]arrow.Array, len(runs))
		for j, r := range runs {
			slices[j] = array.NewSlice(col, int64(r.start), int64(r.end))
		}
		merged, err := array.Concatenate(slices, mem)
		for _, s := range slices {
			s.Release()
		}
		if err != nil {
			return nil, fmt.Errorf("concatenate column %s: %w", rec.ColumnName(i), err)
		}
		cols[i] = merged
	}

	return array.NewRecordBatch(rec.Schema(), cols, rows), nil
}

// FilterReader wraps a RecordReader and emits only the rows a filter
// accepts, stopping once limit rows have been produced.
type FilterReader struct {
	refCount atomic.Int64
	input    array.RecordReader
	filter   *filter.Filter
	limit    int64
	mem      memory.Allocator
	output   *arrow.Schema

	current arrow.RecordBatch
	emitted int64
	err     error
}

var _ array.RecordReader = (*FilterReader)(nil)

// NewFilterReader creates a reader over input. A limit <= 0 means no
// limit. The reader takes ownership of input and releases it.
func NewFilterReader(mem memory.Allocator, input array.RecordReader, f *filter.Filter, limit int64) *FilterReader {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	r := &FilterReader{
		input:  input,
		filter: f,
		limit:  limit,
		mem:    mem,
	}
	r.refCount.Store(1)
	return r
}

// WithProjection makes the reader emit only the columns of schema,
// looked up by name in the input batches. Filtering still sees every
// input column. It must be called before the first Next.
func (r *FilterReader) WithProjection(schema *arrow.Schema) *FilterReader {
	r.output = schema
	return r
}

// Schema returns the projection schema, or the schema of the wrapped
// reader when there is none.
func (r *FilterReader) Schema() *arrow.Schema {
	if r.output != nil {
		return r.output
	}
	return r.input.Schema()
}

// Next advances to the next non-empty filtered batch.
func (r *FilterReader) Next() bool {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	if r.err != nil {
		return false
	}

	for r.limit <= 0 || r.emitted < r.limit {
		if !r.input.Next() {
			return false
		}
		in := r.input.RecordBatch()

		remaining := int64(0)
		if r.limit > 0 {
			remaining = r.limit - r.emitted
		}
		out, err := Select(r.mem, in, r.filter, remaining)
		if err != nil {
			r.err = err
			return false
		}
		if out.NumRows() == 0 {
			out.Release()
			continue
		}
		if r.output != nil {
			projected, err := Project(out, r.output)
			out.Release()
			if err != nil {
				r.err = err
				return false
			}
			out = projected
		}

		r.emitted += out.NumRows()
		r.current = out
		return true
	}
	return false
}

// RecordBatch returns the current batch. It is valid until the next call
// to Next.
func (r *FilterReader) RecordBatch() arrow.RecordBatch {
	return r.current
}

// Record returns the current batch.
//
// Deprecated: Use RecordBatch.
func (r *FilterReader) Record() arrow.RecordBatch {
	return r.current
}

// Emitted returns the number of rows produced so far.
func (r *FilterReader) Emitted() int64 {
	return r.emitted
}

// Err returns the first error from filtering or from the wrapped reader.
func (r *FilterReader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.input.Err()
}

// Retain increases the reference count.
func (r *FilterReader) Retain() {
	r.refCount.Add(1)
}

// Release decreases the reference count and frees the current batch and
// the wrapped reader when it reaches zero.
func (r *FilterReader) Release() {
	if r.refCount.Add(-1) != 0 {
		return
	}
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	r.input.Release()
}

// Project returns a batch holding the columns of schema taken by name
// from rec. Caller must Release the returned batch.
func Project(rec arrow.RecordBatch, schema *arrow.Schema) (arrow.RecordBatch, error) {
	cols := make([]arrow.Array, schema.NumFields())
	for i, f := range schema.Fields() {
		idx := rec.Schema().FieldIndices(f.Name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("project: column %s not in batch", f.Name)
		}
		col := rec.Column(idx[0])
		if !arrow.TypeEqual(col.DataType(), f.Type) {
			return nil, fmt.Errorf("project: column %s has type %s, want %s", f.Name, col.DataType(), f.Type)
		}
		cols[i] = col
	}
	return array.NewRecordBatch(schema, cols, rec.NumRows()), nil
}
