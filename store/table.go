package store

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recordfilter/batch"
	"github.com/hugr-lab/recordfilter/catalog"
	"github.com/hugr-lab/recordfilter/filter"
)

// DefaultBatchSize is the number of rows per batch when ScanOptions
// carries no hint.
const DefaultBatchSize = 1024

// Table exposes one store table as a catalog table with a fixed Arrow
// schema. Scans evaluate the filter against the stored records, so the
// result is exact and Table implements catalog.ExactFilterTable.
type Table struct {
	store   *Store
	name    string
	comment string
	schema  *arrow.Schema
	mem     memory.Allocator
}

var _ catalog.ExactFilterTable = (*Table)(nil)

// NewTable creates a catalog view of the named store table.
// If mem is nil, memory.DefaultAllocator is used.
func NewTable(s *Store, name, comment string, schema *arrow.Schema, mem memory.Allocator) (*Table, error) {
	if err := validateTable(name); err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("table %s has nil schema", name)
	}
	if err := batch.CheckSchema(schema); err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Table{store: s, name: name, comment: comment, schema: schema, mem: mem}, nil
}

// Name implements catalog.Table.
func (t *Table) Name() string { return t.name }

// Comment implements catalog.Table.
func (t *Table) Comment() string { return t.comment }

// ArrowSchema implements catalog.Table.
func (t *Table) ArrowSchema(columns []string) *arrow.Schema {
	return catalog.ProjectSchema(t.schema, columns)
}

// FiltersExactly implements catalog.ExactFilterTable.
func (t *Table) FiltersExactly() bool { return true }

// Scan implements catalog.Table. Matching records are converted to
// batches of opts.BatchSize rows.
func (t *Table) Scan(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
	if opts == nil {
		opts = &catalog.ScanOptions{}
	}
	schema := t.ArrowSchema(opts.Columns)
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var (
		batches []arrow.RecordBatch
		pending = make([]filter.Value, 0, size)
	)
	release := func() {
		for _, b := range batches {
			b.Release()
		}
	}
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		rec, err := batch.Build(t.mem, schema, pending)
		if err != nil {
			return err
		}
		batches = append(batches, rec)
		pending = pending[:0]
		return nil
	}

	err := t.store.Scan(ctx, t.name, opts.Filter, opts.Limit, func(e Entry) error {
		pending = append(pending, e.Record)
		if len(pending) == size {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		release()
		return nil, fmt.Errorf("scan table %s: %w", t.name, err)
	}

	reader, err := array.NewRecordReader(schema, batches)
	release()
	if err != nil {
		return nil, err
	}
	return reader, nil
}
