// Package sqltable serves a SQL database table as a catalog table,
// pushing record filters down as WHERE clauses.
//
// The pushed-down condition may select more rows than the filter
// accepts (see filter.Encoder), so a Table is not exact: the Flight
// server re-applies the filter to the rows it returns. Limits are never
// pushed down for the same reason.
package sqltable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

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

// Options configures a Table.
type Options struct {
	// Encoder renders the filter as SQL. Nil uses a DuckDB encoder
	// without column mapping.
	Encoder filter.Encoder

	// Allocator for built batches. Nil uses memory.DefaultAllocator.
	Allocator memory.Allocator

	// Logger for generated queries. Nil uses slog.Default().
	Logger *slog.Logger
}

// Table is a catalog.Table reading rows from a SQL table.
type Table struct {
	db      *sql.DB
	name    string
	source  string
	comment string
	schema  *arrow.Schema
	encoder filter.Encoder
	mem     memory.Allocator
	logger  *slog.Logger
}

var _ catalog.Table = (*Table)(nil)

// New creates a table named name that reads from the SQL table or view
// source. Column names of schema must match source columns.
func New(db *sql.DB, name, source, comment string, schema *arrow.Schema, opts *Options) (*Table, error) {
	if db == nil {
		return nil, errors.New("sqltable: nil database")
	}
	if name == "" || source == "" {
		return nil, errors.New("sqltable: name and source are required")
	}
	if schema == nil || schema.NumFields() == 0 {
		return nil, fmt.Errorf("sqltable: table %s has no columns", name)
	}
	if err := batch.CheckSchema(schema); err != nil {
		return nil, fmt.Errorf("sqltable: table %s: %w", name, err)
	}
	if opts == nil {
		opts = &Options{}
	}
	t := &Table{
		db:      db,
		name:    name,
		source:  source,
		comment: comment,
		schema:  schema,
		encoder: opts.Encoder,
		mem:     opts.Allocator,
		logger:  opts.Logger,
	}
	if t.encoder == nil {
		t.encoder = filter.NewDuckDBEncoder(nil)
	}
	if t.mem == nil {
		t.mem = memory.DefaultAllocator
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t, nil
}

// Name implements catalog.Table.
func (t *Table) Name() string { return t.name }

// Comment implements catalog.Table.
func (t *Table) Comment() string { return t.comment }

// ArrowSchema implements catalog.Table.
func (t *Table) ArrowSchema(columns []string) *arrow.Schema {
	return catalog.ProjectSchema(t.schema, columns)
}

// Query returns the SELECT statement a scan with opts runs.
func (t *Table) Query(opts *catalog.ScanOptions) string {
	if opts == nil {
		opts = &catalog.ScanOptions{}
	}
	schema := t.ArrowSchema(opts.Columns)

	cols := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		cols[i] = quoteIdent(f.Name)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(t.source)
	if where := t.encoder.EncodeFilter(opts.Filter); where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	return b.String()
}

// Scan implements catalog.Table.
func (t *Table) Scan(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
	if opts == nil {
		opts = &catalog.ScanOptions{}
	}
	schema := t.ArrowSchema(opts.Columns)
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	query := t.Query(opts)
	t.logger.Debug("SQL table scan", "table", t.name, "filter", opts.Filter.String(), "sql", query)

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", t.name, err)
	}
	defer rows.Close()

	var (
		batches []arrow.RecordBatch
		pending = make([]filter.Value, 0, size)
		dest    = make([]any, schema.NumFields())
		ptrs    = make([]any, schema.NumFields())
	)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
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

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			release()
			return nil, fmt.Errorf("scan row of %s: %w", t.name, err)
		}
		fields := make(map[string]filter.Value, len(dest))
		for i, f := range schema.Fields() {
			v, err := filter.FromAny(dest[i])
			if err != nil {
				release()
				return nil, fmt.Errorf("column %s of %s: %w", f.Name, t.name, err)
			}
			fields[f.Name] = v
		}
		pending = append(pending, filter.Object(fields))
		if len(pending) == size {
			if err := flush(); err != nil {
				release()
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		release()
		return nil, fmt.Errorf("read table %s: %w", t.name, err)
	}
	if err := flush(); err != nil {
		release()
		return nil, err
	}

	reader, err := array.NewRecordReader(schema, batches)
	release()
	if err != nil {
		return nil, err
	}
	return reader, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
