package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Table represents a queryable table with a fixed schema.
// Implementations MUST be goroutine-safe.
type Table interface {
	// Name returns the table name (e.g., "users", "orders").
	Name() string

	// Comment returns optional table documentation.
	Comment() string

	// ArrowSchema returns the table schema projected to columns.
	// If columns is nil or empty, returns the full schema.
	ArrowSchema(columns []string) *arrow.Schema

	// Scan returns the table rows as a RecordReader.
	// Implementation MUST respect ctx.Done().
	// Caller MUST call reader.Release() to free memory.
	// The reader schema MUST match ArrowSchema(opts.Columns).
	Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
}

// ExactFilterTable is implemented by tables whose Scan applies
// ScanOptions.Filter and ScanOptions.Limit exactly. Callers may skip
// re-filtering the rows such a table returns.
type ExactFilterTable interface {
	Table

	// FiltersExactly reports whether Scan output is already filtered
	// and limited.
	FiltersExactly() bool
}

// ProjectSchema returns a new schema with only the specified columns.
// If columns is nil or empty, returns the original schema. Unknown
// column names are skipped.
func ProjectSchema(schema *arrow.Schema, columns []string) *arrow.Schema {
	if len(columns) == 0 {
		return schema
	}

	colIndex := make(map[string]int, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		colIndex[schema.Field(i).Name] = i
	}

	fields := make([]arrow.Field, 0, len(columns))
	for _, col := range columns {
		if idx, ok := colIndex[col]; ok {
			fields = append(fields, schema.Field(idx))
		}
	}

	meta := schema.Metadata()
	return arrow.NewSchema(fields, &meta)
}
