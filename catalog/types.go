package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/recordfilter/filter"
)

// ScanOptions provides options for table scans.
type ScanOptions struct {
	// Columns to return. If nil/empty, return all columns.
	Columns []string

	// Filter is the compiled record filter.
	// If nil, no filtering (return all rows).
	// Tables MAY ignore it unless they implement ExactFilterTable.
	Filter *filter.Filter

	// Limit is maximum rows to return.
	// If 0 or negative, no limit.
	Limit int64

	// BatchSize is hint for RecordReader batch size.
	// If 0, implementation chooses default.
	BatchSize int
}

// ScanFunc is a function type for table data retrieval.
type ScanFunc func(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
