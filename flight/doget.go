package flight

import (
	"context"
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/recordfilter/batch"
	"github.com/hugr-lab/recordfilter/catalog"
	"github.com/hugr-lab/recordfilter/internal/recovery"
)

// DoGet streams the rows selected by a ticket as Arrow record batches.
//
// The handler:
//  1. Decodes the ticket and compiles its filter
//  2. Looks up the table in the catalog
//  3. Calls the table's Scan with the filter, projection and limit
//  4. Re-applies filter and limit unless the table filters exactly
//  5. Streams record batches using Arrow IPC format
//  6. Respects context cancellation
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoGet called", "ticket_size", len(ticket.GetTicket()))

	td, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		s.logger.Error("Failed to decode ticket", "error", err)
		return status.Errorf(codes.InvalidArgument, "%v", err)
	}
	scanOpts, err := td.ToScanOptions()
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "%v", err)
	}

	s.logger.Debug("DoGet request",
		"schema", td.Schema,
		"table", td.Table,
		"filter", td.Filter,
		"columns", td.Columns,
		"limit", td.Limit,
		"trace_id", TraceIDFromContext(ctx),
	)

	reader, readerSchema, err := s.executeTableScan(ctx, td, scanOpts)
	if err != nil {
		return err
	}
	defer reader.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(readerSchema), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	batchCount := 0
	totalRows := int64(0)

	for reader.Next() {
		select {
		case <-ctx.Done():
			s.logger.Debug("DoGet cancelled by client",
				"schema", td.Schema,
				"table", td.Table,
				"batches_sent", batchCount,
				"rows_sent", totalRows,
			)
			return status.Error(codes.Canceled, "request cancelled")
		default:
		}

		record := reader.RecordBatch()
		batchCount++
		totalRows += record.NumRows()

		if err := writer.Write(record); err != nil {
			s.logger.Error("Failed to write record batch",
				"schema", td.Schema,
				"table", td.Table,
				"batch", batchCount,
				"error", err,
			)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batchCount, err)
		}
	}

	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, context.Canceled) {
			return status.Error(codes.Canceled, "request cancelled")
		}
		s.logger.Error("RecordReader error during iteration",
			"schema", td.Schema,
			"table", td.Table,
			"batch", batchCount,
			"error", err,
		)
		return status.Errorf(codes.Internal, "scan error after batch %d: %v", batchCount, err)
	}

	s.logger.Debug("DoGet completed successfully",
		"schema", td.Schema,
		"table", td.Table,
		"batches_sent", batchCount,
		"total_rows", totalRows,
	)
	return nil
}

// executeTableScan runs the table scan and returns a reader yielding
// only the selected rows, with its schema.
func (s *Server) executeTableScan(ctx context.Context, td *TicketData, scanOpts *catalog.ScanOptions) (array.RecordReader, *arrow.Schema, error) {
	table, err := s.lookupTable(ctx, td.Schema, td.Table)
	if err != nil {
		return nil, nil, err
	}
	if err := checkColumns(table, td.Columns); err != nil {
		return nil, nil, status.Error(codes.InvalidArgument, err.Error())
	}

	wantSchema := table.ArrowSchema(td.Columns)
	if wantSchema == nil {
		s.logger.Error("Table returned nil Arrow schema",
			"schema", td.Schema,
			"table", td.Table,
		)
		return nil, nil, status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", td.Schema, td.Table)
	}

	// Tables that do not filter exactly are re-filtered here, which needs
	// the filter's columns even when the ticket projects them away.
	exact := false
	if et, ok := table.(catalog.ExactFilterTable); ok {
		exact = et.FiltersExactly()
	}
	projection := wantSchema
	if !exact && !coversFields(wantSchema, scanOpts.Filter.Fields()) {
		widened := *scanOpts
		widened.Columns = nil
		scanOpts = &widened
		wantSchema = table.ArrowSchema(nil)
	}

	reader, err := recovery.RecoverToValue(s.logger, "Scan", func() (array.RecordReader, error) {
		return table.Scan(ctx, scanOpts)
	})
	if err != nil {
		s.logger.Error("Table scan failed",
			"schema", td.Schema,
			"table", td.Table,
			"error", err,
		)
		return nil, nil, statusFromContext(ctx, codes.Internal, "table scan failed: %v", err)
	}
	if reader == nil {
		return nil, nil, status.Errorf(codes.Internal, "table %s.%s returned nil reader", td.Schema, td.Table)
	}

	if !wantSchema.Equal(reader.Schema()) {
		reader.Release()
		s.logger.Error("RecordReader schema does not match table schema",
			"schema", td.Schema,
			"table", td.Table,
			"table_schema_fields", wantSchema.NumFields(),
			"reader_schema_fields", reader.Schema().NumFields(),
		)
		return nil, nil, status.Errorf(codes.Internal,
			"schema mismatch: table has %d fields, reader has %d fields",
			wantSchema.NumFields(), reader.Schema().NumFields())
	}

	if exact {
		return reader, wantSchema, nil
	}

	s.logger.Debug("Applying filter to scan output",
		"schema", td.Schema,
		"table", td.Table,
		"filter", td.Filter,
	)
	fr := batch.NewFilterReader(s.allocator, reader, scanOpts.Filter, scanOpts.Limit)
	if projection != wantSchema {
		fr.WithProjection(projection)
	}
	return fr, projection, nil
}

func coversFields(schema *arrow.Schema, fields []string) bool {
	for _, name := range fields {
		if !schema.HasField(name) {
			return false
		}
	}
	return true
}
