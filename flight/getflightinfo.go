package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/recordfilter/catalog"
)

// GetFlightInfo returns the schema and ticket for a table query.
//
// Two descriptor forms are accepted:
//   - PATH [schema_name, table_name]: every row and column of the table.
//   - CMD holding ticket JSON (see TicketData): a filtered, projected and
//     limited read. The filter is parsed and the columns are checked
//     against the table before a ticket is issued.
//
// The returned schema is the projected table schema, which is what DoGet
// streams for the ticket.
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)

	s.logger.Debug("GetFlightInfo called",
		"type", desc.GetType(),
		"trace_id", TraceIDFromContext(ctx),
	)

	td, err := ticketFromDescriptor(desc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Debug("GetFlightInfo request",
		"schema", td.Schema,
		"table", td.Table,
		"filter", td.Filter,
		"limit", td.Limit,
	)

	table, err := s.lookupTable(ctx, td.Schema, td.Table)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(table, td.Columns); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	arrowSchema := table.ArrowSchema(td.Columns)
	if arrowSchema == nil {
		s.logger.Error("Table returned nil Arrow schema",
			"schema", td.Schema,
			"table", td.Table,
		)
		return nil, status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", td.Schema, td.Table)
	}

	ticket, err := EncodeTicket(*td)
	if err != nil {
		s.logger.Error("Failed to encode ticket",
			"schema", td.Schema,
			"table", td.Table,
			"error", err,
		)
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	info := &flight.FlightInfo{
		Schema:           flight.SerializeSchema(arrowSchema, s.allocator),
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{s.endpoint(ticket)},
		TotalRecords:     -1, // unknown until scan
		TotalBytes:       -1,
	}

	s.logger.Debug("GetFlightInfo successful",
		"schema", td.Schema,
		"table", td.Table,
		"num_fields", arrowSchema.NumFields(),
	)
	return info, nil
}

func ticketFromDescriptor(desc *flight.FlightDescriptor) (*TicketData, error) {
	switch desc.GetType() {
	case flight.DescriptorPATH:
		path := desc.GetPath()
		if len(path) != 2 {
			return nil, fmt.Errorf("%w: path must contain exactly 2 elements: [schema_name, table_name]", ErrInvalidDescriptor)
		}
		td := &TicketData{Schema: path[0], Table: path[1]}
		if err := td.Validate(); err != nil {
			return nil, err
		}
		return td, nil
	case flight.DescriptorCMD:
		return DecodeTicket(desc.GetCmd())
	}
	return nil, fmt.Errorf("%w: unsupported descriptor type %s", ErrInvalidDescriptor, desc.GetType())
}

// checkColumns reports the first requested column the table does not have.
func checkColumns(table catalog.Table, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	full := table.ArrowSchema(nil)
	if full == nil {
		return nil
	}
	for _, col := range columns {
		if !full.HasField(col) {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidTicket, col)
		}
	}
	return nil
}
