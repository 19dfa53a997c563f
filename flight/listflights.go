package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListFlights sends one FlightInfo per catalog table, ordered by schema
// and table name. Each carries a PATH descriptor [schema, table], the
// table's Arrow schema and an unfiltered ticket.
//
// A non-empty criteria expression is read as a schema name and limits
// the listing to that schema.
func (s *Server) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	only := string(criteria.GetExpression())

	s.logger.Debug("ListFlights called",
		"schema", only,
		"trace_id", TraceIDFromContext(ctx),
	)

	schemas, err := s.catalog.Schemas(ctx)
	if err != nil {
		s.logger.Error("Failed to list schemas", "error", err)
		return statusFromContext(ctx, codes.Internal, "failed to list schemas: %v", err)
	}

	sent := 0
	for _, schema := range schemas {
		if only != "" && schema.Name() != only {
			continue
		}
		tables, err := schema.Tables(ctx)
		if err != nil {
			s.logger.Error("Failed to list tables",
				"schema", schema.Name(),
				"error", err,
			)
			return statusFromContext(ctx, codes.Internal, "failed to list tables of %s: %v", schema.Name(), err)
		}

		for _, table := range tables {
			arrowSchema := table.ArrowSchema(nil)
			if arrowSchema == nil {
				s.logger.Error("Table returned nil Arrow schema",
					"schema", schema.Name(),
					"table", table.Name(),
				)
				continue
			}
			ticket, err := EncodeTicket(TicketData{Schema: schema.Name(), Table: table.Name()})
			if err != nil {
				return status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
			}

			info := &flight.FlightInfo{
				Schema: flight.SerializeSchema(arrowSchema, s.allocator),
				FlightDescriptor: &flight.FlightDescriptor{
					Type: flight.DescriptorPATH,
					Path: []string{schema.Name(), table.Name()},
				},
				Endpoint:     []*flight.FlightEndpoint{s.endpoint(ticket)},
				TotalRecords: -1,
				TotalBytes:   -1,
			}
			if err := stream.Send(info); err != nil {
				s.logger.Error("Failed to send FlightInfo", "error", err)
				return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
			}
			sent++
		}
	}

	s.logger.Debug("ListFlights completed", "flights", sent)
	return nil
}
