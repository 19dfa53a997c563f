// Package flight serves catalog tables over Arrow Flight.
//
// ListFlights and GetFlightInfo describe tables, and DoGet streams their
// rows. A ticket carries the schema and table names together with a
// record filter expression, a column projection and a row limit, so a
// client can ask for exactly the rows it needs.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/recordfilter/catalog"
)

// Server implements the Flight service handlers.
// Embeds BaseFlightServer so unimplemented RPCs answer Unimplemented.
type Server struct {
	flight.BaseFlightServer

	catalog   catalog.Catalog
	allocator memory.Allocator
	logger    *slog.Logger
	address   string // public address advertised in FlightEndpoint locations
}

// NewServer creates a Flight server over cat.
// A nil allocator uses memory.DefaultAllocator and a nil logger uses
// slog.Default(). If address is empty, endpoints carry no location and
// clients reuse their current connection.
func NewServer(cat catalog.Catalog, allocator memory.Allocator, logger *slog.Logger, address string) *Server {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		catalog:   cat,
		allocator: allocator,
		logger:    logger,
		address:   address,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}

func (s *Server) endpoint(ticket []byte) *flight.FlightEndpoint {
	ep := &flight.FlightEndpoint{Ticket: &flight.Ticket{Ticket: ticket}}
	if s.address != "" {
		ep.Location = []*flight.Location{{Uri: "grpc://" + s.address}}
	}
	return ep
}
