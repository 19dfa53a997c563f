// Package recordfilter serves filtered records over Apache Arrow Flight.
//
// Records are JSON-like values selected with a small filter language:
//
//	.status = 'open' AND 2*.qty >= .limit
//
// Each clause compares a record field with a literal or with another
// field, optionally scaling numeric operands by an integer multiplier.
// Clauses are AND-combined. See package filter for the parser and the
// evaluator.
//
// This package wires the pieces into a Flight server:
//   - Registering Flight service handlers on an existing grpc.Server
//   - Providing a fluent catalog builder API for schemas and tables
//   - Handling authentication with bearer tokens
//
// # Quick Start
//
//	st, _ := store.Open("/var/lib/records", nil)
//	orders, _ := store.NewTable(st, "orders", "", ordersSchema, nil)
//
//	cat, _ := recordfilter.NewCatalogBuilder().
//	    Schema("main").
//	        Table(orders).
//	    Build()
//
//	grpcServer := grpc.NewServer()
//	recordfilter.NewServer(grpcServer, recordfilter.ServerConfig{Catalog: cat})
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
//
// A client then reads selected rows with a ticket:
//
//	{"schema":"main","table":"orders","filter":".status = 'open'","limit":100}
//
// # Architecture
//
//   - filter: expression parser, record evaluator and SQL encoder
//   - batch: Arrow row views, batch building and batch filtering
//   - catalog: Catalog, Schema and Table interfaces plus a static catalog
//   - store: pebble-backed record tables that scan with a filter
//   - flight: ListFlights, GetFlightInfo and DoGet handlers
//   - httpapi: REST endpoints for parsing, matching and record storage
//
// # Server Lifecycle
//
// The package registers Flight service handlers on a user-provided
// grpc.Server but does NOT manage server lifecycle (start/stop/listen).
// The cmd/recordfilter binary shows a complete setup with graceful
// shutdown.
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// RecordReaders returned by scan functions and on batches they build.
package recordfilter
