package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/recordfilter/catalog"
)

var (
	// ErrInvalidTicket is wrapped by every DecodeTicket and Validate error.
	ErrInvalidTicket = errors.New("invalid ticket")

	// ErrInvalidDescriptor is returned for descriptors GetFlightInfo cannot route.
	ErrInvalidDescriptor = errors.New("invalid flight descriptor")
)

// lookupTable resolves schemaName.tableName in the catalog and converts
// failures to gRPC status errors.
func (s *Server) lookupTable(ctx context.Context, schemaName, tableName string) (catalog.Table, error) {
	schema, err := s.catalog.Schema(ctx, schemaName)
	if err != nil {
		s.logger.Error("Failed to get schema from catalog",
			"schema", schemaName,
			"error", err,
		)
		return nil, statusFromContext(ctx, codes.Internal, "failed to get schema: %v", err)
	}
	if schema == nil {
		return nil, status.Errorf(codes.NotFound, "schema not found: %s", schemaName)
	}

	table, err := schema.Table(ctx, tableName)
	if err != nil {
		s.logger.Error("Failed to get table from schema",
			"schema", schemaName,
			"table", tableName,
			"error", err,
		)
		return nil, statusFromContext(ctx, codes.Internal, "failed to get table: %v", err)
	}
	if table == nil {
		return nil, status.Errorf(codes.NotFound, "table not found: %s.%s", schemaName, tableName)
	}
	return table, nil
}

// statusFromContext reports Canceled or DeadlineExceeded when ctx is
// done and the given code otherwise.
func statusFromContext(ctx context.Context, code codes.Code, format string, args ...any) error {
	switch ctx.Err() {
	case context.Canceled:
		return status.Error(codes.Canceled, "request cancelled")
	case context.DeadlineExceeded:
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	}
	return status.Errorf(code, format, args...)
}
