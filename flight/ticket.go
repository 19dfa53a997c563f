package flight

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/recordfilter/catalog"
	"github.com/hugr-lab/recordfilter/filter"
)

// TicketData represents the decoded content of a Flight ticket.
// Tickets are JSON objects naming the table to read and the rows to
// return. The same JSON is accepted as a CMD descriptor by GetFlightInfo.
type TicketData struct {
	// Schema is the schema name (e.g., "main").
	Schema string `json:"schema"`

	// Table is the table name (e.g., "orders").
	Table string `json:"table"`

	// Filter is a record filter expression, e.g. ".status = 'paid' AND .total >= 100".
	// Empty selects every row.
	Filter string `json:"filter,omitempty"`

	// Columns to project (optional, nil means all columns).
	Columns []string `json:"columns,omitempty"`

	// Limit is the maximum number of rows to return. Zero means no limit.
	Limit int64 `json:"limit,omitempty"`
}

// Validate checks the required names, the limit and the filter syntax.
func (td *TicketData) Validate() error {
	if td.Schema == "" {
		return fmt.Errorf("%w: schema name cannot be empty", ErrInvalidTicket)
	}
	if td.Table == "" {
		return fmt.Errorf("%w: table name cannot be empty", ErrInvalidTicket)
	}
	if td.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative, got %d", ErrInvalidTicket, td.Limit)
	}
	if _, err := filter.Parse(td.Filter); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	return nil
}

// CompileFilter parses the ticket's filter expression.
func (td *TicketData) CompileFilter() (*filter.Filter, error) {
	f, err := filter.Compile(td.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	return f, nil
}

// ToScanOptions converts the ticket to scan options carrying the
// compiled filter.
func (td *TicketData) ToScanOptions() (*catalog.ScanOptions, error) {
	f, err := td.CompileFilter()
	if err != nil {
		return nil, err
	}
	return &catalog.ScanOptions{
		Columns: td.Columns,
		Filter:  f,
		Limit:   td.Limit,
	}, nil
}

// EncodeTicket validates td and encodes it as an opaque ticket.
func EncodeTicket(td TicketData) ([]byte, error) {
	if err := td.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(td)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses and validates an opaque ticket.
// Every error wraps ErrInvalidTicket.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	if len(ticketBytes) == 0 {
		return nil, fmt.Errorf("%w: ticket cannot be empty", ErrInvalidTicket)
	}

	var ticket TicketData
	if err := json.Unmarshal(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	if err := ticket.Validate(); err != nil {
		return nil, err
	}
	return &ticket, nil
}
