// Package httpapi exposes record filtering and the record store over a
// JSON REST API.
//
// Routes:
//
//	POST   /v1/parse                         parse a filter expression
//	POST   /v1/match                         evaluate a filter against one record
//	POST   /v1/tables/{table}/records        store one record or an array of records
//	GET    /v1/tables/{table}/records        query records (?filter=&limit=)
//	GET    /v1/tables/{table}/count          count records (?filter=)
//	GET    /v1/tables/{table}/records/{id}   fetch one record
//	DELETE /v1/tables/{table}/records/{id}   delete one record
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hugr-lab/recordfilter/auth"
	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/store"
)

const (
	// DefaultLimit caps query results when the request has no limit.
	DefaultLimit = 1000

	// MaxBodyBytes is the largest accepted request body.
	MaxBodyBytes = 8 << 20
)

var (
	errUnknownTable = errors.New("unknown table")
	errBadRequest   = errors.New("bad request")
)

// Handler serves the REST API over a record store.
type Handler struct {
	store  *store.Store
	tables map[string]bool
	logger *slog.Logger
}

// NewHandler creates a handler over st. If tables is non-empty, only the
// named tables are reachable and every other name answers 404.
// A nil logger uses slog.Default().
func NewHandler(st *store.Store, tables []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{store: st, logger: logger}
	if len(tables) > 0 {
		h.tables = make(map[string]bool, len(tables))
		for _, t := range tables {
			h.tables[t] = true
		}
	}
	return h
}

// RegisterRoutes mounts the API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/parse", h.Parse)
	r.Post("/v1/match", h.Match)
	r.Route("/v1/tables/{table}", func(r chi.Router) {
		r.Post("/records", h.InsertRecords)
		r.Get("/records", h.QueryRecords)
		r.Get("/count", h.CountRecords)
		r.Get("/records/{id}", h.GetRecord)
		r.Delete("/records/{id}", h.DeleteRecord)
	})
}

// NewRouter builds the complete HTTP handler: request ids, panic
// recovery, optional bearer authentication and the API routes.
func NewRouter(h *Handler, authenticator auth.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if authenticator != nil {
		r.Use(auth.Middleware(authenticator))
	}
	h.RegisterRoutes(r)
	return r
}

// ClauseJSON is the JSON form of a filter.Clause. Absent attributes are
// null or omitted; Literal is a JSON string or integer.
type ClauseJSON struct {
	Field           *string `json:"field"`
	Op              string  `json:"op"`
	Literal         any     `json:"literal,omitempty"`
	ValueField      *string `json:"value_field,omitempty"`
	FieldMultiplier *int64  `json:"field_multiplier,omitempty"`
	ValueMultiplier *int64  `json:"value_multiplier,omitempty"`
}

// NewClauseJSON converts a clause to its JSON form.
func NewClauseJSON(c filter.Clause) ClauseJSON {
	out := ClauseJSON{
		Field:           c.Field,
		Op:              string(c.Op),
		ValueField:      c.ValueField,
		FieldMultiplier: c.FieldMultiplier,
		ValueMultiplier: c.ValueMultiplier,
	}
	if c.Literal != nil {
		if i, ok := c.Literal.AsInt64(); ok {
			out.Literal = i
		} else if s, ok := c.Literal.AsString(); ok {
			out.Literal = s
		}
	}
	return out
}

type ParseRequest struct {
	Filter string `json:"filter"`
}

type ParseResponse struct {
	Clauses   []ClauseJSON `json:"clauses"`
	Canonical string       `json:"canonical"`
}

type MatchRequest struct {
	Filter string          `json:"filter"`
	Record json.RawMessage `json:"record"`
}

type MatchResponse struct {
	Match bool `json:"match"`
}

type InsertResponse struct {
	IDs []uuid.UUID `json:"ids"`
}

type RecordJSON struct {
	ID     uuid.UUID    `json:"id"`
	Record filter.Value `json:"record"`
}

type QueryResponse struct {
	Data  []RecordJSON `json:"data"`
	Count int          `json:"count"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Parse answers the clause list and canonical form of an expression.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := filter.Compile(req.Filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	clauses := f.Clauses()
	resp := ParseResponse{
		Clauses:   make([]ClauseJSON, len(clauses)),
		Canonical: f.String(),
	}
	for i, c := range clauses {
		resp.Clauses[i] = NewClauseJSON(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Match evaluates a filter against the record in the request.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(req.Record) == 0 {
		h.writeError(w, r, fmt.Errorf("%w: record is required", errBadRequest))
		return
	}
	f, err := filter.Compile(req.Filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := filter.ParseJSON(req.Record)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: record: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Match: f.Match(rec)})
}

// InsertRecords stores a JSON object, or each object of a JSON array.
func (h *Handler) InsertRecords(w http.ResponseWriter, r *http.Request) {
	table, err := h.table(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	v, err := filter.ParseJSON(body)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return
	}

	recs := []filter.Value{v}
	if v.Kind() == filter.KindArray {
		recs = make([]filter.Value, v.Len())
		for i := range recs {
			recs[i], _ = v.Index(i)
		}
	}

	ids, err := h.store.PutBatch(r.Context(), table, recs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Debug("Records inserted", "table", table, "count", len(ids))
	writeJSON(w, http.StatusCreated, InsertResponse{IDs: ids})
}

// QueryRecords returns the records matching ?filter=, at most ?limit=.
func (h *Handler) QueryRecords(w http.ResponseWriter, r *http.Request) {
	table, err := h.table(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entries, err := h.store.Query(r.Context(), table, f, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := QueryResponse{Data: make([]RecordJSON, len(entries)), Count: len(entries)}
	for i, e := range entries {
		resp.Data[i] = RecordJSON{ID: e.ID, Record: e.Record}
	}
	h.logger.Debug("Records queried", "table", table, "filter", f.String(), "count", len(entries))
	writeJSON(w, http.StatusOK, resp)
}

// CountRecords returns the number of records matching ?filter=.
func (h *Handler) CountRecords(w http.ResponseWriter, r *http.Request) {
	table, err := h.table(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.store.Count(r.Context(), table, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// GetRecord returns one record by id.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	table, id, err := h.tableAndID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.store.Get(r.Context(), table, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordJSON{ID: id, Record: rec})
}

// DeleteRecord removes one record by id.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	table, id, err := h.tableAndID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), table, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) table(r *http.Request) (string, error) {
	name := chi.URLParam(r, "table")
	if h.tables != nil && !h.tables[name] {
		return "", fmt.Errorf("%w: %s", errUnknownTable, name)
	}
	return name, nil
}

func (h *Handler) tableAndID(r *http.Request) (string, uuid.UUID, error) {
	table, err := h.table(r)
	if err != nil {
		return "", uuid.Nil, err
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: invalid record id: %v", errBadRequest, err)
	}
	return table, id, nil
}

func queryLimit(r *http.Request) (int64, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer, got %q", errBadRequest, s)
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, filter.ErrInvalidExpression),
		errors.Is(err, store.ErrInvalidTable),
		errors.Is(err, store.ErrNotObject):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownTable), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
