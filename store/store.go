// Package store persists JSON-like records in pebble and scans them with
// record filters.
//
// Records live in named tables under time-ordered UUIDv7 keys, so a scan
// returns them in insertion order. Each record is MessagePack-encoded and
// ZStandard-compressed.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/internal/msgpack"
	"github.com/hugr-lab/recordfilter/internal/serialize"
)

var (
	// ErrNotFound is returned when a record id does not exist in a table.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTable is returned for empty table names or names
	// containing a NUL byte.
	ErrInvalidTable = errors.New("invalid table name")

	// ErrNotObject is returned when storing a record that is not an object.
	ErrNotObject = errors.New("record must be an object")
)

// Options configures a Store.
type Options struct {
	// FS overrides the filesystem. Nil uses the OS filesystem;
	// vfs.NewMem() gives an in-memory store.
	FS vfs.FS

	// Sync makes every write wait for the WAL to reach stable storage.
	Sync bool

	// Logger for store events. Nil uses slog.Default().
	Logger *slog.Logger
}

// Entry is a stored record with its id.
type Entry struct {
	ID     uuid.UUID
	Record filter.Value
}

// Store is a pebble-backed record store. It is safe for concurrent use.
type Store struct {
	db           *pebble.DB
	compressor   *serialize.Compressor
	decompressor *serialize.Decompressor
	writeOpts    *pebble.WriteOptions
	logger       *slog.Logger
}

// Open opens (creating if needed) the store at path.
func Open(path string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := pebble.Open(path, &pebble.Options{FS: opts.FS})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	compressor, err := serialize.NewCompressor(zstd.SpeedDefault)
	if err != nil {
		db.Close()
		return nil, err
	}
	decompressor, err := serialize.NewDecompressor()
	if err != nil {
		compressor.Close()
		db.Close()
		return nil, err
	}

	writeOpts := pebble.NoSync
	if opts.Sync {
		writeOpts = pebble.Sync
	}

	logger.Debug("Record store opened", "path", path, "sync", opts.Sync)

	return &Store{
		db:           db,
		compressor:   compressor,
		decompressor: decompressor,
		writeOpts:    writeOpts,
		logger:       logger,
	}, nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	s.decompressor.Close()
	if err := s.compressor.Close(); err != nil {
		s.logger.Error("Failed to close compressor", "error", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close pebble: %w", err)
	}
	return nil
}

// Put stores rec in table and returns its new id.
func (s *Store) Put(ctx context.Context, table string, rec filter.Value) (uuid.UUID, error) {
	ids, err := s.PutBatch(ctx, table, []filter.Value{rec})
	if err != nil {
		return uuid.Nil, err
	}
	return ids[0], nil
}

// PutBatch stores all records atomically and returns their ids in order.
func (s *Store) PutBatch(ctx context.Context, table string, recs []filter.Value) ([]uuid.UUID, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := s.db.NewBatch()
	defer b.Close()

	ids := make([]uuid.UUID, len(recs))
	for i, rec := range recs {
		if rec.Kind() != filter.KindObject {
			return nil, fmt.Errorf("record %d: %w", i, ErrNotObject)
		}
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate record id: %w", err)
		}
		payload, err := s.encode(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := b.Set(recordKey(table, id), payload, nil); err != nil {
			return nil, fmt.Errorf("pebble set: %w", err)
		}
		ids[i] = id
	}

	if err := b.Commit(s.writeOpts); err != nil {
		return nil, fmt.Errorf("pebble commit batch: %w", err)
	}

	s.logger.Debug("Records stored", "table", table, "count", len(recs))
	return ids, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, table string, id uuid.UUID) (filter.Value, error) {
	if err := validateTable(table); err != nil {
		return filter.Value{}, err
	}
	if err := ctx.Err(); err != nil {
		return filter.Value{}, err
	}

	payload, closer, err := s.db.Get(recordKey(table, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return filter.Value{}, ErrNotFound
		}
		return filter.Value{}, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	return s.decode(payload)
}

// Delete removes the record with the given id. It returns ErrNotFound if
// the record does not exist.
func (s *Store) Delete(ctx context.Context, table string, id uuid.UUID) error {
	if _, err := s.Get(ctx, table, id); err != nil {
		return err
	}
	if err := s.db.Delete(recordKey(table, id), s.writeOpts); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	s.logger.Debug("Record deleted", "table", table, "id", id)
	return nil
}

// Scan calls fn for every record of table that f accepts, in insertion
// order, stopping after limit matches when limit > 0. A nil filter
// accepts every record. An error from fn stops the scan and is returned.
func (s *Store) Scan(ctx context.Context, table string, f *filter.Filter, limit int64, fn func(Entry) error) error {
	if err := validateTable(table); err != nil {
		return err
	}

	lower := tablePrefix(table)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixEnd(lower),
	})
	if err != nil {
		return fmt.Errorf("pebble iterator: %w", err)
	}
	defer iter.Close()

	var matched int64
	for valid := iter.First(); valid; valid = iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && matched >= limit {
			break
		}

		id, err := uuid.FromBytes(iter.Key()[len(lower):])
		if err != nil {
			return fmt.Errorf("corrupt record key %q: %w", iter.Key(), err)
		}
		rec, err := s.decode(iter.Value())
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		if !f.Match(rec) {
			continue
		}
		matched++
		if err := fn(Entry{ID: id, Record: rec}); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("pebble iterate: %w", err)
	}

	s.logger.Debug("Records scanned", "table", table, "filter", f.String(), "matched", matched)
	return nil
}

// Query collects the records Scan would visit.
func (s *Store) Query(ctx context.Context, table string, f *filter.Filter, limit int64) ([]Entry, error) {
	var out []Entry
	err := s.Scan(ctx, table, f, limit, func(e Entry) error {
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of records of table that f accepts.
func (s *Store) Count(ctx context.Context, table string, f *filter.Filter) (int64, error) {
	var n int64
	err := s.Scan(ctx, table, f, 0, func(Entry) error {
		n++
		return nil
	})
	return n, err
}

func (s *Store) encode(rec filter.Value) ([]byte, error) {
	data, err := msgpack.EncodeValue(rec)
	if err != nil {
		return nil, err
	}
	return s.compressor.Compress(data), nil
}

func (s *Store) decode(payload []byte) (filter.Value, error) {
	data, err := s.decompressor.Decompress(payload)
	if err != nil {
		return filter.Value{}, err
	}
	return msgpack.DecodeValue(data)
}

// Keys are "r" 0x00 <table> 0x00 <16-byte id>.
func tablePrefix(table string) []byte {
	key := make([]byte, 0, len(table)+3)
	key = append(key, 'r', 0)
	key = append(key, table...)
	return append(key, 0)
}

func recordKey(table string, id uuid.UUID) []byte {
	return append(tablePrefix(table), id[:]...)
}

// prefixEnd returns the smallest key greater than every key with prefix p.
// The prefix always ends with 0x00, so bumping the last byte is enough.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	end[len(end)-1]++
	return end
}

func validateTable(table string) error {
	if table == "" || strings.IndexByte(table, 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}
