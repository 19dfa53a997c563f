// Package filter parses record filter expressions and evaluates them
// against semi-structured records.
//
// An expression is a conjunction of clauses joined by " AND ". Each clause
// compares a record field with a literal or with another field, optionally
// scaling either side by an integer multiplier:
//
//	.status = 'active' AND .age > 18 AND 2*.spent >= 3*.budget
//
// # Basic Usage
//
//	f, err := filter.Compile(".status = 'active' AND .age > 18")
//	if err != nil {
//	    return err // malformed expression, see ParseError
//	}
//
//	rec, _ := filter.ParseJSON([]byte(`{"status": "active", "age": 30}`))
//	if f.Match(rec) {
//	    // record selected
//	}
//
// Parse returns the raw clause list for callers that want to inspect or
// build clauses themselves; Applies evaluates such a list directly.
//
// # Evaluation Rules
//
// The left-hand field decides how a clause is compared:
//   - Number: both sides are resolved as 64-bit integers, multipliers are
//     applied, and all six operators (=, !=, >=, >, <=, <) are available.
//   - Anything else: both sides must be strings, multipliers are ignored,
//     and only = and != are available.
//
// Missing fields, type mismatches, unknown operators and integer overflow
// make a clause fail. Evaluation never returns an error and never panics
// on record data.
//
// # Records
//
// Any type with a Get(field) (Value, bool) method is a Record. Value is a
// tagged JSON-like variant; ParseJSON and FromAny build it from JSON text
// and from decoded Go values (maps, slices, every integer width).
//
// # SQL Pushdown
//
// DuckDBEncoder renders a Filter as a DuckDB WHERE body. The SQL selects
// a superset of the matching rows, so results should still be checked
// with Filter.Match:
//
//	enc := filter.NewDuckDBEncoder(&filter.EncoderOptions{
//	    ColumnMapping: map[string]string{"age": "age_years"},
//	})
//	where := enc.EncodeFilter(f)
package filter
