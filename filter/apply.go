package filter

import "math"

// Applies reports whether record satisfies every clause. Evaluation stops
// at the first clause that fails. An empty clause list matches.
func Applies(record Record, clauses []Clause) bool {
	for i := range clauses {
		if !clauses[i].Matches(record) {
			return false
		}
	}
	return true
}

// Matches evaluates a single clause against record.
//
// The comparison mode is chosen by the left-hand value alone: numbers are
// compared as 64-bit integers with the full operator set, everything else
// is compared as strings with = and != only. Missing fields, mismatched
// types, unknown operators and overflowing multiplications all make the
// clause fail.
func (c *Clause) Matches(record Record) bool {
	var (
		left    Value
		hasLeft bool
	)
	if c.Field != nil && record != nil {
		left, hasLeft = record.Get(*c.Field)
	}

	if hasLeft && left.IsNumber() {
		return c.matchNumeric(record, left)
	}
	if !hasLeft {
		return false
	}
	return c.matchString(record, left)
}

func (c *Clause) matchString(record Record, left Value) bool {
	l, ok := left.AsString()
	if !ok {
		return false
	}

	var r string
	switch {
	case c.Literal != nil:
		r, ok = c.Literal.AsString()
	case c.ValueField != nil:
		var v Value
		if v, ok = record.Get(*c.ValueField); ok {
			r, ok = v.AsString()
		}
	default:
		ok = false
	}
	if !ok {
		return false
	}

	switch c.Op {
	case OpEqual:
		return l == r
	case OpNotEqual:
		return l != r
	}
	return false
}

func (c *Clause) matchNumeric(record Record, left Value) bool {
	l, ok := left.AsInt64()
	if !ok {
		return false
	}
	if c.FieldMultiplier != nil {
		if l, ok = mulInt64(l, *c.FieldMultiplier); !ok {
			return false
		}
	}

	r, ok := c.rightInt64(record)
	if !ok {
		return false
	}
	if c.ValueMultiplier != nil {
		if r, ok = mulInt64(r, *c.ValueMultiplier); !ok {
			return false
		}
	}

	switch c.Op {
	case OpEqual:
		return l == r
	case OpNotEqual:
		return l != r
	case OpGreaterOrEqual:
		return l >= r
	case OpGreater:
		return l > r
	case OpLessOrEqual:
		return l <= r
	case OpLess:
		return l < r
	}
	return false
}

// rightInt64 resolves the right-hand side in numeric mode, preferring the
// referenced field over the literal.
func (c *Clause) rightInt64(record Record) (int64, bool) {
	if c.ValueField != nil {
		if v, ok := record.Get(*c.ValueField); ok {
			if i, ok := v.AsInt64(); ok {
				return i, true
			}
		}
	}
	if c.Literal != nil {
		return c.Literal.AsInt64()
	}
	return 0, false
}

// mulInt64 multiplies a and b, reporting false on overflow.
func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}
