package filter

import "strconv"

// Operator is the comparison operator of a clause.
// The parser accepts any token in operator position; only the constants
// below are understood by the evaluator.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpLessOrEqual    Operator = "<="
	OpLess           Operator = "<"
)

// Valid reports whether the operator is one the evaluator supports.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreaterOrEqual, OpGreater, OpLessOrEqual, OpLess:
		return true
	}
	return false
}

// ScalarKind identifies the type held by a Scalar.
type ScalarKind uint8

const (
	ScalarString ScalarKind = iota
	ScalarInt
)

// Scalar is a literal comparison value: a string or a 64-bit integer.
type Scalar struct {
	kind ScalarKind
	s    string
	i    int64
}

// StringScalar returns a string literal.
func StringScalar(s string) Scalar { return Scalar{kind: ScalarString, s: s} }

// IntScalar returns an integer literal.
func IntScalar(i int64) Scalar { return Scalar{kind: ScalarInt, i: i} }

// Kind returns the literal type.
func (s Scalar) Kind() ScalarKind { return s.kind }

// AsString returns the string literal. ok is false for integers.
func (s Scalar) AsString() (string, bool) {
	if s.kind != ScalarString {
		return "", false
	}
	return s.s, true
}

// AsInt64 returns the integer literal. ok is false for strings.
func (s Scalar) AsInt64() (int64, bool) {
	if s.kind != ScalarInt {
		return 0, false
	}
	return s.i, true
}

// Equal reports whether both scalars have the same kind and value.
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	if s.kind == ScalarInt {
		return s.i == o.i
	}
	return s.s == o.s
}

// String renders the literal in expression syntax: integers in decimal,
// strings wrapped in single quotes.
func (s Scalar) String() string {
	if s.kind == ScalarInt {
		return strconv.FormatInt(s.i, 10)
	}
	return "'" + s.s + "'"
}

// Clause is one atomic condition. Clauses in a list are AND-combined.
//
// Optional attributes are nil when absent. Literal and ValueField are
// mutually exclusive in parser output; a clause with neither never matches.
type Clause struct {
	// Field is the record attribute on the left-hand side.
	// Nil only for malformed input (unparseable left multiplier).
	Field *string

	// Op is the comparison operator.
	Op Operator

	// Literal is the constant right-hand side.
	Literal *Scalar

	// ValueField names another record attribute used as right-hand side.
	ValueField *string

	// FieldMultiplier scales the left numeric value.
	FieldMultiplier *int64

	// ValueMultiplier scales the right numeric value.
	ValueMultiplier *int64
}

// ClauseOption sets an optional Clause attribute.
type ClauseOption func(*Clause)

// NewClause builds a clause with the given operator. Every optional
// attribute starts absent.
//
// Example:
//
//	c := filter.NewClause(filter.OpGreaterOrEqual,
//	    filter.WithField("score"),
//	    filter.WithFieldMultiplier(2),
//	    filter.WithValueField("threshold"),
//	)
func NewClause(op Operator, opts ...ClauseOption) Clause {
	c := Clause{Op: op}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithField sets the left-hand field name.
func WithField(name string) ClauseOption {
	return func(c *Clause) { c.Field = &name }
}

// WithLiteral sets the right-hand literal.
func WithLiteral(v Scalar) ClauseOption {
	return func(c *Clause) { c.Literal = &v }
}

// WithStringLiteral sets a string right-hand literal.
func WithStringLiteral(s string) ClauseOption {
	return WithLiteral(StringScalar(s))
}

// WithIntLiteral sets an integer right-hand literal.
func WithIntLiteral(i int64) ClauseOption {
	return WithLiteral(IntScalar(i))
}

// WithValueField sets the right-hand field reference.
func WithValueField(name string) ClauseOption {
	return func(c *Clause) { c.ValueField = &name }
}

// WithFieldMultiplier sets the left-hand multiplier.
func WithFieldMultiplier(m int64) ClauseOption {
	return func(c *Clause) { c.FieldMultiplier = &m }
}

// WithValueMultiplier sets the right-hand multiplier.
func WithValueMultiplier(m int64) ClauseOption {
	return func(c *Clause) { c.ValueMultiplier = &m }
}

// String renders the clause in expression syntax, e.g. "2*.score >= .limit".
// String literals containing whitespace or '*' do not survive a Parse
// round trip.
func (c Clause) String() string {
	var b []byte
	if c.FieldMultiplier != nil {
		b = strconv.AppendInt(b, *c.FieldMultiplier, 10)
		b = append(b, '*')
	}
	b = append(b, '.')
	if c.Field != nil {
		b = append(b, *c.Field...)
	}
	b = append(b, ' ')
	b = append(b, c.Op...)
	b = append(b, ' ')
	if c.ValueMultiplier != nil {
		b = strconv.AppendInt(b, *c.ValueMultiplier, 10)
		b = append(b, '*')
	}
	switch {
	case c.ValueField != nil:
		b = append(b, '.')
		b = append(b, *c.ValueField...)
	case c.Literal != nil:
		b = append(b, c.Literal.String()...)
	default:
		b = append(b, "''"...)
	}
	return string(b)
}

// Equal reports whether two clauses have identical attributes.
func (c Clause) Equal(o Clause) bool {
	return c.Op == o.Op &&
		eqPtr(c.Field, o.Field) &&
		eqPtr(c.ValueField, o.ValueField) &&
		eqPtr(c.FieldMultiplier, o.FieldMultiplier) &&
		eqPtr(c.ValueMultiplier, o.ValueMultiplier) &&
		eqScalarPtr(c.Literal, o.Literal)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqScalarPtr(a, b *Scalar) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
