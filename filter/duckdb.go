package filter

import (
	"strconv"
	"strings"
)

// sqlFalse is emitted for clauses the evaluator can never match.
const sqlFalse = "FALSE"

// DuckDBEncoder encodes clauses to DuckDB SQL syntax.
type DuckDBEncoder struct {
	opts *EncoderOptions
}

var _ Encoder = (*DuckDBEncoder)(nil)

// NewDuckDBEncoder creates a new DuckDB SQL encoder.
// If opts is nil, default options are used.
func NewDuckDBEncoder(opts *EncoderOptions) *DuckDBEncoder {
	if opts == nil {
		opts = &EncoderOptions{}
	}
	return &DuckDBEncoder{opts: opts}
}

// EncodeFilter joins the encoded clauses with AND.
func (e *DuckDBEncoder) EncodeFilter(f *Filter) string {
	if f.Empty() {
		return ""
	}

	parts := make([]string, 0, len(f.clauses))
	for _, c := range f.clauses {
		parts = append(parts, e.EncodeClause(c))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ") AND (") + ")"
}

// EncodeClause encodes one clause.
//
// Numeric comparisons go through TRY_CAST(... AS BIGINT) so values that
// are not integers become NULL and drop out. String literals compare the
// column cast to VARCHAR. Field-to-field equality cannot know the runtime
// mode, so it accepts either a numeric or a string match.
func (e *DuckDBEncoder) EncodeClause(c Clause) string {
	if c.Field == nil || !c.Op.Valid() {
		return sqlFalse
	}
	left := e.column(*c.Field)
	op := sqlOperator(c.Op)

	switch {
	case c.ValueField != nil && c.Literal != nil:
		return e.encodeFieldOrLiteral(c, left, op)

	case c.ValueField != nil:
		right := e.column(*c.ValueField)
		numeric := numericOperand(left, c.FieldMultiplier) + " " + op + " " + numericOperand(right, c.ValueMultiplier)
		if c.Op != OpEqual && c.Op != OpNotEqual {
			return numeric
		}
		return "(" + numeric + " OR " + stringOperand(left) + " " + op + " " + stringOperand(right) + ")"

	case c.Literal != nil:
		if s, ok := c.Literal.AsString(); ok {
			if c.Op != OpEqual && c.Op != OpNotEqual {
				return sqlFalse
			}
			return stringOperand(left) + " " + op + " " + quoteLiteral(s)
		}
		lit, _ := c.Literal.AsInt64()
		if c.ValueMultiplier != nil {
			var ok bool
			if lit, ok = mulInt64(lit, *c.ValueMultiplier); !ok {
				return sqlFalse
			}
		}
		return numericOperand(left, c.FieldMultiplier) + " " + op + " " + strconv.FormatInt(lit, 10)
	}

	return sqlFalse
}

// encodeFieldOrLiteral encodes a hand-built clause holding both a value
// field and a literal. The evaluator falls back to the literal in numeric
// mode when the field is not an integer and compares strings against the
// literal alone, so each of those paths gets its own disjunct.
func (e *DuckDBEncoder) encodeFieldOrLiteral(c Clause, left, op string) string {
	leftNum := numericOperand(left, c.FieldMultiplier)
	parts := []string{leftNum + " " + op + " " + numericOperand(e.column(*c.ValueField), c.ValueMultiplier)}

	if lit, ok := c.Literal.AsInt64(); ok {
		if c.ValueMultiplier != nil {
			lit, ok = mulInt64(lit, *c.ValueMultiplier)
		}
		if ok {
			parts = append(parts, leftNum+" "+op+" "+strconv.FormatInt(lit, 10))
		}
	}
	if s, ok := c.Literal.AsString(); ok && (c.Op == OpEqual || c.Op == OpNotEqual) {
		parts = append(parts, stringOperand(left)+" "+op+" "+quoteLiteral(s))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// column resolves a field name to its SQL expression.
func (e *DuckDBEncoder) column(field string) string {
	if expr, ok := e.opts.ColumnExpressions[field]; ok {
		return expr
	}
	if mapped, ok := e.opts.ColumnMapping[field]; ok {
		field = mapped
	}
	return quoteIdentifier(field)
}

// numericOperand casts col to BIGINT. A multiplied operand is computed in
// HUGEINT and narrowed back, so products outside the int64 range become
// NULL just as they fail in the evaluator.
func numericOperand(col string, mult *int64) string {
	if mult == nil {
		return "TRY_CAST(" + col + " AS BIGINT)"
	}
	return "TRY_CAST(CAST(TRY_CAST(" + col + " AS BIGINT) AS HUGEINT) * " + strconv.FormatInt(*mult, 10) + " AS BIGINT)"
}

func stringOperand(col string) string {
	return "CAST(" + col + " AS VARCHAR)"
}

func sqlOperator(op Operator) string {
	if op == OpNotEqual {
		return "<>"
	}
	return string(op)
}
