package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// clauseSeparator joins clauses in an expression. It is matched literally
// and case-sensitively.
const clauseSeparator = " AND "

// ErrInvalidExpression is wrapped by every error returned from Parse.
var ErrInvalidExpression = errors.New("invalid filter expression")

// ParseError describes a structurally malformed clause.
type ParseError struct {
	// Index is the 1-based position of the clause in the expression.
	Index int
	// Clause is the clause text as written.
	Clause string
	// Reason says what is wrong with it.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter: clause %d %q: %s", e.Index, e.Clause, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidExpression.
func (e *ParseError) Unwrap() error { return ErrInvalidExpression }

// Parse converts a filter expression into its clauses, in source order.
//
// Each clause has the form "left operator right" separated by whitespace,
// and clauses are joined by " AND ":
//
//	.status = 'active' AND 2*.score >= .limit AND .age > 18
//
// A blank expression yields no clauses. Operators are not validated here;
// an unknown operator makes the clause fail at evaluation time. A
// multiplier prefix that is not an integer is dropped silently, which
// leaves the left-hand field absent and the clause unmatchable.
func Parse(expr string) ([]Clause, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	parts := strings.Split(expr, clauseSeparator)
	clauses := make([]Clause, 0, len(parts))
	for i, part := range parts {
		c, err := parseClause(part)
		if err != nil {
			return nil, &ParseError{Index: i + 1, Clause: part, Reason: err.Error()}
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func parseClause(s string) (Clause, error) {
	tokens := strings.Fields(s)
	if len(tokens) != 3 {
		return Clause{}, fmt.Errorf("expected 3 tokens (left operator right), got %d", len(tokens))
	}

	c := Clause{Op: Operator(tokens[1])}

	mult, name, ok, err := splitMultiplier(tokens[0])
	if err != nil {
		return Clause{}, fmt.Errorf("left operand: %w", err)
	}
	if ok {
		name = strings.TrimLeft(name, ".")
		if name == "" {
			return Clause{}, errors.New("left operand: missing field name")
		}
		c.Field = &name
		c.FieldMultiplier = mult
	}

	if err := parseRight(tokens[2], &c); err != nil {
		return Clause{}, fmt.Errorf("right operand: %w", err)
	}
	return c, nil
}

// splitMultiplier splits "m*rest" into its multiplier and remainder.
// ok is false when a prefix exists but is not an integer.
func splitMultiplier(tok string) (mult *int64, rest string, ok bool, err error) {
	pieces := strings.Split(tok, "*")
	switch len(pieces) {
	case 1:
		return nil, pieces[0], true, nil
	case 2:
		m, perr := strconv.ParseInt(pieces[0], 10, 64)
		if perr != nil {
			return nil, pieces[1], false, nil
		}
		return &m, pieces[1], true, nil
	default:
		return nil, "", false, fmt.Errorf("too many multipliers in %q", tok)
	}
}

func parseRight(tok string, c *Clause) error {
	mult, rest, _, err := splitMultiplier(tok)
	if err != nil {
		return err
	}
	c.ValueMultiplier = mult

	// quotes are trimmed after the split, so 'x*y' reads as the literal y
	value := strings.Trim(rest, "'")

	if strings.HasPrefix(value, ".") {
		name := strings.TrimLeft(value, ".")
		if name == "" {
			return errors.New("missing field name")
		}
		c.ValueField = &name
		return nil
	}

	lit := StringScalar(value)
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		lit = IntScalar(i)
	}
	c.Literal = &lit
	return nil
}
