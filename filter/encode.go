package filter

import "strings"

// Encoder converts clauses to SQL for pushdown into a backend database.
// Implementations handle dialect-specific syntax.
//
// Encoded SQL selects a superset of the rows the evaluator accepts: where
// the dynamic typing of the evaluator cannot be expressed statically the
// encoder widens the condition, so callers re-check rows with Filter.Match.
type Encoder interface {
	// EncodeClause converts one clause to a boolean SQL expression.
	EncodeClause(c Clause) string

	// EncodeFilter converts all clauses to a WHERE clause body without the
	// "WHERE" keyword. Returns empty string for an empty filter.
	EncodeFilter(f *Filter) string
}

// EncoderOptions configures encoding behavior.
type EncoderOptions struct {
	// ColumnMapping maps record field names to column names.
	// Fields not in the map use their own names.
	ColumnMapping map[string]string

	// ColumnExpressions maps field names to SQL expressions.
	// Takes precedence over ColumnMapping.
	ColumnExpressions map[string]string
}

// quoteLiteral returns a SQL string literal with single quotes doubled.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdentifier double-quotes an identifier when it is not a plain
// lower-risk name.
func quoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	if c := name[0]; !isLetter(c) && c != '_' {
		return true
	}
	for i := 1; i < len(name); i++ {
		if c := name[i]; !isLetter(c) && !isDigit(c) && c != '_' {
			return true
		}
	}
	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"TABLE", "JOIN", "ON", "AS", "IN", "IS", "LIKE", "BETWEEN", "CASE", "WHEN",
		"THEN", "ELSE", "END", "ORDER", "BY", "GROUP", "HAVING", "LIMIT", "OFFSET",
		"UNION", "ALL", "DISTINCT", "CAST", "DEFAULT", "CHECK", "UNIQUE", "KEY",
		"ASC", "DESC", "INTERVAL", "DATE", "TIME", "TIMESTAMP":
		return true
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
