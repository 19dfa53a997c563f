package filter

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseEmpty(t *testing.T) {
	for _, expr := range []string{"", "   ", "\t\n"} {
		clauses, err := Parse(expr)
		if err != nil {
			t.Fatalf("Parse(%q): expected no error, got %v", expr, err)
		}
		if len(clauses) != 0 {
			t.Errorf("Parse(%q): expected 0 clauses, got %d", expr, len(clauses))
		}
	}
}

func TestParseConjunction(t *testing.T) {
	clauses, err := Parse("a = 'x' AND b > 5")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []Clause{
		NewClause(OpEqual, WithField("a"), WithStringLiteral("x")),
		NewClause(OpGreater, WithField("b"), WithIntLiteral(5)),
	}
	if diff := cmp.Diff(want, clauses); diff != "" {
		t.Errorf("clauses mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDottedFields(t *testing.T) {
	clauses, err := Parse(".field = 'hello' AND .value >= 20")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}
	if got := *clauses[0].Field; got != "field" {
		t.Errorf("expected field 'field', got %q", got)
	}
	if s, ok := clauses[0].Literal.AsString(); !ok || s != "hello" {
		t.Errorf("expected literal 'hello', got %v", clauses[0].Literal)
	}
	if clauses[1].Op != OpGreaterOrEqual {
		t.Errorf("expected >=, got %s", clauses[1].Op)
	}
	if i, ok := clauses[1].Literal.AsInt64(); !ok || i != 20 {
		t.Errorf("expected literal 20, got %v", clauses[1].Literal)
	}
}

func TestParseOperands(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Clause
	}{
		{
			name: "left multiplier",
			expr: "3*score > 1",
			want: NewClause(OpGreater, WithField("score"), WithFieldMultiplier(3), WithIntLiteral(1)),
		},
		{
			name: "no multiplier",
			expr: "score > 1",
			want: NewClause(OpGreater, WithField("score"), WithIntLiteral(1)),
		},
		{
			name: "field reference",
			expr: ".a >= .other",
			want: NewClause(OpGreaterOrEqual, WithField("a"), WithValueField("other")),
		},
		{
			name: "both multipliers",
			expr: "2*.a >= 5*.b",
			want: NewClause(OpGreaterOrEqual, WithField("a"), WithFieldMultiplier(2), WithValueField("b"), WithValueMultiplier(5)),
		},
		{
			name: "literal multiplier",
			expr: ".a < 4*10",
			want: NewClause(OpLess, WithField("a"), WithIntLiteral(10), WithValueMultiplier(4)),
		},
		{
			name: "negative values",
			expr: "-2*.a != -7",
			want: NewClause(OpNotEqual, WithField("a"), WithFieldMultiplier(-2), WithIntLiteral(-7)),
		},
		{
			name: "quoted number stays numeric",
			expr: ".a = '42'",
			want: NewClause(OpEqual, WithField("a"), WithIntLiteral(42)),
		},
		{
			name: "unquoted string",
			expr: ".status = active",
			want: NewClause(OpEqual, WithField("status"), WithStringLiteral("active")),
		},
		{
			name: "empty string literal",
			expr: ".name = ''",
			want: NewClause(OpEqual, WithField("name"), WithStringLiteral("")),
		},
		{
			name: "star inside quotes splits the literal",
			expr: ".a = 'x*y'",
			want: NewClause(OpEqual, WithField("a"), WithStringLiteral("y")),
		},
		{
			name: "quoted multiplier prefix is dropped",
			expr: ".a = '3*7'",
			want: NewClause(OpEqual, WithField("a"), WithIntLiteral(7)),
		},
		{
			name: "unknown operator accepted",
			expr: ".a ~ 5",
			want: NewClause(Operator("~"), WithField("a"), WithIntLiteral(5)),
		},
		{
			name: "bad left multiplier drops field",
			expr: "x*.a > 5",
			want: NewClause(OpGreater, WithIntLiteral(5)),
		},
		{
			name: "bad right multiplier dropped",
			expr: ".a > x*5",
			want: NewClause(OpGreater, WithField("a"), WithIntLiteral(5)),
		},
		{
			name: "extra whitespace",
			expr: "  .a   =\t1 ",
			want: NewClause(OpEqual, WithField("a"), WithIntLiteral(1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.expr, err)
			}
			if len(clauses) != 1 {
				t.Fatalf("expected 1 clause, got %d", len(clauses))
			}
			if diff := cmp.Diff(tt.want, clauses[0]); diff != "" {
				t.Errorf("clause mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		index int
	}{
		{"too few tokens", ".a =", 1},
		{"single token", ".a", 1},
		{"too many tokens", ".a = 'hello world'", 1},
		{"second clause broken", ".a = 1 AND .b >", 2},
		{"empty clause", ".a = 1 AND  AND .b = 2", 2},
		{"dangling AND", ".a = 1 AND ", 2},
		{"too many left multipliers", "2*3*.a > 1", 1},
		{"too many right multipliers", ".a > 2*3*4", 1},
		{"missing left field", ". = 1", 1},
		{"missing left field after multiplier", "2* = 1", 1},
		{"missing right field", ".a = .", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := Parse(tt.expr)
			if err == nil {
				t.Fatalf("Parse(%q): expected error, got %d clauses", tt.expr, len(clauses))
			}
			if !errors.Is(err, ErrInvalidExpression) {
				t.Errorf("expected ErrInvalidExpression, got %v", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Index != tt.index {
				t.Errorf("expected clause index %d, got %d", tt.index, perr.Index)
			}
		})
	}
}

func TestClauseStringRoundTrip(t *testing.T) {
	exprs := []string{
		".a = 'x'",
		".b > 5",
		"3*.score >= .limit",
		".a >= 5*.b",
		".a < 4*10",
		"-2*.a != -7",
		".name = ''",
		".a ~ 5",
		".status = 'active' AND .age > 18 AND 2*.spent <= 3*.budget",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			first, err := Parse(expr)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", expr, err)
			}
			rendered := NewFilter(first...).String()
			second, err := Parse(rendered)
			if err != nil {
				t.Fatalf("Parse(%q) of rendering failed: %v", rendered, err)
			}
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("round trip via %q changed clauses (-first +second):\n%s", rendered, diff)
			}
		})
	}
}

func TestClauseString(t *testing.T) {
	tests := []struct {
		clause Clause
		want   string
	}{
		{NewClause(OpEqual, WithField("a"), WithStringLiteral("x")), ".a = 'x'"},
		{NewClause(OpGreater, WithField("b"), WithIntLiteral(5)), ".b > 5"},
		{NewClause(OpGreaterOrEqual, WithField("a"), WithFieldMultiplier(2), WithValueField("b"), WithValueMultiplier(3)), "2*.a >= 3*.b"},
		{NewClause(OpEqual, WithField("a")), ".a = ''"},
	}

	for _, tt := range tests {
		if got := tt.clause.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
