package filter

import "strings"

// Filter is a parsed expression ready for repeated evaluation.
// It is immutable and safe for concurrent use. A nil *Filter matches
// every record.
type Filter struct {
	clauses []Clause
}

// Compile parses expr into a Filter.
func Compile(expr string) (*Filter, error) {
	clauses, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Filter{clauses: clauses}, nil
}

// MustCompile is like Compile but panics on error.
// Intended for expressions known at compile time.
func MustCompile(expr string) *Filter {
	f, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// NewFilter wraps already built clauses.
func NewFilter(clauses ...Clause) *Filter {
	return &Filter{clauses: append([]Clause(nil), clauses...)}
}

// Match reports whether record satisfies all clauses.
func (f *Filter) Match(record Record) bool {
	if f == nil {
		return true
	}
	return Applies(record, f.clauses)
}

// Clauses returns a copy of the clause list.
func (f *Filter) Clauses() []Clause {
	if f == nil {
		return nil
	}
	return append([]Clause(nil), f.clauses...)
}

// Empty reports whether the filter has no clauses.
func (f *Filter) Empty() bool {
	return f == nil || len(f.clauses) == 0
}

// Fields returns the distinct field names the filter reads, on either
// side of a comparison, in order of first use.
func (f *Filter) Fields() []string {
	if f == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	add := func(p *string) {
		if p != nil && !seen[*p] {
			seen[*p] = true
			names = append(names, *p)
		}
	}
	for i := range f.clauses {
		add(f.clauses[i].Field)
		add(f.clauses[i].ValueField)
	}
	return names
}

// String renders the filter in canonical expression syntax.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, len(f.clauses))
	for i, c := range f.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, clauseSeparator)
}
