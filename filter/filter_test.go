package filter

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompile(t *testing.T) {
	f, err := Compile(".status = 'active' AND 2*.spent <= .budget")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	tests := []struct {
		record string
		want   bool
	}{
		{`{"status": "active", "spent": 10, "budget": 20}`, true},
		{`{"status": "active", "spent": 11, "budget": 20}`, false},
		{`{"status": "paused", "spent": 1, "budget": 20}`, false},
		{`{"spent": 1, "budget": 20}`, false},
	}
	for _, tt := range tests {
		if got := f.Match(mustJSON(t, tt.record)); got != tt.want {
			t.Errorf("Match(%s) = %v, want %v", tt.record, got, tt.want)
		}
	}
}

func TestCompileError(t *testing.T) {
	f, err := Compile(".a = 1 AND .b")
	if err == nil {
		t.Fatal("expected error")
	}
	if f != nil {
		t.Error("expected nil filter on error")
	}
	if !errors.Is(err, ErrInvalidExpression) {
		t.Errorf("expected ErrInvalidExpression, got %v", err)
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustCompile("broken")
}

func TestNilFilter(t *testing.T) {
	var f *Filter
	if !f.Match(Null()) {
		t.Error("nil filter must match")
	}
	if !f.Empty() {
		t.Error("nil filter must be empty")
	}
	if f.String() != "" || f.Fields() != nil || f.Clauses() != nil {
		t.Error("nil filter accessors must return zero values")
	}
}

func TestFilterFields(t *testing.T) {
	f := MustCompile(".a > 1 AND 2*.b >= .c AND .a < .d AND .e = 'x'")
	want := []string{"a", "b", "c", "d", "e"}
	if diff := cmp.Diff(want, f.Fields()); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterClausesIsCopy(t *testing.T) {
	f := MustCompile(".a = 1")
	clauses := f.Clauses()
	clauses[0].Op = OpNotEqual
	if f.Clauses()[0].Op != OpEqual {
		t.Error("mutating Clauses() result changed the filter")
	}
}

func TestFilterString(t *testing.T) {
	f := MustCompile("a = x AND 3*b > 5*.c")
	want := ".a = 'x' AND 3*.b > 5*.c"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFilterConcurrentMatch(t *testing.T) {
	f := MustCompile(".n >= 50 AND .tag = 'even'")

	records := make([]Value, 100)
	want := 0
	for i := range records {
		tag := "odd"
		if i%2 == 0 {
			tag = "even"
		}
		records[i] = Object(map[string]Value{"n": Int(int64(i)), "tag": String(tag)})
		if i >= 50 && i%2 == 0 {
			want++
		}
	}

	var wg sync.WaitGroup
	counts := make([]int, 8)
	for w := range counts {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for _, r := range records {
				if f.Match(r) {
					counts[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	for w, got := range counts {
		if got != want {
			t.Errorf("worker %d matched %d records, want %d", w, got, want)
		}
	}
}
