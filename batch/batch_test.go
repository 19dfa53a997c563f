package batch

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/hugr-lab/recordfilter/filter"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "active", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
}, nil)

func obj(fields map[string]filter.Value) filter.Value {
	return filter.Object(fields)
}

func testRecords() []filter.Value {
	return []filter.Value{
		obj(map[string]filter.Value{"id": filter.Int(1), "name": filter.String("ada"), "score": filter.Float(9.5), "active": filter.Bool(true)}),
		obj(map[string]filter.Value{"id": filter.Int(2), "name": filter.String("bob"), "score": filter.Int(7), "active": filter.Bool(false)}),
		obj(map[string]filter.Value{"id": filter.Int(3), "name": filter.String("ada")}),
		obj(map[string]filter.Value{"id": filter.Int(4), "name": filter.Int(42), "active": filter.String("yes")}),
		obj(map[string]filter.Value{"id": filter.Int(5), "name": filter.String("eve"), "score": filter.Int(3), "active": filter.Bool(true)}),
	}
}

func buildTest(t *testing.T, mem memory.Allocator) arrow.RecordBatch {
	t.Helper()
	rec, err := Build(mem, testSchema, testRecords())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return rec
}

func ids(t *testing.T, rec arrow.RecordBatch) []int64 {
	t.Helper()
	col, ok := rec.Column(0).(*array.Int64)
	if !ok {
		t.Fatalf("expected int64 id column, got %T", rec.Column(0))
	}
	out := make([]int64, col.Len())
	for i := range out {
		out[i] = col.Value(i)
	}
	return out
}

func TestBuild(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := buildTest(t, mem)
	defer rec.Release()

	if rec.NumRows() != 5 {
		t.Fatalf("expected 5 rows, got %d", rec.NumRows())
	}

	names := rec.Column(1).(*array.String)
	if names.Value(3) != "42" {
		t.Errorf("non-string value in string column: expected JSON text '42', got %q", names.Value(3))
	}
	scores := rec.Column(2).(*array.Float64)
	if !scores.IsNull(2) {
		t.Error("missing field should be null")
	}
	if scores.Value(1) != 7 {
		t.Errorf("integral number in float column: got %v", scores.Value(1))
	}
	active := rec.Column(3).(*array.Boolean)
	if !active.IsNull(3) {
		t.Error("string in bool column should be null")
	}
}

func TestBuildUnsupportedType(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_us}}, nil)
	_, err := Build(memory.DefaultAllocator, schema, nil)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestColumnType(t *testing.T) {
	for _, name := range []string{"int64", "float64", "string", "bool"} {
		if _, err := ColumnType(name); err != nil {
			t.Errorf("ColumnType(%q): %v", name, err)
		}
	}
	if _, err := ColumnType("decimal"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRowGet(t *testing.T) {
	rec := buildTest(t, memory.DefaultAllocator)
	defer rec.Release()

	view := NewView(rec)
	row := view.Row(2)

	if v, ok := row.Get("name"); !ok || !v.Equal(filter.String("ada")) {
		t.Errorf("name = %v, %v", v, ok)
	}
	if v, ok := row.Get("score"); !ok || !v.IsNull() {
		t.Errorf("null cell should be a present null, got %v, %v", v, ok)
	}
	if _, ok := row.Get("missing"); ok {
		t.Error("unknown column should be absent")
	}

	// float columns never compare as integers
	if v, _ := view.Row(1).Get("score"); v.Kind() != filter.KindNumber {
		t.Errorf("score kind = %s", v.Kind())
	} else if _, ok := v.AsInt64(); ok {
		t.Error("float column value must not convert to int64")
	}
}

func TestValues(t *testing.T) {
	rec := buildTest(t, memory.DefaultAllocator)
	defer rec.Release()

	got := Values(rec)
	want := obj(map[string]filter.Value{
		"id":     filter.Int(1),
		"name":   filter.String("ada"),
		"score":  filter.Float(9.5),
		"active": filter.Bool(true),
	})
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("row 0 mismatch (-want +got):\n%s", diff)
	}
}

func TestValueAtNested(t *testing.T) {
	mem := memory.DefaultAllocator
	listType := arrow.ListOf(arrow.PrimitiveTypes.Int32)
	structType := arrow.StructOf(
		arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Uint8},
		arrow.Field{Name: "y", Type: arrow.BinaryTypes.String},
	)

	lb := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int32)
	defer lb.Release()
	lb.Append(true)
	lb.ValueBuilder().(*array.Int32Builder).AppendValues([]int32{1, 2}, nil)
	list := lb.NewListArray()
	defer list.Release()

	sb := array.NewStructBuilder(mem, structType)
	defer sb.Release()
	sb.Append(true)
	sb.FieldBuilder(0).(*array.Uint8Builder).Append(7)
	sb.FieldBuilder(1).(*array.StringBuilder).Append("z")
	st := sb.NewStructArray()
	defer st.Release()

	if got := ValueAt(list, 0); !got.Equal(filter.Array(filter.Int(1), filter.Int(2))) {
		t.Errorf("list %s: got %v", listType, got.Interface())
	}
	want := obj(map[string]filter.Value{"x": filter.Int(7), "y": filter.String("z")})
	if got := ValueAt(st, 0); !got.Equal(want) {
		t.Errorf("struct: got %v", got.Interface())
	}
}

func TestSelect(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := buildTest(t, mem)
	defer rec.Release()

	tests := []struct {
		expr  string
		limit int64
		want  []int64
	}{
		{"", 0, []int64{1, 2, 3, 4, 5}},
		{".name = 'ada'", 0, []int64{1, 3}},
		{".id >= 2 AND .id != 4", 0, []int64{2, 3, 5}},
		{".id > 1", 2, []int64{2, 3}},
		{".score > 1", 0, nil},
		{".nope = 1", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := Select(mem, rec, filter.MustCompile(tt.expr), tt.limit)
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			defer out.Release()

			if diff := cmp.Diff(tt.want, ids(t, out), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if !out.Schema().Equal(rec.Schema()) {
				t.Error("selection changed the schema")
			}
		})
	}
}

// TestSelectAgreesWithApplies checks batch filtering against evaluating the
// decoded rows directly.
func TestSelectAgreesWithApplies(t *testing.T) {
	rec := buildTest(t, memory.DefaultAllocator)
	defer rec.Release()

	for _, expr := range []string{".id < 3", ".name != 'ada'", "2*.id >= .id", ".active = 'true'"} {
		f := filter.MustCompile(expr)

		var want []int64
		for _, v := range Values(rec) {
			if filter.Applies(v, f.Clauses()) {
				id, _ := v.Get("id")
				n, _ := id.AsInt64()
				want = append(want, n)
			}
		}

		out, err := Select(nil, rec, f, 0)
		if err != nil {
			t.Fatalf("%s: %v", expr, err)
		}
		got := ids(t, out)
		out.Release()
		if !cmp.Equal(got, want, cmpopts.EquateEmpty()) {
			t.Errorf("%s: Select ids %v, Applies ids %v", expr, got, want)
		}
	}
}

func TestFilterReader(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	newInput := func() array.RecordReader {
		first := buildTest(t, mem)
		second := buildTest(t, mem)
		defer first.Release()
		defer second.Release()
		rdr, err := array.NewRecordReader(testSchema, []arrow.RecordBatch{first, second})
		if err != nil {
			t.Fatalf("NewRecordReader: %v", err)
		}
		return rdr
	}

	tests := []struct {
		name    string
		expr    string
		limit   int64
		batches int
		want    []int64
	}{
		{"no filter", "", 0, 2, []int64{1, 2, 3, 4, 5, 1, 2, 3, 4, 5}},
		{"filter", ".name = 'ada'", 0, 2, []int64{1, 3, 1, 3}},
		{"limit within batch", ".id > 0", 3, 1, []int64{1, 2, 3}},
		{"limit across batches", ".id >= 4", 3, 2, []int64{4, 5, 4}},
		{"no matches", ".id > 100", 0, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdr := NewFilterReader(mem, newInput(), filter.MustCompile(tt.expr), tt.limit)
			defer rdr.Release()

			var (
				got     []int64
				batches int
			)
			for rdr.Next() {
				batches++
				got = append(got, ids(t, rdr.RecordBatch())...)
			}
			if err := rdr.Err(); err != nil {
				t.Fatalf("reader error: %v", err)
			}
			if batches != tt.batches {
				t.Errorf("batches = %d, want %d", batches, tt.batches)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if rdr.Emitted() != int64(len(tt.want)) {
				t.Errorf("Emitted() = %d", rdr.Emitted())
			}
		})
	}
}

func TestProject(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := buildTest(t, mem)
	defer rec.Release()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	out, err := Project(rec, schema)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	defer out.Release()

	if !out.Schema().Equal(schema) || out.NumRows() != rec.NumRows() {
		t.Fatalf("unexpected projection %s with %d rows", out.Schema(), out.NumRows())
	}
	if got := out.Column(0).(*array.String).Value(0); got != "ada" {
		t.Errorf("name[0] = %q", got)
	}

	missing := arrow.NewSchema([]arrow.Field{{Name: "nope", Type: arrow.PrimitiveTypes.Int64}}, nil)
	if _, err := Project(rec, missing); err == nil {
		t.Error("expected error for missing column")
	}
	wrongType := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.BinaryTypes.String}}, nil)
	if _, err := Project(rec, wrongType); err == nil {
		t.Error("expected error for mismatched type")
	}
}

func TestFilterReaderProjection(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := buildTest(t, mem)
	input, err := array.NewRecordReader(testSchema, []arrow.RecordBatch{rec})
	rec.Release()
	if err != nil {
		t.Fatalf("NewRecordReader: %v", err)
	}

	names := arrow.NewSchema([]arrow.Field{{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true}}, nil)
	rdr := NewFilterReader(mem, input, filter.MustCompile(".id > 2 AND .name != 'ada'"), 0).WithProjection(names)
	defer rdr.Release()

	if !rdr.Schema().Equal(names) {
		t.Fatalf("Schema() = %s", rdr.Schema())
	}

	var got []string
	for rdr.Next() {
		col := rdr.RecordBatch().Column(0).(*array.String)
		for i := 0; i < col.Len(); i++ {
			got = append(got, col.Value(i))
		}
	}
	if err := rdr.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}
	if diff := cmp.Diff([]string{"42", "eve"}, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
