package recordfilter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/cockroachdb/pebble/vfs"

	"github.com/hugr-lab/recordfilter/catalog"
	"github.com/hugr-lab/recordfilter/store"
)

// Test helper: creates a simple scan function for testing
func testScanFunc(schema *arrow.Schema) catalog.ScanFunc {
	return func(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
		builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		defer builder.Release()
		record := builder.NewRecordBatch()
		defer record.Release()
		return array.NewRecordReader(schema, []arrow.RecordBatch{record})
	}
}

// TestCatalogBuilderBasic tests basic catalog building functionality.
func TestCatalogBuilderBasic(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	cat, err := NewCatalogBuilder().
		Schema("test").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Build()

	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}

	if cat == nil {
		t.Fatal("Expected non-nil catalog")
	}
}

// TestCatalogBuilderMultipleSchemas tests adding multiple schemas.
func TestCatalogBuilderMultipleSchemas(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	cat, err := NewCatalogBuilder().
		Schema("schema1").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Schema("schema2").
		SimpleTable(SimpleTableDef{
			Name:     "table2",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Build()

	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}

	// Verify both schemas exist
	ctx := context.Background()
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		t.Fatalf("Failed to get schemas: %v", err)
	}

	if len(schemas) != 2 {
		t.Errorf("Expected 2 schemas, got %d", len(schemas))
	}
}

// TestCatalogBuilderEmptySchemaName tests that empty schema names are rejected.
func TestCatalogBuilderEmptySchemaName(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	_, err := NewCatalogBuilder().
		Schema("").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Build()

	if err == nil {
		t.Error("Expected error for empty schema name, got nil")
	}
}

// TestCatalogBuilderDuplicateSchemaNames tests that duplicate schema names are rejected.
func TestCatalogBuilderDuplicateSchemaNames(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	_, err := NewCatalogBuilder().
		Schema("duplicate").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Schema("duplicate").
		SimpleTable(SimpleTableDef{
			Name:     "table2",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Build()

	if err == nil {
		t.Error("Expected error for duplicate schema names, got nil")
	}

	if err != nil && !strings.Contains(err.Error(), "duplicate schema name") {
		t.Errorf("Expected 'duplicate schema name' error, got: %v", err)
	}
}

// TestCatalogBuilderDuplicateTableNames tests that duplicate table names in same schema are rejected.
func TestCatalogBuilderDuplicateTableNames(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	_, err := NewCatalogBuilder().
		Schema("test").
		SimpleTable(SimpleTableDef{
			Name:     "duplicate",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		SimpleTable(SimpleTableDef{
			Name:     "duplicate",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Build()

	if err == nil {
		t.Error("Expected error for duplicate table names, got nil")
	}

	var dup ErrDuplicateTable
	if !errors.As(err, &dup) || dup.Schema != "test" || dup.Name != "duplicate" {
		t.Errorf("Expected ErrDuplicateTable for test.duplicate, got: %v", err)
	}
}

// TestCatalogBuilderEmptyTableName tests that empty table names are rejected.
func TestCatalogBuilderEmptyTableName(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	_, err := NewCatalogBuilder().
		Schema("test").
		SimpleTable(SimpleTableDef{
			Name:     "",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Build()

	if err == nil {
		t.Error("Expected error for empty table name, got nil")
	}

	if err != nil && !strings.Contains(err.Error(), "table name cannot be empty") {
		t.Errorf("Expected 'table name cannot be empty' error, got: %v", err)
	}
}

// TestCatalogBuilderNilSchema tests that nil Arrow schema is rejected.
func TestCatalogBuilderNilSchema(t *testing.T) {
	_, err := NewCatalogBuilder().
		Schema("test").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   nil,
			ScanFunc: testScanFunc(nil),
		}).
		Build()

	if err == nil {
		t.Error("Expected error for nil schema, got nil")
	}

	if err != nil && !strings.Contains(err.Error(), "nil schema") {
		t.Errorf("Expected 'nil schema' error, got: %v", err)
	}
}

// TestCatalogBuilderNilScanFunc tests that nil scan function is rejected.
func TestCatalogBuilderNilScanFunc(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	_, err := NewCatalogBuilder().
		Schema("test").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   schema,
			ScanFunc: nil,
		}).
		Build()

	if err == nil {
		t.Error("Expected error for nil scan function, got nil")
	}

	if err != nil && !strings.Contains(err.Error(), "nil scan function") {
		t.Errorf("Expected 'nil scan function' error, got: %v", err)
	}
}

// TestCatalogBuilderCannotBuildTwice tests that building twice returns error.
func TestCatalogBuilderCannotBuildTwice(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	builder := NewCatalogBuilder().
		Schema("test").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		})

	// First build should succeed
	_, err := builder.Build()
	if err != nil {
		t.Fatalf("First build failed: %v", err)
	}

	// Second build should fail
	_, err = builder.Build()
	if err == nil {
		t.Error("Expected error when building twice, got nil")
	}

	if err != nil && !strings.Contains(err.Error(), "already built") {
		t.Errorf("Expected 'already built' error, got: %v", err)
	}
}

// TestCatalogBuilderWithComment tests adding comments to schemas.
func TestCatalogBuilderWithComment(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	cat, err := NewCatalogBuilder().
		Schema("test").
		Comment("Test schema comment").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Comment:  "Test table comment",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Build()

	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Verify comment is preserved
	ctx := context.Background()
	testSchema, err := cat.Schema(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to get schema: %v", err)
	}

	if testSchema.Comment() != "Test schema comment" {
		t.Errorf("Expected schema comment 'Test schema comment', got '%s'", testSchema.Comment())
	}
}

// TestCatalogBuilderTable tests adding prebuilt tables next to simple ones.
func TestCatalogBuilderTable(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	st, err := store.Open("builder", &store.Options{FS: vfs.NewMem()})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	orders, err := store.NewTable(st, "orders", "stored orders", schema, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	cat, err := NewCatalogBuilder().
		Schema("test").
		SimpleTable(SimpleTableDef{
			Name:     "table1",
			Schema:   schema,
			ScanFunc: testScanFunc(schema),
		}).
		Table(orders).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := context.Background()
	testSchema, err := cat.Schema(ctx, "test")
	if err != nil {
		t.Fatalf("Failed to get schema: %v", err)
	}
	tables, err := testSchema.Tables(ctx)
	if err != nil {
		t.Fatalf("Failed to get tables: %v", err)
	}
	if len(tables) != 2 || tables[0].Name() != "orders" || tables[1].Name() != "table1" {
		t.Errorf("Expected tables [orders table1], got %d tables", len(tables))
	}

	got, err := testSchema.Table(ctx, "orders")
	if err != nil || got == nil {
		t.Fatalf("Failed to get orders table: %v", err)
	}
	if _, ok := got.(catalog.ExactFilterTable); !ok {
		t.Error("store table should keep its exact filtering")
	}
}

// TestCatalogBuilderNilTable tests that nil tables are rejected.
func TestCatalogBuilderNilTable(t *testing.T) {
	_, err := NewCatalogBuilder().
		Schema("test").
		Table(nil).
		Build()
	if err == nil || !strings.Contains(err.Error(), "nil table") {
		t.Errorf("Expected 'nil table' error, got: %v", err)
	}
}
