package recordfilter

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/recordfilter/catalog"
)

// SimpleTableDef defines a table with fixed schema.
// Used with SchemaBuilder.SimpleTable().
type SimpleTableDef struct {
	// Name is the table name (e.g., "users", "orders").
	// REQUIRED: MUST be non-empty and unique within schema.
	Name string

	// Comment is optional table documentation.
	Comment string

	// Schema is the Arrow schema describing table columns.
	// REQUIRED: MUST NOT be nil.
	Schema *arrow.Schema

	// ScanFunc provides table data as RecordReader. It receives the
	// compiled filter in ScanOptions; the server re-applies the filter
	// to whatever it returns.
	// REQUIRED: MUST NOT be nil.
	ScanFunc catalog.ScanFunc
}

// CatalogBuilder builds static catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	schemas []*schemaBuilder
	built   bool
}

// NewCatalogBuilder creates a new fluent catalog builder.
//
// Example:
//
//	cat, err := recordfilter.NewCatalogBuilder().
//	    Schema("main").
//	        SimpleTable(def).
//	        Table(storeTable).
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Schema starts defining a new schema.
// Schema name MUST be non-empty and unique within catalog.
func (cb *CatalogBuilder) Schema(name string) *SchemaBuilder {
	sb := &schemaBuilder{
		name:           name,
		catalogBuilder: cb,
	}
	cb.schemas = append(cb.schemas, sb)
	return &SchemaBuilder{builder: sb}
}

// Build finalizes the catalog and returns immutable Catalog implementation.
// Can only be called once.
// Returns error if catalog is invalid (e.g., duplicate schema names).
func (cb *CatalogBuilder) Build() (catalog.Catalog, error) {
	if cb.built {
		return nil, fmt.Errorf("catalog already built")
	}

	seenNames := make(map[string]bool)
	for _, sb := range cb.schemas {
		if sb.name == "" {
			return nil, fmt.Errorf("schema name cannot be empty")
		}
		if sb.err != nil {
			return nil, sb.err
		}
		if seenNames[sb.name] {
			return nil, fmt.Errorf("duplicate schema name: %s", sb.name)
		}
		seenNames[sb.name] = true

		tableNames := make(map[string]bool)
		for _, table := range sb.tables {
			if table.Name() == "" {
				return nil, fmt.Errorf("table name cannot be empty in schema %s", sb.name)
			}
			if tableNames[table.Name()] {
				return nil, ErrDuplicateTable{Schema: sb.name, Name: table.Name()}
			}
			tableNames[table.Name()] = true

			if table.ArrowSchema(nil) == nil {
				return nil, fmt.Errorf("table %s.%s has nil schema", sb.name, table.Name())
			}
		}
	}

	cb.built = true

	cat := catalog.NewStaticCatalog()
	for _, sb := range cb.schemas {
		tables := make(map[string]catalog.Table, len(sb.tables))
		for _, t := range sb.tables {
			tables[t.Name()] = t
		}
		cat.AddSchema(sb.name, sb.comment, tables)
	}

	return cat, nil
}

// SchemaBuilder builds a schema within a catalog.
// Not thread-safe - use only during initialization.
type SchemaBuilder struct {
	builder *schemaBuilder
}

type schemaBuilder struct {
	name           string
	comment        string
	tables         []catalog.Table
	err            error
	catalogBuilder *CatalogBuilder
}

// Comment sets optional schema documentation.
func (sb *SchemaBuilder) Comment(comment string) *SchemaBuilder {
	sb.builder.comment = comment
	return sb
}

// SimpleTable adds a table with fixed schema using SimpleTableDef.
// Table name MUST be unique within schema.
//
// Example:
//
//	schema.SimpleTable(recordfilter.SimpleTableDef{
//	    Name:     "users",
//	    Comment:  "User accounts",
//	    Schema:   userSchema,
//	    ScanFunc: scanUsers,
//	})
func (sb *SchemaBuilder) SimpleTable(def SimpleTableDef) *SchemaBuilder {
	if def.Schema == nil {
		sb.fail(fmt.Errorf("table %s.%s has nil schema", sb.builder.name, def.Name))
		return sb
	}
	if def.ScanFunc == nil {
		sb.fail(fmt.Errorf("table %s.%s has nil scan function", sb.builder.name, def.Name))
		return sb
	}
	return sb.Table(catalog.NewStaticTable(def.Name, def.Comment, def.Schema, def.ScanFunc))
}

// Table adds an existing catalog.Table, such as a store.Table.
// Table name MUST be unique within schema.
func (sb *SchemaBuilder) Table(t catalog.Table) *SchemaBuilder {
	if t == nil {
		sb.fail(fmt.Errorf("nil table in schema %s", sb.builder.name))
		return sb
	}
	sb.builder.tables = append(sb.builder.tables, t)
	return sb
}

func (sb *SchemaBuilder) fail(err error) {
	if sb.builder.err == nil {
		sb.builder.err = err
	}
}

// Schema starts a new schema definition (returns to CatalogBuilder).
// Allows chaining: Schema("a").Table(...).Schema("b").Table(...)
func (sb *SchemaBuilder) Schema(name string) *SchemaBuilder {
	return sb.builder.catalogBuilder.Schema(name)
}

// Build finalizes the catalog (returns to CatalogBuilder).
// Same as calling catalogBuilder.Build().
func (sb *SchemaBuilder) Build() (catalog.Catalog, error) {
	return sb.builder.catalogBuilder.Build()
}
