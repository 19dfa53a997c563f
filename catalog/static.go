package catalog

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// StaticCatalog is an immutable catalog built once at startup.
type StaticCatalog struct {
	schemas map[string]*staticSchema
	names   []string
}

var _ Catalog = (*StaticCatalog)(nil)

// NewStaticCatalog creates an empty static catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		schemas: make(map[string]*staticSchema),
	}
}

// AddSchema adds a schema to the static catalog. It must not be called
// once the catalog is being served.
func (c *StaticCatalog) AddSchema(name, comment string, tables map[string]Table) {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Strings(names)

	if _, exists := c.schemas[name]; !exists {
		c.names = append(c.names, name)
		sort.Strings(c.names)
	}
	c.schemas[name] = &staticSchema{
		name:    name,
		comment: comment,
		tables:  tables,
		names:   names,
	}
}

// Schemas implements Catalog interface.
func (c *StaticCatalog) Schemas(ctx context.Context) ([]Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]Schema, 0, len(c.names))
	for _, name := range c.names {
		result = append(result, c.schemas[name])
	}
	return result, nil
}

// Schema implements Catalog interface.
func (c *StaticCatalog) Schema(ctx context.Context, name string) (Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	schema, ok := c.schemas[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	return schema, nil
}

// staticSchema is an immutable schema implementation.
type staticSchema struct {
	name    string
	comment string
	tables  map[string]Table
	names   []string
}

func (s *staticSchema) Name() string {
	return s.name
}

func (s *staticSchema) Comment() string {
	return s.comment
}

// Tables implements Schema interface.
func (s *staticSchema) Tables(ctx context.Context) ([]Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]Table, 0, len(s.names))
	for _, name := range s.names {
		result = append(result, s.tables[name])
	}
	return result, nil
}

// Table implements Schema interface.
func (s *staticSchema) Table(ctx context.Context, name string) (Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, ok := s.tables[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	return table, nil
}

// StaticTable is a table backed by a ScanFunc.
type StaticTable struct {
	name     string
	comment  string
	schema   *arrow.Schema
	scanFunc ScanFunc
}

var _ Table = (*StaticTable)(nil)

// NewStaticTable creates a static table.
func NewStaticTable(name, comment string, schema *arrow.Schema, scanFunc ScanFunc) *StaticTable {
	return &StaticTable{
		name:     name,
		comment:  comment,
		schema:   schema,
		scanFunc: scanFunc,
	}
}

// Name implements Table interface.
func (t *StaticTable) Name() string {
	return t.name
}

// Comment implements Table interface.
func (t *StaticTable) Comment() string {
	return t.comment
}

// ArrowSchema implements Table interface.
func (t *StaticTable) ArrowSchema(columns []string) *arrow.Schema {
	return ProjectSchema(t.schema, columns)
}

// Scan implements Table interface.
func (t *StaticTable) Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error) {
	return t.scanFunc(ctx, opts)
}
