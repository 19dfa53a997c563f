package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/go-cmp/cmp"
)

const sample = `
flight:
  address: ":6000"
  max_message_size: 1048576
http:
  address: "127.0.0.1:6080"
store:
  path: /tmp/records
  sync: true
log:
  level: debug
  format: json
auth:
  tokens:
    s3cret: alice
shutdown_timeout: 3s
tables:
  - name: orders
    comment: customer orders
    columns:
      - {name: n, type: int64}
      - {name: status, type: string}
      - {name: qty, type: float64}
  - schema: audit
    name: events
    columns:
      - {name: ok, type: bool}
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.Flight.Address != ":6000" || c.Flight.MaxMessageSize != 1<<20 {
		t.Errorf("flight = %+v", c.Flight)
	}
	if c.HTTP.Address != "127.0.0.1:6080" {
		t.Errorf("http = %+v", c.HTTP)
	}
	if c.Store.Path != "/tmp/records" || !c.Store.Sync {
		t.Errorf("store = %+v", c.Store)
	}
	if c.ShutdownTimeout != 3*time.Second {
		t.Errorf("shutdown_timeout = %s", c.ShutdownTimeout)
	}
	if diff := cmp.Diff(map[string]string{"s3cret": "alice"}, c.Auth.Tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"orders", "events"}, c.TableNames()); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
	if c.Tables[0].Schema != DefaultSchema || c.Tables[1].Schema != "audit" {
		t.Errorf("schemas = %s, %s", c.Tables[0].Schema, c.Tables[1].Schema)
	}

	schema, err := c.Tables[0].ArrowSchema()
	if err != nil {
		t.Fatalf("ArrowSchema: %v", err)
	}
	want := arrow.NewSchema([]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "status", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "qty", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
	if !schema.Equal(want) {
		t.Errorf("schema = %s", schema)
	}
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Flight.Address != DefaultFlightAddress ||
		c.HTTP.Address != DefaultHTTPAddress ||
		c.Store.Path != DefaultStorePath ||
		c.Flight.MaxMessageSize != DefaultMaxMessageSize ||
		c.ShutdownTimeout != DefaultShutdownTimeout ||
		c.Log.Level != "info" || c.Log.Format != "text" {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "flight:\n  adress: x\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"negative size", "flight:\n  max_message_size: -1\n"},
		{"empty identity", "auth:\n  tokens:\n    t: \"\"\n"},
		{"missing table name", "tables:\n  - columns: [{name: a, type: int64}]\n"},
		{"no columns", "tables:\n  - name: t\n"},
		{"bad column type", "tables:\n  - name: t\n    columns: [{name: a, type: decimal}]\n"},
		{"duplicate column", "tables:\n  - name: t\n    columns: [{name: a, type: int64}, {name: a, type: string}]\n"},
		{"duplicate table across schemas", "tables:\n  - {name: t, columns: [{name: a, type: int64}]}\n  - {schema: other, name: t, columns: [{name: a, type: int64}]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.name != "unknown key" && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "table", "orders")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"table":"orders"`) {
		t.Errorf("expected JSON attributes, got %q", out)
	}

	if _, err := NewLogger(LogConfig{Level: "nope"}, &buf); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
