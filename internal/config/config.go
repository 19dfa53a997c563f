// Package config loads the recordfilter server configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"gopkg.in/yaml.v3"

	"github.com/hugr-lab/recordfilter/batch"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Defaults applied to fields left empty.
const (
	DefaultFlightAddress   = ":50051"
	DefaultHTTPAddress     = ":8080"
	DefaultStorePath       = "data"
	DefaultMaxMessageSize  = 16 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSchema          = "main"
)

// Config is the server configuration file.
type Config struct {
	Flight          FlightConfig  `yaml:"flight"`
	HTTP            HTTPConfig    `yaml:"http"`
	Store           StoreConfig   `yaml:"store"`
	Log             LogConfig     `yaml:"log"`
	Auth            AuthConfig    `yaml:"auth"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Tables          []TableConfig `yaml:"tables"`
}

type FlightConfig struct {
	Address string `yaml:"address"`
	// PublicAddress is advertised in FlightEndpoint locations.
	PublicAddress  string `yaml:"public_address"`
	MaxMessageSize int    `yaml:"max_message_size"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
	// Disabled turns the REST API off.
	Disabled bool `yaml:"disabled"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
	Sync bool   `yaml:"sync"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type AuthConfig struct {
	// Tokens maps bearer tokens to identities. Empty disables auth.
	Tokens map[string]string `yaml:"tokens"`
}

type TableConfig struct {
	Schema  string         `yaml:"schema"`
	Name    string         `yaml:"name"`
	Comment string         `yaml:"comment"`
	Columns []ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // int64, float64, string or bool
}

// Load reads, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(b []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Flight.Address == "" {
		c.Flight.Address = DefaultFlightAddress
	}
	if c.Flight.MaxMessageSize == 0 {
		c.Flight.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = DefaultHTTPAddress
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	for i := range c.Tables {
		if c.Tables[i].Schema == "" {
			c.Tables[i].Schema = DefaultSchema
		}
	}
}

// Validate checks the configuration. Table names must be unique across
// schemas because they name the record store tables.
func (c *Config) Validate() error {
	if c.Flight.MaxMessageSize < 0 {
		return fmt.Errorf("%w: flight.max_message_size must be non-negative", ErrInvalid)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown_timeout must be non-negative", ErrInvalid)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	for token, identity := range c.Auth.Tokens {
		if token == "" || identity == "" {
			return fmt.Errorf("%w: auth.tokens entries need a token and an identity", ErrInvalid)
		}
	}

	seen := make(map[string]bool, len(c.Tables))
	for i, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("%w: tables[%d]: name is required", ErrInvalid, i)
		}
		if strings.IndexByte(t.Name, 0) >= 0 {
			return fmt.Errorf("%w: tables[%d]: name contains NUL", ErrInvalid, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate table name %s", ErrInvalid, t.Name)
		}
		seen[t.Name] = true
		if _, err := t.ArrowSchema(); err != nil {
			return err
		}
	}
	return nil
}

// TableNames returns the configured table names in file order.
func (c *Config) TableNames() []string {
	names := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		names[i] = t.Name
	}
	return names
}

// ArrowSchema builds the table's Arrow schema. All columns are nullable.
func (t TableConfig) ArrowSchema() (*arrow.Schema, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("%w: table %s has no columns", ErrInvalid, t.Name)
	}
	fields := make([]arrow.Field, len(t.Columns))
	seen := make(map[string]bool, len(t.Columns))
	for i, col := range t.Columns {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: table %s: column %d has no name", ErrInvalid, t.Name, i)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: table %s: duplicate column %s", ErrInvalid, t.Name, col.Name)
		}
		seen[col.Name] = true
		dt, err := batch.ColumnType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: table %s: column %s: %v", ErrInvalid, t.Name, col.Name, err)
		}
		fields[i] = arrow.Field{Name: col.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// NewLogger builds a slog logger writing to w with the configured level
// and format.
func NewLogger(c LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return level, nil
}
