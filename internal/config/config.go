// Package config loads connection configuration from CUE or YAML files.
//
// Both formats are validated against the embedded #Config CUE schema, which
// also supplies defaults, before being decoded into Config.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/esqlite/internal/store"
)

//go:embed schema.cue
var schemaSource []byte

// Error codes for LoadError.
const (
	ErrCodeRead      = "E_CONFIG_READ"
	ErrCodeFormat    = "E_CONFIG_FORMAT"
	ErrCodeParse     = "E_CONFIG_PARSE"
	ErrCodeSchema    = "E_CONFIG_SCHEMA"
	ErrCodeReference = "E_CONFIG_REFERENCE"
)

// LoadError is a configuration problem, with a source position when CUE
// reported one.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Config is the decoded configuration file.
type Config struct {
	// Default names the connection used when none is selected.
	Default string `json:"default"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	Connections []Connection `json:"connections"`
}

// Connection describes one named database.
type Connection struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	BusyTimeoutMS int      `json:"busy_timeout_ms"`
	Pragmas       []string `json:"pragmas"`
}

// StoreOptions converts the connection settings into store options.
func (c Connection) StoreOptions() []store.Option {
	opts := []store.Option{store.WithBusyTimeout(time.Duration(c.BusyTimeoutMS) * time.Millisecond)}
	if len(c.Pragmas) > 0 {
		opts = append(opts, store.WithPragmas(c.Pragmas...))
	}
	return opts
}

// Lookup returns the connection named name.
func (c *Config) Lookup(name string) (Connection, bool) {
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return Connection{}, false
}

// SlogLevel maps LogLevel to a slog level. Unknown values are Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and validates a .cue, .yaml or .yml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: err.Error()}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		return Parse(path, data)
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported config format %q (want .cue, .yaml or .yml)", ext)}
	}
}

// Parse validates CUE source. filename is used in error positions.
func Parse(filename string, src []byte) (*Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeParse, err)
	}
	return decode(ctx, v)
}

// ParseYAML validates YAML source against the same schema as Parse.
func ParseYAML(filename string, src []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("%s: %v", filename, err)}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeParse, err)
	}
	return decode(ctx, v)
}

// decode unifies v with #Config, checks it is complete and decodes it.
func decode(ctx *cue.Context, v cue.Value) (*Config, error) {
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// check enforces the cross-field rules CUE does not express.
func (c *Config) check() error {
	seen := make(map[string]bool, len(c.Connections))
	for _, conn := range c.Connections {
		if seen[conn.Name] {
			return &LoadError{Code: ErrCodeReference, Message: fmt.Sprintf("connection %q defined twice", conn.Name)}
		}
		seen[conn.Name] = true
	}
	if len(c.Connections) > 0 && !seen[c.Default] {
		return &LoadError{Code: ErrCodeReference, Message: fmt.Sprintf("default connection %q is not defined", c.Default)}
	}
	return nil
}

// cueError keeps the first CUE error position.
func cueError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: errors.Details(err, nil)}
	if errs := errors.Errors(err); len(errs) > 0 {
		le.Pos = errs[0].Position()
		le.Message = errs[0].Error()
	}
	return le
}
