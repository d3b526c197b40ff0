// Package config loads the batch settings from an HCL file.
//
// Every attribute is optional. Values missing from the file keep the
// defaults of Default, so an empty file is a valid configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/chazu/wallhole/pkg/batch"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid configuration")

// Log holds the logger settings.
type Log struct {
	Level  string
	Format string
}

// Config is the decoded configuration.
type Config struct {
	Batch batch.Options
	Log   Log
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Batch: batch.DefaultOptions(),
		Log:   Log{Level: "info", Format: "text"},
	}
}

// hclFile mirrors the file layout for gohcl. Pointers distinguish an
// absent attribute from its zero value.
type hclFile struct {
	LinkTitle          *string  `hcl:"link_title_contains,optional"`
	FamilyName         *string  `hcl:"family_name,optional"`
	TypeName           *string  `hcl:"type_name,optional"`
	WidthParam         *string  `hcl:"width_parameter,optional"`
	HeightParam        *string  `hcl:"height_parameter,optional"`
	TransactionName    *string  `hcl:"transaction_name,optional"`
	IncludeLinkedWalls *bool    `hcl:"include_linked_walls,optional"`
	RollbackOnFailure  *bool    `hcl:"rollback_on_failure,optional"`
	DefaultSize        *hclSize `hcl:"default_size,block"`
	Log                *hclLog  `hcl:"log,block"`
}

type hclSize struct {
	Width  *float64 `hcl:"width,optional"`
	Height *float64 `hcl:"height,optional"`
}

type hclLog struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decode(f, path)
}

// Parse decodes and validates configuration source. filename is used in
// diagnostics only.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	return decode(f, filename)
}

func decode(f *hcl.File, filename string) (*Config, error) {
	var raw hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}
	cfg := Default()
	raw.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return cfg, nil
}

func (raw *hclFile) apply(cfg *Config) {
	b := &cfg.Batch
	setString(&b.LinkTitle, raw.LinkTitle)
	setString(&b.FamilyName, raw.FamilyName)
	setString(&b.TypeName, raw.TypeName)
	setString(&b.WidthParam, raw.WidthParam)
	setString(&b.HeightParam, raw.HeightParam)
	setString(&b.TransactionName, raw.TransactionName)
	if raw.IncludeLinkedWalls != nil {
		b.IncludeLinkedWalls = *raw.IncludeLinkedWalls
	}
	if raw.RollbackOnFailure != nil {
		b.RollbackOnFailure = *raw.RollbackOnFailure
	}
	if raw.DefaultSize != nil {
		if raw.DefaultSize.Width != nil {
			b.DefaultSize.Width = *raw.DefaultSize.Width
		}
		if raw.DefaultSize.Height != nil {
			b.DefaultSize.Height = *raw.DefaultSize.Height
		}
	}
	if raw.Log != nil {
		setString(&cfg.Log.Level, raw.Log.Level)
		setString(&cfg.Log.Format, raw.Log.Format)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the configuration for values the batch cannot run with.
func (c *Config) Validate() error {
	var errs []error
	b := c.Batch
	if !b.DefaultSize.Valid() {
		errs = append(errs, fmt.Errorf("default_size must be positive, got %gx%g", b.DefaultSize.Width, b.DefaultSize.Height))
	}
	for _, f := range []struct{ name, value string }{
		{"link_title_contains", b.LinkTitle},
		{"family_name", b.FamilyName},
		{"width_parameter", b.WidthParam},
		{"height_parameter", b.HeightParam},
		{"transaction_name", b.TransactionName},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", f.name))
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
