// Package config reads the provider configuration: which source files feed
// each correction channel, and how verbose to be.
//
//	verbosity: 1
//	measured_files: [a.xml, b.yaml]
//	real_files: []
//	misaligned_files: [m.cue]
//
// Relative file paths are resolved against the directory holding the
// configuration file. Config implements engine.SourceSet.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/aligniov/internal/ir"
)

// MaxVerbosity is the highest meaningful verbosity level.
const MaxVerbosity = 3

// Config lists the source files of every channel.
// File order matters only for tracing; merging is order-independent.
type Config struct {
	Verbosity       int      `yaml:"verbosity" validate:"min=0,max=3"`
	MeasuredFiles   []string `yaml:"measured_files" validate:"dive,required"`
	RealFiles       []string `yaml:"real_files" validate:"dive,required"`
	MisalignedFiles []string `yaml:"misaligned_files" validate:"dive,required"`
}

// configValidate is the validator instance for configurations.
// Initialized in init() to report yaml field names.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Load reads a configuration file. Unknown fields are rejected.
// An empty file is a valid configuration with no sources.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.ResolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes and validates a configuration without touching paths.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be between 0 and %d", field, MaxVerbosity))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s must not be empty", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q check", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ResolvePaths makes every relative file path relative to dir.
func (c *Config) ResolvePaths(dir string) {
	for _, files := range []*[]string{&c.MeasuredFiles, &c.RealFiles, &c.MisalignedFiles} {
		for i, f := range *files {
			if !filepath.IsAbs(f) {
				(*files)[i] = filepath.Join(dir, f)
			}
		}
	}
}

// Files returns the source files of ch, in configuration order.
// Unknown channels have no files.
func (c *Config) Files(ch ir.Channel) []string {
	switch ch {
	case ir.Measured:
		return c.MeasuredFiles
	case ir.Real:
		return c.RealFiles
	case ir.Misaligned:
		return c.MisalignedFiles
	default:
		return nil
	}
}

// SetFiles replaces the source files of ch.
func (c *Config) SetFiles(ch ir.Channel, files []string) error {
	switch ch {
	case ir.Measured:
		c.MeasuredFiles = files
	case ir.Real:
		c.RealFiles = files
	case ir.Misaligned:
		c.MisalignedFiles = files
	default:
		return fmt.Errorf("%w: %s", ir.ErrUnknownChannel, ch)
	}
	return nil
}

// IsEmpty reports whether no channel has any file.
func (c *Config) IsEmpty() bool {
	return len(c.MeasuredFiles) == 0 && len(c.RealFiles) == 0 && len(c.MisalignedFiles) == 0
}
