// Package loader reads alignment correction files into raw sequences.
//
// Three formats describe the same model: a list of validity intervals, each
// carrying per-sensor and per-pot corrections, plus optional top-level
// corrections valid for all time.
//
//   - .xml        alignment-description XML (attributes in mm and rad)
//   - .yaml/.yml  the same model in YAML, decoded strictly
//   - .cue        the same model in CUE, checked against an embedded schema
//
// A loaded sequence is raw: entries keep file order and may overlap.
// Overlap is resolved later by engine.Merge.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/aligniov/internal/ir"
)

// Format identifies a source file format.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// DetectFormat returns the format implied by the file extension.
func DetectFormat(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".cue":
		return FormatCUE, true
	default:
		return "", false
	}
}

// Loader reads source files. It implements engine.SequenceLoader.
//
// A Loader owns a CUE context and is not safe for concurrent use.
type Loader struct {
	logger *slog.Logger
	cue    *cue.Context
	schema cue.Value
}

// Option allows configuration of a Loader.
type Option func(*Loader)

// WithLogger sets the logger for load tracing.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	ctx := cuecontext.New()
	l := &Loader{
		logger: slog.Default(),
		cue:    ctx,
		schema: compileSchema(ctx),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path and returns its raw sequence.
// All failures are *LoadError values carrying path and an E-code.
func (l *Loader) Load(ctx context.Context, path string) (ir.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, ok := DetectFormat(path)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeUnsupported,
			Path:    path,
			Message: fmt.Sprintf("unsupported extension %q (want .xml, .yaml, .yml or .cue)", filepath.Ext(path)),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file not found"}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Path: path, Message: fmt.Sprintf("read: %v", err)}
	}

	var doc *document
	switch format {
	case FormatXML:
		doc, err = decodeXML(data)
	case FormatYAML:
		doc, err = decodeYAML(data)
	case FormatCUE:
		doc, err = l.decodeCUE(path, data)
	}
	if err != nil {
		return nil, withPath(err, path)
	}

	if err := doc.validate(); err != nil {
		return nil, withPath(err, path)
	}

	seq, err := doc.sequence()
	if err != nil {
		return nil, withPath(err, path)
	}

	l.logger.Debug("source parsed",
		"path", path,
		"format", string(format),
		"entries", len(seq),
	)

	return seq, nil
}
