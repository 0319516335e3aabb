package loader

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error code constants - shared with the CLI's JSON output.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeNotFound       = "E002" // Source file not found
	ErrCodeUnsupported    = "E003" // Unsupported file extension
	ErrCodeParseFailed    = "E004" // Malformed XML/YAML/CUE
	ErrCodeBuildFailed    = "E005" // CUE schema or evaluation failed
	ErrCodeInvalidIOV     = "E006" // Bad or reversed validity interval
	ErrCodeInvalidElement = "E007" // Bad element id or correction value
)

// LoadError represents an error that occurred while loading a source file.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError returns true if err is (or wraps) a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Code returns the LoadError code of err, or "" if err is not a LoadError.
func Code(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// withPath stamps path on a LoadError produced by a decoder.
// Other errors become generic LoadErrors.
func withPath(err error, path string) error {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Path == "" {
			le.Path = path
		}
		return le
	}
	return &LoadError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
}
