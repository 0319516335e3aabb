package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/aligniov/internal/ir"
)

// RuntimeError represents an error detected while building or querying
// channel timelines.
//
// Runtime errors include:
//   - Unknown channel: a query named a channel outside the closed set
//   - Load failed: a source file for a channel could not be loaded
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Channel is the affected channel name, if known.
	Channel string

	// Source is the file that failed to load (load errors only).
	Source string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownChannel indicates a channel outside Measured, Real, Misaligned.
	ErrCodeUnknownChannel RuntimeErrorCode = "UNKNOWN_CHANNEL"

	// ErrCodeLoadFailed indicates a channel source could not be loaded.
	ErrCodeLoadFailed RuntimeErrorCode = "LOAD_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Channel != "" && e.Source != "" {
		return fmt.Sprintf("%s: %s (channel=%s, source=%s)", e.Code, e.Message, e.Channel, e.Source)
	}
	if e.Channel != "" {
		return fmt.Sprintf("%s: %s (channel=%s)", e.Code, e.Message, e.Channel)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsUnknownChannel returns true if the error is an unknown channel error.
// Uses errors.As to handle wrapped errors, and also matches a bare
// ir.ErrUnknownChannel from ir.ParseChannel.
func IsUnknownChannel(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownChannel
	}
	return errors.Is(err, ir.ErrUnknownChannel)
}

// IsLoadFailed returns true if the error is a channel load failure.
// Uses errors.As to handle wrapped errors.
func IsLoadFailed(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeLoadFailed
	}
	return false
}

// NewUnknownChannelError creates a RuntimeError for a channel outside the set.
func NewUnknownChannelError(ch ir.Channel) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownChannel,
		Message: fmt.Sprintf("no correction sequence for %s", ch),
		Err:     ir.ErrUnknownChannel,
	}
}

// NewLoadFailedError creates a RuntimeError for a source that failed to load.
func NewLoadFailedError(ch ir.Channel, source string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("load failed: %v", err),
		Channel: ch.String(),
		Source:  source,
		Err:     err,
	}
}
