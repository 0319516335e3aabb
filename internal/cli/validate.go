package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aligniov/internal/loader"
)

// FileReport is the validation outcome of one source file.
type FileReport struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Entries  int      `json:"entries"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileReport `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check source files without merging",
		Long: `Load each source file on its own and report what is wrong with it.

A file that cannot be loaded is invalid and reported with its error code
and, for CUE files, its line. Overlapping or out-of-order intervals inside a
file are legal (they add up when merged) and reported as warnings.

Exit codes:
  0 - All files valid (warnings allowed)
  1 - At least one file is invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr(), 0)
	l := loader.New(loader.WithLogger(logger))

	result := ValidationResult{Valid: true, Files: make([]FileReport, 0, len(paths))}
	invalid := 0
	for _, path := range paths {
		report := FileReport{Path: path, Valid: true}

		seq, err := l.Load(cmd.Context(), path)
		if err != nil {
			report.Valid = false
			report.Code = loader.Code(err)
			if report.Code == "" {
				report.Code = ErrCodeGeneric
			}
			report.Message = err.Error()
			var le *loader.LoadError
			if errors.As(err, &le) {
				report.Message = le.Message
				if le.Pos.IsValid() {
					report.Line = le.Pos.Line()
					report.Column = le.Pos.Column()
				}
			}
			invalid++
		} else {
			report.Entries = len(seq)
			// Files may list IOVs in any order; only overlaps are worth a warning.
			seq.Sort()
			for _, issue := range seq.Validate() {
				report.Warnings = append(report.Warnings, issue.Error())
			}
		}

		result.Files = append(result.Files, report)
	}

	if invalid == 0 {
		return f.Success(result, func(w io.Writer) { renderValidation(w, result) })
	}

	result.Valid = false
	message := fmt.Sprintf("%d of %d file(s) invalid", invalid, len(paths))
	if err := f.Failure(ErrCodeInvalid, message, result, func(w io.Writer) { renderValidation(w, result) }); err != nil {
		return err
	}
	return NewExitError(ExitFailure, message)
}

func renderValidation(w io.Writer, result ValidationResult) {
	for _, r := range result.Files {
		if !r.Valid {
			loc := r.Path
			if r.Line > 0 {
				loc = fmt.Sprintf("%s:%d:%d", r.Path, r.Line, r.Column)
			}
			fmt.Fprintf(w, "✗ %s\n  [%s] %s\n", loc, r.Code, r.Message)
			continue
		}
		fmt.Fprintf(w, "✓ %s (%d entries)\n", r.Path, r.Entries)
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}
}
