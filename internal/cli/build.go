package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	sourceOptions
}

// ChannelSummary describes the merged sequence of one channel.
type ChannelSummary struct {
	Channel string   `json:"channel"`
	Sources []string `json:"sources"`
	Entries int      `json:"entries"`
	Span    string   `json:"span,omitempty"`
	Digest  string   `json:"digest"`
	BuildID string   `json:"build_id,omitempty"`
	Stored  string   `json:"stored,omitempty"` // "new" or "existing"
}

// BuildResult holds the build command output.
type BuildResult struct {
	Channels []ChannelSummary `json:"channels"`
	DB       string           `json:"db,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Load and merge correction sources",
		Long: `Load every source file of every channel and merge each channel into one
non-overlapping sequence.

Prints one summary line per channel with the entry count, the covered span
and the content digest. With --db the merged sequences are stored; storing a
sequence that is already present reuses the existing build.

Exit codes:
  0 - All channels built
  1 - A source file failed to load
  2 - Command error (no sources, bad configuration, store failure)

Examples:
  aligniov build --config aligniov.yaml
  aligniov build --measured a.xml --measured b.yaml --real r.cue
  aligniov build --config aligniov.yaml --db builds.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}

	opts.addFlags(cmd, "store merged sequences in this SQLite database")

	return cmd
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	cfg, err := opts.config()
	if err != nil {
		return reportError(f, WrapExitError(ExitCommandError, "invalid configuration", err).WithErrCode(ErrCodeConfig))
	}
	if cfg.IsEmpty() {
		return reportError(f, NewExitError(ExitCommandError, "no sources: pass --config or a channel file flag").WithErrCode(ErrCodeNoSources))
	}

	logger := opts.logger(cmd.ErrOrStderr(), cfg.Verbosity)
	p, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return reportError(f, err)
	}

	var st *store.Store
	if opts.DBPath != "" {
		st, err = store.Open(opts.DBPath)
		if err != nil {
			return reportError(f, WrapExitError(ExitCommandError, "open store", err).WithErrCode(ErrCodeStore))
		}
		defer st.Close()
	}

	result := BuildResult{Channels: []ChannelSummary{}, DB: opts.DBPath}
	for _, ch := range ir.Channels() {
		files := cfg.Files(ch)
		if len(files) == 0 {
			continue
		}

		seq, err := p.Sequence(ch)
		if err != nil {
			return reportError(f, err)
		}
		digest, err := ir.SequenceDigest(seq)
		if err != nil {
			return reportError(f, err)
		}

		summary := ChannelSummary{
			Channel: ch.String(),
			Sources: files,
			Entries: len(seq),
			Digest:  digest,
		}
		if span, ok := seq.Span(); ok {
			summary.Span = span.String()
		}

		if st != nil {
			b, inserted, err := st.WriteBuild(ctx, ch, seq, files)
			if err != nil {
				return reportError(f, WrapExitError(ExitCommandError, "write build", err).WithErrCode(ErrCodeStore))
			}
			summary.BuildID = b.ID
			summary.Stored = "existing"
			if inserted {
				summary.Stored = "new"
			}
			logger.Debug("build stored", "channel", ch.String(), "build_id", b.ID, "inserted", inserted)
		}

		result.Channels = append(result.Channels, summary)
	}

	return f.Success(result, func(w io.Writer) { renderBuild(w, result) })
}

func renderBuild(w io.Writer, result BuildResult) {
	for _, c := range result.Channels {
		span := c.Span
		if span == "" {
			span = "(empty)"
		}
		fmt.Fprintf(w, "%-10s %3d entries  %s  digest %s  (%d sources)\n",
			c.Channel, c.Entries, span, shortDigest(c.Digest), len(c.Sources))
		if c.BuildID != "" {
			fmt.Fprintf(w, "           stored as %s (%s)\n", c.BuildID, c.Stored)
		}
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
