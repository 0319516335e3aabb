package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/store"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	sourceOptions
	Channel string
	Build   string
}

// EntryView is one entry of a dumped sequence.
type EntryView struct {
	First       string         `json:"first"`
	Last        string         `json:"last"`
	OpenEnded   bool           `json:"open_ended"`
	Corrections ir.Corrections `json:"corrections"`
}

// DumpResult holds the dump command output.
type DumpResult struct {
	Channel string      `json:"channel"`
	Digest  string      `json:"digest"`
	Entries []EntryView `json:"entries"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the merged sequence of a channel",
		Long: `Print every entry of a channel's merged sequence in order, with the
correction in force over each interval. Gaps between source intervals show
up as identity entries.

With --db the newest stored build of the channel is shown; --build selects
an older one by id.

Examples:
  aligniov dump --config aligniov.yaml --channel measured
  aligniov dump --db builds.db --channel misaligned --format json
  aligniov dump --db builds.db --build 0190b6f0-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Channel, "channel", "", "channel to dump (measured|real|misaligned)")
	cmd.Flags().StringVar(&opts.Build, "build", "", "stored build id (requires --db)")
	cmd.MarkFlagsOneRequired("channel", "build")
	cmd.MarkFlagsMutuallyExclusive("channel", "build")
	opts.addFlags(cmd, "read the latest stored builds from this SQLite database")

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	ch, seq, err := opts.sequence(cmd)
	if err != nil {
		return reportError(f, err)
	}
	digest, err := ir.SequenceDigest(seq)
	if err != nil {
		return reportError(f, err)
	}

	result := DumpResult{Channel: ch.String(), Digest: digest, Entries: make([]EntryView, 0, len(seq))}
	for _, e := range seq {
		result.Entries = append(result.Entries, EntryView{
			First:       e.Interval.First.String(),
			Last:        e.Interval.Last.String(),
			OpenEnded:   e.Interval.OpenEnded(),
			Corrections: e.Corrections,
		})
	}

	return f.Success(result, func(w io.Writer) { renderDump(w, result, seq) })
}

// sequence returns the sequence to dump: a stored build by id, or the
// merged sequence of a channel.
func (o *DumpOptions) sequence(cmd *cobra.Command) (ir.Channel, ir.Sequence, error) {
	if o.Build != "" {
		if o.DBPath == "" {
			return 0, nil, NewExitError(ExitCommandError, "--build requires --db").WithErrCode(ErrCodeConfig)
		}
		return o.storedBuild(cmd)
	}

	ch, err := ir.ParseChannel(o.Channel)
	if err != nil {
		return 0, nil, WrapExitError(ExitCommandError, "invalid --channel", err)
	}

	p, err := o.openProvider(cmd.Context(), o.RootOptions, cmd)
	if err != nil {
		return 0, nil, err
	}

	seq, err := p.Sequence(ch)
	if err != nil {
		return 0, nil, err
	}
	return ch, seq, nil
}

func (o *DumpOptions) storedBuild(cmd *cobra.Command) (ir.Channel, ir.Sequence, error) {
	if _, err := os.Stat(o.DBPath); err != nil {
		return 0, nil, WrapExitError(ExitCommandError, "database not found", err).WithErrCode(ErrCodeStore)
	}
	st, err := store.Open(o.DBPath)
	if err != nil {
		return 0, nil, WrapExitError(ExitCommandError, "open store", err).WithErrCode(ErrCodeStore)
	}
	defer st.Close()

	b, seq, err := st.ReadBuild(cmd.Context(), o.Build)
	if err != nil {
		return 0, nil, WrapExitError(ExitCommandError, "read build", err)
	}
	return b.Channel, seq, nil
}

func renderDump(w io.Writer, result DumpResult, seq ir.Sequence) {
	fmt.Fprintf(w, "%s: %d entries, digest %s\n", result.Channel, len(seq), shortDigest(result.Digest))
	for i, e := range seq {
		fmt.Fprintf(w, "[%d] %s\n", i, e.Interval)
		renderCorrections(w, "    ", e.Corrections)
	}
}
