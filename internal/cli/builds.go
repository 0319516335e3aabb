package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aligniov/internal/store"
)

// BuildsOptions holds flags for the builds command.
type BuildsOptions struct {
	*RootOptions
	DBPath string
	Delete string
}

// BuildView is one stored build.
type BuildView struct {
	Seq           int64    `json:"seq"`
	ID            string   `json:"id"`
	Channel       string   `json:"channel"`
	Digest        string   `json:"digest"`
	Entries       int      `json:"entries"`
	Sources       []string `json:"sources"`
	FormatVersion string   `json:"format_version"`
	ToolVersion   string   `json:"tool_version"`
}

// BuildsResult holds the builds command output.
type BuildsResult struct {
	Builds  []BuildView `json:"builds"`
	Deleted string      `json:"deleted,omitempty"`
}

// NewBuildsCommand creates the builds command.
func NewBuildsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "builds",
		Short: "List or delete stored builds",
		Long: `List every build stored in a database in insertion order. The newest
build of a channel is the one resolve and dump read with --db.

With --delete the build and its entries are removed first; the channel falls
back to its previous build.

Examples:
  aligniov builds --db builds.db
  aligniov builds --db builds.db --delete 0190b6f0-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilds(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database of stored builds")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the build with this id")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runBuilds(opts *BuildsOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	if _, err := os.Stat(opts.DBPath); err != nil {
		return reportError(f, WrapExitError(ExitCommandError, "database not found", err).WithErrCode(ErrCodeStore))
	}
	st, err := store.Open(opts.DBPath)
	if err != nil {
		return reportError(f, WrapExitError(ExitCommandError, "open store", err).WithErrCode(ErrCodeStore))
	}
	defer st.Close()

	result := BuildsResult{Builds: []BuildView{}}
	if opts.Delete != "" {
		if err := st.DeleteBuild(ctx, opts.Delete); err != nil {
			return reportError(f, WrapExitError(ExitCommandError, "delete build", err))
		}
		result.Deleted = opts.Delete
	}

	builds, err := st.ListBuilds(ctx)
	if err != nil {
		return reportError(f, WrapExitError(ExitCommandError, "read builds", err).WithErrCode(ErrCodeStore))
	}
	for _, b := range builds {
		result.Builds = append(result.Builds, BuildView{
			Seq:           b.Seq,
			ID:            b.ID,
			Channel:       b.Channel.String(),
			Digest:        b.Digest,
			Entries:       b.EntryCount,
			Sources:       b.Sources,
			FormatVersion: b.FormatVersion,
			ToolVersion:   b.ToolVersion,
		})
	}

	return f.Success(result, func(w io.Writer) { renderBuilds(w, result) })
}

func renderBuilds(w io.Writer, result BuildsResult) {
	if result.Deleted != "" {
		fmt.Fprintf(w, "deleted %s\n", result.Deleted)
	}
	if len(result.Builds) == 0 {
		fmt.Fprintln(w, "No builds stored.")
		return
	}
	for _, b := range result.Builds {
		fmt.Fprintf(w, "%4d  %s  %-10s %3d entries  digest %s\n",
			b.Seq, b.ID, b.Channel, b.Entries, shortDigest(b.Digest))
	}
}
