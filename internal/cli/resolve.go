package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aligniov/internal/ir"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	sourceOptions
	Channel string
	At      []string
}

// ResolutionView is one resolved query.
type ResolutionView struct {
	At          string         `json:"at"`
	First       string         `json:"first"`
	Last        string         `json:"last"`
	OpenEnded   bool           `json:"open_ended"`
	Refreshed   bool           `json:"refreshed"`
	Corrections ir.Corrections `json:"corrections"`
	Digest      string         `json:"digest"` // content digest of Corrections
}

// ResolveResult holds the resolve command output.
type ResolveResult struct {
	Channel     string           `json:"channel"`
	Resolutions []ResolutionView `json:"resolutions"`
	Resolves    int              `json:"resolves"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve time points to the correction in force",
		Long: `Resolve one or more run:lumi points on a channel.

Points are resolved in the order given through the channel cache: a point
inside the interval of the previous answer is served without resolving
again. Each answer shows the validity interval and the correction in force.
A point outside every stored interval resolves to the identity over the
whole gap.

Examples:
  aligniov resolve --config aligniov.yaml --channel measured --at 4:7
  aligniov resolve --db builds.db --channel real --at 1:0 --at 1:5 --at 9:max`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Channel, "channel", "", "channel to query (measured|real|misaligned)")
	cmd.Flags().StringArrayVar(&opts.At, "at", nil, "time point run:lumi (repeatable)")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("at")
	opts.addFlags(cmd, "read the latest stored builds from this SQLite database")

	return cmd
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	ch, err := ir.ParseChannel(opts.Channel)
	if err != nil {
		return reportError(f, WrapExitError(ExitCommandError, "invalid --channel", err))
	}

	points := make([]ir.TimePoint, 0, len(opts.At))
	for _, s := range opts.At {
		tp, err := ir.ParseTimePoint(s)
		if err != nil {
			return reportError(f, WrapExitError(ExitCommandError, "invalid --at", err).WithErrCode(ErrCodeBadTimePoint))
		}
		points = append(points, tp)
	}

	p, err := opts.openProvider(cmd.Context(), opts.RootOptions, cmd)
	if err != nil {
		return reportError(f, err)
	}

	result := ResolveResult{Channel: ch.String(), Resolutions: make([]ResolutionView, 0, len(points))}
	for _, tp := range points {
		res, err := p.Query(ch, tp)
		if err != nil {
			return reportError(f, WrapExitError(ExitCommandError, "resolve", err))
		}
		digest, err := ir.CorrectionsDigest(res.Corrections)
		if err != nil {
			return reportError(f, err)
		}
		result.Resolutions = append(result.Resolutions, ResolutionView{
			At:          res.At.String(),
			First:       res.Interval.First.String(),
			Last:        res.Interval.Last.String(),
			OpenEnded:   res.Interval.OpenEnded(),
			Refreshed:   res.Refreshed,
			Corrections: res.Corrections,
			Digest:      digest,
		})
	}

	state, err := p.State(ch)
	if err != nil {
		return reportError(f, err)
	}
	result.Resolves = state.Resolves()

	return f.Success(result, func(w io.Writer) { renderResolve(w, result, opts.Verbose > 0) })
}

func renderResolve(w io.Writer, result ResolveResult, verbose bool) {
	for _, r := range result.Resolutions {
		iv := fmt.Sprintf("[%s, %s]", r.First, r.Last)
		if r.OpenEnded {
			iv = fmt.Sprintf("[%s, end-of-time]", r.First)
		}
		source := "cached"
		if r.Refreshed {
			source = "resolved"
		}
		fmt.Fprintf(w, "%s @ %s  %s  (%s)\n", result.Channel, r.At, iv, source)
		renderCorrections(w, "  ", r.Corrections)
	}
	if verbose {
		fmt.Fprintf(w, "%d queries, %d resolves\n", len(result.Resolutions), result.Resolves)
	}
}

// renderCorrections writes one line per element, or "identity".
func renderCorrections(w io.Writer, indent string, c ir.Corrections) {
	if c.IsEmpty() {
		fmt.Fprintf(w, "%sidentity\n", indent)
		return
	}
	for _, id := range c.SensorIDs() {
		fmt.Fprintf(w, "%ssensor %d  %s\n", indent, id, formatShift(c.Sensors[id]))
	}
	for _, id := range c.PotIDs() {
		fmt.Fprintf(w, "%spot %d  %s\n", indent, id, formatShift(c.Pots[id]))
	}
}

// formatShift lists the non-zero components in mm and rad.
func formatShift(s ir.Shift) string {
	var parts []string
	add := func(name string, v float64, unit string) {
		if v != 0 {
			parts = append(parts, fmt.Sprintf("%s=%+g%s", name, v, unit))
		}
	}
	add("sh_x", ir.ToMillimetres(s.ShX), "mm")
	add("sh_y", ir.ToMillimetres(s.ShY), "mm")
	add("sh_z", ir.ToMillimetres(s.ShZ), "mm")
	add("rot_x", ir.ToRadians(s.RotX), "rad")
	add("rot_y", ir.ToRadians(s.RotY), "rad")
	add("rot_z", ir.ToRadians(s.RotZ), "rad")
	if len(parts) == 0 {
		return "zero"
	}
	return strings.Join(parts, " ")
}
