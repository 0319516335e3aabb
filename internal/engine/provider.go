package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/aligniov/internal/ir"
)

// SequenceLoader reads one source file into a raw sequence.
// Implemented by loader.Loader (production) and in-memory fakes (tests).
type SequenceLoader interface {
	Load(ctx context.Context, path string) (ir.Sequence, error)
}

// SourceSet lists the ordered source files of each channel.
// Implemented by config.Config.
type SourceSet interface {
	Files(ch ir.Channel) []string
}

// Provider serves corrections for every channel.
//
// Sequences are fixed at construction and never written again. Each channel
// has its own ChannelState, indexed by channel, so a query touches only its
// own cache.
//
// Thread-safety model:
//   - Sequence(): safe from any goroutine
//   - Resolve(), Query(), Current(): one goroutine at a time
type Provider struct {
	seqs   [ir.NumChannels]ir.Sequence
	states [ir.NumChannels]ChannelState
	logger *slog.Logger
}

// ProviderOption allows configuration of a Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets the logger for build and resolve tracing.
//
// Default: slog.Default()
func WithProviderLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func newProvider(opts []ProviderOption) *Provider {
	p := &Provider{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	for _, ch := range ir.Channels() {
		p.states[ch] = NewChannelState(ch)
	}
	return p
}

// NewProvider creates a Provider over already-merged sequences.
// Channels missing from seqs get an empty sequence. A key outside the
// channel set is an UNKNOWN_CHANNEL error.
//
// The sequences are shared, not copied; callers must not modify them
// afterwards.
func NewProvider(seqs map[ir.Channel]ir.Sequence, opts ...ProviderOption) (*Provider, error) {
	p := newProvider(opts)
	for ch, seq := range seqs {
		if !ch.Valid() {
			return nil, NewUnknownChannelError(ch)
		}
		p.seqs[ch] = seq
	}
	return p, nil
}

// Build loads and merges the sources of every channel.
//
// Files of a channel are loaded in order and merged into one sequence. The
// first load failure aborts the whole build with a LOAD_FAILED error that
// unwraps to the loader's error. No channel is ever left silently empty
// because of a failed file.
func Build(ctx context.Context, loader SequenceLoader, sources SourceSet, opts ...ProviderOption) (*Provider, error) {
	p := newProvider(opts)

	for _, ch := range ir.Channels() {
		seq, err := p.buildChannel(ctx, loader, ch, sources.Files(ch))
		if err != nil {
			return nil, err
		}
		p.seqs[ch] = seq
	}

	return p, nil
}

func (p *Provider) buildChannel(ctx context.Context, loader SequenceLoader, ch ir.Channel, files []string) (ir.Sequence, error) {
	p.logger.Debug("preparing sequence", "channel", ch.String(), "files", len(files))

	raw := make([]ir.Sequence, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build %s: %w", ch, err)
		}

		seq, err := loader.Load(ctx, file)
		if err != nil {
			p.logger.Error("source load failed",
				"channel", ch.String(),
				"source", file,
				"error", err,
			)
			return nil, NewLoadFailedError(ch, file, err)
		}

		p.logger.Debug("source loaded",
			"channel", ch.String(),
			"source", file,
			"entries", len(seq),
		)
		raw = append(raw, seq)
	}

	merged := Merge(raw, WithLogger(p.logger.With("channel", ch.String())))

	p.logger.Info("sequence built",
		"channel", ch.String(),
		"sources", len(files),
		"entries", len(merged),
	)

	return merged, nil
}

// Resolution is the outcome of one Provider query.
type Resolution struct {
	Channel     ir.Channel
	At          ir.TimePoint
	Interval    ir.Interval
	Corrections ir.Corrections

	// Refreshed is true when the query left the cached interval and the
	// resolver ran.
	Refreshed bool
}

// Query resolves q on ch through the channel cache.
func (p *Provider) Query(ch ir.Channel, q ir.TimePoint) (Resolution, error) {
	if !ch.Valid() {
		return Resolution{}, NewUnknownChannelError(ch)
	}

	st := &p.states[ch]
	refreshed := st.Refresh(p.seqs[ch], q)
	iv, _ := st.Interval()

	res := Resolution{
		Channel:     ch,
		At:          q,
		Interval:    iv,
		Corrections: st.Current(),
		Refreshed:   refreshed,
	}

	if refreshed {
		p.logger.Debug("validity interval set",
			"channel", ch.String(),
			"at", q.String(),
			"interval", iv.String(),
			"empty", res.Corrections.IsEmpty(),
		)
	}

	return res, nil
}

// Resolve returns the validity interval and corrections of ch at q.
// An unknown channel fails with an UNKNOWN_CHANNEL RuntimeError.
func (p *Provider) Resolve(ch ir.Channel, q ir.TimePoint) (ir.Interval, ir.Corrections, error) {
	res, err := p.Query(ch, q)
	if err != nil {
		return ir.Interval{}, ir.Corrections{}, err
	}
	return res.Interval, res.Corrections, nil
}

// Current returns the corrections cached by the last query on ch, without
// resolving. Before any query this is the identity.
func (p *Provider) Current(ch ir.Channel) (ir.Corrections, error) {
	if !ch.Valid() {
		return ir.Corrections{}, NewUnknownChannelError(ch)
	}
	return p.states[ch].Current(), nil
}

// State returns a copy of the cache of ch.
func (p *Provider) State(ch ir.Channel) (ChannelState, error) {
	if !ch.Valid() {
		return ChannelState{}, NewUnknownChannelError(ch)
	}
	return p.states[ch], nil
}

// Sequence returns the merged sequence of ch. The result is shared and must
// be treated as read-only.
func (p *Provider) Sequence(ch ir.Channel) (ir.Sequence, error) {
	if !ch.Valid() {
		return nil, NewUnknownChannelError(ch)
	}
	return p.seqs[ch], nil
}
