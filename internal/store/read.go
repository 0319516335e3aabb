package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/aligniov/internal/engine"
	"github.com/roach88/aligniov/internal/ir"
)

// ErrNoBuild is returned when no build matches a lookup.
var ErrNoBuild = errors.New("no build")

const buildColumns = `
	SELECT seq, id, channel, digest, sources, entry_count, format_version, tool_version`

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (Build, error) {
	var (
		b           Build
		channel     string
		sourcesJSON string
	)
	err := row.Scan(&b.Seq, &b.ID, &channel, &b.Digest, &sourcesJSON, &b.EntryCount, &b.FormatVersion, &b.ToolVersion)
	if err != nil {
		return Build{}, err
	}

	b.Channel, err = ir.ParseChannel(channel)
	if err != nil {
		return Build{}, fmt.Errorf("build %s: %w", b.ID, err)
	}
	b.Sources, err = unmarshalSources(sourcesJSON)
	if err != nil {
		return Build{}, fmt.Errorf("build %s: %w", b.ID, err)
	}
	return b, nil
}

// ReadLatest returns the most recently written build of ch and its
// sequence, counting rewrites of an already stored sequence. Returns ErrNoBuild if ch has never been stored.
func (s *Store) ReadLatest(ctx context.Context, ch ir.Channel) (Build, ir.Sequence, error) {
	if !ch.Valid() {
		return Build{}, nil, fmt.Errorf("read latest: %w: %d", ir.ErrUnknownChannel, int(ch))
	}

	row := s.db.QueryRowContext(ctx, buildColumns+`
		FROM builds
		WHERE channel = ?
		ORDER BY seq DESC
		LIMIT 1
	`, ch.String())

	b, err := scanBuild(row)
	if err != nil {
		if isNoRows(err) {
			return Build{}, nil, fmt.Errorf("read latest %s: %w", ch, ErrNoBuild)
		}
		return Build{}, nil, fmt.Errorf("read latest %s: %w", ch, err)
	}

	seq, err := s.readEntries(ctx, b.ID)
	if err != nil {
		return Build{}, nil, err
	}
	return b, seq, nil
}

// ReadBuild returns a build by ID together with its sequence.
// Returns ErrNoBuild if id is not stored.
func (s *Store) ReadBuild(ctx context.Context, id string) (Build, ir.Sequence, error) {
	row := s.db.QueryRowContext(ctx, buildColumns+`
		FROM builds
		WHERE id = ?
	`, id)

	b, err := scanBuild(row)
	if err != nil {
		if isNoRows(err) {
			return Build{}, nil, fmt.Errorf("read build %s: %w", id, ErrNoBuild)
		}
		return Build{}, nil, fmt.Errorf("read build %s: %w", id, err)
	}

	seq, err := s.readEntries(ctx, b.ID)
	if err != nil {
		return Build{}, nil, err
	}
	return b, seq, nil
}

// ListBuilds returns every build ordered by seq, oldest write first.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListBuilds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, buildColumns+`
		FROM builds
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// readEntries returns the ordered entries of a build.
func (s *Store) readEntries(ctx context.Context, buildID string) (ir.Sequence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT first_run, first_lumi, last_run, last_lumi, corrections
		FROM entries
		WHERE build_id = ?
		ORDER BY idx ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	seq := ir.Sequence{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", buildID, err)
		}
		seq = append(seq, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return seq, nil
}

func scanEntry(rows *sql.Rows) (ir.Entry, error) {
	var (
		firstRun, firstLumi, lastRun, lastLumi int64
		corrJSON                               string
	)
	if err := rows.Scan(&firstRun, &firstLumi, &lastRun, &lastLumi, &corrJSON); err != nil {
		return ir.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	corr, err := unmarshalCorrections(corrJSON)
	if err != nil {
		return ir.Entry{}, err
	}

	return ir.Entry{
		Interval: ir.Interval{
			First: ir.TimePoint{Run: uint32(firstRun), Lumi: uint32(firstLumi)},
			Last:  ir.TimePoint{Run: uint32(lastRun), Lumi: uint32(lastLumi)},
		},
		Corrections: corr,
	}, nil
}

// LoadProvider builds a Provider from the latest build of every channel.
// A channel with no stored build gets an empty sequence.
func (s *Store) LoadProvider(ctx context.Context, opts ...engine.ProviderOption) (*engine.Provider, error) {
	seqs := make(map[ir.Channel]ir.Sequence, ir.NumChannels)
	for _, ch := range ir.Channels() {
		_, seq, err := s.ReadLatest(ctx, ch)
		if err != nil {
			if errors.Is(err, ErrNoBuild) {
				continue
			}
			return nil, err
		}
		seqs[ch] = seq
	}
	return engine.NewProvider(seqs, opts...)
}
