package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/aligniov/internal/ir"
)

// Build describes one stored merged sequence.
type Build struct {
	Seq           int64
	ID            string // UUIDv7
	Channel       ir.Channel
	Digest        string // ir.SequenceDigest of the entries
	Sources       []string
	EntryCount    int
	FormatVersion string
	ToolVersion   string
}

// WriteBuild stores the merged sequence of ch.
// Returns the build and whether a new record was inserted.
//
// Uses ON CONFLICT(channel, digest) DO NOTHING for idempotency. If an
// identical sequence is already stored for ch, the existing build is
// returned with inserted=false and sources are left as first written.
// When a newer build of ch was written since, the existing build is moved
// to a fresh seq so ReadLatest serves it again.
//
// The build row and all entries are written in one transaction.
func (s *Store) WriteBuild(ctx context.Context, ch ir.Channel, seq ir.Sequence, sources []string) (b Build, inserted bool, err error) {
	if !ch.Valid() {
		return Build{}, false, fmt.Errorf("write build: %w: %d", ir.ErrUnknownChannel, int(ch))
	}

	digest, err := ir.SequenceDigest(seq)
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: %w", err)
	}
	sourcesJSON, err := marshalSources(sources)
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: new id: %w", err)
	}

	// Use a transaction to ensure atomicity of insert-or-select
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO builds
		(id, channel, digest, sources, entry_count, format_version, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, digest) DO NOTHING
	`,
		id.String(),
		ch.String(),
		digest,
		sourcesJSON,
		len(seq),
		ir.FormatVersion,
		ir.ToolVersion,
	)
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Conflict - identical sequence already stored, return it
		row := tx.QueryRowContext(ctx, buildColumns+`
			FROM builds
			WHERE channel = ? AND digest = ?
		`, ch.String(), digest)
		existing, err := scanBuild(row)
		if err != nil {
			return Build{}, false, fmt.Errorf("write build: select existing: %w", err)
		}
		if existing.Seq, err = promote(ctx, tx, existing); err != nil {
			return Build{}, false, err
		}
		if err := tx.Commit(); err != nil {
			return Build{}, false, fmt.Errorf("write build: commit: %w", err)
		}
		return existing, false, nil
	}

	seqNo, err := result.LastInsertId()
	if err != nil {
		return Build{}, false, fmt.Errorf("write build: last insert id: %w", err)
	}

	if err := writeEntries(ctx, tx, id.String(), seq); err != nil {
		return Build{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return Build{}, false, fmt.Errorf("write build: commit: %w", err)
	}

	return Build{
		Seq:           seqNo,
		ID:            id.String(),
		Channel:       ch,
		Digest:        digest,
		Sources:       append([]string{}, sources...),
		EntryCount:    len(seq),
		FormatVersion: ir.FormatVersion,
		ToolVersion:   ir.ToolVersion,
	}, true, nil
}

// promote gives b the next seq when another build of its channel is newer
// and returns b's seq afterwards. seq stays unique and is never reused
// because sqlite_sequence is advanced along with it.
func promote(ctx context.Context, tx *sql.Tx, b Build) (int64, error) {
	var newer bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM builds WHERE channel = ? AND seq > ?)
	`, b.Channel.String(), b.Seq).Scan(&newer)
	if err != nil {
		return 0, fmt.Errorf("write build: check newer: %w", err)
	}
	if !newer {
		return b.Seq, nil
	}

	var next int64
	err = tx.QueryRowContext(ctx, `
		UPDATE sqlite_sequence SET seq = seq + 1
		WHERE name = 'builds'
		RETURNING seq
	`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("write build: next seq: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE builds SET seq = ? WHERE id = ?`, next, b.ID); err != nil {
		return 0, fmt.Errorf("write build: promote %s: %w", b.ID, err)
	}
	return next, nil
}

func writeEntries(ctx context.Context, tx *sql.Tx, buildID string, seq ir.Sequence) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries
		(build_id, idx, first_run, first_lumi, last_run, last_lumi, corrections)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write entries: prepare: %w", err)
	}
	defer stmt.Close()

	for i, e := range seq {
		corrJSON, err := marshalCorrections(e.Corrections)
		if err != nil {
			return fmt.Errorf("write entries: entry %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx,
			buildID,
			i,
			int64(e.Interval.First.Run),
			int64(e.Interval.First.Lumi),
			int64(e.Interval.Last.Run),
			int64(e.Interval.Last.Lumi),
			corrJSON,
		)
		if err != nil {
			return fmt.Errorf("write entries: entry %d: %w", i, err)
		}
	}
	return nil
}

// DeleteBuild removes a build and its entries.
// Returns ErrNoBuild if id is not stored.
func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete build: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete build: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete build %s: %w", id, ErrNoBuild)
	}
	return nil
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
