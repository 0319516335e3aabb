package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/aligniov/internal/ir"
)

// MapLoader serves sequences from memory, keyed by path.
//
// Unknown paths fail like a missing file. Errors can be injected per path.
// Every Load is recorded so tests can assert what was (and was not) read.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MapLoader struct {
	mu    sync.Mutex
	seqs  map[string]ir.Sequence
	errs  map[string]error
	calls []string
}

// NewMapLoader creates a loader serving seqs.
func NewMapLoader(seqs map[string]ir.Sequence) *MapLoader {
	if seqs == nil {
		seqs = map[string]ir.Sequence{}
	}
	return &MapLoader{seqs: seqs, errs: map[string]error{}}
}

// Fail makes Load(path) return err.
func (l *MapLoader) Fail(path string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[path] = err
}

// Load implements engine.SequenceLoader.
func (l *MapLoader) Load(ctx context.Context, path string) (ir.Sequence, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, path)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := l.errs[path]; ok {
		return nil, err
	}
	seq, ok := l.seqs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return seq, nil
}

// Calls returns the paths loaded so far, in order.
func (l *MapLoader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Sources maps channels to ordered file lists.
// Implements engine.SourceSet.
type Sources map[ir.Channel][]string

// Files returns the files of ch.
func (s Sources) Files(ch ir.Channel) []string {
	return s[ch]
}
