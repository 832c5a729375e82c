package sync

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gitvol/gitvol/internal/utils"
)

// FingerprintStore is the change-detection baseline persisted across runs.
// `previous` is loaded once and never mutated; `pending` accumulates the
// fingerprints observed during the current run and fully replaces the
// store file at persist time, so entries for files no longer in the tree
// drop out on their own.
type FingerprintStore struct {
	path     string
	previous map[string]string
	pending  map[string]string
}

// NewFingerprintStore loads the store file at path. A missing file is not
// an error, it just means an empty baseline: every file will look new.
func NewFingerprintStore(path string) (*FingerprintStore, error) {
	s := &FingerprintStore{
		path:     path,
		previous: make(map[string]string),
		pending:  make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load parses `path=fingerprint` lines. Only the first `=` delimits, so
// fingerprints containing `=` would survive but paths containing `=` are a
// known limitation of the format. Malformed lines are skipped so a
// hand-edited store never wedges a run; duplicate paths keep the last
// occurrence.
func (s *FingerprintStore) load() error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open fingerprint store %s: %w", s.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		path, fingerprint, found := strings.Cut(line, "=")
		if !found || path == "" {
			continue
		}
		s.previous[path] = fingerprint
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read fingerprint store %s: %w", s.path, err)
	}
	return nil
}

// Record seeds pending[path] with the freshly observed fingerprint,
// overwriting any prior pending entry, and reports whether it differs from
// the loaded baseline. The return value is the change signal: true for a
// path absent from the baseline or one whose content changed.
func (s *FingerprintStore) Record(path, fingerprint string) bool {
	s.pending[path] = fingerprint
	old, ok := s.previous[path]
	return !ok || old != fingerprint
}

// Previous returns the baseline fingerprint for path, if any.
func (s *FingerprintStore) Previous(path string) (string, bool) {
	fp, ok := s.previous[path]
	return fp, ok
}

// Len returns the number of pending entries recorded this run.
func (s *FingerprintStore) Len() int {
	return len(s.pending)
}

// Persist atomically replaces the store file with the pending entries.
// The content is written to a temp file in the same directory and renamed
// over the destination, so a crash mid-write leaves either the old or the
// new store, never a truncated mix.
func (s *FingerprintStore) Persist() error {
	if err := utils.EnsureParent(s.path); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".fingerprints-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	// Sorted output keeps the store diffable between runs.
	paths := make([]string, 0, len(s.pending))
	for path := range s.pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	w := bufio.NewWriter(tmp)
	for _, path := range paths {
		if _, err := fmt.Fprintf(w, "%s=%s\n", path, s.pending[path]); err != nil {
			return fmt.Errorf("write temp store: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush temp store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace fingerprint store %s: %w", s.path, err)
	}
	return nil
}
