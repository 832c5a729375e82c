package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/gitvol/gitvol/internal/utils"
)

// RemoteWriter persists the bytes of a local file at a relative remote
// path with create-or-replace semantics.
type RemoteWriter interface {
	Upload(ctx context.Context, localPath, relPath string) error
}

// Outcome aggregates the per-file decisions of one run. The counters
// always sum to the number of regular files visited by the walk.
type Outcome struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// Total returns the number of files visited.
func (o *Outcome) Total() int {
	return o.Uploaded + o.Skipped + o.Failed
}

func (o *Outcome) String() string {
	return fmt.Sprintf("uploaded=%d skipped=%d failed=%d", o.Uploaded, o.Skipped, o.Failed)
}

// Engine drives one mirror run: walk the working tree, fingerprint each
// regular file, upload the changed ones, then persist the store once.
type Engine struct {
	rootDir      string
	store        *FingerprintStore
	writer       RemoteWriter
	ignore       *IgnoreList
	includeGlobs []string
}

// NewEngine creates an engine over rootDir. If includeGlobs are given,
// only relative paths matching at least one glob are mirrored.
func NewEngine(rootDir string, store *FingerprintStore, writer RemoteWriter, includeGlobs ...string) *Engine {
	return &Engine{
		rootDir:      rootDir,
		store:        store,
		writer:       writer,
		ignore:       NewIgnoreList(rootDir),
		includeGlobs: includeGlobs,
	}
}

// Sync runs the mirror to completion. Per-file digest and upload failures
// are counted but never abort the walk; the store is persisted exactly
// once afterward, so a run that cannot even start leaves the previous
// store untouched. The returned outcome is valid whenever err is nil.
func (e *Engine) Sync(ctx context.Context) (*Outcome, error) {
	if !utils.DirExists(e.rootDir) {
		return nil, fmt.Errorf("working tree %s does not exist", e.rootDir)
	}

	e.ignore.Load()

	outcome := &Outcome{}
	err := filepath.WalkDir(e.rootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk error: %w", walkErr)
		}

		relPath, err := filepath.Rel(e.rootDir, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}
		relPath = utils.NormPath(relPath)

		if d.IsDir() {
			if relPath != "." && e.ignore.ShouldIgnore(relPath+"/") {
				return fs.SkipDir
			}
			return nil
		}

		if e.ignore.ShouldIgnore(relPath) || !e.matchesInclude(relPath) {
			return nil
		}

		e.syncFile(ctx, path, relPath, d, outcome)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tree walk failed: %w", err)
	}

	if err := e.store.Persist(); err != nil {
		return nil, fmt.Errorf("persist fingerprints: %w", err)
	}

	slog.Info("sync complete", "uploaded", outcome.Uploaded, "skipped", outcome.Skipped, "failed", outcome.Failed)
	return outcome, nil
}

// syncFile applies the change decision to a single regular file.
func (e *Engine) syncFile(ctx context.Context, path, relPath string, d fs.DirEntry, outcome *Outcome) {
	fingerprint, err := FileDigest(path)
	if err != nil {
		// No pending entry for this path: the next run sees it as new
		// and retries.
		slog.Error("sync", "op", "FAIL", "reason", "digest", "path", relPath, "error", err)
		outcome.Failed++
		return
	}

	changed := e.store.Record(relPath, fingerprint)
	if !changed {
		slog.Info("sync", "op", "SKIP", "reason", "unchanged", "path", relPath)
		outcome.Skipped++
		return
	}

	if err := e.writer.Upload(ctx, path, relPath); err != nil {
		// The fingerprint stays recorded in pending: an unchanged file
		// whose upload failed will classify as unchanged next run. See
		// the retry note in DESIGN.md.
		slog.Error("sync", "op", "FAIL", "reason", "upload", "path", relPath, "error", err)
		outcome.Failed++
		return
	}

	slog.Info("sync", "op", "UPLOAD", "path", relPath, "size", fileSize(d))
	outcome.Uploaded++
}

func (e *Engine) matchesInclude(relPath string) bool {
	if len(e.includeGlobs) == 0 {
		return true
	}
	for _, glob := range e.includeGlobs {
		ok, err := doublestar.Match(glob, relPath)
		if err != nil {
			slog.Warn("bad include glob", "glob", glob, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func fileSize(d fs.DirEntry) string {
	info, err := d.Info()
	if err != nil {
		return "unknown"
	}
	return humanize.IBytes(uint64(info.Size()))
}
