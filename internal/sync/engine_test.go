package sync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter records uploads and fails the paths it is told to.
type fakeWriter struct {
	uploads   []string
	failPaths map[string]bool
}

func (w *fakeWriter) Upload(_ context.Context, _, relPath string) error {
	if w.failPaths[relPath] {
		return errors.New("simulated network error")
	}
	w.uploads = append(w.uploads, relPath)
	return nil
}

type testTree struct {
	root      string
	storePath string
}

func newTestTree(t *testing.T) *testTree {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "repo")
	require.NoError(t, os.MkdirAll(root, 0o755))
	return &testTree{
		root:      root,
		storePath: filepath.Join(base, ".fingerprints"),
	}
}

func (tt *testTree) write(t *testing.T, relPath, content string) {
	t.Helper()
	path := filepath.Join(tt.root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (tt *testTree) run(t *testing.T, writer RemoteWriter, globs ...string) *Outcome {
	t.Helper()
	store, err := NewFingerprintStore(tt.storePath)
	require.NoError(t, err)

	outcome, err := NewEngine(tt.root, store, writer, globs...).Sync(context.Background())
	require.NoError(t, err)
	return outcome
}

// persisted parses the on-disk store file into a map.
func (tt *testTree) persisted(t *testing.T) map[string]string {
	t.Helper()
	entries := make(map[string]string)
	data, err := os.ReadFile(tt.storePath)
	if os.IsNotExist(err) {
		return entries
	}
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if path, fp, ok := strings.Cut(line, "="); ok {
			entries[path] = fp
		}
	}
	return entries
}

func TestSyncFirstRunUploadsEverything(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.write(t, "nested/b.sql", "select 2;")

	writer := &fakeWriter{}
	outcome := tt.run(t, writer)

	assert.Equal(t, 2, outcome.Uploaded)
	assert.Equal(t, 0, outcome.Skipped)
	assert.Equal(t, 0, outcome.Failed)
	assert.ElementsMatch(t, []string{"a.sql", "nested/b.sql"}, writer.uploads)
}

func TestSyncIsIdempotent(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.write(t, "nested/b.sql", "select 2;")

	tt.run(t, &fakeWriter{})

	writer := &fakeWriter{}
	outcome := tt.run(t, writer)

	assert.Equal(t, 0, outcome.Uploaded)
	assert.Equal(t, 2, outcome.Skipped)
	assert.Equal(t, 0, outcome.Failed)
	assert.Empty(t, writer.uploads)
}

func TestSyncUploadsChangedContentOnce(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.run(t, &fakeWriter{})

	tt.write(t, "a.sql", "select 1; -- edited")
	writer := &fakeWriter{}
	outcome := tt.run(t, writer)

	assert.Equal(t, 1, outcome.Uploaded)
	assert.Equal(t, []string{"a.sql"}, writer.uploads)
}

func TestSyncChangeDetectionIgnoresMetadata(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.run(t, &fakeWriter{})

	// Rewrite with identical bytes: mtime changes, content does not.
	tt.write(t, "a.sql", "select 1;")
	writer := &fakeWriter{}
	outcome := tt.run(t, writer)

	assert.Equal(t, 0, outcome.Uploaded)
	assert.Equal(t, 1, outcome.Skipped)
}

func TestSyncDeletedFileDropsFromStore(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.write(t, "b.sql", "select 2;")
	tt.run(t, &fakeWriter{})

	require.NoError(t, os.Remove(filepath.Join(tt.root, "b.sql")))
	outcome := tt.run(t, &fakeWriter{})

	assert.Equal(t, 1, outcome.Total())
	entries := tt.persisted(t)
	assert.Contains(t, entries, "a.sql")
	assert.NotContains(t, entries, "b.sql")
}

func TestSyncIdenticalContentAtDifferentPaths(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.write(t, "copy/a.sql", "select 1;")

	writer := &fakeWriter{}
	outcome := tt.run(t, writer)

	// Fingerprinting is per path, duplicates are never coalesced.
	assert.Equal(t, 2, outcome.Uploaded)
	assert.ElementsMatch(t, []string{"a.sql", "copy/a.sql"}, writer.uploads)
}

func TestSyncSkipsGitMetadata(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.write(t, ".git/HEAD", "ref: refs/heads/main")
	tt.write(t, ".git/objects/ab/cdef", "blob")
	tt.write(t, "vendor/.git/config", "[core]")

	writer := &fakeWriter{}
	outcome := tt.run(t, writer)

	assert.Equal(t, 1, outcome.Total())
	assert.Equal(t, []string{"a.sql"}, writer.uploads)
}

func TestSyncEndToEndScenario(t *testing.T) {
	// Baseline knows an empty a.txt; the tree has a.txt (still empty) and
	// a brand new b.txt.
	tt := newTestTree(t)
	require.NoError(t, os.WriteFile(tt.storePath,
		[]byte("a.txt=d41d8cd98f00b204e9800998ecf8427e\n"), 0o644))
	tt.write(t, "a.txt", "")
	tt.write(t, "b.txt", "hi")

	writer := &fakeWriter{}
	outcome := tt.run(t, writer)

	assert.Equal(t, 1, outcome.Uploaded)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Equal(t, 0, outcome.Failed)
	assert.Equal(t, []string{"b.txt"}, writer.uploads)

	entries := tt.persisted(t)
	assert.Len(t, entries, 2)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", entries["a.txt"])
	assert.Equal(t, "49f68a5c8493ec2c0bf489821c21fc3b", entries["b.txt"])
}

func TestSyncUploadFailureStillRecordsFingerprint(t *testing.T) {
	tt := newTestTree(t)
	require.NoError(t, os.WriteFile(tt.storePath,
		[]byte("a.txt=d41d8cd98f00b204e9800998ecf8427e\n"), 0o644))
	tt.write(t, "a.txt", "")
	tt.write(t, "b.txt", "hi")

	writer := &fakeWriter{failPaths: map[string]bool{"b.txt": true}}
	outcome := tt.run(t, writer)

	assert.Equal(t, 0, outcome.Uploaded)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Equal(t, 1, outcome.Failed)

	// Deliberate contract: the failed path's fingerprint is persisted
	// anyway, so the next run will not retry it unless content changes.
	entries := tt.persisted(t)
	assert.Equal(t, "49f68a5c8493ec2c0bf489821c21fc3b", entries["b.txt"])
}

func TestSyncCountersSumToVisited(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "ok.sql", "select 1;")
	tt.write(t, "fails.sql", "select 2;")
	tt.write(t, "seen.sql", "select 3;")
	tt.run(t, &fakeWriter{failPaths: map[string]bool{"fails.sql": true}})

	tt.write(t, "fails.sql", "select 2; -- retry")
	writer := &fakeWriter{failPaths: map[string]bool{"fails.sql": true}}
	outcome := tt.run(t, writer)

	assert.Equal(t, 3, outcome.Total())
	assert.Equal(t, outcome.Uploaded+outcome.Skipped+outcome.Failed, outcome.Total())
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, 2, outcome.Skipped)
}

func TestSyncIncludeGlobsFilterWalk(t *testing.T) {
	tt := newTestTree(t)
	tt.write(t, "a.sql", "select 1;")
	tt.write(t, "nested/b.sql", "select 2;")
	tt.write(t, "README.md", "# docs")

	writer := &fakeWriter{}
	outcome := tt.run(t, writer, "**/*.sql")

	assert.Equal(t, 2, outcome.Total())
	assert.ElementsMatch(t, []string{"a.sql", "nested/b.sql"}, writer.uploads)
}

func TestSyncMissingRootAborts(t *testing.T) {
	base := t.TempDir()
	storePath := filepath.Join(base, ".fingerprints")
	require.NoError(t, os.WriteFile(storePath, []byte("a.sql=abc\n"), 0o644))

	store, err := NewFingerprintStore(storePath)
	require.NoError(t, err)

	engine := NewEngine(filepath.Join(base, "missing"), store, &fakeWriter{})
	outcome, err := engine.Sync(context.Background())
	assert.Error(t, err)
	assert.Nil(t, outcome)

	// Aborting before the walk never touches the persisted store.
	data, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Equal(t, "a.sql=abc\n", string(data))
}

func TestSyncPersistFailureIsFatal(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "repo")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.sql"), []byte("select 1;"), 0o644))

	// Block the final rename by squatting a directory on the store path.
	storePath := filepath.Join(base, ".fingerprints")
	store, err := NewFingerprintStore(storePath)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(storePath, 0o755))

	writer := &fakeWriter{}
	outcome, err := NewEngine(root, store, writer).Sync(context.Background())
	assert.Error(t, err)
	assert.Nil(t, outcome)
	// Uploads happened before the persist failure surfaced.
	assert.Equal(t, []string{"a.sql"}, writer.uploads)
}
