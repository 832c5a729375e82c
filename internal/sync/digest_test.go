package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDigestKnownValues(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.sql")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	hi := filepath.Join(dir, "hi.txt")
	require.NoError(t, os.WriteFile(hi, []byte("hi"), 0o644))

	fp, err := FileDigest(empty)
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", fp)

	fp, err = FileDigest(hi)
	require.NoError(t, err)
	assert.Equal(t, "49f68a5c8493ec2c0bf489821c21fc3b", fp)
}

func TestFileDigestContentOnly(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.sql")
	b := filepath.Join(dir, "sub", "b.sql")
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0o755))
	require.NoError(t, os.WriteFile(a, []byte("select 1;"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("select 1;"), 0o600))

	fpA, err := FileDigest(a)
	require.NoError(t, err)
	fpB, err := FileDigest(b)
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB, "identical bytes must fingerprint identically regardless of path or mode")
}

func TestFileDigestMissingFile(t *testing.T) {
	_, err := FileDigest(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
