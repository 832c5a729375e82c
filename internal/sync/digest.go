// Package sync implements the one-way mirror core: content fingerprinting,
// the persisted fingerprint store, and the walk-and-upload engine.
package sync

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
)

// FileDigest opens a file, hashes its full content with MD5, and returns
// the hex digest. The digest depends only on bytes, never on metadata, so
// identical content always fingerprints identically.
func FileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file '%s': %w", path, err)
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash file content '%s': %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
