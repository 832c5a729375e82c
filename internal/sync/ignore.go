package sync

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gitvol/gitvol/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is an optional gitignore-style file at the root of the
// working tree for paths that should never reach the volume.
const IgnoreFileName = ".gitvolignore"

// defaultIgnoreLines excludes version-control metadata, the only paths
// the mirror refuses to upload on its own. Repository internals must
// never reach the volume, at any depth; everything else in the working
// tree mirrors unless the ignore file says otherwise.
var defaultIgnoreLines = []string{
	".git/",
	"**/.git/**",
}

// IgnoreList decides which walked paths are excluded from the mirror.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir}
}

// Load compiles the default rules plus any rules found in the working
// tree's ignore file.
func (l *IgnoreList) Load() {
	ignorePath := filepath.Join(l.baseDir, IgnoreFileName)
	ignoreLines := defaultIgnoreLines

	if utils.FileExists(ignorePath) {
		rules := 0
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()

			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					ignoreLines = append(ignoreLines, line)
					rules++
				}
			}

			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", ignorePath, "error", err)
			} else {
				slog.Info("loaded ignore file", "path", ignorePath, "rules", rules)
			}
		}
	}

	l.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

// ShouldIgnore reports whether a slash-separated relative path is excluded.
// The ignore file itself is never mirrored.
func (l *IgnoreList) ShouldIgnore(relPath string) bool {
	if relPath == IgnoreFileName {
		return true
	}
	return l.ignore.MatchesPath(relPath)
}
