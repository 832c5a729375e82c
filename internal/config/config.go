// Package config holds the run configuration for gitvol. The config is a
// plain value object built once at process start and handed to the
// collaborators that need it, there is no ambient global state.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gitvol/gitvol/internal/utils"
)

var (
	DefaultBranch     = "main"
	DefaultWorkDir    = "./repo"
	DefaultVolumePath = "/Volumes/catalog/schema/volume"
	DefaultLogDir     = "./logs"
	StateFileName     = ".fingerprints"
)

type Config struct {
	// Source repository
	RepoURL   string // git remote, e.g. github.com/user/repo.git
	RepoToken string // personal access token for the remote
	Branch    string // branch to mirror
	WorkDir   string // local working tree

	// Remote volume store
	ServerURL  string // workspace base URL, e.g. https://acme.cloud.databricks.com
	Token      string // bearer token for the files API
	VolumePath string // destination volume path

	// Run state
	StateFile    string   // fingerprint store file
	LogDir       string   // per-run log files
	IncludeGlobs []string // optional relative-path globs limiting the walk
}

// Validate checks required fields and fills in defaults for the optional
// ones. It must pass before any work starts.
func (c *Config) Validate() error {
	if c.RepoURL == "" {
		return fmt.Errorf("config: repo url is required")
	}
	if c.RepoToken == "" {
		return fmt.Errorf("config: repo token is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("config: server url is required")
	}
	if c.Token == "" {
		return fmt.Errorf("config: access token is required")
	}

	if _, err := url.Parse(c.ServerURL); err != nil {
		return fmt.Errorf("config: invalid server url %q: %w", c.ServerURL, err)
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.WorkDir == "" {
		c.WorkDir = DefaultWorkDir
	}
	if c.VolumePath == "" {
		c.VolumePath = DefaultVolumePath
	}
	c.VolumePath = "/" + strings.Trim(c.VolumePath, "/")
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.StateFile == "" {
		c.StateFile = filepath.Join(c.LogDir, StateFileName)
	}

	workDir, err := utils.ResolvePath(c.WorkDir)
	if err != nil {
		return fmt.Errorf("config: invalid work dir %q: %w", c.WorkDir, err)
	}
	c.WorkDir = workDir

	return nil
}

// CloneURL returns the authenticated https clone URL for the source repo.
func (c *Config) CloneURL() string {
	repo := strings.TrimPrefix(strings.TrimPrefix(c.RepoURL, "https://"), "http://")
	return fmt.Sprintf("https://%s@%s", c.RepoToken, repo)
}
