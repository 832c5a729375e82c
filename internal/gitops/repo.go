// Package gitops materializes the local working tree for a run by cloning
// or fast-forwarding the source repository with the system git binary.
package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/gitvol/gitvol/internal/utils"
)

var ErrGitNotAvailable = errors.New("git is not available on this system")

// Repo describes the source repository and where its working tree lives.
type Repo struct {
	CloneURL string // authenticated https remote
	Branch   string
	WorkDir  string
}

// Refresh brings WorkDir to the tip of the remote branch. A fresh clone is
// shallow and single-branch; an existing tree is hard-reset to the remote
// so local edits never leak into the mirror.
func (r *Repo) Refresh(ctx context.Context) error {
	if !systemGitAvailable() {
		return ErrGitNotAvailable
	}

	if utils.DirExists(r.WorkDir) {
		slog.Info("working tree exists, updating", "dir", r.WorkDir, "branch", r.Branch)
		return r.update(ctx)
	}

	slog.Info("cloning working tree", "dir", r.WorkDir, "branch", r.Branch)
	return r.clone(ctx)
}

func (r *Repo) clone(ctx context.Context) error {
	if err := runGit(ctx, r.cloneArgs()); err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

func (r *Repo) update(ctx context.Context) error {
	for _, args := range r.updateArgs() {
		if err := runGit(ctx, args); err != nil {
			return fmt.Errorf("git %s failed: %w", args[2], err)
		}
	}
	return nil
}

func (r *Repo) cloneArgs() []string {
	return []string{"clone", "--branch", r.Branch, "--single-branch", "--depth=1", r.CloneURL, r.WorkDir}
}

func (r *Repo) updateArgs() [][]string {
	return [][]string{
		{"-C", r.WorkDir, "remote", "set-url", "origin", r.CloneURL},
		{"-C", r.WorkDir, "fetch", "origin", r.Branch},
		{"-C", r.WorkDir, "reset", "--hard", "origin/" + r.Branch},
	}
}

func runGit(ctx context.Context, args []string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%q: %w", stderr.String(), err)
	}
	return nil
}

// systemGitAvailable checks if the "git" executable can be found in the system's PATH.
func systemGitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
