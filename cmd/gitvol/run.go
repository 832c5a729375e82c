package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gitvol/gitvol/internal/config"
	"github.com/gitvol/gitvol/internal/gitops"
	"github.com/gitvol/gitvol/internal/sync"
	"github.com/gitvol/gitvol/internal/volsdk"
)

// runMirror executes one full run: refresh the working tree, then walk it
// and upload changed files, holding the store lock across the whole
// load-to-persist sequence.
func runMirror(ctx context.Context, cfg *config.Config) error {
	slog.Info("mirror run started", "repo", cfg.RepoURL, "branch", cfg.Branch, "volume", cfg.VolumePath)

	repo := &gitops.Repo{
		CloneURL: cfg.CloneURL(),
		Branch:   cfg.Branch,
		WorkDir:  cfg.WorkDir,
	}
	if err := repo.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh working tree: %w", err)
	}

	lock := sync.NewRunLock(cfg.StateFile)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	store, err := sync.NewFingerprintStore(cfg.StateFile)
	if err != nil {
		return err
	}

	sdk := volsdk.New(cfg.ServerURL, cfg.Token, cfg.VolumePath)
	defer sdk.Close()

	engine := sync.NewEngine(cfg.WorkDir, store, sdk.Files, cfg.IncludeGlobs...)
	outcome, err := engine.Sync(ctx)
	if err != nil {
		return err
	}

	slog.Info("fingerprint store persisted", "entries", store.Len(), "file", cfg.StateFile)
	slog.Info("files available", "volume", cfg.VolumePath)
	return outcomeErr(outcome)
}

// outcomeErr turns failed uploads into a run error so the process exits
// non-zero and the scheduler can alert and re-run.
func outcomeErr(outcome *sync.Outcome) error {
	if outcome.Failed > 0 {
		return fmt.Errorf("mirror run finished with %d failed uploads (%s)", outcome.Failed, outcome)
	}
	return nil
}
