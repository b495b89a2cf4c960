package main

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/vbr/internal/git"
	"go.abhg.dev/vbr/internal/silog"
	"go.abhg.dev/vbr/internal/spice/state/storage"
	"go.abhg.dev/vbr/internal/state"
)

// stateRef is the ref the engine's own state store lives under,
// chosen the same way internal/oplog.HeadRef is: outside refs/heads/*
// so it never shows up as a branch.
const stateRef = "refs/vbr/state"

var stateSignature = git.Signature{
	Name:  "vbr",
	Email: "vbr@localhost",
}

func openRepo(ctx context.Context, opts *globalOptions, log *silog.Logger) (*git.Repository, error) {
	repo, err := git.Open(ctx, opts.Dir, git.OpenOptions{Log: log})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

func openDB(repo *git.Repository, log *silog.Logger) *storage.DB {
	backend := storage.NewGitBackend(storage.GitConfig{
		Repo:        repo,
		Ref:         stateRef,
		AuthorName:  stateSignature.Name,
		AuthorEmail: stateSignature.Email,
		Log:         log,
	})
	return storage.NewDB(backend)
}

// ensureStore opens the engine's state store, auto-initializing it
// against the repository's detected default branch if it hasn't been
// set up yet.
func ensureStore(ctx context.Context, repo *git.Repository, log *silog.Logger) (*state.Store, error) {
	db := openDB(repo, log)

	store, err := state.Open(ctx, db, log)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, state.ErrUninitialized) {
		return nil, fmt.Errorf("open state: %w", err)
	}

	log.Info("Repository not initialized. Initializing.")
	branch, err := repo.DefaultBranch(ctx, "origin")
	if err != nil || branch == "" {
		branch = "main"
	}

	return state.Init(ctx, state.InitRequest{
		DB:                      db,
		DefaultTargetBranchName: branch,
		Log:                     log,
	})
}
