package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/posener/complete"

	"go.abhg.dev/vbr/internal/git"
	"go.abhg.dev/vbr/internal/komplete"
	"go.abhg.dev/vbr/internal/state"
)

type completionCmd struct {
	*komplete.Command `embed:""`
}

func predictStacks(args complete.Args) (predictions []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	repo, err := git.Open(ctx, ".", git.OpenOptions{})
	if err != nil {
		return nil
	}

	store, err := state.Open(ctx, openDB(repo, nil), nil)
	if err != nil {
		return nil
	}

	ids, err := store.ListStacks(ctx)
	if err != nil {
		return nil
	}
	return ids
}

func predictDirs(args complete.Args) (predictions []string) {
	dir, last := filepath.Split(args.Last)
	dir = filepath.Clean(dir)

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	sep := string(filepath.Separator)

	for _, ent := range ents {
		if !ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
			continue
		}
		if strings.HasPrefix(ent.Name(), last) {
			name := filepath.Join(dir, ent.Name())
			if !strings.HasSuffix(name, sep) {
				name += sep
			}
			predictions = append(predictions, name)
		}
	}
	return predictions
}
