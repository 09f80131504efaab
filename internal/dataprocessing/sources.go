package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"impactcli/internal/config"
	"impactcli/internal/impact"
)

// LoadSources loads every file the declaration names, in first-declared
// order. Relative file names resolve against baseDir. Sheet selects the xlsx
// sheet holding the data; empty means the first sheet.
func (l *Loader) LoadSources(ctx context.Context, decl impact.Declaration, baseDir, sheet string) ([]impact.Source, error) {
	files := decl.Files()
	if len(files) == 0 {
		return nil, &impact.MappingError{Reason: "declaration names no source files"}
	}

	start := time.Now()
	sources := make([]impact.Source, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		g.Go(func() error {
			table, err := l.LoadTable(gctx, config.ResolvePath(baseDir, file), sheet)
			if err != nil {
				return fmt.Errorf("failed to load source %s: %w", file, err)
			}
			// Name stays as declared; the mapping binds columns by it
			sources[i] = impact.Source{Name: file, Table: table}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "sources loaded",
		slog.Int("files", len(sources)),
		slog.Duration("duration", time.Since(start)))
	return sources, nil
}
