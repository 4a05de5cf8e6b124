// Package preload fills a shared index from a documents directory and keeps
// it updated as files change.
package preload

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"doctalk/internal/domain/ports"
	"doctalk/internal/domain/usecases"
)

// Preloader indexes every readable document in a directory on startup and
// then follows watcher events. It only makes sense with a shared vector
// store; per-session stores start empty by design.
type Preloader struct {
	indexer   *usecases.Indexer
	extractor ports.DocumentExtractor
	watcher   ports.FileWatcher
	log       *zap.Logger
}

// NewPreloader creates a Preloader. The watcher may be nil, in which case
// Run performs the initial scan only.
func NewPreloader(indexer *usecases.Indexer, extractor ports.DocumentExtractor, watcher ports.FileWatcher, log *zap.Logger) *Preloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preloader{
		indexer:   indexer,
		extractor: extractor,
		watcher:   watcher,
		log:       log,
	}
}

// Run scans dir, indexes its documents, then blocks consuming watcher events
// until ctx is cancelled. Individual file failures are logged and skipped.
func (p *Preloader) Run(ctx context.Context, dir string) error {
	if err := p.scan(ctx, dir); err != nil {
		return err
	}
	if p.watcher == nil {
		return nil
	}

	events, err := p.watcher.Watch(ctx, dir)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			switch event.Operation {
			case ports.FileCreated, ports.FileModified:
				p.indexFile(ctx, event.Path)
			case ports.FileDeleted:
				// Chunks carry no path mapping, so removal would require a
				// full rebuild. Stale chunks stay until the next restart.
				p.log.Info("file removed, index unchanged", zap.String("path", event.Path))
			}
		}
	}
}

func (p *Preloader) scan(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p.indexFile(ctx, filepath.Join(dir, entry.Name()))
	}
	return nil
}

func (p *Preloader) indexFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.log.Warn("reading document failed", zap.String("path", path), zap.Error(err))
		return
	}

	text, err := p.extractor.Extract(ctx, data, filepath.Base(path))
	if err != nil {
		p.log.Warn("extracting document failed", zap.String("path", path), zap.Error(err))
		return
	}

	count, err := p.indexer.Index(ctx, text)
	if err != nil {
		p.log.Warn("indexing document failed", zap.String("path", path), zap.Error(err))
		return
	}
	p.log.Info("document preloaded", zap.String("path", path), zap.Int("chunks", count))
}
