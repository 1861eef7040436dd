package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/ashwini-cargo/internal/async"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/ocr"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
	"github.com/joseph-ayodele/ashwini-cargo/internal/repository"
)

// Inbox submits files from disk to the background scan queue, skipping
// documents whose bytes were already scanned successfully.
type Inbox struct {
	pipeline *pipeline.ScanPipeline
	scans    repository.ScanRepository
	queue    async.Queue
	logger   *slog.Logger
	maxBytes int64
}

func NewInbox(p *pipeline.ScanPipeline, scans repository.ScanRepository, queue async.Queue, maxBytes int64, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{pipeline: p, scans: scans, queue: queue, maxBytes: maxBytes, logger: logger}
}

func (i *Inbox) IngestPath(ctx context.Context, path string) (Result, error) {
	out := Result{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.Path = abs
	if !Allowed(abs) {
		return out, common.InvalidInputf("unsupported or missing extension: %q", filepath.Ext(abs))
	}

	info, err := os.Stat(abs)
	if err != nil {
		return out, err
	}
	if i.maxBytes > 0 && info.Size() > i.maxBytes {
		return out, common.InvalidInputf("file exceeds %d bytes", i.maxBytes)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = ocr.ContentHash(data)

	prev, err := i.scans.FindByContentHash(ctx, out.HashHex)
	switch {
	case err == nil:
		out.ScanID = prev.ID.String()
		out.Deduplicated = true
		i.logger.Info("inbox file already scanned", "path", abs, "scan_id", prev.ID)
		return out, nil
	case !errors.Is(err, common.ErrNotFound):
		return out, err
	}

	in := pipeline.ScanInput{Filename: filepath.Base(abs), Data: data}
	scan, err := i.pipeline.Submit(ctx, in)
	if err != nil {
		return out, err
	}
	out.ScanID = scan.ID.String()

	if err := i.queue.Enqueue(ctx, async.Job{ScanID: scan.ID, Input: in}); err != nil {
		if ferr := i.scans.FinishFailed(context.WithoutCancel(ctx), scan.ID, "not queued: "+err.Error()); ferr != nil {
			i.logger.Error("could not fail unqueued scan", "scan_id", scan.ID, "error", ferr)
		}
		return out, err
	}
	i.logger.Info("inbox file queued", "path", abs, "scan_id", scan.ID)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each supported file. Per-file failures do not stop the walk.
func (i *Inbox) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInput("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Allowed(path) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	i.logger.Info("inbox directory ingested",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// Watch ingests every file the watcher reports until ctx is done.
func (i *Inbox) Watch(ctx context.Context, cfg WatchConfig) error {
	events, errs, err := StartWatcher(ctx, cfg, i.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := i.IngestPath(ctx, path); err != nil {
				i.logger.Warn("inbox ingest failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				i.logger.Warn("inbox watcher error", "error", err)
			}
		}
	}
}
