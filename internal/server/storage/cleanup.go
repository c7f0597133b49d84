package storage

import (
	"context"
	"log/slog"
	"time"
)

// References reports whether a stored file is still owned by a link record.
type References interface {
	ReferencesFile(ctx context.Context, filePath string) (bool, error)
}

// CleanupService periodically removes stored files that no link references.
// Uploads write the file before committing the record, so a crash in between
// leaves an orphan; files younger than grace are skipped to stay clear of
// uploads still in flight.
type CleanupService struct {
	refs     References
	store    Store
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	done     chan struct{}
}

// DefaultSweepInterval is used when NewCleanupService is given a
// non-positive interval.
const DefaultSweepInterval = time.Hour

// NewCleanupService creates a new cleanup service.
func NewCleanupService(refs References, store Store, interval, grace time.Duration) *CleanupService {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &CleanupService{
		refs:     refs,
		store:    store,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine.
func (cs *CleanupService) Start(ctx context.Context) {
	slog.Info("orphan sweeper started", "interval", cs.interval, "grace", cs.grace)

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		// Run once immediately on start
		cs.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				cs.RunOnce(ctx)
			case <-ctx.Done():
				slog.Info("orphan sweeper stopping")
				close(cs.done)
				return
			}
		}
	}()
}

// Wait blocks until the cleanup service has fully stopped.
func (cs *CleanupService) Wait() {
	<-cs.done
}

// RunOnce performs a single sweep and returns the number of files removed.
func (cs *CleanupService) RunOnce(ctx context.Context) int {
	files, err := cs.store.List()
	if err != nil {
		slog.Error("failed to list stored files", "error", err)
		return 0
	}

	cutoff := cs.now().Add(-cs.grace)
	var cleaned, failed int
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		if f.ModTime.After(cutoff) {
			continue
		}

		referenced, err := cs.refs.ReferencesFile(ctx, f.Path)
		if err != nil {
			slog.Error("failed to check file reference", "path", f.Path, "error", err)
			failed++
			continue
		}
		if referenced {
			continue
		}

		if err := cs.store.Delete(f.Path); err != nil {
			slog.Error("failed to delete orphaned file", "path", f.Path, "error", err)
			failed++
			continue
		}
		cleaned++
		slog.Info("removed orphaned file", "path", f.Path, "modified_at", f.ModTime)
	}

	if cleaned > 0 || failed > 0 {
		slog.Info("orphan sweep complete",
			"cleaned", cleaned,
			"failed", failed,
			"scanned", len(files),
		)
	}
	return cleaned
}
