package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chadnetzer/hardlinkable/internal/event"
	"github.com/chadnetzer/hardlinkable/internal/filter"
	"github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

// Record is one regular file yielded by the walker: its pathname, inode
// identity, stat snapshot, and (when requested) xattr fingerprint.
type Record struct {
	Path  string
	ID    inode.DevIno
	Stat  inode.StatSnapshot
	Xattr inode.XattrFP
}

// Config controls walker behavior.
type Config struct {
	Filter     *filter.NameFilter
	ReadXattrs bool
	Stats      *stats.Collector
	Events     chan<- event.Event
}

// Walker traverses directory trees serially, in sorted entry order, and
// hands each admissible regular file to a consumer callback. Symlinks are
// never followed.
type Walker struct {
	cfg Config
}

// NewWalker creates a walker with the given config.
func NewWalker(cfg Config) *Walker {
	if cfg.Filter == nil {
		cfg.Filter = filter.NewNameFilter()
	}
	return &Walker{cfg: cfg}
}

// Walk visits every root in order, calling fn for each matched regular
// file. A root that cannot be stat'ed, or is not a directory, is a fatal
// error; errors below the roots are counted and skipped.
func (w *Walker) Walk(ctx context.Context, roots []string, fn func(Record) error) error {
	w.emit(event.Event{Type: event.WalkStarted})
	for _, root := range roots {
		info, err := os.Lstat(root)
		if err != nil {
			return fmt.Errorf("root %s: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("root %s is not a directory", root)
		}
		if err := w.walkDir(ctx, filepath.Clean(root), fn); err != nil {
			return err
		}
	}
	w.emit(event.Event{Type: event.WalkComplete})
	return nil
}

func (w *Walker) walkDir(ctx context.Context, dir string, fn func(Record) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	w.cfg.Stats.AddDir()
	w.emit(event.Event{Type: event.DirVisited, Path: dir})

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("unreadable directory", "path", dir, "error", err)
		w.cfg.Stats.AddInaccessible()
		return nil
	}

	// os.ReadDir sorts by name, which keeps walk order deterministic.
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if w.cfg.Filter.Excluded(name) {
				w.cfg.Stats.AddExcludedDir()
				continue
			}
			if err := w.walkDir(ctx, path, fn); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if w.cfg.Filter.Excluded(name) {
			w.cfg.Stats.AddExcludedFile()
			continue
		}
		if !w.cfg.Filter.Matched(name) {
			w.cfg.Stats.AddSkippedFile()
			continue
		}

		info, err := entry.Info()
		if err != nil {
			slog.Warn("unable to stat", "path", path, "error", err)
			w.cfg.Stats.AddInaccessible()
			continue
		}

		id, snap, ok := inode.FromFileInfo(info)
		if !ok || !snap.Regular {
			continue
		}

		rec := Record{Path: path, ID: id, Stat: snap}
		if w.cfg.ReadXattrs {
			rec.Xattr = inode.ReadXattrFP(path)
		}

		w.emit(event.Event{Type: event.FileFound, Path: path, Size: snap.Size})
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) emit(e event.Event) {
	if w.cfg.Events == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case w.cfg.Events <- e:
	default:
	}
}
