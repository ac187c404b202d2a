package linker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/chadnetzer/hardlinkable/internal/event"
	"github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/plan"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

// Config controls plan execution.
type Config struct {
	Stats  *stats.Collector
	Events chan<- event.Event
}

// Linker performs the planned link operations against the filesystem.
// Each op is atomic via link-to-temp plus rename; the plan as a whole is
// not transactional and failed ops do not roll back earlier ones.
type Linker struct {
	cfg Config
}

// New creates a Linker.
func New(cfg Config) *Linker {
	return &Linker{cfg: cfg}
}

// Execute runs the ops in plan order and returns the number that failed.
// Cancellation is honored between ops; unexecuted ops are not failures.
func (l *Linker) Execute(ctx context.Context, p plan.Plan) int {
	failed := 0
	for _, op := range p.Ops {
		select {
		case <-ctx.Done():
			CleanupTmpFiles()
			return failed
		default:
		}
		if err := l.linkOne(op); err != nil {
			slog.Error("link failed", "from", op.FromPath, "to", op.ToPath, "error", err)
			l.cfg.Stats.AddLinkError()
			l.emit(event.Event{Type: event.LinkFailed, Path: op.FromPath, Other: op.ToPath, Error: err})
			failed++
			continue
		}
		l.emit(event.Event{Type: event.LinkDone, Path: op.FromPath, Other: op.ToPath})
	}
	CleanupTmpFiles()
	return failed
}

// linkOne replaces op.ToPath with a hard link to op.FromPath's inode.
func (l *Linker) linkOne(op plan.LinkOp) error {
	if err := verifyUnmodified(op.FromPath, op.FromStat); err != nil {
		return err
	}
	if err := verifyUnmodified(op.ToPath, op.ToStat); err != nil {
		return err
	}

	dir := filepath.Dir(op.ToPath)
	base := filepath.Base(op.ToPath)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.hardlinkable-tmp", base, uuid.New().String()[:8]))

	RegisterTmp(tmpPath)
	defer func() {
		DeregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op if rename succeeded
	}()

	if err := os.Link(op.FromPath, tmpPath); err != nil {
		return fmt.Errorf("link %s: %w", op.FromPath, err)
	}
	if err := os.Rename(tmpPath, op.ToPath); err != nil {
		return fmt.Errorf("rename over %s: %w", op.ToPath, err)
	}

	l.carryMtime(op)
	return nil
}

// verifyUnmodified refuses the op when the file changed since discovery.
func verifyUnmodified(path string, snap inode.StatSnapshot) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	_, cur, ok := inode.FromFileInfo(info)
	if !ok {
		return fmt.Errorf("stat %s: unsupported platform stat", path)
	}
	if cur.Size != snap.Size || !cur.SameMtime(snap) ||
		cur.Mode != snap.Mode || cur.UID != snap.UID || cur.GID != snap.GID {
		return fmt.Errorf("%s modified since discovery", path)
	}
	return nil
}

// carryMtime keeps the newest of the two modification times on the
// surviving inode, matching what a plain copy-then-link would preserve.
func (l *Linker) carryMtime(op plan.LinkOp) {
	if !op.ToStat.ModTime().After(op.FromStat.ModTime()) {
		return
	}
	mtime := op.ToStat.ModTime()
	if err := os.Chtimes(op.FromPath, time.Time{}, mtime); err != nil {
		slog.Warn("unable to carry mtime", "path", op.FromPath, "error", err)
	}
}

func (l *Linker) emit(e event.Event) {
	if l.cfg.Events == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case l.cfg.Events <- e:
	default:
	}
}
