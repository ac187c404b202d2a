package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/chadnetzer/hardlinkable/internal/event"
	"github.com/chadnetzer/hardlinkable/internal/filter"
	"github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/linker"
	"github.com/chadnetzer/hardlinkable/internal/plan"
	"github.com/chadnetzer/hardlinkable/internal/scan"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

// Config describes one scan-and-plan run.
type Config struct {
	Dirs   []string
	Policy plan.Policy
	Filter *filter.NameFilter

	// LinkingEnabled executes the plan; otherwise the run only reports.
	LinkingEnabled bool

	// MaxNlink overrides the assumed per-device link-count ceiling.
	MaxNlink uint64

	Stats  *stats.Collector
	Events chan<- event.Event
}

// Result is the outcome of a run.
type Result struct {
	Stats       stats.Snapshot
	Plan        plan.Plan
	FailedLinks int
	Err         error
}

// Run walks the configured trees, groups linkable inodes, builds the link
// plan, and optionally executes it. It blocks until complete.
func Run(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	reg := inode.NewRegistry(cfg.Policy.MinSize, cfg.Policy.MaxSize)
	if cfg.MaxNlink > 0 {
		reg.SetDefaultMaxNlink(cfg.MaxNlink)
	}
	index := plan.NewCandidateIndex(cfg.Policy)

	walker := scan.NewWalker(scan.Config{
		Filter:     cfg.Filter,
		ReadXattrs: cfg.Policy.NeedsXattrs(),
		Stats:      collector,
		Events:     cfg.Events,
	})

	err := walker.Walk(ctx, cfg.Dirs, func(rec scan.Record) error {
		admitRecord(reg, index, collector, cfg.Events, rec)
		return nil
	})
	if err != nil {
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	uf, order, err := compareBuckets(ctx, reg, index, cfg.Policy, collector, cfg.Events)
	if err != nil {
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	planner := plan.NewPlanner(reg, collector)
	p := planner.Build(uf.Groups(order))

	var failed int
	if cfg.LinkingEnabled && len(p.Ops) > 0 {
		select {
		case <-ctx.Done():
			return Result{Stats: collector.Snapshot(), Plan: p, Err: ctx.Err()}
		default:
		}
		l := linker.New(linker.Config{Stats: collector, Events: cfg.Events})
		failed = l.Execute(ctx, p)
	}

	return Result{
		Stats:       collector.Snapshot(),
		Plan:        p,
		FailedLinks: failed,
	}
}

func admitRecord(reg *inode.Registry, index *plan.CandidateIndex,
	collector *stats.Collector, events chan<- event.Event, rec scan.Record) {
	switch reg.Admit(rec.Path, rec.ID, rec.Stat, rec.Xattr) {
	case inode.Admitted:
		collector.AddFile()
		collector.AddInode()
		if index.Insert(reg.Get(rec.ID)) {
			collector.AddHashHit()
		} else {
			collector.AddHashMiss()
		}
	case inode.AdmittedLinked:
		collector.AddFile()
		head := reg.Get(rec.ID).FirstPath()
		collector.AddExistingLink(head, rec.Path, rec.Stat.Size)
		emit(events, event.Event{
			Type: event.ExistingLink, Path: head, Other: rec.Path, Size: rec.Stat.Size,
		})
	case inode.RejectedTooSmall:
		collector.AddTooSmall()
	case inode.RejectedTooLarge:
		collector.AddTooLarge()
	case inode.RejectedNonRegular:
		// Walker already drops non-regular entries; nothing to count.
	}
}

// compareBuckets runs the equality oracle pairwise inside each candidate
// bucket and unions equal inodes. A new inode is checked against one
// representative per already-formed group before the remaining loners, so
// transitively joined members are never re-compared.
func compareBuckets(ctx context.Context, reg *inode.Registry, index *plan.CandidateIndex,
	policy plan.Policy, collector *stats.Collector, events chan<- event.Event,
) (*plan.UnionFind, []inode.DevIno, error) {
	cache := plan.NewDigestCache()
	oracle := plan.NewOracle(policy, cache, collector)
	uf := plan.NewUnionFind()
	var order []inode.DevIno

	for _, bucket := range index.Buckets() {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		order = append(order, bucket...)

		var reps, loners []inode.DevIno
		for i, id := range bucket {
			if i == 0 {
				loners = append(loners, id)
				continue
			}
			rec := reg.Get(id)
			collector.AddHashSearch()

			matched := false
			candidates := make([]inode.DevIno, 0, len(reps)+len(loners))
			candidates = append(candidates, reps...)
			candidates = append(candidates, loners...)
			for _, cand := range candidates {
				collector.AddHashIteration()
				eq, err := oracle.Equal(reg.Get(cand), rec)
				if err != nil {
					slog.Warn("comparison failed", "path", rec.FirstPath(), "error", err)
					collector.AddCompareError()
					continue
				}
				if !eq {
					continue
				}
				uf.Union(cand, id)
				emit(events, event.Event{
					Type:  event.PairFound,
					Path:  reg.Get(cand).FirstPath(),
					Other: rec.FirstPath(),
					Size:  rec.Stat.Size,
				})
				if idx := indexOf(loners, cand); idx >= 0 {
					loners = append(loners[:idx], loners[idx+1:]...)
					reps = append(reps, cand)
				}
				matched = true
				break
			}
			if !matched {
				loners = append(loners, id)
			}
		}
	}
	return uf, order, nil
}

func indexOf(ids []inode.DevIno, id inode.DevIno) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func emit(ch chan<- event.Event, e event.Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
