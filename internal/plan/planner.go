package plan

import (
	"sort"

	"github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

// LinkOp is one planned link: after execution ToPath refers to From's
// inode. The stat snapshots let the driver verify that neither side was
// modified between discovery and execution.
type LinkOp struct {
	FromPath string
	ToPath   string
	From     inode.DevIno
	To       inode.DevIno
	FromStat inode.StatSnapshot
	ToStat   inode.StatSnapshot
}

// Plan is the ordered sequence of link operations for one scan.
type Plan struct {
	Ops []LinkOp
}

// Planner turns equivalence groups into an ordered LinkOp sequence,
// updating the registry's simulated state so the projected statistics are
// exact even when nothing is executed.
type Planner struct {
	reg   *inode.Registry
	stats *stats.Collector
}

// NewPlanner creates a planner over the given registry.
func NewPlanner(reg *inode.Registry, collector *stats.Collector) *Planner {
	return &Planner{reg: reg, stats: collector}
}

// Build processes each equivalence group in order and returns the plan.
// Within a group the member with the highest simulated link count becomes
// the link source, which minimizes link calls and makes re-runs produce an
// empty plan.
func (p *Planner) Build(groups [][]inode.DevIno) Plan {
	var plan Plan
	for _, group := range groups {
		p.planGroup(&plan, group)
	}
	return plan
}

func (p *Planner) planGroup(plan *Plan, group []inode.DevIno) {
	members := make([]*inode.Record, 0, len(group))
	for _, id := range group {
		if rec := p.reg.Get(id); rec != nil {
			members = append(members, rec)
		}
	}
	if len(members) < 2 {
		return
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].SimNlink != members[j].SimNlink {
			return members[i].SimNlink > members[j].SimNlink
		}
		return members[i].ID.Less(members[j].ID)
	})

	maxNlink := p.reg.MaxNlink(members[0].ID.Dev)
	source := members[0]

	for _, target := range members[1:] {
		if target == source {
			continue
		}
		absorbed := false
		// Iterate a copy: migration mutates target.Paths.
		paths := append([]string(nil), target.Paths...)
		for i, path := range paths {
			if source.SimNlink >= maxNlink {
				next := p.promoteSource(members, source, target, maxNlink)
				if next == nil {
					// No member has capacity left; the rest of this
					// target's paths stay where they are.
					for range paths[i:] {
						p.stats.AddLinkMaxSkip()
					}
					break
				}
				source = next
			}

			op := LinkOp{
				FromPath: source.FirstPath(),
				ToPath:   path,
				From:     source.ID,
				To:       target.ID,
				FromStat: source.Stat,
				ToStat:   target.Stat,
			}
			plan.Ops = append(plan.Ops, op)
			p.stats.AddNewLink()
			p.stats.AddLinkablePair(op.FromPath, op.ToPath)

			p.reg.RemovePath(target.ID, path)
			p.reg.AddPath(source.ID, path)
			source.SimNlink++
			target.SimNlink--
			if target.SimNlink == 0 {
				absorbed = true
			}
		}
		if absorbed {
			// The target inode ceases to exist once the plan runs; its
			// whole size is reclaimed exactly once.
			p.stats.AddInodeAbsorbed()
			p.stats.AddBytesSaved(target.Stat.Size)
		}
	}
}

// promoteSource picks the group member with the largest remaining link
// capacity to take over as source. The current target is never a valid
// source for its own paths.
func (p *Planner) promoteSource(members []*inode.Record, current, target *inode.Record, maxNlink uint64) *inode.Record {
	var best *inode.Record
	var bestCap uint64
	for _, m := range members {
		if m == current || m == target {
			continue
		}
		if len(m.Paths) == 0 {
			continue
		}
		if m.SimNlink >= maxNlink {
			continue
		}
		if c := maxNlink - m.SimNlink; best == nil || c > bestCap ||
			(c == bestCap && m.ID.Less(best.ID)) {
			best = m
			bestCap = c
		}
	}
	return best
}
