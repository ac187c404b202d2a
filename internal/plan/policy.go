package plan

import (
	"path/filepath"

	"github.com/chadnetzer/hardlinkable/internal/inode"
)

// Policy describes which attributes must match for two files to be
// considered linkable. ContentOnly supersedes the time/perms/ownership/
// xattr requirements; SameName adds basename equality.
type Policy struct {
	SameName    bool
	IgnorePerms bool
	IgnoreTime  bool
	IgnoreXattr bool
	ContentOnly bool
	MinSize     int64
	MaxSize     int64 // 0 means unlimited
}

// NeedsXattrs reports whether the walker must collect xattr fingerprints.
func (p Policy) NeedsXattrs() bool {
	return !p.IgnoreXattr && !p.ContentOnly
}

func (p Policy) matchTime() bool  { return !p.IgnoreTime && !p.ContentOnly }
func (p Policy) matchPerms() bool { return !p.IgnorePerms && !p.ContentOnly }
func (p Policy) matchOwner() bool { return !p.ContentOnly }
func (p Policy) matchXattr() bool { return p.NeedsXattrs() }

// Key is the metadata equivalence tuple: two inodes can be linkable only
// if their keys are identical. The key is deliberately coarser than the
// full attribute set: it buckets on size, mtime seconds, and basename,
// while mode, ownership, xattrs, and sub-second mtime are enforced by the
// oracle, which is what feeds the per-attribute rejection counters.
type Key struct {
	Size int64
	Sec  int64
	Name string
}

// KeyFor derives the equivalence key for a record under this policy.
// Basename, when required, comes from the record's first pathname.
func (p Policy) KeyFor(rec *inode.Record) Key {
	k := Key{Size: rec.Stat.Size}
	if p.matchTime() {
		k.Sec = rec.Stat.Sec
	}
	if p.SameName {
		k.Name = filepath.Base(rec.FirstPath())
	}
	return k
}

// InRange reports whether a size falls inside the policy's size window.
func (p Policy) InRange(size int64) bool {
	if size < p.MinSize {
		return false
	}
	if p.MaxSize > 0 && size > p.MaxSize {
		return false
	}
	return true
}
