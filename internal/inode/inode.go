package inode

import "time"

// DefaultMaxNlink is the per-device link-count ceiling assumed when the
// filesystem's real limit is unknown. Conservative for ext4 (65000).
const DefaultMaxNlink = 65000

// DevIno uniquely identifies an inode across mounted filesystems.
type DevIno struct {
	Dev uint64
	Ino uint64
}

// Less orders DevIno pairs for deterministic tie-breaking.
func (d DevIno) Less(o DevIno) bool {
	if d.Dev != o.Dev {
		return d.Dev < o.Dev
	}
	return d.Ino < o.Ino
}

// StatSnapshot captures the stat fields the planner cares about, taken at
// first discovery.
type StatSnapshot struct {
	Size    int64
	Sec     int64 // mtime seconds
	Nsec    int64 // mtime nanoseconds
	Mode    uint32
	UID     uint32
	GID     uint32
	Nlink   uint64
	Regular bool
}

// ModTime returns the snapshot mtime as a time.Time.
func (s StatSnapshot) ModTime() time.Time {
	return time.Unix(s.Sec, s.Nsec)
}

// SameMtime reports whether two snapshots share a modification time.
func (s StatSnapshot) SameMtime(o StatSnapshot) bool {
	return s.Sec == o.Sec && s.Nsec == o.Nsec
}

// XattrFP is an order-independent fingerprint of an inode's extended
// attributes. OK is false when xattrs are ignored or unreadable; such
// fingerprints compare equal to each other and unequal to any present one.
type XattrFP struct {
	OK  bool
	Sum uint64
}

// Record is the canonical per-inode state: observed stat, discovered
// pathnames, and the simulated link count maintained while a plan is built.
type Record struct {
	ID       DevIno
	Stat     StatSnapshot
	Xattr    XattrFP
	Paths    []string
	SimNlink uint64
}

// FirstPath returns the earliest-discovered pathname still attached.
func (r *Record) FirstPath() string {
	if len(r.Paths) == 0 {
		return ""
	}
	return r.Paths[0]
}

// HasBasename reports whether any attached pathname has the given basename.
func (r *Record) HasBasename(name string) bool {
	for _, p := range r.Paths {
		if basename(p) == name {
			return true
		}
	}
	return false
}

func basename(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
