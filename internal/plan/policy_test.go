package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chadnetzer/hardlinkable/internal/inode"
)

func recWith(path string, st inode.StatSnapshot, fp inode.XattrFP) *inode.Record {
	return &inode.Record{
		ID:       inode.DevIno{Dev: 1, Ino: 1},
		Stat:     st,
		Xattr:    fp,
		Paths:    []string{path},
		SimNlink: st.Nlink,
	}
}

func TestKeyDefaultPolicy(t *testing.T) {
	st := inode.StatSnapshot{
		Size: 100, Sec: 10, Nsec: 20, Mode: 0o644,
		UID: 1000, GID: 1000, Nlink: 1, Regular: true,
	}
	fp := inode.XattrFP{OK: true, Sum: 42}
	k := Policy{MinSize: 1}.KeyFor(recWith("/d/f", st, fp))

	// The key buckets on size and mtime seconds; finer attributes are
	// the oracle's job.
	assert.Equal(t, Key{Size: 100, Sec: 10}, k)
}

func TestKeyContentOnly(t *testing.T) {
	st := inode.StatSnapshot{
		Size: 100, Sec: 10, Nsec: 20, Mode: 0o644,
		UID: 1000, GID: 1000, Regular: true,
	}
	k := Policy{ContentOnly: true, MinSize: 1}.KeyFor(recWith("/d/f", st, inode.XattrFP{OK: true, Sum: 42}))

	assert.Equal(t, Key{Size: 100}, k)
}

func TestKeyIgnoreTime(t *testing.T) {
	st := inode.StatSnapshot{
		Size: 100, Sec: 10, Nsec: 20, Mode: 0o644,
		UID: 5, GID: 6, Regular: true,
	}
	k := Policy{IgnoreTime: true, MinSize: 1}.
		KeyFor(recWith("/d/f", st, inode.XattrFP{OK: true, Sum: 9}))

	assert.Equal(t, Key{Size: 100}, k)
}

func TestKeySameName(t *testing.T) {
	st := inode.StatSnapshot{Size: 100, Regular: true}
	k1 := Policy{SameName: true, MinSize: 1}.KeyFor(recWith("/dir1/x", st, inode.XattrFP{}))
	k2 := Policy{SameName: true, MinSize: 1}.KeyFor(recWith("/dir2/x", st, inode.XattrFP{}))
	k3 := Policy{SameName: true, MinSize: 1}.KeyFor(recWith("/dir1/y", st, inode.XattrFP{}))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestInRange(t *testing.T) {
	p := Policy{MinSize: 10, MaxSize: 100}
	assert.False(t, p.InRange(9))
	assert.True(t, p.InRange(10))
	assert.True(t, p.InRange(100))
	assert.False(t, p.InRange(101))

	unbounded := Policy{MinSize: 1}
	assert.True(t, unbounded.InRange(1<<40))
}
