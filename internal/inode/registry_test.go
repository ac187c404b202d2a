package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regSnap(size int64, nlink uint64) StatSnapshot {
	return StatSnapshot{Size: size, Nlink: nlink, Regular: true}
}

func TestAdmitNewAndLinked(t *testing.T) {
	r := NewRegistry(1, 0)
	id := DevIno{Dev: 1, Ino: 100}

	assert.Equal(t, Admitted, r.Admit("/a", id, regSnap(10, 2), XattrFP{}))
	assert.Equal(t, AdmittedLinked, r.Admit("/b", id, regSnap(10, 2), XattrFP{}))

	rec := r.Get(id)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"/a", "/b"}, rec.Paths)
	assert.Equal(t, uint64(2), rec.SimNlink)
	assert.Equal(t, 1, r.Len())
}

func TestAdmitRejections(t *testing.T) {
	r := NewRegistry(100, 1000)

	st := regSnap(50, 1)
	assert.Equal(t, RejectedTooSmall, r.Admit("/small", DevIno{1, 1}, st, XattrFP{}))

	st = regSnap(5000, 1)
	assert.Equal(t, RejectedTooLarge, r.Admit("/big", DevIno{1, 2}, st, XattrFP{}))

	st = StatSnapshot{Size: 500, Nlink: 1, Regular: false}
	assert.Equal(t, RejectedNonRegular, r.Admit("/fifo", DevIno{1, 3}, st, XattrFP{}))

	assert.Equal(t, 0, r.Len())
}

func TestPathMigration(t *testing.T) {
	r := NewRegistry(1, 0)
	src := DevIno{Dev: 1, Ino: 1}
	dst := DevIno{Dev: 1, Ino: 2}
	r.Admit("/a", src, regSnap(10, 1), XattrFP{})
	r.Admit("/b", dst, regSnap(10, 1), XattrFP{})

	require.True(t, r.RemovePath(dst, "/b"))
	require.True(t, r.AddPath(src, "/b"))

	assert.Equal(t, []string{"/a", "/b"}, r.Get(src).Paths)
	// Record with no paths left is dropped.
	assert.Nil(t, r.Get(dst))
	assert.Equal(t, 1, r.Len())
}

func TestRecordsInsertionOrder(t *testing.T) {
	r := NewRegistry(1, 0)
	ids := []DevIno{{1, 3}, {1, 1}, {1, 2}}
	for i, id := range ids {
		r.Admit("/f", id, regSnap(int64(10+i), 1), XattrFP{})
	}
	recs := r.Records()
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, ids[i], rec.ID)
	}
}

func TestMaxNlink(t *testing.T) {
	r := NewRegistry(1, 0)
	assert.Equal(t, uint64(DefaultMaxNlink), r.MaxNlink(7))
	r.SetMaxNlink(7, 10)
	assert.Equal(t, uint64(10), r.MaxNlink(7))
	r.SetDefaultMaxNlink(1000)
	assert.Equal(t, uint64(1000), r.MaxNlink(8))
}

func TestDevInoLess(t *testing.T) {
	assert.True(t, DevIno{1, 5}.Less(DevIno{2, 1}))
	assert.True(t, DevIno{1, 1}.Less(DevIno{1, 2}))
	assert.False(t, DevIno{2, 1}.Less(DevIno{1, 5}))
}

func TestHasBasename(t *testing.T) {
	rec := &Record{Paths: []string{"/dir1/x", "/dir2/y"}}
	assert.True(t, rec.HasBasename("x"))
	assert.True(t, rec.HasBasename("y"))
	assert.False(t, rec.HasBasename("z"))
}
