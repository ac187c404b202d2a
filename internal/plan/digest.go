package plan

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/chadnetzer/hardlinkable/internal/inode"
)

// DigestCache maps inode identity to the set of first-block content
// digests observed for it. Populated lazily, only as a side effect of
// actual content reads, and scoped to a single scan.
type DigestCache struct {
	digests map[inode.DevIno]map[uint64]struct{}
}

// NewDigestCache creates an empty cache.
func NewDigestCache() *DigestCache {
	return &DigestCache{digests: make(map[inode.DevIno]map[uint64]struct{})}
}

// Add records a first-block digest for an inode.
func (c *DigestCache) Add(id inode.DevIno, d uint64) {
	set, ok := c.digests[id]
	if !ok {
		set = make(map[uint64]struct{})
		c.digests[id] = set
	}
	set[d] = struct{}{}
}

// Has reports whether any digest is cached for the inode.
func (c *DigestCache) Has(id inode.DevIno) bool {
	return len(c.digests[id]) > 0
}

// Disjoint reports whether both inodes have cached digests and the sets
// share no member; such a pair cannot have equal content.
func (c *DigestCache) Disjoint(a, b inode.DevIno) bool {
	sa, sb := c.digests[a], c.digests[b]
	if len(sa) == 0 || len(sb) == 0 {
		return false
	}
	for d := range sa {
		if _, ok := sb[d]; ok {
			return false
		}
	}
	return true
}

// BlockDigest reduces a content block to the cache's 64-bit digest form.
func BlockDigest(block []byte) uint64 {
	sum := blake3.Sum256(block)
	return binary.LittleEndian.Uint64(sum[:8])
}
