package plan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chadnetzer/hardlinkable/internal/inode"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

// cmpBlockSize is the unit of content comparison. The first block read
// from each file also feeds the digest cache.
const cmpBlockSize = 32 * 1024

// Oracle decides whether two inodes are linkable under a policy. It
// consults the digest cache before reading, and populates it while
// comparing.
type Oracle struct {
	policy Policy
	cache  *DigestCache
	stats  *stats.Collector

	buf1 []byte
	buf2 []byte
}

// NewOracle creates an oracle bound to one scan's digest cache.
func NewOracle(policy Policy, cache *DigestCache, collector *stats.Collector) *Oracle {
	return &Oracle{
		policy: policy,
		cache:  cache,
		stats:  collector,
		buf1:   make([]byte, cmpBlockSize),
		buf2:   make([]byte, cmpBlockSize),
	}
}

// Equal reports whether the two inodes may be hardlinked: the policy's
// attribute constraints hold on the observed stats and the file contents
// are byte-for-byte identical. An I/O error makes the pair indeterminate;
// the caller must not union it.
func (o *Oracle) Equal(a, b *inode.Record) (bool, error) {
	if !o.policy.InRange(a.Stat.Size) || !o.policy.InRange(b.Stat.Size) {
		return false, nil
	}
	if a.Stat.Size != b.Stat.Size {
		return false, nil
	}
	if !o.attrsMatch(a, b) {
		return false, nil
	}

	// Disjoint cached first-block digests prove inequality without I/O.
	if o.cache.Disjoint(a.ID, b.ID) {
		return false, nil
	}

	return o.contentsEqual(a, b)
}

func (o *Oracle) attrsMatch(a, b *inode.Record) bool {
	if o.policy.matchTime() && !a.Stat.SameMtime(b.Stat) {
		o.stats.AddMismatchedTime()
		return false
	}
	if o.policy.matchPerms() && a.Stat.Mode != b.Stat.Mode {
		o.stats.AddMismatchedMode()
		return false
	}
	if o.policy.matchOwner() &&
		(a.Stat.UID != b.Stat.UID || a.Stat.GID != b.Stat.GID) {
		o.stats.AddMismatchedOwner()
		return false
	}
	if o.policy.matchXattr() && a.Xattr != b.Xattr {
		o.stats.AddMismatchedXattr()
		return false
	}
	if o.policy.SameName && !sharesBasename(a, b) {
		o.stats.AddMismatchedName()
		return false
	}
	return true
}

func sharesBasename(a, b *inode.Record) bool {
	for _, p := range a.Paths {
		if b.HasBasename(filepath.Base(p)) {
			return true
		}
	}
	return false
}

// contentsEqual compares the files block by block. The first block of
// each side is digested into the cache so later same-bucket calls can be
// pruned without touching the disk.
func (o *Oracle) contentsEqual(a, b *inode.Record) (bool, error) {
	o.stats.AddComparison()

	f1, err := os.Open(a.FirstPath())
	if err != nil {
		return false, fmt.Errorf("open %s: %w", a.FirstPath(), err)
	}
	defer f1.Close()

	f2, err := os.Open(b.FirstPath())
	if err != nil {
		return false, fmt.Errorf("open %s: %w", b.FirstPath(), err)
	}
	defer f2.Close()

	firstBlock := true
	for {
		n1, err1 := io.ReadFull(f1, o.buf1)
		if err1 != nil && err1 != io.EOF && err1 != io.ErrUnexpectedEOF {
			return false, fmt.Errorf("read %s: %w", a.FirstPath(), err1)
		}
		n2, err2 := io.ReadFull(f2, o.buf2)
		if err2 != nil && err2 != io.EOF && err2 != io.ErrUnexpectedEOF {
			return false, fmt.Errorf("read %s: %w", b.FirstPath(), err2)
		}

		if firstBlock {
			firstBlock = false
			o.cache.Add(a.ID, BlockDigest(o.buf1[:n1]))
			o.cache.Add(b.ID, BlockDigest(o.buf2[:n2]))
			o.stats.AddHash()
			o.stats.AddHash()
		}

		if n1 != n2 || !bytes.Equal(o.buf1[:n1], o.buf2[:n2]) {
			return false, nil
		}
		if n1 < cmpBlockSize {
			// Both streams hit EOF together; sizes already matched.
			o.stats.AddEqualComparison()
			return true, nil
		}
	}
}
