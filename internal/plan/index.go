package plan

import "github.com/chadnetzer/hardlinkable/internal/inode"

// CandidateIndex buckets inode identities by equivalence key. All linkable
// pairs necessarily share a key, so pairwise comparison only ever happens
// inside one bucket. Bucket order follows key insertion order so plans are
// stable across runs.
type CandidateIndex struct {
	policy  Policy
	buckets map[Key][]inode.DevIno
	order   []Key
}

// NewCandidateIndex creates an empty index under the given policy.
func NewCandidateIndex(policy Policy) *CandidateIndex {
	return &CandidateIndex{
		policy:  policy,
		buckets: make(map[Key][]inode.DevIno),
	}
}

// Insert computes the record's key and appends its inode to the bucket.
// Returns true if the bucket already existed (a hash hit).
func (x *CandidateIndex) Insert(rec *inode.Record) bool {
	key := x.policy.KeyFor(rec)
	_, existed := x.buckets[key]
	if !existed {
		x.order = append(x.order, key)
	}
	x.buckets[key] = append(x.buckets[key], rec.ID)
	return existed
}

// Buckets yields buckets with at least two members, in insertion order.
func (x *CandidateIndex) Buckets() [][]inode.DevIno {
	var out [][]inode.DevIno
	for _, key := range x.order {
		if b := x.buckets[key]; len(b) >= 2 {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of distinct keys.
func (x *CandidateIndex) Len() int {
	return len(x.buckets)
}
