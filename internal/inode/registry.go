package inode

// Verdict is the outcome of offering a pathname to the registry.
type Verdict int

const (
	// Admitted means a new inode record was created for the path.
	Admitted Verdict = iota
	// AdmittedLinked means the path was appended to an existing record:
	// it is already hardlinked to a previously seen file.
	AdmittedLinked
	// RejectedNonRegular rejects symlinks, devices, sockets and fifos.
	RejectedNonRegular
	// RejectedTooSmall rejects files under the configured minimum size.
	RejectedTooSmall
	// RejectedTooLarge rejects files over the configured maximum size.
	RejectedTooLarge
)

// Registry is the canonical mapping from inode identity to its discovered
// pathnames and stat snapshot. It owns all records for the lifetime of one
// scan and tracks the simulated link counts the planner maintains.
type Registry struct {
	minSize int64
	maxSize int64 // 0 means unlimited

	records map[DevIno]*Record
	order   []DevIno

	maxNlink        map[uint64]uint64
	defaultMaxNlink uint64
}

// NewRegistry creates an empty registry enforcing the given size range.
// maxSize of 0 disables the upper bound.
func NewRegistry(minSize, maxSize int64) *Registry {
	return &Registry{
		minSize:         minSize,
		maxSize:         maxSize,
		records:         make(map[DevIno]*Record),
		maxNlink:        make(map[uint64]uint64),
		defaultMaxNlink: DefaultMaxNlink,
	}
}

// SetDefaultMaxNlink overrides the assumed link-count ceiling for devices
// without an explicit limit.
func (r *Registry) SetDefaultMaxNlink(n uint64) {
	if n > 0 {
		r.defaultMaxNlink = n
	}
}

// SetMaxNlink records a link-count ceiling for one device.
func (r *Registry) SetMaxNlink(dev, n uint64) {
	r.maxNlink[dev] = n
}

// MaxNlink returns the link-count ceiling for a device.
func (r *Registry) MaxNlink(dev uint64) uint64 {
	if n, ok := r.maxNlink[dev]; ok {
		return n
	}
	return r.defaultMaxNlink
}

// Admit offers a discovered pathname to the registry. New inodes create a
// record; already-seen inodes get the pathname appended.
func (r *Registry) Admit(path string, id DevIno, st StatSnapshot, xattr XattrFP) Verdict {
	if !st.Regular {
		return RejectedNonRegular
	}
	if st.Size < r.minSize {
		return RejectedTooSmall
	}
	if r.maxSize > 0 && st.Size > r.maxSize {
		return RejectedTooLarge
	}

	if rec, ok := r.records[id]; ok {
		rec.Paths = append(rec.Paths, path)
		return AdmittedLinked
	}

	r.records[id] = &Record{
		ID:       id,
		Stat:     st,
		Xattr:    xattr,
		Paths:    []string{path},
		SimNlink: st.Nlink,
	}
	r.order = append(r.order, id)
	return Admitted
}

// Get returns the record for an inode, or nil if unknown.
func (r *Registry) Get(id DevIno) *Record {
	return r.records[id]
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	return len(r.records)
}

// Records returns live records in admission order.
func (r *Registry) Records() []*Record {
	recs := make([]*Record, 0, len(r.records))
	for _, id := range r.order {
		if rec, ok := r.records[id]; ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

// RemovePath detaches a pathname from a record, migrating it toward another
// inode. Records left with no pathnames are dropped from the registry.
func (r *Registry) RemovePath(id DevIno, path string) bool {
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	for i, p := range rec.Paths {
		if p == path {
			rec.Paths = append(rec.Paths[:i], rec.Paths[i+1:]...)
			if len(rec.Paths) == 0 {
				delete(r.records, id)
			}
			return true
		}
	}
	return false
}

// AddPath attaches a pathname to a record.
func (r *Registry) AddPath(id DevIno, path string) bool {
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	rec.Paths = append(rec.Paths, path)
	return true
}
