package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks scan and planning statistics using lock-free atomic
// counters. Counter writes are safe from any goroutine; the pair lists are
// guarded separately.
type Collector struct {
	dirs          atomic.Int64
	files         atomic.Int64
	inodes        atomic.Int64
	excludedDirs  atomic.Int64
	excludedFiles atomic.Int64
	skippedFiles  atomic.Int64 // failed the --match list
	tooSmall      atomic.Int64
	tooLarge      atomic.Int64
	inaccessible  atomic.Int64

	mismatchedTime  atomic.Int64
	mismatchedMode  atomic.Int64
	mismatchedOwner atomic.Int64
	mismatchedXattr atomic.Int64
	mismatchedName  atomic.Int64

	comparisons      atomic.Int64
	equalComparisons atomic.Int64
	compareErrors    atomic.Int64

	hashes         atomic.Int64
	hashHits       atomic.Int64
	hashMisses     atomic.Int64
	hashSearches   atomic.Int64
	hashIterations atomic.Int64

	prevLinks      atomic.Int64
	prevBytesSaved atomic.Int64

	newLinks       atomic.Int64
	inodesAbsorbed atomic.Int64
	bytesSaved     atomic.Int64
	linkMaxSkips   atomic.Int64
	linkErrors     atomic.Int64

	startTime time.Time

	mu              sync.Mutex
	linkablePairs   []PathPair
	existingLinks   map[string][]string // head pathname -> other linked pathnames
	existingSizes   map[string]int64
	collectPairs    bool
	collectClusters bool
}

// PathPair is a planned (or performed) link from one pathname to another.
type PathPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{
		startTime:     time.Now(),
		existingLinks: make(map[string][]string),
		existingSizes: make(map[string]int64),
	}
}

// CollectPairs enables recording of planned from/to pathname pairs.
func (c *Collector) CollectPairs(on bool) { c.collectPairs = on }

// CollectClusters enables recording of already-hardlinked path clusters.
func (c *Collector) CollectClusters(on bool) { c.collectClusters = on }

func (c *Collector) AddDir()              { c.dirs.Add(1) }
func (c *Collector) AddFile()             { c.files.Add(1) }
func (c *Collector) AddInode()            { c.inodes.Add(1) }
func (c *Collector) AddExcludedDir()      { c.excludedDirs.Add(1) }
func (c *Collector) AddExcludedFile()     { c.excludedFiles.Add(1) }
func (c *Collector) AddSkippedFile()      { c.skippedFiles.Add(1) }
func (c *Collector) AddTooSmall()         { c.tooSmall.Add(1) }
func (c *Collector) AddTooLarge()         { c.tooLarge.Add(1) }
func (c *Collector) AddInaccessible()     { c.inaccessible.Add(1) }
func (c *Collector) AddMismatchedTime()   { c.mismatchedTime.Add(1) }
func (c *Collector) AddMismatchedMode()   { c.mismatchedMode.Add(1) }
func (c *Collector) AddMismatchedOwner()  { c.mismatchedOwner.Add(1) }
func (c *Collector) AddMismatchedXattr()  { c.mismatchedXattr.Add(1) }
func (c *Collector) AddMismatchedName()   { c.mismatchedName.Add(1) }
func (c *Collector) AddComparison()       { c.comparisons.Add(1) }
func (c *Collector) AddEqualComparison()  { c.equalComparisons.Add(1) }
func (c *Collector) AddCompareError()     { c.compareErrors.Add(1) }
func (c *Collector) AddHash()             { c.hashes.Add(1) }
func (c *Collector) AddHashHit()          { c.hashHits.Add(1) }
func (c *Collector) AddHashMiss()         { c.hashMisses.Add(1) }
func (c *Collector) AddHashSearch()       { c.hashSearches.Add(1) }
func (c *Collector) AddHashIteration()    { c.hashIterations.Add(1) }
func (c *Collector) AddNewLink()          { c.newLinks.Add(1) }
func (c *Collector) AddInodeAbsorbed()    { c.inodesAbsorbed.Add(1) }
func (c *Collector) AddBytesSaved(n int64) { c.bytesSaved.Add(n) }
func (c *Collector) AddLinkMaxSkip()      { c.linkMaxSkips.Add(1) }
func (c *Collector) AddLinkError()        { c.linkErrors.Add(1) }

// AddExistingLink records a pathname found already hardlinked to a
// previously seen inode.
func (c *Collector) AddExistingLink(headPath, newPath string, size int64) {
	c.prevLinks.Add(1)
	c.prevBytesSaved.Add(size)
	if !c.collectClusters {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.existingLinks[headPath] = append(c.existingLinks[headPath], newPath)
	c.existingSizes[headPath] = size
}

// AddLinkablePair records one planned from/to pathname pair.
func (c *Collector) AddLinkablePair(from, to string) {
	if !c.collectPairs {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.linkablePairs = append(c.linkablePairs, PathPair{From: from, To: to})
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	Dirs          int64 `json:"directories"`
	Files         int64 `json:"files"`
	Inodes        int64 `json:"inodes"`
	ExcludedDirs  int64 `json:"excluded_dirs"`
	ExcludedFiles int64 `json:"excluded_files"`
	SkippedFiles  int64 `json:"unmatched_files"`
	TooSmall      int64 `json:"files_too_small"`
	TooLarge      int64 `json:"files_too_large"`
	Inaccessible  int64 `json:"inaccessible_files"`

	MismatchedTime  int64 `json:"unequal_file_times"`
	MismatchedMode  int64 `json:"unequal_file_modes"`
	MismatchedOwner int64 `json:"unequal_file_ownership"`
	MismatchedXattr int64 `json:"unequal_file_xattr"`
	MismatchedName  int64 `json:"unequal_file_names"`

	Comparisons      int64 `json:"comparisons"`
	EqualComparisons int64 `json:"equal_comparisons"`
	CompareErrors    int64 `json:"comparison_errors"`

	Hashes         int64 `json:"hashes_computed"`
	HashHits       int64 `json:"hash_hits"`
	HashMisses     int64 `json:"hash_misses"`
	HashSearches   int64 `json:"hash_searches"`
	HashIterations int64 `json:"hash_list_iterations"`

	PrevLinks      int64 `json:"current_hardlinks"`
	PrevBytesSaved int64 `json:"current_bytes_saved"`

	NewLinks       int64 `json:"new_hardlinks"`
	InodesAbsorbed int64 `json:"consolidated_inodes"`
	BytesSaved     int64 `json:"additional_bytes_saveable"`
	TotalBytes     int64 `json:"total_bytes_saveable"`
	RemainingInodes int64 `json:"remaining_inodes"`
	LinkMaxSkips   int64 `json:"link_max_skipped_paths"`
	LinkErrors     int64 `json:"link_errors"`

	ElapsedSeconds float64    `json:"elapsed_seconds"`
	LinkablePairs  []PathPair `json:"linkable_pairs,omitempty"`
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		Dirs:          c.dirs.Load(),
		Files:         c.files.Load(),
		Inodes:        c.inodes.Load(),
		ExcludedDirs:  c.excludedDirs.Load(),
		ExcludedFiles: c.excludedFiles.Load(),
		SkippedFiles:  c.skippedFiles.Load(),
		TooSmall:      c.tooSmall.Load(),
		TooLarge:      c.tooLarge.Load(),
		Inaccessible:  c.inaccessible.Load(),

		MismatchedTime:  c.mismatchedTime.Load(),
		MismatchedMode:  c.mismatchedMode.Load(),
		MismatchedOwner: c.mismatchedOwner.Load(),
		MismatchedXattr: c.mismatchedXattr.Load(),
		MismatchedName:  c.mismatchedName.Load(),

		Comparisons:      c.comparisons.Load(),
		EqualComparisons: c.equalComparisons.Load(),
		CompareErrors:    c.compareErrors.Load(),

		Hashes:         c.hashes.Load(),
		HashHits:       c.hashHits.Load(),
		HashMisses:     c.hashMisses.Load(),
		HashSearches:   c.hashSearches.Load(),
		HashIterations: c.hashIterations.Load(),

		PrevLinks:      c.prevLinks.Load(),
		PrevBytesSaved: c.prevBytesSaved.Load(),

		NewLinks:       c.newLinks.Load(),
		InodesAbsorbed: c.inodesAbsorbed.Load(),
		BytesSaved:     c.bytesSaved.Load(),
		LinkMaxSkips:   c.linkMaxSkips.Load(),
		LinkErrors:     c.linkErrors.Load(),

		ElapsedSeconds: c.Elapsed().Seconds(),
	}
	s.TotalBytes = s.PrevBytesSaved + s.BytesSaved
	s.RemainingInodes = s.Inodes - s.InodesAbsorbed

	c.mu.Lock()
	s.LinkablePairs = append([]PathPair(nil), c.linkablePairs...)
	c.mu.Unlock()

	return s
}

// ExistingClusters returns the already-hardlinked path clusters, keyed by
// the first-seen pathname, plus the per-file size. Only populated when
// cluster collection is enabled.
func (c *Collector) ExistingClusters() (map[string][]string, map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	links := make(map[string][]string, len(c.existingLinks))
	for k, v := range c.existingLinks {
		links[k] = append([]string(nil), v...)
	}
	sizes := make(map[string]int64, len(c.existingSizes))
	for k, v := range c.existingSizes {
		sizes[k] = v
	}
	return links, sizes
}
