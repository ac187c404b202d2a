package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
)

// ReportOptions controls which sections of the text report are printed.
type ReportOptions struct {
	LinkingEnabled bool
	Verbosity      int
	Incomplete     bool
}

// WriteJSON emits the snapshot as a single JSON object.
func WriteJSON(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteText prints the human-readable statistics report, in the classic
// hardlink-report layout.
func WriteText(w io.Writer, c *Collector, opts ReportOptions) {
	s := c.Snapshot()

	if opts.Incomplete {
		fmt.Fprintln(w, "Statistics possibly incomplete due to errors")
	}

	if opts.Verbosity > 1 {
		writeExistingClusters(w, c)
	}

	if opts.Verbosity > 0 && len(s.LinkablePairs) > 0 {
		if opts.LinkingEnabled {
			fmt.Fprintln(w, "Files that were hardlinked this run")
		} else {
			fmt.Fprintln(w, "Files that are hardlinkable")
		}
		fmt.Fprintln(w, "-----------------------")
		for _, p := range s.LinkablePairs {
			fmt.Fprintf(w, "from: %s\n", p.From)
			fmt.Fprintf(w, "  to: %s\n", p.To)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Hard linking statistics")
	fmt.Fprintln(w, "-----------------------")
	if !opts.LinkingEnabled {
		fmt.Fprintln(w, "Statistics reflect what would result if actual linking were enabled")
	}
	fmt.Fprintf(w, "Directories                : %d\n", s.Dirs)
	fmt.Fprintf(w, "Files                      : %d\n", s.Files)
	fmt.Fprintf(w, "Comparisons                : %d\n", s.Comparisons)
	fmt.Fprintf(w, "Inodes found               : %d\n", s.Inodes)
	if opts.LinkingEnabled {
		fmt.Fprintf(w, "Consolidated inodes        : %d\n", s.InodesAbsorbed)
	} else {
		fmt.Fprintf(w, "Consolidatable inodes found: %d\n", s.InodesAbsorbed)
	}
	fmt.Fprintf(w, "Current hardlinks          : %d\n", s.PrevLinks)
	if opts.LinkingEnabled {
		fmt.Fprintf(w, "Hardlinked this run        : %d\n", s.NewLinks)
	} else {
		fmt.Fprintf(w, "Hardlinkable files found   : %d\n", s.NewLinks)
	}
	fmt.Fprintf(w, "Total old and new hardlinks: %d\n", s.PrevLinks+s.NewLinks)
	fmt.Fprintf(w, "Current bytes saved        : %d (%s)\n",
		s.PrevBytesSaved, humanize.IBytes(uint64(s.PrevBytesSaved)))
	if opts.LinkingEnabled {
		fmt.Fprintf(w, "Additional bytes saved     : %d (%s)\n",
			s.BytesSaved, humanize.IBytes(uint64(s.BytesSaved)))
		fmt.Fprintf(w, "Total bytes saved          : %d (%s)\n",
			s.TotalBytes, humanize.IBytes(uint64(s.TotalBytes)))
	} else {
		fmt.Fprintf(w, "Additional bytes saveable  : %d (%s)\n",
			s.BytesSaved, humanize.IBytes(uint64(s.BytesSaved)))
		fmt.Fprintf(w, "Total bytes saveable       : %d (%s)\n",
			s.TotalBytes, humanize.IBytes(uint64(s.TotalBytes)))
	}

	if opts.Verbosity > 0 {
		writeCounter(w, "Total excluded dirs        ", s.ExcludedDirs)
		writeCounter(w, "Total excluded files       ", s.ExcludedFiles)
		writeCounter(w, "Total unmatched files      ", s.SkippedFiles)
		writeCounter(w, "Total too small files      ", s.TooSmall)
		writeCounter(w, "Total too large files      ", s.TooLarge)
		writeCounter(w, "Total inaccessible files   ", s.Inaccessible)
		writeCounter(w, "Total unequal file times   ", s.MismatchedTime)
		writeCounter(w, "Total unequal file modes   ", s.MismatchedMode)
		writeCounter(w, "Total unequal file uid/gid ", s.MismatchedOwner)
		writeCounter(w, "Total unequal file xattr   ", s.MismatchedXattr)
		writeCounter(w, "Total unequal file names   ", s.MismatchedName)
		writeCounter(w, "Total comparison errors    ", s.CompareErrors)
		writeCounter(w, "Total link errors          ", s.LinkErrors)
		writeCounter(w, "Total link-max skipped     ", s.LinkMaxSkips)
		fmt.Fprintf(w, "Total remaining inodes     : %d\n", s.RemainingInodes)
	}

	if opts.Verbosity > 2 {
		fmt.Fprintf(w, "Total run time             : %.3f seconds\n", s.ElapsedSeconds)
		fmt.Fprintf(w, "Total hashes computed      : %d\n", s.Hashes)
		fmt.Fprintf(w, "Total hash hits            : %d  misses: %d  sum total: %d\n",
			s.HashHits, s.HashMisses, s.HashHits+s.HashMisses)
		fmt.Fprintf(w, "Total hash searches        : %d\n", s.HashSearches)
		avg := 0.0
		if s.HashSearches > 0 {
			avg = float64(s.HashIterations) / float64(s.HashSearches)
		}
		fmt.Fprintf(w, "Total hash list iterations : %d  (avg per-search: %.3f)\n",
			s.HashIterations, avg)
		fmt.Fprintf(w, "Total equal comparisons    : %d\n", s.EqualComparisons)
	}
}

func writeCounter(w io.Writer, label string, n int64) {
	if n == 0 {
		return
	}
	fmt.Fprintf(w, "%s: %d\n", label, n)
}

func writeExistingClusters(w io.Writer, c *Collector) {
	links, sizes := c.ExistingClusters()
	if len(links) == 0 {
		return
	}
	fmt.Fprintln(w, "Currently hardlinked files")
	fmt.Fprintln(w, "-----------------------")
	heads := make([]string, 0, len(links))
	for head := range links {
		heads = append(heads, head)
	}
	sort.Strings(heads)
	for _, head := range heads {
		fmt.Fprintf(w, "Currently hardlinked: %s\n", head)
		for _, p := range links[head] {
			fmt.Fprintf(w, "                    : %s\n", p)
		}
		size := sizes[head]
		total := size * int64(len(links[head]))
		fmt.Fprintf(w, "Size per file: %s  Total saved: %s\n",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(total)))
	}
	fmt.Fprintln(w)
}
