package filter

import (
	"fmt"
	"regexp"
)

// NameFilter holds the compiled --match and --exclude basename regexes.
// Exclusions apply to both file and directory basenames; matches apply
// to file basenames only. An empty match list admits every name.
type NameFilter struct {
	matches  []*regexp.Regexp
	excludes []*regexp.Regexp
}

// NewNameFilter creates an empty filter that admits everything.
func NewNameFilter() *NameFilter {
	return &NameFilter{}
}

// AddMatch compiles and appends a match regex.
func (f *NameFilter) AddMatch(expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid match regex %q: %w", expr, err)
	}
	f.matches = append(f.matches, re)
	return nil
}

// AddExclude compiles and appends an exclude regex.
func (f *NameFilter) AddExclude(expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid exclude regex %q: %w", expr, err)
	}
	f.excludes = append(f.excludes, re)
	return nil
}

// Excluded reports whether basename matches any exclude regex.
func (f *NameFilter) Excluded(basename string) bool {
	for _, re := range f.excludes {
		if re.MatchString(basename) {
			return true
		}
	}
	return false
}

// Matched reports whether basename passes the match list. With no match
// regexes configured every basename passes.
func (f *NameFilter) Matched(basename string) bool {
	if len(f.matches) == 0 {
		return true
	}
	for _, re := range f.matches {
		if re.MatchString(basename) {
			return true
		}
	}
	return false
}
