package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadnetzer/hardlinkable/internal/engine"
	"github.com/chadnetzer/hardlinkable/internal/filter"
	"github.com/chadnetzer/hardlinkable/internal/plan"
	"github.com/chadnetzer/hardlinkable/internal/stats"
)

var sameTime = time.Unix(1700000000, 0)

// writeFileAt writes content and pins the mtime so files land in the same
// equivalence bucket under the default policy.
func writeFileAt(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, time.Time{}, mtime))
}

func run(t *testing.T, cfg engine.Config) engine.Result {
	t.Helper()
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	res := engine.Run(context.Background(), cfg)
	require.NoError(t, res.Err)
	return res
}

func inodeOf(t *testing.T, path string) uint64 {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	return info.Sys().(*syscall.Stat_t).Ino
}

func TestTwoIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("abcd", 25) // exactly 100 bytes
	writeFileAt(t, filepath.Join(dir, "a"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "b"), content, sameTime)

	c := stats.NewCollector()
	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}, Stats: c})

	require.Len(t, res.Plan.Ops, 1)
	s := res.Stats
	assert.Equal(t, int64(100), s.BytesSaved)
	assert.Equal(t, int64(1), s.Comparisons)
	assert.Equal(t, int64(2), s.Files)
	assert.Equal(t, int64(2), s.Inodes)
	assert.Equal(t, int64(1), s.InodesAbsorbed)
	assert.Equal(t, int64(1), s.RemainingInodes)
}

func TestExistingHardlinkPreferredAsSource(t *testing.T) {
	dir := t.TempDir()
	content := "shared content"
	// a has three links (a, a2, a3): highest nlink, so it is the source.
	writeFileAt(t, filepath.Join(dir, "a"), content, sameTime)
	require.NoError(t, os.Link(filepath.Join(dir, "a"), filepath.Join(dir, "a2")))
	require.NoError(t, os.Link(filepath.Join(dir, "a"), filepath.Join(dir, "a3")))
	writeFileAt(t, filepath.Join(dir, "b"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "c"), content, sameTime)

	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}})

	require.Len(t, res.Plan.Ops, 2)
	aIno := inodeOf(t, filepath.Join(dir, "a"))
	for _, op := range res.Plan.Ops {
		assert.Equal(t, aIno, op.From.Ino)
	}
	assert.Equal(t, int64(2*len(content)), res.Stats.BytesSaved)
	assert.Equal(t, int64(2), res.Stats.PrevLinks)
}

func TestMtimeMismatchPolicies(t *testing.T) {
	content := "identical content"

	build := func(t *testing.T) string {
		dir := t.TempDir()
		// Same second, different nanoseconds: same bucket, unequal mtime.
		writeFileAt(t, filepath.Join(dir, "a"), content, time.Unix(1700000000, 0))
		writeFileAt(t, filepath.Join(dir, "b"), content, time.Unix(1700000000, 500))
		return dir
	}

	t.Run("default policy rejects", func(t *testing.T) {
		dir := build(t)
		res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}})
		assert.Empty(t, res.Plan.Ops)
		assert.Equal(t, int64(1), res.Stats.MismatchedTime)
	})

	t.Run("ignore-time links", func(t *testing.T) {
		dir := build(t)
		res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1, IgnoreTime: true}})
		require.Len(t, res.Plan.Ops, 1)
		assert.Equal(t, int64(len(content)), res.Stats.BytesSaved)
	})

	t.Run("content-only links", func(t *testing.T) {
		dir := build(t)
		res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1, ContentOnly: true}})
		require.Len(t, res.Plan.Ops, 1)
	})

	t.Run("seconds apart never bucketed", func(t *testing.T) {
		dir := t.TempDir()
		writeFileAt(t, filepath.Join(dir, "a"), content, time.Unix(1700000000, 0))
		writeFileAt(t, filepath.Join(dir, "b"), content, time.Unix(1700000007, 0))
		res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}})
		assert.Empty(t, res.Plan.Ops)
		assert.Zero(t, res.Stats.Comparisons)
	})
}

func TestTwoContentSubgroupsComparisonBound(t *testing.T) {
	dir := t.TempDir()
	x := make([]byte, 1024)
	y := make([]byte, 1024)
	for i := range x {
		x[i] = 'x'
		y[i] = 'y'
	}
	writeFileAt(t, filepath.Join(dir, "f1"), string(x), sameTime)
	writeFileAt(t, filepath.Join(dir, "f2"), string(x), sameTime)
	writeFileAt(t, filepath.Join(dir, "f3"), string(x), sameTime)
	writeFileAt(t, filepath.Join(dir, "f4"), string(y), sameTime)
	writeFileAt(t, filepath.Join(dir, "f5"), string(y), sameTime)

	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}})

	// {f1,f2,f3} and {f4,f5}: one link source per group.
	require.Len(t, res.Plan.Ops, 3)
	s := res.Stats
	// Comparing each new inode against one representative per group keeps
	// the count at 5; each new inode is uncached on its first comparison,
	// so the digest cache prunes none of them here.
	assert.LessOrEqual(t, s.Comparisons, int64(6), "representative-first pairing must bound comparisons")
	assert.Greater(t, s.Comparisons, int64(3))
	assert.Equal(t, int64(3), s.InodesAbsorbed)
	assert.Equal(t, int64(3*1024), s.BytesSaved)
}

func TestMinSizeRejection(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, filepath.Join(dir, "small"), "tiny", sameTime)

	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 2048}})

	s := res.Stats
	assert.Equal(t, int64(1), s.TooSmall)
	assert.Zero(t, s.Inodes)
	assert.Zero(t, s.Files)
}

func TestSameNameBucketing(t *testing.T) {
	dir := t.TempDir()
	content := "same name content"
	writeFileAt(t, filepath.Join(dir, "dir1", "x"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "dir2", "x"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "dir1", "y"), content, sameTime)

	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1, SameName: true}})

	require.Len(t, res.Plan.Ops, 1)
	assert.Equal(t, "x", filepath.Base(res.Plan.Ops[0].FromPath))
	assert.Equal(t, "x", filepath.Base(res.Plan.Ops[0].ToPath))
}

func TestLinkingEnabledConsolidatesInodes(t *testing.T) {
	dir := t.TempDir()
	content := "will be linked"
	writeFileAt(t, filepath.Join(dir, "a"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "b"), content, sameTime)

	res := run(t, engine.Config{
		Dirs:           []string{dir},
		Policy:         plan.Policy{MinSize: 1},
		LinkingEnabled: true,
	})
	require.Len(t, res.Plan.Ops, 1)
	assert.Zero(t, res.FailedLinks)
	assert.Equal(t, inodeOf(t, filepath.Join(dir, "a")), inodeOf(t, filepath.Join(dir, "b")))
}

func TestIdempotentSecondRun(t *testing.T) {
	dir := t.TempDir()
	content := "linked once"
	writeFileAt(t, filepath.Join(dir, "a"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "b"), content, sameTime)

	first := run(t, engine.Config{
		Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}, LinkingEnabled: true,
	})
	require.Len(t, first.Plan.Ops, 1)

	second := run(t, engine.Config{
		Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}, LinkingEnabled: true,
	})
	assert.Empty(t, second.Plan.Ops)
	assert.Equal(t, int64(1), second.Stats.PrevLinks)
	assert.Equal(t, int64(len(content)), second.Stats.PrevBytesSaved)
	assert.Zero(t, second.Stats.BytesSaved)
}

func TestDeterministicPlans(t *testing.T) {
	dir := t.TempDir()
	content := "deterministic content"
	for _, name := range []string{"a", "b", "c", "d"} {
		writeFileAt(t, filepath.Join(dir, name), content, sameTime)
	}

	res1 := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}})
	res2 := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}})
	assert.Equal(t, res1.Plan, res2.Plan)
}

func TestNameFilterApplied(t *testing.T) {
	dir := t.TempDir()
	content := "filterable content"
	writeFileAt(t, filepath.Join(dir, "keep.txt"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "skip.bak"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "keep2.txt"), content, sameTime)

	f := filter.NewNameFilter()
	require.NoError(t, f.AddExclude(`\.bak$`))

	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}, Filter: f})

	require.Len(t, res.Plan.Ops, 1)
	assert.Equal(t, int64(1), res.Stats.ExcludedFiles)
}

func TestModeMismatchCounted(t *testing.T) {
	dir := t.TempDir()
	content := "chmod differs"
	writeFileAt(t, filepath.Join(dir, "a"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "b"), content, sameTime)
	require.NoError(t, os.Chmod(filepath.Join(dir, "b"), 0o600))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "b"), time.Time{}, sameTime))

	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}})
	assert.Empty(t, res.Plan.Ops)
	assert.Equal(t, int64(1), res.Stats.MismatchedMode)

	res = run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1, IgnorePerms: true}})
	require.Len(t, res.Plan.Ops, 1)
}

func TestLinkablePairsCollected(t *testing.T) {
	dir := t.TempDir()
	content := "pair content"
	writeFileAt(t, filepath.Join(dir, "a"), content, sameTime)
	writeFileAt(t, filepath.Join(dir, "b"), content, sameTime)

	c := stats.NewCollector()
	c.CollectPairs(true)
	res := run(t, engine.Config{Dirs: []string{dir}, Policy: plan.Policy{MinSize: 1}, Stats: c})

	require.Len(t, res.Stats.LinkablePairs, 1)
	pair := res.Stats.LinkablePairs[0]
	assert.ElementsMatch(t,
		[]string{filepath.Join(dir, "a"), filepath.Join(dir, "b")},
		[]string{pair.From, pair.To})
}
