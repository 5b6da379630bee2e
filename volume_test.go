// Copyright 2026 The Geologic Authors
// This file is part of Geologic.
//
// Geologic is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Geologic is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Geologic. If not, see <http://www.gnu.org/licenses/>.

package geologic_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geologic "github.com/erigontech/geologic"
	"github.com/erigontech/geologic/geoerr"
)

func newVolume(t *testing.T) *geologic.Volume {
	t.Helper()
	return geologic.Create(geologic.Options{})
}

func mustRead(t *testing.T, v *geologic.Volume, path string) []byte {
	t.Helper()
	data, err := v.FileRead(path)
	require.NoError(t, err)
	return data
}

func kindOf(t *testing.T, err error) geoerr.Kind {
	t.Helper()
	k, ok := geoerr.KindOf(err)
	require.True(t, ok, "expected a geoerr, got %v", err)
	return k
}

func TestWriteReadDedup(t *testing.T) {
	v := newVolume(t)

	require.NoError(t, v.FileWrite("/a", []byte("hi"), 0, 0))
	assert.Equal(t, []byte("hi"), mustRead(t, v, "/a"))

	size, err := v.FileSize("/a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)

	s := v.Stats()
	assert.EqualValues(t, 2, s.ContentBytes)
	assert.EqualValues(t, 0, s.DedupHits)
	assert.EqualValues(t, 1, s.RefCount)

	// identical bytes again: no new content, a second ref record
	require.NoError(t, v.FileWrite("/a", []byte("hi"), 0, 0))
	s = v.Stats()
	assert.EqualValues(t, 2, s.ContentBytes)
	assert.EqualValues(t, 1, s.DedupHits)
	assert.EqualValues(t, 2, s.RefCount)
	assert.Equal(t, []byte("hi"), mustRead(t, v, "/a"))
}

func TestHidePreservesHistory(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/a", []byte("hi"), 0, 0))
	prev := v.Stats().CurrentView

	require.NoError(t, v.Hide("/a"))

	cur, err := v.ViewCurrent()
	require.NoError(t, err)
	assert.Equal(t, "Hide: /a", cur.Label)

	_, err = v.FileRead("/a")
	assert.Equal(t, geoerr.KindNotFound, kindOf(t, err))

	// the pre-hide view still resolves the old content
	_, err = v.ViewSwitch(prev)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), mustRead(t, v, "/a"))
}

func TestHideThenRecreate(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/a", []byte("one"), 0, 0))
	require.NoError(t, v.Hide("/a"))
	require.NoError(t, v.FileWrite("/a", []byte("two"), 0, 0))
	assert.Equal(t, []byte("two"), mustRead(t, v, "/a"))
}

func TestBranchIsolation(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/base", []byte("B"), 0, 0))

	_, err := v.BranchCreate("feature")
	require.NoError(t, err)
	require.NoError(t, v.FileWrite("/x", []byte("X"), 0, 0))
	assert.Equal(t, []byte("X"), mustRead(t, v, "/x"))

	_, err = v.BranchSwitchByName("main")
	require.NoError(t, err)
	_, err = v.FileRead("/x")
	assert.Equal(t, geoerr.KindNotFound, kindOf(t, err))
	assert.Equal(t, []byte("B"), mustRead(t, v, "/base"), "shared history stays visible")

	_, err = v.BranchSwitchByName("feature")
	require.NoError(t, err)
	assert.Equal(t, []byte("X"), mustRead(t, v, "/x"))
	assert.Equal(t, []byte("B"), mustRead(t, v, "/base"))
}

func TestBranchNameCollision(t *testing.T) {
	v := newVolume(t)
	_, err := v.BranchCreate("twice")
	require.NoError(t, err)
	_, err = v.BranchCreate("twice")
	assert.Equal(t, geoerr.KindExists, kindOf(t, err))
}

func TestMergeConflictLeavesTargetUnchanged(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/a", []byte("base"), 0, 0))

	left, err := v.BranchCreate("left")
	require.NoError(t, err)
	require.NoError(t, v.FileWrite("/a", []byte("left version"), 0, 0))
	require.NoError(t, v.FileWrite("/left-only", []byte("L"), 0, 0))

	_, err = v.BranchSwitchByName("main")
	require.NoError(t, err)
	require.NoError(t, v.FileWrite("/a", []byte("main version"), 0, 0))

	result, err := v.BranchMerge(left.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, geoerr.ConflictErr))
	assert.Equal(t, 1, geoerr.ConflictCountOf(err))
	require.NotNil(t, result)
	assert.Equal(t, 1, result.ConflictCount)

	assert.Equal(t, []byte("main version"), mustRead(t, v, "/a"))
	assert.Equal(t, []byte("L"), mustRead(t, v, "/left-only"), "non-conflicting changes still apply")
}

func TestMergeCleanThenIdempotent(t *testing.T) {
	v := newVolume(t)
	side, err := v.BranchCreate("side")
	require.NoError(t, err)
	require.NoError(t, v.FileWrite("/x", []byte("X"), 0, 0))

	_, err = v.BranchSwitchByName("main")
	require.NoError(t, err)

	result, err := v.BranchMerge(side.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ConflictCount)
	assert.Equal(t, 1, result.AppliedCount)
	assert.Equal(t, []byte("X"), mustRead(t, v, "/x"))

	again, err := v.BranchMerge(side.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.AppliedCount)
}

func TestSymlinks(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/target", []byte("T"), 0, 0))
	require.NoError(t, v.Symlink("/ln", "/target", 0))

	assert.Equal(t, []byte("T"), mustRead(t, v, "/ln"))

	target, err := v.Readlink("/ln")
	require.NoError(t, err)
	assert.Equal(t, "/target", target)

	// chains resolve through intermediate links
	require.NoError(t, v.Symlink("/ln2", "/ln", 0))
	assert.Equal(t, []byte("T"), mustRead(t, v, "/ln2"))

	// cycles terminate with SymLoop
	require.NoError(t, v.Symlink("/loop", "/loop", 0))
	_, err = v.FileRead("/loop")
	assert.Equal(t, geoerr.KindSymLoop, kindOf(t, err))

	_, err = v.Readlink("/target")
	assert.Equal(t, geoerr.KindInvalid, kindOf(t, err))
}

func TestSymlinkHopOption(t *testing.T) {
	v := geologic.Create(geologic.Options{MaxSymlinkHops: 2})
	require.NoError(t, v.FileWrite("/end", []byte("E"), 0, 0))
	require.NoError(t, v.Symlink("/l1", "/end", 0))
	require.NoError(t, v.Symlink("/l2", "/l1", 0))
	require.NoError(t, v.Symlink("/l3", "/l2", 0))

	assert.Equal(t, []byte("E"), mustRead(t, v, "/l2"))
	_, err := v.FileRead("/l3")
	assert.Equal(t, geoerr.KindSymLoop, kindOf(t, err))
}

func TestHardlink(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/orig", []byte("data"), 0, 0))
	before := v.Stats().ContentBytes

	require.NoError(t, v.Hardlink("/orig", "/alias"))
	assert.Equal(t, []byte("data"), mustRead(t, v, "/alias"))
	assert.Equal(t, before, v.Stats().ContentBytes, "hardlink stores no new content")

	st1, err := v.Stat("/orig")
	require.NoError(t, err)
	st2, err := v.Stat("/alias")
	require.NoError(t, err)
	assert.Equal(t, st1.Digest, st2.Digest)
}

func TestCopy(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/src", []byte("payload"), 0, 0))
	require.NoError(t, v.Copy("/src", "/dst"))
	assert.Equal(t, []byte("payload"), mustRead(t, v, "/dst"))
	assert.EqualValues(t, 1, v.Stats().DedupHits, "copied bytes dedup against the source blob")
}

func TestRename(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/old", []byte("keep"), 0, 0))
	require.NoError(t, v.Rename("/old", "/new"))

	assert.Equal(t, []byte("keep"), mustRead(t, v, "/new"))
	_, err := v.FileRead("/old")
	assert.Equal(t, geoerr.KindNotFound, kindOf(t, err))

	require.NoError(t, v.FileWrite("/blocker", []byte("b"), 0, 0))
	err = v.Rename("/new", "/blocker")
	assert.Equal(t, geoerr.KindExists, kindOf(t, err))
}

func TestMkdirAndListing(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.Mkdir("/dir", geologic.PermRead|geologic.PermWrite|geologic.PermExecute, 0))
	require.NoError(t, v.FileWrite("/dir/a", []byte("1"), 0, 0))
	require.NoError(t, v.Mkdir("/dir/sub", geologic.PermRead|geologic.PermWrite|geologic.PermExecute, 0))
	require.NoError(t, v.FileWrite("/dir/sub/b", []byte("2"), 0, 0))

	err := v.Mkdir("/dir", 0, 0)
	assert.Equal(t, geoerr.KindExists, kindOf(t, err))
	err = v.Mkdir("/dir/a", 0, 0)
	assert.Equal(t, geoerr.KindExists, kindOf(t, err))

	_, err = v.FileRead("/dir")
	assert.Equal(t, geoerr.KindIsDir, kindOf(t, err))

	direct, err := v.ListDirect("/dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"/dir/a", "/dir/sub"}, sortedPaths(direct))

	recursive, err := v.ListRecursive("/dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"/dir/a", "/dir/sub", "/dir/sub/b"}, sortedPaths(recursive))

	_, err = v.ListDirect("/dir/a")
	assert.Equal(t, geoerr.KindNotDir, kindOf(t, err))
}

func sortedPaths(entries []*geologic.StatResult) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

func TestFindAndGrep(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/docs/readme", []byte("hello world\nsecond line"), 0, 0))
	require.NoError(t, v.FileWrite("/docs/notes", []byte("nothing here"), 0, 0))

	found, err := v.FindByPattern("read*")
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/readme"}, sortedPaths(found))

	found, err = v.FindByPattern("/docs/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/notes", "/docs/readme"}, sortedPaths(found))

	matches, err := v.Grep("world")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "/docs/readme", matches[0].Path)
	assert.Equal(t, 1, matches[0].Line)
	assert.Equal(t, "hello world", matches[0].Text)
}

func TestAppend(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/log", []byte("a"), 0, 0))
	require.NoError(t, v.FileAppend("/log", []byte("b")))
	assert.Equal(t, []byte("ab"), mustRead(t, v, "/log"))
}

func TestChmodChownAndGate(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/p", []byte("x"), geologic.PermRead, 0))

	v.SetContext(geologic.AccessContext{CallerID: 5, Capabilities: 0})
	err := v.FileWrite("/p", []byte("y"), 0, 0)
	assert.Equal(t, geoerr.KindPermission, kindOf(t, err))
	assert.Equal(t, []byte("x"), mustRead(t, v, "/p"))

	// fs-admin bypasses the gate
	v.SetContext(geologic.AccessContext{CallerID: 1, Capabilities: geologic.CapFSAdmin})
	require.NoError(t, v.Chmod("/p", geologic.PermRead|geologic.PermWrite))
	require.NoError(t, v.Chown("/p", 5))

	st, err := v.Stat("/p")
	require.NoError(t, err)
	assert.Equal(t, geologic.PermRead|geologic.PermWrite, st.Perm)
	assert.EqualValues(t, 5, st.OwnerID)

	// the unprivileged caller can write now
	v.SetContext(geologic.AccessContext{CallerID: 5, Capabilities: 0})
	require.NoError(t, v.FileWrite("/p", []byte("y"), geologic.PermRead|geologic.PermWrite, 5))
	assert.Equal(t, []byte("y"), mustRead(t, v, "/p"))
}

func TestQuotaContentBytes(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.QuotaSet(geologic.VolumeScope, 10, 0, 0))

	require.NoError(t, v.FileWrite("/q1", []byte("12345678"), 0, 0))

	err := v.FileWrite("/q2", []byte("87654321"), 0, 0)
	assert.Equal(t, geoerr.KindQuota, kindOf(t, err))

	// identical bytes add nothing: dedup writes pass the same quota
	require.NoError(t, v.FileWrite("/q3", []byte("12345678"), 0, 0))
}

func TestQuotaRefCount(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.QuotaSet(geologic.VolumeScope, 0, 2, 0))

	require.NoError(t, v.FileWrite("/r1", []byte("1"), 0, 0))
	require.NoError(t, v.FileWrite("/r2", []byte("2"), 0, 0))
	err := v.FileWrite("/r3", []byte("3"), 0, 0)
	assert.Equal(t, geoerr.KindQuota, kindOf(t, err))
}

func TestQuotaBranchScope(t *testing.T) {
	v := newVolume(t)
	b, err := v.BranchCreate("limited")
	require.NoError(t, err)
	require.NoError(t, v.QuotaSet(b.ID, 4, 0, 0))

	err = v.FileWrite("/big", []byte("too many bytes"), 0, 0)
	assert.Equal(t, geoerr.KindQuota, kindOf(t, err))

	// main is not limited
	_, err = v.BranchSwitchByName("main")
	require.NoError(t, err)
	require.NoError(t, v.FileWrite("/big", []byte("too many bytes"), 0, 0))
}

func TestViewDiff(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/keep", []byte("k"), 0, 0))
	require.NoError(t, v.FileWrite("/change", []byte("v1"), 0, 0))
	from := v.Stats().CurrentView

	_, err := v.ViewCreate("next")
	require.NoError(t, err)
	to := v.Stats().CurrentView
	require.NoError(t, v.FileWrite("/change", []byte("v2"), 0, 0))
	require.NoError(t, v.FileWrite("/added", []byte("a"), 0, 0))

	diff, err := v.ViewDiff(from, to)
	require.NoError(t, err)

	kinds := map[string]string{}
	for _, d := range diff {
		kinds[d.Path] = d.Kind
	}
	assert.Equal(t, map[string]string{"/change": "changed", "/added": "added"}, kinds)
}

func TestBranchDiff(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.FileWrite("/shared", []byte("s"), 0, 0))

	b, err := v.BranchCreate("other")
	require.NoError(t, err)
	require.NoError(t, v.FileWrite("/only-other", []byte("o"), 0, 0))

	diff, err := v.BranchDiff(0, b.ID)
	require.NoError(t, err)
	kinds := map[string]string{}
	for _, d := range diff {
		kinds[d.Path] = d.Kind
	}
	assert.Equal(t, map[string]string{"/only-other": "added"}, kinds)
}

func TestStatsMonotonic(t *testing.T) {
	v := newVolume(t)
	prev := v.Stats()

	step := func() {
		s := v.Stats()
		assert.GreaterOrEqual(t, s.ContentBytes, prev.ContentBytes)
		assert.GreaterOrEqual(t, s.RefCount, prev.RefCount)
		assert.GreaterOrEqual(t, s.ViewCount, prev.ViewCount)
		assert.GreaterOrEqual(t, s.BranchCount, prev.BranchCount)
		assert.GreaterOrEqual(t, s.NextViewID, prev.NextViewID)
		assert.GreaterOrEqual(t, s.NextBranchID, prev.NextBranchID)
		assert.GreaterOrEqual(t, s.ContentUsed, prev.ContentUsed)
		assert.GreaterOrEqual(t, s.RefsUsed, prev.RefsUsed)
		assert.GreaterOrEqual(t, s.MetaUsed, prev.MetaUsed)
		prev = s
	}

	require.NoError(t, v.FileWrite("/m1", []byte("one"), 0, 0))
	step()
	require.NoError(t, v.Hide("/m1"))
	step()
	_, err := v.BranchCreate("mono")
	require.NoError(t, err)
	step()
	require.NoError(t, v.FileWrite("/m2", []byte("two"), 0, 0))
	step()
	_, err = v.BranchSwitchByName("main")
	require.NoError(t, err)
	step()
}
