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

package persist

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/content"
	"github.com/erigontech/geologic/internal/dag"
	"github.com/erigontech/geologic/internal/region"
	"github.com/erigontech/geologic/internal/sectorio"
	"github.com/erigontech/geologic/internal/wire"
)

func testClock() func() uint64 {
	var tick uint64
	return func() uint64 { tick++; return tick }
}

// buildV1Chains assembles a minimal volume by hand: one blob, one ref to it
// in view 2, and two v1 view records with no branch records at all: the
// record stream an old-format volume would carry.
func buildV1Chains(t *testing.T) (contentChain, refChain, metaChain *region.Chain, digest content.Digest) {
	t.Helper()

	contentChain = region.New("content", region.DefaultPageSize, nil)
	store := content.New(contentChain, nil)
	d, err := store.Store([]byte("hi"))
	require.NoError(t, err)

	refChain = region.New("refs", region.DefaultPageSize, nil)
	rec := &wire.RefRecord{
		PathHash: xxhash.Sum64String("/a"), Digest: [32]byte(d),
		ViewID: 2, Creation: 3, FileType: wire.FileRegular,
		Perm: wire.PermRead | wire.PermWrite, Path: "/a",
	}
	_, err = refChain.Append(rec.Marshal())
	require.NoError(t, err)

	metaChain = region.New("meta", region.DefaultPageSize, nil)
	for _, v := range []*wire.ViewRecord{
		{ID: 1, Parent: 0, Creation: 1, Label: "Genesis"},
		{ID: 2, Parent: 1, Creation: 2, Label: "tip"},
	} {
		_, err = metaChain.Append(v.Marshal())
		require.NoError(t, err)
	}
	return contentChain, refChain, metaChain, d
}

func TestLoadPromotesV1Volume(t *testing.T) {
	contentChain, refChain, metaChain, digest := buildV1Chains(t)

	disk := sectorio.NewMemDisk(1)
	counters := VolumeCounters{CurrentView: 2, NextView: 3, Creation: 10, ContentBytes: 2, RefCount: 1, ViewCount: 2}
	require.NoError(t, Save(disk, 0, counters, contentChain, refChain, metaChain))

	// Rewrite the superblock as version 1: same counters and layout,
	// branch fields absent.
	buf := make([]byte, wire.SectorSize)
	require.NoError(t, disk.ReadSectors(0, 1, buf))
	sb, err := wire.UnmarshalSuperblock(buf)
	require.NoError(t, err)
	sb.Version = wire.SuperblockV1
	require.NoError(t, disk.WriteSectors(0, 1, sb.Marshal()))

	loaded, err := Load(disk, 0, region.DefaultPageSize, testClock(), nil)
	require.NoError(t, err)

	assert.EqualValues(t, 2, loaded.DAG.CurrentView())
	assert.EqualValues(t, dag.MainBranchID, loaded.DAG.CurrentBranch())

	// main was synthesized with its head at the saved view
	main, ok := loaded.DAG.Branch(dag.MainBranchID)
	require.True(t, ok)
	assert.EqualValues(t, 2, main.HeadView)
	assert.Equal(t, "main", main.Name)

	// v1 views were promoted onto main
	tip, ok := loaded.DAG.View(2)
	require.True(t, ok)
	assert.EqualValues(t, dag.MainBranchID, tip.BranchID)

	e, err := loaded.Refs.ResolveEntry("/a")
	require.NoError(t, err)
	assert.Equal(t, digest, e.Digest)

	got, err := loaded.Content.Read(digest)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)

	assert.Equal(t, counters.CurrentView, loaded.Counters.CurrentView)
	assert.Equal(t, counters.ContentBytes, loaded.Counters.ContentBytes)
}

func TestLoadRejectsChecksumMismatch(t *testing.T) {
	contentChain, refChain, metaChain, _ := buildV1Chains(t)

	disk := sectorio.NewMemDisk(1)
	counters := VolumeCounters{CurrentView: 2, NextView: 3, Creation: 10}
	require.NoError(t, Save(disk, 0, counters, contentChain, refChain, metaChain))

	// Flip one byte inside the content region.
	buf := make([]byte, wire.SectorSize)
	require.NoError(t, disk.ReadSectors(1, 1, buf))
	buf[10] ^= 0xFF
	require.NoError(t, disk.WriteSectors(1, 1, buf))

	_, err := Load(disk, 0, region.DefaultPageSize, testClock(), nil)
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindCorrupt, k)
}

func TestLoadRejectsBadSuperblock(t *testing.T) {
	disk := sectorio.NewMemDisk(4)
	_, err := Load(disk, 0, region.DefaultPageSize, testClock(), nil)
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindCorrupt, k)
}
