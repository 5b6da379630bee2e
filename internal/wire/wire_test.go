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

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/geologic/geoerr"
)

func TestSuperblockVersionGate(t *testing.T) {
	sb := &Superblock{Version: SuperblockV2, CurrentView: 7, NextView: 8, CurrentBranch: 2, NextBranchID: 3, BranchCount: 3}
	buf := sb.Marshal()
	require.Len(t, buf, SectorSize)

	got, err := UnmarshalSuperblock(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.CurrentView)
	assert.EqualValues(t, 2, got.CurrentBranch)
	assert.EqualValues(t, 3, got.NextBranchID)

	// a v1 block simply lacks the branch fields
	sb.Version = SuperblockV1
	got, err = UnmarshalSuperblock(sb.Marshal())
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.CurrentBranch)

	// unknown version is rejected outright
	sb.Version = 3
	_, err = UnmarshalSuperblock(sb.Marshal())
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindCorrupt, k)

	// as is a trashed magic
	bad := (&Superblock{Version: SuperblockV2}).Marshal()
	copy(bad[0:4], "XXXX")
	_, err = UnmarshalSuperblock(bad)
	k, _ = geoerr.KindOf(err)
	assert.Equal(t, geoerr.KindCorrupt, k)
}

func TestRefRecordHiddenFlagAndPath(t *testing.T) {
	r := &RefRecord{
		Flags: RefFlagHidden, PathHash: 0xDEAD, ViewID: 3, Creation: 9,
		FileType: FileSymlink, Perm: PermRead | PermExecute, OwnerID: 12, Path: "/etc/target",
	}
	r.Digest[0] = 0xFE

	buf := r.Marshal()
	require.Len(t, buf, RefRecordSize)

	got, err := UnmarshalRefRecord(buf)
	require.NoError(t, err)
	assert.True(t, got.Hidden())
	assert.Equal(t, "/etc/target", got.Path)
	assert.Equal(t, FileSymlink, got.FileType)
	assert.Equal(t, PermRead|PermExecute, got.Perm)
	assert.EqualValues(t, 0xFE, got.Digest[0])

	copy(buf[0:4], "NOPE")
	_, err = UnmarshalRefRecord(buf)
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindCorrupt, k)
}

func TestViewRecordVersions(t *testing.T) {
	v1 := &ViewRecord{ID: 4, Parent: 2, Creation: 11, Label: "old"}
	require.Len(t, v1.Marshal(), ViewV1Size)

	got, err := UnmarshalViewRecord(v1.Marshal())
	require.NoError(t, err)
	assert.False(t, got.V2)
	assert.Equal(t, "old", got.Label)
	assert.EqualValues(t, 0, got.BranchID)

	v2 := &ViewRecord{V2: true, ID: 5, Parent: 4, Creation: 12, Label: "new", BranchID: 3}
	require.Len(t, v2.Marshal(), ViewV2Size)

	got, err = UnmarshalViewRecord(v2.Marshal())
	require.NoError(t, err)
	assert.True(t, got.V2)
	assert.EqualValues(t, 3, got.BranchID)
}

func TestContentHeaderUncompressedSize(t *testing.T) {
	h := &ContentHeader{Flags: uint32(CompressS2), StoredSize: 100}
	h.SetUncompressedSize(4096)

	got, err := UnmarshalContentHeader(h.Marshal())
	require.NoError(t, err)
	assert.Equal(t, CompressS2, got.Codec())
	assert.EqualValues(t, 4096, got.UncompressedSize())
	assert.EqualValues(t, 100, got.StoredSize)
}

func TestTruncatedRecords(t *testing.T) {
	cases := []struct {
		name string
		run  func() error
	}{
		{"superblock", func() error { _, err := UnmarshalSuperblock(make([]byte, 10)); return err }},
		{"content", func() error { _, err := UnmarshalContentHeader(make([]byte, 10)); return err }},
		{"ref", func() error { _, err := UnmarshalRefRecord(make([]byte, 10)); return err }},
		{"view", func() error { _, err := UnmarshalViewRecord([]byte("VIEW")); return err }},
		{"branch", func() error { _, err := UnmarshalBranchRecord(make([]byte, 10)); return err }},
		{"quota", func() error { _, err := UnmarshalQuotaRecord(make([]byte, 10)); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, ok := geoerr.KindOf(tc.run())
			require.True(t, ok)
			assert.Equal(t, geoerr.KindCorrupt, k)
		})
	}
}
