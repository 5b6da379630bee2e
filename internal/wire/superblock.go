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
	"encoding/binary"

	"github.com/erigontech/geologic/geoerr"
)

// RegionLayout is one (used, start_sector, sector_count) triple.
type RegionLayout struct {
	Used        uint64
	StartSector uint64
	SectorCount uint64
}

// Superblock is the decoded form of the 512-byte volume header.
type Superblock struct {
	Version uint32
	Flags   uint32

	CurrentView uint64
	NextView    uint64
	Creation    uint64
	ContentBytes uint64
	RefCount     uint64
	ViewCount    uint64
	DedupHits    uint64
	LookupCount  uint64

	Content RegionLayout
	Refs    RegionLayout
	Views   RegionLayout

	Checksum [32]byte

	// v2 fields.
	CurrentBranch uint64
	NextBranchID  uint64
	BranchCount   uint64
}

// Marshal encodes the superblock into an exactly-512-byte buffer.
func (s *Superblock) Marshal() []byte {
	buf := make([]byte, SectorSize)
	off := 0
	putStr := func(s string) {
		copy(buf[off:off+8], s)
		off += 8
	}
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], v)
		off += 4
	}
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[off:off+8], v)
		off += 8
	}
	putTriple := func(r RegionLayout) {
		putU64(r.Used)
		putU64(r.StartSector)
		putU64(r.SectorCount)
	}

	putStr(MagicSuperblock)
	putU32(s.Version)
	putU32(s.Flags)
	putU64(s.CurrentView)
	putU64(s.NextView)
	putU64(s.Creation)
	putU64(s.ContentBytes)
	putU64(s.RefCount)
	putU64(s.ViewCount)
	putU64(s.DedupHits)
	putU64(s.LookupCount)
	putTriple(s.Content)
	putTriple(s.Refs)
	putTriple(s.Views)
	copy(buf[off:off+32], s.Checksum[:])
	off += 32
	if s.Version >= SuperblockV2 {
		putU64(s.CurrentBranch)
		putU64(s.NextBranchID)
		putU64(s.BranchCount)
	}
	return buf
}

// UnmarshalSuperblock decodes and validates the magic/version of a
// superblock buffer.
func UnmarshalSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < SectorSize {
		return nil, geoerr.New(geoerr.KindCorrupt, "truncated superblock")
	}
	if string(buf[0:4]) != MagicSuperblock {
		return nil, geoerr.New(geoerr.KindCorrupt, "bad superblock magic")
	}
	off := 8
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		return v
	}
	getU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		return v
	}
	getTriple := func() RegionLayout {
		return RegionLayout{Used: getU64(), StartSector: getU64(), SectorCount: getU64()}
	}

	s := &Superblock{}
	s.Version = getU32()
	if s.Version != SuperblockV1 && s.Version != SuperblockV2 {
		return nil, geoerr.Newf(geoerr.KindCorrupt, "unrecognized superblock version %d", s.Version)
	}
	s.Flags = getU32()
	s.CurrentView = getU64()
	s.NextView = getU64()
	s.Creation = getU64()
	s.ContentBytes = getU64()
	s.RefCount = getU64()
	s.ViewCount = getU64()
	s.DedupHits = getU64()
	s.LookupCount = getU64()
	s.Content = getTriple()
	s.Refs = getTriple()
	s.Views = getTriple()
	copy(s.Checksum[:], buf[off:off+32])
	off += 32
	if s.Version >= SuperblockV2 {
		s.CurrentBranch = getU64()
		s.NextBranchID = getU64()
		s.BranchCount = getU64()
	}
	return s, nil
}
