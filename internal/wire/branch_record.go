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

// BranchRecordSize covers magic, flags, id, base_view, head_view,
// creation, and the fixed name buffer.
const BranchRecordSize = 4 + 4 + 8 + 8 + 8 + 8 + NameBufferSize

// BranchRecord is the decoded form of a branch record. Multiple records
// may exist per id; the latest wins.
type BranchRecord struct {
	Flags    uint32
	ID       uint64
	BaseView uint64
	HeadView uint64
	Creation uint64
	Name     string
}

func (b *BranchRecord) Marshal() []byte {
	buf := make([]byte, BranchRecordSize)
	copy(buf[0:4], MagicBranch)
	binary.LittleEndian.PutUint32(buf[4:8], b.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], b.ID)
	binary.LittleEndian.PutUint64(buf[16:24], b.BaseView)
	binary.LittleEndian.PutUint64(buf[24:32], b.HeadView)
	binary.LittleEndian.PutUint64(buf[32:40], b.Creation)
	copy(buf[40:40+NameBufferSize], b.Name)
	return buf
}

func UnmarshalBranchRecord(buf []byte) (*BranchRecord, error) {
	if len(buf) < BranchRecordSize {
		return nil, geoerr.New(geoerr.KindCorrupt, "truncated branch record")
	}
	if string(buf[0:4]) != MagicBranch {
		return nil, geoerr.New(geoerr.KindCorrupt, "bad branch magic")
	}
	r := &BranchRecord{
		Flags:    binary.LittleEndian.Uint32(buf[4:8]),
		ID:       binary.LittleEndian.Uint64(buf[8:16]),
		BaseView: binary.LittleEndian.Uint64(buf[16:24]),
		HeadView: binary.LittleEndian.Uint64(buf[24:32]),
		Creation: binary.LittleEndian.Uint64(buf[32:40]),
	}
	r.Name = trimNulPadded(buf[40 : 40+NameBufferSize])
	return r, nil
}
