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

// ViewV1Size / ViewV2Size are the fixed on-disk sizes of view records.
// v2 adds an 8-byte branch id.
const (
	ViewV1Size = 4 + 4 + 8 + 8 + 8 + LabelBufferSize
	ViewV2Size = ViewV1Size + 8
)

// ViewRecord is the decoded form of a view record, v1 or v2.
type ViewRecord struct {
	V2       bool
	Flags    uint32
	ID       uint64
	Parent   uint64
	Creation uint64
	Label    string
	BranchID uint64
}

func (v *ViewRecord) Marshal() []byte {
	size := ViewV1Size
	magic := MagicViewV1
	if v.V2 {
		size = ViewV2Size
		magic = MagicViewV2
	}
	buf := make([]byte, size)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], v.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], v.ID)
	binary.LittleEndian.PutUint64(buf[16:24], v.Parent)
	binary.LittleEndian.PutUint64(buf[24:32], v.Creation)
	copy(buf[32:32+LabelBufferSize], v.Label)
	if v.V2 {
		binary.LittleEndian.PutUint64(buf[32+LabelBufferSize:40+LabelBufferSize], v.BranchID)
	}
	return buf
}

func UnmarshalViewRecord(buf []byte) (*ViewRecord, error) {
	if len(buf) < 4 {
		return nil, geoerr.New(geoerr.KindCorrupt, "truncated view record")
	}
	magic := string(buf[0:4])
	v2 := magic == MagicViewV2
	if !v2 && magic != MagicViewV1 {
		return nil, geoerr.New(geoerr.KindCorrupt, "bad view magic")
	}
	needed := ViewV1Size
	if v2 {
		needed = ViewV2Size
	}
	if len(buf) < needed {
		return nil, geoerr.New(geoerr.KindCorrupt, "truncated view record body")
	}
	r := &ViewRecord{
		V2:       v2,
		Flags:    binary.LittleEndian.Uint32(buf[4:8]),
		ID:       binary.LittleEndian.Uint64(buf[8:16]),
		Parent:   binary.LittleEndian.Uint64(buf[16:24]),
		Creation: binary.LittleEndian.Uint64(buf[24:32]),
	}
	r.Label = trimNulPadded(buf[32 : 32+LabelBufferSize])
	if v2 {
		r.BranchID = binary.LittleEndian.Uint64(buf[32+LabelBufferSize : 40+LabelBufferSize])
	}
	return r, nil
}

func trimNulPadded(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
