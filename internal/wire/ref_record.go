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

// RefHeaderSize is the fixed header preceding the 512-byte path buffer.
const RefHeaderSize = 96

// RefRecordSize is the full on-disk size of a ref record.
const RefRecordSize = RefHeaderSize + PathBufferSize

// RefRecord is the decoded form of one ref record.
type RefRecord struct {
	Flags      uint32
	PathHash   uint64
	Digest     [DigestSize]byte
	ViewID     uint64
	Creation   uint64
	PathLen    uint32
	FileType   FileType
	Perm       Perm
	OwnerID    uint64
	Path       string
}

func (r *RefRecord) Hidden() bool { return r.Flags&RefFlagHidden != 0 }

func (r *RefRecord) Marshal() []byte {
	buf := make([]byte, RefRecordSize)
	copy(buf[0:4], MagicRef)
	binary.LittleEndian.PutUint32(buf[4:8], r.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], r.PathHash)
	copy(buf[16:48], r.Digest[:])
	binary.LittleEndian.PutUint64(buf[48:56], r.ViewID)
	binary.LittleEndian.PutUint64(buf[56:64], r.Creation)
	binary.LittleEndian.PutUint32(buf[64:68], uint32(len(r.Path)))
	binary.LittleEndian.PutUint32(buf[68:72], uint32(r.FileType))
	binary.LittleEndian.PutUint32(buf[72:76], uint32(r.Perm))
	binary.LittleEndian.PutUint64(buf[76:84], r.OwnerID)
	// buf[84:96] reserved padding, left zero.
	pathBuf := buf[RefHeaderSize:]
	n := copy(pathBuf, r.Path)
	_ = n
	return buf
}

func UnmarshalRefRecord(buf []byte) (*RefRecord, error) {
	if len(buf) < RefRecordSize {
		return nil, geoerr.New(geoerr.KindCorrupt, "truncated ref record")
	}
	if string(buf[0:4]) != MagicRef {
		return nil, geoerr.New(geoerr.KindCorrupt, "bad ref magic")
	}
	r := &RefRecord{
		Flags:    binary.LittleEndian.Uint32(buf[4:8]),
		PathHash: binary.LittleEndian.Uint64(buf[8:16]),
		ViewID:   binary.LittleEndian.Uint64(buf[48:56]),
		Creation: binary.LittleEndian.Uint64(buf[56:64]),
		PathLen:  binary.LittleEndian.Uint32(buf[64:68]),
		FileType: FileType(binary.LittleEndian.Uint32(buf[68:72])),
		Perm:     Perm(binary.LittleEndian.Uint32(buf[72:76])),
		OwnerID:  binary.LittleEndian.Uint64(buf[76:84]),
	}
	copy(r.Digest[:], buf[16:48])
	if int(r.PathLen) > PathBufferSize {
		return nil, geoerr.New(geoerr.KindCorrupt, "ref path length exceeds buffer")
	}
	pathBuf := buf[RefHeaderSize:RefRecordSize]
	r.Path = string(pathBuf[:r.PathLen])
	return r, nil
}
