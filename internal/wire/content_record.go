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

// ContentHeaderSize is the fixed 64-byte header preceding every stored
// blob's bytes.
const ContentHeaderSize = 64

// ContentHeader is the decoded form of a content record's header. Reserved
// holds the uncompressed size in its first 8 bytes when Flags indicates a
// codec other than CompressNone.
type ContentHeader struct {
	Flags      uint32
	StoredSize uint64
	Digest     [DigestSize]byte
	Reserved   [16]byte
}

func (h *ContentHeader) Codec() byte {
	return byte(h.Flags & ContentFlagCompressedMask)
}

func (h *ContentHeader) UncompressedSize() uint64 {
	return binary.LittleEndian.Uint64(h.Reserved[:8])
}

func (h *ContentHeader) SetUncompressedSize(n uint64) {
	binary.LittleEndian.PutUint64(h.Reserved[:8], n)
}

// Marshal encodes the header into a fresh ContentHeaderSize-byte buffer.
func (h *ContentHeader) Marshal() []byte {
	buf := make([]byte, ContentHeaderSize)
	copy(buf[0:4], MagicContent)
	binary.LittleEndian.PutUint32(buf[4:8], h.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], h.StoredSize)
	copy(buf[16:48], h.Digest[:])
	copy(buf[48:64], h.Reserved[:])
	return buf
}

// UnmarshalContentHeader decodes and validates a content record header.
func UnmarshalContentHeader(buf []byte) (*ContentHeader, error) {
	if len(buf) < ContentHeaderSize {
		return nil, geoerr.New(geoerr.KindCorrupt, "truncated content header")
	}
	if string(buf[0:4]) != MagicContent {
		return nil, geoerr.New(geoerr.KindCorrupt, "bad content magic")
	}
	h := &ContentHeader{
		Flags:      binary.LittleEndian.Uint32(buf[4:8]),
		StoredSize: binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(h.Digest[:], buf[16:48])
	copy(h.Reserved[:], buf[48:64])
	return h, nil
}
