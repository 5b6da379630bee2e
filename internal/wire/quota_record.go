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

// QuotaRecordSize covers magic, flags, scope, the three limits, and the
// creation stamp.
const QuotaRecordSize = 4 + 4 + 8 + 8*3 + 8

// VolumeScope is the sentinel scope id meaning "volume-wide".
const VolumeScope = ^uint64(0)

// QuotaRecord is the decoded form of a quota record. Last-writer-wins
// per scope.
type QuotaRecord struct {
	Flags          uint32
	Scope          uint64
	MaxContentBytes uint64
	MaxRefCount     uint64
	MaxViewCount    uint64
	Creation        uint64
}

func (q *QuotaRecord) Marshal() []byte {
	buf := make([]byte, QuotaRecordSize)
	copy(buf[0:4], MagicQuota)
	binary.LittleEndian.PutUint32(buf[4:8], q.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], q.Scope)
	binary.LittleEndian.PutUint64(buf[16:24], q.MaxContentBytes)
	binary.LittleEndian.PutUint64(buf[24:32], q.MaxRefCount)
	binary.LittleEndian.PutUint64(buf[32:40], q.MaxViewCount)
	binary.LittleEndian.PutUint64(buf[40:48], q.Creation)
	return buf
}

func UnmarshalQuotaRecord(buf []byte) (*QuotaRecord, error) {
	if len(buf) < QuotaRecordSize {
		return nil, geoerr.New(geoerr.KindCorrupt, "truncated quota record")
	}
	if string(buf[0:4]) != MagicQuota {
		return nil, geoerr.New(geoerr.KindCorrupt, "bad quota magic")
	}
	return &QuotaRecord{
		Flags:           binary.LittleEndian.Uint32(buf[4:8]),
		Scope:           binary.LittleEndian.Uint64(buf[8:16]),
		MaxContentBytes: binary.LittleEndian.Uint64(buf[16:24]),
		MaxRefCount:     binary.LittleEndian.Uint64(buf[24:32]),
		MaxViewCount:    binary.LittleEndian.Uint64(buf[32:40]),
		Creation:        binary.LittleEndian.Uint64(buf[40:48]),
	}, nil
}
