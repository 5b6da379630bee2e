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

package geologic

import (
	"encoding/binary"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/geomath"
	"github.com/erigontech/geologic/internal/sectorio"
	"github.com/erigontech/geologic/internal/wire"
)

// ImportFile reads a whole file's bytes directly from raw sectors on disk
// and binds path to them through FileWrite, so the bytes go through the
// content store's usual dedup/compression path, mirroring what a host
// would do moving a file in from outside the volume.
// The sector layout is a single little-endian uint64 length prefix
// followed by the raw bytes, padded to a sector boundary.
func (v *Volume) ImportFile(disk sectorio.Disk, startSector uint64, path string, perm wire.Perm, owner uint64) error {
	var head [wire.SectorSize]byte
	if err := disk.ReadSectors(startSector, 1, head[:]); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "read import header sector")
	}
	size := binary.LittleEndian.Uint64(head[:8])
	total, overflow := geomath.SafeAdd(wire.SectorSize, size)
	if overflow {
		return geoerr.New(geoerr.KindCorrupt, "import length prefix overflows")
	}
	rounded, overflow := geomath.SafeAdd(total, wire.SectorSize-1)
	if overflow {
		return geoerr.New(geoerr.KindCorrupt, "import length prefix overflows")
	}
	sectors := rounded / wire.SectorSize
	bufLen, overflow := geomath.SafeMul(sectors, wire.SectorSize)
	if overflow {
		return geoerr.New(geoerr.KindCorrupt, "import length prefix overflows")
	}
	buf := make([]byte, bufLen)
	if err := disk.ReadSectors(startSector, sectors, buf); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "read import body sectors")
	}
	data := buf[wire.SectorSize : wire.SectorSize+size]
	return v.FileWrite(path, data, perm, owner)
}

// ExportFile writes path's current content out to raw sectors on disk,
// length-prefixed and sector-padded the same way ImportFile expects it
// back.
func (v *Volume) ExportFile(disk sectorio.Disk, startSector uint64, path string) (uint64, error) {
	data, err := v.FileRead(path)
	if err != nil {
		return 0, err
	}
	total := wire.SectorSize + uint64(len(data))
	sectors := (total + wire.SectorSize - 1) / wire.SectorSize
	buf := make([]byte, sectors*wire.SectorSize)
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(data)))
	copy(buf[wire.SectorSize:], data)
	if err := disk.WriteSectors(startSector, sectors, buf); err != nil {
		return 0, geoerr.Wrap(geoerr.KindIO, err, "write export sectors")
	}
	if err := disk.Flush(); err != nil {
		return 0, geoerr.Wrap(geoerr.KindIO, err, "flush export")
	}
	return sectors, nil
}
