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

// Package sectorio implements the host sector interface: fixed 512-byte
// sector I/O the persistence layer streams regions through.
//
// Two implementations are provided: MemDisk, an in-memory byte slab used
// by tests and ephemeral volumes, and FileDisk, a real file-backed disk
// that mmaps its backing store so writes land with an explicit
// msync-backed Flush rather than relying on the page cache.
package sectorio

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/wire"
)

// Disk is the host sector interface the engine consumes.
type Disk interface {
	ReadSectors(start, count uint64, buf []byte) error
	WriteSectors(start, count uint64, buf []byte) error
	Flush() error
	SectorCount() uint64
}

// MemDisk is a Disk backed by a growable in-memory byte slice.
type MemDisk struct {
	bytes []byte
}

// NewMemDisk allocates a MemDisk with room for the given number of sectors.
func NewMemDisk(sectors uint64) *MemDisk {
	return &MemDisk{bytes: make([]byte, sectors*wire.SectorSize)}
}

func (d *MemDisk) grow(toSectors uint64) {
	need := toSectors * wire.SectorSize
	if uint64(len(d.bytes)) >= need {
		return
	}
	grown := make([]byte, need)
	copy(grown, d.bytes)
	d.bytes = grown
}

func (d *MemDisk) SectorCount() uint64 { return uint64(len(d.bytes)) / wire.SectorSize }

func (d *MemDisk) ReadSectors(start, count uint64, buf []byte) error {
	off := start * wire.SectorSize
	n := count * wire.SectorSize
	if off+n > uint64(len(d.bytes)) {
		return geoerr.New(geoerr.KindIO, "read past end of disk")
	}
	if uint64(len(buf)) < n {
		return geoerr.New(geoerr.KindInvalid, "buffer smaller than requested sectors")
	}
	copy(buf, d.bytes[off:off+n])
	return nil
}

func (d *MemDisk) WriteSectors(start, count uint64, buf []byte) error {
	off := start * wire.SectorSize
	n := count * wire.SectorSize
	d.grow(start + count)
	if uint64(len(buf)) < n {
		return geoerr.New(geoerr.KindInvalid, "buffer smaller than requested sectors")
	}
	copy(d.bytes[off:off+n], buf[:n])
	return nil
}

func (d *MemDisk) Flush() error { return nil }

// FileDisk is a Disk backed by a memory-mapped file.
type FileDisk struct {
	f    *os.File
	mm   mmap.MMap
	path string
}

// OpenFileDisk opens (creating if needed) a file-backed disk of at least
// minSectors sectors, memory-mapped for read/write access.
func OpenFileDisk(path string, minSectors uint64) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, geoerr.Wrap(geoerr.KindIO, err, "open disk file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, geoerr.Wrap(geoerr.KindIO, err, "stat disk file")
	}
	needed := int64(minSectors * wire.SectorSize)
	if info.Size() < needed {
		if err := f.Truncate(needed); err != nil {
			f.Close()
			return nil, geoerr.Wrap(geoerr.KindIO, err, "grow disk file")
		}
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, geoerr.Wrap(geoerr.KindIO, err, "mmap disk file")
	}
	return &FileDisk{f: f, mm: m, path: path}, nil
}

func (d *FileDisk) SectorCount() uint64 { return uint64(len(d.mm)) / wire.SectorSize }

func (d *FileDisk) ReadSectors(start, count uint64, buf []byte) error {
	off := start * wire.SectorSize
	n := count * wire.SectorSize
	if off+n > uint64(len(d.mm)) {
		return geoerr.New(geoerr.KindIO, "read past end of disk")
	}
	copy(buf, d.mm[off:off+n])
	return nil
}

func (d *FileDisk) WriteSectors(start, count uint64, buf []byte) error {
	off := start * wire.SectorSize
	n := count * wire.SectorSize
	if off+n > uint64(len(d.mm)) {
		if err := d.grow(off + n); err != nil {
			return err
		}
	}
	copy(d.mm[off:off+n], buf[:n])
	return nil
}

func (d *FileDisk) grow(minBytes uint64) error {
	if err := d.mm.Unmap(); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "unmap before grow")
	}
	if err := d.f.Truncate(int64(minBytes)); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "truncate disk file")
	}
	m, err := mmap.Map(d.f, mmap.RDWR, 0)
	if err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "remap disk file")
	}
	d.mm = m
	return nil
}

func (d *FileDisk) Flush() error {
	if err := d.mm.Flush(); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "msync disk file")
	}
	return nil
}

func (d *FileDisk) Close() error {
	if err := d.mm.Unmap(); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "unmap disk file")
	}
	return d.f.Close()
}
