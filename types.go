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
	"github.com/erigontech/geologic/internal/access"
	"github.com/erigontech/geologic/internal/content"
	"github.com/erigontech/geologic/internal/merge"
	"github.com/erigontech/geologic/internal/sectorio"
	"github.com/erigontech/geologic/internal/wire"
)

// The engine's working types live in internal packages; these aliases are
// the public spellings so callers outside the module never import
// internal paths.

// Digest is the 32-byte content identity.
type Digest = content.Digest

// Perm is the ref permission bitmask.
type Perm = wire.Perm

const (
	PermRead    = wire.PermRead
	PermWrite   = wire.PermWrite
	PermExecute = wire.PermExecute
)

// FileType enumerates ref file types.
type FileType = wire.FileType

const (
	FileRegular   = wire.FileRegular
	FileDirectory = wire.FileDirectory
	FileSymlink   = wire.FileSymlink
)

// AccessContext is the ambient caller identity + capability bitmask.
type AccessContext = access.Context

// Capability is a reserved capability bit.
type Capability = access.Capability

const (
	CapKernel  = access.CapKernel
	CapFSAdmin = access.CapFSAdmin
)

// Quota is one per-scope limits record; Usage is the snapshot it is
// checked against.
type (
	Quota = access.Quota
	Usage = access.Usage
)

// VolumeScope is the quota scope sentinel meaning "volume-wide".
const VolumeScope = wire.VolumeScope

// MergeResult reports a merge outcome.
type MergeResult = merge.Result

// Disk is the host sector interface volumes save to and load from.
// SectorSize is fixed at 512.
type Disk = sectorio.Disk

const SectorSize = wire.SectorSize

// MemDisk and FileDisk are the two provided Disk implementations.
type (
	MemDisk  = sectorio.MemDisk
	FileDisk = sectorio.FileDisk
)

// NewMemDisk allocates an in-memory disk with room for the given number
// of sectors; it grows on write.
func NewMemDisk(sectors uint64) *MemDisk { return sectorio.NewMemDisk(sectors) }

// OpenFileDisk opens (creating if needed) a memory-mapped file-backed
// disk of at least minSectors sectors.
func OpenFileDisk(path string, minSectors uint64) (*FileDisk, error) {
	return sectorio.OpenFileDisk(path, minSectors)
}

// ZeroDigest is the all-zero digest hide markers carry.
var ZeroDigest = content.ZeroDigest
