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

// Package wire defines the on-disk record layouts: the superblock, and
// the five region record kinds (content, ref, view,
// branch, quota), each keyed by a four-byte magic so a single load pass
// can dispatch on the raw bytes alone.
//
// All integers are little-endian, natural width. Record sizes are fixed
// per magic, except that a content record's fixed header is followed by a
// payload of the length it states, so regions can be scanned without a
// table of contents.
package wire

const SectorSize = 512

// Magics identify record kinds during index rebuild.
const (
	MagicContent    = "CONT"
	MagicRef        = "GREF"
	MagicViewV1     = "VIEW"
	MagicViewV2     = "VIW2"
	MagicBranch     = "BRCH"
	MagicQuota      = "QOTA"
	MagicSuperblock = "GEOV"
)

// Superblock versions understood by Load.
const (
	SuperblockV1 = 1
	SuperblockV2 = 2
)

// Compression codec tags stored in a content record's flags byte. Two
// codecs are supported, selected per-blob by
// whichever shrinks the payload under the 90% threshold.
const (
	CompressNone   byte = 0
	CompressS2     byte = 1
	CompressSnappy byte = 2
)

// Content record flag bits.
const (
	ContentFlagCompressedMask = 0x0F // low nibble carries the codec tag
)

// Ref record flag bits.
const (
	RefFlagHidden = 1 << 0
)

// FileType enumerates the ref file types.
type FileType uint32

const (
	FileRegular FileType = iota
	FileDirectory
	FileSymlink
)

// Perm is the ref permission bitmask: read, write, execute.
type Perm uint32

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExecute
)

const (
	PathBufferSize  = 512
	LabelBufferSize = 64
	NameBufferSize  = 64
	DigestSize      = 32
)

// DirectorySentinel is the fixed content bytes a directory-marker ref
// points at.
const DirectorySentinel = "GEOLOGIC_DIRECTORY_MARKER_V1"
