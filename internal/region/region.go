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

// Package region implements the growable, page-backed, append-only byte
// arena: a singly-linked list of chunks, each written to at its tail,
// never shrunk, never freed except on teardown.
package region

import (
	"github.com/google/btree"
	roaring "github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/geomath"
)

// MinChunkPages is the minimum number of pages a newly allocated chunk
// carries, even for a small write.
const MinChunkPages = 16

// DefaultPageSize is the page granularity chunks are sized in when no
// page size is given; it is independent of the 512-byte disk sector size.
const DefaultPageSize = 4096

// chunk is one page-aligned arena segment.
type chunk struct {
	base     uint64 // global offset of this chunk's first byte
	capacity uint64
	used     uint64
	bytes    []byte
}

// offsetEntry indexes a chunk by its base offset in a btree so ReadAt can
// locate the owning chunk in O(log n) instead of a linear scan across the
// chain.
type offsetEntry struct {
	base  uint64
	chunk *chunk
}

func (a offsetEntry) Less(b btree.Item) bool { return a.base < b.(offsetEntry).base }

// Chain is a growable append-only region: one of Content, Refs, or
// Views/Branches/Quotas.
type Chain struct {
	name     string
	pageSize int
	chunks   []*chunk
	index    *btree.BTree
	total    uint64 // total bytes appended so far (== tail.base+tail.used)
	pages    *roaring.Bitmap
	log      *zap.SugaredLogger
}

// New creates an empty chain. pageSize defaults to DefaultPageSize if 0.
func New(name string, pageSize int, log *zap.SugaredLogger) *Chain {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Chain{
		name:     name,
		pageSize: pageSize,
		index:    btree.New(16),
		pages:    roaring.New(),
		log:      log,
	}
}

// Used returns the total bytes appended across all chunks; it never
// decreases.
func (c *Chain) Used() uint64 { return c.total }

// Capacity returns the total allocated byte capacity across all chunks.
func (c *Chain) Capacity() uint64 {
	var total uint64
	for _, ch := range c.chunks {
		total += ch.capacity
	}
	return total
}

// ChunkCount returns the number of chunks currently linked.
func (c *Chain) ChunkCount() int { return len(c.chunks) }

// Append writes data at the tail's current used offset, allocating a new
// chunk if the tail lacks room. Returns the global offset the data was
// written at. A single append never spans two chunks.
func (c *Chain) Append(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, geoerr.New(geoerr.KindInvalid, "empty append")
	}
	if len(c.chunks) == 0 || !c.fits(c.tail(), len(data)) {
		if err := c.growFor(len(data)); err != nil {
			return 0, err
		}
	}
	t := c.tail()
	off := t.base + t.used
	copy(t.bytes[t.used:t.used+uint64(len(data))], data)
	t.used += uint64(len(data))
	c.total = off + uint64(len(data))
	c.markPagesUsed(off, uint64(len(data)))
	c.log.Debugw("region append", "region", c.name, "offset", off, "len", len(data))
	return off, nil
}

func (c *Chain) tail() *chunk {
	if len(c.chunks) == 0 {
		return nil
	}
	return c.chunks[len(c.chunks)-1]
}

func (c *Chain) fits(t *chunk, n int) bool {
	if t == nil {
		return false
	}
	return t.used+uint64(n) <= t.capacity
}

// growFor links a new chunk sized to hold at least n bytes, at least
// MinChunkPages pages.
func (c *Chain) growFor(n int) error {
	if n < 0 {
		return geoerr.New(geoerr.KindInvalid, "negative append length")
	}
	pages := geomath.MaxInt(MinChunkPages, geomath.CeilDiv(n, c.pageSize))
	capacity := uint64(pages) * uint64(c.pageSize)
	base := c.total
	ch := &chunk{base: base, capacity: capacity, bytes: make([]byte, capacity)}
	c.chunks = append(c.chunks, ch)
	c.index.ReplaceOrInsert(offsetEntry{base: base, chunk: ch})
	c.log.Debugw("region grow", "region", c.name, "pages", pages, "base", base)
	return nil
}

// ReadAt returns a copy of the n bytes at global offset off.
func (c *Chain) ReadAt(off uint64, n int) ([]byte, error) {
	ch := c.chunkFor(off)
	if ch == nil {
		return nil, geoerr.Newf(geoerr.KindCorrupt, "offset %d not owned by any chunk in region %s", off, c.name)
	}
	local := off - ch.base
	if local+uint64(n) > ch.used {
		return nil, geoerr.Newf(geoerr.KindCorrupt, "read [%d,%d) exceeds chunk bounds in region %s", off, off+uint64(n), c.name)
	}
	out := make([]byte, n)
	copy(out, ch.bytes[local:local+uint64(n)])
	return out, nil
}

// chunkFor finds the chunk owning global offset off via the btree index:
// the entry with the greatest base <= off.
func (c *Chain) chunkFor(off uint64) *chunk {
	var found *chunk
	c.index.DescendLessOrEqual(offsetEntry{base: off}, func(item btree.Item) bool {
		e := item.(offsetEntry)
		if off < e.base+e.chunk.capacity {
			found = e.chunk
		}
		return false
	})
	return found
}

func (c *Chain) markPagesUsed(off, n uint64) {
	if n == 0 {
		return
	}
	first := off / uint64(c.pageSize)
	last := (off + n - 1) / uint64(c.pageSize)
	for p := first; p <= last; p++ {
		c.pages.Add(uint32(p))
	}
}

// UsedPageCount reports the number of distinct pages touched by writes,
// backed by a compressed bitmap rather than a linear scan.
func (c *Chain) UsedPageCount() uint64 { return uint64(c.pages.GetCardinality()) }

// ForEachChunk iterates chunks in chain order, yielding the valid (used)
// bytes of each, used by index rebuild during Load.
func (c *Chain) ForEachChunk(fn func(base uint64, data []byte)) {
	for _, ch := range c.chunks {
		fn(ch.base, ch.bytes[:ch.used])
	}
}

// Reset clears the chain back to empty; nothing short of whole-volume
// teardown does this.
func (c *Chain) Reset() {
	c.chunks = nil
	c.index = btree.New(16)
	c.total = 0
	c.pages = roaring.New()
}

// LoadFromBytes rebuilds the chain's single chunk structure from a
// previously-persisted flat byte slice whose first used bytes are valid;
// the whole slice (which may be sector-padded) becomes the chunk's capacity.
func LoadFromBytes(name string, pageSize int, data []byte, used uint64, log *zap.SugaredLogger) *Chain {
	c := New(name, pageSize, log)
	if len(data) == 0 {
		return c
	}
	ch := &chunk{base: 0, capacity: uint64(len(data)), used: used, bytes: data}
	c.chunks = append(c.chunks, ch)
	c.index.ReplaceOrInsert(offsetEntry{base: 0, chunk: ch})
	c.total = used
	c.markPagesUsed(0, used)
	return c
}
