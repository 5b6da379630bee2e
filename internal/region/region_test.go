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

package region

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/geologic/geoerr"
)

func TestAppendReadBack(t *testing.T) {
	c := New("test", 64, nil)
	require.EqualValues(t, 0, c.Used())

	off1, err := c.Append([]byte("hello"))
	require.NoError(t, err)
	require.EqualValues(t, 0, off1)
	require.EqualValues(t, 5, c.Used())

	off2, err := c.Append([]byte("world!"))
	require.NoError(t, err)
	require.EqualValues(t, 5, off2)
	require.EqualValues(t, 11, c.Used())

	got, err := c.ReadAt(off1, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got, err = c.ReadAt(off2, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("world!"), got)
}

func TestGrowLinksNewChunk(t *testing.T) {
	// page size 64, min chunk = 16 pages = 1024 bytes
	c := New("test", 64, nil)

	big := bytes.Repeat([]byte{0xAB}, 2000)
	off, err := c.Append(big)
	require.NoError(t, err)
	require.EqualValues(t, 0, off)
	require.Equal(t, 1, c.ChunkCount())
	require.GreaterOrEqual(t, c.Capacity(), uint64(2000))

	// The tail has 48 bytes of room left (2048 cap); this append does
	// not fit and must link a second chunk.
	off2, err := c.Append(bytes.Repeat([]byte{0xCD}, 100))
	require.NoError(t, err)
	require.EqualValues(t, 2000, off2)
	require.Equal(t, 2, c.ChunkCount())

	got, err := c.ReadAt(off2, 100)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xCD}, 100), got)
}

func TestMinChunkPages(t *testing.T) {
	c := New("test", 64, nil)
	_, err := c.Append([]byte{1})
	require.NoError(t, err)
	require.EqualValues(t, MinChunkPages*64, c.Capacity())
}

func TestAppendErrors(t *testing.T) {
	c := New("test", 64, nil)
	_, err := c.Append(nil)
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindInvalid, k)
}

func TestReadAtOutOfBounds(t *testing.T) {
	c := New("test", 64, nil)
	_, err := c.Append([]byte("abc"))
	require.NoError(t, err)

	_, err = c.ReadAt(1000, 4)
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindCorrupt, k)

	_, err = c.ReadAt(0, 4) // past used bytes of the tail chunk
	k, ok = geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindCorrupt, k)
}

func TestLoadFromBytes(t *testing.T) {
	src := New("src", 64, nil)
	off, err := src.Append([]byte("persisted"))
	require.NoError(t, err)

	var flat []byte
	src.ForEachChunk(func(_ uint64, data []byte) { flat = append(flat, data...) })

	loaded := LoadFromBytes("dst", 64, flat, src.Used(), nil)
	require.Equal(t, src.Used(), loaded.Used())
	got, err := loaded.ReadAt(off, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)

	// The loaded chain keeps accepting appends after its restored bytes.
	off2, err := loaded.Append([]byte("more"))
	require.NoError(t, err)
	require.EqualValues(t, 9, off2)
}

func TestUsedPageCount(t *testing.T) {
	c := New("test", 64, nil)
	_, err := c.Append(bytes.Repeat([]byte{1}, 130)) // spans 3 pages
	require.NoError(t, err)
	assert.EqualValues(t, 3, c.UsedPageCount())
}

func TestUsedIsMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New("prop", 64, nil)
		prev := uint64(0)
		n := rapid.IntRange(1, 40).Draw(t, "appends")
		for i := 0; i < n; i++ {
			data := rapid.SliceOfN(rapid.Byte(), 1, 300).Draw(t, "data")
			off, err := c.Append(data)
			if err != nil {
				t.Fatalf("append: %v", err)
			}
			if off != prev {
				t.Fatalf("offset %d, want %d", off, prev)
			}
			prev += uint64(len(data))
			if c.Used() != prev {
				t.Fatalf("used %d, want %d", c.Used(), prev)
			}
		}
	})
}
