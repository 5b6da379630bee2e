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

// Package content implements the deduplicating content-addressed blob
// store: digest keyed, optionally compressed, with a 256-bucket chained
// in-memory index over the first digest byte.
package content

import (
	"crypto/sha256"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"go.uber.org/zap"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/region"
	"github.com/erigontech/geologic/internal/wire"
)

// Digest is a fixed 32-byte content identity.
type Digest [wire.DigestSize]byte

// ZeroDigest is the all-zero digest used by hide markers.
var ZeroDigest Digest

// CompressMinSize is the minimum blob size eligible for compression.
const CompressMinSize = 64

// CompressRatioNumerator/Denominator encode the "compressed <= 90% of
// original" threshold.
const (
	CompressRatioNumerator   = 90
	CompressRatioDenominator = 100
)

type indexEntry struct {
	digest     Digest
	offset     uint64
	storedSize uint64
	uncompSize uint64
	codec      byte
}

// Store is a single content store over a region.Chain.
type Store struct {
	chain   *region.Chain
	buckets [256][]*indexEntry

	dedupHits uint64
	log       *zap.SugaredLogger
}

// New creates a content store over the given backing region chain.
func New(chain *region.Chain, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{chain: chain, log: log}
}

// DigestOf computes the content identity of data. Exposed so callers can pre-check dedup/quota before
// committing bytes to the region.
func DigestOf(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

func bucketOf(d Digest) byte { return d[0] }

func (s *Store) lookup(d Digest) *indexEntry {
	for _, e := range s.buckets[bucketOf(d)] {
		if e.digest == d {
			return e
		}
	}
	return nil
}

// Store computes the digest of data; if already present, increments the
// dedup counter and returns the existing digest. Otherwise it appends a
// content record (optionally compressed) and indexes it.
func (s *Store) Store(data []byte) (Digest, error) {
	d := DigestOf(data)
	if e := s.lookup(d); e != nil {
		s.dedupHits++
		s.log.Debugw("content dedup hit", "digest", d)
		return d, nil
	}

	codec := wire.CompressNone
	stored := data
	if len(data) >= CompressMinSize {
		if c, ok := tryCompress(s2.Encode(nil, data), data); ok {
			codec, stored = wire.CompressS2, c
		} else if c, ok := tryCompress(snappy.Encode(nil, data), data); ok {
			codec, stored = wire.CompressSnappy, c
		}
	}

	hdr := &wire.ContentHeader{Flags: uint32(codec), StoredSize: uint64(len(stored)), Digest: [32]byte(d)}
	if codec != wire.CompressNone {
		hdr.SetUncompressedSize(uint64(len(data)))
	}
	buf := append(hdr.Marshal(), stored...)
	off, err := s.chain.Append(buf)
	if err != nil {
		return Digest{}, geoerr.Wrap(geoerr.KindFull, err, "append content record")
	}

	e := &indexEntry{digest: d, offset: off, storedSize: uint64(len(stored)), uncompSize: uint64(len(data)), codec: codec}
	s.buckets[bucketOf(d)] = append(s.buckets[bucketOf(d)], e)
	s.log.Debugw("content store", "digest", d, "size", len(data), "codec", codec)
	return d, nil
}

// tryCompress reports whether the already-compressed bytes shrink the
// payload by at least 10%.
func tryCompress(compressed, original []byte) ([]byte, bool) {
	if len(compressed)*CompressRatioDenominator <= len(original)*CompressRatioNumerator {
		return compressed, true
	}
	return nil, false
}

// Read returns the uncompressed bytes for digest d.
func (s *Store) Read(d Digest) ([]byte, error) {
	e := s.lookup(d)
	if e == nil {
		return nil, geoerr.New(geoerr.KindNotFound, "digest not found")
	}
	raw, err := s.chain.ReadAt(e.offset, wire.ContentHeaderSize+int(e.storedSize))
	if err != nil {
		return nil, geoerr.Wrap(geoerr.KindCorrupt, err, "read content record")
	}
	hdr, err := wire.UnmarshalContentHeader(raw[:wire.ContentHeaderSize])
	if err != nil {
		return nil, err
	}
	if hdr.Digest != [32]byte(d) {
		return nil, geoerr.New(geoerr.KindCorrupt, "content header digest mismatch")
	}
	stored := raw[wire.ContentHeaderSize:]
	switch hdr.Codec() {
	case wire.CompressNone:
		out := make([]byte, len(stored))
		copy(out, stored)
		return out, nil
	case wire.CompressS2:
		out, err := s2.Decode(nil, stored)
		if err != nil {
			return nil, geoerr.Wrap(geoerr.KindCorrupt, err, "s2 decompress")
		}
		return out, nil
	case wire.CompressSnappy:
		out, err := snappy.Decode(nil, stored)
		if err != nil {
			return nil, geoerr.Wrap(geoerr.KindCorrupt, err, "snappy decompress")
		}
		return out, nil
	default:
		return nil, geoerr.Newf(geoerr.KindCorrupt, "unknown codec tag %d", hdr.Codec())
	}
}

// Size returns the uncompressed byte count of digest d without reading
// its bytes.
func (s *Store) Size(d Digest) (uint64, error) {
	e := s.lookup(d)
	if e == nil {
		return 0, geoerr.New(geoerr.KindNotFound, "digest not found")
	}
	return e.uncompSize, nil
}

// Has reports whether digest d is present in the store.
func (s *Store) Has(d Digest) bool { return s.lookup(d) != nil }

// TotalUncompressedBytes sums the uncompressed size of every unique
// digest currently indexed. The sum grows only on the first store of a
// given digest.
func (s *Store) TotalUncompressedBytes() uint64 {
	var total uint64
	for _, bucket := range s.buckets {
		for _, e := range bucket {
			total += e.uncompSize
		}
	}
	return total
}

// DedupHits returns the number of stores that matched an existing digest.
func (s *Store) DedupHits() uint64 { return s.dedupHits }

// RestoreDedupHits reinstates the persisted dedup counter after a load;
// the counter lives in the superblock, not in any content record.
func (s *Store) RestoreDedupHits(n uint64) { s.dedupHits = n }

// RebuildIndex re-derives the in-memory digest index by scanning raw
// content records from the backing region. Used by persist.Load after region bytes are restored.
func (s *Store) RebuildIndex() error {
	var rebuildErr error
	s.chain.ForEachChunk(func(base uint64, data []byte) {
		if rebuildErr != nil {
			return
		}
		off := uint64(0)
		for off+wire.ContentHeaderSize <= uint64(len(data)) {
			hdr, err := wire.UnmarshalContentHeader(data[off : off+wire.ContentHeaderSize])
			if err != nil {
				rebuildErr = err
				return
			}
			recLen := wire.ContentHeaderSize + hdr.StoredSize
			if off+recLen > uint64(len(data)) {
				rebuildErr = geoerr.New(geoerr.KindCorrupt, "truncated content record during rebuild")
				return
			}
			uncomp := hdr.StoredSize
			if hdr.Codec() != wire.CompressNone {
				uncomp = hdr.UncompressedSize()
			}
			d := Digest(hdr.Digest)
			e := &indexEntry{digest: d, offset: base + off, storedSize: hdr.StoredSize, uncompSize: uncomp, codec: hdr.Codec()}
			s.buckets[bucketOf(d)] = append(s.buckets[bucketOf(d)], e)
			off += recLen
		}
	})
	return rebuildErr
}
