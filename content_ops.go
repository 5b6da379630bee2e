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
	"github.com/erigontech/geologic/internal/content"
)

// ContentStore stores raw bytes and returns their digest, deduplicating
// against any existing blob.
func (v *Volume) ContentStore(data []byte) (content.Digest, error) {
	return v.content.Store(data)
}

// ContentRead returns the uncompressed bytes for digest d.
func (v *Volume) ContentRead(d content.Digest) ([]byte, error) {
	v.lookupCount++
	return v.content.Read(d)
}

// ContentSize returns the uncompressed size of digest d without reading
// its bytes.
func (v *Volume) ContentSize(d content.Digest) (uint64, error) {
	return v.content.Size(d)
}
