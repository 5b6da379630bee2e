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
	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/access"
	"github.com/erigontech/geologic/internal/wire"
)

// QuotaSet installs (or overwrites, last-writer-wins) the quota for scope:
// a branch id, or wire.VolumeScope for the whole volume. The record is
// appended to the meta region so Load replays it.
func (v *Volume) QuotaSet(scope uint64, maxContentBytes, maxRefCount, maxViewCount uint64) error {
	q := &access.Quota{
		Scope: scope, MaxContentBytes: maxContentBytes, MaxRefCount: maxRefCount,
		MaxViewCount: maxViewCount, Creation: v.clock(),
	}
	rec := &wire.QuotaRecord{
		Scope: q.Scope, MaxContentBytes: q.MaxContentBytes, MaxRefCount: q.MaxRefCount,
		MaxViewCount: q.MaxViewCount, Creation: q.Creation,
	}
	if _, err := v.metaChain.Append(rec.Marshal()); err != nil {
		return geoerr.Wrap(geoerr.KindFull, err, "append quota record")
	}
	v.quotas.Set(q)
	return nil
}

// QuotaGet returns the quota record installed for scope, if any.
func (v *Volume) QuotaGet(scope uint64) (*access.Quota, bool) {
	return v.quotas.Get(scope)
}

// QuotaUsage reports current usage against scope, whether or not a quota
// has been set for it. Branch-scoped usage reports the same volume-wide
// total_content_bytes as wire.VolumeScope rather than true per-branch
// bytes; the engine keeps no per-branch byte accounting.
func (v *Volume) QuotaUsage(scope uint64) access.Usage {
	return v.quotaUsage()
}
