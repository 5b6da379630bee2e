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

package access

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/wire"
)

func TestGateDefaultContextBypasses(t *testing.T) {
	g := NewGate(nil)
	entry := &PermEntry{Perm: 0, OwnerID: 7}
	require.NoError(t, g.Check(entry, wire.PermWrite))
}

func TestGateDeniesMissingPerm(t *testing.T) {
	g := NewGate(nil)
	g.SetContext(Context{CallerID: 3, Capabilities: 0})

	entry := &PermEntry{Perm: wire.PermRead, OwnerID: 7}
	err := g.Check(entry, wire.PermWrite)
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindPermission, k)

	require.NoError(t, g.Check(entry, wire.PermRead))
}

func TestGateAdminBypass(t *testing.T) {
	for _, cap := range []Capability{CapKernel, CapFSAdmin} {
		g := NewGate(nil)
		g.SetContext(Context{CallerID: 1, Capabilities: cap})
		require.NoError(t, g.Check(&PermEntry{Perm: 0}, wire.PermWrite))
	}
}

func TestGateNilEntryAllowed(t *testing.T) {
	g := NewGate(nil)
	g.SetContext(Context{CallerID: 3, Capabilities: 0})
	require.NoError(t, g.Check(nil, wire.PermWrite), "fresh creates pass the gate itself")
}

func usage(contentBytes, refCount, viewCount uint64) Usage {
	return Usage{ContentBytes: uint256.NewInt(contentBytes), RefCount: refCount, ViewCount: viewCount}
}

func TestQuotaContentBytes(t *testing.T) {
	q := NewQuotaGate(nil)
	q.Set(&Quota{Scope: wire.VolumeScope, MaxContentBytes: 10})

	require.NoError(t, q.Check(0, usage(8, 0, 0), 2, 1, 0))

	err := q.Check(0, usage(8, 0, 0), 3, 1, 0)
	k, ok := geoerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, geoerr.KindQuota, k)
}

func TestQuotaRefAndViewCounts(t *testing.T) {
	q := NewQuotaGate(nil)
	q.Set(&Quota{Scope: wire.VolumeScope, MaxRefCount: 2, MaxViewCount: 3})

	require.NoError(t, q.Check(0, usage(0, 1, 2), 0, 1, 1))

	err := q.Check(0, usage(0, 2, 2), 0, 1, 0)
	k, _ := geoerr.KindOf(err)
	assert.Equal(t, geoerr.KindQuota, k)

	err = q.Check(0, usage(0, 0, 3), 0, 1, 1)
	k, _ = geoerr.KindOf(err)
	assert.Equal(t, geoerr.KindQuota, k)
}

func TestQuotaBranchScope(t *testing.T) {
	q := NewQuotaGate(nil)
	q.Set(&Quota{Scope: 5, MaxContentBytes: 100})

	// branch 5 is limited, other branches are not
	err := q.Check(5, usage(90, 0, 0), 20, 1, 0)
	k, _ := geoerr.KindOf(err)
	assert.Equal(t, geoerr.KindQuota, k)
	require.NoError(t, q.Check(6, usage(90, 0, 0), 20, 1, 0))
}

func TestQuotaZeroMeansUnlimited(t *testing.T) {
	q := NewQuotaGate(nil)
	q.Set(&Quota{Scope: wire.VolumeScope})
	require.NoError(t, q.Check(0, usage(1<<40, 1<<20, 1<<20), 1<<40, 1, 1))
}

func TestQuotaLastWriterWins(t *testing.T) {
	q := NewQuotaGate(nil)
	q.Set(&Quota{Scope: wire.VolumeScope, MaxContentBytes: 10, Creation: 1})
	q.Set(&Quota{Scope: wire.VolumeScope, MaxContentBytes: 100, Creation: 2})

	got, ok := q.Get(wire.VolumeScope)
	require.True(t, ok)
	assert.EqualValues(t, 100, got.MaxContentBytes)
	require.NoError(t, q.Check(0, usage(50, 0, 0), 10, 1, 0))
}
