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

// Package access implements the access gate and quota enforcement:
// every write resolves its target, checks the caller's capability
// bitmask against the ref's permission bits, then checks the write's byte
// delta against per-branch and volume-wide quotas.
//
// The engine does not authenticate; it consults whatever Context was most
// recently installed on the volume.
package access

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/wire"
)

// Capability is a bitmask of reserved capability bits.
type Capability uint64

const (
	// CapKernel and CapFSAdmin bypass every access check.
	CapKernel Capability = 1 << iota
	CapFSAdmin
	CapRead
	CapWrite
	CapExecute
)

func (c Capability) Bypasses() bool { return c&(CapKernel|CapFSAdmin) != 0 }

// Context is the caller identity + capability bitmask ambient on a volume.
type Context struct {
	CallerID     uint64
	Capabilities Capability
}

// DefaultContext grants every capability; an uninitialized volume must
// still be usable by its creator until SetContext installs a real
// identity.
func DefaultContext() Context {
	return Context{CallerID: 0, Capabilities: CapKernel}
}

// Gate enforces access control. It holds no state of its own beyond the
// current Context; resolution of what ref a path currently maps to is the
// caller's job (internal/refs).
type Gate struct {
	ctx Context
	log *zap.SugaredLogger
}

func NewGate(log *zap.SugaredLogger) *Gate {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Gate{ctx: DefaultContext(), log: log}
}

func (g *Gate) SetContext(ctx Context) { g.ctx = ctx }
func (g *Gate) GetContext() Context    { return g.ctx }

// PermEntry is the minimal shape the gate needs from a resolved ref.
type PermEntry struct {
	Perm    wire.Perm
	OwnerID uint64
}

// Check enforces want against entry's permission bits. A nil
// entry means the target path does not yet exist (e.g. a fresh create),
// which is always allowed through the gate itself; quota still applies.
func (g *Gate) Check(entry *PermEntry, want wire.Perm) error {
	if g.ctx.Capabilities.Bypasses() {
		return nil
	}
	if entry == nil {
		return nil
	}
	if entry.Perm&want != want {
		return geoerr.Newf(geoerr.KindPermission, "caller %d lacks %v on owner-%d resource", g.ctx.CallerID, want, entry.OwnerID)
	}
	return nil
}

// Quota is one limits record: a scope (branch id, or
// VolumeScope) and three optional limits, 0 meaning unlimited.
type Quota struct {
	Scope           uint64
	MaxContentBytes uint64
	MaxRefCount     uint64
	MaxViewCount    uint64
	Creation        uint64
}

// QuotaGate tracks per-scope quota records (last-writer-wins). Current
// usage is supplied by the caller on each Check; the projected content
// byte total (usage plus the write's new bytes) is computed in uint256
// so that sum cannot silently wrap a uint64.
type QuotaGate struct {
	quotas map[uint64]*Quota
	log    *zap.SugaredLogger
}

func NewQuotaGate(log *zap.SugaredLogger) *QuotaGate {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &QuotaGate{quotas: map[uint64]*Quota{}, log: log}
}

// Set installs (or overwrites, last-writer-wins) the quota for scope.
func (q *QuotaGate) Set(quota *Quota) {
	q.quotas[quota.Scope] = quota
	q.log.Infow("quota set", "scope", quota.Scope, "max_content_bytes", quota.MaxContentBytes,
		"max_ref_count", quota.MaxRefCount, "max_view_count", quota.MaxViewCount)
}

// Get returns the quota record for scope, if any.
func (q *QuotaGate) Get(scope uint64) (*Quota, bool) {
	quota, ok := q.quotas[scope]
	return quota, ok
}

// All returns every installed quota record.
func (q *QuotaGate) All() []*Quota {
	out := make([]*Quota, 0, len(q.quotas))
	for _, v := range q.quotas {
		out = append(out, v)
	}
	return out
}

// Usage is a quota-relative snapshot of current volume state.
type Usage struct {
	ContentBytes *uint256.Int
	RefCount     uint64
	ViewCount    uint64
}

// Check aborts with KindQuota if applying addBytes new content bytes,
// addRefs more refs, and addViews more views would push branch-scoped or
// volume-wide usage past a non-zero limit.
//
// Per-branch usage is checked against total_content_bytes (shared
// across branches) rather than a true per-branch byte count, a known
// approximation.
func (q *QuotaGate) Check(branchScope uint64, usage Usage, addBytes uint64, addRefs uint64, addViews uint64) error {
	addB := new(uint256.Int).SetUint64(addBytes)
	projected := new(uint256.Int).Add(usage.ContentBytes, addB)

	check := func(quota *Quota) error {
		if quota == nil {
			return nil
		}
		if quota.MaxContentBytes != 0 {
			limit := new(uint256.Int).SetUint64(quota.MaxContentBytes)
			if projected.Cmp(limit) > 0 {
				return geoerr.Newf(geoerr.KindQuota, "scope %d content bytes quota exceeded: %s > %d", quota.Scope, projected.String(), quota.MaxContentBytes)
			}
		}
		if quota.MaxRefCount != 0 && usage.RefCount+addRefs > quota.MaxRefCount {
			return geoerr.Newf(geoerr.KindQuota, "scope %d ref count quota exceeded: %d > %d", quota.Scope, usage.RefCount+addRefs, quota.MaxRefCount)
		}
		if quota.MaxViewCount != 0 && usage.ViewCount+addViews > quota.MaxViewCount {
			return geoerr.Newf(geoerr.KindQuota, "scope %d view count quota exceeded: %d > %d", quota.Scope, usage.ViewCount+addViews, quota.MaxViewCount)
		}
		return nil
	}

	if quota, ok := q.quotas[branchScope]; ok {
		if err := check(quota); err != nil {
			return err
		}
	}
	if quota, ok := q.quotas[wire.VolumeScope]; ok {
		if err := check(quota); err != nil {
			return err
		}
	}
	return nil
}
