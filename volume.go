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

// Package geologic is an append-only, content-addressed, geologically
// versioned volume engine: deduplicated block storage, path-to-content
// references, time travel through named views, divergent branch
// histories, and branch merge with conflict detection. It never
// overwrites or erases data; every state change is a new record
// appended to one of three storage regions.
package geologic

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/erigontech/geologic/internal/access"
	"github.com/erigontech/geologic/internal/content"
	"github.com/erigontech/geologic/internal/dag"
	"github.com/erigontech/geologic/internal/merge"
	"github.com/erigontech/geologic/internal/persist"
	"github.com/erigontech/geologic/internal/refs"
	"github.com/erigontech/geologic/internal/region"
	"github.com/erigontech/geologic/internal/sectorio"
	"github.com/erigontech/geologic/internal/wire"
)

// Options configures a Volume at creation time.
type Options struct {
	// PageSize is the page granularity region chunks grow by. Defaults
	// to region.DefaultPageSize.
	PageSize int
	// MaxSymlinkHops bounds symlink chain resolution; exceeding it fails
	// SymLoop. Defaults to refs.MaxSymlinkHops.
	MaxSymlinkHops int
	// Logger receives structured logs at Debug/Info/Warn. A no-op
	// logger is substituted when nil.
	Logger *zap.SugaredLogger
	// Clock supplies the monotonic tick counter used for creation stamps. A
	// process-local atomic counter is used when nil (deterministic,
	// strictly increasing, suitable for tests and single-process use).
	Clock func() uint64
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = region.DefaultPageSize
	}
	if o.MaxSymlinkHops <= 0 {
		o.MaxSymlinkHops = refs.MaxSymlinkHops
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.Clock == nil {
		var counter atomic.Uint64
		o.Clock = func() uint64 { return counter.Add(1) }
	}
	return o
}

// Volume is the single-writer, in-process engine handle. Callers must
// serialize their own access.
type Volume struct {
	opts Options

	contentChain *region.Chain
	refChain     *region.Chain
	metaChain    *region.Chain

	content *content.Store
	refs    *refs.Table
	dag     *dag.DAG
	gate    *access.Gate
	quotas  *access.QuotaGate
	merger  *merge.Engine

	clock func() uint64
	log   *zap.SugaredLogger

	lookupCount uint64
}

// Create builds a fresh, empty volume: region chains at zero bytes, a
// Genesis view (id 1, parent 0) on branch "main" (id 0).
func Create(opts Options) *Volume {
	opts = opts.withDefaults()
	v := &Volume{opts: opts, clock: opts.Clock, log: opts.Logger}
	v.contentChain = region.New("content", opts.PageSize, opts.Logger)
	v.refChain = region.New("refs", opts.PageSize, opts.Logger)
	v.metaChain = region.New("meta", opts.PageSize, opts.Logger)
	v.content = content.New(v.contentChain, opts.Logger)
	v.dag = dag.New(opts.Clock, opts.Logger)
	v.refs = refs.New(v.refChain, v.dag, opts.Logger)
	v.gate = access.NewGate(opts.Logger)
	v.quotas = access.NewQuotaGate(opts.Logger)
	v.merger = merge.New(v.dag, v.refs, v.recordMergeView, opts.Logger)

	v.persistGenesis()
	v.log.Infow("volume created")
	return v
}

// persistGenesis writes the meta records for the Genesis view and main
// branch the dag constructor seeded in memory, so Save/Load round-trips
// them the same way every later view/branch is round-tripped.
func (v *Volume) persistGenesis() {
	genesis, _ := v.dag.View(dag.GenesisViewID)
	main, _ := v.dag.Branch(dag.MainBranchID)
	vrec := &wire.ViewRecord{V2: true, ID: genesis.ID, Parent: genesis.Parent, Creation: genesis.Creation, Label: genesis.Label, BranchID: genesis.BranchID}
	v.metaChain.Append(vrec.Marshal())
	brec := &wire.BranchRecord{ID: main.ID, BaseView: main.BaseView, HeadView: main.HeadView, Creation: main.Creation, Name: main.Name}
	v.metaChain.Append(brec.Marshal())
}

// Destroy releases a volume's in-memory state. Whole-volume teardown is
// the only way records are ever discarded.
func (v *Volume) Destroy() {
	v.contentChain.Reset()
	v.refChain.Reset()
	v.metaChain.Reset()
}

// SetContext installs the ambient caller identity/capabilities consulted
// by the access gate.
func (v *Volume) SetContext(ctx access.Context) { v.gate.SetContext(ctx) }

// GetContext returns the currently installed access context.
func (v *Volume) GetContext() access.Context { return v.gate.GetContext() }

// Stats is the public snapshot of volume-wide counters.
type Stats struct {
	CurrentView   uint64
	NextViewID    uint64
	CurrentBranch uint64
	NextBranchID  uint64
	ContentBytes  uint64
	RefCount      uint64
	ViewCount     uint64
	BranchCount   uint64
	DedupHits     uint64
	LookupCount   uint64
	ContentUsed   uint64
	RefsUsed      uint64
	MetaUsed      uint64
}

// Stats returns the current volume-wide counters.
func (v *Volume) Stats() Stats {
	return Stats{
		CurrentView:   v.dag.CurrentView(),
		NextViewID:    v.dag.NextViewID(),
		CurrentBranch: v.dag.CurrentBranch(),
		NextBranchID:  v.dag.NextBranchID(),
		ContentBytes:  v.contentBytesStored(),
		RefCount:      uint64(v.refs.Count()),
		ViewCount:     uint64(v.dag.ViewCount()),
		BranchCount:   uint64(v.dag.BranchCount()),
		DedupHits:     v.content.DedupHits(),
		LookupCount:   v.lookupCount,
		ContentUsed:   v.contentChain.Used(),
		RefsUsed:      v.refChain.Used(),
		MetaUsed:      v.metaChain.Used(),
	}
}

// contentBytesStored approximates "total_content_bytes" as the sum of
// uncompressed sizes of every unique digest in the store.
func (v *Volume) contentBytesStored() uint64 {
	return v.content.TotalUncompressedBytes()
}

// Save persists the whole volume to disk starting at startSector.
func (v *Volume) Save(disk sectorio.Disk, startSector uint64) error {
	counters := persist.VolumeCounters{
		CurrentView:   v.dag.CurrentView(),
		NextView:      v.dag.NextViewID(),
		Creation:      v.clock(),
		ContentBytes:  v.contentBytesStored(),
		RefCount:      uint64(v.refs.Count()),
		ViewCount:     uint64(v.dag.ViewCount()),
		DedupHits:     v.content.DedupHits(),
		LookupCount:   v.lookupCount,
		CurrentBranch: v.dag.CurrentBranch(),
		NextBranchID:  v.dag.NextBranchID(),
		BranchCount:   uint64(v.dag.BranchCount()),
	}
	if err := persist.Save(disk, startSector, counters, v.contentChain, v.refChain, v.metaChain); err != nil {
		return err
	}
	v.log.Infow("volume saved", "start_sector", startSector)
	return nil
}

// Load reconstructs a volume from disk starting at startSector, rebuilding
// every in-memory index from raw records.
//
// When the caller did not supply a Clock, the default tick counter is
// seeded from the superblock's creation stamp so post-load records always
// carry greater creation times than anything already on disk; latest-wins
// resolution depends on it.
func Load(disk sectorio.Disk, startSector uint64, opts Options) (*Volume, error) {
	var seed atomic.Uint64
	seedable := opts.Clock == nil
	if seedable {
		opts.Clock = func() uint64 { return seed.Add(1) }
	}
	opts = opts.withDefaults()

	loaded, err := persist.Load(disk, startSector, opts.PageSize, opts.Clock, opts.Logger)
	if err != nil {
		return nil, err
	}
	if seedable {
		seed.Store(loaded.Counters.Creation)
	}

	v := &Volume{
		opts:         opts,
		clock:        opts.Clock,
		log:          opts.Logger,
		contentChain: loaded.ContentChain,
		refChain:     loaded.RefChain,
		metaChain:    loaded.MetaChain,
		content:      loaded.Content,
		refs:         loaded.Refs,
		dag:          loaded.DAG,
		quotas:       loaded.Quotas,
		gate:         access.NewGate(opts.Logger),
		lookupCount:  loaded.Counters.LookupCount,
	}
	v.merger = merge.New(v.dag, v.refs, v.recordMergeView, opts.Logger)
	v.log.Infow("volume loaded", "start_sector", startSector, "current_view", v.dag.CurrentView())
	return v, nil
}

func asPermEntry(e *refs.Entry) *access.PermEntry {
	if e == nil {
		return nil
	}
	return &access.PermEntry{Perm: e.Perm, OwnerID: e.OwnerID}
}

// visibleEntry returns the ref currently visible at p, treating a symlink
// itself (not its target) as the visible entry; nil when nothing resolves.
func (v *Volume) visibleEntry(p string) *refs.Entry {
	e, err := v.refs.ResolveEntry(p)
	if err == nil {
		return e
	}
	if st, ok := refs.IsSymlinkTarget(err); ok {
		return st
	}
	return nil
}
