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

// Package persist implements volume persistence: superblock
// serialization, a staging-buffer streaming write of each region's
// chunks to consecutive
// sectors, and, on load, index rebuild by a three-pass scan of raw
// records dispatched by their four-byte magic.
package persist

import (
	"crypto/sha256"

	"go.uber.org/zap"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/access"
	"github.com/erigontech/geologic/internal/content"
	"github.com/erigontech/geologic/internal/dag"
	"github.com/erigontech/geologic/internal/geomath"
	"github.com/erigontech/geologic/internal/region"
	"github.com/erigontech/geologic/internal/refs"
	"github.com/erigontech/geologic/internal/sectorio"
	"github.com/erigontech/geologic/internal/wire"
)

// stagingBufferSectors bounds how much of a chunk is staged per write call
// when streaming region bytes to sectors.
const stagingBufferSectors = 256 // 128 KiB at 512-byte sectors

// VolumeCounters are the superblock-level monotonic counters.
type VolumeCounters struct {
	CurrentView   uint64
	NextView      uint64
	Creation      uint64
	ContentBytes  uint64
	RefCount      uint64
	ViewCount     uint64
	DedupHits     uint64
	LookupCount   uint64
	CurrentBranch uint64
	NextBranchID  uint64
	BranchCount   uint64
}

// Save writes a v2 superblock plus the three regions to disk starting at
// startSector.
func Save(disk sectorio.Disk, startSector uint64, counters VolumeCounters,
	contentChain, refChain, metaChain *region.Chain) error {

	sb := &wire.Superblock{
		Version:       wire.SuperblockV2,
		CurrentView:   counters.CurrentView,
		NextView:      counters.NextView,
		Creation:      counters.Creation,
		ContentBytes:  counters.ContentBytes,
		RefCount:      counters.RefCount,
		ViewCount:     counters.ViewCount,
		DedupHits:     counters.DedupHits,
		LookupCount:   counters.LookupCount,
		CurrentBranch: counters.CurrentBranch,
		NextBranchID:  counters.NextBranchID,
		BranchCount:   counters.BranchCount,
	}

	sector := startSector + 1
	layouts := make([]*wire.RegionLayout, 3)
	chains := []*region.Chain{contentChain, refChain, metaChain}
	for i, c := range chains {
		sectors := sectorsFor(c.Used())
		layouts[i] = &wire.RegionLayout{Used: c.Used(), StartSector: sector, SectorCount: sectors}
		sector += sectors
	}
	sb.Content, sb.Refs, sb.Views = *layouts[0], *layouts[1], *layouts[2]
	sb.Checksum = regionChecksum(contentChain, refChain, metaChain)

	if err := disk.WriteSectors(startSector, 1, sb.Marshal()); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "write superblock")
	}

	for i, c := range chains {
		if err := streamChain(disk, c, layouts[i].StartSector); err != nil {
			return err
		}
	}
	if err := disk.Flush(); err != nil {
		return geoerr.Wrap(geoerr.KindIO, err, "flush disk")
	}
	return nil
}

func sectorsFor(bytes uint64) uint64 {
	if bytes == 0 {
		return 0
	}
	return (bytes + wire.SectorSize - 1) / wire.SectorSize
}

// streamChain writes every chunk's used bytes to consecutive sectors
// starting at startSector, staging through a bounded buffer so a chunk
// boundary never forces a short write.
func streamChain(disk sectorio.Disk, c *region.Chain, startSector uint64) error {
	stagingCap := stagingBufferSectors * wire.SectorSize
	staging := make([]byte, 0, stagingCap)
	sector := startSector

	flush := func() error {
		if len(staging) == 0 {
			return nil
		}
		sectors := sectorsFor(uint64(len(staging)))
		padded := staging
		if pad := int(sectors)*wire.SectorSize - len(staging); pad > 0 {
			padded = append(padded, make([]byte, pad)...)
		}
		if err := disk.WriteSectors(sector, sectors, padded); err != nil {
			return geoerr.Wrap(geoerr.KindIO, err, "write region sectors")
		}
		sector += sectors
		staging = staging[:0]
		return nil
	}

	var outerErr error
	c.ForEachChunk(func(_ uint64, data []byte) {
		if outerErr != nil {
			return
		}
		remaining := data
		for len(remaining) > 0 {
			n := geomath.MinInt(stagingCap-len(staging), len(remaining))
			staging = append(staging, remaining[:n]...)
			remaining = remaining[n:]
			if len(staging) == stagingCap {
				if err := flush(); err != nil {
					outerErr = err
					return
				}
			}
		}
	})
	if outerErr != nil {
		return outerErr
	}
	return flush()
}

func regionChecksum(chains ...*region.Chain) [32]byte {
	h := sha256.New()
	for _, c := range chains {
		c.ForEachChunk(func(_ uint64, data []byte) { h.Write(data) })
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Loaded bundles everything Load reconstructs, including the raw region
// chains so the caller can keep appending (and later Save) through them.
type Loaded struct {
	Counters     VolumeCounters
	Content      *content.Store
	Refs         *refs.Table
	DAG          *dag.DAG
	Quotas       *access.QuotaGate
	ContentChain *region.Chain
	RefChain     *region.Chain
	MetaChain    *region.Chain
}

// Load reads and validates the superblock, rebuilds the three region
// chains from raw sectors, then rebuilds every in-memory index by
// scanning those regions.
func Load(disk sectorio.Disk, startSector uint64, pageSize int, now func() uint64, log *zap.SugaredLogger) (*Loaded, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	sbBuf := make([]byte, wire.SectorSize)
	if err := disk.ReadSectors(startSector, 1, sbBuf); err != nil {
		return nil, geoerr.Wrap(geoerr.KindIO, err, "read superblock")
	}
	sb, err := wire.UnmarshalSuperblock(sbBuf)
	if err != nil {
		return nil, err
	}

	readRegion := func(name string, layout wire.RegionLayout) (*region.Chain, error) {
		if layout.SectorCount == 0 {
			return region.New(name, pageSize, log), nil
		}
		buf := make([]byte, layout.SectorCount*wire.SectorSize)
		if err := disk.ReadSectors(layout.StartSector, layout.SectorCount, buf); err != nil {
			return nil, geoerr.Wrap(geoerr.KindIO, err, "read region "+name)
		}
		return region.LoadFromBytes(name, pageSize, buf, layout.Used, log), nil
	}

	contentChain, err := readRegion("content", sb.Content)
	if err != nil {
		return nil, err
	}
	refChain, err := readRegion("refs", sb.Refs)
	if err != nil {
		return nil, err
	}
	metaChain, err := readRegion("meta", sb.Views)
	if err != nil {
		return nil, err
	}

	if sum := regionChecksum(contentChain, refChain, metaChain); sum != sb.Checksum {
		return nil, geoerr.New(geoerr.KindCorrupt, "region checksum mismatch")
	}

	store := content.New(contentChain, log)
	if err := store.RebuildIndex(); err != nil {
		return nil, err
	}
	store.RestoreDedupHits(sb.DedupHits)

	d := dag.New(now, log)
	quotas := access.NewQuotaGate(log)
	if err := rebuildMeta(metaChain, d, quotas, sb.Version, log); err != nil {
		return nil, err
	}
	// A v1 volume predates branches entirely: no branch records exist on
	// disk, so main must be synthesized with its head at the saved view.
	if _, ok := d.Branch(dag.MainBranchID); !ok {
		d.RestoreBranch(&dag.Branch{
			ID: dag.MainBranchID, BaseView: dag.GenesisViewID, HeadView: sb.CurrentView,
			Creation: sb.Creation, Name: "main",
		})
	}
	d.SetCurrent(sb.CurrentBranch, sb.CurrentView)

	table := refs.New(refChain, d, log)
	if err := table.RebuildIndex(); err != nil {
		return nil, err
	}

	counters := VolumeCounters{
		CurrentView: sb.CurrentView, NextView: sb.NextView, Creation: sb.Creation,
		ContentBytes: sb.ContentBytes, RefCount: sb.RefCount, ViewCount: sb.ViewCount,
		DedupHits: sb.DedupHits, LookupCount: sb.LookupCount,
		CurrentBranch: sb.CurrentBranch, NextBranchID: sb.NextBranchID, BranchCount: sb.BranchCount,
	}

	return &Loaded{
		Counters: counters, Content: store, Refs: table, DAG: d, Quotas: quotas,
		ContentChain: contentChain, RefChain: refChain, MetaChain: metaChain,
	}, nil
}

// rebuildMeta scans the Views/Branches/Quotas region, dispatching each
// record by its magic. v1 views are promoted onto
// branch 0 ("main") since v1 had no branch concept.
func rebuildMeta(chain *region.Chain, d *dag.DAG, quotas *access.QuotaGate, sbVersion uint32, log *zap.SugaredLogger) error {
	// d.New already seeded Genesis/main; a rebuild must start clean so
	// the restored records are the sole source of truth.
	resetDAGForRebuild(d)

	var outerErr error
	chain.ForEachChunk(func(_ uint64, data []byte) {
		if outerErr != nil {
			return
		}
		off := 0
		for off+4 <= len(data) {
			magic := string(data[off : off+4])
			switch magic {
			case wire.MagicViewV1, wire.MagicViewV2:
				rec, err := wire.UnmarshalViewRecord(data[off:])
				if err != nil {
					outerErr = err
					return
				}
				branchID := rec.BranchID
				if !rec.V2 {
					branchID = dag.MainBranchID
				}
				d.RestoreView(&dag.View{ID: rec.ID, Parent: rec.Parent, BranchID: branchID, Creation: rec.Creation, Label: rec.Label})
				size := wire.ViewV1Size
				if rec.V2 {
					size = wire.ViewV2Size
				}
				off += size
			case wire.MagicBranch:
				if off+wire.BranchRecordSize > len(data) {
					outerErr = geoerr.New(geoerr.KindCorrupt, "truncated branch record")
					return
				}
				rec, err := wire.UnmarshalBranchRecord(data[off : off+wire.BranchRecordSize])
				if err != nil {
					outerErr = err
					return
				}
				d.RestoreBranch(&dag.Branch{ID: rec.ID, BaseView: rec.BaseView, HeadView: rec.HeadView, Creation: rec.Creation, Name: rec.Name})
				off += wire.BranchRecordSize
			case wire.MagicQuota:
				if off+wire.QuotaRecordSize > len(data) {
					outerErr = geoerr.New(geoerr.KindCorrupt, "truncated quota record")
					return
				}
				rec, err := wire.UnmarshalQuotaRecord(data[off : off+wire.QuotaRecordSize])
				if err != nil {
					outerErr = err
					return
				}
				quotas.Set(&access.Quota{Scope: rec.Scope, MaxContentBytes: rec.MaxContentBytes, MaxRefCount: rec.MaxRefCount, MaxViewCount: rec.MaxViewCount, Creation: rec.Creation})
				off += wire.QuotaRecordSize
			default:
				log.Warnw("unrecognized meta record magic during rebuild; stopping scan", "magic", magic)
				return
			}
		}
	})
	if sbVersion == wire.SuperblockV1 {
		log.Infow("v1 volume promoted: all views assigned to branch main")
	}
	return outerErr
}

// resetDAGForRebuild clears the synthetic Genesis/main the constructor
// seeds, since Load replaces them with whatever was actually persisted.
func resetDAGForRebuild(d *dag.DAG) {
	d.Clear()
}
