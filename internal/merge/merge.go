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

// Package merge implements the three-way merge engine:
// common-ancestor detection followed by a non-conflicting-changes-only
// apply pass, reporting (not resolving) divergent paths.
package merge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/dag"
	"github.com/erigontech/geologic/internal/refs"
)

// Result reports the outcome of a merge.
type Result struct {
	ConflictCount int
	AppliedCount  int
	MergeViewID   uint64
	CommonAncestor uint64
}

// RecordFunc persists a freshly created merge view and the branch head
// update that points at it. The DAG only mutates memory; the owner of the
// meta region supplies the append.
type RecordFunc func(v *dag.View, b *dag.Branch) error

// Engine wires the DAG and ref table together to perform merges.
type Engine struct {
	d      *dag.DAG
	table  *refs.Table
	record RecordFunc
	log    *zap.SugaredLogger
}

func New(d *dag.DAG, table *refs.Table, record RecordFunc, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{d: d, table: table, record: record, log: log}
}

func toSet(ids []uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// commonAncestor walks the source ancestry (head to root) and returns the
// first view also present in the target ancestry.
func commonAncestor(sourceChain []uint64, targetSet map[uint64]bool) (uint64, error) {
	for _, v := range sourceChain {
		if targetSet[v] {
			return v, nil
		}
	}
	return 0, geoerr.New(geoerr.KindNotFound, "no common ancestor between branches")
}

func setDiff(a []uint64, b map[uint64]bool) map[uint64]bool {
	out := make(map[uint64]bool)
	for _, v := range a {
		if !b[v] {
			out[v] = true
		}
	}
	return out
}

// Merge merges sourceBranchID into the DAG's current branch, creating a
// merge view labelled "Merge: <source name>". now is the
// creation timestamp for any applied ref records; the merge view itself
// is stamped by the DAG's own clock in CreateView.
func (e *Engine) Merge(sourceBranchID uint64, now uint64) (*Result, error) {
	source, ok := e.d.Branch(sourceBranchID)
	if !ok {
		return nil, geoerr.Newf(geoerr.KindNotFound, "source branch %d not found", sourceBranchID)
	}
	target, ok := e.d.Branch(e.d.CurrentBranch())
	if !ok {
		return nil, geoerr.New(geoerr.KindNotFound, "current branch missing")
	}

	targetChain, err := e.d.Ancestry(target.ID, target.HeadView)
	if err != nil {
		return nil, err
	}
	sourceChain, err := e.d.Ancestry(source.ID, source.HeadView)
	if err != nil {
		return nil, err
	}
	targetSet := toSet(targetChain)

	ancestor, err := commonAncestor(sourceChain, targetSet)
	if err != nil {
		return nil, err
	}
	ancestorView, ok := e.d.View(ancestor)
	if !ok {
		return nil, geoerr.Newf(geoerr.KindNotFound, "common ancestor view %d missing", ancestor)
	}

	sourceOnly := setDiff(sourceChain, targetSet)

	mergeView, headBranch, err := e.d.CreateView(fmt.Sprintf("Merge: %s", source.Name))
	if err != nil {
		return nil, err
	}
	if e.record != nil {
		if err := e.record(mergeView, headBranch); err != nil {
			return nil, err
		}
	}

	// Latest per path among views introduced on source after the fork,
	// vs. latest per path across the whole target chain. A target entry
	// counts as a post-ancestor change when its creation stamp is newer
	// than the ancestor view: refs appended to a pre-fork view after the
	// fork still diverge, even though their view id is shared history.
	sourceLatest := e.table.LatestPerPathIn(sourceOnly)
	targetLatest := e.table.LatestPerPathIn(targetSet)

	result := &Result{MergeViewID: mergeView.ID, CommonAncestor: ancestor}

	for p, srcEntry := range sourceLatest {
		if srcEntry.Hidden {
			continue
		}
		if tgtEntry, ok := targetLatest[p]; ok && !tgtEntry.Hidden && tgtEntry.Creation > ancestorView.Creation {
			if tgtEntry.Digest != srcEntry.Digest {
				result.ConflictCount++
				e.log.Debugw("merge conflict", "path", p, "source", srcEntry.Digest, "target", tgtEntry.Digest)
			}
			// Same digest on both sides: already merged, nothing to apply.
			continue
		}
		if err := e.table.Create(&refs.Entry{
			Path:     p,
			Digest:   srcEntry.Digest,
			ViewID:   mergeView.ID,
			Creation: now,
			FileType: srcEntry.FileType,
			Perm:     srcEntry.Perm,
			OwnerID:  srcEntry.OwnerID,
		}); err != nil {
			return nil, err
		}
		result.AppliedCount++
	}

	e.log.Infow("merge complete", "source", source.Name, "target", target.Name,
		"conflicts", result.ConflictCount, "applied", result.AppliedCount)

	if result.ConflictCount > 0 {
		return result, geoerr.Conflict(result.ConflictCount,
			fmt.Sprintf("merge of %q into %q saw %d conflicting path(s)", source.Name, target.Name, result.ConflictCount))
	}
	return result, nil
}
