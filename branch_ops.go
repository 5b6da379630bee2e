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
	"github.com/erigontech/geologic/internal/dag"
	"github.com/erigontech/geologic/internal/merge"
)

// BranchInfo is the public projection of a dag.Branch.
type BranchInfo struct {
	ID       uint64
	Name     string
	BaseView uint64
	HeadView uint64
	Creation uint64
}

func branchInfo(b *dag.Branch) BranchInfo {
	return BranchInfo{ID: b.ID, Name: b.Name, BaseView: b.BaseView, HeadView: b.HeadView, Creation: b.Creation}
}

// BranchCreate forks a new named branch at the current view and switches
// to it; current_view stays at the fork point until the next view is
// created.
func (v *Volume) BranchCreate(name string) (BranchInfo, error) {
	b, err := v.dag.CreateBranch(name)
	if err != nil {
		return BranchInfo{}, err
	}
	if err := v.appendBranchRecord(b); err != nil {
		return BranchInfo{}, err
	}
	return branchInfo(b), nil
}

// BranchSwitchByID moves current_branch/current_view to branch id's
// head; switching always lands on the head, there is no API to land on
// a historical view of another branch.
func (v *Volume) BranchSwitchByID(id uint64) (BranchInfo, error) {
	b, err := v.dag.SwitchBranchByID(id)
	if err != nil {
		return BranchInfo{}, err
	}
	return branchInfo(b), nil
}

// BranchSwitchByName resolves name to a branch id and switches to it.
func (v *Volume) BranchSwitchByName(name string) (BranchInfo, error) {
	b, err := v.dag.SwitchBranchByName(name)
	if err != nil {
		return BranchInfo{}, err
	}
	return branchInfo(b), nil
}

// BranchCurrent returns the branch currently active on the volume.
func (v *Volume) BranchCurrent() (BranchInfo, error) {
	b, ok := v.dag.Branch(v.dag.CurrentBranch())
	if !ok {
		return BranchInfo{}, geoerr.New(geoerr.KindNotFound, "current branch missing")
	}
	return branchInfo(b), nil
}

// BranchList returns every branch ever created.
func (v *Volume) BranchList() []BranchInfo {
	branches := v.dag.Branches()
	out := make([]BranchInfo, 0, len(branches))
	for _, b := range branches {
		out = append(out, branchInfo(b))
	}
	return out
}

// BranchDiff reports path-level differences between two branches' heads,
// reusing ViewDiff over their respective HeadView ids.
func (v *Volume) BranchDiff(fromBranchID, toBranchID uint64) ([]ViewDiffEntry, error) {
	from, ok := v.dag.Branch(fromBranchID)
	if !ok {
		return nil, geoerr.Newf(geoerr.KindNotFound, "branch %d not found", fromBranchID)
	}
	to, ok := v.dag.Branch(toBranchID)
	if !ok {
		return nil, geoerr.Newf(geoerr.KindNotFound, "branch %d not found", toBranchID)
	}
	fromChain, err := v.dag.Ancestry(from.ID, from.HeadView)
	if err != nil {
		return nil, err
	}
	toChain, err := v.dag.Ancestry(to.ID, to.HeadView)
	if err != nil {
		return nil, err
	}
	return v.diffAncestrySets(fromChain, toChain), nil
}

// BranchMerge merges sourceBranchID into the current branch, creating a
// merge view and applying every non-conflicting change. The returned
// error is a geoerr KindConflict when conflicts exist; callers that need
// the counts on the conflict path should still inspect the first return
// value.
func (v *Volume) BranchMerge(sourceBranchID uint64) (*merge.Result, error) {
	return v.merger.Merge(sourceBranchID, v.clock())
}
