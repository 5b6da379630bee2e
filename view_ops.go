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
	"github.com/erigontech/geologic/internal/wire"
)

// ViewInfo is the public projection of a dag.View.
type ViewInfo struct {
	ID       uint64
	Parent   uint64
	BranchID uint64
	Creation uint64
	Label    string
}

func viewInfo(v *dag.View) ViewInfo {
	return ViewInfo{ID: v.ID, Parent: v.Parent, BranchID: v.BranchID, Creation: v.Creation, Label: v.Label}
}

// appendViewRecord mirrors persistGenesis: dag.CreateView/CreateBranch
// mutate in-memory state only, so every Volume-level operation that calls
// them must also append the matching wire record itself.
func (v *Volume) appendViewRecord(view *dag.View) error {
	rec := &wire.ViewRecord{V2: true, ID: view.ID, Parent: view.Parent, Creation: view.Creation, Label: view.Label, BranchID: view.BranchID}
	if _, err := v.metaChain.Append(rec.Marshal()); err != nil {
		return geoerr.Wrap(geoerr.KindFull, err, "append view record")
	}
	return nil
}

func (v *Volume) appendBranchRecord(b *dag.Branch) error {
	rec := &wire.BranchRecord{ID: b.ID, BaseView: b.BaseView, HeadView: b.HeadView, Creation: b.Creation, Name: b.Name}
	if _, err := v.metaChain.Append(rec.Marshal()); err != nil {
		return geoerr.Wrap(geoerr.KindFull, err, "append branch record")
	}
	return nil
}

// recordMergeView is the merge engine's persistence hook: the merge view
// and the head update it implies land in the meta region like any other
// view creation.
func (v *Volume) recordMergeView(view *dag.View, b *dag.Branch) error {
	if err := v.appendViewRecord(view); err != nil {
		return err
	}
	return v.appendBranchRecord(b)
}

// ViewCreate creates a new view as a child of the current view on the
// current branch, and advances the branch head.
func (v *Volume) ViewCreate(label string) (ViewInfo, error) {
	if err := v.quotas.Check(v.dag.CurrentBranch(), v.quotaUsage(), 0, 0, 1); err != nil {
		return ViewInfo{}, err
	}
	view, branch, err := v.dag.CreateView(label)
	if err != nil {
		return ViewInfo{}, err
	}
	if err := v.appendViewRecord(view); err != nil {
		return ViewInfo{}, err
	}
	if err := v.appendBranchRecord(branch); err != nil {
		return ViewInfo{}, err
	}
	return viewInfo(view), nil
}

// ViewSwitch moves current_view to an existing view id without changing
// the current branch.
func (v *Volume) ViewSwitch(id uint64) (ViewInfo, error) {
	view, err := v.dag.SwitchView(id)
	if err != nil {
		return ViewInfo{}, err
	}
	return viewInfo(view), nil
}

// ViewCurrent returns the view currently active on the volume.
func (v *Volume) ViewCurrent() (ViewInfo, error) {
	view, ok := v.dag.View(v.dag.CurrentView())
	if !ok {
		return ViewInfo{}, geoerr.New(geoerr.KindNotFound, "current view missing")
	}
	return viewInfo(view), nil
}

// ViewHide is the view-surface spelling of Hide: it creates the
// "Hide: P" view and appends the hidden marker, exactly as Hide does.
func (v *Volume) ViewHide(path string) error { return v.Hide(path) }

// ViewList returns every view ever created, in creation order.
func (v *Volume) ViewList() []ViewInfo {
	views := v.dag.Views()
	out := make([]ViewInfo, 0, len(views))
	for _, vw := range views {
		out = append(out, viewInfo(vw))
	}
	return out
}

// ViewDiffEntry is one path-level difference found by ViewDiff.
type ViewDiffEntry struct {
	Path   string
	Kind   string // "added", "removed", "changed"
	FromID uint64
	ToID   uint64
}

// ViewDiff compares the visible ref set of two views, each resolved
// against its own parent chain back to Genesis.
func (v *Volume) ViewDiff(fromView, toView uint64) ([]ViewDiffEntry, error) {
	fromAncestry, err := v.dag.Ancestry(v.dag.CurrentBranch(), fromView)
	if err != nil {
		return nil, err
	}
	toAncestry, err := v.dag.Ancestry(v.dag.CurrentBranch(), toView)
	if err != nil {
		return nil, err
	}
	return v.diffAncestrySets(fromAncestry, toAncestry), nil
}

// diffAncestrySets compares the latest-per-path visible entries of two
// ancestry chains, shared by ViewDiff and BranchDiff.
func (v *Volume) diffAncestrySets(fromChain, toChain []uint64) []ViewDiffEntry {
	fromLatest := v.refs.LatestPerPathIn(toSetLocal(fromChain))
	toLatest := v.refs.LatestPerPathIn(toSetLocal(toChain))

	var out []ViewDiffEntry
	for p, te := range toLatest {
		if te.Hidden {
			continue
		}
		fe, ok := fromLatest[p]
		if !ok || fe.Hidden {
			out = append(out, ViewDiffEntry{Path: p, Kind: "added", ToID: te.ViewID})
			continue
		}
		if fe.Digest != te.Digest {
			out = append(out, ViewDiffEntry{Path: p, Kind: "changed", FromID: fe.ViewID, ToID: te.ViewID})
		}
	}
	for p, fe := range fromLatest {
		if fe.Hidden {
			continue
		}
		if te, ok := toLatest[p]; !ok || te.Hidden {
			out = append(out, ViewDiffEntry{Path: p, Kind: "removed", FromID: fe.ViewID})
		}
	}
	return out
}

func toSetLocal(ids []uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
