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

// Package dag implements the view/branch directed acyclic graph: views
// are immutable snapshot nodes linked by parent pointers, branches are
// named movable heads over that graph.
package dag

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/erigontech/geologic/geoerr"
)

// GenesisViewID and MainBranchID are the fixed ids created at volume
// initialization.
const (
	NullViewID   uint64 = 0
	GenesisViewID uint64 = 1
	MainBranchID uint64 = 0
)

// MaxAncestryDepth bounds the parent walk so a corrupt or (impossibly)
// cyclic chain cannot hang a resolve.
const MaxAncestryDepth = 1 << 20

// View is an immutable snapshot node.
type View struct {
	ID       uint64
	Parent   uint64
	BranchID uint64
	Creation uint64
	Label    string
}

// Branch is a named movable head over the view DAG.
type Branch struct {
	ID       uint64
	BaseView uint64
	HeadView uint64
	Creation uint64
	Name     string
}

type ancestryKey struct {
	branch uint64
	view   uint64
}

// DAG owns the view and branch tables plus the derived ancestry cache.
type DAG struct {
	views        map[uint64]*View
	viewOrder    []uint64
	branches     map[uint64]*Branch
	branchByName map[string]uint64

	nextViewID   uint64
	nextBranchID uint64

	currentView   uint64
	currentBranch uint64

	ancestry *lru.Cache[ancestryKey, []uint64]
	now      func() uint64
	log      *zap.SugaredLogger
}

// New creates a DAG with Genesis (view 1, parent 0, branch 0) and main
// (branch 0) already created.
func New(now func() uint64, log *zap.SugaredLogger) *DAG {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cache, _ := lru.New[ancestryKey, []uint64](1024)
	d := &DAG{
		views:         map[uint64]*View{},
		branches:      map[uint64]*Branch{},
		branchByName:  map[string]uint64{},
		nextViewID:    GenesisViewID,
		nextBranchID:  MainBranchID,
		ancestry:      cache,
		now:           now,
		log:           log,
	}
	ts := d.now()
	genesis := &View{ID: GenesisViewID, Parent: NullViewID, BranchID: MainBranchID, Creation: ts, Label: "Genesis"}
	d.views[genesis.ID] = genesis
	d.viewOrder = append(d.viewOrder, genesis.ID)
	d.nextViewID = GenesisViewID + 1

	main := &Branch{ID: MainBranchID, BaseView: GenesisViewID, HeadView: GenesisViewID, Creation: ts, Name: "main"}
	d.branches[main.ID] = main
	d.branchByName[main.Name] = main.ID
	d.nextBranchID = MainBranchID + 1

	d.currentView = GenesisViewID
	d.currentBranch = MainBranchID
	return d
}

// CurrentView / CurrentBranch return the active position.
func (d *DAG) CurrentView() uint64   { return d.currentView }
func (d *DAG) CurrentBranch() uint64 { return d.currentBranch }

func (d *DAG) View(id uint64) (*View, bool) { v, ok := d.views[id]; return v, ok }

func (d *DAG) Branch(id uint64) (*Branch, bool) { b, ok := d.branches[id]; return b, ok }

func (d *DAG) BranchByName(name string) (*Branch, bool) {
	id, ok := d.branchByName[name]
	if !ok {
		return nil, false
	}
	b, ok := d.branches[id]
	return b, ok
}

// Branches returns all branches in insertion order by id.
func (d *DAG) Branches() []*Branch {
	out := make([]*Branch, 0, len(d.branches))
	for id := uint64(0); id < d.nextBranchID; id++ {
		if b, ok := d.branches[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Views returns all views in creation order.
func (d *DAG) Views() []*View {
	out := make([]*View, 0, len(d.viewOrder))
	for _, id := range d.viewOrder {
		out = append(out, d.views[id])
	}
	return out
}

func (d *DAG) ViewCount() int   { return len(d.views) }
func (d *DAG) BranchCount() int { return len(d.branches) }
func (d *DAG) NextViewID() uint64 { return d.nextViewID }
func (d *DAG) NextBranchID() uint64 { return d.nextBranchID }

// CreateView reserves the next view id, appends it as a child of the
// current view on the current branch, advances the branch head, sets
// current_view, and invalidates the ancestry cache.
func (d *DAG) CreateView(label string) (*View, *Branch, error) {
	branch, ok := d.branches[d.currentBranch]
	if !ok {
		return nil, nil, geoerr.New(geoerr.KindNotFound, "current branch missing")
	}
	id := d.nextViewID
	d.nextViewID++
	v := &View{ID: id, Parent: d.currentView, BranchID: d.currentBranch, Creation: d.now(), Label: label}
	d.views[id] = v
	d.viewOrder = append(d.viewOrder, id)
	branch.HeadView = id
	d.currentView = id
	d.invalidate()
	d.log.Infow("view created", "id", id, "parent", v.Parent, "branch", d.currentBranch, "label", label)
	return v, branch, nil
}

// CreateBranch reserves the next branch id, forking at the current view,
// and switches current_branch to the new id; current_view stays at the
// fork point until the next view creation. Duplicate names
// fail with Exists.
func (d *DAG) CreateBranch(name string) (*Branch, error) {
	if name == "" {
		return nil, geoerr.New(geoerr.KindInvalid, "branch name must not be empty")
	}
	if _, ok := d.branchByName[name]; ok {
		return nil, geoerr.Newf(geoerr.KindExists, "branch %q already exists", name)
	}
	id := d.nextBranchID
	d.nextBranchID++
	b := &Branch{ID: id, BaseView: d.currentView, HeadView: d.currentView, Creation: d.now(), Name: name}
	d.branches[id] = b
	d.branchByName[name] = id
	d.currentBranch = id
	d.invalidate()
	d.log.Infow("branch created", "id", id, "name", name, "base", b.BaseView)
	return b, nil
}

// SwitchBranchByID sets current_branch and current_view to that branch's
// head, invalidating the ancestry cache.
func (d *DAG) SwitchBranchByID(id uint64) (*Branch, error) {
	b, ok := d.branches[id]
	if !ok {
		return nil, geoerr.Newf(geoerr.KindNotFound, "branch %d not found", id)
	}
	d.currentBranch = b.ID
	d.currentView = b.HeadView
	d.invalidate()
	return b, nil
}

// SwitchBranchByName resolves name to an id and switches to it.
func (d *DAG) SwitchBranchByName(name string) (*Branch, error) {
	id, ok := d.branchByName[name]
	if !ok {
		return nil, geoerr.Newf(geoerr.KindNotFound, "branch %q not found", name)
	}
	return d.SwitchBranchByID(id)
}

// SwitchView moves current_view directly to an existing view id without
// changing current_branch, and invalidates the ancestry cache.
func (d *DAG) SwitchView(id uint64) (*View, error) {
	v, ok := d.views[id]
	if !ok {
		return nil, geoerr.Newf(geoerr.KindNotFound, "view %d not found", id)
	}
	d.currentView = id
	d.invalidate()
	return v, nil
}

func (d *DAG) invalidate() { d.ancestry.Purge() }

// Ancestry returns the chain of view ids obtained by following parent
// pointers from view up to the null parent, ordered from view back to
// Genesis. Results are cached per (branch, view) and invalidated on every
// switch/create.
func (d *DAG) Ancestry(branch, view uint64) ([]uint64, error) {
	key := ancestryKey{branch: branch, view: view}
	if cached, ok := d.ancestry.Get(key); ok {
		return cached, nil
	}
	chain := make([]uint64, 0, 8)
	cur := view
	steps := 0
	for cur != NullViewID {
		if steps > MaxAncestryDepth {
			return nil, geoerr.New(geoerr.KindCorrupt, "ancestry walk exceeded max depth; possible cycle")
		}
		v, ok := d.views[cur]
		if !ok {
			return nil, geoerr.Newf(geoerr.KindNotFound, "ancestry references missing view %d", cur)
		}
		chain = append(chain, cur)
		cur = v.Parent
		steps++
	}
	d.ancestry.Add(key, chain)
	return chain, nil
}

// CurrentAncestry is a convenience wrapper for Ancestry(currentBranch, currentView).
func (d *DAG) CurrentAncestry() ([]uint64, error) {
	return d.Ancestry(d.currentBranch, d.currentView)
}

// RestoreView re-inserts a view record exactly as loaded from disk,
// without touching current_view/current_branch or reserving a new id
// (used by persist.Load's index-rebuild pass).
func (d *DAG) RestoreView(v *View) {
	d.views[v.ID] = v
	d.viewOrder = append(d.viewOrder, v.ID)
	if v.ID >= d.nextViewID {
		d.nextViewID = v.ID + 1
	}
}

// RestoreBranch inserts or (last-writer-wins) overwrites a branch record
// loaded from disk.
func (d *DAG) RestoreBranch(b *Branch) {
	d.branches[b.ID] = b
	d.branchByName[b.Name] = b.ID
	if b.ID >= d.nextBranchID {
		d.nextBranchID = b.ID + 1
	}
}

// SetCurrent restores the current (branch, view) position after a load.
func (d *DAG) SetCurrent(branch, view uint64) {
	d.currentBranch = branch
	d.currentView = view
	d.invalidate()
}

// Clear empties the DAG entirely, used by persist.Load to discard the
// synthetic Genesis/main the constructor seeds before replaying the
// records actually found on disk.
func (d *DAG) Clear() {
	d.views = map[uint64]*View{}
	d.viewOrder = nil
	d.branches = map[uint64]*Branch{}
	d.branchByName = map[string]uint64{}
	d.nextViewID = GenesisViewID
	d.nextBranchID = MainBranchID
	d.currentView = 0
	d.currentBranch = 0
	d.invalidate()
}

func (d *DAG) String() string {
	return fmt.Sprintf("dag{views=%d branches=%d current=(%d,%d)}", len(d.views), len(d.branches), d.currentBranch, d.currentView)
}
