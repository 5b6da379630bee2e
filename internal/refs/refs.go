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

// Package refs implements the reference table and visibility resolver:
// path-to-content bindings stamped with a view id, indexed by a
// 256-bucket chained hash map, resolved by walking the current ancestry
// and picking the most recent entry.
package refs

import (
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/content"
	"github.com/erigontech/geologic/internal/region"
	"github.com/erigontech/geologic/internal/wire"
)

// MaxSymlinkHops bounds readlink/resolve recursion.
const MaxSymlinkHops = 40

// Entry is the in-memory form of a ref record.
type Entry struct {
	PathHash uint64
	Path     string
	Digest   content.Digest
	ViewID   uint64
	Creation uint64
	FileType wire.FileType
	Perm     wire.Perm
	OwnerID  uint64
	Hidden   bool
}

// pathHash is the bucket/index hash used over path strings.
func pathHash(p string) uint64 { return xxhash.Sum64String(p) }

func bucketOf(h uint64) byte { return byte(h & 0xFF) }

// Table is the reference table: a 256-bucket chained hash index plus an
// insertion-ordered list for iteration.
type Table struct {
	chain     *region.Chain
	buckets   [256][]*Entry
	order     []*Entry
	ancestors ancestrySource
	log       *zap.SugaredLogger
}

// ancestrySource is the slice of *dag.DAG the ref table needs: the
// current ancestry list for visibility resolution.
type ancestrySource interface {
	CurrentAncestry() ([]uint64, error)
	Ancestry(branch, view uint64) ([]uint64, error)
	CurrentBranch() uint64
	CurrentView() uint64
}

// New creates a ref table backed by chain, consulting d for ancestry.
func New(chain *region.Chain, d ancestrySource, log *zap.SugaredLogger) *Table {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Table{chain: chain, ancestors: d, log: log}
}

// Count returns the total number of ref records ever appended.
func (t *Table) Count() int { return len(t.order) }

// Create appends a new ref record and indexes it in memory.
func (t *Table) Create(e *Entry) error {
	if e.Path == "" {
		return geoerr.New(geoerr.KindInvalid, "ref path must not be empty")
	}
	e.Path = cleanPath(e.Path)
	e.PathHash = pathHash(e.Path)
	rec := &wire.RefRecord{
		PathHash: e.PathHash,
		Digest:   [32]byte(e.Digest),
		ViewID:   e.ViewID,
		Creation: e.Creation,
		FileType: e.FileType,
		Perm:     e.Perm,
		OwnerID:  e.OwnerID,
		Path:     e.Path,
	}
	if e.Hidden {
		rec.Flags |= wire.RefFlagHidden
	}
	if len(e.Path) > wire.PathBufferSize {
		return geoerr.New(geoerr.KindInvalid, "path exceeds maximum length")
	}
	if _, err := t.chain.Append(rec.Marshal()); err != nil {
		return geoerr.Wrap(geoerr.KindFull, err, "append ref record")
	}
	t.index(e)
	t.log.Debugw("ref created", "path", e.Path, "view", e.ViewID, "hidden", e.Hidden)
	return nil
}

func (t *Table) index(e *Entry) {
	b := bucketOf(e.PathHash)
	t.buckets[b] = append(t.buckets[b], e)
	t.order = append(t.order, e)
}

func cleanPath(p string) string {
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// candidatesFor returns all indexed entries for the exact path, regardless
// of ancestry (callers filter further).
func (t *Table) candidatesFor(p string) []*Entry {
	p = cleanPath(p)
	h := pathHash(p)
	b := t.buckets[bucketOf(h)]
	var out []*Entry
	for _, e := range b {
		if e.PathHash == h && e.Path == p {
			out = append(out, e)
		}
	}
	return out
}

// latestVisible picks, among candidates whose ViewID is in the ancestry
// set, the one with the greatest Creation.
func latestVisible(candidates []*Entry, ancestry map[uint64]bool) *Entry {
	var best *Entry
	for _, e := range candidates {
		if !ancestry[e.ViewID] {
			continue
		}
		if best == nil || e.Creation > best.Creation {
			best = e
		}
	}
	return best
}

func toSet(ids []uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// ResolveEntry returns the visible ref.Entry for path p in the current
// (branch, view). If the visible entry is a symlink, it is returned
// wrapped in a *symlinkTarget sentinel (see IsSymlinkTarget) rather than
// followed; the caller (Volume) owns the content store needed to read a
// symlink's target path, and drives the hop-bounded follow loop itself.
func (t *Table) ResolveEntry(p string) (*Entry, error) {
	ancestry, err := t.ancestors.CurrentAncestry()
	if err != nil {
		return nil, err
	}
	set := toSet(ancestry)
	best := latestVisible(t.candidatesFor(p), set)
	if best == nil {
		return nil, geoerr.Newf(geoerr.KindNotFound, "path %q not found", p)
	}
	if best.Hidden {
		return nil, geoerr.Newf(geoerr.KindNotFound, "path %q is hidden", p)
	}
	if best.FileType == wire.FileSymlink {
		return nil, &symlinkTarget{entry: best}
	}
	return best, nil
}

// symlinkTarget is an internal sentinel error used to thread the target
// path back out for recursive resolution without re-reading content here
// (the content store lives one layer up, in the Volume).
type symlinkTarget struct{ entry *Entry }

func (s *symlinkTarget) Error() string { return "symlink: " + s.entry.Path }

// IsSymlinkTarget reports whether err is a pending-symlink sentinel and
// returns the symlink's own entry (whose Digest is the target path's
// content digest, to be read by the caller).
func IsSymlinkTarget(err error) (*Entry, bool) {
	st, ok := err.(*symlinkTarget)
	if !ok {
		return nil, false
	}
	return st.entry, true
}

// DirectChildren returns the visible (non-hidden) entries whose path is a
// direct child of dir: dir/<name> with no further slashes.
func (t *Table) DirectChildren(dir string) ([]*Entry, error) {
	dir = cleanPath(dir)
	ancestry, err := t.ancestors.CurrentAncestry()
	if err != nil {
		return nil, err
	}
	set := toSet(ancestry)
	latest := t.latestPerPath(set)
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	} else {
		prefix = "/"
	}
	var out []*Entry
	for p, e := range latest {
		if e.Hidden {
			continue
		}
		if !strings.HasPrefix(p, prefix) || p == dir {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// latestPerPath collapses the full entry set down to the single latest
// visible entry per distinct path within the given ancestry set.
func (t *Table) latestPerPath(ancestry map[uint64]bool) map[string]*Entry {
	latest := make(map[string]*Entry)
	for _, e := range t.order {
		if !ancestry[e.ViewID] {
			continue
		}
		cur, ok := latest[e.Path]
		if !ok || e.Creation > cur.Creation {
			latest[e.Path] = e
		}
	}
	return latest
}

// LatestPerPathIn collapses the ref table down to the single latest entry
// per distinct path among the given view id set, hidden entries included
// (used by the merge engine to detect divergent changes).
func (t *Table) LatestPerPathIn(ids map[uint64]bool) map[string]*Entry {
	return t.latestPerPath(ids)
}

// AllVisible returns every visible, non-hidden entry in the current
// ancestry (used by recursive listing, grep, and find).
func (t *Table) AllVisible() ([]*Entry, error) {
	ancestry, err := t.ancestors.CurrentAncestry()
	if err != nil {
		return nil, err
	}
	latest := t.latestPerPath(toSet(ancestry))
	out := make([]*Entry, 0, len(latest))
	for _, e := range latest {
		if !e.Hidden {
			out = append(out, e)
		}
	}
	return out, nil
}

// EntriesInRange returns every indexed ref entry whose ViewID is in the
// ids set, in insertion order.
func (t *Table) EntriesInRange(ids map[uint64]bool) []*Entry {
	var out []*Entry
	for _, e := range t.order {
		if ids[e.ViewID] {
			out = append(out, e)
		}
	}
	return out
}

// Restore re-inserts a ref entry loaded from disk without re-appending a
// record.
func (t *Table) Restore(e *Entry) { t.index(e) }

// EntryFromRecord converts a decoded wire.RefRecord into an in-memory Entry.
func EntryFromRecord(rec *wire.RefRecord) *Entry {
	return &Entry{
		PathHash: rec.PathHash,
		Path:     rec.Path,
		Digest:   content.Digest(rec.Digest),
		ViewID:   rec.ViewID,
		Creation: rec.Creation,
		FileType: rec.FileType,
		Perm:     rec.Perm,
		OwnerID:  rec.OwnerID,
		Hidden:   rec.Hidden(),
	}
}

// RebuildIndex re-derives the in-memory ref index by scanning raw ref
// records from the backing region.
func (t *Table) RebuildIndex() error {
	var rebuildErr error
	t.chain.ForEachChunk(func(base uint64, data []byte) {
		if rebuildErr != nil {
			return
		}
		off := uint64(0)
		for off+wire.RefRecordSize <= uint64(len(data)) {
			rec, err := wire.UnmarshalRefRecord(data[off : off+wire.RefRecordSize])
			if err != nil {
				rebuildErr = err
				return
			}
			t.index(EntryFromRecord(rec))
			off += wire.RefRecordSize
		}
	})
	return rebuildErr
}
