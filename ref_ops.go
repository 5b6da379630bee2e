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
	"path"
	"strings"

	"github.com/holiman/uint256"

	"github.com/erigontech/geologic/geoerr"
	"github.com/erigontech/geologic/internal/access"
	"github.com/erigontech/geologic/internal/content"
	"github.com/erigontech/geologic/internal/refs"
	"github.com/erigontech/geologic/internal/wire"
)

// resolvePath performs the full visibility resolve for a path,
// including hop-bounded symlink following: refs.Table stops at the first
// symlink (it has no content store), so this loop reads the target path's
// bytes here and re-resolves.
func (v *Volume) resolvePath(path string) (*refs.Entry, error) {
	cur := path
	for hops := 0; ; hops++ {
		if hops > v.opts.MaxSymlinkHops {
			return nil, geoerr.New(geoerr.KindSymLoop, "symlink chain exceeded hop limit")
		}
		v.lookupCount++
		entry, err := v.refs.ResolveEntry(cur)
		if err == nil {
			return entry, nil
		}
		target, ok := refs.IsSymlinkTarget(err)
		if !ok {
			return nil, err
		}
		targetBytes, rerr := v.content.Read(target.Digest)
		if rerr != nil {
			return nil, geoerr.Wrap(geoerr.KindCorrupt, rerr, "read symlink target")
		}
		cur = string(targetBytes)
	}
}

func (v *Volume) quotaUsage() access.Usage {
	return access.Usage{
		ContentBytes: uint256.NewInt(v.contentBytesStored()),
		RefCount:     uint64(v.refs.Count()),
		ViewCount:    uint64(v.dag.ViewCount()),
	}
}

// checkWrite is the preflight every ref-creating operation runs before
// any byte lands: resolve the existing target (if any), gate, quota.
func (v *Volume) checkWrite(path string, addContentBytes uint64) error {
	if err := v.gate.Check(asPermEntry(v.visibleEntry(path)), wire.PermWrite); err != nil {
		return err
	}
	return v.quotas.Check(v.dag.CurrentBranch(), v.quotaUsage(), addContentBytes, 1, 0)
}

// appendRef appends a ref record in the current view. Callers must have
// run checkWrite first.
//
// A freshly-forked branch sits at its fork view, which belongs to the
// parent branch; writing into it would leak the ref into the parent's
// ancestry. So the first write on a branch whose current view it does not
// own creates a view on that branch first.
func (v *Volume) appendRef(path string, digest content.Digest, ft wire.FileType, perm wire.Perm, owner uint64, hidden bool) error {
	if err := v.ensureOwnView(); err != nil {
		return err
	}
	return v.refs.Create(&refs.Entry{
		Path: path, Digest: digest, ViewID: v.dag.CurrentView(), Creation: v.clock(),
		FileType: ft, Perm: perm, OwnerID: owner, Hidden: hidden,
	})
}

func (v *Volume) ensureOwnView() error {
	cur, ok := v.dag.View(v.dag.CurrentView())
	if ok && cur.BranchID == v.dag.CurrentBranch() {
		return nil
	}
	b, ok := v.dag.Branch(v.dag.CurrentBranch())
	if !ok {
		return geoerr.New(geoerr.KindNotFound, "current branch missing")
	}
	_, err := v.ViewCreate("Fork: " + b.Name)
	return err
}

// FileWrite stores data and binds path to it in the current view.
// perm/owner default to a permissive regular-file ref when zero.
func (v *Volume) FileWrite(path string, data []byte, perm wire.Perm, owner uint64) error {
	if perm == 0 {
		perm = wire.PermRead | wire.PermWrite
	}
	addBytes := uint64(len(data))
	if v.content.Has(content.DigestOf(data)) {
		addBytes = 0
	}
	if err := v.checkWrite(path, addBytes); err != nil {
		return err
	}
	digest, err := v.content.Store(data)
	if err != nil {
		return err
	}
	return v.appendRef(path, digest, wire.FileRegular, perm, owner, false)
}

// FileRead resolves path and returns its content bytes.
func (v *Volume) FileRead(path string) ([]byte, error) {
	e, err := v.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if e.FileType == wire.FileDirectory {
		return nil, geoerr.Newf(geoerr.KindIsDir, "%q is a directory", path)
	}
	if err := v.gate.Check(asPermEntry(e), wire.PermRead); err != nil {
		return nil, err
	}
	return v.content.Read(e.Digest)
}

// FileSize resolves path and returns its content size without reading bytes.
func (v *Volume) FileSize(path string) (uint64, error) {
	e, err := v.resolvePath(path)
	if err != nil {
		return 0, err
	}
	return v.content.Size(e.Digest)
}

// FileAppend reads the current content at path, appends data, and writes
// the result back as a new ref.
func (v *Volume) FileAppend(path string, data []byte) error {
	e, err := v.resolvePath(path)
	if err != nil {
		return err
	}
	cur, err := v.content.Read(e.Digest)
	if err != nil {
		return err
	}
	joined := append(append([]byte{}, cur...), data...)
	return v.FileWrite(path, joined, e.Perm, e.OwnerID)
}

// Mkdir creates a directory-marker ref at path.
func (v *Volume) Mkdir(path string, perm wire.Perm, owner uint64) error {
	if existing := v.visibleEntry(path); existing != nil {
		if existing.FileType == wire.FileDirectory {
			return geoerr.Newf(geoerr.KindExists, "directory %q already exists", path)
		}
		return geoerr.Newf(geoerr.KindExists, "path %q already exists", path)
	}
	if err := v.checkWrite(path, 0); err != nil {
		return err
	}
	digest, err := v.content.Store([]byte(wire.DirectorySentinel))
	if err != nil {
		return err
	}
	return v.appendRef(path, digest, wire.FileDirectory, perm, owner, false)
}

// Symlink creates a symlink ref at path whose content is the target path
// string.
func (v *Volume) Symlink(path, target string, owner uint64) error {
	addBytes := uint64(len(target))
	if v.content.Has(content.DigestOf([]byte(target))) {
		addBytes = 0
	}
	if err := v.checkWrite(path, addBytes); err != nil {
		return err
	}
	digest, err := v.content.Store([]byte(target))
	if err != nil {
		return err
	}
	return v.appendRef(path, digest, wire.FileSymlink, wire.PermRead|wire.PermWrite, owner, false)
}

// Readlink returns the raw target string of the symlink at path, without
// following it.
func (v *Volume) Readlink(path string) (string, error) {
	e, err := v.refs.ResolveEntry(path)
	if err != nil {
		if target, ok := refs.IsSymlinkTarget(err); ok {
			e = target
		} else {
			return "", err
		}
	}
	if e.FileType != wire.FileSymlink {
		return "", geoerr.Newf(geoerr.KindInvalid, "%q is not a symlink", path)
	}
	b, err := v.content.Read(e.Digest)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Hardlink creates a second path bound to the same content digest as
// src; the two refs share one stored blob.
func (v *Volume) Hardlink(src, dst string) error {
	e, err := v.resolvePath(src)
	if err != nil {
		return err
	}
	if e.FileType == wire.FileDirectory {
		return geoerr.New(geoerr.KindIsDir, "cannot hardlink a directory")
	}
	if err := v.checkWrite(dst, 0); err != nil {
		return err
	}
	return v.appendRef(dst, e.Digest, e.FileType, e.Perm, e.OwnerID, false)
}

// Copy duplicates the content at src into a new ref at dst. Unlike
// Hardlink this re-resolves src's bytes through the content store, which
// naturally dedups if dst already shares the same bytes elsewhere.
func (v *Volume) Copy(src, dst string) error {
	data, err := v.FileRead(src)
	if err != nil {
		return err
	}
	e, _ := v.resolvePath(src)
	return v.FileWrite(dst, data, e.Perm, e.OwnerID)
}

// Rename binds dst to src's content/metadata and hides src.
func (v *Volume) Rename(src, dst string) error {
	if v.visibleEntry(dst) != nil {
		return geoerr.Newf(geoerr.KindExists, "rename target %q already exists", dst)
	}
	e, err := v.resolvePath(src)
	if err != nil {
		return err
	}
	if err := v.checkWrite(dst, 0); err != nil {
		return err
	}
	if err := v.appendRef(dst, e.Digest, e.FileType, e.Perm, e.OwnerID, false); err != nil {
		return err
	}
	return v.Hide(src)
}

// Hide suppresses a path from the current position onward: a new view
// labelled "Hide: P" is created and a hidden marker ref with an all-zero
// digest is appended in it, so every earlier view still resolves the
// pre-hidden content.
func (v *Volume) Hide(p string) error {
	target := v.visibleEntry(p)
	if target == nil {
		return geoerr.Newf(geoerr.KindNotFound, "path %q not found", p)
	}
	if err := v.checkWrite(p, 0); err != nil {
		return err
	}
	if _, err := v.ViewCreate("Hide: " + p); err != nil {
		return err
	}
	return v.appendRef(p, content.ZeroDigest, target.FileType, target.Perm, target.OwnerID, true)
}

// Chmod updates the permission bits of path with a new ref record.
func (v *Volume) Chmod(path string, perm wire.Perm) error {
	e, err := v.resolvePath(path)
	if err != nil {
		return err
	}
	if err := v.checkWrite(path, 0); err != nil {
		return err
	}
	return v.appendRef(path, e.Digest, e.FileType, perm, e.OwnerID, false)
}

// Chown updates the owner id of path with a new ref record.
func (v *Volume) Chown(path string, owner uint64) error {
	e, err := v.resolvePath(path)
	if err != nil {
		return err
	}
	if err := v.checkWrite(path, 0); err != nil {
		return err
	}
	return v.appendRef(path, e.Digest, e.FileType, e.Perm, owner, false)
}

// StatResult is the full metadata returned by Stat.
type StatResult struct {
	Path     string
	Digest   content.Digest
	ViewID   uint64
	Creation uint64
	FileType wire.FileType
	Perm     wire.Perm
	OwnerID  uint64
	Size     uint64
}

// Stat resolves path (following symlinks) and returns its full metadata.
func (v *Volume) Stat(path string) (*StatResult, error) {
	e, err := v.resolvePath(path)
	if err != nil {
		return nil, err
	}
	size, err := v.content.Size(e.Digest)
	if err != nil {
		return nil, err
	}
	return &StatResult{Path: e.Path, Digest: e.Digest, ViewID: e.ViewID, Creation: e.Creation, FileType: e.FileType, Perm: e.Perm, OwnerID: e.OwnerID, Size: size}, nil
}

// checkDir rejects listing through a path that resolves to a
// non-directory. An absent dir is fine: the root and purely-virtual
// parents have no marker ref of their own.
func (v *Volume) checkDir(dir string) error {
	if e := v.visibleEntry(dir); e != nil && e.FileType != wire.FileDirectory {
		return geoerr.Newf(geoerr.KindNotDir, "%q is not a directory", dir)
	}
	return nil
}

// ListDirect returns the direct (non-recursive) children of dir.
func (v *Volume) ListDirect(dir string) ([]*StatResult, error) {
	if err := v.checkDir(dir); err != nil {
		return nil, err
	}
	entries, err := v.refs.DirectChildren(dir)
	if err != nil {
		return nil, err
	}
	return v.statAll(entries)
}

// ListRecursive descends into child directories, returning every visible
// non-hidden descendant of dir.
func (v *Volume) ListRecursive(dir string) ([]*StatResult, error) {
	if err := v.checkDir(dir); err != nil {
		return nil, err
	}
	var out []*refs.Entry
	var walk func(d string) error
	walk = func(d string) error {
		children, err := v.refs.DirectChildren(d)
		if err != nil {
			return err
		}
		for _, c := range children {
			out = append(out, c)
			if c.FileType == wire.FileDirectory {
				if err := walk(c.Path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(dir); err != nil {
		return nil, err
	}
	return v.statAll(out)
}

func (v *Volume) statAll(entries []*refs.Entry) ([]*StatResult, error) {
	out := make([]*StatResult, 0, len(entries))
	for _, e := range entries {
		size, err := v.content.Size(e.Digest)
		if err != nil {
			return nil, err
		}
		out = append(out, &StatResult{Path: e.Path, Digest: e.Digest, ViewID: e.ViewID, Creation: e.Creation, FileType: e.FileType, Perm: e.Perm, OwnerID: e.OwnerID, Size: size})
	}
	return out, nil
}

// FindByPattern returns every visible path matching a shell-style glob
// pattern.
func (v *Volume) FindByPattern(pattern string) ([]*StatResult, error) {
	all, err := v.refs.AllVisible()
	if err != nil {
		return nil, err
	}
	var matched []*refs.Entry
	for _, e := range all {
		ok, err := pathMatch(pattern, e.Path)
		if err != nil {
			return nil, geoerr.Wrap(geoerr.KindInvalid, err, "bad glob pattern")
		}
		if ok {
			matched = append(matched, e)
		}
	}
	return v.statAll(matched)
}

// pathMatch reports whether name matches a shell-style glob pattern
// against its final path element, falling back to a full-path match if
// the pattern contains a slash.
func pathMatch(pattern, name string) (bool, error) {
	if strings.Contains(pattern, "/") {
		return path.Match(pattern, name)
	}
	return path.Match(pattern, path.Base(name))
}

// GrepMatch is one line-level content hit.
type GrepMatch struct {
	Path string
	Line int
	Text string
}

// Grep scans every visible regular file's content for substring needle,
// line by line.
func (v *Volume) Grep(needle string) ([]GrepMatch, error) {
	all, err := v.refs.AllVisible()
	if err != nil {
		return nil, err
	}
	var out []GrepMatch
	for _, e := range all {
		if e.FileType != wire.FileRegular {
			continue
		}
		data, err := v.content.Read(e.Digest)
		if err != nil {
			return nil, err
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, needle) {
				out = append(out, GrepMatch{Path: e.Path, Line: i + 1, Text: line})
			}
		}
	}
	return out, nil
}
