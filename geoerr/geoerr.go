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

// Package geoerr defines the engine's stable, closed error taxonomy.
//
// Every operation that can fail returns one of these kinds, wrapped with
// context via Wrap/New. Callers compare with errors.Is against the
// per-kind sentinels (Invalid, NotFound, ..., ConflictErr); KindOf
// extracts the taxonomy member for switch-style handling.
package geoerr

import (
	"errors"
	"fmt"
)

// Kind is a member of the stable error taxonomy.
type Kind int

const (
	// KindInvalid indicates a null or out-of-range input.
	KindInvalid Kind = iota + 1
	// KindNotFound indicates a path, view, branch, or digest absent in
	// the current ancestry.
	KindNotFound
	// KindExists indicates a duplicate branch name, rename target exists,
	// or mkdir on an existing path.
	KindExists
	// KindFull indicates a region cannot grow further.
	KindFull
	// KindCorrupt indicates a bad on-disk magic, header/data mismatch,
	// truncated record, or failed decompression.
	KindCorrupt
	// KindIsDir indicates an operation refused because the target is a
	// directory.
	KindIsDir
	// KindNotDir indicates an operation refused because the target is
	// not a directory.
	KindNotDir
	// KindPermission indicates the access gate denied the caller.
	KindPermission
	// KindQuota indicates a limit would be exceeded.
	KindQuota
	// KindConflict indicates a merge saw divergent content for the same
	// path.
	KindConflict
	// KindSymLoop indicates a symlink chain exceeded the hop bound.
	KindSymLoop
	// KindIO indicates an underlying sector operation failed.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindNotFound:
		return "NotFound"
	case KindExists:
		return "Exists"
	case KindFull:
		return "Full"
	case KindCorrupt:
		return "Corrupt"
	case KindIsDir:
		return "IsDir"
	case KindNotDir:
		return "NotDir"
	case KindPermission:
		return "Permission"
	case KindQuota:
		return "Quota"
	case KindConflict:
		return "Conflict"
	case KindSymLoop:
		return "SymLoop"
	case KindIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every engine operation.
type Error struct {
	K       Kind
	Message string
	Cause   error

	// ConflictCount is populated only for KindConflict.
	ConflictCount int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.K, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.K, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, geoerr.NotFound) etc. work against sentinels
// produced by this package, matching on Kind rather than identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.K == t.K
	}
	return false
}

// New builds a bare error of the given kind.
func New(k Kind, msg string) error {
	return &Error{K: k, Message: msg}
}

// Newf builds a bare error of the given kind with a formatted message.
func Newf(k Kind, format string, args ...any) error {
	return &Error{K: k, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(k Kind, cause error, msg string) error {
	return &Error{K: k, Message: msg, Cause: cause}
}

// Conflict builds the one error kind that carries extra data.
func Conflict(count int, msg string) error {
	return &Error{K: KindConflict, Message: msg, ConflictCount: count}
}

// sentinels used purely for errors.Is comparisons against a kind,
// independent of message text.
var (
	Invalid    = &Error{K: KindInvalid}
	NotFound   = &Error{K: KindNotFound}
	Exists     = &Error{K: KindExists}
	Full       = &Error{K: KindFull}
	Corrupt    = &Error{K: KindCorrupt}
	IsDir      = &Error{K: KindIsDir}
	NotDir     = &Error{K: KindNotDir}
	Permission = &Error{K: KindPermission}
	Quota      = &Error{K: KindQuota}
	ConflictErr = &Error{K: KindConflict}
	SymLoop    = &Error{K: KindSymLoop}
	IO         = &Error{K: KindIO}
)

// KindOf extracts the Kind from err, ok=false if err is not a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.K, true
	}
	return 0, false
}

// ConflictCountOf extracts the conflict count from a KindConflict error.
func ConflictCountOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.ConflictCount
	}
	return 0
}
