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

package geologic_test

import (
	"bytes"
	"errors"
	"testing"

	"pgregory.net/rapid"

	geologic "github.com/erigontech/geologic"
	"github.com/erigontech/geologic/geoerr"
)

// TestVisibilityModel drives a volume through random writes, hides, and
// view creations on a single branch, mirroring the expected state in a
// plain map: after every step each live path must read back its latest
// bytes and each hidden path must be NotFound.
func TestVisibilityModel(t *testing.T) {
	paths := []string{"/a", "/b", "/c/d", "/c/e", "/f"}

	rapid.Check(t, func(t *rapid.T) {
		v := geologic.Create(geologic.Options{})
		model := map[string][]byte{}

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			p := rapid.SampledFrom(paths).Draw(t, "path")
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0, 1: // write dominates
				data := rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "data")
				if err := v.FileWrite(p, data, 0, 0); err != nil {
					t.Fatalf("write %s: %v", p, err)
				}
				model[p] = data
			case 2: // hide, if present
				if _, ok := model[p]; !ok {
					continue
				}
				if err := v.Hide(p); err != nil {
					t.Fatalf("hide %s: %v", p, err)
				}
				delete(model, p)
			case 3:
				if _, err := v.ViewCreate("checkpoint"); err != nil {
					t.Fatalf("view create: %v", err)
				}
			}
		}

		for _, p := range paths {
			data, err := v.FileRead(p)
			want, ok := model[p]
			if !ok {
				if err == nil {
					t.Fatalf("%s should not resolve", p)
				}
				if !errors.Is(err, geoerr.NotFound) {
					t.Fatalf("%s: want NotFound, got %v", p, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("read %s: %v", p, err)
			}
			if !bytes.Equal(data, want) {
				t.Fatalf("%s: read-back mismatch", p)
			}
		}
	})
}

// TestSaveLoadModel extends the model check across a save/load cycle:
// whatever was visible before persisting must be visible, byte-identical,
// after reload.
func TestSaveLoadModel(t *testing.T) {
	paths := []string{"/x", "/y", "/z"}

	rapid.Check(t, func(t *rapid.T) {
		v := geologic.Create(geologic.Options{})
		model := map[string][]byte{}

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			p := rapid.SampledFrom(paths).Draw(t, "path")
			data := rapid.SliceOfN(rapid.Byte(), 1, 512).Draw(t, "data")
			if err := v.FileWrite(p, data, 0, 0); err != nil {
				t.Fatalf("write: %v", err)
			}
			model[p] = data
		}

		disk := geologic.NewMemDisk(1)
		if err := v.Save(disk, 0); err != nil {
			t.Fatalf("save: %v", err)
		}
		loaded, err := geologic.Load(disk, 0, geologic.Options{})
		if err != nil {
			t.Fatalf("load: %v", err)
		}

		for p, want := range model {
			got, err := loaded.FileRead(p)
			if err != nil {
				t.Fatalf("read %s after load: %v", p, err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("%s: bytes changed across save/load", p)
			}
		}
	})
}
