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

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	geologic "github.com/erigontech/geologic"
	"github.com/erigontech/geologic/geoerr"
)

func init() {
	rootCmd.AddCommand(hideCmd, renameCmd, copyCmd, appendCmd, findCmd, grepCmd,
		symlinkCmd, readlinkCmd, hardlinkCmd, exportCmd, importCmd)
	viewCmd.AddCommand(viewSwitchCmd, viewDiffCmd)
	branchCmd.AddCommand(branchDiffCmd)
	quotaCmd.AddCommand(quotaGetCmd)
}

// mutating runs op against the volume and saves on success; read-only
// commands use inspecting instead and never write the disk back.
func mutating(op func(v *geologic.Volume) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		if err := op(v); err != nil {
			disk.Close()
			return err
		}
		return closeSaving(v, disk)
	}
}

func inspecting(op func(v *geologic.Volume) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		return op(v)
	}
}

func parseU64(s, what string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, geoerr.Wrap(geoerr.KindInvalid, err, "parse "+what)
	}
	return n, nil
}

var hideCmd = &cobra.Command{
	Use:   "hide <path>",
	Short: "Hide a path from the current view onward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutating(func(v *geologic.Volume) error {
			return v.Hide(args[0])
		})(cmd, args)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <src> <dst>",
	Short: "Rename src to dst (src is hidden, dst gets its content)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutating(func(v *geologic.Volume) error {
			return v.Rename(args[0], args[1])
		})(cmd, args)
	},
}

var copyCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy src's content to a new ref at dst",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutating(func(v *geologic.Volume) error {
			return v.Copy(args[0], args[1])
		})(cmd, args)
	},
}

var appendCmd = &cobra.Command{
	Use:   "append <path> <data>",
	Short: "Append data to path's current content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutating(func(v *geologic.Volume) error {
			return v.FileAppend(args[0], []byte(args[1]))
		})(cmd, args)
	},
}

var symlinkCmd = &cobra.Command{
	Use:   "symlink <path> <target>",
	Short: "Create a symlink at path pointing at target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutating(func(v *geologic.Volume) error {
			return v.Symlink(args[0], args[1], 0)
		})(cmd, args)
	},
}

var readlinkCmd = &cobra.Command{
	Use:   "readlink <path>",
	Short: "Print a symlink's target without following it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspecting(func(v *geologic.Volume) error {
			target, err := v.Readlink(args[0])
			if err != nil {
				return err
			}
			fmt.Println(target)
			return nil
		})(cmd, args)
	},
}

var hardlinkCmd = &cobra.Command{
	Use:   "hardlink <src> <dst>",
	Short: "Bind dst to the same content digest as src",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutating(func(v *geologic.Volume) error {
			return v.Hardlink(args[0], args[1])
		})(cmd, args)
	},
}

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "List visible paths matching a glob pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspecting(func(v *geologic.Volume) error {
			entries, err := v.FindByPattern(args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Println(e.Path)
			}
			return nil
		})(cmd, args)
	},
}

var grepCmd = &cobra.Command{
	Use:   "grep <needle>",
	Short: "Search visible file contents line by line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspecting(func(v *geologic.Volume) error {
			matches, err := v.Grep(args[0])
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Printf("%s:%d:%s\n", m.Path, m.Line, m.Text)
			}
			return nil
		})(cmd, args)
	},
}

var viewSwitchCmd = &cobra.Command{
	Use:   "switch <view-id>",
	Short: "Move the current position to an existing view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseU64(args[0], "view id")
		if err != nil {
			return err
		}
		return mutating(func(v *geologic.Volume) error {
			info, err := v.ViewSwitch(id)
			if err != nil {
				return err
			}
			fmt.Printf("now at view %d %q\n", info.ID, info.Label)
			return nil
		})(cmd, args)
	},
}

var viewDiffCmd = &cobra.Command{
	Use:   "diff <from-view> <to-view>",
	Short: "Show path-level differences between two views",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseU64(args[0], "from view")
		if err != nil {
			return err
		}
		to, err := parseU64(args[1], "to view")
		if err != nil {
			return err
		}
		return inspecting(func(v *geologic.Volume) error {
			diff, err := v.ViewDiff(from, to)
			if err != nil {
				return err
			}
			renderDiff(diff)
			return nil
		})(cmd, args)
	},
}

var branchDiffCmd = &cobra.Command{
	Use:   "diff <from-branch-id> <to-branch-id>",
	Short: "Show path-level differences between two branch heads",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseU64(args[0], "from branch")
		if err != nil {
			return err
		}
		to, err := parseU64(args[1], "to branch")
		if err != nil {
			return err
		}
		return inspecting(func(v *geologic.Volume) error {
			diff, err := v.BranchDiff(from, to)
			if err != nil {
				return err
			}
			renderDiff(diff)
			return nil
		})(cmd, args)
	},
}

func renderDiff(diff []geologic.ViewDiffEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"path", "kind", "from", "to"})
	for _, d := range diff {
		t.AppendRow(table.Row{d.Path, d.Kind, d.FromID, d.ToID})
	}
	t.Render()
}

var quotaGetCmd = &cobra.Command{
	Use:   "get <scope>",
	Short: "Print the quota record installed for scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := parseU64(args[0], "scope")
		if err != nil {
			return err
		}
		return inspecting(func(v *geologic.Volume) error {
			q, ok := v.QuotaGet(scope)
			if !ok {
				return geoerr.Newf(geoerr.KindNotFound, "no quota for scope %d", scope)
			}
			fmt.Printf("max_content_bytes=%d max_refs=%d max_views=%d\n",
				q.MaxContentBytes, q.MaxRefCount, q.MaxViewCount)
			return nil
		})(cmd, args)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <path> <raw-file>",
	Short: "Export a file's content to a separate raw-sector file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspecting(func(v *geologic.Volume) error {
			raw, err := geologic.OpenFileDisk(args[1], 1)
			if err != nil {
				return err
			}
			defer raw.Close()
			sectors, err := v.ExportFile(raw, 0, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("exported %d sector(s) to %s\n", sectors, args[1])
			return nil
		})(cmd, args)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <raw-file> <path>",
	Short: "Import a raw-sector file's content as a new file at path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutating(func(v *geologic.Volume) error {
			raw, err := geologic.OpenFileDisk(args[0], 1)
			if err != nil {
				return err
			}
			defer raw.Close()
			return v.ImportFile(raw, 0, args[1], 0, 0)
		})(cmd, args)
	},
}
