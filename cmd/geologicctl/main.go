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

// Command geologicctl is a single-binary inspector and driver for a
// Geologic volume backed by a plain disk file. Every subcommand opens
// the backing file, loads (or creates) the volume, and applies one
// operation; subcommands that change the volume save before exiting,
// read-only ones do not write back. geologicctl never holds a volume
// open across invocations.
package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	geologic "github.com/erigontech/geologic"
	"github.com/erigontech/geologic/geoerr"
)

var (
	diskPath    string
	minSectors  uint64
	verbose     bool
	rootLogger  *zap.SugaredLogger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "geologicctl:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "geologicctl",
	Short: "Inspect and drive a Geologic append-only volume",
	Long: `geologicctl opens a disk-backed Geologic volume and applies a single
operation per invocation: write or read a file, walk the view/branch
graph, merge branches, or print volume-wide stats.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewDevelopmentConfig()
		if !verbose {
			cfg.Level.SetLevel(zap.WarnLevel)
		}
		logger, err := cfg.Build()
		if err != nil {
			return err
		}
		rootLogger = logger.Sugar()
		return nil
	},
}

func addDiskFlags(fs *pflag.FlagSet) {
	fs.StringVar(&diskPath, "disk", "geologic.vol", "path to the backing disk file")
	fs.Uint64Var(&minSectors, "sectors", 1<<16, "minimum disk size in sectors when creating")
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func init() {
	addDiskFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(createCmd, statsCmd, writeCmd, readCmd, statCmd, lsCmd, mkdirCmd,
		branchCmd, viewCmd, mergeCmd, quotaCmd)

	branchCmd.AddCommand(branchCreateCmd, branchSwitchCmd, branchListCmd)
	viewCmd.AddCommand(viewCreateCmd, viewListCmd)
	quotaCmd.AddCommand(quotaSetCmd, quotaUsageCmd)
}

func openDisk() (*geologic.FileDisk, error) {
	return geologic.OpenFileDisk(diskPath, minSectors)
}

func openOrCreate() (*geologic.Volume, *geologic.FileDisk, error) {
	disk, err := openDisk()
	if err != nil {
		return nil, nil, err
	}
	opts := geologic.Options{Logger: rootLogger}
	v, err := geologic.Load(disk, 0, opts)
	if err != nil {
		if k, ok := geoerr.KindOf(err); ok && k == geoerr.KindCorrupt {
			v = geologic.Create(opts)
		} else {
			disk.Close()
			return nil, nil, err
		}
	}
	return v, disk, nil
}

func closeSaving(v *geologic.Volume, disk *geologic.FileDisk) error {
	if err := v.Save(disk, 0); err != nil {
		disk.Close()
		return err
	}
	return disk.Close()
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a fresh volume on the backing disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := openDisk()
		if err != nil {
			return err
		}
		v := geologic.Create(geologic.Options{Logger: rootLogger})
		if err := closeSaving(v, disk); err != nil {
			return err
		}
		fmt.Println("created", diskPath)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print volume-wide counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		s := v.Stats()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"counter", "value"})
		t.AppendRows([]table.Row{
			{"current_view", s.CurrentView},
			{"current_branch", s.CurrentBranch},
			{"view_count", s.ViewCount},
			{"branch_count", s.BranchCount},
			{"ref_count", s.RefCount},
			{"content_bytes", s.ContentBytes},
			{"dedup_hits", s.DedupHits},
			{"lookup_count", s.LookupCount},
		})
		t.Render()
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <path> <data>",
	Short: "Write data to path in the current view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		if err := v.FileWrite(args[0], []byte(args[1]), geologic.PermRead|geologic.PermWrite, 0); err != nil {
			disk.Close()
			return err
		}
		return closeSaving(v, disk)
	},
}

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print path's content bytes to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		data, err := v.FileRead(args[0])
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Print full metadata for path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		st, err := v.Stat(args[0])
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"field", "value"})
		t.AppendRows([]table.Row{
			{"path", st.Path}, {"type", st.FileType}, {"size", st.Size},
			{"perm", st.Perm}, {"owner", st.OwnerID}, {"view", st.ViewID}, {"digest", fmt.Sprintf("%x", st.Digest)},
		})
		t.Render()
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <dir>",
	Short: "List direct children of dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		entries, err := v.ListDirect(args[0])
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"path", "type", "size"})
		for _, e := range entries {
			t.AppendRow(table.Row{e.Path, e.FileType, e.Size})
		}
		t.Render()
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory marker ref",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		if err := v.Mkdir(args[0], geologic.PermRead|geologic.PermWrite|geologic.PermExecute, 0); err != nil {
			disk.Close()
			return err
		}
		return closeSaving(v, disk)
	},
}

var branchCmd = &cobra.Command{Use: "branch", Short: "Branch operations"}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Fork a new branch at the current view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		b, err := v.BranchCreate(args[0])
		if err != nil {
			disk.Close()
			return err
		}
		if err := closeSaving(v, disk); err != nil {
			return err
		}
		fmt.Printf("branch %d %q created at view %d\n", b.ID, b.Name, b.HeadView)
		return nil
	},
}

var branchSwitchCmd = &cobra.Command{
	Use:   "switch <name>",
	Short: "Switch the current branch by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		b, err := v.BranchSwitchByName(args[0])
		if err != nil {
			disk.Close()
			return err
		}
		if err := closeSaving(v, disk); err != nil {
			return err
		}
		fmt.Printf("switched to branch %d %q (view %d)\n", b.ID, b.Name, b.HeadView)
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"id", "name", "base", "head"})
		for _, b := range v.BranchList() {
			t.AppendRow(table.Row{b.ID, b.Name, b.BaseView, b.HeadView})
		}
		t.Render()
		return nil
	},
}

var viewCmd = &cobra.Command{Use: "view", Short: "View operations"}

var viewCreateCmd = &cobra.Command{
	Use:   "create <label>",
	Short: "Create a new view as a child of the current view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		info, err := v.ViewCreate(args[0])
		if err != nil {
			disk.Close()
			return err
		}
		if err := closeSaving(v, disk); err != nil {
			return err
		}
		fmt.Printf("view %d %q created (parent %d)\n", info.ID, info.Label, info.Parent)
		return nil
	},
}

var viewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every view",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"id", "label", "parent", "branch"})
		for _, vw := range v.ViewList() {
			t.AppendRow(table.Row{vw.ID, vw.Label, vw.Parent, vw.BranchID})
		}
		t.Render()
		return nil
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <source-branch-id>",
	Short: "Merge a branch into the current branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sourceID uint64
		if _, err := fmt.Sscanf(args[0], "%d", &sourceID); err != nil {
			return geoerr.Wrap(geoerr.KindInvalid, err, "parse source branch id")
		}
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		result, mergeErr := v.BranchMerge(sourceID)
		if saveErr := closeSaving(v, disk); saveErr != nil && mergeErr == nil {
			return saveErr
		}
		if result != nil {
			fmt.Printf("merge view %d: applied %d, conflicts %d\n", result.MergeViewID, result.AppliedCount, result.ConflictCount)
		}
		if mergeErr != nil {
			return mergeErr
		}
		return nil
	},
}

var quotaCmd = &cobra.Command{Use: "quota", Short: "Quota operations"}

var quotaSetCmd = &cobra.Command{
	Use:   "set <scope> <max-content-bytes> <max-refs> <max-views>",
	Short: "Install a quota record for scope",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		var scope, maxBytes, maxRefs, maxViews uint64
		if _, err := fmt.Sscanf(args[0]+" "+args[1]+" "+args[2]+" "+args[3], "%d %d %d %d", &scope, &maxBytes, &maxRefs, &maxViews); err != nil {
			return geoerr.Wrap(geoerr.KindInvalid, err, "parse quota arguments")
		}
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		if err := v.QuotaSet(scope, maxBytes, maxRefs, maxViews); err != nil {
			disk.Close()
			return err
		}
		return closeSaving(v, disk)
	},
}

var quotaUsageCmd = &cobra.Command{
	Use:   "usage <scope>",
	Short: "Print current usage against scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var scope uint64
		if _, err := fmt.Sscanf(args[0], "%d", &scope); err != nil {
			return geoerr.Wrap(geoerr.KindInvalid, err, "parse scope")
		}
		v, disk, err := openOrCreate()
		if err != nil {
			return err
		}
		defer disk.Close()
		u := v.QuotaUsage(scope)
		fmt.Printf("content_bytes=%s ref_count=%d view_count=%d\n", u.ContentBytes.String(), u.RefCount, u.ViewCount)
		return nil
	},
}
