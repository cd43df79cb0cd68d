package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/colorfulnotion/raid6/common"
	"github.com/colorfulnotion/raid6/erasurecoding"
	"github.com/colorfulnotion/raid6/log"
	"github.com/spf13/cobra"
)

func writeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write <name> [file]",
		Short: "Stripe a file (or stdin) across the array",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			var err error
			if len(args) == 2 && args[1] != "-" {
				payload, err = os.ReadFile(args[1])
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			health, err := a.array.Write(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d bytes across %d disks (%s)\n", args[0], len(payload), a.array.Disks(), colorHealth(health))
			return nil
		},
	}
}

func readCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <name> [file]",
		Short: "Read an object back, reconstructing unavailable disks",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, health, err := a.array.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			log.Info(log.CLIMonitoring, "read", "name", args[0], "size", len(payload), "health", health)
			if len(args) == 2 && args[1] != "-" {
				return os.WriteFile(args[1], payload, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(payload)
			return err
		},
	}
}

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>",
		Short: "Recompute P and Q and compare with the stored parity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.array.Check(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: parity %sOK%s\n", args[0], common.ColorGreen, common.ColorReset)
			return nil
		},
	}
}

func detectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <name>",
		Short: "Locate a single silently corrupted disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			disk, err := a.array.Detect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if disk == erasurecoding.NoCorruption {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no corruption\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %sdisk %d (%s) is corrupted%s\n", args[0], common.ColorRed, disk, a.array.Role(disk), common.ColorReset)
			return nil
		},
	}
}

func repairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <name>",
		Short: "Rebuild unavailable, stale or corrupted disks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.array.Repair(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !report.Repaired() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing to repair\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: rebuilt disks %v (was %s)\n", args[0], report.Rebuilt, colorHealth(report.Before))
			return nil
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show per-disk availability of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.array.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusTree(st).String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.array.List()
			if err != nil {
				return err
			}
			for _, mf := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %10d  %s\n", mf.Name, mf.Size, mf.Written.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete an object from every disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.array.Delete(cmd.Context(), args[0])
		},
	}
}

func diskArg(a *app, s string) (int, error) {
	disk, err := strconv.Atoi(s)
	if err != nil || disk < 0 || disk >= a.array.Disks() {
		return 0, fmt.Errorf("disk %q: want 0..%d", s, a.array.Disks()-1)
	}
	return disk, nil
}

func failCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fail <disk> <name>",
		Short: "Simulate losing a disk by removing its block of an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			disk, err := diskArg(a, args[0])
			if err != nil {
				return err
			}
			block, err := a.array.BlockObject(args[1])
			if err != nil {
				return err
			}
			if err := a.set.Remove(cmd.Context(), disk, block); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from disk %d\n", block, disk)
			return nil
		},
	}
}

func corruptCmd(a *app) *cobra.Command {
	var offset int64
	cmd := &cobra.Command{
		Use:   "corrupt <disk> <name>",
		Short: "Simulate silent corruption by flipping one byte of a disk's block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			disk, err := diskArg(a, args[0])
			if err != nil {
				return err
			}
			block, err := a.array.BlockObject(args[1])
			if err != nil {
				return err
			}
			b, err := a.set.Read(cmd.Context(), disk, block, offset, 1)
			if err != nil {
				return err
			}
			b[0] ^= 0xFF
			if err := a.set.Write(cmd.Context(), disk, block, offset, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flipped byte %d of %s on disk %d\n", offset, block, disk)
			return nil
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "Byte offset within the disk block")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "raid6ctl %s (commit %s, built %s)\n", Version, common.GetCommitHash(), BuildTime)
		},
	}
}
