package cmd

import (
	"errors"
	"fmt"

	"caswitch/config/backup"
	"caswitch/internal/tui"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot and restore the credential stores and tool files",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [CATEGORY...]",
	Short: "Create snapshots; without arguments every category is captured",
	Long: `Create snapshots; without arguments every category is captured.

Categories: ca-switch (the reference document and credential stores),
claude, codex, gemini and opencode (the tools' own files).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories := make([]backup.Category, 0, len(args))
		for _, a := range args {
			c, err := backup.ParseCategory(a)
			if err != nil {
				return err
			}
			categories = append(categories, c)
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		snaps, err := m.Backups().Create(categories...)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(snaps) == 0 {
			fmt.Fprintln(w, "Nothing to back up")
			return nil
		}
		for _, s := range snaps {
			fmt.Fprintf(w, "Created %s  %-9s %d file(s), %s\n", s.ID, s.Category, len(s.Files), s.HumanSize())
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		snaps, err := m.Backups().List()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(snaps) == 0 {
			fmt.Fprintln(w, "No snapshots")
			return nil
		}
		for _, s := range snaps {
			fmt.Fprintf(w, "%s  %-9s %s  %s  %s\n", s.ID, s.Category, s.CreatedAt, s.HumanSize(), tui.Dim(s.Hostname))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Write a snapshot's files back to where they were captured from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		snap, err := m.Backups().Get(args[0])
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Overwrite %d %s file(s) with snapshot %s?", len(snap.Files), snap.Category, snap.ID)); err != nil {
			return err
		}
		if _, err := m.Backups().Restore(snap.ID); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, f := range snap.Files {
			fmt.Fprintf(w, "  restored %s\n", f.Source)
		}
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots, keeping the newest of each category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		m, err := newManager()
		if err != nil {
			return err
		}
		removed, err := m.Backups().Prune(keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s)\n", len(removed))
		return nil
	},
}

var backupPushCmd = &cobra.Command{
	Use:   "push ID",
	Short: "Upload a snapshot to the configured remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.Backups().Push(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, backup.ErrNoRemote) {
				return fmt.Errorf("%w: snapshots are kept locally in %s", err, m.Backups().Dir())
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s\n", args[0])
		return nil
	},
}

func init() {
	addYesFlag(backupRestoreCmd)
	backupPruneCmd.Flags().Int("keep", 5, "snapshots to keep per category")
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd, backupPruneCmd, backupPushCmd)
	rootCmd.AddCommand(backupCmd)
}
