package cmd

import (
	"errors"
	"fmt"
	"strings"

	"caswitch/config"
	"caswitch/config/models"
	"caswitch/internal/providers"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [FAMILY...]",
	Short: "Write the active configuration into the tools' files again",
	Long: `Write the active configuration into the tools' files again without
changing it. Without arguments every family with an active reference is
synced. With --dry-run the rendered files are printed with secrets masked.`,
	ValidArgs: []string{"claude", "codex", "gemini", "opencode"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		families := models.Families()
		if len(args) > 0 {
			families = families[:0:0]
			for _, a := range args {
				f, err := models.ParseFamily(a)
				if err != nil {
					return err
				}
				families = append(families, f)
			}
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, f := range families {
			res, err := m.Resync(f, dryRun)
			if err != nil {
				if len(args) == 0 && errors.Is(err, config.ErrNoActive) {
					continue
				}
				return fmt.Errorf("sync %s: %w", f, err)
			}
			if !dryRun {
				fmt.Fprintf(w, "Synced %s\n", f)
			}
			printResult(w, res, dryRun, familySecrets(m, f))
		}
		return nil
	},
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the supported tools and the files they are synced to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		p := m.Paths()
		dirs := map[string]string{
			"claude":   p.ClaudeDir,
			"codex":    p.CodexDir,
			"gemini":   p.GeminiDir,
			"opencode": p.OpenCodeDir,
		}
		w := cmd.OutOrStdout()
		for _, name := range providers.List() {
			tool, err := providers.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-9s %-12s %s: %s\n", name, tool.DisplayName(), dirs[name], strings.Join(tool.Targets(), ", "))
		}
		return nil
	},
}

var syncRestoreCmd = &cobra.Command{
	Use:   "restore FAMILY",
	Short: "Put back the files a sync replaced, from their newest backups",
	Long: `Put back the files a sync replaced, from the newest rotating backup
kept next to each of them. The active reference is not changed.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"claude", "codex", "gemini", "opencode"},
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := models.ParseFamily(args[0])
		if err != nil {
			return err
		}
		m, err := newManager()
		if err != nil {
			return err
		}
		targets, err := m.SyncTargets(f)
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Replace %s with the newest backup?", strings.Join(targets, ", "))); err != nil {
			return err
		}
		restored, err := m.RestoreTargets(f)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, path := range restored {
			fmt.Fprintf(w, "  restored %s\n", path)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "print the rendered files instead of writing them")
	addYesFlag(syncRestoreCmd)
	syncCmd.AddCommand(syncListCmd, syncRestoreCmd)
	rootCmd.AddCommand(syncCmd)
}
