package cmd

import (
	"errors"
	"fmt"
	"io"

	"caswitch/config"
	"caswitch/config/models"
	"caswitch/config/store"
	syncpkg "caswitch/config/sync"
	"caswitch/internal/tui"
	"caswitch/internal/utils"

	"github.com/spf13/cobra"
)

// printResult lists the written files. In dry-run mode the rendered
// content is printed instead, with every known secret masked.
func printResult(w io.Writer, res *syncpkg.Result, dryRun bool, secrets []string) {
	if res == nil {
		return
	}
	for _, f := range res.Files {
		if dryRun {
			fmt.Fprintln(w, tui.Title(f.Path))
			fmt.Fprintln(w, utils.MaskSecretsIn(string(f.Content), secrets...))
			continue
		}
		fmt.Fprintf(w, "  wrote %s\n", f.Path)
	}
}

// familySecrets collects every secret value of a family for masking
func familySecrets(m *config.Manager, f models.Family) []string {
	var out []string
	collect := func(entries []store.SiteEntry) {
		for _, e := range entries {
			for _, v := range e.Site.Secrets() {
				out = append(out, v)
			}
		}
	}

	switch f {
	case models.FamilyClaude:
		entries, _ := m.Claude().Sites()
		collect(entries)
	case models.FamilyCodex:
		entries, _ := m.Codex().Sites()
		collect(entries)
	case models.FamilyGemini:
		entries, _ := m.Gemini().Sites()
		collect(entries)
	case models.FamilyOpenCode:
		doc, err := m.OpenCode().Load()
		if err == nil {
			for _, p := range doc.Providers {
				out = append(out, p.Options.APIKey)
			}
		}
	}
	return out
}

// confirm asks before a destructive action unless --yes was given
func confirm(cmd *cobra.Command, prompt string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}
	ok, err := tui.Confirm(prompt)
	if err != nil {
		if errors.Is(err, tui.ErrNotTerminal) {
			return fmt.Errorf("refusing to continue without confirmation; pass --yes")
		}
		return err
	}
	if !ok {
		return models.ErrCancelled
	}
	return nil
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// secretArg returns args[i] or prompts for it with hidden input
func secretArg(args []string, i int, prompt string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	return tui.Prompt(prompt, "", true)
}

func marker(active bool) string {
	if active {
		return tui.Active("*")
	}
	return " "
}
