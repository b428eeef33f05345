package cmd

import (
	"fmt"
	"io"

	"caswitch/config"
	"caswitch/config/models"
	syncpkg "caswitch/config/sync"
	"caswitch/config/validation"
	"caswitch/internal/utils"

	"github.com/spf13/cobra"
)

var codexFlags = []string{"base-url", "model", "reasoning-effort", "provider-id", "network-access", "wire-api", "disable-response-storage"}

var codexFamily = &siteFamily{
	family:    models.FamilyCodex,
	settings:  codexFlags,
	secretCmd: "key",
	store:     func(m *config.Manager) siteStore { return m.Codex() },
	configFlags: func(cmd *cobra.Command) {
		cmd.Flags().String("base-url", "", "provider base URL override")
		cmd.Flags().String("model", "", "model name")
		cmd.Flags().String("reasoning-effort", "", "model_reasoning_effort (low, medium, high)")
		cmd.Flags().String("provider-id", "", "model_providers section name (defaults to the site name)")
		cmd.Flags().String("network-access", "", "sandbox network access (enabled, disabled)")
		cmd.Flags().String("wire-api", "", "wire protocol (responses, chat)")
		cmd.Flags().Bool("disable-response-storage", false, "set disable_response_storage")
	},
	applyConfig: func(cmd *cobra.Command, m *config.Manager, site string) error {
		if !anyChanged(cmd, codexFlags...) {
			return nil
		}
		patch := models.CodexConfigPatch{
			BaseURL:                stringField(cmd, "base-url"),
			Model:                  stringField(cmd, "model"),
			ModelReasoningEffort:   stringField(cmd, "reasoning-effort"),
			ModelProvider:          stringField(cmd, "provider-id"),
			NetworkAccess:          stringField(cmd, "network-access"),
			DisableResponseStorage: boolField(cmd, "disable-response-storage"),
			WireAPI:                stringField(cmd, "wire-api"),
		}
		if patch.BaseURL.IsSet() {
			if err := validation.NewInputValidator().ValidateURL(patch.BaseURL.Value()); err != nil {
				return err
			}
		}
		if patch.ModelProvider.IsSet() {
			if err := validation.NewInputValidator().ValidateName("provider id", patch.ModelProvider.Value()); err != nil {
				return err
			}
		}
		return m.Codex().UpdateConfig(site, patch)
	},
	describe: func(s models.Site) []string {
		c := s.(*models.CodexSite).Config
		var lines []string
		if c.Model != nil {
			lines = append(lines, "model: "+*c.Model)
		}
		if c.ModelProvider != nil {
			lines = append(lines, "provider id: "+*c.ModelProvider)
		}
		if c.ModelReasoningEffort != nil {
			lines = append(lines, "reasoning effort: "+*c.ModelReasoningEffort)
		}
		return lines
	},
	activeRef: func(a models.ActiveConfigs) (string, string, bool) {
		if a.Codex == nil {
			return "", "", false
		}
		return a.Codex.Site, a.Codex.APIKeyName, true
	},
	switchTo: func(m *config.Manager, site, secret string) (*syncpkg.Result, error) {
		return m.SwitchCodex(site, secret)
	},
	current: func(m *config.Manager, w io.Writer) error {
		active, err := m.GetActiveCodex()
		if err != nil {
			return err
		}
		if active == nil {
			fmt.Fprintln(w, "No active codex configuration")
			return nil
		}
		fmt.Fprintf(w, "Site:     %s\n", active.Site)
		fmt.Fprintf(w, "URL:      %s\n", active.URL)
		fmt.Fprintf(w, "API key:  %s (%s)\n", active.APIKeyName, utils.MaskSecret(active.APIKey))
		fmt.Fprintf(w, "Provider: %s\n", active.ProviderID())
		fmt.Fprintf(w, "Model:    %s\n", utils.OrDash(active.Config.Model))
		fmt.Fprintf(w, "Effort:   %s\n", utils.OrDash(active.Config.ModelReasoningEffort))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newSiteFamilyCmd(codexFamily))
}
