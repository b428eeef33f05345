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

var geminiFamily = &siteFamily{
	family:    models.FamilyGemini,
	settings:  []string{"base-url", "model"},
	secretCmd: "key",
	store:     func(m *config.Manager) siteStore { return m.Gemini() },
	configFlags: func(cmd *cobra.Command) {
		cmd.Flags().String("base-url", "", "GOOGLE_GEMINI_BASE_URL override")
		cmd.Flags().String("model", "", "GEMINI_MODEL")
	},
	applyConfig: func(cmd *cobra.Command, m *config.Manager, site string) error {
		if !anyChanged(cmd, "base-url", "model") {
			return nil
		}
		patch := models.GeminiConfigPatch{
			BaseURL: stringField(cmd, "base-url"),
			Model:   stringField(cmd, "model"),
		}
		if patch.BaseURL.IsSet() {
			if err := validation.NewInputValidator().ValidateURL(patch.BaseURL.Value()); err != nil {
				return err
			}
		}
		return m.Gemini().UpdateConfig(site, patch)
	},
	describe: func(s models.Site) []string {
		c := s.(*models.GeminiSite).Config
		var lines []string
		if c.BaseURL != nil {
			lines = append(lines, "base url: "+*c.BaseURL)
		}
		if c.Model != nil {
			lines = append(lines, "model: "+*c.Model)
		}
		return lines
	},
	activeRef: func(a models.ActiveConfigs) (string, string, bool) {
		if a.Gemini == nil {
			return "", "", false
		}
		return a.Gemini.Site, a.Gemini.APIKeyName, true
	},
	switchTo: func(m *config.Manager, site, secret string) (*syncpkg.Result, error) {
		return m.SwitchGemini(site, secret)
	},
	current: func(m *config.Manager, w io.Writer) error {
		active, err := m.GetActiveGemini()
		if err != nil {
			return err
		}
		if active == nil {
			fmt.Fprintln(w, "No active gemini configuration")
			return nil
		}
		fmt.Fprintf(w, "Site:    %s\n", active.Site)
		fmt.Fprintf(w, "URL:     %s\n", active.URL)
		fmt.Fprintf(w, "API key: %s (%s)\n", active.APIKeyName, utils.MaskSecret(active.APIKey))
		fmt.Fprintf(w, "Model:   %s\n", utils.OrDash(active.Config.Model))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newSiteFamilyCmd(geminiFamily))
}
