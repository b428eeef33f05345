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

var claudeFlags = []string{"base-url", "model", "vertex", "vertex-project", "vertex-base-url", "vertex-skip-auth"}

var claudeFamily = &siteFamily{
	family:    models.FamilyClaude,
	settings:  claudeFlags,
	secretCmd: "token",
	store:     func(m *config.Manager) siteStore { return m.Claude() },
	configFlags: func(cmd *cobra.Command) {
		cmd.Flags().String("base-url", "", "ANTHROPIC_BASE_URL override")
		cmd.Flags().String("model", "", "ANTHROPIC_MODEL")
		cmd.Flags().Bool("vertex", false, "use Vertex AI mode")
		cmd.Flags().String("vertex-project", "", "Vertex AI project id")
		cmd.Flags().String("vertex-base-url", "", "Vertex AI base URL")
		cmd.Flags().Bool("vertex-skip-auth", false, "skip Vertex AI authentication")
	},
	applyConfig: func(cmd *cobra.Command, m *config.Manager, site string) error {
		if !anyChanged(cmd, claudeFlags...) {
			return nil
		}
		patch := models.ClaudeConfigPatch{
			BaseURL: stringField(cmd, "base-url"),
			Model:   stringField(cmd, "model"),
			Vertex: models.VertexPatch{
				Enabled:   boolField(cmd, "vertex"),
				ProjectID: stringField(cmd, "vertex-project"),
				BaseURL:   stringField(cmd, "vertex-base-url"),
				SkipAuth:  boolField(cmd, "vertex-skip-auth"),
			},
		}
		iv := validation.NewInputValidator()
		for _, f := range []models.Field[string]{patch.BaseURL, patch.Vertex.BaseURL} {
			if f.IsSet() {
				if err := iv.ValidateURL(f.Value()); err != nil {
					return err
				}
			}
		}
		return m.Claude().UpdateConfig(site, patch)
	},
	describe: func(s models.Site) []string {
		c := s.(*models.ClaudeSite).Config
		var lines []string
		if c.BaseURL != nil {
			lines = append(lines, "base url: "+*c.BaseURL)
		}
		if c.Model != nil {
			lines = append(lines, "model: "+*c.Model)
		}
		if c.Vertex.Enabled {
			lines = append(lines, "vertex: project "+utils.OrDash(c.Vertex.ProjectID))
		}
		return lines
	},
	activeRef: func(a models.ActiveConfigs) (string, string, bool) {
		if a.Claude == nil {
			return "", "", false
		}
		return a.Claude.Site, a.Claude.TokenName, true
	},
	switchTo: func(m *config.Manager, site, secret string) (*syncpkg.Result, error) {
		return m.SwitchClaude(site, secret)
	},
	current: func(m *config.Manager, w io.Writer) error {
		active, err := m.GetActiveClaude()
		if err != nil {
			return err
		}
		if active == nil {
			fmt.Fprintln(w, "No active claude configuration")
			return nil
		}
		fmt.Fprintf(w, "Site:   %s\n", active.Site)
		fmt.Fprintf(w, "URL:    %s\n", active.URL)
		fmt.Fprintf(w, "Token:  %s (%s)\n", active.TokenName, utils.MaskSecret(active.Token))
		if active.Config.BaseURL != nil {
			fmt.Fprintf(w, "Base:   %s\n", *active.Config.BaseURL)
		}
		fmt.Fprintf(w, "Model:  %s\n", utils.OrDash(active.Config.Model))
		if active.IsVertex() {
			v := active.Config.Vertex
			fmt.Fprintf(w, "Vertex: project %s, base %s, skip auth %t\n", utils.OrDash(v.ProjectID), utils.OrDash(v.BaseURL), v.SkipAuth)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newSiteFamilyCmd(claudeFamily))
}
