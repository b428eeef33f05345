package cmd

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"caswitch/config"
	"caswitch/config/models"
	"caswitch/config/store"
	"caswitch/config/validation"
	"caswitch/internal/providers"
	"caswitch/internal/tui"
	"caswitch/internal/utils"

	"github.com/spf13/cobra"
)

var opencodeCmd = &cobra.Command{
	Use:   "opencode",
	Short: "Manage OpenCode providers and models",
}

var opencodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers and their models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		doc, err := m.OpenCode().Load()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(doc.Providers) == 0 {
			fmt.Fprintln(w, "No OpenCode providers configured. Add one with 'caswitch opencode add-provider'.")
			return nil
		}
		refs, err := m.Global().Active()
		if err != nil {
			return err
		}

		names, err := m.OpenCode().ProviderNames()
		if err != nil {
			return err
		}
		for _, name := range names {
			p := doc.Providers[name]
			fmt.Fprintf(w, "%s (%s)  %s  %s\n", name, p.Name, tui.Dim(p.Options.BaseURL), utils.MaskSecret(p.Options.APIKey))
			if p.Metadata.Description != nil && *p.Metadata.Description != "" {
				fmt.Fprintf(w, "    %s\n", *p.Metadata.Description)
			}
			ids, _ := m.OpenCode().ModelIDs(name)
			for _, id := range ids {
				ref := models.ModelRef{Provider: name, Model: id}
				fmt.Fprintf(w, "    %s %s%s\n", marker(isActiveModel(refs, ref)), id, roleLabel(refs, ref))
			}
		}
		return nil
	},
}

func isActiveModel(refs models.ActiveConfigs, ref models.ModelRef) bool {
	return refs.OpenCode != nil && (refs.OpenCode.Main == ref || refs.OpenCode.Small == ref)
}

func roleLabel(refs models.ActiveConfigs, ref models.ModelRef) string {
	if refs.OpenCode == nil {
		return ""
	}
	var roles []string
	if refs.OpenCode.Main == ref {
		roles = append(roles, "main")
	}
	if refs.OpenCode.Small == ref {
		roles = append(roles, "small")
	}
	if len(roles) == 0 {
		return ""
	}
	return "  " + tui.Dim("("+strings.Join(roles, ", ")+")")
}

var opencodeAddProviderCmd = &cobra.Command{
	Use:   "add-provider NAME",
	Short: "Add a provider; the API key is prompted for when --api-key is omitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		iv := validation.NewInputValidator()
		if err := iv.ValidateName(models.EntityProvider, name); err != nil {
			return err
		}
		baseURL, _ := cmd.Flags().GetString("base-url")
		if baseURL == "" {
			tool, err := providers.Get(string(models.FamilyOpenCode))
			if err != nil {
				return err
			}
			baseURL = tool.DefaultBaseURL()
		}
		if err := iv.ValidateRequiredURL(baseURL); err != nil {
			return err
		}

		apiKey, _ := cmd.Flags().GetString("api-key")
		if apiKey == "" {
			var err error
			if apiKey, err = tui.Prompt("API key for "+name, "", true); err != nil {
				return err
			}
		}
		if err := validation.NewValidator().ValidateFamilySecret(string(models.FamilyOpenCode), "apiKey", apiKey); err != nil {
			return err
		}

		in := store.NewProviderInput{Name: name, BaseURL: utils.TrimURL(baseURL), APIKey: apiKey}
		in.DisplayName, _ = cmd.Flags().GetString("display-name")
		if v, _ := cmd.Flags().GetString("npm"); v != "" {
			in.NPM = &v
		}
		if v, _ := cmd.Flags().GetString("description"); v != "" {
			in.Description = &v
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.OpenCode().AddProvider(in); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Provider added: %s\n", name)

		if list, _ := cmd.Flags().GetString("models"); list != "" {
			added, err := m.OpenCode().ImportModels(name, validation.SplitModels(list))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d model(s)\n", len(added))
		}
		return nil
	},
}

var opencodeEditProviderCmd = &cobra.Command{
	Use:   "edit-provider NAME",
	Short: "Change a provider; an empty --npm or --description unsets it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		patch := models.ProviderPatch{
			Name:        stringField(cmd, "display-name"),
			BaseURL:     stringField(cmd, "base-url"),
			APIKey:      stringField(cmd, "api-key"),
			NPM:         stringField(cmd, "npm"),
			Description: stringField(cmd, "description"),
		}
		for flag, f := range map[string]models.Field[string]{"display-name": patch.Name, "base-url": patch.BaseURL, "api-key": patch.APIKey} {
			if f.IsClear() {
				return fmt.Errorf("--%s cannot be empty", flag)
			}
		}
		if !anyChanged(cmd, "display-name", "base-url", "api-key", "npm", "description") {
			return fmt.Errorf("nothing to update; pass at least one flag")
		}
		if patch.BaseURL.IsSet() {
			if err := validation.NewInputValidator().ValidateRequiredURL(patch.BaseURL.Value()); err != nil {
				return err
			}
			patch.BaseURL = models.Set(utils.TrimURL(patch.BaseURL.Value()))
		}
		if patch.APIKey.IsSet() {
			if err := validation.NewValidator().ValidateFamilySecret(string(models.FamilyOpenCode), "apiKey", patch.APIKey.Value()); err != nil {
				return err
			}
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.OpenCode().UpdateProvider(name, patch); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Provider updated: %s\n", name)
		return nil
	},
}

var opencodeRemoveProviderCmd = &cobra.Command{
	Use:   "remove-provider NAME",
	Short: "Remove a provider and all its models",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Remove OpenCode provider '%s'?", args[0])); err != nil {
			return err
		}
		if err := m.OpenCode().RemoveProvider(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Provider removed: %s\n", args[0])
		return nil
	},
}

var opencodeAddModelCmd = &cobra.Command{
	Use:   "add-model PROVIDER MODEL",
	Short: "Add a model to a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, id := args[0], args[1]
		if err := validation.NewInputValidator().ValidateModelID(id); err != nil {
			return err
		}
		info := models.ModelInfo{}
		info.Name, _ = cmd.Flags().GetString("name")
		limit := &models.ModelLimit{}
		if cmd.Flags().Changed("context") {
			v, _ := cmd.Flags().GetUint64("context")
			limit.Context = &v
		}
		if cmd.Flags().Changed("output") {
			v, _ := cmd.Flags().GetUint64("output")
			limit.Output = &v
		}
		if limit.Context != nil || limit.Output != nil {
			info.Limit = limit
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.OpenCode().AddModel(provider, id, info); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Model added: %s/%s\n", provider, id)
		return nil
	},
}

var opencodeEditModelCmd = &cobra.Command{
	Use:   "edit-model PROVIDER MODEL",
	Short: "Change a model's display name or limits; a limit of 0 unsets it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, id := args[0], args[1]
		patch := models.ModelPatch{
			Name:    stringField(cmd, "name"),
			Context: limitField(cmd, "context"),
			Output:  limitField(cmd, "output"),
		}
		if patch.Name.IsClear() {
			return fmt.Errorf("--name cannot be empty")
		}
		if !anyChanged(cmd, "name", "context", "output") {
			return fmt.Errorf("nothing to update; pass at least one flag")
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.OpenCode().UpdateModel(provider, id, patch); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Model updated: %s/%s\n", provider, id)
		return nil
	},
}

func limitField(cmd *cobra.Command, name string) models.Field[uint64] {
	if !cmd.Flags().Changed(name) {
		return models.Field[uint64]{}
	}
	v, _ := cmd.Flags().GetUint64(name)
	if v == 0 {
		return models.Clear[uint64]()
	}
	return models.Set(v)
}

var opencodeImportModelsCmd = &cobra.Command{
	Use:   "import-models PROVIDER MODELS...",
	Short: "Add several models at once; ids may be separated by commas or spaces",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := args[0]
		ids := validation.NormalizeModels(strings.FieldsFunc(strings.Join(args[1:], " "), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		}))
		iv := validation.NewInputValidator()
		for _, id := range ids {
			if err := iv.ValidateModelID(id); err != nil {
				return err
			}
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		added, err := m.OpenCode().ImportModels(provider, ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d model(s) into %s\n", len(added), provider)
		for _, id := range added {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
		}
		return nil
	},
}

var opencodeRemoveModelCmd = &cobra.Command{
	Use:   "remove-model PROVIDER MODEL",
	Short: "Remove a model from a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, id := args[0], args[1]
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Remove model '%s' from %s?", id, provider)); err != nil {
			return err
		}
		if err := m.OpenCode().RemoveModel(provider, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Model removed: %s/%s\n", provider, id)
		return nil
	},
}

var opencodeSwitchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Select the main and small models and write opencode.json",
	Long: `Select the main and small models and write opencode.json.

Models are given as PROVIDER/MODEL. The small model defaults to the main
model. Without --main the models are picked interactively.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		mainFlag, _ := cmd.Flags().GetString("main")
		smallFlag, _ := cmd.Flags().GetString("small")

		var mainRef, smallRef models.ModelRef
		if mainFlag == "" {
			if mainRef, err = pickModel(m, "Select the main model"); err != nil {
				return err
			}
			if smallFlag == "" {
				if smallRef, err = pickModel(m, "Select the small model"); err != nil {
					return err
				}
			}
		} else if mainRef, err = parseModelRef(mainFlag); err != nil {
			return err
		}
		if smallFlag != "" {
			if smallRef, err = parseModelRef(smallFlag); err != nil {
				return err
			}
		} else if smallRef == (models.ModelRef{}) {
			smallRef = mainRef
		}
		for _, ref := range []models.ModelRef{mainRef, smallRef} {
			if err := checkModel(m, ref); err != nil {
				return err
			}
		}

		res, err := m.SwitchOpenCode(mainRef, smallRef)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched opencode to main %s, small %s\n", mainRef, smallRef)
		printResult(cmd.OutOrStdout(), res, false, nil)
		return nil
	},
}

// parseModelRef splits PROVIDER/MODEL on the first slash; model ids may
// contain further slashes.
func parseModelRef(s string) (models.ModelRef, error) {
	provider, model, ok := strings.Cut(s, "/")
	if !ok || provider == "" || model == "" {
		return models.ModelRef{}, fmt.Errorf("invalid model reference '%s': expected PROVIDER/MODEL", s)
	}
	return models.ModelRef{Provider: provider, Model: model}, nil
}

// checkModel names the models a provider does offer when ref is not one of them
func checkModel(m *config.Manager, ref models.ModelRef) error {
	ids, err := m.OpenCode().ModelIDs(ref.Provider)
	if err != nil {
		return err
	}
	if err := validation.ValidateModelInList(ref.Model, ids); err != nil {
		return fmt.Errorf("%w: provider '%s': %w", models.ErrNotFound, ref.Provider, err)
	}
	return nil
}

func pickModel(m *config.Manager, title string) (models.ModelRef, error) {
	names, err := m.OpenCode().ProviderNames()
	if err != nil {
		return models.ModelRef{}, err
	}
	refs, err := m.Global().Active()
	if err != nil {
		return models.ModelRef{}, err
	}
	var choices []models.ModelRef
	var items []tui.Item
	for _, name := range names {
		ids, err := m.OpenCode().ModelIDs(name)
		if err != nil {
			return models.ModelRef{}, err
		}
		for _, id := range ids {
			ref := models.ModelRef{Provider: name, Model: id}
			choices = append(choices, ref)
			items = append(items, tui.Item{Title: ref.String(), Active: isActiveModel(refs, ref)})
		}
	}
	if len(choices) == 0 {
		return models.ModelRef{}, fmt.Errorf("no OpenCode models configured; add one with 'caswitch opencode add-model'")
	}
	idx, err := tui.Pick(title, items)
	if err != nil {
		return models.ModelRef{}, err
	}
	return choices[idx], nil
}

var opencodeCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the active OpenCode models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		active, err := m.GetActiveOpenCode()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if active == nil {
			fmt.Fprintln(w, "No active opencode configuration")
			return nil
		}
		for _, role := range []struct {
			label string
			r     models.RoleActive
		}{{"Main", active.Main}, {"Small", active.Small}} {
			fmt.Fprintf(w, "%-6s %s (%s, %s)\n", role.label+":", role.r.Ref, role.r.Model.Name, role.r.Provider.Options.BaseURL)
		}
		fmt.Fprintf(w, "Providers exported: %s\n", strings.Join(active.ProviderNames(), ", "))
		return nil
	},
}

var opencodeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the active OpenCode models; opencode.json is left as it is",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		if err := m.ClearOpenCode(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared active opencode configuration")
		return nil
	},
}

var opencodeApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Write the active OpenCode configuration into a project's .opencode directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			dir = wd
		}
		m, err := newManager()
		if err != nil {
			return err
		}
		res, err := m.ApplyOpenCode(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied opencode configuration to %s\n", dir)
		printResult(cmd.OutOrStdout(), res, false, nil)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{opencodeAddProviderCmd, opencodeEditProviderCmd} {
		c.Flags().String("display-name", "", "name shown by OpenCode (defaults to the provider key)")
		c.Flags().String("base-url", "", "provider base URL")
		c.Flags().String("api-key", "", "provider API key")
		c.Flags().String("npm", "", "AI SDK package, e.g. @ai-sdk/openai-compatible")
		c.Flags().String("description", "", "free-form description, never exported")
	}
	opencodeAddProviderCmd.Flags().String("models", "", "comma separated model ids to import")

	for _, c := range []*cobra.Command{opencodeAddModelCmd, opencodeEditModelCmd} {
		c.Flags().String("name", "", "display name (defaults to the model id)")
		c.Flags().Uint64("context", 0, "context window limit")
		c.Flags().Uint64("output", 0, "output token limit")
	}

	addYesFlag(opencodeRemoveProviderCmd)
	addYesFlag(opencodeRemoveModelCmd)

	opencodeSwitchCmd.Flags().String("main", "", "main model as PROVIDER/MODEL")
	opencodeSwitchCmd.Flags().String("small", "", "small model as PROVIDER/MODEL (defaults to --main)")
	opencodeApplyCmd.Flags().String("dir", "", "project directory (defaults to the working directory)")

	opencodeCmd.AddCommand(
		opencodeListCmd,
		opencodeAddProviderCmd,
		opencodeEditProviderCmd,
		opencodeRemoveProviderCmd,
		opencodeAddModelCmd,
		opencodeEditModelCmd,
		opencodeImportModelsCmd,
		opencodeRemoveModelCmd,
		opencodeSwitchCmd,
		opencodeCurrentCmd,
		opencodeClearCmd,
		opencodeApplyCmd,
	)
	rootCmd.AddCommand(opencodeCmd)
}
