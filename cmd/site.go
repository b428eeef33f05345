package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"caswitch/config"
	"caswitch/config/models"
	"caswitch/config/store"
	syncpkg "caswitch/config/sync"
	"caswitch/config/validation"
	"caswitch/internal/providers"
	"caswitch/internal/tui"
	"caswitch/internal/utils"

	"github.com/spf13/cobra"
)

// siteStore is what the site commands need from a family store
type siteStore interface {
	Sites() ([]store.SiteEntry, error)
	SiteNames() ([]string, error)
	AddSite(name, url string, description *string) error
	UpdateMetadata(name string, patch models.MetadataPatch) error
	RemoveSite(name string) error
	AddSecret(site, name, value string) error
	UpdateSecret(site, name, value string) error
	RemoveSecret(site, name string) error
	SecretNames(site string) ([]string, error)
}

// siteFamily describes one site-based family to the command builder
type siteFamily struct {
	family models.Family
	// secretCmd is the noun used in command names, e.g. "token" or "key"
	secretCmd string

	store func(*config.Manager) siteStore
	// configFlags registers the family settings flags
	configFlags func(*cobra.Command)
	// applyConfig writes the settings flags the user set
	applyConfig func(cmd *cobra.Command, m *config.Manager, site string) error
	// settings lists the names of the flags registered by configFlags
	settings []string
	// describe renders a site's settings for listings
	describe func(models.Site) []string
	activeRef func(models.ActiveConfigs) (site, secret string, ok bool)
	switchTo  func(m *config.Manager, site, secret string) (*syncpkg.Result, error)
	current   func(m *config.Manager, w io.Writer) error
}

func (f *siteFamily) secretEntity() string {
	return f.family.SecretNoun()
}

func (f *siteFamily) configChanged(cmd *cobra.Command) bool {
	return anyChanged(cmd, f.settings...)
}

// validateSettings rejects settings flags whose values cannot be projected
func (f *siteFamily) validateSettings(cmd *cobra.Command) error {
	iv := validation.NewInputValidator()
	for _, name := range f.settings {
		fl := cmd.Flags().Lookup(name)
		if fl == nil || !fl.Changed {
			continue
		}
		if err := iv.ValidateSetting("--"+name, fl.Value.String()); err != nil {
			return err
		}
	}
	return nil
}

func (f *siteFamily) tool() providers.Tool {
	tool, err := providers.Get(string(f.family))
	if err != nil {
		panic(err)
	}
	return tool
}

// newSiteFamilyCmd builds the command tree shared by claude, codex and gemini
func newSiteFamilyCmd(f *siteFamily) *cobra.Command {
	root := &cobra.Command{
		Use:   string(f.family),
		Short: fmt.Sprintf("Manage %s sites and %ss", f.tool().DisplayName(), f.secretEntity()),
	}
	root.AddCommand(
		f.listCmd(),
		f.addSiteCmd(),
		f.editSiteCmd(),
		f.removeSiteCmd(),
		f.addSecretCmd(),
		f.updateSecretCmd(),
		f.removeSecretCmd(),
		f.switchCmd(),
		f.currentCmd(),
		f.clearCmd(),
	)
	return root
}

func (f *siteFamily) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			entries, err := f.store(m).Sites()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(w, "No %s sites configured. Add one with 'caswitch %s add-site'.\n", f.family, f.family)
				return nil
			}

			refs, err := m.Global().Active()
			if err != nil {
				return err
			}
			activeSite, activeSecret, hasActive := f.activeRef(refs)

			for _, e := range entries {
				meta := e.Site.Meta()
				isActive := hasActive && e.Name == activeSite
				fmt.Fprintf(w, "%s %s  %s\n", marker(isActive), e.Name, tui.Dim(meta.URL))
				if meta.Description != nil && *meta.Description != "" {
					fmt.Fprintf(w, "    %s\n", *meta.Description)
				}
				for _, line := range f.describe(e.Site) {
					fmt.Fprintf(w, "    %s\n", line)
				}
				secrets := e.Site.Secrets()
				for _, name := range sortedNames(secrets) {
					fmt.Fprintf(w, "    %s %s: %s\n", marker(isActive && name == activeSecret), name, utils.MaskSecret(secrets[name]))
				}
			}
			return nil
		},
	}
}

func (f *siteFamily) addSiteCmd() *cobra.Command {
	var url, description, secretName, secret string
	cmd := &cobra.Command{
		Use:   "add-site NAME",
		Short: "Add a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if url == "" {
				url = f.tool().DefaultBaseURL()
			}
			url = f.tool().NormalizeBaseURL(url)

			if err := f.validateSettings(cmd); err != nil {
				return err
			}
			in := validation.SiteInput{Family: string(f.family), Name: name, URL: url, SecretName: secretName, Secret: secret}
			if secretName != "" && secret == "" {
				value, err := tui.Prompt(fmt.Sprintf("%s for %s/%s", f.secretEntity(), name, secretName), "", true)
				if err != nil {
					return err
				}
				in.Secret = value
			}
			if err := validation.NewValidator().ValidateSite(in); err != nil {
				return err
			}

			m, err := newManager()
			if err != nil {
				return err
			}
			var desc *string
			if description != "" {
				desc = &description
			}
			st := f.store(m)
			if err := st.AddSite(name, url, desc); err != nil {
				return err
			}
			if err := f.applyConfig(cmd, m, name); err != nil {
				return err
			}
			if in.SecretName != "" {
				if err := st.AddSecret(name, in.SecretName, in.Secret); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Site added: %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "site URL (defaults to the vendor endpoint)")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	cmd.Flags().StringVar(&secretName, "secret-name", "", "also add a "+f.secretEntity()+" with this name")
	cmd.Flags().StringVar(&secret, "secret", "", "value of the "+f.secretEntity()+" given by --secret-name")
	f.configFlags(cmd)
	return cmd
}

func (f *siteFamily) editSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit-site NAME",
		Short: "Change a site's URL, description or settings; an empty value unsets a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			patch := models.MetadataPatch{
				URL:         stringField(cmd, "url"),
				Description: stringField(cmd, "description"),
			}
			if patch.URL.IsClear() {
				return fmt.Errorf("site URL cannot be removed")
			}
			if patch.URL.IsSet() {
				if err := validation.NewInputValidator().ValidateRequiredURL(patch.URL.Value()); err != nil {
					return err
				}
				patch.URL = models.Set(f.tool().NormalizeBaseURL(patch.URL.Value()))
			}

			if patch.URL.IsKeep() && patch.Description.IsKeep() && !f.configChanged(cmd) {
				return fmt.Errorf("nothing to update; pass at least one flag")
			}
			if err := f.validateSettings(cmd); err != nil {
				return err
			}

			m, err := newManager()
			if err != nil {
				return err
			}
			if !patch.URL.IsKeep() || !patch.Description.IsKeep() {
				if err := f.store(m).UpdateMetadata(name, patch); err != nil {
					return err
				}
			}
			if err := f.applyConfig(cmd, m, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Site updated: %s\n", name)
			return nil
		},
	}
	cmd.Flags().String("url", "", "site URL")
	cmd.Flags().String("description", "", "free-form description")
	f.configFlags(cmd)
	return cmd
}

func (f *siteFamily) removeSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-site NAME",
		Short: "Remove a site and all its " + f.secretEntity() + "s",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := confirm(cmd, fmt.Sprintf("Remove %s site '%s'?", f.family, name)); err != nil {
				return err
			}
			if err := f.store(m).RemoveSite(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Site removed: %s\n", name)
			return nil
		},
	}
	addYesFlag(cmd)
	return cmd
}

func (f *siteFamily) addSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("add-%s SITE NAME [VALUE]", f.secretCmd),
		Short: "Add a " + f.secretEntity() + " to a site; the value is prompted for when omitted",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, name := args[0], args[1]
			value, err := secretArg(args, 2, fmt.Sprintf("%s for %s/%s", f.secretEntity(), site, name))
			if err != nil {
				return err
			}
			if err := validation.NewValidator().ValidateSecret(f.tool(), name, value); err != nil {
				return err
			}
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := f.store(m).AddSecret(site, name, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s '%s' to %s\n", f.secretEntity(), name, site)
			return nil
		},
	}
}

func (f *siteFamily) updateSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("update-%s SITE NAME [VALUE]", f.secretCmd),
		Short: "Replace the value of a " + f.secretEntity(),
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, name := args[0], args[1]
			value, err := secretArg(args, 2, fmt.Sprintf("new %s for %s/%s", f.secretEntity(), site, name))
			if err != nil {
				return err
			}
			if err := f.tool().ValidateSecret(value); err != nil {
				return err
			}
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := f.store(m).UpdateSecret(site, name, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s '%s' of %s\n", f.secretEntity(), name, site)
			return nil
		},
	}
}

func (f *siteFamily) removeSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("remove-%s SITE NAME", f.secretCmd),
		Short: "Remove a " + f.secretEntity() + " from a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, name := args[0], args[1]
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := confirm(cmd, fmt.Sprintf("Remove %s '%s' from %s?", f.secretEntity(), name, site)); err != nil {
				return err
			}
			if err := f.store(m).RemoveSecret(site, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s '%s' from %s\n", f.secretEntity(), name, site)
			return nil
		},
	}
	addYesFlag(cmd)
	return cmd
}

func (f *siteFamily) switchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch [SITE [NAME]]",
		Short: "Make a site and " + f.secretEntity() + " active and write the tool's configuration",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			site, secret, err := f.pickTarget(m, args)
			if err != nil {
				return err
			}
			res, err := f.switchTo(m, site, secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched %s to %s/%s\n", f.family, site, secret)
			printResult(cmd.OutOrStdout(), res, false, nil)
			return nil
		},
	}
}

// pickTarget fills in the site and secret that were not given as arguments.
// A site with a single secret needs no choice.
func (f *siteFamily) pickTarget(m *config.Manager, args []string) (string, string, error) {
	st := f.store(m)
	refs, err := m.Global().Active()
	if err != nil {
		return "", "", err
	}
	activeSite, activeSecret, _ := f.activeRef(refs)

	var site string
	if len(args) > 0 {
		site = args[0]
	} else {
		entries, err := st.Sites()
		if err != nil {
			return "", "", err
		}
		items := make([]tui.Item, len(entries))
		for i, e := range entries {
			items[i] = tui.Item{Title: e.Name, Detail: e.Site.Meta().URL, Active: e.Name == activeSite}
		}
		idx, err := tui.Pick("Select a "+string(f.family)+" site", items)
		if err != nil {
			return "", "", err
		}
		site = entries[idx].Name
	}

	if len(args) > 1 {
		return site, args[1], nil
	}
	names, err := st.SecretNames(site)
	if err != nil {
		return "", "", err
	}
	switch len(names) {
	case 0:
		return "", "", fmt.Errorf("site '%s' has no %ss; add one with 'caswitch %s add-%s'", site, f.secretEntity(), f.family, f.secretCmd)
	case 1:
		return site, names[0], nil
	}
	items := make([]tui.Item, len(names))
	for i, n := range names {
		items[i] = tui.Item{Title: n, Active: site == activeSite && n == activeSecret}
	}
	idx, err := tui.Pick("Select a "+f.secretEntity()+" of "+site, items)
	if err != nil {
		return "", "", err
	}
	return site, names[idx], nil
}

func (f *siteFamily) currentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active " + string(f.family) + " configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			return f.current(m, cmd.OutOrStdout())
		},
	}
}

func (f *siteFamily) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the active " + string(f.family) + " configuration; tool files are left as they are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := m.Clear(f.family); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared active %s configuration\n", f.family)
			return nil
		},
	}
}

// stringField maps a string flag onto a patch field: unset keeps, empty
// clears, anything else overwrites
func stringField(cmd *cobra.Command, name string) models.Field[string] {
	if !cmd.Flags().Changed(name) {
		return models.Field[string]{}
	}
	v, _ := cmd.Flags().GetString(name)
	return models.FieldFromInput(strings.TrimSpace(v))
}

func boolField(cmd *cobra.Command, name string) models.Field[bool] {
	if !cmd.Flags().Changed(name) {
		return models.Field[bool]{}
	}
	v, _ := cmd.Flags().GetBool(name)
	return models.Set(v)
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func sortedNames(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
