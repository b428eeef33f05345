package cmd

import (
	"fmt"

	"caswitch/internal/providers"
	"caswitch/internal/tui"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active configuration of every tool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		statuses, err := m.Status()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, st := range statuses {
			name := string(st.Family)
			if tool, err := providers.Get(name); err == nil {
				name = tool.DisplayName()
			}
			switch {
			case st.Ref == "":
				fmt.Fprintf(w, "%-12s %s\n", name, tui.Dim("not set"))
			case st.Err != nil:
				fmt.Fprintf(w, "%-12s %s  %s\n", name, st.Ref, tui.Error(st.Err.Error()))
			default:
				fmt.Fprintf(w, "%-12s %s  %s\n", name, tui.Active(st.Ref), tui.Dim(st.Detail))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
