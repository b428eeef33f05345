package cmd

import (
	"caswitch/config"

	"github.com/spf13/cobra"
)

// Version information
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo sets the version information
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// newManager is replaced in tests
var newManager = config.NewManager

var rootCmd = &cobra.Command{
	Use:   "caswitch",
	Short: "Switch AI coding tools between API sites and keys",
	Long: `caswitch keeps several named sites and secrets for Claude Code, Codex,
Gemini CLI and OpenCode, and writes the active one into each tool's own
configuration files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`caswitch {{.Version}}
Commit: ` + commit + `
Date: ` + date + `
`)
	return rootCmd.Execute()
}
