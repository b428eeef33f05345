package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	baseDirName   = ".ca-switch"
	legacyDirName = ".cc-cli"

	globalFile   = "config.json"
	claudeFile   = "claude.json"
	codexFile    = "codex.json"
	geminiFile   = "gemini.json"
	openCodeFile = "opencode.json"
	backupDir    = "backups"
)

// Paths locates every document the tool reads or writes
type Paths struct {
	Home    string
	BaseDir string

	Global        string
	ClaudeStore   string
	CodexStore    string
	GeminiStore   string
	OpenCodeStore string
	Backups       string

	ClaudeDir   string
	CodexDir    string
	GeminiDir   string
	OpenCodeDir string
}

// ClaudeSettings is the shared Claude settings file
func (p *Paths) ClaudeSettings() string { return filepath.Join(p.ClaudeDir, "settings.json") }

// CodexConfig is the generated Codex config.toml
func (p *Paths) CodexConfig() string { return filepath.Join(p.CodexDir, "config.toml") }

// CodexAuth is the Codex secret sidecar
func (p *Paths) CodexAuth() string { return filepath.Join(p.CodexDir, "auth.json") }

// GeminiEnv is the generated Gemini .env file
func (p *Paths) GeminiEnv() string { return filepath.Join(p.GeminiDir, ".env") }

// OpenCodeConfig is the global opencode.json
func (p *Paths) OpenCodeConfig() string { return filepath.Join(p.OpenCodeDir, "opencode.json") }

// LegacyBaseDir is where older releases kept their stores
func (p *Paths) LegacyBaseDir() string { return filepath.Join(p.Home, legacyDirName) }

// HomeDir resolves the user's home directory. Nothing works without it.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return home, nil
}

// BaseDir returns the directory holding the stores, honoring CASWITCH_HOME
func BaseDir(home string) string {
	return resolvePathWithHome(firstNonEmpty(os.Getenv(EnvHome), filepath.Join(home, baseDirName)), home)
}

// NewPaths lays out every path under home and baseDir, applying overrides
func NewPaths(home, baseDir string, overrides PathOptions) *Paths {
	codexDefault := firstNonEmpty(os.Getenv(EnvCodexHome), filepath.Join(home, ".codex"))
	return &Paths{
		Home:          home,
		BaseDir:       baseDir,
		Global:        filepath.Join(baseDir, globalFile),
		ClaudeStore:   filepath.Join(baseDir, claudeFile),
		CodexStore:    filepath.Join(baseDir, codexFile),
		GeminiStore:   filepath.Join(baseDir, geminiFile),
		OpenCodeStore: filepath.Join(baseDir, openCodeFile),
		Backups:       filepath.Join(baseDir, backupDir),
		ClaudeDir:     resolvePathWithHome(firstNonEmpty(overrides.ClaudeDir, filepath.Join(home, ".claude")), home),
		CodexDir:      resolvePathWithHome(firstNonEmpty(overrides.CodexDir, codexDefault), home),
		GeminiDir:     resolvePathWithHome(firstNonEmpty(overrides.GeminiDir, filepath.Join(home, ".gemini")), home),
		OpenCodeDir:   resolvePathWithHome(firstNonEmpty(overrides.OpenCodeDir, filepath.Join(home, ".opencode")), home),
	}
}

func resolvePathWithHome(raw string, home string) string {
	if strings.HasPrefix(raw, "~/") {
		return filepath.Join(home, strings.TrimPrefix(raw, "~/"))
	}
	if strings.HasPrefix(raw, "~\\") {
		return filepath.Join(home, strings.TrimPrefix(raw, "~\\"))
	}
	if raw == "~" {
		return home
	}
	return filepath.Clean(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
