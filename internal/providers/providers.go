// Package providers is the registry of the tools whose configuration is
// managed, with the vendor defaults used when adding sites.
package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"caswitch/internal/utils"
)

// Tool describes one managed tool family
type Tool interface {
	// Name returns the family key (e.g., "claude", "codex")
	Name() string
	// DisplayName returns the human readable tool name
	DisplayName() string
	// DefaultBaseURL returns the vendor's own API endpoint
	DefaultBaseURL() string
	// DefaultModel returns a model suggestion for new sites
	DefaultModel() string
	// Targets lists the files the tool reads, relative to its directory
	Targets() []string
	// ValidateSecret rejects secrets that can never work for this tool
	ValidateSecret(secret string) error
	// NormalizeBaseURL canonicalizes a base URL override
	NormalizeBaseURL(baseURL string) string
}

var registry = make(map[string]Tool)

// Register registers a tool
func Register(tool Tool) {
	registry[tool.Name()] = tool
}

// Get returns a tool by family name
func Get(name string) (Tool, error) {
	tool, ok := registry[name]
	if !ok {
		return nil, errors.New("unknown tool: " + name)
	}
	return tool, nil
}

// List returns all registered family names, sorted
func List() []string {
	list := make([]string, 0, len(registry))
	for name := range registry {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

type baseTool struct {
	name, display, baseURL, model string
	targets                       []string
}

func (t *baseTool) Name() string           { return t.name }
func (t *baseTool) DisplayName() string    { return t.display }
func (t *baseTool) DefaultBaseURL() string { return t.baseURL }
func (t *baseTool) DefaultModel() string   { return t.model }
func (t *baseTool) Targets() []string      { return t.targets }

func (t *baseTool) ValidateSecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("%s: secret cannot be empty", t.name)
	}
	if strings.ContainsAny(secret, " \t\r\n") {
		return fmt.Errorf("%s: secret must not contain whitespace", t.name)
	}
	return nil
}

// NormalizeBaseURL strips trailing slashes; every managed tool appends its
// own path segments.
func (t *baseTool) NormalizeBaseURL(baseURL string) string {
	return utils.TrimURL(baseURL)
}

// ClaudeTool is Anthropic's Claude Code
type ClaudeTool struct{ baseTool }

// CodexTool is OpenAI's Codex CLI
type CodexTool struct{ baseTool }

// GeminiTool is Google's Gemini CLI
type GeminiTool struct{ baseTool }

// OpenCodeTool is the OpenCode agent
type OpenCodeTool struct{ baseTool }

func init() {
	Register(&ClaudeTool{baseTool{
		name:    "claude",
		display: "Claude Code",
		baseURL: "https://api.anthropic.com",
		model:   "claude-sonnet-4-5",
		targets: []string{"settings.json"},
	}})
	Register(&CodexTool{baseTool{
		name:    "codex",
		display: "Codex CLI",
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-5-codex",
		targets: []string{"config.toml", "auth.json"},
	}})
	Register(&GeminiTool{baseTool{
		name:    "gemini",
		display: "Gemini CLI",
		baseURL: "https://generativelanguage.googleapis.com",
		model:   "gemini-2.5-pro",
		targets: []string{".env"},
	}})
	Register(&OpenCodeTool{baseTool{
		name:    "opencode",
		display: "OpenCode",
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-5",
		targets: []string{"opencode.json"},
	}})
}
