package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"caswitch/config/models"

	"github.com/pelletier/go-toml/v2"
)

// CodexSyncer regenerates config.toml and its auth.json sidecar. Both
// files are owned entirely by this synchronizer.
type CodexSyncer struct {
	ConfigPath string
	AuthPath   string
	Options    SyncOptions
}

type codexTopLevel struct {
	ModelProvider          string  `toml:"model_provider"`
	Model                  *string `toml:"model,omitempty"`
	ModelReasoningEffort   *string `toml:"model_reasoning_effort,omitempty"`
	NetworkAccess          *string `toml:"network_access,omitempty"`
	DisableResponseStorage *bool   `toml:"disable_response_storage,omitempty"`
}

type codexProviderSection struct {
	Name               string  `toml:"name"`
	BaseURL            *string `toml:"base_url,omitempty"`
	WireAPI            *string `toml:"wire_api,omitempty"`
	RequiresOpenAIAuth bool    `toml:"requires_openai_auth"`
}

// Sync writes auth.json, then config.toml. The two writes are independent;
// a failure of the second leaves the first in place.
func (s *CodexSyncer) Sync(active *models.CodexActive) (*Result, error) {
	auth, err := RenderCodexAuth(active)
	if err != nil {
		return nil, err
	}
	config, err := RenderCodexConfig(active)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if err := s.Options.write(res, s.AuthPath, auth); err != nil {
		return nil, err
	}
	if err := s.Options.write(res, s.ConfigPath, config); err != nil {
		return nil, err
	}
	return res, nil
}

// RenderCodexAuth renders the secret-only auth.json
func RenderCodexAuth(active *models.CodexActive) ([]byte, error) {
	data, err := json.MarshalIndent(map[string]string{"OPENAI_API_KEY": active.APIKey}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize auth.json: %w", models.ErrSerialization, err)
	}
	return append(data, '\n'), nil
}

// RenderCodexConfig renders config.toml: top-level settings, a blank line,
// then the provider table keyed by the provider id.
func RenderCodexConfig(active *models.CodexActive) ([]byte, error) {
	cfg := active.Config
	providerID := active.ProviderID()

	top, err := toml.Marshal(codexTopLevel{
		ModelProvider:          providerID,
		Model:                  cfg.Model,
		ModelReasoningEffort:   cfg.ModelReasoningEffort,
		NetworkAccess:          cfg.NetworkAccess,
		DisableResponseStorage: cfg.DisableResponseStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize config.toml: %w", models.ErrSerialization, err)
	}

	section, err := toml.Marshal(codexProviderSection{
		Name:               providerID,
		BaseURL:            cfg.BaseURL,
		WireAPI:            cfg.WireAPI,
		RequiresOpenAIAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize model provider: %w", models.ErrSerialization, err)
	}

	var buf bytes.Buffer
	buf.Write(top)
	buf.WriteString("\n[model_providers.")
	buf.WriteString(tomlKey(providerID))
	buf.WriteString("]\n")
	buf.Write(section)
	return buf.Bytes(), nil
}

var bareKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// tomlKey quotes key unless it is a valid bare key
func tomlKey(key string) string {
	if bareKey.MatchString(key) {
		return key
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range key {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\u%04X", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
