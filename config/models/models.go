// Package models holds the persisted documents, active references and
// resolved active configurations for every supported tool family.
package models

import (
	"fmt"
	"time"
)

// DocumentVersion is written into every store document.
const DocumentVersion = "3.0.0"

// Family identifies one of the supported tool integrations
type Family string

const (
	FamilyClaude   Family = "claude"
	FamilyCodex    Family = "codex"
	FamilyGemini   Family = "gemini"
	FamilyOpenCode Family = "opencode"
)

// Families returns every supported family in display order
func Families() []Family {
	return []Family{FamilyClaude, FamilyCodex, FamilyGemini, FamilyOpenCode}
}

// ParseFamily converts user input into a Family
func ParseFamily(s string) (Family, error) {
	for _, f := range Families() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown family: %s (must be claude, codex, gemini, or opencode)", s)
}

// SecretNoun returns the name used for a site's secrets in this family
func (f Family) SecretNoun() string {
	switch f {
	case FamilyClaude:
		return "token"
	case FamilyOpenCode:
		return "model"
	default:
		return "api key"
	}
}

// Timestamp returns the current time in the persisted format
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SiteMetadata is the descriptive part of a site
type SiteMetadata struct {
	URL         string  `json:"url"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// NewSiteMetadata creates metadata stamped with the current time
func NewSiteMetadata(url string, description *string) SiteMetadata {
	now := Timestamp()
	return SiteMetadata{
		URL:         url,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Touch bumps UpdatedAt
func (m *SiteMetadata) Touch() {
	m.UpdatedAt = Timestamp()
}

// Site is implemented by the per-family site records so one generic store
// can manage all of them.
type Site interface {
	Meta() *SiteMetadata
	Secrets() map[string]string
	InitSecrets()
}

// ---- Claude ----

// ClaudeVertexConfig holds the Vertex AI mode settings
type ClaudeVertexConfig struct {
	Enabled   bool    `json:"enabled"`
	ProjectID *string `json:"project_id,omitempty"`
	BaseURL   *string `json:"base_url,omitempty"`
	SkipAuth  bool    `json:"skip_auth"`
}

// ClaudeSiteConfig holds the optional per-site Claude settings
type ClaudeSiteConfig struct {
	BaseURL *string            `json:"base_url,omitempty"`
	Model   *string            `json:"model,omitempty"`
	Vertex  ClaudeVertexConfig `json:"vertex"`
}

// ClaudeSite is one Claude endpoint with its named tokens
type ClaudeSite struct {
	Metadata SiteMetadata      `json:"metadata"`
	Tokens   map[string]string `json:"tokens"`
	Config   ClaudeSiteConfig  `json:"config"`
}

func (s *ClaudeSite) Meta() *SiteMetadata        { return &s.Metadata }
func (s *ClaudeSite) Secrets() map[string]string { return s.Tokens }
func (s *ClaudeSite) InitSecrets() {
	if s.Tokens == nil {
		s.Tokens = make(map[string]string)
	}
}

// ---- Codex ----

// CodexSiteConfig holds the optional per-site Codex settings
type CodexSiteConfig struct {
	BaseURL                *string `json:"base_url,omitempty"`
	Model                  *string `json:"model,omitempty"`
	ModelReasoningEffort   *string `json:"model_reasoning_effort,omitempty"`
	ModelProvider          *string `json:"model_provider,omitempty"`
	NetworkAccess          *string `json:"network_access,omitempty"`
	DisableResponseStorage *bool   `json:"disable_response_storage,omitempty"`
	WireAPI                *string `json:"wire_api,omitempty"`
}

// CodexSite is one Codex endpoint with its named API keys
type CodexSite struct {
	Metadata SiteMetadata      `json:"metadata"`
	APIKeys  map[string]string `json:"api_keys"`
	Config   CodexSiteConfig   `json:"config"`
}

func (s *CodexSite) Meta() *SiteMetadata        { return &s.Metadata }
func (s *CodexSite) Secrets() map[string]string { return s.APIKeys }
func (s *CodexSite) InitSecrets() {
	if s.APIKeys == nil {
		s.APIKeys = make(map[string]string)
	}
}

// ---- Gemini ----

// GeminiSiteConfig holds the optional per-site Gemini settings
type GeminiSiteConfig struct {
	BaseURL *string `json:"base_url,omitempty"`
	Model   *string `json:"model,omitempty"`
}

// GeminiSite is one Gemini endpoint with its named API keys
type GeminiSite struct {
	Metadata SiteMetadata      `json:"metadata"`
	APIKeys  map[string]string `json:"api_keys"`
	Config   GeminiSiteConfig  `json:"config"`
}

func (s *GeminiSite) Meta() *SiteMetadata        { return &s.Metadata }
func (s *GeminiSite) Secrets() map[string]string { return s.APIKeys }
func (s *GeminiSite) InitSecrets() {
	if s.APIKeys == nil {
		s.APIKeys = make(map[string]string)
	}
}

// SiteDocument is the persisted credential store of a site family
type SiteDocument[T any] struct {
	Version string        `json:"version"`
	Sites   map[string]*T `json:"sites"`
}

// NewSiteDocument returns an empty document
func NewSiteDocument[T any]() *SiteDocument[T] {
	return &SiteDocument[T]{
		Version: DocumentVersion,
		Sites:   make(map[string]*T),
	}
}

type (
	ClaudeDocument = SiteDocument[ClaudeSite]
	CodexDocument  = SiteDocument[CodexSite]
	GeminiDocument = SiteDocument[GeminiSite]
)

// ---- OpenCode ----

// ProviderOptions are the connection settings of an OpenCode provider
type ProviderOptions struct {
	BaseURL string `json:"baseURL"`
	APIKey  string `json:"apiKey"`
}

// ModelLimit bounds a model's context and output sizes
type ModelLimit struct {
	Context *uint64 `json:"context,omitempty"`
	Output  *uint64 `json:"output,omitempty"`
}

// ModelInfo describes one model offered by a provider
type ModelInfo struct {
	Name  string      `json:"name"`
	Limit *ModelLimit `json:"limit,omitempty"`
}

// ProviderMetadata is internal bookkeeping that never leaves the store
type ProviderMetadata struct {
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Provider is one OpenCode provider with its models
type Provider struct {
	NPM      *string              `json:"npm,omitempty"`
	Name     string               `json:"name"`
	Options  ProviderOptions      `json:"options"`
	Models   map[string]ModelInfo `json:"models"`
	Metadata ProviderMetadata     `json:"metadata"`
}

// Touch bumps UpdatedAt
func (p *Provider) Touch() {
	p.Metadata.UpdatedAt = Timestamp()
}

// OpenCodeDocument is the persisted OpenCode provider store
type OpenCodeDocument struct {
	Version   string               `json:"version"`
	Providers map[string]*Provider `json:"providers"`
}

// NewOpenCodeDocument returns an empty document
func NewOpenCodeDocument() *OpenCodeDocument {
	return &OpenCodeDocument{
		Version:   DocumentVersion,
		Providers: make(map[string]*Provider),
	}
}

// ---- Global references ----

// ClaudeRef points at a Claude site and one of its tokens
type ClaudeRef struct {
	Site      string `json:"site"`
	TokenName string `json:"token_name"`
}

// APIKeyRef points at a site and one of its API keys
type APIKeyRef struct {
	Site       string `json:"site"`
	APIKeyName string `json:"api_key_name"`
}

type (
	CodexRef  = APIKeyRef
	GeminiRef = APIKeyRef
)

// ModelRef selects one model of one provider
type ModelRef struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// String renders the reference the way OpenCode spells model ids
func (r ModelRef) String() string {
	return r.Provider + "/" + r.Model
}

// OpenCodeRef selects the main and small models independently
type OpenCodeRef struct {
	Main  ModelRef `json:"main"`
	Small ModelRef `json:"small"`
}

// ActiveConfigs holds at most one reference per family
type ActiveConfigs struct {
	Claude   *ClaudeRef   `json:"claude,omitempty"`
	Codex    *CodexRef    `json:"codex,omitempty"`
	Gemini   *GeminiRef   `json:"gemini,omitempty"`
	OpenCode *OpenCodeRef `json:"opencode,omitempty"`
}

// IsSet reports whether the family has a reference
func (a *ActiveConfigs) IsSet(f Family) bool {
	switch f {
	case FamilyClaude:
		return a.Claude != nil
	case FamilyCodex:
		return a.Codex != nil
	case FamilyGemini:
		return a.Gemini != nil
	case FamilyOpenCode:
		return a.OpenCode != nil
	}
	return false
}

// Clear removes the family's reference
func (a *ActiveConfigs) Clear(f Family) {
	switch f {
	case FamilyClaude:
		a.Claude = nil
	case FamilyCodex:
		a.Codex = nil
	case FamilyGemini:
		a.Gemini = nil
	case FamilyOpenCode:
		a.OpenCode = nil
	}
}

// GlobalMetadata records when the global document was created and last saved
type GlobalMetadata struct {
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// GlobalConfig is the shared reference document
type GlobalConfig struct {
	Version  string         `json:"version"`
	Active   ActiveConfigs  `json:"active"`
	Metadata GlobalMetadata `json:"metadata"`
}

// NewGlobalConfig returns an empty reference document
func NewGlobalConfig() *GlobalConfig {
	now := Timestamp()
	return &GlobalConfig{
		Version:  DocumentVersion,
		Metadata: GlobalMetadata{CreatedAt: now, UpdatedAt: now},
	}
}
