package models

// ClaudeActive is a resolved Claude reference. It is rebuilt on demand and
// never persisted.
type ClaudeActive struct {
	Site        string
	URL         string
	Description *string
	TokenName   string
	Token       string
	Config      ClaudeSiteConfig
}

// IsVertex reports whether the Vertex AI mode is selected
func (a *ClaudeActive) IsVertex() bool {
	return a.Config.Vertex.Enabled
}

// CodexActive is a resolved Codex reference
type CodexActive struct {
	Site        string
	URL         string
	Description *string
	APIKeyName  string
	APIKey      string
	Config      CodexSiteConfig
}

// ProviderID returns the model_providers section name, defaulting to the site name
func (a *CodexActive) ProviderID() string {
	if a.Config.ModelProvider != nil && *a.Config.ModelProvider != "" {
		return *a.Config.ModelProvider
	}
	return a.Site
}

// GeminiActive is a resolved Gemini reference
type GeminiActive struct {
	Site        string
	URL         string
	Description *string
	APIKeyName  string
	APIKey      string
	Config      GeminiSiteConfig
}

// RoleActive is one resolved OpenCode role
type RoleActive struct {
	Ref      ModelRef
	Provider Provider
	Model    ModelInfo
}

// OpenCodeActive is a resolved OpenCode reference
type OpenCodeActive struct {
	Main  RoleActive
	Small RoleActive
}

// ProviderNames returns the distinct providers referenced by both roles,
// main first.
func (a *OpenCodeActive) ProviderNames() []string {
	if a.Main.Ref.Provider == a.Small.Ref.Provider {
		return []string{a.Main.Ref.Provider}
	}
	return []string{a.Main.Ref.Provider, a.Small.Ref.Provider}
}
