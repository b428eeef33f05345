// Package resolver turns an active reference and a credential store into a
// fully materialized active configuration. Every function is pure.
package resolver

import (
	"fmt"

	"caswitch/config/models"
)

// Claude resolves a Claude reference
func Claude(ref models.ClaudeRef, doc *models.ClaudeDocument) (*models.ClaudeActive, error) {
	site, ok := doc.Sites[ref.Site]
	if !ok || site == nil {
		return nil, models.NotFound(models.EntitySite, ref.Site, "")
	}
	token, ok := site.Tokens[ref.TokenName]
	if !ok {
		return nil, models.NotFound(models.EntityToken, ref.TokenName, ref.Site)
	}

	return &models.ClaudeActive{
		Site:        ref.Site,
		URL:         site.Metadata.URL,
		Description: cloneString(site.Metadata.Description),
		TokenName:   ref.TokenName,
		Token:       token,
		Config: models.ClaudeSiteConfig{
			BaseURL: cloneString(site.Config.BaseURL),
			Model:   cloneString(site.Config.Model),
			Vertex: models.ClaudeVertexConfig{
				Enabled:   site.Config.Vertex.Enabled,
				ProjectID: cloneString(site.Config.Vertex.ProjectID),
				BaseURL:   cloneString(site.Config.Vertex.BaseURL),
				SkipAuth:  site.Config.Vertex.SkipAuth,
			},
		},
	}, nil
}

// Codex resolves a Codex reference
func Codex(ref models.CodexRef, doc *models.CodexDocument) (*models.CodexActive, error) {
	site, ok := doc.Sites[ref.Site]
	if !ok || site == nil {
		return nil, models.NotFound(models.EntitySite, ref.Site, "")
	}
	key, ok := site.APIKeys[ref.APIKeyName]
	if !ok {
		return nil, models.NotFound(models.EntityAPIKey, ref.APIKeyName, ref.Site)
	}

	c := site.Config
	return &models.CodexActive{
		Site:        ref.Site,
		URL:         site.Metadata.URL,
		Description: cloneString(site.Metadata.Description),
		APIKeyName:  ref.APIKeyName,
		APIKey:      key,
		Config: models.CodexSiteConfig{
			BaseURL:                cloneString(c.BaseURL),
			Model:                  cloneString(c.Model),
			ModelReasoningEffort:   cloneString(c.ModelReasoningEffort),
			ModelProvider:          cloneString(c.ModelProvider),
			NetworkAccess:          cloneString(c.NetworkAccess),
			DisableResponseStorage: cloneBool(c.DisableResponseStorage),
			WireAPI:                cloneString(c.WireAPI),
		},
	}, nil
}

// Gemini resolves a Gemini reference
func Gemini(ref models.GeminiRef, doc *models.GeminiDocument) (*models.GeminiActive, error) {
	site, ok := doc.Sites[ref.Site]
	if !ok || site == nil {
		return nil, models.NotFound(models.EntitySite, ref.Site, "")
	}
	key, ok := site.APIKeys[ref.APIKeyName]
	if !ok {
		return nil, models.NotFound(models.EntityAPIKey, ref.APIKeyName, ref.Site)
	}

	return &models.GeminiActive{
		Site:        ref.Site,
		URL:         site.Metadata.URL,
		Description: cloneString(site.Metadata.Description),
		APIKeyName:  ref.APIKeyName,
		APIKey:      key,
		Config: models.GeminiSiteConfig{
			BaseURL: cloneString(site.Config.BaseURL),
			Model:   cloneString(site.Config.Model),
		},
	}, nil
}

// OpenCode resolves both roles of an OpenCode reference. The first missing
// provider or model is reported, main role first.
func OpenCode(ref models.OpenCodeRef, doc *models.OpenCodeDocument) (*models.OpenCodeActive, error) {
	main, err := role("main", ref.Main, doc)
	if err != nil {
		return nil, err
	}
	small, err := role("small", ref.Small, doc)
	if err != nil {
		return nil, err
	}
	return &models.OpenCodeActive{Main: *main, Small: *small}, nil
}

func role(name string, ref models.ModelRef, doc *models.OpenCodeDocument) (*models.RoleActive, error) {
	p, ok := doc.Providers[ref.Provider]
	if !ok || p == nil {
		return nil, fmt.Errorf("%s model: %w", name, models.NotFound(models.EntityProvider, ref.Provider, ""))
	}
	info, ok := p.Models[ref.Model]
	if !ok {
		return nil, fmt.Errorf("%s model: %w", name, models.NotFound(models.EntityModel, ref.Model, ref.Provider))
	}
	return &models.RoleActive{
		Ref:      ref,
		Provider: cloneProvider(p),
		Model:    cloneModel(info),
	}, nil
}

func cloneProvider(p *models.Provider) models.Provider {
	out := models.Provider{
		NPM:     cloneString(p.NPM),
		Name:    p.Name,
		Options: p.Options,
		Models:  make(map[string]models.ModelInfo, len(p.Models)),
		Metadata: models.ProviderMetadata{
			Description: cloneString(p.Metadata.Description),
			CreatedAt:   p.Metadata.CreatedAt,
			UpdatedAt:   p.Metadata.UpdatedAt,
		},
	}
	for id, m := range p.Models {
		out.Models[id] = cloneModel(m)
	}
	return out
}

func cloneModel(m models.ModelInfo) models.ModelInfo {
	out := models.ModelInfo{Name: m.Name}
	if m.Limit != nil {
		out.Limit = &models.ModelLimit{
			Context: cloneUint(m.Limit.Context),
			Output:  cloneUint(m.Limit.Output),
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneUint(u *uint64) *uint64 {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}
