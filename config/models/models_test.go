package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func strPtr(s string) *string { return &s }

func TestFieldFromInput(t *testing.T) {
	if f := FieldFromInput(""); !f.IsClear() {
		t.Error("empty input should clear")
	}
	f := FieldFromInput("x")
	if !f.IsSet() || f.Value() != "x" {
		t.Errorf("FieldFromInput(x) = %+v", f)
	}
	var keep Field[string]
	if !keep.IsKeep() {
		t.Error("zero Field should keep")
	}
}

func TestCodexConfigPatchApply(t *testing.T) {
	cfg := CodexSiteConfig{
		BaseURL:       strPtr("https://old.test"),
		Model:         strPtr("gpt-4"),
		NetworkAccess: strPtr("enabled"),
	}

	changed := CodexConfigPatch{
		Model:                  Set("gpt-5"),
		NetworkAccess:          Clear[string](),
		DisableResponseStorage: Set(true),
	}.Apply(&cfg)

	if !changed {
		t.Error("Apply() reported no change")
	}
	if *cfg.BaseURL != "https://old.test" {
		t.Errorf("untouched BaseURL changed to %q", *cfg.BaseURL)
	}
	if *cfg.Model != "gpt-5" {
		t.Errorf("Model = %q", *cfg.Model)
	}
	if cfg.NetworkAccess != nil {
		t.Error("NetworkAccess should be cleared")
	}
	if cfg.DisableResponseStorage == nil || !*cfg.DisableResponseStorage {
		t.Error("DisableResponseStorage should be set")
	}

	if (CodexConfigPatch{}).Apply(&cfg) {
		t.Error("empty patch reported a change")
	}
}

func TestClaudeConfigPatchVertex(t *testing.T) {
	cfg := ClaudeSiteConfig{BaseURL: strPtr("https://relay.test")}
	ClaudeConfigPatch{
		Vertex: VertexPatch{Enabled: Set(true), ProjectID: Set("p1"), SkipAuth: Set(true)},
	}.Apply(&cfg)

	if !cfg.Vertex.Enabled || *cfg.Vertex.ProjectID != "p1" || !cfg.Vertex.SkipAuth {
		t.Errorf("Vertex = %+v", cfg.Vertex)
	}
	if *cfg.BaseURL != "https://relay.test" {
		t.Error("BaseURL lost")
	}

	ClaudeConfigPatch{Vertex: VertexPatch{Enabled: Clear[bool]()}}.Apply(&cfg)
	if cfg.Vertex.Enabled {
		t.Error("Enabled should reset to false")
	}
}

func TestModelPatchLimits(t *testing.T) {
	m := ModelInfo{Name: "m"}

	ModelPatch{Context: Set[uint64](200000)}.Apply(&m)
	if m.Limit == nil || *m.Limit.Context != 200000 || m.Limit.Output != nil {
		t.Fatalf("Limit = %+v", m.Limit)
	}

	ModelPatch{Output: Set[uint64](8192)}.Apply(&m)
	if *m.Limit.Context != 200000 || *m.Limit.Output != 8192 {
		t.Errorf("Limit = %+v", m.Limit)
	}

	ModelPatch{Context: Clear[uint64](), Output: Clear[uint64]()}.Apply(&m)
	if m.Limit != nil {
		t.Errorf("empty limit should be dropped, got %+v", m.Limit)
	}
	if m.Name != "m" {
		t.Errorf("Name = %q", m.Name)
	}
}

func TestProviderPatchApply(t *testing.T) {
	p := Provider{
		Name:     "Acme",
		NPM:      strPtr("@ai-sdk/openai-compatible"),
		Options:  ProviderOptions{BaseURL: "https://a.test", APIKey: "sk-1"},
		Metadata: ProviderMetadata{Description: strPtr("old")},
	}
	ProviderPatch{APIKey: Set("sk-2"), NPM: Clear[string](), Description: Set("new")}.Apply(&p)

	if p.Options.APIKey != "sk-2" || p.Options.BaseURL != "https://a.test" {
		t.Errorf("Options = %+v", p.Options)
	}
	if p.NPM != nil {
		t.Error("NPM should be cleared")
	}
	if *p.Metadata.Description != "new" {
		t.Errorf("Description = %q", *p.Metadata.Description)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NotFound(EntitySite, "acme", ""), "Site 'acme' not found"},
		{NotFound(EntityToken, "t1", "acme"), "Token 't1' not found in site 'acme'"},
		{NotFound(EntityAPIKey, "k", "acme"), "API key 'k' not found in site 'acme'"},
		{NotFound(EntityModel, "gpt", "openai"), "Model 'gpt' not found in provider 'openai'"},
		{AlreadyExists(EntityProvider, "openai", ""), "Provider 'openai' already exists"},
		{AlreadyExists(EntityToken, "t1", "acme"), "Token 't1' already exists in site 'acme'"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseFamily(t *testing.T) {
	for _, f := range Families() {
		got, err := ParseFamily(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFamily(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFamily("copilot"); err == nil {
		t.Error("unknown family accepted")
	}
}

func TestActiveConfigsClear(t *testing.T) {
	a := ActiveConfigs{
		Claude:   &ClaudeRef{Site: "s", TokenName: "t"},
		OpenCode: &OpenCodeRef{},
	}
	a.Clear(FamilyClaude)
	if a.IsSet(FamilyClaude) || !a.IsSet(FamilyOpenCode) {
		t.Errorf("Clear touched the wrong family: %+v", a)
	}
}

func TestOpenCodeActiveProviderNames(t *testing.T) {
	a := OpenCodeActive{
		Main:  RoleActive{Ref: ModelRef{Provider: "b", Model: "x"}},
		Small: RoleActive{Ref: ModelRef{Provider: "a", Model: "y"}},
	}
	if got := a.ProviderNames(); len(got) != 2 || got[0] != "b" {
		t.Errorf("ProviderNames() = %v", got)
	}
	a.Small.Ref.Provider = "b"
	if got := a.ProviderNames(); len(got) != 1 {
		t.Errorf("ProviderNames() = %v, want one entry", got)
	}
}

// TestPropertyErrorCategorization verifies that wrapped errors keep their
// category no matter how deep they are wrapped.
func TestPropertyErrorCategorization(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	bases := []struct {
		err      error
		category string
	}{
		{NotFound(EntitySite, "s", ""), ErrorCategoryNotFound},
		{AlreadyExists(EntityModel, "m", "p"), ErrorCategoryAlreadyExists},
		{fmt.Errorf("%w: bad json", ErrSerialization), ErrorCategorySerialization},
		{fmt.Errorf("%w: disk full", ErrIO), ErrorCategoryIO},
		{ErrCancelled, ErrorCategoryCancelled},
		{errors.New("boom"), ErrorCategoryUnknown},
	}

	properties.Property("category survives wrapping", prop.ForAll(
		func(idx int, depth int) bool {
			base := bases[idx]
			err := base.err
			for i := 0; i < depth; i++ {
				err = fmt.Errorf("layer %d: %w", i, err)
			}
			info := CategorizeErrorWithInfo(err)
			return info.Category == base.category &&
				info.Message == err.Error() &&
				info.UserMessage == GetUserMessage(base.category)
		},
		gen.IntRange(0, len(bases)-1),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
