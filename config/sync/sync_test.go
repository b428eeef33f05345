package sync

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"caswitch/config/models"
	"caswitch/config/storage"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
)

// codexConfigFile reads back what RenderCodexConfig writes
type codexConfigFile struct {
	ModelProvider          string                          `toml:"model_provider"`
	Model                  *string                         `toml:"model"`
	ModelReasoningEffort   *string                         `toml:"model_reasoning_effort"`
	NetworkAccess          *string                         `toml:"network_access"`
	DisableResponseStorage *bool                           `toml:"disable_response_storage"`
	ModelProviders         map[string]codexProviderSection `toml:"model_providers"`
}

func parseCodexConfig(t *testing.T, data []byte) *codexConfigFile {
	t.Helper()
	var cfg codexConfigFile
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config.toml does not parse: %v\n%s", err, data)
	}
	return &cfg
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func standardClaude() *models.ClaudeActive {
	return &models.ClaudeActive{
		Site:      "acme",
		URL:       "https://api.acme.test",
		TokenName: "primary",
		Token:     "sk-123",
		Config:    models.ClaudeSiteConfig{BaseURL: strPtr("https://relay.acme.test")},
	}
}

func modelClaude(model string) *models.ClaudeActive {
	active := standardClaude()
	active.Config.Model = &model
	return active
}

func vertexClaude() *models.ClaudeActive {
	return &models.ClaudeActive{
		Site:      "gcp",
		TokenName: "sa",
		Token:     "ya29-token",
		Config: models.ClaudeSiteConfig{
			BaseURL: strPtr("https://ignored.test"),
			Vertex: models.ClaudeVertexConfig{
				Enabled:   true,
				ProjectID: strPtr("my-project"),
				BaseURL:   strPtr("https://vertex.test"),
				SkipAuth:  true,
			},
		},
	}
}

var vertexOnlyKeys = []string{
	"CLAUDE_CODE_USE_VERTEX",
	"ANTHROPIC_VERTEX_PROJECT_ID",
	"ANTHROPIC_VERTEX_BASE_URL",
	"CLAUDE_CODE_SKIP_VERTEX_AUTH",
	"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC",
}

func TestClaudeSyncPreservesUnrelatedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"unrelated_key": 42, "env": {"SOME_OTHER_VAR": "x"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	s := &ClaudeSyncer{SettingsPath: path}
	if _, err := s.Sync(standardClaude()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := gjson.ParseBytes(data)

	if got := doc.Get("unrelated_key"); got.Raw != "42" {
		t.Errorf("unrelated_key = %s, want 42", got.Raw)
	}
	if got := doc.Get("env.SOME_OTHER_VAR").String(); got != "x" {
		t.Errorf("env.SOME_OTHER_VAR = %q, want x", got)
	}
	if got := doc.Get("env.ANTHROPIC_BASE_URL").String(); got != "https://relay.acme.test" {
		t.Errorf("env.ANTHROPIC_BASE_URL = %q", got)
	}
	if got := doc.Get("env.ANTHROPIC_AUTH_TOKEN").String(); got != "sk-123" {
		t.Errorf("env.ANTHROPIC_AUTH_TOKEN = %q", got)
	}
	for _, key := range vertexOnlyKeys {
		if doc.Get("env." + key).Exists() {
			t.Errorf("vertex key %s present in standard mode", key)
		}
	}
}

func TestUpdateClaudeSettings(t *testing.T) {
	tests := []struct {
		name     string
		original string
		active   *models.ClaudeActive
		present  map[string]string
		absent   []string
	}{
		{
			name:     "missing file",
			original: "",
			active:   standardClaude(),
			present:  map[string]string{"env.ANTHROPIC_AUTH_TOKEN": "sk-123"},
		},
		{
			name:     "malformed file is replaced",
			original: `{"env": {`,
			active:   standardClaude(),
			present:  map[string]string{"env.ANTHROPIC_BASE_URL": "https://relay.acme.test"},
		},
		{
			name:     "non-object root is replaced",
			original: `[1,2,3]`,
			active:   standardClaude(),
			present:  map[string]string{"env.ANTHROPIC_AUTH_TOKEN": "sk-123"},
		},
		{
			name:     "top-level owned keys are stripped",
			original: `{"ANTHROPIC_AUTH_TOKEN": "old", "CLAUDE_CODE_USE_VERTEX": "1", "theme": "dark"}`,
			active:   standardClaude(),
			present:  map[string]string{"theme": "dark"},
			absent:   []string{"ANTHROPIC_AUTH_TOKEN", "CLAUDE_CODE_USE_VERTEX"},
		},
		{
			name:     "vertex mode",
			original: `{"env": {"ANTHROPIC_BASE_URL": "https://old.test", "PATH_EXTRA": "/opt"}}`,
			active:   vertexClaude(),
			present: map[string]string{
				"env.CLAUDE_CODE_USE_VERTEX":                   "1",
				"env.ANTHROPIC_VERTEX_PROJECT_ID":              "my-project",
				"env.ANTHROPIC_VERTEX_BASE_URL":                "https://vertex.test",
				"env.CLAUDE_CODE_SKIP_VERTEX_AUTH":             "1",
				"env.CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC": "1",
				"env.PATH_EXTRA":                               "/opt",
			},
			absent: []string{"env.ANTHROPIC_BASE_URL"},
		},
		{
			name:     "user model is kept when the site sets none",
			original: `{"env": {"ANTHROPIC_MODEL": "claude-opus-user"}, "ANTHROPIC_MODEL": "top"}`,
			active:   standardClaude(),
			present:  map[string]string{"env.ANTHROPIC_MODEL": "claude-opus-user", "ANTHROPIC_MODEL": "top"},
		},
		{
			name:     "site model overwrites the user model",
			original: `{"env": {"ANTHROPIC_MODEL": "claude-opus-user"}}`,
			active:   modelClaude("claude-sonnet-site"),
			present:  map[string]string{"env.ANTHROPIC_MODEL": "claude-sonnet-site"},
		},
		{
			name:     "non-object env is reset",
			original: `{"env": "broken", "hooks": {"x": [1]}}`,
			active:   standardClaude(),
			present:  map[string]string{"env.ANTHROPIC_AUTH_TOKEN": "sk-123", "hooks.x.0": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UpdateClaudeSettings(tt.original, tt.active)
			if err != nil {
				t.Fatalf("UpdateClaudeSettings() error = %v", err)
			}
			if !json.Valid([]byte(got)) {
				t.Fatalf("output is not valid JSON: %s", got)
			}
			for path, want := range tt.present {
				if v := gjson.Get(got, path).String(); v != want {
					t.Errorf("%s = %q, want %q", path, v, want)
				}
			}
			for _, path := range tt.absent {
				if gjson.Get(got, path).Exists() {
					t.Errorf("%s should be absent in %s", path, got)
				}
			}
		})
	}
}

func TestClaudeModeSwitchIsClean(t *testing.T) {
	afterVertex, err := UpdateClaudeSettings(`{"permissions": {"allow": ["Bash"]}}`, vertexClaude())
	if err != nil {
		t.Fatalf("vertex sync error = %v", err)
	}
	afterStandard, err := UpdateClaudeSettings(afterVertex, standardClaude())
	if err != nil {
		t.Fatalf("standard sync error = %v", err)
	}
	for _, key := range vertexOnlyKeys {
		if gjson.Get(afterStandard, "env."+key).Exists() {
			t.Errorf("%s left behind after switching to standard mode", key)
		}
	}
	if gjson.Get(afterStandard, "permissions.allow.0").String() != "Bash" {
		t.Error("permissions lost across mode switch")
	}

	backToVertex, err := UpdateClaudeSettings(afterStandard, vertexClaude())
	if err != nil {
		t.Fatalf("vertex sync error = %v", err)
	}
	if gjson.Get(backToVertex, "env.ANTHROPIC_BASE_URL").Exists() {
		t.Error("ANTHROPIC_BASE_URL left behind after switching to vertex mode")
	}
}

func TestDeepMerge(t *testing.T) {
	content := `{"env": {"keep": 1, "nested": {"a": 1, "b": 2}, "scalar": {"x": 1}}}`
	got, err := deepMerge(content, "env", map[string]any{
		"nested": map[string]any{"b": 3, "c": 4},
		"scalar": "now a string",
		"new":    true,
	})
	if err != nil {
		t.Fatalf("deepMerge() error = %v", err)
	}

	checks := map[string]string{
		"env.keep":     "1",
		"env.nested.a": "1",
		"env.nested.b": "3",
		"env.nested.c": "4",
		"env.scalar":   "now a string",
		"env.new":      "true",
	}
	for path, want := range checks {
		if v := gjson.Get(got, path).String(); v != want {
			t.Errorf("%s = %q, want %q", path, v, want)
		}
	}
}

func TestEscapeKey(t *testing.T) {
	got, err := deepMerge(`{}`, "env", map[string]any{"a.b": "dotted"})
	if err != nil {
		t.Fatalf("deepMerge() error = %v", err)
	}
	if v := gjson.Get(got, `env.a\.b`).String(); v != "dotted" {
		t.Errorf("dotted key not stored literally: %s", got)
	}
}

func TestValidateJSONUpdate(t *testing.T) {
	if err := validateJSONUpdate(`{"a": 1, "env": {"X": "1"}}`, `{"a": 1, "env": {"X": "1", "ANTHROPIC_AUTH_TOKEN": "t"}}`, nil); err != nil {
		t.Errorf("valid update rejected: %v", err)
	}
	if err := validateJSONUpdate(`{"a": 1}`, `{"a": 2}`, nil); err == nil {
		t.Error("changed unowned field accepted")
	}
	if err := validateJSONUpdate(`{"env": {"X": "1"}}`, `{"env": {}}`, nil); err == nil {
		t.Error("deleted env field accepted")
	}
	if err := validateJSONUpdate(`{"ANTHROPIC_BASE_URL": "x"}`, `{}`, nil); err != nil {
		t.Errorf("stripping an owned key rejected: %v", err)
	}
	if err := validateJSONUpdate(`{"env": {"ANTHROPIC_MODEL": "a"}}`, `{"env": {"ANTHROPIC_MODEL": "b"}}`, nil); err == nil {
		t.Error("changed user model accepted")
	}
	if err := validateJSONUpdate(`{"env": {"ANTHROPIC_MODEL": "a"}}`, `{"env": {"ANTHROPIC_MODEL": "b"}}`, map[string]any{"ANTHROPIC_MODEL": "b"}); err != nil {
		t.Errorf("model written by the sync rejected: %v", err)
	}
}

func codexActive() *models.CodexActive {
	return &models.CodexActive{
		Site:       "acme",
		APIKeyName: "primary",
		APIKey:     "sk-codex",
		Config: models.CodexSiteConfig{
			BaseURL:                strPtr("https://api.acme.test/v1"),
			Model:                  strPtr("gpt-5-codex"),
			ModelReasoningEffort:   strPtr("high"),
			DisableResponseStorage: boolPtr(true),
			WireAPI:                strPtr("responses"),
		},
	}
}

func TestRenderCodexConfig(t *testing.T) {
	out, err := RenderCodexConfig(codexActive())
	if err != nil {
		t.Fatalf("RenderCodexConfig() error = %v", err)
	}
	text := string(out)

	providerHeader := strings.Index(text, "[model_providers.acme]")
	if providerHeader < 0 {
		t.Fatalf("provider table missing:\n%s", text)
	}
	if !strings.Contains(text, "\n\n[model_providers.acme]") {
		t.Errorf("expected a blank line before the provider table:\n%s", text)
	}
	for _, key := range []string{"model_provider", "model ", "model_reasoning_effort", "disable_response_storage"} {
		idx := strings.Index(text, key)
		if idx < 0 || idx > providerHeader {
			t.Errorf("%q should appear before the provider table:\n%s", key, text)
		}
	}
	if strings.Contains(text, "network_access") {
		t.Errorf("unset network_access rendered:\n%s", text)
	}

	parsed := parseCodexConfig(t, out)
	if parsed.ModelProvider != "acme" || *parsed.Model != "gpt-5-codex" || !*parsed.DisableResponseStorage {
		t.Errorf("parsed top level = %+v", parsed)
	}
	section, ok := parsed.ModelProviders["acme"]
	if !ok {
		t.Fatalf("model_providers.acme missing: %+v", parsed.ModelProviders)
	}
	if section.Name != "acme" || *section.BaseURL != "https://api.acme.test/v1" || *section.WireAPI != "responses" || !section.RequiresOpenAIAuth {
		t.Errorf("section = %+v", section)
	}
}

func TestRenderCodexConfigProviderOverride(t *testing.T) {
	active := codexActive()
	active.Config = models.CodexSiteConfig{ModelProvider: strPtr("my relay")}

	out, err := RenderCodexConfig(active)
	if err != nil {
		t.Fatalf("RenderCodexConfig() error = %v", err)
	}
	parsed := parseCodexConfig(t, out)
	if parsed.ModelProvider != "my relay" {
		t.Errorf("model_provider = %q", parsed.ModelProvider)
	}
	section := parsed.ModelProviders["my relay"]
	if section.BaseURL != nil || section.WireAPI != nil {
		t.Errorf("unset fields rendered: %+v", section)
	}
}

func TestCodexSyncWritesBothFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".codex")
	s := &CodexSyncer{
		ConfigPath: filepath.Join(dir, "config.toml"),
		AuthPath:   filepath.Join(dir, "auth.json"),
	}
	res, err := s.Sync(codexActive())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(res.Files) != 2 || res.Files[0].Path != s.AuthPath {
		t.Errorf("files = %+v, want auth.json first", res.Files)
	}

	auth, err := os.ReadFile(s.AuthPath)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]string
	if err := json.Unmarshal(auth, &m); err != nil {
		t.Fatal(err)
	}
	if len(m) != 1 || m["OPENAI_API_KEY"] != "sk-codex" {
		t.Errorf("auth.json = %v", m)
	}
}

func TestCodexSyncWriteFailure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "codex")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	s := &CodexSyncer{
		ConfigPath: filepath.Join(blocker, "config.toml"),
		AuthPath:   filepath.Join(blocker, "auth.json"),
	}
	if _, err := s.Sync(codexActive()); !errors.Is(err, models.ErrIO) {
		t.Errorf("Sync() error = %v, want ErrIO", err)
	}
}

func TestRenderGeminiEnv(t *testing.T) {
	tests := []struct {
		name   string
		config models.GeminiSiteConfig
		want   string
	}{
		{"key only", models.GeminiSiteConfig{}, "GEMINI_API_KEY=AIza-1\n"},
		{
			"all fields",
			models.GeminiSiteConfig{BaseURL: strPtr("https://relay.test"), Model: strPtr("gemini-2.5-pro")},
			"GOOGLE_GEMINI_BASE_URL=https://relay.test\nGEMINI_API_KEY=AIza-1\nGEMINI_MODEL=gemini-2.5-pro\n",
		},
		{"empty value is absent", models.GeminiSiteConfig{Model: strPtr("")}, "GEMINI_API_KEY=AIza-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderGeminiEnv(&models.GeminiActive{APIKey: "AIza-1", Config: tt.config})
			if err != nil {
				t.Fatalf("RenderGeminiEnv() error = %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("RenderGeminiEnv() = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRenderGeminiEnvRejectsLineBreaks(t *testing.T) {
	for _, config := range []models.GeminiSiteConfig{
		{Model: strPtr("gemini-pro\nGEMINI_API_KEY=attacker")},
		{BaseURL: strPtr("https://relay.test\r\nHTTPS_PROXY=http://evil.test")},
	} {
		if _, err := RenderGeminiEnv(&models.GeminiActive{APIKey: "AIza-1", Config: config}); !errors.Is(err, models.ErrSerialization) {
			t.Errorf("RenderGeminiEnv(%+v) error = %v, want ErrSerialization", config, err)
		}
	}

	path := filepath.Join(t.TempDir(), ".env")
	s := &GeminiSyncer{EnvPath: path}
	active := &models.GeminiActive{APIKey: "AIza-1", Config: models.GeminiSiteConfig{Model: strPtr("a\nb")}}
	if _, err := s.Sync(active); err == nil {
		t.Fatal("Sync() accepted a multi-line value")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf(".env written: %v", err)
	}
}

func openCodeActive(mainProvider, smallProvider string) *models.OpenCodeActive {
	provider := func(name string) models.Provider {
		return models.Provider{
			NPM:     strPtr("@ai-sdk/openai-compatible"),
			Name:    strings.ToUpper(name),
			Options: models.ProviderOptions{BaseURL: "https://" + name + ".test/v1", APIKey: "sk-" + name},
			Models:  map[string]models.ModelInfo{"m": {Name: "M"}},
			Metadata: models.ProviderMetadata{
				Description: strPtr("internal note"),
				CreatedAt:   "2024-01-01T00:00:00Z",
			},
		}
	}
	return &models.OpenCodeActive{
		Main:  models.RoleActive{Ref: models.ModelRef{Provider: mainProvider, Model: "m"}, Provider: provider(mainProvider), Model: models.ModelInfo{Name: "M"}},
		Small: models.RoleActive{Ref: models.ModelRef{Provider: smallProvider, Model: "m"}, Provider: provider(smallProvider), Model: models.ModelInfo{Name: "M"}},
	}
}

func TestRenderOpenCode(t *testing.T) {
	out, err := RenderOpenCode(openCodeActive("a", "a"), "tokyonight")
	if err != nil {
		t.Fatalf("RenderOpenCode() error = %v", err)
	}
	doc := gjson.ParseBytes(out)

	if doc.Get(`\$schema`).String() != openCodeSchema {
		t.Errorf("$schema = %q", doc.Get(`\$schema`).String())
	}
	if doc.Get("autoupdate").Bool() {
		t.Error("autoupdate should be false")
	}
	if doc.Get("model").String() != "a/m" || doc.Get("small_model").String() != "a/m" {
		t.Errorf("model = %q small_model = %q", doc.Get("model"), doc.Get("small_model"))
	}
	if n := len(doc.Get("provider").Map()); n != 1 {
		t.Errorf("provider count = %d, want 1 for a shared provider", n)
	}
	if doc.Get("provider.a.options.apiKey").String() != "sk-a" {
		t.Error("provider options missing")
	}
	if doc.Get("provider.a.metadata").Exists() || bytes.Contains(out, []byte("internal note")) {
		t.Error("internal metadata leaked into opencode.json")
	}
	if !doc.Get("tools.webfetch").Bool() || !doc.Get("agent").IsObject() || !doc.Get("mcp").IsObject() {
		t.Error("static scaffold incomplete")
	}
}

func TestOpenCodeApply(t *testing.T) {
	project := t.TempDir()
	s := &OpenCodeSyncer{GlobalPath: filepath.Join(t.TempDir(), "global", "opencode.json"), Theme: "tokyonight"}

	if _, err := s.Apply(project, openCodeActive("a", "b")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !storage.FileExists(filepath.Join(project, ".opencode", "opencode.json")) {
		t.Error("project opencode.json missing")
	}
	if storage.FileExists(s.GlobalPath) {
		t.Error("Apply() must not touch the global file")
	}
}

func TestSyncDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	s := &GeminiSyncer{EnvPath: path, Options: SyncOptions{DryRun: true}}
	res, err := s.Sync(&models.GeminiActive{APIKey: "AIza-1"})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(res.Files) != 1 || string(res.Files[0].Content) != "GEMINI_API_KEY=AIza-1\n" {
		t.Errorf("result = %+v", res.Files)
	}
	if storage.FileExists(path) {
		t.Error("dry run wrote the target")
	}
}

func TestSyncBackupBeforeOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GEMINI_API_KEY=old\n"), 0600); err != nil {
		t.Fatal(err)
	}
	s := &GeminiSyncer{EnvPath: path, Options: SyncOptions{CreateBackup: true, Retention: 1}}
	if _, err := s.Sync(&models.GeminiActive{APIKey: "new"}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	backups, err := storage.NewBackupManager(1).ListBackups(path)
	if err != nil || len(backups) != 1 {
		t.Fatalf("backups = %v, err = %v", backups, err)
	}
}
