package providers

import (
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	got := strings.Join(List(), ",")
	if got != "claude,codex,gemini,opencode" {
		t.Errorf("List() = %q", got)
	}

	if _, err := Get("cursor"); err == nil {
		t.Error("Get(cursor) should fail")
	}
}

func TestTools(t *testing.T) {
	tests := []struct {
		name        string
		display     string
		baseURL     string
		targetCount int
	}{
		{"claude", "Claude Code", "https://api.anthropic.com", 1},
		{"codex", "Codex CLI", "https://api.openai.com/v1", 2},
		{"gemini", "Gemini CLI", "https://generativelanguage.googleapis.com", 1},
		{"opencode", "OpenCode", "https://api.openai.com/v1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := Get(tt.name)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if tool.Name() != tt.name {
				t.Errorf("Name() = %v, want %v", tool.Name(), tt.name)
			}
			if tool.DisplayName() != tt.display {
				t.Errorf("DisplayName() = %v, want %v", tool.DisplayName(), tt.display)
			}
			if tool.DefaultBaseURL() != tt.baseURL {
				t.Errorf("DefaultBaseURL() = %v, want %v", tool.DefaultBaseURL(), tt.baseURL)
			}
			if tool.DefaultModel() == "" {
				t.Error("DefaultModel() should not be empty")
			}
			if len(tool.Targets()) != tt.targetCount {
				t.Errorf("Targets() = %v", tool.Targets())
			}
		})
	}
}

func TestValidateSecret(t *testing.T) {
	tool, _ := Get("claude")

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid", "sk-ant-123", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"inner space", "sk 123", true},
		{"newline", "sk-123\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tool.ValidateSecret(tt.secret); (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tool, _ := Get("codex")

	tests := []struct {
		in, want string
	}{
		{"https://api.example.com/v1/", "https://api.example.com/v1"},
		{"https://api.example.com//", "https://api.example.com"},
		{" https://api.example.com ", "https://api.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := tool.NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
