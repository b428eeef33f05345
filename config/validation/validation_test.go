package validation

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	iv := NewInputValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "acme", false},
		{"unicode", "中转站", false},
		{"dash and dot", "acme-eu.v2", false},
		{"empty", "", true},
		{"leading space", " acme", true},
		{"slash", "a/b", true},
		{"quote", `a"b`, true},
		{"too long", strings.Repeat("x", MaxNameLength+1), true},
		{"max length", strings.Repeat("x", MaxNameLength), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := iv.ValidateName("site", tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURLs(t *testing.T) {
	iv := NewInputValidator()
	if err := iv.ValidateURL(""); err != nil {
		t.Errorf("ValidateURL(\"\") error = %v", err)
	}
	if err := iv.ValidateRequiredURL(""); err == nil {
		t.Error("ValidateRequiredURL(\"\") should fail")
	}
	if err := iv.ValidateURL("api.acme.test"); err == nil {
		t.Error("ValidateURL without scheme should fail")
	}
	if err := iv.ValidateRequiredURL("https://api.acme.test"); err != nil {
		t.Errorf("ValidateRequiredURL() error = %v", err)
	}
}

func TestValidateModelID(t *testing.T) {
	iv := NewInputValidator()
	for _, ok := range []string{"gpt-5", "anthropic/claude-sonnet-4", "qwen3:32b"} {
		if err := iv.ValidateModelID(ok); err != nil {
			t.Errorf("ValidateModelID(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "  ", "gpt 5", "<x>"} {
		if err := iv.ValidateModelID(bad); err == nil {
			t.Errorf("ValidateModelID(%q) should fail", bad)
		}
	}
}

func TestNormalizeModels(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"trims and dedupes", []string{" gpt-5 ", "gpt-5", "", "o3"}, []string{"gpt-5", "o3"}},
		{"keeps order", []string{"b", "a", "b"}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeModels(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeModels() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitModels(t *testing.T) {
	got := SplitModels("gpt-5, o3,,gpt-5")
	want := []string{"gpt-5", "o3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitModels() = %v, want %v", got, want)
	}
}

func TestValidateModelInList(t *testing.T) {
	ids := []string{"claude-opus-4", "  claude-sonnet-4  "}
	if err := ValidateModelInList("claude-sonnet-4", ids); err != nil {
		t.Errorf("ValidateModelInList() error = %v", err)
	}
	if err := ValidateModelInList("gpt-5", ids); err == nil {
		t.Error("ValidateModelInList(gpt-5) should fail")
	}
	if err := ValidateModelInList("", ids); err == nil {
		t.Error("ValidateModelInList(\"\") should fail")
	}
}

func TestValidateSetting(t *testing.T) {
	iv := NewInputValidator()
	for _, ok := range []string{"", "gemini-2.5-pro", "https://relay.test/v1", "value with spaces"} {
		if err := iv.ValidateSetting("--model", ok); err != nil {
			t.Errorf("ValidateSetting(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"a\nb", "a\rb", "trailing\n", "nul\x00"} {
		if err := iv.ValidateSetting("--model", bad); err == nil {
			t.Errorf("ValidateSetting(%q) should fail", bad)
		}
	}
}

func TestValidateSite(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		in      SiteInput
		wantErr bool
	}{
		{"site only", SiteInput{Family: "claude", Name: "acme", URL: "https://api.acme.test"}, false},
		{"with secret", SiteInput{Family: "codex", Name: "acme", URL: "https://api.acme.test", SecretName: "primary", Secret: "sk-123"}, false},
		{"unknown family", SiteInput{Family: "cursor", Name: "acme", URL: "https://api.acme.test"}, true},
		{"missing url", SiteInput{Family: "gemini", Name: "acme"}, true},
		{"empty secret value", SiteInput{Family: "claude", Name: "acme", URL: "https://api.acme.test", SecretName: "primary"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateSite(tt.in); (err != nil) != tt.wantErr {
				t.Errorf("ValidateSite() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
