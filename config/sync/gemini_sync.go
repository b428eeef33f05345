package sync

import (
	"fmt"
	"strings"

	"caswitch/config/models"
)

// GeminiSyncer regenerates the Gemini CLI .env file
type GeminiSyncer struct {
	EnvPath string
	Options SyncOptions
}

// Sync rewrites .env for active
func (s *GeminiSyncer) Sync(active *models.GeminiActive) (*Result, error) {
	env, err := RenderGeminiEnv(active)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if err := s.Options.write(res, s.EnvPath, env); err != nil {
		return nil, err
	}
	return res, nil
}

// RenderGeminiEnv renders one KEY=value line per present setting plus the
// mandatory API key. Unset settings produce no line at all. A value with a
// line break is refused rather than split into extra entries.
func RenderGeminiEnv(active *models.GeminiActive) ([]byte, error) {
	lines := []struct {
		key   string
		value *string
	}{
		{"GOOGLE_GEMINI_BASE_URL", active.Config.BaseURL},
		{"GEMINI_API_KEY", &active.APIKey},
		{"GEMINI_MODEL", active.Config.Model},
	}

	var b strings.Builder
	for _, l := range lines {
		if l.value == nil || (*l.value == "" && l.key != "GEMINI_API_KEY") {
			continue
		}
		if strings.ContainsAny(*l.value, "\r\n") {
			return nil, fmt.Errorf("%w: %s must be a single line", models.ErrSerialization, l.key)
		}
		b.WriteString(l.key + "=" + *l.value + "\n")
	}
	return []byte(b.String()), nil
}
