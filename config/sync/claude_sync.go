package sync

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"caswitch/config/models"
	"caswitch/config/storage"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Keys owned by the Claude synchronizer, removed at the top level and inside env.
// ANTHROPIC_MODEL is not owned: it is written when the site sets a model and
// otherwise left as the user had it.
var claudeOwnedKeys = []string{
	"ANTHROPIC_AUTH_TOKEN",
	"ANTHROPIC_BASE_URL",
	"ANTHROPIC_VERTEX_BASE_URL",
	"ANTHROPIC_VERTEX_PROJECT_ID",
	"CLAUDE_CODE_USE_VERTEX",
	"CLAUDE_CODE_SKIP_VERTEX_AUTH",
}

// claudeOwnedEnvKeys adds the keys that only ever live inside env
var claudeOwnedEnvKeys = append(append([]string{}, claudeOwnedKeys...),
	"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC",
)

const envField = "env"

// ClaudeSyncer deep-merges the active Claude site into settings.json, which
// is shared with the user and with Claude Code itself.
type ClaudeSyncer struct {
	SettingsPath string
	Options      SyncOptions
}

// Sync rewrites settings.json for active
func (s *ClaudeSyncer) Sync(active *models.ClaudeActive) (*Result, error) {
	original, _, err := storage.ReadFile(s.SettingsPath)
	if err != nil {
		return nil, err
	}

	updated, err := UpdateClaudeSettings(string(original), active)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if err := s.Options.write(res, s.SettingsPath, []byte(updated)); err != nil {
		return nil, err
	}
	return res, nil
}

// ClaudeEnv builds the env entries for the current mode only
func ClaudeEnv(active *models.ClaudeActive) map[string]any {
	env := map[string]any{
		"ANTHROPIC_AUTH_TOKEN": active.Token,
	}

	cfg := active.Config
	if cfg.Vertex.Enabled {
		env["CLAUDE_CODE_USE_VERTEX"] = "1"
		if cfg.Vertex.ProjectID != nil {
			env["ANTHROPIC_VERTEX_PROJECT_ID"] = *cfg.Vertex.ProjectID
		}
		if cfg.Vertex.BaseURL != nil {
			env["ANTHROPIC_VERTEX_BASE_URL"] = *cfg.Vertex.BaseURL
		}
		if cfg.Vertex.SkipAuth {
			env["CLAUDE_CODE_SKIP_VERTEX_AUTH"] = "1"
		}
		env["CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC"] = "1"
	} else if cfg.BaseURL != nil {
		env["ANTHROPIC_BASE_URL"] = *cfg.BaseURL
	}

	if cfg.Model != nil {
		env["ANTHROPIC_MODEL"] = *cfg.Model
	}
	return env
}

// UpdateClaudeSettings strips every owned key from originalContent, merges
// the env of the active mode into its env object and returns the formatted
// document. Content that is not a JSON object is treated as {}.
func UpdateClaudeSettings(originalContent string, active *models.ClaudeActive) (string, error) {
	content := originalContent
	if !gjson.Valid(content) || !gjson.Parse(content).IsObject() {
		content = "{}"
	}
	base := content

	var err error
	for _, key := range claudeOwnedKeys {
		if content, err = sjson.Delete(content, escapeKey(key)); err != nil {
			return "", fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}

	env := gjson.Get(content, envField)
	if env.Exists() && !env.IsObject() {
		if content, err = sjson.SetRaw(content, envField, "{}"); err != nil {
			return "", fmt.Errorf("failed to reset env field: %w", err)
		}
	}
	for _, key := range claudeOwnedEnvKeys {
		if content, err = sjson.Delete(content, envField+"."+escapeKey(key)); err != nil {
			return "", fmt.Errorf("failed to remove env.%s: %w", key, err)
		}
	}

	fresh := ClaudeEnv(active)
	if content, err = deepMerge(content, envField, fresh); err != nil {
		return "", fmt.Errorf("failed to update env field: %w", err)
	}

	formatted := string(pretty.Pretty([]byte(content)))

	if err := validateJSONUpdate(base, formatted, fresh); err != nil {
		return "", fmt.Errorf("update validation failed: %w", err)
	}
	return formatted, nil
}

// deepMerge writes fresh into the object at prefix. Objects merging into
// objects recurse; every other value overwrites.
func deepMerge(content, prefix string, fresh map[string]any) (string, error) {
	keys := make([]string, 0, len(fresh))
	for k := range fresh {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, key := range keys {
		path := prefix + "." + escapeKey(key)
		if nested, ok := fresh[key].(map[string]any); ok && gjson.Get(content, path).IsObject() {
			if content, err = deepMerge(content, path, nested); err != nil {
				return "", err
			}
			continue
		}
		if content, err = sjson.Set(content, path, fresh[key]); err != nil {
			return "", err
		}
	}
	return content, nil
}

// escapeKey escapes the characters gjson and sjson treat as path syntax
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isClaudeOwned(key string, inEnv bool) bool {
	keys := claudeOwnedKeys
	if inEnv {
		keys = claudeOwnedEnvKeys
	}
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// validateJSONUpdate checks that every key the synchronizer does not own
// survived the update unchanged. Env keys in written were set by this sync.
func validateJSONUpdate(originalContent, updatedContent string, written map[string]any) error {
	if !json.Valid([]byte(updatedContent)) {
		return fmt.Errorf("updated JSON is invalid")
	}

	original, updated, err := parseToMaps(originalContent, updatedContent)
	if err != nil {
		return err
	}

	if differences := deepCompare(original, updated); len(differences) > 0 {
		return fmt.Errorf("unexpected changes to unowned fields: %s", strings.Join(differences, ", "))
	}

	originalEnv, _ := original[envField].(map[string]any)
	updatedEnv, _ := updated[envField].(map[string]any)
	for key, originalVal := range originalEnv {
		if _, set := written[key]; set || isClaudeOwned(key, true) {
			continue
		}
		updatedVal, exists := updatedEnv[key]
		if !exists {
			return fmt.Errorf("env field '%s' was deleted", key)
		}
		if fmt.Sprintf("%v", originalVal) != fmt.Sprintf("%v", updatedVal) {
			return fmt.Errorf("env field '%s' was modified", key)
		}
	}
	return nil
}

func parseToMaps(originalStr, updatedStr string) (map[string]any, map[string]any, error) {
	var original map[string]any
	if err := json.Unmarshal([]byte(originalStr), &original); err != nil {
		return nil, nil, fmt.Errorf("failed to parse original JSON: %w", err)
	}
	var updated map[string]any
	if err := json.Unmarshal([]byte(updatedStr), &updated); err != nil {
		return nil, nil, fmt.Errorf("failed to parse updated JSON: %w", err)
	}
	return original, updated, nil
}

// deepCompare lists the unowned top-level fields (outside env) that differ
func deepCompare(original, updated map[string]any) []string {
	var differences []string

	for key, originalVal := range original {
		if key == envField || isClaudeOwned(key, false) {
			continue
		}
		updatedVal, exists := updated[key]
		if !exists {
			differences = append(differences, key+" (missing)")
			continue
		}

		originalMap, originalIsMap := originalVal.(map[string]any)
		updatedMap, updatedIsMap := updatedVal.(map[string]any)
		if originalIsMap && updatedIsMap {
			for _, diff := range nestedCompare(originalMap, updatedMap) {
				differences = append(differences, key+"."+diff)
			}
			continue
		}
		if fmt.Sprintf("%v", originalVal) != fmt.Sprintf("%v", updatedVal) {
			differences = append(differences, key)
		}
	}

	for key := range updated {
		if key == envField {
			continue
		}
		if _, exists := original[key]; !exists {
			differences = append(differences, key+" (new)")
		}
	}

	sort.Strings(differences)
	return differences
}

func nestedCompare(original, updated map[string]any) []string {
	var differences []string
	for key, originalVal := range original {
		updatedVal, exists := updated[key]
		if !exists {
			differences = append(differences, key+" (missing)")
			continue
		}
		originalMap, originalIsMap := originalVal.(map[string]any)
		updatedMap, updatedIsMap := updatedVal.(map[string]any)
		if originalIsMap && updatedIsMap {
			for _, diff := range nestedCompare(originalMap, updatedMap) {
				differences = append(differences, key+"."+diff)
			}
			continue
		}
		if fmt.Sprintf("%v", originalVal) != fmt.Sprintf("%v", updatedVal) {
			differences = append(differences, key)
		}
	}
	for key := range updated {
		if _, exists := original[key]; !exists {
			differences = append(differences, key+" (new)")
		}
	}
	return differences
}
