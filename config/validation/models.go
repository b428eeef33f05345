package validation

import (
	"fmt"
	"strings"
)

// NormalizeModels trims every id and drops empty ones and duplicates,
// keeping the first occurrence order.
func NormalizeModels(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))

	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}
	return result
}

// SplitModels parses a comma separated model list
func SplitModels(list string) []string {
	return NormalizeModels(strings.Split(list, ","))
}

// ValidateModelInList checks that model is one of ids
func ValidateModelInList(model string, ids []string) error {
	normalized := strings.TrimSpace(model)
	if normalized == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == normalized {
			return nil
		}
	}
	return fmt.Errorf("model '%s' is not in the available models: %v", model, ids)
}
