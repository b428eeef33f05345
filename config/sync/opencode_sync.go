package sync

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"caswitch/config/models"
)

const (
	openCodeSchema   = "https://opencode.ai/config.json"
	openCodeDirName  = ".opencode"
	openCodeFileName = "opencode.json"
)

// OpenCodeSyncer writes opencode.json with only the providers the two
// active roles reference. The file may be committed to a project, so no
// other provider's secret may end up in it.
type OpenCodeSyncer struct {
	GlobalPath string
	Theme      string
	Options    SyncOptions
}

type openCodeFile struct {
	Schema     string                      `json:"$schema"`
	Theme      string                      `json:"theme"`
	Autoupdate bool                        `json:"autoupdate"`
	Model      string                      `json:"model"`
	SmallModel string                      `json:"small_model"`
	Provider   map[string]openCodeProvider `json:"provider"`
	Tools      map[string]bool             `json:"tools"`
	Agent      map[string]any              `json:"agent"`
	MCP        map[string]any              `json:"mcp"`
}

// openCodeProvider is a provider without the store's internal metadata
type openCodeProvider struct {
	NPM     *string                     `json:"npm,omitempty"`
	Name    string                      `json:"name"`
	Options models.ProviderOptions      `json:"options"`
	Models  map[string]models.ModelInfo `json:"models"`
}

// Sync writes the global opencode.json
func (s *OpenCodeSyncer) Sync(active *models.OpenCodeActive) (*Result, error) {
	return s.syncTo(s.GlobalPath, active)
}

// Apply writes <dir>/.opencode/opencode.json for one project
func (s *OpenCodeSyncer) Apply(dir string, active *models.OpenCodeActive) (*Result, error) {
	return s.syncTo(ProjectOpenCodePath(dir), active)
}

// ProjectOpenCodePath is the project-local opencode.json under dir
func ProjectOpenCodePath(dir string) string {
	return filepath.Join(dir, openCodeDirName, openCodeFileName)
}

func (s *OpenCodeSyncer) syncTo(path string, active *models.OpenCodeActive) (*Result, error) {
	content, err := RenderOpenCode(active, s.Theme)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	if err := s.Options.write(res, path, content); err != nil {
		return nil, err
	}
	return res, nil
}

// RenderOpenCode renders the scaffold around the referenced providers
func RenderOpenCode(active *models.OpenCodeActive, theme string) ([]byte, error) {
	out := openCodeFile{
		Schema:     openCodeSchema,
		Theme:      theme,
		Autoupdate: false,
		Model:      active.Main.Ref.String(),
		SmallModel: active.Small.Ref.String(),
		Provider:   make(map[string]openCodeProvider, 2),
		Tools: map[string]bool{
			"get-current-session-id": true,
			"webfetch":               true,
		},
		Agent: map[string]any{},
		MCP:   map[string]any{},
	}

	for _, role := range []models.RoleActive{active.Main, active.Small} {
		if _, seen := out.Provider[role.Ref.Provider]; seen {
			continue
		}
		p := role.Provider
		out.Provider[role.Ref.Provider] = openCodeProvider{
			NPM:     p.NPM,
			Name:    p.Name,
			Options: p.Options,
			Models:  p.Models,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize opencode.json: %w", models.ErrSerialization, err)
	}
	return append(data, '\n'), nil
}
