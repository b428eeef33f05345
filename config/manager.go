package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"caswitch/config/backup"
	"caswitch/config/models"
	"caswitch/config/resolver"
	"caswitch/config/storage"
	"caswitch/config/store"
	syncpkg "caswitch/config/sync"
	"caswitch/internal/logger"
)

// ErrNoActive is returned when an operation needs the current reference of
// a family that has none.
var ErrNoActive = errors.New("no active configuration")

// ErrUnresolved marks a reference that points at something that no longer exists
var ErrUnresolved = errors.New("active reference cannot be resolved")

// Manager ties the stores, the resolver and the synchronizers together
type Manager struct {
	paths *Paths
	opts  *Options
	log   *slog.Logger

	global   *store.GlobalStore
	claude   *store.ClaudeStore
	codex    *store.CodexStore
	gemini   *store.GeminiStore
	opencode *store.OpenCodeStore
	backups  *backup.Store

	mu sync.Mutex // serializes switch sequences within this process
}

// NewManager creates a Manager rooted at the user's home directory
func NewManager() (*Manager, error) {
	home, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(home, BaseDir(home))
}

// NewManagerAt creates a Manager for an explicit home and base directory
func NewManagerAt(home, baseDir string) (*Manager, error) {
	legacy := NewPaths(home, baseDir, PathOptions{}).LegacyBaseDir()
	var migrateErr error
	migrated := false
	if storage.ShouldMigrate(legacy, baseDir) {
		migrateErr = storage.MigrateDir(legacy, baseDir)
		migrated = migrateErr == nil
	}

	opts, err := LoadOptions(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	log := logger.New(&opts.Logging)

	if migrateErr != nil {
		log.Warn("failed to migrate legacy configuration", "from", legacy, "error", migrateErr)
	} else if migrated {
		log.Info("migrated legacy configuration", "from", legacy, "to", baseDir)
	}

	return newManager(NewPaths(home, baseDir, opts.Paths), opts, log), nil
}

func newManager(paths *Paths, opts *Options, log *slog.Logger) *Manager {
	storeLog := log.With("component", "store")
	m := &Manager{
		paths:    paths,
		opts:     opts,
		log:      log,
		global:   store.NewGlobalStore(paths.Global, storeLog),
		claude:   store.NewClaudeStore(paths.ClaudeStore, storeLog),
		codex:    store.NewCodexStore(paths.CodexStore, storeLog),
		gemini:   store.NewGeminiStore(paths.GeminiStore, storeLog),
		opencode: store.NewOpenCodeStore(paths.OpenCodeStore, storeLog),
	}
	m.backups = backup.NewStore(paths.Backups, map[backup.Category][]string{
		backup.CategoryStores: {paths.BaseDir},
		backup.CategoryClaude: {
			paths.ClaudeSettings(),
			filepath.Join(paths.ClaudeDir, "CLAUDE.md"),
			filepath.Join(paths.ClaudeDir, "agents"),
			filepath.Join(paths.ClaudeDir, "commands"),
			filepath.Join(paths.ClaudeDir, "skills"),
		},
		backup.CategoryCodex:    {paths.CodexConfig(), paths.CodexAuth(), filepath.Join(paths.CodexDir, "AGENTS.md")},
		backup.CategoryGemini:   {paths.GeminiEnv(), filepath.Join(paths.GeminiDir, "settings.json")},
		backup.CategoryOpenCode: {paths.OpenCodeConfig()},
	}, opts.Backup.MaxSnapshotSizeBytes(), log.With("component", "backup"))
	return m
}

// Paths returns the resolved file locations
func (m *Manager) Paths() *Paths { return m.paths }

// Options returns the finalized options
func (m *Manager) Options() *Options { return m.opts }

// Logger returns the root logger
func (m *Manager) Logger() *slog.Logger { return m.log }

// Global returns the reference store
func (m *Manager) Global() *store.GlobalStore { return m.global }

// Claude returns the Claude credential store
func (m *Manager) Claude() *store.ClaudeStore { return m.claude }

// Codex returns the Codex credential store
func (m *Manager) Codex() *store.CodexStore { return m.codex }

// Gemini returns the Gemini credential store
func (m *Manager) Gemini() *store.GeminiStore { return m.gemini }

// OpenCode returns the OpenCode provider store
func (m *Manager) OpenCode() *store.OpenCodeStore { return m.opencode }

// Backups returns the snapshot store
func (m *Manager) Backups() *backup.Store { return m.backups }

func (m *Manager) syncOptions(dryRun bool) syncpkg.SyncOptions {
	return syncpkg.SyncOptions{
		DryRun:       dryRun,
		CreateBackup: m.opts.Backup.IsEnabled(),
		Retention:    m.opts.Backup.Retention,
	}
}

func (m *Manager) claudeSyncer(dryRun bool) *syncpkg.ClaudeSyncer {
	return &syncpkg.ClaudeSyncer{SettingsPath: m.paths.ClaudeSettings(), Options: m.syncOptions(dryRun)}
}

func (m *Manager) codexSyncer(dryRun bool) *syncpkg.CodexSyncer {
	return &syncpkg.CodexSyncer{ConfigPath: m.paths.CodexConfig(), AuthPath: m.paths.CodexAuth(), Options: m.syncOptions(dryRun)}
}

func (m *Manager) geminiSyncer(dryRun bool) *syncpkg.GeminiSyncer {
	return &syncpkg.GeminiSyncer{EnvPath: m.paths.GeminiEnv(), Options: m.syncOptions(dryRun)}
}

func (m *Manager) openCodeSyncer(dryRun bool) *syncpkg.OpenCodeSyncer {
	return &syncpkg.OpenCodeSyncer{GlobalPath: m.paths.OpenCodeConfig(), Theme: m.opts.OpenCode.Theme, Options: m.syncOptions(dryRun)}
}

// SwitchClaude makes site/token the active Claude configuration and
// projects it into settings.json. The reference is persisted before the
// sync; a failed sync leaves it in place.
func (m *Manager) SwitchClaude(site, token string) (*syncpkg.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := models.ClaudeRef{Site: site, TokenName: token}
	doc, err := m.claude.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.Claude(ref, doc)
	if err != nil {
		return nil, err
	}
	if err := m.global.Update(func(a *models.ActiveConfigs) { a.Claude = &ref }); err != nil {
		return nil, err
	}
	m.log.Info("switched", "family", models.FamilyClaude, "site", site, "token", token)
	return m.claudeSyncer(false).Sync(active)
}

// SwitchCodex makes site/key the active Codex configuration
func (m *Manager) SwitchCodex(site, key string) (*syncpkg.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := models.CodexRef{Site: site, APIKeyName: key}
	doc, err := m.codex.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.Codex(ref, doc)
	if err != nil {
		return nil, err
	}
	if err := m.global.Update(func(a *models.ActiveConfigs) { a.Codex = &ref }); err != nil {
		return nil, err
	}
	m.log.Info("switched", "family", models.FamilyCodex, "site", site, "api_key", key)
	return m.codexSyncer(false).Sync(active)
}

// SwitchGemini makes site/key the active Gemini configuration
func (m *Manager) SwitchGemini(site, key string) (*syncpkg.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := models.GeminiRef{Site: site, APIKeyName: key}
	doc, err := m.gemini.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.Gemini(ref, doc)
	if err != nil {
		return nil, err
	}
	if err := m.global.Update(func(a *models.ActiveConfigs) { a.Gemini = &ref }); err != nil {
		return nil, err
	}
	m.log.Info("switched", "family", models.FamilyGemini, "site", site, "api_key", key)
	return m.geminiSyncer(false).Sync(active)
}

// SwitchOpenCode sets both OpenCode roles and writes the global opencode.json
func (m *Manager) SwitchOpenCode(main, small models.ModelRef) (*syncpkg.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := models.OpenCodeRef{Main: main, Small: small}
	doc, err := m.opencode.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.OpenCode(ref, doc)
	if err != nil {
		return nil, err
	}
	if err := m.global.Update(func(a *models.ActiveConfigs) { a.OpenCode = &ref }); err != nil {
		return nil, err
	}
	m.log.Info("switched", "family", models.FamilyOpenCode, "main", main.String(), "small", small.String())
	return m.openCodeSyncer(false).Sync(active)
}

// GetActiveClaude resolves the current Claude reference. It returns nil
// and no error when none is set.
func (m *Manager) GetActiveClaude() (*models.ClaudeActive, error) {
	refs, err := m.global.Active()
	if err != nil || refs.Claude == nil {
		return nil, err
	}
	doc, err := m.claude.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.Claude(*refs.Claude, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolved, err)
	}
	return active, nil
}

// GetActiveCodex resolves the current Codex reference
func (m *Manager) GetActiveCodex() (*models.CodexActive, error) {
	refs, err := m.global.Active()
	if err != nil || refs.Codex == nil {
		return nil, err
	}
	doc, err := m.codex.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.Codex(*refs.Codex, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolved, err)
	}
	return active, nil
}

// GetActiveGemini resolves the current Gemini reference
func (m *Manager) GetActiveGemini() (*models.GeminiActive, error) {
	refs, err := m.global.Active()
	if err != nil || refs.Gemini == nil {
		return nil, err
	}
	doc, err := m.gemini.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.Gemini(*refs.Gemini, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolved, err)
	}
	return active, nil
}

// GetActiveOpenCode resolves both current OpenCode roles
func (m *Manager) GetActiveOpenCode() (*models.OpenCodeActive, error) {
	refs, err := m.global.Active()
	if err != nil || refs.OpenCode == nil {
		return nil, err
	}
	doc, err := m.opencode.Load()
	if err != nil {
		return nil, err
	}
	active, err := resolver.OpenCode(*refs.OpenCode, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolved, err)
	}
	return active, nil
}

// Clear removes the family's reference. Tool files are left as they are.
func (m *Manager) Clear(f models.Family) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.global.Update(func(a *models.ActiveConfigs) { a.Clear(f) }); err != nil {
		return err
	}
	m.log.Info("cleared", "family", f)
	return nil
}

// ClearClaude removes the Claude reference
func (m *Manager) ClearClaude() error { return m.Clear(models.FamilyClaude) }

// ClearCodex removes the Codex reference
func (m *Manager) ClearCodex() error { return m.Clear(models.FamilyCodex) }

// ClearGemini removes the Gemini reference
func (m *Manager) ClearGemini() error { return m.Clear(models.FamilyGemini) }

// ClearOpenCode removes the OpenCode reference
func (m *Manager) ClearOpenCode() error { return m.Clear(models.FamilyOpenCode) }

// ApplyOpenCode writes the current OpenCode configuration into
// <dir>/.opencode/opencode.json. The global file is not touched.
func (m *Manager) ApplyOpenCode(dir string) (*syncpkg.Result, error) {
	active, err := m.GetActiveOpenCode()
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoActive, models.FamilyOpenCode)
	}
	return m.openCodeSyncer(false).Apply(dir, active)
}

// Resync projects the current reference of f again without changing it.
// With dryRun the rendered files are returned and nothing is written.
func (m *Manager) Resync(f models.Family, dryRun bool) (*syncpkg.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch f {
	case models.FamilyClaude:
		active, err := m.GetActiveClaude()
		if err != nil || active == nil {
			return nil, noActive(f, err)
		}
		return m.claudeSyncer(dryRun).Sync(active)
	case models.FamilyCodex:
		active, err := m.GetActiveCodex()
		if err != nil || active == nil {
			return nil, noActive(f, err)
		}
		return m.codexSyncer(dryRun).Sync(active)
	case models.FamilyGemini:
		active, err := m.GetActiveGemini()
		if err != nil || active == nil {
			return nil, noActive(f, err)
		}
		return m.geminiSyncer(dryRun).Sync(active)
	case models.FamilyOpenCode:
		active, err := m.GetActiveOpenCode()
		if err != nil || active == nil {
			return nil, noActive(f, err)
		}
		return m.openCodeSyncer(dryRun).Sync(active)
	}
	return nil, fmt.Errorf("unknown family: %s", f)
}

// SyncTargets returns the files the synchronizer of f writes
func (m *Manager) SyncTargets(f models.Family) ([]string, error) {
	switch f {
	case models.FamilyClaude:
		return []string{m.paths.ClaudeSettings()}, nil
	case models.FamilyCodex:
		return []string{m.paths.CodexConfig(), m.paths.CodexAuth()}, nil
	case models.FamilyGemini:
		return []string{m.paths.GeminiEnv()}, nil
	case models.FamilyOpenCode:
		return []string{m.paths.OpenCodeConfig()}, nil
	}
	return nil, fmt.Errorf("unknown family: %s", f)
}

// RestoreTargets puts back the newest rotating backup of every file the
// synchronizer of f writes. Targets without a backup are skipped; it is an
// error when none has one. The references are not changed.
func (m *Manager) RestoreTargets(f models.Family) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	targets, err := m.SyncTargets(f)
	if err != nil {
		return nil, err
	}
	bm := storage.NewBackupManager(m.opts.Backup.Retention)
	var restored []string
	for _, target := range targets {
		latest, err := bm.RestoreLatest(target)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return restored, err
		}
		m.log.Info("restored from backup", "family", f, "file", target, "backup", latest)
		restored = append(restored, target)
	}
	if len(restored) == 0 {
		return nil, fmt.Errorf("%w: no backups of the %s files", models.ErrNotFound, f)
	}
	return restored, nil
}

func noActive(f models.Family, err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%w for %s", ErrNoActive, f)
}

// FamilyStatus is the state of one family's reference
type FamilyStatus struct {
	Family models.Family
	// Ref is the reference in display form, empty when unset
	Ref    string
	Detail string
	Err    error
}

// Status reports every family. Resolution failures are recorded per family
// and do not stop the others.
func (m *Manager) Status() ([]FamilyStatus, error) {
	refs, err := m.global.Active()
	if err != nil {
		return nil, err
	}

	out := make([]FamilyStatus, 0, len(models.Families()))

	st := FamilyStatus{Family: models.FamilyClaude}
	if refs.Claude != nil {
		st.Ref = refs.Claude.Site + "/" + refs.Claude.TokenName
		if active, err := m.GetActiveClaude(); err != nil {
			st.Err = err
		} else {
			st.Detail = claudeDetail(active)
		}
	}
	out = append(out, st)

	st = FamilyStatus{Family: models.FamilyCodex}
	if refs.Codex != nil {
		st.Ref = refs.Codex.Site + "/" + refs.Codex.APIKeyName
		if active, err := m.GetActiveCodex(); err != nil {
			st.Err = err
		} else {
			st.Detail = "provider " + active.ProviderID() + optional(", model ", active.Config.Model)
		}
	}
	out = append(out, st)

	st = FamilyStatus{Family: models.FamilyGemini}
	if refs.Gemini != nil {
		st.Ref = refs.Gemini.Site + "/" + refs.Gemini.APIKeyName
		if active, err := m.GetActiveGemini(); err != nil {
			st.Err = err
		} else {
			st.Detail = active.URL + optional(", model ", active.Config.Model)
		}
	}
	out = append(out, st)

	st = FamilyStatus{Family: models.FamilyOpenCode}
	if refs.OpenCode != nil {
		st.Ref = "main " + refs.OpenCode.Main.String() + ", small " + refs.OpenCode.Small.String()
		if active, err := m.GetActiveOpenCode(); err != nil {
			st.Err = err
		} else {
			st.Detail = fmt.Sprintf("%d provider(s) exported", len(active.ProviderNames()))
		}
	}
	out = append(out, st)

	return out, nil
}

func claudeDetail(a *models.ClaudeActive) string {
	if a.IsVertex() {
		return "vertex" + optional(" project ", a.Config.Vertex.ProjectID)
	}
	if a.Config.BaseURL != nil {
		return *a.Config.BaseURL + optional(", model ", a.Config.Model)
	}
	return a.URL + optional(", model ", a.Config.Model)
}

func optional(prefix string, v *string) string {
	if v == nil || *v == "" {
		return ""
	}
	return prefix + *v
}
