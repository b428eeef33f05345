package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"caswitch/config/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	uploads map[string][]byte
	err     error
}

func (r *fakeRemote) Upload(_ context.Context, name string, body io.Reader) error {
	if r.err != nil {
		return r.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if r.uploads == nil {
		r.uploads = make(map[string][]byte)
	}
	r.uploads[name] = data
	return nil
}

type fixture struct {
	store    *Store
	global   string
	claude   string
	settings string
}

func setup(t *testing.T, maxSize int64) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		global:   filepath.Join(dir, "base", "config.json"),
		claude:   filepath.Join(dir, "base", "claude.json"),
		settings: filepath.Join(dir, "claude", "settings.json"),
	}
	writeFile(t, f.global, `{"version":"3.0.0"}`)
	writeFile(t, f.claude, `{"sites":{}}`)

	f.store = NewStore(filepath.Join(dir, "backups"), map[Category][]string{
		CategoryStores: {f.global, f.claude},
		CategoryClaude: {f.settings},
	}, maxSize, nil)
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCreateSkipsMissingSources(t *testing.T) {
	f := setup(t, 0)

	snaps, err := f.store.Create()
	require.NoError(t, err)
	require.Len(t, snaps, 1, "only the stores category has files")

	snap := snaps[0]
	assert.Equal(t, CategoryStores, snap.Category)
	assert.Len(t, snap.Files, 2)
	assert.Equal(t, int64(len(`{"version":"3.0.0"}`)+len(`{"sites":{}}`)), snap.TotalSize)
	assert.NotEmpty(t, snap.Hostname)
	assert.FileExists(t, filepath.Join(f.store.Dir(), snap.ID, manifestFile))
	assert.Equal(t, "00-config.json", snap.Files[0].Name)
	assert.Equal(t, "01-claude.json", snap.Files[1].Name)
}

func TestCreateRespectsSizeLimit(t *testing.T) {
	f := setup(t, 8)

	_, err := f.store.Create(CategoryStores)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	snaps, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestListAndGet(t *testing.T) {
	f := setup(t, 0)
	writeFile(t, f.settings, `{"env":{}}`)

	first, err := f.store.Create(CategoryStores)
	require.NoError(t, err)
	second, err := f.store.Create(CategoryClaude)
	require.NoError(t, err)

	snaps, err := f.store.List()
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, second[0].ID, snaps[0].ID, "newest first")
	assert.Equal(t, first[0].ID, snaps[1].ID)

	got, err := f.store.Get(first[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first[0].Files, got.Files)

	for _, id := range []string{"not-a-uuid", "6f1c2d2e-0000-4000-8000-000000000000", "../config"} {
		_, err := f.store.Get(id)
		assert.True(t, errors.Is(err, models.ErrNotFound), "Get(%q) = %v", id, err)
	}
}

func TestListWithoutDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"), nil, 0, nil)
	snaps, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestRestore(t *testing.T) {
	f := setup(t, 0)
	snaps, err := f.store.Create(CategoryStores)
	require.NoError(t, err)

	writeFile(t, f.global, `{"version":"changed"}`)
	require.NoError(t, os.Remove(f.claude))

	restored, err := f.store.Restore(snaps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, snaps[0].ID, restored.ID)

	data, err := os.ReadFile(f.global)
	require.NoError(t, err)
	assert.Equal(t, `{"version":"3.0.0"}`, string(data))
	data, err = os.ReadFile(f.claude)
	require.NoError(t, err)
	assert.Equal(t, `{"sites":{}}`, string(data))
}

func TestCreateCapturesDirectories(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base")
	writeFile(t, filepath.Join(base, "config.json"), `{}`)
	writeFile(t, filepath.Join(base, "nested", "deep", "notes.md"), "notes")
	writeFile(t, filepath.Join(base, "backups", "old", manifestFile), `{}`)

	s := NewStore(filepath.Join(base, "backups"), map[Category][]string{CategoryStores: {base}}, 0, nil)
	snaps, err := s.Create(CategoryStores)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	var sources []string
	for _, f := range snaps[0].Files {
		sources = append(sources, f.Source)
	}
	assert.Equal(t, []string{
		filepath.Join(base, "config.json"),
		filepath.Join(base, "nested", "deep", "notes.md"),
	}, sources, "the backup directory itself is skipped")

	require.NoError(t, os.RemoveAll(filepath.Join(base, "nested")))
	_, err = s.Restore(snaps[0].ID)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(base, "nested", "deep", "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data))
}

func TestRestoreRejectsTamperedManifest(t *testing.T) {
	outside := filepath.Join(t.TempDir(), "victim")

	tests := []struct {
		name   string
		tamper func(e *FileEntry)
	}{
		{"source outside the category", func(e *FileEntry) { e.Source = outside }},
		{"source from another category", func(e *FileEntry) { e.Source = filepath.Join(filepath.Dir(e.Source), "..", "claude", "settings.json") }},
		{"name with separator", func(e *FileEntry) { e.Name = "../../" + e.Name }},
		{"name is the manifest", func(e *FileEntry) { e.Name = manifestFile }},
		{"empty source", func(e *FileEntry) { e.Source = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, 0)
			snaps, err := f.store.Create(CategoryStores)
			require.NoError(t, err)
			id := snaps[0].ID

			path := filepath.Join(f.store.Dir(), id, manifestFile)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			var snap Snapshot
			require.NoError(t, json.Unmarshal(data, &snap))
			tt.tamper(&snap.Files[1])
			data, err = json.Marshal(&snap)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			writeFile(t, f.global, `{"version":"changed"}`)
			_, err = f.store.Restore(id)
			assert.ErrorIs(t, err, ErrInvalidManifest)

			got, err := os.ReadFile(f.global)
			require.NoError(t, err)
			assert.Equal(t, `{"version":"changed"}`, string(got), "nothing is written before validation")
			assert.NoFileExists(t, outside)
			assert.NoFileExists(t, f.settings)
		})
	}
}

func TestPrune(t *testing.T) {
	f := setup(t, 0)
	writeFile(t, f.settings, `{}`)
	for i := 0; i < 3; i++ {
		_, err := f.store.Create(CategoryStores, CategoryClaude)
		require.NoError(t, err)
	}

	before, err := f.store.List()
	require.NoError(t, err)
	require.Len(t, before, 6)

	removed, err := f.store.Prune(1)
	require.NoError(t, err)
	assert.Len(t, removed, 4)

	after, err := f.store.List()
	require.NoError(t, err)
	require.Len(t, after, 2)
	kept := map[Category]string{}
	for _, s := range after {
		kept[s.Category] = s.ID
	}
	for _, s := range before {
		if _, ok := kept[s.Category]; ok {
			assert.Equal(t, s.ID, kept[s.Category], "newest %s snapshot kept", s.Category)
			delete(kept, s.Category)
		}
	}
}

func TestPush(t *testing.T) {
	f := setup(t, 0)
	snaps, err := f.store.Create(CategoryStores)
	require.NoError(t, err)
	id := snaps[0].ID

	assert.ErrorIs(t, f.store.Push(context.Background(), id), ErrNoRemote)

	remote := &fakeRemote{}
	f.store.SetRemote(remote)
	require.NoError(t, f.store.Push(context.Background(), id))
	assert.Len(t, remote.uploads, 3)
	assert.Contains(t, remote.uploads, id+"/"+manifestFile)
	assert.True(t, bytes.Equal([]byte(`{"sites":{}}`), remote.uploads[id+"/01-claude.json"]))

	remote.err = errors.New("unreachable")
	assert.ErrorContains(t, f.store.Push(context.Background(), id), "unreachable")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	remote.err = nil
	assert.ErrorIs(t, f.store.Push(ctx, id), context.Canceled)
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCategory("everything")
	assert.Error(t, err)
}
