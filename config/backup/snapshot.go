// Package backup takes whole-file snapshots of the stores and of the tool
// files they are projected into. Snapshot contents are opaque bytes.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"caswitch/config/models"
	"caswitch/config/storage"
	"caswitch/internal/logger"

	"github.com/docker/go-units"
	"github.com/google/uuid"
)

// Category groups the files captured together
type Category string

const (
	CategoryStores   Category = "ca-switch"
	CategoryClaude   Category = "claude"
	CategoryCodex    Category = "codex"
	CategoryGemini   Category = "gemini"
	CategoryOpenCode Category = "opencode"
)

const (
	manifestFile = "manifest.json"
	// fixed width so that CreatedAt sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

var (
	// ErrTooLarge is returned when a snapshot exceeds the configured limit
	ErrTooLarge = errors.New("snapshot exceeds size limit")
	// ErrInvalidManifest is returned by Restore for a manifest that names a
	// file outside the category's sources
	ErrInvalidManifest = errors.New("invalid snapshot manifest")
	// ErrNoRemote is returned by Push when no transport is configured
	ErrNoRemote = errors.New("no remote configured")
)

// Categories returns every category in display order
func Categories() []Category {
	return []Category{CategoryStores, CategoryClaude, CategoryCodex, CategoryGemini, CategoryOpenCode}
}

// ParseCategory converts user input into a Category
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown backup category: %s", s)
}

// FileEntry is one captured file
type FileEntry struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

// Snapshot describes one stored backup
type Snapshot struct {
	ID        string      `json:"id"`
	Category  Category    `json:"category"`
	CreatedAt string      `json:"created_at"`
	Hostname  string      `json:"hostname"`
	Files     []FileEntry `json:"files"`
	TotalSize int64       `json:"total_size"`
}

// HumanSize renders TotalSize for display
func (s *Snapshot) HumanSize() string {
	return units.HumanSize(float64(s.TotalSize))
}

// Remote is a transport that can hold snapshots off this machine
type Remote interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

// Store keeps snapshots under one directory, one subdirectory per snapshot
type Store struct {
	dir     string
	sources map[Category][]string
	maxSize int64
	remote  Remote
	log     *slog.Logger
}

// NewStore creates a snapshot store. A source is a file or a directory
// captured recursively. maxSize <= 0 disables the size limit.
func NewStore(dir string, sources map[Category][]string, maxSize int64, log *slog.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{dir: dir, sources: sources, maxSize: maxSize, log: log}
}

// SetRemote configures the transport used by Push
func (s *Store) SetRemote(r Remote) {
	s.remote = r
}

// Dir is where snapshots are kept
func (s *Store) Dir() string {
	return s.dir
}

// Create takes one snapshot per category. Source files that do not exist
// are skipped; a category with no files at all yields no snapshot.
func (s *Store) Create(categories ...Category) ([]*Snapshot, error) {
	if len(categories) == 0 {
		categories = Categories()
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	var created []*Snapshot
	for _, category := range categories {
		snap, err := s.create(category, hostname)
		if err != nil {
			return created, err
		}
		if snap != nil {
			created = append(created, snap)
		}
	}
	return created, nil
}

func (s *Store) create(category Category, hostname string) (*Snapshot, error) {
	var files []captured
	for _, source := range s.sources[category] {
		found, err := s.collect(source)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	var total int64
	for i := range files {
		files[i].entry.Name = fmt.Sprintf("%02d-%s", i, filepath.Base(files[i].entry.Source))
		total += files[i].entry.Size
	}
	if len(files) == 0 {
		return nil, nil
	}
	if s.maxSize > 0 && total > s.maxSize {
		return nil, fmt.Errorf("%w: %s is %s, limit %s", ErrTooLarge, category,
			units.HumanSize(float64(total)), units.HumanSize(float64(s.maxSize)))
	}

	snap := &Snapshot{
		ID:        uuid.NewString(),
		Category:  category,
		CreatedAt: time.Now().UTC().Format(timeLayout),
		Hostname:  hostname,
		TotalSize: total,
	}
	dir := filepath.Join(s.dir, snap.ID)
	for _, f := range files {
		if err := storage.AtomicWrite(filepath.Join(dir, f.entry.Name), f.data, storage.WriteOptions{}); err != nil {
			return nil, err
		}
		snap.Files = append(snap.Files, f.entry)
	}

	manifest, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize manifest: %w", models.ErrSerialization, err)
	}
	if err := storage.AtomicWrite(filepath.Join(dir, manifestFile), append(manifest, '\n'), storage.WriteOptions{}); err != nil {
		return nil, err
	}

	s.log.Info("snapshot created", "id", snap.ID, "category", category, "files", len(snap.Files), "size", snap.HumanSize())
	return snap, nil
}

type captured struct {
	entry FileEntry
	data  []byte
}

// collect reads source, or every regular file below it when it is a
// directory. A missing source yields nothing. The store's own directory is
// never captured.
func (s *Store) collect(source string) ([]captured, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", source, err)
	}
	if !info.IsDir() {
		data, ok, err := storage.ReadFile(source)
		if err != nil || !ok {
			return nil, err
		}
		return []captured{{entry: FileEntry{Source: source, Size: int64(len(data))}, data: data}}, nil
	}

	var files []captured
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filepath.Clean(path) == filepath.Clean(s.dir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, captured{entry: FileEntry{Source: path, Size: int64(len(data))}, data: data})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", source, err)
	}
	return files, nil
}

// List returns every snapshot, newest first. Unreadable entries are skipped.
func (s *Store) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var snaps []*Snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		snap, err := s.load(entry.Name())
		if err != nil {
			s.log.Warn("skipping unreadable snapshot", "id", entry.Name(), "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt != snaps[j].CreatedAt {
			return snaps[i].CreatedAt > snaps[j].CreatedAt
		}
		return snaps[i].ID < snaps[j].ID
	})
	return snaps, nil
}

// Get returns the snapshot with the given id
func (s *Store) Get(id string) (*Snapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.NotFound("snapshot", id, "")
	}
	snap, err := s.load(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NotFound("snapshot", id, "")
		}
		return nil, err
	}
	return snap, nil
}

func (s *Store) load(id string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id, manifestFile))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %w", models.ErrSerialization, id, err)
	}
	return &snap, nil
}

// Restore writes every captured file back to its source path. Existing
// targets are replaced atomically; files created since the snapshot are
// left alone. The manifest is checked in full before anything is written.
func (s *Store) Restore(id string) (*Snapshot, error) {
	snap, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	for _, f := range snap.Files {
		if !validName(f.Name) {
			return nil, fmt.Errorf("%w: snapshot %s has invalid file name %q", ErrInvalidManifest, snap.ID, f.Name)
		}
		if !s.covers(snap.Category, f.Source) {
			return nil, fmt.Errorf("%w: snapshot %s restores outside the %s sources: %s",
				ErrInvalidManifest, snap.ID, snap.Category, f.Source)
		}
	}

	for _, f := range snap.Files {
		data, err := os.ReadFile(filepath.Join(s.dir, snap.ID, f.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from snapshot: %w", f.Name, err)
		}
		if err := storage.AtomicWrite(f.Source, data, storage.WriteOptions{}); err != nil {
			return nil, err
		}
	}
	s.log.Info("snapshot restored", "id", snap.ID, "category", snap.Category)
	return snap, nil
}

// covers reports whether path is one of the category's sources or lies
// below a directory source
func (s *Store) covers(category Category, path string) bool {
	if path == "" || within(s.dir, path) {
		return false
	}
	clean := filepath.Clean(path)
	for _, source := range s.sources[category] {
		if clean == filepath.Clean(source) || within(source, clean) {
			return true
		}
	}
	return false
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return err == nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && name != manifestFile &&
		!strings.ContainsAny(name, `/\`)
}

// Prune keeps the newest keep snapshots of each category and deletes the
// rest, returning the removed ids.
func (s *Store) Prune(keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	snaps, err := s.List()
	if err != nil {
		return nil, err
	}

	seen := make(map[Category]int)
	var removed []string
	for _, snap := range snaps {
		seen[snap.Category]++
		if seen[snap.Category] <= keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, snap.ID)); err != nil {
			return removed, fmt.Errorf("failed to remove snapshot %s: %w", snap.ID, err)
		}
		removed = append(removed, snap.ID)
	}
	return removed, nil
}

// Push uploads a snapshot through the configured remote
func (s *Store) Push(ctx context.Context, id string) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	snap, err := s.Get(id)
	if err != nil {
		return err
	}

	names := []string{manifestFile}
	for _, f := range snap.Files {
		names = append(names, f.Name)
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(filepath.Join(s.dir, snap.ID, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := s.remote.Upload(ctx, snap.ID+"/"+name, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
	}
	s.log.Info("snapshot pushed", "id", snap.ID)
	return nil
}
