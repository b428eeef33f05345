// Package storage provides the file primitives shared by the credential
// stores, the synchronizers and the snapshot collaborator.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"caswitch/config/models"
)

// File modes for everything this tool writes
const (
	DirPerm  os.FileMode = 0o700
	FilePerm os.FileMode = 0o600
)

// WriteOptions controls AtomicWrite
type WriteOptions struct {
	// Backup copies an existing target aside before it is replaced
	Backup bool
	// Retention is the number of backups kept per target
	Retention int
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// EnsureDir creates dir and its parents; it is a no-op when dir exists
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %w", models.ErrIO, dir, err)
	}
	return nil
}

// ReadFile reads path, reporting absence through the bool instead of an error
func ReadFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, true, nil
}

// AtomicWrite replaces path with content through a temporary file and a rename.
// Missing parent directories are created first.
func AtomicWrite(path string, content []byte, opts WriteOptions) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	var bm *BackupManager
	if opts.Backup {
		bm = NewBackupManager(opts.Retention)
		if _, err := bm.CreateBackup(path); err != nil {
			return fmt.Errorf("%w: failed to create backup file: %w", models.ErrIO, err)
		}
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %w", models.ErrIO, err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("%w: failed to write %s: %w", models.ErrIO, path, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("%w: failed to flush %s: %w", models.ErrIO, path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temporary file: %w", models.ErrIO, err)
	}

	if err := os.Chmod(tmpFile.Name(), FilePerm); err != nil {
		return fmt.Errorf("%w: failed to set permissions on temporary file: %w", models.ErrIO, err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %w", models.ErrIO, path, err)
	}

	if bm != nil {
		// the write already succeeded; a stale backup is harmless
		_ = bm.CleanupOldBackups(path)
	}

	return nil
}

// MigrateDir copies every regular file of oldDir into newDir and renames
// oldDir aside so the migration runs once.
func MigrateDir(oldDir, newDir string) error {
	entries, err := os.ReadDir(oldDir)
	if err != nil {
		return fmt.Errorf("failed to read old config directory: %w", err)
	}

	if err := EnsureDir(newDir); err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(oldDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if err := AtomicWrite(filepath.Join(newDir, entry.Name()), data, WriteOptions{}); err != nil {
			return err
		}
	}

	backupPath := oldDir + ".backup"
	if err := os.Rename(oldDir, backupPath); err != nil {
		return fmt.Errorf("migrated, but failed to move old directory aside: %w", err)
	}

	return nil
}

// ShouldMigrate checks if the legacy directory exists and the new one doesn't
func ShouldMigrate(oldDir, newDir string) bool {
	return FileExists(oldDir) && !FileExists(newDir)
}
