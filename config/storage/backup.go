package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"caswitch/config/models"
)

// DefaultBackupRetention is the default number of backups kept per file
const DefaultBackupRetention = 3

const backupInfix = ".backup-"

// BackupManager keeps rotating copies of a file next to it, named
// <file>.backup-YYYYMMDDHHMMSS-PID.
type BackupManager struct {
	MaxBackups int
}

// NewBackupManager creates a BackupManager; non-positive retention falls back to the default
func NewBackupManager(maxBackups int) *BackupManager {
	if maxBackups <= 0 {
		maxBackups = DefaultBackupRetention
	}
	return &BackupManager{MaxBackups: maxBackups}
}

// CreateBackup copies filePath aside. A missing file is not an error and
// yields an empty path.
func (bm *BackupManager) CreateBackup(filePath string) (string, error) {
	data, ok, err := ReadFile(filePath)
	if err != nil || !ok {
		return "", err
	}

	name := fmt.Sprintf("%s%s%s-%d", filePath, backupInfix, time.Now().Format("20060102150405"), os.Getpid())
	if err := os.WriteFile(name, data, FilePerm); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	// WriteFile keeps the mode of a file that already existed
	if err := os.Chmod(name, FilePerm); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return name, nil
}

// ListBackups returns the backups of filePath, oldest first
func (bm *BackupManager) ListBackups(filePath string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Dir(filePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	prefix := filepath.Base(filePath) + backupInfix
	var found []backup
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		b := backup{path: filepath.Join(filepath.Dir(filePath), e.Name())}
		if info, err := e.Info(); err == nil {
			b.modTime = info.ModTime()
		}
		found = append(found, b)
	}
	slices.SortStableFunc(found, func(a, b backup) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})

	paths := make([]string, len(found))
	for i, b := range found {
		paths[i] = b.path
	}
	return paths, nil
}

// CleanupOldBackups removes all but the newest MaxBackups backups
func (bm *BackupManager) CleanupOldBackups(filePath string) error {
	backups, err := bm.ListBackups(filePath)
	if err != nil {
		return err
	}
	for len(backups) > bm.MaxBackups {
		if err := os.Remove(backups[0]); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[0], err)
		}
		backups = backups[1:]
	}
	return nil
}

// Latest returns the newest backup of filePath, or "" when there is none
func (bm *BackupManager) Latest(filePath string) (string, error) {
	backups, err := bm.ListBackups(filePath)
	if err != nil || len(backups) == 0 {
		return "", err
	}
	return backups[len(backups)-1], nil
}

// Restore atomically replaces filePath with one of its own backups
func (bm *BackupManager) Restore(filePath, backupPath string) error {
	if filepath.Dir(backupPath) != filepath.Dir(filePath) ||
		!strings.HasPrefix(filepath.Base(backupPath), filepath.Base(filePath)+backupInfix) {
		return fmt.Errorf("%s is not a backup of %s", backupPath, filePath)
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	return AtomicWrite(filePath, data, WriteOptions{})
}

// RestoreLatest restores filePath from its newest backup and returns the
// backup used
func (bm *BackupManager) RestoreLatest(filePath string) (string, error) {
	latest, err := bm.Latest(filePath)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", models.NotFound("backup", filePath, "")
	}
	return latest, bm.Restore(filePath, latest)
}
