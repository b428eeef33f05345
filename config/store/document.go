// Package store persists the per-family credential stores and the global
// reference document. Every mutation reads the whole document, changes it
// and writes the whole document back.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"caswitch/config/models"
	"caswitch/config/storage"
)

// readDocument decodes path into v. It reports false when the file is
// absent or malformed; a malformed file is copied aside first so its bytes
// survive the next save.
func readDocument(path string, v any, log *slog.Logger) (bool, error) {
	data, ok, err := storage.ReadFile(path)
	if err != nil {
		return false, err
	}
	if !ok || len(data) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		bm := storage.NewBackupManager(storage.DefaultBackupRetention)
		backup, berr := bm.CreateBackup(path)
		log.Warn("malformed document, starting from an empty one",
			"path", path, "error", err, "backup", backup, "backup_error", berr)
		return false, nil
	}
	return true, nil
}

// writeDocument encodes v and atomically replaces path
func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to serialize %s: %w", models.ErrSerialization, path, err)
	}
	data = append(data, '\n')
	return storage.AtomicWrite(path, data, storage.WriteOptions{})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
