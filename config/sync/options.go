// Package sync projects resolved active configurations into the native
// configuration files of each managed tool.
package sync

import (
	"caswitch/config/storage"
)

// SyncOptions provides options for synchronization
type SyncOptions struct {
	DryRun       bool // render only, write nothing
	CreateBackup bool // copy each existing target aside before replacing it
	Retention    int  // backups kept per target
}

// Result reports what a sync wrote, or would write in dry-run mode
type Result struct {
	Files []FileResult
}

// FileResult is one rendered target
type FileResult struct {
	Path    string
	Content []byte
}

func (o SyncOptions) write(res *Result, path string, content []byte) error {
	res.Files = append(res.Files, FileResult{Path: path, Content: content})
	if o.DryRun {
		return nil
	}
	return storage.AtomicWrite(path, content, storage.WriteOptions{
		Backup:    o.CreateBackup,
		Retention: o.Retention,
	})
}
