package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"
)

var _ Store = (*FileStore)(nil)

// FileStore is a Memory store that writes a YAML snapshot of its full state
// to disk before every commit. A commit whose snapshot cannot be written is
// rejected, so the file never lags behind what callers were told succeeded.
// Readers do not wait on the write, and commits arriving during one are
// written together by the next.
type FileStore struct {
	*Memory
	path string
}

// OpenFile restores the store from path. A missing file yields an empty store.
func OpenFile(path string) (*FileStore, error) {
	snap, err := restoreSnapshot(path)
	if err != nil {
		return nil, err
	}

	mem := NewMemory()
	mem.Restore(snap)

	fs := &FileStore{Memory: mem, path: path}
	mem.beforeCommit = fs.flushSnapshot

	glog.Infof("Restored %d elevators and %d demands from `%s`", len(snap.Elevators), len(snap.Demands), path)
	return fs, nil
}

func (fs *FileStore) Path() string {
	return fs.path
}

func restoreSnapshot(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(content, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot `%s`: %w", path, err)
	}
	return snap, nil
}

// flushSnapshot writes to a temporary file next to path and renames it over
// path, so a crash mid-write leaves the previous snapshot intact.
func (fs *FileStore) flushSnapshot(snap Snapshot) error {
	content, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		glog.Warningf("Error writing to `%s`: %v", fs.path, err)
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		glog.Warningf("Error writing to `%s`: %v", fs.path, err)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		glog.Warningf("Error replacing `%s`: %v", fs.path, err)
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
