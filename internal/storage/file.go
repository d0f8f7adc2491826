// internal/storage/file.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"hospitality-ops/internal/model"
)

// FileStorage keeps the whole state in one JSON document. Writes go to a
// temporary file that is renamed over the target, so readers never observe a
// partially written document.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: filepath.Clean(path)}
}

func (f *FileStorage) LoadState(ctx context.Context) (*model.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.readLocked()
}

func (f *FileStorage) SaveState(ctx context.Context, state *model.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writeLocked(state)
}

func (f *FileStorage) ReplaceTenant(ctx context.Context, tenantID string, data *model.TenantData) error {
	return f.modify(ctx, func(state *model.State) {
		state.DataByTenant[tenantID] = data
	})
}

func (f *FileStorage) ReplaceDirectory(ctx context.Context, dir model.Directory) error {
	return f.modify(ctx, func(state *model.State) {
		state.Directory = dir
	})
}

func (f *FileStorage) modify(ctx context.Context, fn func(state *model.State)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.readLocked()
	if errors.Is(err, ErrNoState) {
		state = &model.State{}
	} else if err != nil {
		return err
	}
	if state.DataByTenant == nil {
		state.DataByTenant = map[string]*model.TenantData{}
	}
	fn(state)
	return f.writeLocked(state)
}

func (f *FileStorage) readLocked() (*model.State, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", f.path, err)
	}

	var state model.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", f.path, err)
	}
	if state.DataByTenant == nil {
		state.DataByTenant = map[string]*model.TenantData{}
	}
	return &state, nil
}

func (f *FileStorage) writeLocked(state *model.State) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
