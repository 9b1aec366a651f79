package clientstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileStorage persists a profile as one JSON object on disk. Several processes
// may share the file; Watch picks up their writes.
type FileStorage struct {
	path     string
	mu       sync.Mutex
	snapshot map[string]string
	subs     subscribers
}

// NewFileStorage opens the profile at path, creating its directory if needed.
func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}
	f := &FileStorage{path: filepath.Clean(path)}
	data, err := f.readFile()
	if err != nil {
		return nil, err
	}
	f.snapshot = data
	return f, nil
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.snapshot[key]
	return v, ok, nil
}

func (f *FileStorage) Set(origin, key, value string) error {
	return f.write(Change{Key: key, Value: value, Origin: origin})
}

func (f *FileStorage) Remove(origin, key string) error {
	return f.write(Change{Key: key, Removed: true, Origin: origin})
}

func (f *FileStorage) Subscribe(fn func(Change)) func() {
	return f.subs.add(fn)
}

func (f *FileStorage) write(c Change) error {
	f.mu.Lock()
	external, err := f.refreshLocked()
	if err != nil {
		f.mu.Unlock()
		return err
	}

	if c.Removed {
		if _, ok := f.snapshot[c.Key]; !ok {
			f.mu.Unlock()
			f.subs.notify(external...)
			return nil
		}
		delete(f.snapshot, c.Key)
	} else {
		f.snapshot[c.Key] = c.Value
	}
	err = f.writeFile(f.snapshot)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	f.subs.notify(append(external, c)...)
	return nil
}

// Watch reloads the file whenever another process rewrites it and notifies
// subscribers of what changed. It returns once the watcher is running.
func (f *FileStorage) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Writes replace the file by rename, so the directory is watched.
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", f.path, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				f.mu.Lock()
				changes, err := f.refreshLocked()
				f.mu.Unlock()
				if err != nil {
					zap.L().Warn("failed to reload client state", zap.String("path", f.path), zap.Error(err))
					continue
				}
				f.subs.notify(changes...)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				zap.L().Warn("client state watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// refreshLocked reloads the file and returns the differences from the last
// known snapshot as external changes. f.mu must be held.
func (f *FileStorage) refreshLocked() ([]Change, error) {
	current, err := f.readFile()
	if err != nil {
		return nil, err
	}

	var changes []Change
	for k, v := range current {
		if old, ok := f.snapshot[k]; !ok || old != v {
			changes = append(changes, Change{Key: k, Value: v})
		}
	}
	for k := range f.snapshot {
		if _, ok := current[k]; !ok {
			changes = append(changes, Change{Key: k, Removed: true})
		}
	}
	f.snapshot = current
	return changes, nil
}

func (f *FileStorage) readFile() (map[string]string, error) {
	data := make(map[string]string)
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) || len(raw) == 0 {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		zap.L().Warn("ignoring corrupt client state file", zap.String("path", f.path), zap.Error(err))
		return make(map[string]string), nil
	}
	return data, nil
}

func (f *FileStorage) writeFile(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode client state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".clientstate-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
