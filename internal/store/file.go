package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"yeoneunal/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// FileStore keeps session values in a JSON object file. Every write replaces
// the file atomically; reads notice replacements made by other processes.
type FileStore struct {
	path     string
	debounce time.Duration

	mu   sync.Mutex
	data map[string]string
	info os.FileInfo // last file observed by a read

	seenMu sync.Mutex
	seen   map[string]string // watcher's last snapshot
}

// NewFileStore opens the store at path, creating its directory.
// A missing file is an empty store; a malformed file is logged and treated
// as empty until the next write replaces it.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	fs := &FileStore{
		path:     filepath.Clean(path),
		debounce: 50 * time.Millisecond,
		data:     map[string]string{},
	}
	fs.mu.Lock()
	fs.refreshLocked(true)
	fs.seen = copyMap(fs.data)
	fs.mu.Unlock()
	return fs, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshLocked(false)
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshLocked(false)
	f.data[key] = value
	return f.flushLocked(key)
}

func (f *FileStore) Remove(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshLocked(false)
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flushLocked(key)
}

// refreshLocked reloads the file when it was replaced or modified since the
// last read. Caller holds f.mu.
func (f *FileStore) refreshLocked(force bool) {
	fi, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.data = map[string]string{}
			f.info = nil
			return
		}
		logging.StoreWarn("stat %s: %v", f.path, err)
		return
	}
	if !force && f.info != nil && os.SameFile(f.info, fi) &&
		f.info.ModTime().Equal(fi.ModTime()) && f.info.Size() == fi.Size() {
		return
	}
	data, err := readJSONFile(f.path)
	if err != nil {
		logging.StoreWarn("ignoring unreadable session file %s: %v", f.path, err)
		data = map[string]string{}
	}
	f.data = data
	f.info = fi
}

// flushLocked writes f.data atomically. Only key is recorded as this
// store's own write; other keys that refreshLocked pulled in from a foreign
// writer stay unseen so Watch still reports them.
func (f *FileStore) flushLocked(key string) error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session file: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}

	f.seenMu.Lock()
	if v, ok := f.data[key]; ok {
		f.seen[key] = v
	} else {
		delete(f.seen, key)
	}
	f.seenMu.Unlock()

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	if fi, err := os.Stat(f.path); err == nil {
		f.info = fi
	}
	return nil
}

// Watch reports keys changed by other writers until ctx is done. The
// returned channel is closed when watching stops.
func (f *FileStore) Watch(ctx context.Context) (<-chan Change, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Store("watching session file %s", f.path)

	out := make(chan Change, 16)
	go f.run(ctx, w, out)
	return out, nil
}

func (f *FileStore) run(ctx context.Context, w *fsnotify.Watcher, out chan<- Change) {
	defer close(out)
	defer w.Close()

	ticker := time.NewTicker(f.debounce)
	defer ticker.Stop()

	base := filepath.Base(f.path)
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				pending = true
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.StoreWarn("session watcher: %v", err)
		case <-ticker.C:
			if !pending {
				continue
			}
			pending = false
			for _, c := range f.diffFromDisk() {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// diffFromDisk compares the file against the watcher snapshot.
func (f *FileStore) diffFromDisk() []Change {
	current, err := readJSONFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.StoreWarn("session watcher read: %v", err)
			return nil
		}
		current = map[string]string{}
	}

	f.seenMu.Lock()
	defer f.seenMu.Unlock()

	var changes []Change
	for k, v := range current {
		old, ok := f.seen[k]
		if !ok || old != v {
			changes = append(changes, Change{Key: k, OldValue: old, NewValue: v})
		}
	}
	for k, old := range f.seen {
		if _, ok := current[k]; !ok {
			changes = append(changes, Change{Key: k, OldValue: old, Removed: true})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	f.seen = current
	return changes
}

func readJSONFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
