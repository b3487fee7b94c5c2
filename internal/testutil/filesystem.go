package testutil

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// MemFS is an in-memory concat.FileSystem for tests. Safe for
// concurrent use.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memFile
	dirs  map[string]bool
	links map[string]string

	// Per-path error injection. A path present in one of these maps
	// makes the corresponding operation fail with the given error.
	StatErr  map[string]error
	ReadErr  map[string]error
	WriteErr map[string]error
}

type memFile struct {
	data []byte
	mode fs.FileMode
	mod  time.Time
}

// NewMemFS creates an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{
		files:    make(map[string]*memFile),
		dirs:     map[string]bool{"/": true},
		links:    make(map[string]string),
		StatErr:  make(map[string]error),
		ReadErr:  make(map[string]error),
		WriteErr: make(map[string]error),
	}
}

// WriteFile seeds a file directly, creating parent directories.
func (m *MemFS) WriteFile(path string, data []byte, mode fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &memFile{data: append([]byte(nil), data...), mode: mode, mod: time.Now()}
	m.markParents(path)
}

// Symlink records path as a symlink to target. Resolve and Stat follow it.
func (m *MemFS) Symlink(target, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[path] = target
}

// Content returns a file's current content.
func (m *MemFS) Content(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[m.follow(path)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.data...), true
}

// Mode returns a file's current mode.
func (m *MemFS) Mode(path string) (fs.FileMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[m.follow(path)]
	if !ok {
		return 0, false
	}
	return f.mode, true
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.StatErr[path]; err != nil {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	path = m.follow(path)
	if f, ok := m.files[path]; ok {
		return &memFileInfo{name: filepath.Base(path), size: int64(len(f.data)), mode: f.mode, mod: f.mod}, nil
	}
	if m.dirs[path] {
		return &memFileInfo{name: filepath.Base(path), mode: fs.ModeDir | 0755, dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ReadErr[path]; err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	f, ok := m.files[m.follow(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), f.data...), nil
}

func (m *MemFS) Resolve(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.follow(path), nil
}

func (m *MemFS) WriteFileAtomic(path string, data []byte, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.WriteErr[path]; err != nil {
		return &fs.PathError{Op: "write", Path: path, Err: err}
	}
	m.files[path] = &memFile{data: append([]byte(nil), data...), mode: mode, mod: time.Now()}
	m.markParents(path)
	return nil
}

func (m *MemFS) MkdirAll(path string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	m.markParents(path)
	return nil
}

// follow resolves symlinks. Cycles are cut off rather than detected;
// tests do not create them.
func (m *MemFS) follow(path string) string {
	for i := 0; i < 10; i++ {
		target, ok := m.links[path]
		if !ok {
			return path
		}
		path = target
	}
	return path
}

func (m *MemFS) markParents(path string) {
	for dir := filepath.Dir(path); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		m.dirs[dir] = true
	}
}

type memFileInfo struct {
	name string
	size int64
	mode fs.FileMode
	mod  time.Time
	dir  bool
}

func (i *memFileInfo) Name() string       { return i.name }
func (i *memFileInfo) Size() int64        { return i.size }
func (i *memFileInfo) Mode() fs.FileMode  { return i.mode }
func (i *memFileInfo) ModTime() time.Time { return i.mod }
func (i *memFileInfo) IsDir() bool        { return i.dir }
func (i *memFileInfo) Sys() any           { return nil }
