package persistence

import (
	"bytes"
	"errors"
	"io/fs"
	"path"
	"sync"
)

// ErrWriteFailed is returned by MemFS when write failures are injected.
var ErrWriteFailed = errors.New("write failed")

// MemFS is an in-memory FS. It is safe for concurrent use and lets tests
// simulate an unmounted medium or failing writes.
type MemFS struct {
	mu          sync.Mutex
	unavailable bool
	failWrites  bool
	files       map[string][]byte
	dirs        map[string]bool
	writes      int
}

// NewMemFS returns an empty, available MemFS.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
	}
}

// SetAvailable mounts or unmounts the store.
func (m *MemFS) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

// SetFailWrites makes every subsequent write Open fail.
func (m *MemFS) SetFailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// WriteFile stores data at name, creating parent directories.
func (m *MemFS) WriteFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = path.Clean("/" + name)
	for dir := path.Dir(name); dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
	m.files[name] = append([]byte(nil), data...)
}

// ReadFile returns the content stored at name.
func (m *MemFS) ReadFile(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[path.Clean("/"+name)]
	return append([]byte(nil), data...), ok
}

// Writes returns the number of completed file writes.
func (m *MemFS) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Exists reports whether name is a file or directory.
func (m *MemFS) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return false
	}
	name = path.Clean("/" + name)
	if m.dirs[name] {
		return true
	}
	_, ok := m.files[name]
	return ok
}

// Open opens name. Writing requires the parent directory to exist.
func (m *MemFS) Open(name string, mode OpenMode) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = path.Clean("/" + name)
	if m.unavailable {
		return nil, fs.ErrNotExist
	}

	switch mode {
	case ModeRead:
		data, ok := m.files[name]
		if !ok {
			return nil, fs.ErrNotExist
		}
		return &memFile{r: bytes.NewReader(data)}, nil
	case ModeWrite:
		if m.failWrites {
			return nil, ErrWriteFailed
		}
		if !m.dirs[path.Dir(name)] {
			return nil, fs.ErrNotExist
		}
		return &memFile{fs: m, name: name}, nil
	default:
		return nil, errors.New("unsupported open mode")
	}
}

// Mkdir creates a directory whose parent must exist.
func (m *MemFS) Mkdir(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return fs.ErrNotExist
	}
	name = path.Clean("/" + name)
	if m.dirs[name] {
		return fs.ErrExist
	}
	if !m.dirs[path.Dir(name)] {
		return fs.ErrNotExist
	}
	m.dirs[name] = true
	return nil
}

// memFile buffers writes and commits them on Close.
type memFile struct {
	r    *bytes.Reader
	buf  bytes.Buffer
	fs   *MemFS
	name string
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, errors.New("file not open for reading")
	}
	return f.r.Read(p)
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.fs == nil {
		return 0, errors.New("file not open for writing")
	}
	return f.buf.Write(p)
}

func (f *memFile) Close() error {
	if f.fs == nil {
		return nil
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	f.fs.files[f.name] = append([]byte(nil), f.buf.Bytes()...)
	f.fs.writes++
	f.fs = nil
	return nil
}

// Compile-time interface satisfaction check.
var _ FS = (*MemFS)(nil)
