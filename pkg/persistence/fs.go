package persistence

import (
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
)

// OpenMode selects how a file is opened.
type OpenMode uint8

const (
	// ModeRead opens an existing file for reading.
	ModeRead OpenMode = iota

	// ModeWrite creates or truncates a file for writing.
	ModeWrite
)

// String returns the mode name.
func (m OpenMode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	default:
		return "?"
	}
}

// File is an open file handle.
type File interface {
	io.Reader
	io.Writer
	io.Closer
}

// FS is the byte-stream store documents are kept on. Paths are slash
// separated and rooted at "/". Exists("/") reporting false means the store
// is unavailable.
type FS interface {
	Exists(name string) bool
	Open(name string, mode OpenMode) (File, error)
	Mkdir(name string) error
}

// DirFS is an FS rooted at a host directory.
type DirFS struct {
	Root string
}

// NewDirFS returns a DirFS rooted at dir.
func NewDirFS(dir string) *DirFS {
	return &DirFS{Root: dir}
}

// hostPath maps a store path into Root. Cleaning against "/" keeps ".."
// from escaping the root.
func (d *DirFS) hostPath(name string) string {
	clean := path.Clean("/" + name)
	return filepath.Join(d.Root, filepath.FromSlash(clean))
}

// Exists reports whether name exists. Exists("/") reports whether Root is a
// usable directory.
func (d *DirFS) Exists(name string) bool {
	if d == nil || d.Root == "" {
		return false
	}
	info, err := os.Stat(d.hostPath(name))
	if err != nil {
		return false
	}
	if path.Clean("/"+name) == "/" {
		return info.IsDir()
	}
	return true
}

// Open opens name in the given mode.
func (d *DirFS) Open(name string, mode OpenMode) (File, error) {
	switch mode {
	case ModeRead:
		return os.Open(d.hostPath(name))
	case ModeWrite:
		return os.OpenFile(d.hostPath(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	default:
		return nil, errors.New("unsupported open mode")
	}
}

// Mkdir creates a single directory.
func (d *DirFS) Mkdir(name string) error {
	return os.Mkdir(d.hostPath(name), 0755)
}

// Compile-time interface satisfaction check.
var _ FS = (*DirFS)(nil)
