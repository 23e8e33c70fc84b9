// Package vfs defines the virtual filesystem contract implemented by every
// mount backend: a stat/readdir/read core plus optional mutators. Mounts
// differ wildly in their backing data (command registry, process table, host
// directory, query view) but present the same surface, so command handlers
// never care which backend a path resolves to.
package vfs

import (
	"io/fs"
	"time"
)

// EntryType classifies a filesystem object.
type EntryType int

const (
	TypeFile EntryType = iota
	TypeDir
	TypeSymlink
)

func (t EntryType) String() string {
	switch t {
	case TypeDir:
		return "dir"
	case TypeSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// FSEntry describes one filesystem object. Entries are produced fresh on
// every query; mounts never hand out cached copies.
type FSEntry struct {
	Name    string
	Type    EntryType
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
	// Target is the symlink destination, set only for TypeSymlink.
	Target string
}

// IsDir reports whether the entry is a directory.
func (e FSEntry) IsDir() bool { return e.Type == TypeDir }

// Mount is the read side of the filesystem contract. Paths are
// slash-separated and relative to the mount root ("" or "." both mean the
// root). Implementations must never resolve a path to a location outside
// their own backing store.
type Mount interface {
	// Stat describes a single path. Missing paths fail with ENOENT.
	Stat(path string) (FSEntry, error)
	// ReadDir lists a directory. Non-directories fail with ENOTDIR,
	// missing paths with ENOENT.
	ReadDir(path string) ([]FSEntry, error)
	// ReadFile returns full file content. Directories fail with EISDIR.
	ReadFile(path string) ([]byte, error)
}

// WritableMount extends Mount with mutation. Read-only mounts simply do not
// implement it; callers probe with a type assertion and report EROFS.
type WritableMount interface {
	Mount
	WriteFile(path string, data []byte) error
	Mkdir(path string) error
	Unlink(path string) error
	Rmdir(path string) error
	Rename(oldPath, newPath string) error
	Symlink(target, linkPath string) error
	Readlink(path string) (string, error)
	Chmod(path string, mode fs.FileMode) error
}

// WriteFile writes through m when it is writable, and fails with EROFS when
// it is not. Shared by handlers so read-only rejection is uniform.
func WriteFile(m Mount, path string, data []byte) error {
	w, ok := m.(WritableMount)
	if !ok {
		return NewError("write", path, EROFS)
	}
	return w.WriteFile(path, data)
}
