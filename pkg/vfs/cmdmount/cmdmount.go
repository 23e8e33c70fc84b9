// Package cmdmount serves the command registry as a read-only filesystem:
// the root lists every registered command as an executable entry, and
// reading one returns its manual text or a placeholder.
package cmdmount

import (
	"sort"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// Registry is the slice of the command registry this mount needs.
type Registry interface {
	Names() []string
	Manual(name string) string
	Has(name string) bool
}

// Mount is a read-only view over a command registry.
type Mount struct {
	reg Registry
}

// New returns a mount over reg.
func New(reg Registry) *Mount {
	return &Mount{reg: reg}
}

func (m *Mount) Stat(path string) (vfs.FSEntry, error) {
	if isRoot(path) {
		return vfs.FSEntry{Name: "/", Type: vfs.TypeDir, Mode: 0o755}, nil
	}
	if !m.reg.Has(path) {
		return vfs.FSEntry{}, vfs.NewError("stat", path, vfs.ENOENT)
	}
	return m.entry(path), nil
}

func (m *Mount) ReadDir(path string) ([]vfs.FSEntry, error) {
	if !isRoot(path) {
		if m.reg.Has(path) {
			return nil, vfs.NewError("readdir", path, vfs.ENOTDIR)
		}
		return nil, vfs.NewError("readdir", path, vfs.ENOENT)
	}
	names := m.reg.Names()
	sort.Strings(names)
	entries := make([]vfs.FSEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, m.entry(name))
	}
	return entries, nil
}

func (m *Mount) ReadFile(path string) ([]byte, error) {
	if isRoot(path) {
		return nil, vfs.NewError("read", path, vfs.EISDIR)
	}
	if !m.reg.Has(path) {
		return nil, vfs.NewError("read", path, vfs.ENOENT)
	}
	manual := m.reg.Manual(path)
	if manual == "" {
		manual = "no manual entry for " + path + "\n"
	}
	return []byte(manual), nil
}

func (m *Mount) entry(name string) vfs.FSEntry {
	size := int64(len(m.reg.Manual(name)))
	return vfs.FSEntry{Name: name, Type: vfs.TypeFile, Size: size, Mode: 0o755}
}

func isRoot(path string) bool {
	return path == "" || path == "." || path == "/"
}
