package vfs

import (
	"path"
	"sort"
	"strings"
)

// Table maps absolute path prefixes to mounts. Lookup is by longest matching
// prefix, so "/proc/42/status" resolves to the "/proc" mount with relative
// path "42/status" even when "/" is also mounted.
type Table struct {
	entries []tableEntry
}

type tableEntry struct {
	prefix string
	mount  Mount
}

// NewTable returns an empty mount table.
func NewTable() *Table {
	return &Table{}
}

// Register binds a mount at an absolute path prefix. Registering the same
// prefix twice replaces the earlier binding.
func (t *Table) Register(prefix string, m Mount) {
	prefix = Normalize(prefix)
	for i := range t.entries {
		if t.entries[i].prefix == prefix {
			t.entries[i].mount = m
			return
		}
	}
	t.entries = append(t.entries, tableEntry{prefix: prefix, mount: m})
	// longest prefix first so Resolve can take the first match
	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i].prefix) > len(t.entries[j].prefix)
	})
}

// Overlay returns a derived table with m shadowing prefix. The receiver is
// unchanged; every other prefix falls through to the original bindings.
func (t *Table) Overlay(prefix string, m Mount) *Table {
	out := &Table{entries: make([]tableEntry, len(t.entries))}
	copy(out.entries, t.entries)
	out.Register(prefix, m)
	return out
}

// Resolve finds the mount owning an absolute path and returns it with the
// path rewritten relative to the mount root. The second return is "." for
// the mount root itself. Returns nil when no mount covers the path.
func (t *Table) Resolve(p string) (Mount, string) {
	p = Normalize(p)
	for _, e := range t.entries {
		if !covers(e.prefix, p) {
			continue
		}
		rel := strings.TrimPrefix(p, e.prefix)
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" {
			rel = "."
		}
		return e.mount, rel
	}
	return nil, ""
}

// Prefixes returns the registered prefixes, longest first.
func (t *Table) Prefixes() []string {
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.prefix)
	}
	return out
}

// Stat dispatches through the table. Unmounted paths fail with ENOENT.
func (t *Table) Stat(p string) (FSEntry, error) {
	m, rel := t.Resolve(p)
	if m == nil {
		return FSEntry{}, NewError("stat", p, ENOENT)
	}
	return m.Stat(rel)
}

// ReadDir dispatches through the table. Listing the virtual root ("/")
// merges the first path element of every mount prefix so mount points are
// visible even when no mount is bound at "/" itself.
func (t *Table) ReadDir(p string) ([]FSEntry, error) {
	m, rel := t.Resolve(p)
	if m != nil {
		entries, err := m.ReadDir(rel)
		if err == nil && Normalize(p) == "/" {
			entries = append(entries, t.mountPointEntries("/")...)
		}
		return entries, err
	}
	if Normalize(p) == "/" {
		return t.mountPointEntries("/"), nil
	}
	return nil, NewError("readdir", p, ENOENT)
}

// ReadFile dispatches through the table.
func (t *Table) ReadFile(p string) ([]byte, error) {
	m, rel := t.Resolve(p)
	if m == nil {
		return nil, NewError("read", p, ENOENT)
	}
	return m.ReadFile(rel)
}

func (t *Table) mountPointEntries(root string) []FSEntry {
	seen := map[string]bool{}
	var out []FSEntry
	for _, e := range t.entries {
		if e.prefix == root {
			continue
		}
		rest := strings.TrimPrefix(e.prefix, root)
		name := strings.SplitN(strings.TrimPrefix(rest, "/"), "/", 2)[0]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, FSEntry{Name: name, Type: TypeDir, Mode: 0o755})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Normalize cleans a path into absolute slash form with no trailing slash
// (except the root itself).
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func covers(prefix, p string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
