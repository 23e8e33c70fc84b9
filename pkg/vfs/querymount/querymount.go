// Package querymount serves an ad-hoc query view as a read-only filesystem:
// one data model plus a filter. Listing the root runs the filter (bounded by
// a row cap) and shows matching record ids; reading or stat-ing an id
// re-runs the filter intersected with that id, so records outside the view
// are never visible even when they exist in the backing store.
package querymount

import (
	"sort"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// DefaultRowCap bounds how many record ids a listing returns.
const DefaultRowCap = 1000

// RecordStore is the data source behind a view. Query returns matching
// record ids up to limit; QueryOne re-evaluates the filter for a single id
// and returns the rendered record, reporting found=false when the id does
// not satisfy the filter (or does not exist at all).
type RecordStore interface {
	Query(filter string, limit int) ([]string, error)
	QueryOne(filter, id string) (content []byte, found bool, err error)
}

// Mount is a read-only view of one filtered record set.
type Mount struct {
	store  RecordStore
	filter string
	rowCap int
}

// New returns a view over store with the given filter. rowCap <= 0 uses
// DefaultRowCap.
func New(store RecordStore, filter string, rowCap int) *Mount {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	return &Mount{store: store, filter: filter, rowCap: rowCap}
}

func (m *Mount) Stat(path string) (vfs.FSEntry, error) {
	id, ok := recordID(path)
	if !ok {
		return vfs.FSEntry{Name: "/", Type: vfs.TypeDir, Mode: 0o555}, nil
	}
	content, found, err := m.store.QueryOne(m.filter, id)
	if err != nil {
		return vfs.FSEntry{}, vfs.NewErrorDetail("stat", path, vfs.EIO, err.Error())
	}
	if !found {
		return vfs.FSEntry{}, vfs.NewError("stat", path, vfs.ENOENT)
	}
	return vfs.FSEntry{Name: id, Type: vfs.TypeFile, Size: int64(len(content)), Mode: 0o444}, nil
}

func (m *Mount) ReadDir(path string) ([]vfs.FSEntry, error) {
	if id, ok := recordID(path); ok {
		if _, found, err := m.store.QueryOne(m.filter, id); err == nil && found {
			return nil, vfs.NewError("readdir", path, vfs.ENOTDIR)
		}
		return nil, vfs.NewError("readdir", path, vfs.ENOENT)
	}
	ids, err := m.store.Query(m.filter, m.rowCap)
	if err != nil {
		return nil, vfs.NewErrorDetail("readdir", path, vfs.EIO, err.Error())
	}
	sort.Strings(ids)
	entries := make([]vfs.FSEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, vfs.FSEntry{Name: id, Type: vfs.TypeFile, Mode: 0o444})
	}
	return entries, nil
}

func (m *Mount) ReadFile(path string) ([]byte, error) {
	id, ok := recordID(path)
	if !ok {
		return nil, vfs.NewError("read", path, vfs.EISDIR)
	}
	content, found, err := m.store.QueryOne(m.filter, id)
	if err != nil {
		return nil, vfs.NewErrorDetail("read", path, vfs.EIO, err.Error())
	}
	if !found {
		return nil, vfs.NewError("read", path, vfs.ENOENT)
	}
	return content, nil
}

// recordID extracts the single path element naming a record. Views are
// flat; nested paths are not records.
func recordID(path string) (string, bool) {
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return "", false
	}
	if strings.Contains(path, "/") {
		return "", false
	}
	return path, true
}
