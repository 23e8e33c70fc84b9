package querymount

import (
	"errors"
	"testing"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

func newPeopleMount(filter string, rowCap int) *Mount {
	store := NewMapStore(map[string][]byte{
		"u1": []byte(`{"name": "alice", "role": "admin"}` + "\n"),
		"u2": []byte(`{"name": "bob", "role": "user"}` + "\n"),
		"u3": []byte(`{"name": "carol", "role": "admin"}` + "\n"),
	})
	return New(store, filter, rowCap)
}

func TestReadDirAppliesFilter(t *testing.T) {
	m := newPeopleMount("admin", 0)
	entries, err := m.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Name != "u1" || entries[1].Name != "u3" {
		t.Fatalf("got %q, %q", entries[0].Name, entries[1].Name)
	}
	for _, e := range entries {
		if e.Type != vfs.TypeFile || e.Mode != 0o444 {
			t.Fatalf("entry = %+v", e)
		}
	}
}

func TestReadDirEmptyFilterMatchesAll(t *testing.T) {
	m := newPeopleMount("", 0)
	entries, err := m.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
}

func TestReadDirRowCap(t *testing.T) {
	m := newPeopleMount("", 2)
	entries, err := m.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
}

func TestReadFileRecordInView(t *testing.T) {
	m := newPeopleMount("admin", 0)
	data, err := m.ReadFile("u1")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"name": "alice", "role": "admin"}`+"\n" {
		t.Fatalf("got %q", data)
	}
}

// A record that exists in the store but does not satisfy the filter is
// indistinguishable from a missing one.
func TestReadFileRecordOutsideView(t *testing.T) {
	m := newPeopleMount("admin", 0)
	_, err := m.ReadFile("u2")
	if vfs.ErrnoOf(err) != vfs.ENOENT {
		t.Fatalf("got %v", err)
	}
}

func TestReadFileMissingRecord(t *testing.T) {
	m := newPeopleMount("", 0)
	_, err := m.ReadFile("u9")
	if vfs.ErrnoOf(err) != vfs.ENOENT {
		t.Fatalf("got %v", err)
	}
}

func TestReadFileRoot(t *testing.T) {
	m := newPeopleMount("", 0)
	_, err := m.ReadFile(".")
	if vfs.ErrnoOf(err) != vfs.EISDIR {
		t.Fatalf("got %v", err)
	}
}

func TestStat(t *testing.T) {
	m := newPeopleMount("admin", 0)

	root, err := m.Stat(".")
	if err != nil {
		t.Fatal(err)
	}
	if !root.IsDir() {
		t.Fatalf("root = %+v", root)
	}

	e, err := m.Stat("u3")
	if err != nil {
		t.Fatal(err)
	}
	if e.Type != vfs.TypeFile || e.Size == 0 {
		t.Fatalf("u3 = %+v", e)
	}

	if _, err := m.Stat("u2"); vfs.ErrnoOf(err) != vfs.ENOENT {
		t.Fatalf("filtered-out record visible: %v", err)
	}
}

func TestReadDirOnRecord(t *testing.T) {
	m := newPeopleMount("", 0)
	_, err := m.ReadDir("u1")
	if vfs.ErrnoOf(err) != vfs.ENOTDIR {
		t.Fatalf("got %v", err)
	}
}

func TestNestedPathIsNotARecord(t *testing.T) {
	m := newPeopleMount("", 0)
	_, err := m.ReadFile("u1/extra")
	if vfs.ErrnoOf(err) != vfs.EISDIR {
		t.Fatalf("got %v", err)
	}
}

func TestFilterIsCaseInsensitive(t *testing.T) {
	m := newPeopleMount("ALICE", 0)
	entries, err := m.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "u1" {
		t.Fatalf("got %+v", entries)
	}
}

type failingStore struct{ err error }

func (s failingStore) Query(string, int) ([]string, error)           { return nil, s.err }
func (s failingStore) QueryOne(string, string) ([]byte, bool, error) { return nil, false, s.err }

func TestStoreErrorsSurfaceAsEIO(t *testing.T) {
	m := New(failingStore{err: errors.New("backend down")}, "", 0)

	if _, err := m.ReadDir("."); vfs.ErrnoOf(err) != vfs.EIO {
		t.Fatalf("readdir: %v", err)
	}
	if _, err := m.ReadFile("u1"); vfs.ErrnoOf(err) != vfs.EIO {
		t.Fatalf("read: %v", err)
	}
	if _, err := m.Stat("u1"); vfs.ErrnoOf(err) != vfs.EIO {
		t.Fatalf("stat: %v", err)
	}
}
