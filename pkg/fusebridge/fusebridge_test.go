package fusebridge

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

type fakeMount struct {
	files map[string][]byte
}

func (m *fakeMount) Stat(path string) (vfs.FSEntry, error) {
	if path == "." {
		return vfs.FSEntry{Name: "/", Type: vfs.TypeDir, Mode: 0o755}, nil
	}
	data, ok := m.files[path]
	if !ok {
		return vfs.FSEntry{}, vfs.NewError("stat", path, vfs.ENOENT)
	}
	return vfs.FSEntry{Name: path, Type: vfs.TypeFile, Size: int64(len(data)), Mode: 0o644}, nil
}

func (m *fakeMount) ReadDir(path string) ([]vfs.FSEntry, error) {
	if path != "." {
		return nil, vfs.NewError("readdir", path, vfs.ENOTDIR)
	}
	var out []vfs.FSEntry
	for name, data := range m.files {
		out = append(out, vfs.FSEntry{Name: name, Type: vfs.TypeFile, Size: int64(len(data))})
	}
	return out, nil
}

func (m *fakeMount) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, vfs.NewError("read", path, vfs.ENOENT)
	}
	return data, nil
}

func TestMapErrno(t *testing.T) {
	tests := []struct {
		errno vfs.Errno
		want  syscall.Errno
	}{
		{vfs.ENOENT, syscall.ENOENT},
		{vfs.ENOTDIR, syscall.ENOTDIR},
		{vfs.EISDIR, syscall.EISDIR},
		{vfs.EACCES, syscall.EACCES},
		{vfs.EROFS, syscall.EROFS},
		{vfs.EEXIST, syscall.EEXIST},
		{vfs.ENOTEMPTY, syscall.ENOTEMPTY},
		{vfs.EINVAL, syscall.EINVAL},
		{vfs.EIO, syscall.EIO},
	}
	for _, tt := range tests {
		got := mapErrno(vfs.NewError("op", "/p", tt.errno))
		if got != tt.want {
			t.Errorf("mapErrno(%v) = %v, want %v", tt.errno, got, tt.want)
		}
	}
	if got := mapErrno(errors.New("plain")); got != syscall.EIO {
		t.Errorf("non-PathError = %v, want EIO", got)
	}
}

func TestEntryMode(t *testing.T) {
	if entryMode(vfs.FSEntry{Type: vfs.TypeDir}) != uint32(syscall.S_IFDIR) {
		t.Error("dir mode")
	}
	if entryMode(vfs.FSEntry{Type: vfs.TypeSymlink}) != uint32(syscall.S_IFLNK) {
		t.Error("symlink mode")
	}
	if entryMode(vfs.FSEntry{Type: vfs.TypeFile}) != uint32(syscall.S_IFREG) {
		t.Error("file mode")
	}
}

func TestFileHandleRead(t *testing.T) {
	h := &fileHandle{data: []byte("hello world")}

	r, errno := h.Read(context.Background(), make([]byte, 5), 0)
	if errno != 0 {
		t.Fatalf("errno = %v", errno)
	}
	buf, _ := r.Bytes(make([]byte, 5))
	if string(buf) != "hello" {
		t.Fatalf("got %q", buf)
	}

	r, _ = h.Read(context.Background(), make([]byte, 64), 6)
	buf, _ = r.Bytes(make([]byte, 64))
	if string(buf) != "world" {
		t.Fatalf("got %q", buf)
	}

	r, errno = h.Read(context.Background(), make([]byte, 8), 100)
	if errno != 0 {
		t.Fatalf("errno = %v", errno)
	}
	buf, _ = r.Bytes(make([]byte, 8))
	if len(buf) != 0 {
		t.Fatalf("got %q past end", buf)
	}
}

func TestStatSynthesizesMountAncestors(t *testing.T) {
	table := vfs.NewTable()
	table.Register("/views/admins", &fakeMount{files: map[string][]byte{"u1": []byte("x")}})
	n := &node{table: table, path: "/", log: zerolog.Nop()}

	e, err := n.stat("/views")
	if err != nil {
		t.Fatal(err)
	}
	if !e.IsDir() || e.Name != "views" {
		t.Fatalf("got %+v", e)
	}

	if _, err := n.stat("/nope"); vfs.ErrnoOf(err) != vfs.ENOENT {
		t.Fatalf("got %v", err)
	}
}

func TestSyntheticChildren(t *testing.T) {
	table := vfs.NewTable()
	table.Register("/views/admins", &fakeMount{})
	table.Register("/views/users", &fakeMount{})
	table.Register("/proc", &fakeMount{})

	n := &node{table: table, path: "/views", log: zerolog.Nop()}
	children := n.syntheticChildren()
	if len(children) != 2 {
		t.Fatalf("got %d children", len(children))
	}
	names := map[string]bool{}
	for _, c := range children {
		names[c.Name] = true
	}
	if !names["admins"] || !names["users"] {
		t.Fatalf("got %v", names)
	}

	other := &node{table: table, path: "/other", log: zerolog.Nop()}
	if got := other.syntheticChildren(); got != nil {
		t.Fatalf("got %v for unmounted path", got)
	}
}
