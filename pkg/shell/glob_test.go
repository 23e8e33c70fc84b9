package shell

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ianzepp/monk-shell/pkg/vfs"
	"github.com/ianzepp/monk-shell/pkg/vfs/hostmount"
)

func globTable(t *testing.T, names []string, dirs []string) *vfs.Table {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	m, err := hostmount.New(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	table := vfs.NewTable()
	table.Register("/", m)
	return table
}

func TestExpandGlob(t *testing.T) {
	fsys := globTable(t,
		[]string{"alpha.txt", "beta.txt", "beta.log", "a1", "a2"},
		[]string{"docs"})

	tests := []struct {
		name string
		arg  string
		want []string
	}{
		{"star suffix", "*.txt", []string{"alpha.txt", "beta.txt"}},
		{"question mark", "a?", []string{"a1", "a2"}},
		{"class", "a[12]", []string{"a1", "a2"}},
		{"class subset", "a[2]", []string{"a2"}},
		{"dir gets slash", "d*", []string{"docs/"}},
		{"no match literal", "*.go", []string{"*.go"}},
		{"no wildcard passthrough", "alpha.txt", []string{"alpha.txt"}},
		{"everything sorted", "*eta*", []string{"beta.log", "beta.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandGlob(fsys, "/", tt.arg)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandGlob(%q) = %v, want %v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestExpandGlobSubdirectory(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"one.txt", "two.txt"} {
		if err := os.WriteFile(filepath.Join(base, "sub", n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m, err := hostmount.New(base, true)
	if err != nil {
		t.Fatal(err)
	}
	fsys := vfs.NewTable()
	fsys.Register("/", m)

	got := ExpandGlob(fsys, "/", "sub/*.txt")
	want := []string{"sub/one.txt", "sub/two.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// relative to cwd
	got = ExpandGlob(fsys, "/sub", "*.txt")
	want = []string{"one.txt", "two.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cwd-relative got %v, want %v", got, want)
	}
}

func TestExpandGlobEdgeCases(t *testing.T) {
	fsys := globTable(t, []string{"x.txt"}, nil)

	// wildcard directory components are not expanded
	got := ExpandGlob(fsys, "/", "*/file")
	if !reflect.DeepEqual(got, []string{"*/file"}) {
		t.Errorf("wildcard dir = %v", got)
	}

	// unlistable directory falls back to the literal
	got = ExpandGlob(fsys, "/", "missing/*.txt")
	if !reflect.DeepEqual(got, []string{"missing/*.txt"}) {
		t.Errorf("missing dir = %v", got)
	}

	// nil table passes everything through
	got = ExpandGlob(nil, "/", "*.txt")
	if !reflect.DeepEqual(got, []string{"*.txt"}) {
		t.Errorf("nil table = %v", got)
	}
}

func TestGlobToRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		match   []string
		reject  []string
	}{
		{"*.txt", []string{"a.txt", ".txt"}, []string{"a.txtx", "a.log"}},
		{"a?c", []string{"abc", "axc"}, []string{"ac", "abbc"}},
		{"[ab]z", []string{"az", "bz"}, []string{"cz", "abz"}},
		{"plain", []string{"plain"}, []string{"plains", "p"}},
		{"a.b", []string{"a.b"}, []string{"axb"}},
	}
	for _, tt := range tests {
		re, err := globToRegexp(tt.pattern)
		if err != nil {
			t.Fatalf("globToRegexp(%q) error: %v", tt.pattern, err)
		}
		for _, s := range tt.match {
			if !re.MatchString(s) {
				t.Errorf("pattern %q should match %q", tt.pattern, s)
			}
		}
		for _, s := range tt.reject {
			if re.MatchString(s) {
				t.Errorf("pattern %q should not match %q", tt.pattern, s)
			}
		}
	}
}
