package commands

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ianzepp/monk-shell/pkg/core"
)

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestGzipRoundTripFile(t *testing.T) {
	e := newTestEnv(t)
	e.write(t, "notes.txt", "compress me\n")

	if code := gzipCmd(e.session, e.fsys, []string{"/notes.txt"}, e.io()); code != core.ExitSuccess {
		t.Fatalf("gzip exit = %d: %s", code, e.errw.String())
	}
	if _, err := os.Stat(filepath.Join(e.dir, "notes.txt")); !os.IsNotExist(err) {
		t.Fatalf("original still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "notes.txt.gz")); err != nil {
		t.Fatalf("compressed missing: %v", err)
	}

	if code := gunzipCmd(e.session, e.fsys, []string{"/notes.txt.gz"}, e.io()); code != core.ExitSuccess {
		t.Fatalf("gunzip exit = %d: %s", code, e.errw.String())
	}
	data, err := os.ReadFile(filepath.Join(e.dir, "notes.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "compress me\n" {
		t.Fatalf("content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "notes.txt.gz")); !os.IsNotExist(err) {
		t.Fatalf("compressed still present after gunzip: %v", err)
	}
}

func TestGzipKeepOriginal(t *testing.T) {
	e := newTestEnv(t)
	e.write(t, "f", "data")
	if code := gzipCmd(e.session, e.fsys, []string{"-k", "/f"}, e.io()); code != core.ExitSuccess {
		t.Fatalf("exit = %d: %s", code, e.errw.String())
	}
	if _, err := os.Stat(filepath.Join(e.dir, "f")); err != nil {
		t.Fatalf("original removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "f.gz")); err != nil {
		t.Fatalf("compressed missing: %v", err)
	}
}

func TestGzipToStdout(t *testing.T) {
	e := newTestEnv(t)
	e.write(t, "f", "stream me")
	if code := gzipCmd(e.session, e.fsys, []string{"-c", "/f"}, e.io()); code != core.ExitSuccess {
		t.Fatalf("exit = %d: %s", code, e.errw.String())
	}
	if _, err := os.Stat(filepath.Join(e.dir, "f")); err != nil {
		t.Fatalf("-c removed original: %v", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(e.out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(plain) != "stream me" {
		t.Fatalf("decompressed = %q", plain)
	}
}

func TestGunzipStdinFilter(t *testing.T) {
	e := newTestEnv(t)
	cio := &core.CommandIO{
		In:  bytes.NewReader(gzipBytes(t, "piped\n")),
		Out: &e.out,
		Err: &e.errw,
		Ctx: context.Background(),
	}
	if code := gunzipCmd(e.session, e.fsys, nil, cio); code != core.ExitSuccess {
		t.Fatalf("exit = %d: %s", code, e.errw.String())
	}
	if e.out.String() != "piped\n" {
		t.Fatalf("out = %q", e.out.String())
	}
}

func TestGunzipRejectsUnknownSuffix(t *testing.T) {
	e := newTestEnv(t)
	e.write(t, "plain.txt", "not gzip")
	// Make the content valid gzip so only the suffix check can fail.
	if err := os.WriteFile(filepath.Join(e.dir, "plain.txt"), gzipBytes(t, "x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := gunzipCmd(e.session, e.fsys, []string{"/plain.txt"}, e.io()); code != core.ExitFailure {
		t.Fatalf("exit = %d", code)
	}
}

func TestGunzipCorruptInput(t *testing.T) {
	e := newTestEnv(t)
	e.write(t, "bad.gz", "definitely not gzip")
	if code := gunzipCmd(e.session, e.fsys, []string{"/bad.gz"}, e.io()); code != core.ExitFailure {
		t.Fatalf("exit = %d", code)
	}
}

func TestGzipUnknownOption(t *testing.T) {
	e := newTestEnv(t)
	if code := gzipCmd(e.session, e.fsys, []string{"-z", "/f"}, e.io()); code != core.ExitUsage {
		t.Fatalf("exit = %d", code)
	}
}
