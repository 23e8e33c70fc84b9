package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vsh.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Log.Level != "info" {
		t.Fatalf("level = %q", cfg.Log.Level)
	}
	if cfg.Shell.HistorySize != 500 {
		t.Fatalf("history = %d", cfg.Shell.HistorySize)
	}
	if cfg.AWK.MaxCallDepth != 100 {
		t.Fatalf("depth = %d", cfg.AWK.MaxCallDepth)
	}
	if cfg.Query.RowCap != 1000 {
		t.Fatalf("row cap = %d", cfg.Query.RowCap)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level = %q", cfg.Log.Level)
	}
	if cfg.Shell.HistorySize != 500 {
		t.Fatalf("history = %d", cfg.Shell.HistorySize)
	}
}

func TestLoadMounts(t *testing.T) {
	path := writeConfig(t, `
[[mounts]]
path = "/data"
type = "host"
source = "/srv/tenant"
read_only = true

[[mounts]]
path = "/proc"
type = "proc"

[[mounts]]
path = "/views/admins"
type = "query"
source = "file:records.db"
table = "users"
id_column = "id"
filter = "role = 'admin'"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Mounts) != 3 {
		t.Fatalf("got %d mounts", len(cfg.Mounts))
	}
	m := cfg.Mounts[0]
	if m.Path != "/data" || m.Type != "host" || m.Source != "/srv/tenant" || !m.ReadOnly {
		t.Fatalf("mount = %+v", m)
	}
	if cfg.Mounts[2].Filter != "role = 'admin'" {
		t.Fatalf("filter = %q", cfg.Mounts[2].Filter)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("want error")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[log]
levle = "info"
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Fatalf("got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative history", func(c *Config) { c.Shell.HistorySize = -1 }, "history_size"},
		{"zero depth", func(c *Config) { c.AWK.MaxCallDepth = 0 }, "max_call_depth"},
		{"zero row cap", func(c *Config) { c.Query.RowCap = 0 }, "row_cap"},
		{"relative mount", func(c *Config) {
			c.Mounts = []MountSpec{{Path: "data", Type: "host", Source: "/srv"}}
		}, "must be absolute"},
		{"duplicate mount", func(c *Config) {
			c.Mounts = []MountSpec{
				{Path: "/p", Type: "proc"},
				{Path: "/p", Type: "cmd"},
			}
		}, "duplicate"},
		{"bad type", func(c *Config) {
			c.Mounts = []MountSpec{{Path: "/p", Type: "nfs"}}
		}, "must be host, proc, cmd or query"},
		{"host without source", func(c *Config) {
			c.Mounts = []MountSpec{{Path: "/p", Type: "host"}}
		}, "source directory"},
		{"query without table", func(c *Config) {
			c.Mounts = []MountSpec{{Path: "/p", Type: "query", Source: "file:x.db"}}
		}, "id_column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want substring %q", err, tt.want)
			}
		})
	}
}
