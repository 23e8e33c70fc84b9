// Package config loads the TOML configuration for the shell environment:
// logging, session limits, AWK interpreter limits, query-view bounds, and
// the mount table layout.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration tree. Zero values are filled from
// Default at load time, so a partial file only overrides what it names.
type Config struct {
	Log    Log         `toml:"log"`
	Shell  Shell       `toml:"shell"`
	AWK    AWK         `toml:"awk"`
	Query  Query       `toml:"query"`
	Mounts []MountSpec `toml:"mounts"`
}

// Log configures the zerolog logger.
type Log struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level"`
}

// Shell configures per-session behavior.
type Shell struct {
	// HistorySize bounds the per-session command history.
	HistorySize int `toml:"history_size"`
	// NoTxCommands overrides the allow-list of commands that run without a
	// transactional filesystem context. Empty keeps the built-in list.
	NoTxCommands []string `toml:"no_tx_commands"`
}

// AWK configures the interpreter.
type AWK struct {
	// MaxCallDepth bounds user-function recursion.
	MaxCallDepth int `toml:"max_call_depth"`
}

// Query configures query-view mounts.
type Query struct {
	// RowCap bounds how many record ids one view listing returns.
	RowCap int `toml:"row_cap"`
}

// MountSpec binds one mount into the table. Type selects the backend:
// "host" bridges a host directory (Source is the directory), "proc" serves
// the process table, "cmd" serves the command registry, "query" serves a
// filtered record view (Source is a sqlite DSN, Table/IDColumn name the
// backing table, Filter is the WHERE fragment).
type MountSpec struct {
	Path     string `toml:"path"`
	Type     string `toml:"type"`
	Source   string `toml:"source"`
	Filter   string `toml:"filter"`
	Table    string `toml:"table"`
	IDColumn string `toml:"id_column"`
	ReadOnly bool   `toml:"read_only"`
}

var mountTypes = map[string]bool{"host": true, "proc": true, "cmd": true, "query": true}

// Default returns the built-in configuration: info logging, a 500-line
// history, the interpreter and view limits, and no mounts.
func Default() Config {
	return Config{
		Log:   Log{Level: "info"},
		Shell: Shell{HistorySize: 500},
		AWK:   AWK{MaxCallDepth: 100},
		Query: Query{RowCap: 1000},
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints the TOML decoder cannot express.
func (c Config) Validate() error {
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be trace, debug, info, warn or error", c.Log.Level)
	}
	if c.Shell.HistorySize < 0 {
		return fmt.Errorf("shell.history_size %d: must be >= 0", c.Shell.HistorySize)
	}
	if c.AWK.MaxCallDepth <= 0 {
		return fmt.Errorf("awk.max_call_depth %d: must be > 0", c.AWK.MaxCallDepth)
	}
	if c.Query.RowCap <= 0 {
		return fmt.Errorf("query.row_cap %d: must be > 0", c.Query.RowCap)
	}
	seen := map[string]bool{}
	for i, m := range c.Mounts {
		if !strings.HasPrefix(m.Path, "/") {
			return fmt.Errorf("mounts[%d].path %q: must be absolute", i, m.Path)
		}
		if seen[m.Path] {
			return fmt.Errorf("mounts[%d].path %q: duplicate mount point", i, m.Path)
		}
		seen[m.Path] = true
		if !mountTypes[m.Type] {
			return fmt.Errorf("mounts[%d].type %q: must be host, proc, cmd or query", i, m.Type)
		}
		switch m.Type {
		case "host":
			if m.Source == "" {
				return fmt.Errorf("mounts[%d]: host mount needs a source directory", i)
			}
		case "query":
			if m.Source == "" || m.Table == "" || m.IDColumn == "" {
				return fmt.Errorf("mounts[%d]: query mount needs source, table and id_column", i)
			}
		}
	}
	return nil
}
