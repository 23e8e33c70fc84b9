// Package shell implements the embedded command environment: a command-line
// parser, glob expansion against the virtual filesystem, a pipeline/chain
// executor with background jobs, and the registries (commands, processes)
// the executor dispatches against.
package shell

import (
	"context"
	"path"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// Session is the long-lived state of one interactive connection: working
// directory, environment (including "?" for the last exit code), command
// history, and the mount table filesystem calls resolve against.
type Session struct {
	Cwd          string
	Env          map[string]string
	History      []string
	HistoryLimit int
	Mounts       *vfs.Table
	// Tx is the transactional context the current chain runs inside, nil
	// for allow-listed commands that need none.
	Tx TxContext
}

// NewSession returns a session rooted at "/" with an empty environment.
func NewSession(mounts *vfs.Table) *Session {
	return &Session{
		Cwd:          "/",
		Env:          map[string]string{},
		HistoryLimit: 500,
		Mounts:       mounts,
	}
}

// Snapshot returns a shallow copy for a background job: same mount table,
// copied environment and cwd, no history, no transactional context.
func (s *Session) Snapshot() *Session {
	env := make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		env[k] = v
	}
	return &Session{
		Cwd:          s.Cwd,
		Env:          env,
		HistoryLimit: s.HistoryLimit,
		Mounts:       s.Mounts,
	}
}

// Getenv looks up an environment variable; undefined names are empty.
func (s *Session) Getenv(name string) string {
	return s.Env[name]
}

// Setenv sets an environment variable.
func (s *Session) Setenv(name, value string) {
	s.Env[name] = value
}

// Resolve turns a possibly-relative path into an absolute virtual path
// against the session working directory.
func (s *Session) Resolve(p string) string {
	if p == "" {
		return vfs.Normalize(s.Cwd)
	}
	if path.IsAbs(p) {
		return vfs.Normalize(p)
	}
	return vfs.Normalize(path.Join(s.Cwd, p))
}

// Record appends a line to the command history, trimming to the limit.
func (s *Session) Record(line string) {
	s.History = append(s.History, line)
	if s.HistoryLimit > 0 && len(s.History) > s.HistoryLimit {
		s.History = s.History[len(s.History)-s.HistoryLimit:]
	}
}

// TxContext is a live transactional handle for data-backed mounts. The
// executor acquires one per chain (unless every stage is allow-listed),
// commits it when the chain exits zero and rolls it back otherwise.
type TxContext interface {
	Mount() vfs.Mount
	Commit() error
	Rollback() error
}

// TxSupplier hands out transactional contexts. The aggregation logic behind
// it lives outside this package; only the contract matters here.
type TxSupplier interface {
	Acquire(ctx context.Context) (TxContext, error)
}
