// Package commands provides the built-in leaf command handlers. Every
// handler follows the uniform contract (session, mount table, args, io)
// and operates on the virtual filesystem, never the host os directly.
package commands

import (
	"io"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// RegisterAll installs every built-in command into the registry. The
// process registry backs ps and jobs; nil is allowed and leaves them
// reporting an empty table.
func RegisterAll(r *shell.Registry, procs *shell.ProcessRegistry) {
	r.Register("echo", shell.HandlerFunc(echoCmd), echoManual)
	r.Register("true", shell.HandlerFunc(trueCmd), "true - exit successfully.")
	r.Register("false", shell.HandlerFunc(falseCmd), "false - exit unsuccessfully.")
	r.Register("pwd", shell.HandlerFunc(pwdCmd), "pwd - print the current working directory.")
	r.Register("cd", shell.HandlerFunc(cdCmd), cdManual)
	r.Register("env", shell.HandlerFunc(envCmd), "env - print the session environment, one NAME=VALUE per line.")
	r.Register("export", shell.HandlerFunc(exportCmd), exportManual)
	r.Register("sleep", shell.HandlerFunc(sleepCmd), sleepManual)
	r.Register("cat", shell.HandlerFunc(catCmd), catManual)
	r.Register("ls", shell.HandlerFunc(lsCmd), lsManual)
	r.Register("head", shell.HandlerFunc(headCmd), headManual)
	r.Register("tail", shell.HandlerFunc(tailCmd), tailManual)
	r.Register("wc", shell.HandlerFunc(wcCmd), wcManual)
	r.Register("grep", shell.HandlerFunc(grepCmd), grepManual)
	r.Register("sort", shell.HandlerFunc(sortCmd), sortManual)
	r.Register("uniq", shell.HandlerFunc(uniqCmd), uniqManual)
	r.Register("cut", shell.HandlerFunc(cutCmd), cutManual)
	r.Register("tr", shell.HandlerFunc(trCmd), trManual)
	r.Register("mkdir", shell.HandlerFunc(mkdirCmd), mkdirManual)
	r.Register("rm", shell.HandlerFunc(rmCmd), rmManual)
	r.Register("rmdir", shell.HandlerFunc(rmdirCmd), rmdirManual)
	r.Register("mv", shell.HandlerFunc(mvCmd), mvManual)
	r.Register("cp", shell.HandlerFunc(cpCmd), cpManual)
	r.Register("ln", shell.HandlerFunc(lnCmd), lnManual)
	r.Register("gzip", shell.HandlerFunc(gzipCmd), gzipManual)
	r.Register("gunzip", shell.HandlerFunc(gunzipCmd), gunzipManual)
	r.Register("history", shell.HandlerFunc(historyCmd), "history - print the session command history.")
	r.Register("ps", psHandler(procs), psManual)
	r.Register("jobs", jobsHandler(procs), "jobs - list background jobs spawned by this environment.")
	r.Register("awk", shell.HandlerFunc(awkCmd), awkManual)
}

// readInput drains a stage's stdin, which may be nil for the first stage
// of a chain with no redirect.
func readInput(cio *core.CommandIO) ([]byte, error) {
	if cio.In == nil {
		return nil, nil
	}
	return io.ReadAll(cio.In)
}

// mountFail reports a filesystem error the uniform way: the errno text for
// taxonomy errors, the raw error otherwise.
func mountFail(cio *core.CommandIO, command, path string, err error) int {
	if errno := vfs.ErrnoOf(err); errno != 0 {
		cio.Errorf("%s: %s: %s\n", command, path, errno)
		return core.ExitFailure
	}
	return core.FileError(cio, command, path, err)
}

// needMounts guards commands that cannot run without a mount table.
func needMounts(cio *core.CommandIO, command string, fsys *vfs.Table) bool {
	if fsys == nil {
		cio.Errorf("%s: no filesystem available\n", command)
		return false
	}
	return true
}
