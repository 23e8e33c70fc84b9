package commands

import (
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const psManual = `ps - list processes spawned in this environment with
their pid, state and command line.`

func psHandler(procs *shell.ProcessRegistry) shell.Handler {
	return shell.HandlerFunc(func(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
		cio.Printf("%7s %-14s %s\n", "PID", "STATE", "CMD")
		if procs == nil {
			return core.ExitSuccess
		}
		for _, p := range procs.List() {
			cio.Printf("%7d %-14s %s\n", p.PID, p.State().StateName(), strings.Join(p.Argv, " "))
		}
		return core.ExitSuccess
	})
}

func jobsHandler(procs *shell.ProcessRegistry) shell.Handler {
	return shell.HandlerFunc(func(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
		if procs == nil {
			return core.ExitSuccess
		}
		for _, p := range procs.List() {
			state := "Running"
			if p.State() == shell.StateZombie {
				state = "Done"
			}
			cio.Printf("[%d]  %-8s %s\n", p.Job, state, strings.Join(p.Argv, " "))
		}
		return core.ExitSuccess
	})
}
