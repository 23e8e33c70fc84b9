package commands

import (
	"sort"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const cdManual = `cd [dir] - change the working directory. Without an
argument the directory resets to /. The target must exist and be a
directory on the mount table.`

func pwdCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	cio.Println(s.Cwd)
	return core.ExitSuccess
}

func cdCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if len(args) == 0 {
		s.Cwd = "/"
		return core.ExitSuccess
	}
	if len(args) > 1 {
		return core.UsageError(cio, "cd", "too many arguments")
	}
	if !needMounts(cio, "cd", fsys) {
		return core.ExitFailure
	}
	target := s.Resolve(args[0])
	entry, err := fsys.Stat(target)
	if err != nil {
		return mountFail(cio, "cd", target, err)
	}
	if entry.Type != vfs.TypeDir {
		cio.Errorf("cd: %s: %s\n", target, vfs.ENOTDIR)
		return core.ExitFailure
	}
	s.Cwd = target
	return core.ExitSuccess
}

func envCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	names := make([]string, 0, len(s.Env))
	for name := range s.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cio.Printf("%s=%s\n", name, s.Env[name])
	}
	return core.ExitSuccess
}

const exportManual = `export NAME=VALUE [NAME=VALUE...] - set session
environment variables. Without arguments behaves like env.`

func exportCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if len(args) == 0 {
		return envCmd(s, fsys, args, cio)
	}
	for _, arg := range args {
		name, value, ok := cutEnvAssignment(arg)
		if !ok {
			return core.UsageError(cio, "export", "expected NAME=VALUE, got "+arg)
		}
		s.Setenv(name, value)
	}
	return core.ExitSuccess
}

func cutEnvAssignment(arg string) (name, value string, ok bool) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '=' {
			name = arg[:i]
			value = arg[i+1:]
			break
		}
	}
	if name == "" {
		return "", "", false
	}
	for i, r := range name {
		alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		digit := r >= '0' && r <= '9'
		if !alpha && !(digit && i > 0) {
			return "", "", false
		}
	}
	return name, value, true
}

func historyCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	for i, line := range s.History {
		cio.Printf("%5d  %s\n", i+1, line)
	}
	return core.ExitSuccess
}
