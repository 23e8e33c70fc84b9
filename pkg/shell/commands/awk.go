package commands

import (
	"github.com/ianzepp/monk-shell/pkg/awk"
	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const awkManual = `awk [-F sep] [-v name=value] [-f progfile | program]
[file...] - run an AWK program over standard input or the named files.
Pattern-action rules, BEGIN/END blocks, user functions, arrays and the
POSIX built-in functions are supported; system() and getline from live
streams are inert in this embedded form.`

// awkCmd bridges the interpreter onto the handler contract: program and
// input files resolve through the session's mount table, and the stage
// context drives per-statement cancellation.
func awkCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	stdin, err := readInput(cio)
	if err != nil {
		return core.FileError(cio, "awk", "stdin", err)
	}
	readFile := func(path string) ([]byte, error) {
		if fsys == nil {
			return nil, vfs.NewError("read", path, vfs.ENOENT)
		}
		return fsys.ReadFile(s.Resolve(path))
	}
	return awk.Main(cio.Context(), args, stdin, readFile, cio.Out, cio.Err)
}
