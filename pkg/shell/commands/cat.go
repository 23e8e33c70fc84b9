package commands

import (
	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const catManual = `cat [file...] - concatenate files from the mount table
to standard output. Without arguments copies standard input.`

func catCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if len(args) == 0 {
		data, err := readInput(cio)
		if err != nil {
			return core.FileError(cio, "cat", "stdin", err)
		}
		cio.Out.Write(data)
		return core.ExitSuccess
	}
	if !needMounts(cio, "cat", fsys) {
		return core.ExitFailure
	}
	status := core.ExitSuccess
	for _, arg := range args {
		if cio.Cancelled() {
			return core.ExitCancelled
		}
		path := s.Resolve(arg)
		data, err := fsys.ReadFile(path)
		if err != nil {
			status = mountFail(cio, "cat", path, err)
			continue
		}
		cio.Out.Write(data)
	}
	return status
}
