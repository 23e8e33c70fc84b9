package commands

import (
	"strconv"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const headManual = `head [-n count] [file...] - print the first lines of
each file (default 10). Without files reads standard input.`

func headCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	count := 10
	var files []string
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "-n":
			if i+1 >= len(args) {
				return core.UsageError(cio, "head", "-n requires an argument")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 0 {
				return core.UsageError(cio, "head", "invalid count "+args[i+1])
			}
			count = n
			i += 2
		case strings.HasPrefix(arg, "-n"):
			n, err := strconv.Atoi(arg[2:])
			if err != nil || n < 0 {
				return core.UsageError(cio, "head", "invalid count "+arg[2:])
			}
			count = n
			i++
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return core.UsageError(cio, "head", "unknown option "+arg)
		default:
			files = append(files, args[i:]...)
			i = len(args)
		}
	}

	if len(files) == 0 {
		data, err := readInput(cio)
		if err != nil {
			return core.FileError(cio, "head", "stdin", err)
		}
		writeHead(cio, data, count)
		return core.ExitSuccess
	}
	if !needMounts(cio, "head", fsys) {
		return core.ExitFailure
	}
	status := core.ExitSuccess
	for idx, f := range files {
		path := s.Resolve(f)
		data, err := fsys.ReadFile(path)
		if err != nil {
			status = mountFail(cio, "head", path, err)
			continue
		}
		if len(files) > 1 {
			if idx > 0 {
				cio.Println()
			}
			cio.Printf("==> %s <==\n", path)
		}
		writeHead(cio, data, count)
	}
	return status
}

func writeHead(cio *core.CommandIO, data []byte, count int) {
	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		if i >= count || line == "" {
			break
		}
		cio.Print(line)
	}
}
