package commands

import (
	"strconv"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const tailManual = `tail [-n count] [file...] - print the last lines of
each file (default 10). Without files reads standard input.`

func tailCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	count := 10
	var files []string
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "-n":
			if i+1 >= len(args) {
				return core.UsageError(cio, "tail", "-n requires an argument")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 0 {
				return core.UsageError(cio, "tail", "invalid count "+args[i+1])
			}
			count = n
			i += 2
		case strings.HasPrefix(arg, "-n"):
			n, err := strconv.Atoi(arg[2:])
			if err != nil || n < 0 {
				return core.UsageError(cio, "tail", "invalid count "+arg[2:])
			}
			count = n
			i++
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return core.UsageError(cio, "tail", "unknown option "+arg)
		default:
			files = append(files, args[i:]...)
			i = len(args)
		}
	}

	if len(files) == 0 {
		data, err := readInput(cio)
		if err != nil {
			return core.FileError(cio, "tail", "stdin", err)
		}
		writeTail(cio, data, count)
		return core.ExitSuccess
	}
	if !needMounts(cio, "tail", fsys) {
		return core.ExitFailure
	}
	status := core.ExitSuccess
	for idx, f := range files {
		path := s.Resolve(f)
		data, err := fsys.ReadFile(path)
		if err != nil {
			status = mountFail(cio, "tail", path, err)
			continue
		}
		if len(files) > 1 {
			if idx > 0 {
				cio.Println()
			}
			cio.Printf("==> %s <==\n", path)
		}
		writeTail(cio, data, count)
	}
	return status
}

func writeTail(cio *core.CommandIO, data []byte, count int) {
	if count == 0 {
		return
	}
	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > count {
		lines = lines[len(lines)-count:]
	}
	for _, line := range lines {
		cio.Print(line)
	}
}
