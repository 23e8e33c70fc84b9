package commands

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const grepManual = `grep [-ivn] pattern [file...] - print lines matching a
regular expression. -i ignores case, -v inverts the match, -n prefixes
line numbers. Exit status is 0 when any line matched, 1 when none did.`

func grepCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	ignoreCase := false
	invert := false
	lineNumbers := false
	idx := 0
	for idx < len(args) && strings.HasPrefix(args[idx], "-") && len(args[idx]) > 1 {
		for _, c := range args[idx][1:] {
			switch c {
			case 'i':
				ignoreCase = true
			case 'v':
				invert = true
			case 'n':
				lineNumbers = true
			default:
				return core.UsageError(cio, "grep", "unknown option -"+string(c))
			}
		}
		idx++
	}
	if idx >= len(args) {
		return core.UsageError(cio, "grep", "missing pattern")
	}
	pattern := args[idx]
	files := args[idx+1:]
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		cio.Errorf("grep: invalid pattern: %v\n", err)
		return core.ExitUsage
	}

	matched := false
	scan := func(data []byte, label string) {
		lines := strings.Split(string(data), "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for i, line := range lines {
			if re.MatchString(line) == invert {
				continue
			}
			matched = true
			prefix := ""
			if label != "" {
				prefix = label + ":"
			}
			if lineNumbers {
				prefix += strconv.Itoa(i+1) + ":"
			}
			cio.Println(prefix + line)
		}
	}

	if len(files) == 0 {
		data, err := readInput(cio)
		if err != nil {
			return core.FileError(cio, "grep", "stdin", err)
		}
		scan(data, "")
	} else {
		if !needMounts(cio, "grep", fsys) {
			return core.ExitFailure
		}
		showLabels := len(files) > 1
		for _, f := range files {
			if cio.Cancelled() {
				return core.ExitCancelled
			}
			path := s.Resolve(f)
			data, rerr := fsys.ReadFile(path)
			if rerr != nil {
				mountFail(cio, "grep", path, rerr)
				continue
			}
			label := ""
			if showLabels {
				label = path
			}
			scan(data, label)
		}
	}
	if matched {
		return core.ExitSuccess
	}
	return core.ExitFailure
}
