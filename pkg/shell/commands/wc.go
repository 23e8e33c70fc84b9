package commands

import (
	"fmt"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const wcManual = `wc [-lwc] [file...] - count lines, words and bytes.
Without flags prints all three; without files reads standard input.`

type wcCounts struct {
	lines, words, bytes int
}

func countAll(data []byte) wcCounts {
	s := string(data)
	return wcCounts{
		lines: strings.Count(s, "\n"),
		words: len(strings.Fields(s)),
		bytes: len(data),
	}
}

func wcCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	showLines := false
	showWords := false
	showBytes := false
	var files []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			for _, c := range arg[1:] {
				switch c {
				case 'l':
					showLines = true
				case 'w':
					showWords = true
				case 'c':
					showBytes = true
				default:
					return core.UsageError(cio, "wc", "unknown option -"+string(c))
				}
			}
			continue
		}
		files = append(files, arg)
	}
	if !showLines && !showWords && !showBytes {
		showLines, showWords, showBytes = true, true, true
	}
	printCounts := func(c wcCounts, label string) {
		var cols []string
		if showLines {
			cols = append(cols, pad(c.lines))
		}
		if showWords {
			cols = append(cols, pad(c.words))
		}
		if showBytes {
			cols = append(cols, pad(c.bytes))
		}
		line := strings.Join(cols, " ")
		if label != "" {
			line += " " + label
		}
		cio.Println(line)
	}

	if len(files) == 0 {
		data, err := readInput(cio)
		if err != nil {
			return core.FileError(cio, "wc", "stdin", err)
		}
		printCounts(countAll(data), "")
		return core.ExitSuccess
	}
	if !needMounts(cio, "wc", fsys) {
		return core.ExitFailure
	}
	status := core.ExitSuccess
	var total wcCounts
	for _, f := range files {
		path := s.Resolve(f)
		data, err := fsys.ReadFile(path)
		if err != nil {
			status = mountFail(cio, "wc", path, err)
			continue
		}
		c := countAll(data)
		total.lines += c.lines
		total.words += c.words
		total.bytes += c.bytes
		printCounts(c, path)
	}
	if len(files) > 1 {
		printCounts(total, "total")
	}
	return status
}

func pad(n int) string {
	return fmt.Sprintf("%7d", n)
}
