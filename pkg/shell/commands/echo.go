package commands

import (
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const echoManual = `echo [-neE] [args...] - write arguments to standard output.
-n suppresses the trailing newline, -e enables backslash escapes
(\n \t \r \\ \a \b \f \v \0NNN \c), -E disables them again.`

func echoCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	noNewline := false
	enableEscapes := false
	startIdx := 0

	for i, arg := range args {
		if len(arg) < 2 || arg[0] != '-' {
			break
		}
		valid := true
		for _, c := range arg[1:] {
			switch c {
			case 'n', 'e', 'E':
			default:
				valid = false
			}
		}
		if !valid {
			break
		}
		for _, c := range arg[1:] {
			switch c {
			case 'n':
				noNewline = true
			case 'e':
				enableEscapes = true
			case 'E':
				enableEscapes = false
			}
		}
		startIdx = i + 1
	}

	output := strings.Join(args[startIdx:], " ")
	halt := false
	if enableEscapes {
		output, halt = processEscapes(output)
	}
	if noNewline || halt {
		cio.Print(output)
	} else {
		cio.Println(output)
	}
	return core.ExitSuccess
}

// processEscapes expands backslash sequences; \c stops output entirely,
// including the trailing newline.
func processEscapes(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '\\':
			b.WriteByte('\\')
		case 'c':
			return b.String(), true
		case '0':
			val := 0
			digits := 0
			for digits < 3 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7' {
				i++
				val = val*8 + int(s[i]-'0')
				digits++
			}
			b.WriteByte(byte(val))
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String(), false
}

func trueCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	return core.ExitSuccess
}

func falseCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	return core.ExitFailure
}
