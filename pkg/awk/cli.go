package awk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FileReader loads a named input or program file for Main. The caller
// decides what a path means (host file, virtual mount, test fixture).
type FileReader func(path string) ([]byte, error)

// Main runs awk the way the command line presents it: -F and repeatable -v
// and -f flags, then the program text (unless -f supplied one), then input
// file operands. Operands of the form name=value are treated as
// assignments applied in order, per POSIX. With no file operands the
// program reads stdin.
func Main(ctx context.Context, argv []string, stdin []byte, readFile FileReader, stdout, stderr io.Writer) int {
	var (
		fs       string
		vars     = map[string]string{}
		progSrcs []string
		operands []string
	)
	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "--":
			i++
			operands = append(operands, argv[i:]...)
			i = len(argv)
		case arg == "-F" || strings.HasPrefix(arg, "-F"):
			val, n, err := flagValue(argv, i, "-F")
			if err != nil {
				fmt.Fprintf(stderr, "awk: %v\n", err)
				return 2
			}
			fs = val
			i += n
		case arg == "-v" || strings.HasPrefix(arg, "-v"):
			val, n, err := flagValue(argv, i, "-v")
			if err != nil {
				fmt.Fprintf(stderr, "awk: %v\n", err)
				return 2
			}
			name, value, ok := strings.Cut(val, "=")
			if !ok || !validVarName(name) {
				fmt.Fprintf(stderr, "awk: invalid -v assignment %q\n", val)
				return 2
			}
			vars[name] = value
			i += n
		case arg == "-f" || strings.HasPrefix(arg, "-f"):
			val, n, err := flagValue(argv, i, "-f")
			if err != nil {
				fmt.Fprintf(stderr, "awk: %v\n", err)
				return 2
			}
			src, rerr := readFile(val)
			if rerr != nil {
				fmt.Fprintf(stderr, "awk: cannot read program file %s: %v\n", val, rerr)
				return 2
			}
			progSrcs = append(progSrcs, string(src))
			i += n
		case strings.HasPrefix(arg, "-") && arg != "-":
			fmt.Fprintf(stderr, "awk: unknown option %s\n", arg)
			return 2
		default:
			operands = append(operands, argv[i:]...)
			i = len(argv)
		}
	}

	var src string
	if len(progSrcs) > 0 {
		src = strings.Join(progSrcs, "\n")
	} else {
		if len(operands) == 0 {
			fmt.Fprintln(stderr, "usage: awk [-F sep] [-v name=value] [-f progfile | program] [file ...]")
			return 2
		}
		src = operands[0]
		operands = operands[1:]
	}

	// a program that does not parse aborts before any record is processed
	prog, err := ParseProgram(src)
	if err != nil {
		fmt.Fprintf(stderr, "awk: %v\n", err)
		return 1
	}

	var inputs []Input
	for _, op := range operands {
		if name, value, ok := cutAssignment(op); ok {
			// an operand assignment takes effect when reached; with no
			// streaming reader all inputs load up front, so we fold it
			// into the pre-BEGIN variable set
			vars[name] = value
			continue
		}
		if op == "-" {
			inputs = append(inputs, Input{Name: "", Data: stdin})
			continue
		}
		data, rerr := readFile(op)
		if rerr != nil {
			fmt.Fprintf(stderr, "awk: cannot read %s: %v\n", op, rerr)
			return 2
		}
		inputs = append(inputs, Input{Name: op, Data: data})
	}
	if len(inputs) == 0 {
		inputs = append(inputs, Input{Name: "", Data: stdin})
	}

	code, err := ExecProgram(prog, Config{
		FS:     fs,
		Vars:   vars,
		Output: stdout,
		Errors: stderr,
		Ctx:    ctx,
	}, inputs)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return 130
		}
		fmt.Fprintf(stderr, "awk: %v\n", err)
		return 2
	}
	return code
}

// flagValue reads a flag's value either attached (-Fx) or as the next
// argument (-F x), returning how many argv slots were consumed.
func flagValue(argv []string, i int, flag string) (string, int, error) {
	arg := argv[i]
	if len(arg) > len(flag) {
		return arg[len(flag):], 1, nil
	}
	if i+1 >= len(argv) {
		return "", 0, fmt.Errorf("option %s requires an argument", flag)
	}
	return argv[i+1], 2, nil
}

func validVarName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func cutAssignment(op string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(op, "=")
	if !ok || !validVarName(name) {
		return "", "", false
	}
	return name, value, true
}
