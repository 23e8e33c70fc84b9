package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/core/textutil"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// readLines gathers the input lines for a text filter: the named files
// through the mount table, or standard input when none are given.
func readLines(s *shell.Session, fsys *vfs.Table, files []string, cio *core.CommandIO, command string) ([]string, int) {
	var data []byte
	if len(files) == 0 {
		in, err := readInput(cio)
		if err != nil {
			return nil, core.FileError(cio, command, "stdin", err)
		}
		data = in
	} else {
		if !needMounts(cio, command, fsys) {
			return nil, core.ExitFailure
		}
		for _, f := range files {
			path := s.Resolve(f)
			chunk, err := fsys.ReadFile(path)
			if err != nil {
				return nil, mountFail(cio, command, path, err)
			}
			data = append(data, chunk...)
		}
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, core.ExitSuccess
	}
	return strings.Split(text, "\n"), core.ExitSuccess
}

const sortManual = `sort [-rnu] [-t sep] [-k field[,char]] [file...] - sort
lines. -r reverses, -n compares numerically, -u drops duplicates.`

func sortCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	var (
		reverse bool
		numeric bool
		unique  bool
		sep     string
		field   int
		char    int
	)
	var files []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-t" || arg == "-k":
			if i+1 >= len(args) {
				return core.UsageError(cio, "sort", arg+" requires an argument")
			}
			i++
			if arg == "-t" {
				sep = args[i]
			} else {
				f, c, err := textutil.ParseKeySpec(args[i])
				if err != nil {
					return core.UsageError(cio, "sort", "invalid key "+args[i])
				}
				field, char = f, c
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			for _, c := range arg[1:] {
				switch c {
				case 'r':
					reverse = true
				case 'n':
					numeric = true
				case 'u':
					unique = true
				default:
					return core.UsageError(cio, "sort", "unknown option -"+string(c))
				}
			}
		default:
			files = append(files, arg)
		}
	}

	lines, code := readLines(s, fsys, files, cio, "sort")
	if code != core.ExitSuccess || lines == nil {
		return code
	}

	key := func(line string) string {
		return textutil.ExtractKey(line, field, char, sep)
	}
	less := func(a, b string) bool {
		ka, kb := key(a), key(b)
		if numeric {
			na, _ := strconv.ParseFloat(strings.TrimSpace(ka), 64)
			nb, _ := strconv.ParseFloat(strings.TrimSpace(kb), 64)
			if na != nb {
				return na < nb
			}
			return ka < kb
		}
		return ka < kb
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if reverse {
			return less(lines[j], lines[i])
		}
		return less(lines[i], lines[j])
	})

	var prev string
	first := true
	for _, line := range lines {
		if unique && !first && line == prev {
			continue
		}
		cio.Println(line)
		prev = line
		first = false
	}
	return core.ExitSuccess
}

const uniqManual = `uniq [-cdu] [-f fields] [-s chars] [file] - filter
adjacent duplicate lines. -c prefixes counts, -d prints only duplicated
lines, -u only unique ones.`

func uniqCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	var (
		count      bool
		dupOnly    bool
		uniqueOnly bool
		skipFields int
		skipChars  int
	)
	var files []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-f" || arg == "-s":
			if i+1 >= len(args) {
				return core.UsageError(cio, "uniq", arg+" requires an argument")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 0 {
				return core.UsageError(cio, "uniq", "invalid count "+args[i])
			}
			if arg == "-f" {
				skipFields = n
			} else {
				skipChars = n
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			for _, c := range arg[1:] {
				switch c {
				case 'c':
					count = true
				case 'd':
					dupOnly = true
				case 'u':
					uniqueOnly = true
				default:
					return core.UsageError(cio, "uniq", "unknown option -"+string(c))
				}
			}
		default:
			files = append(files, arg)
		}
	}

	lines, code := readLines(s, fsys, files, cio, "uniq")
	if code != core.ExitSuccess || lines == nil {
		return code
	}

	emit := func(line string, n int) {
		switch {
		case dupOnly && n < 2:
		case uniqueOnly && n > 1:
		case count:
			cio.Printf("%7d %s\n", n, line)
		default:
			cio.Println(line)
		}
	}

	cur := lines[0]
	curKey := textutil.NormalizeLine(cur, skipFields, skipChars)
	n := 1
	for _, line := range lines[1:] {
		k := textutil.NormalizeLine(line, skipFields, skipChars)
		if k == curKey {
			n++
			continue
		}
		emit(cur, n)
		cur, curKey, n = line, k, 1
	}
	emit(cur, n)
	return core.ExitSuccess
}

const cutManual = `cut -f list [-d delim] [file...] | cut -c list [file...]
- select fields or character positions from each line. Lists are 1-based
comma-separated ranges (N, N-, -M, N-M).`

func cutCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	var (
		mode      string
		spec      string
		delimiter rune = '\t'
	)
	var files []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-d":
			if i+1 >= len(args) {
				return core.UsageError(cio, "cut", "missing delimiter")
			}
			i++
			runes := []rune(args[i])
			if len(runes) != 1 {
				return core.UsageError(cio, "cut", "delimiter must be one character")
			}
			delimiter = runes[0]
		case "-f", "-c":
			if mode != "" {
				return core.UsageError(cio, "cut", "only one list type allowed")
			}
			if i+1 >= len(args) {
				return core.UsageError(cio, "cut", "missing list")
			}
			mode = arg[1:]
			i++
			spec = args[i]
		default:
			if strings.HasPrefix(arg, "-") && len(arg) > 1 {
				return core.UsageError(cio, "cut", "unknown option "+arg)
			}
			files = append(files, arg)
		}
	}
	if mode == "" {
		return core.UsageError(cio, "cut", "missing list")
	}
	ranges, err := textutil.ParseRanges(spec)
	if err != nil {
		return core.UsageError(cio, "cut", "invalid list "+spec)
	}

	lines, code := readLines(s, fsys, files, cio, "cut")
	if code != core.ExitSuccess || lines == nil {
		return code
	}

	if mode == "f" {
		project := textutil.BuildFieldFunc(ranges, delimiter, "", false)
		for _, line := range lines {
			if out, ok := project(line); ok {
				cio.Println(out)
			}
		}
		return core.ExitSuccess
	}
	project := textutil.BuildCharFunc(ranges)
	for _, line := range lines {
		cio.Println(project(line))
	}
	return core.ExitSuccess
}

const trManual = `tr [-cds] set1 [set2] - translate or delete characters
from standard input. Sets support ranges (a-z) and POSIX classes
([:digit:]).`

func trCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	var (
		complement bool
		deleteSet  bool
		squeeze    bool
	)
	var sets []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			for _, c := range arg[1:] {
				switch c {
				case 'c':
					complement = true
				case 'd':
					deleteSet = true
				case 's':
					squeeze = true
				default:
					return core.UsageError(cio, "tr", "unknown option -"+string(c))
				}
			}
			continue
		}
		sets = append(sets, arg)
	}
	if len(sets) < 1 || (len(sets) < 2 && !deleteSet) {
		return core.UsageError(cio, "tr", "missing set")
	}

	fromRunes, err := textutil.ParseSet(sets[0])
	if err != nil {
		return core.UsageError(cio, "tr", "invalid set "+sets[0])
	}
	fromSet := map[rune]bool{}
	for _, r := range fromRunes {
		fromSet[r] = true
	}
	if complement {
		fromRunes = textutil.ComplementSet(fromSet)
		fromSet = map[rune]bool{}
		for _, r := range fromRunes {
			fromSet[r] = true
		}
	}

	var toRunes []rune
	if !deleteSet {
		toRunes, err = textutil.ParseSet(sets[1])
		if err != nil || len(toRunes) == 0 {
			return core.UsageError(cio, "tr", "invalid set "+sets[1])
		}
	}
	mapping := map[rune]rune{}
	for i, r := range fromRunes {
		if len(toRunes) == 0 {
			break
		}
		j := i
		if j >= len(toRunes) {
			j = len(toRunes) - 1
		}
		mapping[r] = toRunes[j]
	}

	// Squeeze applies to the last set named: set2 when translating, set1
	// when deleting.
	squeezeSet := map[rune]bool{}
	if squeeze {
		squeezeRunes := toRunes
		if deleteSet {
			squeezeRunes = fromRunes
		}
		for _, r := range squeezeRunes {
			squeezeSet[r] = true
		}
	}

	data, err := readInput(cio)
	if err != nil {
		return core.FileError(cio, "tr", "stdin", err)
	}

	var out strings.Builder
	var last rune = -1
	for _, r := range string(data) {
		if deleteSet && fromSet[r] {
			continue
		}
		if t, ok := mapping[r]; ok {
			r = t
		}
		if squeeze && r == last && squeezeSet[r] {
			continue
		}
		out.WriteRune(r)
		last = r
	}
	fmt.Fprint(cio.Out, out.String())
	return core.ExitSuccess
}
