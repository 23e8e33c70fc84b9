package shell

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// hasGlob reports whether an argument contains wildcard characters.
func hasGlob(arg string) bool {
	return strings.ContainsAny(arg, "*?[")
}

// ExpandGlob expands a wildcard argument against the mount table. The
// argument splits into directory and pattern; the directory is listed and
// the pattern matched as an anchored regular expression. Matches come back
// sorted with directories suffixed "/". When nothing matches (or the
// directory cannot be listed) the literal argument is returned unchanged —
// the shell-compatible fallback.
func ExpandGlob(fsys *vfs.Table, cwd, arg string) []string {
	if fsys == nil || !hasGlob(arg) {
		return []string{arg}
	}
	dir, pattern := path.Split(arg)
	if hasGlob(dir) {
		// wildcards in the directory part are not expanded
		return []string{arg}
	}
	re, err := globToRegexp(pattern)
	if err != nil {
		return []string{arg}
	}

	listDir := dir
	if listDir == "" {
		listDir = cwd
	} else if !path.IsAbs(listDir) {
		listDir = path.Join(cwd, listDir)
	}
	entries, err := fsys.ReadDir(listDir)
	if err != nil {
		return []string{arg}
	}

	var matches []string
	for _, e := range entries {
		if !re.MatchString(e.Name) {
			continue
		}
		name := dir + e.Name
		if e.IsDir() {
			name += "/"
		}
		matches = append(matches, name)
	}
	if len(matches) == 0 {
		return []string{arg}
	}
	sort.Strings(matches)
	return matches
}

// globToRegexp translates a shell pattern into an anchored regexp:
// '*' matches any run, '?' any single character, and '[...]' classes pass
// through unchanged.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				b.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			b.WriteString(pattern[i : i+end+1])
			i += end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}
