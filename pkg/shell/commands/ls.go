package commands

import (
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const lsManual = `ls [-la] [path...] - list directory contents from the
mount table. -l prints mode, size, modification time and name; -a includes
entries whose names start with a dot. Directories are shown with a
trailing slash.`

func lsCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if !needMounts(cio, "ls", fsys) {
		return core.ExitFailure
	}
	long := false
	all := false
	var paths []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			for _, c := range arg[1:] {
				switch c {
				case 'l':
					long = true
				case 'a':
					all = true
				default:
					return core.UsageError(cio, "ls", "unknown option -"+string(c))
				}
			}
			continue
		}
		paths = append(paths, arg)
	}
	if len(paths) == 0 {
		paths = []string{s.Cwd}
	}

	status := core.ExitSuccess
	showHeaders := len(paths) > 1
	for i, p := range paths {
		target := s.Resolve(p)
		entry, err := fsys.Stat(target)
		if err != nil {
			status = mountFail(cio, "ls", target, err)
			continue
		}
		if entry.Type != vfs.TypeDir {
			printEntry(cio, entry, long)
			continue
		}
		entries, err := fsys.ReadDir(target)
		if err != nil {
			status = mountFail(cio, "ls", target, err)
			continue
		}
		if showHeaders {
			if i > 0 {
				cio.Println()
			}
			cio.Printf("%s:\n", target)
		}
		for _, e := range entries {
			if !all && strings.HasPrefix(e.Name, ".") {
				continue
			}
			printEntry(cio, e, long)
		}
	}
	return status
}

func printEntry(cio *core.CommandIO, e vfs.FSEntry, long bool) {
	name := e.Name
	if e.Type == vfs.TypeDir {
		name += "/"
	}
	if e.Type == vfs.TypeSymlink && e.Target != "" {
		name += " -> " + e.Target
	}
	if !long {
		cio.Println(name)
		return
	}
	cio.Printf("%s %8d %s %s\n", e.Mode, e.Size, e.ModTime.Format("Jan _2 15:04"), name)
}
