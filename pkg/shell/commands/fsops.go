package commands

import (
	"path"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// writable resolves an absolute path to its mount and asserts the mount
// accepts writes. Read-only mounts report EROFS through cio.
func writable(cio *core.CommandIO, command string, fsys *vfs.Table, abs string) (vfs.WritableMount, string, bool) {
	m, rel := fsys.Resolve(abs)
	if m == nil {
		mountFail(cio, command, abs, vfs.NewError(command, abs, vfs.ENOENT))
		return nil, "", false
	}
	w, ok := m.(vfs.WritableMount)
	if !ok {
		mountFail(cio, command, abs, vfs.NewError(command, abs, vfs.EROFS))
		return nil, "", false
	}
	return w, rel, true
}

const mkdirManual = `mkdir [-p] dir... - create directories. With -p creates
missing parents and tolerates existing directories.`

func mkdirCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	parents := false
	var dirs []string
	for _, arg := range args {
		switch {
		case arg == "-p":
			parents = true
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return core.UsageError(cio, "mkdir", "unknown option "+arg)
		default:
			dirs = append(dirs, arg)
		}
	}
	if len(dirs) == 0 {
		return core.UsageError(cio, "mkdir", "missing operand")
	}
	if !needMounts(cio, "mkdir", fsys) {
		return core.ExitFailure
	}

	status := core.ExitSuccess
	for _, dir := range dirs {
		abs := s.Resolve(dir)
		if parents {
			if code := mkdirAll(s, fsys, cio, abs); code != core.ExitSuccess {
				status = code
			}
			continue
		}
		w, rel, ok := writable(cio, "mkdir", fsys, abs)
		if !ok {
			status = core.ExitFailure
			continue
		}
		if err := w.Mkdir(rel); err != nil {
			status = mountFail(cio, "mkdir", abs, err)
		}
	}
	return status
}

func mkdirAll(s *shell.Session, fsys *vfs.Table, cio *core.CommandIO, abs string) int {
	// Walk down from the mount root creating whatever is missing.
	parts := strings.Split(strings.TrimPrefix(abs, "/"), "/")
	cur := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		cur += "/" + part
		if e, err := fsys.Stat(cur); err == nil {
			if !e.IsDir() {
				return mountFail(cio, "mkdir", cur, vfs.NewError("mkdir", cur, vfs.ENOTDIR))
			}
			continue
		}
		w, rel, ok := writable(cio, "mkdir", fsys, cur)
		if !ok {
			return core.ExitFailure
		}
		if err := w.Mkdir(rel); err != nil && vfs.ErrnoOf(err) != vfs.EEXIST {
			return mountFail(cio, "mkdir", cur, err)
		}
	}
	return core.ExitSuccess
}

const rmManual = `rm [-rf] file... - remove files. With -r removes
directories and their contents; with -f missing operands are not errors.`

func rmCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	recursive := false
	force := false
	var targets []string
	for _, arg := range args {
		switch {
		case arg == "-r" || arg == "-R":
			recursive = true
		case arg == "-f":
			force = true
		case arg == "-rf" || arg == "-fr":
			recursive = true
			force = true
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return core.UsageError(cio, "rm", "unknown option "+arg)
		default:
			targets = append(targets, arg)
		}
	}
	if len(targets) == 0 {
		if force {
			return core.ExitSuccess
		}
		return core.UsageError(cio, "rm", "missing operand")
	}
	if !needMounts(cio, "rm", fsys) {
		return core.ExitFailure
	}

	status := core.ExitSuccess
	for _, target := range targets {
		if cio.Cancelled() {
			return core.ExitCancelled
		}
		abs := s.Resolve(target)
		e, err := fsys.Stat(abs)
		if err != nil {
			if force && vfs.IsNotExist(err) {
				continue
			}
			status = mountFail(cio, "rm", abs, err)
			continue
		}
		if e.IsDir() && !recursive {
			status = mountFail(cio, "rm", abs, vfs.NewError("rm", abs, vfs.EISDIR))
			continue
		}
		if code := removeTree(fsys, cio, abs, e.IsDir()); code != core.ExitSuccess {
			status = code
		}
	}
	return status
}

func removeTree(fsys *vfs.Table, cio *core.CommandIO, abs string, isDir bool) int {
	w, rel, ok := writable(cio, "rm", fsys, abs)
	if !ok {
		return core.ExitFailure
	}
	if !isDir {
		if err := w.Unlink(rel); err != nil {
			return mountFail(cio, "rm", abs, err)
		}
		return core.ExitSuccess
	}
	entries, err := fsys.ReadDir(abs)
	if err != nil {
		return mountFail(cio, "rm", abs, err)
	}
	for _, e := range entries {
		if code := removeTree(fsys, cio, path.Join(abs, e.Name), e.IsDir()); code != core.ExitSuccess {
			return code
		}
	}
	if err := w.Rmdir(rel); err != nil {
		return mountFail(cio, "rm", abs, err)
	}
	return core.ExitSuccess
}

const rmdirManual = `rmdir dir... - remove empty directories.`

func rmdirCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if len(args) == 0 {
		return core.UsageError(cio, "rmdir", "missing operand")
	}
	if !needMounts(cio, "rmdir", fsys) {
		return core.ExitFailure
	}
	status := core.ExitSuccess
	for _, arg := range args {
		abs := s.Resolve(arg)
		w, rel, ok := writable(cio, "rmdir", fsys, abs)
		if !ok {
			status = core.ExitFailure
			continue
		}
		if err := w.Rmdir(rel); err != nil {
			status = mountFail(cio, "rmdir", abs, err)
		}
	}
	return status
}

const mvManual = `mv source target - rename a file or directory. Both paths
must resolve to the same mount.`

func mvCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if len(args) != 2 {
		return core.UsageError(cio, "mv", "expected source and target")
	}
	if !needMounts(cio, "mv", fsys) {
		return core.ExitFailure
	}
	src := s.Resolve(args[0])
	dst := s.Resolve(args[1])

	// A rename into an existing directory keeps the source name.
	if e, err := fsys.Stat(dst); err == nil && e.IsDir() {
		dst = path.Join(dst, path.Base(src))
	}

	srcMount, srcRel := fsys.Resolve(src)
	dstMount, dstRel := fsys.Resolve(dst)
	if srcMount == nil {
		return mountFail(cio, "mv", src, vfs.NewError("mv", src, vfs.ENOENT))
	}
	if srcMount != dstMount {
		cio.Errorf("mv: %s: cross-mount rename not supported\n", dst)
		return core.ExitFailure
	}
	w, ok := srcMount.(vfs.WritableMount)
	if !ok {
		return mountFail(cio, "mv", src, vfs.NewError("mv", src, vfs.EROFS))
	}
	if err := w.Rename(srcRel, dstRel); err != nil {
		return mountFail(cio, "mv", src, err)
	}
	return core.ExitSuccess
}

const cpManual = `cp [-r] source target - copy a file. With -r copies a
directory tree. Copying into an existing directory keeps the source name.`

func cpCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	recursive := false
	var operands []string
	for _, arg := range args {
		switch {
		case arg == "-r" || arg == "-R":
			recursive = true
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return core.UsageError(cio, "cp", "unknown option "+arg)
		default:
			operands = append(operands, arg)
		}
	}
	if len(operands) != 2 {
		return core.UsageError(cio, "cp", "expected source and target")
	}
	if !needMounts(cio, "cp", fsys) {
		return core.ExitFailure
	}
	src := s.Resolve(operands[0])
	dst := s.Resolve(operands[1])
	if e, err := fsys.Stat(dst); err == nil && e.IsDir() {
		dst = path.Join(dst, path.Base(src))
	}

	e, err := fsys.Stat(src)
	if err != nil {
		return mountFail(cio, "cp", src, err)
	}
	if e.IsDir() {
		if !recursive {
			return mountFail(cio, "cp", src, vfs.NewError("cp", src, vfs.EISDIR))
		}
		return copyTree(fsys, cio, src, dst)
	}
	return copyFile(fsys, cio, src, dst)
}

func copyFile(fsys *vfs.Table, cio *core.CommandIO, src, dst string) int {
	data, err := fsys.ReadFile(src)
	if err != nil {
		return mountFail(cio, "cp", src, err)
	}
	w, rel, ok := writable(cio, "cp", fsys, dst)
	if !ok {
		return core.ExitFailure
	}
	if err := w.WriteFile(rel, data); err != nil {
		return mountFail(cio, "cp", dst, err)
	}
	return core.ExitSuccess
}

func copyTree(fsys *vfs.Table, cio *core.CommandIO, src, dst string) int {
	w, rel, ok := writable(cio, "cp", fsys, dst)
	if !ok {
		return core.ExitFailure
	}
	if err := w.Mkdir(rel); err != nil && vfs.ErrnoOf(err) != vfs.EEXIST {
		return mountFail(cio, "cp", dst, err)
	}
	entries, err := fsys.ReadDir(src)
	if err != nil {
		return mountFail(cio, "cp", src, err)
	}
	for _, e := range entries {
		childSrc := path.Join(src, e.Name)
		childDst := path.Join(dst, e.Name)
		var code int
		if e.IsDir() {
			code = copyTree(fsys, cio, childSrc, childDst)
		} else {
			code = copyFile(fsys, cio, childSrc, childDst)
		}
		if code != core.ExitSuccess {
			return code
		}
	}
	return core.ExitSuccess
}

const lnManual = `ln -s target link - create a symbolic link. Only symbolic
links are supported.`

func lnCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if len(args) != 3 || args[0] != "-s" {
		return core.UsageError(cio, "ln", "usage: ln -s target link")
	}
	if !needMounts(cio, "ln", fsys) {
		return core.ExitFailure
	}
	target := args[1]
	link := s.Resolve(args[2])
	w, rel, ok := writable(cio, "ln", fsys, link)
	if !ok {
		return core.ExitFailure
	}
	if err := w.Symlink(target, rel); err != nil {
		return mountFail(cio, "ln", link, err)
	}
	return core.ExitSuccess
}
