// Package hostmount bridges a virtual mount to a real host directory. Every
// virtual path is resolved to an absolute host path and rejected unless it
// stays under the configured base, so a session can never escape its root
// via "..", absolute paths, or symlinks. Containment violations always
// surface as EACCES, never ENOENT, so they are distinguishable from ordinary
// missing paths.
package hostmount

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// Mount serves a host directory subtree. The zero value is not usable; use New.
//
// Mount performs no internal locking: concurrent writers to the same virtual
// path race at the underlying filesystem level. This is a documented
// limitation of the bridge, not something it tries to patch over.
type Mount struct {
	base     string
	readOnly bool
}

// New returns a mount rooted at base. The base must exist and be a
// directory.
func New(base string, readOnly bool) (*Mount, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, vfs.NewErrorDetail("mount", base, vfs.EINVAL, err.Error())
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, vfs.NewErrorDetail("mount", base, vfs.ENOENT, err.Error())
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return nil, vfs.NewError("mount", base, vfs.ENOTDIR)
	}
	return &Mount{base: resolved, readOnly: readOnly}, nil
}

// Base returns the resolved host directory the mount serves.
func (m *Mount) Base() string { return m.base }

// resolve maps a mount-relative virtual path to a contained host path.
// A ".." that would climb above the mount root is a containment violation
// and fails EACCES before any host lookup. The deepest existing ancestor
// is resolved through symlinks before the prefix check so a symlinked
// parent cannot smuggle the path outside the base.
func (m *Mount) resolve(op, path string) (string, error) {
	clean := filepath.Clean(strings.TrimPrefix(path, "/"))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", vfs.NewError(op, path, vfs.EACCES)
	}
	host := filepath.Join(m.base, clean)

	// Resolve the nearest existing ancestor; the tail may not exist yet
	// (e.g. the target of a write or mkdir).
	probe := host
	tail := ""
	for {
		resolved, err := filepath.EvalSymlinks(probe)
		if err == nil {
			host = filepath.Join(resolved, tail)
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		tail = filepath.Join(filepath.Base(probe), tail)
		probe = parent
	}

	if !contained(m.base, host) {
		return "", vfs.NewError(op, path, vfs.EACCES)
	}
	return host, nil
}

func contained(base, p string) bool {
	return p == base || strings.HasPrefix(p, base+string(filepath.Separator))
}

func (m *Mount) Stat(path string) (vfs.FSEntry, error) {
	host, err := m.resolve("stat", path)
	if err != nil {
		return vfs.FSEntry{}, err
	}
	info, lerr := os.Lstat(host)
	if lerr != nil {
		return vfs.FSEntry{}, mapOSError("stat", path, lerr)
	}
	return entryFromInfo(host, info), nil
}

func (m *Mount) ReadDir(path string) ([]vfs.FSEntry, error) {
	host, err := m.resolve("readdir", path)
	if err != nil {
		return nil, err
	}
	info, serr := os.Stat(host)
	if serr != nil {
		return nil, mapOSError("readdir", path, serr)
	}
	if !info.IsDir() {
		return nil, vfs.NewError("readdir", path, vfs.ENOTDIR)
	}
	dirents, rerr := os.ReadDir(host)
	if rerr != nil {
		return nil, mapOSError("readdir", path, rerr)
	}
	entries := make([]vfs.FSEntry, 0, len(dirents))
	for _, de := range dirents {
		fi, ierr := de.Info()
		if ierr != nil {
			continue
		}
		entries = append(entries, entryFromInfo(filepath.Join(host, de.Name()), fi))
	}
	return entries, nil
}

func (m *Mount) ReadFile(path string) ([]byte, error) {
	host, err := m.resolve("read", path)
	if err != nil {
		return nil, err
	}
	info, serr := os.Stat(host)
	if serr != nil {
		return nil, mapOSError("read", path, serr)
	}
	if info.IsDir() {
		return nil, vfs.NewError("read", path, vfs.EISDIR)
	}
	data, rerr := os.ReadFile(host)
	if rerr != nil {
		return nil, mapOSError("read", path, rerr)
	}
	return data, nil
}

func (m *Mount) WriteFile(path string, data []byte) error {
	if m.readOnly {
		return vfs.NewError("write", path, vfs.EROFS)
	}
	host, err := m.resolve("write", path)
	if err != nil {
		return err
	}
	if info, serr := os.Stat(host); serr == nil && info.IsDir() {
		return vfs.NewError("write", path, vfs.EISDIR)
	}
	if werr := os.WriteFile(host, data, 0o644); werr != nil {
		return mapOSError("write", path, werr)
	}
	return nil
}

func (m *Mount) Mkdir(path string) error {
	if m.readOnly {
		return vfs.NewError("mkdir", path, vfs.EROFS)
	}
	host, err := m.resolve("mkdir", path)
	if err != nil {
		return err
	}
	if merr := os.Mkdir(host, 0o755); merr != nil {
		return mapOSError("mkdir", path, merr)
	}
	return nil
}

func (m *Mount) Unlink(path string) error {
	if m.readOnly {
		return vfs.NewError("unlink", path, vfs.EROFS)
	}
	host, err := m.resolve("unlink", path)
	if err != nil {
		return err
	}
	info, serr := os.Lstat(host)
	if serr != nil {
		return mapOSError("unlink", path, serr)
	}
	if info.IsDir() {
		return vfs.NewError("unlink", path, vfs.EISDIR)
	}
	if rerr := os.Remove(host); rerr != nil {
		return mapOSError("unlink", path, rerr)
	}
	return nil
}

func (m *Mount) Rmdir(path string) error {
	if m.readOnly {
		return vfs.NewError("rmdir", path, vfs.EROFS)
	}
	host, err := m.resolve("rmdir", path)
	if err != nil {
		return err
	}
	info, serr := os.Stat(host)
	if serr != nil {
		return mapOSError("rmdir", path, serr)
	}
	if !info.IsDir() {
		return vfs.NewError("rmdir", path, vfs.ENOTDIR)
	}
	if rerr := os.Remove(host); rerr != nil {
		return mapOSError("rmdir", path, rerr)
	}
	return nil
}

func (m *Mount) Rename(oldPath, newPath string) error {
	if m.readOnly {
		return vfs.NewError("rename", oldPath, vfs.EROFS)
	}
	oldHost, err := m.resolve("rename", oldPath)
	if err != nil {
		return err
	}
	newHost, err := m.resolve("rename", newPath)
	if err != nil {
		return err
	}
	if rerr := os.Rename(oldHost, newHost); rerr != nil {
		return mapOSError("rename", oldPath, rerr)
	}
	return nil
}

// Symlink creates linkPath pointing at target. Both the link location and
// the target it would resolve to must stay under the base.
func (m *Mount) Symlink(target, linkPath string) error {
	if m.readOnly {
		return vfs.NewError("symlink", linkPath, vfs.EROFS)
	}
	linkHost, err := m.resolve("symlink", linkPath)
	if err != nil {
		return err
	}
	resolvedTarget := target
	if !filepath.IsAbs(target) {
		resolvedTarget = filepath.Join(filepath.Dir(linkHost), target)
	} else {
		resolvedTarget = filepath.Join(m.base, filepath.Clean("/"+target))
	}
	if !contained(m.base, filepath.Clean(resolvedTarget)) {
		return vfs.NewError("symlink", linkPath, vfs.EACCES)
	}
	if serr := os.Symlink(target, linkHost); serr != nil {
		return mapOSError("symlink", linkPath, serr)
	}
	return nil
}

func (m *Mount) Readlink(path string) (string, error) {
	host, err := m.resolve("readlink", path)
	if err != nil {
		return "", err
	}
	target, rerr := os.Readlink(host)
	if rerr != nil {
		return "", mapOSError("readlink", path, rerr)
	}
	return target, nil
}

func (m *Mount) Chmod(path string, mode fs.FileMode) error {
	if m.readOnly {
		return vfs.NewError("chmod", path, vfs.EROFS)
	}
	host, err := m.resolve("chmod", path)
	if err != nil {
		return err
	}
	if cerr := os.Chmod(host, mode.Perm()); cerr != nil {
		return mapOSError("chmod", path, cerr)
	}
	return nil
}

// Usage recursively sums regular-file sizes under path. Symlinks are
// skipped, as is any entry whose resolved location escapes the base.
func (m *Mount) Usage(path string) (int64, error) {
	host, err := m.resolve("du", path)
	if err != nil {
		return 0, err
	}
	var total int64
	walkErr := filepath.WalkDir(host, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return nil // unreadable entries just don't count
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		resolved, rerr := filepath.EvalSymlinks(p)
		if rerr != nil || !contained(m.base, resolved) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			if info, ierr := d.Info(); ierr == nil {
				total += info.Size()
			}
		}
		return nil
	})
	if walkErr != nil {
		return total, vfs.NewErrorDetail("du", path, vfs.EIO, walkErr.Error())
	}
	return total, nil
}

func entryFromInfo(host string, info fs.FileInfo) vfs.FSEntry {
	e := vfs.FSEntry{
		Name:    info.Name(),
		Size:    info.Size(),
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime(),
	}
	switch {
	case info.IsDir():
		e.Type = vfs.TypeDir
	case info.Mode()&fs.ModeSymlink != 0:
		e.Type = vfs.TypeSymlink
		if target, err := os.Readlink(host); err == nil {
			e.Target = target
		}
	default:
		e.Type = vfs.TypeFile
	}
	return e
}

func mapOSError(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return vfs.NewError(op, path, vfs.ENOENT)
	case errors.Is(err, fs.ErrPermission):
		return vfs.NewError(op, path, vfs.EACCES)
	case errors.Is(err, fs.ErrExist):
		return vfs.NewError(op, path, vfs.EEXIST)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "directory not empty"):
		return vfs.NewError(op, path, vfs.ENOTEMPTY)
	case strings.Contains(msg, "not a directory"):
		return vfs.NewError(op, path, vfs.ENOTDIR)
	case strings.Contains(msg, "is a directory"):
		return vfs.NewError(op, path, vfs.EISDIR)
	}
	return vfs.NewErrorDetail(op, path, vfs.EIO, msg)
}
