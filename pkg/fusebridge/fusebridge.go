// Package fusebridge exposes a virtual mount table on a real host path via
// FUSE. The bridge is read-only: lookups, listings, reads and readlinks pass
// through to the mount table, and every mutating operation fails with EROFS.
package fusebridge

import (
	"context"
	"path"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/rs/zerolog"

	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// Serve mounts the table at mountpoint and returns the running server. The
// caller unmounts with server.Unmount and blocks on server.Wait.
func Serve(table *vfs.Table, mountpoint string, log zerolog.Logger) (*fuse.Server, error) {
	root := &node{table: table, path: "/", log: log}
	opts := &fs.Options{}
	server, err := fs.Mount(mountpoint, root, opts)
	if err != nil {
		return nil, err
	}
	log.Info().Str("mountpoint", mountpoint).Msg("fuse mounted")
	return server, nil
}

// node is one virtual path served over FUSE. Nodes carry no cached state;
// every kernel operation re-queries the mount table so views stay live.
type node struct {
	fs.Inode
	table *vfs.Table
	path  string
	log   zerolog.Logger
}

var _ = (fs.NodeLookuper)((*node)(nil))
var _ = (fs.NodeReaddirer)((*node)(nil))
var _ = (fs.NodeGetattrer)((*node)(nil))
var _ = (fs.NodeOpener)((*node)(nil))
var _ = (fs.NodeReadlinker)((*node)(nil))
var _ = (fs.NodeCreater)((*node)(nil))
var _ = (fs.NodeMkdirer)((*node)(nil))
var _ = (fs.NodeUnlinker)((*node)(nil))
var _ = (fs.NodeRmdirer)((*node)(nil))
var _ = (fs.NodeRenamer)((*node)(nil))

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child := path.Join(n.path, name)
	e, err := n.stat(child)
	if err != nil {
		return nil, mapErrno(err)
	}
	mode := entryMode(e)
	return n.NewInode(ctx, &node{table: n.table, path: child, log: n.log}, fs.StableAttr{Mode: mode}), 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.table.ReadDir(n.path)
	if err != nil {
		// An unmounted intermediate directory still lists the mount points
		// beneath it.
		if synthetic := n.syntheticChildren(); synthetic != nil {
			return fs.NewListDirStream(synthetic), 0
		}
		return nil, mapErrno(err)
	}
	dirents := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		dirents = append(dirents, fuse.DirEntry{Name: e.Name, Mode: entryMode(e)})
	}
	return fs.NewListDirStream(dirents), 0
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	e, err := n.stat(n.path)
	if err != nil {
		return mapErrno(err)
	}
	out.Mode = entryMode(e) | uint32(e.Mode.Perm())
	out.Size = uint64(e.Size)
	if !e.ModTime.IsZero() {
		t := uint64(e.ModTime.Unix())
		out.Mtime = t
		out.Ctime = t
		out.Atime = t
	}
	return 0
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	data, err := n.table.ReadFile(n.path)
	if err != nil {
		n.log.Debug().Str("path", n.path).Err(err).Msg("fuse read failed")
		return nil, 0, mapErrno(err)
	}
	return &fileHandle{data: data}, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	e, err := n.table.Stat(n.path)
	if err != nil {
		return nil, mapErrno(err)
	}
	if e.Type != vfs.TypeSymlink {
		return nil, syscall.EINVAL
	}
	return []byte(e.Target), 0
}

func (n *node) Create(ctx context.Context, name string, flags, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno { return syscall.EROFS }

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno { return syscall.EROFS }

func (n *node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.EROFS
}

// stat resolves a path through the table, synthesizing a directory entry for
// unmounted ancestors of mount points (e.g. "/views" when only
// "/views/admins" is mounted).
func (n *node) stat(p string) (vfs.FSEntry, error) {
	e, err := n.table.Stat(p)
	if err == nil {
		return e, nil
	}
	if vfs.IsNotExist(err) && n.coversMountPoint(p) {
		return vfs.FSEntry{Name: path.Base(p), Type: vfs.TypeDir, Mode: 0o755}, nil
	}
	return vfs.FSEntry{}, err
}

func (n *node) coversMountPoint(p string) bool {
	p = vfs.Normalize(p)
	if p == "/" {
		return true
	}
	for _, prefix := range n.table.Prefixes() {
		if strings.HasPrefix(prefix, p+"/") {
			return true
		}
	}
	return false
}

// syntheticChildren lists the first path element of every mount prefix under
// this node, for directories that exist only as ancestors of mount points.
func (n *node) syntheticChildren() []fuse.DirEntry {
	p := vfs.Normalize(n.path)
	if !n.coversMountPoint(p) {
		return nil
	}
	seen := map[string]bool{}
	var out []fuse.DirEntry
	for _, prefix := range n.table.Prefixes() {
		if !strings.HasPrefix(prefix, p+"/") {
			continue
		}
		name := strings.SplitN(strings.TrimPrefix(prefix, p+"/"), "/", 2)[0]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, fuse.DirEntry{Name: name, Mode: fuse.S_IFDIR})
	}
	return out
}

type fileHandle struct {
	data []byte
}

var _ = (fs.FileReader)((*fileHandle)(nil))

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off >= int64(len(h.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(h.data)) {
		end = int64(len(h.data))
	}
	return fuse.ReadResultData(h.data[off:end]), 0
}

func entryMode(e vfs.FSEntry) uint32 {
	switch e.Type {
	case vfs.TypeDir:
		return fuse.S_IFDIR
	case vfs.TypeSymlink:
		return syscall.S_IFLNK
	default:
		return fuse.S_IFREG
	}
}

func mapErrno(err error) syscall.Errno {
	switch vfs.ErrnoOf(err) {
	case vfs.ENOENT:
		return syscall.ENOENT
	case vfs.ENOTDIR:
		return syscall.ENOTDIR
	case vfs.EISDIR:
		return syscall.EISDIR
	case vfs.EACCES:
		return syscall.EACCES
	case vfs.EROFS:
		return syscall.EROFS
	case vfs.EEXIST:
		return syscall.EEXIST
	case vfs.ENOTEMPTY:
		return syscall.ENOTEMPTY
	case vfs.EINVAL:
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}
