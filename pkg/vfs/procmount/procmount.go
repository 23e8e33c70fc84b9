// Package procmount serves the process registry as a read-only /proc-style
// filesystem. The root lists process ids plus a "self" symlink; each process
// directory exposes pseudo-files (cmdline, comm, cwd, environ, status,
// stdout, stderr) computed on demand from the live record.
package procmount

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// procFiles are the pseudo-files under each pid directory, in listing order.
var procFiles = []string{"cmdline", "comm", "cwd", "environ", "status", "stderr", "stdout"}

// Mount is a read-only /proc view over a process registry.
type Mount struct {
	procs *shell.ProcessRegistry
	// SelfPID is the pid "self" resolves to; zero hides the link target.
	SelfPID int
}

// New returns a mount over procs.
func New(procs *shell.ProcessRegistry) *Mount {
	return &Mount{procs: procs}
}

func (m *Mount) Stat(path string) (vfs.FSEntry, error) {
	pid, file, kind := m.classify(path)
	switch kind {
	case nodeRoot:
		return vfs.FSEntry{Name: "/", Type: vfs.TypeDir, Mode: 0o555}, nil
	case nodeSelf:
		return vfs.FSEntry{
			Name:   "self",
			Type:   vfs.TypeSymlink,
			Mode:   0o777,
			Target: strconv.Itoa(m.SelfPID),
		}, nil
	case nodeProcDir:
		p, ok := m.procs.Get(pid)
		if !ok {
			return vfs.FSEntry{}, vfs.NewError("stat", path, vfs.ENOENT)
		}
		return pidEntry(p), nil
	case nodeProcFile:
		p, ok := m.procs.Get(pid)
		if !ok {
			return vfs.FSEntry{}, vfs.NewError("stat", path, vfs.ENOENT)
		}
		return fileEntry(p, file), nil
	}
	return vfs.FSEntry{}, vfs.NewError("stat", path, vfs.ENOENT)
}

func (m *Mount) ReadDir(path string) ([]vfs.FSEntry, error) {
	pid, _, kind := m.classify(path)
	switch kind {
	case nodeRoot:
		procs := m.procs.List()
		entries := make([]vfs.FSEntry, 0, len(procs)+1)
		for _, p := range procs {
			entries = append(entries, pidEntry(p))
		}
		entries = append(entries, vfs.FSEntry{
			Name:   "self",
			Type:   vfs.TypeSymlink,
			Mode:   0o777,
			Target: strconv.Itoa(m.SelfPID),
		})
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		return entries, nil
	case nodeProcDir:
		p, ok := m.procs.Get(pid)
		if !ok {
			return nil, vfs.NewError("readdir", path, vfs.ENOENT)
		}
		entries := make([]vfs.FSEntry, 0, len(procFiles))
		for _, name := range procFiles {
			entries = append(entries, fileEntry(p, name))
		}
		return entries, nil
	case nodeProcFile:
		return nil, vfs.NewError("readdir", path, vfs.ENOTDIR)
	}
	return nil, vfs.NewError("readdir", path, vfs.ENOENT)
}

func (m *Mount) ReadFile(path string) ([]byte, error) {
	pid, file, kind := m.classify(path)
	switch kind {
	case nodeRoot, nodeProcDir:
		return nil, vfs.NewError("read", path, vfs.EISDIR)
	case nodeProcFile:
		p, ok := m.procs.Get(pid)
		if !ok {
			return nil, vfs.NewError("read", path, vfs.ENOENT)
		}
		return render(p, file), nil
	}
	return nil, vfs.NewError("read", path, vfs.ENOENT)
}

type nodeKind int

const (
	nodeNone nodeKind = iota
	nodeRoot
	nodeSelf
	nodeProcDir
	nodeProcFile
)

func (m *Mount) classify(path string) (pid int, file string, kind nodeKind) {
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return 0, "", nodeRoot
	}
	parts := strings.Split(path, "/")
	head := parts[0]
	if head == "self" {
		if m.SelfPID > 0 {
			head = strconv.Itoa(m.SelfPID)
		} else if len(parts) == 1 {
			return 0, "", nodeSelf
		} else {
			return 0, "", nodeNone
		}
		if len(parts) == 1 {
			return 0, "", nodeSelf
		}
	}
	pid, err := strconv.Atoi(head)
	if err != nil {
		return 0, "", nodeNone
	}
	switch len(parts) {
	case 1:
		return pid, "", nodeProcDir
	case 2:
		if isProcFile(parts[1]) {
			return pid, parts[1], nodeProcFile
		}
	}
	return 0, "", nodeNone
}

func isProcFile(name string) bool {
	for _, f := range procFiles {
		if f == name {
			return true
		}
	}
	return false
}

func pidEntry(p *shell.Process) vfs.FSEntry {
	return vfs.FSEntry{
		Name:    strconv.Itoa(p.PID),
		Type:    vfs.TypeDir,
		Mode:    0o555,
		ModTime: p.Started,
	}
}

func fileEntry(p *shell.Process, name string) vfs.FSEntry {
	if name == "cwd" {
		return vfs.FSEntry{Name: name, Type: vfs.TypeSymlink, Mode: 0o777, Target: p.Cwd, ModTime: p.Started}
	}
	return vfs.FSEntry{
		Name:    name,
		Type:    vfs.TypeFile,
		Size:    int64(len(render(p, name))),
		Mode:    0o444,
		ModTime: p.Started,
	}
}

func render(p *shell.Process, name string) []byte {
	switch name {
	case "cmdline":
		return []byte(strings.Join(p.Argv, "\x00"))
	case "comm":
		return []byte(p.Name + "\n")
	case "cwd":
		return []byte(p.Cwd)
	case "environ":
		keys := make([]string, 0, len(p.Env))
		for k := range p.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(p.Env[k])
			b.WriteByte(0)
		}
		return []byte(b.String())
	case "status":
		return []byte(fmt.Sprintf("Name:\t%s\nState:\t%s\nPid:\t%d\nUid:\t%s\n",
			p.Name, p.State().StateName(), p.PID, p.ID))
	case "stdout":
		return p.Stdout()
	case "stderr":
		return p.Stderr()
	}
	return nil
}
