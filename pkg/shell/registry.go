package shell

import (
	"sort"
	"sync"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// Handler is the uniform command contract. Every leaf command, including
// the AWK interpreter, implements it: fsys is the session mount table (nil
// when the session has none), io carries the stage streams and cancellation
// context, and the return value is the exit code.
type Handler interface {
	Run(s *Session, fsys *vfs.Table, args []string, io *core.CommandIO) int
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(s *Session, fsys *vfs.Table, args []string, io *core.CommandIO) int

func (f HandlerFunc) Run(s *Session, fsys *vfs.Table, args []string, io *core.CommandIO) int {
	return f(s, fsys, args, io)
}

// Registry is the static command table resolved at startup. Dispatch is by
// exact name; unknown names are reported by the executor as exit 127.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	manuals  map[string]string
}

// NewRegistry returns an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: map[string]Handler{},
		manuals:  map[string]string{},
	}
}

// Register binds a handler under a name. The manual text is served by the
// command-registry mount; empty is allowed.
func (r *Registry) Register(name string, h Handler, manual string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	if manual != "" {
		r.manuals[name] = manual
	}
}

// Lookup resolves a command name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns every registered command name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manual returns the manual text for a command, or "" when none was
// registered.
func (r *Registry) Manual(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.manuals[name]
}

// Has reports whether a command name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}
