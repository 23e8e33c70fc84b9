package shell

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProcState is the one-letter state code rendered by the process-table
// mount: R running, S sleeping, Z exited (zombie), T stopped, X dead.
type ProcState byte

const (
	StateRunning  ProcState = 'R'
	StateSleeping ProcState = 'S'
	StateZombie   ProcState = 'Z'
	StateStopped  ProcState = 'T'
	StateDead     ProcState = 'X'
)

// StateName renders the human name shown in a /proc status file.
func (s ProcState) StateName() string {
	switch s {
	case StateRunning:
		return "R (running)"
	case StateSleeping:
		return "S (sleeping)"
	case StateZombie:
		return "Z (zombie)"
	case StateStopped:
		return "T (stopped)"
	case StateDead:
		return "X (dead)"
	default:
		return "? (unknown)"
	}
}

// Process is one tracked background job. Output is captured into buffers so
// the process-table mount can serve stdout/stderr pseudo-files after the
// fact. Never awaited by the spawning session.
type Process struct {
	PID     int
	Job     int
	ID      uuid.UUID
	Name    string
	Argv    []string
	Cwd     string
	Env     map[string]string
	Started time.Time

	mu       sync.Mutex
	state    ProcState
	exitCode int
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	cancel   context.CancelFunc
	done     chan struct{}
}

// State returns the current one-letter state code.
func (p *Process) State() ProcState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ExitCode returns the recorded exit code; meaningful once the process has
// left the running state.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Stdout returns a copy of the captured standard output.
func (p *Process) Stdout() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.stdout.Bytes()...)
}

// Stderr returns a copy of the captured standard error.
func (p *Process) Stderr() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.stderr.Bytes()...)
}

// Cancel triggers cooperative cancellation of the job.
func (p *Process) Cancel() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done returns a channel closed when the job finishes. Used by tests; the
// spawning session never waits on it.
func (p *Process) Done() <-chan struct{} { return p.done }

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w lockedWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(b)
}

// StdoutWriter returns a concurrency-safe writer into the stdout capture.
func (p *Process) StdoutWriter() io.Writer { return lockedWriter{mu: &p.mu, buf: &p.stdout} }

// StderrWriter returns a concurrency-safe writer into the stderr capture.
func (p *Process) StderrWriter() io.Writer { return lockedWriter{mu: &p.mu, buf: &p.stderr} }

// ProcessRegistry tracks background jobs: spawn, list, get. Persistence is
// out of scope; records live for the lifetime of the registry.
type ProcessRegistry struct {
	mu      sync.Mutex
	nextPID int
	nextJob int
	procs   map[int]*Process
	log     zerolog.Logger
}

// NewProcessRegistry returns an empty registry. Pass zerolog.Nop() to keep
// it silent.
func NewProcessRegistry(log zerolog.Logger) *ProcessRegistry {
	return &ProcessRegistry{
		nextPID: 1000,
		procs:   map[int]*Process{},
		log:     log,
	}
}

// Spawn registers a process record and runs fn on its own goroutine with a
// cancellable context. The record transitions R -> Z when fn returns.
func (r *ProcessRegistry) Spawn(name string, argv []string, cwd string, env map[string]string, fn func(ctx context.Context, p *Process) int) *Process {
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.nextPID++
	r.nextJob++
	p := &Process{
		PID:     r.nextPID,
		Job:     r.nextJob,
		ID:      uuid.New(),
		Name:    name,
		Argv:    argv,
		Cwd:     cwd,
		Env:     env,
		Started: time.Now(),
		state:   StateRunning,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.procs[p.PID] = p
	r.mu.Unlock()

	r.log.Debug().Int("pid", p.PID).Str("id", p.ID.String()).Str("name", name).Msg("spawn")

	go func() {
		code := fn(ctx, p)
		p.mu.Lock()
		p.state = StateZombie
		p.exitCode = code
		p.cancel = nil
		p.mu.Unlock()
		cancel()
		close(p.done)
		r.log.Debug().Int("pid", p.PID).Int("exit", code).Msg("exit")
	}()
	return p
}

// Get looks up a process by pid.
func (r *ProcessRegistry) Get(pid int) (*Process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[pid]
	return p, ok
}

// List returns all tracked processes ordered by pid.
func (r *ProcessRegistry) List() []*Process {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Process, 0, len(r.procs))
	for _, p := range r.procs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}
