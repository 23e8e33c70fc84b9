package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

// DefaultNoTxCommands is the allow-list of commands that never need a
// transactional filesystem context: environment and echo/pwd-class commands
// that touch no data-backed mount.
var DefaultNoTxCommands = []string{
	"echo", "true", "false", "pwd", "cd", "env", "export", "sleep", "jobs", "history",
}

// DefaultTxPath is the virtual prefix the transactional mount shadows while
// a chain runs inside a context.
const DefaultTxPath = "/data"

// Executor orchestrates chain/pipeline/redirect/background execution against
// the parser output, the session mount table, and the command registry.
type Executor struct {
	Registry *Registry
	Procs    *ProcessRegistry
	Supplier TxSupplier
	Log      zerolog.Logger
	// TxPath is where the acquired context's mount is overlaid for the
	// chain's duration; empty means DefaultTxPath.
	TxPath string

	noTx map[string]bool
}

// NewExecutor builds an executor with the default no-transaction allow-list
// and a silent logger.
func NewExecutor(reg *Registry, procs *ProcessRegistry) *Executor {
	e := &Executor{
		Registry: reg,
		Procs:    procs,
		Log:      zerolog.Nop(),
		noTx:     map[string]bool{},
	}
	e.SetNoTxCommands(DefaultNoTxCommands)
	return e
}

// SetNoTxCommands replaces the no-transaction allow-list.
func (e *Executor) SetNoTxCommands(names []string) {
	e.noTx = make(map[string]bool, len(names))
	for _, name := range names {
		e.noTx[name] = true
	}
}

// Execute parses and runs one command line against a session, returning the
// terminal exit code. "$?" is updated in the session environment after every
// chain. History is the caller's concern (interactive sessions record, cron
// jobs do not).
func (e *Executor) Execute(s *Session, line string, cio *core.CommandIO) int {
	chain, err := Parse(line, s.Getenv)
	if err != nil {
		cio.Errorf("vsh: %v\n", err)
		s.Setenv("?", "1")
		return core.ExitFailure
	}
	if chain == nil {
		return core.ExitSuccess
	}

	if chain.Background {
		return e.spawnBackground(s, chain, cio)
	}

	code := e.executeChain(s, chain, cio)
	s.Setenv("?", fmt.Sprintf("%d", code))
	return code
}

// executeChain acquires a transactional context when any stage needs one,
// runs the chain, and settles the context on the way out: commit on exit
// zero, rollback otherwise. While the context is live, its mount shadows
// TxPath in the table the stages resolve against, so the chain's data
// operations go through the transaction rather than the base mount.
func (e *Executor) executeChain(s *Session, chain *Chain, cio *core.CommandIO) int {
	if e.Supplier != nil && e.needsTx(chain) && s.Tx == nil {
		tx, err := e.Supplier.Acquire(cio.Context())
		if err != nil {
			cio.Errorf("Error: %v\n", err)
			return core.ExitFailure
		}
		s.Tx = tx
		prevMounts := s.Mounts
		if txm := tx.Mount(); txm != nil && s.Mounts != nil {
			path := e.TxPath
			if path == "" {
				path = DefaultTxPath
			}
			s.Mounts = s.Mounts.Overlay(path, txm)
		}
		defer func() {
			s.Mounts = prevMounts
			s.Tx = nil
		}()
		code := e.runChain(s, chain, cio)
		if code == core.ExitSuccess {
			if err := tx.Commit(); err != nil {
				cio.Errorf("Error: %v\n", err)
				return core.ExitFailure
			}
		} else {
			_ = tx.Rollback()
		}
		return code
	}
	return e.runChain(s, chain, cio)
}

func (e *Executor) needsTx(chain *Chain) bool {
	for _, name := range chain.Names() {
		if !e.noTx[name] {
			return true
		}
	}
	return false
}

// runChain executes pipelines left to right with "&&"/"||" short-circuit on
// the combined exit code of everything before the operator.
func (e *Executor) runChain(s *Session, chain *Chain, cio *core.CommandIO) int {
	status := core.ExitSuccess
	for _, link := range chain.Links {
		if cio.Cancelled() {
			return core.ExitCancelled
		}
		switch link.Op {
		case OpAnd:
			if status != core.ExitSuccess {
				continue
			}
		case OpOr:
			if status == core.ExitSuccess {
				continue
			}
		}
		status = e.runPipeline(s, link.Pipeline, cio)
	}
	return status
}

// runPipeline executes stages strictly in order. Each non-terminal stage's
// handler runs concurrently with collection of its full stdout, so a
// handler can never deadlock waiting for its own output to drain; the
// buffered output then becomes the next stage's stdin. Buffering over
// backpressure is a deliberate trade-off.
func (e *Executor) runPipeline(s *Session, p *Pipeline, cio *core.CommandIO) int {
	var input io.Reader = cio.In
	status := core.ExitSuccess
	for i, st := range p.Stages {
		if cio.Cancelled() {
			return core.ExitCancelled
		}
		last := i == len(p.Stages)-1
		if last {
			return e.runStage(s, st, &core.CommandIO{In: input, Out: cio.Out, Err: cio.Err, Ctx: cio.Ctx})
		}

		pr, pw := io.Pipe()
		var buf bytes.Buffer
		collected := make(chan struct{})
		go func() {
			_, _ = io.Copy(&buf, pr)
			close(collected)
		}()
		status = e.runStage(s, st, &core.CommandIO{In: input, Out: pw, Err: cio.Err, Ctx: cio.Ctx})
		_ = pw.Close()
		<-collected
		if status == core.ExitCancelled {
			return status
		}
		input = bytes.NewReader(buf.Bytes())
	}
	return status
}

// runStage expands globs, resolves redirects against the session working
// directory, dispatches to the registered handler, and maps handler panics
// to "Error: <message>" with exit 1.
func (e *Executor) runStage(s *Session, st *Stage, cio *core.CommandIO) int {
	if cio.Cancelled() {
		return core.ExitCancelled
	}

	args := make([]string, 0, len(st.Args))
	for _, a := range st.Args {
		args = append(args, ExpandGlob(s.Mounts, s.Cwd, a)...)
	}

	h, ok := e.Registry.Lookup(st.Name)
	if !ok {
		cio.Errorf("vsh: %s: command not found\n", st.Name)
		return core.ExitNotFound
	}

	stageIO := &core.CommandIO{In: cio.In, Out: cio.Out, Err: cio.Err, Ctx: cio.Ctx}
	if st.RedirIn != "" {
		data, err := s.Mounts.ReadFile(s.Resolve(st.RedirIn))
		if err != nil {
			cio.Errorf("vsh: %s: %v\n", st.RedirIn, err)
			return core.ExitFailure
		}
		stageIO.In = bytes.NewReader(data)
	}
	var outBuf *bytes.Buffer
	if st.RedirOut != "" {
		outBuf = &bytes.Buffer{}
		stageIO.Out = outBuf
	}

	code := e.invoke(h, s, args, stageIO)

	if outBuf != nil {
		target := s.Resolve(st.RedirOut)
		data := outBuf.Bytes()
		if st.RedirAppend {
			if existing, err := s.Mounts.ReadFile(target); err == nil {
				data = append(existing, data...)
			}
		}
		if err := writeThrough(s.Mounts, target, data); err != nil {
			cio.Errorf("vsh: %s: %v\n", st.RedirOut, err)
			return core.ExitFailure
		}
	}
	return code
}

func (e *Executor) invoke(h Handler, s *Session, args []string, cio *core.CommandIO) (code int) {
	defer func() {
		if r := recover(); r != nil {
			cio.Errorf("Error: %v\n", r)
			code = core.ExitFailure
		}
	}()
	return h.Run(s, s.Mounts, args, cio)
}

func writeThrough(fsys *vfs.Table, target string, data []byte) error {
	m, rel := fsys.Resolve(target)
	if m == nil {
		return vfs.NewError("write", target, vfs.ENOENT)
	}
	return vfs.WriteFile(m, rel, data)
}

// spawnBackground detaches the chain into a tracked process with a snapshot
// of the session and, when a supplier is configured, a fresh transactional
// context. Returns immediately after printing "[job] pid"; the job is never
// awaited.
func (e *Executor) spawnBackground(s *Session, chain *Chain, cio *core.CommandIO) int {
	if e.Procs == nil {
		cio.Errorf("vsh: background jobs unavailable\n")
		return core.ExitFailure
	}
	snap := s.Snapshot()
	argv := chain.Links[0].Pipeline.Stages[0].Argv()
	name := argv[0]

	p := e.Procs.Spawn(name, argv, snap.Cwd, snap.Env, func(ctx context.Context, p *Process) int {
		jobIO := &core.CommandIO{
			In:  strings.NewReader(""),
			Out: p.StdoutWriter(),
			Err: p.StderrWriter(),
			Ctx: ctx,
		}
		fg := *chain
		fg.Background = false
		code := e.executeChain(snap, &fg, jobIO)
		snap.Setenv("?", fmt.Sprintf("%d", code))
		return code
	})

	cio.Printf("[%d] %d\n", p.Job, p.PID)
	s.Setenv("?", "0")
	return core.ExitSuccess
}
