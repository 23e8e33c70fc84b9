// Command vsh is the embedded shell environment: an interactive REPL (or
// one-shot executor) over a virtual mount table built from configuration,
// with optional FUSE exposure of the table on a host path.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ianzepp/monk-shell/pkg/config"
	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/fusebridge"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/shell/commands"
	"github.com/ianzepp/monk-shell/pkg/vfs"
	"github.com/ianzepp/monk-shell/pkg/vfs/cmdmount"
	"github.com/ianzepp/monk-shell/pkg/vfs/hostmount"
	"github.com/ianzepp/monk-shell/pkg/vfs/procmount"
	"github.com/ianzepp/monk-shell/pkg/vfs/querymount"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		oneShot    string
		fusePoint  string
		logLevel   string
	)
	flags := pflag.NewFlagSet("vsh", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to TOML configuration")
	flags.StringVarP(&oneShot, "command", "c", "", "run one command line and exit")
	flags.StringVar(&fusePoint, "mount", "", "expose the virtual filesystem on this host path via FUSE")
	flags.StringVar(&logLevel, "log-level", "", "override the configured log level")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return core.ExitSuccess
		}
		fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
		return core.ExitUsage
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
			return core.ExitFailure
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
		return core.ExitUsage
	}

	procs := shell.NewProcessRegistry(log)
	reg := shell.NewRegistry()
	commands.RegisterAll(reg, procs)

	table, closers, err := buildMounts(cfg, reg, procs, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
		return core.ExitFailure
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	exec := shell.NewExecutor(reg, procs)
	exec.Log = log
	if len(cfg.Shell.NoTxCommands) > 0 {
		exec.SetNoTxCommands(cfg.Shell.NoTxCommands)
	}

	session := shell.NewSession(table)
	session.HistoryLimit = cfg.Shell.HistorySize

	if fusePoint != "" {
		server, err := fusebridge.Serve(table, fusePoint, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vsh: fuse mount %s: %v\n", fusePoint, err)
			return core.ExitFailure
		}
		defer func() {
			_ = server.Unmount()
		}()
	}

	if oneShot != "" {
		return runLine(exec, session, oneShot)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return repl(exec, session)
	}
	return runScript(exec, session, os.Stdin)
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", "vsh").Logger().Level(lvl), nil
}

// buildMounts assembles the mount table from configuration. The returned
// closers release sqlite handles on shutdown.
func buildMounts(cfg config.Config, reg *shell.Registry, procs *shell.ProcessRegistry, log zerolog.Logger) (*vfs.Table, []io.Closer, error) {
	table := vfs.NewTable()
	var closers []io.Closer
	for _, spec := range cfg.Mounts {
		var m vfs.Mount
		switch spec.Type {
		case "host":
			hm, err := hostmount.New(spec.Source, spec.ReadOnly)
			if err != nil {
				return nil, closers, fmt.Errorf("mount %s: %w", spec.Path, err)
			}
			m = hm
		case "proc":
			m = procmount.New(procs)
		case "cmd":
			m = cmdmount.New(reg)
		case "query":
			store, err := querymount.OpenSQLite(spec.Source, spec.Table, spec.IDColumn)
			if err != nil {
				return nil, closers, fmt.Errorf("mount %s: %w", spec.Path, err)
			}
			closers = append(closers, store)
			m = querymount.New(store, spec.Filter, cfg.Query.RowCap)
		}
		table.Register(spec.Path, m)
		log.Debug().Str("path", spec.Path).Str("type", spec.Type).Msg("mount registered")
	}
	return table, closers, nil
}

// runLine executes one line with SIGINT wired to context cancellation.
func runLine(exec *shell.Executor, session *shell.Session, line string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT)
	defer stop()
	cio := core.DefaultIO()
	cio.Ctx = ctx
	return exec.Execute(session, line, cio)
}

// repl reads lines interactively, recording history and cancelling the
// running line on SIGINT rather than exiting.
func repl(exec *shell.Executor, session *shell.Session) int {
	scanner := bufio.NewScanner(os.Stdin)
	code := core.ExitSuccess
	for {
		fmt.Fprintf(os.Stdout, "vsh:%s$ ", session.Cwd)
		if !scanner.Scan() {
			fmt.Fprintln(os.Stdout)
			return code
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" {
			return code
		}
		session.Record(line)
		code = runLine(exec, session, line)
	}
}

// runScript executes stdin line by line, stopping at the first read error.
// Exit code is the last line's.
func runScript(exec *shell.Executor, session *shell.Session, r io.Reader) int {
	scanner := bufio.NewScanner(r)
	code := core.ExitSuccess
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		code = runLine(exec, session, line)
	}
	return code
}
