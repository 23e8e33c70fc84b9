package commands

import (
	"time"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/core/timeutil"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const sleepManual = `sleep DURATION - pause for DURATION. A bare number is
seconds; the suffixes s, m, h and d are accepted. Interruptible: returns
130 when the session is cancelled mid-sleep.`

func sleepCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	if len(args) != 1 {
		return core.UsageError(cio, "sleep", "expected exactly one duration argument")
	}
	spec, err := timeutil.ParseDuration(args[0])
	if err != nil || spec.Value < 0 {
		return core.UsageError(cio, "sleep", "invalid duration "+args[0])
	}
	select {
	case <-time.After(spec.Duration):
		return core.ExitSuccess
	case <-cio.Context().Done():
		return core.ExitCancelled
	}
}
