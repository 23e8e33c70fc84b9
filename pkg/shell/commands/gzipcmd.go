package commands

import (
	"bytes"
	"strings"

	"github.com/ianzepp/monk-shell/pkg/core"
	"github.com/ianzepp/monk-shell/pkg/core/archiveutil"
	"github.com/ianzepp/monk-shell/pkg/shell"
	"github.com/ianzepp/monk-shell/pkg/vfs"
)

const gzipManual = `gzip [-c] [-k] [file...] - compress files, replacing
each file with file.gz. With -c writes compressed data to standard output
and leaves files untouched; -k keeps the originals. Without arguments
compresses standard input to standard output.`

const gunzipManual = `gunzip [-c] [-k] [file...] - decompress .gz files,
replacing each file.gz with file. With -c writes decompressed data to
standard output and leaves files untouched; -k keeps the originals.
Without arguments decompresses standard input to standard output.`

func gzipCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	return compressCmd(s, fsys, args, cio, "gzip", false)
}

func gunzipCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO) int {
	return compressCmd(s, fsys, args, cio, "gunzip", true)
}

func compressCmd(s *shell.Session, fsys *vfs.Table, args []string, cio *core.CommandIO, command string, decompress bool) int {
	toStdout := false
	keep := false
	var files []string
	for _, arg := range args {
		switch {
		case arg == "-c":
			toStdout = true
		case arg == "-k":
			keep = true
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return core.UsageError(cio, command, "unknown option "+arg)
		default:
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		data, err := readInput(cio)
		if err != nil {
			return core.FileError(cio, command, "stdin", err)
		}
		out, err := recode(data, decompress)
		if err != nil {
			return core.FileError(cio, command, "stdin", err)
		}
		cio.Out.Write(out)
		return core.ExitSuccess
	}
	if !needMounts(cio, command, fsys) {
		return core.ExitFailure
	}

	status := core.ExitSuccess
	for _, file := range files {
		abs := s.Resolve(file)
		out, ok := recodeFile(fsys, cio, command, abs, decompress)
		if !ok {
			status = core.ExitFailure
			continue
		}
		if toStdout {
			cio.Out.Write(out)
			continue
		}
		dst, ok := recodedName(abs, decompress)
		if !ok {
			cio.Errorf("%s: %s: unknown suffix, ignored\n", command, abs)
			status = core.ExitFailure
			continue
		}
		w, rel, ok := writable(cio, command, fsys, dst)
		if !ok {
			status = core.ExitFailure
			continue
		}
		if err := w.WriteFile(rel, out); err != nil {
			status = mountFail(cio, command, dst, err)
			continue
		}
		if keep {
			continue
		}
		sw, srel, ok := writable(cio, command, fsys, abs)
		if !ok {
			status = core.ExitFailure
			continue
		}
		if err := sw.Unlink(srel); err != nil {
			status = mountFail(cio, command, abs, err)
		}
	}
	return status
}

func recodeFile(fsys *vfs.Table, cio *core.CommandIO, command, abs string, decompress bool) ([]byte, bool) {
	data, err := fsys.ReadFile(abs)
	if err != nil {
		mountFail(cio, command, abs, err)
		return nil, false
	}
	out, err := recode(data, decompress)
	if err != nil {
		core.FileError(cio, command, abs, err)
		return nil, false
	}
	return out, true
}

func recode(data []byte, decompress bool) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if decompress {
		err = archiveutil.GunzipToWriter(bytes.NewReader(data), &buf)
	} else {
		err = archiveutil.GzipToWriter(bytes.NewReader(data), &buf)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// recodedName derives the output path: gzip appends .gz, gunzip strips it.
func recodedName(abs string, decompress bool) (string, bool) {
	if !decompress {
		return abs + ".gz", true
	}
	if !strings.HasSuffix(abs, ".gz") || abs == ".gz" {
		return "", false
	}
	return strings.TrimSuffix(abs, ".gz"), true
}
