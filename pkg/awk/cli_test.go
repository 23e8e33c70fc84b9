package awk

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

func testReader(files map[string]string) FileReader {
	return func(path string) ([]byte, error) {
		if content, ok := files[path]; ok {
			return []byte(content), nil
		}
		return nil, fmt.Errorf("no such file")
	}
}

func runMain(t *testing.T, argv []string, stdin string, files map[string]string) (string, string, int) {
	t.Helper()
	var out, errw bytes.Buffer
	code := Main(context.Background(), argv, []byte(stdin), testReader(files), &out, &errw)
	return out.String(), errw.String(), code
}

func TestMainProgramFromArg(t *testing.T) {
	out, _, code := runMain(t, []string{`{ print $1 }`}, "hello world\n", nil)
	if code != 0 {
		t.Fatalf("code = %d", code)
	}
	if out != "hello\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMainFieldSeparatorFlag(t *testing.T) {
	for _, argv := range [][]string{
		{"-F", ":", `{ print $2 }`},
		{"-F:", `{ print $2 }`},
	} {
		out, _, code := runMain(t, argv, "a:b:c\n", nil)
		if code != 0 || out != "b\n" {
			t.Errorf("argv %v: code=%d output=%q", argv, code, out)
		}
	}
}

func TestMainVarAssignments(t *testing.T) {
	out, _, code := runMain(t,
		[]string{"-v", "greeting=hi", "-v", "n=3", `BEGIN { print greeting, n + 1 }`},
		"", nil)
	if code != 0 {
		t.Fatalf("code = %d", code)
	}
	if out != "hi 4\n" {
		t.Errorf("output = %q", out)
	}

	_, errw, code := runMain(t, []string{"-v", "notanassignment", `{}`}, "", nil)
	if code != 2 {
		t.Errorf("bad -v code = %d, want 2", code)
	}
	if !strings.Contains(errw, "invalid -v") {
		t.Errorf("stderr = %q", errw)
	}
}

func TestMainProgramFile(t *testing.T) {
	files := map[string]string{
		"prog.awk": `{ total += $1 } END { print total }`,
		"data":     "1\n2\n3\n",
	}
	out, _, code := runMain(t, []string{"-f", "prog.awk", "data"}, "", files)
	if code != 0 {
		t.Fatalf("code = %d", code)
	}
	if out != "6\n" {
		t.Errorf("output = %q", out)
	}

	_, errw, code := runMain(t, []string{"-f", "missing.awk"}, "", files)
	if code != 2 || !strings.Contains(errw, "missing.awk") {
		t.Errorf("missing program file: code=%d stderr=%q", code, errw)
	}
}

func TestMainOperandAssignment(t *testing.T) {
	files := map[string]string{"data": "x\n"}
	out, _, code := runMain(t, []string{`{ print tag, $0 }`, "tag=T", "data"}, "", files)
	if code != 0 {
		t.Fatalf("code = %d", code)
	}
	if out != "T x\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMainStdinFallback(t *testing.T) {
	out, _, code := runMain(t, []string{`{ print NR }`}, "a\nb\n", nil)
	if code != 0 || out != "1\n2\n" {
		t.Errorf("code=%d output=%q", code, out)
	}

	out, _, code = runMain(t, []string{`{ print $0 }`, "-"}, "dash\n", nil)
	if code != 0 || out != "dash\n" {
		t.Errorf("explicit dash: code=%d output=%q", code, out)
	}
}

func TestMainErrors(t *testing.T) {
	_, errw, code := runMain(t, nil, "", nil)
	if code != 2 || !strings.Contains(errw, "usage") {
		t.Errorf("no args: code=%d stderr=%q", code, errw)
	}

	_, errw, code = runMain(t, []string{"-Z", `{}`}, "", nil)
	if code != 2 || !strings.Contains(errw, "unknown option") {
		t.Errorf("unknown option: code=%d stderr=%q", code, errw)
	}

	_, errw, code = runMain(t, []string{`{ print (`}, "", nil)
	if code != 1 || !strings.Contains(errw, "awk:") {
		t.Errorf("parse error: code=%d stderr=%q", code, errw)
	}

	_, _, code = runMain(t, []string{`{}`, "nofile"}, "", nil)
	if code != 2 {
		t.Errorf("missing input: code=%d, want 2", code)
	}
}

func TestMainScriptExitCode(t *testing.T) {
	_, _, code := runMain(t, []string{`BEGIN { exit 5 }`}, "", nil)
	if code != 5 {
		t.Errorf("code = %d, want 5", code)
	}
}

func TestMainRuntimeError(t *testing.T) {
	_, errw, code := runMain(t, []string{`BEGIN { print 1 % 0 }`}, "", nil)
	if code != 2 {
		t.Errorf("code = %d, want 2", code)
	}
	if !strings.Contains(errw, "division by zero") {
		t.Errorf("stderr = %q", errw)
	}
}
