package awk

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func runScript(t *testing.T, src, input string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	code, err := Exec(src, Config{Output: &out}, []Input{{Name: "input", Data: []byte(input)}})
	if err != nil {
		t.Fatalf("Exec(%q) error: %v", src, err)
	}
	return out.String(), code
}

func TestPrintRecords(t *testing.T) {
	out, code := runScript(t, `{ print }`, "alpha\nbeta\n")
	if out != "alpha\nbeta\n" {
		t.Errorf("output = %q", out)
	}
	if code != 0 {
		t.Errorf("code = %d", code)
	}
}

func TestFieldsAndNF(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{"fields", `{ print $2, $1 }`, "one two\n", "two one\n"},
		{"nf", `{ print NF }`, "  a  b   c  \n", "3\n"},
		{"nr", `{ print NR, $1 }`, "x\ny\n", "1 x\n2 y\n"},
		{"field past end", `{ print "[" $5 "]" }`, "a b\n", "[]\n"},
		{"dollar zero", `{ print $0 }`, "  spaced  out\n", "  spaced  out\n"},
		{"computed field", `{ n = 2; print $n }`, "a b c\n", "b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, tt.input)
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestFieldSeparators(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{"comma keeps empties", `BEGIN { FS = "," } { print NF, $2 }`, "a,,c\n", "3 \n"},
		{"per char", `BEGIN { FS = "" } { print NF, $3 }`, "abc\n", "3 c\n"},
		{"regex fs", `BEGIN { FS = "[0-9]+" } { print $1 "-" $2 }`, "ab123cd\n", "ab-cd\n"},
		{"tab", `BEGIN { FS = "\t" } { print $2 }`, "a\tb\tc\n", "b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, tt.input)
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestFieldAssignment(t *testing.T) {
	// assigning a field rebuilds $0 with OFS; raising NF pads with empties
	out, _ := runScript(t, `{ $2 = "X"; print $0 }`, "a b c\n")
	if out != "a X c\n" {
		t.Errorf("output = %q", out)
	}
	out, _ = runScript(t, `BEGIN { OFS = "-" } { $1 = $1; print }`, "a b c\n")
	if out != "a-b-c\n" {
		t.Errorf("OFS rebuild = %q", out)
	}
	out, _ = runScript(t, `{ $5 = "e"; print NF, $0 }`, "a b\n")
	if out != "5 a b   e\n" {
		t.Errorf("field growth = %q", out)
	}
	out, _ = runScript(t, `{ NF = 2; print $0 }`, "a b c d\n")
	if out != "a b\n" {
		t.Errorf("NF truncate = %q", out)
	}
}

func TestComparisonModes(t *testing.T) {
	// any operand that looks numeric compares numerically, string
	// constants included; comparison is lexicographic only when a side
	// is genuinely non-numeric
	out, _ := runScript(t, `BEGIN { print ("10" < "9") }`, "")
	if out != "0\n" {
		t.Errorf("numeric-looking strings = %q, want %q", out, "0\n")
	}
	out, _ = runScript(t, `BEGIN { print ("10" < "9a") }`, "")
	if out != "1\n" {
		t.Errorf("string compare = %q, want %q", out, "1\n")
	}
	out, _ = runScript(t, `{ print ($1 < $2) }`, "10 9\n")
	if out != "0\n" {
		t.Errorf("strnum compare = %q, want %q", out, "0\n")
	}
	out, _ = runScript(t, `{ print ($1 == 10) }`, "10\n")
	if out != "1\n" {
		t.Errorf("strnum vs number = %q, want %q", out, "1\n")
	}
	out, _ = runScript(t, `{ print ($1 < $2) }`, "abc abd\n")
	if out != "1\n" {
		t.Errorf("non-numeric fields = %q, want %q", out, "1\n")
	}
}

func TestPatterns(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{"regex", `/b/`, "abc\nxyz\nbob\n", "abc\nbob\n"},
		{"expr", `NR % 2 == 1`, "a\nb\nc\n", "a\nc\n"},
		{"negated regex", `!/b/`, "abc\nxyz\n", "xyz\n"},
		{"range", `/start/,/stop/`, "a\nstart\nb\nstop\nc\n", "start\nb\nstop\n"},
		{"range reopens", `/on/,/off/`, "on\noff\nx\non\noff\n", "on\noff\non\noff\n"},
		{"range single record", `/a/,/a/ { print "hit" }`, "a\nb\n", "hit\n"},
		{"pattern and action", `$1 > 2 { print $1 * 10 }`, "1\n3\n2\n5\n", "30\n50\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, tt.input)
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRecordSeparators(t *testing.T) {
	out, _ := runScript(t, `BEGIN { RS = "" } { print NR ":" $1 }`, "a x\nb\n\nc\n")
	if out != "1:a\n2:c\n" {
		t.Errorf("paragraph mode = %q", out)
	}
	out, _ = runScript(t, `BEGIN { RS = ";" } { print NR, $0 }`, "a;b;")
	if out != "1 a\n2 b\n" {
		t.Errorf("custom RS = %q", out)
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"while", `BEGIN { i = 0; while (i < 3) { print i; i++ } }`, "0\n1\n2\n"},
		{"do while", `BEGIN { i = 5; do { print i; i++ } while (i < 3) }`, "5\n"},
		{"for", `BEGIN { for (i = 1; i <= 3; i++) print i }`, "1\n2\n3\n"},
		{"break", `BEGIN { for (i = 0; ; i++) { if (i == 2) break; print i } }`, "0\n1\n"},
		{"continue", `BEGIN { for (i = 0; i < 4; i++) { if (i % 2) continue; print i } }`, "0\n2\n"},
		{"ternary", `BEGIN { x = 5; print (x > 3 ? "big" : "small") }`, "big\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, "")
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestNextAndExit(t *testing.T) {
	out, _ := runScript(t, `/skip/ { next } { print }`, "a\nskip\nb\n")
	if out != "a\nb\n" {
		t.Errorf("next = %q", out)
	}

	out, code := runScript(t, `NR == 2 { exit 3 } { print } END { print "end" }`, "a\nb\nc\n")
	if out != "a\nend\n" {
		t.Errorf("exit output = %q", out)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}

	// exit in BEGIN skips the input loop but END still runs
	out, code = runScript(t, `BEGIN { exit 7 } { print "record" } END { print "end" }`, "x\n")
	if out != "end\n" {
		t.Errorf("BEGIN exit output = %q", out)
	}
	if code != 7 {
		t.Errorf("BEGIN exit code = %d, want 7", code)
	}
}

func TestEndRunsWithoutRecords(t *testing.T) {
	out, _ := runScript(t, `END { print NR }`, "")
	if out != "0\n" {
		t.Errorf("output = %q", out)
	}
}

func TestArrays(t *testing.T) {
	out, _ := runScript(t, `{ count[$1]++ } END { print count["a"], count["b"] }`, "a\nb\na\na\n")
	if out != "3 1\n" {
		t.Errorf("counting = %q", out)
	}

	out, _ = runScript(t, `BEGIN { a["x"] = 1; if ("x" in a) print "yes"; if ("y" in a) print "no" }`, "")
	if out != "yes\n" {
		t.Errorf("in operator = %q", out)
	}

	out, _ = runScript(t, `BEGIN { a[1,2] = "v"; if ((1,2) in a) print "joined" }`, "")
	if out != "joined\n" {
		t.Errorf("multi subscript = %q", out)
	}

	out, _ = runScript(t, `BEGIN { a["k"] = 1; delete a["k"]; if ("k" in a) print "still"; else print "gone" }`, "")
	if out != "gone\n" {
		t.Errorf("delete element = %q", out)
	}

	out, _ = runScript(t, `BEGIN { a[1] = 1; a[2] = 2; delete a; n = 0; for (k in a) n++; print n }`, "")
	if out != "0\n" {
		t.Errorf("delete array = %q", out)
	}
}

func TestForIn(t *testing.T) {
	out, _ := runScript(t, `BEGIN { a["x"] = 1; a["y"] = 2; n = 0; for (k in a) n += a[k]; print n }`, "")
	if out != "3\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFunctions(t *testing.T) {
	out, _ := runScript(t, `
function fact(n) { return n <= 1 ? 1 : n * fact(n - 1) }
BEGIN { print fact(5) }`, "")
	if out != "120\n" {
		t.Errorf("recursion = %q", out)
	}

	// scalars pass by value
	out, _ = runScript(t, `
function bump(x) { x = 99 }
BEGIN { v = 1; bump(v); print v }`, "")
	if out != "1\n" {
		t.Errorf("scalar by value = %q", out)
	}

	// arrays pass by reference
	out, _ = runScript(t, `
function fill(arr) { arr["k"] = "set" }
BEGIN { a["k"] = ""; fill(a); print a["k"] }`, "")
	if out != "set\n" {
		t.Errorf("array by reference = %q", out)
	}

	// extra params act as locals
	out, _ = runScript(t, `
function twice(x,   tmp) { tmp = x * 2; return tmp }
BEGIN { tmp = "outer"; print twice(4); print tmp }`, "")
	if out != "8\nouter\n" {
		t.Errorf("locals = %q", out)
	}
}

func TestRecursionDepthGuard(t *testing.T) {
	var out bytes.Buffer
	_, err := Exec(`function loop() { return loop() } BEGIN { loop() }`,
		Config{Output: &out, MaxCallDepth: 10}, nil)
	if err == nil {
		t.Fatal("expected depth error")
	}
	if !strings.Contains(err.Error(), "depth") {
		t.Errorf("error = %v", err)
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"length str", `BEGIN { print length("hello") }`, "5\n"},
		{"length array", `BEGIN { a[1]; a[2]; print length(a) }`, "2\n"},
		{"substr", `BEGIN { print substr("hello", 2, 3) }`, "ell\n"},
		{"substr clamp start", `BEGIN { print substr("hello", 0, 3) }`, "he\n"},
		{"substr past end", `BEGIN { print substr("hi", 5) }`, "\n"},
		{"index", `BEGIN { print index("banana", "nan"), index("banana", "z") }`, "3 0\n"},
		{"split", `BEGIN { n = split("a:b:c", parts, ":"); print n, parts[2] }`, "3 b\n"},
		{"split default fs", `BEGIN { n = split("  x y  ", p); print n, p[1] }`, "2 x\n"},
		{"tolower toupper", `BEGIN { print tolower("MiX"), toupper("MiX") }`, "mix MIX\n"},
		{"int", `BEGIN { print int(3.9), int(-3.9) }`, "3 -3\n"},
		{"sqrt", `BEGIN { print sqrt(16) }`, "4\n"},
		{"atan2", `BEGIN { print (atan2(0, -1) > 3) }`, "1\n"},
		{"sprintf", `BEGIN { print sprintf("%04d|%.2f|%s", 42, 3.14159, "x") }`, "0042|3.14|x\n"},
		{"system is inert", `BEGIN { print system("reboot") }`, "-1\n"},
		{"getline is inert", `BEGIN { print (getline line) }`, "0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, "")
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestSubGsub(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{"sub first only", `{ sub(/o/, "0"); print }`, "foo boo\n", "f0o boo\n"},
		{"gsub all", `{ n = gsub(/o/, "0"); print n, $0 }`, "foo boo\n", "4 f00 b00\n"},
		{"ampersand", `BEGIN { s = "cat"; sub(/a/, "[&]", s); print s }`, "", "c[a]t\n"},
		{"literal ampersand", `BEGIN { s = "cat"; sub(/a/, "\\&", s); print s }`, "", "c&t\n"},
		{"gsub on var", `BEGIN { s = "aaa"; print gsub(/a/, "b", s), s }`, "", "3 bbb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, tt.input)
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestMatchSetsGlobals(t *testing.T) {
	out, _ := runScript(t, `BEGIN { print match("foobar", /ob/), RSTART, RLENGTH }`, "")
	if out != "3 3 2\n" {
		t.Errorf("match hit = %q", out)
	}
	out, _ = runScript(t, `BEGIN { print match("foo", /z/), RSTART, RLENGTH }`, "")
	if out != "0 0 -1\n" {
		t.Errorf("match miss = %q", out)
	}
}

func TestRandDeterministic(t *testing.T) {
	src := `BEGIN { srand(42); a = rand(); srand(42); b = rand(); print (a == b), (a >= 0 && a < 1) }`
	out, _ := runScript(t, src, "")
	if out != "1 1\n" {
		t.Errorf("output = %q", out)
	}

	out, _ = runScript(t, `BEGIN { srand(1); rand(); print srand(9) }`, "")
	if out != "1\n" {
		t.Errorf("srand returns previous seed: %q", out)
	}
}

func TestPrintfStatement(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no newline", `BEGIN { printf "%s-%d", "a", 7 }`, "a-7"},
		{"char code", `BEGIN { printf "%c%c\n", 65, "zebra" }`, "Az\n"},
		{"width star", `BEGIN { printf "[%*d]\n", 5, 42 }`, "[   42]\n"},
		{"left align", `BEGIN { printf "[%-4s]\n", "ab" }`, "[ab  ]\n"},
		{"hex octal", `BEGIN { printf "%x %o\n", 255, 8 }`, "ff 10\n"},
		{"percent", `BEGIN { printf "100%%\n" }`, "100%\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, "")
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestOutputSeparators(t *testing.T) {
	out, _ := runScript(t, `BEGIN { OFS = "|"; ORS = ";" } { print $1, $2 }`, "a b\nc d\n")
	if out != "a|b;c|d;" {
		t.Errorf("output = %q", out)
	}
}

func TestUninitializedValues(t *testing.T) {
	out, _ := runScript(t, `BEGIN { print x + 0, "[" x "]" }`, "")
	if out != "0 []\n" {
		t.Errorf("output = %q", out)
	}
}

func TestConcatenation(t *testing.T) {
	out, _ := runScript(t, `BEGIN { print "a" "b" 1 + 2 }`, "")
	if out != "ab3\n" {
		t.Errorf("output = %q", out)
	}
}

func TestNumericFormatting(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"integral prints as int", `BEGIN { print 3.0 }`, "3\n"},
		{"ofmt", `BEGIN { print 1/3 }`, "0.333333\n"},
		{"big integral", `BEGIN { print 2^20 }`, "1048576\n"},
		{"string coercion", `BEGIN { print "3abc" + 1 }`, "4\n"},
		{"concat uses convfmt", `BEGIN { x = 0.5; print "v=" x }`, "v=0.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runScript(t, tt.src, "")
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	var out bytes.Buffer
	_, err := Exec(`BEGIN { print 1/0 }`, Config{Output: &out}, nil)
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("error = %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		`BEGIN { print (`,
		`{ if }`,
		`function f( { }`,
		`BEGIN { 1 = 2 }`,
	} {
		if _, err := ParseProgram(src); err == nil {
			t.Errorf("ParseProgram(%q) succeeded, want error", src)
		}
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	done := make(chan struct{})
	var code int
	var err error
	go func() {
		code, err = Exec(`BEGIN { while (1) x++ }`, Config{Output: &out, Ctx: ctx}, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("script did not stop after cancellation")
	}
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if code != 130 {
		t.Errorf("code = %d, want 130", code)
	}
}

func TestMultipleInputs(t *testing.T) {
	var out bytes.Buffer
	_, err := Exec(`{ print FILENAME, FNR, NR }`, Config{Output: &out}, []Input{
		{Name: "one", Data: []byte("a\nb\n")},
		{Name: "two", Data: []byte("c\n")},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "one 1 1\none 2 2\ntwo 1 3\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestVarsAndFSConfig(t *testing.T) {
	var out bytes.Buffer
	_, err := Exec(`{ print who, $2 }`, Config{
		Output: &out,
		FS:     ":",
		Vars:   map[string]string{"who": "admin"},
	}, []Input{{Data: []byte("root:x:0\n")}})
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "admin x\n" {
		t.Errorf("output = %q", out.String())
	}
}
