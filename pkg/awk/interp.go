package awk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrCancelled is returned when the script's cancellation context fires;
// callers map it to exit code 130.
var ErrCancelled = errors.New("cancelled")

// DefaultMaxCallDepth bounds user-function recursion. Exceeding it fails
// with a catchable error instead of crashing the process.
const DefaultMaxCallDepth = 100

// Input is one named input source (a file's content, or stdin).
type Input struct {
	Name string
	Data []byte
}

// Config tunes one script execution.
type Config struct {
	// FS overrides the initial field separator (-F).
	FS string
	// Vars are pre-assignments applied before BEGIN (-v).
	Vars map[string]string
	// Output and Errors default to io.Discard when nil.
	Output io.Writer
	Errors io.Writer
	// Ctx is polled every statement; nil means Background.
	Ctx context.Context
	// MaxCallDepth defaults to DefaultMaxCallDepth when zero.
	MaxCallDepth int
}

// interp is the per-execution runtime state: global scopes, built-in
// variables, the current field array, and per-rule range-pattern state.
// Created fresh for every script run and discarded at the end.
type interp struct {
	prog *Program

	globals map[string]value
	arrays  map[string]map[string]value

	fs, rs, ofs, ors string
	subsep           string
	convfmt, ofmt    string
	nr, fnr          int
	filename         string
	rstart, rlength  float64

	f0     string
	fields []string

	out  io.Writer
	errw io.Writer
	ctx  context.Context

	frames   []*frame
	maxDepth int

	rangeActive []bool

	rngState int64
	prevSeed float64

	exitCode int
	exited   bool
}

type frame struct {
	params  map[string]bool
	scalars map[string]value
	arrays  map[string]map[string]value
}

// Exec parses and runs src in one call.
func Exec(src string, cfg Config, inputs []Input) (int, error) {
	prog, err := ParseProgram(src)
	if err != nil {
		return 1, err
	}
	return ExecProgram(prog, cfg, inputs)
}

// ExecProgram runs an already-parsed program. The returned exit code is the
// script's explicit exit code, or 0.
func ExecProgram(prog *Program, cfg Config, inputs []Input) (int, error) {
	in := &interp{
		prog:     prog,
		globals:  map[string]value{},
		arrays:   map[string]map[string]value{},
		fs:       " ",
		rs:       "\n",
		ofs:      " ",
		ors:      "\n",
		subsep:   "\x1c",
		convfmt:  "%.6g",
		ofmt:     "%.6g",
		out:      cfg.Output,
		errw:     cfg.Errors,
		ctx:      cfg.Ctx,
		maxDepth: cfg.MaxCallDepth,
	}
	if in.out == nil {
		in.out = io.Discard
	}
	if in.errw == nil {
		in.errw = io.Discard
	}
	if in.ctx == nil {
		in.ctx = context.Background()
	}
	if in.maxDepth <= 0 {
		in.maxDepth = DefaultMaxCallDepth
	}
	in.rangeActive = make([]bool, rangeCount(prog))
	if cfg.FS != "" {
		in.fs = cfg.FS
	}
	for name, val := range cfg.Vars {
		if err := in.setVar(name, strnum(val)); err != nil {
			return 2, err
		}
	}
	return in.run(inputs)
}

func rangeCount(prog *Program) int {
	n := 0
	for _, r := range prog.Rules {
		if r.pattern == patRange {
			n++
		}
	}
	return n
}

func (in *interp) cancelled() bool {
	select {
	case <-in.ctx.Done():
		return true
	default:
		return false
	}
}

// run drives the execution protocol: BEGIN blocks, the per-record rule
// loop, then END blocks (which run even when no records were read, unless
// an exit inside BEGIN stopped everything).
func (in *interp) run(inputs []Input) (int, error) {
	for _, block := range in.prog.Begin {
		c, err := in.execStmts(block)
		if err != nil {
			return in.errCode(err), err
		}
		if c.kind == ctrlExit {
			in.exited = true
			break
		}
	}

	// exit in BEGIN skips the input loop; END still runs
	if !in.exited && (len(in.prog.Rules) > 0 || len(in.prog.End) > 0) {
	inputLoop:
		for _, input := range inputs {
			in.filename = input.Name
			in.fnr = 0
			records := splitRecords(string(input.Data), in.rs)
			for _, record := range records {
				if in.cancelled() {
					return 130, ErrCancelled
				}
				in.nr++
				in.fnr++
				in.setRecord(record)
				c, err := in.execRules()
				if err != nil {
					return in.errCode(err), err
				}
				if c.kind == ctrlExit {
					break inputLoop
				}
			}
		}
	}

	// END blocks run even when the main loop was cut short by exit
	for _, block := range in.prog.End {
		c, err := in.execStmts(block)
		if err != nil {
			return in.errCode(err), err
		}
		if c.kind == ctrlExit {
			break
		}
	}
	return in.exitCode, nil
}

func (in *interp) errCode(err error) int {
	if errors.Is(err, ErrCancelled) {
		return 130
	}
	return 2
}

// execRules evaluates every rule in declared order against the current
// record; "next" aborts the remaining rules for this record only.
func (in *interp) execRules() (ctrl, error) {
	for _, r := range in.prog.Rules {
		matched, err := in.ruleMatches(r)
		if errors.Is(err, errExitInFunction) {
			return ctrl{kind: ctrlExit}, nil
		}
		if err != nil {
			return ctrl{}, err
		}
		if !matched {
			continue
		}
		var c ctrl
		if r.action == nil {
			// default action
			if err := in.printLine(in.f0); err != nil {
				return ctrl{}, err
			}
		} else {
			c, err = in.execStmts(r.action)
			if err != nil {
				return ctrl{}, err
			}
		}
		switch c.kind {
		case ctrlNext:
			return ctrl{}, nil
		case ctrlExit:
			return c, nil
		}
	}
	return ctrl{}, nil
}

func (in *interp) ruleMatches(r *rule) (bool, error) {
	switch r.pattern {
	case patAlways:
		return true, nil
	case patExpr:
		return in.evalPattern(r.expr)
	case patRange:
		active := in.rangeActive[r.rangeIdx]
		if active {
			end, err := in.evalPattern(r.rangeEnd)
			if err != nil {
				return false, err
			}
			if end {
				in.rangeActive[r.rangeIdx] = false
			}
			return true, nil
		}
		start, err := in.evalPattern(r.rangeStart)
		if err != nil || !start {
			return false, err
		}
		end, err := in.evalPattern(r.rangeEnd)
		if err != nil {
			return false, err
		}
		in.rangeActive[r.rangeIdx] = !end
		return true, nil
	}
	return false, nil
}

// evalPattern treats a bare regex as a match against $0.
func (in *interp) evalPattern(e expr) (bool, error) {
	if re, ok := e.(regexExpr); ok {
		return re.re.MatchString(in.f0), nil
	}
	v, err := in.eval(e)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// record and field handling

func (in *interp) setRecord(record string) {
	in.f0 = record
	in.fields = in.splitFields(record)
}

// splitFields implements the FS contract: " " splits on whitespace runs
// with leading/trailing trim, "" splits per character, a single character
// splits literally, anything longer is a regex.
func (in *interp) splitFields(s string) []string {
	return splitByFS(s, in.fs)
}

func splitByFS(s, fs string) []string {
	switch {
	case fs == " ":
		return strings.Fields(s)
	case fs == "":
		parts := make([]string, 0, len(s))
		for _, r := range s {
			parts = append(parts, string(r))
		}
		return parts
	case len(fs) == 1 && !strings.ContainsAny(fs, `\.[](){}*+?^$|`):
		if s == "" {
			return nil
		}
		return strings.Split(s, fs)
	default:
		re, err := compileRegex(fs)
		if err != nil {
			return strings.Fields(s)
		}
		if s == "" {
			return nil
		}
		return re.Split(s, -1)
	}
}

// splitRecords implements the RS contract, including paragraph mode for
// RS="" and the drop of one trailing empty record from a terminal
// separator.
func splitRecords(data, rs string) []string {
	if data == "" {
		return nil
	}
	if rs == "" {
		// paragraph mode: records separated by blank-line runs
		data = strings.Trim(data, "\n")
		if data == "" {
			return nil
		}
		re := regexp.MustCompile(`\n\n+`)
		return re.Split(data, -1)
	}
	var records []string
	if len(rs) == 1 {
		records = strings.Split(data, rs)
	} else {
		re, err := compileRegex(rs)
		if err != nil {
			records = strings.Split(data, "\n")
		} else {
			records = re.Split(data, -1)
		}
	}
	if len(records) > 0 && records[len(records)-1] == "" {
		records = records[:len(records)-1]
	}
	return records
}

func (in *interp) getField(i int) (value, error) {
	if i < 0 {
		return uninit, fmt.Errorf("access to negative field %d", i)
	}
	if i == 0 {
		return strnum(in.f0), nil
	}
	if i <= len(in.fields) {
		return strnum(in.fields[i-1]), nil
	}
	return strnum(""), nil
}

// setField implements the mutation rules: assigning $0 re-splits and
// recomputes NF; assigning $k pads the field array, raises NF if needed,
// and rebuilds $0 by joining fields 1..NF with OFS.
func (in *interp) setField(i int, s string) error {
	if i < 0 {
		return fmt.Errorf("access to negative field %d", i)
	}
	if i == 0 {
		in.setRecord(s)
		return nil
	}
	for len(in.fields) < i {
		in.fields = append(in.fields, "")
	}
	in.fields[i-1] = s
	in.f0 = strings.Join(in.fields, in.ofs)
	return nil
}

func (in *interp) setNF(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(in.fields) {
		in.fields = in.fields[:n]
	}
	for len(in.fields) < n {
		in.fields = append(in.fields, "")
	}
	in.f0 = strings.Join(in.fields, in.ofs)
}

// variable access

func (in *interp) getVar(name string) (value, error) {
	switch name {
	case "FS":
		return str(in.fs), nil
	case "RS":
		return str(in.rs), nil
	case "OFS":
		return str(in.ofs), nil
	case "ORS":
		return str(in.ors), nil
	case "SUBSEP":
		return str(in.subsep), nil
	case "CONVFMT":
		return str(in.convfmt), nil
	case "OFMT":
		return str(in.ofmt), nil
	case "NR":
		return num(float64(in.nr)), nil
	case "FNR":
		return num(float64(in.fnr)), nil
	case "NF":
		return num(float64(len(in.fields))), nil
	case "FILENAME":
		return str(in.filename), nil
	case "RSTART":
		return num(in.rstart), nil
	case "RLENGTH":
		return num(in.rlength), nil
	}
	if f := in.topFrame(); f != nil && f.params[name] {
		return f.scalars[name], nil
	}
	return in.globals[name], nil
}

func (in *interp) setVar(name string, v value) error {
	switch name {
	case "FS":
		in.fs = v.Str(in.convfmt)
		return nil
	case "RS":
		in.rs = v.Str(in.convfmt)
		return nil
	case "OFS":
		in.ofs = v.Str(in.convfmt)
		return nil
	case "ORS":
		in.ors = v.Str(in.convfmt)
		return nil
	case "SUBSEP":
		in.subsep = v.Str(in.convfmt)
		return nil
	case "CONVFMT":
		in.convfmt = v.Str(in.convfmt)
		return nil
	case "OFMT":
		in.ofmt = v.Str(in.convfmt)
		return nil
	case "NR":
		in.nr = int(v.Num())
		return nil
	case "FNR":
		in.fnr = int(v.Num())
		return nil
	case "NF":
		in.setNF(int(v.Num()))
		return nil
	case "FILENAME":
		in.filename = v.Str(in.convfmt)
		return nil
	case "RSTART":
		in.rstart = v.Num()
		return nil
	case "RLENGTH":
		in.rlength = v.Num()
		return nil
	}
	if f := in.topFrame(); f != nil && f.params[name] {
		f.scalars[name] = v
		return nil
	}
	in.globals[name] = v
	return nil
}

func (in *interp) topFrame() *frame {
	if len(in.frames) == 0 {
		return nil
	}
	return in.frames[len(in.frames)-1]
}

// array returns the associative array for a name, resolving through the
// local frame (arrays are shared by reference across calls).
func (in *interp) array(name string) map[string]value {
	if f := in.topFrame(); f != nil && f.params[name] {
		a := f.arrays[name]
		if a == nil {
			a = map[string]value{}
			f.arrays[name] = a
		}
		return a
	}
	a := in.arrays[name]
	if a == nil {
		a = map[string]value{}
		in.arrays[name] = a
	}
	return a
}

// subscript joins index values with SUBSEP into one composite key.
func (in *interp) subscript(idx []expr) (string, error) {
	parts := make([]string, len(idx))
	for i, e := range idx {
		v, err := in.eval(e)
		if err != nil {
			return "", err
		}
		parts[i] = v.Str(in.convfmt)
	}
	return strings.Join(parts, in.subsep), nil
}

// control flow as an explicit closed set of outcomes, threaded through
// statement execution instead of unwinding the stack.

type ctrlKind int

const (
	ctrlNormal ctrlKind = iota
	ctrlBreak
	ctrlContinue
	ctrlNext
	ctrlExit
	ctrlReturn
)

type ctrl struct {
	kind ctrlKind
	val  value
}

func (in *interp) execStmts(stmts []stmt) (ctrl, error) {
	for _, s := range stmts {
		if in.cancelled() {
			return ctrl{}, ErrCancelled
		}
		c, err := in.execStmt(s)
		if errors.Is(err, errExitInFunction) {
			return ctrl{kind: ctrlExit}, nil
		}
		if err != nil || c.kind != ctrlNormal {
			return c, err
		}
	}
	return ctrl{}, nil
}

// errExitInFunction carries an exit statement out of a user-function call,
// where control flow travels through expression evaluation.
var errExitInFunction = errors.New("exit during function call")

func (in *interp) execStmt(s stmt) (ctrl, error) {
	switch st := s.(type) {
	case exprStmt:
		_, err := in.eval(st.e)
		return ctrl{}, err
	case printStmt:
		return ctrl{}, in.execPrint(st)
	case ifStmt:
		cond, err := in.evalPattern(st.cond)
		if err != nil {
			return ctrl{}, err
		}
		if cond {
			return in.execStmts(st.then)
		}
		if st.els != nil {
			return in.execStmts(st.els)
		}
		return ctrl{}, nil
	case whileStmt:
		for {
			if in.cancelled() {
				return ctrl{}, ErrCancelled
			}
			cond, err := in.evalPattern(st.cond)
			if err != nil {
				return ctrl{}, err
			}
			if !cond {
				return ctrl{}, nil
			}
			c, err := in.execStmts(st.body)
			if err != nil {
				return ctrl{}, err
			}
			switch c.kind {
			case ctrlBreak:
				return ctrl{}, nil
			case ctrlNext, ctrlExit, ctrlReturn:
				return c, nil
			}
		}
	case doWhileStmt:
		for {
			if in.cancelled() {
				return ctrl{}, ErrCancelled
			}
			c, err := in.execStmts(st.body)
			if err != nil {
				return ctrl{}, err
			}
			switch c.kind {
			case ctrlBreak:
				return ctrl{}, nil
			case ctrlNext, ctrlExit, ctrlReturn:
				return c, nil
			}
			cond, err := in.evalPattern(st.cond)
			if err != nil {
				return ctrl{}, err
			}
			if !cond {
				return ctrl{}, nil
			}
		}
	case forStmt:
		if st.init != nil {
			if _, err := in.execStmt(st.init); err != nil {
				return ctrl{}, err
			}
		}
		for {
			if in.cancelled() {
				return ctrl{}, ErrCancelled
			}
			if st.cond != nil {
				cond, err := in.evalPattern(st.cond)
				if err != nil {
					return ctrl{}, err
				}
				if !cond {
					return ctrl{}, nil
				}
			}
			c, err := in.execStmts(st.body)
			if err != nil {
				return ctrl{}, err
			}
			switch c.kind {
			case ctrlBreak:
				return ctrl{}, nil
			case ctrlNext, ctrlExit, ctrlReturn:
				return c, nil
			}
			if st.post != nil {
				if _, err := in.execStmt(st.post); err != nil {
					return ctrl{}, err
				}
			}
		}
	case forInStmt:
		arr := in.array(st.array)
		keys := make([]string, 0, len(arr))
		for k := range arr {
			keys = append(keys, k)
		}
		for _, k := range keys {
			if in.cancelled() {
				return ctrl{}, ErrCancelled
			}
			if err := in.setVar(st.varName, strnum(k)); err != nil {
				return ctrl{}, err
			}
			c, err := in.execStmts(st.body)
			if err != nil {
				return ctrl{}, err
			}
			switch c.kind {
			case ctrlBreak:
				return ctrl{}, nil
			case ctrlNext, ctrlExit, ctrlReturn:
				return c, nil
			}
		}
		return ctrl{}, nil
	case nextStmt:
		return ctrl{kind: ctrlNext}, nil
	case breakStmt:
		return ctrl{kind: ctrlBreak}, nil
	case continueStmt:
		return ctrl{kind: ctrlContinue}, nil
	case exitStmt:
		if st.code != nil {
			v, err := in.eval(st.code)
			if err != nil {
				return ctrl{}, err
			}
			in.exitCode = int(v.Num())
		}
		in.exited = true
		return ctrl{kind: ctrlExit}, nil
	case returnStmt:
		var v value
		if st.val != nil {
			ev, err := in.eval(st.val)
			if err != nil {
				return ctrl{}, err
			}
			v = ev
		}
		return ctrl{kind: ctrlReturn, val: v}, nil
	case deleteStmt:
		arr := in.array(st.array)
		if st.idx == nil {
			for k := range arr {
				delete(arr, k)
			}
			return ctrl{}, nil
		}
		key, err := in.subscript(st.idx)
		if err != nil {
			return ctrl{}, err
		}
		delete(arr, key)
		return ctrl{}, nil
	}
	return ctrl{}, fmt.Errorf("unhandled statement %T", s)
}

func (in *interp) execPrint(st printStmt) error {
	out := in.out
	if st.dest != nil {
		// redirection target is evaluated for side effects only; with no
		// file or process streams to open, redirected output is discarded
		if _, err := in.eval(st.dest); err != nil {
			return err
		}
		out = io.Discard
	}
	if st.formatted {
		vals := make([]value, len(st.args)-1)
		format, err := in.eval(st.args[0])
		if err != nil {
			return err
		}
		for i, a := range st.args[1:] {
			v, verr := in.eval(a)
			if verr != nil {
				return verr
			}
			vals[i] = v
		}
		s, ferr := in.sprintf(format.Str(in.convfmt), vals)
		if ferr != nil {
			return ferr
		}
		_, werr := io.WriteString(out, s)
		return werr
	}
	if len(st.args) == 0 {
		return in.writeLine(out, in.f0)
	}
	parts := make([]string, len(st.args))
	for i, a := range st.args {
		v, err := in.eval(a)
		if err != nil {
			return err
		}
		parts[i] = in.outputString(v)
	}
	return in.writeLine(out, strings.Join(parts, in.ofs))
}

// outputString renders a value for print, using OFMT for non-integral
// numbers.
func (in *interp) outputString(v value) string {
	if v.kind == kindNum {
		return formatNum(v.n, in.ofmt)
	}
	return v.Str(in.convfmt)
}

func (in *interp) printLine(s string) error {
	return in.writeLine(in.out, s)
}

func (in *interp) writeLine(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+in.ors)
	return err
}
