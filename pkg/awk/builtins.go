package awk

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// callBuiltin evaluates a built-in function call. The boolean result is
// false when name is not a built-in, letting the caller fall through to
// user functions.
func (in *interp) callBuiltin(name string, args []expr) (value, bool, error) {
	switch name {
	case "length":
		v, err := in.builtinLength(args)
		return v, true, err
	case "substr":
		v, err := in.builtinSubstr(args)
		return v, true, err
	case "index":
		v, err := in.builtinIndex(args)
		return v, true, err
	case "split":
		v, err := in.builtinSplit(args)
		return v, true, err
	case "sub":
		v, err := in.builtinSub(args, false)
		return v, true, err
	case "gsub":
		v, err := in.builtinSub(args, true)
		return v, true, err
	case "match":
		v, err := in.builtinMatch(args)
		return v, true, err
	case "sprintf":
		v, err := in.builtinSprintf(args)
		return v, true, err
	case "tolower":
		v, err := in.strArg(args, name)
		if err != nil {
			return uninit, true, err
		}
		return str(strings.ToLower(v)), true, nil
	case "toupper":
		v, err := in.strArg(args, name)
		if err != nil {
			return uninit, true, err
		}
		return str(strings.ToUpper(v)), true, nil
	case "sin", "cos", "exp", "log", "sqrt", "int":
		v, err := in.mathArg(args, name)
		return v, true, err
	case "atan2":
		if len(args) != 2 {
			return uninit, true, fmt.Errorf("atan2 requires 2 arguments, got %d", len(args))
		}
		y, err := in.eval(args[0])
		if err != nil {
			return uninit, true, err
		}
		x, err := in.eval(args[1])
		if err != nil {
			return uninit, true, err
		}
		return num(math.Atan2(y.Num(), x.Num())), true, nil
	case "rand":
		return num(in.nextRand()), true, nil
	case "srand":
		v, err := in.builtinSrand(args)
		return v, true, err
	case "system":
		// command execution is not available to scripts; the call is
		// evaluated for argument side effects and reports failure
		for _, a := range args {
			if _, err := in.eval(a); err != nil {
				return uninit, true, err
			}
		}
		return num(-1), true, nil
	case "close":
		for _, a := range args {
			if _, err := in.eval(a); err != nil {
				return uninit, true, err
			}
		}
		return num(-1), true, nil
	}
	return uninit, false, nil
}

func (in *interp) strArg(args []expr, name string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s requires 1 argument, got %d", name, len(args))
	}
	v, err := in.eval(args[0])
	if err != nil {
		return "", err
	}
	return v.Str(in.convfmt), nil
}

func (in *interp) mathArg(args []expr, name string) (value, error) {
	if len(args) != 1 {
		return uninit, fmt.Errorf("%s requires 1 argument, got %d", name, len(args))
	}
	v, err := in.eval(args[0])
	if err != nil {
		return uninit, err
	}
	n := v.Num()
	switch name {
	case "sin":
		return num(math.Sin(n)), nil
	case "cos":
		return num(math.Cos(n)), nil
	case "exp":
		return num(math.Exp(n)), nil
	case "log":
		return num(math.Log(n)), nil
	case "sqrt":
		return num(math.Sqrt(n)), nil
	case "int":
		return num(math.Trunc(n)), nil
	}
	return uninit, fmt.Errorf("unknown math function %q", name)
}

func (in *interp) builtinLength(args []expr) (value, error) {
	if len(args) == 0 {
		return num(float64(len(in.f0))), nil
	}
	if len(args) != 1 {
		return uninit, fmt.Errorf("length requires at most 1 argument, got %d", len(args))
	}
	if ve, ok := args[0].(varExpr); ok && in.isArray(ve.name) {
		return num(float64(len(in.array(ve.name)))), nil
	}
	v, err := in.eval(args[0])
	if err != nil {
		return uninit, err
	}
	return num(float64(len(v.Str(in.convfmt)))), nil
}

// builtinSubstr clamps out-of-range positions the POSIX way: character
// positions before 1 shrink the effective length, anything past the end
// yields the empty string.
func (in *interp) builtinSubstr(args []expr) (value, error) {
	if len(args) < 2 || len(args) > 3 {
		return uninit, fmt.Errorf("substr requires 2 or 3 arguments, got %d", len(args))
	}
	sv, err := in.eval(args[0])
	if err != nil {
		return uninit, err
	}
	s := sv.Str(in.convfmt)
	mv, err := in.eval(args[1])
	if err != nil {
		return uninit, err
	}
	start := int(math.Trunc(mv.Num()))
	length := len(s)
	if len(args) == 3 {
		nv, err := in.eval(args[2])
		if err != nil {
			return uninit, err
		}
		length = int(math.Trunc(nv.Num()))
	}
	if start < 1 {
		length += start - 1
		start = 1
	}
	if start > len(s) || length <= 0 {
		return str(""), nil
	}
	end := start - 1 + length
	if end > len(s) {
		end = len(s)
	}
	return str(s[start-1 : end]), nil
}

func (in *interp) builtinIndex(args []expr) (value, error) {
	if len(args) != 2 {
		return uninit, fmt.Errorf("index requires 2 arguments, got %d", len(args))
	}
	sv, err := in.eval(args[0])
	if err != nil {
		return uninit, err
	}
	tv, err := in.eval(args[1])
	if err != nil {
		return uninit, err
	}
	return num(float64(strings.Index(sv.Str(in.convfmt), tv.Str(in.convfmt)) + 1)), nil
}

// builtinSplit clears the target array, splits with the given separator
// (or FS when absent) under the same rules as record field splitting, and
// returns the element count. Elements are keyed "1".."n" and carry strnum
// semantics.
func (in *interp) builtinSplit(args []expr) (value, error) {
	if len(args) < 2 || len(args) > 3 {
		return uninit, fmt.Errorf("split requires 2 or 3 arguments, got %d", len(args))
	}
	sv, err := in.eval(args[0])
	if err != nil {
		return uninit, err
	}
	target, ok := args[1].(varExpr)
	if !ok {
		return uninit, fmt.Errorf("second argument to split must be an array name")
	}
	fs := in.fs
	if len(args) == 3 {
		if re, isRe := args[2].(regexExpr); isRe {
			fs = re.src
		} else {
			fv, err := in.eval(args[2])
			if err != nil {
				return uninit, err
			}
			fs = fv.Str(in.convfmt)
		}
	}
	arr := in.array(target.name)
	for k := range arr {
		delete(arr, k)
	}
	parts := splitByFS(sv.Str(in.convfmt), fs)
	for i, p := range parts {
		arr[fmt.Sprintf("%d", i+1)] = strnum(p)
	}
	return num(float64(len(parts))), nil
}

// builtinSub implements sub and gsub: replace the first (or every) match
// of the pattern in the target lvalue, honoring & and \& in the
// replacement, and return the substitution count.
func (in *interp) builtinSub(args []expr, global bool) (value, error) {
	name := "sub"
	if global {
		name = "gsub"
	}
	if len(args) < 2 || len(args) > 3 {
		return uninit, fmt.Errorf("%s requires 2 or 3 arguments, got %d", name, len(args))
	}
	re, err := in.regexOperand(args[0])
	if err != nil {
		return uninit, err
	}
	rv, err := in.eval(args[1])
	if err != nil {
		return uninit, err
	}
	repl := rv.Str(in.convfmt)
	var target expr = fieldExpr{idx: numExpr{n: 0}}
	if len(args) == 3 {
		target = args[2]
	}
	cur, err := in.eval(target)
	if err != nil {
		return uninit, err
	}
	if re == nil {
		return num(0), nil
	}
	out, count := substitute(re, cur.Str(in.convfmt), repl, global)
	if count > 0 {
		if err := in.assign(target, str(out)); err != nil {
			return uninit, err
		}
	}
	return num(float64(count)), nil
}

func substitute(re *regexp.Regexp, s, repl string, global bool) (string, int) {
	count := 0
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if !global && count == 1 {
			break
		}
		// empty matches directly after a previous match are skipped to
		// avoid inserting between every character twice
		if loc[0] == loc[1] && loc[0] == last && count > 0 {
			continue
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(expandRepl(repl, s[loc[0]:loc[1]]))
		last = loc[1]
		count++
	}
	b.WriteString(s[last:])
	return b.String(), count
}

// expandRepl interprets & as the matched text and \& as a literal
// ampersand in a sub/gsub replacement.
func expandRepl(repl, matched string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c == '\\' && i+1 < len(repl) {
			next := repl[i+1]
			if next == '&' || next == '\\' {
				b.WriteByte(next)
				i++
				continue
			}
			b.WriteByte(c)
			continue
		}
		if c == '&' {
			b.WriteString(matched)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// builtinMatch sets RSTART and RLENGTH as side effects and returns RSTART.
func (in *interp) builtinMatch(args []expr) (value, error) {
	if len(args) != 2 {
		return uninit, fmt.Errorf("match requires 2 arguments, got %d", len(args))
	}
	sv, err := in.eval(args[0])
	if err != nil {
		return uninit, err
	}
	re, err := in.regexOperand(args[1])
	if err != nil {
		return uninit, err
	}
	s := sv.Str(in.convfmt)
	var loc []int
	if re != nil {
		loc = re.FindStringIndex(s)
	}
	if loc == nil {
		in.rstart = 0
		in.rlength = -1
		return num(0), nil
	}
	in.rstart = float64(loc[0] + 1)
	in.rlength = float64(loc[1] - loc[0])
	return num(in.rstart), nil
}

func (in *interp) builtinSprintf(args []expr) (value, error) {
	if len(args) == 0 {
		return uninit, fmt.Errorf("sprintf requires a format argument")
	}
	fv, err := in.eval(args[0])
	if err != nil {
		return uninit, err
	}
	vals := make([]value, len(args)-1)
	for i, a := range args[1:] {
		v, err := in.eval(a)
		if err != nil {
			return uninit, err
		}
		vals[i] = v
	}
	s, err := in.sprintf(fv.Str(in.convfmt), vals)
	if err != nil {
		return uninit, err
	}
	return str(s), nil
}

// nextRand advances a classic linear congruential generator so rand()
// sequences are reproducible across platforms for a given seed.
func (in *interp) nextRand() float64 {
	in.rngState = in.rngState*1103515245 + 12345
	return float64((in.rngState>>16)&0x7fff) / 32768.0
}

// builtinSrand reseeds and returns the previous seed, as POSIX requires.
// Without an argument the seed resets to zero so runs stay deterministic.
func (in *interp) builtinSrand(args []expr) (value, error) {
	if len(args) > 1 {
		return uninit, fmt.Errorf("srand requires at most 1 argument, got %d", len(args))
	}
	seed := 0.0
	if len(args) == 1 {
		v, err := in.eval(args[0])
		if err != nil {
			return uninit, err
		}
		seed = v.Num()
	}
	prev := in.prevSeed
	in.prevSeed = seed
	in.rngState = int64(seed)
	return num(prev), nil
}
