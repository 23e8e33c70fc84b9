package awk

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

func (in *interp) eval(e expr) (value, error) {
	switch ex := e.(type) {
	case numExpr:
		return num(ex.n), nil
	case strExpr:
		return str(ex.s), nil
	case regexExpr:
		// a bare regex in expression position matches against $0
		return boolNum(ex.re.MatchString(in.f0)), nil
	case fieldExpr:
		idx, err := in.eval(ex.idx)
		if err != nil {
			return uninit, err
		}
		return in.getField(int(idx.Num()))
	case varExpr:
		return in.getVar(ex.name)
	case indexExpr:
		key, err := in.subscript(ex.idx)
		if err != nil {
			return uninit, err
		}
		arr := in.array(ex.name)
		v, ok := arr[key]
		if !ok {
			// referencing a subscript creates it, as the in operator observes
			arr[key] = uninit
		}
		return v, nil
	case assignExpr:
		return in.evalAssign(ex)
	case incDecExpr:
		old, err := in.eval(ex.target)
		if err != nil {
			return uninit, err
		}
		delta := 1.0
		if ex.decr {
			delta = -1
		}
		updated := num(old.Num() + delta)
		if err := in.assign(ex.target, updated); err != nil {
			return uninit, err
		}
		if ex.pre {
			return updated, nil
		}
		return num(old.Num()), nil
	case binaryExpr:
		return in.evalBinary(ex)
	case concatExpr:
		var b strings.Builder
		for _, p := range ex.parts {
			v, err := in.eval(p)
			if err != nil {
				return uninit, err
			}
			b.WriteString(v.Str(in.convfmt))
		}
		return str(b.String()), nil
	case unaryExpr:
		v, err := in.eval(ex.x)
		if err != nil {
			return uninit, err
		}
		switch ex.op {
		case tMinus:
			return num(-v.Num()), nil
		case tPlus:
			return num(v.Num()), nil
		case tNot:
			return boolNum(!v.Bool()), nil
		}
		return uninit, fmt.Errorf("unknown unary operator %v", ex.op)
	case matchExpr:
		return in.evalMatch(ex)
	case ternaryExpr:
		cond, err := in.eval(ex.cond)
		if err != nil {
			return uninit, err
		}
		if cond.Bool() {
			return in.eval(ex.a)
		}
		return in.eval(ex.b)
	case inExpr:
		key, err := in.subscript(ex.idx)
		if err != nil {
			return uninit, err
		}
		_, ok := in.array(ex.array)[key]
		return boolNum(ok), nil
	case callExpr:
		return in.call(ex)
	case getlineExpr:
		// no live input sources exist at evaluation time; getline reports
		// "no more input" so scripts using the read-loop idiom terminate
		if ex.src != nil {
			if _, err := in.eval(ex.src); err != nil {
				return uninit, err
			}
		}
		return num(0), nil
	}
	return uninit, fmt.Errorf("unhandled expression %T", e)
}

func (in *interp) assign(target expr, v value) error {
	switch t := target.(type) {
	case varExpr:
		return in.setVar(t.name, v)
	case fieldExpr:
		idx, err := in.eval(t.idx)
		if err != nil {
			return err
		}
		return in.setField(int(idx.Num()), v.Str(in.convfmt))
	case indexExpr:
		key, err := in.subscript(t.idx)
		if err != nil {
			return err
		}
		in.array(t.name)[key] = v
		return nil
	}
	return fmt.Errorf("cannot assign to %T", target)
}

func (in *interp) evalAssign(ex assignExpr) (value, error) {
	rhs, err := in.eval(ex.value)
	if err != nil {
		return uninit, err
	}
	if ex.op == tAssign {
		if err := in.assign(ex.target, rhs); err != nil {
			return uninit, err
		}
		return rhs, nil
	}
	old, err := in.eval(ex.target)
	if err != nil {
		return uninit, err
	}
	var arithOp tokType
	switch ex.op {
	case tAddAssign:
		arithOp = tPlus
	case tSubAssign:
		arithOp = tMinus
	case tMulAssign:
		arithOp = tStar
	case tDivAssign:
		arithOp = tSlash
	case tModAssign:
		arithOp = tPercent
	case tPowAssign:
		arithOp = tCaret
	default:
		return uninit, fmt.Errorf("unknown assignment operator %v", ex.op)
	}
	res, err := arith(arithOp, old.Num(), rhs.Num())
	if err != nil {
		return uninit, err
	}
	v := num(res)
	if err := in.assign(ex.target, v); err != nil {
		return uninit, err
	}
	return v, nil
}

func (in *interp) evalBinary(ex binaryExpr) (value, error) {
	switch ex.op {
	case tAnd:
		l, err := in.eval(ex.l)
		if err != nil {
			return uninit, err
		}
		if !l.Bool() {
			return num(0), nil
		}
		r, err := in.eval(ex.r)
		if err != nil {
			return uninit, err
		}
		return boolNum(r.Bool()), nil
	case tOr:
		l, err := in.eval(ex.l)
		if err != nil {
			return uninit, err
		}
		if l.Bool() {
			return num(1), nil
		}
		r, err := in.eval(ex.r)
		if err != nil {
			return uninit, err
		}
		return boolNum(r.Bool()), nil
	}
	l, err := in.eval(ex.l)
	if err != nil {
		return uninit, err
	}
	r, err := in.eval(ex.r)
	if err != nil {
		return uninit, err
	}
	switch ex.op {
	case tLt, tLe, tGt, tGe, tEq, tNe:
		cmp := compareValues(l, r, in.convfmt)
		switch ex.op {
		case tLt:
			return boolNum(cmp < 0), nil
		case tLe:
			return boolNum(cmp <= 0), nil
		case tGt:
			return boolNum(cmp > 0), nil
		case tGe:
			return boolNum(cmp >= 0), nil
		case tEq:
			return boolNum(cmp == 0), nil
		default:
			return boolNum(cmp != 0), nil
		}
	}
	res, err := arith(ex.op, l.Num(), r.Num())
	if err != nil {
		return uninit, err
	}
	return num(res), nil
}

func arith(op tokType, l, r float64) (float64, error) {
	switch op {
	case tPlus:
		return l + r, nil
	case tMinus:
		return l - r, nil
	case tStar:
		return l * r, nil
	case tSlash:
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case tPercent:
		if r == 0 {
			return 0, fmt.Errorf("division by zero in %%")
		}
		return math.Mod(l, r), nil
	case tCaret:
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("unknown operator %v", op)
}

func (in *interp) evalMatch(ex matchExpr) (value, error) {
	l, err := in.eval(ex.l)
	if err != nil {
		return uninit, err
	}
	re, err := in.regexOperand(ex.r)
	if err != nil {
		return uninit, err
	}
	matched := re != nil && re.MatchString(l.Str(in.convfmt))
	if ex.negate {
		matched = !matched
	}
	return boolNum(matched), nil
}

// regexOperand resolves the right side of ~ / !~ and regex-taking
// built-ins: a regex literal uses its compiled form; any other expression
// is a dynamic regex compiled from its string value. An invalid dynamic
// pattern is treated as matching nothing rather than aborting the script.
func (in *interp) regexOperand(e expr) (*regexp.Regexp, error) {
	if re, ok := e.(regexExpr); ok {
		return re.re, nil
	}
	v, err := in.eval(e)
	if err != nil {
		return nil, err
	}
	re, err := compileRegex(v.Str(in.convfmt))
	if err != nil {
		return nil, nil
	}
	return re, nil
}

// call dispatches built-ins first; the built-in namespace is reserved and
// cannot be shadowed by user functions.
func (in *interp) call(ex callExpr) (value, error) {
	if v, handled, err := in.callBuiltin(ex.name, ex.args); handled {
		return v, err
	}
	fn, ok := in.prog.Functions[ex.name]
	if !ok {
		return uninit, fmt.Errorf("call to undefined function %q", ex.name)
	}
	return in.callUser(fn, ex.args)
}

// callUser binds scalar arguments by value and array arguments by
// reference, runs the body, and yields the return value (uninitialized
// when the function falls off the end).
func (in *interp) callUser(fn *function, args []expr) (value, error) {
	if len(in.frames) >= in.maxDepth {
		return uninit, fmt.Errorf("call stack depth exceeded calling %q (limit %d)", fn.name, in.maxDepth)
	}
	if len(args) > len(fn.params) {
		return uninit, fmt.Errorf("function %q called with %d args, accepts %d", fn.name, len(args), len(fn.params))
	}
	f := &frame{
		params:  map[string]bool{},
		scalars: map[string]value{},
		arrays:  map[string]map[string]value{},
	}
	for i, p := range fn.params {
		f.params[p] = true
		if i >= len(args) {
			continue
		}
		if ve, ok := args[i].(varExpr); ok && in.isArray(ve.name) {
			f.arrays[p] = in.array(ve.name)
			continue
		}
		v, err := in.eval(args[i])
		if err != nil {
			return uninit, err
		}
		f.scalars[p] = v
	}
	in.frames = append(in.frames, f)
	c, err := in.execStmts(fn.body)
	in.frames = in.frames[:len(in.frames)-1]
	if err != nil {
		return uninit, err
	}
	switch c.kind {
	case ctrlReturn:
		return c.val, nil
	case ctrlExit:
		in.exited = true
		return uninit, errExitInFunction
	}
	return uninit, nil
}

func (in *interp) isArray(name string) bool {
	if f := in.topFrame(); f != nil && f.params[name] {
		_, ok := f.arrays[name]
		return ok
	}
	_, ok := in.arrays[name]
	return ok
}
