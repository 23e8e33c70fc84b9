package awk

import (
	"fmt"
	"regexp"
	"sync"
)

// ParseProgram lexes and parses AWK source into a Program. Any lexical or
// grammatical error aborts the whole invocation before a single record is
// processed.
func ParseProgram(src string) (*Program, error) {
	toks, err := lexProgram(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseProgram()
}

type parser struct {
	toks       []tok
	pos        int
	rangeCount int
	// noGt disables '>' '>>' '|' as binary operators while parsing print
	// argument lists, where they mean redirection.
	noGt bool
}

func (p *parser) cur() tok { return p.toks[p.pos] }
func (p *parser) peek() tok {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return tok{typ: tEOF}
}

func (p *parser) advance() tok {
	t := p.toks[p.pos]
	if t.typ != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(typ tokType) bool { return p.cur().typ == typ }

func (p *parser) accept(typ tokType) bool {
	if p.at(typ) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(typ tokType, what string) (tok, error) {
	if !p.at(typ) {
		return tok{}, p.errf("expected %s, got %s", what, p.cur())
	}
	return p.advance(), nil
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.cur().line, fmt.Sprintf(format, args...))
}

func (p *parser) skipNewlines() {
	for p.at(tNewline) {
		p.advance()
	}
}

func (p *parser) skipTerminators() {
	for p.at(tNewline) || p.at(tSemicolon) {
		p.advance()
	}
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{Functions: map[string]*function{}}
	for {
		p.skipTerminators()
		if p.at(tEOF) {
			return prog, nil
		}
		switch p.cur().typ {
		case tBegin:
			p.advance()
			p.skipNewlines()
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			prog.Begin = append(prog.Begin, block)
		case tEnd:
			p.advance()
			p.skipNewlines()
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			prog.End = append(prog.End, block)
		case tFunction:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			if _, dup := prog.Functions[fn.name]; dup {
				return nil, p.errf("function %s redefined", fn.name)
			}
			prog.Functions[fn.name] = fn
		default:
			r, err := p.parseRule()
			if err != nil {
				return nil, err
			}
			prog.Rules = append(prog.Rules, r)
		}
	}
}

func (p *parser) parseFunction() (*function, error) {
	p.advance() // function keyword
	name := p.cur()
	if name.typ != tFuncName && name.typ != tName {
		return nil, p.errf("expected function name, got %s", name)
	}
	p.advance()
	if _, err := p.expect(tLParen, "'('"); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(tRParen) {
		t, err := p.expect(tName, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, t.text)
		if !p.accept(tComma) {
			break
		}
		p.skipNewlines()
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &function{name: name.text, params: params, body: body}, nil
}

func (p *parser) parseRule() (*rule, error) {
	r := &rule{pattern: patAlways}
	if !p.at(tLBrace) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		r.pattern = patExpr
		r.expr = e
		if p.accept(tComma) {
			p.skipNewlines()
			end, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			r.pattern = patRange
			r.rangeStart = e
			r.rangeEnd = end
			r.rangeIdx = p.rangeCount
			p.rangeCount++
		}
	}
	if p.at(tLBrace) {
		action, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		r.action = action
	} else if r.pattern == patAlways {
		return nil, p.errf("expected pattern or action, got %s", p.cur())
	}
	// nil action means the default "print $0"
	return r, nil
}

func (p *parser) parseBlock() ([]stmt, error) {
	if _, err := p.expect(tLBrace, "'{'"); err != nil {
		return nil, err
	}
	var stmts []stmt
	for {
		p.skipTerminators()
		if p.accept(tRBrace) {
			return stmts, nil
		}
		if p.at(tEOF) {
			return nil, p.errf("unexpected end of program, expected '}'")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
}

// parseBody parses either a braced block or a single statement, the body of
// an if/while/for.
func (p *parser) parseBody() ([]stmt, error) {
	p.skipNewlines()
	if p.at(tLBrace) {
		return p.parseBlock()
	}
	s, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return []stmt{s}, nil
}

func (p *parser) parseStatement() (stmt, error) {
	switch p.cur().typ {
	case tLBrace:
		stmts, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return ifStmt{cond: numExpr{n: 1}, then: stmts}, nil
	case tIf:
		return p.parseIf()
	case tWhile:
		return p.parseWhile()
	case tDo:
		return p.parseDoWhile()
	case tFor:
		return p.parseFor()
	case tNext:
		p.advance()
		return nextStmt{}, nil
	case tBreak:
		p.advance()
		return breakStmt{}, nil
	case tContinue:
		p.advance()
		return continueStmt{}, nil
	case tExit:
		p.advance()
		var code expr
		if p.startsExpr() {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			code = e
		}
		return exitStmt{code: code}, nil
	case tReturn:
		p.advance()
		var val expr
		if p.startsExpr() {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			val = e
		}
		return returnStmt{val: val}, nil
	case tDelete:
		return p.parseDelete()
	case tPrint, tPrintf:
		return p.parsePrint()
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return exprStmt{e: e}, nil
}

func (p *parser) parseIf() (stmt, error) {
	p.advance()
	if _, err := p.expect(tLParen, "'(' after if"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	save := p.pos
	p.skipTerminators()
	if p.accept(tElse) {
		els, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		return ifStmt{cond: cond, then: then, els: els}, nil
	}
	p.pos = save
	return ifStmt{cond: cond, then: then}, nil
}

func (p *parser) parseWhile() (stmt, error) {
	p.advance()
	if _, err := p.expect(tLParen, "'(' after while"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return whileStmt{cond: cond, body: body}, nil
}

func (p *parser) parseDoWhile() (stmt, error) {
	p.advance()
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	p.skipTerminators()
	if _, err := p.expect(tWhile, "'while' after do body"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	return doWhileStmt{body: body, cond: cond}, nil
}

func (p *parser) parseFor() (stmt, error) {
	p.advance()
	if _, err := p.expect(tLParen, "'(' after for"); err != nil {
		return nil, err
	}
	// for (name in array)
	if p.at(tName) && p.peek().typ == tIn {
		varName := p.advance().text
		p.advance() // in
		arr, err := p.expect(tName, "array name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		return forInStmt{varName: varName, array: arr.text, body: body}, nil
	}
	var init, post stmt
	if !p.at(tSemicolon) {
		s, err := p.parseSimpleStatement()
		if err != nil {
			return nil, err
		}
		init = s
	}
	if _, err := p.expect(tSemicolon, "';' in for"); err != nil {
		return nil, err
	}
	var cond expr
	if !p.at(tSemicolon) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = e
	}
	if _, err := p.expect(tSemicolon, "';' in for"); err != nil {
		return nil, err
	}
	if !p.at(tRParen) {
		s, err := p.parseSimpleStatement()
		if err != nil {
			return nil, err
		}
		post = s
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return forStmt{init: init, cond: cond, post: post, body: body}, nil
}

// parseSimpleStatement is the restricted statement allowed in for headers.
func (p *parser) parseSimpleStatement() (stmt, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return exprStmt{e: e}, nil
}

func (p *parser) parseDelete() (stmt, error) {
	p.advance()
	name, err := p.expect(tName, "array name after delete")
	if err != nil {
		return nil, err
	}
	if p.accept(tLBracket) {
		idx, ierr := p.parseExprList(tRBracket)
		if ierr != nil {
			return nil, ierr
		}
		if _, eerr := p.expect(tRBracket, "']'"); eerr != nil {
			return nil, eerr
		}
		return deleteStmt{array: name.text, idx: idx}, nil
	}
	return deleteStmt{array: name.text}, nil
}

func (p *parser) parsePrint() (stmt, error) {
	formatted := p.advance().typ == tPrintf
	st := printStmt{formatted: formatted}

	if p.startsExpr() {
		p.noGt = true
		args, err := p.parsePrintArgs()
		p.noGt = false
		if err != nil {
			return nil, err
		}
		st.args = args
	}
	if formatted && len(st.args) == 0 {
		return nil, p.errf("printf requires a format argument")
	}
	// redirection target parses but is inert in this embedded form
	if p.at(tGt) || p.at(tAppend) || p.at(tPipe) {
		p.advance()
		dest, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.dest = dest
	}
	return st, nil
}

// parsePrintArgs handles the optional parenthesised form "print (a, b)" as
// well as the bare list.
func (p *parser) parsePrintArgs() ([]expr, error) {
	var args []expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if !p.accept(tComma) {
			return args, nil
		}
		p.skipNewlines()
	}
}

func (p *parser) parseExprList(terminator tokType) ([]expr, error) {
	// inside brackets '>' is unambiguous again, even mid-print
	saved := p.noGt
	p.noGt = false
	defer func() { p.noGt = saved }()
	var list []expr
	for !p.at(terminator) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.accept(tComma) {
			break
		}
		p.skipNewlines()
	}
	return list, nil
}

// startsExpr reports whether the current token can begin an expression.
func (p *parser) startsExpr() bool {
	switch p.cur().typ {
	case tNumber, tString, tRegex, tName, tFuncName, tDollar, tNot,
		tMinus, tPlus, tLParen, tIncr, tDecr, tGetline:
		return true
	}
	return false
}

// startsOperand is startsExpr minus the leading +/- signs; used for
// implicit concatenation so "1 -2" stays subtraction.
func (p *parser) startsOperand() bool {
	switch p.cur().typ {
	case tNumber, tString, tRegex, tName, tFuncName, tDollar, tNot, tLParen, tIncr, tDecr:
		return true
	}
	return false
}

// expression precedence ladder

func (p *parser) parseExpr() (expr, error) {
	return p.parseAssign()
}

func (p *parser) parseAssign() (expr, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	switch p.cur().typ {
	case tAssign, tAddAssign, tSubAssign, tMulAssign, tDivAssign, tModAssign, tPowAssign:
		if !isLvalue(left) {
			return nil, p.errf("assignment to non-lvalue")
		}
		op := p.advance().typ
		p.skipNewlines()
		right, rerr := p.parseAssign()
		if rerr != nil {
			return nil, rerr
		}
		return assignExpr{target: left, op: op, value: right}, nil
	}
	// "cmd" | getline [var] — parsed for compatibility, inert at runtime
	if p.at(tPipe) && p.peek().typ == tGetline {
		p.advance()
		g, gerr := p.parseGetline()
		if gerr != nil {
			return nil, gerr
		}
		gl := g.(getlineExpr)
		gl.src = left
		return gl, nil
	}
	return left, nil
}

func isLvalue(e expr) bool {
	switch e.(type) {
	case varExpr, fieldExpr, indexExpr:
		return true
	}
	return false
}

func (p *parser) parseTernary() (expr, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.accept(tQuestion) {
		return cond, nil
	}
	p.skipNewlines()
	a, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tColon, "':'"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	b, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return ternaryExpr{cond: cond, a: a, b: b}, nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(tOr) {
		p.advance()
		p.skipNewlines()
		right, rerr := p.parseAnd()
		if rerr != nil {
			return nil, rerr
		}
		left = binaryExpr{op: tOr, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseIn()
	if err != nil {
		return nil, err
	}
	for p.at(tAnd) {
		p.advance()
		p.skipNewlines()
		right, rerr := p.parseIn()
		if rerr != nil {
			return nil, rerr
		}
		left = binaryExpr{op: tAnd, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseIn() (expr, error) {
	left, err := p.parseMatch()
	if err != nil {
		return nil, err
	}
	for p.at(tIn) {
		p.advance()
		arr, aerr := p.expect(tName, "array name after in")
		if aerr != nil {
			return nil, aerr
		}
		left = inExpr{idx: []expr{left}, array: arr.text}
	}
	return left, nil
}

func (p *parser) parseMatch() (expr, error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.at(tMatch) || p.at(tNotMatch) {
		negate := p.advance().typ == tNotMatch
		right, rerr := p.parseCompare()
		if rerr != nil {
			return nil, rerr
		}
		left = matchExpr{l: left, r: right, negate: negate}
	}
	return left, nil
}

// parseCompare is non-associative: "a < b < c" is a parse error in awk.
func (p *parser) parseCompare() (expr, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	switch p.cur().typ {
	case tLt, tLe, tNe, tEq, tGe:
	case tGt:
		if p.noGt {
			return left, nil
		}
	default:
		return left, nil
	}
	op := p.advance().typ
	p.skipNewlines()
	right, rerr := p.parseConcat()
	if rerr != nil {
		return nil, rerr
	}
	return binaryExpr{op: op, l: left, r: right}, nil
}

func (p *parser) parseConcat() (expr, error) {
	first, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !p.startsOperand() {
		return first, nil
	}
	parts := []expr{first}
	for p.startsOperand() {
		// "in" after a parenthesised list is handled at primary level;
		// getline as a concat operand is not valid
		next, nerr := p.parseAdditive()
		if nerr != nil {
			return nil, nerr
		}
		parts = append(parts, next)
	}
	return concatExpr{parts: parts}, nil
}

func (p *parser) parseAdditive() (expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at(tPlus) || p.at(tMinus) {
		op := p.advance().typ
		p.skipNewlines()
		right, rerr := p.parseTerm()
		if rerr != nil {
			return nil, rerr
		}
		left = binaryExpr{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(tStar) || p.at(tSlash) || p.at(tPercent) {
		op := p.advance().typ
		p.skipNewlines()
		right, rerr := p.parseUnary()
		if rerr != nil {
			return nil, rerr
		}
		left = binaryExpr{op: op, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (expr, error) {
	switch p.cur().typ {
	case tNot, tMinus, tPlus:
		op := p.advance().typ
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: op, x: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.accept(tCaret) {
		// right associative
		exp, eerr := p.parseUnary()
		if eerr != nil {
			return nil, eerr
		}
		return binaryExpr{op: tCaret, l: base, r: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePostfix() (expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for (p.at(tIncr) || p.at(tDecr)) && isLvalue(e) {
		decr := p.advance().typ == tDecr
		e = incDecExpr{target: e, pre: false, decr: decr}
	}
	return e, nil
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.cur()
	switch t.typ {
	case tNumber:
		p.advance()
		return numExpr{n: t.num}, nil
	case tString:
		p.advance()
		return strExpr{s: t.text}, nil
	case tRegex:
		p.advance()
		re, err := compileRegex(t.text)
		if err != nil {
			return nil, p.errf("invalid regex /%s/: %v", t.text, err)
		}
		return regexExpr{re: re, src: t.text}, nil
	case tDollar:
		p.advance()
		idx, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return fieldExpr{idx: idx}, nil
	case tIncr, tDecr:
		decr := p.advance().typ == tDecr
		target, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if !isLvalue(target) {
			return nil, p.errf("%s requires an lvalue", t)
		}
		return incDecExpr{target: target, pre: true, decr: decr}, nil
	case tLParen:
		p.advance()
		list, err := p.parseExprList(tRParen)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, p.errf("empty parentheses")
		}
		if p.at(tIn) {
			p.advance()
			arr, aerr := p.expect(tName, "array name after in")
			if aerr != nil {
				return nil, aerr
			}
			return inExpr{idx: list, array: arr.text}, nil
		}
		if len(list) > 1 {
			return nil, p.errf("unexpected comma-separated expression")
		}
		return list[0], nil
	case tGetline:
		return p.parseGetline()
	case tFuncName:
		p.advance()
		if _, err := p.expect(tLParen, "'('"); err != nil {
			return nil, err
		}
		args, err := p.parseExprList(tRParen)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return callExpr{name: t.text, args: args}, nil
	case tName:
		p.advance()
		if p.accept(tLBracket) {
			idx, err := p.parseExprList(tRBracket)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tRBracket, "']'"); err != nil {
				return nil, err
			}
			if len(idx) == 0 {
				return nil, p.errf("empty array subscript")
			}
			return indexExpr{name: t.text, idx: idx}, nil
		}
		// no-paren builtins
		if t.text == "length" && !p.at(tLParen) {
			return callExpr{name: "length"}, nil
		}
		return varExpr{name: t.text}, nil
	}
	return nil, p.errf("unexpected %s", t)
}

func (p *parser) parseGetline() (expr, error) {
	p.advance()
	g := getlineExpr{}
	if p.at(tName) || p.at(tDollar) {
		target, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		g.target = target
	}
	if p.accept(tLt) {
		src, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		g.src = src
	}
	return g, nil
}

// regexCache holds compiled patterns; scripts can run concurrently from
// background jobs, so access is via sync.Map.
var regexCache sync.Map

// compileRegex compiles an ERE source string, caching compiled patterns.
// Literal patterns are compiled at parse time (errors abort the program);
// dynamic patterns used by builtins are compiled lazily and leniently.
func compileRegex(src string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(src); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	regexCache.Store(src, re)
	return re, nil
}
