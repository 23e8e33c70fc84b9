package awk

import "regexp"

// Program is a parsed AWK script: BEGIN blocks, the ordered rule list, END
// blocks, and user function definitions.
type Program struct {
	Begin     [][]stmt
	Rules     []*rule
	End       [][]stmt
	Functions map[string]*function
}

type patternKind int

const (
	patAlways patternKind = iota
	patExpr
	patRange
)

// rule pairs a pattern with an action. A nil action means "print $0"; a
// patAlways pattern matches every record. Range patterns carry an index
// into the interpreter's per-rule active-state slice.
type rule struct {
	pattern    patternKind
	expr       expr
	rangeStart expr
	rangeEnd   expr
	rangeIdx   int
	action     []stmt
}

type function struct {
	name   string
	params []string
	body   []stmt
}

// expressions

type expr interface{ exprNode() }

type numExpr struct{ n float64 }

type strExpr struct{ s string }

// regexExpr is a regex literal; used bare it tests against $0.
type regexExpr struct {
	re  *regexp.Regexp
	src string
}

type fieldExpr struct{ idx expr }

type varExpr struct{ name string }

type indexExpr struct {
	name string
	idx  []expr
}

type assignExpr struct {
	target expr // fieldExpr, varExpr, or indexExpr
	op     tokType
	value  expr
}

type incDecExpr struct {
	target expr
	pre    bool
	decr   bool
}

type binaryExpr struct {
	op   tokType
	l, r expr
}

type concatExpr struct{ parts []expr }

type unaryExpr struct {
	op tokType
	x  expr
}

type matchExpr struct {
	l, r   expr
	negate bool
}

type ternaryExpr struct {
	cond, a, b expr
}

type inExpr struct {
	idx   []expr
	array string
}

type callExpr struct {
	name string
	args []expr
}

// getlineExpr is the sandboxed stand-in: it evaluates its source (if any)
// for side effects only and always yields 0.
type getlineExpr struct {
	target expr // optional lvalue
	src    expr // optional "< file" or "cmd |" source
}

func (numExpr) exprNode()     {}
func (strExpr) exprNode()     {}
func (regexExpr) exprNode()   {}
func (fieldExpr) exprNode()   {}
func (varExpr) exprNode()     {}
func (indexExpr) exprNode()   {}
func (assignExpr) exprNode()  {}
func (incDecExpr) exprNode()  {}
func (binaryExpr) exprNode()  {}
func (concatExpr) exprNode()  {}
func (unaryExpr) exprNode()   {}
func (matchExpr) exprNode()   {}
func (ternaryExpr) exprNode() {}
func (inExpr) exprNode()      {}
func (callExpr) exprNode()    {}
func (getlineExpr) exprNode() {}

// statements

type stmt interface{ stmtNode() }

type exprStmt struct{ e expr }

// printStmt covers print and printf. Redirection targets parse but are
// discarded: this embedded form has no file or process streams to write to.
type printStmt struct {
	formatted bool
	args      []expr
	dest      expr
}

type ifStmt struct {
	cond expr
	then []stmt
	els  []stmt
}

type whileStmt struct {
	cond expr
	body []stmt
}

type doWhileStmt struct {
	body []stmt
	cond expr
}

type forStmt struct {
	init stmt // nil allowed
	cond expr // nil allowed
	post stmt // nil allowed
	body []stmt
}

type forInStmt struct {
	varName string
	array   string
	body    []stmt
}

type nextStmt struct{}

type breakStmt struct{}

type continueStmt struct{}

type exitStmt struct{ code expr } // nil code keeps the current exit status

type returnStmt struct{ val expr }

type deleteStmt struct {
	array string
	idx   []expr // nil deletes the whole array
}

func (exprStmt) stmtNode()     {}
func (printStmt) stmtNode()    {}
func (ifStmt) stmtNode()       {}
func (whileStmt) stmtNode()    {}
func (doWhileStmt) stmtNode()  {}
func (forStmt) stmtNode()      {}
func (forInStmt) stmtNode()    {}
func (nextStmt) stmtNode()     {}
func (breakStmt) stmtNode()    {}
func (continueStmt) stmtNode() {}
func (exitStmt) stmtNode()     {}
func (returnStmt) stmtNode()   {}
func (deleteStmt) stmtNode()   {}
