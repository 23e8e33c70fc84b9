package awk

import (
	"fmt"
	"strings"
)

type tokType int

const (
	tEOF tokType = iota
	tNewline
	tNumber
	tString
	tRegex
	tName
	tFuncName // name immediately followed by '('

	// keywords
	tBegin
	tEnd
	tFunction
	tIf
	tElse
	tWhile
	tFor
	tDo
	tBreak
	tContinue
	tNext
	tExit
	tReturn
	tDelete
	tIn
	tGetline
	tPrint
	tPrintf

	// operators and delimiters
	tAssign
	tAddAssign
	tSubAssign
	tMulAssign
	tDivAssign
	tModAssign
	tPowAssign
	tEq
	tNe
	tLt
	tLe
	tGt
	tGe
	tMatch
	tNotMatch
	tNot
	tAnd
	tOr
	tIncr
	tDecr
	tPlus
	tMinus
	tStar
	tSlash
	tPercent
	tCaret
	tQuestion
	tColon
	tSemicolon
	tComma
	tLParen
	tRParen
	tLBrace
	tRBrace
	tLBracket
	tRBracket
	tPipe
	tAppend
	tDollar
)

var keywords = map[string]tokType{
	"BEGIN":    tBegin,
	"END":      tEnd,
	"function": tFunction,
	"func":     tFunction,
	"if":       tIf,
	"else":     tElse,
	"while":    tWhile,
	"for":      tFor,
	"do":       tDo,
	"break":    tBreak,
	"continue": tContinue,
	"next":     tNext,
	"exit":     tExit,
	"return":   tReturn,
	"delete":   tDelete,
	"in":       tIn,
	"getline":  tGetline,
	"print":    tPrint,
	"printf":   tPrintf,
}

type tok struct {
	typ  tokType
	text string
	num  float64
	line int
}

func (t tok) String() string {
	switch t.typ {
	case tEOF:
		return "end of program"
	case tNewline:
		return "newline"
	case tNumber:
		return fmt.Sprintf("number %v", t.num)
	case tString:
		return fmt.Sprintf("string %q", t.text)
	default:
		if t.text != "" {
			return fmt.Sprintf("'%s'", t.text)
		}
		return "token"
	}
}

// lexer turns AWK source into tokens. It is line-aware (newlines terminate
// statements) and resolves the '/' ambiguity by tracking whether the
// previous token could end an expression: a '/' after an operand is
// division, anywhere else it starts a regex literal.
type lexer struct {
	src      string
	pos      int
	line     int
	lastTyp  tokType
	haveLast bool
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

// lex scans the whole source up front.
func lexProgram(src string) ([]tok, error) {
	lx := newLexer(src)
	var toks []tok
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.typ == tEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", lx.line, fmt.Sprintf(format, args...))
}

func (lx *lexer) emit(typ tokType, text string) tok {
	lx.lastTyp = typ
	lx.haveLast = true
	return tok{typ: typ, text: text, line: lx.line}
}

// regexAllowed reports whether a '/' at the current position begins a regex
// literal rather than a division operator.
func (lx *lexer) regexAllowed() bool {
	if !lx.haveLast {
		return true
	}
	switch lx.lastTyp {
	case tNumber, tString, tName, tRParen, tRBracket, tDollar, tIncr, tDecr:
		return false
	}
	return true
}

func (lx *lexer) next() (tok, error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case c == '\\' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '\n':
			// line continuation
			lx.pos += 2
			lx.line++
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			goto scan
		}
	}
	return lx.emit(tEOF, ""), nil

scan:
	c := lx.src[lx.pos]
	switch {
	case c == '\n':
		lx.pos++
		t := lx.emit(tNewline, "\n")
		lx.line++
		return t, nil
	case c >= '0' && c <= '9' || c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]):
		return lx.scanNumber()
	case c == '"':
		return lx.scanString()
	case c == '/' && lx.regexAllowed():
		return lx.scanRegex()
	case isNameStart(c):
		return lx.scanName()
	}
	return lx.scanOperator()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool { return isNameStart(c) || isDigit(c) }

func (lx *lexer) scanNumber() (tok, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		lx.pos++
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
	}
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		save := lx.pos
		lx.pos++
		if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
			lx.pos++
		}
		if lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		} else {
			lx.pos = save
		}
	}
	text := lx.src[start:lx.pos]
	f := numPrefix(text)
	t := lx.emit(tNumber, text)
	t.num = f
	return t, nil
}

func (lx *lexer) scanString() (tok, error) {
	lx.pos++ // opening quote
	var b strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '"':
			lx.pos++
			return lx.emit(tString, b.String()), nil
		case '\n':
			return tok{}, lx.errf("newline in string")
		case '\\':
			lx.pos++
			if lx.pos >= len(lx.src) {
				return tok{}, lx.errf("unterminated string")
			}
			b.WriteString(unescapeChar(lx.src, &lx.pos))
		default:
			b.WriteByte(c)
			lx.pos++
		}
	}
	return tok{}, lx.errf("unterminated string")
}

// unescapeChar decodes one escape sequence at src[*pos] (the byte after the
// backslash) and advances *pos past it.
func unescapeChar(src string, pos *int) string {
	c := src[*pos]
	*pos++
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'a':
		return "\a"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '\\':
		return "\\"
	case '"':
		return "\""
	case '/':
		return "/"
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val := int(c - '0')
		for n := 1; n < 3 && *pos < len(src) && src[*pos] >= '0' && src[*pos] <= '7'; n++ {
			val = val*8 + int(src[*pos]-'0')
			*pos++
		}
		return string(rune(val))
	}
	return "\\" + string(c)
}

func (lx *lexer) scanRegex() (tok, error) {
	lx.pos++ // opening slash
	var b strings.Builder
	inClass := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\\' && lx.pos+1 < len(lx.src):
			b.WriteByte(c)
			b.WriteByte(lx.src[lx.pos+1])
			lx.pos += 2
		case c == '[':
			inClass = true
			b.WriteByte(c)
			lx.pos++
		case c == ']':
			inClass = false
			b.WriteByte(c)
			lx.pos++
		case c == '/' && !inClass:
			lx.pos++
			return lx.emit(tRegex, b.String()), nil
		case c == '\n':
			return tok{}, lx.errf("newline in regex")
		default:
			b.WriteByte(c)
			lx.pos++
		}
	}
	return tok{}, lx.errf("unterminated regex")
}

func (lx *lexer) scanName() (tok, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && isNameChar(lx.src[lx.pos]) {
		lx.pos++
	}
	name := lx.src[start:lx.pos]
	if kw, ok := keywords[name]; ok {
		return lx.emit(kw, name), nil
	}
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '(' {
		return lx.emit(tFuncName, name), nil
	}
	return lx.emit(tName, name), nil
}

func (lx *lexer) scanOperator() (tok, error) {
	two := ""
	if lx.pos+1 < len(lx.src) {
		two = lx.src[lx.pos : lx.pos+2]
	}
	switch two {
	case "+=":
		lx.pos += 2
		return lx.emit(tAddAssign, two), nil
	case "-=":
		lx.pos += 2
		return lx.emit(tSubAssign, two), nil
	case "*=":
		lx.pos += 2
		return lx.emit(tMulAssign, two), nil
	case "/=":
		lx.pos += 2
		return lx.emit(tDivAssign, two), nil
	case "%=":
		lx.pos += 2
		return lx.emit(tModAssign, two), nil
	case "^=":
		lx.pos += 2
		return lx.emit(tPowAssign, two), nil
	case "==":
		lx.pos += 2
		return lx.emit(tEq, two), nil
	case "!=":
		lx.pos += 2
		return lx.emit(tNe, two), nil
	case "<=":
		lx.pos += 2
		return lx.emit(tLe, two), nil
	case ">=":
		lx.pos += 2
		return lx.emit(tGe, two), nil
	case ">>":
		lx.pos += 2
		return lx.emit(tAppend, two), nil
	case "!~":
		lx.pos += 2
		return lx.emit(tNotMatch, two), nil
	case "&&":
		lx.pos += 2
		return lx.emit(tAnd, two), nil
	case "||":
		lx.pos += 2
		return lx.emit(tOr, two), nil
	case "++":
		lx.pos += 2
		return lx.emit(tIncr, two), nil
	case "--":
		lx.pos += 2
		return lx.emit(tDecr, two), nil
	}
	c := lx.src[lx.pos]
	lx.pos++
	one := string(c)
	switch c {
	case '=':
		return lx.emit(tAssign, one), nil
	case '<':
		return lx.emit(tLt, one), nil
	case '>':
		return lx.emit(tGt, one), nil
	case '~':
		return lx.emit(tMatch, one), nil
	case '!':
		return lx.emit(tNot, one), nil
	case '+':
		return lx.emit(tPlus, one), nil
	case '-':
		return lx.emit(tMinus, one), nil
	case '*':
		return lx.emit(tStar, one), nil
	case '/':
		return lx.emit(tSlash, one), nil
	case '%':
		return lx.emit(tPercent, one), nil
	case '^':
		return lx.emit(tCaret, one), nil
	case '?':
		return lx.emit(tQuestion, one), nil
	case ':':
		return lx.emit(tColon, one), nil
	case ';':
		return lx.emit(tSemicolon, one), nil
	case ',':
		return lx.emit(tComma, one), nil
	case '(':
		return lx.emit(tLParen, one), nil
	case ')':
		return lx.emit(tRParen, one), nil
	case '{':
		return lx.emit(tLBrace, one), nil
	case '}':
		return lx.emit(tRBrace, one), nil
	case '[':
		return lx.emit(tLBracket, one), nil
	case ']':
		return lx.emit(tRBracket, one), nil
	case '|':
		return lx.emit(tPipe, one), nil
	case '$':
		return lx.emit(tDollar, one), nil
	}
	return tok{}, lx.errf("unexpected character %q", c)
}
