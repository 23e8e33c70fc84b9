package shell

import (
	"fmt"
	"strings"
	"unicode"
)

// Stage is one command in a pipeline: a name, its arguments, and optional
// redirect targets. Stages are built once at parse time and never mutated
// during execution.
type Stage struct {
	Name        string
	Args        []string
	RedirIn     string
	RedirOut    string
	RedirAppend bool
}

// Argv returns the stage as a single argv slice, name first.
func (st *Stage) Argv() []string {
	return append([]string{st.Name}, st.Args...)
}

// Pipeline is a left-to-right sequence of stages connected by "|".
type Pipeline struct {
	Stages []*Stage
}

// Chain and/or operators.
const (
	OpNone = ""
	OpAnd  = "&&"
	OpOr   = "||"
)

// ChainLink is one pipeline plus the operator connecting it to what came
// before it. The first link always has OpNone.
type ChainLink struct {
	Op       string
	Pipeline *Pipeline
}

// Chain is a full parsed command line: pipelines joined by "&&"/"||" with
// short-circuit semantics, optionally backgrounded by a trailing "&".
type Chain struct {
	Links      []ChainLink
	Background bool
}

// Names returns every stage name in the chain, used for the no-transaction
// allow-list check.
func (c *Chain) Names() []string {
	var names []string
	for _, link := range c.Links {
		for _, st := range link.Pipeline.Stages {
			names = append(names, st.Name)
		}
	}
	return names
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPipe
	tokAnd
	tokOr
	tokBackground
	tokRedirIn
	tokRedirOut
	tokRedirAppend
)

type token struct {
	kind tokenKind
	text string
}

// Parse tokenizes a command line into a Chain. Environment expansion
// ($VAR, ${VAR}) happens here via env; undefined names expand to the empty
// string and single quotes suppress expansion. Blank input returns a nil
// chain and no error.
func Parse(line string, env func(string) string) (*Chain, error) {
	if env == nil {
		env = func(string) string { return "" }
	}
	tokens, err := tokenize(line, env)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	chain := &Chain{}
	if tokens[len(tokens)-1].kind == tokBackground {
		chain.Background = true
		tokens = tokens[:len(tokens)-1]
		if len(tokens) == 0 {
			return nil, fmt.Errorf("syntax error near '&'")
		}
	}

	op := OpNone
	group := []token{}
	flush := func() error {
		if len(group) == 0 {
			return fmt.Errorf("syntax error: empty command before '%s'", op)
		}
		pipeline, perr := parsePipeline(group)
		if perr != nil {
			return perr
		}
		chain.Links = append(chain.Links, ChainLink{Op: op, Pipeline: pipeline})
		group = group[:0]
		return nil
	}
	for _, t := range tokens {
		switch t.kind {
		case tokAnd, tokOr:
			if err := flush(); err != nil {
				return nil, err
			}
			if t.kind == tokAnd {
				op = OpAnd
			} else {
				op = OpOr
			}
		case tokBackground:
			return nil, fmt.Errorf("syntax error near '&'")
		default:
			group = append(group, t)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return chain, nil
}

func parsePipeline(tokens []token) (*Pipeline, error) {
	pipeline := &Pipeline{}
	stage := []token{}
	flush := func() error {
		if len(stage) == 0 {
			return fmt.Errorf("syntax error: empty pipeline stage")
		}
		st, err := parseStage(stage)
		if err != nil {
			return err
		}
		pipeline.Stages = append(pipeline.Stages, st)
		stage = stage[:0]
		return nil
	}
	for _, t := range tokens {
		if t.kind == tokPipe {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		stage = append(stage, t)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return pipeline, nil
}

func parseStage(tokens []token) (*Stage, error) {
	st := &Stage{}
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.kind {
		case tokRedirIn, tokRedirOut, tokRedirAppend:
			if i+1 >= len(tokens) || tokens[i+1].kind != tokWord {
				return nil, fmt.Errorf("syntax error: missing redirect target")
			}
			target := tokens[i+1].text
			switch t.kind {
			case tokRedirIn:
				st.RedirIn = target
			case tokRedirOut:
				st.RedirOut = target
				st.RedirAppend = false
			case tokRedirAppend:
				st.RedirOut = target
				st.RedirAppend = true
			}
			i++
		case tokWord:
			if st.Name == "" {
				st.Name = t.text
			} else {
				st.Args = append(st.Args, t.text)
			}
		}
	}
	if st.Name == "" {
		return nil, fmt.Errorf("syntax error: missing command name")
	}
	return st, nil
}

// tokenize walks the line byte by byte tracking quote and escape state, the
// same state machine the rest of the shell uses everywhere it splits text.
func tokenize(line string, env func(string) string) ([]token, error) {
	var tokens []token
	var buf strings.Builder
	inSingle := false
	inDouble := false
	escape := false
	hasWord := false

	flush := func() {
		if hasWord {
			tokens = append(tokens, token{kind: tokWord, text: buf.String()})
			buf.Reset()
			hasWord = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		if escape {
			buf.WriteByte(c)
			hasWord = true
			escape = false
			continue
		}
		switch {
		case c == '\\' && !inSingle:
			escape = true
			hasWord = true
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			hasWord = true
		case c == '"' && !inSingle:
			inDouble = !inDouble
			hasWord = true
		case c == '$' && !inSingle:
			name, width := scanVarName(line[i:])
			if width == 0 {
				buf.WriteByte(c)
				hasWord = true
				continue
			}
			buf.WriteString(env(name))
			hasWord = true
			i += width - 1
		case inSingle || inDouble:
			buf.WriteByte(c)
		case c == '|':
			flush()
			if i+1 < len(line) && line[i+1] == '|' {
				tokens = append(tokens, token{kind: tokOr})
				i++
			} else {
				tokens = append(tokens, token{kind: tokPipe})
			}
		case c == '&':
			flush()
			if i+1 < len(line) && line[i+1] == '&' {
				tokens = append(tokens, token{kind: tokAnd})
				i++
			} else {
				tokens = append(tokens, token{kind: tokBackground})
			}
		case c == '<':
			flush()
			tokens = append(tokens, token{kind: tokRedirIn})
		case c == '>':
			flush()
			if i+1 < len(line) && line[i+1] == '>' {
				tokens = append(tokens, token{kind: tokRedirAppend})
				i++
			} else {
				tokens = append(tokens, token{kind: tokRedirOut})
			}
		case unicode.IsSpace(rune(c)):
			flush()
		default:
			buf.WriteByte(c)
			hasWord = true
		}
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("syntax error: unterminated quote")
	}
	if escape {
		return nil, fmt.Errorf("syntax error: trailing backslash")
	}
	flush()
	return tokens, nil
}

// scanVarName reads a $VAR or ${VAR} reference at the start of s (which
// begins with '$') and returns the name plus total width consumed. A width
// of zero means s does not start a variable reference.
func scanVarName(s string) (string, int) {
	if len(s) < 2 {
		return "", 0
	}
	if s[1] == '{' {
		end := strings.IndexByte(s[2:], '}')
		if end < 0 {
			return "", 0
		}
		return s[2 : 2+end], end + 3
	}
	j := 1
	for j < len(s) && (s[j] == '_' || s[j] == '?' ||
		unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j]))) {
		if s[j] == '?' {
			j++
			break
		}
		j++
	}
	if j == 1 {
		return "", 0
	}
	return s[1:j], j
}
