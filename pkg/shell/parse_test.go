package shell

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, line string, env func(string) string) *Chain {
	t.Helper()
	chain, err := Parse(line, env)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", line, err)
	}
	return chain
}

func TestParseSimpleCommand(t *testing.T) {
	chain := mustParse(t, "echo hello world", nil)
	if len(chain.Links) != 1 {
		t.Fatalf("links = %d", len(chain.Links))
	}
	st := chain.Links[0].Pipeline.Stages[0]
	if st.Name != "echo" {
		t.Errorf("name = %q", st.Name)
	}
	if len(st.Args) != 2 || st.Args[0] != "hello" || st.Args[1] != "world" {
		t.Errorf("args = %v", st.Args)
	}
}

func TestParseBlankLine(t *testing.T) {
	for _, line := range []string{"", "   ", "\t"} {
		chain, err := Parse(line, nil)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", line, err)
		}
		if chain != nil {
			t.Errorf("Parse(%q) = %+v, want nil", line, chain)
		}
	}
}

func TestParsePipeline(t *testing.T) {
	chain := mustParse(t, "cat data | grep x | wc -l", nil)
	stages := chain.Links[0].Pipeline.Stages
	if len(stages) != 3 {
		t.Fatalf("stages = %d", len(stages))
	}
	names := []string{stages[0].Name, stages[1].Name, stages[2].Name}
	if names[0] != "cat" || names[1] != "grep" || names[2] != "wc" {
		t.Errorf("names = %v", names)
	}
}

func TestParseChainOperators(t *testing.T) {
	chain := mustParse(t, "mkdir d && cd d || echo failed", nil)
	if len(chain.Links) != 3 {
		t.Fatalf("links = %d", len(chain.Links))
	}
	if chain.Links[0].Op != OpNone || chain.Links[1].Op != OpAnd || chain.Links[2].Op != OpOr {
		t.Errorf("ops = %q %q %q", chain.Links[0].Op, chain.Links[1].Op, chain.Links[2].Op)
	}
}

func TestParseBackground(t *testing.T) {
	chain := mustParse(t, "sleep 5 &", nil)
	if !chain.Background {
		t.Error("background flag not set")
	}

	// '&' anywhere but the end is an error
	if _, err := Parse("sleep 5 & echo done", nil); err == nil {
		t.Error("mid-line & should fail")
	}
	if _, err := Parse("&", nil); err == nil {
		t.Error("bare & should fail")
	}
}

func TestParseRedirects(t *testing.T) {
	chain := mustParse(t, "grep x < in.txt > out.txt", nil)
	st := chain.Links[0].Pipeline.Stages[0]
	if st.RedirIn != "in.txt" {
		t.Errorf("redirIn = %q", st.RedirIn)
	}
	if st.RedirOut != "out.txt" || st.RedirAppend {
		t.Errorf("redirOut = %q append = %v", st.RedirOut, st.RedirAppend)
	}

	chain = mustParse(t, "echo x >> log.txt", nil)
	st = chain.Links[0].Pipeline.Stages[0]
	if st.RedirOut != "log.txt" || !st.RedirAppend {
		t.Errorf("append redirect: %q %v", st.RedirOut, st.RedirAppend)
	}

	if _, err := Parse("echo x >", nil); err == nil {
		t.Error("missing redirect target should fail")
	}
}

func TestParseQuoting(t *testing.T) {
	env := func(name string) string {
		return map[string]string{"NAME": "world"}[name]
	}
	tests := []struct {
		line string
		want []string
	}{
		{`echo "hello world"`, []string{"hello world"}},
		{`echo 'single quoted'`, []string{"single quoted"}},
		{`echo "$NAME"`, []string{"world"}},
		{`echo '$NAME'`, []string{"$NAME"}},
		{`echo ${NAME}ly`, []string{"worldly"}},
		{`echo \$NAME`, []string{"$NAME"}},
		{`echo a\ b`, []string{"a b"}},
		{`echo "pipe | inside"`, []string{"pipe | inside"}},
		{`echo $UNDEFINED end`, []string{"", "end"}},
	}
	for _, tt := range tests {
		chain := mustParse(t, tt.line, env)
		st := chain.Links[0].Pipeline.Stages[0]
		if len(st.Args) != len(tt.want) {
			t.Errorf("%q args = %v, want %v", tt.line, st.Args, tt.want)
			continue
		}
		for i := range tt.want {
			if st.Args[i] != tt.want[i] {
				t.Errorf("%q arg %d = %q, want %q", tt.line, i, st.Args[i], tt.want[i])
			}
		}
	}
}

func TestParseExitStatusVariable(t *testing.T) {
	env := func(name string) string {
		if name == "?" {
			return "42"
		}
		return ""
	}
	chain := mustParse(t, "echo $?", env)
	st := chain.Links[0].Pipeline.Stages[0]
	if len(st.Args) != 1 || st.Args[0] != "42" {
		t.Errorf("args = %v", st.Args)
	}

	// $? followed by more characters: only the ? belongs to the name
	chain = mustParse(t, "echo $?x", env)
	st = chain.Links[0].Pipeline.Stages[0]
	if st.Args[0] != "42x" {
		t.Errorf("suffixed arg = %q", st.Args[0])
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{
		`echo "unterminated`,
		`echo 'unterminated`,
		`echo trailing\`,
		`| grep x`,
		`cat a | | wc`,
		`echo a && && echo b`,
	} {
		if _, err := Parse(line, nil); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", line)
		}
	}
}

func TestChainNames(t *testing.T) {
	chain := mustParse(t, "cat f | wc -l && echo ok", nil)
	names := chain.Names()
	if strings.Join(names, ",") != "cat,wc,echo" {
		t.Errorf("names = %v", names)
	}
}
