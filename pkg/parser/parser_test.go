package parser_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"speck/speck-go/pkg/ast"
	"speck/speck-go/pkg/lexer"
	"speck/speck-go/pkg/parser"
)

// ignorePositions keeps tree comparisons about structure, not layout.
var ignorePositions = cmpopts.IgnoreTypes(lexer.Pos{})

func parseDocument(t *testing.T, source string) *ast.Block {
	t.Helper()
	block, err := parser.Parse(lexer.New([]byte(source)))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return block
}

func TestParseFullDocument(t *testing.T) {
	source := `
arithmetic {
	before_each { total := 0 }

	it "adds" { total += 2 }
	failing "boom" "panics on overflow" { panic("boom") }
	ignore "not ready" { total-- }
	bench "sum" (b) { total += b.N }

	describe nested {
		it "sees outer state" { _ = total }
	}

	after_each { _ = total }
}
`
	got := parseDocument(t, source)

	want := &ast.Block{
		Keyword: ast.KeywordDescribe,
		Name:    "arithmetic",
		Children: []*ast.Block{
			{Keyword: ast.KeywordBeforeEach, Body: &lexer.Body{Text: "total := 0"}},
			{Keyword: ast.KeywordIt, Name: "adds", Body: &lexer.Body{Text: "total += 2"}},
			{Keyword: ast.KeywordFailing, Name: "panics on overflow", Arg: "boom", Body: &lexer.Body{Text: `panic("boom")`}},
			{Keyword: ast.KeywordIgnore, Name: "not ready", Body: &lexer.Body{Text: "total--"}},
			{Keyword: ast.KeywordBench, Name: "sum", Arg: "b", Body: &lexer.Body{Text: "total += b.N"}},
			{
				Keyword: ast.KeywordDescribe,
				Name:    "nested",
				Children: []*ast.Block{
					{Keyword: ast.KeywordIt, Name: "sees outer state", Body: &lexer.Body{Text: "_ = total"}},
				},
			},
			{Keyword: ast.KeywordAfterEach, Body: &lexer.Body{Text: "_ = total"}},
		},
	}
	if diff := cmp.Diff(want, got, ignorePositions); diff != "" {
		t.Fatalf("block tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFailingSingleStringIsDescription(t *testing.T) {
	got := parseDocument(t, `suite { failing "any panic will do" { panic("x") } }`)
	child := got.Children[0]
	if child.Name != "any panic will do" {
		t.Fatalf("description = %q", child.Name)
	}
	if child.Arg != "" {
		t.Fatalf("expected no pattern, got %q", child.Arg)
	}
}

func TestParseDeepNesting(t *testing.T) {
	source := `a { describe b { describe c { describe d { it "leaf" { x() } } } } }`
	block := parseDocument(t, source)
	for _, name := range []string{"b", "c", "d"} {
		if len(block.Children) != 1 {
			t.Fatalf("group %q: expected one child", block.Name)
		}
		block = block.Children[0]
		if block.Keyword != ast.KeywordDescribe || block.Name != name {
			t.Fatalf("expected describe %q, got %s %q", name, block.Keyword, block.Name)
		}
	}
	if len(block.Children) != 1 || block.Children[0].Keyword != ast.KeywordIt {
		t.Fatalf("innermost group should hold the test leaf")
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
	}{
		{"empty document", ``},
		{"keyword as document name", `describe { }`},
		{"unterminated group", `suite { it "x" { y() }`},
		{"unknown keyword", `suite { setup { x() } }`},
		{"missing description", `suite { it { x() } }`},
		{"missing body", `suite { it "x" }`},
		{"bench missing binding", `suite { bench "b" { x() } }`},
		{"bench unclosed binding", `suite { bench "b" (h { x() } }`},
		{"trailing input", `suite { } extra`},
		{"stray token in body", `suite { ) }`},
		{"keyword as nested group name", `suite { describe it { } }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parser.Parse(lexer.New([]byte(tc.source)))
			if err == nil {
				t.Fatalf("expected syntax error for %q", tc.source)
			}
			var syntaxErr *parser.SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("error = %T (%v), want *SyntaxError", err, err)
			}
		})
	}
}

func TestParseReportsPosition(t *testing.T) {
	_, err := parser.Parse(lexer.New([]byte("suite {\n\tbogus \"x\" { }\n}")))
	var syntaxErr *parser.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error = %v, want *SyntaxError", err)
	}
	if syntaxErr.Pos.Line != 2 {
		t.Fatalf("error line = %d, want 2", syntaxErr.Pos.Line)
	}
	if syntaxErr.Keyword != "bogus" {
		t.Fatalf("error keyword = %q, want bogus", syntaxErr.Keyword)
	}
}
