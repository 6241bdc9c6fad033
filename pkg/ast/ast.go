// Package ast defines the two tree shapes the compiler moves between: the
// raw keyword-tagged block tree the parser produces, and the typed group
// hierarchy the generator consumes.
package ast

import "speck/speck-go/pkg/lexer"

type NodeType string

const (
	NodeBlock     NodeType = "Block"
	NodeGroup     NodeType = "Group"
	NodeTestItem  NodeType = "TestItem"
	NodeBenchItem NodeType = "BenchItem"
)

// Keyword tags a raw block with the construct it was parsed from. The
// document's top-level group carries KeywordDescribe even though the surface
// syntax omits the keyword there.
type Keyword string

const (
	KeywordDescribe   Keyword = "describe"
	KeywordBeforeEach Keyword = "before_each"
	KeywordAfterEach  Keyword = "after_each"
	KeywordIt         Keyword = "it"
	KeywordFailing    Keyword = "failing"
	KeywordIgnore     Keyword = "ignore"
	KeywordBench      Keyword = "bench"
)

// Block is one node of the raw parse tree. Name holds the group name or the
// leaf description. Arg holds the secondary argument when the keyword takes
// one: the bencher binding for bench, the message pattern for failing.
// Describe blocks carry Children and no Body; every other keyword carries a
// Body and no Children.
type Block struct {
	Keyword  Keyword
	Name     string
	Arg      string
	Body     *lexer.Body
	Children []*Block
	Pos      lexer.Pos
}

func NewBlock(keyword Keyword, name string, pos lexer.Pos) *Block {
	return &Block{Keyword: keyword, Name: name, Pos: pos}
}

func (b *Block) Type() NodeType { return NodeBlock }

// ChildNode is anything a Group may contain: a nested Group, a TestItem, or
// a BenchItem. Insertion order is significant and preserved everywhere.
type ChildNode interface {
	Type() NodeType
	childNode()
}

// Group is a named node of the typed hierarchy. BeforeEach and AfterEach are
// nil when the group declares no hook; at most one of each may be attached.
type Group struct {
	Name       string
	BeforeEach *lexer.Body
	AfterEach  *lexer.Body
	Children   []ChildNode
	Pos        lexer.Pos
}

func NewGroup(name string, pos lexer.Pos) *Group {
	return &Group{Name: name, Pos: pos}
}

func (g *Group) Type() NodeType { return NodeGroup }
func (g *Group) childNode()     {}

// TestMode distinguishes how an emitted test unit is expected to run.
type TestMode string

const (
	TestNormal  TestMode = "normal"
	TestFailing TestMode = "failing"
	TestIgnored TestMode = "ignored"
)

// TestItem is a leaf describing one test. Pattern is only meaningful for
// TestFailing and holds the required substring of the abnormal-termination
// message; empty means any abnormal termination is accepted.
type TestItem struct {
	Description string
	Mode        TestMode
	Pattern     string
	Body        lexer.Body
	Pos         lexer.Pos
}

func NewTestItem(description string, mode TestMode, pattern string, body lexer.Body, pos lexer.Pos) *TestItem {
	return &TestItem{Description: description, Mode: mode, Pattern: pattern, Body: body, Pos: pos}
}

func (t *TestItem) Type() NodeType { return NodeTestItem }
func (t *TestItem) childNode()     {}

// BenchItem is a leaf describing one benchmark. Bencher names the binding
// under which the benchmarking handle is exposed inside Body. Benchmarks
// never participate in hook composition.
type BenchItem struct {
	Description string
	Bencher     string
	Body        lexer.Body
	Pos         lexer.Pos
}

func NewBenchItem(description, bencher string, body lexer.Body, pos lexer.Pos) *BenchItem {
	return &BenchItem{Description: description, Bencher: bencher, Body: body, Pos: pos}
}

func (b *BenchItem) Type() NodeType { return NodeBenchItem }
func (b *BenchItem) childNode()     {}
