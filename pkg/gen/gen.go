// Package gen flattens a typed group hierarchy into the container/unit tree:
// one runnable unit per test or benchmark leaf, with ancestor hooks composed
// into each test body, and one named container per group.
package gen

import (
	"speck/speck-go/pkg/ast"
	"speck/speck-go/pkg/lexer"
)

// ExecKind annotates how an emitted unit is meant to be executed.
type ExecKind string

const (
	ExecTest          ExecKind = "test"
	ExecExpectFailure ExecKind = "test-expect-failure"
	ExecSkip          ExecKind = "test-skip"
	ExecBenchmark     ExecKind = "benchmark"
)

// Entry is one ordered member of a container: a Unit or a sub-Container.
type Entry interface {
	entry()
}

// Unit is a single runnable test or benchmark. Body holds the unit's
// statement fragments in execution order; for tests that is every inherited
// before_each (outer to inner), the leaf's own body, then every inherited
// after_each (inner to outer). Benchmark bodies are the leaf body alone and
// Bencher names the benchmarking handle binding.
type Unit struct {
	ID      string
	Kind    ExecKind
	Pattern string
	Bencher string
	Body    []lexer.Body
	Pos     lexer.Pos
}

func (*Unit) entry() {}

// Container mirrors one group of the input document.
type Container struct {
	Name    string
	Entries []Entry
	Pos     lexer.Pos
}

func (*Container) entry() {}

// Units returns the container's direct units in emission order.
func (c *Container) Units() []*Unit {
	var units []*Unit
	for _, entry := range c.Entries {
		if unit, ok := entry.(*Unit); ok {
			units = append(units, unit)
		}
	}
	return units
}

// Containers returns the container's direct sub-containers in emission order.
func (c *Container) Containers() []*Container {
	var children []*Container
	for _, entry := range c.Entries {
		if child, ok := entry.(*Container); ok {
			children = append(children, child)
		}
	}
	return children
}

// Sink receives a completed container tree. How a sink registers, renders,
// or compiles the tree is outside this package.
type Sink interface {
	Emit(root *Container) error
}

// generator carries the scoped hook accumulator during traversal. Hooks are
// appended on group entry and truncated on exit, so sibling subtrees never
// observe each other's hooks.
type generator struct {
	befores []lexer.Body
	afters  []lexer.Body
}

// Generate walks the hierarchy rooted at group and returns its container
// tree. The input tree is never mutated; composed bodies are fresh slices.
// The root container's identifier is claimed in a scope of its own so the
// root group name is canonicalized like any other.
func Generate(root *ast.Group) (*Container, error) {
	g := &generator{}
	id, err := newScope().claim(root.Name, root.Pos)
	if err != nil {
		return nil, err
	}
	return g.group(root, id)
}

func (g *generator) group(group *ast.Group, id string) (*Container, error) {
	beforeMark := len(g.befores)
	afterMark := len(g.afters)
	if group.BeforeEach != nil {
		g.befores = append(g.befores, *group.BeforeEach)
	}
	if group.AfterEach != nil {
		g.afters = append(g.afters, *group.AfterEach)
	}
	defer func() {
		g.befores = g.befores[:beforeMark]
		g.afters = g.afters[:afterMark]
	}()

	container := &Container{Name: id, Pos: group.Pos}
	names := newScope()
	for _, child := range group.Children {
		switch node := child.(type) {
		case *ast.Group:
			childID, err := names.claim(node.Name, node.Pos)
			if err != nil {
				return nil, err
			}
			sub, err := g.group(node, childID)
			if err != nil {
				return nil, err
			}
			container.Entries = append(container.Entries, sub)

		case *ast.TestItem:
			unitID, err := names.claim(node.Description, node.Pos)
			if err != nil {
				return nil, err
			}
			container.Entries = append(container.Entries, g.testUnit(node, unitID))

		case *ast.BenchItem:
			unitID, err := names.claim(node.Description, node.Pos)
			if err != nil {
				return nil, err
			}
			container.Entries = append(container.Entries, &Unit{
				ID:      unitID,
				Kind:    ExecBenchmark,
				Bencher: node.Bencher,
				Body:    []lexer.Body{node.Body},
				Pos:     node.Pos,
			})
		}
	}
	return container, nil
}

func (g *generator) testUnit(item *ast.TestItem, id string) *Unit {
	body := make([]lexer.Body, 0, len(g.befores)+1+len(g.afters))
	body = append(body, g.befores...)
	body = append(body, item.Body)
	// after_each hooks unwind innermost first.
	for i := len(g.afters) - 1; i >= 0; i-- {
		body = append(body, g.afters[i])
	}

	unit := &Unit{ID: id, Body: body, Pos: item.Pos}
	switch item.Mode {
	case ast.TestFailing:
		unit.Kind = ExecExpectFailure
		unit.Pattern = item.Pattern
	case ast.TestIgnored:
		unit.Kind = ExecSkip
	default:
		unit.Kind = ExecTest
	}
	return unit
}
