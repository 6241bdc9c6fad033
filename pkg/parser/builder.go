package parser

import (
	"speck/speck-go/pkg/ast"
	"speck/speck-go/pkg/lexer"
)

// BuildGroup converts one raw describe block into a typed Group, validating
// hook multiplicity and leaf shape. The raw tree is not modified.
func BuildGroup(block *ast.Block) (*ast.Group, error) {
	if block == nil || block.Keyword != ast.KeywordDescribe {
		return nil, &MalformedItemError{Reason: "expected a group block"}
	}
	if block.Name == "" {
		return nil, &MalformedItemError{Pos: block.Pos, Reason: "group is missing a name"}
	}

	group := ast.NewGroup(block.Name, block.Pos)
	for _, child := range block.Children {
		switch child.Keyword {
		case ast.KeywordDescribe:
			nested, err := BuildGroup(child)
			if err != nil {
				return nil, err
			}
			group.Children = append(group.Children, nested)

		case ast.KeywordBeforeEach:
			if group.BeforeEach != nil {
				return nil, &DuplicateHookError{Pos: child.Pos, Hook: "before_each", Group: group.Name}
			}
			group.BeforeEach = child.Body

		case ast.KeywordAfterEach:
			if group.AfterEach != nil {
				return nil, &DuplicateHookError{Pos: child.Pos, Hook: "after_each", Group: group.Name}
			}
			group.AfterEach = child.Body

		case ast.KeywordIt:
			item, err := buildTestItem(child, ast.TestNormal)
			if err != nil {
				return nil, err
			}
			group.Children = append(group.Children, item)

		case ast.KeywordFailing:
			item, err := buildTestItem(child, ast.TestFailing)
			if err != nil {
				return nil, err
			}
			item.Pattern = child.Arg
			group.Children = append(group.Children, item)

		case ast.KeywordIgnore:
			item, err := buildTestItem(child, ast.TestIgnored)
			if err != nil {
				return nil, err
			}
			group.Children = append(group.Children, item)

		case ast.KeywordBench:
			if child.Name == "" {
				return nil, &MalformedItemError{Pos: child.Pos, Reason: "bench is missing a description"}
			}
			if child.Arg == "" {
				return nil, &MalformedItemError{Pos: child.Pos, Reason: "bench is missing a bencher binding"}
			}
			if child.Body == nil {
				return nil, &MalformedItemError{Pos: child.Pos, Reason: "bench is missing a body"}
			}
			group.Children = append(group.Children, ast.NewBenchItem(child.Name, child.Arg, *child.Body, child.Pos))

		default:
			return nil, &MalformedItemError{Pos: child.Pos, Reason: "unsupported block keyword " + string(child.Keyword)}
		}
	}
	return group, nil
}

func buildTestItem(block *ast.Block, mode ast.TestMode) (*ast.TestItem, error) {
	if block.Name == "" {
		return nil, &MalformedItemError{Pos: block.Pos, Reason: string(block.Keyword) + " is missing a description"}
	}
	if block.Body == nil {
		return nil, &MalformedItemError{Pos: block.Pos, Reason: string(block.Keyword) + " is missing a body"}
	}
	return ast.NewTestItem(block.Name, mode, "", *block.Body, block.Pos), nil
}

// Compile is the front half of the pipeline in one call: token stream in,
// typed hierarchy out.
func Compile(stream lexer.TokenStream) (*ast.Group, error) {
	block, err := Parse(stream)
	if err != nil {
		return nil, err
	}
	return BuildGroup(block)
}
