// Package parser turns a token stream into the raw block tree and the raw
// block tree into the typed group hierarchy. Both passes are pure: the only
// side effect is advancing the token stream.
package parser

import (
	"speck/speck-go/pkg/ast"
	"speck/speck-go/pkg/lexer"
)

// parser wraps the stream with one token of lookahead.
type parser struct {
	stream lexer.TokenStream
	tok    lexer.Token
}

// Parse consumes a whole document from stream and returns its raw block
// tree. The document is a single top-level group, NAME '{' ... '}', with
// nothing after the closing brace.
func Parse(stream lexer.TokenStream) (*ast.Block, error) {
	p := &parser{stream: stream}
	if err := p.advance(); err != nil {
		return nil, err
	}

	name, pos, err := p.expectIdent("document must start with a group name")
	if err != nil {
		return nil, err
	}
	if kw, reserved := keywordFor(name); reserved {
		return nil, &SyntaxError{Pos: pos, Keyword: string(kw), Msg: "keyword cannot name the top-level group"}
	}

	root := ast.NewBlock(ast.KeywordDescribe, name, pos)
	if err := p.parseGroupBody(root); err != nil {
		return nil, err
	}

	if p.tok.Kind != lexer.TokEOF {
		return nil, &SyntaxError{Pos: p.tok.Pos, Msg: "unexpected input after top-level group"}
	}
	return root, nil
}

func (p *parser) advance() error {
	tok, err := p.stream.Next()
	if err != nil {
		return &SyntaxError{Pos: p.tok.Pos, Msg: err.Error()}
	}
	p.tok = tok
	return nil
}

func (p *parser) expect(kind lexer.Kind, msg string) (lexer.Token, error) {
	if p.tok.Kind != kind {
		return lexer.Token{}, &SyntaxError{Pos: p.tok.Pos, Msg: msg}
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return lexer.Token{}, err
	}
	return tok, nil
}

func (p *parser) expectIdent(msg string) (string, lexer.Pos, error) {
	tok, err := p.expect(lexer.TokIdent, msg)
	if err != nil {
		return "", lexer.Pos{}, err
	}
	return tok.Text, tok.Pos, nil
}

// captureBody consumes '{' STATEMENTS '}' and returns the opaque span.
func (p *parser) captureBody(keyword ast.Keyword) (lexer.Body, error) {
	if p.tok.Kind != lexer.TokLBrace {
		return lexer.Body{}, &SyntaxError{Pos: p.tok.Pos, Keyword: string(keyword), Msg: "expected '{' to open body"}
	}
	// The opening brace was recognized here, so the span starts immediately
	// after it; bypass the token buffer and take the raw text.
	body, err := p.stream.CaptureBody()
	if err != nil {
		return lexer.Body{}, &SyntaxError{Pos: p.tok.Pos, Keyword: string(keyword), Msg: err.Error()}
	}
	if err := p.advance(); err != nil {
		return lexer.Body{}, err
	}
	return body, nil
}

func keywordFor(ident string) (ast.Keyword, bool) {
	switch ast.Keyword(ident) {
	case ast.KeywordDescribe, ast.KeywordBeforeEach, ast.KeywordAfterEach,
		ast.KeywordIt, ast.KeywordFailing, ast.KeywordIgnore, ast.KeywordBench:
		return ast.Keyword(ident), true
	}
	return "", false
}

// parseGroupBody consumes '{' group_body '}' and fills group.Children.
func (p *parser) parseGroupBody(group *ast.Block) error {
	if _, err := p.expect(lexer.TokLBrace, "expected '{' to open group "+group.Name); err != nil {
		return err
	}
	for {
		switch p.tok.Kind {
		case lexer.TokRBrace:
			if err := p.advance(); err != nil {
				return err
			}
			return nil
		case lexer.TokEOF:
			return &SyntaxError{Pos: p.tok.Pos, Keyword: group.Name, Msg: "unterminated group"}
		case lexer.TokIdent:
			child, err := p.parseBlock()
			if err != nil {
				return err
			}
			group.Children = append(group.Children, child)
		default:
			return &SyntaxError{Pos: p.tok.Pos, Msg: "expected a keyword or '}' inside group body"}
		}
	}
}

// parseBlock recognizes one keyword-introduced construct inside a group body.
func (p *parser) parseBlock() (*ast.Block, error) {
	keyword, reserved := keywordFor(p.tok.Text)
	if !reserved {
		return nil, &SyntaxError{Pos: p.tok.Pos, Keyword: p.tok.Text, Msg: "unknown keyword"}
	}
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch keyword {
	case ast.KeywordDescribe:
		name, namePos, err := p.expectIdent("describe requires a group name")
		if err != nil {
			return nil, err
		}
		if _, nested := keywordFor(name); nested {
			return nil, &SyntaxError{Pos: namePos, Keyword: name, Msg: "keyword cannot name a group"}
		}
		block := ast.NewBlock(ast.KeywordDescribe, name, pos)
		if err := p.parseGroupBody(block); err != nil {
			return nil, err
		}
		return block, nil

	case ast.KeywordBeforeEach, ast.KeywordAfterEach:
		body, err := p.captureBody(keyword)
		if err != nil {
			return nil, err
		}
		block := ast.NewBlock(keyword, "", pos)
		block.Body = &body
		return block, nil

	case ast.KeywordIt, ast.KeywordIgnore:
		desc, err := p.expect(lexer.TokString, string(keyword)+" requires a description string")
		if err != nil {
			return nil, err
		}
		body, err := p.captureBody(keyword)
		if err != nil {
			return nil, err
		}
		block := ast.NewBlock(keyword, desc.Text, pos)
		block.Body = &body
		return block, nil

	case ast.KeywordFailing:
		first, err := p.expect(lexer.TokString, "failing requires a description string")
		if err != nil {
			return nil, err
		}
		block := ast.NewBlock(ast.KeywordFailing, first.Text, pos)
		if p.tok.Kind == lexer.TokString {
			// Two strings: the first is the message pattern, the second
			// the description.
			block.Arg = first.Text
			block.Name = p.tok.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		body, err := p.captureBody(ast.KeywordFailing)
		if err != nil {
			return nil, err
		}
		block.Body = &body
		return block, nil

	case ast.KeywordBench:
		desc, err := p.expect(lexer.TokString, "bench requires a description string")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokLParen, "bench requires a '(binding)' argument"); err != nil {
			return nil, err
		}
		binding, _, err := p.expectIdent("bench requires a bencher binding identifier")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen, "bench binding must be closed with ')'"); err != nil {
			return nil, err
		}
		body, err := p.captureBody(ast.KeywordBench)
		if err != nil {
			return nil, err
		}
		block := ast.NewBlock(ast.KeywordBench, desc.Text, pos)
		block.Arg = binding
		block.Body = &body
		return block, nil
	}

	return nil, &SyntaxError{Pos: pos, Keyword: string(keyword), Msg: "keyword not permitted here"}
}
