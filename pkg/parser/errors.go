package parser

import (
	"fmt"

	"speck/speck-go/pkg/lexer"
)

// SyntaxError reports a token stream that does not match the block grammar.
// Keyword carries the offending keyword when one is known.
type SyntaxError struct {
	Pos     lexer.Pos
	Keyword string
	Msg     string
}

func (e *SyntaxError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("parser: syntax error at %s: %s (near %q)", e.Pos, e.Msg, e.Keyword)
	}
	return fmt.Sprintf("parser: syntax error at %s: %s", e.Pos, e.Msg)
}

// DuplicateHookError reports a second before_each or after_each in one group.
type DuplicateHookError struct {
	Pos   lexer.Pos
	Hook  string
	Group string
}

func (e *DuplicateHookError) Error() string {
	return fmt.Sprintf("parser: duplicate %s in group %q at %s", e.Hook, e.Group, e.Pos)
}

// MalformedItemError reports a leaf missing its description or body.
type MalformedItemError struct {
	Pos    lexer.Pos
	Reason string
}

func (e *MalformedItemError) Error() string {
	return fmt.Sprintf("parser: malformed item at %s: %s", e.Pos, e.Reason)
}
