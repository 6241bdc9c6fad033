package gen

import (
	"fmt"
	"strings"
	"unicode"

	"speck/speck-go/pkg/lexer"
)

// IdentifierCollisionError reports two siblings whose descriptions
// canonicalize to the same identifier.
type IdentifierCollisionError struct {
	Pos         lexer.Pos
	ID          string
	Description string
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("gen: identifier %q for %q at %s collides with a sibling", e.ID, e.Description, e.Pos)
}

// Mangle canonicalizes a free-text description into an identifier: runes are
// lowercased, every run of non-identifier characters collapses to a single
// underscore, and leading/trailing underscores introduced by the collapse
// are trimmed. The mapping depends on nothing but its input.
func Mangle(description string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range description {
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSep = true
		}
	}
	id := b.String()
	if id == "" {
		return "_"
	}
	if r := rune(id[0]); r >= '0' && r <= '9' {
		id = "_" + id
	}
	return id
}

// scope tracks the identifiers already claimed within one container so that
// sibling units and sub-containers stay distinct.
type scope struct {
	used map[string]struct{}
}

func newScope() *scope {
	return &scope{used: make(map[string]struct{})}
}

func (s *scope) claim(description string, pos lexer.Pos) (string, error) {
	id := Mangle(description)
	if _, taken := s.used[id]; taken {
		return "", &IdentifierCollisionError{Pos: pos, ID: id, Description: description}
	}
	s.used[id] = struct{}{}
	return id, nil
}
