package simulator

import (
	"errors"
	"fmt"
	"strings"
)

// remainderLimit caps how much unconsumed input is quoted in error messages.
const remainderLimit = 40

// ErrNoProgress is returned when a repeated clause neither consumed input nor
// signalled termination.
var ErrNoProgress = errors.New("simulator: repeated clause made no progress")

// UnexpectedTokenError reports that none of the expected tokens were found at
// the current position.
type UnexpectedTokenError struct {
	Expected  []string
	Remaining string
}

func (e *UnexpectedTokenError) Error() string {
	quoted := make([]string, len(e.Expected))
	for i, x := range e.Expected {
		quoted[i] = fmt.Sprintf("%q", x)
	}
	return fmt.Sprintf("unexpected token: expected %s near %s",
		strings.Join(quoted, " | "), near(e.Remaining))
}

// UnknownIdentifierError reports that an identifier, expression or data type
// was required but could not be matched.
type UnknownIdentifierError struct {
	// Expected is "identifier", "expression" or "data type".
	Expected  string
	Remaining string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("expected %s near %s", e.Expected, near(e.Remaining))
}

// UnbalancedScopeError reports that a parenthesised scope or quoted literal
// was never closed.
type UnbalancedScopeError struct {
	Remaining string
}

func (e *UnbalancedScopeError) Error() string {
	return fmt.Sprintf("unbalanced scope: missing closing ')' in %s", near(e.Remaining))
}

// UnmatchedBracketError reports a closing bracket with no opening partner.
type UnmatchedBracketError struct {
	Bracket   rune
	Remaining string
}

func (e *UnmatchedBracketError) Error() string {
	return fmt.Sprintf("unmatched bracket %q in %s", e.Bracket, near(e.Remaining))
}

func near(s string) string {
	if s == "" {
		return "end of input"
	}
	if len(s) > remainderLimit {
		s = s[:remainderLimit] + "..."
	}
	return fmt.Sprintf("%q", s)
}
