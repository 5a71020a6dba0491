package simulator

import "fmt"

// branch ties a keyword pattern to the value a grammar switches on. The
// keyword text is only ever used for matching.
type branch[K any] struct {
	word string
	kind K
}

// switchToken returns the kind of the first branch whose keyword matches at
// the cursor. Branches are tried in order, so longer keyword sequences that
// share a prefix must come first.
func switchToken[K any](p *parser, branches []branch[K]) (K, bool) {
	for _, b := range branches {
		if _, ok := p.cur.matchAnchored(keywordPattern(b.word)); ok {
			return b.kind, true
		}
	}
	var zero K
	return zero, false
}

// expectToken is switchToken that fails when no branch matches.
func expectToken[K any](p *parser, branches []branch[K]) (K, error) {
	if k, ok := switchToken(p, branches); ok {
		return k, nil
	}
	words := make([]string, len(branches))
	for i, b := range branches {
		words[i] = b.word
	}
	var zero K
	return zero, &UnexpectedTokenError{Expected: words, Remaining: p.cur.rest}
}

// scope runs fn between '(' and ')' when a '(' opens at the cursor, and
// reports whether it did. Unlike getInScope the content is grammar driven.
func (p *parser) scope(fn func() error) (bool, error) {
	if !p.optionalToken("(") {
		return false, nil
	}
	if err := fn(); err != nil {
		return true, err
	}
	_, err := p.getToken(")")
	return true, err
}

// requireScope is scope for places where the parentheses are mandatory.
func (p *parser) requireScope(fn func() error) error {
	ok, err := p.scope(fn)
	if err != nil {
		return err
	}
	if !ok {
		return &UnexpectedTokenError{Expected: []string{"("}, Remaining: p.cur.rest}
	}
	return nil
}

// ifToken runs then when one of candidates matches and otherwise when none
// does. otherwise may be nil.
func (p *parser) ifToken(candidates []string, then func(tok string) error, otherwise func() error) error {
	if tok, ok := p.findToken(candidates...); ok {
		return then(tok)
	}
	if otherwise != nil {
		return otherwise()
	}
	return nil
}

// repeat calls fn until it returns false. An iteration that asks to continue
// without consuming input is an error.
func (p *parser) repeat(fn func() (bool, error)) error {
	for {
		before := len(p.cur.rest)
		more, err := fn()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if len(p.cur.rest) == before {
			return fmt.Errorf("%w near %s", ErrNoProgress, near(p.cur.rest))
		}
	}
}

// commaList parses one or more items separated by ','.
func (p *parser) commaList(item func() error) error {
	return p.repeat(func() (bool, error) {
		if err := item(); err != nil {
			return false, err
		}
		return p.optionalToken(","), nil
	})
}

// identifierList parses "a, b, c".
func (p *parser) identifierList() ([]string, error) {
	var names []string
	err := p.commaList(func() error {
		name, err := p.getIdentifier()
		if err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	return names, err
}
