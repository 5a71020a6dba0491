package simulator

import (
	"regexp"
	"strings"
	"sync"
)

// identPattern matches a run of word characters, dots and quoted identifier
// segments, e.g. users, public.users, "Order Items", `tbl`.
var identPattern = regexp.MustCompile("^((?:\"(?:[^\"]|\"\")*\"|`[^`]*`|[\\w.])+)")

// keyword patterns are shared by all simulators; they never change once built.
var keywordCache = struct {
	sync.RWMutex
	m map[string]*regexp.Regexp
}{m: map[string]*regexp.Regexp{}}

// keywordPattern returns the anchored, case-insensitive pattern for a keyword
// or keyword sequence such as "SET DATA TYPE". Word-like keywords only match
// as whole words.
func keywordPattern(word string) *regexp.Regexp {
	keywordCache.RLock()
	re, ok := keywordCache.m[word]
	keywordCache.RUnlock()
	if ok {
		return re
	}

	parts := strings.Fields(word)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := `(?i)^(` + strings.Join(parts, `\s+`) + `)`
	if isWordByte(word[len(word)-1]) {
		expr += `\b`
	}
	re = regexp.MustCompile(expr)

	keywordCache.Lock()
	keywordCache.m[word] = re
	keywordCache.Unlock()
	return re
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// findToken returns the first candidate matching at the cursor.
func (p *parser) findToken(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if _, ok := p.cur.matchAnchored(keywordPattern(c)); ok {
			return c, true
		}
	}
	return "", false
}

// getToken is findToken that fails when nothing matches.
func (p *parser) getToken(candidates ...string) (string, error) {
	if tok, ok := p.findToken(candidates...); ok {
		return tok, nil
	}
	return "", &UnexpectedTokenError{Expected: candidates, Remaining: p.cur.rest}
}

func (p *parser) optionalToken(candidates ...string) bool {
	_, ok := p.findToken(candidates...)
	return ok
}

// lookahead reports whether one of candidates is next without consuming it.
func (p *parser) lookahead(candidates ...string) bool {
	for _, c := range candidates {
		if keywordPattern(c).MatchString(p.cur.rest) {
			return true
		}
	}
	return false
}

// getIdentifier returns the next identifier with quoting removed.
func (p *parser) getIdentifier() (string, error) {
	raw, ok := p.cur.matchAnchored(identPattern)
	if !ok {
		return "", &UnknownIdentifierError{Expected: "identifier", Remaining: p.cur.rest}
	}
	return unquoteIdent(raw), nil
}

// getExpression captures a default value, parameter value or USING clause.
func (p *parser) getExpression() (string, error) {
	n, err := scanExpression(p.cur.rest)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", &UnknownIdentifierError{Expected: "expression", Remaining: p.cur.rest}
	}
	expr := p.cur.rest[:n]
	p.cur.advance(n)
	return expr, nil
}

// getUntil captures everything before the next stop keyword, or before a
// top-level ',' ')' or ';'. It is used for data types, whose spelling is
// open-ended.
func (p *parser) getUntil(stops ...string) (string, error) {
	n, err := scanUntil(p.cur.rest, stops)
	if err != nil {
		return "", err
	}
	span := strings.TrimSpace(p.cur.rest[:n])
	if span == "" {
		return "", &UnknownIdentifierError{Expected: "data type", Remaining: p.cur.rest}
	}
	p.cur.advance(n)
	return span, nil
}

// unquoteIdent strips double quotes or backticks from each dotted segment.
func unquoteIdent(raw string) string {
	if !strings.ContainsAny(raw, "\"`") {
		return raw
	}
	var (
		b     strings.Builder
		quote byte
	)
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '`'):
			quote = ch
		case quote != 0 && ch == quote:
			if ch == '"' && i+1 < len(raw) && raw[i+1] == '"' {
				b.WriteByte('"')
				i++
				continue
			}
			quote = 0
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
