package simulator

import "strings"

// getInScope is called with the cursor just past an opening '('. It returns
// the text up to the matching ')' and moves the cursor past that ')'.
// Quoted literals and backslash-escaped characters never terminate the scope.
func (p *parser) getInScope() (string, error) {
	end, err := scanScope(p.cur.rest)
	if err != nil {
		return "", err
	}
	inner := strings.TrimSpace(p.cur.rest[:end])
	p.cur.advance(end + 1)
	return inner, nil
}

// scanScope returns the offset of the ')' that closes an already opened
// scope. The quote character that opened a string is remembered so that the
// other quote characters are literal inside it. '{}', '[]' and '()' nest
// independently; the terminator only counts when all three are balanced.
func scanScope(s string) (int, error) {
	var (
		quote                 byte
		curly, square, parens int
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		escaped := isEscaped(s, i)
		if quote != 0 {
			if ch == quote && !escaped {
				quote = 0
			}
			continue
		}
		if escaped {
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '{':
			curly++
		case '[':
			square++
		case '(':
			parens++
		case '}':
			curly--
			if curly < 0 {
				return 0, &UnmatchedBracketError{Bracket: '}', Remaining: s[i:]}
			}
		case ']':
			square--
			if square < 0 {
				return 0, &UnmatchedBracketError{Bracket: ']', Remaining: s[i:]}
			}
		case ')':
			if parens == 0 && curly == 0 && square == 0 {
				return i, nil
			}
			parens--
			if parens < 0 {
				return 0, &UnmatchedBracketError{Bracket: ')', Remaining: s[i:]}
			}
		}
	}
	return 0, &UnbalancedScopeError{Remaining: s}
}

// isEscaped reports whether s[i] is preceded by an odd number of backslashes.
func isEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// closeQuote returns the offset of the unescaped quote closing the literal
// that opens at s[start].
func closeQuote(s string, start int) (int, bool) {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		if s[i] == q && !isEscaped(s, i) {
			return i, true
		}
	}
	return 0, false
}

// scanExpression returns the length of the expression token at the start of
// s: operator and word characters, quoted literals and balanced
// parenthesised groups. It stops at whitespace, ',' or an unmatched ')'.
func scanExpression(s string) (int, error) {
	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end, ok := closeQuote(s, i)
			if !ok {
				return 0, &UnbalancedScopeError{Remaining: s[i:]}
			}
			i = end + 1
		case ch == '(':
			end, err := scanScope(s[i+1:])
			if err != nil {
				return 0, err
			}
			i += end + 2
		case isExpressionByte(ch):
			i++
		default:
			return i, nil
		}
	}
	return i, nil
}

func isExpressionByte(b byte) bool {
	return isWordByte(b) || b >= 0x80 || strings.IndexByte(".:+-*/%<>=!|&~[]$@#^", b) >= 0
}

// scanUntil returns the offset of the first stop keyword that starts a word at
// parenthesis depth zero, or of a top-level ',' ';' or unmatched ')'.
func scanUntil(s string, stops []string) (int, error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end, ok := closeQuote(s, i)
			if !ok {
				return 0, &UnbalancedScopeError{Remaining: s[i:]}
			}
			i = end
		case ch == '(':
			depth++
		case ch == ')':
			if depth == 0 {
				return i, nil
			}
			depth--
		case depth > 0:
		case ch == ',' || ch == ';':
			return i, nil
		case isWordByte(ch) && (i == 0 || !isWordByte(s[i-1])):
			for _, stop := range stops {
				if keywordPattern(stop).MatchString(s[i:]) {
					return i, nil
				}
			}
		}
	}
	return len(s), nil
}
