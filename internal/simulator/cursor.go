package simulator

import (
	"regexp"
	"strings"
	"unicode"
)

// cursor holds the unconsumed remainder of a single statement. Every match is
// anchored at offset zero; nothing ever scans forward.
type cursor struct {
	rest string
}

func newCursor(src string) *cursor {
	return &cursor{rest: strings.TrimLeftFunc(src, unicode.IsSpace)}
}

// matchAnchored tries re at the start of the remainder. On success it advances
// past the match and any trailing whitespace and returns the first capture
// group (or the whole match when re has no groups). On failure the cursor is
// left as it was.
func (c *cursor) matchAnchored(re *regexp.Regexp) (string, bool) {
	loc := re.FindStringSubmatchIndex(c.rest)
	if loc == nil || loc[0] != 0 {
		return "", false
	}
	got := c.rest[loc[0]:loc[1]]
	if len(loc) >= 4 && loc[2] >= 0 {
		got = c.rest[loc[2]:loc[3]]
	}
	c.advance(loc[1])
	return got, true
}

// advance drops n bytes and the whitespace that follows them.
func (c *cursor) advance(n int) {
	c.rest = strings.TrimLeftFunc(c.rest[n:], unicode.IsSpace)
}

func (c *cursor) done() bool {
	return c.rest == ""
}
