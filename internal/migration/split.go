package migration

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// sqlLexer tokenizes just enough SQL to find statement boundaries. Rules are
// tried in order, so comments and quoted text win over Other.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LineComment", Pattern: `--[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "OpenComment", Pattern: `/\*`},
	{Name: "String", Pattern: `'(?:''|[^'])*'`},
	{Name: "QuotedIdent", Pattern: `"(?:""|[^"])*"`},
	{Name: "DollarString", Pattern: `\$\$(?:[^$]|\$[^$])*\$\$`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `[^;'"\s/$-]+|[/$-]`},
})

var (
	tokLineComment  = sqlLexer.Symbols()["LineComment"]
	tokBlockComment = sqlLexer.Symbols()["BlockComment"]
	tokOpenComment  = sqlLexer.Symbols()["OpenComment"]
	tokSemicolon    = sqlLexer.Symbols()["Semicolon"]
)

// Split breaks a migration file into statements. Comments are dropped, ';'
// inside quotes or comments does not end a statement, and empty statements are
// skipped. The returned statements carry no trailing ';'.
func Split(sql string) ([]string, error) {
	lex, err := sqlLexer.LexString("", sql)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	var (
		out []string
		buf strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("split: %w", err)
		}
		switch tok.Type {
		case lexer.EOF:
			flush()
			return out, nil
		case tokSemicolon:
			flush()
		case tokLineComment, tokBlockComment:
			// Keep tokens on either side apart.
			buf.WriteByte(' ')
		case tokOpenComment:
			return nil, fmt.Errorf("split: %s: unterminated block comment", tok.Pos)
		default:
			buf.WriteString(tok.Value)
		}
	}
}
