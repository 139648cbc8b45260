// Package lexer turns peme source text into tokens.
//
// Besides atoms and parentheses the lexer emits a LINE token at the start of
// every physical line that carries content. Its literal is the line's leading
// whitespace, which the parser uses to build the indentation tree. Blank
// lines and lines holding only comments produce no LINE token.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	perrors "github.com/sambeau/peme/pkg/peme/errors"
)

// TokenType represents different types of tokens
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	LINE // start of a content line; Literal holds the indentation

	LPAREN    // (
	RPAREN    // )
	FLOAT     // 1.5, .5, 2.
	INT       // 42, -7
	STRING    // "text"
	ATTRIBUTE // .name directly after an expression
	SYMBOL    // define, +, list*, set!
)

var tokenNames = map[TokenType]string{
	ILLEGAL:   "ILLEGAL",
	EOF:       "EOF",
	LINE:      "LINE",
	LPAREN:    "(",
	RPAREN:    ")",
	FLOAT:     "FLOAT",
	INT:       "INT",
	STRING:    "STRING",
	ATTRIBUTE: "ATTRIBUTE",
	SYMBOL:    "SYMBOL",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical element. Start and End are byte offsets into the
// source; End is exclusive.
type Token struct {
	Type    TokenType
	Literal string
	Start   int
	End     int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d", t.Type, t.Literal, t.Start)
}

// Lexer scans a source string.
type Lexer struct {
	input       string
	pos         int
	atLineStart bool
	ownerEnd    int // end offset of the last token an attribute may attach to, or -1
}

// New creates a lexer over input.
func New(input string) *Lexer {
	return &Lexer{input: input, atLineStart: true, ownerEnd: -1}
}

// Tokenize scans the whole input. It is mostly useful for tests and tooling.
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var toks []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

// NextToken returns the next token. Lexical errors are *errors.PemeError
// values whose Data carries the failing byte "Offset".
func (l *Lexer) NextToken() (Token, error) {
	if l.atLineStart {
		return l.nextLine()
	}

	if err := l.skipSpace(); err != nil {
		return Token{Type: ILLEGAL}, err
	}

	if l.pos >= len(l.input) {
		return Token{Type: EOF, Start: l.pos, End: l.pos}, nil
	}

	if l.input[l.pos] == '\n' {
		l.pos++
		l.atLineStart = true
		return l.nextLine()
	}

	tok, err := l.readToken()
	if err != nil {
		return Token{Type: ILLEGAL}, err
	}

	switch tok.Type {
	case SYMBOL, INT, FLOAT, STRING, RPAREN, ATTRIBUTE:
		l.ownerEnd = tok.End
	default:
		l.ownerEnd = -1
	}
	return tok, nil
}

// nextLine skips blank and comment-only lines and emits a LINE token for the
// next line with content.
func (l *Lexer) nextLine() (Token, error) {
	for {
		lineStart := l.pos
		for l.pos < len(l.input) && isHorizontalSpace(l.input[l.pos]) {
			l.pos++
		}
		indent := l.input[lineStart:l.pos]

		if err := l.skipSpace(); err != nil {
			return Token{Type: ILLEGAL}, err
		}
		if l.pos >= len(l.input) {
			l.atLineStart = false
			return Token{Type: EOF, Start: l.pos, End: l.pos}, nil
		}
		if l.input[l.pos] == '\n' {
			l.pos++
			continue
		}

		l.atLineStart = false
		l.ownerEnd = -1
		return Token{Type: LINE, Literal: indent, Start: l.pos, End: l.pos}, nil
	}
}

// skipSpace skips horizontal whitespace, line comments and block comments.
// It stops at a newline.
func (l *Lexer) skipSpace() error {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case isHorizontalSpace(ch):
			l.pos++
		case ch == ';':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		case strings.HasPrefix(l.input[l.pos:], "#|"):
			end := strings.Index(l.input[l.pos+2:], "|#")
			if end < 0 {
				return lexError("LEX-0002", l.pos, nil)
			}
			l.pos += 2 + end + 2
		default:
			return nil
		}
	}
	return nil
}

// readToken reads one token starting at l.pos, trying the token shapes in
// priority order.
func (l *Lexer) readToken() (Token, error) {
	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return Token{Type: LPAREN, Literal: "(", Start: start, End: l.pos}, nil
	case ')':
		l.pos++
		return Token{Type: RPAREN, Literal: ")", Start: start, End: l.pos}, nil
	case '"':
		return l.readString()
	}

	if n := matchFloat(l.input[start:]); n > 0 {
		l.pos += n
		return Token{Type: FLOAT, Literal: l.input[start:l.pos], Start: start, End: l.pos}, nil
	}

	if n := matchInt(l.input[start:]); n > 0 {
		l.pos += n
		return Token{Type: INT, Literal: l.input[start:l.pos], Start: start, End: l.pos}, nil
	}

	if ch == '.' {
		n := symbolLength(l.input[start+1:])
		if n == 0 {
			return Token{}, lexError("LEX-0001", start, map[string]any{"Token": unknownRun(l.input[start:])})
		}
		name := norm.NFC.String(l.input[start+1 : start+1+n])
		if l.ownerEnd != start {
			return Token{}, lexError("LEX-0004", start, map[string]any{"Name": name})
		}
		l.pos += 1 + n
		return Token{Type: ATTRIBUTE, Literal: name, Start: start, End: l.pos}, nil
	}

	if n := symbolLength(l.input[start:]); n > 0 {
		l.pos += n
		return Token{Type: SYMBOL, Literal: norm.NFC.String(l.input[start:l.pos]), Start: start, End: l.pos}, nil
	}

	return Token{}, lexError("LEX-0001", start, map[string]any{"Token": unknownRun(l.input[start:])})
}

// readString reads a double-quoted string literal with \" \\ \n and \t escapes.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch ch {
		case '"':
			l.pos++
			return Token{Type: STRING, Literal: sb.String(), Start: start, End: l.pos}, nil
		case '\\':
			if l.pos+1 >= len(l.input) {
				return Token{}, lexError("LEX-0003", start, nil)
			}
			switch l.input[l.pos+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(l.input[l.pos+1])
			}
			l.pos += 2
		default:
			sb.WriteByte(ch)
			l.pos++
		}
	}
	return Token{}, lexError("LEX-0003", start, nil)
}

// matchFloat returns the length of a float literal prefix of s, or 0.
// Grammar: [+-]? ( '.' digits | digits '.' digits? )
func matchFloat(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := countDigits(s[i:])
	if digits == 0 {
		if i < len(s) && s[i] == '.' {
			frac := countDigits(s[i+1:])
			if frac > 0 {
				return i + 1 + frac
			}
		}
		return 0
	}
	i += digits
	if i < len(s) && s[i] == '.' {
		return i + 1 + countDigits(s[i+1:])
	}
	return 0
}

// matchInt returns the length of an integer literal prefix of s, or 0.
func matchInt(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := countDigits(s[i:])
	if digits == 0 {
		return 0
	}
	return i + digits
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// symbolLength returns the byte length of the symbol run at the start of s:
// everything up to whitespace, a parenthesis or a dot.
func symbolLength(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if r == '(' || r == ')' || r == '.' || unicode.IsSpace(r) {
			break
		}
		n += size
	}
	return n
}

// unknownRun returns the run of non-space text at the start of s.
func unknownRun(s string) string {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if unicode.IsSpace(r) {
			break
		}
		n += size
	}
	return s[:n]
}

func isHorizontalSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v'
}

func lexError(code string, offset int, data map[string]any) *perrors.PemeError {
	if data == nil {
		data = map[string]any{}
	}
	data["Offset"] = offset
	return perrors.New(code, data)
}
