package region

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokSemicolon
	tokComment // everything after '#', unparsed
	tokOther
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of line"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokSemicolon:
		return "';'"
	case tokComment:
		return "comment"
	}
	return "symbol"
}

// A token is one lexeme of a region line. Numbers keep their text as-is
// (they might be sexagesimal) and carry the size unit mark that followed
// them, if any: '"' arcsec, '\'' arcmin, 'd' degrees.
type token struct {
	kind tokenKind
	text string
	unit byte
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return t.kind.String()
	case tokNumber:
		if t.unit != 0 {
			return fmt.Sprintf("%s%c", t.text, t.unit)
		}
	}
	return fmt.Sprintf("%q", t.text)
}

// lex splits a line into tokens. It never fails; characters it doesn't
// know become tokOther, and it is up to the parser to object to them.
func lex(line string) []token {
	var toks []token
	s := line
	i := 0

	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c):
			i++

		case c == '#':
			toks = append(toks, token{kind: tokComment, text: s[i+1:], pos: i})
			i = len(s)

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == ';':
			toks = append(toks, token{kind: tokSemicolon, text: ";", pos: i})
			i++

		case isNumberStart(c):
			start := i
			for i < len(s) && isNumberChar(s[i], s, i) {
				i++
			}
			t := token{kind: tokNumber, text: s[start:i], pos: start}
			if i < len(s) && (s[i] == '"' || s[i] == '\'' || s[i] == 'd') {
				t.unit = s[i]
				i++
			}
			toks = append(toks, t)

		case unicode.IsLetter(rune(c)) || c == '_':
			start := i
			for i < len(s) && (unicode.IsLetter(rune(s[i])) || unicode.IsDigit(rune(s[i])) || s[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: strings.ToLower(s[start:i]), pos: start})

		default:
			toks = append(toks, token{kind: tokOther, text: s[i : i+1], pos: i})
			i++
		}
	}

	return append(toks, token{kind: tokEOF, pos: len(s)})
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
}

// isNumberChar accepts digits, the sexagesimal separator, and the pieces
// of a float (including an exponent, but only when followed by a digit or
// sign so that a trailing 'd' unit isn't swallowed).
func isNumberChar(c byte, s string, i int) bool {
	switch {
	case c >= '0' && c <= '9', c == '.', c == ':':
		return true
	case c == '+' || c == '-':
		return i > 0 && (s[i-1] == 'e' || s[i-1] == 'E' || s[i-1] == ':')
	case c == 'e' || c == 'E':
		return i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-' || (s[i+1] >= '0' && s[i+1] <= '9'))
	}
	return false
}

// parseAttributes reads DS9 style `key=value` pairs; values may be bare
// words, quoted ("..." or '...') or braced ({...}). Keys are lowercased.
// Anything that isn't a pair is ignored.
func parseAttributes(s string) map[string]string {
	attrs := map[string]string{}
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		start := i
		for i < len(s) && s[i] != '=' && !isSpace(s[i]) {
			i++
		}
		key := strings.ToLower(s[start:i])
		if i >= len(s) || s[i] != '=' {
			continue
		}
		i++ // '='

		var val string
		if i < len(s) && (s[i] == '"' || s[i] == '\'' || s[i] == '{') {
			closer := s[i]
			if closer == '{' {
				closer = '}'
			}
			i++
			start = i
			for i < len(s) && s[i] != closer {
				i++
			}
			val = s[start:i]
			if i < len(s) {
				i++
			}
		} else {
			start = i
			for i < len(s) && !isSpace(s[i]) {
				i++
			}
			val = s[start:i]
		}

		if key != "" {
			attrs[key] = val
		}
	}
	return attrs
}
