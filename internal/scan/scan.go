// Package scan holds the character-level scanning shared by the revset and
// template lexers: rune access, string literals and error construction.
package scan

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"weave/internal/diag"
)

// EOF is returned by Peek and Next at the end of the source.
const EOF rune = -1

// Scanner walks a source string rune by rune.
type Scanner struct {
	Src string
	Pos int
}

// Peek returns the next rune without consuming it.
func (s *Scanner) Peek() rune {
	if s.Pos >= len(s.Src) {
		return EOF
	}
	r, _ := utf8.DecodeRuneInString(s.Src[s.Pos:])
	return r
}

// PeekAt returns the rune n bytes ahead of the current position. It is meant
// for looking past ASCII punctuation.
func (s *Scanner) PeekAt(n int) rune {
	if s.Pos+n >= len(s.Src) {
		return EOF
	}
	r, _ := utf8.DecodeRuneInString(s.Src[s.Pos+n:])
	return r
}

// Next consumes and returns the next rune.
func (s *Scanner) Next() rune {
	if s.Pos >= len(s.Src) {
		return EOF
	}
	r, n := utf8.DecodeRuneInString(s.Src[s.Pos:])
	s.Pos += n
	return r
}

// HasPrefix reports whether the unconsumed source starts with p.
func (s *Scanner) HasPrefix(p string) bool {
	return strings.HasPrefix(s.Src[s.Pos:], p)
}

// SkipSpace consumes whitespace.
func (s *Scanner) SkipSpace() {
	for unicode.IsSpace(s.Peek()) {
		s.Next()
	}
}

// Errorf returns a parse error covering [from, to).
func (s *Scanner) Errorf(from, to int, expected []string, format string, args ...any) *diag.Error {
	return Errorf(s.Src, diag.Ranging{From: from, To: to}, expected, format, args...)
}

// Errorf returns a parse error for the given range of src.
func Errorf(src string, r diag.Ranging, expected []string, format string, args ...any) *diag.Error {
	return &diag.Error{
		Type:     "parse error",
		Message:  fmt.Sprintf(format, args...),
		Expected: expected,
		Context:  diag.NewContext(src, r),
	}
}

// IsIdentRune reports whether r may appear anywhere in an identifier.
func IsIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// String scans a quoted string starting at the current position, which must
// be a quote. Double-quoted strings support \" \\ \n \t \r \0 \e and \xHH
// escapes; single-quoted strings are raw.
func (s *Scanner) String() (string, *diag.Error) {
	begin := s.Pos
	quote := s.Next()
	var sb strings.Builder
	for {
		r := s.Next()
		switch {
		case r == EOF:
			return "", s.Errorf(begin, s.Pos, []string{fmt.Sprintf("closing %c", quote)}, "unterminated string")
		case r == quote:
			return sb.String(), nil
		case r == '\\' && quote == '"':
			escBegin := s.Pos - 1
			e := s.Next()
			switch e {
			case '"', '\\':
				sb.WriteRune(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case 'e':
				sb.WriteByte(0x1b)
			case 'x':
				if s.Pos+2 > len(s.Src) {
					return "", s.Errorf(escBegin, len(s.Src), []string{"two hex digits"}, "invalid escape sequence")
				}
				v, err := strconv.ParseUint(s.Src[s.Pos:s.Pos+2], 16, 8)
				if err != nil {
					return "", s.Errorf(escBegin, s.Pos+2, []string{"two hex digits"}, "invalid escape sequence")
				}
				s.Pos += 2
				sb.WriteByte(byte(v))
			default:
				return "", s.Errorf(escBegin, s.Pos, nil, "invalid escape sequence")
			}
		default:
			sb.WriteRune(r)
		}
	}
}
