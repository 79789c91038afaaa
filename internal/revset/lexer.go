package revset

import (
	"fmt"

	"weave/internal/diag"
	"weave/internal/scan"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokAt
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokDoubleColon
	tokDotDot
	tokPipe
	tokAmp
	tokTilde
	tokMinus
)

var tokenNames = map[tokenKind]string{
	tokEOF:         "end of input",
	tokIdent:       "identifier",
	tokString:      "string",
	tokAt:          "`@`",
	tokLParen:      "`(`",
	tokRParen:      "`)`",
	tokComma:       "`,`",
	tokColon:       "`:`",
	tokDoubleColon: "`::`",
	tokDotDot:      "`..`",
	tokPipe:        "`|`",
	tokAmp:         "`&`",
	tokTilde:       "`~`",
	tokMinus:       "`-`",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string
	span diag.Ranging
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent:
		return fmt.Sprintf("identifier %q", t.text)
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	}
	return t.kind.String()
}

// lex splits src into tokens. Identifiers may contain `-`, `.` and `+` only
// between identifier characters, so `main-2` is one symbol while `a - b` and
// `a..b` are operators.
func lex(src string) ([]token, error) {
	s := &scan.Scanner{Src: src}
	var toks []token
	for {
		s.SkipSpace()
		begin := s.Pos
		r := s.Peek()
		emit := func(k tokenKind, n int) {
			s.Pos += n
			toks = append(toks, token{kind: k, span: diag.Ranging{From: begin, To: s.Pos}})
		}
		switch {
		case r == scan.EOF:
			toks = append(toks, token{kind: tokEOF, span: diag.PointRanging(begin)})
			return toks, nil
		case r == '"' || r == '\'':
			v, err := s.String()
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: v, span: diag.Ranging{From: begin, To: s.Pos}})
		case isSymbolRune(r):
			for {
				r := s.Peek()
				if isSymbolRune(r) {
					s.Next()
					continue
				}
				if (r == '-' || r == '.' || r == '+') && isSymbolRune(s.PeekAt(1)) {
					s.Next()
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokIdent, text: src[begin:s.Pos], span: diag.Ranging{From: begin, To: s.Pos}})
		case s.HasPrefix("::"):
			emit(tokDoubleColon, 2)
		case s.HasPrefix(".."):
			emit(tokDotDot, 2)
		case r == ':':
			emit(tokColon, 1)
		case r == '@':
			emit(tokAt, 1)
		case r == '(':
			emit(tokLParen, 1)
		case r == ')':
			emit(tokRParen, 1)
		case r == ',':
			emit(tokComma, 1)
		case r == '|':
			emit(tokPipe, 1)
		case r == '&':
			emit(tokAmp, 1)
		case r == '~':
			emit(tokTilde, 1)
		case r == '-':
			emit(tokMinus, 1)
		default:
			s.Next()
			return nil, s.Errorf(begin, s.Pos, []string{"expression"}, "unexpected character %q", r)
		}
	}
}

func isSymbolRune(r rune) bool {
	return scan.IsIdentRune(r) || r == '/'
}
