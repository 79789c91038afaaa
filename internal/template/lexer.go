package template

import (
	"fmt"
	"strconv"
	"unicode"

	"weave/internal/diag"
	"weave/internal/scan"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokInt
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokConcat
	tokOr
	tokAnd
	tokEq
	tokNe
	tokNot
	tokMinus
	tokPipe
)

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of input",
	tokIdent:  "identifier",
	tokString: "string",
	tokInt:    "integer",
	tokLParen: "`(`",
	tokRParen: "`)`",
	tokComma:  "`,`",
	tokDot:    "`.`",
	tokConcat: "`++`",
	tokOr:     "`||`",
	tokAnd:    "`&&`",
	tokEq:     "`==`",
	tokNe:     "`!=`",
	tokNot:    "`!`",
	tokMinus:  "`-`",
	tokPipe:   "`|`",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string
	n    int64
	span diag.Ranging
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent:
		return fmt.Sprintf("identifier %q", t.text)
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	case tokInt:
		return fmt.Sprintf("integer %d", t.n)
	}
	return t.kind.String()
}

var operators = []struct {
	text string
	kind tokenKind
}{
	{"++", tokConcat},
	{"||", tokOr},
	{"&&", tokAnd},
	{"==", tokEq},
	{"!=", tokNe},
	{"(", tokLParen},
	{")", tokRParen},
	{",", tokComma},
	{".", tokDot},
	{"!", tokNot},
	{"-", tokMinus},
	{"|", tokPipe},
}

func lex(src string) ([]token, error) {
	s := &scan.Scanner{Src: src}
	var toks []token
	add := func(k tokenKind, begin int, text string) {
		toks = append(toks, token{kind: k, text: text, span: diag.Ranging{From: begin, To: s.Pos}})
	}
next:
	for {
		s.SkipSpace()
		begin := s.Pos
		r := s.Peek()
		switch {
		case r == scan.EOF:
			toks = append(toks, token{kind: tokEOF, span: diag.PointRanging(begin)})
			return toks, nil
		case r == '"' || r == '\'':
			v, err := s.String()
			if err != nil {
				return nil, err
			}
			add(tokString, begin, v)
			continue
		case unicode.IsDigit(r):
			for unicode.IsDigit(s.Peek()) {
				s.Next()
			}
			n, err := strconv.ParseInt(src[begin:s.Pos], 10, 64)
			if err != nil {
				return nil, s.Errorf(begin, s.Pos, nil, "integer %s out of range", src[begin:s.Pos])
			}
			add(tokInt, begin, src[begin:s.Pos])
			toks[len(toks)-1].n = n
			continue
		case scan.IsIdentRune(r):
			for scan.IsIdentRune(s.Peek()) {
				s.Next()
			}
			add(tokIdent, begin, src[begin:s.Pos])
			continue
		}
		for _, op := range operators {
			if s.HasPrefix(op.text) {
				s.Pos += len(op.text)
				add(op.kind, begin, op.text)
				continue next
			}
		}
		s.Next()
		return nil, s.Errorf(begin, s.Pos, []string{"template"}, "unexpected character %q", r)
	}
}
