package revset

import (
	"weave/internal/diag"
	"weave/internal/scan"
)

// Parse parses a revset expression into a new arena.
func Parse(text string) (Expr, error) {
	return ParseInto(NewArena(), "", text)
}

// ParseInto parses text into an existing arena. alias names the alias whose
// body text is, or is empty for top-level input.
func ParseInto(a *Arena, alias, text string) (Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return Expr{}, err
	}
	p := &parser{arena: a, src: text, toks: toks, source: a.addSource(alias, text)}
	root, err := p.parseUnion()
	if err != nil {
		return Expr{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Expr{}, p.unexpected(t, "operator", "end of input")
	}
	return Expr{Arena: a, Root: root}, nil
}

type parser struct {
	arena  *Arena
	src    string
	toks   []token
	pos    int
	source int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) unexpected(t token, expected ...string) error {
	return scan.Errorf(p.src, t.span, expected, "unexpected %s", t.describe())
}

func (p *parser) expect(k tokenKind) (token, error) {
	t := p.peek()
	if t.kind != k {
		return t, p.unexpected(t, k.String())
	}
	return p.next(), nil
}

func (p *parser) node(kind Kind, name string, span diag.Ranging, args ...ExprID) ExprID {
	return p.arena.alloc(Node{Kind: kind, Name: name, Args: args, Span: span, Source: p.source})
}

func (p *parser) span(id ExprID) diag.Ranging { return p.arena.Node(id).Span }

func (p *parser) spanOf(a, b ExprID) diag.Ranging {
	return diag.MixedRanging(p.span(a), p.span(b))
}

// union := intersection ('|' intersection)*
func (p *parser) parseUnion() (ExprID, error) {
	left, err := p.parseIntersection()
	if err != nil {
		return NoExpr, err
	}
	for p.peek().kind == tokPipe {
		p.next()
		right, err := p.parseIntersection()
		if err != nil {
			return NoExpr, err
		}
		left = p.node(KindUnion, "", p.spanOf(left, right), left, right)
	}
	return left, nil
}

// intersection := difference ('&' difference)*
func (p *parser) parseIntersection() (ExprID, error) {
	left, err := p.parseDifference()
	if err != nil {
		return NoExpr, err
	}
	for p.peek().kind == tokAmp {
		p.next()
		right, err := p.parseDifference()
		if err != nil {
			return NoExpr, err
		}
		left = p.node(KindIntersection, "", p.spanOf(left, right), left, right)
	}
	return left, nil
}

// difference := prefix (('~' | '-') prefix)*
func (p *parser) parseDifference() (ExprID, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return NoExpr, err
	}
	for k := p.peek().kind; k == tokTilde || k == tokMinus; k = p.peek().kind {
		p.next()
		right, err := p.parsePrefix()
		if err != nil {
			return NoExpr, err
		}
		left = p.node(KindDifference, "", p.spanOf(left, right), left, right)
	}
	return left, nil
}

// prefix := ('~' | '-') prefix | range
func (p *parser) parsePrefix() (ExprID, error) {
	if k := p.peek().kind; k == tokTilde || k == tokMinus {
		op := p.next()
		x, err := p.parsePrefix()
		if err != nil {
			return NoExpr, err
		}
		return p.node(KindComplement, "", diag.MixedRanging(op.span, p.span(x)), x), nil
	}
	return p.parseRange()
}

// range := ('::' | '..') [primary] | primary [('::' | '..') [primary]]
//
// Range operators do not associate: `a::b::c` is an error.
func (p *parser) parseRange() (ExprID, error) {
	var left ExprID = NoExpr
	if k := p.peek().kind; k != tokDoubleColon && k != tokDotDot {
		x, err := p.parsePrimary()
		if err != nil {
			return NoExpr, err
		}
		left = x
	}
	op := p.peek()
	if op.kind != tokDoubleColon && op.kind != tokDotDot {
		return left, nil
	}
	p.next()
	var right ExprID = NoExpr
	if p.startsPrimary() {
		x, err := p.parsePrimary()
		if err != nil {
			return NoExpr, err
		}
		right = x
	}
	if t := p.peek(); t.kind == tokDoubleColon || t.kind == tokDotDot {
		return NoExpr, scan.Errorf(p.src, t.span, []string{"parentheses"}, "range operator %s is not associative", t.kind)
	}

	span := op.span
	if left != NoExpr {
		span.From = p.span(left).From
	}
	if right != NoExpr {
		span.To = p.span(right).To
	}
	switch {
	case op.kind == tokDotDot:
		return p.node(KindRange, "", span, left, right), nil
	case left == NoExpr && right != NoExpr:
		return p.node(KindAncestors, "", span, right), nil
	case left != NoExpr && right == NoExpr:
		return p.node(KindDescendants, "", span, left), nil
	default:
		return p.node(KindDagRange, "", span, left, right), nil
	}
}

func (p *parser) startsPrimary() bool {
	switch p.peek().kind {
	case tokIdent, tokString, tokAt, tokLParen:
		return true
	}
	return false
}

// primary := '(' union ')' | '@' | string | ident ':' (ident | string)
//
//	| ident '(' [union (',' union)* [',']] ')' | ident
func (p *parser) parsePrimary() (ExprID, error) {
	t := p.peek()
	switch t.kind {
	case tokLParen:
		p.next()
		x, err := p.parseUnion()
		if err != nil {
			return NoExpr, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return NoExpr, err
		}
		return x, nil
	case tokAt:
		p.next()
		return p.node(KindWorkingCopy, "@", t.span), nil
	case tokString:
		p.next()
		return p.node(KindString, t.text, t.span), nil
	case tokIdent:
		p.next()
		switch p.peek().kind {
		case tokLParen:
			return p.parseCall(t)
		case tokColon:
			p.next()
			v := p.peek()
			if v.kind != tokString && v.kind != tokIdent {
				return NoExpr, p.unexpected(v, "string", "identifier")
			}
			p.next()
			id := p.arena.alloc(Node{
				Kind: KindPattern, Name: t.text, Value: v.text,
				Span: diag.MixedRanging(t.span, v.span), Source: p.source,
			})
			return id, nil
		}
		return p.node(KindSymbol, t.text, t.span), nil
	}
	return NoExpr, p.unexpected(t, "expression")
}

func (p *parser) parseCall(name token) (ExprID, error) {
	p.next() // (
	var args []ExprID
	for p.peek().kind != tokRParen {
		arg, err := p.parseUnion()
		if err != nil {
			return NoExpr, err
		}
		args = append(args, arg)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	end, err := p.expect(tokRParen)
	if err != nil {
		if t := p.peek(); t.kind != tokEOF {
			return NoExpr, p.unexpected(t, "`,`", "`)`")
		}
		return NoExpr, err
	}
	return p.node(KindFunctionCall, name.text, diag.MixedRanging(name.span, end.span), args...), nil
}
