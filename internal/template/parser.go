package template

import (
	"weave/internal/diag"
	"weave/internal/scan"
)

// Parse parses a template into a new arena.
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
	root, err := p.parseConcat()
	if err != nil {
		return Expr{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Expr{}, p.unexpected(t, "`++`", "end of input")
	}
	return Expr{Arena: a, Root: root}, nil
}

type parser struct {
	arena  *Arena
	src    string
	toks   []token
	pos    int
	source int
	// scopes holds the parameters of the enclosing lambdas, innermost last.
	scopes [][]string
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

func (p *parser) alloc(n Node) ExprID {
	n.Source = p.source
	return p.arena.alloc(n)
}

func (p *parser) span(id ExprID) diag.Ranging { return p.arena.Node(id).Span }

func (p *parser) join(a, b ExprID) diag.Ranging {
	return diag.MixedRanging(p.span(a), p.span(b))
}

// concat := or (['++'] or)*
func (p *parser) parseConcat() (ExprID, error) {
	first, err := p.parseOr()
	if err != nil {
		return NoExpr, err
	}
	items := []ExprID{first}
	for {
		if p.peek().kind == tokConcat {
			p.next()
		} else if !p.startsTerm() {
			break
		}
		x, err := p.parseOr()
		if err != nil {
			return NoExpr, err
		}
		items = append(items, x)
	}
	if len(items) == 1 {
		return first, nil
	}
	return p.alloc(Node{Kind: KindConcat, Args: items, Span: p.join(first, items[len(items)-1])}), nil
}

func (p *parser) startsTerm() bool {
	switch p.peek().kind {
	case tokIdent, tokString, tokInt, tokLParen, tokNot, tokMinus:
		return true
	}
	return false
}

func (p *parser) parseBinary(ops map[tokenKind]string, operand func() (ExprID, error)) (ExprID, error) {
	left, err := operand()
	if err != nil {
		return NoExpr, err
	}
	for {
		op, ok := ops[p.peek().kind]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := operand()
		if err != nil {
			return NoExpr, err
		}
		left = p.alloc(Node{Kind: KindBinary, Name: op, Args: []ExprID{left, right}, Span: p.join(left, right)})
	}
}

func (p *parser) parseOr() (ExprID, error) {
	return p.parseBinary(map[tokenKind]string{tokOr: "||"}, p.parseAnd)
}

func (p *parser) parseAnd() (ExprID, error) {
	return p.parseBinary(map[tokenKind]string{tokAnd: "&&"}, p.parseCompare)
}

func (p *parser) parseCompare() (ExprID, error) {
	return p.parseBinary(map[tokenKind]string{tokEq: "==", tokNe: "!="}, p.parseUnary)
}

// unary := ('!' | '-') unary | postfix
func (p *parser) parseUnary() (ExprID, error) {
	t := p.peek()
	if t.kind != tokNot && t.kind != tokMinus {
		return p.parsePostfix()
	}
	p.next()
	x, err := p.parseUnary()
	if err != nil {
		return NoExpr, err
	}
	span := diag.MixedRanging(t.span, p.span(x))
	return p.alloc(Node{Kind: KindUnary, Name: t.text, Args: []ExprID{x}, Span: span}), nil
}

// postfix := primary ('.' ident ['(' args ')'])*
func (p *parser) parsePostfix() (ExprID, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return NoExpr, err
	}
	for p.peek().kind == tokDot {
		p.next()
		name, err := p.expect(tokIdent)
		if err != nil {
			return NoExpr, err
		}
		if p.peek().kind != tokLParen {
			x = p.alloc(Node{Kind: KindProperty, Name: name.text, Args: []ExprID{x},
				Span: diag.MixedRanging(p.span(x), name.span)})
			continue
		}
		if name.text == "map" || name.text == "filter" {
			x, err = p.parseListOp(x, name)
		} else {
			var args []ExprID
			var end token
			args, end, err = p.parseArgs()
			if err == nil {
				x = p.alloc(Node{Kind: KindMethodCall, Name: name.text, Args: append([]ExprID{x}, args...),
					Span: diag.MixedRanging(p.span(x), end.span)})
			}
		}
		if err != nil {
			return NoExpr, err
		}
	}
	return x, nil
}

func (p *parser) parseListOp(base ExprID, name token) (ExprID, error) {
	p.next() // (
	lambda, err := p.parseLambda()
	if err != nil {
		return NoExpr, err
	}
	end, err := p.expect(tokRParen)
	if err != nil {
		return NoExpr, err
	}
	return p.alloc(Node{Kind: KindListOp, Name: name.text, Args: []ExprID{base, lambda},
		Span: diag.MixedRanging(p.span(base), end.span)}), nil
}

// lambda := '|' [ident (',' ident)*] '|' concat
func (p *parser) parseLambda() (ExprID, error) {
	open := p.peek()
	var params []string
	switch open.kind {
	case tokOr:
		p.next()
	case tokPipe:
		p.next()
		for p.peek().kind != tokPipe {
			name, err := p.expect(tokIdent)
			if err != nil {
				return NoExpr, err
			}
			params = append(params, name.text)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokPipe); err != nil {
			return NoExpr, err
		}
	default:
		return NoExpr, p.unexpected(open, "lambda")
	}
	p.scopes = append(p.scopes, params)
	body, err := p.parseConcat()
	p.scopes = p.scopes[:len(p.scopes)-1]
	if err != nil {
		return NoExpr, err
	}
	return p.alloc(Node{Kind: KindLambda, Params: params, Args: []ExprID{body},
		Span: diag.MixedRanging(open.span, p.span(body))}), nil
}

func (p *parser) parseArgs() ([]ExprID, token, error) {
	p.next() // (
	var args []ExprID
	for p.peek().kind != tokRParen {
		arg, err := p.parseConcat()
		if err != nil {
			return nil, token{}, err
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
			return nil, token{}, p.unexpected(t, "`,`", "`)`")
		}
		return nil, token{}, err
	}
	return args, end, nil
}

func (p *parser) inScope(name string) bool {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		for _, param := range p.scopes[i] {
			if param == name {
				return true
			}
		}
	}
	return false
}

// primary := string | integer | 'true' | 'false' | '(' concat ')'
//
//	| ident '(' args ')' | ident
func (p *parser) parsePrimary() (ExprID, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return p.alloc(Node{Kind: KindLiteral, Literal: t.text, Span: t.span}), nil
	case tokInt:
		p.next()
		return p.alloc(Node{Kind: KindLiteral, Literal: t.n, Span: t.span}), nil
	case tokLParen:
		p.next()
		x, err := p.parseConcat()
		if err != nil {
			return NoExpr, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return NoExpr, err
		}
		return x, nil
	case tokIdent:
		p.next()
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		switch {
		case t.text == "true" || t.text == "false":
			return p.alloc(Node{Kind: KindLiteral, Literal: t.text == "true", Span: t.span}), nil
		case p.inScope(t.text):
			return p.alloc(Node{Kind: KindLambdaParam, Name: t.text, Span: t.span}), nil
		}
		return p.alloc(Node{Kind: KindProperty, Name: t.text, Span: t.span}), nil
	}
	return NoExpr, p.unexpected(t, "template")
}

// parseCall parses a global call. if() and label() are syntax and get their
// own node kinds.
func (p *parser) parseCall(name token) (ExprID, error) {
	args, end, err := p.parseArgs()
	if err != nil {
		return NoExpr, err
	}
	span := diag.MixedRanging(name.span, end.span)
	switch name.text {
	case "if":
		if len(args) < 2 || len(args) > 3 {
			return NoExpr, scan.Errorf(p.src, span, nil, "if() takes a condition, a template and an optional else template")
		}
		return p.alloc(Node{Kind: KindConditional, Name: name.text, Args: args, Span: span}), nil
	case "label":
		if len(args) != 2 {
			return NoExpr, scan.Errorf(p.src, span, nil, "label() takes a label name and a template")
		}
		return p.alloc(Node{Kind: KindLabel, Name: name.text, Args: args, Span: span}), nil
	}
	return p.alloc(Node{Kind: KindFunctionCall, Name: name.text, Args: args, Span: span}), nil
}
