package template

import (
	"fmt"
	"strings"
	"time"

	"weave/internal/graph"
)

// Refs looks up the refs pointing at a commit.
type Refs interface {
	BookmarksAt(id graph.CommitID) []string
	TagsAt(id graph.CommitID) []string
}

// CommitContext is what a template sees while rendering one commit. It is
// built fresh for every render; the index and refs are shared read-only.
type CommitContext struct {
	Commit      *graph.Commit
	Index       *graph.Index
	Refs        Refs
	WorkingCopy graph.CommitID
	// Selected reports membership in the revset being rendered. When nil only
	// the rendered commit itself counts as selected.
	Selected func(graph.CommitID) bool
	// Now is the reference time for ago(). Zero means the wall clock.
	Now time.Time
}

func (c *CommitContext) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

type binding struct {
	name  string
	value Value
}

// evaluator holds the state of a single render.
type evaluator struct {
	arena  *Arena
	ctx    *CommitContext
	params []binding
}

func (ev *evaluator) errorf(id ExprID, kind RenderErrorKind, format string, args ...any) *RenderError {
	n := ev.arena.Node(id)
	return &RenderError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Context: ev.arena.context(n),
		Alias:   ev.arena.Source(n).Alias,
	}
}

// write renders id into f. Concatenations, labels and conditionals stream
// into f directly; everything else is evaluated and then written.
func (ev *evaluator) write(f *formatter, id ExprID) error {
	n := ev.arena.Node(id)
	switch n.Kind {
	case KindConcat:
		for _, c := range n.Args {
			if err := ev.write(f, c); err != nil {
				return err
			}
		}
		return nil
	case KindLabel:
		name, err := ev.eval(n.Args[0])
		if err != nil {
			return err
		}
		labels := strings.Fields(plainText(name))
		for _, l := range labels {
			f.push(l)
		}
		err = ev.write(f, n.Args[1])
		for range labels {
			f.pop()
		}
		return err
	case KindConditional:
		branch, ok, err := ev.branch(id)
		if err != nil || !ok {
			return err
		}
		return ev.write(f, branch)
	}
	v, err := ev.eval(id)
	if err != nil {
		return err
	}
	writeValue(f, v)
	return nil
}

// branch evaluates the condition of an if() node and returns the branch to
// take. ok is false when the condition fails and there is no else branch.
// The other branch is never evaluated.
func (ev *evaluator) branch(id ExprID) (ExprID, bool, error) {
	n := ev.arena.Node(id)
	cond, err := ev.eval(n.Args[0])
	if err != nil {
		return NoExpr, false, err
	}
	t, ok := truthy(cond)
	if !ok {
		return NoExpr, false, ev.errorf(n.Args[0], TypeMismatch, "expected a condition, got %s", cond.Type())
	}
	switch {
	case t:
		return n.Args[1], true, nil
	case len(n.Args) > 2:
		return n.Args[2], true, nil
	}
	return NoExpr, false, nil
}

func (ev *evaluator) render(id ExprID) (Value, error) {
	f := &formatter{}
	if err := ev.write(f, id); err != nil {
		return nil, err
	}
	return templateValue(f.out), nil
}

func (ev *evaluator) eval(id ExprID) (Value, error) {
	n := ev.arena.Node(id)
	switch n.Kind {
	case KindLiteral:
		switch v := n.Literal.(type) {
		case string:
			return stringValue(v), nil
		case int64:
			return intValue(v), nil
		case bool:
			return boolValue(v), nil
		}
	case KindConcat, KindLabel:
		return ev.render(id)
	case KindConditional:
		branch, ok, err := ev.branch(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return templateValue(nil), nil
		}
		return ev.eval(branch)
	case KindProperty:
		if len(n.Args) == 0 {
			return ev.keyword(id)
		}
		recv, err := ev.eval(n.Args[0])
		if err != nil {
			return nil, err
		}
		return ev.callMethod(id, recv, nil)
	case KindMethodCall:
		recv, err := ev.eval(n.Args[0])
		if err != nil {
			return nil, err
		}
		return ev.callMethod(id, recv, n.Args[1:])
	case KindFunctionCall:
		f, ok := globals[n.Name]
		if !ok {
			return nil, ev.errorf(id, NoSuchProperty, "function %q doesn't exist", n.Name)
		}
		if err := checkArity(ev, id, "function", f.min, f.max, len(n.Args)); err != nil {
			return nil, err
		}
		return f.call(ev, n.Args)
	case KindListOp:
		return ev.listOp(id)
	case KindLambdaParam:
		for i := len(ev.params) - 1; i >= 0; i-- {
			if ev.params[i].name == n.Name {
				return ev.params[i].value, nil
			}
		}
		return nil, ev.errorf(id, NoSuchProperty, "parameter %q is not bound", n.Name)
	case KindUnary:
		return ev.unary(id)
	case KindBinary:
		return ev.binary(id)
	case KindLambda:
		return nil, ev.errorf(id, TypeMismatch, "a lambda can only be passed to map() or filter()")
	}
	return nil, ev.errorf(id, TypeMismatch, "unsupported expression")
}

// keyword resolves a bare name against the commit being rendered.
func (ev *evaluator) keyword(id ExprID) (Value, error) {
	n := ev.arena.Node(id)
	m, ok := methods["Commit"][n.Name]
	if !ok {
		return nil, ev.errorf(id, NoSuchProperty, "keyword %q doesn't exist", n.Name)
	}
	return m.call(ev, commitValue{ev.ctx.Commit}, nil)
}

func (ev *evaluator) callMethod(id ExprID, recv Value, args []ExprID) (Value, error) {
	n := ev.arena.Node(id)
	m, ok := methods[recv.Type()][n.Name]
	if !ok && isStringLike(recv) {
		m, ok = methods["String"][n.Name]
		recv = stringValue(plainText(recv))
	}
	if !ok {
		return nil, ev.errorf(id, NoSuchProperty, "type %s has no method %q", recv.Type(), n.Name)
	}
	if err := checkArity(ev, id, "method", m.min, m.max, len(args)); err != nil {
		return nil, err
	}
	return m.call(ev, recv, args)
}

func checkArity(ev *evaluator, id ExprID, what string, lo, hi, got int) error {
	name := ev.arena.Node(id).Name
	switch {
	case got >= lo && got <= hi:
		return nil
	case lo == hi:
		return ev.errorf(id, TypeMismatch, "%s %q expects %d arguments, got %d", what, name, lo, got)
	case got < lo:
		return ev.errorf(id, TypeMismatch, "%s %q expects at least %d arguments, got %d", what, name, lo, got)
	}
	return ev.errorf(id, TypeMismatch, "%s %q expects at most %d arguments, got %d", what, name, hi, got)
}

func (ev *evaluator) listOp(id ExprID) (Value, error) {
	n := ev.arena.Node(id)
	base, err := ev.eval(n.Args[0])
	if err != nil {
		return nil, err
	}
	list, ok := base.(listValue)
	if !ok {
		return nil, ev.errorf(n.Args[0], TypeMismatch, "%s() expects a List, got %s", n.Name, base.Type())
	}
	lambda := ev.arena.Node(n.Args[1])
	if len(lambda.Params) != 1 {
		return nil, ev.errorf(n.Args[1], TypeMismatch, "%s() expects a lambda with 1 parameter, got %d", n.Name, len(lambda.Params))
	}
	out := listValue{}
	for _, elem := range list {
		ev.params = append(ev.params, binding{lambda.Params[0], elem})
		v, err := ev.eval(lambda.Args[0])
		ev.params = ev.params[:len(ev.params)-1]
		if err != nil {
			return nil, err
		}
		if n.Name == "map" {
			out = append(out, v)
			continue
		}
		keep, ok := truthy(v)
		if !ok {
			return nil, ev.errorf(lambda.Args[0], TypeMismatch, "filter() expects a condition, got %s", v.Type())
		}
		if keep {
			out = append(out, elem)
		}
	}
	return out, nil
}

func (ev *evaluator) unary(id ExprID) (Value, error) {
	n := ev.arena.Node(id)
	x, err := ev.eval(n.Args[0])
	if err != nil {
		return nil, err
	}
	switch n.Name {
	case "!":
		if t, ok := truthy(x); ok {
			return boolValue(!t), nil
		}
	case "-":
		if i, ok := x.(intValue); ok {
			return -i, nil
		}
	}
	return nil, ev.errorf(id, TypeMismatch, "operator %s cannot be applied to %s", n.Name, x.Type())
}

func (ev *evaluator) binary(id ExprID) (Value, error) {
	n := ev.arena.Node(id)
	x, err := ev.eval(n.Args[0])
	if err != nil {
		return nil, err
	}
	if n.Name == "||" || n.Name == "&&" {
		t, ok := truthy(x)
		if !ok {
			return nil, ev.errorf(n.Args[0], TypeMismatch, "operator %s expects a condition, got %s", n.Name, x.Type())
		}
		if t == (n.Name == "||") {
			return boolValue(t), nil
		}
		y, err := ev.eval(n.Args[1])
		if err != nil {
			return nil, err
		}
		t, ok = truthy(y)
		if !ok {
			return nil, ev.errorf(n.Args[1], TypeMismatch, "operator %s expects a condition, got %s", n.Name, y.Type())
		}
		return boolValue(t), nil
	}
	y, err := ev.eval(n.Args[1])
	if err != nil {
		return nil, err
	}
	eq, ok := equal(x, y)
	if !ok {
		return nil, ev.errorf(id, TypeMismatch, "cannot compare %s with %s", x.Type(), y.Type())
	}
	if n.Name == "!=" {
		eq = !eq
	}
	return boolValue(eq), nil
}

func equal(x, y Value) (bool, bool) {
	switch x := x.(type) {
	case intValue:
		y, ok := y.(intValue)
		return x == y, ok
	case boolValue:
		y, ok := y.(boolValue)
		return x == y, ok
	}
	if isStringLike(x) && isStringLike(y) {
		return plainText(x) == plainText(y), true
	}
	return false, false
}
