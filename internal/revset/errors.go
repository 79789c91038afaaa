package revset

import (
	"errors"
	"fmt"
	"strings"

	"weave/internal/diag"
	"weave/internal/graph"
)

// ResolveErrorKind classifies a ResolveError.
type ResolveErrorKind int

const (
	NoSuchSymbol ResolveErrorKind = iota
	AmbiguousSymbol
)

// ResolveError reports a symbol that names no commit or more than one.
type ResolveError struct {
	Kind       ResolveErrorKind
	Name       string
	Candidates []graph.CommitID
	// Hints lists ref names close to Name.
	Hints []string
	// Context locates the symbol when it came from a parsed expression.
	Context *diag.Context
	Alias   string
}

func (e *ResolveError) Error() string {
	var msg string
	switch e.Kind {
	case NoSuchSymbol:
		msg = fmt.Sprintf("revision %q doesn't exist", e.Name)
		if len(e.Hints) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Hints, ", "))
		}
	default:
		ids := make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			ids[i] = string(c)
		}
		msg = fmt.Sprintf("revision %q is ambiguous, candidates: %s", e.Name, strings.Join(ids, ", "))
	}
	return withPosition(msg, e.Context, e.Alias)
}

// EvalErrorKind classifies an EvalError.
type EvalErrorKind int

const (
	UnknownFunction EvalErrorKind = iota
	ArityMismatch
	InvalidArgumentType
)

// EvalError reports an expression that cannot be evaluated as written.
type EvalError struct {
	Kind    EvalErrorKind
	Name    string
	Message string
	Hints   []string
	Context *diag.Context
	Alias   string
}

func (e *EvalError) Error() string {
	var msg string
	switch e.Kind {
	case UnknownFunction:
		msg = fmt.Sprintf("function %q doesn't exist", e.Name)
		if len(e.Hints) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Hints, ", "))
		}
	case ArityMismatch:
		msg = fmt.Sprintf("function %q %s", e.Name, e.Message)
	default:
		msg = fmt.Sprintf("invalid argument to %q: %s", e.Name, e.Message)
	}
	return withPosition(msg, e.Context, e.Alias)
}

func withPosition(msg string, c *diag.Context, alias string) string {
	if c == nil {
		return msg
	}
	if alias != "" {
		return fmt.Sprintf("%s (at offset %d in alias %q)", msg, c.From, alias)
	}
	return fmt.Sprintf("%s (at offset %d)", msg, c.From)
}

// Excerpt returns the source excerpt of a positioned error, or "".
func Excerpt(err error) string {
	var (
		re *ResolveError
		ee *EvalError
		de *diag.Error
	)
	switch {
	case errors.As(err, &re) && re.Context != nil:
		return re.Context.Show("  ")
	case errors.As(err, &ee) && ee.Context != nil:
		return ee.Context.Show("  ")
	case errors.As(err, &de):
		return de.Context.Show("  ")
	}
	return ""
}
