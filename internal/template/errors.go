package template

import (
	"fmt"

	"weave/internal/diag"
)

// RenderErrorKind classifies a RenderError.
type RenderErrorKind int

const (
	NoSuchProperty RenderErrorKind = iota
	TypeMismatch
)

func (k RenderErrorKind) String() string {
	if k == NoSuchProperty {
		return "no such property"
	}
	return "type mismatch"
}

// RenderError reports a template that cannot be rendered for a commit.
type RenderError struct {
	Kind    RenderErrorKind
	Message string
	Context *diag.Context
	Alias   string
}

func (e *RenderError) Error() string {
	msg := e.Message
	if e.Context == nil {
		return msg
	}
	if e.Alias != "" {
		return fmt.Sprintf("%s (at offset %d in alias %q)", msg, e.Context.From, e.Alias)
	}
	return fmt.Sprintf("%s (at offset %d)", msg, e.Context.From)
}

// Excerpt returns the source excerpt of a positioned render error, or "".
func (e *RenderError) Excerpt() string {
	if e.Context == nil {
		return ""
	}
	return e.Context.Show("  ")
}
