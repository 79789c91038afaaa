package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Error is an error tied to a range of a source text. Both the revset and the
// template parsers report failures as *Error.
type Error struct {
	// Type is a short classifier like "parse error".
	Type string
	// Message describes what went wrong.
	Message string
	// Expected lists what the parser would have accepted at the position.
	Expected []string
	Context
}

// Error returns a one-line representation with the byte offset.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Expected) > 0 {
		msg = fmt.Sprintf("%s, expected %s", msg, joinAlternatives(e.Expected))
	}
	return fmt.Sprintf("%s at offset %d: %s", e.Type, e.From, msg)
}

// Show returns the message followed by an excerpt of the source with the
// culprit marked.
func (e *Error) Show() string {
	return e.Error() + "\n" + e.Context.Show("  ")
}

// Offset returns the byte offset of the failure.
func (e *Error) Offset() int { return e.From }

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func joinAlternatives(alts []string) string {
	switch len(alts) {
	case 1:
		return alts[0]
	case 2:
		return alts[0] + " or " + alts[1]
	}
	return strings.Join(alts[:len(alts)-1], ", ") + " or " + alts[len(alts)-1]
}
