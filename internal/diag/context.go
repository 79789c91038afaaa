package diag

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Context is a range of text in a source.
type Context struct {
	Source string
	Ranging
}

// NewContext creates a Context for the given range of source.
func NewContext(source string, r Ranger) Context {
	return Context{source, r.Range()}
}

// Show renders the line containing the range with a row of carets under the
// culprit. Multi-line culprits are shown up to the end of their first line.
func (c *Context) Show(indent string) string {
	if c.From < 0 || c.To > len(c.Source) || c.From > c.To {
		return fmt.Sprintf("%sinvalid position %d-%d", indent, c.From, c.To)
	}
	lineStart := strings.LastIndexByte(c.Source[:c.From], '\n') + 1
	lineEnd := len(c.Source)
	if i := strings.IndexByte(c.Source[c.From:], '\n'); i >= 0 {
		lineEnd = c.From + i
	}
	to := c.To
	if to > lineEnd {
		to = lineEnd
	}
	line := c.Source[lineStart:lineEnd]
	pad := strings.Repeat(" ", runewidth.StringWidth(c.Source[lineStart:c.From]))
	width := runewidth.StringWidth(c.Source[c.From:to])
	if width == 0 {
		width = 1
	}
	return indent + line + "\n" + indent + pad + strings.Repeat("^", width)
}
