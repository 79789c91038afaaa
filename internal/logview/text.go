package logview

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"weave/internal/template"
)

var colorNames = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

var brightNames = map[string]color.Attribute{
	"black":   color.FgHiBlack,
	"red":     color.FgHiRed,
	"green":   color.FgHiGreen,
	"yellow":  color.FgHiYellow,
	"blue":    color.FgHiBlue,
	"magenta": color.FgHiMagenta,
	"cyan":    color.FgHiCyan,
	"white":   color.FgHiWhite,
}

var modifierNames = map[string]color.Attribute{
	"bold":      color.Bold,
	"faint":     color.Faint,
	"italic":    color.Italic,
	"underline": color.Underline,
}

// Style is a parsed colour rule.
type Style struct {
	Fg        color.Attribute // 0 when unset
	Modifiers []color.Attribute
}

// ParseStyle parses words such as "bright blue bold".
func ParseStyle(s string) (Style, error) {
	var st Style
	words := strings.Fields(strings.ToLower(s))
	for i := 0; i < len(words); i++ {
		w := words[i]
		if w == "bright" && i+1 < len(words) {
			c, ok := brightNames[words[i+1]]
			if !ok {
				return Style{}, fmt.Errorf("invalid color %q", s)
			}
			st.Fg = c
			i++
			continue
		}
		if c, ok := colorNames[w]; ok {
			st.Fg = c
			continue
		}
		if m, ok := modifierNames[w]; ok {
			st.Modifiers = append(st.Modifiers, m)
			continue
		}
		return Style{}, fmt.Errorf("invalid color %q", s)
	}
	return st, nil
}

type rule struct {
	labels []string
	style  Style
}

// Palette maps label selectors to styles. A selector is one or more
// space-separated labels; it applies to a segment whose label stack contains
// those labels in that order.
type Palette struct {
	rules []rule
}

// NewPalette parses selector -> colour pairs as found in the colors config
// table.
func NewPalette(colors map[string]string) (*Palette, error) {
	p := &Palette{}
	keys := make([]string, 0, len(colors))
	for k := range colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		st, err := ParseStyle(colors[k])
		if err != nil {
			return nil, fmt.Errorf("colors.%s: %w", k, err)
		}
		p.rules = append(p.rules, rule{labels: strings.Fields(k), style: st})
	}
	return p, nil
}

// match returns the index of the last label of sel within labels, or -1.
func match(sel, labels []string) int {
	last, j := -1, 0
	for i, l := range labels {
		if j < len(sel) && l == sel[j] {
			j++
			last = i
		}
	}
	if j < len(sel) {
		return -1
	}
	return last
}

// Style merges every rule matching labels. Rules on inner labels win over
// rules on outer ones, and longer selectors win over shorter ones.
func (p *Palette) Style(labels []string) Style {
	type hit struct {
		at, n int
		st    Style
	}
	var hits []hit
	for _, r := range p.rules {
		if at := match(r.labels, labels); at >= 0 {
			hits = append(hits, hit{at, len(r.labels), r.style})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].at != hits[j].at {
			return hits[i].at < hits[j].at
		}
		return hits[i].n < hits[j].n
	})
	var out Style
	for _, h := range hits {
		if h.st.Fg != 0 {
			out.Fg = h.st.Fg
		}
		out.Modifiers = append(out.Modifiers, h.st.Modifiers...)
	}
	return out
}

func (st Style) attrs() []color.Attribute {
	var out []color.Attribute
	if st.Fg != 0 {
		out = append(out, st.Fg)
	}
	return append(out, st.Modifiers...)
}

// TextSink writes rendered commits to a writer, colouring labelled segments
// when enabled.
type TextSink struct {
	W       io.Writer
	Palette *Palette
	Color   bool
}

// Emit implements Sink.
func (s *TextSink) Emit(item Item) error {
	for _, seg := range item.Output {
		if err := s.write(seg); err != nil {
			return err
		}
	}
	return nil
}

func (s *TextSink) write(seg template.Segment) error {
	if !s.Color || s.Palette == nil || len(seg.Labels) == 0 {
		_, err := io.WriteString(s.W, seg.Text)
		return err
	}
	attrs := s.Palette.Style(seg.Labels).attrs()
	if len(attrs) == 0 {
		_, err := io.WriteString(s.W, seg.Text)
		return err
	}
	c := color.New(attrs...)
	c.EnableColor()
	// Escapes never span a newline.
	lines := strings.SplitAfter(seg.Text, "\n")
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		if body != "" {
			if _, err := io.WriteString(s.W, c.Sprint(body)); err != nil {
				return err
			}
		}
		if len(body) < len(line) {
			if _, err := io.WriteString(s.W, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// ColorEnabled decides whether to colour output to f for a ui.color mode of
// "auto", "always" or "never". Auto honours NO_COLOR and requires a terminal.
func ColorEnabled(mode string, f *os.File) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		if os.Getenv("NO_COLOR") != "" || f == nil {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	}
	return false, fmt.Errorf("invalid ui.color value %q (expected auto, always or never)", mode)
}
