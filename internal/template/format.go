package template

import (
	"slices"
	"strings"
)

// Segment is a run of text with the labels in effect, outermost first.
type Segment struct {
	Text   string
	Labels []string
}

// Formatted is rendered output that keeps its label structure for a
// presentation layer to style. Labels never change the text.
type Formatted []Segment

// String returns the text without labels.
func (f Formatted) String() string {
	var sb strings.Builder
	for _, s := range f {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

type formatter struct {
	out    Formatted
	labels []string
}

func (f *formatter) write(text string) {
	if text == "" {
		return
	}
	if n := len(f.out); n > 0 && slices.Equal(f.out[n-1].Labels, f.labels) {
		f.out[n-1].Text += text
		return
	}
	f.out = append(f.out, Segment{Text: text, Labels: append([]string(nil), f.labels...)})
}

func (f *formatter) writeFormatted(src Formatted) {
	for _, s := range src {
		outer := len(f.labels)
		f.labels = append(f.labels, s.Labels...)
		f.write(s.Text)
		f.labels = f.labels[:outer]
	}
}

func (f *formatter) push(label string) { f.labels = append(f.labels, label) }

func (f *formatter) pop() { f.labels = f.labels[:len(f.labels)-1] }
