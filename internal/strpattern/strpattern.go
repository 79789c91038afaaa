// Package strpattern implements the string patterns accepted by revset
// functions such as bookmarks() and description(): exact:, glob: and
// substring:, each with a case-insensitive -i variant.
package strpattern

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind selects how a Pattern matches.
type Kind int

const (
	Substring Kind = iota
	Exact
	Glob
)

var kindNames = map[string]Kind{
	"substring": Substring,
	"exact":     Exact,
	"glob":      Glob,
}

// Kinds lists the pattern prefixes in the order they are documented.
var Kinds = []string{"exact", "glob", "substring"}

// Pattern is a compiled string pattern.
type Pattern struct {
	Kind       Kind
	Value      string
	IgnoreCase bool
}

// Parse builds a pattern from a kind prefix (without the colon) and a value.
// An empty kind selects def.
func Parse(kind, value string, def Kind) (*Pattern, error) {
	p := &Pattern{Kind: def, Value: value}
	if kind != "" {
		name := kind
		if strings.HasSuffix(name, "-i") {
			name = strings.TrimSuffix(name, "-i")
			p.IgnoreCase = true
		}
		k, ok := kindNames[name]
		if !ok {
			return nil, fmt.Errorf("invalid string pattern kind %q, expected one of %s", kind, strings.Join(Kinds, ", "))
		}
		p.Kind = k
	}
	if p.IgnoreCase {
		p.Value = strings.ToLower(p.Value)
	}
	if p.Kind == Glob && !doublestar.ValidatePattern(p.Value) {
		return nil, fmt.Errorf("invalid glob pattern %q", value)
	}
	return p, nil
}

// Match reports whether s matches the pattern.
func (p *Pattern) Match(s string) bool {
	if p.IgnoreCase {
		s = strings.ToLower(s)
	}
	switch p.Kind {
	case Exact:
		return s == p.Value
	case Glob:
		matched, err := doublestar.Match(p.Value, s)
		return err == nil && matched
	default:
		return strings.Contains(s, p.Value)
	}
}

// IsExact reports whether the pattern can only match its literal value, which
// lets callers use a map lookup instead of a scan.
func (p *Pattern) IsExact() bool {
	return p.Kind == Exact && !p.IgnoreCase
}

func (p *Pattern) String() string {
	for name, k := range kindNames {
		if k == p.Kind {
			if p.IgnoreCase {
				name += "-i"
			}
			return fmt.Sprintf("%s:%q", name, p.Value)
		}
	}
	return fmt.Sprintf("%q", p.Value)
}
