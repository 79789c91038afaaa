package strpattern

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		kind  string
		value string
		input string
		want  bool
	}{
		{"", "fix", "bugfix: parser", true},
		{"", "fix", "feature", false},
		{"substring", "", "anything", true},
		{"exact", "main", "main", true},
		{"exact", "main", "main2", false},
		{"exact-i", "MAIN", "Main", true},
		{"glob", "feat/*", "feat/x", true},
		{"glob", "feat/*", "feat/x/y", false},
		{"glob", "feat/**", "feat/x/y", true},
		{"glob", "v1.?", "v1.2", true},
		{"glob-i", "FEAT/*", "feat/X", true},
		{"substring-i", "WIP", "wip: thing", true},
	}
	for _, tt := range tests {
		p, err := Parse(tt.kind, tt.value, Substring)
		if err != nil {
			t.Fatalf("Parse(%q, %q) failed: %v", tt.kind, tt.value, err)
		}
		if got := p.Match(tt.input); got != tt.want {
			t.Errorf("%s.Match(%q) = %v, want %v", p, tt.input, got, tt.want)
		}
	}
}

func TestParseDefaultKind(t *testing.T) {
	p, err := Parse("", "main", Exact)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsExact() {
		t.Errorf("expected exact pattern, got %s", p)
	}
	if p.Match("main2") {
		t.Error("exact default should not match a longer string")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("regex", "x", Substring); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := Parse("glob", "[", Substring); err == nil {
		t.Error("expected error for malformed glob")
	}
}
