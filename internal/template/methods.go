package template

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/ncruces/go-strftime"

	"weave/internal/graph"
)

type method struct {
	min, max int
	call     func(ev *evaluator, recv Value, args []ExprID) (Value, error)
}

type function struct {
	min, max int
	call     func(ev *evaluator, args []ExprID) (Value, error)
}

// methods is the capability table, keyed by receiver type and method name.
// The Commit table doubles as the keyword table.
var methods map[string]map[string]*method

var globals map[string]*function

// IsFunction reports whether name is a global template function. if() and
// label() are syntax, not functions.
func IsFunction(name string) bool {
	_, ok := globals[name]
	return ok
}

// Keywords returns the sorted names a template can use without a receiver.
func Keywords() []string {
	out := make([]string, 0, len(methods["Commit"]))
	for name := range methods["Commit"] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (ev *evaluator) stringArg(id ExprID) (string, error) {
	v, err := ev.eval(id)
	if err != nil {
		return "", err
	}
	if !isStringLike(v) {
		return "", ev.errorf(id, TypeMismatch, "expected a String, got %s", v.Type())
	}
	return plainText(v), nil
}

func (ev *evaluator) intArg(args []ExprID, i int, def int64) (int64, error) {
	if i >= len(args) {
		return def, nil
	}
	v, err := ev.eval(args[i])
	if err != nil {
		return 0, err
	}
	n, ok := v.(intValue)
	if !ok {
		return 0, ev.errorf(args[i], TypeMismatch, "expected an Integer, got %s", v.Type())
	}
	return int64(n), nil
}

// nullary wraps a method that takes no arguments.
func nullary[T Value](f func(ev *evaluator, recv T) Value) *method {
	return &method{0, 0, func(ev *evaluator, recv Value, _ []ExprID) (Value, error) {
		return f(ev, recv.(T)), nil
	}}
}

// stringPredicate wraps a String method taking one String argument.
func stringPredicate(f func(s, arg string) bool) *method {
	return &method{1, 1, func(ev *evaluator, recv Value, args []ExprID) (Value, error) {
		arg, err := ev.stringArg(args[0])
		if err != nil {
			return nil, err
		}
		return boolValue(f(string(recv.(stringValue)), arg)), nil
	}}
}

func init() {
	methods = map[string]map[string]*method{
		"Commit":    commitMethods(),
		"String":    stringMethods(),
		"List":      listMethods(),
		"Timestamp": timestampMethods(),
		"Signature": {
			"name":      nullary(func(_ *evaluator, s signatureValue) Value { return stringValue(s.Name) }),
			"email":     nullary(func(_ *evaluator, s signatureValue) Value { return stringValue(s.Email) }),
			"timestamp": nullary(func(_ *evaluator, s signatureValue) Value { return timestampValue(s.Timestamp) }),
		},
		"CommitId": idMethods(func(ev *evaluator, v Value) (string, int) {
			id := v.(commitIDValue)
			if ev.ctx.Index == nil {
				return string(id), len(id)
			}
			return string(id), ev.ctx.Index.ShortestCommitPrefix(graph.CommitID(id))
		}),
		"ChangeId": idMethods(func(ev *evaluator, v Value) (string, int) {
			id := v.(changeIDValue)
			if ev.ctx.Index == nil {
				return string(id), len(id)
			}
			return string(id), ev.ctx.Index.ShortestChangePrefix(graph.ChangeID(id))
		}),
	}
	globals = map[string]*function{
		"concat": {0, variadic, func(ev *evaluator, args []ExprID) (Value, error) {
			f := &formatter{}
			for _, a := range args {
				if err := ev.write(f, a); err != nil {
					return nil, err
				}
			}
			return templateValue(f.out), nil
		}},
		"separate": {1, variadic, func(ev *evaluator, args []ExprID) (Value, error) {
			sep, err := ev.render(args[0])
			if err != nil {
				return nil, err
			}
			f := &formatter{}
			first := true
			for _, a := range args[1:] {
				v, err := ev.render(a)
				if err != nil {
					return nil, err
				}
				if plainText(v) == "" {
					continue
				}
				if !first {
					writeValue(f, sep)
				}
				first = false
				writeValue(f, v)
			}
			return templateValue(f.out), nil
		}},
		"coalesce": {0, variadic, func(ev *evaluator, args []ExprID) (Value, error) {
			for _, a := range args {
				v, err := ev.render(a)
				if err != nil {
					return nil, err
				}
				if plainText(v) != "" {
					return v, nil
				}
			}
			return templateValue(nil), nil
		}},
		"indent": {2, 2, func(ev *evaluator, args []ExprID) (Value, error) {
			prefix, err := ev.stringArg(args[0])
			if err != nil {
				return nil, err
			}
			body, err := ev.render(args[1])
			if err != nil {
				return nil, err
			}
			return templateValue(indent(Formatted(body.(templateValue)), prefix)), nil
		}},
		"pad_start":    widthFunction(func(f Formatted, w int) Formatted { return pad(f, w, true) }),
		"pad_end":      widthFunction(func(f Formatted, w int) Formatted { return pad(f, w, false) }),
		"truncate_end": widthFunction(truncateEnd),
	}
}

// widthFunction wraps a global taking a display width and a content template.
func widthFunction(f func(Formatted, int) Formatted) *function {
	return &function{2, 2, func(ev *evaluator, args []ExprID) (Value, error) {
		w, err := ev.intArg(args, 0, 0)
		if err != nil {
			return nil, err
		}
		if w < 0 {
			return nil, ev.errorf(args[0], TypeMismatch, "width must not be negative, got %d", w)
		}
		body, err := ev.render(args[1])
		if err != nil {
			return nil, err
		}
		return templateValue(f(Formatted(body.(templateValue)), int(w))), nil
	}}
}

// pad fills f with spaces up to width display columns. The padding carries
// no labels.
func pad(f Formatted, width int, start bool) Formatted {
	n := width - runewidth.StringWidth(f.String())
	if n <= 0 {
		return f
	}
	fill := Segment{Text: strings.Repeat(" ", n)}
	if start {
		return append(Formatted{fill}, f...)
	}
	return append(append(Formatted(nil), f...), fill)
}

// truncateEnd keeps the leading runes of f that fit in width display
// columns.
func truncateEnd(f Formatted, width int) Formatted {
	out := &formatter{}
	used := 0
	for _, seg := range f {
		out.labels = seg.Labels
		var sb strings.Builder
		for _, r := range seg.Text {
			w := runewidth.RuneWidth(r)
			if used+w > width {
				out.write(sb.String())
				return out.out
			}
			used += w
			sb.WriteRune(r)
		}
		out.write(sb.String())
	}
	return out.out
}

const variadic = int(^uint(0) >> 1)

// indent inserts prefix at the start of every non-empty line of f.
func indent(f Formatted, prefix string) Formatted {
	out := &formatter{}
	atLineStart := true
	for _, seg := range f {
		out.labels = seg.Labels
		for _, line := range strings.SplitAfter(seg.Text, "\n") {
			if line == "" {
				continue
			}
			if atLineStart && line != "\n" {
				out.write(prefix)
			}
			out.write(line)
			atLineStart = strings.HasSuffix(line, "\n")
		}
	}
	return out.out
}

func commitMethods() map[string]*method {
	commit := func(f func(ev *evaluator, c *graph.Commit) Value) *method {
		return nullary(func(ev *evaluator, v commitValue) Value { return f(ev, v.c) })
	}
	names := func(refs []string) Value {
		out := make(listValue, len(refs))
		for i, n := range refs {
			out[i] = stringValue(n)
		}
		return out
	}
	return map[string]*method{
		"change_id":   commit(func(_ *evaluator, c *graph.Commit) Value { return changeIDValue(c.ChangeID) }),
		"commit_id":   commit(func(_ *evaluator, c *graph.Commit) Value { return commitIDValue(c.ID) }),
		"description": commit(func(_ *evaluator, c *graph.Commit) Value { return stringValue(c.Description) }),
		"author":      commit(func(_ *evaluator, c *graph.Commit) Value { return signatureValue(c.Author) }),
		"committer":   commit(func(_ *evaluator, c *graph.Commit) Value { return signatureValue(c.Committer) }),
		"timestamp":   commit(func(_ *evaluator, c *graph.Commit) Value { return timestampValue(c.Committer.Timestamp) }),
		"parents": commit(func(ev *evaluator, c *graph.Commit) Value {
			out := make(listValue, len(c.Parents))
			for i, id := range c.Parents {
				p := &graph.Commit{ID: id}
				if ev.ctx.Index != nil {
					if full, ok := ev.ctx.Index.Commit(id); ok {
						p = full
					}
				}
				out[i] = commitValue{p}
			}
			return out
		}),
		"bookmarks": commit(func(ev *evaluator, c *graph.Commit) Value {
			if ev.ctx.Refs == nil {
				return listValue{}
			}
			return names(ev.ctx.Refs.BookmarksAt(c.ID))
		}),
		"tags": commit(func(ev *evaluator, c *graph.Commit) Value {
			if ev.ctx.Refs == nil {
				return listValue{}
			}
			return names(ev.ctx.Refs.TagsAt(c.ID))
		}),
		"conflict": commit(func(_ *evaluator, c *graph.Commit) Value { return boolValue(c.Conflict) }),
		"empty":    commit(func(_ *evaluator, c *graph.Commit) Value { return boolValue(c.Empty) }),
		"root":     commit(func(_ *evaluator, c *graph.Commit) Value { return boolValue(c.IsRoot()) }),
		"working_copy": commit(func(ev *evaluator, c *graph.Commit) Value {
			return boolValue(ev.ctx.WorkingCopy != "" && c.ID == ev.ctx.WorkingCopy)
		}),
		"selected": commit(func(ev *evaluator, c *graph.Commit) Value {
			if ev.ctx.Selected == nil {
				return boolValue(c.ID == ev.ctx.Commit.ID)
			}
			return boolValue(ev.ctx.Selected(c.ID))
		}),
	}
}

func stringMethods() map[string]*method {
	str := func(f func(s string) Value) *method {
		return nullary(func(_ *evaluator, s stringValue) Value { return f(string(s)) })
	}
	return map[string]*method{
		"first_line": str(func(s string) Value {
			line, _, _ := strings.Cut(s, "\n")
			return stringValue(line)
		}),
		"upper": str(func(s string) Value { return stringValue(strings.ToUpper(s)) }),
		"lower": str(func(s string) Value { return stringValue(strings.ToLower(s)) }),
		"len":   str(func(s string) Value { return intValue(utf8.RuneCountInString(s)) }),
		"trim":  str(func(s string) Value { return stringValue(strings.TrimSpace(s)) }),
		"lines": str(func(s string) Value {
			out := listValue{}
			if s == "" {
				return out
			}
			for _, l := range strings.Split(strings.TrimSuffix(s, "\n"), "\n") {
				out = append(out, stringValue(l))
			}
			return out
		}),
		"contains":    stringPredicate(strings.Contains),
		"starts_with": stringPredicate(strings.HasPrefix),
		"ends_with":   stringPredicate(strings.HasSuffix),
		"substr": {2, 2, func(ev *evaluator, recv Value, args []ExprID) (Value, error) {
			start, err := ev.intArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			end, err := ev.intArg(args, 1, 0)
			if err != nil {
				return nil, err
			}
			return stringValue(substr(string(recv.(stringValue)), start, end)), nil
		}},
	}
}

// substr slices s by rune offsets. Negative offsets count from the end and
// out-of-range offsets are clamped.
func substr(s string, start, end int64) string {
	rs := []rune(s)
	n := int64(len(rs))
	clamp := func(i int64) int64 {
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	start, end = clamp(start), clamp(end)
	if start >= end {
		return ""
	}
	return string(rs[start:end])
}

func listMethods() map[string]*method {
	return map[string]*method{
		"len": nullary(func(_ *evaluator, l listValue) Value { return intValue(len(l)) }),
		"join": {1, 1, func(ev *evaluator, recv Value, args []ExprID) (Value, error) {
			sep, err := ev.render(args[0])
			if err != nil {
				return nil, err
			}
			f := &formatter{}
			for i, e := range recv.(listValue) {
				if i > 0 {
					writeValue(f, sep)
				}
				writeValue(f, e)
			}
			return templateValue(f.out), nil
		}},
		"contains": {1, 1, func(ev *evaluator, recv Value, args []ExprID) (Value, error) {
			x, err := ev.eval(args[0])
			if err != nil {
				return nil, err
			}
			for _, e := range recv.(listValue) {
				if eq, ok := equal(e, x); ok && eq {
					return boolValue(true), nil
				}
			}
			return boolValue(false), nil
		}},
	}
}

func timestampMethods() map[string]*method {
	return map[string]*method{
		"ago": nullary(func(ev *evaluator, t timestampValue) Value {
			return stringValue(humanize.RelTime(time.Time(t), ev.ctx.now(), "ago", "from now"))
		}),
		"utc": nullary(func(_ *evaluator, t timestampValue) Value { return timestampValue(time.Time(t).UTC()) }),
		"format": {1, 1, func(ev *evaluator, recv Value, args []ExprID) (Value, error) {
			layout, err := ev.stringArg(args[0])
			if err != nil {
				return nil, err
			}
			return stringValue(strftime.Format(layout, time.Time(recv.(timestampValue)))), nil
		}},
	}
}

// idMethods builds the table shared by commit and change ids. unique returns
// the id text and the length of its shortest unambiguous prefix.
func idMethods(unique func(ev *evaluator, v Value) (string, int)) map[string]*method {
	return map[string]*method{
		"short": {0, 1, func(ev *evaluator, recv Value, args []ExprID) (Value, error) {
			n, err := ev.intArg(args, 0, 12)
			if err != nil {
				return nil, err
			}
			id := plainText(recv)
			return stringValue(id[:max(0, min(int(n), len(id)))]), nil
		}},
		"shortest": {0, 1, func(ev *evaluator, recv Value, args []ExprID) (Value, error) {
			least, err := ev.intArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			id, n := unique(ev, recv)
			total := min(max(n, int(least)), len(id))
			n = min(n, total)
			f := &formatter{}
			f.push("prefix")
			f.write(id[:n])
			f.pop()
			f.push("rest")
			f.write(id[n:total])
			f.pop()
			return templateValue(f.out), nil
		}},
	}
}
