package template

import (
	"strconv"
	"strings"
	"time"

	"weave/internal/graph"
)

// Value is the result of evaluating a template expression.
type Value interface {
	// Type names the value's type in error messages.
	Type() string
}

type (
	stringValue    string
	intValue       int64
	boolValue      bool
	listValue      []Value
	timestampValue time.Time
	signatureValue graph.Signature
	commitIDValue  graph.CommitID
	changeIDValue  graph.ChangeID
	commitValue    struct{ c *graph.Commit }
	templateValue  Formatted
)

func (stringValue) Type() string    { return "String" }
func (intValue) Type() string       { return "Integer" }
func (boolValue) Type() string      { return "Boolean" }
func (listValue) Type() string      { return "List" }
func (timestampValue) Type() string { return "Timestamp" }
func (signatureValue) Type() string { return "Signature" }
func (commitIDValue) Type() string  { return "CommitId" }
func (changeIDValue) Type() string  { return "ChangeId" }
func (commitValue) Type() string    { return "Commit" }
func (templateValue) Type() string  { return "Template" }

// TimestampLayout is how timestamps render when not formatted explicitly.
const TimestampLayout = "2006-01-02 15:04:05.000 -07:00"

// writeValue renders v into f.
func writeValue(f *formatter, v Value) {
	switch v := v.(type) {
	case templateValue:
		f.writeFormatted(Formatted(v))
	case listValue:
		for i, e := range v {
			if i > 0 {
				f.write(" ")
			}
			writeValue(f, e)
		}
	default:
		f.write(plainText(v))
	}
}

// plainText renders v without labels.
func plainText(v Value) string {
	switch v := v.(type) {
	case stringValue:
		return string(v)
	case intValue:
		return strconv.FormatInt(int64(v), 10)
	case boolValue:
		return strconv.FormatBool(bool(v))
	case timestampValue:
		return time.Time(v).Format(TimestampLayout)
	case signatureValue:
		switch {
		case v.Email == "":
			return v.Name
		case v.Name == "":
			return "<" + v.Email + ">"
		}
		return v.Name + " <" + v.Email + ">"
	case commitIDValue:
		return string(v)
	case changeIDValue:
		return string(v)
	case commitValue:
		return string(v.c.ID)
	case templateValue:
		return Formatted(v).String()
	case listValue:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = plainText(e)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// isStringLike reports whether v compares and converts as text.
func isStringLike(v Value) bool {
	switch v.(type) {
	case stringValue, templateValue, commitIDValue, changeIDValue:
		return true
	}
	return false
}

// truthy decides conditions: booleans, and non-empty strings and lists.
func truthy(v Value) (bool, bool) {
	switch v := v.(type) {
	case boolValue:
		return bool(v), true
	case listValue:
		return len(v) > 0, true
	}
	if isStringLike(v) {
		return plainText(v) != "", true
	}
	return false, false
}
