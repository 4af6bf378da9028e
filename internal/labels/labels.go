// Package labels turns SCREAMING_SNAKE identifiers into human-readable
// display labels for dashboards and choosers.
package labels

import (
	"fmt"
	"strings"
	"unicode"
)

// Pretty converts a SCREAMING_SNAKE value to "Title Case": underscores
// become spaces, the first letter of each word is uppercased, and the rest
// are lowercased.
func Pretty(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	startOfWord := true
	for _, r := range value {
		switch {
		case r == '_':
			b.WriteRune(' ')
			startOfWord = true
		case startOfWord:
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// PrettyAll converts each value with Pretty, preserving order.
func PrettyAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Pretty(v)
	}
	return out
}

// Option pairs a display label with the value it selects.
type Option[E any] struct {
	Label string
	Value E
}

// Options builds chooser options for a set of enum-like values, the default
// first. Labels come from Pretty applied to each value's String form.
func Options[E fmt.Stringer](def E, values []E) []Option[E] {
	out := make([]Option[E], 0, len(values)+1)
	out = append(out, Option[E]{Label: Pretty(def.String()), Value: def})
	for _, v := range values {
		if v.String() == def.String() {
			continue
		}
		out = append(out, Option[E]{Label: Pretty(v.String()), Value: v})
	}
	return out
}
