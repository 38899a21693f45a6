package blueprint

import (
	"strings"
	"unicode"
)

// DimensionNameFromPath derives a loop dimension name from a JSON-schema
// array path, per §4.1's decomposition heuristic: an artifact whose schema
// declares an array is split into one decomposed artifact per element, with
// the element's own loop dimension named after what the array counts.
//
// The heuristic, in order:
//  1. take the last path segment (schema paths are dot-separated);
//  2. strip a leading "numOf"/"countOf" (case-insensitive) prefix;
//  3. strip a trailing "count"/"number" (case-insensitive) suffix;
//  4. strip a leading "per" context word ("perScene" -> "scene");
//  5. singularize a trailing "s" ("scenes" -> "scene");
//  6. lowercase the first rune;
//  7. fall back to "item" if nothing recognizable remains.
func DimensionNameFromPath(path string) string {
	segment := path
	if idx := strings.LastIndex(segment, "."); idx >= 0 {
		segment = segment[idx+1:]
	}
	if segment == "" {
		return "item"
	}

	segment = stripPrefixFold(segment, "numOf")
	segment = stripPrefixFold(segment, "countOf")
	segment = stripSuffixFold(segment, "count")
	segment = stripSuffixFold(segment, "number")
	segment = stripPrefixFold(segment, "per")

	if segment == "" || isReservedDimensionWord(segment) {
		return "item"
	}

	segment = singularize(segment)
	if segment == "" {
		return "item"
	}

	return lowerFirst(segment)
}

// isReservedDimensionWord reports whether s is one of the counting words
// the heuristic strips as a prefix/suffix, left over because nothing
// followed it (e.g. a raw path segment of just "numOf"). Such leftovers
// carry no dimension meaning of their own.
func isReservedDimensionWord(s string) bool {
	switch strings.ToLower(s) {
	case "numof", "countof", "per", "count", "number":
		return true
	default:
		return false
	}
}

func stripPrefixFold(s, prefix string) string {
	if len(s) <= len(prefix) {
		return s
	}
	if !strings.EqualFold(s[:len(prefix)], prefix) {
		return s
	}
	rest := s[len(prefix):]
	if rest == "" {
		return s
	}
	// Only strip when the prefix lines up with a word boundary (the next
	// rune starts a new capitalized word, camelCase-style), so "personas"
	// doesn't get mistaken for a "per" + "sonas" split.
	if !unicode.IsUpper(rune(rest[0])) {
		return s
	}
	return rest
}

func stripSuffixFold(s, suffix string) string {
	if len(s) <= len(suffix) {
		return s
	}
	if !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s
	}
	return s[:len(s)-len(suffix)]
}

func singularize(s string) string {
	if strings.HasSuffix(s, "ies") && len(s) > 3 {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") && len(s) > 1 {
		return s[:len(s)-1]
	}
	return s
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
