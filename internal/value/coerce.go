package value

import "strconv"

// CoerceToNumber applies §4.3's coercion rule for numeric comparisons: a
// string value is parsed as a decimal numeral; any other kind, or a string
// that does not parse, fails coercion.
func CoerceToNumber(v Value) (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// CoerceToBool applies §4.3's coercion rule for boolean comparisons: the
// literal strings "true"/"false" parse; any other kind, or a non-matching
// string, fails coercion.
func CoerceToBool(v Value) (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		switch v.s {
		case "true":
			return true, true
		case "false":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// Exists reports whether v is "present" per §4.3's `exists` operator: a
// value that is not this zero-value sentinel for "missing" is present even
// when it is falsy (0, "", false all satisfy exists:true). found indicates
// whether a lookup located the path at all; a stored JSON null (found, but
// of KindNull) also does not satisfy exists:true.
func Exists(v Value, found bool) bool {
	if !found {
		return false
	}
	return v.kind != KindNull
}
