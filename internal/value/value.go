// Package value implements the untyped JSON-like value model used to
// represent resolved artifact content at runtime: Null | Bool | Number |
// String | Array | Object (§9 "Dynamic typing"). All blueprint, condition,
// and producer-contract boundaries are statically typed; artifact payloads
// themselves are not.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which case of the Value sum type a value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a closed sum type over the JSON-like value model. The zero Value
// is Null. Construct values with the New* helpers; inspect them with Kind
// and the As* accessors.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null is the canonical null value.
var Null = Value{kind: KindNull}

func NewBool(b bool) Value      { return Value{kind: KindBool, b: b} }
func NewNumber(n float64) Value { return Value{kind: KindNumber, n: n} }
func NewString(s string) Value  { return Value{kind: KindString, s: s} }

func NewArray(items []Value) Value {
	return Value{kind: KindArray, arr: items}
}

func NewObject(fields map[string]Value) Value {
	return Value{kind: KindObject, obj: fields}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Field looks up a field of an object value. Returns (Null, false) for any
// non-object value or a missing key.
func (v Value) Field(name string) (Value, bool) {
	obj, ok := v.AsObject()
	if !ok {
		return Null, false
	}
	fv, ok := obj[name]
	return fv, ok
}

// Index looks up an element of an array value by position.
func (v Value) Index(i int) (Value, bool) {
	arr, ok := v.AsArray()
	if !ok || i < 0 || i >= len(arr) {
		return Null, false
	}
	return arr[i], true
}

// FromAny converts a generic Go value decoded from YAML/JSON (map[string]any,
// []any, string, bool, float64/int, nil) into a Value. Unsupported types
// produce an error rather than silently dropping data.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case bool:
		return NewBool(x), nil
	case string:
		return NewString(x), nil
	case float64:
		return NewNumber(x), nil
	case float32:
		return NewNumber(float64(x)), nil
	case int:
		return NewNumber(float64(x)), nil
	case int64:
		return NewNumber(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Null, fmt.Errorf("value: invalid number %q: %w", x.String(), err)
		}
		return NewNumber(f), nil
	case []any:
		items := make([]Value, 0, len(x))
		for _, elem := range x {
			ev, err := FromAny(elem)
			if err != nil {
				return Null, err
			}
			items = append(items, ev)
		}
		return NewArray(items), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, elem := range x {
			ev, err := FromAny(elem)
			if err != nil {
				return Null, err
			}
			fields[k] = ev
		}
		return NewObject(fields), nil
	case map[any]any:
		// yaml.v3 sometimes decodes nested maps with interface{} keys.
		fields := make(map[string]Value, len(x))
		for k, elem := range x {
			ks, ok := k.(string)
			if !ok {
				return Null, fmt.Errorf("value: non-string map key %v (%T)", k, k)
			}
			ev, err := FromAny(elem)
			if err != nil {
				return Null, err
			}
			fields[ks] = ev
		}
		return NewObject(fields), nil
	default:
		return Null, fmt.Errorf("value: unsupported type %T", v)
	}
}

// ToAny converts a Value back into plain Go data (map[string]any, []any,
// etc.), suitable for json.Marshal or further generic processing.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// DeepEqual reports structural equality between two values, used by the `is`
// condition operator. Numbers compare by value; objects compare regardless
// of field order; arrays compare order-sensitively.
func DeepEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !DeepEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !DeepEqual(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CanonicalJSON renders v as canonical JSON bytes: object keys sorted
// lexicographically by Unicode codepoint, no insignificant whitespace,
// arrays left in order. Used to compute stable hashes (inputsHash, blob
// content hashes over JSON artifacts) that do not depend on field order.
//
// Grounded on the same canonicalization contract used for tool-call
// fingerprinting in the wider pack (deterministic args_hash derivation).
func (v Value) CanonicalJSON() []byte {
	var b strings.Builder
	writeCanonical(&b, v)
	return []byte(b.String())
}

func writeCanonical(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNumber:
		b.WriteString(formatCanonicalNumber(v.n))
	case KindString:
		encoded, _ := json.Marshal(v.s)
		b.Write(encoded)
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encodedKey, _ := json.Marshal(k)
			b.Write(encodedKey)
			b.WriteByte(':')
			writeCanonical(b, v.obj[k])
		}
		b.WriteByte('}')
	}
}

// formatCanonicalNumber renders a float64 in minimal decimal form: integral
// values drop the trailing ".0", everything else uses the shortest
// round-tripping representation.
func formatCanonicalNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
