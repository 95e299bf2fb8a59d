package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the concrete shape held by a TraitValue.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

// TraitValue is a closed tagged union over the JSON value shapes a trait can
// carry. The dependency/conflict machinery and the compiler operate on this
// type instead of untyped any values, so every case is exhaustively
// matchable and serialization is canonical.
type TraitValue struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	arr  []TraitValue
	obj  map[string]TraitValue
}

func StringValue(s string) TraitValue  { return TraitValue{kind: KindString, str: s} }
func NumberValue(f float64) TraitValue { return TraitValue{kind: KindNumber, num: f} }
func IntValue(n int) TraitValue        { return TraitValue{kind: KindNumber, num: float64(n)} }
func BoolValue(b bool) TraitValue      { return TraitValue{kind: KindBool, b: b} }

func ArrayValue(items ...TraitValue) TraitValue {
	return TraitValue{kind: KindArray, arr: items}
}

func ObjectValue(fields map[string]TraitValue) TraitValue {
	return TraitValue{kind: KindObject, obj: fields}
}

func (v TraitValue) Kind() ValueKind { return v.kind }
func (v TraitValue) IsNull() bool    { return v.kind == KindNull }

// StringOr renders the value as a string, falling back for null and
// composite kinds. Scalar kinds stringify the way the wire format does.
func (v TraitValue) StringOr(fallback string) string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return fallback
	}
}

// IntOr returns the value as an int when it is numeric (or a numeric
// string), otherwise the fallback.
func (v TraitValue) IntOr(fallback int) int {
	switch v.kind {
	case KindNumber:
		return int(math.Round(v.num))
	case KindString:
		if n, err := strconv.Atoi(strings.TrimSpace(v.str)); err == nil {
			return n
		}
	}
	return fallback
}

// BoolOr returns the value as a bool when it is boolean (or a boolean
// string), otherwise the fallback.
func (v TraitValue) BoolOr(fallback bool) bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		if b, err := strconv.ParseBool(strings.TrimSpace(v.str)); err == nil {
			return b
		}
	}
	return fallback
}

// Strings returns the value as a string slice when it is an array;
// non-string elements are stringified, composites skipped.
func (v TraitValue) Strings() []string {
	if v.kind != KindArray {
		return nil
	}
	out := make([]string, 0, len(v.arr))
	for _, item := range v.arr {
		if s := item.StringOr(""); s != "" || item.kind == KindString {
			out = append(out, s)
		}
	}
	return out
}

// Field returns a named member of an object value.
func (v TraitValue) Field(name string) (TraitValue, bool) {
	if v.kind != KindObject {
		return TraitValue{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// ObjectStrings returns an object value as a string→string map.
func (v TraitValue) ObjectStrings() map[string]string {
	if v.kind != KindObject {
		return nil
	}
	out := make(map[string]string, len(v.obj))
	for k, f := range v.obj {
		out[k] = f.StringOr("")
	}
	return out
}

// Canonical returns the deterministic wire serialization of the value.
// Two values conflict-match exactly when their canonical forms are equal.
func (v TraitValue) Canonical() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "null"
	}
	return string(data)
}

// Equal compares two values by canonical serialization.
func (v TraitValue) Equal(other TraitValue) bool {
	return v.Canonical() == other.Canonical()
}

func (v TraitValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(formatNumber(v.num)), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		// encoding/json sorts map keys, which keeps object output canonical.
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("unknown trait value kind %d", v.kind)
	}
}

func (v *TraitValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*v = TraitValue{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '[':
		var arr []TraitValue
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*v = TraitValue{kind: KindArray, arr: arr}
	case '{':
		var obj map[string]TraitValue
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*v = TraitValue{kind: KindObject, obj: obj}
	default:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("invalid trait value %q: %w", trimmed, err)
		}
		*v = NumberValue(f)
	}
	return nil
}

// ParseTraitValue parses a single JSON value. Input that is not valid JSON
// is treated as a bare string, matching how loosely-authored catalog option
// values are tolerated.
func ParseTraitValue(raw string) TraitValue {
	var v TraitValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return StringValue(raw)
	}
	return v
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// TraitMap is a mutable set of trait values keyed by trait key.
type TraitMap map[string]TraitValue

// ParseTraitMap decodes a JSON object into a TraitMap.
func ParseTraitMap(raw string) (TraitMap, error) {
	m := TraitMap{}
	if strings.TrimSpace(raw) == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return TraitMap{}, fmt.Errorf("parse trait map: %w", err)
	}
	return m, nil
}

func (m TraitMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// StringOr returns the trait rendered as a string, or the fallback when the
// key is absent or not representable as a string.
func (m TraitMap) StringOr(key, fallback string) string {
	v, ok := m[key]
	if !ok || v.IsNull() {
		return fallback
	}
	return v.StringOr(fallback)
}

func (m TraitMap) IntOr(key string, fallback int) int {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	return v.IntOr(fallback)
}

func (m TraitMap) BoolOr(key string, fallback bool) bool {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	return v.BoolOr(fallback)
}

// SortedKeys returns the map's keys in lexical order. Iteration over Go
// maps is randomized, and generation must consume randomness in a stable
// order to stay reproducible.
func (m TraitMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy (values are immutable once parsed).
func (m TraitMap) Clone() TraitMap {
	out := make(TraitMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
