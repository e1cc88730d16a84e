package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Op is a comparison operator in a query filter.
type Op string

const (
	Eq  Op = "=="
	Neq Op = "!="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

// Filter restricts a query to documents whose Field compares to Value.
// Field is a dotted path into the JSON body, e.g. "participated.elder_1".
// A document missing the field never matches.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where is shorthand for building a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// Validate rejects unknown operators, malformed field paths and unsupported values.
func (f Filter) Validate() error {
	switch f.Op {
	case Eq, Neq, Lt, Lte, Gt, Gte:
	default:
		return fmt.Errorf("unsupported filter operator %q", f.Op)
	}
	if !fieldPattern.MatchString(f.Field) {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	if _, ok := Normalize(f.Value); !ok {
		return fmt.Errorf("unsupported filter value %T for field %q", f.Value, f.Field)
	}
	return nil
}

// Segments splits the field path.
func (f Filter) Segments() []string {
	return strings.Split(f.Field, ".")
}

// Normalize converts a scalar to the canonical form used for comparison:
// string, bool, int64 for integral numbers, float64 otherwise.
func Normalize(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case float32:
		return normalizeFloat(float64(x)), true
	case float64:
		return normalizeFloat(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		f, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return normalizeFloat(f), true
	}
	return nil, false
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// Match reports whether the JSON document data satisfies every filter.
func Match(data []byte, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return false, fmt.Errorf("failed to decode document: %w", err)
	}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return false, err
		}
		got, ok := lookup(body, f.Segments())
		if !ok {
			return false, nil
		}
		if !compare(got, f.Op, f.Value) {
			return false, nil
		}
	}
	return true, nil
}

func lookup(body map[string]any, segs []string) (any, bool) {
	var cur any = body
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[s]
		if !ok {
			return nil, false
		}
	}
	v, ok := Normalize(cur)
	return v, ok
}

func compare(got any, op Op, want any) bool {
	w, _ := Normalize(want)
	c, comparable := order(got, w)
	switch op {
	case Eq:
		return comparable && c == 0
	case Neq:
		return !comparable || c != 0
	}
	if !comparable {
		return false
	}
	switch op {
	case Lt:
		return c < 0
	case Lte:
		return c <= 0
	case Gt:
		return c > 0
	case Gte:
		return c >= 0
	}
	return false
}

// order compares two normalized scalars of compatible type.
func order(a, b any) (int, bool) {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
