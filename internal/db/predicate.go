package db

import (
	"reflect"
	"regexp"
)

// Predicate selects records by their field map.
type Predicate func(data map[string]any) bool

// Always selects every record.
var Always Predicate = func(map[string]any) bool { return true }

// And holds when every predicate holds.
func And(preds ...Predicate) Predicate {
	return func(data map[string]any) bool {
		for _, p := range preds {
			if !p(data) {
				return false
			}
		}
		return true
	}
}

// Or holds when any predicate holds.
func Or(preds ...Predicate) Predicate {
	return func(data map[string]any) bool {
		for _, p := range preds {
			if p(data) {
				return true
			}
		}
		return false
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(data map[string]any) bool { return !p(data) }
}

// Field references a column for building predicates.
type Field struct {
	name string
}

// Name returns the field name.
func (f Field) Name() string {
	return f.name
}

// Eq is regex-first: when value is a string that compiles as a pattern the
// predicate holds if the pattern is found anywhere in the field's string
// value. Otherwise it falls back to exact comparison.
func (f Field) Eq(value any) Predicate {
	if re := compileOperand(value); re != nil {
		return func(data map[string]any) bool {
			s, ok := data[f.name].(string)
			return ok && re.MatchString(s)
		}
	}
	return func(data map[string]any) bool {
		return equalValues(data[f.name], value)
	}
}

// Ne is the negation of Eq under the same regex-first rule.
func (f Field) Ne(value any) Predicate {
	if re := compileOperand(value); re != nil {
		return func(data map[string]any) bool {
			s, ok := data[f.name].(string)
			return !ok || !re.MatchString(s)
		}
	}
	return func(data map[string]any) bool {
		return !equalValues(data[f.name], value)
	}
}

// Lt compares plainly; it never interprets value as a pattern.
func (f Field) Lt(value any) Predicate {
	return f.ordered(value, func(c int) bool { return c < 0 })
}

// Le compares plainly.
func (f Field) Le(value any) Predicate {
	return f.ordered(value, func(c int) bool { return c <= 0 })
}

// Gt compares plainly.
func (f Field) Gt(value any) Predicate {
	return f.ordered(value, func(c int) bool { return c > 0 })
}

// Ge compares plainly.
func (f Field) Ge(value any) Predicate {
	return f.ordered(value, func(c int) bool { return c >= 0 })
}

func (f Field) ordered(value any, accept func(int) bool) Predicate {
	return func(data map[string]any) bool {
		c, ok := compareValues(data[f.name], value)
		return ok && accept(c)
	}
}

// Exactly matches a string field equal to value, built on Eq with an anchored
// and quoted pattern.
func Exactly(f Field, value string) Predicate {
	return f.Eq("^" + regexp.QuoteMeta(value) + "$")
}

func compileOperand(value any) *regexp.Regexp {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil
	}
	return re
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func equalValues(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	if aNum != bNum {
		return false
	}
	if sa, ok := a.([]string); ok {
		a = stringsToAny(sa)
	}
	if sb, ok := b.([]string); ok {
		b = stringsToAny(sb)
	}
	return reflect.DeepEqual(a, b)
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// compareValues orders numbers numerically and strings lexically. Any other
// pairing is incomparable.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, ok := a.(string)
	if !ok {
		return 0, false
	}
	sb, ok := b.(string)
	if !ok {
		return 0, false
	}
	switch {
	case sa < sb:
		return -1, true
	case sa > sb:
		return 1, true
	default:
		return 0, true
	}
}
