package auditlog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

const (
	// DisplayLayout is the single format dates take inside stored values.
	DisplayLayout = "02/01/2006 15:04"
	// DayLayout is the comparison form; time of day never counts as a change.
	DayLayout = "2006-01-02"
)

// Layouts accepted when a string is compared as a date. DisplayLayout is
// included so already-stored values normalize to the same day.
var comparableLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DayLayout,
	DisplayLayout,
	"02/01/2006",
}

// Normalizer turns arbitrary field values into their stored form and into
// the coarser form used for change detection. It never fails: anything it
// cannot interpret is kept literally.
type Normalizer struct {
	loc *time.Location
}

func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

func (n *Normalizer) FormatTime(t time.Time) string {
	return t.In(n.loc).Format(DisplayLayout)
}

func (n *Normalizer) FormatDay(t time.Time) string {
	return t.In(n.loc).Format(DayLayout)
}

// Store converts v to the value persisted in an entry.
//
//	nil, typed nil     -> Null
//	string             -> Text, verbatim
//	time.Time          -> Text in DisplayLayout
//	map[string]any     -> Structured, dates formatted at any depth
//	other maps, structs -> Structured via their JSON form, RFC 3339
//	                      strings in it formatted as dates
//	slices, arrays     -> Text of their JSON form, dates formatted
//	Value              -> unchanged
//	anything else      -> Text of its JSON encoding
func (n *Normalizer) Store(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case *Value:
		if x == nil {
			return Null()
		}
		return *x
	case string:
		return Text(x)
	case *string:
		if x == nil {
			return Null()
		}
		return Text(*x)
	case time.Time:
		return Text(n.FormatTime(x))
	case *time.Time:
		if x == nil {
			return Null()
		}
		return Text(n.FormatTime(*x))
	case map[string]any:
		if x == nil {
			return Null()
		}
		return n.structured(x)
	}

	if isNilPointer(v) {
		return Null()
	}
	if isComposite(v) {
		return n.storeComposite(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Text(fmt.Sprint(v))
	}
	return Text(string(b))
}

// storeComposite decodes a typed value's JSON form into plain maps and
// slices. Dates inside it have already been encoded as RFC 3339 strings,
// so those are formatted on the way back.
func (n *Normalizer) storeComposite(v any) Value {
	b, err := json.Marshal(v)
	if err != nil {
		return Text(fmt.Sprint(v))
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return Text(string(b))
	}
	switch x := n.formatEncodedDates(tree).(type) {
	case nil:
		return Null()
	case string:
		return Text(x)
	case map[string]any:
		return n.structured(x)
	default:
		out, err := json.Marshal(x)
		if err != nil {
			return Text(string(b))
		}
		return Text(string(out))
	}
}

func (n *Normalizer) formatEncodedDates(v any) any {
	switch x := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return n.FormatTime(t)
		}
		return x
	case map[string]any:
		for k, val := range x {
			x[k] = n.formatEncodedDates(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = n.formatEncodedDates(val)
		}
		return x
	default:
		return v
	}
}

func (n *Normalizer) structured(m map[string]any) Value {
	formatted, _ := n.formatDates(m).(map[string]any)
	// Round-trip through JSON so the fields carry exactly what a reader
	// will decode later.
	b, err := json.Marshal(formatted)
	if err != nil {
		return Text(fmt.Sprint(m))
	}
	var canonical map[string]any
	if err := json.Unmarshal(b, &canonical); err != nil {
		return Text(string(b))
	}
	return Structured(canonical)
}

// formatDates copies v, replacing every date with its display string.
func (n *Normalizer) formatDates(v any) any {
	switch x := v.(type) {
	case time.Time:
		return n.FormatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return n.FormatTime(*x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = n.formatDates(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = n.formatDates(val)
		}
		return out
	case Value:
		switch x.Kind {
		case KindText:
			return x.Text
		case KindStructured:
			return n.formatDates(x.Fields)
		default:
			return nil
		}
	default:
		return v
	}
}

// Comparable returns the form used to decide whether a collection item
// changed. Dates, including date strings, collapse to their calendar day.
func (n *Normalizer) Comparable(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return n.FormatDay(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return n.FormatDay(*x)
	case string:
		if day, ok := n.parseDay(x); ok {
			return day
		}
		return x
	case *string:
		if x == nil {
			return nil
		}
		return n.Comparable(*x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = n.Comparable(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = n.Comparable(val)
		}
		return out
	case Value:
		switch x.Kind {
		case KindText:
			return n.Comparable(x.Text)
		case KindStructured:
			return n.Comparable(x.Fields)
		default:
			return nil
		}
	}
	if isNilPointer(v) {
		return nil
	}
	return v
}

// Equal reports whether a and b are the same after comparison
// normalization, judged on their JSON encoding.
func (n *Normalizer) Equal(a, b any) bool {
	return n.comparisonKey(a) == n.comparisonKey(b)
}

// StoredEqual reports whether a and b would be persisted identically.
// Dates count to the minute of DisplayLayout, with no day-level collapse.
func (n *Normalizer) StoredEqual(a, b any) bool {
	ab, errA := json.Marshal(n.Store(a))
	bb, errB := json.Marshal(n.Store(b))
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

func (n *Normalizer) comparisonKey(v any) string {
	c := n.Comparable(v)
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%#v", c)
	}
	return string(b)
}

func (n *Normalizer) parseDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	// Cheap reject before trying every layout.
	if len(s) < len("02/01/2006") || s[0] < '0' || s[0] > '9' {
		return "", false
	}
	for _, layout := range comparableLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return n.FormatDay(t), true
		}
	}
	return "", false
}

// isComposite reports maps, structs, slices and arrays, looking through
// pointers.
func isComposite(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
