package auditlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags how a stored value is encoded.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return "null"
	}
}

// Value is the only shape a previous/new value takes once it crosses the
// write boundary. Structured fields hold JSON-compatible values only
// (string, float64, bool, nil, []any, map[string]any).
type Value struct {
	Kind   Kind
	Text   string
	Fields map[string]any
}

func Null() Value { return Value{Kind: KindNull} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func Structured(fields map[string]any) Value {
	if fields == nil {
		fields = map[string]any{}
	}
	return Value{Kind: KindStructured, Fields: fields}
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// String is the compact single-line form: the text itself, the JSON of the
// fields, or "" for null.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindStructured:
		b, err := json.Marshal(v.Fields)
		if err != nil {
			return fmt.Sprint(v.Fields)
		}
		return string(b)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindStructured:
		if v.Fields == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Fields)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reads the tagged encoding: null, a JSON string or a JSON
// object. Any other literal (legacy numbers, booleans, arrays) is kept as
// text of its raw JSON.
func (v *Value) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*v = Null()
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
	case trimmed[0] == '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return err
		}
		*v = Structured(m)
	default:
		*v = Text(string(trimmed))
	}
	return nil
}

// decodeLegacy interprets a value written before the tagged encoding
// existed, when objects were JSON-encoded into a string before being placed
// in details. A string that looks like an object and parses as one is
// structured; a parse failure keeps the raw string.
func decodeLegacy(raw json.RawMessage) Value {
	var v Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return Text(string(raw))
	}
	if v.Kind != KindText {
		return v
	}
	s := strings.TrimSpace(v.Text)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err == nil {
			return Structured(m)
		}
	}
	return v
}
