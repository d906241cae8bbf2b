package auditlog

import (
	"encoding/json"
	"fmt"
)

// detailsVersion marks rows written with the tagged value encoding. Rows
// without it predate the encoding and may carry objects serialized into
// strings.
const detailsVersion = 2

// Details is the payload stored in an entry's details column.
type Details struct {
	Field         string `json:"field,omitempty"`
	PreviousValue Value  `json:"previousValue"`
	NewValue      Value  `json:"newValue"`
}

type storedDetails struct {
	Version       int             `json:"v,omitempty"`
	Field         string          `json:"field,omitempty"`
	PreviousValue json.RawMessage `json:"previousValue"`
	NewValue      json.RawMessage `json:"newValue"`
}

func EncodeDetails(d Details) (string, error) {
	prev, err := json.Marshal(d.PreviousValue)
	if err != nil {
		return "", fmt.Errorf("encode previous value: %w", err)
	}
	next, err := json.Marshal(d.NewValue)
	if err != nil {
		return "", fmt.Errorf("encode new value: %w", err)
	}
	b, err := json.Marshal(storedDetails{
		Version:       detailsVersion,
		Field:         d.Field,
		PreviousValue: prev,
		NewValue:      next,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDetails parses a stored details column. Only a syntactically broken
// top-level document is an error; malformed values degrade to text.
func DecodeDetails(raw string) (Details, error) {
	var s storedDetails
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Details{}, err
	}

	d := Details{Field: s.Field}
	if s.Version >= detailsVersion {
		d.PreviousValue = decodeTagged(s.PreviousValue)
		d.NewValue = decodeTagged(s.NewValue)
	} else {
		d.PreviousValue = decodeLegacy(s.PreviousValue)
		d.NewValue = decodeLegacy(s.NewValue)
	}
	return d, nil
}

func decodeTagged(raw json.RawMessage) Value {
	var v Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return Text(string(raw))
	}
	return v
}
