package auditlog

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizerStore(t *testing.T) {
	n := NewNormalizer(time.UTC)
	awarded := time.Date(2020, 1, 15, 10, 30, 0, 0, time.UTC)
	name := "Pearson"
	var nilTime *time.Time

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"typed nil pointer", nilTime, Null()},
		{"string verbatim", "  BTEC <b>Level 3</b>", Text("  BTEC <b>Level 3</b>")},
		{"string pointer", &name, Text("Pearson")},
		{"time", awarded, Text("15/01/2020 10:30")},
		{"time pointer", &awarded, Text("15/01/2020 10:30")},
		{"bool", false, Text("false")},
		{"int", 42, Text("42")},
		{"float", 1250.5, Text("1250.5")},
		{"slice", []string{"a", "b"}, Text(`["a","b"]`)},
		{"already a value", Text("x"), Text("x")},
		{"object with nested date", map[string]any{
			"title": "HNC",
			"dates": map[string]any{"awarded": awarded},
			"list":  []any{awarded, 3},
		}, Structured(map[string]any{
			"title": "HNC",
			"dates": map[string]any{"awarded": "15/01/2020 10:30"},
			"list":  []any{"15/01/2020 10:30", float64(3)},
		})},
		{"typed string map", map[string]string{"a": "b"}, Structured(map[string]any{"a": "b"})},
		{"typed date map", map[string]time.Time{"awarded": awarded}, Structured(map[string]any{"awarded": "15/01/2020 10:30"})},
		{"struct with date", interviewSlot{At: awarded, Room: "Room 2"},
			Structured(map[string]any{"scheduled_at": "15/01/2020 10:30", "location": "Room 2"})},
		{"struct pointer", &interviewSlot{At: awarded}, Structured(map[string]any{"scheduled_at": "15/01/2020 10:30", "location": ""})},
		{"slice with dates", []any{awarded, "x"}, Text(`["15/01/2020 10:30","x"]`)},
		{"unstringifiable falls back to text", make(chan int), Text("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Store(tt.in)
			if tt.name == "unstringifiable falls back to text" {
				assert.Equal(t, KindText, got.Kind)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

type interviewSlot struct {
	At   time.Time `json:"scheduled_at"`
	Room string    `json:"location"`
}

func TestNormalizerStoreUsesLocation(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	n := NewNormalizer(london)
	// 23:30 UTC in July is 00:30 BST the next day.
	got := n.Store(time.Date(2021, 7, 1, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, Text("02/07/2021 00:30"), got)
}

func TestNormalizerEqual(t *testing.T) {
	n := NewNormalizer(time.UTC)
	day := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same instant different time of day", "2020-01-15T00:00:00Z", "2020-01-15T10:00:00Z", true},
		{"time vs iso string", day, "2020-01-15T09:00:00Z", true},
		{"time vs display string", day, "15/01/2020 17:45", true},
		{"time vs date only", day, "2020-01-15", true},
		{"different days", "2020-01-15", "2020-01-16", false},
		{"malformed date compares literally", "2020-13-45", "2020-13-45", true},
		{"malformed vs valid", "2020-13-45", "2020-01-15", false},
		{"nil vs empty", nil, "", false},
		{"nil vs typed nil", nil, (*string)(nil), true},
		{"int vs float", 5, 5.0, true},
		{"bool change", false, true, false},
		{"maps with dates", map[string]any{"d": day}, map[string]any{"d": "2020-01-15T23:00:00Z"}, true},
		{"maps differ", map[string]any{"a": "x"}, map[string]any{"a": "y"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Equal(tt.a, tt.b))
		})
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	n := NewNormalizer(time.UTC)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	base := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	span := 60 * 365 * 24 * time.Hour

	properties.Property("storing a stored date yields the same value", prop.ForAll(
		func(ts time.Time) bool {
			once := n.Store(ts)
			return assert.ObjectsAreEqual(once, n.Store(once.Text)) && assert.ObjectsAreEqual(once, n.Store(once))
		},
		gen.TimeRange(base, span),
	))

	properties.Property("comparison form of a comparison form is stable", prop.ForAll(
		func(ts time.Time) bool {
			once := n.Comparable(ts)
			return n.Comparable(once) == once && n.Comparable(n.Store(ts)) == once
		},
		gen.TimeRange(base, span),
	))

	properties.Property("storing stored object fields yields the same value", prop.ForAll(
		func(title string, ts time.Time, count int) bool {
			once := n.Store(map[string]any{"title": title, "awarded": ts, "count": count})
			twice := n.Store(once.Fields)
			return assert.ObjectsAreEqual(once, twice)
		},
		gen.AlphaString(),
		gen.TimeRange(base, span),
		gen.IntRange(-1000, 1000),
	))

	properties.TestingRun(t)
}

func TestStoredValuesRoundTrip(t *testing.T) {
	n := NewNormalizer(time.UTC)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(store(v))) == store(v)", prop.ForAll(
		func(s string, grade string, flag bool, ts time.Time) bool {
			inputs := []any{
				nil,
				s,
				flag,
				ts,
				map[string]any{"grade": grade, "pass": flag, "on": ts, "nested": map[string]any{"s": s}},
			}
			for _, prev := range inputs {
				for _, next := range inputs {
					want := Details{Field: "f", PreviousValue: n.Store(prev), NewValue: n.Store(next)}
					raw, err := EncodeDetails(want)
					if err != nil {
						return false
					}
					got, err := DecodeDetails(raw)
					if err != nil || !assert.ObjectsAreEqual(want, got) {
						return false
					}
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
		gen.TimeRange(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 30*365*24*time.Hour),
	))

	properties.TestingRun(t)
}

func TestTaggedTextThatLooksLikeObjectStaysText(t *testing.T) {
	raw, err := EncodeDetails(Details{Field: "notes", PreviousValue: Text(`{"not":"an object"}`), NewValue: Null()})
	require.NoError(t, err)

	got, err := DecodeDetails(raw)
	require.NoError(t, err)
	assert.Equal(t, Text(`{"not":"an object"}`), got.PreviousValue)
}
