package auditlog

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/college-admin/backend/internal/metrics"
	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DisplayKind says how a timeline item presents its change.
type DisplayKind string

const (
	DisplaySimple     DisplayKind = "simple"     // Changed from X to Y
	DisplayStructured DisplayKind = "structured" // one line per differing sub-field
	DisplayAddition   DisplayKind = "addition"
	DisplayRemoval    DisplayKind = "removal"
	DisplayMarker     DisplayKind = "marker" // informational, no values
	DisplayRaw        DisplayKind = "raw"    // details could not be parsed
)

// ChangeLine is one rendered sub-change. Previous is shown struck through,
// New highlighted; either may be empty.
type ChangeLine struct {
	Label    string `json:"label"`
	Previous string `json:"previous,omitempty"`
	New      string `json:"new,omitempty"`
}

type TimelineItem struct {
	ID          uuid.UUID    `json:"id"`
	ActorID     uuid.UUID    `json:"actor_id"`
	ActionKind  string       `json:"action_kind"`
	ActionLabel string       `json:"action_label"`
	Field       string       `json:"field,omitempty"`
	FieldLabel  string       `json:"field_label,omitempty"`
	Display     DisplayKind  `json:"display"`
	Summary     string       `json:"summary,omitempty"`
	Lines       []ChangeLine `json:"lines,omitempty"`
	Raw         string       `json:"raw,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type RenderOptions struct {
	// Full disables truncation of long free-text values.
	Full bool
}

// DefaultSuppressedAdditions are collection adds whose item detail the
// timeline leaves out; the field label already names the item.
var DefaultSuppressedAdditions = []string{
	QualificationKind.AddAction(),
	PendingQualificationKind.AddAction(),
	WorkExperienceKind.AddAction(),
}

// Renderer reconstructs display items from stored entries. It never fails
// on malformed rows.
type Renderer struct {
	format     *Formatter
	suppressed map[string]bool
	metrics    *metrics.Audit
	log        *zap.Logger
}

func NewRenderer(format *Formatter, suppressedAdditions []string, m *metrics.Audit, log *zap.Logger) *Renderer {
	suppressed := make(map[string]bool, len(suppressedAdditions))
	for _, a := range suppressedAdditions {
		suppressed[a] = true
	}
	return &Renderer{format: format, suppressed: suppressed, metrics: m, log: log}
}

// Render converts entries to items, newest first.
func (r *Renderer) Render(entries []models.AuditEntry, opts RenderOptions) []TimelineItem {
	sorted := newestFirst(entries)
	items := make([]TimelineItem, 0, len(sorted))
	for _, e := range sorted {
		items = append(items, r.RenderEntry(e, opts))
	}
	return items
}

func (r *Renderer) RenderEntry(e models.AuditEntry, opts RenderOptions) TimelineItem {
	item := TimelineItem{
		ID:          e.ID,
		ActorID:     e.ActorID,
		ActionKind:  e.ActionKind,
		ActionLabel: r.format.ActionLabel(e.ActionKind),
		CreatedAt:   e.CreatedAt,
	}

	d, err := DecodeDetails(e.Details)
	if err != nil {
		r.metrics.Fallback()
		r.log.Debug("unparseable audit details", zap.String("entry_id", e.ID.String()), zap.Error(err))
		item.Display = DisplayRaw
		item.Raw = e.Details
		return item
	}

	item.Field = d.Field
	item.FieldLabel = r.format.FieldLabel(d.Field)
	truncate := !opts.Full
	prev, next := d.PreviousValue, d.NewValue

	switch {
	case prev.IsNull() && next.IsNull():
		item.Display = DisplayMarker

	case prev.IsNull():
		item.Display = DisplayAddition
		if !r.suppressed[e.ActionKind] {
			item.Lines = r.valueLines(d.Field, next, truncate, false)
		}

	case next.IsNull():
		item.Display = DisplayRemoval
		item.Lines = r.valueLines(d.Field, prev, truncate, true)

	case prev.Kind == KindStructured && next.Kind == KindStructured:
		item.Display = DisplayStructured
		item.Lines = r.structuredLines(prev.Fields, next.Fields, truncate)

	default:
		item.Display = DisplaySimple
		from := r.format.FormatValue(d.Field, prev, truncate)
		to := r.format.FormatValue(d.Field, next, truncate)
		item.Summary = "Changed from " + quote(from) + " to " + quote(to)
		item.Lines = []ChangeLine{{Label: item.FieldLabel, Previous: from, New: to}}
	}
	return item
}

// valueLines renders a lone value: one line per sub-field for objects,
// a single line otherwise.
func (r *Renderer) valueLines(field string, v Value, truncate, removed bool) []ChangeLine {
	place := func(label, s string) ChangeLine {
		if removed {
			return ChangeLine{Label: label, Previous: s}
		}
		return ChangeLine{Label: label, New: s}
	}

	if v.Kind != KindStructured {
		return []ChangeLine{place(r.format.FieldLabel(field), r.format.FormatValue(field, v, truncate))}
	}
	lines := make([]ChangeLine, 0, len(v.Fields))
	for _, k := range sortedKeys(v.Fields) {
		lines = append(lines, place(r.format.FieldLabel(k), r.format.FormatValue(k, v.Fields[k], truncate)))
	}
	return lines
}

// structuredLines lists only the sub-fields whose values differ.
func (r *Renderer) structuredLines(prev, next map[string]any, truncate bool) []ChangeLine {
	union := make(map[string]any, len(prev)+len(next))
	for k := range prev {
		union[k] = nil
	}
	for k := range next {
		union[k] = nil
	}

	var lines []ChangeLine
	for _, k := range sortedKeys(union) {
		if jsonEqual(prev[k], next[k]) {
			continue
		}
		lines = append(lines, ChangeLine{
			Label:    r.format.FieldLabel(k),
			Previous: r.format.FormatValue(k, prev[k], truncate),
			New:      r.format.FormatValue(k, next[k], truncate),
		})
	}
	return lines
}

// newestFirst sorts a copy by createdAt descending; equal timestamps keep
// store order.
func newestFirst(entries []models.AuditEntry) []models.AuditEntry {
	sorted := make([]models.AuditEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}

func quote(s string) string { return "`" + s + "`" }
