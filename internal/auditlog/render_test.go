package auditlog

import (
	"testing"
	"time"

	"github.com/college-admin/backend/internal/metrics"
	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRenderer(m *metrics.Audit) *Renderer {
	return NewRenderer(NewFormatter(NewNormalizer(time.UTC), 100), DefaultSuppressedAdditions, m, zap.NewNop())
}

func entry(t *testing.T, action string, at time.Time, d Details) models.AuditEntry {
	t.Helper()
	raw, err := EncodeDetails(d)
	require.NoError(t, err)
	return models.AuditEntry{
		ID:         uuid.New(),
		ActorID:    adminID,
		SubjectID:  subjectID,
		ActionKind: action,
		Details:    raw,
		CreatedAt:  at,
	}
}

func TestRenderEntryUnparseableDetails(t *testing.T) {
	m := metrics.NewAudit(prometheus.NewRegistry())
	r := newTestRenderer(m)

	e := models.AuditEntry{ID: uuid.New(), ActionKind: "UPDATE_APPLICATION", Details: `{"field":"notes","previousValue":`, CreatedAt: t0}
	var item TimelineItem
	require.NotPanics(t, func() { item = r.RenderEntry(e, RenderOptions{}) })

	assert.Equal(t, DisplayRaw, item.Display)
	assert.Equal(t, e.Details, item.Raw)
	assert.Equal(t, "Updated Application", item.ActionLabel)
	assert.Empty(t, item.Lines)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RenderFallback))
}

func TestRenderEntryLegacyDoubleEncodedObjects(t *testing.T) {
	r := newTestRenderer(nil)
	e := models.AuditEntry{
		ID:         uuid.New(),
		ActionKind: "UPDATE_QUALIFICATION",
		Details:    `{"field":"qualification.BTEC","previousValue":"{\"grade\":\"Merit\",\"title\":\"BTEC\"}","newValue":"{\"grade\":\"Distinction\",\"title\":\"BTEC\"}"}`,
		CreatedAt:  t0,
	}

	item := r.RenderEntry(e, RenderOptions{})
	assert.Equal(t, DisplayStructured, item.Display)
	assert.Equal(t, "Qualification: BTEC", item.FieldLabel)
	assert.Equal(t, []ChangeLine{{Label: "Grade", Previous: "Merit", New: "Distinction"}}, item.Lines)
}

func TestRenderEntryLegacyBrokenObjectStaysText(t *testing.T) {
	r := newTestRenderer(nil)
	e := models.AuditEntry{
		ID:         uuid.New(),
		ActionKind: "UPDATE_APPLICATION",
		Details:    `{"field":"notes","previousValue":"{oops","newValue":"fine"}`,
	}

	item := r.RenderEntry(e, RenderOptions{})
	assert.Equal(t, DisplaySimple, item.Display)
	assert.Equal(t, "Changed from `{oops` to `fine`", item.Summary)
}

func TestRenderEntryDisplayKinds(t *testing.T) {
	r := newTestRenderer(nil)

	tests := []struct {
		name    string
		action  string
		details Details
		want    TimelineItem
	}{
		{
			name:    "simple boolean change",
			action:  "UPDATE_APPLICATION",
			details: Details{Field: "hasPendingResults", PreviousValue: Text("false"), NewValue: Text("true")},
			want: TimelineItem{
				ActionLabel: "Updated Application",
				Field:       "hasPendingResults",
				FieldLabel:  "Pending Results",
				Display:     DisplaySimple,
				Summary:     "Changed from `No` to `Yes`",
				Lines:       []ChangeLine{{Label: "Pending Results", Previous: "No", New: "Yes"}},
			},
		},
		{
			name:    "suppressed collection addition",
			action:  "ADD_QUALIFICATION",
			details: Details{Field: "qualification.HNC", PreviousValue: Null(), NewValue: Structured(map[string]any{"title": "HNC", "grade": "Pass"})},
			want: TimelineItem{
				ActionLabel: "Added Qualification",
				Field:       "qualification.HNC",
				FieldLabel:  "Qualification: HNC",
				Display:     DisplayAddition,
			},
		},
		{
			name:    "file addition shows value",
			action:  "ADD_FILE",
			details: Details{Field: "file.cv.pdf", PreviousValue: Null(), NewValue: Text("cv.pdf")},
			want: TimelineItem{
				ActionLabel: "Uploaded File",
				Field:       "file.cv.pdf",
				FieldLabel:  "File: cv.pdf",
				Display:     DisplayAddition,
				Lines:       []ChangeLine{{Label: "File: cv.pdf", New: "cv.pdf"}},
			},
		},
		{
			name:    "removal lists every sub-field",
			action:  "DELETE_WORK_EXPERIENCE",
			details: Details{Field: "work_experience.Tesco", PreviousValue: Structured(map[string]any{"job_title": "Cashier", "employer": "Tesco"}), NewValue: Null()},
			want: TimelineItem{
				ActionLabel: "Deleted Work Experience",
				Field:       "work_experience.Tesco",
				FieldLabel:  "Work Experience: Tesco",
				Display:     DisplayRemoval,
				Lines: []ChangeLine{
					{Label: "Employer", Previous: "Tesco"},
					{Label: "Job Title", Previous: "Cashier"},
				},
			},
		},
		{
			name:    "structured change lists differing sub-fields only",
			action:  "UPDATE_PAYMENT_PLAN",
			details: Details{Field: "payment_plan", PreviousValue: Structured(map[string]any{"total_fee": 9000.0, "plan_type": "termly"}), NewValue: Structured(map[string]any{"total_fee": 9250.0, "plan_type": "termly"})},
			want: TimelineItem{
				ActionLabel: "Updated Payment Plan",
				Field:       "payment_plan",
				FieldLabel:  "Payment Plan",
				Display:     DisplayStructured,
				Lines:       []ChangeLine{{Label: "Total Fee", Previous: "£9,000.00", New: "£9,250.00"}},
			},
		},
		{
			name:    "informational marker",
			action:  "SCHEDULE_INTERVIEW",
			details: Details{Field: "interview", PreviousValue: Null(), NewValue: Null()},
			want: TimelineItem{
				ActionLabel: "Interview Scheduled",
				Field:       "interview",
				FieldLabel:  "Interview",
				Display:     DisplayMarker,
			},
		},
		{
			name:    "text replaced by object renders simply",
			action:  "UPDATE_APPLICATION",
			details: Details{Field: "address", PreviousValue: Text("unknown"), NewValue: Structured(map[string]any{"city": "Leeds"})},
			want: TimelineItem{
				ActionLabel: "Updated Application",
				Field:       "address",
				FieldLabel:  "Address",
				Display:     DisplaySimple,
				Summary:     "Changed from `unknown` to `{\"city\":\"Leeds\"}`",
				Lines:       []ChangeLine{{Label: "Address", Previous: "unknown", New: `{"city":"Leeds"}`}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry(t, tt.action, t0, tt.details)
			got := r.RenderEntry(e, RenderOptions{})

			tt.want.ID = e.ID
			tt.want.ActorID = e.ActorID
			tt.want.ActionKind = tt.action
			tt.want.CreatedAt = t0
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderEntryFullDisablesTruncation(t *testing.T) {
	r := NewRenderer(NewFormatter(NewNormalizer(time.UTC), 13), nil, nil, zap.NewNop())
	long := "The applicant explained their reasons at length"
	e := entry(t, "UPDATE_APPLICATION", t0, Details{Field: "notes", PreviousValue: Null(), NewValue: Text(long)})

	short := r.RenderEntry(e, RenderOptions{})
	require.Len(t, short.Lines, 1)
	assert.Equal(t, "The applicant…", short.Lines[0].New)

	full := r.RenderEntry(e, RenderOptions{Full: true})
	assert.Equal(t, long, full.Lines[0].New)
}

func TestRenderNewestFirstIsStable(t *testing.T) {
	r := newTestRenderer(nil)
	d := Details{Field: "interview", PreviousValue: Null(), NewValue: Null()}

	older := entry(t, "SCHEDULE_INTERVIEW", t0, d)
	tieA := entry(t, "UPDATE_STATUS", t0.Add(time.Hour), d)
	tieB := entry(t, "ADD_FILE", t0.Add(time.Hour), d)
	newest := entry(t, "DELETE_FILE", t0.Add(2*time.Hour), d)

	items := r.Render([]models.AuditEntry{older, tieA, tieB, newest}, RenderOptions{})
	require.Len(t, items, 4)
	assert.Equal(t, []uuid.UUID{newest.ID, tieA.ID, tieB.ID, older.ID},
		[]uuid.UUID{items[0].ID, items[1].ID, items[2].ID, items[3].ID})
}
