package auditlog

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededTimeline(t *testing.T, n int) (*Timeline, []models.AuditEntry) {
	t.Helper()
	store := &memStore{}
	for i := 0; i < n; i++ {
		e := entry(t, "UPDATE_APPLICATION", t0.Add(time.Duration(i)*time.Minute),
			Details{Field: "notes", PreviousValue: Null(), NewValue: Text("v")})
		store.entries = append(store.entries, e)
	}
	// Another subject's rows must never leak in.
	other := entry(t, "ADD_FILE", t0, Details{Field: "file.x", NewValue: Text("x")})
	other.SubjectID = uuid.New()
	store.entries = append(store.entries, other)

	return NewTimeline(store, newTestRenderer(nil), 10, 50), store.entries[:n]
}

func TestTimelineListEntries(t *testing.T) {
	tl, entries := seededTimeline(t, 25)

	tests := []struct {
		name       string
		page, size int
		wantPage   int
		wantSize   int
		wantFirst  int // index into entries, -1 for an empty page
		wantCount  int
	}{
		{"first page", 1, 10, 1, 10, 24, 10},
		{"last partial page", 3, 10, 3, 10, 4, 5},
		{"past the end", 4, 10, 4, 10, -1, 0},
		{"page below one clamps", 0, 10, 1, 10, 24, 10},
		{"size zero uses default", 2, 0, 2, 10, 14, 10},
		{"size above max clamps", 1, 500, 1, 50, 24, 25},
		{"huge page does not overflow", math.MaxInt, 10, math.MaxInt, 10, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tl.ListEntries(context.Background(), subjectID, tt.page, tt.size, RenderOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, 25, p.Total)
			assert.Len(t, p.Items, tt.wantCount)
			if tt.wantFirst >= 0 {
				assert.Equal(t, entries[tt.wantFirst].ID, p.Items[0].ID)
			}
		})
	}
}

func TestTimelineReadsOnlyRequestedPage(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		wantCalls  int
		wantLimit  int
		wantOffset int
	}{
		{"first page", 1, 10, 1, 10, 0},
		{"middle page", 2, 10, 1, 10, 10},
		{"clamped size", 1, 500, 1, 50, 0},
		{"past the end skips the read", 4, 10, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, _ := seededTimeline(t, 25)
			store := tl.store.(*memStore)

			_, err := tl.ListEntries(context.Background(), subjectID, tt.page, tt.size, RenderOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, store.listCalls)
			assert.Equal(t, tt.wantLimit, store.lastLimit)
			assert.Equal(t, tt.wantOffset, store.lastOffset)
		})
	}
}

func TestTimelineItemsAreNewestFirst(t *testing.T) {
	tl, _ := seededTimeline(t, 7)
	p, err := tl.ListEntries(context.Background(), subjectID, 1, 10, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalPages)
	for i := 1; i < len(p.Items); i++ {
		assert.False(t, p.Items[i].CreatedAt.After(p.Items[i-1].CreatedAt))
	}
}

func TestTimelineEmptySubject(t *testing.T) {
	tl := NewTimeline(&memStore{}, newTestRenderer(nil), 0, 0)
	p, err := tl.ListEntries(context.Background(), uuid.New(), 1, 0, RenderOptions{})
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 10, p.PageSize)
}

func TestTimelineStoreError(t *testing.T) {
	down := errors.New("db gone")
	tl := NewTimeline(&memStore{listErr: down}, newTestRenderer(nil), 10, 50)
	_, err := tl.ListEntries(context.Background(), subjectID, 1, 10, RenderOptions{})
	assert.ErrorIs(t, err, down)
}
