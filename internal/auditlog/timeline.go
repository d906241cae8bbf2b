package auditlog

import (
	"context"
	"fmt"

	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
)

type Page struct {
	Items      []TimelineItem `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// Timeline is the read side: stored rows for a subject, rendered and
// paged. It holds no cursor state; every call re-reads the store.
type Timeline struct {
	store       Store
	renderer    *Renderer
	defaultSize int
	maxSize     int
}

func NewTimeline(store Store, renderer *Renderer, defaultSize, maxSize int) *Timeline {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	return &Timeline{store: store, renderer: renderer, defaultSize: defaultSize, maxSize: maxSize}
}

// ListEntries returns page (1-based) of the subject's timeline, newest
// first. Out-of-range cursors are clamped; a page past the end is empty.
// Only the requested page is read from the store.
func (t *Timeline) ListEntries(ctx context.Context, subjectID uuid.UUID, page, pageSize int, opts RenderOptions) (*Page, error) {
	total, err := t.store.CountBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("count activity for %s: %w", subjectID, err)
	}

	pageSize = t.clampSize(pageSize)
	if page < 1 {
		page = 1
	}

	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}

	var entries []models.AuditEntry
	if start < total {
		entries, err = t.store.ListBySubject(ctx, subjectID, pageSize, start)
		if err != nil {
			return nil, fmt.Errorf("load activity for %s: %w", subjectID, err)
		}
	}

	// Rows sharing a timestamp may come back in any order within the page.
	items := make([]TimelineItem, 0, len(entries))
	for _, e := range newestFirst(entries) {
		items = append(items, t.renderer.RenderEntry(e, opts))
	}

	return &Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func (t *Timeline) clampSize(n int) int {
	switch {
	case n <= 0:
		return t.defaultSize
	case n > t.maxSize:
		return t.maxSize
	default:
		return n
	}
}
