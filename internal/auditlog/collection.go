package auditlog

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Item is one member of a sub-entity collection, keyed by json field name.
type Item = map[string]any

// EntityKind declares how a repeated sub-entity is diffed and logged.
type EntityKind struct {
	// Name forms the action kinds: ADD_<Name>, UPDATE_<Name>, DELETE_<Name>.
	Name string
	// FieldPrefix and LabelField form the entry field: "<prefix>.<label>".
	FieldPrefix string
	LabelField  string
	IDField     string
	// SignificantFields decide whether a common item changed. Attachment
	// URLs stay out so a replaced file is logged only by its file event.
	SignificantFields []string
	// LogFields is the projection stored as the entry value.
	LogFields []string
}

func (k EntityKind) AddAction() string    { return "ADD_" + k.Name }
func (k EntityKind) UpdateAction() string { return "UPDATE_" + k.Name }
func (k EntityKind) DeleteAction() string { return "DELETE_" + k.Name }

var (
	QualificationKind = EntityKind{
		Name:              "QUALIFICATION",
		FieldPrefix:       "qualification",
		LabelField:        "title",
		IDField:           "id",
		SignificantFields: []string{"title", "examining_body", "grade", "level", "date_awarded"},
		LogFields:         []string{"title", "examining_body", "grade", "level", "date_awarded"},
	}
	PendingQualificationKind = EntityKind{
		Name:              "PENDING_QUALIFICATION",
		FieldPrefix:       "pending_qualification",
		LabelField:        "title",
		IDField:           "id",
		SignificantFields: []string{"title", "examining_body", "expected_grade", "date_of_results", "subjects"},
		LogFields:         []string{"title", "examining_body", "expected_grade", "date_of_results", "subjects"},
	}
	WorkExperienceKind = EntityKind{
		Name:              "WORK_EXPERIENCE",
		FieldPrefix:       "work_experience",
		LabelField:        "employer",
		IDField:           "id",
		SignificantFields: []string{"employer", "job_title", "responsibilities", "start_date", "end_date"},
		LogFields:         []string{"employer", "job_title", "responsibilities", "start_date", "end_date"},
	}
)

// ModifiedItem pairs the old and new snapshot of a changed common item.
type ModifiedItem struct {
	Old Item
	New Item
}

// CollectionDiff classifies every item of both snapshots. Old items land
// in Removed or are matched as Modified/Unchanged; new items land in Added
// or are matched. Order within each class follows the input order.
type CollectionDiff struct {
	Added     []Item
	Modified  []ModifiedItem
	Removed   []Item
	Unchanged []ModifiedItem
}

// CollectionCounts is the outcome of RecordCollectionDiff: classified
// items, and how many entries actually reached storage.
type CollectionCounts struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
	Logged   int `json:"logged"`
}

// DiffCollection matches old and new items by identifier. New items
// without an identifier were created in this submission and are always
// added. If an identifier repeats, its first occurrence is matched and the
// repeats are classified on their own: added on the new side, removed on
// the old side. Every input item lands in exactly one class.
func (n *Normalizer) DiffCollection(kind EntityKind, oldItems, newItems []Item) CollectionDiff {
	var diff CollectionDiff

	oldByID := make(map[string]Item, len(oldItems))
	var oldOrder []string
	for _, it := range oldItems {
		id, ok := itemID(it, kind.IDField)
		if !ok {
			// Stored items always carry an id; one without cannot be matched.
			diff.Removed = append(diff.Removed, it)
			continue
		}
		if _, seen := oldByID[id]; seen {
			diff.Removed = append(diff.Removed, it)
			continue
		}
		oldOrder = append(oldOrder, id)
		oldByID[id] = it
	}

	newByID := make(map[string]Item, len(newItems))
	var newOrder []string
	for _, it := range newItems {
		id, ok := itemID(it, kind.IDField)
		if !ok {
			diff.Added = append(diff.Added, it)
			continue
		}
		if _, seen := newByID[id]; seen {
			diff.Added = append(diff.Added, it)
			continue
		}
		newOrder = append(newOrder, id)
		newByID[id] = it
	}

	for _, id := range newOrder {
		next := newByID[id]
		prev, common := oldByID[id]
		if !common {
			diff.Added = append(diff.Added, next)
			continue
		}
		pair := ModifiedItem{Old: prev, New: next}
		if n.significantChange(kind, prev, next) {
			diff.Modified = append(diff.Modified, pair)
		} else {
			diff.Unchanged = append(diff.Unchanged, pair)
		}
	}

	for _, id := range oldOrder {
		if _, kept := newByID[id]; !kept {
			diff.Removed = append(diff.Removed, oldByID[id])
		}
	}
	return diff
}

func (n *Normalizer) significantChange(kind EntityKind, prev, next Item) bool {
	for _, f := range kind.SignificantFields {
		if !n.Equal(prev[f], next[f]) {
			return true
		}
	}
	return false
}

// Clean projects an item to the kind's log fields with dates formatted for
// display. Absent fields are stored as null.
func (n *Normalizer) Clean(kind EntityKind, it Item) Item {
	out := make(Item, len(kind.LogFields))
	for _, f := range kind.LogFields {
		out[f] = it[f]
	}
	v := n.Store(out)
	if v.Kind == KindStructured {
		return v.Fields
	}
	return out
}

// RecordCollectionDiff classifies the collection and writes one entry per
// added, modified and removed item, in that order. Unchanged items produce
// nothing. As with RecordFlatDiff, authorization failures abort before any
// write and storage failures are logged and skipped.
func (r *Recorder) RecordCollectionDiff(ctx context.Context, actorID, subjectID uuid.UUID, oldItems, newItems []Item, kind EntityKind) (CollectionCounts, error) {
	diff := r.norm.DiffCollection(kind, oldItems, newItems)
	counts := CollectionCounts{
		Added:    len(diff.Added),
		Modified: len(diff.Modified),
		Removed:  len(diff.Removed),
	}
	if counts.Added+counts.Modified+counts.Removed == 0 {
		return counts, nil
	}
	if err := r.authorize(ctx, actorID); err != nil {
		return counts, err
	}

	emit := func(action string, label Item, ch Change) {
		ch.Field = kind.FieldPrefix + "." + itemLabel(label, kind.LabelField)
		if _, err := r.write(ctx, actorID, subjectID, action, ch); err != nil {
			r.logSkipped(subjectID, action, ch.Field, err)
			return
		}
		counts.Logged++
	}

	for _, it := range diff.Added {
		emit(kind.AddAction(), it, Change{New: r.norm.Clean(kind, it)})
	}
	for _, m := range diff.Modified {
		emit(kind.UpdateAction(), m.New, Change{
			Previous: r.norm.Clean(kind, m.Old),
			New:      r.norm.Clean(kind, m.New),
		})
	}
	for _, it := range diff.Removed {
		emit(kind.DeleteAction(), it, Change{Previous: r.norm.Clean(kind, it)})
	}
	return counts, nil
}

func itemID(it Item, field string) (string, bool) {
	switch id := it[field].(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case uuid.UUID:
		return id.String(), id != uuid.Nil
	case *uuid.UUID:
		if id == nil || *id == uuid.Nil {
			return "", false
		}
		return id.String(), true
	default:
		s := fmt.Sprint(id)
		return s, s != ""
	}
}

func itemLabel(it Item, field string) string {
	if s, ok := it[field].(string); ok && s != "" {
		return s
	}
	if id, ok := itemID(it, "id"); ok {
		return id
	}
	return "untitled"
}

// sortedKeys is shared by the renderer for stable sub-field output.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
