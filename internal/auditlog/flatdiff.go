package auditlog

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// FlatDiff lists the keys of newData whose value differs from oldData's,
// or that oldData lacks. Keys present only in oldData are not visited.
// Values are compared exactly on their stored form, so a moved time of day
// is a change. Changes come back sorted by key.
func (n *Normalizer) FlatDiff(oldData, newData map[string]any) []Change {
	keys := make([]string, 0, len(newData))
	for k := range newData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var changes []Change
	for _, k := range keys {
		prev, existed := oldData[k]
		next := newData[k]
		if existed && n.StoredEqual(prev, next) {
			continue
		}
		changes = append(changes, Change{Field: k, Previous: prev, New: next})
	}
	return changes
}

// RecordFlatDiff writes one entry per changed key, sequentially, and
// returns how many were stored. Fields are prefixed with fieldPrefix when
// it is non-empty ("interview.question" + "." + key).
//
// Authorization is checked once up front; ErrUnauthorized or an actor
// lookup failure aborts before anything is written. Individual storage
// failures are logged and skipped.
func (r *Recorder) RecordFlatDiff(ctx context.Context, actorID, subjectID uuid.UUID, oldData, newData map[string]any, actionKind, fieldPrefix string) (int, error) {
	changes := r.norm.FlatDiff(oldData, newData)
	if len(changes) == 0 {
		return 0, nil
	}
	if err := r.authorize(ctx, actorID); err != nil {
		return 0, err
	}

	logged := 0
	for _, ch := range changes {
		if fieldPrefix != "" {
			ch.Field = fieldPrefix + "." + ch.Field
		}
		if _, err := r.write(ctx, actorID, subjectID, actionKind, ch); err != nil {
			r.logSkipped(subjectID, actionKind, ch.Field, err)
			continue
		}
		logged++
	}
	return logged, nil
}
