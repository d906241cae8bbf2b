package auditlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/college-admin/backend/internal/events"
	"github.com/college-admin/backend/internal/metrics"
	"github.com/college-admin/backend/internal/models"
	"github.com/college-admin/backend/internal/rbac"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized: the actor does not exist or may not write entries.
	// Nothing was stored.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPersist wraps a storage failure while writing an entry.
	ErrPersist = errors.New("audit: persist entry")
	// ErrActorLookup wraps a failure resolving the actor other than
	// not-found.
	ErrActorLookup = errors.New("audit: resolve actor")
)

// UserLookup resolves actors. A missing user must be reported as
// models.ErrNotFound.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Store is the append-only entry log. ListBySubject returns entries newest
// first, skipping offset and returning at most limit.
type Store interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	CountBySubject(ctx context.Context, subjectID uuid.UUID) (int, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]models.AuditEntry, error)
}

// Change is one field-level delta before normalization.
type Change struct {
	Field    string
	Previous any
	New      any
}

// Recorder authorizes, normalizes and persists activity-log entries.
type Recorder struct {
	users     UserLookup
	store     Store
	norm      *Normalizer
	publisher events.Publisher
	metrics   *metrics.Audit
	now       func() time.Time
	log       *zap.Logger
}

type RecorderOption func(*Recorder)

// WithPublisher announces each written entry on events.StreamAudit.
func WithPublisher(p events.Publisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

func WithMetrics(m *metrics.Audit) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithClock overrides the timestamp source for createdAt.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(users UserLookup, store Store, norm *Normalizer, log *zap.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		users: users,
		store: store,
		norm:  norm,
		now:   time.Now,
		log:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordChange writes one entry for a single field delta.
func (r *Recorder) RecordChange(ctx context.Context, actorID, subjectID uuid.UUID, actionKind string, ch Change) error {
	if err := r.authorize(ctx, actorID); err != nil {
		return err
	}
	_, err := r.write(ctx, actorID, subjectID, actionKind, ch)
	return err
}

// authorize is the only access check in the package; callers are not
// trusted to have done it.
func (r *Recorder) authorize(ctx context.Context, actorID uuid.UUID) error {
	user, err := r.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			r.metrics.Failed("unauthorized")
			return ErrUnauthorized
		}
		r.metrics.Failed("actor_lookup")
		return fmt.Errorf("%w: %w", ErrActorLookup, err)
	}
	if user == nil || !rbac.HasPermission(user.Role, rbac.PermRecordAudit) {
		r.metrics.Failed("unauthorized")
		return ErrUnauthorized
	}
	return nil
}

func (r *Recorder) write(ctx context.Context, actorID, subjectID uuid.UUID, actionKind string, ch Change) (*models.AuditEntry, error) {
	details, err := EncodeDetails(Details{
		Field:         ch.Field,
		PreviousValue: r.norm.Store(ch.Previous),
		NewValue:      r.norm.Store(ch.New),
	})
	if err != nil {
		r.metrics.Failed("encode")
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	entry := &models.AuditEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		SubjectID:  subjectID,
		ActionKind: actionKind,
		Details:    details,
		CreatedAt:  r.now().UTC(),
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		r.metrics.Failed("persist")
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	r.metrics.Written(actionKind)

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, events.StreamAudit, events.AuditEntryEvent(*entry)); err != nil {
			r.log.Warn("audit event publish failed",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err),
			)
		}
	}
	return entry, nil
}

// logSkipped records a best-effort write that did not happen.
func (r *Recorder) logSkipped(subjectID uuid.UUID, actionKind, field string, err error) {
	r.log.Warn("audit entry not recorded",
		zap.String("subject_id", subjectID.String()),
		zap.String("action", actionKind),
		zap.String("field", field),
		zap.Error(err),
	)
}
