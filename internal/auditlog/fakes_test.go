package auditlog

import (
	"context"
	"errors"
	"sync"

	"github.com/college-admin/backend/internal/events"
	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memUsers map[uuid.UUID]*models.User

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

type memStore struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	failOn  map[string]bool // action kinds whose insert fails
	listErr error

	// last page requested through ListBySubject
	lastLimit, lastOffset int
	listCalls             int
}

var errStoreDown = errors.New("store unavailable")

func (s *memStore) Insert(_ context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[e.ActionKind] || s.failOn["*"] {
		return errStoreDown
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *memStore) CountBySubject(_ context.Context, subjectID uuid.UUID) (int, error) {
	if s.listErr != nil {
		return 0, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySubject(subjectID)), nil
}

func (s *memStore) ListBySubject(_ context.Context, subjectID uuid.UUID, limit, offset int) ([]models.AuditEntry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	s.lastLimit, s.lastOffset = limit, offset
	return pageOf(newestFirst(s.bySubject(subjectID)), limit, offset), nil
}

func (s *memStore) bySubject(subjectID uuid.UUID) []models.AuditEntry {
	var out []models.AuditEntry
	for _, e := range s.entries {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out
}

func pageOf(entries []models.AuditEntry, limit, offset int) []models.AuditEntry {
	if offset >= len(entries) {
		return nil
	}
	return entries[offset:min(offset+limit, len(entries))]
}

type capturePublisher struct {
	events []events.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

var (
	adminID   = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	staffID   = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	studentID = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	subjectID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
)

func testUsers() memUsers {
	return memUsers{
		adminID:   {ID: adminID, Role: models.RoleAdmin},
		staffID:   {ID: staffID, Role: models.RoleStaff},
		studentID: {ID: studentID, Role: models.RoleStudent},
	}
}

func newTestRecorder(store *memStore, opts ...RecorderOption) *Recorder {
	return NewRecorder(testUsers(), store, NewNormalizer(nil), zap.NewNop(), opts...)
}

func decoded(e models.AuditEntry) Details {
	d, err := DecodeDetails(e.Details)
	if err != nil {
		panic(err)
	}
	return d
}

func zapNop() *zap.Logger { return zap.NewNop() }
