package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/college-admin/backend/internal/auditlog"
	"github.com/college-admin/backend/internal/config"
	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
)

// Action kinds written by this service. Collection kinds come from the
// declared auditlog entity kinds.
const (
	ActionUpdateApplication       = "UPDATE_APPLICATION"
	ActionUpdateStatus            = "UPDATE_STATUS"
	ActionScheduleInterview       = "SCHEDULE_INTERVIEW"
	ActionUpdateInterview         = "UPDATE_INTERVIEW"
	ActionUpdateInterviewQuestion = "UPDATE_INTERVIEW_QUESTION"
	ActionUpdatePaymentPlan       = "UPDATE_PAYMENT_PLAN"
	ActionAddFile                 = "ADD_FILE"
	ActionDeleteFile              = "DELETE_FILE"
)

// currencyTolerance absorbs rounding noise from form inputs: a submitted
// amount this close to the stored one keeps the stored value.
const currencyTolerance = 0.005

// ApplicationStore is the persistence the service needs; implemented by
// repositories.ApplicationRepo.
type ApplicationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	UpdateProfile(ctx context.Context, a *models.Application) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ReplaceQualifications(ctx context.Context, id uuid.UUID, items []models.Qualification) error
	ReplacePendingQualifications(ctx context.Context, id uuid.UUID, items []models.PendingQualification) error
	ReplaceWorkExperience(ctx context.Context, id uuid.UUID, items []models.WorkExperience) error
	SaveInterview(ctx context.Context, id uuid.UUID, iv *models.Interview) error
	SavePaymentPlan(ctx context.Context, id uuid.UUID, p *models.PaymentPlan) error
	AddFile(ctx context.Context, applicationID uuid.UUID, f *models.ApplicationFile) error
	GetFile(ctx context.Context, applicationID, fileID uuid.UUID) (*models.ApplicationFile, error)
	DeleteFile(ctx context.Context, applicationID, fileID uuid.UUID) error
}

// ProfilePatch carries the scalar fields an admin may edit. Nil leaves a
// field as is; an empty string clears phone and notes.
type ProfilePatch struct {
	StudentName       *string
	Email             *string
	Phone             *string
	CourseCode        *string
	DateOfBirth       *time.Time
	HasPendingResults *bool
	Notes             *string
}

type ApplicationService struct {
	apps     ApplicationStore
	recorder *auditlog.Recorder
	timeline *auditlog.Timeline
	cfg      *config.Config
	log      *zap.Logger
}

func NewApplicationService(
	apps ApplicationStore,
	recorder *auditlog.Recorder,
	timeline *auditlog.Timeline,
	cfg *config.Config,
	log *zap.Logger,
) *ApplicationService {
	return &ApplicationService{
		apps:     apps,
		recorder: recorder,
		timeline: timeline,
		cfg:      cfg,
		log:      log,
	}
}

func (s *ApplicationService) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return s.apps.GetByID(ctx, id)
}

func (s *ApplicationService) UpdateApplication(ctx context.Context, actorID, id uuid.UUID, patch ProfilePatch) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldData := app.ProfileSnapshot()

	applyPatch(app, patch)
	if strings.TrimSpace(app.StudentName) == "" || strings.TrimSpace(app.Email) == "" {
		return nil, fmt.Errorf("%w: student name and email are required", ErrInvalidInput)
	}

	if err := s.primary(ctx, s.cfg.PrimaryWriteTimeout, func(ctx context.Context) error {
		return s.apps.UpdateProfile(ctx, app)
	}); err != nil {
		return nil, err
	}

	n, err := s.recorder.RecordFlatDiff(auditCtx(ctx), actorID, id, oldData, app.ProfileSnapshot(), ActionUpdateApplication, "")
	s.auditFailed(err, id, ActionUpdateApplication)
	s.log.Info("application updated", zap.String("application_id", id.String()), zap.Int("changes_logged", n))
	return app, nil
}

func (s *ApplicationService) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, status string) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.IsValidTransition(app.Status, status) {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, app.Status, status)
	}

	oldStatus := app.Status
	if err := s.primary(ctx, s.cfg.PrimaryWriteTimeout, func(ctx context.Context) error {
		return s.apps.UpdateStatus(ctx, id, status)
	}); err != nil {
		return nil, err
	}
	app.Status = status

	err = s.recorder.RecordChange(auditCtx(ctx), actorID, id, ActionUpdateStatus, auditlog.Change{
		Field:    "status",
		Previous: oldStatus,
		New:      status,
	})
	s.auditFailed(err, id, ActionUpdateStatus)
	return app, nil
}

func (s *ApplicationService) UpdateQualifications(ctx context.Context, actorID, id uuid.UUID, items []models.Qualification) (auditlog.CollectionCounts, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return auditlog.CollectionCounts{}, err
	}
	stored, oldItems, newItems, err := prepareCollection(app.Qualifications, items)
	if err != nil {
		return auditlog.CollectionCounts{}, err
	}
	return s.replaceCollection(ctx, actorID, id, auditlog.QualificationKind, oldItems, newItems, func(ctx context.Context) error {
		return s.apps.ReplaceQualifications(ctx, id, stored)
	})
}

func (s *ApplicationService) UpdatePendingQualifications(ctx context.Context, actorID, id uuid.UUID, items []models.PendingQualification) (auditlog.CollectionCounts, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return auditlog.CollectionCounts{}, err
	}
	stored, oldItems, newItems, err := prepareCollection(app.PendingQualifications, items)
	if err != nil {
		return auditlog.CollectionCounts{}, err
	}
	return s.replaceCollection(ctx, actorID, id, auditlog.PendingQualificationKind, oldItems, newItems, func(ctx context.Context) error {
		return s.apps.ReplacePendingQualifications(ctx, id, stored)
	})
}

func (s *ApplicationService) UpdateWorkExperience(ctx context.Context, actorID, id uuid.UUID, items []models.WorkExperience) (auditlog.CollectionCounts, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return auditlog.CollectionCounts{}, err
	}
	stored, oldItems, newItems, err := prepareCollection(app.WorkExperience, items)
	if err != nil {
		return auditlog.CollectionCounts{}, err
	}
	return s.replaceCollection(ctx, actorID, id, auditlog.WorkExperienceKind, oldItems, newItems, func(ctx context.Context) error {
		return s.apps.ReplaceWorkExperience(ctx, id, stored)
	})
}

func (s *ApplicationService) replaceCollection(
	ctx context.Context,
	actorID, id uuid.UUID,
	kind auditlog.EntityKind,
	oldItems, newItems []auditlog.Item,
	write func(ctx context.Context) error,
) (auditlog.CollectionCounts, error) {
	if err := s.primary(ctx, s.cfg.BulkWriteTimeout, write); err != nil {
		return auditlog.CollectionCounts{}, err
	}

	counts, err := s.recorder.RecordCollectionDiff(auditCtx(ctx), actorID, id, oldItems, newItems, kind)
	s.auditFailed(err, id, kind.UpdateAction())
	s.log.Info("collection replaced",
		zap.String("application_id", id.String()),
		zap.String("kind", kind.Name),
		zap.Int("added", counts.Added),
		zap.Int("modified", counts.Modified),
		zap.Int("removed", counts.Removed),
		zap.Int("logged", counts.Logged),
	)
	return counts, nil
}

// ScheduleInterview stores the interview slot. Question answers already on
// file are kept.
func (s *ApplicationService) ScheduleInterview(ctx context.Context, actorID, id uuid.UUID, iv models.Interview) (*models.Interview, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv.ScheduledAt == nil {
		return nil, fmt.Errorf("%w: interview date is required", ErrInvalidInput)
	}

	oldData := app.Interview.Snapshot()
	if app.Interview != nil && iv.Questions == nil {
		iv.Questions = app.Interview.Questions
	}

	if err := s.primary(ctx, s.cfg.PrimaryWriteTimeout, func(ctx context.Context) error {
		return s.apps.SaveInterview(ctx, id, &iv)
	}); err != nil {
		return nil, err
	}

	actx := auditCtx(ctx)
	err = s.recorder.RecordChange(actx, actorID, id, ActionScheduleInterview, auditlog.Change{Field: "interview"})
	if s.auditFailed(err, id, ActionScheduleInterview) {
		return &iv, nil
	}
	_, err = s.recorder.RecordFlatDiff(actx, actorID, id, oldData, iv.Snapshot(), ActionUpdateInterview, "interview")
	s.auditFailed(err, id, ActionUpdateInterview)
	return &iv, nil
}

// UpdateInterviewQuestions merges answers into the stored ones; keys not
// submitted are left untouched.
func (s *ApplicationService) UpdateInterviewQuestions(ctx context.Context, actorID, id uuid.UUID, answers map[string]string) (*models.Interview, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	iv := models.Interview{}
	if app.Interview != nil {
		iv = *app.Interview
	}
	oldData := make(map[string]any, len(iv.Questions))
	merged := make(map[string]string, len(iv.Questions)+len(answers))
	for k, v := range iv.Questions {
		oldData[k] = v
		merged[k] = v
	}
	newData := make(map[string]any, len(merged))
	for k, v := range answers {
		merged[k] = v
	}
	for k, v := range merged {
		newData[k] = v
	}
	iv.Questions = merged

	if err := s.primary(ctx, s.cfg.PrimaryWriteTimeout, func(ctx context.Context) error {
		return s.apps.SaveInterview(ctx, id, &iv)
	}); err != nil {
		return nil, err
	}

	_, err = s.recorder.RecordFlatDiff(auditCtx(ctx), actorID, id, oldData, newData, ActionUpdateInterviewQuestion, "interview.question")
	s.auditFailed(err, id, ActionUpdateInterviewQuestion)
	return &iv, nil
}

func (s *ApplicationService) UpdatePaymentPlan(ctx context.Context, actorID, id uuid.UUID, plan models.PaymentPlan) (*models.PaymentPlan, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Deposit > plan.TotalFee || plan.PaidToDate > plan.TotalFee {
		return nil, fmt.Errorf("%w: deposit and paid to date cannot exceed the total fee", ErrInvalidInput)
	}

	oldData := app.PaymentPlan.Snapshot()
	if prev := app.PaymentPlan; prev != nil {
		plan.TotalFee = keepWithinTolerance(prev.TotalFee, plan.TotalFee)
		plan.Deposit = keepWithinTolerance(prev.Deposit, plan.Deposit)
		plan.PaidToDate = keepWithinTolerance(prev.PaidToDate, plan.PaidToDate)
	}

	if err := s.primary(ctx, s.cfg.PrimaryWriteTimeout, func(ctx context.Context) error {
		return s.apps.SavePaymentPlan(ctx, id, &plan)
	}); err != nil {
		return nil, err
	}

	_, err = s.recorder.RecordFlatDiff(auditCtx(ctx), actorID, id, oldData, plan.Snapshot(), ActionUpdatePaymentPlan, "payment_plan")
	s.auditFailed(err, id, ActionUpdatePaymentPlan)
	return &plan, nil
}

// AddFile records metadata for a file already placed in storage.
func (s *ApplicationService) AddFile(ctx context.Context, actorID, id uuid.UUID, name, url string) (*models.ApplicationFile, error) {
	if _, err := s.apps.GetByID(ctx, id); err != nil {
		return nil, err
	}

	f := &models.ApplicationFile{Name: name, URL: url}
	if err := s.primary(ctx, s.cfg.PrimaryWriteTimeout, func(ctx context.Context) error {
		return s.apps.AddFile(ctx, id, f)
	}); err != nil {
		return nil, err
	}

	err := s.recorder.RecordChange(auditCtx(ctx), actorID, id, ActionAddFile, auditlog.Change{
		Field: "file." + name,
		New:   name,
	})
	s.auditFailed(err, id, ActionAddFile)
	return f, nil
}

func (s *ApplicationService) DeleteFile(ctx context.Context, actorID, id, fileID uuid.UUID) error {
	f, err := s.apps.GetFile(ctx, id, fileID)
	if err != nil {
		return err
	}

	if err := s.primary(ctx, s.cfg.PrimaryWriteTimeout, func(ctx context.Context) error {
		return s.apps.DeleteFile(ctx, id, fileID)
	}); err != nil {
		return err
	}

	err = s.recorder.RecordChange(auditCtx(ctx), actorID, id, ActionDeleteFile, auditlog.Change{
		Field:    "file." + f.Name,
		Previous: f.Name,
	})
	s.auditFailed(err, id, ActionDeleteFile)
	return nil
}

// Timeline is the rendered, paginated activity of one application.
func (s *ApplicationService) Timeline(ctx context.Context, id uuid.UUID, page, pageSize int, full bool) (*auditlog.Page, error) {
	if _, err := s.apps.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.timeline.ListEntries(ctx, id, page, pageSize, auditlog.RenderOptions{Full: full})
}

// primary runs the business write under its own deadline. The audit writes
// that follow use the caller's context instead.
func (s *ApplicationService) primary(ctx context.Context, budget time.Duration, write func(ctx context.Context) error) error {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	return write(ctx)
}

// auditFailed logs a failed activity write and reports whether one
// happened. The primary write has already committed at this point.
func (s *ApplicationService) auditFailed(err error, subjectID uuid.UUID, action string) bool {
	if err == nil {
		return false
	}
	s.log.Warn("activity log write failed",
		zap.String("application_id", subjectID.String()),
		zap.String("action", action),
		zap.Error(err),
	)
	return true
}

// auditCtx detaches activity writes from request cancellation so a client
// disconnect after the primary commit does not lose the entries.
func auditCtx(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func applyPatch(a *models.Application, p ProfilePatch) {
	if p.StudentName != nil {
		a.StudentName = strings.TrimSpace(*p.StudentName)
	}
	if p.Email != nil {
		a.Email = strings.TrimSpace(*p.Email)
	}
	if p.Phone != nil {
		a.Phone = optionalString(*p.Phone)
	}
	if p.CourseCode != nil {
		a.CourseCode = strings.TrimSpace(*p.CourseCode)
	}
	if p.DateOfBirth != nil {
		a.DateOfBirth = p.DateOfBirth
	}
	if p.HasPendingResults != nil {
		a.HasPendingResults = *p.HasPendingResults
	}
	if p.Notes != nil {
		a.Notes = optionalString(*p.Notes)
	}
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func keepWithinTolerance(stored, submitted float64) float64 {
	if math.Abs(stored-submitted) < currencyTolerance {
		return stored
	}
	return submitted
}

type collectionItem[T any] interface {
	Snapshot() map[string]any
	EnsureID() T
}

// prepareCollection returns the items to store (every one with an id) and
// the old and new snapshots to diff. New snapshots come from the submitted
// items, so ones created in this submission stay id-less and diff as
// additions. A submission that names the same id twice is rejected.
func prepareCollection[T collectionItem[T]](current, submitted []T) (stored []T, oldItems, newItems []auditlog.Item, err error) {
	stored = make([]T, len(submitted))
	newItems = make([]auditlog.Item, len(submitted))
	seen := make(map[any]struct{}, len(submitted))
	for i, it := range submitted {
		snap := it.Snapshot()
		if id, ok := snap["id"]; ok {
			if _, dup := seen[id]; dup {
				return nil, nil, nil, fmt.Errorf("%w: duplicate item id %v", ErrInvalidInput, id)
			}
			seen[id] = struct{}{}
		}
		stored[i] = it.EnsureID()
		newItems[i] = snap
	}
	oldItems = make([]auditlog.Item, len(current))
	for i, it := range current {
		oldItems[i] = it.Snapshot()
	}
	return stored, oldItems, newItems, nil
}
