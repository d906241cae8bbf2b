package models

import (
	"time"

	"github.com/google/uuid"
)

// Application statuses
const (
	ApplicationStatusSubmitted          = "submitted"
	ApplicationStatusUnderReview        = "under_review"
	ApplicationStatusInterviewScheduled = "interview_scheduled"
	ApplicationStatusOffered            = "offered"
	ApplicationStatusConditionalOffer   = "conditional_offer"
	ApplicationStatusRejected           = "rejected"
	ApplicationStatusEnrolled           = "enrolled"
	ApplicationStatusWithdrawn          = "withdrawn"
)

// Valid state transitions: from -> []to
var ValidApplicationTransitions = map[string][]string{
	ApplicationStatusSubmitted:          {ApplicationStatusUnderReview, ApplicationStatusRejected, ApplicationStatusWithdrawn},
	ApplicationStatusUnderReview:        {ApplicationStatusInterviewScheduled, ApplicationStatusOffered, ApplicationStatusConditionalOffer, ApplicationStatusRejected, ApplicationStatusWithdrawn},
	ApplicationStatusInterviewScheduled: {ApplicationStatusOffered, ApplicationStatusConditionalOffer, ApplicationStatusRejected, ApplicationStatusWithdrawn},
	ApplicationStatusConditionalOffer:   {ApplicationStatusOffered, ApplicationStatusRejected, ApplicationStatusWithdrawn},
	ApplicationStatusOffered:            {ApplicationStatusEnrolled, ApplicationStatusWithdrawn},
	ApplicationStatusRejected:           {},
	ApplicationStatusEnrolled:           {ApplicationStatusWithdrawn},
	ApplicationStatusWithdrawn:          {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidApplicationTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type Application struct {
	ID                    uuid.UUID              `json:"id"`
	StudentName           string                 `json:"student_name"`
	Email                 string                 `json:"email"`
	Phone                 *string                `json:"phone,omitempty"`
	CourseCode            string                 `json:"course_code"`
	Status                string                 `json:"status"`
	DateOfBirth           *time.Time             `json:"date_of_birth,omitempty"`
	HasPendingResults     bool                   `json:"has_pending_results"`
	Notes                 *string                `json:"notes,omitempty"`
	Qualifications        []Qualification        `json:"qualifications"`
	PendingQualifications []PendingQualification `json:"pending_qualifications"`
	WorkExperience        []WorkExperience       `json:"work_experience"`
	Interview             *Interview             `json:"interview,omitempty"`
	PaymentPlan           *PaymentPlan           `json:"payment_plan,omitempty"`
	Files                 []ApplicationFile      `json:"files"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// ProfileSnapshot returns the scalar fields of the application keyed by
// their json names. Nil pointers become nil values.
func (a *Application) ProfileSnapshot() map[string]any {
	return map[string]any{
		"student_name":        a.StudentName,
		"email":               a.Email,
		"phone":               derefString(a.Phone),
		"course_code":         a.CourseCode,
		"date_of_birth":       derefTime(a.DateOfBirth),
		"has_pending_results": a.HasPendingResults,
		"notes":               derefString(a.Notes),
	}
}

type Qualification struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	Title          string     `json:"title"`
	ExaminingBody  string     `json:"examining_body"`
	Grade          string     `json:"grade"`
	Level          string     `json:"level"`
	DateAwarded    *time.Time `json:"date_awarded,omitempty"`
	CertificateURL *string    `json:"certificate_url,omitempty"`
}

func (q Qualification) Snapshot() map[string]any {
	m := map[string]any{
		"title":           q.Title,
		"examining_body":  q.ExaminingBody,
		"grade":           q.Grade,
		"level":           q.Level,
		"date_awarded":    derefTime(q.DateAwarded),
		"certificate_url": derefString(q.CertificateURL),
	}
	putID(m, q.ID)
	return m
}

type PendingQualification struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	Title         string     `json:"title"`
	ExaminingBody string     `json:"examining_body"`
	ExpectedGrade string     `json:"expected_grade"`
	DateOfResults *time.Time `json:"date_of_results,omitempty"`
	Subjects      *string    `json:"subjects,omitempty"`
}

func (q PendingQualification) Snapshot() map[string]any {
	m := map[string]any{
		"title":           q.Title,
		"examining_body":  q.ExaminingBody,
		"expected_grade":  q.ExpectedGrade,
		"date_of_results": derefTime(q.DateOfResults),
		"subjects":        derefString(q.Subjects),
	}
	putID(m, q.ID)
	return m
}

type WorkExperience struct {
	ID               *uuid.UUID `json:"id,omitempty"`
	Employer         string     `json:"employer"`
	JobTitle         string     `json:"job_title"`
	Responsibilities *string    `json:"responsibilities,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	ReferenceURL     *string    `json:"reference_url,omitempty"`
}

func (w WorkExperience) Snapshot() map[string]any {
	m := map[string]any{
		"employer":         w.Employer,
		"job_title":        w.JobTitle,
		"responsibilities": derefString(w.Responsibilities),
		"start_date":       derefTime(w.StartDate),
		"end_date":         derefTime(w.EndDate),
		"reference_url":    derefString(w.ReferenceURL),
	}
	putID(m, w.ID)
	return m
}

type Interview struct {
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
	Location    string            `json:"location"`
	Interviewer string            `json:"interviewer"`
	Questions   map[string]string `json:"questions,omitempty"`
	Outcome     *string           `json:"outcome,omitempty"`
}

// Snapshot covers the scheduling fields; question answers are diffed
// separately.
func (i *Interview) Snapshot() map[string]any {
	if i == nil {
		return map[string]any{}
	}
	return map[string]any{
		"scheduled_at": derefTime(i.ScheduledAt),
		"location":     i.Location,
		"interviewer":  i.Interviewer,
		"outcome":      derefString(i.Outcome),
	}
}

type PaymentPlan struct {
	PlanType         string     `json:"plan_type"` // full / instalments / sponsored
	TotalFee         float64    `json:"total_fee"`
	Deposit          float64    `json:"deposit"`
	Instalments      int        `json:"instalments"`
	FirstPaymentDate *time.Time `json:"first_payment_date,omitempty"`
	PaidToDate       float64    `json:"paid_to_date"`
}

func (p *PaymentPlan) Snapshot() map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return map[string]any{
		"plan_type":          p.PlanType,
		"total_fee":          p.TotalFee,
		"deposit":            p.Deposit,
		"instalments":        p.Instalments,
		"first_payment_date": derefTime(p.FirstPaymentDate),
		"paid_to_date":       p.PaidToDate,
	}
}

type ApplicationFile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// EnsureID methods give items created in this submission a fresh id for
// storage. The receiver is a copy; callers keep the id-less original for
// diffing.

func (q Qualification) EnsureID() Qualification {
	q.ID = ensureID(q.ID)
	return q
}

func (q PendingQualification) EnsureID() PendingQualification {
	q.ID = ensureID(q.ID)
	return q
}

func (w WorkExperience) EnsureID() WorkExperience {
	w.ID = ensureID(w.ID)
	return w
}

func ensureID(id *uuid.UUID) *uuid.UUID {
	if id != nil && *id != uuid.Nil {
		return id
	}
	fresh := uuid.New()
	return &fresh
}

func putID(m map[string]any, id *uuid.UUID) {
	if id != nil && *id != uuid.Nil {
		m["id"] = id.String()
	}
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
