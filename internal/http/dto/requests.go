package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
)

// Date accepts "2006-01-02" or RFC 3339 in request bodies.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

type UpdateApplicationRequest struct {
	StudentName       *string `json:"student_name" validate:"omitempty,min=1,max=200"`
	Email             *string `json:"email" validate:"omitempty,email"`
	Phone             *string `json:"phone" validate:"omitempty,max=32"`
	CourseCode        *string `json:"course_code" validate:"omitempty,max=32"`
	DateOfBirth       *Date   `json:"date_of_birth"`
	HasPendingResults *bool   `json:"has_pending_results"`
	Notes             *string `json:"notes" validate:"omitempty,max=5000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=submitted under_review interview_scheduled offered conditional_offer rejected enrolled withdrawn"`
}

type QualificationInput struct {
	ID             *uuid.UUID `json:"id"`
	Title          string     `json:"title" validate:"required,max=200"`
	ExaminingBody  string     `json:"examining_body" validate:"max=200"`
	Grade          string     `json:"grade" validate:"max=50"`
	Level          string     `json:"level" validate:"max=50"`
	DateAwarded    *Date      `json:"date_awarded"`
	CertificateURL *string    `json:"certificate_url" validate:"omitempty,url"`
}

type UpdateQualificationsRequest struct {
	Items []QualificationInput `json:"items" validate:"max=50,dive"`
}

func (r UpdateQualificationsRequest) ToModels() []models.Qualification {
	out := make([]models.Qualification, len(r.Items))
	for i, in := range r.Items {
		out[i] = models.Qualification{
			ID:             in.ID,
			Title:          in.Title,
			ExaminingBody:  in.ExaminingBody,
			Grade:          in.Grade,
			Level:          in.Level,
			DateAwarded:    in.DateAwarded.Ptr(),
			CertificateURL: in.CertificateURL,
		}
	}
	return out
}

type PendingQualificationInput struct {
	ID            *uuid.UUID `json:"id"`
	Title         string     `json:"title" validate:"required,max=200"`
	ExaminingBody string     `json:"examining_body" validate:"max=200"`
	ExpectedGrade string     `json:"expected_grade" validate:"max=50"`
	DateOfResults *Date      `json:"date_of_results"`
	Subjects      *string    `json:"subjects" validate:"omitempty,max=1000"`
}

type UpdatePendingQualificationsRequest struct {
	Items []PendingQualificationInput `json:"items" validate:"max=50,dive"`
}

func (r UpdatePendingQualificationsRequest) ToModels() []models.PendingQualification {
	out := make([]models.PendingQualification, len(r.Items))
	for i, in := range r.Items {
		out[i] = models.PendingQualification{
			ID:            in.ID,
			Title:         in.Title,
			ExaminingBody: in.ExaminingBody,
			ExpectedGrade: in.ExpectedGrade,
			DateOfResults: in.DateOfResults.Ptr(),
			Subjects:      in.Subjects,
		}
	}
	return out
}

type WorkExperienceInput struct {
	ID               *uuid.UUID `json:"id"`
	Employer         string     `json:"employer" validate:"required,max=200"`
	JobTitle         string     `json:"job_title" validate:"max=200"`
	Responsibilities *string    `json:"responsibilities" validate:"omitempty,max=5000"`
	StartDate        *Date      `json:"start_date"`
	EndDate          *Date      `json:"end_date"`
	ReferenceURL     *string    `json:"reference_url" validate:"omitempty,url"`
}

type UpdateWorkExperienceRequest struct {
	Items []WorkExperienceInput `json:"items" validate:"max=50,dive"`
}

func (r UpdateWorkExperienceRequest) ToModels() []models.WorkExperience {
	out := make([]models.WorkExperience, len(r.Items))
	for i, in := range r.Items {
		out[i] = models.WorkExperience{
			ID:               in.ID,
			Employer:         in.Employer,
			JobTitle:         in.JobTitle,
			Responsibilities: in.Responsibilities,
			StartDate:        in.StartDate.Ptr(),
			EndDate:          in.EndDate.Ptr(),
			ReferenceURL:     in.ReferenceURL,
		}
	}
	return out
}

type ScheduleInterviewRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Location    string    `json:"location" validate:"required,max=200"`
	Interviewer string    `json:"interviewer" validate:"required,max=200"`
	Outcome     *string   `json:"outcome" validate:"omitempty,max=1000"`
}

func (r ScheduleInterviewRequest) ToModel() models.Interview {
	at := r.ScheduledAt
	return models.Interview{
		ScheduledAt: &at,
		Location:    r.Location,
		Interviewer: r.Interviewer,
		Outcome:     r.Outcome,
	}
}

type InterviewQuestionsRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1,max=50,dive,keys,required,max=64,endkeys,max=5000"`
}

type PaymentPlanRequest struct {
	PlanType         string  `json:"plan_type" validate:"required,oneof=full instalments sponsored"`
	TotalFee         float64 `json:"total_fee" validate:"gte=0"`
	Deposit          float64 `json:"deposit" validate:"gte=0,ltefield=TotalFee"`
	Instalments      int     `json:"instalments" validate:"gte=0,lte=24"`
	FirstPaymentDate *Date   `json:"first_payment_date"`
	PaidToDate       float64 `json:"paid_to_date" validate:"gte=0,ltefield=TotalFee"`
}

func (r PaymentPlanRequest) ToModel() models.PaymentPlan {
	return models.PaymentPlan{
		PlanType:         r.PlanType,
		TotalFee:         r.TotalFee,
		Deposit:          r.Deposit,
		Instalments:      r.Instalments,
		FirstPaymentDate: r.FirstPaymentDate.Ptr(),
		PaidToDate:       r.PaidToDate,
	}
}

type AddFileRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url"`
}
