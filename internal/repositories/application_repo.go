package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

// GetByID loads the application with its embedded collections and files.
func (r *ApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var (
		a                                  models.Application
		qualBytes, pendingBytes, workBytes []byte
		interviewBytes, planBytes          []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, student_name, email, phone, course_code, status, date_of_birth,
		       has_pending_results, notes, qualifications, pending_qualifications,
		       work_experience, interview, payment_plan, created_at, updated_at
		FROM applications WHERE id = $1
	`, id).Scan(&a.ID, &a.StudentName, &a.Email, &a.Phone, &a.CourseCode, &a.Status, &a.DateOfBirth,
		&a.HasPendingResults, &a.Notes, &qualBytes, &pendingBytes,
		&workBytes, &interviewBytes, &planBytes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"qualifications", qualBytes, &a.Qualifications},
		{"pending_qualifications", pendingBytes, &a.PendingQualifications},
		{"work_experience", workBytes, &a.WorkExperience},
		{"interview", interviewBytes, &a.Interview},
		{"payment_plan", planBytes, &a.PaymentPlan},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", col.name, err)
		}
	}

	files, err := r.ListFiles(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Files = files
	return &a, nil
}

func (r *ApplicationRepo) UpdateProfile(ctx context.Context, a *models.Application) error {
	return r.exec(ctx, `
		UPDATE applications SET student_name = $1, email = $2, phone = $3, course_code = $4,
		       date_of_birth = $5, has_pending_results = $6, notes = $7, updated_at = now()
		WHERE id = $8
	`, a.StudentName, a.Email, a.Phone, a.CourseCode, a.DateOfBirth, a.HasPendingResults, a.Notes, a.ID)
}

func (r *ApplicationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.exec(ctx, `UPDATE applications SET status = $1, updated_at = now() WHERE id = $2`, status, id)
}

func (r *ApplicationRepo) ReplaceQualifications(ctx context.Context, id uuid.UUID, items []models.Qualification) error {
	return r.setJSON(ctx, id, "qualifications", items)
}

func (r *ApplicationRepo) ReplacePendingQualifications(ctx context.Context, id uuid.UUID, items []models.PendingQualification) error {
	return r.setJSON(ctx, id, "pending_qualifications", items)
}

func (r *ApplicationRepo) ReplaceWorkExperience(ctx context.Context, id uuid.UUID, items []models.WorkExperience) error {
	return r.setJSON(ctx, id, "work_experience", items)
}

func (r *ApplicationRepo) SaveInterview(ctx context.Context, id uuid.UUID, iv *models.Interview) error {
	return r.setJSON(ctx, id, "interview", iv)
}

func (r *ApplicationRepo) SavePaymentPlan(ctx context.Context, id uuid.UUID, p *models.PaymentPlan) error {
	return r.setJSON(ctx, id, "payment_plan", p)
}

func (r *ApplicationRepo) AddFile(ctx context.Context, applicationID uuid.UUID, f *models.ApplicationFile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO application_files (application_id, name, url)
		VALUES ($1, $2, $3)
		RETURNING id, uploaded_at
	`, applicationID, f.Name, f.URL).Scan(&f.ID, &f.UploadedAt)
}

func (r *ApplicationRepo) GetFile(ctx context.Context, applicationID, fileID uuid.UUID) (*models.ApplicationFile, error) {
	var f models.ApplicationFile
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, url, uploaded_at FROM application_files
		WHERE id = $1 AND application_id = $2
	`, fileID, applicationID).Scan(&f.ID, &f.Name, &f.URL, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *ApplicationRepo) DeleteFile(ctx context.Context, applicationID, fileID uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM application_files WHERE id = $1 AND application_id = $2`, fileID, applicationID)
}

func (r *ApplicationRepo) ListFiles(ctx context.Context, applicationID uuid.UUID) ([]models.ApplicationFile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, url, uploaded_at FROM application_files
		WHERE application_id = $1 ORDER BY uploaded_at
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.ApplicationFile{}
	for rows.Next() {
		var f models.ApplicationFile
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// setJSON overwrites one JSONB column. column is always a literal from
// this file.
func (r *ApplicationRepo) setJSON(ctx context.Context, id uuid.UUID, column string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", column, err)
	}
	return r.exec(ctx, fmt.Sprintf(`UPDATE applications SET %s = $1, updated_at = now() WHERE id = $2`, column), b, id)
}

func (r *ApplicationRepo) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
