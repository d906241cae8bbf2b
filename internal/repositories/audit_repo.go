package repositories

import (
	"context"

	"github.com/college-admin/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepo is the append-only activity store. There is deliberately no
// update or delete method.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Insert(ctx context.Context, e *models.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_entries (id, actor_id, subject_id, action_kind, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.ActorID, e.SubjectID, e.ActionKind, e.Details, e.CreatedAt)
	return err
}

func (r *AuditRepo) CountBySubject(ctx context.Context, subjectID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries WHERE subject_id = $1`, subjectID).Scan(&n)
	return n, err
}

// ListBySubject returns one page of the subject's entries, newest first.
func (r *AuditRepo) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]models.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, subject_id, action_kind, details, created_at
		FROM audit_entries WHERE subject_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, subjectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.SubjectID, &e.ActionKind, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
