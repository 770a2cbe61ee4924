package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studynotion-api/internal/models"
)

const progressColumns = `id, user_id, course_id, completed_videos, created_at, updated_at`

// ProgressRepository provides database access for per (user, course) progress records.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new instance of ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// FindByUserAndCourse returns the progress record for the pair.
func (r *ProgressRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.ProgressRecord, error) {
	query := `SELECT ` + progressColumns + ` FROM course_progress WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var rec models.ProgressRecord
	if err := r.db.GetContext(ctx, &rec, query, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return &rec, nil
}

// ListByUser returns every progress record of a user.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	query := `SELECT ` + progressColumns + ` FROM course_progress WHERE user_id = $1`
	var recs []models.ProgressRecord
	if err := r.db.SelectContext(ctx, &recs, query, userID); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return recs, nil
}

// Create inserts a record unless one exists for (user_id, course_id). The unique constraint is
// the race breaker: a conflict returns ErrDuplicate and nothing is written.
func (r *ProgressRepository) Create(ctx context.Context, rec *models.ProgressRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := utcNow()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if rec.CompletedVideos == nil {
		rec.CompletedVideos = pq.StringArray{}
	}

	const query = `INSERT INTO course_progress (id, user_id, course_id, completed_videos, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (user_id, course_id) DO NOTHING RETURNING id`
	var id string
	err := r.db.GetContext(ctx, &id, query, rec.ID, rec.UserID, rec.CourseID, rec.CompletedVideos, rec.CreatedAt, rec.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		return ErrDuplicate
	case err != nil:
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

// AddCompletedLesson adds lessonID to the completed set unless present and reports whether it
// changed. A missing record yields sql.ErrNoRows.
func (r *ProgressRepository) AddCompletedLesson(ctx context.Context, userID, courseID, lessonID string) (bool, error) {
	const query = `UPDATE course_progress SET completed_videos = array_append(completed_videos, $3), updated_at = $4 WHERE user_id = $1 AND course_id = $2 AND NOT ($3 = ANY(completed_videos))`
	res, err := r.db.ExecContext(ctx, query, userID, courseID, lessonID, utcNow())
	if err != nil {
		return false, fmt.Errorf("add completed lesson: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add completed lesson rows: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM course_progress WHERE user_id = $1 AND course_id = $2)`, userID, courseID); err != nil {
		return false, fmt.Errorf("check progress exists: %w", err)
	}
	if !exists {
		return false, sql.ErrNoRows
	}
	return false, nil
}
