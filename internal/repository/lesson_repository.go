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

const lessonColumns = `id, section_id, title, description, video_url, duration_seconds, created_at, updated_at`

// LessonRepository provides database access for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new instance of LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByID returns a lesson by identifier.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 LIMIT 1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson by id: %w", err)
	}
	return &lesson, nil
}

// CourseIDOf resolves the course a lesson belongs to through its section.
func (r *LessonRepository) CourseIDOf(ctx context.Context, lessonID string) (string, error) {
	const query = `SELECT s.course_id FROM lessons l JOIN sections s ON s.id = l.section_id WHERE l.id = $1`
	var courseID string
	if err := r.db.GetContext(ctx, &courseID, query, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("resolve lesson course: %w", err)
	}
	return courseID, nil
}

// ListByIDs returns the lessons with the given ids in the order of ids.
func (r *LessonRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Lesson, error) {
	if len(ids) == 0 {
		return []models.Lesson{}, nil
	}
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = ANY($1)`
	var rows []models.Lesson
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	byID := make(map[string]models.Lesson, len(rows))
	for _, l := range rows {
		byID[l.ID] = l
	}
	ordered := make([]models.Lesson, 0, len(rows))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered, nil
}

// Create inserts a lesson and appends it to its section's lesson list.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) (err error) {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := utcNow()
	lesson.CreatedAt, lesson.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create lesson: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO lessons (id, section_id, title, description, video_url, duration_seconds, created_at, updated_at) VALUES (:id, :section_id, :title, :description, :video_url, :duration_seconds, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	if _, err = appendUnique(ctx, tx, "sections", "lessons", lesson.SectionID, lesson.ID); err != nil {
		return fmt.Errorf("link lesson: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create lesson: %w", err)
	}
	return nil
}

// Update stores the editable lesson fields.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = utcNow()
	const query = `UPDATE lessons SET title = :title, description = :description, video_url = :video_url, duration_seconds = :duration_seconds, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return requireAffected(res)
}

// DeleteCascade removes a lesson, drops it from the course's progress records and unlinks it
// from its section, in one transaction.
func (r *LessonRepository) DeleteCascade(ctx context.Context, lessonID, sectionID, courseID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete lesson: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE course_progress SET completed_videos = array_remove(completed_videos, $1), updated_at = NOW() WHERE course_id = $2 AND $1 = ANY(completed_videos)`, lessonID, courseID); err != nil {
		return fmt.Errorf("delete lesson: prune progress: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE sections SET lessons = array_remove(lessons, $1), updated_at = NOW() WHERE id = $2`, lessonID, sectionID); err != nil {
		return fmt.Errorf("delete lesson: unlink: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, lessonID)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete lesson: %w", err)
	}
	return nil
}
