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

// SectionRepository provides database access for course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new instance of SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section by identifier.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, name, lessons, created_at, updated_at FROM sections WHERE id = $1 LIMIT 1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find section by id: %w", err)
	}
	return &section, nil
}

// ListByIDs returns the sections with the given ids in the order of ids.
func (r *SectionRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Section, error) {
	if len(ids) == 0 {
		return []models.Section{}, nil
	}
	const query = `SELECT id, course_id, name, lessons, created_at, updated_at FROM sections WHERE id = ANY($1)`
	var rows []models.Section
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	byID := make(map[string]models.Section, len(rows))
	for _, s := range rows {
		byID[s.ID] = s
	}
	ordered := make([]models.Section, 0, len(rows))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

// Create inserts a section and appends it to its course's section list.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) (err error) {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := utcNow()
	section.CreatedAt, section.UpdatedAt = now, now
	if section.Lessons == nil {
		section.Lessons = pq.StringArray{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create section: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO sections (id, course_id, name, lessons, created_at, updated_at) VALUES (:id, :course_id, :name, :lessons, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	if _, err = appendUnique(ctx, tx, "courses", "sections", section.CourseID, section.ID); err != nil {
		return fmt.Errorf("link section: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create section: %w", err)
	}
	return nil
}

// Rename updates the section name.
func (r *SectionRepository) Rename(ctx context.Context, id, name string) error {
	const query = `UPDATE sections SET name = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name, utcNow())
	if err != nil {
		return fmt.Errorf("rename section: %w", err)
	}
	return requireAffected(res)
}

// DeleteCascade removes a section and its lessons, drops the lessons from every progress record
// of the course and unlinks the section from the course, in one transaction.
func (r *SectionRepository) DeleteCascade(ctx context.Context, sectionID, courseID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete section: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const pruneProgress = `UPDATE course_progress SET completed_videos = ARRAY(SELECT v FROM unnest(completed_videos) AS v WHERE v NOT IN (SELECT id FROM lessons WHERE section_id = $1)), updated_at = NOW() WHERE course_id = $2`
	if _, err = tx.ExecContext(ctx, pruneProgress, sectionID, courseID); err != nil {
		return fmt.Errorf("delete section: prune progress: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM lessons WHERE section_id = $1`, sectionID); err != nil {
		return fmt.Errorf("delete section: lessons: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE courses SET sections = array_remove(sections, $1), updated_at = NOW() WHERE id = $2`, sectionID, courseID); err != nil {
		return fmt.Errorf("delete section: unlink: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, sectionID)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete section: %w", err)
	}
	return nil
}
