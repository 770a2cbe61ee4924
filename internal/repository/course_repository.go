package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
)

const courseColumns = `id, name, description, instructor_id, what_you_will_learn, price, thumbnail_url, tags, category_id, instructions, status, sections, enrolled_students, ratings, created_at, updated_at`

// CourseRepository provides database access for courses and their enrollment set.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// ListByIDs returns courses with the given ids, preserving the order of ids.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ANY($1)`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list courses by ids: %w", err)
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	sort.SliceStable(courses, func(i, j int) bool { return pos[courses[i].ID] < pos[courses[j].ID] })
	return courses, nil
}

// List returns courses matching the filter with the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", courseColumns, base, pageSize, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// TopSelling returns published courses ordered by enrollment count.
func (r *CourseRepository) TopSelling(ctx context.Context, limit int) ([]models.Course, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE status = $1 ORDER BY cardinality(enrolled_students) DESC, created_at DESC LIMIT $2`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, models.CourseStatusPublished, limit); err != nil {
		return nil, fmt.Errorf("top selling courses: %w", err)
	}
	return courses, nil
}

// InstructorStats aggregates enrollment and revenue for every course an instructor authored.
func (r *CourseRepository) InstructorStats(ctx context.Context, instructorID string) ([]dto.InstructorCourseStats, error) {
	const query = `SELECT id, name, description, price, cardinality(enrolled_students) AS students_enrolled, price * cardinality(enrolled_students) AS amount_generated FROM courses WHERE instructor_id = $1 ORDER BY created_at DESC`
	var stats []dto.InstructorCourseStats
	if err := r.db.SelectContext(ctx, &stats, query, instructorID); err != nil {
		return nil, fmt.Errorf("instructor stats: %w", err)
	}
	return stats, nil
}

// Create inserts a course and links it to its instructor and category in one transaction.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (err error) {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := utcNow()
	course.CreatedAt, course.UpdatedAt = now, now
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}
	for _, arr := range []*pq.StringArray{&course.Tags, &course.Instructions, &course.Sections, &course.EnrolledStudents, &course.Ratings} {
		if *arr == nil {
			*arr = pq.StringArray{}
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO courses (id, name, description, instructor_id, what_you_will_learn, price, thumbnail_url, tags, category_id, instructions, status, sections, enrolled_students, ratings, created_at, updated_at) VALUES (:id, :name, :description, :instructor_id, :what_you_will_learn, :price, :thumbnail_url, :tags, :category_id, :instructions, :status, :sections, :enrolled_students, :ratings, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	if _, err = appendUnique(ctx, tx, "users", "courses", course.InstructorID, course.ID); err != nil {
		return fmt.Errorf("link instructor: %w", err)
	}
	if course.CategoryID != nil {
		if _, err = appendUnique(ctx, tx, "categories", "courses", *course.CategoryID, course.ID); err != nil {
			return fmt.Errorf("link category: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create course: %w", err)
	}
	return nil
}

// Update stores the editable course fields. A category change moves the course between category sets.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course, previousCategory *string) (err error) {
	course.UpdatedAt = utcNow()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update course: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE courses SET name = :name, description = :description, what_you_will_learn = :what_you_will_learn, price = :price, thumbnail_url = :thumbnail_url, tags = :tags, category_id = :category_id, instructions = :instructions, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	if !sameCategory(previousCategory, course.CategoryID) {
		if previousCategory != nil {
			if _, err = tx.ExecContext(ctx, `UPDATE categories SET courses = array_remove(courses, $2) WHERE id = $1`, *previousCategory, course.ID); err != nil {
				return fmt.Errorf("unlink category: %w", err)
			}
		}
		if course.CategoryID != nil {
			if _, err = appendUnique(ctx, tx, "categories", "courses", *course.CategoryID, course.ID); err != nil {
				return fmt.Errorf("link category: %w", err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update course: %w", err)
	}
	return nil
}

// AddEnrolledStudent adds userID to the course's enrolled set unless present. It reports whether
// the set changed; a missing course yields sql.ErrNoRows.
func (r *CourseRepository) AddEnrolledStudent(ctx context.Context, courseID, userID string) (bool, error) {
	return appendUnique(ctx, r.db, "courses", "enrolled_students", courseID, userID)
}

// Structure returns the ordered section and lesson ids of a course with per-section durations.
func (r *CourseRepository) Structure(ctx context.Context, courseID string) (*models.CourseStructure, error) {
	var sectionOrder pq.StringArray
	if err := r.db.GetContext(ctx, &sectionOrder, `SELECT sections FROM courses WHERE id = $1`, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("load course sections: %w", err)
	}

	structure := &models.CourseStructure{CourseID: courseID, Sections: []models.SectionStructure{}}
	if len(sectionOrder) == 0 {
		return structure, nil
	}

	var sections []struct {
		ID      string         `db:"id"`
		Lessons pq.StringArray `db:"lessons"`
	}
	if err := r.db.SelectContext(ctx, &sections, `SELECT id, lessons FROM sections WHERE id = ANY($1)`, pq.Array([]string(sectionOrder))); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}

	var durations []struct {
		SectionID string `db:"section_id"`
		Seconds   int    `db:"seconds"`
	}
	if err := r.db.SelectContext(ctx, &durations, `SELECT section_id, COALESCE(SUM(duration_seconds), 0) AS seconds FROM lessons WHERE section_id = ANY($1) GROUP BY section_id`, pq.Array([]string(sectionOrder))); err != nil {
		return nil, fmt.Errorf("sum lesson durations: %w", err)
	}

	lessonsBySection := make(map[string][]string, len(sections))
	for _, s := range sections {
		lessonsBySection[s.ID] = []string(s.Lessons)
	}
	secondsBySection := make(map[string]int, len(durations))
	for _, d := range durations {
		secondsBySection[d.SectionID] = d.Seconds
	}
	for _, id := range sectionOrder {
		lessons, ok := lessonsBySection[id]
		if !ok {
			continue
		}
		if lessons == nil {
			lessons = []string{}
		}
		structure.Sections = append(structure.Sections, models.SectionStructure{
			SectionID:       id,
			LessonIDs:       lessons,
			DurationSeconds: secondsBySection[id],
		})
	}
	return structure, nil
}

// DeleteCascade removes a course with its sections, lessons, ratings and progress records, and
// strips its id from every user and category set, in one transaction.
func (r *CourseRepository) DeleteCascade(ctx context.Context, courseID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteCourseTx(ctx, tx, courseID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	return nil
}

func deleteCourseTx(ctx context.Context, tx *sqlx.Tx, courseID string) error {
	steps := []struct {
		name  string
		query string
	}{
		{"detach progress refs", `UPDATE users SET course_progress = ARRAY(SELECT pid FROM unnest(course_progress) AS pid WHERE pid NOT IN (SELECT id FROM course_progress WHERE course_id = $1)), updated_at = NOW() WHERE course_progress && ARRAY(SELECT id FROM course_progress WHERE course_id = $1)`},
		{"detach user courses", `UPDATE users SET courses = array_remove(courses, $1), updated_at = NOW() WHERE $1 = ANY(courses)`},
		{"detach category", `UPDATE categories SET courses = array_remove(courses, $1) WHERE $1 = ANY(courses)`},
		{"delete progress", `DELETE FROM course_progress WHERE course_id = $1`},
		{"delete ratings", `DELETE FROM ratings WHERE course_id = $1`},
		{"delete lessons", `DELETE FROM lessons WHERE section_id IN (SELECT id FROM sections WHERE course_id = $1)`},
		{"delete sections", `DELETE FROM sections WHERE course_id = $1`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, courseID); err != nil {
			return fmt.Errorf("delete course: %s: %w", step.name, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, courseID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireAffected(res)
}

func sameCategory(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
