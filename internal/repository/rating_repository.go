package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/models"
)

// RatingRepository provides database access for course reviews.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new instance of RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts a rating and links it to the course. A second review by the same user for the
// same course yields ErrDuplicate.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) (err error) {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = utcNow()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create rating: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO ratings (id, user_id, course_id, rating, review, created_at) VALUES (:id, :user_id, :course_id, :rating, :review, :created_at)`
	if _, err = tx.NamedExecContext(ctx, query, rating); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return err
		}
		return fmt.Errorf("create rating: %w", err)
	}
	if _, err = appendUnique(ctx, tx, "courses", "ratings", rating.CourseID, rating.ID); err != nil {
		return fmt.Errorf("link rating: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create rating: %w", err)
	}
	return nil
}

// AverageForCourse returns the mean rating of a course, 0 when it has none.
func (r *RatingRepository) AverageForCourse(ctx context.Context, courseID string) (float64, error) {
	const query = `SELECT COALESCE(AVG(rating), 0)::float8 FROM ratings WHERE course_id = $1`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, courseID); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}

// List returns reviews with author and course names, best rated first.
func (r *RatingRepository) List(ctx context.Context, courseID string, limit int) ([]dto.RatingView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `SELECT r.id, r.user_id, r.course_id, r.rating, r.review, r.created_at, u.first_name, u.last_name, u.image_url, c.name AS course_name FROM ratings r JOIN users u ON u.id = r.user_id JOIN courses c ON c.id = r.course_id`
	args := []interface{}{}
	if courseID != "" {
		args = append(args, courseID)
		query += ` WHERE r.course_id = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY r.rating DESC, r.created_at DESC LIMIT $%d`, len(args))

	var views []dto.RatingView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return views, nil
}

// FindByUserAndCourse returns the user's review of a course.
func (r *RatingRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Rating, error) {
	const query = `SELECT id, user_id, course_id, rating, review, created_at FROM ratings WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &rating, nil
}
