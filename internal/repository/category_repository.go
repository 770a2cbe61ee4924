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

// CategoryRepository provides database access for catalog categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category. A taken name yields ErrDuplicate.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = utcNow()
	}
	if category.Courses == nil {
		category.Courses = pq.StringArray{}
	}
	const query = `INSERT INTO categories (id, name, description, courses, created_at) VALUES (:id, :name, :description, :courses, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// FindByID returns a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, name, description, courses, created_at FROM categories WHERE id = $1 LIMIT 1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT id, name, description, courses, created_at FROM categories ORDER BY name ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
