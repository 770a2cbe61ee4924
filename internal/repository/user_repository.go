package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studynotion-api/internal/models"
)

const userColumns = `id, first_name, last_name, email, password_hash, role, active, approved, image_url, courses, course_progress, gender, date_of_birth, about, contact_number, reset_token_hash, reset_expires_at, last_login, created_at, updated_at`

// UserRepository provides database access for accounts and their enrollment references.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByResetTokenHash returns the user holding a pending reset with the given token hash.
func (r *UserRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return &user, nil
}

// ListByIDs returns the users with the given ids, in no particular order.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}
	return users, nil
}

// Create inserts a new user. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := utcNow()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)
	if user.Courses == nil {
		user.Courses = pq.StringArray{}
	}
	if user.CourseProgress == nil {
		user.CourseProgress = pq.StringArray{}
	}

	const query = `INSERT INTO users (id, first_name, last_name, email, password_hash, role, active, approved, image_url, courses, course_progress, contact_number, created_at, updated_at) VALUES (:id, :first_name, :last_name, :email, :password_hash, :role, :active, :approved, :image_url, :courses, :course_progress, :contact_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile stores the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, profile models.Profile) error {
	const query = `UPDATE users SET first_name = $2, last_name = $3, gender = $4, date_of_birth = $5, about = $6, contact_number = $7, updated_at = $8 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, profile.FirstName, profile.LastName, profile.Gender, profile.DateOfBirth, profile.About, profile.ContactNumber, utcNow())
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(res)
}

// UpdateImage stores the display picture URL.
func (r *UserRepository) UpdateImage(ctx context.Context, id, imageURL string) error {
	const query = `UPDATE users SET image_url = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, imageURL, utcNow())
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return requireAffected(res)
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash and writes the given reset state in the same statement.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, reset models.ResetState, updatedAt time.Time) error {
	hash, exp := reset.Columns()
	const query = `UPDATE users SET password_hash = $2, reset_token_hash = $3, reset_expires_at = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, hash, exp, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SaveResetState persists the password reset state machine.
func (r *UserRepository) SaveResetState(ctx context.Context, id string, reset models.ResetState) error {
	hash, exp := reset.Columns()
	const query = `UPDATE users SET reset_token_hash = $2, reset_expires_at = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, hash, exp, utcNow()); err != nil {
		return fmt.Errorf("save reset state: %w", err)
	}
	return nil
}

// AddCourse adds courseID to the user's course set unless present. It reports whether the set changed.
func (r *UserRepository) AddCourse(ctx context.Context, userID, courseID string) (bool, error) {
	return appendUnique(ctx, r.db, "users", "courses", userID, courseID)
}

// AddProgress adds progressID to the user's progress reference set unless present.
func (r *UserRepository) AddProgress(ctx context.Context, userID, progressID string) (bool, error) {
	return appendUnique(ctx, r.db, "users", "course_progress", userID, progressID)
}

// DeleteCascade removes a user and every reference to them in one transaction: enrolled course
// sets, ratings, progress records, and courses they authored with all their content.
func (r *UserRepository) DeleteCascade(ctx context.Context, userID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var authored []string
	if err = tx.SelectContext(ctx, &authored, `SELECT id FROM courses WHERE instructor_id = $1`, userID); err != nil {
		return fmt.Errorf("list authored courses: %w", err)
	}
	for _, courseID := range authored {
		if err = deleteCourseTx(ctx, tx, courseID); err != nil {
			return err
		}
	}

	steps := []struct {
		name  string
		query string
	}{
		{"unenroll", `UPDATE courses SET enrolled_students = array_remove(enrolled_students, $1), updated_at = NOW() WHERE $1 = ANY(enrolled_students)`},
		{"detach ratings", `UPDATE courses SET ratings = ARRAY(SELECT rid FROM unnest(ratings) AS rid WHERE rid NOT IN (SELECT id FROM ratings WHERE user_id = $1)) WHERE ratings && ARRAY(SELECT id FROM ratings WHERE user_id = $1)`},
		{"delete ratings", `DELETE FROM ratings WHERE user_id = $1`},
		{"delete progress", `DELETE FROM course_progress WHERE user_id = $1`},
		{"delete refresh tokens", `DELETE FROM refresh_tokens WHERE user_id = $1`},
	}
	for _, step := range steps {
		if _, err = tx.ExecContext(ctx, step.query, userID); err != nil {
			return fmt.Errorf("delete user: %s: %w", step.name, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = utcNow()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, utcNow()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = utcNow()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
