package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleStudent    UserRole = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// User represents an account stored in the users table. Courses holds enrolled course ids for
// students and authored course ids for instructors.
type User struct {
	ID             string         `db:"id" json:"id"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	Role           UserRole       `db:"role" json:"role"`
	Active         bool           `db:"active" json:"active"`
	Approved       bool           `db:"approved" json:"approved"`
	ImageURL       string         `db:"image_url" json:"image_url"`
	Courses        pq.StringArray `db:"courses" json:"courses"`
	CourseProgress pq.StringArray `db:"course_progress" json:"course_progress"`
	Gender         *string        `db:"gender" json:"gender,omitempty"`
	DateOfBirth    *string        `db:"date_of_birth" json:"date_of_birth,omitempty"`
	About          *string        `db:"about" json:"about,omitempty"`
	ContactNumber  *string        `db:"contact_number" json:"contact_number,omitempty"`
	ResetTokenHash *string        `db:"reset_token_hash" json:"-"`
	ResetExpiresAt *time.Time     `db:"reset_expires_at" json:"-"`
	LastLogin      *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasCourse reports whether courseID is in the user's course set.
func (u *User) HasCourse(courseID string) bool {
	return containsID(u.Courses, courseID)
}

// Reset returns the password reset state encoded in the reset columns.
func (u *User) Reset() ResetState {
	return ResetStateFromColumns(u.ResetTokenHash, u.ResetExpiresAt)
}

// Profile is the editable part of a user's account.
type Profile struct {
	FirstName     string  `db:"first_name"`
	LastName      string  `db:"last_name"`
	Gender        *string `db:"gender"`
	DateOfBirth   *string `db:"date_of_birth"`
	About         *string `db:"about"`
	ContactNumber *string `db:"contact_number"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
