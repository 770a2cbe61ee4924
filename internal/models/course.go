package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseStatus tracks whether a course is visible in the catalog.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "DRAFT"
	CourseStatusPublished CourseStatus = "PUBLISHED"
)

// Course is the purchasable unit. Price is in major currency units.
type Course struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Description      string         `db:"description" json:"description"`
	InstructorID     string         `db:"instructor_id" json:"instructor_id"`
	WhatYouWillLearn string         `db:"what_you_will_learn" json:"what_you_will_learn"`
	Price            int64          `db:"price" json:"price"`
	ThumbnailURL     string         `db:"thumbnail_url" json:"thumbnail_url"`
	Tags             pq.StringArray `db:"tags" json:"tags"`
	CategoryID       *string        `db:"category_id" json:"category_id,omitempty"`
	Instructions     pq.StringArray `db:"instructions" json:"instructions"`
	Status           CourseStatus   `db:"status" json:"status"`
	Sections         pq.StringArray `db:"sections" json:"sections"`
	EnrolledStudents pq.StringArray `db:"enrolled_students" json:"-"`
	Ratings          pq.StringArray `db:"ratings" json:"ratings"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// IsEnrolled reports whether userID is in the course's enrolled-student set.
func (c *Course) IsEnrolled(userID string) bool {
	return containsID(c.EnrolledStudents, userID)
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	InstructorID string
	CategoryID   string
	Status       CourseStatus
	Search       string
	Page         int
	PageSize     int
}

// Section groups lessons inside a course. Lessons is ordered.
type Section struct {
	ID        string         `db:"id" json:"id"`
	CourseID  string         `db:"course_id" json:"course_id"`
	Name      string         `db:"name" json:"name"`
	Lessons   pq.StringArray `db:"lessons" json:"lessons"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Lesson is a single video inside a section.
type Lesson struct {
	ID              string    `db:"id" json:"id"`
	SectionID       string    `db:"section_id" json:"section_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	VideoURL        string    `db:"video_url" json:"video_url"`
	DurationSeconds int       `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CourseStructure is the ordered section to lesson layout of a course, used for progress math.
type CourseStructure struct {
	CourseID string             `json:"course_id"`
	Sections []SectionStructure `json:"sections"`
}

// SectionStructure lists the lesson ids of one section in order.
type SectionStructure struct {
	SectionID       string   `json:"section_id"`
	LessonIDs       []string `json:"lesson_ids"`
	DurationSeconds int      `json:"duration_seconds"`
}

// TotalLessons sums lesson counts across sections.
func (s *CourseStructure) TotalLessons() int {
	total := 0
	for _, sec := range s.Sections {
		total += len(sec.LessonIDs)
	}
	return total
}

// TotalDurationSeconds sums lesson durations across sections.
func (s *CourseStructure) TotalDurationSeconds() int {
	total := 0
	for _, sec := range s.Sections {
		total += sec.DurationSeconds
	}
	return total
}

// HasLesson reports whether lessonID belongs to the course.
func (s *CourseStructure) HasLesson(lessonID string) bool {
	for _, sec := range s.Sections {
		if containsID(sec.LessonIDs, lessonID) {
			return true
		}
	}
	return false
}

// Category groups courses in the catalog.
type Category struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Courses     pq.StringArray `db:"courses" json:"courses"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Rating is one student's review of a course.
type Rating struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Rating    int       `db:"rating" json:"rating"`
	Review    string    `db:"review" json:"review"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
