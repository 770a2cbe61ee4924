package dto

import "github.com/noah-isme/studynotion-api/internal/models"

// CreateCourseRequest defines the instructor payload for a new course.
type CreateCourseRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	Description      string   `json:"description" validate:"required"`
	WhatYouWillLearn string   `json:"whatYouWillLearn" validate:"required"`
	Price            int64    `json:"price" validate:"gte=0"`
	Tags             []string `json:"tags" validate:"required,min=1,dive,required"`
	CategoryID       string   `json:"categoryId" validate:"required"`
	Instructions     []string `json:"instructions" validate:"omitempty,dive,required"`
	Status           string   `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	ThumbnailURL     string   `json:"thumbnailUrl" validate:"omitempty,url"`
}

// UpdateCourseRequest patches course fields; nil fields are left untouched.
type UpdateCourseRequest struct {
	Name             *string  `json:"name" validate:"omitempty,max=200"`
	Description      *string  `json:"description"`
	WhatYouWillLearn *string  `json:"whatYouWillLearn"`
	Price            *int64   `json:"price" validate:"omitempty,gte=0"`
	Tags             []string `json:"tags" validate:"omitempty,dive,required"`
	CategoryID       *string  `json:"categoryId"`
	Instructions     []string `json:"instructions" validate:"omitempty,dive,required"`
	Status           *string  `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	ThumbnailURL     *string  `json:"thumbnailUrl" validate:"omitempty,url"`
}

// CourseDetail is the full course view with its sections and lessons.
type CourseDetail struct {
	Course           models.Course   `json:"course"`
	Sections         []SectionDetail `json:"sections"`
	TotalLessons     int             `json:"totalLessons"`
	TotalDuration    string          `json:"totalDuration"`
	AverageRating    float64         `json:"averageRating"`
	StudentsEnrolled int             `json:"studentsEnrolled"`
}

// SectionDetail is a section with its lessons resolved in order.
type SectionDetail struct {
	models.Section
	SubSections []models.Lesson `json:"subSections"`
}

// CreateSectionRequest adds a section to a course.
type CreateSectionRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Name     string `json:"name" validate:"required,max=200"`
}

// UpdateSectionRequest renames a section.
type UpdateSectionRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateLessonRequest adds a lesson to a section. VideoURL comes from a prior media upload.
type CreateLessonRequest struct {
	SectionID       string `json:"sectionId" validate:"required"`
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description"`
	VideoURL        string `json:"videoUrl" validate:"required,url"`
	DurationSeconds int    `json:"durationSeconds" validate:"gte=0"`
}

// UpdateLessonRequest patches a lesson.
type UpdateLessonRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=200"`
	Description     *string `json:"description"`
	VideoURL        *string `json:"videoUrl" validate:"omitempty,url"`
	DurationSeconds *int    `json:"durationSeconds" validate:"omitempty,gte=0"`
}

// CreateCategoryRequest defines a catalog category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// CategoryPage is the catalog view of one category.
type CategoryPage struct {
	Category   models.Category `json:"category"`
	Courses    []models.Course `json:"courses"`
	Others     []models.Course `json:"otherCourses"`
	TopSelling []models.Course `json:"topSelling"`
}

// CreateRatingRequest reviews a course the student is enrolled in.
type CreateRatingRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Review   string `json:"review" validate:"required,max=2000"`
}

// RatingView is a review joined with its author.
type RatingView struct {
	models.Rating
	FirstName  string `db:"first_name" json:"firstName"`
	LastName   string `db:"last_name" json:"lastName"`
	ImageURL   string `db:"image_url" json:"imageUrl"`
	CourseName string `db:"course_name" json:"courseName"`
}

// AverageRatingResponse carries the mean rating of a course.
type AverageRatingResponse struct {
	CourseID      string  `json:"courseId"`
	AverageRating float64 `json:"averageRating"`
}
