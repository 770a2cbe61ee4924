package dto

// MarkLessonRequest marks one lesson of a course as completed.
type MarkLessonRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	LessonID string `json:"lessonId" validate:"required"`
}

// ProgressResponse reports a student's completion of a course.
type ProgressResponse struct {
	CourseID        string   `json:"courseId"`
	CompletedVideos []string `json:"completedVideos"`
	TotalLessons    int      `json:"totalLessons"`
	Percentage      float64  `json:"percentage"`
}

// EnrolledCourse is one row of the student's enrolled course list.
type EnrolledCourse struct {
	CourseID        string  `json:"courseId"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	ThumbnailURL    string  `json:"thumbnailUrl"`
	TotalLessons    int     `json:"totalLessons"`
	TotalDuration   string  `json:"totalDuration"`
	DurationSeconds int     `json:"durationSeconds"`
	Percentage      float64 `json:"percentage"`
}
