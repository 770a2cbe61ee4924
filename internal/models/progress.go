package models

import (
	"math"
	"time"

	"github.com/lib/pq"
)

// ProgressRecord is the per (user, course) set of completed lesson ids.
type ProgressRecord struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	CourseID        string         `db:"course_id" json:"course_id"`
	CompletedVideos pq.StringArray `db:"completed_videos" json:"completed_videos"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// HasCompleted reports whether lessonID is in the completed set.
func (p *ProgressRecord) HasCompleted(lessonID string) bool {
	return containsID(p.CompletedVideos, lessonID)
}

// CompletionPercentage returns completed/total*100 rounded to two decimals. Completed is clamped
// to total and an empty course yields 0.
func CompletionPercentage(completed, total int) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	pct := float64(completed) / float64(total) * 100
	return math.Round(pct*100) / 100
}
