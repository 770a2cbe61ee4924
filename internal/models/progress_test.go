package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionPercentage(t *testing.T) {
	cases := []struct {
		name             string
		completed, total int
		want             float64
	}{
		{"empty course", 0, 0, 0},
		{"empty course with stale completions", 3, 0, 0},
		{"none", 0, 3, 0},
		{"two of three", 2, 3, 66.67},
		{"one of three", 1, 3, 33.33},
		{"all", 3, 3, 100},
		{"clamped", 5, 3, 100},
		{"one of eight", 1, 8, 12.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompletionPercentage(tc.completed, tc.total))
		})
	}
}

func TestCompletionPercentageMonotonic(t *testing.T) {
	prev := -1.0
	for done := 0; done <= 7; done++ {
		pct := CompletionPercentage(done, 7)
		assert.GreaterOrEqual(t, pct, prev)
		assert.Equal(t, pct, CompletionPercentage(done, 7))
		prev = pct
	}
}

func TestCourseStructure(t *testing.T) {
	s := CourseStructure{Sections: []SectionStructure{
		{SectionID: "A", LessonIDs: []string{"L1", "L2"}, DurationSeconds: 600},
		{SectionID: "B", LessonIDs: []string{"L3"}, DurationSeconds: 300},
	}}
	assert.Equal(t, 3, s.TotalLessons())
	assert.Equal(t, 900, s.TotalDurationSeconds())
	assert.True(t, s.HasLesson("L3"))
	assert.False(t, s.HasLesson("L9"))
}
