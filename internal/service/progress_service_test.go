package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studynotion-api/internal/dto"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
)

func TestMarkLessonCompleteRequiresEnrollment(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.progress.MarkLessonComplete(context.Background(), "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: "L1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotEnrolled))

	_, err = f.progress.Percentage(context.Background(), "S1", "C1")
	assert.True(t, errors.Is(err, appErrors.ErrNotEnrolled))
}

func TestMarkLessonCompleteChecksLessonCourse(t *testing.T) {
	f := newEnrollmentFixture(t)
	f.store.seedCourse("C2", "I1", 100, map[string][]string{"X": {"L9"}}, "X")
	_, err := f.enroll.Fulfill(context.Background(), "C1", "S1")
	require.NoError(t, err)

	_, err = f.progress.MarkLessonComplete(context.Background(), "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: "L9"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.progress.MarkLessonComplete(context.Background(), "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.progress.MarkLessonComplete(context.Background(), "S1", dto.MarkLessonRequest{CourseID: "C1"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrolledCoursesReportsCompletion(t *testing.T) {
	f := newEnrollmentFixture(t)
	ctx := context.Background()
	_, err := f.enroll.Fulfill(ctx, "C1", "S1")
	require.NoError(t, err)
	_, err = f.progress.MarkLessonComplete(ctx, "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: "L3"})
	require.NoError(t, err)

	courses, err := f.progress.EnrolledCourses(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "C1", courses[0].CourseID)
	assert.Equal(t, 3, courses[0].TotalLessons)
	assert.Equal(t, 180, courses[0].DurationSeconds)
	assert.Equal(t, "3m 0s", courses[0].TotalDuration)
	assert.Equal(t, 33.33, courses[0].Percentage)
}

func TestCertificateOnlyAfterCompletion(t *testing.T) {
	f := newEnrollmentFixture(t)
	ctx := context.Background()
	_, err := f.enroll.Fulfill(ctx, "C1", "S1")
	require.NoError(t, err)

	_, err = f.progress.Certificate(ctx, "S1", "C1")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	for _, lesson := range []string{"L1", "L2", "L3"} {
		_, err = f.progress.MarkLessonComplete(ctx, "S1", dto.MarkLessonRequest{CourseID: "C1", LessonID: lesson})
		require.NoError(t, err)
	}

	pdf, err := f.progress.Certificate(ctx, "S1", "C1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "45s", FormatDuration(45))
	assert.Equal(t, "2m 5s", FormatDuration(125))
	assert.Equal(t, "1h 1m", FormatDuration(3665))
}
