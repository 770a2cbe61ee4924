package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studynotion-api/internal/models"
)

func TestAddEnrolledStudentIsConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	query := regexp.QuoteMeta("UPDATE courses SET enrolled_students = array_append(enrolled_students, $2), updated_at = NOW() WHERE id = $1 AND NOT ($2 = ANY(enrolled_students))")
	mock.ExpectExec(query).WithArgs("C1", "S1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("C1", "S1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)")).
		WithArgs("C1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	added, err := repo.AddEnrolledStudent(context.Background(), "C1", "S1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddEnrolledStudent(context.Background(), "C1", "S1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseStructureKeepsSectionOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sections FROM courses WHERE id = $1")).
		WithArgs("C1").
		WillReturnRows(sqlmock.NewRows([]string{"sections"}).AddRow("{A,B}"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lessons FROM sections WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lessons"}).
			AddRow("B", "{L3}").
			AddRow("A", "{L1,L2}"))
	mock.ExpectQuery("SELECT section_id, COALESCE\\(SUM\\(duration_seconds\\), 0\\) AS seconds FROM lessons").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "seconds"}).
			AddRow("A", 600).
			AddRow("B", 120))

	structure, err := repo.Structure(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, structure.Sections, 2)
	assert.Equal(t, "A", structure.Sections[0].SectionID)
	assert.Equal(t, []string{"L1", "L2"}, structure.Sections[0].LessonIDs)
	assert.Equal(t, 3, structure.TotalLessons())
	assert.Equal(t, 720, structure.TotalDurationSeconds())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseStructureEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sections FROM courses WHERE id = $1")).
		WithArgs("C0").
		WillReturnRows(sqlmock.NewRows([]string{"sections"}).AddRow("{}"))

	structure, err := repo.Structure(context.Background(), "C0")
	require.NoError(t, err)
	assert.Equal(t, 0, structure.TotalLessons())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCourseLinksInstructorAndCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	category := "CAT1"
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET courses = array_append(courses, $2)")).
		WithArgs("I1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories SET courses = array_append(courses, $2) WHERE id = $1")).
		WithArgs("CAT1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	course := &models.Course{Name: "Go 101", InstructorID: "I1", Price: 500, CategoryID: &category}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET course_progress").WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET courses = array_remove").WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE categories SET courses = array_remove").WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM course_progress").WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM ratings").WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM lessons").WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM sections").WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).WithArgs("C1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "C1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCascadeMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	for i := 0; i < 7; i++ {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "ghost")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
