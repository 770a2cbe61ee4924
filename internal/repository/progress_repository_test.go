package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studynotion-api/internal/models"
)

const insertProgress = "INSERT INTO course_progress (id, user_id, course_id, completed_videos, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (user_id, course_id) DO NOTHING RETURNING id"

func TestProgressCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(insertProgress)).
		WithArgs("P1", "S1", "C1", pq.StringArray{}, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("P1"))

	rec := &models.ProgressRecord{ID: "P1", UserID: "S1", CourseID: "C1"}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Empty(t, rec.CompletedVideos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressCreateConflictIsDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(insertProgress)).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(insertProgress)).WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.ProgressRecord{UserID: "S1", CourseID: "C1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	err = repo.Create(context.Background(), &models.ProgressRecord{UserID: "S1", CourseID: "C1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCompletedLesson(t *testing.T) {
	update := regexp.QuoteMeta("UPDATE course_progress SET completed_videos = array_append(completed_videos, $3), updated_at = $4 WHERE user_id = $1 AND course_id = $2 AND NOT ($3 = ANY(completed_videos))")
	exists := regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM course_progress WHERE user_id = $1 AND course_id = $2)")

	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec(update).WithArgs("S1", "C1", "L1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs("S1", "C1", "L1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("S1", "C1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(update).WithArgs("S2", "C1", "L1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs("S2", "C1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	added, err := repo.AddCompletedLesson(context.Background(), "S1", "C1", "L1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddCompletedLesson(context.Background(), "S1", "C1", "L1")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = repo.AddCompletedLesson(context.Background(), "S2", "C1", "L1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
